package database

import (
	"embed"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strconv"
	"strings"

	"tribune/internal/middleware"
)

// Migration is one versioned schema change with its rollback script.
type Migration struct {
	Version    int
	Name       string
	UpScript   string
	DownScript string
}

func (m *Migration) String() string {
	return fmt.Sprintf("%06d_%s", m.Version, m.Name)
}

//go:embed migrations/*.sql
var migrationFS embed.FS

var migrations []Migration

func init() {
	loaded, err := loadMigrations(migrationFS)
	if err != nil {
		panic(fmt.Sprintf("load embedded migrations: %v", err))
	}
	migrations = loaded
}

// loadMigrations reads NNNNNN_name.up.sql / .down.sql pairs from the embedded
// filesystem. An up script without a matching down script is an error; a
// migration that cannot be rolled back should ship an explicit no-op.
func loadMigrations(efs embed.FS) ([]Migration, error) {
	entries, err := efs.ReadDir("migrations")
	if err != nil {
		return nil, fmt.Errorf("read migrations directory: %w", err)
	}

	var out []Migration
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".up.sql") {
			continue
		}

		base := strings.TrimSuffix(name, ".up.sql")
		versionStr, migName, ok := strings.Cut(base, "_")
		if !ok {
			middleware.Logger.Warn("Skipping migration with invalid name", slog.String("file", name))
			continue
		}
		version, err := strconv.Atoi(versionStr)
		if err != nil {
			return nil, fmt.Errorf("migration %s: bad version prefix: %w", name, err)
		}

		up, err := efs.ReadFile(path.Join("migrations", name))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		downName := base + ".down.sql"
		down, err := efs.ReadFile(path.Join("migrations", downName))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", downName, err)
		}

		out = append(out, Migration{
			Version:    version,
			Name:       migName,
			UpScript:   string(up),
			DownScript: string(down),
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// GetMigrations returns all registered migrations in version order.
func GetMigrations() []Migration {
	return migrations
}

func migrationByVersion(version int) *Migration {
	for i := range migrations {
		if migrations[i].Version == version {
			return &migrations[i]
		}
	}
	return nil
}
