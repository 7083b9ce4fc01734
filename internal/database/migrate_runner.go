package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"tribune/internal/middleware"

	"gorm.io/gorm"
)

// MigrationLog is one row in the applied-migrations ledger.
type MigrationLog struct {
	Version   int       `gorm:"primaryKey;autoIncrement:false"`
	Name      string    `gorm:"size:255"`
	AppliedAt time.Time `gorm:"autoCreateTime"`
}

func (MigrationLog) TableName() string {
	return "migration_logs"
}

// ledger tracks which migrations have run against this database.
type ledger struct {
	db *gorm.DB
}

func (l *ledger) appliedVersions(ctx context.Context) ([]int, error) {
	var versions []int
	err := l.db.WithContext(ctx).Model(&MigrationLog{}).Order("version ASC").Pluck("version", &versions).Error
	if err != nil {
		// A fresh database has no ledger table yet.
		if errors.Is(err, gorm.ErrRecordNotFound) || isMissingTableError(err) {
			return []int{}, nil
		}
		return nil, fmt.Errorf("read migration ledger: %w", err)
	}
	return versions, nil
}

func isMissingTableError(err error) bool {
	return strings.Contains(err.Error(), "relation") && strings.Contains(err.Error(), "does not exist")
}

func (l *ledger) apply(ctx context.Context, m Migration) error {
	if err := l.db.WithContext(ctx).Exec(m.UpScript).Error; err != nil {
		return fmt.Errorf("apply migration %s: %w", m.String(), err)
	}
	if err := l.db.WithContext(ctx).Create(&MigrationLog{Version: m.Version, Name: m.Name}).Error; err != nil {
		return fmt.Errorf("record migration %d: %w", m.Version, err)
	}
	middleware.Logger.Info("Migration applied", slog.Int("version", m.Version), slog.String("name", m.Name))
	return nil
}

func (l *ledger) remove(ctx context.Context, version int) error {
	if err := l.db.WithContext(ctx).Where("version = ?", version).Delete(&MigrationLog{}).Error; err != nil {
		return fmt.Errorf("remove migration record %d: %w", version, err)
	}
	middleware.Logger.Info("Migration rolled back", slog.Int("version", version))
	return nil
}

const ensureLedgerTableSQL = `
CREATE TABLE IF NOT EXISTS migration_logs (
	version BIGINT PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_migration_logs_applied_at ON migration_logs (applied_at);`

// RunMigrations creates the ledger table if needed and applies every pending
// migration in version order. It refuses to run against a database whose
// ledger mentions versions this build does not know about.
func RunMigrations(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).Exec(ensureLedgerTableSQL).Error; err != nil {
		return fmt.Errorf("ensure migration ledger table: %w", err)
	}

	l := &ledger{db: db}
	applied, err := l.appliedVersions(ctx)
	if err != nil {
		return err
	}
	if err := checkNoUnknownVersions(applied, migrations); err != nil {
		return err
	}

	appliedSet := make(map[int]bool, len(applied))
	for _, v := range applied {
		appliedSet[v] = true
	}

	for _, m := range migrations {
		if appliedSet[m.Version] {
			continue
		}
		middleware.Logger.Info("Applying migration", slog.Int("version", m.Version), slog.String("name", m.Name))
		if err := l.apply(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

func checkNoUnknownVersions(applied []int, registered []Migration) error {
	known := make(map[int]struct{}, len(registered))
	for _, m := range registered {
		known[m.Version] = struct{}{}
	}

	var unknown []int
	for _, version := range applied {
		if _, ok := known[version]; !ok {
			unknown = append(unknown, version)
		}
	}
	if len(unknown) == 0 {
		return nil
	}

	sort.Ints(unknown)
	parts := make([]string, 0, len(unknown))
	for _, version := range unknown {
		parts = append(parts, fmt.Sprintf("%06d", version))
	}
	return fmt.Errorf("migration ledger contains versions unknown to this build: %s", strings.Join(parts, ", "))
}

// RollbackMigration runs the down script of a single applied migration and
// drops it from the ledger.
func RollbackMigration(ctx context.Context, db *gorm.DB, version int) error {
	m := migrationByVersion(version)
	if m == nil {
		return fmt.Errorf("migration version %d not found", version)
	}

	l := &ledger{db: db}
	applied, err := l.appliedVersions(ctx)
	if err != nil {
		return err
	}

	found := false
	for _, v := range applied {
		if v == version {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("migration %d has not been applied", version)
	}

	middleware.Logger.Info("Rolling back migration", slog.Int("version", version), slog.String("name", m.Name))
	if err := db.WithContext(ctx).Exec(m.DownScript).Error; err != nil {
		return fmt.Errorf("run rollback SQL for migration %s: %w", m.String(), err)
	}
	return l.remove(ctx, version)
}
