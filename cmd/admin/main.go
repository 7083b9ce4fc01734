// Command admin provides role management utilities for operators.
package main

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"tribune/internal/config"
	"tribune/internal/database"
	"tribune/internal/models"

	"gorm.io/gorm"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage:")
		fmt.Println("  go run ./cmd/admin promote <user_id>   - Promote user to admin")
		fmt.Println("  go run ./cmd/admin demote <user_id>    - Demote user to regular user")
		fmt.Println("  go run ./cmd/admin list-admins         - List all admins")
		os.Exit(1)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.ConnectWithOptions(cfg, database.ConnectOptions{ApplySchema: false})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	switch os.Args[1] {
	case "promote":
		setRole(db, requireID(), models.RoleAdmin)
	case "demote":
		setRole(db, requireID(), models.RoleUser)
	case "list-admins":
		listAdmins(db)
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}
}

func requireID() uint {
	if len(os.Args) < 3 {
		fmt.Println("A user ID is required")
		os.Exit(1)
	}
	id, err := strconv.ParseUint(os.Args[2], 10, 32)
	if err != nil || id == 0 {
		fmt.Printf("Invalid user ID %q\n", os.Args[2])
		os.Exit(1)
	}
	return uint(id)
}

func setRole(db *gorm.DB, id uint, role models.Role) {
	var user models.User
	if err := db.First(&user, id).Error; err != nil {
		log.Fatalf("User %d not found: %v", id, err)
	}

	if err := db.Model(&user).Update("role", role).Error; err != nil {
		log.Fatalf("Failed to update role: %v", err)
	}
	fmt.Printf("User %s (id %d) is now %s\n", user.Login, user.ID, role)
}

func listAdmins(db *gorm.DB) {
	var admins []models.User
	if err := db.Where("role = ?", models.RoleAdmin).Order("id").Find(&admins).Error; err != nil {
		log.Fatalf("Failed to list admins: %v", err)
	}

	if len(admins) == 0 {
		fmt.Println("No admins found")
		return
	}
	for _, admin := range admins {
		fmt.Printf("%d\t%s\t%s\n", admin.ID, admin.Login, admin.Email)
	}
}
