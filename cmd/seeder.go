package cmd

import (
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with the course catalog, permissions and sample accounts for development.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		sqlDB, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		db, err := initGorm(sqlDB)
		if err != nil {
			log.Fatalf("failed to init orm: %v", err)
		}

		if clearData {
			for _, table := range []string{"notification_requests", "entitlements", "user_permissions", "users", "products", "permissions"} {
				if err := db.Exec("DELETE FROM " + table).Error; err != nil {
					log.Fatalf("failed to clear %s: %v", table, err)
				}
			}
			fmt.Println("Cleared existing data")
		}

		seedProducts(db)
		seedPermissions(db)

		adminID := seedUser(db, "admin@stepacademy.dev", "Admin", cfg.Security.BCryptCost)
		grantAll(db, adminID)

		studentID := seedUser(db, "student@stepacademy.dev", "Sample Student", cfg.Security.BCryptCost)

		fmt.Println("Seeded admin:", adminID)
		fmt.Println("Seeded student:", studentID)
	},
}

func seedProducts(db *gorm.DB) {
	products := []struct {
		ID             string
		Title          string
		Desc           string
		TotalUnits     int
		PartialDefault int
		AccessDays     int
		PriceCents     int64
	}{
		{"main_method", "The Main Method", "Core speaking course of the platform", 24, 3, 365, 4900000},
		{"pronunciation", "Pronunciation Lab", "Accent and pronunciation drills", 12, 2, 180, 1900000},
		{"grammar_sprint", "Grammar Sprint", "Fast-paced grammar refresher", 8, 1, 90, 990000},
	}

	for _, p := range products {
		var exists int
		if err := db.Raw("SELECT 1 FROM products WHERE id = ?", p.ID).Row().Scan(&exists); err == nil {
			continue
		}
		if err := db.Exec(
			"INSERT INTO products (id, title, description, total_units, partial_default, access_days, price_cents, is_active, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, true, now(), now())",
			p.ID, p.Title, p.Desc, p.TotalUnits, p.PartialDefault, p.AccessDays, p.PriceCents,
		).Error; err != nil {
			log.Fatalf("failed to insert product %s: %v", p.ID, err)
		}
		fmt.Println("Seeded product:", p.ID)
	}
}

func seedPermissions(db *gorm.DB) {
	permissions := []struct {
		Name string
		Desc string
	}{
		{"admin", "full administrator"},
		{"grant_access", "Can grant course access"},
		{"revoke_access", "Can revoke course access"},
		{"view_audit", "Can read the audit log"},
		{"manage_users", "Can manage user accounts"},
	}

	for _, p := range permissions {
		var pid int64
		if err := db.Raw("SELECT id FROM permissions WHERE name = ?", p.Name).Row().Scan(&pid); err != nil {
			if err := db.Exec("INSERT INTO permissions (name, description, created_at) VALUES (?, ?, now())", p.Name, p.Desc).Error; err != nil {
				log.Fatalf("failed to insert permission %s: %v", p.Name, err)
			}
		}
	}
}

func seedUser(db *gorm.DB, email, name string, bcryptCost int) string {
	var existingID string
	if err := db.Raw("SELECT id FROM users WHERE email = ?", email).Row().Scan(&existingID); err == nil {
		fmt.Printf("user %s already exists\n", email)
		return existingID
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcryptCost)
	if err != nil {
		log.Fatalf("failed to hash seed password: %v", err)
	}

	id := uuid.NewString()
	if err := db.Exec(
		"INSERT INTO users (id, email, name, password_hash, is_active, created_at, updated_at) VALUES (?, ?, ?, ?, true, now(), now())",
		id, email, name, string(hash),
	).Error; err != nil {
		log.Fatalf("failed to insert user %s: %v", email, err)
	}
	return id
}

func grantAll(db *gorm.DB, userID string) {
	rows, err := db.Raw("SELECT id FROM permissions").Rows()
	if err != nil {
		log.Fatalf("failed to list permissions: %v", err)
	}
	defer rows.Close()

	var permIDs []int64
	for rows.Next() {
		var pid int64
		if err := rows.Scan(&pid); err != nil {
			log.Fatalf("failed to scan permission id: %v", err)
		}
		permIDs = append(permIDs, pid)
	}

	for _, pid := range permIDs {
		var exists int
		if err := db.Raw("SELECT 1 FROM user_permissions WHERE user_id = ? AND permission_id = ?", userID, pid).Row().Scan(&exists); err == nil {
			continue
		}
		if err := db.Exec("INSERT INTO user_permissions (user_id, permission_id, created_at) VALUES (?, ?, now())", userID, pid).Error; err != nil {
			log.Fatalf("failed to grant permission %d: %v", pid, err)
		}
	}
}
