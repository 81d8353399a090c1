package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with sample data for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		db, err := initGormDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}

		if clearData {
			for _, table := range []string{"issued_tickets", "point_entries", "transaction_items", "transactions", "promotions", "ticket_types", "events", "user_permissions", "permissions", "users"} {
				if err := db.Exec("DELETE FROM " + table).Error; err != nil {
					log.Fatalf("failed to clear table %s: %v", table, err)
				}
			}
			fmt.Println("Cleared existing data")
		}

		password := "password"
		hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)

		customerEmail := "rani@mail.com"
		customerName := "Rani"
		var exists int
		row := db.Raw("SELECT 1 FROM users WHERE email = ?", customerEmail).Row()
		customerExists := false
		if err := row.Scan(&exists); err == nil {
			fmt.Println("customer user already exists; will ensure permissions")
			customerExists = true
		}

		if !customerExists {
			if err := db.Exec("INSERT INTO users (email, name, password_hash, is_active, points_balance, created_at, updated_at) VALUES (?, ?, ?, true, 1000000, now(), now())", customerEmail, customerName, string(hash)).Error; err != nil {
				log.Fatalf("failed to insert customer user: %v", err)
			}
			fmt.Println("Seeded customer user with 1,000,000 points:", customerEmail)
		}

		organizerEmail := "bima@mail.com"
		organizerName := "Bima Organizer"
		row = db.Raw("SELECT 1 FROM users WHERE email = ?", organizerEmail).Row()
		organizerExists := false
		if err := row.Scan(&exists); err == nil {
			fmt.Println("organizer user already exists; will ensure permissions")
			organizerExists = true
		}

		if !organizerExists {
			if err := db.Exec("INSERT INTO users (email, name, password_hash, is_active, points_balance, created_at, updated_at) VALUES (?, ?, ?, true, 0, now(), now())", organizerEmail, organizerName, string(hash)).Error; err != nil {
				log.Fatalf("failed to insert organizer user: %v", err)
			}
			fmt.Println("Seeded organizer user:", organizerEmail)
		}

		permissions := []struct {
			Name string
			Desc string
		}{
			{"admin", "full administrator"},
			{"approve_transactions", "Can approve ticket transactions"},
			{"reject_transactions", "Can reject ticket transactions"},
			{"manage_events", "Can create and edit events"},
		}

		for _, p := range permissions {
			var pid int64
			row := db.Raw("SELECT id FROM permissions WHERE name = ?", p.Name).Row()
			if err := row.Scan(&pid); err != nil {

				if err := db.Exec("INSERT INTO permissions (name, description, created_at) VALUES (?, ?, now())", p.Name, p.Desc).Error; err != nil {
					log.Fatalf("failed to insert permission %s: %v", p.Name, err)
				}
			}
		}

		var organizerUserID int64
		if err := db.Raw("SELECT id FROM users WHERE email = ?", organizerEmail).Row().Scan(&organizerUserID); err != nil {
			log.Fatalf("failed to lookup organizer user id: %v", err)
		}

		organizerPermissions := []string{"approve_transactions", "reject_transactions", "manage_events"}
		for _, permName := range organizerPermissions {
			var pid int64
			if err := db.Raw("SELECT id FROM permissions WHERE name = ?", permName).Row().Scan(&pid); err != nil {
				log.Fatalf("permission not found after insert %s: %v", permName, err)
			}

			var exists int
			if err := db.Raw("SELECT 1 FROM user_permissions WHERE user_id = ? AND permission_id = ?", organizerUserID, pid).Row().Scan(&exists); err == nil {
				continue
			}

			if err := db.Exec("INSERT INTO user_permissions (user_id, permission_id, granted_by, created_at) VALUES (?, ?, NULL, now())", organizerUserID, pid).Error; err != nil {
				log.Fatalf("failed to grant permission %s to organizer user: %v", permName, err)
			}
		}

		fmt.Println("Granted organizer permissions to:", organizerEmail)

		var eventID int64
		row = db.Raw("SELECT id FROM events WHERE name = ?", "Jakarta Jazz Night").Row()
		if err := row.Scan(&eventID); err != nil {
			if err := db.Exec(`INSERT INTO events (organizer_id, name, description, venue, starts_at, total_seats, seats_sold, is_published, created_at, updated_at)
				VALUES (?, ?, ?, ?, now() + interval '30 days', 600, 0, true, now(), now())`,
				organizerUserID, "Jakarta Jazz Night", "An evening of live jazz", "Istora Senayan").Error; err != nil {
				log.Fatalf("failed to insert event: %v", err)
			}
			if err := db.Raw("SELECT id FROM events WHERE name = ?", "Jakarta Jazz Night").Row().Scan(&eventID); err != nil {
				log.Fatalf("failed to lookup seeded event: %v", err)
			}
			fmt.Println("Seeded event: Jakarta Jazz Night")
		}

		ticketTypes := []struct {
			Name     string
			PriceIDR int64
			Quota    int64
		}{
			{"Regular", 250000, 500},
			{"VIP", 750000, 100},
		}

		for _, tt := range ticketTypes {
			var ttID int64
			row := db.Raw("SELECT id FROM ticket_types WHERE event_id = ? AND name = ?", eventID, tt.Name).Row()
			if err := row.Scan(&ttID); err != nil {
				if err := db.Exec("INSERT INTO ticket_types (event_id, name, price_idr, quota, sold, created_at, updated_at) VALUES (?, ?, ?, ?, 0, now(), now())", eventID, tt.Name, tt.PriceIDR, tt.Quota).Error; err != nil {
					log.Fatalf("failed to insert ticket type %s: %v", tt.Name, err)
				}
				fmt.Printf("Seeded ticket type: %s (IDR %d, quota %d)\n", tt.Name, tt.PriceIDR, tt.Quota)
			}
		}

		var promoID int64
		row = db.Raw("SELECT id FROM promotions WHERE event_id = ? AND code = ?", eventID, "EARLY10").Row()
		if err := row.Scan(&promoID); err != nil {
			if err := db.Exec(`INSERT INTO promotions (event_id, code, discount_type, value, min_spend_idr, usage_cap, used_count, starts_at, ends_at, created_at, updated_at)
				VALUES (?, 'EARLY10', 'percentage', 10, 100000, 200, 0, now(), now() + interval '14 days', now(), now())`, eventID).Error; err != nil {
				log.Fatalf("failed to insert promotion: %v", err)
			}
			fmt.Println("Seeded promotion EARLY10: 10% off, min spend IDR 100,000")
		}

		fmt.Println("Seed data loaded successfully")
	},
}
