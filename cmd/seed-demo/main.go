// seed-demo loads a minimal demo dataset: import settings, a handful of
// customers and M365 articles with price list entries, and an admin login.
// Safe to re-run; every statement upserts.
//
// Usage: go run ./cmd/seed-demo
package main

import (
	"context"
	"log"
	"os"

	"m365-import/internal/db"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	_ = godotenv.Load()

	ctx := context.Background()
	pool, err := db.NewPool(ctx)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer pool.Close()

	tx, err := pool.Begin(ctx)
	if err != nil {
		log.Fatalf("Failed to begin transaction: %v", err)
	}
	defer tx.Rollback(ctx)

	log.Println("Restoring import settings...")
	_, err = tx.Exec(ctx, `
		INSERT INTO settings (id, price_list, mode_of_payment, invoice_title,
		                      sales_tax_template, follow_calendar_months,
		                      generate_invoices_past_due_date, submit_generated_invoices)
		VALUES (1, 'M365 Standard-Vertrieb', 'SEPA-Lastschrift', 'Microsoft 365 Abrechnung',
		        'DE USt. 19%', true, true, false)
		ON CONFLICT (id) DO UPDATE
		  SET price_list = EXCLUDED.price_list,
		      mode_of_payment = EXCLUDED.mode_of_payment,
		      invoice_title = EXCLUDED.invoice_title,
		      sales_tax_template = EXCLUDED.sales_tax_template;
	`)
	if err != nil {
		log.Fatalf("Failed to restore settings: %v", err)
	}

	log.Println("Restoring customers...")
	_, err = tx.Exec(ctx, `
		INSERT INTO customers (code, name)
		VALUES
		    ('K-10010', 'Schreinerei Brandl GmbH'),
		    ('K-10011', 'Steuerkanzlei Winter & Partner'),
		    ('K-10012', 'Autohaus Lindemann KG')
		ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name;
	`)
	if err != nil {
		log.Fatalf("Failed to restore customers: %v", err)
	}

	log.Println("Restoring items...")
	_, err = tx.Exec(ctx, `
		INSERT INTO items (code, name, description, stock_uom)
		VALUES
		    ('CFQ7TTC0LDPB', 'Microsoft 365 Business Standard', 'Microsoft 365 Business Standard Lizenz', 'Stk'),
		    ('CFQ7TTC0LCHC', 'Microsoft 365 Business Premium',  'Microsoft 365 Business Premium Lizenz',  'Stk'),
		    ('CFQ7TTC0LH18', 'Exchange Online (Plan 1)',        'Exchange Online Plan 1 Lizenz',          'Stk')
		ON CONFLICT (code) DO UPDATE
		  SET name = EXCLUDED.name,
		      description = EXCLUDED.description;
	`)
	if err != nil {
		log.Fatalf("Failed to restore items: %v", err)
	}

	log.Println("Restoring item prices...")
	// Generic list prices plus one customer-specific override.
	_, err = tx.Exec(ctx, `
		DELETE FROM item_prices WHERE price_list = 'M365 Standard-Vertrieb';
		INSERT INTO item_prices (item_code, price_list, customer_code, rate, valid_from, valid_upto)
		VALUES
		    ('CFQ7TTC0LDPB', 'M365 Standard-Vertrieb', NULL,      12.90, '2023-01-01', '2099-12-31'),
		    ('CFQ7TTC0LCHC', 'M365 Standard-Vertrieb', NULL,      20.60, '2023-01-01', '2099-12-31'),
		    ('CFQ7TTC0LH18', 'M365 Standard-Vertrieb', NULL,       4.20, '2023-01-01', '2099-12-31'),
		    ('CFQ7TTC0LDPB', 'M365 Standard-Vertrieb', 'K-10010', 11.50, '2023-01-01', '2099-12-31');
	`)
	if err != nil {
		log.Fatalf("Failed to restore item prices: %v", err)
	}

	password := os.Getenv("SEED_ADMIN_PASSWORD")
	if password == "" {
		password = "admin"
		log.Println("Warning: SEED_ADMIN_PASSWORD not set, using default 'admin'")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("Failed to hash admin password: %v", err)
	}

	log.Println("Restoring admin user...")
	_, err = tx.Exec(ctx, `
		INSERT INTO users (username, email, password_hash, role)
		VALUES ('admin', 'admin@example.com', $1, 'admin')
		ON CONFLICT (username) DO UPDATE SET password_hash = EXCLUDED.password_hash;
	`, string(hash))
	if err != nil {
		log.Fatalf("Failed to restore admin user: %v", err)
	}

	if err := tx.Commit(ctx); err != nil {
		log.Fatalf("Failed to commit: %v", err)
	}
	log.Println("Demo data restored.")
}
