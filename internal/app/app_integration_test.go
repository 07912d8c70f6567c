package app_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"m365-import/internal/app"
	"m365-import/internal/core"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

func setupTestDB(t *testing.T) *pgxpool.Pool {
	_ = godotenv.Load("../../.env")

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set — skipping integration test to protect live database")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	_, err = pool.Exec(ctx, `
		TRUNCATE TABLE invoice_items, invoices, subscription_plans, subscriptions,
		               billing_plans, import_log_entries, import_runs,
		               item_prices, items, customers, settings, users CASCADE;

		INSERT INTO settings (id, price_list, mode_of_payment, invoice_title,
		                      sales_tax_template, follow_calendar_months,
		                      generate_invoices_past_due_date, submit_generated_invoices)
		VALUES (1, 'Testpreise', 'SEPA-Lastschrift', 'Microsoft 365 Abrechnung', 'DE USt. 19%', true, true, false);
	`)
	if err != nil {
		t.Fatalf("Failed to seed test database: %v", err)
	}

	return pool
}

func seedUser(t *testing.T, pool *pgxpool.Pool, username, password string, active bool) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}
	_, err = pool.Exec(context.Background(), `
		INSERT INTO users (username, password_hash, role, is_active)
		VALUES ($1, $2, 'operator', $3)`,
		username, string(hash), active)
	if err != nil {
		t.Fatalf("Failed to seed user: %v", err)
	}
}

func TestAppService_CreateImport(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()

	uploadDir := t.TempDir()
	svc := app.NewAppService(pool, uploadDir)

	body := "CustomID;Bestellnummer;Artikelnummer;Menge;MicrosoftSubscriptionStartDate;Preistyp\n"
	result, err := svc.CreateImport(ctx, "terracloud-export.csv", strings.NewReader(body))
	if err != nil {
		t.Fatalf("CreateImport: %v", err)
	}

	run := result.Run
	if run.Status != core.RunStatusPending {
		t.Errorf("run status = %s, want Pending", run.Status)
	}
	if run.Filename != "terracloud-export.csv" {
		t.Errorf("filename = %q", run.Filename)
	}

	// The upload is stored under a collision-free name inside uploadDir.
	if filepath.Dir(run.FilePath) != uploadDir {
		t.Errorf("stored path %q is outside upload dir %q", run.FilePath, uploadDir)
	}
	stored, err := os.ReadFile(run.FilePath)
	if err != nil {
		t.Fatalf("Stored file unreadable: %v", err)
	}
	if string(stored) != body {
		t.Error("stored file content differs from upload")
	}

	// The run is retrievable with an empty audit log.
	got, err := svc.GetImport(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetImport: %v", err)
	}
	if got.Run.ID != run.ID || len(got.Log) != 0 {
		t.Errorf("GetImport = run %s with %d log entries", got.Run.ID, len(got.Log))
	}
}

func TestAppService_RegisterImport_MissingFile(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	svc := app.NewAppService(pool, t.TempDir())
	if _, err := svc.RegisterImport(context.Background(), "/does/not/exist.csv"); err == nil {
		t.Fatal("expected error for missing file")
	}

	// No run record is left behind for an unreadable path.
	list, err := svc.ListImports(context.Background())
	if err != nil {
		t.Fatalf("ListImports: %v", err)
	}
	if len(list.Runs) != 0 {
		t.Errorf("runs = %d, want 0", len(list.Runs))
	}
}

func TestAppService_AuthenticateUser(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()

	seedUser(t, pool, "maria", "geheim", true)
	seedUser(t, pool, "inaktiv", "geheim", false)

	svc := app.NewAppService(pool, t.TempDir())

	session, err := svc.AuthenticateUser(ctx, "maria", "geheim")
	if err != nil {
		t.Fatalf("AuthenticateUser: %v", err)
	}
	if session.Username != "maria" || session.Role != "operator" {
		t.Errorf("session = %+v", session)
	}

	if _, err := svc.AuthenticateUser(ctx, "maria", "falsch"); err == nil {
		t.Error("wrong password accepted")
	}
	if _, err := svc.AuthenticateUser(ctx, "niemand", "geheim"); err == nil {
		t.Error("unknown user accepted")
	}
	if _, err := svc.AuthenticateUser(ctx, "inaktiv", "geheim"); err == nil {
		t.Error("inactive user accepted")
	}
}
