package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// LoadSettings reads the singleton settings row. The returned value is passed
// into every service constructor; nothing reads configuration ambiently.
func LoadSettings(ctx context.Context, pool *pgxpool.Pool) (Settings, error) {
	var s Settings
	err := pool.QueryRow(ctx, `
		SELECT price_list, mode_of_payment, invoice_title, sales_tax_template,
		       follow_calendar_months, generate_invoices_past_due_date,
		       submit_generated_invoices
		FROM settings
		WHERE id = 1`,
	).Scan(
		&s.PriceList, &s.ModeOfPayment, &s.InvoiceTitle, &s.SalesTaxTemplate,
		&s.FollowCalendarMonths, &s.GenerateInvoicesPastDueDate,
		&s.SubmitGeneratedInvoices,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Settings{}, fmt.Errorf("settings row missing, has seed data been loaded?")
		}
		return Settings{}, fmt.Errorf("load settings: %w", err)
	}
	return s, nil
}
