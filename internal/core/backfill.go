package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// BackfillInvoicer synthesizes the invoices that were "missed" between an
// order's historical start date and the subscription's current billing-period
// start. Future periods are the host billing engine's job.
type BackfillInvoicer struct {
	pool     *pgxpool.Pool
	settings Settings
	prices   *PriceCalculator
	runLog   *RunLog
}

func NewBackfillInvoicer(pool *pgxpool.Pool, settings Settings, prices *PriceCalculator, runLog *RunLog) *BackfillInvoicer {
	return &BackfillInvoicer{pool: pool, settings: settings, prices: prices, runLog: runLog}
}

// CreateMissedInvoices walks the gap between order.StartDate and the
// subscription's CurrentInvoiceStart in cadence-sized steps and creates one
// invoice per step. Zero invoices when the start date already reaches the
// current billing period. A step without an applicable price list entry is
// skipped and logged as Error; the remaining steps are still invoiced.
func (bf *BackfillInvoicer) CreateMissedInvoices(ctx context.Context, o *Order) error {
	sub := o.Subscription()
	if sub == nil {
		return fmt.Errorf("can't create missed invoices: order %s has no subscription", o.OrderNo)
	}
	if o.Cadence != CadenceMonthly && o.Cadence != CadenceYearly {
		return fmt.Errorf("order %s has unknown cadence %q", o.OrderNo, o.Cadence)
	}

	item, err := bf.loadItem(ctx, o.ArticleNo)
	if err != nil {
		return err
	}

	for _, period := range BillingPeriods(o.StartDate, sub.CurrentInvoiceStart, o.Cadence) {
		rate, ok, err := bf.prices.UnitPrice(ctx, o, period.From, period.To)
		if err != nil {
			return err
		}
		if !ok {
			bf.runLog.Log(ctx, StatusError, o.OrderNo, fmt.Sprintf(
				"Kein Preis für Artikel %s in Preisliste %s am %s gefunden, Rechnung %s - %s übersprungen",
				o.ArticleNo, bf.settings.PriceList, germanDate(period.From),
				germanDate(period.From), germanDate(period.To)))
			continue
		}
		if err := bf.createInvoice(ctx, o, sub, item, period, rate); err != nil {
			return err
		}
	}
	return nil
}

// createInvoice persists one invoice with its single line item atomically.
func (bf *BackfillInvoicer) createInvoice(ctx context.Context, o *Order, sub *Subscription, item Item, period Period, rate decimal.Decimal) error {
	tx, err := bf.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var invoiceID int
	err = tx.QueryRow(ctx, `
		INSERT INTO invoices (subscription_id, customer_code, title,
		                      sales_tax_template, from_date, to_date, due_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		sub.ID, o.CustomerNo, sub.InvoiceTitle, sub.SalesTaxTemplate,
		period.From, period.To, DateOnly(time.Now()),
	).Scan(&invoiceID)
	if err != nil {
		return fmt.Errorf("insert invoice for order %s: %w", o.OrderNo, err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO invoice_items (invoice_id, item_code, item_name, description, qty, uom, rate)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		invoiceID, item.Code, item.Name,
		periodBanner(period.From, period.To)+item.Description,
		o.Quantity, item.StockUOM, rate,
	); err != nil {
		return fmt.Errorf("insert invoice item for order %s: %w", o.OrderNo, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit invoice for order %s: %w", o.OrderNo, err)
	}
	return nil
}

func (bf *BackfillInvoicer) loadItem(ctx context.Context, articleNo string) (Item, error) {
	var item Item
	err := bf.pool.QueryRow(ctx,
		"SELECT code, name, description, stock_uom FROM items WHERE code = $1", articleNo,
	).Scan(&item.Code, &item.Name, &item.Description, &item.StockUOM)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Item{}, fmt.Errorf("article %s not found", articleNo)
		}
		return Item{}, fmt.Errorf("load article %s: %w", articleNo, err)
	}
	return item, nil
}

// periodBanner is the human-readable billing-period prefix on invoice item
// descriptions, matching the format operators already know.
func periodBanner(from, to time.Time) string {
	return fmt.Sprintf("<p><strong><u>Zeitraum:</u></strong><u> %s - %s</u></p>",
		germanDate(from), germanDate(to))
}

func germanDate(t time.Time) string {
	return t.Format("02.01.2006")
}
