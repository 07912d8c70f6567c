package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SubscriptionAssembler creates subscriptions for imported orders, or merges
// additional monthly orders into a customer's existing monthly subscription.
type SubscriptionAssembler struct {
	pool     *pgxpool.Pool
	settings Settings
	runLog   *RunLog

	// now is the processing date used to compute the future billing start.
	// Overridable in tests.
	now func() time.Time
}

func NewSubscriptionAssembler(pool *pgxpool.Pool, settings Settings, runLog *RunLog) *SubscriptionAssembler {
	return &SubscriptionAssembler{pool: pool, settings: settings, runLog: runLog, now: time.Now}
}

// CreateSubscription builds and persists one subscription for a customer and
// cadence, attaching one plan entry per order. No-op when orders is empty.
// The start date is the future billing start — first of next month (Monthly)
// or January 1 of next year (Yearly) — independent of any order's historical
// start date. The whole subscription is committed in a single transaction.
func (sa *SubscriptionAssembler) CreateSubscription(ctx context.Context, runID uuid.UUID, customerNo string, cadence Cadence, orders []*Order) (*Subscription, error) {
	if len(orders) == 0 {
		return nil, nil
	}

	suffix := "monatlich"
	startDate := NextMonthFirstDay(sa.now())
	if cadence == CadenceYearly {
		suffix = "jährlich"
		startDate = NextYearFirstDay(sa.now())
	}

	sub := &Subscription{
		CustomerCode:                customerNo,
		Title:                       fmt.Sprintf("M365 %s (%s)", customerNo, suffix),
		BillingInterval:             cadence.Interval(),
		StartDate:                   startDate,
		CurrentInvoiceStart:         startDate,
		ModeOfPayment:               sa.settings.ModeOfPayment,
		InvoiceTitle:                sa.settings.InvoiceTitle,
		SalesTaxTemplate:            sa.settings.SalesTaxTemplate,
		FollowCalendarMonths:        sa.settings.FollowCalendarMonths,
		GenerateInvoicesPastDueDate: sa.settings.GenerateInvoicesPastDueDate,
		ImportRunID:                 &runID,
	}

	tx, err := sa.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO subscriptions
		            (customer_code, title, billing_interval, start_date,
		             current_invoice_start, mode_of_payment, invoice_title,
		             sales_tax_template, follow_calendar_months,
		             generate_invoices_past_due_date, import_run_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at`,
		sub.CustomerCode, sub.Title, sub.BillingInterval, sub.StartDate,
		sub.CurrentInvoiceStart, sub.ModeOfPayment, sub.InvoiceTitle,
		sub.SalesTaxTemplate, sub.FollowCalendarMonths,
		sub.GenerateInvoicesPastDueDate, runID,
	).Scan(&sub.ID, &sub.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert subscription for customer %s: %w", customerNo, err)
	}

	if err := attachPlans(ctx, tx, sub.ID, orders); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit subscription for customer %s: %w", customerNo, err)
	}

	for _, o := range orders {
		o.AttachSubscription(sub)
	}
	return sub, nil
}

// AppendToExisting attaches one plan entry per order to an already persisted
// monthly subscription. Yearly orders never take this path: every yearly order
// gets its own subscription.
func (sa *SubscriptionAssembler) AppendToExisting(ctx context.Context, sub *Subscription, orders []*Order) error {
	if sub.BillingInterval != CadenceMonthly.Interval() {
		return fmt.Errorf("subscription %d is not monthly, cannot append plans", sub.ID)
	}
	if len(orders) == 0 {
		return nil
	}

	tx, err := sa.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := attachPlans(ctx, tx, sub.ID, orders); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit subscription %d update: %w", sub.ID, err)
	}

	for _, o := range orders {
		o.AttachSubscription(sub)
	}
	return nil
}

// attachPlans inserts one subscription_plans row per order within tx. Every
// order reaching assembly has been through plan linking; a missing link is a
// pipeline bug, not bad input.
func attachPlans(ctx context.Context, tx pgx.Tx, subscriptionID int, orders []*Order) error {
	for _, o := range orders {
		planID, ok := o.PlanID()
		if !ok {
			return fmt.Errorf("order %s has no linked billing plan", o.OrderNo)
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO subscription_plans (subscription_id, plan_id, qty)
			VALUES ($1, $2, $3)`,
			subscriptionID, planID, o.Quantity,
		); err != nil {
			return fmt.Errorf("attach plan %d to subscription %d: %w", planID, subscriptionID, err)
		}
	}
	return nil
}

// FindExistingMonthly returns the customer's monthly subscription, or nil if
// none exists. At most one monthly subscription per customer is expected;
// should data violate that, the oldest one wins.
func (sa *SubscriptionAssembler) FindExistingMonthly(ctx context.Context, customerNo string) (*Subscription, error) {
	sub := &Subscription{}
	err := sa.pool.QueryRow(ctx, `
		SELECT id, customer_code, title, billing_interval, start_date,
		       current_invoice_start, mode_of_payment, invoice_title,
		       sales_tax_template, follow_calendar_months,
		       generate_invoices_past_due_date, import_run_id, created_at
		FROM subscriptions
		WHERE customer_code = $1 AND billing_interval = 'Month'
		ORDER BY id
		LIMIT 1`,
		customerNo,
	).Scan(
		&sub.ID, &sub.CustomerCode, &sub.Title, &sub.BillingInterval,
		&sub.StartDate, &sub.CurrentInvoiceStart, &sub.ModeOfPayment,
		&sub.InvoiceTitle, &sub.SalesTaxTemplate, &sub.FollowCalendarMonths,
		&sub.GenerateInvoicesPastDueDate, &sub.ImportRunID, &sub.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find monthly subscription for customer %s: %w", customerNo, err)
	}
	return sub, nil
}

// ListSubscriptions returns subscriptions with their plan entries, optionally
// filtered by customer.
func ListSubscriptions(ctx context.Context, pool *pgxpool.Pool, customerCode string) ([]Subscription, error) {
	query := `
		SELECT id, customer_code, title, billing_interval, start_date,
		       current_invoice_start, mode_of_payment, invoice_title,
		       sales_tax_template, follow_calendar_months,
		       generate_invoices_past_due_date, import_run_id, created_at
		FROM subscriptions`
	args := []any{}
	if customerCode != "" {
		query += " WHERE customer_code = $1"
		args = append(args, customerCode)
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []Subscription
	for rows.Next() {
		var s Subscription
		if err := rows.Scan(
			&s.ID, &s.CustomerCode, &s.Title, &s.BillingInterval,
			&s.StartDate, &s.CurrentInvoiceStart, &s.ModeOfPayment,
			&s.InvoiceTitle, &s.SalesTaxTemplate, &s.FollowCalendarMonths,
			&s.GenerateInvoicesPastDueDate, &s.ImportRunID, &s.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		subs = append(subs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subscriptions: %w", err)
	}

	for i := range subs {
		plans, err := fetchSubscriptionPlans(ctx, pool, subs[i].ID)
		if err != nil {
			return nil, err
		}
		subs[i].Plans = plans
	}
	return subs, nil
}

func fetchSubscriptionPlans(ctx context.Context, pool *pgxpool.Pool, subscriptionID int) ([]SubscriptionPlan, error) {
	rows, err := pool.Query(ctx, `
		SELECT sp.id, sp.subscription_id, sp.plan_id, bp.plan_name, sp.qty
		FROM subscription_plans sp
		JOIN billing_plans bp ON bp.id = sp.plan_id
		WHERE sp.subscription_id = $1
		ORDER BY sp.id`,
		subscriptionID,
	)
	if err != nil {
		return nil, fmt.Errorf("fetch plans for subscription %d: %w", subscriptionID, err)
	}
	defer rows.Close()

	var plans []SubscriptionPlan
	for rows.Next() {
		var p SubscriptionPlan
		if err := rows.Scan(&p.ID, &p.SubscriptionID, &p.PlanID, &p.PlanName, &p.Qty); err != nil {
			return nil, fmt.Errorf("scan subscription plan: %w", err)
		}
		plans = append(plans, p)
	}
	return plans, nil
}
