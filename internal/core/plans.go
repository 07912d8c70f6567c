package core

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PlanLinker creates one billing plan per order and establishes the stable
// order↔plan association the rest of the pipeline relies on.
type PlanLinker struct {
	pool     *pgxpool.Pool
	settings Settings
	runLog   *RunLog
}

func NewPlanLinker(pool *pgxpool.Pool, settings Settings, runLog *RunLog) *PlanLinker {
	return &PlanLinker{pool: pool, settings: settings, runLog: runLog}
}

// LinkPlans creates a billing plan for each order and returns the orders that
// were linked successfully. A failed plan insert is isolated: the order is
// logged as Error and dropped, the rest of the batch continues.
func (pl *PlanLinker) LinkPlans(ctx context.Context, orders []*Order) []*Order {
	var linked []*Order
	for _, o := range orders {
		planID, err := pl.createPlan(ctx, o)
		if err != nil {
			pl.runLog.Log(ctx, StatusError, o.OrderNo,
				fmt.Sprintf("Subscription-Plan konnte nicht erstellt werden: %v", err))
			continue
		}
		if err := o.LinkPlan(planID); err != nil {
			pl.runLog.Log(ctx, StatusError, o.OrderNo, err.Error())
			continue
		}
		linked = append(linked, o)
	}
	return linked
}

// createPlan inserts one billing plan in its own transaction-equivalent
// statement. The plan is keyed by the TerraCloud order number and never
// mutated afterwards.
func (pl *PlanLinker) createPlan(ctx context.Context, o *Order) (int, error) {
	planName := fmt.Sprintf("M365 %s %s", o.CustomerNo, o.OrderNo)
	var id int
	err := pl.pool.QueryRow(ctx, `
		INSERT INTO billing_plans
		            (plan_name, order_no, customer_code, item_code, price_list,
		             billing_interval, start_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		planName, o.OrderNo, o.CustomerNo, o.ArticleNo, pl.settings.PriceList,
		o.Cadence.Interval(), o.StartDate,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert billing plan for order %s: %w", o.OrderNo, err)
	}
	return id, nil
}

// ListBillingPlans returns billing plans, optionally filtered by customer.
func ListBillingPlans(ctx context.Context, pool *pgxpool.Pool, customerCode string) ([]BillingPlan, error) {
	query := `
		SELECT id, plan_name, order_no, customer_code, item_code, price_list,
		       billing_interval, start_date, created_at
		FROM billing_plans`
	args := []any{}
	if customerCode != "" {
		query += " WHERE customer_code = $1"
		args = append(args, customerCode)
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list billing plans: %w", err)
	}
	defer rows.Close()

	var plans []BillingPlan
	for rows.Next() {
		var p BillingPlan
		if err := rows.Scan(
			&p.ID, &p.PlanName, &p.OrderNo, &p.CustomerCode, &p.ItemCode,
			&p.PriceList, &p.BillingInterval, &p.StartDate, &p.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan billing plan: %w", err)
		}
		plans = append(plans, p)
	}
	return plans, nil
}
