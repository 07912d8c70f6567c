package core

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// importLockID serializes import runs via a session advisory lock. Two imports
// over overlapping customer sets racing each other is unsupported, so only one
// coordinator runs at a time regardless of how it was triggered.
const importLockID = 8250317

// ImportCoordinator orchestrates one import run: ingest, dedupe, plan linking,
// grouping, subscription assembly and invoice backfill. Failures are isolated
// per row, per order or per customer group; the batch always continues, with
// the audit log as the operator's only feedback channel.
type ImportCoordinator struct {
	pool     *pgxpool.Pool
	settings Settings
	runs     *ImportRunService
}

func NewImportCoordinator(pool *pgxpool.Pool, settings Settings) *ImportCoordinator {
	return &ImportCoordinator{pool: pool, settings: settings, runs: NewImportRunService(pool)}
}

// Run processes the import run with the given id. Row- and customer-level
// problems end up in the run's audit log; the returned error covers only
// batch-fatal conditions (run not pending, file unreadable, store down).
func (c *ImportCoordinator) Run(ctx context.Context, runID uuid.UUID) error {
	conn, err := c.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection for import lock: %w", err)
	}
	defer conn.Release()
	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", importLockID); err != nil {
		return fmt.Errorf("acquire import lock: %w", err)
	}
	defer conn.Exec(context.WithoutCancel(ctx), "SELECT pg_advisory_unlock($1)", importLockID)

	run, err := c.runs.GetRun(ctx, runID)
	if err != nil {
		return err
	}
	if err := c.runs.markRunning(ctx, runID); err != nil {
		return err
	}

	if err := c.process(ctx, run); err != nil {
		runLog := NewRunLog(c.pool, runID)
		runLog.Log(ctx, StatusError, run.Filename, err.Error())
		if mErr := c.runs.markFinished(ctx, runID, RunStatusFailed); mErr != nil {
			return mErr
		}
		return err
	}
	return c.runs.markFinished(ctx, runID, RunStatusCompleted)
}

func (c *ImportCoordinator) process(ctx context.Context, run *ImportRun) error {
	runLog := NewRunLog(c.pool, run.ID)
	ingestor := NewOrderIngestor(c.pool, c.settings, runLog)
	linker := NewPlanLinker(c.pool, c.settings, runLog)
	assembler := NewSubscriptionAssembler(c.pool, c.settings, runLog)
	prices := NewPriceCalculator(c.pool, c.settings)
	invoicer := NewBackfillInvoicer(c.pool, c.settings, prices, runLog)

	file, err := os.Open(run.FilePath)
	if err != nil {
		return fmt.Errorf("open CSV file %s: %w", run.FilePath, err)
	}
	defer file.Close()

	orders, err := ingestor.Parse(ctx, file)
	if err != nil {
		return err
	}
	parsed := len(orders)

	orders, err = ingestor.FilterNew(ctx, orders, true)
	if err != nil {
		return err
	}

	orders = linker.LinkPlans(ctx, orders)

	grouped := GroupByCustomer(orders)
	customers := make([]string, 0, len(grouped))
	for customerNo := range grouped {
		customers = append(customers, customerNo)
	}
	// Map order is random; sorted customers keep the audit log deterministic.
	sort.Strings(customers)

	imported := 0
	for _, customerNo := range customers {
		customerOrders := grouped[customerNo]
		if err := c.processCustomer(ctx, run.ID, customerNo, customerOrders, assembler, invoicer, runLog); err != nil {
			runLog.Log(ctx, StatusError, customerNo,
				fmt.Sprintf("Kunde übersprungen: %v", err))
			continue
		}
		imported += len(customerOrders)
	}

	runLog.Log(ctx, StatusSuccess, run.Filename, fmt.Sprintf(
		"Import abgeschlossen: %d Bestellungen gelesen, %d verarbeitet", parsed, imported))
	return nil
}

// processCustomer assembles subscriptions for one customer's orders and
// backfills their missed invoices. Yearly orders each get a dedicated
// subscription; monthly orders are merged into the customer's single monthly
// subscription, creating it on first contact.
func (c *ImportCoordinator) processCustomer(ctx context.Context, runID uuid.UUID, customerNo string, orders []*Order,
	assembler *SubscriptionAssembler, invoicer *BackfillInvoicer, runLog *RunLog) error {

	for _, o := range SelectYearly(orders) {
		if _, err := assembler.CreateSubscription(ctx, runID, customerNo, CadenceYearly, []*Order{o}); err != nil {
			return err
		}
	}

	if monthly := SelectMonthly(orders); len(monthly) > 0 {
		existing, err := assembler.FindExistingMonthly(ctx, customerNo)
		if err != nil {
			return err
		}
		if existing == nil {
			if _, err := assembler.CreateSubscription(ctx, runID, customerNo, CadenceMonthly, monthly); err != nil {
				return err
			}
		} else if err := assembler.AppendToExisting(ctx, existing, monthly); err != nil {
			return err
		}
	}

	// Backfill failures stay per-order: one order without invoices must not
	// sink the customer's remaining orders.
	for _, o := range orders {
		if err := invoicer.CreateMissedInvoices(ctx, o); err != nil {
			runLog.Log(ctx, StatusError, o.OrderNo,
				fmt.Sprintf("Verpasste Rechnungen konnten nicht erstellt werden: %v", err))
		}
	}
	return nil
}
