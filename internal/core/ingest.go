package core

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
)

// Column names of the TerraCloud export. The file is ;-delimited and Latin-1
// encoded; extra columns are ignored.
const (
	colCustomer  = "CustomID"
	colOrderNo   = "Bestellnummer"
	colArticle   = "Artikelnummer"
	colQuantity  = "Menge"
	colStartDate = "MicrosoftSubscriptionStartDate"
	colPriceType = "Preistyp"
)

const startDateLayout = "02.01.2006 15:04:05"

// OrderIngestor parses TerraCloud CSV rows into validated Orders and filters
// out rows that were already imported.
type OrderIngestor struct {
	pool     *pgxpool.Pool
	settings Settings
	runLog   *RunLog
}

func NewOrderIngestor(pool *pgxpool.Pool, settings Settings, runLog *RunLog) *OrderIngestor {
	return &OrderIngestor{pool: pool, settings: settings, runLog: runLog}
}

// Parse reads the export and returns all valid orders. A malformed or invalid
// row is not fatal: it is logged as Error under its order number and skipped.
// Only an unreadable file or header aborts the batch.
func (ing *OrderIngestor) Parse(ctx context.Context, r io.Reader) ([]*Order, error) {
	reader := csv.NewReader(charmap.ISO8859_1.NewDecoder().Reader(r))
	reader.Comma = ';'
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read CSV header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{colCustomer, colOrderNo, colArticle, colQuantity, colStartDate, colPriceType} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("CSV header is missing column %q", required)
		}
	}

	var orders []*Order
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			ing.runLog.Log(ctx, StatusError, "", fmt.Sprintf("Zeile nicht lesbar: %v", err))
			continue
		}

		field := func(name string) string {
			i := cols[name]
			if i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		order, convErrs := buildOrder(
			field(colCustomer), field(colOrderNo), field(colArticle),
			field(colQuantity), field(colStartDate), field(colPriceType),
		)

		errs := append(convErrs, order.fieldErrors()...)
		refErrs, err := ing.referenceErrors(ctx, order)
		if err != nil {
			return nil, err
		}
		errs = append(errs, refErrs...)

		if len(errs) > 0 {
			ing.runLog.Log(ctx, StatusError, order.OrderNo,
				"Ungültige TerraCloud-Bestellung: "+strings.Join(dedupe(errs), ", "))
			continue
		}
		orders = append(orders, order)
	}
	return orders, nil
}

// buildOrder converts raw column values into an Order. Conversion failures are
// collected, not fatal; the corresponding field stays zero and the order fails
// validation with an aggregated reason.
func buildOrder(customer, orderNo, article, qty, start, priceType string) (*Order, []string) {
	var errs []string
	o := &Order{CustomerNo: customer, OrderNo: orderNo, ArticleNo: article}

	if qty != "" {
		q, err := decimal.NewFromString(strings.ReplaceAll(qty, ",", "."))
		if err != nil {
			errs = append(errs, fmt.Sprintf("Menge %q ist keine Zahl", qty))
		} else {
			o.Quantity = q
		}
	}
	if start != "" {
		t, err := time.Parse(startDateLayout, start)
		if err != nil {
			errs = append(errs, fmt.Sprintf("Startdatum %q ist ungültig", start))
		} else {
			o.StartDate = DateOnly(t)
		}
	}
	if priceType != "" {
		c, err := CadenceFromCode(priceType)
		if err != nil {
			errs = append(errs, err.Error())
		} else {
			o.Cadence = c
		}
	}
	return o, errs
}

// referenceErrors checks that customer and article resolve in the store.
func (ing *OrderIngestor) referenceErrors(ctx context.Context, o *Order) ([]string, error) {
	var errs []string
	if o.CustomerNo != "" {
		var exists bool
		if err := ing.pool.QueryRow(ctx,
			"SELECT EXISTS(SELECT 1 FROM customers WHERE code = $1)", o.CustomerNo,
		).Scan(&exists); err != nil {
			return nil, fmt.Errorf("resolve customer %s: %w", o.CustomerNo, err)
		}
		if !exists {
			errs = append(errs, fmt.Sprintf("Kunde %s nicht gefunden", o.CustomerNo))
		}
	}
	if o.ArticleNo != "" {
		var exists bool
		if err := ing.pool.QueryRow(ctx,
			"SELECT EXISTS(SELECT 1 FROM items WHERE code = $1)", o.ArticleNo,
		).Scan(&exists); err != nil {
			return nil, fmt.Errorf("resolve article %s: %w", o.ArticleNo, err)
		}
		if !exists {
			errs = append(errs, fmt.Sprintf("Artikel %s nicht gefunden", o.ArticleNo))
		}
	}
	return errs, nil
}

// FilterNew drops orders whose order number already has a billing plan, making
// re-imports of the same file idempotent. Duplicates are not errors; with
// logExisting each drop is recorded as Neutral.
func (ing *OrderIngestor) FilterNew(ctx context.Context, orders []*Order, logExisting bool) ([]*Order, error) {
	var fresh []*Order
	for _, o := range orders {
		var exists bool
		if err := ing.pool.QueryRow(ctx,
			"SELECT EXISTS(SELECT 1 FROM billing_plans WHERE order_no = $1)", o.OrderNo,
		).Scan(&exists); err != nil {
			return nil, fmt.Errorf("check billing plan for order %s: %w", o.OrderNo, err)
		}
		if exists {
			if logExisting {
				ing.runLog.Log(ctx, StatusNeutral, o.OrderNo, "Bestellung existiert bereits")
			}
			continue
		}
		fresh = append(fresh, o)
	}
	return fresh, nil
}

// GroupByCustomer groups orders by customer number, preserving the relative
// order within each group.
func GroupByCustomer(orders []*Order) map[string][]*Order {
	grouped := make(map[string][]*Order)
	for _, o := range orders {
		grouped[o.CustomerNo] = append(grouped[o.CustomerNo], o)
	}
	return grouped
}

// SelectYearly returns the orders billed yearly, order-preserving.
func SelectYearly(orders []*Order) []*Order {
	var out []*Order
	for _, o := range orders {
		if o.Cadence == CadenceYearly {
			out = append(out, o)
		}
	}
	return out
}

// SelectMonthly returns the orders billed monthly, order-preserving.
func SelectMonthly(orders []*Order) []*Order {
	var out []*Order
	for _, o := range orders {
		if o.Cadence == CadenceMonthly {
			out = append(out, o)
		}
	}
	return out
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
