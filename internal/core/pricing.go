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

// PriceCalculator computes per-unit prices for full and pro-rated billing
// periods from the configured price list.
type PriceCalculator struct {
	pool     *pgxpool.Pool
	settings Settings
}

func NewPriceCalculator(pool *pgxpool.Pool, settings Settings) *PriceCalculator {
	return &PriceCalculator{pool: pool, settings: settings}
}

// UnitPrice returns the per-unit price for the order over [from, to], both
// ends inclusive. The boolean is false when no applicable price list entry
// exists; the caller decides how to handle the absent price.
func (pc *PriceCalculator) UnitPrice(ctx context.Context, o *Order, from, to time.Time) (decimal.Decimal, bool, error) {
	full, ok, err := pc.FullUnitPrice(ctx, o, from)
	if err != nil || !ok {
		return decimal.Zero, false, err
	}
	if IsFullPeriod(o.Cadence, from, to) {
		return full, true, nil
	}
	return Prorate(full, o.Cadence, from, to), true, nil
}

// IsFullPeriod reports whether [from, to] spans exactly one cadence unit.
func IsFullPeriod(cadence Cadence, from, to time.Time) bool {
	from, to = DateOnly(from), DateOnly(to)
	switch cadence {
	case CadenceMonthly:
		return to.Equal(AddMonths(from, 1))
	case CadenceYearly:
		return to.Equal(AddYears(from, 1))
	default:
		return false
	}
}

// Prorate computes the partial-period price: the full price is spread over the
// days of from's calendar month (Monthly) or year (Yearly, 365/366) and
// multiplied by the inclusive day count of [from, to]. Rounded to 2 decimal
// places, half away from zero (shopspring's Round).
func Prorate(full decimal.Decimal, cadence Cadence, from, to time.Time) decimal.Decimal {
	from, to = DateOnly(from), DateOnly(to)

	billingDays := inclusiveDays(from, to)

	var periodDays int
	switch cadence {
	case CadenceYearly:
		periodDays = 365
		if isLeapYear(from.Year()) {
			periodDays = 366
		}
	default:
		periodDays = daysInMonth(from.Year(), from.Month())
	}

	return full.
		Div(decimal.NewFromInt(int64(periodDays))).
		Mul(decimal.NewFromInt(int64(billingDays))).
		Round(2)
}

// FullUnitPrice looks up the list price of the order's article valid on
// valuationDate. A customer-specific entry wins over the generic list price;
// the boolean is false when neither exists.
func (pc *PriceCalculator) FullUnitPrice(ctx context.Context, o *Order, valuationDate time.Time) (decimal.Decimal, bool, error) {
	valuationDate = DateOnly(valuationDate)

	price, ok, err := pc.lookupPrice(ctx, o.ArticleNo, o.CustomerNo, valuationDate)
	if err != nil || ok {
		return price, ok, err
	}
	return pc.lookupPrice(ctx, o.ArticleNo, "", valuationDate)
}

func (pc *PriceCalculator) lookupPrice(ctx context.Context, articleNo, customerNo string, valuationDate time.Time) (decimal.Decimal, bool, error) {
	query := `
		SELECT rate
		FROM item_prices
		WHERE item_code = $1
		  AND price_list = $2
		  AND valid_from <= $3
		  AND valid_upto >= $3`
	args := []any{articleNo, pc.settings.PriceList, valuationDate}
	if customerNo != "" {
		query += " AND customer_code = $4"
		args = append(args, customerNo)
	} else {
		query += " AND customer_code IS NULL"
	}
	query += " ORDER BY valid_from DESC LIMIT 1"

	var rate decimal.Decimal
	err := pc.pool.QueryRow(ctx, query, args...).Scan(&rate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, false, nil
		}
		return decimal.Zero, false, fmt.Errorf("price lookup for article %s: %w", articleNo, err)
	}
	return rate, true, nil
}
