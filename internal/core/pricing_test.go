package core_test

import (
	"testing"

	"m365-import/internal/core"

	"github.com/shopspring/decimal"
)

func TestIsFullPeriod(t *testing.T) {
	tests := []struct {
		name    string
		cadence core.Cadence
		from    string
		to      string
		want    bool
	}{
		{"monthly exact step", core.CadenceMonthly, "2024-01-15", "2024-02-15", true},
		{"monthly service period", core.CadenceMonthly, "2024-01-01", "2024-01-31", false},
		{"monthly short", core.CadenceMonthly, "2024-01-15", "2024-01-31", false},
		{"yearly exact step", core.CadenceYearly, "2023-06-01", "2024-06-01", true},
		{"yearly short", core.CadenceYearly, "2023-06-01", "2023-12-31", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := core.IsFullPeriod(tt.cadence, date(t, tt.from), date(t, tt.to))
			if got != tt.want {
				t.Errorf("IsFullPeriod(%s, %s, %s) = %v, want %v",
					tt.cadence, tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestProrate_Monthly(t *testing.T) {
	full := decimal.RequireFromString("120.00")

	tests := []struct {
		name string
		from string
		to   string
		want string
	}{
		// 10 of 28 days in February 2023: 120/28*10 = 42.857... → 42.86
		{"partial february", "2023-02-01", "2023-02-10", "42.86"},
		// Whole service month prices out at the full rate.
		{"full january", "2024-01-01", "2024-01-31", "120"},
		{"full february leap", "2024-02-01", "2024-02-29", "120"},
		// 17 of 31 days in January: 120/31*17 = 65.806... → 65.81
		{"mid-month remainder", "2024-01-15", "2024-01-31", "65.81"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := core.Prorate(full, core.CadenceMonthly, date(t, tt.from), date(t, tt.to))
			if got.String() != tt.want {
				t.Errorf("Prorate = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestProrate_Yearly(t *testing.T) {
	full := decimal.RequireFromString("1200.00")

	// 31 of 366 days (2024 is a leap year): 1200/366*31 = 101.639... → 101.64
	got := core.Prorate(full, core.CadenceYearly, date(t, "2024-12-01"), date(t, "2024-12-31"))
	if got.String() != "101.64" {
		t.Errorf("Prorate leap year = %s, want 101.64", got)
	}

	// 31 of 365 days: 1200/365*31 = 101.917... → 101.92
	got = core.Prorate(full, core.CadenceYearly, date(t, "2023-12-01"), date(t, "2023-12-31"))
	if got.String() != "101.92" {
		t.Errorf("Prorate regular year = %s, want 101.92", got)
	}

	// A whole service year prices out at the full rate.
	got = core.Prorate(full, core.CadenceYearly, date(t, "2023-01-01"), date(t, "2023-12-31"))
	if got.String() != "1200" {
		t.Errorf("Prorate full year = %s, want 1200", got)
	}
}
