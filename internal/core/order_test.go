package core_test

import (
	"testing"
	"time"

	"m365-import/internal/core"
)

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatalf("bad test date %q: %v", s, err)
	}
	return d
}

func TestCadenceFromCode(t *testing.T) {
	tests := []struct {
		code      string
		want      core.Cadence
		expectErr bool
	}{
		{"1", core.CadenceMonthly, false},
		{"5", core.CadenceYearly, false},
		{"2", "", true},
		{"", "", true},
		{"Monthly", "", true},
	}
	for _, tt := range tests {
		got, err := core.CadenceFromCode(tt.code)
		if tt.expectErr {
			if err == nil {
				t.Errorf("CadenceFromCode(%q): expected error, got %q", tt.code, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("CadenceFromCode(%q): unexpected error %v", tt.code, err)
		}
		if got != tt.want {
			t.Errorf("CadenceFromCode(%q) = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestCadence_Interval(t *testing.T) {
	if got := core.CadenceMonthly.Interval(); got != "Month" {
		t.Errorf("Monthly interval = %q, want Month", got)
	}
	if got := core.CadenceYearly.Interval(); got != "Year" {
		t.Errorf("Yearly interval = %q, want Year", got)
	}
}

func TestOrder_LinkPlan_Once(t *testing.T) {
	o := &core.Order{OrderNo: "TC-1001"}

	if _, ok := o.PlanID(); ok {
		t.Fatal("fresh order should not report a plan")
	}

	if err := o.LinkPlan(42); err != nil {
		t.Fatalf("first LinkPlan failed: %v", err)
	}
	if id, ok := o.PlanID(); !ok || id != 42 {
		t.Errorf("PlanID = (%d, %v), want (42, true)", id, ok)
	}

	if err := o.LinkPlan(43); err == nil {
		t.Error("second LinkPlan should be rejected")
	}
	if id, _ := o.PlanID(); id != 42 {
		t.Errorf("plan id changed to %d after rejected relink", id)
	}
}

func TestGroupByCustomer(t *testing.T) {
	orders := []*core.Order{
		{CustomerNo: "K-1", OrderNo: "A"},
		{CustomerNo: "K-2", OrderNo: "B"},
		{CustomerNo: "K-1", OrderNo: "C"},
	}

	grouped := core.GroupByCustomer(orders)
	if len(grouped) != 2 {
		t.Fatalf("got %d groups, want 2", len(grouped))
	}
	if len(grouped["K-1"]) != 2 || grouped["K-1"][0].OrderNo != "A" || grouped["K-1"][1].OrderNo != "C" {
		t.Errorf("K-1 group order not preserved: %+v", grouped["K-1"])
	}
	if len(grouped["K-2"]) != 1 {
		t.Errorf("K-2 group = %+v, want one order", grouped["K-2"])
	}
}

func TestSelectByCadence(t *testing.T) {
	orders := []*core.Order{
		{OrderNo: "A", Cadence: core.CadenceMonthly},
		{OrderNo: "B", Cadence: core.CadenceYearly},
		{OrderNo: "C", Cadence: core.CadenceMonthly},
	}

	monthly := core.SelectMonthly(orders)
	if len(monthly) != 2 || monthly[0].OrderNo != "A" || monthly[1].OrderNo != "C" {
		t.Errorf("SelectMonthly = %+v", monthly)
	}

	yearly := core.SelectYearly(orders)
	if len(yearly) != 1 || yearly[0].OrderNo != "B" {
		t.Errorf("SelectYearly = %+v", yearly)
	}
}
