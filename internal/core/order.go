package core

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Order is one normalized TerraCloud purchase-order row. The plan and
// subscription associations are weak references established during the
// pipeline; an Order never owns their lifecycle.
type Order struct {
	CustomerNo string
	OrderNo    string
	ArticleNo  string
	Quantity   decimal.Decimal
	StartDate  time.Time
	Cadence    Cadence

	planID       int
	subscription *Subscription
}

// LinkPlan associates the order with its billing plan. The association is set
// exactly once; a second call is a programming error and is rejected.
func (o *Order) LinkPlan(planID int) error {
	if o.planID != 0 {
		return fmt.Errorf("order %s is already linked to plan %d", o.OrderNo, o.planID)
	}
	o.planID = planID
	return nil
}

// PlanID returns the linked billing plan id, or false if the order has not
// been through plan linking yet.
func (o *Order) PlanID() (int, bool) {
	return o.planID, o.planID != 0
}

// AttachSubscription records which subscription the order was assembled into.
func (o *Order) AttachSubscription(s *Subscription) {
	o.subscription = s
}

// Subscription returns the subscription the order belongs to, or nil before
// assembly.
func (o *Order) Subscription() *Subscription {
	return o.subscription
}

// fieldErrors collects all structural violations of the order. Referential
// checks (customer and article must exist in the store) are added by the
// ingestor; both kinds are reported together in one log entry per row.
func (o *Order) fieldErrors() []string {
	var errs []string
	if o.CustomerNo == "" {
		errs = append(errs, "Kundennummer fehlt")
	}
	if o.OrderNo == "" {
		errs = append(errs, "Bestellnummer fehlt")
	}
	if o.ArticleNo == "" {
		errs = append(errs, "Artikelnummer fehlt")
	}
	if o.Quantity.LessThanOrEqual(decimal.Zero) {
		errs = append(errs, "Menge fehlt")
	}
	if o.StartDate.IsZero() {
		errs = append(errs, "Startdatum fehlt")
	}
	if o.Cadence != CadenceMonthly && o.Cadence != CadenceYearly {
		errs = append(errs, "Preistyp fehlt")
	}
	return errs
}
