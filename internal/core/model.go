package core

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Cadence is the billing frequency of an order, decided by the TerraCloud
// Preistyp column at the ingestion boundary. Unknown codes are rejected there;
// downstream code only ever sees the two values below.
type Cadence string

const (
	CadenceMonthly Cadence = "Monthly"
	CadenceYearly  Cadence = "Yearly"
)

// TerraCloud price type codes as they appear in the CSV.
const (
	priceTypeCodeMonthly = "1"
	priceTypeCodeYearly  = "5"
)

// CadenceFromCode maps a TerraCloud Preistyp code to a Cadence.
func CadenceFromCode(code string) (Cadence, error) {
	switch code {
	case priceTypeCodeMonthly:
		return CadenceMonthly, nil
	case priceTypeCodeYearly:
		return CadenceYearly, nil
	default:
		return "", fmt.Errorf("unbekannter Preistyp %q", code)
	}
}

// Interval returns the billing interval stored on plans and subscriptions.
func (c Cadence) Interval() string {
	if c == CadenceYearly {
		return "Year"
	}
	return "Month"
}

// Settings is the immutable import configuration, loaded once per run from the
// settings row and passed into every service constructor.
type Settings struct {
	PriceList                   string
	ModeOfPayment               string
	InvoiceTitle                string
	SalesTaxTemplate            string
	FollowCalendarMonths        bool
	GenerateInvoicesPastDueDate bool
	SubmitGeneratedInvoices     bool
}

// BillingPlan is the persisted record pairing one order's commercial terms with
// the TerraCloud order number as a stable external key. Never mutated after
// creation; its existence is the duplicate-import guard.
type BillingPlan struct {
	ID              int       `json:"id"`
	PlanName        string    `json:"plan_name"`
	OrderNo         string    `json:"order_no"`
	CustomerCode    string    `json:"customer_code"`
	ItemCode        string    `json:"item_code"`
	PriceList       string    `json:"price_list"`
	BillingInterval string    `json:"billing_interval"`
	StartDate       time.Time `json:"start_date"`
	CreatedAt       time.Time `json:"created_at"`
}

// Subscription is a recurring billing schedule for one customer and one cadence.
// CurrentInvoiceStart is owned and advanced by the host billing engine; this
// core only reads it (backfill upper bound).
type Subscription struct {
	ID                          int                `json:"id"`
	CustomerCode                string             `json:"customer_code"`
	Title                       string             `json:"title"`
	BillingInterval             string             `json:"billing_interval"`
	StartDate                   time.Time          `json:"start_date"`
	CurrentInvoiceStart         time.Time          `json:"current_invoice_start"`
	ModeOfPayment               string             `json:"mode_of_payment"`
	InvoiceTitle                string             `json:"invoice_title"`
	SalesTaxTemplate            string             `json:"sales_tax_template"`
	FollowCalendarMonths        bool               `json:"follow_calendar_months"`
	GenerateInvoicesPastDueDate bool               `json:"generate_invoices_past_due_date"`
	ImportRunID                 *uuid.UUID         `json:"import_run_id,omitempty"`
	CreatedAt                   time.Time          `json:"created_at"`
	Plans                       []SubscriptionPlan `json:"plans,omitempty"`
}

// SubscriptionPlan is one plan reference attached to a subscription.
type SubscriptionPlan struct {
	ID             int             `json:"id"`
	SubscriptionID int             `json:"subscription_id"`
	PlanID         int             `json:"plan_id"`
	PlanName       string          `json:"plan_name"` // joined from billing_plans
	Qty            decimal.Decimal `json:"qty"`
}

// Invoice is a backfilled billable document for one order over one inclusive
// [FromDate, ToDate] period.
type Invoice struct {
	ID               int       `json:"id"`
	SubscriptionID   int       `json:"subscription_id"`
	CustomerCode     string    `json:"customer_code"`
	Title            string    `json:"title"`
	SalesTaxTemplate string    `json:"sales_tax_template"`
	FromDate         time.Time `json:"from_date"`
	ToDate           time.Time `json:"to_date"`
	DueDate          time.Time `json:"due_date"`
	CreatedAt        time.Time `json:"created_at"`
}

// Item is a catalog article, resolved during order validation.
type Item struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description"`
	StockUOM    string `json:"stock_uom"`
}

// Customer is a customer master record.
type Customer struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type RunStatus string

const (
	RunStatusPending   RunStatus = "Pending"
	RunStatusRunning   RunStatus = "Running"
	RunStatusCompleted RunStatus = "Completed"
	RunStatusFailed    RunStatus = "Failed"
)

// ImportRun is one triggered import of a TerraCloud CSV file.
type ImportRun struct {
	ID         uuid.UUID  `json:"id"`
	Filename   string     `json:"filename"`
	FilePath   string     `json:"file_path"`
	Status     RunStatus  `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}
