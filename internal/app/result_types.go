package app

import "m365-import/internal/core"

// ImportRunResult is returned by import run operations. Log is populated by
// GetImport only.
type ImportRunResult struct {
	Run *core.ImportRun
	Log []core.LogEntry
}

// ImportRunListResult is returned by ListImports.
type ImportRunListResult struct {
	Runs []core.ImportRun
}

// SubscriptionListResult is returned by ListSubscriptions.
type SubscriptionListResult struct {
	Subscriptions []core.Subscription
}

// BillingPlanListResult is returned by ListBillingPlans.
type BillingPlanListResult struct {
	Plans []core.BillingPlan
}

// UserSession is returned by AuthenticateUser.
type UserSession struct {
	UserID   int    `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// UserResult is returned by GetUser.
type UserResult struct {
	Username string
	Email    string
	Role     string
}
