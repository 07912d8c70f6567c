package app

import (
	"context"
	"io"

	"github.com/google/uuid"
)

// ApplicationService is the single interface all adapters (CLI, web, inbox
// watcher) call. It decouples presentation from the import engine; no
// implementation prints or renders anything.
type ApplicationService interface {
	// CreateImport stores an uploaded CSV and registers a pending import run.
	CreateImport(ctx context.Context, filename string, file io.Reader) (*ImportRunResult, error)

	// RegisterImport registers a pending import run for a CSV that already
	// exists on disk (CLI invocation, inbox watcher pickup).
	RegisterImport(ctx context.Context, filePath string) (*ImportRunResult, error)

	// ProcessImport runs a pending import to completion. It is synchronous;
	// fire-and-forget triggers dispatch it on a goroutine. The outcome is
	// observed via the run's audit log, not a return value.
	ProcessImport(ctx context.Context, runID uuid.UUID) error

	// ListImports returns all import runs, newest first.
	ListImports(ctx context.Context) (*ImportRunListResult, error)

	// GetImport returns one run together with its audit log.
	GetImport(ctx context.Context, runID uuid.UUID) (*ImportRunResult, error)

	// ListSubscriptions returns subscriptions with their plan entries,
	// optionally filtered by customer.
	ListSubscriptions(ctx context.Context, customerCode string) (*SubscriptionListResult, error)

	// ListBillingPlans returns billing plans, optionally filtered by customer.
	ListBillingPlans(ctx context.Context, customerCode string) (*BillingPlanListResult, error)

	// AuthenticateUser verifies credentials and returns a session on success.
	AuthenticateUser(ctx context.Context, username, password string) (*UserSession, error)

	// GetUser returns a user profile by ID.
	GetUser(ctx context.Context, userID int) (*UserResult, error)
}
