package core

import (
	"context"
	"log"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// LogStatus classifies one audit entry of an import run.
type LogStatus string

const (
	StatusNeutral LogStatus = "Neutral"
	StatusError   LogStatus = "Error"
	StatusSuccess LogStatus = "Success"
)

// LogEntry is one operator-facing audit record tied to an import run. The
// audit log is the only feedback channel of an import: the trigger is
// fire-and-forget, so every skipped row, duplicate and failure ends up here.
type LogEntry struct {
	ID       int       `json:"id"`
	RunID    uuid.UUID `json:"run_id"`
	LoggedAt string    `json:"logged_at"`
	Status   LogStatus `json:"status"`
	Entry    string    `json:"entry"`
	Reason   string    `json:"reason"`
}

// RunLog appends audit entries for one import run.
type RunLog struct {
	pool  *pgxpool.Pool
	runID uuid.UUID
}

func NewRunLog(pool *pgxpool.Pool, runID uuid.UUID) *RunLog {
	return &RunLog{pool: pool, runID: runID}
}

// RunID returns the import run this log writes to.
func (l *RunLog) RunID() uuid.UUID {
	return l.runID
}

// Log appends one entry. A failed append must never take down the import it
// documents, so persistence errors are reported to the process log only.
func (l *RunLog) Log(ctx context.Context, status LogStatus, entry, reason string) {
	_, err := l.pool.Exec(ctx, `
		INSERT INTO import_log_entries (run_id, status, entry, reason)
		VALUES ($1, $2, $3, $4)`,
		l.runID, string(status), entry, reason,
	)
	if err != nil {
		log.Printf("import %s: audit log append failed (%s %s: %s): %v",
			l.runID, status, entry, reason, err)
	}
}
