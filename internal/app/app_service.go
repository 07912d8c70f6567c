package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"m365-import/internal/core"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

type appService struct {
	pool      *pgxpool.Pool
	runs      *core.ImportRunService
	users     core.UserService
	uploadDir string
}

// NewAppService constructs an appService that satisfies ApplicationService.
// uploadDir is where uploaded CSV files are stored before processing.
func NewAppService(pool *pgxpool.Pool, uploadDir string) ApplicationService {
	return &appService{
		pool:      pool,
		runs:      core.NewImportRunService(pool),
		users:     core.NewUserService(pool),
		uploadDir: uploadDir,
	}
}

// CreateImport stores the uploaded CSV under a collision-free name and
// registers a pending run for it.
func (s *appService) CreateImport(ctx context.Context, filename string, file io.Reader) (*ImportRunResult, error) {
	if filename == "" {
		filename = "import.csv"
	}
	filename = filepath.Base(filename)

	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}
	storedPath := filepath.Join(s.uploadDir,
		fmt.Sprintf("%s-%s", time.Now().UTC().Format("20060102-150405"), filename))

	out, err := os.Create(storedPath)
	if err != nil {
		return nil, fmt.Errorf("store uploaded file: %w", err)
	}
	defer out.Close()
	if _, err := io.Copy(out, file); err != nil {
		os.Remove(storedPath)
		return nil, fmt.Errorf("write uploaded file: %w", err)
	}

	run, err := s.runs.CreateRun(ctx, filename, storedPath)
	if err != nil {
		os.Remove(storedPath)
		return nil, err
	}
	return &ImportRunResult{Run: run}, nil
}

// RegisterImport registers a pending run for a CSV already on disk.
func (s *appService) RegisterImport(ctx context.Context, filePath string) (*ImportRunResult, error) {
	if _, err := os.Stat(filePath); err != nil {
		return nil, fmt.Errorf("CSV file %s: %w", filePath, err)
	}
	run, err := s.runs.CreateRun(ctx, filepath.Base(filePath), filePath)
	if err != nil {
		return nil, err
	}
	return &ImportRunResult{Run: run}, nil
}

// ProcessImport loads the current settings and runs the coordinator. Settings
// are re-read per run so configuration edits apply to the next import without
// a restart.
func (s *appService) ProcessImport(ctx context.Context, runID uuid.UUID) error {
	settings, err := core.LoadSettings(ctx, s.pool)
	if err != nil {
		return err
	}
	return core.NewImportCoordinator(s.pool, settings).Run(ctx, runID)
}

func (s *appService) ListImports(ctx context.Context) (*ImportRunListResult, error) {
	runs, err := s.runs.ListRuns(ctx)
	if err != nil {
		return nil, err
	}
	return &ImportRunListResult{Runs: runs}, nil
}

func (s *appService) GetImport(ctx context.Context, runID uuid.UUID) (*ImportRunResult, error) {
	run, err := s.runs.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	entries, err := s.runs.GetLog(ctx, runID)
	if err != nil {
		return nil, err
	}
	return &ImportRunResult{Run: run, Log: entries}, nil
}

func (s *appService) ListSubscriptions(ctx context.Context, customerCode string) (*SubscriptionListResult, error) {
	subs, err := core.ListSubscriptions(ctx, s.pool, customerCode)
	if err != nil {
		return nil, err
	}
	return &SubscriptionListResult{Subscriptions: subs}, nil
}

func (s *appService) ListBillingPlans(ctx context.Context, customerCode string) (*BillingPlanListResult, error) {
	plans, err := core.ListBillingPlans(ctx, s.pool, customerCode)
	if err != nil {
		return nil, err
	}
	return &BillingPlanListResult{Plans: plans}, nil
}

func (s *appService) AuthenticateUser(ctx context.Context, username, password string) (*UserSession, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, fmt.Errorf("invalid credentials")
	}
	return &UserSession{UserID: user.ID, Username: user.Username, Role: user.Role}, nil
}

func (s *appService) GetUser(ctx context.Context, userID int) (*UserResult, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &UserResult{Username: user.Username, Email: user.Email, Role: user.Role}, nil
}
