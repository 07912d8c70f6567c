// Package watcher picks up TerraCloud CSV exports dropped into an inbox
// directory and feeds them through the import pipeline. It exists for
// deployments where the export lands via SFTP or a network share instead of
// the HTTP upload endpoint.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"m365-import/internal/app"

	"github.com/fsnotify/fsnotify"
)

// settleDelay is how long a freshly seen file must keep a stable size before
// it is considered fully written. SFTP uploads arrive in chunks.
const settleDelay = 2 * time.Second

// Watcher monitors an inbox directory for new CSV files.
type Watcher struct {
	svc       app.ApplicationService
	inboxDir  string
	doneDir   string
	fsWatcher *fsnotify.Watcher
}

// New creates a Watcher for inboxDir. Processed files are moved into the
// "processed" subdirectory so a restart never imports them twice.
func New(svc app.ApplicationService, inboxDir string) (*Watcher, error) {
	doneDir := filepath.Join(inboxDir, "processed")
	if err := os.MkdirAll(doneDir, 0o750); err != nil {
		return nil, fmt.Errorf("create processed directory: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create inbox watcher: %w", err)
	}
	if err := fsw.Add(inboxDir); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", inboxDir, err)
	}

	return &Watcher{
		svc:       svc,
		inboxDir:  inboxDir,
		doneDir:   doneDir,
		fsWatcher: fsw,
	}, nil
}

// Run processes files already sitting in the inbox, then blocks handling
// filesystem events until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsWatcher.Close()

	if err := w.sweepExisting(ctx); err != nil {
		return err
	}

	log.Printf("watching %s for CSV files", w.inboxDir)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if !isCSV(event.Name) || filepath.Dir(event.Name) != w.inboxDir {
				continue
			}
			w.handleFile(ctx, event.Name)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("inbox watcher: %v", err)
		}
	}
}

// sweepExisting imports CSV files that were dropped while the watcher was not
// running.
func (w *Watcher) sweepExisting(ctx context.Context) error {
	entries, err := os.ReadDir(w.inboxDir)
	if err != nil {
		return fmt.Errorf("read inbox %s: %w", w.inboxDir, err)
	}
	for _, e := range entries {
		if e.IsDir() || !isCSV(e.Name()) {
			continue
		}
		w.handleFile(ctx, filepath.Join(w.inboxDir, e.Name()))
	}
	return nil
}

// handleFile waits for the file to settle, runs the import synchronously and
// moves the file to the processed directory. Failures are logged and the file
// stays in the inbox for a retry after the operator intervenes.
func (w *Watcher) handleFile(ctx context.Context, path string) {
	// Moving a file into processed/ fires a Rename event for its old inbox
	// path. A path that no longer exists is that echo, not a new file.
	if _, err := os.Stat(path); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Printf("inbox watcher: %s: %v", path, err)
		}
		return
	}

	if err := w.waitSettled(ctx, path); err != nil {
		log.Printf("inbox watcher: %s: %v", path, err)
		return
	}

	result, err := w.svc.RegisterImport(ctx, path)
	if err != nil {
		log.Printf("inbox watcher: register %s: %v", path, err)
		return
	}

	log.Printf("inbox watcher: importing %s as run %s", filepath.Base(path), result.Run.ID)
	if err := w.svc.ProcessImport(ctx, result.Run.ID); err != nil {
		log.Printf("inbox watcher: import %s: %v", result.Run.ID, err)
		return
	}

	dest := filepath.Join(w.doneDir, filepath.Base(path))
	if err := os.Rename(path, dest); err != nil {
		log.Printf("inbox watcher: move %s to processed: %v", path, err)
	}
}

// waitSettled blocks until two consecutive size checks agree, signalling that
// the writer has finished.
func (w *Watcher) waitSettled(ctx context.Context, path string) error {
	var lastSize int64 = -1
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(settleDelay):
		}

		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("stat: %w", err)
		}
		if info.Size() == lastSize {
			return nil
		}
		lastSize = info.Size()
	}
}

func isCSV(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".csv")
}
