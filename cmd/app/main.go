package main

import (
	"context"
	"log"
	"os"

	"m365-import/internal/adapters/cli"
	"m365-import/internal/adapters/watcher"
	"m365-import/internal/app"
	"m365-import/internal/db"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	ctx := context.Background()
	pool, err := db.NewPool(ctx)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer pool.Close()

	uploadDir := os.Getenv("UPLOAD_DIR")
	if uploadDir == "" {
		uploadDir = os.TempDir()
	}
	svc := app.NewAppService(pool, uploadDir)

	if len(os.Args) < 2 {
		log.Fatal("Usage: app <import|runs|log|subs|plans|watch> [args]")
	}

	if os.Args[1] == "watch" {
		inboxDir := os.Getenv("INBOX_DIR")
		if len(os.Args) > 2 {
			inboxDir = os.Args[2]
		}
		if inboxDir == "" {
			log.Fatal("Usage: app watch <inbox-dir> (or set INBOX_DIR)")
		}
		w, err := watcher.New(svc, inboxDir)
		if err != nil {
			log.Fatalf("Watcher setup failed: %v", err)
		}
		if err := w.Run(ctx); err != nil && err != context.Canceled {
			log.Fatalf("Watcher stopped: %v", err)
		}
		return
	}

	cli.Run(ctx, svc, os.Args[1:])
}
