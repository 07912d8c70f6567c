package cli

import (
	"context"
	"fmt"
	"log"
	"strings"

	"m365-import/internal/app"

	"github.com/google/uuid"
)

// Run executes a one-shot CLI command and exits.
// args is os.Args[1:] — the first element is the subcommand name.
func Run(ctx context.Context, svc app.ApplicationService, args []string) {
	switch args[0] {
	case "import", "imp", "i":
		if len(args) < 2 {
			log.Fatal("Usage: app import <file.csv>")
		}
		result, err := svc.RegisterImport(ctx, args[1])
		if err != nil {
			log.Fatalf("Failed to register import: %v", err)
		}
		fmt.Printf("Run %s registered.\n", result.Run.ID)
		if err := svc.ProcessImport(ctx, result.Run.ID); err != nil {
			log.Fatalf("Import failed: %v", err)
		}
		full, err := svc.GetImport(ctx, result.Run.ID)
		if err != nil {
			log.Fatalf("Failed to load run: %v", err)
		}
		printRunLog(full)

	case "runs", "r":
		result, err := svc.ListImports(ctx)
		if err != nil {
			log.Fatalf("Failed to list runs: %v", err)
		}
		printRuns(result)

	case "log", "l":
		if len(args) < 2 {
			log.Fatal("Usage: app log <run-id>")
		}
		runID, err := uuid.Parse(args[1])
		if err != nil {
			log.Fatalf("Invalid run id: %v", err)
		}
		result, err := svc.GetImport(ctx, runID)
		if err != nil {
			log.Fatalf("Failed to load run: %v", err)
		}
		printRunLog(result)

	case "subs", "s":
		customer := ""
		if len(args) > 1 {
			customer = args[1]
		}
		result, err := svc.ListSubscriptions(ctx, customer)
		if err != nil {
			log.Fatalf("Failed to list subscriptions: %v", err)
		}
		printSubscriptions(result)

	case "plans", "p":
		customer := ""
		if len(args) > 1 {
			customer = args[1]
		}
		result, err := svc.ListBillingPlans(ctx, customer)
		if err != nil {
			log.Fatalf("Failed to list plans: %v", err)
		}
		printPlans(result)

	default:
		log.Fatalf("Unknown command: %s\nAvailable: import, runs, log, subs, plans", args[0])
	}
}

func printRuns(result *app.ImportRunListResult) {
	fmt.Println()
	fmt.Println(strings.Repeat("=", 92))
	fmt.Printf("  %-38s %-30s %-10s %s\n", "RUN", "FILE", "STATUS", "CREATED")
	fmt.Println(strings.Repeat("-", 92))
	for _, r := range result.Runs {
		fmt.Printf("  %-38s %-30s %-10s %s\n",
			r.ID, r.Filename, r.Status, r.CreatedAt.Format("2006-01-02 15:04"))
	}
	fmt.Println(strings.Repeat("=", 92))
}

func printRunLog(result *app.ImportRunResult) {
	run := result.Run
	fmt.Println()
	fmt.Println(strings.Repeat("=", 92))
	fmt.Printf("  Run    : %s\n", run.ID)
	fmt.Printf("  File   : %s\n", run.Filename)
	fmt.Printf("  Status : %s\n", run.Status)
	fmt.Println(strings.Repeat("=", 92))
	for _, e := range result.Log {
		fmt.Printf("  [%-7s] %s", e.Status, e.Entry)
		if e.Reason != "" {
			fmt.Printf(": %s", e.Reason)
		}
		fmt.Println()
	}
	fmt.Println(strings.Repeat("=", 92))
}

func printSubscriptions(result *app.SubscriptionListResult) {
	fmt.Println()
	fmt.Println(strings.Repeat("=", 92))
	fmt.Printf("  %-6s %-12s %-36s %-8s %s\n", "ID", "CUSTOMER", "TITLE", "INTERVAL", "START")
	fmt.Println(strings.Repeat("-", 92))
	for _, s := range result.Subscriptions {
		fmt.Printf("  %-6d %-12s %-36s %-8s %s\n",
			s.ID, s.CustomerCode, s.Title, s.BillingInterval, s.StartDate.Format("2006-01-02"))
		for _, p := range s.Plans {
			fmt.Printf("         plan %-6d %-40s qty %s\n", p.PlanID, p.PlanName, p.Qty.String())
		}
	}
	fmt.Println(strings.Repeat("=", 92))
}

func printPlans(result *app.BillingPlanListResult) {
	fmt.Println()
	fmt.Println(strings.Repeat("=", 92))
	fmt.Printf("  %-6s %-12s %-16s %-16s %-8s %s\n", "ID", "CUSTOMER", "ORDER", "ITEM", "INTERVAL", "START")
	fmt.Println(strings.Repeat("-", 92))
	for _, p := range result.Plans {
		fmt.Printf("  %-6d %-12s %-16s %-16s %-8s %s\n",
			p.ID, p.CustomerCode, p.OrderNo, p.ItemCode, p.BillingInterval, p.StartDate.Format("2006-01-02"))
	}
	fmt.Println(strings.Repeat("=", 92))
}
