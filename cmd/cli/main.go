package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"

	"github.com/dvloznov/ledger-assistant/internal/backend"
	"github.com/dvloznov/ledger-assistant/internal/config"
	"github.com/dvloznov/ledger-assistant/internal/domain"
	"github.com/dvloznov/ledger-assistant/internal/events"
	"github.com/dvloznov/ledger-assistant/internal/logger"
	"github.com/dvloznov/ledger-assistant/internal/notionsync"
	"github.com/dvloznov/ledger-assistant/internal/policy"
	"github.com/dvloznov/ledger-assistant/internal/report"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.LogLevel)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "chat":
		runChat(cfg, log)
	case "list":
		runList(cfg, log)
	case "add":
		runAdd(cfg, log)
	case "delete":
		runDelete(cfg, log)
	case "report":
		runReport(cfg, log)
	case "reset":
		runReset(cfg, log)
	case "sync-notion":
		runSyncNotion(cfg, log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Ledger Assistant CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  chat         Talk to the assistant")
	fmt.Println("  list         List transactions")
	fmt.Println("  add          Record a transaction")
	fmt.Println("  delete       Delete a transaction by ID")
	fmt.Println("  report       Print a period report")
	fmt.Println("  reset        Reload the demo data")
	fmt.Println("  sync-notion  Mirror the ledger into a Notion database")
	fmt.Println("  help         Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

// openLedger builds the configured ledger and a bus the command can watch.
func openLedger(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*backend.Result, *events.Bus) {
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	bus := events.NewBus(log)
	res, err := backend.Build(ctx, cfg, bus, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize ledger")
	}
	if _, err := res.Ledger.ResetWithSeedData(ctx); err != nil {
		log.Warn().Err(err).Msg("Daily demo reset check failed")
	}
	return res, bus
}

func parseDateFlag(log zerolog.Logger, name, value string) *civil.Date {
	if value == "" {
		return nil
	}
	d, err := civil.ParseDate(value)
	if err != nil {
		log.Fatal().Str(name, value).Msg("Error: invalid date format, expected YYYY-MM-DD")
	}
	return &d
}

func runList(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	start := fs.String("start-date", "", "Only transactions on or after this date (YYYY-MM-DD)")
	end := fs.String("end-date", "", "Only transactions on or before this date (YYYY-MM-DD)")
	kind := fs.String("kind", "", "income or expense")
	category := fs.String("category", "", "Category substring")
	fs.Parse(os.Args[2:])

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	res, _ := openLedger(ctx, cfg, log)
	defer res.Cleanup()

	filter := domain.Filter{
		DateStart: parseDateFlag(log, "start_date", *start),
		DateEnd:   parseDateFlag(log, "end_date", *end),
		Category:  *category,
	}
	if *kind != "" {
		k, ok := domain.ParseKind(*kind)
		if !ok {
			log.Fatal().Str("kind", *kind).Msg("Error: --kind must be income or expense")
		}
		filter.Kind = k
	}

	txs, err := res.Ledger.Query(ctx, filter)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list transactions")
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tTYPE\tCATEGORY\tAMOUNT\tDESCRIPTION\tID")
	for _, tx := range txs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", tx.Date, tx.Kind, tx.Category, policy.FormatCurrency(tx.Amount), tx.Description, tx.ID)
	}
	tw.Flush()
	fmt.Printf("\n%d transaction(s)\n", len(txs))
}

func runAdd(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	date := fs.String("date", "", "Transaction date (YYYY-MM-DD, defaults to today)")
	kind := fs.String("kind", "expense", "income or expense")
	category := fs.String("category", "", "Category (required)")
	amount := fs.Float64("amount", 0, "Positive amount (required)")
	description := fs.String("description", "", "Optional description")
	fs.Parse(os.Args[2:])

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	res, _ := openLedger(ctx, cfg, log)
	defer res.Cleanup()

	d := civil.DateOf(time.Now())
	if parsed := parseDateFlag(log, "date", *date); parsed != nil {
		d = *parsed
	}

	tx, err := res.Ledger.Add(ctx, domain.Draft{
		Date:        d,
		Kind:        domain.Kind(*kind),
		Category:    *category,
		Amount:      *amount,
		Description: *description,
	})
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		for _, f := range verr.Fields {
			fmt.Fprintf(os.Stderr, "  %s: %s\n", f.Field, f.Message)
		}
		log.Fatal().Msg("Transaction rejected")
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to add transaction")
	}

	fmt.Printf("Recorded %s %s %s on %s (id %s)\n", tx.Kind, tx.Category, policy.FormatCurrency(tx.Amount), tx.Date, tx.ID)
}

func runDelete(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	id := fs.String("id", "", "Transaction ID (required)")
	fs.Parse(os.Args[2:])

	if *id == "" {
		log.Fatal().Msg("Error: --id is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	res, _ := openLedger(ctx, cfg, log)
	defer res.Cleanup()

	deleted, err := res.Ledger.Delete(ctx, *id)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to delete transaction")
	}
	if !deleted {
		log.Fatal().Str("id", *id).Msg("Transaction not found")
	}
	fmt.Println("Deleted.")
}

func runReport(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	rangeName := fs.String("range", "month", "week, month, year or custom")
	date := fs.String("date", "", "Reference date (YYYY-MM-DD, defaults to today)")
	start := fs.String("start-date", "", "Custom range start (YYYY-MM-DD)")
	end := fs.String("end-date", "", "Custom range end (YYYY-MM-DD)")
	format := fs.String("format", "text", "text or csv")
	fs.Parse(os.Args[2:])

	rng, err := report.ParseRange(*rangeName)
	if err != nil {
		log.Fatal().Err(err).Msg("Error: invalid --range")
	}
	ref := civil.DateOf(time.Now())
	if d := parseDateFlag(log, "date", *date); d != nil {
		ref = *d
	}
	var startDate, endDate civil.Date
	if d := parseDateFlag(log, "start_date", *start); d != nil {
		startDate = *d
	}
	if d := parseDateFlag(log, "end_date", *end); d != nil {
		endDate = *d
	}
	period, err := report.PeriodFor(rng, ref, startDate, endDate)
	if err != nil {
		log.Fatal().Err(err).Msg("Error: invalid report period")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	res, _ := openLedger(ctx, cfg, log)
	defer res.Cleanup()

	rep, err := report.Generate(ctx, res.Ledger, period)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to generate report")
	}

	switch strings.ToLower(*format) {
	case "csv":
		err = report.RenderCSV(os.Stdout, rep)
	case "text":
		err = report.RenderText(os.Stdout, rep)
	default:
		log.Fatal().Str("format", *format).Msg("Error: --format must be text or csv")
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to render report")
	}
}

func runReset(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("reset", flag.ExitOnError)
	force := fs.Bool("force", false, "Reset even if the ledger was already reset today")
	fs.Parse(os.Args[2:])

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	res, err := backend.Build(ctx, cfg, events.Discard{}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize ledger")
	}
	defer res.Cleanup()

	if *force {
		err = res.Ledger.ForceReset(ctx)
	} else {
		var reset bool
		reset, err = res.Ledger.ResetWithSeedData(ctx)
		if err == nil && !reset {
			fmt.Println("Ledger was already reset today; use --force to reset again.")
			return
		}
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Reset failed")
	}
	fmt.Println("Ledger reset with demo data.")
}

func runSyncNotion(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("sync-notion", flag.ExitOnError)
	notionToken := fs.String("notion-token", cfg.NotionToken, "Notion API token (or set NOTION_TOKEN)")
	notionDBID := fs.String("notion-db-id", cfg.NotionDatabaseID, "Notion database ID (or set NOTION_DATABASE_ID)")
	dryRun := fs.Bool("dry-run", false, "Dry run mode - preview changes without syncing")
	fs.Parse(os.Args[2:])

	if *notionToken == "" {
		log.Fatal().Msg("Error: --notion-token is required")
	}
	if *notionDBID == "" {
		log.Fatal().Msg("Error: --notion-db-id is required")
	}

	// Create context with timeout so CLI doesn't hang
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	res, _ := openLedger(ctx, cfg, log)
	defer res.Cleanup()

	log.Info().Bool("dry_run", *dryRun).Msg("Starting Notion sync")

	syncer := notionsync.NewSyncer(notionsync.NewNotionClient(*notionToken), *notionDBID)
	stats, err := syncer.Sync(ctx, res.Ledger, *dryRun)
	if err != nil {
		log.Fatal().Err(err).Msg("Sync failed")
	}

	fmt.Printf("Sync completed: %d created, %d updated, %d deleted, %d unchanged, %d failed.\n",
		stats.Created, stats.Updated, stats.Deleted, stats.Skipped, stats.Failed)
}
