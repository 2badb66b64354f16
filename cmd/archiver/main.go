// Command archiver is a standalone operator tool for triggering archival
// runs outside the daily scheduler, generalized from the teacher's
// cmd/worker pattern of a second slim binary sharing the server's internal
// packages instead of duplicating wiring.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/bakeryhq/ops-backend/internal/adapter/observability"
	"github.com/bakeryhq/ops-backend/internal/config"
	"github.com/bakeryhq/ops-backend/internal/repo/postgres"
	"github.com/bakeryhq/ops-backend/internal/usecase"
)

func main() {
	var (
		branchID  int64
		actorID   int64
		scheduled bool
		phrase    string
	)
	flag.Int64Var(&branchID, "branch", 0, "branch id to archive")
	flag.Int64Var(&actorID, "actor", 0, "id of the staff account approving this run (manual mode only)")
	flag.BoolVar(&scheduled, "scheduled", false, "run the scheduled sweep instead of a manual confirmed run")
	flag.StringVar(&phrase, "confirm", "", "confirmation phrase, required for manual runs; read from stdin if omitted")
	flag.Parse()

	if branchID == 0 {
		fmt.Fprintln(os.Stderr, "-branch is required")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("db connect failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	runner := postgres.NewRunner(pool)
	lock := postgres.NewAdvisoryLock(pool)
	settings := postgres.NewArchiveSettingsRepo(pool)
	runs := postgres.NewArchiveRunRepo(pool)
	archiveSvc := usecase.NewArchiveService(runner, lock, settings, runs)

	if scheduled {
		outcome, err := archiveSvc.RunScheduled(ctx, branchID)
		if err != nil {
			slog.Error("scheduled archive run failed", slog.Any("error", err))
			os.Exit(1)
		}
		printOutcome(outcome)
		return
	}

	if actorID == 0 {
		fmt.Fprintln(os.Stderr, "-actor is required for a manual run")
		os.Exit(2)
	}
	if phrase == "" {
		phrase = readPhraseFromStdin()
	}

	outcome, err := archiveSvc.RunManual(ctx, branchID, actorID, phrase)
	if err != nil {
		slog.Error("manual archive run failed", slog.Any("error", err))
		os.Exit(1)
	}
	printOutcome(outcome)
}

func readPhraseFromStdin() string {
	fmt.Fprint(os.Stderr, "confirmation phrase: ")
	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		return ""
	}
	return strings.TrimSpace(scanner.Text())
}

func printOutcome(outcome usecase.ArchiveRunOutcome) {
	fmt.Printf("status=%s cutoff=%s\n", outcome.Run.Status, outcome.Run.CutoffAt.Format("2006-01-02"))
	for table, n := range outcome.Counts {
		fmt.Printf("  %s: %d rows\n", table, n)
	}
}
