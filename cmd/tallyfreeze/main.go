// tallyfreeze is a maintenance job: it re-derives the cached tally rows for
// every active election and expires overdue voting links. Frozen snapshots
// are never touched.
package main

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"time"

	_ "github.com/lib/pq"

	"github.com/chapterelect/elections/internal/adapters/notification"
	"github.com/chapterelect/elections/internal/adapters/repository/postgres"
	"github.com/chapterelect/elections/internal/config"
	"github.com/chapterelect/elections/internal/core/credential"
	"github.com/chapterelect/elections/internal/core/services"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	db, err := sql.Open("postgres", cfg.PostgresDSN())
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Error("failed to reach database", "error", err)
		os.Exit(1)
	}

	codec, err := credential.NewCodec([]byte(cfg.CredentialSecret))
	if err != nil {
		logger.Error("failed to build credential codec", "error", err)
		os.Exit(1)
	}

	electionRepo := postgres.NewElectionRepository(db)
	linkRepo := postgres.NewLinkRepository(db)
	resultsRepo := postgres.NewResultsRepository(db)
	rosterRepo := postgres.NewRosterRepository(db)

	summaryService := services.NewSummaryService(resultsRepo)
	linkService := services.NewLinkService(codec, linkRepo, electionRepo, rosterRepo, notification.NewLogNotifier(logger), logger)

	// Bounded run time so a stuck job cannot pile up behind its schedule.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	logger.Info("starting tally refresh")
	if err := summaryService.RefreshAllTallies(ctx); err != nil {
		logger.Error("tally refresh failed", "error", err)
		os.Exit(1)
	}

	expired, err := linkService.ExpireOverdue(ctx)
	if err != nil {
		logger.Error("link expiry sweep failed", "error", err)
		os.Exit(1)
	}

	logger.Info("tally refresh completed", "links_expired", expired)
}
