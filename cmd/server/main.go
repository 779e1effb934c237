package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/chapterelect/elections/internal/adapters/handler/http"
	"github.com/chapterelect/elections/internal/adapters/notification"
	"github.com/chapterelect/elections/internal/adapters/repository/postgres"
	"github.com/chapterelect/elections/internal/config"
	"github.com/chapterelect/elections/internal/core/credential"
	"github.com/chapterelect/elections/internal/core/services"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

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
	ballotRepo := postgres.NewBallotRepository(db)
	resultsRepo := postgres.NewResultsRepository(db)
	rosterRepo := postgres.NewRosterRepository(db)

	notifier := notification.NewLogNotifier(logger)

	electionService := services.NewElectionService(electionRepo, logger)
	linkService := services.NewLinkService(codec, linkRepo, electionRepo, rosterRepo, notifier, logger)
	ballotService := services.NewBallotService(linkService, ballotRepo, logger)
	resultsService := services.NewResultsService(electionRepo, resultsRepo, linkRepo, rosterRepo, cfg.ResultPrecision, logger)

	handler := http.NewHandler(
		[]byte(cfg.JWTSecret),
		http.NewElectionHandler(electionService),
		http.NewLinkHandler(linkService),
		http.NewBallotHandler(linkService, ballotService),
		http.NewResultsHandler(resultsService),
	)
	server := &stdhttp.Server{Addr: cfg.HTTPAddr, Handler: handler}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("server listening", "addr", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("gracefully shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "error", err)
		os.Exit(1)
	}
}
