package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/clubgate/board"
	"github.com/clubgate/board/migrations"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

func main() {
	lgr := glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithLevel(glog.Info),
		glog.WithName("boardd"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(errors.ToSlogAttributes),
	)
	logger := lgr.GetLogger("app")

	// .env keeps local development honest about which secrets exist
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Warn("could not read .env file", "error", err)
	}

	cfg := LoadConfig()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := openDatabase(ctx, cfg)
	if err != nil {
		logger.Error("database bootstrap failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	repo := board.NewRepositoryManager(db)
	if err := repo.Validate(); err != nil {
		logger.Error("repository wiring invalid", "error", err)
		os.Exit(1)
	}

	provider := board.NewUserProvider(repo.Users()).
		WithLogger(lgr.GetLogger("auth"))

	sessions := board.NewSessionManager(repo.Sessions(), provider, cfg.SessionSecret).
		WithTTL(time.Duration(cfg.SessionTTLHours) * time.Hour).
		WithLogger(lgr.GetLogger("sessions"))

	verifier := board.NewVerifier(cfg.ClubPasscode, repo.Users()).
		WithLogger(lgr.GetLogger("verify"))

	controller := board.NewBoardController(
		board.WithRepository(repo),
		board.WithSessionManager(sessions),
		board.WithVerifier(verifier),
		board.WithControllerLogger(lgr.GetLogger("http")),
	)
	controller.Debug = cfg.Debug

	app := fiber.New(fiber.Config{
		AppName:      "clubgate board",
		ErrorHandler: controller.ErrorHandler,
	})

	board.RegisterBoardRoutes(app, controller)

	go pruneSessions(ctx, repo, lgr.GetLogger("sessions"))

	go func() {
		logger.Info("app listening", "addr", cfg.HTTPAddr)
		if err := app.Listen(cfg.HTTPAddr); err != nil {
			logger.Error("server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	logger.Info("bye")
}

func openDatabase(ctx context.Context, cfg *Config) (*bun.DB, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.DatabaseDSN)))
	db := bun.NewDB(sqldb, pgdialect.New())

	if err := db.PingContext(ctx); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "database unreachable")
	}

	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "goose dialect")
	}
	if err := goose.UpContext(ctx, sqldb, "."); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "migrations failed")
	}

	return db, nil
}

// pruneSessions clears expired session rows so the table does not grow
// without bound. Restore already treats expired rows as anonymous; this is
// purely housekeeping.
func pruneSessions(ctx context.Context, repo board.RepositoryManager, logger glog.Logger) {
	store, ok := repo.Sessions().(*board.SessionsRepository)
	if !ok {
		return
	}

	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.PruneExpired(ctx, time.Now())
			if err != nil {
				logger.Warn("session prune failed", "error", err)
				continue
			}
			if n > 0 {
				logger.Debug("pruned sessions", "count", n)
			}
		}
	}
}
