package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/nekogravitycat/room-booking-backend/internal/app"
	"github.com/nekogravitycat/room-booking-backend/internal/auth"
	"github.com/nekogravitycat/room-booking-backend/internal/config"
	"github.com/nekogravitycat/room-booking-backend/internal/db"
	"github.com/nekogravitycat/room-booking-backend/internal/reservation"
	"github.com/nekogravitycat/room-booking-backend/internal/user"
)

func main() {
	c := cli.NewApp()
	c.Name = "room-booking"
	c.Usage = "meeting room reservation API"
	c.Flags = []cli.Flag{
		&cli.StringSliceFlag{
			Name:    "env-file",
			Usage:   "dotenv files to load before reading the environment",
			EnvVars: []string{"ENV_FILE"},
		},
	}
	c.Action = serve
	c.Commands = []*cli.Command{
		{
			Name:   "serve",
			Usage:  "run the HTTP server and the completion sweeper",
			Action: serve,
		},
		{
			Name:   "migrate",
			Usage:  "apply the database schema",
			Action: migrate,
		},
		{
			Name:  "grant-admin",
			Usage: "promote an existing user to system admin",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "email", Required: true},
			},
			Action: grantAdmin,
		},
	}

	if err := c.Run(os.Args); err != nil {
		logrus.WithError(err).Fatal("exiting")
	}
}

func setup(c *cli.Context) (*config.Config, *logrus.Logger, error) {
	cfg, err := config.Load(c.StringSlice("env-file")...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := logrus.StandardLogger()
	if err := configureLogger(logger, cfg.LogLevel, cfg.LogFormat); err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// configureLogger applies level and format to logger, leaving it untouched on error.
func configureLogger(logger *logrus.Logger, level, format string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	logger.SetLevel(lvl)
	if format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return nil
}

// openPool connects to Postgres unless memory storage is configured, in which case it returns nil.
func openPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	if cfg.Storage == config.StorageMemory {
		return nil, nil
	}
	pool, err := db.NewPool(ctx, cfg.DBDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to db: %w", err)
	}
	return pool, nil
}

// requirePostgres rejects commands that only make sense against a database.
func requirePostgres(cfg *config.Config, command string) error {
	if cfg.Storage == config.StorageMemory {
		return fmt.Errorf("%s requires STORAGE=%s", command, config.StoragePostgres)
	}
	return nil
}

func serve(c *cli.Context) error {
	// For receiving Ctrl+C / SIGTERM
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, logger, err := setup(c)
	if err != nil {
		return err
	}

	pool, err := openPool(ctx, cfg)
	if err != nil {
		return err
	}
	if pool != nil {
		defer pool.Close()
	}

	container, err := app.NewContainer(ctx, cfg, pool, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := container.Close(); err != nil {
			logger.WithError(err).Warn("container close failed")
		}
	}()

	sweepDone := make(chan struct{})
	go func() {
		defer close(sweepDone)
		runCompletionSweeper(ctx, container.Reservations, cfg.CompletionSweepInterval, logger.WithField("component", "sweeper"))
	}()

	// Use http.Server for graceful shutdown
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           container.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.WithField("addr", cfg.HTTPAddr).Info("server running")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			stop()
			<-sweepDone
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("server forced to shutdown")
	}
	<-sweepDone

	logger.Info("server exited gracefully")
	return nil
}

// runCompletionSweeper marks ended reservations Completed every interval until ctx is done.
// A non-positive interval disables it.
func runCompletionSweeper(ctx context.Context, svc reservation.Service, interval time.Duration, log *logrus.Entry) {
	if interval <= 0 {
		log.Info("completion sweeper disabled")
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := svc.CompleteEnded(ctx)
			if err != nil && ctx.Err() == nil {
				log.WithError(err).Error("completion sweep failed")
				continue
			}
			if n > 0 {
				log.WithField("completed", n).Info("completion sweep finished")
			}
		}
	}
}

func migrate(c *cli.Context) error {
	cfg, logger, err := setup(c)
	if err != nil {
		return err
	}
	if err := requirePostgres(cfg, "migrate"); err != nil {
		return err
	}

	pool, err := db.NewPool(c.Context, cfg.DBDSN)
	if err != nil {
		return fmt.Errorf("failed to connect to db: %w", err)
	}
	defer pool.Close()

	if err := db.Migrate(c.Context, pool); err != nil {
		return err
	}
	logger.Info("schema applied")
	return nil
}

func grantAdmin(c *cli.Context) error {
	cfg, logger, err := setup(c)
	if err != nil {
		return err
	}
	if err := requirePostgres(cfg, "grant-admin"); err != nil {
		return err
	}

	pool, err := db.NewPool(c.Context, cfg.DBDSN)
	if err != nil {
		return fmt.Errorf("failed to connect to db: %w", err)
	}
	defer pool.Close()

	users := user.NewService(user.NewPgxRepository(pool), auth.NewBcryptPasswordHasher(cfg.BcryptCost), logrus.NewEntry(logger))
	u, err := users.GrantAdmin(c.Context, c.String("email"))
	if err != nil {
		return err
	}
	logger.WithFields(logrus.Fields{"user_id": u.ID, "email": u.Email}).Info("user is now a system admin")
	return nil
}
