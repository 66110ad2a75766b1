package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	api "github.com/mind-engage/mindengage-norms/internal/api/http"
	auth "github.com/mind-engage/mindengage-norms/internal/auth/middleware"
	"github.com/mind-engage/mindengage-norms/internal/config"
	"github.com/mind-engage/mindengage-norms/internal/db"
	"github.com/mind-engage/mindengage-norms/internal/metrics"
	"github.com/mind-engage/mindengage-norms/internal/norms"
	"github.com/mind-engage/mindengage-norms/internal/rbac"
	"github.com/mind-engage/mindengage-norms/internal/scoring"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(2)
	}
	logger, err := cfg.Logger()
	if err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(2)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("normsd stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	// --- DB ---
	driver, err := db.ParseDriver(cfg.DBDriver)
	if err != nil {
		return err
	}
	openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	dbh, err := db.Open(openCtx, driver, cfg.DBDSN)
	if err != nil {
		return err
	}
	defer dbh.Close()
	store := norms.NewSQLStore(dbh)

	if cfg.SeedFile != "" {
		specs, err := norms.LoadSpecs(cfg.SeedFile)
		if err != nil {
			return err
		}
		tables, err := norms.Seed(ctx, store, specs)
		if err != nil {
			return err
		}
		logger.Info("seeded normative tables", zap.String("file", cfg.SeedFile), zap.Int("tables", len(tables)))
	}

	m := metrics.NewManager(metrics.WithMetricsEnabled(cfg.MetricsEnabled))
	engine := scoring.NewEngine(store, scoring.WithLogger(logger), scoring.WithObserver(m))

	deps := api.Deps{
		Scorer: engine,
		Store:  store,
		Auth:   auth.NewAuthService(cfg.AuthHMACSecret, cfg.TokenTTL),
		Accounts: auth.NewAccounts(
			auth.Account{Username: cfg.AdminUser, PassHash: cfg.AdminPassHash, Role: rbac.RoleAdmin},
			auth.Account{Username: cfg.ExaminerUser, PassHash: cfg.ExaminerPassHash, Role: rbac.RoleExaminer},
		),
		Log:         logger,
		CORSOrigins: cfg.CORSOrigins(),
	}
	if cfg.MetricsEnabled {
		deps.Metrics = m
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.HTTPAddr),
			zap.String("mode", string(cfg.Mode)), zap.String("db", cfg.DBDriver))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	logger.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}
