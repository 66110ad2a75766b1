package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mind-engage/mindengage-norms/internal/config"
	"github.com/mind-engage/mindengage-norms/internal/db"
	"github.com/mind-engage/mindengage-norms/internal/norms"
)

var (
	// Global flags
	verbose    bool
	configPath string
	memoryFile string

	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "normsctl",
	Short: "Administer normative tables and score protocols offline",
	Long: `normsctl populates normative tables from YAML, lists what is active and
scores a single protocol without going through the HTTP API.

The database comes from the same configuration as normsd (NORMS_CONFIG or
--config, then NORMS_* environment variables). With --memory the tables are
loaded from a YAML file into process memory instead.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := zap.NewProductionConfig()
		cfg.Encoding = "console"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
		if verbose {
			cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = cfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", os.Getenv("NORMS_CONFIG"), "YAML configuration file")

	seedCmd.Flags().StringVarP(&seedFile, "file", "f", "", "YAML file with normative tables")
	_ = seedCmd.MarkFlagRequired("file")

	scoreCmd.Flags().StringVarP(&queryFile, "file", "f", "-", "JSON scoring query (- reads stdin)")
	scoreCmd.Flags().StringVar(&memoryFile, "memory", "", "score against tables loaded from this YAML file")

	tablesCmd.Flags().StringVarP(&tablesInstrument, "instrument", "i", "", "instrument to list")
	tablesCmd.Flags().StringVar(&memoryFile, "memory", "", "list tables loaded from this YAML file")
	_ = tablesCmd.MarkFlagRequired("instrument")

	rootCmd.AddCommand(seedCmd, scoreCmd, tablesCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// openStore returns the store commands work against: an in-memory store
// seeded from --memory, or the configured database.
func openStore(ctx context.Context) (norms.AdminStore, func(), error) {
	if memoryFile != "" {
		specs, err := norms.LoadSpecs(memoryFile)
		if err != nil {
			return nil, nil, err
		}
		s := norms.NewMemoryStore()
		if _, err := norms.Seed(ctx, s, specs); err != nil {
			return nil, nil, err
		}
		logger.Debug("loaded in-memory tables", zap.String("file", memoryFile), zap.Int("tables", len(specs)))
		return s, func() {}, nil
	}

	cfg, err := config.LoadFile(ctx, configPath)
	if err != nil {
		return nil, nil, err
	}
	driver, err := db.ParseDriver(cfg.DBDriver)
	if err != nil {
		return nil, nil, err
	}
	openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	dbh, err := db.Open(openCtx, driver, cfg.DBDSN)
	if err != nil {
		return nil, nil, err
	}
	logger.Debug("opened database", zap.String("driver", string(driver)))
	return norms.NewSQLStore(dbh), func() { _ = dbh.Close() }, nil
}
