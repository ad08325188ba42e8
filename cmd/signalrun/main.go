package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/sawpanic/signalrun/internal/config"
	"github.com/sawpanic/signalrun/internal/data/postgres"
	"github.com/sawpanic/signalrun/internal/data/source"
	"github.com/sawpanic/signalrun/internal/domain/bars"
	"github.com/sawpanic/signalrun/internal/domain/regime"
	applog "github.com/sawpanic/signalrun/internal/log"
	"github.com/sawpanic/signalrun/internal/net/ratelimit"
)

const (
	appName = "signalrun"
	version = "v1.2.0"
)

var (
	flagConfig   string
	flagLogLevel string
)

func main() {
	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Regime-adaptive signal engine and deterministic backtester",
		Version: version,
		Long: `signalrun scores price-bar histories into directional signals with
regime-conditioned indicator weights, replays those signals through a
deterministic trade simulator, and trains the per-regime weight map from
history.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			applog.Setup(flagLogLevel)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "config/signalrun.yaml", "Path to the YAML configuration file")
	pf.StringVar(&flagLogLevel, "log-level", "info", "Log level (trace|debug|info|warn|error)")

	rootCmd.AddCommand(newBacktestCmd())
	rootCmd.AddCommand(newTrainCmd())
	rootCmd.AddCommand(newScanCmd())
	rootCmd.AddCommand(newMonitorCmd())

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

// addDataFlags registers the bar-source flags shared by every subcommand.
func addDataFlags(fs *pflag.FlagSet) {
	fs.String("data", "", "Directory of per-symbol CSV bar files (overrides config)")
	fs.String("weights", "", "Trained weight map artifact (overrides config)")
}

// loadConfig reads the config file and applies the shared flag overrides.
func loadConfig(fs *pflag.FlagSet) (config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return config.Config{}, err
	}
	if dir, _ := fs.GetString("data"); dir != "" {
		cfg.Data.CSVDir = dir
	}
	if path, _ := fs.GetString("weights"); path != "" {
		cfg.Weights.Path = path
	}
	if flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}
	return cfg, nil
}

// buildSource assembles the guarded bar source: Postgres when a DSN is
// configured, the CSV directory otherwise.
func buildSource(cfg config.Config) (source.BarSource, error) {
	limiter := ratelimit.NewLimiter(cfg.Data.RateLimit, cfg.Data.RateBurst)

	if cfg.Data.PostgresDSN != "" {
		db, err := postgres.Open(cfg.Data.PostgresDSN)
		if err != nil {
			return nil, err
		}
		repo := postgres.NewBarRepo(db, 30*time.Second)
		return source.NewGuarded(source.NewStoreSource(repo), limiter), nil
	}

	src, err := source.NewCSVSource(cfg.Data.CSVDir)
	if err != nil {
		return nil, err
	}
	return source.NewGuarded(src, limiter), nil
}

// loadHistories pulls every instrument's bars through the guarded source.
func loadHistories(ctx context.Context, cfg config.Config) (map[string][]bars.Bar, error) {
	src, err := buildSource(cfg)
	if err != nil {
		return nil, err
	}
	return source.LoadAll(ctx, src)
}

// loadSelector builds the weight selector from the trained artifact, or the
// static defaults when no artifact exists yet.
func loadSelector(cfg config.Config) (*regime.Selector, error) {
	m, err := config.LoadWeightMap(cfg.Weights.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Info().Str("path", cfg.Weights.Path).Msg("no trained weights, using defaults")
			return regime.NewSelector(regime.DefaultWeightMap())
		}
		return nil, err
	}
	log.Info().Str("path", cfg.Weights.Path).Int("regimes", len(m.Regimes)).Msg("trained weights loaded")
	return regime.NewSelector(m)
}

// signalContext cancels on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func printf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stdout, format, args...)
}
