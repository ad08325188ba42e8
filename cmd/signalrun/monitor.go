package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/sawpanic/signalrun/internal/data/cache"
	httpiface "github.com/sawpanic/signalrun/internal/interfaces/http"
	"github.com/sawpanic/signalrun/internal/scan"
)

func newMonitorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Serve health, metrics, and live signals over HTTP",
		Long: `Runs the scanner on an interval and serves the read-only monitor:
/health, /metrics, /signals/latest, /signals/{symbol}, and the /ws/signals
websocket stream.`,
		RunE: runMonitor,
	}
	addDataFlags(cmd.Flags())
	cmd.Flags().Duration("interval", time.Minute, "Scan interval")
	cmd.Flags().String("addr", "", "Listen address (overrides config)")
	return cmd
}

func runMonitor(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	cfg, err := loadConfig(cmd.Flags())
	if err != nil {
		return err
	}
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.Monitor.Addr = addr
	}
	interval, _ := cmd.Flags().GetDuration("interval")

	src, err := buildSource(cfg)
	if err != nil {
		return err
	}
	selector, err := loadSelector(cfg)
	if err != nil {
		return err
	}

	store := cache.NewSignalStore(cache.New(cfg.Data.RedisAddr), cfg.Data.CacheTTL)
	server := httpiface.NewServer(httpiface.ServerConfig{
		Addr:         cfg.Monitor.Addr,
		ReadTimeout:  cfg.Monitor.ReadTimeout,
		WriteTimeout: cfg.Monitor.WriteTimeout,
		Version:      version,
	}, nil, store)

	scanner := scan.New(src, selector, store, server.Hub(), server.Metrics())
	go scanner.Run(ctx, interval)

	return server.Start(ctx)
}
