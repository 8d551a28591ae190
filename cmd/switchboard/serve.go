package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/git-pkgs/switchboard"
	_ "github.com/git-pkgs/switchboard/all"
	"github.com/git-pkgs/switchboard/internal/config"
	"github.com/git-pkgs/switchboard/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile, cmd.Flags())
			if err != nil {
				return err
			}
			log, err := logging.New(cfg.Log.Format, cfg.Log.Level)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			return serve(cmd.Context(), cfg, log)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&configFile, "config", "c", "", "path to a config file (default ./switchboard.yaml if present)")
	f.String("host", "", "interface to listen on")
	f.IntP("port", "p", 7000, "port to listen on")
	f.Bool("warmup", true, "fetch every source once before serving")
	f.String("log-format", "json", "log format: json or console")
	f.String("log-level", "info", "log level")
	f.String("cache-dir", "./cache", "directory for git working copies and metadata documents")
	f.Duration("cache-ttl", time.Hour, "default cache lifetime of upstream data")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := switchboard.NewService(cfg, log)
	if err != nil {
		return err
	}
	defer svc.Close()

	if cfg.Server.Warmup {
		// Failures leave the affected sources to load on first request.
		if err := svc.Warmup(ctx); err != nil {
			log.Error("warmup failed", zap.Error(err))
		}
	}

	log.Info("switchboard is running", zap.String("addr", cfg.Addr()))
	return svc.Run(ctx)
}
