package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"homescreen/internal/config"
	"homescreen/internal/handler"
	"homescreen/internal/service"
)

// rootOptions holds the flags shared by every command
type rootOptions struct {
	config string
	addr   string
	debug  bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:          "homescreen",
		Short:        "Serve a dashboard with a fixed home-screen identity",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}
	rootCmd.PersistentFlags().StringVar(&opts.config, "config", "", "config file (default: search "+config.ConfigFileName+")")
	rootCmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logging")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the host page, injector and manifest",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}
	for _, c := range []*cobra.Command{rootCmd, serveCmd} {
		c.Flags().StringVar(&opts.addr, "addr", "", "HTTP listen address (overrides config)")
	}

	rootCmd.AddCommand(serveCmd, newPinCmd(opts), newConfigCmd())
	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads --config or the search path, then environment overrides
func loadConfig(opts *rootOptions) (*config.Config, string, error) {
	if opts.config == "" {
		return config.Load()
	}
	cfg, path, err := config.LoadFromPath(opts.config)
	if err != nil {
		return nil, path, err
	}
	if err := cfg.ApplyEnv(nil); err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

func newLogger(c config.LogConfig, debug bool) *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
	})

	level, err := log.ParseLevel(c.Level)
	if err != nil {
		level = log.InfoLevel
	}
	if debug {
		level = log.DebugLevel
	}
	logger.SetLevel(level)

	switch strings.ToLower(c.Formatter) {
	case "json":
		logger.SetFormatter(log.JSONFormatter)
	case "logfmt":
		logger.SetFormatter(log.LogfmtFormatter)
	default:
		logger.SetFormatter(log.TextFormatter)
	}
	return logger
}

func runServe(cmd *cobra.Command, opts *rootOptions) error {
	cfg, path, err := loadConfig(opts)
	if err != nil {
		return err
	}
	if opts.addr != "" {
		cfg.Server.Addr = opts.addr
	}

	logger := newLogger(cfg.Log, opts.debug)
	if path != "" {
		logger.Info("Config loaded", "path", path)
	}
	logger.Info("Starting homescreen", "summary", cfg.Summary())

	page, err := cfg.PageConfig()
	if err != nil {
		return err
	}

	startURL := "/"
	if cfg.Page.UpstreamURL != "" {
		startURL = handler.ProxyPrefix
	}
	svc := service.NewIdentityService(page, service.Options{
		RetryDelay:   cfg.Injector.RetryDelay.Duration(),
		DashboardURL: cfg.Page.DashboardURL,
		StartURL:     startURL,
	}, logger)

	mux := http.NewServeMux()
	handler.NewIdentityHandler(svc, logger).Register(mux)

	if cfg.Page.UpstreamURL != "" {
		proxy, err := handler.NewUpstreamProxy(cfg.Page.UpstreamURL, svc, logger)
		if err != nil {
			return err
		}
		proxy.Register(mux)
		logger.Info("Proxying upstream", "prefix", handler.ProxyPrefix, "upstream", cfg.Page.UpstreamURL)
	}

	finalHandler := handler.Chain(mux,
		handler.Recover(logger),
		handler.CORS,
		handler.Logger(logger),
	)

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      finalHandler,
		ReadTimeout:  cfg.Server.ReadTimeout.Duration(),
		WriteTimeout: cfg.Server.WriteTimeout.Duration(),
		IdleTimeout:  cfg.Server.IdleTimeout.Duration(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server listening", "addr", cfg.Server.Addr)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "err", err)
		return err
	}

	logger.Info("Server stopped")
	return nil
}
