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

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/stevemurr/admit-stats/config"
	"github.com/stevemurr/admit-stats/handler"
	"github.com/stevemurr/admit-stats/logging"
	"github.com/stevemurr/admit-stats/store"
)

var (
	configPath string

	rootCmd = &cobra.Command{
		Use:           "admit-stats",
		Short:         "Serve and update admission statistics per university program",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE:  runServe,
	}

	listCmd = &cobra.Command{
		Use:   "list",
		Short: "Print every program record as JSON",
		RunE:  runList,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")
	rootCmd.AddCommand(serveCmd, listCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// setup loads configuration and opens the store it names.
func setup() (*config.Config, zerolog.Logger, *store.Store, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Nop(), nil, err
	}
	log := logging.New(cfg.Logging())

	b, err := store.Open(cfg.Store.Backend, cfg.Store.Path)
	if err != nil {
		return nil, log, nil, fmt.Errorf("failed to open store (backend=%s): %w", cfg.Store.Backend, err)
	}
	return cfg, log, store.New(b, log), nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, s, err := setup()
	if err != nil {
		return err
	}
	defer s.Close()

	// Warm the cache; a missing file is reported but does not stop the server.
	if t, err := s.Load(); err == nil {
		log.Info().Int("records", t.Len()).Msg("table loaded")
	}

	h := handler.New(s, log, handler.Options{
		CORSOrigins:       cfg.CORS.Origins,
		RateLimitRequests: cfg.RateLimit.Requests,
		RateLimitWindow:   cfg.RateLimit.Window,
		RateLimitDisabled: cfg.RateLimit.Disabled,
	})
	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", srv.Addr).
			Str("store", cfg.Store.Backend).
			Str("path", cfg.Store.Path).
			Msg("admit-stats server starting")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	_, _, s, err := setup()
	if err != nil {
		return err
	}
	defer s.Close()

	t, err := s.Load()
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(t.Records)
}
