package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/gradbook-dev/gradbook/internal/config"
	"github.com/gradbook-dev/gradbook/pkg/live"
	"github.com/gradbook-dev/gradbook/pkg/store"
	"github.com/gradbook-dev/gradbook/pkg/verify"
)

func serveCmd() *cobra.Command {
	var (
		port     int
		host     string
		seedFile string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the gradbook server",
		Long: `Start the gradbook server.

Serves the realtime update feed on /live/{gradId}, the password
verification endpoint on /api/verify, and Prometheus metrics on
/metrics.

Examples:
  gradbook serve
  gradbook serve --port=8080
  gradbook serve --seed=testdata/graduations.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(port, host, seedFile)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (default from gradbook.json)")
	cmd.Flags().StringVarP(&host, "host", "H", "", "Host to bind to (default from gradbook.json)")
	cmd.Flags().StringVar(&seedFile, "seed", "", "JSON file of graduations to load at startup")

	return cmd
}

func runServe(port int, host, seedFile string) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	wd, err := os.Getwd()
	if err != nil {
		return err
	}
	cfg, err := config.Load(wd)
	if err != nil {
		return err
	}
	if port != 0 {
		cfg.Port = port
	}
	if host != "" {
		cfg.Host = host
	}
	if seedFile == "" {
		seedFile = cfg.SeedFile
	}

	st := store.NewMemoryStore()
	if seedFile != "" {
		n, err := seedStore(st, seedFile)
		if err != nil {
			return fmt.Errorf("seed %s: %w", seedFile, err)
		}
		logger.Info("seeded store", "file", seedFile, "graduations", n)
	}

	hub := live.NewHub(st, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Mount("/api", verify.Handler(st, logger))
	r.Mount("/live", hub.Routes())
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:         cfg.Address(),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // websocket connections are long-lived
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("gradbook listening", "name", cfg.Name, "addr", cfg.Address())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}

// seedStore loads a JSON array of graduations into the store.
func seedStore(st *store.MemoryStore, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	var grads []store.Graduation
	if err := json.Unmarshal(data, &grads); err != nil {
		return 0, err
	}
	for i := range grads {
		st.Put(&grads[i])
	}
	return len(grads), nil
}
