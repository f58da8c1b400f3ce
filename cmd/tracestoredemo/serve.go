package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/kolkov/tracestore/internal/tracestore/metrics"
)

var serveFlags struct {
	addr       string
	workers    int
	sampleRate uint64
}

func init() {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve Prometheus metrics while running the simulate workload in the background",
		Long: `serve starts an HTTP server exposing /metrics via promhttp, mirroring
the observability example's promhttp.Handler() wiring, while a simulate
workload runs continuously in the background until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
	cmd.Flags().StringVar(&serveFlags.addr, "addr", ":2112", "address to serve /metrics on")
	cmd.Flags().IntVar(&serveFlags.workers, "workers", 4, "number of concurrent sampling goroutines")
	cmd.Flags().Uint64Var(&serveFlags.sampleRate, "sample-rate", 1, "fire 1 in N ticks (1 = every tick)")
	rootCmd.AddCommand(cmd)
}

func runServe() error {
	observer := metrics.NewPrometheusObserver()
	store, err := newStore(observer)
	if err != nil {
		return err
	}
	defer store.Close()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(observer.Registry(), promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: serveFlags.addr, Handler: mux}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		log.WithField("addr", serveFlags.addr).Info("serving /metrics")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("metrics server stopped unexpectedly")
			cancel()
		}
	}()

	go func() {
		for ctx.Err() == nil {
			runWorkload(store, serveFlags.workers, time.Second, serveFlags.sampleRate)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
		log.Info("shutting down")
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	return srv.Shutdown(shutdownCtx)
}
