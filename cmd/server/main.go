// cmd/server/main.go
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/griogair/embedfeed/internal/app"
	"github.com/griogair/embedfeed/internal/config"
	"github.com/griogair/embedfeed/internal/monitoring"
	"github.com/griogair/embedfeed/internal/output"
	"github.com/griogair/embedfeed/internal/utils"
)

var version = "dev"

func main() {
	var (
		addr       = flag.String("addr", ":8080", "listen address")
		dir        = flag.String("dir", "docs", "artifact directory to serve")
		configFile = flag.String("config", "", "harvest config; enables periodic harvesting")
		interval   = flag.Duration("interval", time.Hour, "harvest interval when -config is set")
		logLevel   = flag.String("log-level", "info", "log level (debug, info, warn, error)")
	)
	flag.Parse()

	logger := utils.NewLoggerWithLevel(utils.ParseLogLevel(*logLevel))
	health := monitoring.NewHealth(version)
	metrics := monitoring.NewMetrics(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := output.NewArtifactStore(*dir, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *configFile != "" {
		cfg, err := config.LoadFromFile(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		// serve the directory harvests land in
		if cfg.Output.Directory != store.Dir() {
			store, err = output.NewArtifactStore(cfg.Output.Directory, logger)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
		}
		go harvestLoop(ctx, cfg, metrics, health, logger, *interval)
	}

	router := setupRoutes(store, health)
	server := &http.Server{
		Addr:         *addr,
		Handler:      rateLimitMiddleware(router),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	logger.WithFields(map[string]interface{}{
		"addr": *addr,
		"dir":  store.Dir(),
	}).Info("artifact server listening")

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// harvestLoop runs one harvest immediately and then on every tick until the
// context ends. Each run's outcome feeds the health endpoint.
func harvestLoop(ctx context.Context, cfg *config.Config, metrics *monitoring.Metrics,
	health *monitoring.Health, logger utils.Logger, interval time.Duration) {
	run := func() {
		started := time.Now()
		harvester, err := app.New(cfg, metrics, logger)
		if err != nil {
			health.RecordRun(err)
			logger.WithField("error", err.Error()).Error("harvest setup failed")
			return
		}
		defer harvester.Close()

		summary, err := harvester.Harvest(ctx)
		if err == nil {
			for range summary.Feeds {
				metrics.FeedProcessed()
			}
			for i := 0; i < summary.Failed; i++ {
				metrics.FeedFailed()
			}
			if summary.Failed > 0 {
				err = fmt.Errorf("%d of %d feeds failed", summary.Failed, len(summary.Feeds))
			}
		}
		metrics.RunCompleted(time.Since(started).Seconds())
		health.RecordRun(err)
	}

	run()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run()
		}
	}
}

func setupRoutes(store *output.ArtifactStore, health *monitoring.Health) http.Handler {
	r := mux.NewRouter()

	r.Handle("/health", health).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/feeds", listArtifactsHandler(store)).Methods("GET")
	api.HandleFunc("/feeds/{name}", getArtifactHandler(store)).Methods("GET")

	r.PathPrefix("/").Handler(http.FileServer(http.Dir(store.Dir()))).Methods("GET")

	return r
}

func rateLimitMiddleware(next http.Handler) http.Handler {
	limiter := rate.NewLimiter(rate.Limit(50), 100)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func listArtifactsHandler(store *output.ArtifactStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		names, err := store.List()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if names == nil {
			names = []string{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"feeds": names,
			"total": len(names),
		})
	}
}

func getArtifactHandler(store *output.ArtifactStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := mux.Vars(r)["name"]

		pm, err := store.Load(name)
		if err != nil {
			if utils.CodeOf(err) == utils.ErrCodeArtifactRead {
				http.Error(w, "artifact not found", http.StatusNotFound)
			} else {
				http.Error(w, err.Error(), http.StatusInternalServerError)
			}
			return
		}

		meta := store.LoadMeta(name)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"pages":          pm,
			"items_per_page": meta.ItemsPerPage,
		})
	}
}
