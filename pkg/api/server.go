// Package api serves scan progress over HTTP while a long carving run is in
// flight: Prometheus metrics, a liveness check and a JSON stats snapshot.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/msuhanov/winmem-decompress/pkg/carve"
)

// StatsFunc returns the current pipeline counters.
type StatsFunc func() carve.Stats

// Handler builds the progress router.
func Handler(reg *prometheus.Registry, stats StatsFunc) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	// Prometheus metrics endpoint
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/stats", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(stats()); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})

	return r
}

// Serve listens on addr in the background. The carving run does not depend
// on the server; a listen failure is reported on the returned channel and
// otherwise ignored.
func Serve(addr string, reg *prometheus.Registry, stats StatsFunc) <-chan error {
	errs := make(chan error, 1)
	go func() {
		errs <- http.ListenAndServe(addr, Handler(reg, stats))
	}()
	return errs
}
