package observability

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for scraping and QA. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	FetchAttempts   *prometheus.CounterVec
	FetchDuration   *prometheus.HistogramVec
	HostChecks      *prometheus.CounterVec
	ArticlesScraped *prometheus.CounterVec
	SourcesFailed   *prometheus.CounterVec
	QALookups       *prometheus.CounterVec

	logger *slog.Logger
}

// NewMetrics creates the collectors and registers them on a private registry.
func NewMetrics(logger *slog.Logger) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		FetchAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medfeed",
			Name:      "fetch_attempts_total",
			Help:      "Fetch attempts by strategy and outcome.",
		}, []string{"strategy", "outcome"}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "medfeed",
			Name:      "fetch_duration_seconds",
			Help:      "Duration of single fetch attempts.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"strategy"}),
		HostChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medfeed",
			Name:      "host_checks_total",
			Help:      "Host availability checks by verdict and cache use.",
		}, []string{"reachable", "cached"}),
		ArticlesScraped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medfeed",
			Name:      "articles_scraped_total",
			Help:      "Articles successfully built, by source.",
		}, []string{"source"}),
		SourcesFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medfeed",
			Name:      "sources_failed_total",
			Help:      "Sources that produced no article, by source.",
		}, []string{"source"}),
		QALookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medfeed",
			Name:      "qa_lookups_total",
			Help:      "QA lookups by result (hit, miss, generated).",
		}, []string{"result"}),
		logger: logger.With("component", "metrics"),
	}

	m.registry.MustRegister(
		m.FetchAttempts,
		m.FetchDuration,
		m.HostChecks,
		m.ArticlesScraped,
		m.SourcesFailed,
		m.QALookups,
		collectors.NewGoCollector(),
	)
	return m
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveFetch records one fetch attempt.
func (m *Metrics) ObserveFetch(strategy, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.FetchAttempts.WithLabelValues(strategy, outcome).Inc()
	m.FetchDuration.WithLabelValues(strategy).Observe(d.Seconds())
}

// ObserveHostCheck records one host availability verdict.
func (m *Metrics) ObserveHostCheck(reachable, cached bool) {
	if m == nil {
		return
	}
	m.HostChecks.WithLabelValues(boolLabel(reachable), boolLabel(cached)).Inc()
}

// ObserveSource records the final result for one source.
func (m *Metrics) ObserveSource(source string, ok bool) {
	if m == nil {
		return
	}
	if ok {
		m.ArticlesScraped.WithLabelValues(source).Inc()
		return
	}
	m.SourcesFailed.WithLabelValues(source).Inc()
}

// ObserveQA records one QA lookup result.
func (m *Metrics) ObserveQA(result string) {
	if m == nil {
		return
	}
	m.QALookups.WithLabelValues(result).Inc()
}

// Serve exposes the metrics on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr, path string) error {
	mux := http.NewServeMux()
	mux.Handle(path, m.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	m.logger.Info("metrics server starting", "addr", addr, "path", path)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
