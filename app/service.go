// Package app wires configuration, storage, audit and metrics into the
// running ledger service.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kilianp07/worklog/api"
	"github.com/kilianp07/worklog/config"
	"github.com/kilianp07/worklog/core/audit"
	"github.com/kilianp07/worklog/core/fleet"
	"github.com/kilianp07/worklog/core/ledger"
	coremetrics "github.com/kilianp07/worklog/core/metrics"
	coremon "github.com/kilianp07/worklog/core/monitoring"
	"github.com/kilianp07/worklog/core/report"
	infraaudit "github.com/kilianp07/worklog/infra/audit"
	"github.com/kilianp07/worklog/infra/audit/sqlstore"
	"github.com/kilianp07/worklog/infra/logger"
	"github.com/kilianp07/worklog/infra/metrics"
	"github.com/kilianp07/worklog/infra/monitoring"
	"github.com/kilianp07/worklog/infra/store"
)

const shutdownTimeout = 10 * time.Second

// Service owns every long lived resource of the ledger.
type Service struct {
	cfg     *config.Config
	log     logger.Logger
	backend *store.Backend
	emitter *audit.Emitter
	sinks   audit.Sink
	history audit.Reader
	metrics coremetrics.MetricsSink
	prom    *metrics.PromServer
	acc     *ledger.Accumulator
	reader  *ledger.Reader
	reports *report.Builder
	server  *http.Server
	closers []io.Closer
}

// New creates a Service from the configuration. It opens the store and the
// audit sinks but does not listen until Run.
func New(cfg *config.Config) (*Service, error) {
	if err := logger.SetLevel(cfg.Logging.Level); err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	log := logger.New("service")

	mon, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, fmt.Errorf("sentry: %w", err)
	}
	coremon.Init(mon)

	backend, err := store.Open(context.Background(), cfg.Store)
	if err != nil {
		return nil, err
	}
	s := &Service{cfg: cfg, log: log, backend: backend}
	if err := s.wire(); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Service) wire() error {
	cfg := s.cfg
	sinks, err := infraaudit.NewSinks(cfg.Audit.Sinks)
	if err != nil {
		return err
	}
	s.addCloser(sinks)

	history, err := s.openHistory()
	if err != nil {
		return err
	}
	if history != nil {
		s.history = history
		sinks = infraaudit.NewMultiSink(history, sinks)
	}
	s.sinks = sinks
	s.emitter = audit.NewEmitter(sinks,
		audit.WithLogger(logger.New("audit")),
		audit.WithSinkTimeout(cfg.Audit.SinkTimeout()),
	)

	s.metrics, err = coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return err
	}
	s.addCloser(s.metrics)
	if cfg.Metrics.PrometheusPort != "" {
		s.prom = metrics.NewPromServer(cfg.Metrics.PrometheusPort, nil)
	}

	s.acc = ledger.NewAccumulator(s.backend.Ledger,
		ledger.WithAudit(s.emitter),
		ledger.WithVehicles(s.backend.Directory),
		ledger.WithMetrics(s.metrics),
		ledger.WithLogger(logger.New("ledger")),
	)
	s.reader = ledger.NewReader(s.backend.Ledger)
	opts := []report.BuilderOption{report.WithBase(cfg.Report.Base()), report.WithLogger(logger.New("report"))}
	if rec, ok := s.metrics.(coremetrics.UtilizationRecorder); ok {
		opts = append(opts, report.WithUtilizationRecorder(rec))
	}
	s.reports = report.NewBuilder(s.reader, s.backend.Directory, opts...)

	s.server = &http.Server{
		Addr: cfg.HTTP.Addr,
		Handler: api.NewRouter(api.Deps{
			Accumulator:    s.acc,
			Reader:         s.reader,
			Reports:        s.reports,
			History:        s.history,
			JWTSecret:      cfg.Auth.JWTSecret,
			JWTIssuer:      cfg.Auth.Issuer,
			RequestTimeout: cfg.HTTP.RequestTimeout(),
			Health:         s.backend,
			Logger:         logger.New("http"),
		}),
		ReadHeaderTimeout: time.Duration(cfg.HTTP.ReadTimeoutSeconds) * time.Second,
		ReadTimeout:       time.Duration(cfg.HTTP.ReadTimeoutSeconds) * time.Second,
		WriteTimeout:      time.Duration(cfg.HTTP.WriteTimeoutSeconds) * time.Second,
	}
	return nil
}

// openHistory returns the queryable audit store, nil when history is off.
func (s *Service) openHistory() (interface {
	audit.Sink
	audit.Reader
}, error) {
	switch s.cfg.Audit.History {
	case config.HistoryMemory:
		return audit.NewMemoryLog(), nil
	case config.HistorySQL:
		if s.backend.SQL == nil {
			return nil, fmt.Errorf("audit history sql needs a SQL store driver, got %q", s.cfg.Store.Driver)
		}
		ctx, cancel := context.WithTimeout(context.Background(), time.Duration(s.cfg.Store.TimeoutSeconds)*time.Second)
		defer cancel()
		h, err := sqlstore.Open(ctx, s.backend.SQL, s.backend.Dialect)
		if err != nil {
			return nil, fmt.Errorf("audit history: %w", err)
		}
		return h, nil
	}
	return nil, nil
}

func (s *Service) addCloser(v any) {
	if c, ok := v.(io.Closer); ok {
		s.closers = append(s.closers, c)
	}
}

// Accumulator returns the ledger write path.
func (s *Service) Accumulator() *ledger.Accumulator { return s.acc }

// Reports returns the report builder.
func (s *Service) Reports() *report.Builder { return s.reports }

// Directory returns the vehicle and user registry stored with the ledger.
func (s *Service) Directory() fleet.Registry { return s.backend.Directory }

// History returns the audit history, nil when disabled.
func (s *Service) History() audit.Reader { return s.history }

// Handler returns the HTTP handler, for tests.
func (s *Service) Handler() http.Handler { return s.server.Handler }

// Run serves HTTP and blocks until the context is canceled or the server fails.
func (s *Service) Run(ctx context.Context) error {
	collector := metrics.StartAuditCollector(ctx, s.emitter, s.metrics)
	if s.prom != nil {
		s.prom.Start()
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("listening on %s (store %s)", s.cfg.HTTP.Addr, s.cfg.Store.Driver)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err, ok := <-errCh:
		if ok {
			runErr = fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		s.log.Warnf("http shutdown: %v", err)
	}
	if s.prom != nil {
		if err := s.prom.Shutdown(shutdownCtx); err != nil {
			s.log.Warnf("metrics shutdown: %v", err)
		}
	}
	s.emitter.Close()
	<-collector
	return runErr
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	var errs []error
	if s.emitter != nil {
		s.emitter.Close()
	}
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.backend.Close(); err != nil {
		errs = append(errs, err)
	}
	coremon.Flush(2 * time.Second)
	return errors.Join(errs...)
}
