package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kilianp07/worklog/infra/logger"
)

// PromServer serves /metrics on its own port.
type PromServer struct {
	srv *http.Server
	log logger.Logger
}

// NewPromServer exposes gatherer on port. A nil gatherer uses the default
// registry.
func NewPromServer(port string, gatherer prometheus.Gatherer) *PromServer {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return &PromServer{
		srv: &http.Server{
			Addr:              net.JoinHostPort("", port),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		log: logger.New("prometheus"),
	}
}

// Start listens in the background.
func (p *PromServer) Start() {
	go func() {
		p.log.Infof("metrics listening on %s", p.srv.Addr)
		if err := p.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			p.log.Errorf("metrics server: %v", err)
		}
	}()
}

// Shutdown stops the server.
func (p *PromServer) Shutdown(ctx context.Context) error { return p.srv.Shutdown(ctx) }

// Handler returns the /metrics mux, for tests.
func (p *PromServer) Handler() http.Handler { return p.srv.Handler }
