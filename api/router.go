// Package api assembles the HTTP surface of the ledger.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/kilianp07/worklog/api/auditlog"
	"github.com/kilianp07/worklog/api/middleware"
	"github.com/kilianp07/worklog/api/render"
	"github.com/kilianp07/worklog/api/reports"
	"github.com/kilianp07/worklog/api/worklogs"
	"github.com/kilianp07/worklog/core/audit"
	"github.com/kilianp07/worklog/core/ledger"
	"github.com/kilianp07/worklog/core/logger"
	"github.com/kilianp07/worklog/core/report"
)

// Pinger is implemented by stores that can check their connection.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Deps are the services the router exposes.
type Deps struct {
	Accumulator *ledger.Accumulator
	Reader      *ledger.Reader
	Reports     *report.Builder
	History     audit.Reader
	// JWTSecret enables bearer token verification. Empty falls back to the
	// X-Actor-ID header.
	JWTSecret      string
	JWTIssuer      string
	RequestTimeout time.Duration
	Health         Pinger
	Logger         logger.Logger
}

// NewRouter returns the handler serving /healthz and /api.
func NewRouter(d Deps) http.Handler {
	log := logger.OrNop(d.Logger)
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.AccessLog(log))
	if d.RequestTimeout > 0 {
		r.Use(chimw.Timeout(d.RequestTimeout))
	}

	r.Get("/healthz", health(d.Health, log))

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Actor(d.JWTSecret, d.JWTIssuer))
		worklogs.NewHandler(d.Accumulator, d.Reader, log).Routes(r)
		if d.Reports != nil {
			reports.NewHandler(d.Reports, log).Routes(r)
		}
		if d.History != nil {
			auditlog.NewHandler(d.History, log).Routes(r)
		}
	})
	return r
}

func health(p Pinger, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if p != nil {
			if err := p.PingContext(r.Context()); err != nil {
				log.Warnf("health check: %v", err)
				render.Error(w, log, ledger.Unavailable(err))
				return
			}
		}
		render.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
