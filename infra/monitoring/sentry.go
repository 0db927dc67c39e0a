// Package monitoring reports unexpected failures of the ledger to Sentry.
package monitoring

import (
	"errors"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/kilianp07/worklog/config"
	"github.com/kilianp07/worklog/core/ledger"
	coremon "github.com/kilianp07/worklog/core/monitoring"
)

// NewSentryMonitor initializes Sentry using the provided configuration and
// returns a Monitor implementation. Ledger rejections and lookups of missing
// entries are dropped before they are sent.
func NewSentryMonitor(cfg config.SentryConfig) (coremon.Monitor, error) {
	if cfg.DSN == "" {
		return coremon.NopMonitor{}, nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		TracesSampleRate: cfg.TracesSampleRate,
		Release:          cfg.Release,
		ServerName:       cfg.ServerName,
		BeforeSend:       dropExpected,
	})
	if err != nil {
		return nil, err
	}
	return &sentryMonitor{}, nil
}

func dropExpected(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
	if hint != nil && expected(hint.OriginalException) {
		return nil
	}
	return event
}

// expected reports errors that are part of normal ledger operation.
func expected(err error) bool {
	return err != nil && (ledger.IsRejection(err) || errors.Is(err, ledger.ErrNotFound))
}

type sentryMonitor struct{}

func (s *sentryMonitor) CaptureException(err error, tags map[string]string) {
	if err == nil || expected(err) {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("service", "worklog")
		if errors.Is(err, ledger.ErrStorageUnavailable) {
			scope.SetLevel(sentry.LevelWarning)
		}
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		sentry.CaptureException(err)
	})
}

func (s *sentryMonitor) Recover() {
	if r := recover(); r != nil {
		sentry.CurrentHub().Recover(r)
		sentry.Flush(2 * time.Second)
		panic(r)
	}
}

func (s *sentryMonitor) Flush(timeout time.Duration) { sentry.Flush(timeout) }
