package config

import (
	"fmt"
	"time"

	"github.com/kilianp07/worklog/core/factory"
)

// History backends for the audit trail.
const (
	HistoryNone   = "none"
	HistoryMemory = "memory"
	HistorySQL    = "sql"
)

// AuditConfig lists where audit facts go.
type AuditConfig struct {
	// Sinks are created through the audit sink registry, e.g. kafka or mqtt.
	Sinks []factory.ModuleConfig `json:"sinks"`
	// History keeps a queryable copy of every fact: none, memory or sql. The
	// sql history shares the ledger database and needs a SQL driver.
	History string `json:"history"`
	// SinkTimeoutSeconds bounds one Record call.
	SinkTimeoutSeconds int `json:"sink_timeout_seconds"`
}

func (c *AuditConfig) SetDefaults() {
	if c.History == "" {
		c.History = HistoryMemory
	}
	if c.SinkTimeoutSeconds <= 0 {
		c.SinkTimeoutSeconds = 5
	}
}

func (c AuditConfig) Validate() error {
	switch c.History {
	case HistoryNone, HistoryMemory, HistorySQL:
	default:
		return fmt.Errorf("unknown history %q", c.History)
	}
	for i, s := range c.Sinks {
		if s.Type == "" {
			return fmt.Errorf("sink %d: type is required", i)
		}
	}
	return nil
}

func (c AuditConfig) SinkTimeout() time.Duration {
	return time.Duration(c.SinkTimeoutSeconds) * time.Second
}
