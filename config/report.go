package config

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/kilianp07/worklog/core/report"
)

// ReportConfig tunes utilization reports.
type ReportConfig struct {
	// BaseHours is the week length percentages are computed against.
	BaseHours float64 `json:"base_hours"`
}

func (c *ReportConfig) SetDefaults() {
	if c.BaseHours <= 0 {
		c.BaseHours = report.BaseWeek.InexactFloat64()
	}
}

func (c ReportConfig) Validate() error {
	if c.BaseHours <= 0 {
		return fmt.Errorf("base_hours must be positive")
	}
	return nil
}

// Base returns the configured week base as an exact decimal.
func (c ReportConfig) Base() decimal.Decimal {
	return decimal.NewFromFloat(c.BaseHours).Round(2)
}
