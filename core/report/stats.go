package report

import (
	"gonum.org/v1/gonum/stat"
)

// FleetSummary aggregates the weekly utilization of a fleet.
type FleetSummary struct {
	Vehicles        int     `json:"vehicles"`
	MeanActivePct   float64 `json:"mean_active_pct"`
	StdDevActivePct float64 `json:"stddev_active_pct"`
	MeanIdlePct     float64 `json:"mean_idle_pct"`
	TotalActive     float64 `json:"total_active_hours"`
	TotalMaint      float64 `json:"total_maintenance_hours"`
}

// FleetStats computes fleet-wide figures over us. An empty fleet yields zeros.
func FleetStats(us []Utilization) FleetSummary {
	s := FleetSummary{Vehicles: len(us)}
	if len(us) == 0 {
		return s
	}
	active := make([]float64, len(us))
	idle := make([]float64, len(us))
	for i, u := range us {
		active[i] = u.ActivePct.InexactFloat64()
		idle[i] = u.IdlePct.InexactFloat64()
		s.TotalActive += u.Active.InexactFloat64()
		s.TotalMaint += u.Maintenance.InexactFloat64()
	}
	if len(us) == 1 {
		s.MeanActivePct = active[0]
	} else {
		s.MeanActivePct, s.StdDevActivePct = stat.MeanStdDev(active, nil)
	}
	s.MeanIdlePct = stat.Mean(idle, nil)
	return s
}
