// Package reports serves weekly utilization and timeline reports.
package reports

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kilianp07/worklog/api/render"
	"github.com/kilianp07/worklog/core/ledger"
	"github.com/kilianp07/worklog/core/logger"
	"github.com/kilianp07/worklog/core/report"
)

// Handler serves /api/reports.
type Handler struct {
	builder *report.Builder
	log     logger.Logger
	now     func() time.Time
}

func NewHandler(b *report.Builder, log logger.Logger) *Handler {
	return &Handler{builder: b, log: logger.OrNop(log), now: time.Now}
}

func (h *Handler) Routes(r chi.Router) {
	r.Route("/reports", func(r chi.Router) {
		r.Get("/weekly", h.weekly)
		r.Get("/gantt", h.gantt)
	})
}

// weekly reports the week containing ?week, the current week by default.
func (h *Handler) weekly(w http.ResponseWriter, r *http.Request) {
	ids, err := render.QueryIDs(r, "vehicle_id")
	if err != nil {
		render.Error(w, h.log, err)
		return
	}
	day, ok, err := render.QueryDay(r, "week")
	if err != nil {
		render.Error(w, h.log, err)
		return
	}
	if !ok {
		day = h.now().UTC()
	}
	rep, err := h.builder.Weekly(r.Context(), day, ids)
	if err != nil {
		render.Error(w, h.log, err)
		return
	}
	render.JSON(w, http.StatusOK, weeklyResponse(rep))
}

// UtilizationResponse is one vehicle row of the weekly report.
type UtilizationResponse struct {
	VehicleID      int64  `json:"vehicle_id"`
	Name           string `json:"name"`
	Plate          string `json:"plate,omitempty"`
	Active         string `json:"active_hours"`
	Maintenance    string `json:"maintenance_hours"`
	Idle           string `json:"idle_hours"`
	ActivePct      string `json:"active_pct"`
	MaintenancePct string `json:"maintenance_pct"`
	IdlePct        string `json:"idle_pct"`
}

// WeeklyResponse is the wire shape of report.WeeklyReport.
type WeeklyResponse struct {
	WeekStart string                `json:"week_start"`
	WeekEnd   string                `json:"week_end"`
	BaseHours string                `json:"base_hours"`
	Vehicles  []UtilizationResponse `json:"vehicles"`
	Summary   report.FleetSummary   `json:"summary"`
}

func weeklyResponse(rep report.WeeklyReport) WeeklyResponse {
	out := WeeklyResponse{
		WeekStart: rep.WeekStart.Format(ledger.DateLayout),
		WeekEnd:   rep.WeekEnd.Format(ledger.DateLayout),
		BaseHours: rep.BaseHours,
		Vehicles:  make([]UtilizationResponse, len(rep.Vehicles)),
		Summary:   rep.Summary,
	}
	for i, u := range rep.Vehicles {
		out.Vehicles[i] = UtilizationResponse{
			VehicleID:      u.VehicleID,
			Name:           u.Name,
			Plate:          u.Plate,
			Active:         u.Active.StringFixed(2),
			Maintenance:    u.Maintenance.StringFixed(2),
			Idle:           u.Idle.StringFixed(2),
			ActivePct:      u.ActivePct.StringFixed(2),
			MaintenancePct: u.MaintenancePct.StringFixed(2),
			IdlePct:        u.IdlePct.StringFixed(2),
		}
	}
	return out
}

// gantt returns timeline bars between the inclusive start and end days.
func (h *Handler) gantt(w http.ResponseWriter, r *http.Request) {
	ids, err := render.QueryIDs(r, "vehicle_id")
	if err != nil {
		render.Error(w, h.log, err)
		return
	}
	kind, err := report.ParseKind(r.URL.Query().Get("kind"))
	if err != nil {
		render.Error(w, h.log, err)
		return
	}
	start, _, err := render.QueryDay(r, "start")
	if err != nil {
		render.Error(w, h.log, err)
		return
	}
	end, _, err := render.QueryDay(r, "end")
	if err != nil {
		render.Error(w, h.log, err)
		return
	}
	segs, err := h.builder.Timeline(r.Context(), ids, start, end, kind)
	if err != nil {
		render.Error(w, h.log, err)
		return
	}
	if segs == nil {
		segs = []report.Segment{}
	}
	render.JSON(w, http.StatusOK, segs)
}
