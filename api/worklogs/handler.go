// Package worklogs exposes ledger writes and reads over HTTP.
package worklogs

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/kilianp07/worklog/api/middleware"
	"github.com/kilianp07/worklog/api/render"
	"github.com/kilianp07/worklog/core/ledger"
	"github.com/kilianp07/worklog/core/logger"
)

// Handler serves /api/worklogs and /api/vehicles/{id}/worklogs.
type Handler struct {
	acc    *ledger.Accumulator
	reader *ledger.Reader
	log    logger.Logger
}

func NewHandler(acc *ledger.Accumulator, reader *ledger.Reader, log logger.Logger) *Handler {
	return &Handler{acc: acc, reader: reader, log: logger.OrNop(log)}
}

// Routes mounts the write endpoints under /worklogs and the per-vehicle read
// under /vehicles.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/worklogs", func(r chi.Router) {
		r.Post("/", h.create)
		r.Get("/{id}", h.get)
		r.Put("/{id}", h.correct)
		r.Delete("/{id}", h.delete)
	})
	r.Get("/vehicles/{id}/worklogs", h.vehicleRange)
}

// EntryResponse is the wire shape of a ledger entry.
type EntryResponse struct {
	ID               int64      `json:"id"`
	VehicleID        int64      `json:"vehicle_id"`
	WorkDate         string     `json:"work_date"`
	ActiveHours      string     `json:"active_hours"`
	MaintenanceHours string     `json:"maintenance_hours"`
	TotalHours       string     `json:"total_hours"`
	CreatedBy        int64      `json:"created_by"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedBy        *int64     `json:"updated_by,omitempty"`
	UpdatedAt        *time.Time `json:"updated_at,omitempty"`
}

func toResponse(e ledger.Entry) EntryResponse {
	return EntryResponse{
		ID:               e.ID,
		VehicleID:        e.VehicleID,
		WorkDate:         e.WorkDate.Format(ledger.DateLayout),
		ActiveHours:      e.ActiveHours.StringFixed(ledger.HoursScale),
		MaintenanceHours: e.MaintenanceHours.StringFixed(ledger.HoursScale),
		TotalHours:       e.Total().StringFixed(ledger.HoursScale),
		CreatedBy:        e.CreatedBy,
		CreatedAt:        e.CreatedAt,
		UpdatedBy:        e.UpdatedBy,
		UpdatedAt:        e.UpdatedAt,
	}
}

func toResponses(es []ledger.Entry) []EntryResponse {
	out := make([]EntryResponse, len(es))
	for i, e := range es {
		out[i] = toResponse(e)
	}
	return out
}

// CreateRequest adds hours to a vehicle's day. Hours accept JSON numbers or
// decimal strings.
type CreateRequest struct {
	VehicleID        int64           `json:"vehicle_id"`
	WorkDate         string          `json:"work_date"`
	ActiveHours      decimal.Decimal `json:"active_hours"`
	MaintenanceHours decimal.Decimal `json:"maintenance_hours"`
}

// CorrectRequest replaces the totals of an entry.
type CorrectRequest struct {
	ActiveHours      decimal.Decimal `json:"active_hours"`
	MaintenanceHours decimal.Decimal `json:"maintenance_hours"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ActorFrom(r.Context())
	var req CreateRequest
	if err := render.Decode(r, &req); err != nil {
		render.Error(w, h.log, err)
		return
	}
	day, err := ledger.ParseDay(req.WorkDate)
	if err != nil {
		render.Error(w, h.log, fmt.Errorf("%w: work_date must be YYYY-MM-DD", ledger.ErrInvalidInput))
		return
	}
	e, err := h.acc.Accumulate(r.Context(), req.VehicleID, day, req.ActiveHours, req.MaintenanceHours, actor)
	if err != nil {
		render.Error(w, h.log, err)
		return
	}
	render.JSON(w, http.StatusCreated, toResponse(e))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := render.PathID(r, "id")
	if err != nil {
		render.Error(w, h.log, err)
		return
	}
	e, err := h.reader.Get(r.Context(), id)
	if err != nil {
		render.Error(w, h.log, err)
		return
	}
	render.JSON(w, http.StatusOK, toResponse(e))
}

func (h *Handler) correct(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ActorFrom(r.Context())
	id, err := render.PathID(r, "id")
	if err != nil {
		render.Error(w, h.log, err)
		return
	}
	var req CorrectRequest
	if err := render.Decode(r, &req); err != nil {
		render.Error(w, h.log, err)
		return
	}
	e, err := h.acc.Correct(r.Context(), id, req.ActiveHours, req.MaintenanceHours, actor)
	if err != nil {
		render.Error(w, h.log, err)
		return
	}
	render.JSON(w, http.StatusOK, toResponse(e))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ActorFrom(r.Context())
	id, err := render.PathID(r, "id")
	if err != nil {
		render.Error(w, h.log, err)
		return
	}
	if err := h.acc.Delete(r.Context(), id, actor); err != nil {
		render.Error(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// vehicleRange lists a vehicle's entries newest first. start and end are
// inclusive days; without either the full history is returned.
func (h *Handler) vehicleRange(w http.ResponseWriter, r *http.Request) {
	id, err := render.PathID(r, "id")
	if err != nil {
		render.Error(w, h.log, err)
		return
	}
	start, hasStart, err := render.QueryDay(r, "start")
	if err != nil {
		render.Error(w, h.log, err)
		return
	}
	end, hasEnd, err := render.QueryDay(r, "end")
	if err != nil {
		render.Error(w, h.log, err)
		return
	}
	var entries []ledger.Entry
	switch {
	case !hasStart && !hasEnd:
		entries, err = h.reader.History(r.Context(), id)
	case hasStart && hasEnd:
		entries, err = h.reader.VehicleRange(r.Context(), id, start, end)
	default:
		err = fmt.Errorf("%w: start and end go together", ledger.ErrInvalidInput)
	}
	if err != nil {
		render.Error(w, h.log, err)
		return
	}
	render.JSON(w, http.StatusOK, toResponses(entries))
}
