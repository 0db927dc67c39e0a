// Package auditlog serves the work log audit history.
package auditlog

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/kilianp07/worklog/api/render"
	"github.com/kilianp07/worklog/core/audit"
	"github.com/kilianp07/worklog/core/ledger"
	"github.com/kilianp07/worklog/core/logger"
)

type Handler struct {
	reader audit.Reader
	log    logger.Logger
}

func NewHandler(reader audit.Reader, log logger.Logger) *Handler {
	return &Handler{reader: reader, log: logger.OrNop(log)}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/audit/worklogs", h.list)
}

// list returns facts newest first. start and end are inclusive days on the
// time the fact was recorded.
func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		render.Error(w, h.log, err)
		return
	}
	facts, err := h.reader.Find(r.Context(), q)
	if err != nil {
		render.Error(w, h.log, err)
		return
	}
	if facts == nil {
		facts = []audit.Fact{}
	}
	render.JSON(w, http.StatusOK, facts)
}

func parseQuery(r *http.Request) (audit.Query, error) {
	var preds []audit.Predicate
	if id, ok, err := render.QueryInt(r, "vehicle_id"); err != nil {
		return audit.Query{}, err
	} else if ok {
		preds = append(preds, audit.ForVehicle(id))
	}
	if id, ok, err := render.QueryInt(r, "actor_id"); err != nil {
		return audit.Query{}, err
	} else if ok {
		preds = append(preds, audit.ByActor(id))
	}
	if s := strings.TrimSpace(r.URL.Query().Get("action")); s != "" {
		a := audit.Action(s)
		if !a.Valid() {
			return audit.Query{}, fmt.Errorf("%w: unknown action %q", ledger.ErrInvalidInput, s)
		}
		preds = append(preds, audit.WithAction(a))
	}
	start, hasStart, err := render.QueryDay(r, "start")
	if err != nil {
		return audit.Query{}, err
	}
	end, hasEnd, err := render.QueryDay(r, "end")
	if err != nil {
		return audit.Query{}, err
	}
	if hasStart && hasEnd && end.Before(start) {
		return audit.Query{}, fmt.Errorf("%w: end before start", ledger.ErrInvalidInput)
	}
	if hasEnd {
		end = end.AddDate(0, 0, 1)
	}
	if hasStart || hasEnd {
		preds = append(preds, audit.Between(start, end))
	}
	if s := r.URL.Query().Get("q"); s != "" {
		preds = append(preds, audit.Containing(s))
	}
	n, ok, err := render.QueryInt(r, "limit")
	if err != nil {
		return audit.Query{}, err
	}
	if ok {
		if n <= 0 {
			return audit.Query{}, fmt.Errorf("%w: limit must be positive", ledger.ErrInvalidInput)
		}
		preds = append(preds, audit.Limit(int(n)))
	}
	return audit.NewQuery(preds...), nil
}
