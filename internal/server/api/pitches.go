package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/ayusman/strikezone/internal/model"
	"github.com/ayusman/strikezone/internal/store"
)

// DefaultPitchLimit caps GET /api/pitches when no limit is given.
const DefaultPitchLimit = 100

// FieldSource provides the placed field, or nil.
type FieldSource interface {
	Configuration() *model.FieldConfiguration
}

// PitchHandler serves /api/pitches.
type PitchHandler struct {
	store  *store.Store
	fields FieldSource
}

// NewPitchHandler creates a PitchHandler. fields may be nil; the chart then
// outlines the default strike zone.
func NewPitchHandler(s *store.Store, fields FieldSource) *PitchHandler {
	return &PitchHandler{store: s, fields: fields}
}

type listPitchesResponse struct {
	Pitches []*store.Pitch `json:"pitches"`
}

type deletePitchesResponse struct {
	Deleted int64 `json:"deleted"`
}

// ServeHTTP routes list, stats, chart, item and bulk delete requests.
func (h *PitchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := subpath(r, "/api/pitches")

	switch {
	case path == "" && r.Method == http.MethodGet:
		h.list(w, r)
	case path == "" && r.Method == http.MethodDelete:
		h.deleteAll(w)
	case path == "stats" && r.Method == http.MethodGet:
		h.stats(w)
	case path == "chart" && r.Method == http.MethodGet:
		h.chart(w)
	case path != "" && path != "stats" && path != "chart" && r.Method == http.MethodGet:
		h.get(w, path)
	default:
		methodNotAllowed(w)
	}
}

func (h *PitchHandler) list(w http.ResponseWriter, r *http.Request) {
	limit := DefaultPitchLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	pitches, err := h.store.Pitches().List(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list pitches")
		return
	}
	if pitches == nil {
		pitches = []*store.Pitch{}
	}
	writeJSON(w, http.StatusOK, listPitchesResponse{Pitches: pitches})
}

func (h *PitchHandler) get(w http.ResponseWriter, id string) {
	p, err := h.store.Pitches().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Pitch not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get pitch")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *PitchHandler) deleteAll(w http.ResponseWriter) {
	n, err := h.store.Pitches().DeleteAll()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete pitches")
		return
	}
	writeJSON(w, http.StatusOK, deletePitchesResponse{Deleted: n})
}

func (h *PitchHandler) stats(w http.ResponseWriter) {
	s, err := h.store.Pitches().Stats()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute stats")
		return
	}
	writeJSON(w, http.StatusOK, s)
}
