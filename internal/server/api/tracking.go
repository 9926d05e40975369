package api

import (
	"errors"
	"net/http"

	"github.com/ayusman/strikezone/internal/capture"
	"github.com/ayusman/strikezone/internal/model"
	"github.com/ayusman/strikezone/internal/tracker"
)

// Session is the tracking surface driven over HTTP.
type Session interface {
	StartTracking() error
	StopTracking()
	IsTracking() bool
	State() model.TrackingState
	LastError() string
	TrackerStats() tracker.Stats
	LatestPitch() (model.PitchClassification, bool)
}

// TrackingHandler serves /api/tracking.
type TrackingHandler struct {
	session Session
}

// NewTrackingHandler creates a TrackingHandler.
func NewTrackingHandler(s Session) *TrackingHandler {
	return &TrackingHandler{session: s}
}

type trackingStateResponse struct {
	State     model.TrackingState        `json:"state"`
	Tracking  bool                       `json:"tracking"`
	LastError string                     `json:"last_error,omitempty"`
	Stats     tracker.Stats              `json:"stats"`
	Latest    *model.PitchClassification `json:"latest,omitempty"`
}

// ServeHTTP routes start, stop and state.
func (h *TrackingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch action := subpath(r, "/api/tracking"); {
	case action == "state" && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, h.state())
	case action == "start" && r.Method == http.MethodPost:
		h.start(w)
	case action == "stop" && r.Method == http.MethodPost:
		h.session.StopTracking()
		writeJSON(w, http.StatusOK, h.state())
	case action == "state" || action == "start" || action == "stop":
		methodNotAllowed(w)
	default:
		writeError(w, http.StatusNotFound, "Unknown tracking action")
	}
}

func (h *TrackingHandler) state() trackingStateResponse {
	resp := trackingStateResponse{
		State:     h.session.State(),
		Tracking:  h.session.IsTracking(),
		LastError: h.session.LastError(),
		Stats:     h.session.TrackerStats(),
	}
	if pc, ok := h.session.LatestPitch(); ok {
		resp.Latest = &pc
	}
	return resp
}

func (h *TrackingHandler) start(w http.ResponseWriter) {
	err := h.session.StartTracking()
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, h.state())
	case errors.Is(err, tracker.ErrModelNotLoaded):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, capture.ErrWorldTrackingUnsupported):
		writeError(w, http.StatusNotImplemented, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
