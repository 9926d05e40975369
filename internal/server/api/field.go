package api

import (
	"errors"
	"net/http"

	"github.com/ayusman/strikezone/internal/field"
	"github.com/ayusman/strikezone/internal/model"
)

// FieldController is the field placement surface driven over HTTP.
type FieldController interface {
	PlaceField(p field.ScreenPoint) (*model.FieldConfiguration, error)
	PreviewOrientation(degrees float64) error
	PreviewPosition(x, z float64) error
	Commit() (*model.FieldConfiguration, error)
	Reset()
	SetFieldLinesVisible(visible bool)
	FieldLinesVisible() bool
	Configuration() *model.FieldConfiguration
	Anchor() (field.Anchor, bool)
}

// FieldHandler serves /api/field.
type FieldHandler struct {
	ctl FieldController
}

// NewFieldHandler creates a FieldHandler.
func NewFieldHandler(ctl FieldController) *FieldHandler {
	return &FieldHandler{ctl: ctl}
}

type fieldResponse struct {
	Field        *model.FieldConfiguration `json:"field"`
	Anchor       *field.Anchor             `json:"anchor,omitempty"`
	LinesVisible bool                      `json:"lines_visible"`
	Warning      string                    `json:"warning,omitempty"`
}

type placeRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type previewRequest struct {
	AngleDegrees *float64 `json:"angle_degrees"`
	X            *float64 `json:"x"`
	Z            *float64 `json:"z"`
}

type linesRequest struct {
	Visible bool `json:"visible"`
}

// ServeHTTP routes /api/field and its actions.
func (h *FieldHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	action := subpath(r, "/api/field")

	if action == "" {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		h.get(w)
		return
	}

	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	switch action {
	case "place":
		h.place(w, r)
	case "preview":
		h.preview(w, r)
	case "commit":
		h.commit(w)
	case "reset":
		h.ctl.Reset()
		w.WriteHeader(http.StatusNoContent)
	case "lines":
		h.lines(w, r)
	default:
		writeError(w, http.StatusNotFound, "Unknown field action")
	}
}

func (h *FieldHandler) snapshot(cfg *model.FieldConfiguration) fieldResponse {
	resp := fieldResponse{Field: cfg, LinesVisible: h.ctl.FieldLinesVisible()}
	if a, ok := h.ctl.Anchor(); ok {
		resp.Anchor = &a
	}
	return resp
}

func (h *FieldHandler) get(w http.ResponseWriter) {
	cfg := h.ctl.Configuration()
	if cfg == nil {
		writeError(w, http.StatusNotFound, "Field not placed")
		return
	}
	writeJSON(w, http.StatusOK, h.snapshot(cfg))
}

func (h *FieldHandler) place(w http.ResponseWriter, r *http.Request) {
	var req placeRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	cfg, err := h.ctl.PlaceField(field.ScreenPoint{X: req.X, Y: req.Y})
	h.writePlacement(w, http.StatusCreated, cfg, err)
}

func (h *FieldHandler) commit(w http.ResponseWriter) {
	cfg, err := h.ctl.Commit()
	h.writePlacement(w, http.StatusOK, cfg, err)
}

// writePlacement reports a placement or commit. A world-tracking failure
// still carries the locally applied field.
func (h *FieldHandler) writePlacement(w http.ResponseWriter, status int, cfg *model.FieldConfiguration, err error) {
	switch {
	case err == nil:
		writeJSON(w, status, h.snapshot(cfg))
	case errors.Is(err, field.ErrWorldTrackingNotReady) && cfg != nil:
		resp := h.snapshot(cfg)
		resp.Warning = err.Error()
		writeJSON(w, http.StatusAccepted, resp)
	case errors.Is(err, field.ErrNoPlaneFound):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, field.ErrNoField):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (h *FieldHandler) preview(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.AngleDegrees == nil && req.X == nil && req.Z == nil {
		writeError(w, http.StatusBadRequest, "angle_degrees, x or z is required")
		return
	}

	anchor, ok := h.ctl.Anchor()
	if !ok {
		writeError(w, http.StatusConflict, field.ErrNoField.Error())
		return
	}
	if req.AngleDegrees != nil {
		if err := h.ctl.PreviewOrientation(*req.AngleDegrees); err != nil {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
	}
	if req.X != nil || req.Z != nil {
		x, z := anchor.LiveOffset.X, anchor.LiveOffset.Z
		if req.X != nil {
			x = *req.X
		}
		if req.Z != nil {
			z = *req.Z
		}
		if err := h.ctl.PreviewPosition(x, z); err != nil {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
	}

	writeJSON(w, http.StatusAccepted, h.snapshot(h.ctl.Configuration()))
}

func (h *FieldHandler) lines(w http.ResponseWriter, r *http.Request) {
	var req linesRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	h.ctl.SetFieldLinesVisible(req.Visible)
	writeJSON(w, http.StatusOK, linesRequest{Visible: h.ctl.FieldLinesVisible()})
}
