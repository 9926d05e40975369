package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/ayusman/strikezone/internal/hook"
	"github.com/ayusman/strikezone/internal/store"
)

// HookHandler handles HTTP requests for pitch hook resources.
type HookHandler struct {
	store   *store.Store
	plugins *hook.Manager
}

// NewHookHandler creates a HookHandler. When plugins is non-nil, hooks must
// name an installed plugin.
func NewHookHandler(s *store.Store, plugins *hook.Manager) *HookHandler {
	return &HookHandler{store: s, plugins: plugins}
}

// ServeHTTP routes /api/hooks, /api/hooks/plugins and /api/hooks/{id}.
func (h *HookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := subpath(r, "/api/hooks")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w)
		case http.MethodPost:
			h.create(w, r)
		default:
			methodNotAllowed(w)
		}
		return
	}

	if path == "plugins" {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		h.listPlugins(w)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.get(w, path)
	case http.MethodPut:
		h.update(w, r, path)
	case http.MethodDelete:
		h.delete(w, path)
	default:
		methodNotAllowed(w)
	}
}

type createHookRequest struct {
	Name       string          `json:"name"`
	PluginName string          `json:"plugin_name"`
	Outcome    string          `json:"outcome"`
	Config     json.RawMessage `json:"config"`
	Enabled    *bool           `json:"enabled"`
}

type updateHookRequest struct {
	Name       string          `json:"name"`
	PluginName string          `json:"plugin_name"`
	Outcome    string          `json:"outcome"`
	Config     json.RawMessage `json:"config"`
	Enabled    *bool           `json:"enabled"`
}

type hookResponse struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	PluginName string          `json:"plugin_name"`
	Outcome    string          `json:"outcome"`
	Config     json.RawMessage `json:"config"`
	Enabled    bool            `json:"enabled"`
	CreatedAt  string          `json:"created_at"`
}

type listHooksResponse struct {
	Hooks []hookResponse `json:"hooks"`
}

type pluginResponse struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description"`
}

type listPluginsResponse struct {
	Plugins []pluginResponse `json:"plugins"`
}

func toHookResponse(hk *store.Hook) hookResponse {
	config := hk.Config
	if config == nil {
		config = json.RawMessage("{}")
	}
	return hookResponse{
		ID:         hk.ID,
		Name:       hk.Name,
		PluginName: hk.PluginName,
		Outcome:    string(hk.Outcome),
		Config:     config,
		Enabled:    hk.Enabled,
		CreatedAt:  hk.CreatedAt.Format(timeLayout),
	}
}

// checkPlugin reports a validation message, or "" when pluginName is usable.
func (h *HookHandler) checkPlugin(pluginName string) string {
	if h.plugins == nil {
		return ""
	}
	if _, err := h.plugins.Get(pluginName); err != nil {
		return "Plugin not installed"
	}
	return ""
}

func (h *HookHandler) list(w http.ResponseWriter) {
	hooks, err := h.store.Hooks().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list hooks")
		return
	}
	response := listHooksResponse{Hooks: make([]hookResponse, 0, len(hooks))}
	for _, hk := range hooks {
		response.Hooks = append(response.Hooks, toHookResponse(hk))
	}
	writeJSON(w, http.StatusOK, response)
}

func (h *HookHandler) listPlugins(w http.ResponseWriter) {
	response := listPluginsResponse{Plugins: []pluginResponse{}}
	if h.plugins != nil {
		for _, p := range h.plugins.List() {
			response.Plugins = append(response.Plugins, pluginResponse{
				Name:        p.Manifest.Name,
				Version:     p.Manifest.Version,
				Description: p.Manifest.Description,
			})
		}
	}
	writeJSON(w, http.StatusOK, response)
}

func (h *HookHandler) get(w http.ResponseWriter, id string) {
	hk, err := h.store.Hooks().GetByID(id)
	if err != nil {
		h.writeLookupError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toHookResponse(hk))
}

func (h *HookHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createHookRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Name == "" || req.PluginName == "" {
		writeError(w, http.StatusBadRequest, "name and plugin_name are required")
		return
	}

	outcome := store.Outcome(req.Outcome)
	if outcome == "" {
		outcome = store.OutcomeAny
	}
	if !outcome.Valid() {
		writeError(w, http.StatusBadRequest, "Invalid outcome")
		return
	}
	if msg := h.checkPlugin(req.PluginName); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}
	hk := &store.Hook{
		ID:         uuid.NewString(),
		Name:       req.Name,
		PluginName: req.PluginName,
		Outcome:    outcome,
		Config:     req.Config,
		Enabled:    enabled,
	}
	if err := h.store.Hooks().Create(hk); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create hook")
		return
	}
	writeJSON(w, http.StatusCreated, toHookResponse(hk))
}

func (h *HookHandler) update(w http.ResponseWriter, r *http.Request, id string) {
	hk, err := h.store.Hooks().GetByID(id)
	if err != nil {
		h.writeLookupError(w, err)
		return
	}

	var req updateHookRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Name != "" {
		hk.Name = req.Name
	}
	if req.PluginName != "" {
		if msg := h.checkPlugin(req.PluginName); msg != "" {
			writeError(w, http.StatusBadRequest, msg)
			return
		}
		hk.PluginName = req.PluginName
	}
	if req.Outcome != "" {
		outcome := store.Outcome(req.Outcome)
		if !outcome.Valid() {
			writeError(w, http.StatusBadRequest, "Invalid outcome")
			return
		}
		hk.Outcome = outcome
	}
	if req.Config != nil {
		hk.Config = req.Config
	}
	if req.Enabled != nil {
		hk.Enabled = *req.Enabled
	}

	if err := h.store.Hooks().Update(hk); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update hook")
		return
	}
	writeJSON(w, http.StatusOK, toHookResponse(hk))
}

func (h *HookHandler) delete(w http.ResponseWriter, id string) {
	if err := h.store.Hooks().Delete(id); err != nil {
		h.writeLookupError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HookHandler) writeLookupError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Hook not found")
		return
	}
	writeError(w, http.StatusInternalServerError, "Failed to load hook")
}
