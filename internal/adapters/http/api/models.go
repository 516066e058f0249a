package api

import (
	"net/http"
	"strconv"
)

// ModelsHandler handles catalog listing requests.
type ModelsHandler struct {
	deps         ModelsProvider
	codec        *codec
	defaultLimit int
	maxLimit     int
}

// NewModelsHandler creates a new models handler.
func NewModelsHandler(deps ModelsProvider, c *codec, defaultLimit, maxLimit int) *ModelsHandler {
	return &ModelsHandler{deps: deps, codec: c, defaultLimit: defaultLimit, maxLimit: maxLimit}
}

// HandleAvailableModels handles GET /available-models?limit=N requests.
// Limits above the configured maximum are clamped.
func (h *ModelsHandler) HandleAvailableModels(w http.ResponseWriter, r *http.Request) {
	const op = "api.available_models"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	limit := h.defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			h.codec.fail(w, r, WrapKind(op, ErrBadRequest, err))
			return
		}
		limit = min(n, h.maxLimit)
	}

	ids, err := h.deps.AvailableModels(r.Context(), limit)
	if err != nil {
		h.codec.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, ids)
}
