package api

import "net/http"

// rankModelsRequest mirrors the OpenAPI schema for POST /rank-models.
type rankModelsRequest struct {
	Models  []string           `json:"models" validate:"required"`
	Weights map[string]float64 `json:"weights" validate:"required"`
}

// RankHandler handles model ranking requests.
type RankHandler struct {
	deps  ModelRanker
	codec *codec
}

// NewRankHandler creates a new rank handler.
func NewRankHandler(deps ModelRanker, c *codec) *RankHandler {
	return &RankHandler{deps: deps, codec: c}
}

// HandleRankModels handles POST /rank-models requests.
func (h *RankHandler) HandleRankModels(w http.ResponseWriter, r *http.Request) {
	const op = "api.rank_models"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req rankModelsRequest
	if err := h.codec.decode(w, r, op, &req); err != nil {
		h.codec.fail(w, r, err)
		return
	}

	ranked, err := h.deps.RankModels(r.Context(), req.Models, req.Weights)
	if err != nil {
		h.codec.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, ranked)
}
