package api

import (
	"net/http"

	"github.com/okian/modelrank/internal/domain/topsis"
)

// rankMatrixRequest mirrors the OpenAPI schema for POST /topsis.
type rankMatrixRequest struct {
	Labels  []string    `json:"labels" validate:"omitempty,dive,required"`
	Matrix  [][]float64 `json:"matrix" validate:"required"`
	Weights []float64   `json:"weights" validate:"required"`
	Impacts []string    `json:"impacts" validate:"required"`
}

// MatrixHandler handles generic decision matrix requests.
type MatrixHandler struct {
	deps  MatrixRanker
	codec *codec
}

// NewMatrixHandler creates a new matrix handler.
func NewMatrixHandler(deps MatrixRanker, c *codec) *MatrixHandler {
	return &MatrixHandler{deps: deps, codec: c}
}

// HandleRankMatrix handles POST /topsis requests.
func (h *MatrixHandler) HandleRankMatrix(w http.ResponseWriter, r *http.Request) {
	const op = "api.rank_matrix"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req rankMatrixRequest
	if err := h.codec.decode(w, r, op, &req); err != nil {
		h.codec.fail(w, r, err)
		return
	}
	impacts, err := topsis.ParseImpacts(req.Impacts)
	if err != nil {
		h.codec.fail(w, r, Wrap(op, err))
		return
	}

	out, err := h.deps.RankMatrix(r.Context(), req.Labels, req.Matrix, req.Weights, impacts)
	if err != nil {
		h.codec.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, out)
}
