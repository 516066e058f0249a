package hub

import (
	"context"
	"slices"

	"github.com/okian/modelrank/internal/domain/model"
)

// Static is a Source backed by a fixed list of model ids. The task filter is
// ignored.
type Static struct {
	ids []string
}

var _ Source = (*Static)(nil)

// NewStatic returns a Static source listing ids in order.
func NewStatic(ids []string) *Static {
	return &Static{ids: slices.Clone(ids)}
}

// ListModels returns the first limit ids.
func (s *Static) ListModels(ctx context.Context, _ string, limit int) ([]model.Info, error) {
	if limit < 1 {
		return nil, ErrInvalidLimit
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n := min(limit, len(s.ids))
	out := make([]model.Info, n)
	for i := range n {
		out[i] = model.Info{ID: s.ids[i]}
	}
	return out, nil
}
