// Package repository holds the model catalog the service ranks from.
package repository

import (
	"context"
	"time"

	"github.com/okian/modelrank/internal/domain/model"
)

// Store provides read/write access to the model catalog.
type Store interface {
	// Replace swaps the whole catalog for infos, keeping their order.
	// Duplicate ids collapse to the first occurrence.
	Replace(ctx context.Context, infos []model.Info) error

	// List returns up to limit entries in catalog order.
	// Returns ErrInvalidLimit if limit < 1.
	List(ctx context.Context, limit int) ([]model.Info, error)

	// Get returns the entry for id, or ErrNotFound.
	Get(ctx context.Context, id string) (model.Info, error)

	// Contains reports whether id is in the catalog.
	Contains(ctx context.Context, id string) bool

	// Count returns the number of models in the catalog.
	Count(ctx context.Context) int

	// LoadedAt returns when the catalog was last replaced; zero if never.
	LoadedAt() time.Time
}
