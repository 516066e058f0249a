// Package site serves the bundled model selector frontend.
package site

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/okian/modelrank/pkg/logger"
)

// Error constants
var (
	ErrServe = errors.New("site serve failed")
)

const indexFile = "index.html"

// Register attaches the frontend routes to mux:
//
//	GET /app       -> index.html
//	GET /static/*  -> embedded assets
func Register(ctx context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}

	files := FS()
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(files)))
	mux.HandleFunc("/app", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.NotFound(w, r)
			return
		}
		if err := serveIndex(w, r, files); err != nil {
			logger.Get().Error(r.Context(), "frontend index unavailable", logger.Error(err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
	})

	logger.Get().Debug(ctx, "frontend routes registered")
}

func serveIndex(w http.ResponseWriter, r *http.Request, files http.FileSystem) error {
	f, err := files.Open(indexFile)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrServe, err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrServe, err)
	}
	http.ServeContent(w, r, indexFile, info.ModTime(), f)
	return nil
}
