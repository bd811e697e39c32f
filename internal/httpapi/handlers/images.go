// Package handlers implements C7's two endpoints: GET and PUT /images/{id}.
package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"imgproxy/internal/apperr"
	"imgproxy/internal/filename"
	"imgproxy/internal/imageid"
	"imgproxy/internal/params"
	"imgproxy/internal/processor"
)

// Images serves GET/PUT /images/{id}.
type Images struct {
	proc           *processor.Processor
	bounds         params.Bounds
	clientCacheTTL time.Duration
	logger         *zap.Logger
}

// New builds an Images handler set.
func New(proc *processor.Processor, bounds params.Bounds, clientCacheTTL time.Duration, logger *zap.Logger) *Images {
	return &Images{proc: proc, bounds: bounds, clientCacheTTL: clientCacheTTL, logger: logger}
}

// Get handles GET /images/{id}?width=&height=&extension=&quality=&ratio_policy=.
func (h *Images) Get(w http.ResponseWriter, r *http.Request) {
	id, err := imageid.Sanitize(chi.URLParam(r, "id"))
	if err != nil {
		apperr.WriteJSON(w, processor.NewInvalidSize("invalid image id"))
		return
	}

	prm, err := params.FromQuery(r.URL.Query(), h.bounds)
	if err != nil {
		apperr.WriteJSON(w, processor.NewInvalidSize(err.Error()))
		return
	}

	h.logger.Debug("get image", zap.String("image_id", id.String()))
	img, err := h.proc.Get(r.Context(), id, prm)
	if err != nil {
		apperr.WriteJSON(w, err)
		return
	}

	name := "image"
	if img.Filename != nil {
		name = *img.Filename
	}
	ext := img.Extension.FileExtension()

	w.Header().Set("Content-Type", img.Extension.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(
		`inline; filename="%s.%s"; filename*=UTF-8''%s.%s`,
		name, ext, url.PathEscape(name), ext,
	))
	w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d, immutable", int(h.clientCacheTTL.Seconds())))
	w.Header().Set("Expires", time.Now().Add(h.clientCacheTTL).UTC().Format(http.TimeFormat))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(img.Data.Bytes())
}

// Put handles PUT /images/{id}: prefetch raw bytes into the original store.
// API key authentication is applied as middleware ahead of this handler.
func (h *Images) Put(w http.ResponseWriter, r *http.Request) {
	id, err := imageid.Sanitize(chi.URLParam(r, "id"))
	if err != nil {
		apperr.WriteJSON(w, processor.NewInvalidSize("invalid image id"))
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		apperr.WriteJSON(w, processor.NewInvalidSize("failed to read request body"))
		return
	}

	hint := filename.Extract(r.Header)
	if hint == "" {
		hint = id.String()
	}

	h.logger.Debug("prefetch image", zap.String("image_id", id.String()))
	if err := h.proc.Prefetch(r.Context(), id, hint, body); err != nil {
		apperr.WriteJSON(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "Ok"})
}
