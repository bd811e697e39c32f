// Package processor implements C5: the lookup -> fetch -> decode -> resize
// -> encode -> populate pipeline behind GET /images/{id}, and the prefetch
// path behind PUT /images/{id}.
package processor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"imgproxy/internal/buffer"
	"imgproxy/internal/derivative"
	"imgproxy/internal/fetcher"
	"imgproxy/internal/imagecodec"
	"imgproxy/internal/imageid"
	"imgproxy/internal/observability"
	"imgproxy/internal/params"
	"imgproxy/internal/store"
)

// ErrorKind classifies a processing failure for HTTP status mapping (§7).
type ErrorKind string

const (
	KindUnsupportingExtension ErrorKind = "UnsupportingExtension"
	KindNotFound              ErrorKind = "NotFound"
	KindFileApiError          ErrorKind = "FileApiError"
	KindProcessedImagesLimit  ErrorKind = "ProcessedImagesLimit"
	KindInvalidSize           ErrorKind = "InvalidSize"
)

// Error is the processing failure taxonomy from spec.md §7.
type Error struct {
	Kind   ErrorKind
	Detail string
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %s", e.Kind, e.Detail) }

func newError(kind ErrorKind, detail string) *Error {
	if detail == "" {
		detail = defaultDetail(kind)
	}
	return &Error{Kind: kind, Detail: detail}
}

func defaultDetail(kind ErrorKind) string {
	switch kind {
	case KindUnsupportingExtension:
		return "current image extension is not supported or not an image"
	case KindNotFound:
		return "current image is not found"
	case KindFileApiError:
		return "file not found"
	case KindProcessedImagesLimit:
		return "per-image processed variant limit exceeded"
	case KindInvalidSize:
		return "invalid size or quality parameters"
	default:
		return ""
	}
}

// NewInvalidSize wraps a param-validation failure (detected before the
// pipeline runs) as a ProcessingError, so handlers map it the same way as
// every other processing failure.
func NewInvalidSize(detail string) error {
	return newError(KindInvalidSize, detail)
}

// Processor wires the two cache tiers, the original store, and the upstream
// fetcher into the get/prefetch algorithms from spec.md §4.5.
type Processor struct {
	store   store.Store
	cache   derivative.Cache
	fetcher fetcher.Backend // nil disables upstream fetch, per spec.md §6 (file API optional).
	metrics *observability.Collector
	logger  *zap.Logger
}

// New builds a Processor. fetcher may be nil to disable upstream fetch.
func New(st store.Store, cache derivative.Cache, fb fetcher.Backend, metrics *observability.Collector, logger *zap.Logger) *Processor {
	return &Processor{store: st, cache: cache, fetcher: fb, metrics: metrics, logger: logger}
}

// Get runs the full pipeline for id/p: cache hit returns immediately;
// otherwise the original bytes are located (store, then upstream on a store
// miss) and processed, populating both caches before returning.
func (p *Processor) Get(ctx context.Context, id imageid.ID, prm params.Params) (derivative.EncodedImage, error) {
	if cached, ok := p.cache.Get(ctx, id, prm); ok {
		p.logger.Debug("derivative cache hit", zap.String("image_id", id.String()))
		p.metrics.DerivativeCacheHits.Inc()
		return cached, nil
	}
	p.metrics.DerivativeCacheMisses.Inc()

	if original, ok := p.store.Get(ctx, id); ok {
		if !imagecodec.Sniff(original.Data.Bytes()) {
			p.logger.Warn("storage entry is corrupted, falling back to upstream",
				zap.String("image_id", id.String()))
		} else {
			p.logger.Debug("found original in storage, processing", zap.String("image_id", id.String()))
			p.metrics.StorageHits.Inc()
			return p.process(ctx, id, original.Data.Bytes(), original.Filename, prm)
		}
	}
	p.metrics.StorageMisses.Inc()

	if p.fetcher == nil {
		p.logger.Debug("file api disabled, image not found", zap.String("image_id", id.String()))
		return derivative.EncodedImage{}, newError(KindNotFound, "")
	}

	data, err := p.fetcher.Fetch(ctx, id)
	if err != nil {
		p.metrics.UpstreamFetches.WithLabelValues("error").Inc()
		var fe *fetcher.Error
		if errors.As(err, &fe) {
			if fe.HTTPStatus != nil && *fe.HTTPStatus == 404 {
				return derivative.EncodedImage{}, newError(KindNotFound, fe.Reason)
			}
			return derivative.EncodedImage{}, newError(KindFileApiError, fe.Error())
		}
		return derivative.EncodedImage{}, newError(KindFileApiError, err.Error())
	}
	p.metrics.UpstreamFetches.WithLabelValues("ok").Inc()

	p.logger.Debug("fetched from upstream, storing original", zap.String("image_id", id.String()))
	if err := p.store.Set(ctx, id, store.Original{Data: buffer.New(data)}); err != nil {
		p.logger.Warn("failed to populate original store", zap.String("image_id", id.String()), zap.Error(err))
	}

	return p.process(ctx, id, data, "", prm)
}

// process decodes, resizes, and re-encodes original per p, then populates
// the derivative cache before returning the result. filenameHint is the
// original's stored filename (empty when it came from an upstream fetch
// rather than a preload) and is carried into the result's Filename.
func (p *Processor) process(ctx context.Context, id imageid.ID, original []byte, filenameHint string, prm params.Params) (derivative.EncodedImage, error) {
	start := time.Now()

	img, err := imagecodec.Decode(original)
	if err != nil {
		return derivative.EncodedImage{}, newError(KindUnsupportingExtension, "")
	}

	resized := imagecodec.Resize(img, prm)
	data, ext, err := imagecodec.Encode(resized, prm)
	if err != nil {
		return derivative.EncodedImage{}, newError(KindUnsupportingExtension, err.Error())
	}
	p.metrics.ProcessingDuration.WithLabelValues(string(ext)).Observe(time.Since(start).Seconds())

	var filename *string
	if filenameHint != "" {
		filename = &filenameHint
	}

	result := derivative.EncodedImage{
		Data:      buffer.New(data),
		Filename:  filename,
		Extension: ext,
	}

	if err := p.cache.Set(ctx, id, prm, result); err != nil {
		if errors.Is(err, derivative.ErrLimitExceeded) {
			p.metrics.AdmissionRejections.Inc()
			return derivative.EncodedImage{}, newError(KindProcessedImagesLimit, "")
		}
		p.logger.Warn("failed to populate derivative cache", zap.String("image_id", id.String()), zap.Error(err))
	}

	return result, nil
}

// Prefetch stores data as id's original bytes ahead of any request for it,
// per PUT /images/{id}, and invalidates every derivative previously cached
// for id so a subsequent GET reflects the new original instead of a stale
// derivative. filenameHint is the display filename to surface on later
// GETs (the handler resolves it from the request's Content-Disposition,
// falling back to id, per spec.md §4.5's prefetch(id, filename_hint, bytes)).
func (p *Processor) Prefetch(ctx context.Context, id imageid.ID, filenameHint string, data []byte) error {
	if !imagecodec.Sniff(data) {
		return newError(KindUnsupportingExtension, "")
	}
	if err := p.store.Set(ctx, id, store.Original{Data: buffer.New(data), Filename: filenameHint}); err != nil {
		p.logger.Warn("prefetch store set failed", zap.String("image_id", id.String()), zap.Error(err))
	}
	if err := p.cache.Remove(ctx, id); err != nil {
		p.logger.Warn("prefetch cache invalidation failed", zap.String("image_id", id.String()), zap.Error(err))
	}
	return nil
}
