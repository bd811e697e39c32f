package httpapi_test

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"imgproxy/internal/apperr"
	"imgproxy/internal/derivative"
	"imgproxy/internal/httpapi"
	"imgproxy/internal/observability"
	"imgproxy/internal/params"
	"imgproxy/internal/processor"
	"imgproxy/internal/store"
)

const testAPIKey = "secret-key"

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	return solidPNG(t, w, h, color.RGBA{B: 255, A: 255})
}

func solidPNG(t *testing.T, w, h int, c color.RGBA) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newTestRouter(t *testing.T, maxOptions int, overflow derivative.OverflowPolicy) http.Handler {
	t.Helper()
	st := store.NewMemoryStore(64)
	cache := derivative.NewMemoryCache(64, derivative.Config{MaxOptionsPerImage: maxOptions, OverflowPolicy: overflow}, nil)
	metrics := observability.NewCollector("httptest")
	logger := zap.NewNop()
	proc := processor.New(st, cache, nil, metrics, logger)

	return httpapi.NewRouter(proc, httpapi.Config{
		APIKey:         testAPIKey,
		Bounds:         params.Bounds{MaxWidth: 1920, MaxHeight: 1080, DefaultExtension: params.Webp, AllowCustomExt: true},
		ClientCacheTTL: 365 * 24 * time.Hour,
		EnableDocs:     true,
	}, metrics, logger)
}

func putImage(t *testing.T, router http.Handler, id string, apiKey string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPut, "/images/"+id, bytes.NewReader(data))
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestE2E_PreloadThenFetch(t *testing.T) {
	router := newTestRouter(t, 32, derivative.Rewrite)

	putRec := putImage(t, router, "cat", testAPIKey, pngBytes(t, 200, 200))
	require.Equal(t, http.StatusOK, putRec.Code)

	getReq := httptest.NewRequest(http.MethodGet, "/images/cat?width=100&height=100&extension=Webp", nil)
	getRec := httptest.NewRecorder()
	router.ServeHTTP(getRec, getReq)

	require.Equal(t, http.StatusOK, getRec.Code)
	assert.Equal(t, "image/webp", getRec.Header().Get("Content-Type"))
	assert.NotEmpty(t, getRec.Body.Bytes())
}

func TestE2E_UnauthorizedPreload(t *testing.T) {
	router := newTestRouter(t, 32, derivative.Rewrite)

	rec := putImage(t, router, "cat", "wrong-key", pngBytes(t, 10, 10))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	var body apperr.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Mismatched api key", body.Detail)
}

func TestE2E_MissWithUpstreamDisabled(t *testing.T) {
	router := newTestRouter(t, 32, derivative.Rewrite)

	getReq := httptest.NewRequest(http.MethodGet, "/images/absent?width=50&height=50", nil)
	getRec := httptest.NewRecorder()
	router.ServeHTTP(getRec, getReq)

	require.Equal(t, http.StatusNotFound, getRec.Code)

	var body apperr.Response
	require.NoError(t, json.Unmarshal(getRec.Body.Bytes(), &body))
	assert.Equal(t, "not_found", body.ErrorType)
}

func TestE2E_AdmissionRestrict(t *testing.T) {
	router := newTestRouter(t, 2, derivative.Restrict)

	require.Equal(t, http.StatusOK, putImage(t, router, "x", testAPIKey, pngBytes(t, 200, 200)).Code)

	get := func(q string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/images/x?"+q, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	require.Equal(t, http.StatusOK, get("width=10&height=10").Code)
	require.Equal(t, http.StatusOK, get("width=20&height=20").Code)

	third := get("width=30&height=30")
	require.Equal(t, http.StatusBadRequest, third.Code)

	var body apperr.Response
	require.NoError(t, json.Unmarshal(third.Body.Bytes(), &body))
	assert.Equal(t, "processed_images_limit", body.ErrorType)
}

func TestE2E_AdmissionRewrite(t *testing.T) {
	router := newTestRouter(t, 2, derivative.Rewrite)

	require.Equal(t, http.StatusOK, putImage(t, router, "x", testAPIKey, pngBytes(t, 200, 200)).Code)

	get := func(q string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/images/x?"+q, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	require.Equal(t, http.StatusOK, get("width=10&height=10").Code)
	require.Equal(t, http.StatusOK, get("width=20&height=20").Code)
	require.Equal(t, http.StatusOK, get("width=30&height=30").Code, "Rewrite policy must admit a new variant past the limit")
}

func TestE2E_PrefetchInvalidatesDerivatives(t *testing.T) {
	router := newTestRouter(t, 32, derivative.Rewrite)

	require.Equal(t, http.StatusOK, putImage(t, router, "y", testAPIKey, pngBytes(t, 200, 200)).Code)

	get := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/images/y?width=10&height=10", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	first := get()
	require.Equal(t, http.StatusOK, first.Code)

	// The new original differs in colour: any solid image scaled to 10x10
	// yields the same derivative whatever its source size.
	require.Equal(t, http.StatusOK, putImage(t, router, "y", testAPIKey, solidPNG(t, 400, 400, color.RGBA{R: 255, A: 255})).Code)

	second := get()
	require.Equal(t, http.StatusOK, second.Code)
	assert.NotEqual(t, first.Body.Bytes(), second.Body.Bytes(), "derivative must be reprocessed from the new original")
}

func TestHealthAndReady(t *testing.T) {
	router := newTestRouter(t, 32, derivative.Rewrite)

	for _, path := range []string{"/health", "/ready"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}
