// Package params models the processing parameters a derivative is keyed on:
// target dimensions, output format, quality, and crop policy.
package params

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/go-playground/validator/v10"
)

// Extension is the output image format.
type Extension string

const (
	Webp Extension = "Webp"
	Avif Extension = "Avif"
	PNG  Extension = "PNG"
)

// Valid reports whether e is one of the enumerated output formats.
func (e Extension) Valid() bool {
	switch e {
	case Webp, Avif, PNG:
		return true
	default:
		return false
	}
}

// ContentType returns the MIME type used for the Content-Type header.
func (e Extension) ContentType() string {
	switch e {
	case Avif:
		return "image/avif"
	case PNG:
		return "image/png"
	default:
		return "image/webp"
	}
}

// FileExtension returns the lowercase file suffix (without the dot) used in
// Content-Disposition filenames.
func (e Extension) FileExtension() string {
	switch e {
	case Avif:
		return "avif"
	case PNG:
		return "png"
	default:
		return "webp"
	}
}

// RatioPolicy controls how a source aspect ratio is reconciled with the
// requested target box.
type RatioPolicy string

const (
	Resize       RatioPolicy = "Resize"
	CropToCenter RatioPolicy = "CropToCenter"
)

func (p RatioPolicy) valid() bool {
	switch p {
	case Resize, CropToCenter:
		return true
	default:
		return false
	}
}

// Params is a configuration record that identifies a derivative: equal
// Params must produce equal JSON (the canonical on-disk key) and compare
// equal under Go's == (the in-memory map key). Width/Height use 0 to mean
// "unset" (valid widths/heights are always positive) specifically so Params
// stays a plain comparable struct instead of needing pointer fields, which
// would make two semantically-identical param sets compare unequal as map
// keys.
type Params struct {
	Width       int         `json:"width,omitempty" validate:"gte=0"`
	Height      int         `json:"height,omitempty" validate:"gte=0"`
	Extension   Extension   `json:"extension"`
	Quality     int         `json:"quality" validate:"gte=10,lte=100"`
	RatioPolicy RatioPolicy `json:"ratio_policy"`
}

// WidthOr returns Width if set, otherwise fallback.
func (p Params) WidthOr(fallback int) int {
	if p.Width == 0 {
		return fallback
	}
	return p.Width
}

// HeightOr returns Height if set, otherwise fallback.
func (p Params) HeightOr(fallback int) int {
	if p.Height == 0 {
		return fallback
	}
	return p.Height
}

// Bounds carries the server-side limits Params are validated against.
type Bounds struct {
	MaxWidth         int
	MaxHeight        int
	DefaultExtension Extension
	AllowCustomExt   bool
}

const defaultQuality = 82

var validate = validator.New()

// FromQuery parses width/height/extension/quality/ratio_policy from request
// query parameters, applying defaults and bounds. It returns a descriptive
// error (surfaced by the caller as InvalidSize) on any out-of-range value.
func FromQuery(q url.Values, b Bounds) (Params, error) {
	p := Params{
		Extension:   b.DefaultExtension,
		Quality:     defaultQuality,
		RatioPolicy: CropToCenter,
	}

	if v := q.Get("width"); v != "" {
		w, err := strconv.Atoi(v)
		if err != nil || w <= 0 {
			return Params{}, fmt.Errorf("invalid width %q", v)
		}
		if w > b.MaxWidth {
			return Params{}, fmt.Errorf("width %d exceeds max %d", w, b.MaxWidth)
		}
		p.Width = w
	}
	if v := q.Get("height"); v != "" {
		h, err := strconv.Atoi(v)
		if err != nil || h <= 0 {
			return Params{}, fmt.Errorf("invalid height %q", v)
		}
		if h > b.MaxHeight {
			return Params{}, fmt.Errorf("height %d exceeds max %d", h, b.MaxHeight)
		}
		p.Height = h
	}
	if v := q.Get("extension"); v != "" {
		ext := Extension(v)
		if !ext.Valid() {
			return Params{}, fmt.Errorf("unsupported extension %q", v)
		}
		if !b.AllowCustomExt && ext != b.DefaultExtension {
			return Params{}, fmt.Errorf("custom extension not allowed")
		}
		p.Extension = ext
	}
	if v := q.Get("quality"); v != "" {
		qq, err := strconv.Atoi(v)
		if err != nil {
			return Params{}, fmt.Errorf("invalid quality %q", v)
		}
		p.Quality = qq
	}
	if v := q.Get("ratio_policy"); v != "" {
		rp := RatioPolicy(v)
		if !rp.valid() {
			return Params{}, fmt.Errorf("invalid ratio_policy %q", v)
		}
		p.RatioPolicy = rp
	}

	if err := validate.Struct(p); err != nil {
		return Params{}, err
	}
	return p, nil
}

// CanonicalJSON returns the deterministic on-disk key representation. Go's
// encoding/json always emits struct fields in declaration order, so equal
// Params always serialize byte-identically, and the result always begins
// with '{' — the invariant the persistent derivative cache's
// remove-by-prefix relies on.
func (p Params) CanonicalJSON() string {
	b, err := json.Marshal(p)
	if err != nil {
		// Params has no type that can fail to marshal; a failure here would
		// be a programming error, not a runtime condition to recover from.
		panic(fmt.Sprintf("params: canonical json: %v", err))
	}
	return string(b)
}

// Less defines the canonical total order over Params used to break eviction
// ties in the VariantIndex (the "greatest" param per §4.3's Rewrite policy
// is the maximum under this order).
func (p Params) Less(other Params) bool {
	if p.Width != other.Width {
		return p.Width < other.Width
	}
	if p.Height != other.Height {
		return p.Height < other.Height
	}
	if p.Extension != other.Extension {
		return p.Extension < other.Extension
	}
	if p.Quality != other.Quality {
		return p.Quality < other.Quality
	}
	return p.RatioPolicy < other.RatioPolicy
}
