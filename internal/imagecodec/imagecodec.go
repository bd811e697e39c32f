// Package imagecodec implements C5's sniff/decode/resize/encode steps:
// detecting whether a byte slice is a supported image, decoding it, resizing
// per a target box and ratio policy, and re-encoding to the requested
// output format.
package imagecodec

import (
	"bytes"
	"fmt"
	"image"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"

	"imgproxy/internal/params"
)

// ErrUnsupportedExtension is returned by Decode when the input is not a
// recognized, decodable image format.
var ErrUnsupportedExtension = fmt.Errorf("unsupporting extension")

// Sniff reports whether data looks like a decodable image, mirroring the
// original's imghdr-based format probe ahead of a full decode.
func Sniff(data []byte) bool {
	mt := mimetype.Detect(data)
	for m := mt; m != nil; m = m.Parent() {
		if m.Is("image/jpeg") || m.Is("image/png") || m.Is("image/gif") ||
			m.Is("image/webp") || m.Is("image/bmp") || m.Is("image/tiff") {
			return true
		}
	}
	return false
}

// Decode decodes data into an in-memory image, or ErrUnsupportedExtension if
// the bytes are not a recognized format.
func Decode(data []byte) (image.Image, error) {
	if !Sniff(data) {
		return nil, ErrUnsupportedExtension
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, ErrUnsupportedExtension
	}
	return img, nil
}

// Resize applies p's target box and ratio policy to img, per spec.md §4.5:
//   - target (W,H) = (width ?? src.w, height ?? src.h) — an unset axis takes
//     the source's own dimension, not an aspect-preserving scale.
//   - RatioPolicy.Resize: stretch to exactly (W, H), ignoring the source
//     aspect ratio.
//   - RatioPolicy.CropToCenter: resize to cover (W, H), then crop the
//     centered excess so the result is exactly (W, H).
func Resize(img image.Image, p params.Params) image.Image {
	b := img.Bounds()
	srcW, srcH := b.Dx(), b.Dy()

	w := p.WidthOr(srcW)
	h := p.HeightOr(srcH)
	if w == srcW && h == srcH {
		return img
	}

	switch p.RatioPolicy {
	case params.Resize:
		return imaging.Resize(img, w, h, imaging.Lanczos)
	default: // CropToCenter
		return imaging.Fill(img, w, h, imaging.Center, imaging.Lanczos)
	}
}

// Encode renders img in the format named by p.Extension at p.Quality.
//
// There is no mainstream pure-Go AVIF encoder: requesting Avif falls back to
// WebP, and the returned Extension reflects what was actually written (Webp)
// so the caller's Content-Type always matches the bytes on the wire instead
// of lying about the format.
func Encode(img image.Image, p params.Params) ([]byte, params.Extension, error) {
	switch p.Extension {
	case params.PNG:
		var buf bytes.Buffer
		if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
			return nil, "", fmt.Errorf("encode png: %w", err)
		}
		return buf.Bytes(), params.PNG, nil
	default: // Webp and the Avif fallback both land here.
		data, err := webp.EncodeRGBA(img, float32(p.Quality))
		if err != nil {
			return nil, "", fmt.Errorf("encode webp: %w", err)
		}
		return data, params.Webp, nil
	}
}
