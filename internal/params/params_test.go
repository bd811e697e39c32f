package params_test

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imgproxy/internal/params"
)

func defaultBounds() params.Bounds {
	return params.Bounds{
		MaxWidth:         1920,
		MaxHeight:        1080,
		DefaultExtension: params.Webp,
		AllowCustomExt:   true,
	}
}

func TestFromQuery_Defaults(t *testing.T) {
	p, err := params.FromQuery(url.Values{}, defaultBounds())
	require.NoError(t, err)

	assert.Equal(t, 0, p.Width)
	assert.Equal(t, 0, p.Height)
	assert.Equal(t, params.Webp, p.Extension)
	assert.Equal(t, 82, p.Quality)
	assert.Equal(t, params.CropToCenter, p.RatioPolicy)
}

func TestFromQuery_ValidValues(t *testing.T) {
	q := url.Values{
		"width":        {"100"},
		"height":       {"200"},
		"extension":    {"PNG"},
		"quality":      {"50"},
		"ratio_policy": {"Resize"},
	}
	p, err := params.FromQuery(q, defaultBounds())
	require.NoError(t, err)

	assert.Equal(t, 100, p.Width)
	assert.Equal(t, 200, p.Height)
	assert.Equal(t, params.PNG, p.Extension)
	assert.Equal(t, 50, p.Quality)
	assert.Equal(t, params.Resize, p.RatioPolicy)
}

func TestFromQuery_RejectsOutOfRangeQuality(t *testing.T) {
	_, err := params.FromQuery(url.Values{"quality": {"5"}}, defaultBounds())
	assert.Error(t, err)

	_, err = params.FromQuery(url.Values{"quality": {"101"}}, defaultBounds())
	assert.Error(t, err)
}

func TestFromQuery_RejectsOversizedDimensions(t *testing.T) {
	_, err := params.FromQuery(url.Values{"width": {"5000"}}, defaultBounds())
	assert.Error(t, err)

	_, err = params.FromQuery(url.Values{"height": {"5000"}}, defaultBounds())
	assert.Error(t, err)
}

func TestFromQuery_RejectsUnknownExtension(t *testing.T) {
	_, err := params.FromQuery(url.Values{"extension": {"Gif"}}, defaultBounds())
	assert.Error(t, err)
}

func TestFromQuery_RejectsCustomExtensionWhenDisallowed(t *testing.T) {
	b := defaultBounds()
	b.AllowCustomExt = false
	_, err := params.FromQuery(url.Values{"extension": {"PNG"}}, b)
	assert.Error(t, err)
}

func TestCanonicalJSON_EqualParamsProduceEqualKeys(t *testing.T) {
	a := params.Params{Width: 100, Height: 200, Extension: params.Webp, Quality: 82, RatioPolicy: params.CropToCenter}
	b := params.Params{Width: 100, Height: 200, Extension: params.Webp, Quality: 82, RatioPolicy: params.CropToCenter}

	assert.Equal(t, a.CanonicalJSON(), b.CanonicalJSON())
	assert.Equal(t, a, b) // also comparable as a map/struct key
}

func TestCanonicalJSON_StartsWithBrace(t *testing.T) {
	p := params.Params{Width: 100, Extension: params.Webp, Quality: 82, RatioPolicy: params.CropToCenter}
	raw := p.CanonicalJSON()
	require.NotEmpty(t, raw)
	assert.Equal(t, byte('{'), raw[0])
}

func TestLess_TotalOrder(t *testing.T) {
	small := params.Params{Width: 100, Quality: 82}
	big := params.Params{Width: 200, Quality: 82}

	assert.True(t, small.Less(big))
	assert.False(t, big.Less(small))
	assert.False(t, small.Less(small))
}
