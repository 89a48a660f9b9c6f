package detect

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClampBoxNegativeOrigin(t *testing.T) {
	box, ok := ClampBox(Box{X: -5, Y: 0, W: 50, H: 50}, 800, 600)

	require.True(t, ok)
	assert.Equal(t, Box{X: 0, Y: 0, W: 50, H: 50}, box)
}

func TestClampBoxOverflowingEdges(t *testing.T) {
	box, ok := ClampBox(Box{X: 750, Y: 560, W: 100, H: 100}, 800, 600)

	require.True(t, ok)
	assert.Equal(t, Box{X: 750, Y: 560, W: 50, H: 40}, box)
}

func TestClampBoxRejectsTiny(t *testing.T) {
	_, ok := ClampBox(Box{X: 10, Y: 10, W: 5, H: 100}, 800, 600)
	assert.False(t, ok)

	_, ok = ClampBox(Box{X: 10, Y: 10, W: 100, H: 15}, 800, 600)
	assert.False(t, ok)
}

func TestClampBoxRejectsOutside(t *testing.T) {
	_, ok := ClampBox(Box{X: 900, Y: 10, W: 50, H: 50}, 800, 600)
	assert.False(t, ok)

	_, ok = ClampBox(Box{X: 10, Y: 10, W: 50, H: 50}, 0, 0)
	assert.False(t, ok)
}

func TestBoxCenter(t *testing.T) {
	b := Box{X: 100, Y: 200, W: 50, H: 80}
	assert.Equal(t, image.Pt(125, 240), b.Center())
}

func TestSanitize(t *testing.T) {
	dets := []Detection{
		{Label: "person", Confidence: 0.9, Box: Box{X: -5, Y: 0, W: 50, H: 50}},
		{Label: "person", Confidence: 1.7, Box: Box{X: 10, Y: 10, W: 30, H: 60}},
		{Label: "person", Confidence: 0.5, Box: Box{X: 10, Y: 10, W: 2, H: 2}},
	}

	out := Sanitize(dets, 800, 600)

	require.Len(t, out, 2)
	assert.Equal(t, Box{X: 0, Y: 0, W: 50, H: 50}, out[0].Box)
	assert.Equal(t, 1.0, out[1].Confidence, "confidence clamped into [0,1]")
}

func TestParseOracleJSON(t *testing.T) {
	raw := `{"detections":[
		{"label":"person","confidence":0.92,"box":{"x":120,"y":80,"w":60,"h":140}},
		{"confidence":0.4,"box":{"x":300,"y":200,"w":40,"h":90}}
	]}`

	dets, err := parseOracleJSON(raw)
	require.NoError(t, err)
	require.Len(t, dets, 2)

	assert.Equal(t, "person", dets[0].Label)
	assert.Equal(t, 0.92, dets[0].Confidence)
	assert.Equal(t, Box{X: 120, Y: 80, W: 60, H: 140}, dets[0].Box)
	assert.Equal(t, "person", dets[1].Label, "missing label defaults to person")
}

func TestParseOracleJSONEmpty(t *testing.T) {
	dets, err := parseOracleJSON(`{}`)
	require.NoError(t, err)
	assert.Empty(t, dets)
}

func TestParseOracleJSONInvalid(t *testing.T) {
	_, err := parseOracleJSON(`I see two people near the tee box.`)
	assert.Error(t, err)
}
