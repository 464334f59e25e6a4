package signature

import (
	"bytes"
	"encoding/base64"
	"image/png"
	"strings"
	"testing"

	d "github.com/fjod/go_pos/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPad_EmptyCannotRender(t *testing.T) {
	p := NewPad()
	p.Add(d.Stroke{})

	assert.True(t, p.Empty())
	_, err := p.PNG()
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestPad_RendersStrokes(t *testing.T) {
	p := NewPad()
	p.Add(d.Stroke{{X: 0, Y: 0}, {X: 1, Y: 1}}, d.Stroke{{X: 0.5, Y: 0.5}})

	raw, err := p.PNG()
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, DefaultWidth, img.Bounds().Dx())
	assert.Equal(t, DefaultHeight, img.Bounds().Dy())

	r, _, _, _ := img.At(0, 0).RGBA()
	assert.Equal(t, uint32(0), r, "stroke start should be inked")
	r, _, _, _ = img.At(DefaultWidth-1, 0).RGBA()
	assert.NotEqual(t, uint32(0), r, "corner off the stroke stays blank")
}

func TestPad_ClampsOutOfRangePoints(t *testing.T) {
	p := NewPad()
	p.Add(d.Stroke{{X: -3, Y: 7}, {X: 2, Y: -1}})

	_, err := p.PNG()
	assert.NoError(t, err)
}

func TestPad_DataURL(t *testing.T) {
	p := NewPad()
	p.Add(d.Stroke{{X: 0.1, Y: 0.1}, {X: 0.9, Y: 0.2}})

	url, err := p.DataURL()
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(url, "data:image/png;base64,"))

	_, err = base64.StdEncoding.DecodeString(strings.TrimPrefix(url, "data:image/png;base64,"))
	assert.NoError(t, err)
}

func TestPad_Clear(t *testing.T) {
	p := NewPad()
	p.Add(d.Stroke{{X: 0.1, Y: 0.1}})
	assert.Equal(t, 1, p.Strokes())

	p.Clear()
	assert.True(t, p.Empty())
}
