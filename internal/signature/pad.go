// Package signature accumulates customer signature strokes and renders them to PNG.
package signature

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"

	d "github.com/fjod/go_pos/domain"
)

const (
	DefaultWidth  = 600
	DefaultHeight = 200
)

var ErrEmpty = errors.New("signature is empty")

// Pad is ephemeral: it lives only while the receipt screen is shown.
type Pad struct {
	strokes []d.Stroke
	width   int
	height  int
}

func NewPad() *Pad {
	return &Pad{width: DefaultWidth, height: DefaultHeight}
}

func (p *Pad) Add(strokes ...d.Stroke) {
	for _, s := range strokes {
		if len(s) == 0 {
			continue
		}
		p.strokes = append(p.strokes, append(d.Stroke(nil), s...))
	}
}

func (p *Pad) Clear() {
	p.strokes = nil
}

func (p *Pad) Empty() bool {
	return len(p.strokes) == 0
}

func (p *Pad) Strokes() int {
	return len(p.strokes)
}

// PNG rasterises the strokes as black lines on a white background.
func (p *Pad) PNG() ([]byte, error) {
	if p.Empty() {
		return nil, ErrEmpty
	}
	img := image.NewGray(image.Rect(0, 0, p.width, p.height))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	for _, stroke := range p.strokes {
		if len(stroke) == 1 {
			x, y := p.scale(stroke[0])
			img.SetGray(x, y, color.Gray{})
			continue
		}
		for i := 1; i < len(stroke); i++ {
			x0, y0 := p.scale(stroke[i-1])
			x1, y1 := p.scale(stroke[i])
			line(img, x0, y0, x1, y1)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode signature: %w", err)
	}
	return buf.Bytes(), nil
}

// DataURL is the payload format the signature endpoint accepts.
func (p *Pad) DataURL() (string, error) {
	raw, err := p.PNG()
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(raw), nil
}

func (p *Pad) scale(pt d.Point) (int, int) {
	x := int(math.Round(clamp(pt.X) * float64(p.width-1)))
	y := int(math.Round(clamp(pt.Y) * float64(p.height-1)))
	return x, y
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// line draws with Bresenham's algorithm.
func line(img *image.Gray, x0, y0, x1, y1 int) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for {
		img.SetGray(x0, y0, color.Gray{})
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
