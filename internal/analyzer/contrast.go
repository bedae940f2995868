package analyzer

import (
	"image"
	"math"

	"golang.org/x/image/draw"
)

// ContrastDetector locates product-like regions in a photo without a model.
// A pixel belongs to a candidate region when it sits on a strong edge or when
// its tone stands apart from the background sampled along the image border.
type ContrastDetector struct {
	MinBlockArea    int     // smallest kept region, in pixels at analysis size
	EdgeThreshold   float64 // Sobel magnitude counted as an edge
	BackgroundDelta int     // luminance distance from the border tone counted as foreground
	MaxForeground   float64 // above this foreground share the backdrop is not plain; edges only
	Grow            int     // radius joining nearby edges into one region
}

func NewContrastDetector() *ContrastDetector {
	return &ContrastDetector{
		MinBlockArea:    200, // ~14x14 at analysis size
		EdgeThreshold:   30.0,
		BackgroundDelta: 40,
		MaxForeground:   0.85,
		Grow:            4,
	}
}

// Detect returns candidate subject regions in image coordinates. Confidence
// grows with how much of the region is actually covered.
func (d *ContrastDetector) Detect(img image.Image) ([]Block, error) {
	b := img.Bounds()
	if b.Dx() < 3 || b.Dy() < 3 {
		return nil, nil
	}
	gray := toGrayscale(img)

	hits := edgeMask(gray, d.EdgeThreshold)
	if fg, share := foregroundMask(gray, d.BackgroundDelta); share <= d.MaxForeground {
		hits.union(fg)
	}

	var blocks []Block
	for _, r := range hits.grow(d.Grow).components() {
		area := r.Dx() * r.Dy()
		if area < d.MinBlockArea {
			continue
		}
		fill := float64(hits.count(r)) / float64(area)
		blocks = append(blocks, Block{
			Rect:       r.Add(b.Min),
			Type:       "object",
			Confidence: math.Min(0.9, 0.5+0.4*fill),
		})
	}
	return blocks, nil
}

// toGrayscale returns a zero-origin luminance copy of img.
func toGrayscale(img image.Image) *image.Gray {
	b := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(gray, gray.Bounds(), img, b.Min, draw.Src)
	return gray
}

// mask is a binary image, one flag per pixel, row major.
type mask struct {
	w, h int
	pix  []bool
}

func newMask(w, h int) *mask {
	return &mask{w: w, h: h, pix: make([]bool, w*h)}
}

func (m *mask) union(o *mask) {
	for i, on := range o.pix {
		if on {
			m.pix[i] = true
		}
	}
}

func (m *mask) count(r image.Rectangle) int {
	n := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		row := m.pix[y*m.w : (y+1)*m.w]
		for x := r.Min.X; x < r.Max.X; x++ {
			if row[x] {
				n++
			}
		}
	}
	return n
}

// edgeMask marks pixels whose Sobel gradient exceeds threshold.
func edgeMask(g *image.Gray, threshold float64) *mask {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	m := newMask(w, h)
	at := func(x, y int) float64 { return float64(g.Pix[y*g.Stride+x]) }
	limit := threshold * threshold

	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			gx := at(x+1, y-1) + 2*at(x+1, y) + at(x+1, y+1) -
				at(x-1, y-1) - 2*at(x-1, y) - at(x-1, y+1)
			gy := at(x-1, y+1) + 2*at(x, y+1) + at(x+1, y+1) -
				at(x-1, y-1) - 2*at(x, y-1) - at(x+1, y-1)
			if gx*gx+gy*gy > limit {
				m.pix[y*w+x] = true
			}
		}
	}
	return m
}

// foregroundMask marks pixels far from the border tone and reports the
// share of the image they cover.
func foregroundMask(g *image.Gray, delta int) (*mask, float64) {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	m := newMask(w, h)
	tone := int(borderTone(g))
	n := 0
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := int(g.Pix[y*g.Stride+x])
			if v-tone > delta || tone-v > delta {
				m.pix[y*w+x] = true
				n++
			}
		}
	}
	return m, float64(n) / float64(w*h)
}

// borderTone is the median luminance of the outermost pixel ring.
func borderTone(g *image.Gray) uint8 {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	var hist [256]int
	n := 0
	add := func(x, y int) {
		hist[g.Pix[y*g.Stride+x]]++
		n++
	}
	for x := 0; x < w; x++ {
		add(x, 0)
		add(x, h-1)
	}
	for y := 1; y < h-1; y++ {
		add(0, y)
		add(w-1, y)
	}

	seen := 0
	for v, c := range hist {
		seen += c
		if seen > n/2 {
			return uint8(v)
		}
	}
	return 0
}

// grow dilates the mask with a square of side 2r+1, one axis at a time.
func (m *mask) grow(r int) *mask {
	if r <= 0 {
		return m
	}
	rows := newMask(m.w, m.h)
	for y := 0; y < m.h; y++ {
		base := y * m.w
		for x := 0; x < m.w; x++ {
			if !m.pix[base+x] {
				continue
			}
			for i := max(0, x-r); i <= min(m.w-1, x+r); i++ {
				rows.pix[base+i] = true
			}
		}
	}
	out := newMask(m.w, m.h)
	for y := 0; y < m.h; y++ {
		for x := 0; x < m.w; x++ {
			if !rows.pix[y*m.w+x] {
				continue
			}
			for j := max(0, y-r); j <= min(m.h-1, y+r); j++ {
				out.pix[j*m.w+x] = true
			}
		}
	}
	return out
}

// components returns the bounding boxes of 4-connected regions.
func (m *mask) components() []image.Rectangle {
	seen := make([]bool, len(m.pix))
	var stack []int
	push := func(q int) {
		if m.pix[q] && !seen[q] {
			seen[q] = true
			stack = append(stack, q)
		}
	}

	var out []image.Rectangle
	for i, on := range m.pix {
		if !on || seen[i] {
			continue
		}
		seen[i] = true
		stack = append(stack[:0], i)
		minX, minY, maxX, maxY := m.w, m.h, -1, -1
		for len(stack) > 0 {
			p := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			x, y := p%m.w, p/m.w
			minX, maxX = min(minX, x), max(maxX, x)
			minY, maxY = min(minY, y), max(maxY, y)
			if x > 0 {
				push(p - 1)
			}
			if x < m.w-1 {
				push(p + 1)
			}
			if y > 0 {
				push(p - m.w)
			}
			if y < m.h-1 {
				push(p + m.w)
			}
		}
		out = append(out, image.Rect(minX, minY, maxX+1, maxY+1))
	}
	return out
}
