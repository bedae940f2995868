package cover

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/skip2/go-qrcode"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/kornfeb/Easy-Auto-Video/internal/apperr"
	"github.com/kornfeb/Easy-Auto-Video/internal/region"
	"github.com/kornfeb/Easy-Auto-Video/internal/source"
)

const (
	SourceName = "cover_source.jpg"
	CoverName  = "cover.jpg"
)

// Select picks the second still image, or the first when only one exists.
// Video clips never become covers.
func Select(assets []source.Asset) (source.Asset, error) {
	var stills []source.Asset
	for _, a := range assets {
		if !a.IsVideo {
			stills = append(stills, a)
		}
	}
	switch len(stills) {
	case 0:
		return source.Asset{}, apperr.ErrNoAssets
	case 1:
		return stills[0], nil
	default:
		return stills[1], nil
	}
}

// Options describe the cover frame.
type Options struct {
	Width, Height int
	Title         string
	Subtitle      string
	Position      string // top, center, bottom
	Color         string // #RRGGBB
	Background    string // none, box
	QRText        string
	Quality       int
}

// Render writes the cover frame for srcPath to outPath as JPEG.
func Render(srcPath, outPath string, opts Options) error {
	src, err := source.DecodeImage(srcPath)
	if err != nil {
		return err
	}
	frame, err := Compose(src, opts)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return err
	}
	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	quality := opts.Quality
	if quality <= 0 {
		quality = 92
	}
	if err := jpeg.Encode(f, frame, &jpeg.Options{Quality: quality}); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Compose fills the target frame with the center of src and draws the
// optional text band and QR badge.
func Compose(src image.Image, opts Options) (*image.RGBA, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("invalid cover size %dx%d", opts.Width, opts.Height)
	}
	textColor, err := ParseHexColor(opts.Color)
	if err != nil {
		return nil, err
	}

	dst := image.NewRGBA(image.Rect(0, 0, opts.Width, opts.Height))
	b := src.Bounds()
	cw, ch := region.FitAspect(b.Dx(), b.Dy(), float64(opts.Width)/float64(opts.Height))
	x0 := b.Min.X + (b.Dx()-cw)/2
	y0 := b.Min.Y + (b.Dy()-ch)/2
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, image.Rect(x0, y0, x0+cw, y0+ch), draw.Src, nil)

	drawBand(dst, opts, textColor)

	if opts.QRText != "" {
		if err := drawQR(dst, opts.QRText); err != nil {
			return nil, err
		}
	}
	return dst, nil
}

type line struct {
	text  string
	scale int
}

func drawBand(dst *image.RGBA, opts Options, c color.RGBA) {
	var lines []line
	h := dst.Bounds().Dy()
	w := dst.Bounds().Dx()
	if t := strings.TrimSpace(opts.Title); t != "" {
		lines = append(lines, line{t, fitScale(t, w, max(1, h/20/13))})
	}
	if s := strings.TrimSpace(opts.Subtitle); s != "" {
		lines = append(lines, line{s, fitScale(s, w, max(1, h/32/13))})
	}
	if len(lines) == 0 {
		return
	}

	face := basicfont.Face7x13
	lineH := face.Metrics().Height.Ceil()
	pad := h / 60
	bandH := pad
	for _, l := range lines {
		bandH += lineH*l.scale + pad
	}

	var top int
	switch opts.Position {
	case "top":
		top = h / 12
	case "bottom":
		top = h - h/12 - bandH
	default:
		top = (h - bandH) / 2
	}
	band := image.Rect(0, top, w, top+bandH)

	if opts.Background == "box" {
		draw.Draw(dst, band, image.NewUniform(color.RGBA{A: 150}), image.Point{}, draw.Over)
	}

	y := top + pad
	for _, l := range lines {
		tw := font.MeasureString(face, l.text).Ceil()
		small := image.NewRGBA(image.Rect(0, 0, tw, lineH))
		d := &font.Drawer{
			Dst:  small,
			Src:  image.NewUniform(c),
			Face: face,
			Dot:  fixed.P(0, face.Metrics().Ascent.Ceil()),
		}
		d.DrawString(l.text)

		sw, sh := tw*l.scale, lineH*l.scale
		x := (w - sw) / 2
		draw.NearestNeighbor.Scale(dst, image.Rect(x, y, x+sw, y+sh), small, small.Bounds(), draw.Over, nil)
		y += sh + pad
	}
}

// fitScale shrinks the scale until the text fits in the frame width.
func fitScale(text string, width, scale int) int {
	tw := font.MeasureString(basicfont.Face7x13, text).Ceil()
	for scale > 1 && tw*scale > width*9/10 {
		scale--
	}
	return scale
}

func drawQR(dst *image.RGBA, text string) error {
	q, err := qrcode.New(text, qrcode.Medium)
	if err != nil {
		return fmt.Errorf("qr code: %w", err)
	}
	w, h := dst.Bounds().Dx(), dst.Bounds().Dy()
	size := min(w, h) / 5
	margin := min(w, h) / 30
	badge := q.Image(size)
	bb := badge.Bounds()
	at := image.Rect(w-margin-bb.Dx(), h-margin-bb.Dy(), w-margin, h-margin)
	draw.Draw(dst, at, badge, bb.Min, draw.Src)
	return nil
}

// ParseHexColor accepts #RGB and #RRGGBB. Empty means white.
func ParseHexColor(s string) (color.RGBA, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if s == "" {
		return color.RGBA{R: 255, G: 255, B: 255, A: 255}, nil
	}
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q", s)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
}
