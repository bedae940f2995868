package source

import (
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"

	"github.com/gen2brain/go-fitz"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Source is a paged document that can be rasterized.
type Source interface {
	PageCount() int
	GetPageDimensions(index int) (width, height float64, err error)
	RenderPage(index int, dpi int) (image.Image, error)
	Close() error
}

type FitzPDFSource struct {
	doc  *fitz.Document
	path string
}

func NewFitzPDFSource(path string) (*FitzPDFSource, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, err
	}
	return &FitzPDFSource{doc: doc, path: path}, nil
}

func (f *FitzPDFSource) PageCount() int {
	return f.doc.NumPage()
}

func (f *FitzPDFSource) GetPageDimensions(index int) (float64, float64, error) {
	rect, err := f.doc.Bound(index)
	if err != nil {
		return 0, 0, err
	}
	return float64(rect.Dx()), float64(rect.Dy()), nil
}

// RenderPage opens its own document handle; a fitz.Document is not safe
// for concurrent rendering.
func (f *FitzPDFSource) RenderPage(index int, dpi int) (image.Image, error) {
	workerDoc, err := fitz.New(f.path)
	if err != nil {
		return nil, err
	}
	defer workerDoc.Close()
	return workerDoc.ImageDPI(index, float64(dpi))
}

func (f *FitzPDFSource) Close() error {
	return f.doc.Close()
}

// ImportOptions controls PDF rasterization.
type ImportOptions struct {
	DPI     int
	Workers int
	Quality int // JPEG quality
	Logger  zerolog.Logger
}

// PageName is the file name of a rasterized page; zero padding keeps the
// natural order stable for catalogs below a thousand pages.
func PageName(index int) string {
	return fmt.Sprintf("page_%03d.jpg", index+1)
}

// ImportPDF rasterizes every page of a PDF catalog into outDir as JPEG
// assets and returns the written paths in page order.
func ImportPDF(ctx context.Context, src Source, outDir string, opts ImportOptions) ([]string, error) {
	if opts.DPI <= 0 {
		opts.DPI = 150
	}
	if opts.Workers <= 0 {
		opts.Workers = 2
	}
	if opts.Quality <= 0 {
		opts.Quality = 90
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, err
	}

	pages := src.PageCount()
	if pages == 0 {
		return nil, fmt.Errorf("document has no pages")
	}
	opts.Logger.Info().Int("pages", pages).Int("dpi", opts.DPI).Msg("rasterizing document")

	paths := make([]string, pages)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i := 0; i < pages; i++ {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			img, err := src.RenderPage(i, opts.DPI)
			if err != nil {
				return fmt.Errorf("render page %d: %w", i+1, err)
			}
			path := filepath.Join(outDir, PageName(i))
			if err := writeJPEG(path, img, opts.Quality); err != nil {
				return fmt.Errorf("write page %d: %w", i+1, err)
			}
			opts.Logger.Debug().Int("page", i+1).Str("file", filepath.Base(path)).Msg("page written")
			paths[i] = path
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return paths, nil
}

func writeJPEG(path string, img image.Image, quality int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: quality}); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
