package source

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/h2non/filetype"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

var (
	imageExtensions = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".webp": true, ".bmp": true}
	videoExtensions = map[string]bool{".mp4": true, ".mov": true, ".webm": true, ".m4v": true}
)

// Asset is one visual file found in a project input directory.
type Asset struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	IsVideo bool   `json:"is_video"`
}

// Excluded reports whether a file name is never treated as a slideshow asset.
func Excluded(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasPrefix(name, ".") ||
		lower == "cover.jpg" ||
		lower == "cover_source.jpg" ||
		strings.HasPrefix(lower, "ai_cover")
}

// ListAssets returns the images and video clips in dir, natural-sorted by
// name. Files with an unknown extension are kept only if their header
// sniffs as an image or a video.
func ListAssets(dir string) ([]Asset, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var assets []Asset
	for _, entry := range entries {
		if entry.IsDir() || Excluded(entry.Name()) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		isVideo, ok := classify(path)
		if !ok {
			continue
		}
		assets = append(assets, Asset{Name: entry.Name(), Path: path, IsVideo: isVideo})
	}

	sort.SliceStable(assets, func(i, j int) bool {
		return NaturalLess(assets[i].Name, assets[j].Name)
	})
	return assets, nil
}

func classify(path string) (isVideo bool, ok bool) {
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case imageExtensions[ext]:
		return false, true
	case videoExtensions[ext]:
		return true, true
	}

	head, err := readHeader(path)
	if err != nil {
		return false, false
	}
	switch {
	case filetype.IsImage(head):
		return false, true
	case filetype.IsVideo(head):
		return true, true
	}
	return false, false
}

// filetype needs at most the first 261 bytes.
func readHeader(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	head := make([]byte, 261)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF {
		return nil, err
	}
	return head[:n], nil
}

// ImageDimensions decodes only the header of an image file.
func ImageDimensions(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return cfg.Width, cfg.Height, nil
}

// DecodeImage loads a full image.
func DecodeImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return img, nil
}

// NaturalLess compares names case-insensitively, ordering runs of digits by
// numeric value so that "img2" sorts before "img10".
func NaturalLess(a, b string) bool {
	a, b = strings.ToLower(a), strings.ToLower(b)
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		ca, cb := a[i], b[j]
		if isDigit(ca) && isDigit(cb) {
			si := i
			for i < len(a) && isDigit(a[i]) {
				i++
			}
			sj := j
			for j < len(b) && isDigit(b[j]) {
				j++
			}
			na := strings.TrimLeft(a[si:i], "0")
			nb := strings.TrimLeft(b[sj:j], "0")
			if len(na) != len(nb) {
				return len(na) < len(nb)
			}
			if na != nb {
				return na < nb
			}
			continue
		}
		if ca != cb {
			return ca < cb
		}
		i++
		j++
	}
	return len(a)-i < len(b)-j
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
