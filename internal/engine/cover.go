package engine

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/kornfeb/Easy-Auto-Video/internal/cover"
	"github.com/kornfeb/Easy-Auto-Video/internal/project"
	"github.com/kornfeb/Easy-Auto-Video/internal/source"
)

// CoverResult names the files written by SelectCover.
type CoverResult struct {
	SourceImage string `json:"source_image"`
	SourcePath  string `json:"source_path"`
	CoverPath   string `json:"cover_path"`
}

// SelectCover copies the chosen asset to cover_source.jpg and renders
// cover.jpg at the project resolution with the stored text overlay.
func (e *Engine) SelectCover(ctx context.Context, id string) (*CoverResult, error) {
	p, err := e.Open(id)
	if err != nil {
		return nil, err
	}
	log := e.log(ctx)

	assets, err := source.ListAssets(p.Paths.Input())
	if err != nil {
		return nil, err
	}
	chosen, err := cover.Select(assets)
	if err != nil {
		return nil, err
	}
	if err := copyFile(chosen.Path, p.Paths.CoverSource()); err != nil {
		return nil, fmt.Errorf("copy cover source: %w", err)
	}

	if err := cover.Render(p.Paths.CoverSource(), p.Paths.Cover(), e.coverOptions(p)); err != nil {
		return nil, fmt.Errorf("render cover: %w", err)
	}

	if err := e.Store.Mutate(id, func(r *project.Record) {
		r.Cover.SourceImageID = chosen.Name
	}); err != nil {
		return nil, err
	}

	log.Info().Str("source", chosen.Name).Msg("cover selected")
	return &CoverResult{
		SourceImage: chosen.Name,
		SourcePath:  p.Paths.CoverSource(),
		CoverPath:   p.Paths.Cover(),
	}, nil
}

func (e *Engine) coverOptions(p *Project) cover.Options {
	info := p.Record.Cover
	def := e.Config.Cover
	return cover.Options{
		Width:      p.Settings.Width,
		Height:     p.Settings.Height,
		Title:      info.Title,
		Subtitle:   info.Subtitle,
		Position:   orDefault(info.Position, def.Position),
		Color:      orDefault(info.Color, def.Color),
		Background: orDefault(info.Background, def.Background),
		QRText:     info.QRText,
		Quality:    92,
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
