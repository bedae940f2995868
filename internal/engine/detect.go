package engine

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kornfeb/Easy-Auto-Video/internal/project"
	"github.com/kornfeb/Easy-Auto-Video/internal/region"
	"github.com/kornfeb/Easy-Auto-Video/internal/source"
	"github.com/kornfeb/Easy-Auto-Video/internal/system"
)

// DetectSummary counts the outcome of one detection pass.
type DetectSummary struct {
	Analyzed int `json:"analyzed"`
	Found    int `json:"found"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

// DetectSubjects runs the subject detector over every still image and
// stores the resulting hints in crops.json. Video clips and manual crops
// are left alone. A failure on one asset only costs that asset its hint.
func (e *Engine) DetectSubjects(ctx context.Context, id string) (*DetectSummary, error) {
	p, err := e.Open(id)
	if err != nil {
		return nil, err
	}
	log := e.log(ctx)
	sum := &DetectSummary{}

	if e.Detector == nil {
		log.Info().Msg("subject detection disabled")
		return sum, nil
	}

	assets, err := source.ListAssets(p.Paths.Input())
	if err != nil {
		return nil, err
	}
	crops, err := p.Paths.LoadCrops()
	if err != nil {
		return nil, err
	}

	workers := system.SuggestWorkers(e.Config.Workers, system.CollectHostStats(0))
	aspect := p.Settings.AspectRatio()
	log.Info().
		Str("detector", e.Detector.Name()).
		Int("assets", len(assets)).
		Int("workers", workers).
		Msg("detecting subjects")

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, a := range assets {
		if a.IsVideo {
			sum.Skipped++
			continue
		}
		if prev, ok := crops[a.Name]; ok && prev.Type == project.CropTypeManual {
			sum.Skipped++
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			entry, err := e.detectOne(gctx, a.Path, aspect)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				sum.Failed++
				log.Warn().Err(err).Str("asset", a.Name).Msg("subject detection failed")
				return nil
			}
			crops[a.Name] = *entry
			sum.Analyzed++
			if entry.CropBox != nil {
				sum.Found++
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := p.Paths.SaveCrops(crops); err != nil {
		return nil, err
	}
	log.Info().
		Int("analyzed", sum.Analyzed).
		Int("found", sum.Found).
		Int("skipped", sum.Skipped).
		Int("failed", sum.Failed).
		Msg("subject detection finished")
	return sum, nil
}

func (e *Engine) detectOne(ctx context.Context, path string, aspect float64) (*project.CropEntry, error) {
	w, h, err := source.ImageDimensions(path)
	if err != nil {
		return nil, err
	}
	det, err := e.Detector.DetectSubject(ctx, path)
	if err != nil {
		return nil, err
	}

	entry := &project.CropEntry{
		Type:       "none",
		Dimensions: project.Dimensions{Width: w, Height: h},
		UpdatedAt:  time.Now().UTC(),
	}
	if det == nil {
		return entry, nil
	}
	roi := det.ROI
	entry.ROI = &roi
	entry.Type = det.Type
	entry.Confidence = det.Confidence
	if rect, ok := region.Resolve(w, h, &roi, aspect); ok {
		entry.CropBox = &rect
	}
	return entry, nil
}
