package project

import (
	"errors"
	"os"
	"time"

	"github.com/kornfeb/Easy-Auto-Video/internal/region"
	"github.com/kornfeb/Easy-Auto-Video/internal/timeline"
	"github.com/kornfeb/Easy-Auto-Video/internal/validator"
)

// CropTypeManual marks crops set by hand; detection never overwrites them.
const CropTypeManual = "manual"

type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// CropEntry is one asset's record in crops.json.
type CropEntry struct {
	ROI        *region.ROI  `json:"roi"`
	CropBox    *region.Rect `json:"crop_box"`
	Confidence float64      `json:"confidence"`
	Type       string       `json:"type"`
	Dimensions Dimensions   `json:"dimensions"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

// Crops maps an input file name to its crop entry.
type Crops map[string]CropEntry

// LoadCrops reads crops.json. A missing file is an empty map.
func (p Paths) LoadCrops() (Crops, error) {
	crops := Crops{}
	if err := readJSON(p.Crops(), &crops); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Crops{}, nil
		}
		return nil, err
	}
	return crops, nil
}

func (p Paths) SaveCrops(c Crops) error {
	return writeJSON(p.Crops(), c)
}

func (p Paths) SaveTimeline(tl *timeline.Timeline) error {
	return writeJSON(p.Timeline(), tl)
}

func (p Paths) LoadTimeline() (*timeline.Timeline, error) {
	var tl timeline.Timeline
	if err := readJSON(p.Timeline(), &tl); err != nil {
		return nil, err
	}
	return &tl, nil
}

func (p Paths) SaveReport(r *validator.Report) error {
	return writeJSON(p.DryRunReport(), r)
}

func (p Paths) LoadReport() (*validator.Report, error) {
	var r validator.Report
	if err := readJSON(p.DryRunReport(), &r); err != nil {
		return nil, err
	}
	return &r, nil
}
