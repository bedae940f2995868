package analyzer

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/kornfeb/Easy-Auto-Video/internal/config"
)

// NewSubjectDetector builds the detector named in the settings. "none"
// returns nil: no asset gets a hint. The Gemini variant without an API key
// falls back to the contrast detector.
func NewSubjectDetector(ctx context.Context, cfg config.DetectorConfig, logger zerolog.Logger) (SubjectDetector, error) {
	switch cfg.Variant {
	case "contrast", "":
		return NewContrastDetector(), nil
	case "none":
		return nil, nil
	case "gemini", "ai":
		key := os.Getenv(cfg.APIKeyEnv)
		if key == "" {
			logger.Warn().Str("env", cfg.APIKeyEnv).Msg("no API key for gemini detector, using contrast detector")
			return NewContrastDetector(), nil
		}
		return NewGeminiDetector(ctx, key, cfg.Model)
	default:
		return nil, fmt.Errorf("unknown detector variant: %s", cfg.Variant)
	}
}
