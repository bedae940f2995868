package validator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kornfeb/Easy-Auto-Video/internal/apperr"
	"github.com/kornfeb/Easy-Auto-Video/internal/timeline"
)

func allExist(string) bool { return true }

func existing(refs ...string) ExistsFunc {
	set := map[string]bool{}
	for _, r := range refs {
		set[r] = true
	}
	return func(ref string) bool { return set[ref] }
}

func built(t *testing.T, refs ...string) *timeline.Timeline {
	t.Helper()
	var as []timeline.Asset
	for _, r := range refs {
		as = append(as, timeline.Asset{Ref: r})
	}
	tl, err := timeline.Build(timeline.Input{AudioDuration: 13, SilenceStart: 1.5, SilenceEnd: 1.5, Assets: as})
	require.NoError(t, err)
	return tl
}

func TestValidatePass(t *testing.T) {
	r := Validate(built(t, "A", "B", "C"), allExist, 30)

	assert.Equal(t, StatusPass, r.Status)
	assert.Empty(t, r.Errors)
	assert.Empty(t, r.Warnings)
	assert.Equal(t, 390, r.Details.EstimatedFrameCount)
	assert.Equal(t, 30, r.Details.FPS)
	assert.Equal(t, 13.0, r.Details.TotalDuration)
	assert.NoError(t, r.Err())
	assert.False(t, r.Blocking())
}

func TestValidateDefaultFPS(t *testing.T) {
	r := Validate(built(t, "A"), allExist, 0)
	assert.Equal(t, DefaultFPS, r.Details.FPS)
}

func TestValidateCollectsAllMissing(t *testing.T) {
	r := Validate(built(t, "A", "B", "C"), existing("B"), 30)

	require.Equal(t, StatusFail, r.Status)
	require.Len(t, r.Errors, 1)
	assert.Contains(t, r.Errors[0], "A")
	assert.Contains(t, r.Errors[0], "C")
	assert.NotContains(t, r.Errors[0], "B")

	err := r.Err()
	assert.True(t, errors.Is(err, &apperr.Error{Code: apperr.CodeValidationFailed}))
	assert.True(t, r.Blocking())
}

func TestValidateMissingAudio(t *testing.T) {
	tl := built(t, "A")
	tl.AudioRef = "audio/voice.mp3"

	r := Validate(tl, existing("A"), 30)
	assert.Equal(t, StatusFail, r.Status)
	assert.Contains(t, r.Errors[0], "voice.mp3")
}

func TestValidateNonPositiveDuration(t *testing.T) {
	tl := built(t, "A")
	tl.TotalDuration = 0

	r := Validate(tl, allExist, 30)
	assert.Equal(t, StatusFail, r.Status)
	assert.Equal(t, 0, r.Details.EstimatedFrameCount)
}

func TestValidateEmptyTimeline(t *testing.T) {
	r := Validate(&timeline.Timeline{TotalDuration: 5}, allExist, 30)
	assert.Equal(t, StatusFail, r.Status)

	r = Validate(nil, allExist, 30)
	assert.Equal(t, StatusFail, r.Status)
}

func TestValidateContinuityWarnings(t *testing.T) {
	tl := built(t, "A", "B", "C")
	tl.Segments[1].Start += 0.2 // gap
	tl.Segments[2].Start -= 0.04

	r := Validate(tl, allExist, 30)
	assert.Equal(t, StatusWarning, r.Status)
	require.Len(t, r.Warnings, 1, "drift within 0.05 is tolerated")
	assert.Contains(t, r.Warnings[0], "Gap")
	assert.Contains(t, r.Warnings[0], "segment 1")
}

func TestValidateOverlapWarning(t *testing.T) {
	tl := built(t, "A", "B")
	tl.Segments[1].Start -= 1

	r := Validate(tl, allExist, 30)
	assert.Equal(t, StatusWarning, r.Status)
	assert.Contains(t, r.Warnings[0], "Overlap")
}

func TestValidateCoverageWarning(t *testing.T) {
	tl := built(t, "A", "B")
	tl.Segments[1].End -= 0.5

	r := Validate(tl, allExist, 30)
	assert.Equal(t, StatusWarning, r.Status)
	assert.Contains(t, r.Warnings[0], "does not match total duration")

	tl = built(t, "A", "B")
	tl.Segments[1].End += 0.09
	assert.Equal(t, StatusPass, Validate(tl, allExist, 30).Status)
}

func TestValidateErrorsOutrankWarnings(t *testing.T) {
	tl := built(t, "A", "B")
	tl.Segments[1].Start += 1

	r := Validate(tl, existing(), 30)
	assert.Equal(t, StatusFail, r.Status)
	assert.NotEmpty(t, r.Warnings)
}

func TestValidateDegenerateWarns(t *testing.T) {
	tl, err := timeline.Build(timeline.Input{AudioDuration: 1, SilenceStart: 1.5, SilenceEnd: 1.5, Assets: []timeline.Asset{{Ref: "A"}}})
	require.NoError(t, err)

	r := Validate(tl, allExist, 30)
	assert.Equal(t, StatusWarning, r.Status)
}
