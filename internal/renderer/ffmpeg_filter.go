package renderer

import (
	"fmt"
	"strings"
)

// GenerateZoomPanFilter creates an FFmpeg zoompan filter that walks through
// the keyframes over `frames` output frames.
func GenerateZoomPanFilter(keyframes []Keyframe, frames, fps, width, height int) string {
	if len(keyframes) == 0 || frames <= 0 {
		return ""
	}

	zoomExpr := buildExpression(keyframes, func(kf Keyframe) float64 { return kf.Zoom })
	panX := buildExpression(keyframes, func(kf Keyframe) float64 { return kf.PanX })
	panY := buildExpression(keyframes, func(kf Keyframe) float64 { return kf.PanY })

	return fmt.Sprintf("zoompan=z='%s':x='(iw-iw/zoom)*(%s)':y='(ih-ih/zoom)*(%s)':d=%d:s=%dx%d:fps=%d",
		zoomExpr, panX, panY, frames, width, height, fps)
}

// buildExpression creates a piecewise linear expression of the output frame
// number `on`. Constant values collapse to a literal.
func buildExpression(keyframes []Keyframe, value func(Keyframe) float64) string {
	if constant(keyframes, value) {
		return fmt.Sprintf("%.6f", value(keyframes[0]))
	}

	var b strings.Builder
	open := 0
	for i := 0; i < len(keyframes)-1; i++ {
		a, next := keyframes[i], keyframes[i+1]
		span := next.Frame - a.Frame
		if span <= 0 {
			continue
		}
		// if(lte(on,end), start+(on-startFrame)*(end-start)/span, ...
		fmt.Fprintf(&b, "if(lte(on,%d),%.6f+(on-%d)*(%.6f)/%d,",
			next.Frame, value(a), a.Frame, value(next)-value(a), span)
		open++
	}
	fmt.Fprintf(&b, "%.6f", value(keyframes[len(keyframes)-1]))
	b.WriteString(strings.Repeat(")", open))

	return b.String()
}

func constant(keyframes []Keyframe, value func(Keyframe) float64) bool {
	first := value(keyframes[0])
	for _, kf := range keyframes[1:] {
		if value(kf) != first {
			return false
		}
	}
	return true
}
