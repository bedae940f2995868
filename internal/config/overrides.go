package config

// VideoOverrides is the partial video block stored in project.json. Nil
// fields inherit the global value.
type VideoOverrides struct {
	Format             *string  `json:"format,omitempty"`
	FPS                *int     `json:"fps,omitempty"`
	SilenceStart       *float64 `json:"silence_start,omitempty"`
	SilenceEnd         *float64 `json:"silence_end,omitempty"`
	MaxDuration        *float64 `json:"max_duration,omitempty"`
	Transition         *string  `json:"transition,omitempty"`
	TransitionDuration *float64 `json:"transition_duration,omitempty"`
	MotionEnabled      *bool    `json:"motion_enabled,omitempty"`
	UseCoverIntro      *bool    `json:"use_cover_intro,omitempty"`
}

// Apply returns base with every non-nil override applied. An unknown format
// keeps the base resolution.
func (o *VideoOverrides) Apply(base VideoSettings) VideoSettings {
	if o == nil {
		return base
	}
	v := base
	if o.Format != nil {
		if w, h, ok := Resolution(*o.Format); ok {
			v.Format, v.Width, v.Height = *o.Format, w, h
		}
	}
	if o.FPS != nil && *o.FPS > 0 {
		v.FPS = *o.FPS
	}
	if o.SilenceStart != nil && *o.SilenceStart >= 0 {
		v.SilenceStart = *o.SilenceStart
	}
	if o.SilenceEnd != nil && *o.SilenceEnd >= 0 {
		v.SilenceEnd = *o.SilenceEnd
	}
	if o.MaxDuration != nil {
		v.MaxDuration = *o.MaxDuration
	}
	if o.Transition != nil {
		v.Transition = *o.Transition
	}
	if o.TransitionDuration != nil && *o.TransitionDuration >= 0 {
		v.TransitionDuration = *o.TransitionDuration
	}
	if o.MotionEnabled != nil {
		v.MotionEnabled = *o.MotionEnabled
	}
	if o.UseCoverIntro != nil {
		v.UseCoverIntro = *o.UseCoverIntro
	}
	return v
}
