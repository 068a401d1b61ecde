package validation

import (
	"regexp"

	"github.com/aryaraj132/yt-downloader/api/models"
)

// Tier selects which duration ceilings apply. Guests get much tighter bounds
// than authenticated owners.
type Tier int

const (
	TierGuest Tier = iota
	TierAuthenticated
)

var youtubeURLPattern = regexp.MustCompile(
	`^https?://(www\.)?(youtube\.com/(watch\?v=|live/|shorts/)|youtu\.be/)[\w-]{11}`,
)

var supportedFormats = map[string]bool{
	"mp4": true, "webm": true, "best": true,
}

var supportedResolutions = map[string]bool{
	"best": true, "2160p": true, "1440p": true, "1080p": true,
	"720p": true, "480p": true, "360p": true,
}

var supportedCodecs = map[string]bool{
	"h264": true, "h265": true, "av1": true,
}

var supportedPresets = map[string]bool{
	"lossless": true, "high": true, "medium": true,
}

// Limits carries the configured duration ceilings, in seconds.
type Limits struct {
	GuestMaxClipSeconds  int
	GuestMaxInputSeconds int
	MaxVideoSeconds      int
}

type Validator struct {
	limits Limits
}

func NewValidator(limits Limits) *Validator {
	return &Validator{limits: limits}
}

// ValidateDescriptor checks a descriptor against kind- and tier-specific
// bounds. A nil return means the job may proceed to admission.
func (v *Validator) ValidateDescriptor(kind models.JobKind, d models.Descriptor, tier Tier) error {
	switch kind {
	case models.KindDownload:
		return v.validateDownload(d, tier)
	case models.KindEncode:
		return v.validateEncode(d, tier)
	default:
		return errorf("unknown job kind: %q", kind)
	}
}

func (v *Validator) validateDownload(d models.Descriptor, tier Tier) error {
	if !youtubeURLPattern.MatchString(d.SourceURL) {
		return errorf("invalid YouTube URL")
	}
	if d.StartTime < 0 {
		return errorf("start_time must not be negative")
	}
	if d.EndTime <= d.StartTime {
		return errorf("end_time must be greater than start_time")
	}

	ceiling := v.limits.MaxVideoSeconds
	if tier == TierGuest {
		ceiling = v.limits.GuestMaxClipSeconds
	}
	if duration := d.EndTime - d.StartTime; duration > ceiling {
		return errorf("clip duration %ds exceeds maximum of %ds", duration, ceiling)
	}

	if d.Format != "" && !supportedFormats[d.Format] {
		return errorf("unsupported format: %q", d.Format)
	}
	if d.Resolution != "" && !supportedResolutions[d.Resolution] {
		return errorf("unsupported resolution: %q", d.Resolution)
	}
	return nil
}

func (v *Validator) validateEncode(d models.Descriptor, tier Tier) error {
	if d.InputKey == "" {
		return errorf("input_key is required")
	}
	if !supportedCodecs[d.Codec] {
		return errorf("unsupported codec: %q", d.Codec)
	}
	if !supportedPresets[d.QualityPreset] {
		return errorf("unsupported quality preset: %q", d.QualityPreset)
	}
	if d.Duration <= 0 {
		return errorf("duration is required")
	}

	ceiling := v.limits.MaxVideoSeconds
	if tier == TierGuest {
		ceiling = v.limits.GuestMaxInputSeconds
	}
	if d.Duration > float64(ceiling) {
		return errorf("input duration %.0fs exceeds maximum of %ds", d.Duration, ceiling)
	}
	return nil
}
