package validation

import (
	"errors"
	"testing"

	"github.com/aryaraj132/yt-downloader/api/models"
)

func testValidator() *Validator {
	return NewValidator(Limits{
		GuestMaxClipSeconds:  40,
		GuestMaxInputSeconds: 300,
		MaxVideoSeconds:      3600,
	})
}

func downloadDescriptor(start, end int) models.Descriptor {
	return models.Descriptor{
		SourceURL: "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		StartTime: start,
		EndTime:   end,
	}
}

func TestValidateDownload_GuestClipCeiling(t *testing.T) {
	v := testValidator()

	if err := v.ValidateDescriptor(models.KindDownload, downloadDescriptor(0, 40), TierGuest); err != nil {
		t.Errorf("Expected 40s guest clip to pass, got %v", err)
	}

	err := v.ValidateDescriptor(models.KindDownload, downloadDescriptor(0, 45), TierGuest)
	if err == nil {
		t.Fatal("Expected 45s guest clip to be rejected")
	}
	var verr *Error
	if !errors.As(err, &verr) {
		t.Errorf("Expected validation error, got %T", err)
	}
}

func TestValidateDownload_AuthenticatedCeiling(t *testing.T) {
	v := testValidator()

	if err := v.ValidateDescriptor(models.KindDownload, downloadDescriptor(0, 45), TierAuthenticated); err != nil {
		t.Errorf("Expected 45s authenticated clip to pass, got %v", err)
	}
	if err := v.ValidateDescriptor(models.KindDownload, downloadDescriptor(0, 3600), TierAuthenticated); err != nil {
		t.Errorf("Expected 3600s authenticated clip to pass, got %v", err)
	}
	if err := v.ValidateDescriptor(models.KindDownload, downloadDescriptor(0, 3601), TierAuthenticated); err == nil {
		t.Error("Expected clip over the global ceiling to be rejected")
	}
}

func TestValidateDownload_URLAndRange(t *testing.T) {
	v := testValidator()

	cases := []struct {
		name string
		d    models.Descriptor
	}{
		{"bad host", models.Descriptor{SourceURL: "https://example.com/watch?v=dQw4w9WgXcQ", EndTime: 10}},
		{"no video id", models.Descriptor{SourceURL: "https://www.youtube.com/watch?v=short", EndTime: 10}},
		{"negative start", downloadDescriptor(-1, 10)},
		{"end before start", downloadDescriptor(20, 10)},
		{"zero-length clip", downloadDescriptor(10, 10)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := v.ValidateDescriptor(models.KindDownload, tc.d, TierAuthenticated); err == nil {
				t.Error("Expected rejection")
			}
		})
	}
}

func TestValidateDownload_URLVariants(t *testing.T) {
	v := testValidator()

	urls := []string{
		"https://youtu.be/dQw4w9WgXcQ",
		"https://youtube.com/shorts/dQw4w9WgXcQ",
		"https://www.youtube.com/live/dQw4w9WgXcQ",
	}
	for _, url := range urls {
		d := models.Descriptor{SourceURL: url, StartTime: 0, EndTime: 30}
		if err := v.ValidateDescriptor(models.KindDownload, d, TierGuest); err != nil {
			t.Errorf("Expected %s to pass, got %v", url, err)
		}
	}
}

func TestValidateDownload_FormatAndResolution(t *testing.T) {
	v := testValidator()

	d := downloadDescriptor(0, 30)
	d.Format = "mkv"
	if err := v.ValidateDescriptor(models.KindDownload, d, TierGuest); err == nil {
		t.Error("Expected unsupported format to be rejected")
	}

	d = downloadDescriptor(0, 30)
	d.Resolution = "144p"
	if err := v.ValidateDescriptor(models.KindDownload, d, TierGuest); err == nil {
		t.Error("Expected unsupported resolution to be rejected")
	}

	d = downloadDescriptor(0, 30)
	d.Format = "webm"
	d.Resolution = "720p"
	if err := v.ValidateDescriptor(models.KindDownload, d, TierGuest); err != nil {
		t.Errorf("Expected supported format and resolution to pass, got %v", err)
	}
}

func TestValidateEncode_GuestInputCeiling(t *testing.T) {
	v := testValidator()

	d := models.Descriptor{
		InputKey:      "uploads/input.mp4",
		Codec:         "h264",
		QualityPreset: "medium",
		Duration:      300,
	}
	if err := v.ValidateDescriptor(models.KindEncode, d, TierGuest); err != nil {
		t.Errorf("Expected 300s guest input to pass, got %v", err)
	}

	d.Duration = 301
	if err := v.ValidateDescriptor(models.KindEncode, d, TierGuest); err == nil {
		t.Error("Expected 301s guest input to be rejected")
	}
	if err := v.ValidateDescriptor(models.KindEncode, d, TierAuthenticated); err != nil {
		t.Errorf("Expected 301s authenticated input to pass, got %v", err)
	}
}

func TestValidateEncode_RequiredFields(t *testing.T) {
	v := testValidator()

	cases := []struct {
		name string
		d    models.Descriptor
	}{
		{"missing input key", models.Descriptor{Codec: "h264", QualityPreset: "high", Duration: 10}},
		{"bad codec", models.Descriptor{InputKey: "k", Codec: "vp8", QualityPreset: "high", Duration: 10}},
		{"bad preset", models.Descriptor{InputKey: "k", Codec: "h264", QualityPreset: "ultra", Duration: 10}},
		{"missing duration", models.Descriptor{InputKey: "k", Codec: "h264", QualityPreset: "high"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := v.ValidateDescriptor(models.KindEncode, tc.d, TierAuthenticated); err == nil {
				t.Error("Expected rejection")
			}
		})
	}
}

func TestValidateDescriptor_UnknownKind(t *testing.T) {
	v := testValidator()
	if err := v.ValidateDescriptor("transcribe", models.Descriptor{}, TierGuest); err == nil {
		t.Error("Expected unknown kind to be rejected")
	}
}
