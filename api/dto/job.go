package dto

// Fingerprint is the client-supplied signal bundle that, combined with the
// network address, identifies an unauthenticated caller for quota purposes.
type Fingerprint struct {
	UserAgent string `json:"user_agent"`
	Screen    string `json:"screen"`
	Timezone  int    `json:"timezone"`
	Language  string `json:"language"`
}

type CreateJobRequest struct {
	Kind string `json:"kind"`

	// download jobs
	URL        string `json:"url,omitempty"`
	StartTime  *int   `json:"start_time,omitempty"`
	EndTime    *int   `json:"end_time,omitempty"`
	Format     string `json:"format,omitempty"`
	Resolution string `json:"resolution,omitempty"`

	// encode jobs
	InputKey      string  `json:"input_key,omitempty"`
	Codec         string  `json:"codec,omitempty"`
	QualityPreset string  `json:"quality_preset,omitempty"`
	Duration      float64 `json:"duration,omitempty"`

	Fingerprint *Fingerprint `json:"fingerprint,omitempty"`
}

// Quota mirrors the admission controller's answer so clients can show
// remaining usage without a separate call.
type Quota struct {
	Remaining int    `json:"remaining"`
	Limit     int    `json:"limit"`
	ResetAt   string `json:"reset_at"`
}

type ProgressResponse struct {
	Phase            string  `json:"phase"`
	DownloadProgress float64 `json:"download_progress"`
	EncodingProgress float64 `json:"encoding_progress"`
	Speed            string  `json:"speed,omitempty"`
	ETA              string  `json:"eta,omitempty"`
}

type JobResponse struct {
	ID           string            `json:"id"`
	Kind         string            `json:"kind"`
	Status       string            `json:"status"`
	Progress     *ProgressResponse `json:"progress,omitempty"`
	ResultKey    string            `json:"result_key,omitempty"`
	ErrorMessage string            `json:"error_message,omitempty"`
	CreatedAt    string            `json:"created_at"`
	Quota        *Quota            `json:"rate_limit,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
	Quota   *Quota `json:"rate_limit,omitempty"`
}
