package models

type Phase string

const (
	PhaseQueued      Phase = "queued"
	PhaseDownloading Phase = "downloading"
	PhaseEncoding    Phase = "encoding"
	PhaseUploading   Phase = "uploading"
	PhaseCompleted   Phase = "completed"
	PhaseFailed      Phase = "failed"
)

// ProgressEntry is the in-flight telemetry the worker writes while a job is
// running. It is advisory: once the job record is terminal the entry carries
// no authority, and its absence before then only means the job has not been
// picked up yet.
type ProgressEntry struct {
	Status           string  `json:"status"`
	Phase            Phase   `json:"phase"`
	DownloadProgress float64 `json:"download_progress"`
	EncodingProgress float64 `json:"encoding_progress"`
	Speed            string  `json:"speed,omitempty"`
	ETA              string  `json:"eta,omitempty"`
}
