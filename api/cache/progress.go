package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/aryaraj132/yt-downloader/api/database"
	"github.com/aryaraj132/yt-downloader/api/models"
)

const progressKeyPrefix = "job:progress:"

// ProgressStore reads and seeds the per-job telemetry hash. The worker owns
// the writes during execution; the API tier only initializes the entry at
// enqueue time and reads it back for status merges.
type ProgressStore struct {
	cache *database.Cache
	ttl   time.Duration
}

func NewProgressStore(cache *database.Cache, ttl time.Duration) *ProgressStore {
	return &ProgressStore{cache: cache, ttl: ttl}
}

// Init seeds the entry at phase=queued so pollers see something sensible
// before any worker picks the job up.
func (p *ProgressStore) Init(ctx context.Context, jobID string) error {
	key := progressKeyPrefix + jobID
	fields := map[string]interface{}{
		"status":            string(models.StatusPending),
		"phase":             string(models.PhaseQueued),
		"download_progress": 0,
		"encoding_progress": 0,
	}
	if err := p.cache.HSet(ctx, key, fields); err != nil {
		return err
	}
	return p.cache.Expire(ctx, key, p.ttl)
}

// Get returns the entry, or (nil, nil) if none exists. Absence is not an
// error: before pickup it means "not yet dequeued", after expiry it means
// the record alone is authoritative.
func (p *ProgressStore) Get(ctx context.Context, jobID string) (*models.ProgressEntry, error) {
	data, err := p.cache.HGetAll(ctx, progressKeyPrefix+jobID)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}

	entry := &models.ProgressEntry{
		Status: data["status"],
		Phase:  models.Phase(data["phase"]),
		Speed:  data["speed"],
		ETA:    data["eta"],
	}
	entry.DownloadProgress = parsePercent(data["download_progress"])
	entry.EncodingProgress = parsePercent(data["encoding_progress"])
	return entry, nil
}

func (p *ProgressStore) Delete(ctx context.Context, jobID string) error {
	return p.cache.Del(ctx, progressKeyPrefix+jobID)
}

func parsePercent(raw string) float64 {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
