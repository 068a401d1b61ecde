package sweep

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/aryaraj132/yt-downloader/reconciler/repository"
)

type fakeRepo struct {
	mu sync.Mutex

	stuckIDs    []string
	stuckErr    error
	retained    []repository.RetainedJob
	retainedErr error
	expired     []string
	expiredErr  error
	stuckCalls  int
	listedCalls int
}

func (f *fakeRepo) FailStuckProcessing(ctx context.Context, threshold, retention time.Duration, limit int) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stuckCalls++
	return f.stuckIDs, f.stuckErr
}

func (f *fakeRepo) ListExpiredRetained(ctx context.Context, limit int) ([]repository.RetainedJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listedCalls++
	return f.retained, f.retainedErr
}

func (f *fakeRepo) MarkExpired(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.expiredErr != nil {
		return f.expiredErr
	}
	f.expired = append(f.expired, id)
	return nil
}

type fakeArtifacts struct {
	mu      sync.Mutex
	removed []string
	failKey string
}

func (f *fakeArtifacts) Remove(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if key == f.failKey {
		return errors.New("blob store unreachable")
	}
	f.removed = append(f.removed, key)
	return nil
}

type fakeProgress struct {
	mu      sync.Mutex
	deleted []string
}

func (f *fakeProgress) Delete(ctx context.Context, jobID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, jobID)
	return nil
}

func testSweeper(t *testing.T, repo repository.Repository, artifacts *fakeArtifacts, progress *fakeProgress) *Sweeper {
	return New(repo, artifacts, progress, 30*time.Minute, 30*time.Minute, 4, 100, zaptest.NewLogger(t))
}

func TestRun_FailsStuckJobs(t *testing.T) {
	repo := &fakeRepo{stuckIDs: []string{"job-1", "job-2"}}
	sweeper := testSweeper(t, repo, &fakeArtifacts{}, &fakeProgress{})

	sweeper.Run(context.Background())

	if repo.stuckCalls != 1 {
		t.Errorf("Expected one stuck sweep, got %d", repo.stuckCalls)
	}
	if repo.listedCalls != 1 {
		t.Errorf("Expected one retention sweep, got %d", repo.listedCalls)
	}
}

func TestRun_ExpiresRetainedJobs(t *testing.T) {
	repo := &fakeRepo{retained: []repository.RetainedJob{
		{ID: "job-1", ResultKey: "results/a.mp4"},
		{ID: "job-2", ResultKey: "results/b.mp4"},
		{ID: "job-3"}, // failed job, nothing uploaded
	}}
	artifacts := &fakeArtifacts{}
	progress := &fakeProgress{}
	sweeper := testSweeper(t, repo, artifacts, progress)

	sweeper.Run(context.Background())

	if len(repo.expired) != 3 {
		t.Fatalf("Expected 3 jobs expired, got %d", len(repo.expired))
	}
	if len(artifacts.removed) != 2 {
		t.Errorf("Expected 2 artifact deletes, got %d", len(artifacts.removed))
	}
	if len(progress.deleted) != 3 {
		t.Errorf("Expected 3 progress deletes, got %d", len(progress.deleted))
	}
}

func TestRun_KeepsJobWhenArtifactDeleteFails(t *testing.T) {
	repo := &fakeRepo{retained: []repository.RetainedJob{
		{ID: "job-1", ResultKey: "results/a.mp4"},
		{ID: "job-2", ResultKey: "results/stuck.mp4"},
	}}
	artifacts := &fakeArtifacts{failKey: "results/stuck.mp4"}
	progress := &fakeProgress{}
	sweeper := testSweeper(t, repo, artifacts, progress)

	sweeper.Run(context.Background())

	// job-2 stays retained so the next pass retries the artifact delete; an
	// expired record pointing at a live artifact would orphan the file.
	if len(repo.expired) != 1 || repo.expired[0] != "job-1" {
		t.Errorf("Expected only job-1 expired, got %v", repo.expired)
	}
	for _, id := range progress.deleted {
		if id == "job-2" {
			t.Error("Progress entry dropped for a job that was not expired")
		}
	}
}

func TestRun_RepoErrorsDoNotPanic(t *testing.T) {
	repo := &fakeRepo{
		stuckErr:    errors.New("connection refused"),
		retainedErr: errors.New("connection refused"),
	}
	sweeper := testSweeper(t, repo, &fakeArtifacts{}, &fakeProgress{})

	sweeper.Run(context.Background())

	if len(repo.expired) != 0 {
		t.Error("Expected no expiry work on repo errors")
	}
}

func TestRun_MarkExpiredFailureSkipsProgressDelete(t *testing.T) {
	repo := &fakeRepo{
		retained:   []repository.RetainedJob{{ID: "job-1", ResultKey: "results/a.mp4"}},
		expiredErr: errors.New("connection refused"),
	}
	progress := &fakeProgress{}
	sweeper := testSweeper(t, repo, &fakeArtifacts{}, progress)

	sweeper.Run(context.Background())

	if len(progress.deleted) != 0 {
		t.Error("Progress entry dropped although the record was not expired")
	}
}
