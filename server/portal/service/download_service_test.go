package service

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/techfranca/francaverso/server/portal/domain"
)

type fakeRunner struct {
	available bool
	metadata  map[string]VideoMetadata
	metaErr   map[string]error
	failURLs  map[string]error
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		available: true,
		metadata:  make(map[string]VideoMetadata),
		metaErr:   make(map[string]error),
		failURLs:  make(map[string]error),
	}
}

func (r *fakeRunner) Available() bool { return r.available }

func (r *fakeRunner) FetchMetadata(_ context.Context, videoURL string) (VideoMetadata, error) {
	if err, ok := r.metaErr[videoURL]; ok {
		return VideoMetadata{}, err
	}
	if meta, ok := r.metadata[videoURL]; ok {
		return meta, nil
	}
	return VideoMetadata{Title: "video", Platform: "Test"}, nil
}

func (r *fakeRunner) Download(_ context.Context, videoURL, outputPath string, onProgress func(float64)) error {
	if err, ok := r.failURLs[videoURL]; ok {
		return err
	}
	if onProgress != nil {
		onProgress(50)
		onProgress(100)
	}
	return os.WriteFile(outputPath, []byte("mp4"), 0o644)
}

type fakeJobStore struct {
	mu     sync.Mutex
	jobs   map[string]domain.DownloadJob
	videos []domain.DownloadedVideo
}

func newFakeJobStore() *fakeJobStore {
	return &fakeJobStore{jobs: make(map[string]domain.DownloadJob)}
}

func (s *fakeJobStore) CreateJob(_ context.Context, job domain.DownloadJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
	return nil
}

func (s *fakeJobStore) GetJob(_ context.Context, jobID string) (domain.DownloadJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return domain.DownloadJob{}, domain.ErrNotFound
	}
	return job, nil
}

func (s *fakeJobStore) SetJobStatus(_ context.Context, jobID, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job := s.jobs[jobID]
	job.Status = status
	s.jobs[jobID] = job
	return nil
}

func (s *fakeJobStore) UpdateJobCurrent(_ context.Context, jobID string, title *string, progress float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job := s.jobs[jobID]
	job.CurrentVideoTitle = title
	job.CurrentVideoProgress = progress
	s.jobs[jobID] = job
	return nil
}

func (s *fakeJobStore) SetJobCompletedCount(_ context.Context, jobID string, completed int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job := s.jobs[jobID]
	job.CompletedVideos = completed
	s.jobs[jobID] = job
	return nil
}

func (s *fakeJobStore) FinishJob(_ context.Context, jobID, status string, progress float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job := s.jobs[jobID]
	job.Status = status
	job.CurrentVideoTitle = nil
	job.CurrentVideoProgress = progress
	s.jobs[jobID] = job
	return nil
}

func (s *fakeJobStore) InsertVideo(_ context.Context, v domain.DownloadedVideo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.videos = append(s.videos, v)
	return nil
}

func (s *fakeJobStore) ListVideosByJob(_ context.Context, jobID string) ([]domain.DownloadedVideo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.DownloadedVideo, 0)
	for _, v := range s.videos {
		if v.JobID == jobID {
			out = append(out, v)
		}
	}
	return out, nil
}

func (s *fakeJobStore) ListSuccessfulVideosByUser(_ context.Context, userID string) ([]domain.DownloadedVideo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.DownloadedVideo, 0)
	for _, v := range s.videos {
		if v.UserID == userID && v.Status == domain.VideoStatusSuccess {
			out = append(out, v)
		}
	}
	return out, nil
}

type fakeQueue struct {
	published []QueuedJob
}

func (q *fakeQueue) PublishJob(_ context.Context, job QueuedJob) error {
	q.published = append(q.published, job)
	return nil
}

func TestSubmitRejectsEmptyBatch(t *testing.T) {
	svc := NewDownloadService(newFakeJobStore(), newFakeRunner(), nil, t.TempDir())

	_, err := svc.Submit(context.Background(), "user-1", []string{"", "   "})
	assert.ErrorIs(t, err, ErrNoURLs)
}

func TestSubmitRejectsMissingRunner(t *testing.T) {
	runner := newFakeRunner()
	runner.available = false
	svc := NewDownloadService(newFakeJobStore(), runner, nil, t.TempDir())

	_, err := svc.Submit(context.Background(), "user-1", []string{"https://example.com/v"})
	assert.ErrorIs(t, err, ErrRunnerMissing)
}

func TestSubmitPublishesToQueue(t *testing.T) {
	store := newFakeJobStore()
	queue := &fakeQueue{}
	svc := NewDownloadService(store, newFakeRunner(), queue, t.TempDir())

	snap, err := svc.Submit(context.Background(), "user-1", []string{"https://example.com/v"})
	require.NoError(t, err)

	assert.Equal(t, domain.JobStatusQueued, snap.Status)
	require.Len(t, queue.published, 1)
	assert.Equal(t, snap.JobID, queue.published[0].JobID)

	job, err := store.GetJob(context.Background(), snap.JobID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusQueued, job.Status)
	assert.Equal(t, 1, job.TotalVideos)
}

func TestProcessMixedSuccessAndFailure(t *testing.T) {
	store := newFakeJobStore()
	runner := newFakeRunner()
	runner.metadata["https://example.com/ok"] = VideoMetadata{Title: "Campanha Abril", Platform: "YouTube"}
	runner.failURLs["https://example.com/broken"] = errors.New("403 forbidden")

	svc := NewDownloadService(store, runner, nil, t.TempDir())
	job := QueuedJob{JobID: "job-1", UserID: "user-1", URLs: []string{"https://example.com/ok", "https://example.com/broken"}}
	require.NoError(t, store.CreateJob(context.Background(), domain.DownloadJob{ID: job.JobID, UserID: job.UserID, Status: domain.JobStatusQueued, TotalVideos: 2}))
	svc.registry.put(JobSnapshot{JobID: job.JobID, Status: domain.JobStatusQueued, Total: 2})

	svc.Process(context.Background(), job)

	snap, err := svc.Status(context.Background(), job.JobID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCompleted, snap.Status)
	assert.Equal(t, 2, snap.Completed)
	require.Len(t, snap.Results, 2)

	assert.Equal(t, domain.VideoStatusSuccess, snap.Results[0].Status)
	assert.Equal(t, "Campanha Abril", snap.Results[0].Title)
	assert.True(t, strings.HasPrefix(snap.Results[0].DownloadURL, "/downloads/"))
	assert.Greater(t, snap.Results[0].Size, int64(0))

	assert.Equal(t, domain.VideoStatusError, snap.Results[1].Status)
	assert.Contains(t, snap.Results[1].Error, "403")

	stored, err := store.ListVideosByJob(context.Background(), job.JobID)
	require.NoError(t, err)
	require.Len(t, stored, 2)

	persisted, err := store.GetJob(context.Background(), job.JobID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCompleted, persisted.Status)
	assert.Equal(t, 2, persisted.CompletedVideos)
}

func TestProcessUsesSyntheticTitleWhenMetadataFails(t *testing.T) {
	store := newFakeJobStore()
	runner := newFakeRunner()
	runner.metaErr["https://example.com/slow"] = errors.New("timed out")

	svc := NewDownloadService(store, runner, nil, t.TempDir())
	job := QueuedJob{JobID: "job-2", UserID: "user-1", URLs: []string{"https://example.com/slow"}}
	require.NoError(t, store.CreateJob(context.Background(), domain.DownloadJob{ID: job.JobID, UserID: job.UserID, Status: domain.JobStatusQueued, TotalVideos: 1}))

	svc.Process(context.Background(), job)

	stored, err := store.ListVideosByJob(context.Background(), job.JobID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.True(t, strings.HasPrefix(stored[0].Title, "Video_"), "got title %q", stored[0].Title)
	assert.Equal(t, "Unknown", stored[0].Platform)
	assert.Equal(t, domain.VideoStatusSuccess, stored[0].Status)
}

func TestStatusFallsBackToStoreAfterRestart(t *testing.T) {
	store := newFakeJobStore()
	message := "unreachable"
	require.NoError(t, store.CreateJob(context.Background(), domain.DownloadJob{
		ID: "job-old", UserID: "user-1", Status: domain.JobStatusCompleted, TotalVideos: 2, CompletedVideos: 2,
	}))
	require.NoError(t, store.InsertVideo(context.Background(), domain.DownloadedVideo{
		JobID: "job-old", UserID: "user-1", Title: "Primeiro", OriginalURL: "https://example.com/1",
		Filename: "Primeiro_1.mp4", FileSize: 1024, Platform: "YouTube", Status: domain.VideoStatusSuccess,
	}))
	require.NoError(t, store.InsertVideo(context.Background(), domain.DownloadedVideo{
		JobID: "job-old", UserID: "user-1", Title: "Segundo", OriginalURL: "https://example.com/2",
		Platform: "YouTube", Status: domain.VideoStatusError, ErrorMessage: &message,
	}))

	// Fresh service: nothing in the registry, as after a restart.
	svc := NewDownloadService(store, newFakeRunner(), nil, t.TempDir())

	snap, err := svc.Status(context.Background(), "job-old")
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCompleted, snap.Status)
	assert.Equal(t, 2, snap.Completed)
	require.Len(t, snap.Results, 2)
	assert.Equal(t, "/downloads/Primeiro_1.mp4", snap.Results[0].DownloadURL)
	assert.Equal(t, "unreachable", snap.Results[1].Error)

	_, err = svc.Status(context.Background(), "job-missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRemoveFileRejectsPathTraversal(t *testing.T) {
	svc := NewDownloadService(newFakeJobStore(), newFakeRunner(), nil, t.TempDir())

	assert.Error(t, svc.RemoveFile("../etc/passwd"))
	assert.Error(t, svc.RemoveFile("a/b.mp4"))
	assert.Error(t, svc.RemoveFile(""))
	assert.ErrorIs(t, svc.RemoveFile("missing.mp4"), domain.ErrNotFound)
}

func TestListFilesNewestFirst(t *testing.T) {
	dir := t.TempDir()
	svc := NewDownloadService(newFakeJobStore(), newFakeRunner(), nil, dir)

	require.NoError(t, os.WriteFile(dir+"/old.mp4", []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(dir+"/new.mp4", []byte("bb"), 0o644))
	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(dir+"/old.mp4", old, old))

	files, err := svc.ListFiles()
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "new.mp4", files[0].Filename)
	assert.Equal(t, "/downloads/new.mp4", files[0].DownloadURL)
	assert.Equal(t, int64(2), files[0].Size)
	assert.Equal(t, "old.mp4", files[1].Filename)
}

func TestListFilesMissingDirIsEmpty(t *testing.T) {
	svc := NewDownloadService(newFakeJobStore(), newFakeRunner(), nil, t.TempDir()+"/nope")

	files, err := svc.ListFiles()
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestRemoveFileDeletesExisting(t *testing.T) {
	dir := t.TempDir()
	svc := NewDownloadService(newFakeJobStore(), newFakeRunner(), nil, dir)
	require.NoError(t, os.WriteFile(dir+"/video.mp4", []byte("mp4"), 0o644))

	require.NoError(t, svc.RemoveFile("video.mp4"))
	_, err := os.Stat(dir + "/video.mp4")
	assert.True(t, os.IsNotExist(err))
}
