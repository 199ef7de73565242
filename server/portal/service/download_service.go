package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/techfranca/francaverso/server/common/log"
	"github.com/techfranca/francaverso/server/portal/domain"
)

var (
	ErrNoURLs        = errors.New("no valid urls provided")
	ErrRunnerMissing = errors.New("video downloader is not installed")
)

// QueuedJob is the unit of work handed to the background pipeline, either
// in-process or through the message queue.
type QueuedJob struct {
	JobID  string   `json:"job_id"`
	UserID string   `json:"user_id"`
	URLs   []string `json:"urls"`
}

// JobQueue publishes jobs for asynchronous processing.
type JobQueue interface {
	PublishJob(ctx context.Context, job QueuedJob) error
}

// JobStore is the durable side of the pipeline. The database row is the
// source of truth; the in-memory registry only adds per-item detail that is
// lost on restart.
type JobStore interface {
	CreateJob(ctx context.Context, job domain.DownloadJob) error
	GetJob(ctx context.Context, jobID string) (domain.DownloadJob, error)
	SetJobStatus(ctx context.Context, jobID, status string) error
	UpdateJobCurrent(ctx context.Context, jobID string, title *string, progress float64) error
	SetJobCompletedCount(ctx context.Context, jobID string, completed int) error
	FinishJob(ctx context.Context, jobID, status string, progress float64) error
	InsertVideo(ctx context.Context, v domain.DownloadedVideo) error
	ListVideosByJob(ctx context.Context, jobID string) ([]domain.DownloadedVideo, error)
	ListSuccessfulVideosByUser(ctx context.Context, userID string) ([]domain.DownloadedVideo, error)
}

// DownloadCurrent describes the item the pipeline is working on right now.
type DownloadCurrent struct {
	Index int    `json:"index"`
	Total int    `json:"total"`
	URL   string `json:"url"`
	Title string `json:"title"`
}

// DownloadResult is the per-URL outcome. A failed URL never aborts the job;
// it shows up here with status "error" and the job keeps going.
type DownloadResult struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Filename    string `json:"filename,omitempty"`
	DownloadURL string `json:"downloadUrl,omitempty"`
	Platform    string `json:"platform,omitempty"`
	Size        int64  `json:"size,omitempty"`
	Status      string `json:"status"`
	Error       string `json:"error,omitempty"`
}

// JobSnapshot is what pollers see.
type JobSnapshot struct {
	JobID     string           `json:"jobId"`
	Status    string           `json:"status"`
	Total     int              `json:"total"`
	Completed int              `json:"completed"`
	Progress  float64          `json:"progress"`
	Current   *DownloadCurrent `json:"current,omitempty"`
	Results   []DownloadResult `json:"results"`
}

type jobRegistry struct {
	mu   sync.RWMutex
	jobs map[string]*JobSnapshot
}

func newJobRegistry() *jobRegistry {
	return &jobRegistry{jobs: make(map[string]*JobSnapshot)}
}

func (r *jobRegistry) put(snap JobSnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[snap.JobID] = &snap
}

func (r *jobRegistry) update(jobID string, fn func(*JobSnapshot)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if snap, ok := r.jobs[jobID]; ok {
		fn(snap)
	}
}

func (r *jobRegistry) snapshot(jobID string) (JobSnapshot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	snap, ok := r.jobs[jobID]
	if !ok {
		return JobSnapshot{}, false
	}
	out := *snap
	out.Results = append([]DownloadResult(nil), snap.Results...)
	if snap.Current != nil {
		current := *snap.Current
		out.Current = &current
	}
	return out, true
}

// DownloadService runs the video download pipeline: it accepts URL batches,
// records a durable job row, processes each URL in order and exposes progress
// to pollers.
type DownloadService struct {
	store           JobStore
	runner          VideoRunner
	queue           JobQueue
	registry        *jobRegistry
	downloadsDir    string
	metadataTimeout time.Duration
}

func NewDownloadService(store JobStore, runner VideoRunner, queue JobQueue, downloadsDir string) *DownloadService {
	return &DownloadService{
		store:           store,
		runner:          runner,
		queue:           queue,
		registry:        newJobRegistry(),
		downloadsDir:    downloadsDir,
		metadataTimeout: 30 * time.Second,
	}
}

// DownloadsDir is where finished files land; the HTTP layer serves it
// statically.
func (s *DownloadService) DownloadsDir() string {
	return s.downloadsDir
}

// Submit validates the batch, records the job and dispatches it. With a queue
// configured the job is published and picked up by a consumer; otherwise a
// goroutine processes it in this process.
func (s *DownloadService) Submit(ctx context.Context, userID string, urls []string) (JobSnapshot, error) {
	cleaned := make([]string, 0, len(urls))
	for _, raw := range urls {
		if trimmed := strings.TrimSpace(raw); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	if len(cleaned) == 0 {
		return JobSnapshot{}, ErrNoURLs
	}
	if !s.runner.Available() {
		return JobSnapshot{}, ErrRunnerMissing
	}

	jobID := uuid.NewString()
	status := domain.JobStatusProcessing
	if s.queue != nil {
		status = domain.JobStatusQueued
	}

	if err := s.store.CreateJob(ctx, domain.DownloadJob{
		ID:          jobID,
		UserID:      userID,
		Status:      status,
		TotalVideos: len(cleaned),
	}); err != nil {
		return JobSnapshot{}, fmt.Errorf("create job: %w", err)
	}

	snap := JobSnapshot{
		JobID:   jobID,
		Status:  status,
		Total:   len(cleaned),
		Results: make([]DownloadResult, 0, len(cleaned)),
	}
	s.registry.put(snap)

	job := QueuedJob{JobID: jobID, UserID: userID, URLs: cleaned}
	if s.queue != nil {
		if err := s.queue.PublishJob(ctx, job); err != nil {
			// Broker hiccups should not lose the job the user just saw
			// accepted; run it locally instead.
			log.Warnf("publish download job %s failed, running inline: %v", jobID, err)
			go s.Process(context.Background(), job)
		}
	} else {
		go s.Process(context.Background(), job)
	}

	return snap, nil
}

// Process downloads every URL of a job in order. One failing URL records an
// error result and moves on; only infrastructure failures (downloads dir,
// database) mark the whole job failed.
func (s *DownloadService) Process(ctx context.Context, job QueuedJob) {
	if err := os.MkdirAll(s.downloadsDir, 0o755); err != nil {
		log.Errorf("job %s: create downloads dir: %v", job.JobID, err)
		s.markFailed(ctx, job.JobID)
		return
	}

	s.registry.update(job.JobID, func(snap *JobSnapshot) {
		snap.Status = domain.JobStatusProcessing
	})
	if err := s.store.SetJobStatus(ctx, job.JobID, domain.JobStatusProcessing); err != nil {
		log.Errorf("job %s: mark processing: %v", job.JobID, err)
		s.markFailed(ctx, job.JobID)
		return
	}

	total := len(job.URLs)
	completed := 0
	for i, raw := range job.URLs {
		videoURL := normalizeVideoURL(raw)
		s.registry.update(job.JobID, func(snap *JobSnapshot) {
			snap.Progress = 0
			snap.Current = &DownloadCurrent{Index: i + 1, Total: total, URL: videoURL, Title: "Obtendo informações..."}
		})

		result := s.processOne(ctx, job, videoURL)
		completed++

		s.registry.update(job.JobID, func(snap *JobSnapshot) {
			snap.Completed = completed
			snap.Results = append(snap.Results, result)
		})
		if err := s.store.SetJobCompletedCount(ctx, job.JobID, completed); err != nil {
			log.Errorf("job %s: update completed count: %v", job.JobID, err)
			s.markFailed(ctx, job.JobID)
			return
		}
	}

	s.registry.update(job.JobID, func(snap *JobSnapshot) {
		snap.Status = domain.JobStatusCompleted
		snap.Current = nil
		snap.Progress = 100
	})
	if err := s.store.FinishJob(ctx, job.JobID, domain.JobStatusCompleted, 100); err != nil {
		log.Errorf("job %s: mark completed: %v", job.JobID, err)
	}
	log.Infof("download job %s finished: %d/%d items", job.JobID, completed, total)
}

func (s *DownloadService) processOne(ctx context.Context, job QueuedJob, videoURL string) DownloadResult {
	meta := s.fetchMetadata(ctx, videoURL)

	s.registry.update(job.JobID, func(snap *JobSnapshot) {
		if snap.Current != nil {
			snap.Current.Title = meta.Title
		}
	})
	if err := s.store.UpdateJobCurrent(ctx, job.JobID, &meta.Title, 0); err != nil {
		log.Warnf("job %s: persist current item: %v", job.JobID, err)
	}

	filename := fmt.Sprintf("%s_%d.mp4", sanitizeTitle(meta.Title), time.Now().UnixMilli())
	outputPath := filepath.Join(s.downloadsDir, filename)

	// Progress lines arrive for every stdout line yt-dlp prints; persist only
	// every 10 points so the database is not hammered.
	lastPersisted := -10.0
	err := s.runner.Download(ctx, videoURL, outputPath, func(progress float64) {
		s.registry.update(job.JobID, func(snap *JobSnapshot) {
			snap.Progress = progress
		})
		if progress-lastPersisted >= 10 {
			lastPersisted = progress
			if err := s.store.UpdateJobCurrent(ctx, job.JobID, &meta.Title, progress); err != nil {
				log.Warnf("job %s: persist progress: %v", job.JobID, err)
			}
		}
	})

	var size int64
	if err == nil {
		info, statErr := os.Stat(outputPath)
		if statErr != nil {
			err = errors.New("output file was not created")
		} else {
			size = info.Size()
		}
	}

	if err != nil {
		log.Warnf("job %s: download %s failed: %v", job.JobID, videoURL, err)
		message := err.Error()
		if insertErr := s.store.InsertVideo(ctx, domain.DownloadedVideo{
			JobID:        job.JobID,
			UserID:       job.UserID,
			Title:        meta.Title,
			OriginalURL:  videoURL,
			Platform:     meta.Platform,
			Status:       domain.VideoStatusError,
			ErrorMessage: &message,
		}); insertErr != nil {
			log.Errorf("job %s: record failed item: %v", job.JobID, insertErr)
		}
		return DownloadResult{
			URL:      videoURL,
			Title:    meta.Title,
			Platform: meta.Platform,
			Status:   domain.VideoStatusError,
			Error:    message,
		}
	}

	if insertErr := s.store.InsertVideo(ctx, domain.DownloadedVideo{
		JobID:       job.JobID,
		UserID:      job.UserID,
		Title:       meta.Title,
		OriginalURL: videoURL,
		Filename:    filename,
		FilePath:    outputPath,
		FileSize:    size,
		Platform:    meta.Platform,
		Status:      domain.VideoStatusSuccess,
	}); insertErr != nil {
		log.Errorf("job %s: record downloaded item: %v", job.JobID, insertErr)
	}

	return DownloadResult{
		URL:         videoURL,
		Title:       meta.Title,
		Filename:    filename,
		DownloadURL: "/downloads/" + filename,
		Platform:    meta.Platform,
		Size:        size,
		Status:      domain.VideoStatusSuccess,
	}
}

// fetchMetadata resolves title and platform with a bounded timeout. When the
// extractor cannot answer in time the download still proceeds under a
// synthetic title.
func (s *DownloadService) fetchMetadata(ctx context.Context, videoURL string) VideoMetadata {
	metaCtx, cancel := context.WithTimeout(ctx, s.metadataTimeout)
	defer cancel()

	meta, err := s.runner.FetchMetadata(metaCtx, videoURL)
	if err != nil {
		log.Warnf("metadata for %s unavailable: %v", videoURL, err)
		return VideoMetadata{
			Title:    fmt.Sprintf("Video_%d", time.Now().UnixMilli()),
			Platform: "Unknown",
		}
	}
	return meta
}

func (s *DownloadService) markFailed(ctx context.Context, jobID string) {
	s.registry.update(jobID, func(snap *JobSnapshot) {
		snap.Status = domain.JobStatusFailed
		snap.Current = nil
	})
	if err := s.store.FinishJob(ctx, jobID, domain.JobStatusFailed, 0); err != nil {
		log.Errorf("job %s: mark failed: %v", jobID, err)
	}
}

// Status serves pollers. Live jobs answer from the registry; after a restart
// the durable row plus its recorded videos reconstruct the snapshot.
func (s *DownloadService) Status(ctx context.Context, jobID string) (JobSnapshot, error) {
	if snap, ok := s.registry.snapshot(jobID); ok {
		return snap, nil
	}

	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return JobSnapshot{}, err
	}
	videos, err := s.store.ListVideosByJob(ctx, jobID)
	if err != nil {
		return JobSnapshot{}, err
	}

	snap := JobSnapshot{
		JobID:     job.ID,
		Status:    job.Status,
		Total:     job.TotalVideos,
		Completed: job.CompletedVideos,
		Progress:  job.CurrentVideoProgress,
		Results:   make([]DownloadResult, 0, len(videos)),
	}
	for _, v := range videos {
		result := DownloadResult{
			URL:      v.OriginalURL,
			Title:    v.Title,
			Platform: v.Platform,
			Status:   v.Status,
		}
		if v.Status == domain.VideoStatusSuccess {
			result.Filename = v.Filename
			result.DownloadURL = "/downloads/" + v.Filename
			result.Size = v.FileSize
		} else if v.ErrorMessage != nil {
			result.Error = *v.ErrorMessage
		}
		snap.Results = append(snap.Results, result)
	}
	return snap, nil
}

// Library lists the caller's successfully downloaded videos.
func (s *DownloadService) Library(ctx context.Context, userID string) ([]domain.DownloadedVideo, error) {
	return s.store.ListSuccessfulVideosByUser(ctx, userID)
}

// DownloadFile is one entry of the downloads directory listing.
type DownloadFile struct {
	Filename    string    `json:"filename"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"createdAt"`
	DownloadURL string    `json:"downloadUrl"`
}

// ListFiles lists the downloads directory newest-first. A missing directory
// just means nothing was downloaded yet.
func (s *DownloadService) ListFiles() ([]DownloadFile, error) {
	entries, err := os.ReadDir(s.downloadsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []DownloadFile{}, nil
		}
		return nil, err
	}

	files := make([]DownloadFile, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, DownloadFile{
			Filename:    entry.Name(),
			Size:        info.Size(),
			CreatedAt:   info.ModTime(),
			DownloadURL: "/downloads/" + entry.Name(),
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].CreatedAt.After(files[j].CreatedAt) })
	return files, nil
}

// RemoveFile deletes a downloaded file from disk. The name is restricted to a
// bare filename so callers cannot reach outside the downloads directory.
func (s *DownloadService) RemoveFile(filename string) error {
	if filename == "" || filename != filepath.Base(filename) || strings.Contains(filename, "..") {
		return fmt.Errorf("%w: invalid filename", domain.ErrInvalidInput)
	}
	path := filepath.Join(s.downloadsDir, filename)
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return domain.ErrNotFound
		}
		return err
	}
	return nil
}
