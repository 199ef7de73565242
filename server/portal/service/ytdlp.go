package service

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"github.com/techfranca/francaverso/server/common/log"
)

// VideoMetadata is what the extractor reports about a URL before download.
type VideoMetadata struct {
	Title    string
	Platform string
}

// VideoRunner abstracts the external extraction tool so the job pipeline can
// be exercised without spawning processes.
type VideoRunner interface {
	Available() bool
	FetchMetadata(ctx context.Context, videoURL string) (VideoMetadata, error)
	Download(ctx context.Context, videoURL, outputPath string, onProgress func(float64)) error
}

// YTDLPRunner drives the yt-dlp executable. The invocation flags and the
// `NN.N%` progress lines on stdout are a version-sensitive contract with the
// tool.
type YTDLPRunner struct {
	binPath string
}

func NewYTDLPRunner(binPath string) *YTDLPRunner {
	return &YTDLPRunner{binPath: binPath}
}

func (r *YTDLPRunner) Available() bool {
	if _, err := os.Stat(r.binPath); err == nil {
		return true
	}
	_, err := exec.LookPath(r.binPath)
	return err == nil
}

func (r *YTDLPRunner) FetchMetadata(ctx context.Context, videoURL string) (VideoMetadata, error) {
	cmd := exec.CommandContext(ctx, r.binPath, "--dump-json", "--no-playlist", "--socket-timeout", "30", videoURL)
	out, err := cmd.Output()
	if err != nil {
		return VideoMetadata{}, fmt.Errorf("fetch metadata: %w", err)
	}

	var info struct {
		Title        string `json:"title"`
		ExtractorKey string `json:"extractor_key"`
	}
	if err := json.Unmarshal(out, &info); err != nil {
		return VideoMetadata{}, fmt.Errorf("parse metadata: %w", err)
	}
	if info.Title == "" {
		return VideoMetadata{}, fmt.Errorf("metadata has no title")
	}
	platform := info.ExtractorKey
	if platform == "" {
		platform = "Unknown"
	}
	return VideoMetadata{Title: info.Title, Platform: platform}, nil
}

func (r *YTDLPRunner) Download(ctx context.Context, videoURL, outputPath string, onProgress func(float64)) error {
	cmd := exec.CommandContext(ctx, r.binPath,
		videoURL,
		"-o", outputPath,
		"--format", "best[ext=mp4]/best",
		"--no-playlist",
		"--newline",
		"--no-check-certificate",
		"--socket-timeout", "30",
	)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("open stdout: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("open stderr: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start download: %w", err)
	}

	go func() {
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			log.Warnf("yt-dlp stderr: %s", strings.TrimSpace(scanner.Text()))
		}
	}()

	scanErr := consumeProgress(stdout, onProgress)

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("yt-dlp exited: %w", err)
	}
	if scanErr != nil {
		return fmt.Errorf("read yt-dlp output: %w", scanErr)
	}
	return nil
}

// consumeProgress reads the tool's stdout line by line, reporting each NN.N%
// token, and returns the read error that cut the stream short, if any.
func consumeProgress(r io.Reader, onProgress func(float64)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		if progress, ok := parseProgress(scanner.Text()); ok && onProgress != nil {
			onProgress(progress)
		}
	}
	return scanner.Err()
}

var progressPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)%`)

// parseProgress extracts the first NN.N% token from a stdout line.
func parseProgress(line string) (float64, bool) {
	match := progressPattern.FindStringSubmatch(line)
	if match == nil {
		return 0, false
	}
	value, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

// sanitizeTitle turns a video title into a filesystem-safe filename stem,
// capped at 100 characters.
func sanitizeTitle(title string) string {
	var b strings.Builder
	for _, r := range title {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	stem := b.String()
	if len(stem) > 100 {
		stem = stem[:100]
	}
	return stem
}

// normalizeVideoURL strips playlist and queue query parameters so a link
// copied from a playlist downloads only the single video.
func normalizeVideoURL(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	for _, param := range []string{"list", "playlist", "index", "start_radio"} {
		q.Del(param)
	}
	u.RawQuery = q.Encode()
	return u.String()
}
