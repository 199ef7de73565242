package service

import (
	"bufio"
	"errors"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProgress(t *testing.T) {
	tests := []struct {
		name  string
		line  string
		want  float64
		found bool
	}{
		{name: "plain percent", line: "[download]  42.3% of 10MiB", want: 42.3, found: true},
		{name: "integer percent", line: "[download] 100% of 10MiB in 00:05", want: 100, found: true},
		{name: "no percent", line: "[youtube] extracting video information", found: false},
		{name: "empty line", line: "", found: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseProgress(tt.line)
			assert.Equal(t, tt.found, ok)
			if tt.found {
				assert.InDelta(t, tt.want, got, 0.001)
			}
		})
	}
}

func TestConsumeProgressReportsEachValue(t *testing.T) {
	stream := strings.NewReader(
		"[youtube] extracting video information\n" +
			"[download]  12.5% of 10MiB\n" +
			"[download] 100% of 10MiB in 00:05\n")

	var got []float64
	err := consumeProgress(stream, func(p float64) { got = append(got, p) })

	require.NoError(t, err)
	assert.Equal(t, []float64{12.5, 100}, got)
}

func TestConsumeProgressSurfacesReadErrors(t *testing.T) {
	readErr := errors.New("stream cut off")
	err := consumeProgress(iotest.ErrReader(readErr), nil)
	assert.ErrorIs(t, err, readErr)

	// A line past the scanner's limit is a read error too, not a clean end.
	err = consumeProgress(strings.NewReader(strings.Repeat("x", 2<<20)), nil)
	assert.ErrorIs(t, err, bufio.ErrTooLong)
}

func TestSanitizeTitle(t *testing.T) {
	assert.Equal(t, "Como_criar_an_ncios", sanitizeTitle("Como criar anúncios"))
	assert.Equal(t, "abc123", sanitizeTitle("abc123"))

	long := strings.Repeat("a", 150)
	require.Len(t, sanitizeTitle(long), 100)
}

func TestNormalizeVideoURL(t *testing.T) {
	got := normalizeVideoURL("https://www.youtube.com/watch?v=abc123&list=PLxyz&index=4&start_radio=1")
	assert.Equal(t, "https://www.youtube.com/watch?v=abc123", got)

	got = normalizeVideoURL("  https://vimeo.com/12345  ")
	assert.Equal(t, "https://vimeo.com/12345", got)

	// Unrelated parameters survive.
	got = normalizeVideoURL("https://www.youtube.com/watch?v=abc123&t=30")
	assert.Contains(t, got, "v=abc123")
	assert.Contains(t, got, "t=30")
}
