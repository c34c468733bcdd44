package platform

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sessionarc/sessionarc/config"
	"github.com/sessionarc/sessionarc/pkg/logging"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := config.PlatformConfig{BaseURL: srv.URL}
	return NewClient(cfg, StaticToken("test-token"), logging.NewNopLogger())
}

func TestListRecordingsFollowsPagination(t *testing.T) {
	var tokens []string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		tokens = append(tokens, r.URL.Query().Get("next_page_token"))

		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("next_page_token") == "" {
			fmt.Fprint(w, `{
				"next_page_token": "page2",
				"meetings": [
					{"uuid": "aBcDeFgHiJkLmNoPqRsT==", "id": 81234567890, "topic": "1. Jenny & Huda Week 5",
					 "host_email": "jenny@ascendprep.com", "start_time": "2026-03-15T14:30:00Z", "duration": 55}
				]
			}`)
			return
		}
		fmt.Fprint(w, `{
			"next_page_token": "",
			"meetings": [
				{"uuid": "uUvVwWxXyYzZ012345aB==", "id": 82000000000, "topic": "Jamie's Personal Meeting Room",
				 "host_email": "jamie@ascendprep.com", "start_time": "2026-03-16T09:00:00Z", "duration": 40}
			]
		}`)
	})

	client := newTestClient(t, handler)

	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)
	meetings, err := client.ListRecordings(context.Background(), from, to)
	require.NoError(t, err)

	require.Len(t, meetings, 2)
	assert.Equal(t, []string{"", "page2"}, tokens)
	assert.Equal(t, "1. Jenny & Huda Week 5", meetings[0].Topic)
	assert.Equal(t, int64(81234567890), meetings[0].ID)
	assert.Equal(t, 55, meetings[0].Duration)
	assert.Equal(t, "jamie@ascendprep.com", meetings[1].HostEmail)
}

func TestGetMeetingRecordings(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/meetings/81234567890/recordings", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"uuid": "aBcDeFgHiJkLmNoPqRsT==",
			"id": 81234567890,
			"topic": "1. Jenny & Huda Week 5",
			"host_email": "jenny@ascendprep.com",
			"start_time": "2026-03-15T14:30:00Z",
			"duration": 55,
			"recording_files": [
				{"id": "f1", "file_type": "MP4", "file_extension": "mp4", "file_size": 1024,
				 "download_url": "https://example.invalid/dl/f1", "recording_type": "shared_screen_with_speaker_view"},
				{"id": "f2", "file_type": "TRANSCRIPT", "file_extension": "vtt", "file_size": 64,
				 "download_url": "https://example.invalid/dl/f2", "recording_type": "audio_transcript"}
			]
		}`)
	})

	client := newTestClient(t, handler)

	m, err := client.GetMeetingRecordings(context.Background(), "81234567890")
	require.NoError(t, err)
	assert.Equal(t, "aBcDeFgHiJkLmNoPqRsT==", m.UUID)
	require.Len(t, m.RecordingFiles, 2)
	assert.Equal(t, "TRANSCRIPT", m.RecordingFiles[1].FileType)
}

func TestRateLimitErrorMessage(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	client := newTestClient(t, handler)

	_, err := client.ListRecordings(context.Background(), time.Now(), time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit exceeded")
}

func TestServiceUnavailableErrorMessage(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	client := newTestClient(t, handler)

	_, err := client.GetMeetingRecordings(context.Background(), "123")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "service unavailable")
}

func TestDownloadFile(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		fmt.Fprint(w, "recording bytes")
	})
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := NewClient(config.PlatformConfig{BaseURL: srv.URL}, StaticToken("test-token"), logging.NewNopLogger())

	dest := filepath.Join(t.TempDir(), "session.mp4")
	require.NoError(t, client.DownloadFile(context.Background(), srv.URL+"/dl/f1", dest))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "recording bytes", string(data))

	// Refuses to overwrite an existing file.
	err = client.DownloadFile(context.Background(), srv.URL+"/dl/f1", dest)
	require.Error(t, err)
}

func TestStaticTokenEmpty(t *testing.T) {
	_, err := StaticToken("").Token(context.Background())
	require.Error(t, err)
}
