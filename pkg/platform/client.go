// Package platform is a minimal REST client for the meeting platform's
// cloud-recording API: list recordings since a cursor, fetch one meeting's
// recordings, and download recording files. Authentication uses the
// server-to-server OAuth credentials held in the credentials store.
package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/sessionarc/sessionarc/config"
	"github.com/sessionarc/sessionarc/pkg/logging"
)

// DefaultPageSize is the recordings page size requested from the API.
const DefaultPageSize = 300

// TokenProvider supplies a valid API access token.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// Client talks to the meeting platform REST API.
type Client struct {
	baseURL string
	tokens  TokenProvider
	http    *http.Client
	logger  logging.Logger
}

// NewClient creates a platform client from configuration.
func NewClient(cfg config.PlatformConfig, tokens TokenProvider, logger logging.Logger) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = config.DefaultPlatformBaseURL
	}

	return &Client{
		baseURL: baseURL,
		tokens:  tokens,
		http:    &http.Client{Timeout: 60 * time.Second},
		logger:  logger.With(logging.F("component", "platform_client")),
	}
}

// RecordingFile is one downloadable artifact of a recorded meeting.
type RecordingFile struct {
	ID            string `json:"id"`
	FileType      string `json:"file_type"`
	FileExtension string `json:"file_extension"`
	FileSize      int64  `json:"file_size"`
	DownloadURL   string `json:"download_url"`
	RecordingType string `json:"recording_type"`
}

// Meeting is one recorded meeting as returned by the API.
type Meeting struct {
	UUID           string          `json:"uuid"`
	ID             int64           `json:"id"`
	Topic          string          `json:"topic"`
	HostEmail      string          `json:"host_email"`
	StartTime      time.Time       `json:"start_time"`
	Duration       int             `json:"duration"` // minutes
	RecordingFiles []RecordingFile `json:"recording_files"`
}

// listResponse is the paged recordings listing envelope.
type listResponse struct {
	NextPageToken string    `json:"next_page_token"`
	Meetings      []Meeting `json:"meetings"`
}

// ListRecordings returns all recorded meetings in the [from, to] window,
// following pagination until exhausted.
func (c *Client) ListRecordings(ctx context.Context, from, to time.Time) ([]Meeting, error) {
	var meetings []Meeting
	pageToken := ""

	for {
		page, err := c.listPage(ctx, from, to, pageToken)
		if err != nil {
			return nil, err
		}
		meetings = append(meetings, page.Meetings...)

		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}

	c.logger.Debug("Recordings listed",
		logging.F("from", from.Format("2006-01-02")),
		logging.F("to", to.Format("2006-01-02")),
		logging.F("count", len(meetings)))

	return meetings, nil
}

func (c *Client) listPage(ctx context.Context, from, to time.Time, pageToken string) (*listResponse, error) {
	q := url.Values{}
	q.Set("from", from.Format("2006-01-02"))
	q.Set("to", to.Format("2006-01-02"))
	q.Set("page_size", fmt.Sprintf("%d", DefaultPageSize))
	if pageToken != "" {
		q.Set("next_page_token", pageToken)
	}

	var page listResponse
	if err := c.getJSON(ctx, "/users/me/recordings?"+q.Encode(), &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetMeetingRecordings fetches the recording detail for one meeting id.
func (c *Client) GetMeetingRecordings(ctx context.Context, meetingID string) (*Meeting, error) {
	var m Meeting
	if err := c.getJSON(ctx, "/meetings/"+url.PathEscape(meetingID)+"/recordings", &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// DownloadFile streams a recording file to destPath. The destination is
// created exclusively so a partial earlier download is never overwritten
// silently.
func (c *Client) DownloadFile(ctx context.Context, downloadURL, destPath string) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError("download failed", resp)
	}

	out, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}

	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(destPath)
		return fmt.Errorf("download failed: incomplete transfer: %w", err)
	}

	return out.Close()
}

// getJSON performs an authenticated GET and decodes the JSON response.
func (c *Client) getJSON(ctx context.Context, path string, v interface{}) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("platform request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError("platform request failed", resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("platform request failed: malformed response: %w", err)
	}

	return nil
}

// statusError maps an HTTP failure to an error whose message the pipeline
// error classifier recognizes.
func statusError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		return fmt.Errorf("%s: rate limit exceeded (HTTP 429): %s", op, body)
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		return fmt.Errorf("%s: service unavailable (HTTP %d): %s", op, resp.StatusCode, body)
	default:
		return fmt.Errorf("%s: HTTP %d: %s", op, resp.StatusCode, body)
	}
}
