package recording

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sessionarc/sessionarc/pkg/identity"
	"github.com/sessionarc/sessionarc/pkg/logging"
	"github.com/sessionarc/sessionarc/pkg/platform"
)

// FromSession builds a RecordingContext for a drive-imported session,
// reading transcript and chat evidence files. Evidence read failures degrade
// the context rather than failing the import: a recording with no transcript
// still resolves, just with less to go on.
func FromSession(s *Session, logger logging.Logger) identity.RecordingContext {
	ctx := identity.RecordingContext{
		Title:     s.Title,
		StartTime: s.Date,
		Source:    identity.SourceBulkImport,
	}

	if s.TranscriptPath != "" {
		text, err := ReadTextFile(s.TranscriptPath)
		if err != nil {
			logger.Warn("Failed to read transcript evidence",
				logging.Err(err),
				logging.F("path", s.TranscriptPath))
		} else {
			ctx.Transcript = text
		}
	}

	if s.ChatPath != "" {
		text, err := ReadTextFile(s.ChatPath)
		if err != nil {
			logger.Warn("Failed to read chat evidence",
				logging.Err(err),
				logging.F("path", s.ChatPath))
		} else {
			ctx.ChatLog = text
		}
	}

	return ctx
}

// FromAPIMeeting maps a platform API listing item to a RecordingContext.
// The API reports duration in minutes; the context carries seconds.
func FromAPIMeeting(m platform.Meeting) identity.RecordingContext {
	ctx := identity.RecordingContext{
		Title:       m.Topic,
		StartTime:   m.StartTime,
		HostEmail:   m.HostEmail,
		MeetingID:   fmt.Sprintf("%d", m.ID),
		SessionUUID: m.UUID,
		Source:      identity.SourceAPI,
	}

	if m.Duration > 0 {
		secs := m.Duration * 60
		ctx.Duration = &secs
	}

	return ctx
}

// WebhookEvent is the decoded envelope of a platform webhook push.
type WebhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Object struct {
			UUID      string    `json:"uuid"`
			ID        int64     `json:"id"`
			Topic     string    `json:"topic"`
			HostEmail string    `json:"host_email"`
			StartTime time.Time `json:"start_time"`
			Duration  int       `json:"duration"` // minutes
		} `json:"object"`
	} `json:"payload"`
}

// RecordingCompletedEvent is the webhook event type this pipeline consumes.
const RecordingCompletedEvent = "recording.completed"

// ParseWebhook decodes a webhook push payload into a RecordingContext.
// Events other than recording.completed are rejected.
func ParseWebhook(data []byte) (*identity.RecordingContext, error) {
	var evt WebhookEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		return nil, fmt.Errorf("parse error: malformed webhook payload: %w", err)
	}

	if evt.Event != RecordingCompletedEvent {
		return nil, fmt.Errorf("parse error: unsupported webhook event %q", evt.Event)
	}

	obj := evt.Payload.Object
	if strings.TrimSpace(obj.Topic) == "" && obj.ID == 0 && obj.UUID == "" {
		return nil, fmt.Errorf("parse error: empty recording object in webhook payload")
	}

	ctx := &identity.RecordingContext{
		Title:       obj.Topic,
		StartTime:   obj.StartTime,
		HostEmail:   obj.HostEmail,
		SessionUUID: obj.UUID,
		Source:      identity.SourceWebhook,
	}
	if obj.ID != 0 {
		ctx.MeetingID = fmt.Sprintf("%d", obj.ID)
	}
	if obj.Duration > 0 {
		secs := obj.Duration * 60
		ctx.Duration = &secs
	}

	return ctx, nil
}
