package ledger

import (
	"time"

	"github.com/sessionarc/sessionarc/pkg/identity"
)

// EntryFromResult maps a resolution result and its recording context onto a
// ledger entry. ArchivePath and ContentID are filled in by the caller once
// the recording has been placed.
func EntryFromResult(res identity.Result, ctx *identity.RecordingContext) *Entry {
	e := &Entry{
		CanonicalName: res.CanonicalName,
		Category:      string(res.Category),
		Coach:         res.Identity.Coach,
		Student:       res.Identity.Student,
		Week:          string(res.Identity.Week),
		SessionType:   string(res.Identity.Session),
		Method:        res.Identity.Method,
		Confidence:    res.Confidence,
	}

	if ctx != nil {
		e.Source = string(ctx.Source)
		e.MeetingID = ctx.MeetingID
		e.SessionUUID = ctx.SessionUUID
		if !ctx.StartTime.IsZero() {
			t := ctx.StartTime.UTC().Truncate(time.Second)
			e.RecordedAt = &t
		}
	}

	return e
}
