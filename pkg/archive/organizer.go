// Package archive places processed recordings into the archive tree. The
// layout is one branch per category, one folder per recording named by the
// sanitized canonical name:
//
//	<root>/<category>/<sanitized canonical name>/
//
// Each placed folder gets a metadata sidecar so the identity decision can be
// reconstructed without the ledger.
package archive

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sessionarc/sessionarc/pkg/contentid"
	"github.com/sessionarc/sessionarc/pkg/identity"
	"github.com/sessionarc/sessionarc/pkg/logging"
)

// SidecarFilename is the metadata file written into each archive folder.
const SidecarFilename = ".sessionarc.yaml"

// Organizer moves recording files into the archive tree.
type Organizer struct {
	root   string
	logger logging.Logger
}

// NewOrganizer creates an organizer rooted at the given archive directory.
func NewOrganizer(root string, logger logging.Logger) *Organizer {
	return &Organizer{
		root:   root,
		logger: logger.With(logging.F("component", "organizer")),
	}
}

// Root returns the archive root directory.
func (o *Organizer) Root() string { return o.root }

// Placement describes where a recording was filed.
type Placement struct {
	// Dir is the absolute archive folder for this recording.
	Dir string

	// ContentID is the archive-entry content id written to the sidecar.
	ContentID string

	// Moved lists the destination paths of the placed files.
	Moved []string
}

// DestinationDir returns the archive folder a result would be filed into,
// without creating anything. Useful for dry runs.
func (o *Organizer) DestinationDir(res identity.Result) string {
	folder := identity.SanitizeFolderName(res.CanonicalName)
	return filepath.Join(o.root, string(res.Category), folder)
}

// Place moves the recording's files into the archive folder for the result
// and writes the metadata sidecar. Already-placed folders are extended, not
// replaced: existing files with the same name are an error, so a re-run of
// an already archived recording fails loudly instead of clobbering.
func (o *Organizer) Place(res identity.Result, ctx *identity.RecordingContext, files []string) (*Placement, error) {
	dir := o.DestinationDir(res)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("archive write: creating %s: %w", dir, err)
	}

	placement := &Placement{
		Dir:       dir,
		ContentID: contentid.New(contentid.TypeArchiveEntry),
	}

	for _, src := range files {
		dest := filepath.Join(dir, filepath.Base(src))
		if _, err := os.Stat(dest); err == nil {
			return nil, fmt.Errorf("archive write: %s already exists", dest)
		}
		if err := moveFile(src, dest); err != nil {
			return nil, fmt.Errorf("archive write: moving %s: %w", src, err)
		}
		placement.Moved = append(placement.Moved, dest)
	}

	if err := o.writeSidecar(dir, placement.ContentID, res, ctx); err != nil {
		return nil, err
	}

	o.logger.Info("Recording archived",
		logging.F("canonical_name", res.CanonicalName),
		logging.F("category", string(res.Category)),
		logging.F("dir", dir),
		logging.F("files", len(placement.Moved)))

	return placement, nil
}

// Sidecar is the metadata document written next to archived files.
type Sidecar struct {
	ContentID     string    `yaml:"content_id"`
	CanonicalName string    `yaml:"canonical_name"`
	Category      string    `yaml:"category"`
	Coach         string    `yaml:"coach,omitempty"`
	Student       string    `yaml:"student,omitempty"`
	Week          string    `yaml:"week,omitempty"`
	SessionType   string    `yaml:"session_type,omitempty"`
	Method        string    `yaml:"method"`
	Confidence    int       `yaml:"confidence"`
	Source        string    `yaml:"source,omitempty"`
	MeetingID     string    `yaml:"meeting_id,omitempty"`
	SessionUUID   string    `yaml:"session_uuid,omitempty"`
	RecordedAt    time.Time `yaml:"recorded_at,omitempty"`
	ArchivedAt    time.Time `yaml:"archived_at"`
}

func (o *Organizer) writeSidecar(dir, cid string, res identity.Result, ctx *identity.RecordingContext) error {
	sc := Sidecar{
		ContentID:     cid,
		CanonicalName: res.CanonicalName,
		Category:      string(res.Category),
		Coach:         res.Identity.CoachName(),
		Student:       res.Identity.StudentName(),
		Week:          string(res.Identity.Week),
		SessionType:   string(res.Identity.Session),
		Method:        res.Identity.Method,
		Confidence:    res.Confidence,
		ArchivedAt:    time.Now().UTC(),
	}
	if ctx != nil {
		sc.Source = string(ctx.Source)
		sc.MeetingID = ctx.MeetingID
		sc.SessionUUID = ctx.SessionUUID
		sc.RecordedAt = ctx.StartTime
	}

	data, err := yaml.Marshal(&sc)
	if err != nil {
		return fmt.Errorf("archive write: marshaling sidecar: %w", err)
	}

	path := filepath.Join(dir, SidecarFilename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("archive write: writing sidecar: %w", err)
	}

	return nil
}

// ReadSidecar loads the metadata sidecar from an archive folder.
func ReadSidecar(dir string) (*Sidecar, error) {
	data, err := os.ReadFile(filepath.Join(dir, SidecarFilename))
	if err != nil {
		return nil, err
	}

	var sc Sidecar
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parsing sidecar in %s: %w", dir, err)
	}

	return &sc, nil
}

// moveFile renames src to dest, falling back to copy+remove when the rename
// crosses filesystems.
func moveFile(src, dest string) error {
	if err := os.Rename(src, dest); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dest)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(dest)
		return err
	}

	return os.Remove(src)
}
