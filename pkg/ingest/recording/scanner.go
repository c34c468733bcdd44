// Package recording constructs RecordingContext values from the three
// ingestion paths: bulk drive import (folder scan), platform API poll items,
// and webhook push payloads. It is the only place raw inputs are touched;
// everything downstream works on the evidence bag.
package recording

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// File detection patterns for drive imports.
var (
	// Media/transcript filename: Session Title-YYYYMMDD HHMM-1.ext
	mediaDatePattern = regexp.MustCompile(`^(.+)-(\d{8})\s+(\d{4})-\d+\.(vtt|mp4|webm|m4a)$`)

	// Transcript filename: Transcript_<title>_YYYYMMDD.txt
	transcriptPattern = regexp.MustCompile(`^Transcript_.+_(\d{8})\.txt$`)

	// Chat filename: Chat messages_<title>_YYYYMMDD.txt
	chatPattern = regexp.MustCompile(`^Chat messages_.+_(\d{8})\.txt$`)

	// Directory name with date suffix: Session Name - YYYYMMDD
	dirDatePattern = regexp.MustCompile(`^(.+?)[\s-]+(\d{8})$`)
)

// Session is one recording discovered on a drive: the grouped media,
// transcript, and chat files plus whatever title and date the filenames
// carried.
type Session struct {
	Title string
	Date  time.Time

	VideoPath      string
	AudioPath      string
	TranscriptPath string
	ChatPath       string
}

// Files returns the session's file paths in a stable order, skipping empties.
func (s *Session) Files() []string {
	var files []string
	for _, p := range []string{s.VideoPath, s.AudioPath, s.TranscriptPath, s.ChatPath} {
		if p != "" {
			files = append(files, p)
		}
	}
	return files
}

// ScanDrive scans a path (file or directory) and returns the sessions found.
// A directory holding complementary files for one session (one transcript,
// one chat, one video) is treated as a single session folder; otherwise
// subdirectories are scanned as session folders and loose files are grouped
// by title and date.
func ScanDrive(path string) ([]*Session, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	if !info.IsDir() {
		if s := sessionFromFile(path); s != nil {
			return []*Session{s}, nil
		}
		return []*Session{}, nil
	}

	return scanDirectory(path)
}

func scanDirectory(dirPath string) ([]*Session, error) {
	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return nil, err
	}

	hasSessionFiles := false
	hasSubdirs := false
	transcriptCount := 0

	for _, entry := range entries {
		if entry.IsDir() {
			hasSubdirs = true
			continue
		}
		switch DetectFileType(entry.Name()) {
		case FileTranscript:
			hasSessionFiles = true
			transcriptCount++
		case FileChat, FileVideo, FileAudio:
			hasSessionFiles = true
		}
	}

	// One transcript and no subdirectories means this directory IS a session.
	if hasSessionFiles && !hasSubdirs && transcriptCount <= 1 {
		if s, err := scanSessionDir(dirPath); err == nil && s != nil {
			return []*Session{s}, nil
		}
		return []*Session{}, nil
	}

	sessions := make([]*Session, 0)

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		s, err := scanSessionDir(filepath.Join(dirPath, entry.Name()))
		if err != nil {
			continue // skip unreadable directories
		}
		if s != nil {
			sessions = append(sessions, s)
		}
	}

	// Loose files at the root level, grouped by title and date.
	groups := make(map[string]*Session)
	var order []string

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		filename := entry.Name()
		fileType := DetectFileType(filename)
		if fileType == FileUnknown {
			continue
		}

		title, date := ExtractSessionInfo(filename)
		key := title + "|" + date.Format("20060102")

		s, ok := groups[key]
		if !ok {
			s = &Session{Title: title, Date: date}
			groups[key] = s
			order = append(order, key)
		}
		assignFile(s, fileType, filepath.Join(dirPath, filename))
	}

	for _, key := range order {
		sessions = append(sessions, groups[key])
	}

	return sessions, nil
}

// scanSessionDir reads one directory as a single session. Returns nil when
// the directory holds no recognizable session files.
func scanSessionDir(dirPath string) (*Session, error) {
	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return nil, err
	}

	s := &Session{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		fileType := DetectFileType(entry.Name())
		if fileType == FileUnknown {
			continue
		}
		assignFile(s, fileType, filepath.Join(dirPath, entry.Name()))
	}

	if s.TranscriptPath == "" && s.ChatPath == "" && s.VideoPath == "" && s.AudioPath == "" {
		return nil, nil
	}

	s.Title, s.Date = ExtractSessionInfo(filepath.Base(dirPath))
	if s.TranscriptPath != "" && (s.Title == "" || s.Date.IsZero()) {
		title, date := ExtractSessionInfo(filepath.Base(s.TranscriptPath))
		if s.Title == "" {
			s.Title = title
		}
		if s.Date.IsZero() {
			s.Date = date
		}
	}

	return s, nil
}

func sessionFromFile(path string) *Session {
	fileType := DetectFileType(filepath.Base(path))
	if fileType == FileUnknown {
		return nil
	}

	s := &Session{}
	s.Title, s.Date = ExtractSessionInfo(filepath.Base(path))
	assignFile(s, fileType, path)
	return s
}

func assignFile(s *Session, fileType FileType, path string) {
	switch fileType {
	case FileTranscript:
		if s.TranscriptPath == "" {
			s.TranscriptPath = path
		}
	case FileChat:
		if s.ChatPath == "" {
			s.ChatPath = path
		}
	case FileVideo:
		if s.VideoPath == "" {
			s.VideoPath = path
		}
	case FileAudio:
		if s.AudioPath == "" {
			s.AudioPath = path
		}
	}
}

// FileType classifies a drive file by role within a session.
type FileType string

const (
	FileUnknown    FileType = "unknown"
	FileVideo      FileType = "video"
	FileAudio      FileType = "audio"
	FileTranscript FileType = "transcript"
	FileChat       FileType = "chat"
)

// DetectFileType determines the role of a session file from its name.
func DetectFileType(filename string) FileType {
	lower := strings.ToLower(filename)
	ext := strings.ToLower(filepath.Ext(filename))

	switch ext {
	case ".vtt":
		return FileTranscript
	case ".mp4", ".webm", ".mov":
		return FileVideo
	case ".m4a", ".mp3", ".wav":
		return FileAudio
	case ".txt":
		if strings.HasPrefix(lower, "transcript_") {
			return FileTranscript
		}
		if strings.HasPrefix(lower, "chat messages_") || strings.HasPrefix(lower, "chat_") {
			return FileChat
		}
		if transcriptPattern.MatchString(filename) {
			return FileTranscript
		}
		if chatPattern.MatchString(filename) {
			return FileChat
		}
	}

	return FileUnknown
}

// ExtractSessionInfo pulls the title and date out of a file or directory
// name. The date is zero when none is recognizable; the title falls back to
// the bare name.
func ExtractSessionInfo(name string) (string, time.Time) {
	base := strings.TrimSuffix(name, filepath.Ext(name))

	if matches := mediaDatePattern.FindStringSubmatch(name); matches != nil {
		return strings.TrimSpace(matches[1]), parseCompactDate(matches[2])
	}

	if matches := transcriptPattern.FindStringSubmatch(name); matches != nil {
		title := strings.TrimPrefix(base, "Transcript_")
		title = strings.TrimSuffix(title, "_"+matches[1])
		return strings.TrimSpace(title), parseCompactDate(matches[1])
	}

	if matches := chatPattern.FindStringSubmatch(name); matches != nil {
		title := strings.TrimPrefix(base, "Chat messages_")
		title = strings.TrimSuffix(title, "_"+matches[1])
		return strings.TrimSpace(title), parseCompactDate(matches[1])
	}

	if matches := dirDatePattern.FindStringSubmatch(base); matches != nil {
		return strings.TrimSpace(matches[1]), parseCompactDate(matches[2])
	}

	return strings.TrimSpace(base), time.Time{}
}

// parseCompactDate parses YYYYMMDD, returning zero time on failure.
func parseCompactDate(s string) time.Time {
	t, err := time.Parse("20060102", s)
	if err != nil {
		return time.Time{}
	}
	return t
}
