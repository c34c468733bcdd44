package buildinfo

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"runtime"
	"strings"
	"testing"
)

func TestGet_SourceBuildDefaults(t *testing.T) {
	info := Get("archive-cli")

	if info.ServiceName != "archive-cli" {
		t.Errorf("expected ServiceName='archive-cli', got %q", info.ServiceName)
	}
	if info.Version != "dev" {
		t.Errorf("expected Version='dev' for an unstamped build, got %q", info.Version)
	}
	if info.Commit != "unknown" {
		t.Errorf("expected Commit='unknown', got %q", info.Commit)
	}
	if info.BuildTime != "unknown" {
		t.Errorf("expected BuildTime='unknown', got %q", info.BuildTime)
	}
	if info.GoVersion != runtime.Version() {
		t.Errorf("expected GoVersion=%q, got %q", runtime.Version(), info.GoVersion)
	}
}

func TestString_StampedBuild(t *testing.T) {
	origVersion, origCommit, origBuildTime := Version, Commit, BuildTime
	defer func() {
		Version, Commit, BuildTime = origVersion, origCommit, origBuildTime
	}()

	Version = "v0.3.1"
	Commit = "4c1f2aa"
	BuildTime = "2026-08-20T10:30:00Z"

	if got, want := String(), "v0.3.1 (4c1f2aa, 2026-08-20T10:30:00Z)"; got != want {
		t.Errorf("expected String()=%q, got %q", want, got)
	}
}

func TestString_UnstampedBuild(t *testing.T) {
	if got, want := String(), "dev (unknown, unknown)"; got != want {
		t.Errorf("expected String()=%q, got %q", want, got)
	}
}

func TestHandler_ServesStampAsJSON(t *testing.T) {
	handler := Handler("sessionarc-worker")
	req := httptest.NewRequest(http.MethodGet, "/version", nil)
	rec := httptest.NewRecorder()

	handler(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", ct)
	}

	var info Info
	if err := json.NewDecoder(rec.Body).Decode(&info); err != nil {
		t.Fatalf("failed to decode JSON response: %v", err)
	}

	if info.ServiceName != "sessionarc-worker" {
		t.Errorf("expected service_name 'sessionarc-worker', got %q", info.ServiceName)
	}
	if info.Version == "" || info.Commit == "" || info.BuildTime == "" {
		t.Errorf("expected a complete stamp, got %+v", info)
	}
	if !strings.HasPrefix(info.GoVersion, "go") {
		t.Errorf("expected go_version to start with 'go', got %q", info.GoVersion)
	}
}
