// Package buildinfo carries the version stamp shown by `sessionarc version`
// and served from the process command's /version endpoint.
package buildinfo

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
)

// Stamped by the release build via ldflags:
// -X github.com/sessionarc/sessionarc/pkg/buildinfo.Version=v0.3.1
// -X github.com/sessionarc/sessionarc/pkg/buildinfo.Commit=4c1f2aa
// -X github.com/sessionarc/sessionarc/pkg/buildinfo.BuildTime=2026-08-20T10:30:00Z
// A source build that skips the ldflags reports "dev".
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// Info is the build stamp plus which sessionarc binary produced it.
type Info struct {
	ServiceName string `json:"service_name"`
	Version     string `json:"version"`
	Commit      string `json:"commit"`
	BuildTime   string `json:"build_time"`
	GoVersion   string `json:"go_version"`
}

// Get returns the build stamp for the named binary.
func Get(serviceName string) Info {
	return Info{
		ServiceName: serviceName,
		Version:     Version,
		Commit:      Commit,
		BuildTime:   BuildTime,
		GoVersion:   runtime.Version(),
	}
}

// String formats the stamp as "v0.3.1 (4c1f2aa, 2026-08-20T10:30:00Z)".
func String() string {
	return fmt.Sprintf("%s (%s, %s)", Version, Commit, BuildTime)
}

// Handler serves the build stamp as JSON for the /version endpoint.
func Handler(serviceName string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(Get(serviceName))
	}
}
