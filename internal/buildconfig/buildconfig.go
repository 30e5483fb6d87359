package buildconfig

import "fmt"

// Set with -ldflags "-X github.com/Harshitk-cp/signalrealm/internal/buildconfig.version=..."
var (
	version = "dev"
	commit  = "unknown"
	date    = ""
)

// Info describes the running binary.
type Info struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"build_date,omitempty"`
}

func Version() string {
	return version
}

func Commit() string {
	return commit
}

// Current returns the values injected at link time.
func Current() Info {
	return Info{Version: version, Commit: commit, Date: date}
}

// String renders "dev (unknown)" or "v1.2.0 (abc123, 2025-03-01)".
func (i Info) String() string {
	if i.Date == "" {
		return fmt.Sprintf("%s (%s)", i.Version, i.Commit)
	}
	return fmt.Sprintf("%s (%s, %s)", i.Version, i.Commit, i.Date)
}
