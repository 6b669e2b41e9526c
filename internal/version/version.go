package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"time"
)

// Set at build time:
//
//	go build -ldflags="-X github.com/muurk/adax/internal/version.Version=v1.2.3 \
//	                   -X github.com/muurk/adax/internal/version.Commit=abc123" ./cmd/adax
//
// Otherwise they come from the module's build info, falling back to a dated
// dev version.
var (
	Version = ""
	Commit  = ""
)

const develVersion = "(devel)"

func init() {
	if info, ok := debug.ReadBuildInfo(); ok {
		fromBuildInfo(info)
	}
	if Version == "" {
		Version = "dev-" + time.Now().Format("20060102-150405")
	}
	if Commit == "" {
		Commit = "unknown"
	}
}

// fromBuildInfo fills whatever ldflags left empty. A binary installed with
// `go install github.com/muurk/adax/cmd/adax@v1.2.3` carries its module
// version; a local build only has VCS settings.
func fromBuildInfo(info *debug.BuildInfo) {
	vcs := make(map[string]string, len(info.Settings))
	for _, s := range info.Settings {
		vcs[s.Key] = s.Value
	}

	if Commit == "" {
		if rev := vcs["vcs.revision"]; rev != "" {
			Commit = shortHash(rev)
			if vcs["vcs.modified"] == "true" {
				Commit += "-dirty"
			}
		}
	}

	if Version != "" {
		return
	}
	if v := info.Main.Version; v != "" && v != develVersion {
		Version = v
		return
	}
	if t, err := time.Parse(time.RFC3339, vcs["vcs.time"]); err == nil {
		Version = "dev-" + t.Format("20060102")
	}
}

func shortHash(rev string) string {
	if len(rev) > 7 {
		return rev[:7]
	}
	return rev
}

// Full returns the version with its commit, as printed by `adax version`
func Full() string {
	return fmt.Sprintf("%s (commit: %s)", Version, Commit)
}

// UserAgent returns the User-Agent sent to the Adax API
func UserAgent() string {
	return fmt.Sprintf("adax-go/%s (%s/%s)", Version, runtime.GOOS, runtime.GOARCH)
}
