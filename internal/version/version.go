// Package version holds build-time metadata injected via ldflags.
package version

// These variables are set at build time using -ldflags:
//
//	-X 'github.com/janekbaraniewski/usagetray/internal/version.Version=...'
//	-X 'github.com/janekbaraniewski/usagetray/internal/version.CommitHash=...'
//	-X 'github.com/janekbaraniewski/usagetray/internal/version.BuildDate=...'
var (
	Version    = "dev"
	CommitHash = "unknown"
	BuildDate  = "unknown"
)

// String returns a formatted version string.
func String() string {
	if CommitHash == "unknown" && BuildDate == "unknown" {
		return Version
	}
	return Version + " (" + shortCommit() + ", built " + BuildDate + ")"
}

func shortCommit() string {
	if len(CommitHash) > 7 {
		return CommitHash[:7]
	}
	return CommitHash
}
