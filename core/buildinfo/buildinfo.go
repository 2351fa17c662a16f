package buildinfo

import "fmt"

// These variables are intended to be set via -ldflags at build time:
//
//	-X 'github.com/m3rciful/tutorbot/core/buildinfo.Version=v1.2.3'
//	-X 'github.com/m3rciful/tutorbot/core/buildinfo.Commit=abcdef0'
//	-X 'github.com/m3rciful/tutorbot/core/buildinfo.Date=2025-08-30T12:00:00Z'
var (
	Version = "dev"
	Commit  = "local"
	Date    = ""
)

// Summary renders version information for the /help footer and startup logs.
func Summary() string {
	if Date == "" {
		return fmt.Sprintf("%s (%s)", Version, Commit)
	}
	return fmt.Sprintf("%s (%s, %s)", Version, Commit, Date)
}
