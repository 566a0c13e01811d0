// Package version holds build metadata injected via ldflags, e.g.
// -X github.com/kailas-cloud/recommender/internal/version.Version=v1.2.0.
package version

//nolint:revive // Set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// String renders version metadata for the CLI.
func String() string {
	return Version + " (" + Commit + ", built " + Date + ")"
}
