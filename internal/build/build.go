// Package build exposes values stamped into the binary at link time.
package build

const ProjectName = "meadowlark"

var (
	// Version is the release version, set with -ldflags "-X .../internal/build.Version=...".
	Version = "dev"

	// Commit is the git commit the binary was built from.
	Commit = "none"

	// Date is the build date in RFC3339.
	Date = "unknown"
)
