// Package version holds build metadata stamped in with -ldflags -X.
package version

// Version is the release version of the gitorigin binary.
var Version = "dev"

// Commit is the git hash the binary was built from.
var Commit = "<unknown>"

// Date is the build timestamp.
var Date = ""

// String formats the build metadata for the version command.
func String() string {
	s := Version + " (" + Commit
	if Date != "" {
		s += ", " + Date
	}

	return s + ")"
}
