package history

import "context"

// CommitID identifies a commit. The zero value means "no boundary".
type CommitID string

// ChangeType is the kind of change a commit applied to a path.
type ChangeType string

const (
	// Added means the path was introduced without a detected source.
	Added ChangeType = "A"
	// Copied means the path was introduced as a copy of another path.
	Copied ChangeType = "C"
	// Renamed means the path was introduced by renaming another path.
	Renamed ChangeType = "R"
)

// String returns a human-readable name for the change type.
func (ct ChangeType) String() string {
	switch ct {
	case Added:
		return "added"
	case Copied:
		return "copied"
	case Renamed:
		return "renamed"
	default:
		return "unknown"
	}
}

// Querier answers the three history questions the Resolver needs.
// Implementations must be deterministic for an unchanged repository.
type Querier interface {
	// CommitsTouching lists the commits that touched path, earliest first.
	// A non-empty boundary restricts the walk to history reachable from it.
	CommitsTouching(ctx context.Context, path string, boundary CommitID) ([]CommitID, error)

	// ChangeRecord returns the raw name-status line describing how commit
	// changed path, with rename and copy detection enabled.
	ChangeRecord(ctx context.Context, commit CommitID, path string) (string, error)

	// CommitDate returns the committer date of commit formatted with the
	// strftime-style format.
	CommitDate(ctx context.Context, commit CommitID, path, format string) (string, error)
}

// Hop is one rename followed during resolution.
type Hop struct {
	Commit CommitID `json:"commit" yaml:"commit"`
	From   string   `json:"from"   yaml:"from"`
	To     string   `json:"to"     yaml:"to"`
}

// Creation describes where a file entered the repository.
type Creation struct {
	// Path is the path resolution started from.
	Path string `json:"path" yaml:"path"`
	// Origin is the file's path in the introducing commit.
	Origin string `json:"origin" yaml:"origin"`
	// Commit introduced Origin.
	Commit CommitID `json:"commit" yaml:"commit"`
	// Change is Added or Copied.
	Change ChangeType `json:"change" yaml:"change"`
	// Date is the formatted committer date of Commit.
	Date string `json:"date" yaml:"date"`
	// Hops lists followed renames, newest first.
	Hops []Hop `json:"hops,omitempty" yaml:"hops,omitempty"`
}
