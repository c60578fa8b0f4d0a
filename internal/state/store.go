// Package state tracks site builds and the content hashes of generated
// files in a SQLite database, so unchanged outputs can be skipped.
package state

import "github.com/leapstack-labs/leapsite/pkg/core"

// Type aliases for the shared state types defined in pkg/core.
type (
	// Store is an alias for core.Store.
	Store = core.Store

	// Build is an alias for core.Build.
	Build = core.Build

	// BuildStatus is an alias for core.BuildStatus.
	BuildStatus = core.BuildStatus

	// BuildStats is an alias for core.BuildStats.
	BuildStats = core.BuildStats

	// Output is an alias for core.Output.
	Output = core.Output
)

// Re-export status constants from core.
const (
	BuildStatusRunning   = core.BuildStatusRunning
	BuildStatusCompleted = core.BuildStatusCompleted
	BuildStatusFailed    = core.BuildStatusFailed
)

var _ Store = (*SQLiteStore)(nil)
