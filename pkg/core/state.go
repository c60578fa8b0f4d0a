package core

import "time"

// Store defines the interface for build state operations.
type Store interface {
	Open(path string) error
	Close() error
	InitSchema() error

	// Build operations
	CreateBuild() (*Build, error)
	GetBuild(id string) (*Build, error)
	CompleteBuild(id string, status BuildStatus, stats BuildStats, errMsg string) error
	GetLatestBuild() (*Build, error)
	ListBuilds(limit int) ([]*Build, error)

	// Output hash tracking
	GetOutputHash(path string) (string, error)
	SetOutputHash(path, hash, buildID string) error
	DeleteOutput(path string) error
	ListOutputs() ([]*Output, error)
}

// BuildStatus represents the status of a site build.
type BuildStatus string

// Build status constants.
const (
	BuildStatusRunning   BuildStatus = "running"
	BuildStatusCompleted BuildStatus = "completed"
	BuildStatusFailed    BuildStatus = "failed"
)

// BuildStats counts the pages handled by a build.
type BuildStats struct {
	Written int
	Skipped int
}

// Build represents one run of the site generator.
type Build struct {
	ID          string
	Status      BuildStatus
	StartedAt   time.Time
	CompletedAt *time.Time
	Stats       BuildStats
	Error       string
}

// Output is a generated file tracked for incremental builds.
type Output struct {
	Path        string
	ContentHash string
	BuildID     string
	UpdatedAt   time.Time
}
