package store

import "time"

// Source labels for runs.
const (
	SourceSnowflake = "snowflake"
	SourceImport    = "import"
)

// Run is one stored refresh: where the inputs came from and when.
type Run struct {
	ID           int64
	CreatedAt    time.Time
	Account      string
	Region       string
	LookbackDays int
	Source       string

	// Filled in by ListRuns and GetRun.
	UsageCount   int
	SupportCount int
}
