package analyzer

import (
	"time"

	"github.com/blackwell-systems/drivercheck/internal/compliance"
)

// Key identifies a summary group.
type Key struct {
	Driver  string
	Version string
}

// Summary is one row of the per driver+version report.
type Summary struct {
	Driver        string
	Version       string
	UniqueUsers   int
	TotalSessions int
	LastAccessed  time.Time
	Support       *compliance.SupportInfo // nil when the driver is unknown
	Verdict       compliance.Verdict
}

// Detail is one per-user drill-down row.
type Detail struct {
	compliance.UsageRecord
	Support *compliance.SupportInfo
	Verdict compliance.Verdict
}

// Report is the classified, aggregated view of one refresh.
type Report struct {
	Summaries []*Summary
	Details   []*Detail
}

// KPIs are the headline counts shown above the report.
type KPIs struct {
	DriversProcessed   int
	Supported          int
	NearEndOfSupport   int
	NotSupported       int
	UsersOnUnsupported int
}
