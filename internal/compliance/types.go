// Package compliance classifies client driver versions against Snowflake's
// per-driver version-support table.
package compliance

import (
	"fmt"
	"strings"
	"time"
)

// Status is the support verdict for a driver version.
type Status int

const (
	Supported Status = iota
	NearEndOfSupport
	NotSupported
)

// Statuses lists every status in display order.
var Statuses = []Status{Supported, NearEndOfSupport, NotSupported}

// String returns the display label used in reports and exports.
func (s Status) String() string {
	switch s {
	case Supported:
		return "Supported"
	case NearEndOfSupport:
		return "Near End of Support"
	case NotSupported:
		return "Not Supported"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Severity orders statuses from healthiest (0) to worst.
func (s Status) Severity() int { return int(s) }

// ParseStatus accepts the display labels case-insensitively as well as the
// short forms used on the command line.
func ParseStatus(s string) (Status, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.NewReplacer("_", " ", "-", " ").Replace(key)
	switch key {
	case "supported":
		return Supported, nil
	case "near end of support", "near", "near eos", "nearing":
		return NearEndOfSupport, nil
	case "not supported", "unsupported", "notsupported":
		return NotSupported, nil
	}
	return 0, fmt.Errorf("unknown status %q (must be supported, near, or not-supported)", s)
}

// UsageRecord is one (client application, user) row from the lookback window.
type UsageRecord struct {
	Driver       string
	Version      string
	ClientAppID  string // raw CLIENT_APPLICATION_ID, e.g. "JDBC 3.13.30"
	User         string
	LastAccessed time.Time
	SessionCount int
}

// SupportInfo is the vendor's support table entry for one driver.
// EndOfSupport is empty when the driver has no announced end of support.
type SupportInfo struct {
	Driver       string
	MinSupported string
	Recommended  string
	EndOfSupport string
}

// HasEndOfSupport reports whether an end-of-support version is known.
func (i *SupportInfo) HasEndOfSupport() bool {
	return strings.TrimSpace(i.EndOfSupport) != ""
}

// Verdict is the classification of one driver version. It is derived on
// every run and never persisted.
type Verdict struct {
	Status      Status
	Recommended string // upgrade target; empty when Supported or unknown
	Reason      string // human-readable explanation or diagnostic
	Source      string // classifier that produced Status: "rule", "cortex", "gemini"
}
