package analyzer

import (
	"sort"
	"strings"

	"github.com/blackwell-systems/drivercheck/internal/compliance"
	"github.com/blackwell-systems/drivercheck/internal/version"
)

// Filter narrows a report. Empty fields match everything.
type Filter struct {
	Drivers  []string
	Statuses []compliance.Status
	Version  string
	User     string
}

// IsZero reports whether the filter matches everything.
func (f Filter) IsZero() bool {
	return len(f.Drivers) == 0 && len(f.Statuses) == 0 && f.Version == "" && f.User == ""
}

func (f Filter) match(driver, ver, user string, status compliance.Status) bool {
	if len(f.Drivers) > 0 {
		ok := false
		for _, d := range f.Drivers {
			if strings.EqualFold(strings.TrimSpace(d), driver) {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if len(f.Statuses) > 0 {
		ok := false
		for _, s := range f.Statuses {
			if s == status {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if f.Version != "" && f.Version != ver {
		return false
	}
	if f.User != "" && user != "" && !strings.EqualFold(f.User, user) {
		return false
	}
	return true
}

// Filter returns a new report holding only matching rows. Summary rows are
// kept when their driver, version and status match; the user filter applies
// to detail rows only.
func (r *Report) Filter(f Filter) *Report {
	if f.IsZero() {
		return r
	}
	out := &Report{}
	for _, s := range r.Summaries {
		if f.match(s.Driver, s.Version, "", s.Verdict.Status) {
			out.Summaries = append(out.Summaries, s)
		}
	}
	for _, d := range r.Details {
		if d.User == "" && f.User != "" {
			continue
		}
		if f.match(d.Driver, d.Version, d.User, d.Verdict.Status) {
			out.Details = append(out.Details, d)
		}
	}
	return out
}

// Sort orders for summary rows.
const (
	SortSessions   = "sessions"
	SortUsers      = "users"
	SortDriver     = "driver"
	SortStatus     = "status"
	SortLastAccess = "last-access"
)

// SortOrders lists the accepted sort orders.
var SortOrders = []string{SortSessions, SortUsers, SortDriver, SortStatus, SortLastAccess}

// ValidSort reports whether by is an accepted sort order.
func ValidSort(by string) bool {
	for _, s := range SortOrders {
		if s == by {
			return true
		}
	}
	return false
}

// SortSummaries sorts rows in place. Ties fall back to driver name, then
// version in numeric order.
func SortSummaries(rows []*Summary, by string) {
	tie := func(i, j int) bool {
		if rows[i].Driver != rows[j].Driver {
			return rows[i].Driver < rows[j].Driver
		}
		return compareVersionStrings(rows[i].Version, rows[j].Version) < 0
	}

	switch by {
	case SortUsers:
		sort.SliceStable(rows, func(i, j int) bool {
			if rows[i].UniqueUsers != rows[j].UniqueUsers {
				return rows[i].UniqueUsers > rows[j].UniqueUsers
			}
			return tie(i, j)
		})
	case SortDriver:
		sort.SliceStable(rows, tie)
	case SortStatus:
		sort.SliceStable(rows, func(i, j int) bool {
			si, sj := rows[i].Verdict.Status.Severity(), rows[j].Verdict.Status.Severity()
			if si != sj {
				return si > sj // worst first
			}
			if rows[i].TotalSessions != rows[j].TotalSessions {
				return rows[i].TotalSessions > rows[j].TotalSessions
			}
			return tie(i, j)
		})
	case SortLastAccess:
		sort.SliceStable(rows, func(i, j int) bool {
			if !rows[i].LastAccessed.Equal(rows[j].LastAccessed) {
				return rows[i].LastAccessed.After(rows[j].LastAccessed)
			}
			return tie(i, j)
		})
	default:
		sort.SliceStable(rows, func(i, j int) bool {
			if rows[i].TotalSessions != rows[j].TotalSessions {
				return rows[i].TotalSessions > rows[j].TotalSessions
			}
			return tie(i, j)
		})
	}
}

// SortDetails orders detail rows by session count (highest first), then
// driver, version and user.
func SortDetails(rows []*Detail) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.SessionCount != b.SessionCount {
			return a.SessionCount > b.SessionCount
		}
		if a.Driver != b.Driver {
			return a.Driver < b.Driver
		}
		if c := compareVersionStrings(a.Version, b.Version); c != 0 {
			return c < 0
		}
		return a.User < b.User
	})
}

// compareVersionStrings orders parseable versions numerically and falls
// back to plain string order for anything malformed.
func compareVersionStrings(a, b string) int {
	va, errA := version.Parse(a)
	vb, errB := version.Parse(b)
	if errA == nil && errB == nil {
		return version.Compare(va, vb)
	}
	return strings.Compare(a, b)
}

func sortStrings(s []string) { sort.Strings(s) }
