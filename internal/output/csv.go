package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/blackwell-systems/drivercheck/internal/analyzer"
	"github.com/blackwell-systems/drivercheck/internal/compliance"
)

// CSVHeader is the fixed column order of every export.
var CSVHeader = []string{
	"driver",
	"user",
	"version",
	"last accessed",
	"unique users",
	"total sessions",
	"min supported version",
	"end-of-support version",
	"recommended version",
	"status",
}

// WriteSummaryCSV exports summary rows. The user column is left empty.
func WriteSummaryCSV(w io.Writer, rows []*analyzer.Summary) error {
	records := make([][]string, 0, len(rows))
	for _, r := range rows {
		records = append(records, csvRecord(r.Driver, "", r.Version, r.LastAccessed,
			r.UniqueUsers, r.TotalSessions, r.Support, r.Verdict))
	}
	return writeCSV(w, records)
}

// WriteDetailCSV exports per-user rows. Each row counts one unique user and
// that user's sessions.
func WriteDetailCSV(w io.Writer, rows []*analyzer.Detail) error {
	records := make([][]string, 0, len(rows))
	for _, d := range rows {
		records = append(records, csvRecord(d.Driver, d.User, d.Version, d.LastAccessed,
			1, d.SessionCount, d.Support, d.Verdict))
	}
	return writeCSV(w, records)
}

func csvRecord(driver, user, version string, last time.Time, users, sessions int,
	info *compliance.SupportInfo, v compliance.Verdict) []string {
	var minV, eos string
	if info != nil {
		minV, eos = info.MinSupported, info.EndOfSupport
	}
	var lastStr string
	if !last.IsZero() {
		lastStr = last.UTC().Format("2006-01-02")
	}
	return []string{
		driver,
		user,
		version,
		lastStr,
		strconv.Itoa(users),
		strconv.Itoa(sessions),
		minV,
		eos,
		v.Recommended,
		v.Status.String(),
	}
}

func writeCSV(w io.Writer, records [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	if err := cw.WriteAll(records); err != nil {
		return fmt.Errorf("failed to write CSV: %w", err)
	}
	return nil
}
