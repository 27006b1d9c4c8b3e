package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/blackwell-systems/drivercheck/internal/compliance"
)

// FileSource reads inputs previously exported to disk: usage as CSV and
// support metadata as the JSON returned by SYSTEM$CLIENT_VERSION_INFO().
// Usage files are assumed to already cover the lookback window.
type FileSource struct {
	UsagePath   string
	SupportPath string
	Acct        Account
}

// Usage reads the usage CSV.
func (f *FileSource) Usage(ctx context.Context, _ int) ([]compliance.UsageRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	file, err := os.Open(f.UsagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open usage file: %w", err)
	}
	defer file.Close()

	records, err := ReadUsageCSV(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.UsagePath, err)
	}
	return records, nil
}

// SupportInfo reads the support JSON.
func (f *FileSource) SupportInfo(ctx context.Context) ([]compliance.SupportInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.SupportPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read support file: %w", err)
	}
	info, err := ParseClientVersionInfo(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.SupportPath, err)
	}
	return info, nil
}

// Account returns the configured account, or UnknownAccount.
func (f *FileSource) Account(context.Context) (Account, error) {
	if f.Acct.Name == "" {
		return UnknownAccount, nil
	}
	return f.Acct, nil
}

// usage CSV column names, matched case-insensitively.
const (
	colDriver       = "driver"
	colVersion      = "version"
	colClientAppID  = "client_application_id"
	colUser         = "user"
	colUserName     = "user_name"
	colSessionCount = "session_count"
	colLastAccessed = "last_accessed"
)

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ReadUsageCSV parses usage rows. The header must name either driver and
// version columns or a client_application_id column, plus user (or
// user_name) and session_count. last_accessed is optional.
func ReadUsageCSV(r io.Reader) ([]compliance.UsageRecord, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("usage CSV is empty")
		}
		return nil, fmt.Errorf("failed to read usage CSV header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := cols[colUser]; !ok {
		if i, ok := cols[colUserName]; ok {
			cols[colUser] = i
		}
	}

	_, hasDriver := cols[colDriver]
	_, hasVersion := cols[colVersion]
	_, hasAppID := cols[colClientAppID]
	if !(hasDriver && hasVersion) && !hasAppID {
		return nil, fmt.Errorf("usage CSV needs driver and version columns or %s", colClientAppID)
	}
	for _, required := range []string{colUser, colSessionCount} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("usage CSV is missing column %q", required)
		}
	}

	get := func(row []string, col string) string {
		i, ok := cols[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var out []compliance.UsageRecord
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read usage CSV: %w", err)
		}

		rec := compliance.UsageRecord{
			ClientAppID: get(row, colClientAppID),
			User:        get(row, colUser),
		}
		if hasDriver && hasVersion {
			rec.Driver, rec.Version = get(row, colDriver), get(row, colVersion)
		} else {
			rec.Driver, rec.Version = ParseClientApplicationID(rec.ClientAppID)
		}
		if rec.ClientAppID == "" {
			rec.ClientAppID = strings.TrimSpace(rec.Driver + " " + rec.Version)
		}

		n, err := strconv.Atoi(get(row, colSessionCount))
		if err != nil || n < 0 {
			return nil, fmt.Errorf("line %d: invalid session_count %q", line, get(row, colSessionCount))
		}
		rec.SessionCount = n

		if s := get(row, colLastAccessed); s != "" {
			t, err := parseTime(s)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			rec.LastAccessed = t
		}
		out = append(out, rec)
	}
	return out, nil
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid last_accessed %q", s)
}
