package output

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/blackwell-systems/drivercheck/internal/analyzer"
	"github.com/blackwell-systems/drivercheck/internal/compliance"
)

func readCSV(t *testing.T, data string) [][]string {
	t.Helper()
	records, err := csv.NewReader(strings.NewReader(data)).ReadAll()
	if err != nil {
		t.Fatalf("exported CSV does not parse: %v", err)
	}
	return records
}

func TestCSVHeaderOrder(t *testing.T) {
	want := "driver,user,version,last accessed,unique users,total sessions,min supported version,end-of-support version,recommended version,status"
	if got := strings.Join(CSVHeader, ","); got != want {
		t.Errorf("CSVHeader = %q, want %q", got, want)
	}
}

func TestWriteSummaryCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSummaryCSV(&buf, sampleSummaries()); err != nil {
		t.Fatalf("WriteSummaryCSV() error: %v", err)
	}

	records := readCSV(t, buf.String())
	if len(records) != 4 {
		t.Fatalf("got %d records, want header + 3", len(records))
	}

	want := []string{"PythonConnector", "", "2.7.1", "2026-10-08", "1", "40", "3.0.0", "3.1.0", "3.12.1", "Not Supported"}
	if got := records[1]; strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("first row = %v, want %v", got, want)
	}

	unknown := records[3]
	if unknown[0] != "Mystery" || unknown[6] != "" || unknown[7] != "" || unknown[8] != "" {
		t.Errorf("unknown driver row = %v, want empty support columns", unknown)
	}
}

func TestWriteDetailCSV(t *testing.T) {
	rows := []*analyzer.Detail{
		{
			UsageRecord: compliance.UsageRecord{Driver: "ODBC", Version: "2.25.0", User: "carol, ops", SessionCount: 3},
			Support:     &compliance.SupportInfo{Driver: "ODBC", MinSupported: "2.24.0", Recommended: "2.30.0", EndOfSupport: "2.26.0"},
			Verdict:     compliance.Verdict{Status: compliance.NearEndOfSupport, Recommended: "2.30.0"},
		},
	}

	var buf bytes.Buffer
	if err := WriteDetailCSV(&buf, rows); err != nil {
		t.Fatalf("WriteDetailCSV() error: %v", err)
	}

	records := readCSV(t, buf.String())
	want := []string{"ODBC", "carol, ops", "2.25.0", "", "1", "3", "2.24.0", "2.26.0", "2.30.0", "Near End of Support"}
	if got := records[1]; strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("detail row = %v, want %v", got, want)
	}
}

func TestWriteSummaryCSV_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSummaryCSV(&buf, nil); err != nil {
		t.Fatalf("WriteSummaryCSV() error: %v", err)
	}
	records := readCSV(t, buf.String())
	if len(records) != 1 {
		t.Errorf("empty export should contain only the header, got %d records", len(records))
	}
}
