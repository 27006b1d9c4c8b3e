package analyzer

import (
	"context"
	"testing"

	"github.com/blackwell-systems/drivercheck/internal/compliance"
)

func sampleSupport() []compliance.SupportInfo {
	return []compliance.SupportInfo{
		{Driver: "JDBC", MinSupported: "3.13.0", Recommended: "3.14.0"},
		{Driver: "ODBC", MinSupported: "2.24.0", Recommended: "2.30.0", EndOfSupport: "2.26.0"},
		{Driver: "PythonConnector", MinSupported: "3.0.0", Recommended: "3.12.1", EndOfSupport: "3.1.0"},
	}
}

type countingClassifier struct {
	calls map[Key]int
}

func (c *countingClassifier) Classify(ctx context.Context, driver, version string, info *compliance.SupportInfo) compliance.Verdict {
	c.calls[Key{driver, version}]++
	return compliance.Classify(driver, version, info)
}

func (c *countingClassifier) Name() string { return "counting" }

func findSummary(t *testing.T, r *Report, driver, version string) *Summary {
	t.Helper()
	for _, s := range r.Summaries {
		if s.Driver == driver && s.Version == version {
			return s
		}
	}
	t.Fatalf("summary %s %s not found", driver, version)
	return nil
}

func TestAnalyze_Verdicts(t *testing.T) {
	a := New(nil)
	report, err := a.Analyze(context.Background(), sampleUsage(), sampleSupport())
	if err != nil {
		t.Fatalf("Analyze() error: %v", err)
	}

	tests := []struct {
		driver, version string
		want            compliance.Status
		wantRec         string
	}{
		{"ODBC", "2.25.0", compliance.NearEndOfSupport, "2.30.0"},
		{"JDBC", "3.13.0", compliance.Supported, ""},
		{"JDBC", "3.14.2", compliance.Supported, ""},
		{"PythonConnector", "2.7.1", compliance.NotSupported, "3.12.1"},
		{"Mystery", "1.0", compliance.NotSupported, ""},
	}
	for _, tt := range tests {
		s := findSummary(t, report, tt.driver, tt.version)
		if s.Verdict.Status != tt.want {
			t.Errorf("%s %s status = %s, want %s (%s)", tt.driver, tt.version, s.Verdict.Status, tt.want, s.Verdict.Reason)
		}
		if s.Verdict.Recommended != tt.wantRec {
			t.Errorf("%s %s recommended = %q, want %q", tt.driver, tt.version, s.Verdict.Recommended, tt.wantRec)
		}
	}

	mystery := findSummary(t, report, "Mystery", "1.0")
	if mystery.Support != nil {
		t.Error("unknown driver should have nil Support")
	}

	odbc := findSummary(t, report, "ODBC", "2.25.0")
	if odbc.UniqueUsers != 2 || odbc.TotalSessions != 9 {
		t.Errorf("ODBC users/sessions = %d/%d, want 2/9", odbc.UniqueUsers, odbc.TotalSessions)
	}

	if len(report.Details) != len(sampleUsage()) {
		t.Errorf("details = %d, want %d", len(report.Details), len(sampleUsage()))
	}
	for _, d := range report.Details {
		s := findSummary(t, report, d.Driver, d.Version)
		if d.Verdict != s.Verdict {
			t.Errorf("detail %s/%s verdict differs from summary", d.Driver, d.User)
		}
	}
}

func TestAnalyze_DefaultSortIsSessionsDescending(t *testing.T) {
	report, err := New(nil).Analyze(context.Background(), sampleUsage(), sampleSupport())
	if err != nil {
		t.Fatalf("Analyze() error: %v", err)
	}
	for i := 1; i < len(report.Summaries); i++ {
		if report.Summaries[i-1].TotalSessions < report.Summaries[i].TotalSessions {
			t.Fatalf("summaries not sorted by sessions: %d before %d",
				report.Summaries[i-1].TotalSessions, report.Summaries[i].TotalSessions)
		}
	}
	if report.Summaries[0].Driver != "PythonConnector" {
		t.Errorf("first summary = %s, want PythonConnector", report.Summaries[0].Driver)
	}
}

func TestAnalyze_ClassifiesEachPairOnce(t *testing.T) {
	cc := &countingClassifier{calls: make(map[Key]int)}
	var progress []int

	a := New(cc, WithProgress(func(done, total int, _ Key, _ compliance.Verdict) {
		progress = append(progress, done)
		if total != 5 {
			t.Errorf("progress total = %d, want 5", total)
		}
	}))
	if _, err := a.Analyze(context.Background(), sampleUsage(), sampleSupport()); err != nil {
		t.Fatalf("Analyze() error: %v", err)
	}

	for k, n := range cc.calls {
		if n != 1 {
			t.Errorf("%v classified %d times, want 1", k, n)
		}
	}
	if len(progress) != 5 || progress[4] != 5 {
		t.Errorf("progress callbacks = %v, want 1..5", progress)
	}
}

func TestAnalyze_AliasesAndCaseInsensitiveJoin(t *testing.T) {
	usage := []compliance.UsageRecord{
		{Driver: "Go", Version: "1.6.22", User: "svc", SessionCount: 3},
		{Driver: "jdbc", Version: "3.13.0", User: "svc", SessionCount: 1},
	}
	support := []compliance.SupportInfo{
		{Driver: "GO", MinSupported: "1.6.0", Recommended: "1.7.0"},
		{Driver: "JDBC", MinSupported: "3.13.0", Recommended: "3.14.0"},
	}

	a := New(nil, WithAliases(map[string]string{"go": "GO"}))
	report, err := a.Analyze(context.Background(), usage, support)
	if err != nil {
		t.Fatalf("Analyze() error: %v", err)
	}
	for _, s := range report.Summaries {
		if s.Support == nil {
			t.Errorf("%s should have joined with support metadata", s.Driver)
		}
		if s.Verdict.Status != compliance.Supported {
			t.Errorf("%s %s = %s, want Supported", s.Driver, s.Version, s.Verdict.Status)
		}
	}
}

func TestAnalyze_MissingMinimumTreatedAsUnknown(t *testing.T) {
	usage := []compliance.UsageRecord{{Driver: "SnowSQL", Version: "1.2.30", User: "ops", SessionCount: 1}}
	support := []compliance.SupportInfo{{Driver: "SnowSQL", Recommended: "1.3.0"}}

	report, err := New(nil).Analyze(context.Background(), usage, support)
	if err != nil {
		t.Fatalf("Analyze() error: %v", err)
	}
	s := report.Summaries[0]
	if s.Support != nil || s.Verdict.Status != compliance.NotSupported {
		t.Errorf("driver without minimum version should be unknown/Not Supported, got %s", s.Verdict.Status)
	}
}

func TestAnalyze_MalformedRowIsIsolated(t *testing.T) {
	usage := append(sampleUsage(), compliance.UsageRecord{Driver: "JDBC", Version: "3.x", User: "zed", SessionCount: 1})

	report, err := New(nil).Analyze(context.Background(), usage, sampleSupport())
	if err != nil {
		t.Fatalf("Analyze() error: %v", err)
	}
	bad := findSummary(t, report, "JDBC", "3.x")
	if bad.Verdict.Status != compliance.NotSupported {
		t.Errorf("malformed version status = %s, want Not Supported", bad.Verdict.Status)
	}
	good := findSummary(t, report, "JDBC", "3.13.0")
	if good.Verdict.Status != compliance.Supported {
		t.Errorf("well-formed row affected by malformed sibling: %s", good.Verdict.Status)
	}
}

func TestAnalyze_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := New(nil).Analyze(ctx, sampleUsage(), sampleSupport()); err == nil {
		t.Error("Analyze() with canceled context should fail")
	}
}

func TestReport_KPIs(t *testing.T) {
	report, err := New(nil).Analyze(context.Background(), sampleUsage(), sampleSupport())
	if err != nil {
		t.Fatalf("Analyze() error: %v", err)
	}

	got := report.KPIs()
	want := KPIs{
		DriversProcessed:   5,
		Supported:          2,
		NearEndOfSupport:   1,
		NotSupported:       2,
		UsersOnUnsupported: 2, // dave (PythonConnector), erin (Mystery)
	}
	if got != want {
		t.Errorf("KPIs() = %+v, want %+v", got, want)
	}
}

func TestReport_Filter(t *testing.T) {
	report, err := New(nil).Analyze(context.Background(), sampleUsage(), sampleSupport())
	if err != nil {
		t.Fatalf("Analyze() error: %v", err)
	}

	if got := report.Filter(Filter{}); got != report {
		t.Error("zero filter should return the report unchanged")
	}

	byDriver := report.Filter(Filter{Drivers: []string{"jdbc"}})
	if len(byDriver.Summaries) != 2 {
		t.Errorf("driver filter summaries = %d, want 2", len(byDriver.Summaries))
	}
	if len(byDriver.Details) != 3 {
		t.Errorf("driver filter details = %d, want 3", len(byDriver.Details))
	}

	byStatus := report.Filter(Filter{Statuses: []compliance.Status{compliance.NotSupported}})
	for _, s := range byStatus.Summaries {
		if s.Verdict.Status != compliance.NotSupported {
			t.Errorf("status filter kept %s", s.Verdict.Status)
		}
	}
	if len(byStatus.Summaries) != 2 {
		t.Errorf("status filter summaries = %d, want 2", len(byStatus.Summaries))
	}

	byUser := report.Filter(Filter{User: "alice"})
	if len(byUser.Details) != 3 {
		t.Errorf("user filter details = %d, want 3", len(byUser.Details))
	}
	if len(byUser.Summaries) != len(report.Summaries) {
		t.Error("user filter should not drop summary rows")
	}

	if drivers := report.Drivers(); len(drivers) != 4 || drivers[0] != "JDBC" {
		t.Errorf("Drivers() = %v", drivers)
	}
}

func TestSortSummaries(t *testing.T) {
	rows := []*Summary{
		{Driver: "ODBC", Version: "2.25.0", TotalSessions: 9, UniqueUsers: 2, Verdict: compliance.Verdict{Status: compliance.NearEndOfSupport}},
		{Driver: "JDBC", Version: "3.10.0", TotalSessions: 9, UniqueUsers: 1, Verdict: compliance.Verdict{Status: compliance.Supported}},
		{Driver: "JDBC", Version: "3.9.0", TotalSessions: 1, UniqueUsers: 5, Verdict: compliance.Verdict{Status: compliance.NotSupported}},
	}

	SortSummaries(rows, SortSessions)
	if rows[0].Driver != "JDBC" || rows[0].Version != "3.10.0" {
		t.Errorf("sessions sort: first = %s %s, want JDBC 3.10.0 (tie broken by driver)", rows[0].Driver, rows[0].Version)
	}

	SortSummaries(rows, SortDriver)
	if rows[0].Version != "3.9.0" || rows[1].Version != "3.10.0" {
		t.Errorf("driver sort should order versions numerically, got %s, %s", rows[0].Version, rows[1].Version)
	}

	SortSummaries(rows, SortStatus)
	if rows[0].Verdict.Status != compliance.NotSupported {
		t.Errorf("status sort: first = %s, want Not Supported", rows[0].Verdict.Status)
	}

	SortSummaries(rows, SortUsers)
	if rows[0].UniqueUsers != 5 {
		t.Errorf("users sort: first has %d users, want 5", rows[0].UniqueUsers)
	}

	if !ValidSort("last-access") || ValidSort("size") {
		t.Error("ValidSort() accepted/rejected the wrong values")
	}
}

func TestExplain(t *testing.T) {
	a := New(nil, WithAliases(map[string]string{"Odbc-Driver": "ODBC"}))
	e := a.Explain(context.Background(), "odbc-driver", "2.25.3", sampleSupport())

	if e.ResolvedDriver != "ODBC" {
		t.Errorf("ResolvedDriver = %q, want ODBC", e.ResolvedDriver)
	}
	if e.Support == nil {
		t.Fatal("Support should be resolved through the alias")
	}
	if e.Verdict.Status != compliance.NearEndOfSupport {
		t.Errorf("Verdict = %s, want Near End of Support", e.Verdict.Status)
	}
	if e.NearWindow != "[2.25, 2.26.0)" {
		t.Errorf("NearWindow = %q", e.NearWindow)
	}

	unknown := a.Explain(context.Background(), "Nope", "1.0", sampleSupport())
	if unknown.Support != nil || unknown.RuleVerdict.Status != compliance.NotSupported {
		t.Error("unknown driver should have no support and be Not Supported")
	}
}

func TestExplain_CaseOnlyMatchUsesSupportName(t *testing.T) {
	a := New(nil)
	e := a.Explain(context.Background(), "odbc", "2.25.0", sampleSupport())

	if e.ResolvedDriver != "ODBC" {
		t.Errorf("ResolvedDriver = %q, want ODBC", e.ResolvedDriver)
	}
	if e.Driver != "odbc" {
		t.Errorf("Driver = %q, want the name as given", e.Driver)
	}

	unknown := a.Explain(context.Background(), "Nope", "1.0", sampleSupport())
	if unknown.ResolvedDriver != "Nope" {
		t.Errorf("unknown ResolvedDriver = %q, want Nope", unknown.ResolvedDriver)
	}
}

func TestAnalyze_CaseAndZeroVariantsShareOneRow(t *testing.T) {
	usage := []compliance.UsageRecord{
		{Driver: "ODBC", Version: "2.25.0", User: "alice", SessionCount: 2},
		{Driver: "odbc", Version: "2.25", User: "bob", SessionCount: 3},
		{Driver: "Odbc", Version: "2.25.0.0", User: "alice", SessionCount: 1},
	}

	report, err := New(nil).Analyze(context.Background(), usage, sampleSupport())
	if err != nil {
		t.Fatalf("Analyze() error: %v", err)
	}

	if got := report.KPIs().DriversProcessed; got != 1 {
		t.Fatalf("DriversProcessed = %d, want 1", got)
	}
	s := findSummary(t, report, "ODBC", "2.25.0.0")
	if s.UniqueUsers != 2 || s.TotalSessions != 6 {
		t.Errorf("summary users/sessions = %d/%d, want 2/6", s.UniqueUsers, s.TotalSessions)
	}
	if s.Verdict.Status != compliance.NearEndOfSupport {
		t.Errorf("Verdict = %s, want Near End of Support", s.Verdict.Status)
	}
	for _, d := range report.Details {
		if d.Driver != "ODBC" || d.Version != "2.25.0.0" {
			t.Errorf("detail row %s %s should use the group's spelling", d.Driver, d.Version)
		}
		if d.Verdict.Status != compliance.NearEndOfSupport {
			t.Errorf("detail row for %s has verdict %s", d.User, d.Verdict.Status)
		}
	}
}
