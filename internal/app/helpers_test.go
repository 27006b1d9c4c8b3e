package app

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/blackwell-systems/drivercheck/internal/analyzer"
	"github.com/blackwell-systems/drivercheck/internal/config"
)

const testUsageCSV = `driver,version,user,session_count,last_accessed
JDBC,3.13.0,alice,5,2026-10-01
JDBC,3.13.0,bob,2,2026-10-02
ODBC,2.25.0,carol,3,2026-10-03
PythonConnector,2.7.1,dave,40,2026-10-08
Go,1.7.0,erin,1,2026-10-05
`

const testSupportJSON = `[
  {"clientAppId": "JDBC", "minimumSupportedVersion": "3.13.0", "minimumNearingEndOfSupportVersion": null, "recommendedVersion": "3.16.1"},
  {"clientAppId": "ODBC", "minimumSupportedVersion": "2.24.0", "minimumNearingEndOfSupportVersion": "2.26.0", "recommendedVersion": "2.30.0"},
  {"clientAppId": "PythonConnector", "minimumSupportedVersion": "3.0.0", "minimumNearingEndOfSupportVersion": "3.1.0", "recommendedVersion": "3.12.1"},
  {"clientAppId": "GO", "minimumSupportedVersion": "1.6.0", "minimumNearingEndOfSupportVersion": "", "recommendedVersion": "1.11.0"}
]`

// setupTest points the package globals at a temporary database and config
// directory and restores them afterwards.
func setupTest(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("NO_COLOR", "1")

	oldDBPath, oldConfigPath, oldCfg, oldLogger := dbPath, configPath, cfg, logger
	dbPath = filepath.Join(dir, "drivercheck.db")
	configPath = ""
	cfg = config.DefaultConfig()
	logger = zap.NewNop()
	resetFlags()

	t.Cleanup(func() {
		dbPath, configPath, cfg, logger = oldDBPath, oldConfigPath, oldCfg, oldLogger
		resetFlags()
	})
	return dir
}

func resetFlags() {
	refreshLookbackDays, refreshNoSave = 0, false
	refreshOpts = reportOptions{sortBy: analyzer.SortSessions}
	reportRunID = 0
	reportOpts = reportOptions{sortBy: analyzer.SortSessions}
	usersRunID, usersClassifier, usersDrivers, usersStatuses = 0, "", nil, nil
	usersVersion, usersUser, usersCSV = "", "", ""
	explainRunID, explainClassifier = 0, ""
	runsPrune, runsDelete = -1, 0
	importUsage, importSupport, importAccount, importRegion, importLookbackDays = "", "", "", "", 0
	quickstartAccount, quickstartUser, quickstartRole, quickstartWarehouse = "", "", "", ""
	quickstartAuthenticator, quickstartPrivateKeyPath, quickstartClassifier = "", "", ""
	quickstartSkipRefresh = false
}

// writeInputs writes the sample usage CSV and support JSON into dir.
func writeInputs(t *testing.T, dir string) (usagePath, supportPath string) {
	t.Helper()
	usagePath = filepath.Join(dir, "sessions.csv")
	supportPath = filepath.Join(dir, "support.json")
	if err := os.WriteFile(usagePath, []byte(testUsageCSV), 0644); err != nil {
		t.Fatalf("failed to write usage file: %v", err)
	}
	if err := os.WriteFile(supportPath, []byte(testSupportJSON), 0644); err != nil {
		t.Fatalf("failed to write support file: %v", err)
	}
	return usagePath, supportPath
}

// importSample stores the sample inputs as a run.
func importSample(t *testing.T, dir string) {
	t.Helper()
	importUsage, importSupport = writeInputs(t, dir)
	importAccount, importRegion = "ACME", "AWS_US_WEST_2"
	captureStdout(t, func() {
		if err := runImport(importCmd, nil); err != nil {
			t.Fatalf("runImport() error: %v", err)
		}
	})
	importUsage, importSupport, importAccount, importRegion = "", "", "", ""
}

// captureStdout replaces os.Stdout with a pipe during f(), then restores it
// and returns all bytes written to stdout.
func captureStdout(t *testing.T, f func()) string {
	t.Helper()
	origStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	os.Stdout = w
	defer func() { os.Stdout = origStdout }()

	done := make(chan string)
	go func() {
		var buf bytes.Buffer
		buf.ReadFrom(r)
		done <- buf.String()
	}()

	f()

	w.Close()
	return <-done
}
