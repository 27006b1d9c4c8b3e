// Package output provides terminal output utilities for drivercheck.
//
// This package includes:
//   - Table rendering for the per-version summary, per-user detail, stored runs and single-version explanations
//   - The KPI line and run header shown above a report
//   - CSV export of summary and detail rows
//   - A progress bar for classification and a spinner for remote queries
//
// Tables use ASCII alignment with ANSI colour on the status column only,
// and only when stdout is a terminal and NO_COLOR is unset.
package output

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/blackwell-systems/drivercheck/internal/analyzer"
	"github.com/blackwell-systems/drivercheck/internal/compliance"
	"github.com/blackwell-systems/drivercheck/internal/store"
)

// ANSI color codes for status display
const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
	colorGray   = "\033[90m"
)

const dash = "-"

// IsColorEnabled returns true if ANSI color codes should be emitted.
// It checks that os.Stdout is a TTY and that the NO_COLOR env var is not set.
func IsColorEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd())
}

// colorize wraps text in the given ANSI color code if color is enabled,
// otherwise returns the plain text.
func colorize(color, text string) string {
	if IsColorEnabled() {
		return color + text + colorReset
	}
	return text
}

// StatusLabel returns the status with its indicator, e.g. "✓ Supported".
func StatusLabel(s compliance.Status) string {
	switch s {
	case compliance.Supported:
		return "✓ " + s.String()
	case compliance.NearEndOfSupport:
		return "~ " + s.String()
	default:
		return "✗ " + s.String()
	}
}

// statusColor returns the ANSI color code for a status.
func statusColor(s compliance.Status) string {
	switch s {
	case compliance.Supported:
		return colorGreen
	case compliance.NearEndOfSupport:
		return colorYellow
	case compliance.NotSupported:
		return colorRed
	default:
		return colorGray
	}
}

// RenderRunHeader renders the account line shown above a report.
// Format: "Account: ACME (AWS_US_WEST_2) · last 30 days · classifier: rule · October 19, 2026"
func RenderRunHeader(run *store.Run, classifier string) string {
	account, region := orUnknown(run.Account), orUnknown(run.Region)
	return fmt.Sprintf("Account: %s (%s) · last %d days · classifier: %s · %s",
		account, region, run.LookbackDays, classifier, run.CreatedAt.Local().Format("January 2, 2006"))
}

// RenderKPIs renders the one-line headline counts.
// Format: "Drivers: 12 · ✓ Supported: 7 · ~ Near End of Support: 2 · ✗ Not Supported: 3 · Users on unsupported drivers: 5"
func RenderKPIs(k analyzer.KPIs) string {
	parts := []string{
		fmt.Sprintf("Drivers: %d", k.DriversProcessed),
		colorize(colorGreen, StatusLabel(compliance.Supported)) + fmt.Sprintf(": %d", k.Supported),
		colorize(colorYellow, StatusLabel(compliance.NearEndOfSupport)) + fmt.Sprintf(": %d", k.NearEndOfSupport),
		colorize(colorRed, StatusLabel(compliance.NotSupported)) + fmt.Sprintf(": %d", k.NotSupported),
		fmt.Sprintf("Users on unsupported drivers: %d", k.UsersOnUnsupported),
	}
	return strings.Join(parts, " · ")
}

// RenderSummaryTable renders one row per driver version.
// Note: Does not sort - expects rows to be pre-sorted by caller.
func RenderSummaryTable(rows []*analyzer.Summary) string {
	if len(rows) == 0 {
		return "No driver usage matches.\n"
	}

	var sb strings.Builder

	// Header
	sb.WriteString(fmt.Sprintf("%-18s %-12s %6s %9s %-12s %-10s %-10s %-12s %s\n",
		"Driver", "Version", "Users", "Sessions", "Last Access", "Min", "EOS", "Recommended", "Status"))
	sb.WriteString(strings.Repeat("─", 112))
	sb.WriteString("\n")

	// Rows
	for _, r := range rows {
		minV, eos := supportColumns(r.Support)
		sb.WriteString(fmt.Sprintf("%-18s %-12s %6d %9d %-12s %-10s %-10s %-12s %s\n",
			truncate(r.Driver, 18),
			truncate(orDash(r.Version), 12),
			r.UniqueUsers,
			r.TotalSessions,
			formatDate(r.LastAccessed),
			truncate(minV, 10),
			truncate(eos, 10),
			truncate(orDash(r.Verdict.Recommended), 12),
			colorize(statusColor(r.Verdict.Status), StatusLabel(r.Verdict.Status))))
	}

	return sb.String()
}

// RenderDetailTable renders one row per user and driver version.
func RenderDetailTable(rows []*analyzer.Detail) string {
	if len(rows) == 0 {
		return "No user sessions match.\n"
	}

	var sb strings.Builder

	// Header
	sb.WriteString(fmt.Sprintf("%-20s %-18s %-12s %9s %-12s %-12s %s\n",
		"User", "Driver", "Version", "Sessions", "Last Access", "Recommended", "Status"))
	sb.WriteString(strings.Repeat("─", 104))
	sb.WriteString("\n")

	// Rows
	for _, d := range rows {
		sb.WriteString(fmt.Sprintf("%-20s %-18s %-12s %9d %-12s %-12s %s\n",
			truncate(orDash(d.User), 20),
			truncate(d.Driver, 18),
			truncate(orDash(d.Version), 12),
			d.SessionCount,
			formatDate(d.LastAccessed),
			truncate(orDash(d.Verdict.Recommended), 12),
			colorize(statusColor(d.Verdict.Status), StatusLabel(d.Verdict.Status))))
	}

	return sb.String()
}

// RenderRunsTable renders stored runs, newest first as returned by the store.
func RenderRunsTable(runs []*store.Run) string {
	if len(runs) == 0 {
		return "No stored runs.\n"
	}

	var sb strings.Builder

	// Header
	sb.WriteString(fmt.Sprintf("%-5s %-17s %-20s %-10s %8s %8s %s\n",
		"ID", "Created", "Account", "Source", "Lookback", "Sessions", "Drivers"))
	sb.WriteString(strings.Repeat("─", 84))
	sb.WriteString("\n")

	// Rows
	for _, r := range runs {
		sb.WriteString(fmt.Sprintf("%-5d %-17s %-20s %-10s %7dd %8d %d\n",
			r.ID,
			formatRelativeTime(r.CreatedAt),
			truncate(orUnknown(r.Account), 20),
			r.Source,
			r.LookbackDays,
			r.UsageCount,
			r.SupportCount))
	}

	return sb.String()
}

// RenderExplanation renders how a single driver version was classified.
func RenderExplanation(e *analyzer.Explanation) string {
	var sb strings.Builder

	driver := e.Driver
	if e.ResolvedDriver != "" && !strings.EqualFold(e.ResolvedDriver, e.Driver) {
		driver = fmt.Sprintf("%s (alias of %s)", e.Driver, e.ResolvedDriver)
	}
	sb.WriteString(fmt.Sprintf("Driver:   %s\n", driver))
	sb.WriteString(fmt.Sprintf("Version:  %s\n", orDash(e.Version)))
	sb.WriteString(fmt.Sprintf("Status:   %s\n", colorize(statusColor(e.Verdict.Status), StatusLabel(e.Verdict.Status))))

	sb.WriteString("\nSupport metadata:\n")
	if e.Support == nil {
		sb.WriteString("  none (unknown driver)\n")
	} else {
		sb.WriteString(fmt.Sprintf("  Minimum supported:  %s\n", orDash(e.Support.MinSupported)))
		sb.WriteString(fmt.Sprintf("  End of support:     %s\n", orDash(e.Support.EndOfSupport)))
		sb.WriteString(fmt.Sprintf("  Recommended:        %s\n", orDash(e.Support.Recommended)))
		if e.NearWindow != "" {
			sb.WriteString(fmt.Sprintf("  Near-EOS window:    %s\n", e.NearWindow))
		}
	}

	sb.WriteString("\nRules:    " + StatusLabel(e.RuleVerdict.Status))
	if e.RuleVerdict.Reason != "" {
		sb.WriteString(" (" + e.RuleVerdict.Reason + ")")
	}
	sb.WriteString("\n")

	if e.Verdict.Source != "" && e.Verdict.Source != compliance.RuleSource {
		sb.WriteString(fmt.Sprintf("Model:    %s (%s)\n", StatusLabel(e.Verdict.Status), e.Verdict.Source))
	}
	if e.Verdict.Reason != "" && e.Verdict.Reason != e.RuleVerdict.Reason {
		sb.WriteString("Note:     " + e.Verdict.Reason + "\n")
	}
	if e.Verdict.Recommended != "" {
		target := e.ResolvedDriver
		if target == "" {
			target = e.Driver
		}
		sb.WriteString(fmt.Sprintf("\nUpgrade to %s %s.\n", target, e.Verdict.Recommended))
	}

	return sb.String()
}

func supportColumns(info *compliance.SupportInfo) (minV, eos string) {
	if info == nil {
		return dash, dash
	}
	return orDash(info.MinSupported), orDash(info.EndOfSupport)
}

func orDash(s string) string {
	if s == "" {
		return dash
	}
	return s
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}

// formatDate renders a last-access date, or a dash when unknown.
func formatDate(t time.Time) string {
	if t.IsZero() {
		return dash
	}
	return t.UTC().Format("2006-01-02")
}

// formatRelativeTime converts a timestamp to relative time (e.g., "2 days ago").
func formatRelativeTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}

	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return plural(int(diff.Minutes()), "minute")
	case diff < 24*time.Hour:
		return plural(int(diff.Hours()), "hour")
	case diff < 7*24*time.Hour:
		return plural(int(diff.Hours()/24), "day")
	case diff < 30*24*time.Hour:
		return plural(int(diff.Hours()/24/7), "week")
	case diff < 365*24*time.Hour:
		return plural(int(diff.Hours()/24/30), "month")
	default:
		return plural(int(diff.Hours()/24/365), "year")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit + " ago"
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}

// truncate truncates a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
