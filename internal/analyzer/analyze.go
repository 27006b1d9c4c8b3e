package analyzer

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/blackwell-systems/drivercheck/internal/compliance"
)

// Analyze classifies every distinct driver version in usage and aggregates
// the result into summary and detail rows. Each (driver, version) pair is
// classified exactly once. The only error is context cancellation; bad rows
// are classified Not Supported instead of failing the batch.
func (a *Analyzer) Analyze(ctx context.Context, usage []compliance.UsageRecord, support []compliance.SupportInfo) (*Report, error) {
	start := time.Now()

	idx, dups := a.Index(support)
	for _, d := range dups {
		a.logger.Warn("duplicate support metadata, keeping first entry", zap.String("driver", d))
	}

	agg := NewAggregate()
	for _, r := range usage {
		agg.Add(r)
	}
	groups := agg.Groups()

	verdicts := make(map[Key]compliance.Verdict, len(groups))
	for i, g := range groups {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("classification interrupted after %d of %d: %w", i, len(groups), err)
		}
		info := idx.Lookup(g.Driver)
		v := a.classifier.Classify(ctx, g.Driver, g.Version, info)
		verdicts[g.Key] = v
		if a.progress != nil {
			a.progress(i+1, len(groups), g.Key, v)
		}
	}

	report := &Report{
		Summaries: make([]*Summary, 0, len(groups)),
		Details:   make([]*Detail, 0, len(usage)),
	}
	for _, g := range groups {
		report.Summaries = append(report.Summaries, &Summary{
			Driver:        g.Driver,
			Version:       g.Version,
			UniqueUsers:   g.UniqueUsers(),
			TotalSessions: g.TotalSessions,
			LastAccessed:  g.LastAccessed,
			Support:       idx.Lookup(g.Driver),
			Verdict:       verdicts[g.Key],
		})
	}
	for _, r := range usage {
		g := agg.Lookup(KeyOf(r))
		rec := r
		rec.Driver, rec.Version = g.Driver, g.Version
		report.Details = append(report.Details, &Detail{
			UsageRecord: rec,
			Support:     idx.Lookup(g.Driver),
			Verdict:     verdicts[g.Key],
		})
	}

	SortSummaries(report.Summaries, SortSessions)
	SortDetails(report.Details)

	a.logger.Debug("analysis complete",
		zap.Int("usage_rows", len(usage)),
		zap.Int("support_rows", idx.Len()),
		zap.Int("driver_versions", len(groups)),
		zap.String("classifier", a.classifier.Name()),
		zap.Duration("elapsed", time.Since(start)))

	return report, nil
}

// KPIs computes the headline counts for the report.
func (r *Report) KPIs() KPIs {
	k := KPIs{DriversProcessed: len(r.Summaries)}
	for _, s := range r.Summaries {
		switch s.Verdict.Status {
		case compliance.Supported:
			k.Supported++
		case compliance.NearEndOfSupport:
			k.NearEndOfSupport++
		case compliance.NotSupported:
			k.NotSupported++
		}
	}

	users := make(map[string]struct{})
	for _, d := range r.Details {
		if d.Verdict.Status == compliance.NotSupported && d.User != "" {
			users[d.User] = struct{}{}
		}
	}
	k.UsersOnUnsupported = len(users)
	return k
}

// Drivers returns the distinct driver names in the report, sorted.
func (r *Report) Drivers() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, s := range r.Summaries {
		if _, ok := seen[s.Driver]; ok {
			continue
		}
		seen[s.Driver] = struct{}{}
		out = append(out, s.Driver)
	}
	sortStrings(out)
	return out
}
