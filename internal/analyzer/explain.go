package analyzer

import (
	"context"

	"github.com/blackwell-systems/drivercheck/internal/compliance"
	"github.com/blackwell-systems/drivercheck/internal/version"
)

// Explanation describes how a single driver version was classified.
type Explanation struct {
	Driver         string
	ResolvedDriver string // support-table name after alias resolution
	Version        string
	Support        *compliance.SupportInfo
	Verdict        compliance.Verdict // from the configured classifier
	RuleVerdict    compliance.Verdict // from the deterministic rules
	NearWindow     string             // "[2.25, 2.26.0)" or "" when empty
}

// Explain classifies one driver version against the given support table
// and records the rule trace alongside the configured classifier's answer.
func (a *Analyzer) Explain(ctx context.Context, driver, ver string, support []compliance.SupportInfo) *Explanation {
	idx, _ := a.Index(support)
	info := idx.Lookup(driver)

	e := &Explanation{
		Driver:         driver,
		ResolvedDriver: idx.Resolve(driver),
		Version:        ver,
		Support:        info,
		Verdict:        a.classifier.Classify(ctx, driver, ver, info),
		RuleVerdict:    compliance.Classify(driver, ver, info),
	}

	if info != nil && info.HasEndOfSupport() {
		if eos, err := version.Parse(info.EndOfSupport); err == nil {
			if start, ok := version.NearWindowStart(eos); ok {
				e.NearWindow = "[" + start.String() + ", " + info.EndOfSupport + ")"
			}
		}
	}
	if info != nil {
		e.ResolvedDriver = info.Driver
	}
	return e
}
