package compliance

import (
	"context"
	"fmt"

	"github.com/blackwell-systems/drivercheck/internal/version"
)

// RuleSource names the deterministic classifier in Verdict.Source.
const RuleSource = "rule"

// Classify applies the support rules to one driver version:
//
//   - no support info: Not Supported (unknown driver)
//   - malformed version on either side: Not Supported with a diagnostic
//   - version >= end of support: Not Supported
//   - version < minimum supported: Not Supported
//   - version within one minor step below end of support: Near End of Support
//   - otherwise Supported
//
// It never panics and has no side effects.
func Classify(driver, ver string, info *SupportInfo) Verdict {
	if info == nil {
		return Verdict{
			Status: NotSupported,
			Reason: fmt.Sprintf("unknown driver %q: no support metadata", driver),
			Source: RuleSource,
		}
	}

	notSupported := func(reason string) Verdict {
		return Verdict{
			Status:      NotSupported,
			Recommended: info.Recommended,
			Reason:      reason,
			Source:      RuleSource,
		}
	}

	v, err := version.Parse(ver)
	if err != nil {
		return notSupported(fmt.Sprintf("driver version: %v", err))
	}
	minV, err := version.Parse(info.MinSupported)
	if err != nil {
		return notSupported(fmt.Sprintf("minimum supported version: %v", err))
	}

	var eos version.Version
	if info.HasEndOfSupport() {
		eos, err = version.Parse(info.EndOfSupport)
		if err != nil {
			return notSupported(fmt.Sprintf("end-of-support version: %v", err))
		}
		if version.Compare(v, eos) >= 0 {
			return notSupported(fmt.Sprintf("%s is at or past end of support (%s)", v, info.EndOfSupport))
		}
	}

	if version.Compare(v, minV) < 0 {
		return notSupported(fmt.Sprintf("%s is below minimum supported version %s", v, info.MinSupported))
	}

	if eos != nil && version.InNearWindow(v, eos) {
		return Verdict{
			Status:      NearEndOfSupport,
			Recommended: info.Recommended,
			Reason:      fmt.Sprintf("%s is within one minor version of end of support (%s)", v, info.EndOfSupport),
			Source:      RuleSource,
		}
	}

	return Verdict{
		Status: Supported,
		Reason: fmt.Sprintf("%s is at or above minimum supported version %s", v, info.MinSupported),
		Source: RuleSource,
	}
}

// Classifier produces a verdict for a driver version.
type Classifier interface {
	Classify(ctx context.Context, driver, version string, info *SupportInfo) Verdict
	Name() string
}

// RuleClassifier is the deterministic Classifier. It is the ground truth
// every other classifier falls back to.
type RuleClassifier struct{}

// Classify implements Classifier.
func (RuleClassifier) Classify(_ context.Context, driver, ver string, info *SupportInfo) Verdict {
	return Classify(driver, ver, info)
}

// Name implements Classifier.
func (RuleClassifier) Name() string { return RuleSource }
