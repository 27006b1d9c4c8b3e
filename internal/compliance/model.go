package compliance

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/blackwell-systems/drivercheck/internal/version"
)

// Completer sends a prompt to a language model and returns its raw answer.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Name() string
}

// ModelClassifier asks a language model for the status and falls back to
// the deterministic rules when the model fails or answers with something
// other than one of the three statuses. When the model does answer, its
// status wins for display.
type ModelClassifier struct {
	completer Completer
	logger    *zap.Logger
}

// NewModelClassifier wraps a Completer. A nil logger discards log output.
func NewModelClassifier(c Completer, logger *zap.Logger) *ModelClassifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ModelClassifier{completer: c, logger: logger}
}

// Name implements Classifier.
func (m *ModelClassifier) Name() string { return m.completer.Name() }

// Classify implements Classifier.
func (m *ModelClassifier) Classify(ctx context.Context, driver, ver string, info *SupportInfo) Verdict {
	rule := Classify(driver, ver, info)

	// Unknown drivers and dirty version data are settled by the rules; the
	// model has nothing reliable to compare.
	if info == nil || !wellFormed(ver, info) {
		return rule
	}

	answer, err := m.completer.Complete(ctx, BuildPrompt(driver, ver, info))
	if err != nil {
		m.logger.Warn("model classification failed, using rules",
			zap.String("classifier", m.completer.Name()),
			zap.String("driver", driver),
			zap.String("version", ver),
			zap.Error(err))
		rule.Reason = fmt.Sprintf("%s (%s unavailable: %v)", rule.Reason, m.completer.Name(), err)
		return rule
	}

	status, err := ParseModelAnswer(answer)
	if err != nil {
		m.logger.Warn("unparseable model answer, using rules",
			zap.String("classifier", m.completer.Name()),
			zap.String("driver", driver),
			zap.String("version", ver),
			zap.String("answer", answer))
		rule.Reason = fmt.Sprintf("%s (%s answered %q)", rule.Reason, m.completer.Name(), truncate(answer, 40))
		return rule
	}

	verdict := Verdict{
		Status: status,
		Source: m.completer.Name(),
	}
	if status != Supported {
		verdict.Recommended = info.Recommended
	}
	if status == rule.Status {
		verdict.Reason = rule.Reason
	} else {
		verdict.Reason = fmt.Sprintf("%s says %s; rules say %s: %s",
			m.completer.Name(), status, rule.Status, rule.Reason)
		m.logger.Debug("model disagrees with rules",
			zap.String("driver", driver),
			zap.String("version", ver),
			zap.Stringer("model", status),
			zap.Stringer("rule", rule.Status))
	}
	return verdict
}

func wellFormed(ver string, info *SupportInfo) bool {
	if _, err := version.Parse(ver); err != nil {
		return false
	}
	if _, err := version.Parse(info.MinSupported); err != nil {
		return false
	}
	if info.HasEndOfSupport() {
		if _, err := version.Parse(info.EndOfSupport); err != nil {
			return false
		}
	}
	return true
}

// BuildPrompt renders the single-answer classification prompt.
func BuildPrompt(driver, ver string, info *SupportInfo) string {
	eos := info.EndOfSupport
	if !info.HasEndOfSupport() {
		eos = "none announced"
	}

	var sb strings.Builder
	sb.WriteString("You are a helpful AI assistant that will only respond with a single answer. ")
	sb.WriteString("Determine the support status of a Snowflake client driver version. ")
	sb.WriteString("Versions are dotted numbers compared component by component numerically (3.9 < 3.10); ")
	sb.WriteString("missing components count as zero.\n")
	fmt.Fprintf(&sb, "- DRIVER: %s\n", driver)
	fmt.Fprintf(&sb, "- DRIVER_VERSION: %s\n", ver)
	fmt.Fprintf(&sb, "- MINIMUM_VERSION: %s\n", info.MinSupported)
	fmt.Fprintf(&sb, "- END_OF_SUPPORT: %s\n", eos)
	fmt.Fprintf(&sb, "- RECOMMENDED_VERSION: %s\n", info.Recommended)
	sb.WriteString("Rules, applied in order:\n")
	sb.WriteString("1. If END_OF_SUPPORT is set and DRIVER_VERSION >= END_OF_SUPPORT, respond 'Not Supported'.\n")
	sb.WriteString("2. If DRIVER_VERSION < MINIMUM_VERSION, respond 'Not Supported'.\n")
	sb.WriteString("3. If END_OF_SUPPORT is set and DRIVER_VERSION is within one minor version below it, respond 'Near End of Support'.\n")
	sb.WriteString("4. Otherwise respond 'Supported'.\n")
	sb.WriteString("Output exactly one of: Supported, Not Supported, Near End of Support. ")
	sb.WriteString("Do not include any explanation or extra text.")
	return sb.String()
}

// ParseModelAnswer maps a model's free-text answer to a Status. Quotes,
// trailing punctuation and markdown emphasis are ignored; only the first
// line is considered.
func ParseModelAnswer(answer string) (Status, error) {
	line := strings.TrimSpace(answer)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	line = strings.Trim(line, " \t\"'`*.!:")
	line = strings.Join(strings.Fields(line), " ")
	if line == "" {
		return 0, fmt.Errorf("empty model answer")
	}
	return ParseStatus(line)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
