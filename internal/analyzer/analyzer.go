package analyzer

import (
	"go.uber.org/zap"

	"github.com/blackwell-systems/drivercheck/internal/compliance"
)

// ProgressFunc is called after each distinct driver version is classified.
type ProgressFunc func(done, total int, key Key, verdict compliance.Verdict)

// Analyzer joins usage with support metadata, classifies every distinct
// driver version, and aggregates the results for reporting.
type Analyzer struct {
	classifier compliance.Classifier
	aliases    map[string]string
	logger     *zap.Logger
	progress   ProgressFunc
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithAliases maps driver names as they appear in session data to the names
// used by the support table (e.g. "Go" -> "GO"). Keys match case-insensitively.
func WithAliases(aliases map[string]string) Option {
	return func(a *Analyzer) {
		for k, v := range aliases {
			a.aliases[normalize(k)] = v
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(a *Analyzer) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithProgress registers a per-classification callback.
func WithProgress(fn ProgressFunc) Option {
	return func(a *Analyzer) { a.progress = fn }
}

// New creates an Analyzer. A nil classifier means the deterministic rules.
func New(c compliance.Classifier, opts ...Option) *Analyzer {
	if c == nil {
		c = compliance.RuleClassifier{}
	}
	a := &Analyzer{
		classifier: c,
		aliases:    make(map[string]string),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ClassifierName reports which classifier the analyzer consults.
func (a *Analyzer) ClassifierName() string {
	return a.classifier.Name()
}
