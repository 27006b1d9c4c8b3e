package analyzer

import (
	"strings"

	"github.com/blackwell-systems/drivercheck/internal/compliance"
)

// SupportIndex looks up support metadata by driver name, resolving aliases
// and ignoring case.
type SupportIndex struct {
	byDriver map[string]*compliance.SupportInfo
	aliases  map[string]string
}

// Index builds a SupportIndex. When a driver appears more than once the
// first entry wins; Duplicates reports the names that were dropped.
func (a *Analyzer) Index(support []compliance.SupportInfo) (*SupportIndex, []string) {
	idx := &SupportIndex{
		byDriver: make(map[string]*compliance.SupportInfo, len(support)),
		aliases:  a.aliases,
	}
	var dups []string
	for i := range support {
		info := support[i]
		key := normalize(info.Driver)
		if key == "" {
			continue
		}
		if _, exists := idx.byDriver[key]; exists {
			dups = append(dups, info.Driver)
			continue
		}
		idx.byDriver[key] = &info
	}
	return idx, dups
}

// Lookup returns the support entry for a driver, or nil when the driver is
// unknown or has no usable metadata.
func (s *SupportIndex) Lookup(driver string) *compliance.SupportInfo {
	key := normalize(driver)
	if target, ok := s.aliases[key]; ok {
		key = normalize(target)
	}
	info, ok := s.byDriver[key]
	if !ok || strings.TrimSpace(info.MinSupported) == "" {
		return nil
	}
	return info
}

// Resolve returns the support-table name a session driver maps to, after
// aliases and case folding. Unknown drivers come back unchanged.
func (s *SupportIndex) Resolve(driver string) string {
	key := normalize(driver)
	if target, ok := s.aliases[key]; ok {
		driver, key = target, normalize(target)
	}
	if info, ok := s.byDriver[key]; ok {
		return info.Driver
	}
	return driver
}

// Len returns the number of indexed drivers.
func (s *SupportIndex) Len() int { return len(s.byDriver) }

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
