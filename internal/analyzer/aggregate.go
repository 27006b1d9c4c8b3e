package analyzer

import (
	"sort"
	"strings"
	"time"

	"github.com/blackwell-systems/drivercheck/internal/compliance"
	"github.com/blackwell-systems/drivercheck/internal/version"
)

// Group accumulates usage for one driver version.
type Group struct {
	Key
	TotalSessions int
	LastAccessed  time.Time
	users         map[string]struct{}
}

// UniqueUsers returns the number of distinct users seen in the group.
func (g *Group) UniqueUsers() int { return len(g.users) }

// Users returns the distinct users in sorted order.
func (g *Group) Users() []string {
	out := make([]string, 0, len(g.users))
	for u := range g.users {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}

// Aggregate groups usage records by (driver, version). Adding records in any
// order, or merging partial aggregates built from chunks of the input, gives
// the same result.
type Aggregate struct {
	groups map[Key]*Group
}

// NewAggregate returns an empty Aggregate.
func NewAggregate() *Aggregate {
	return &Aggregate{groups: make(map[Key]*Group)}
}

// Add folds one usage record into its group.
func (a *Aggregate) Add(r compliance.UsageRecord) {
	g := a.group(KeyOf(r))
	g.TotalSessions += r.SessionCount
	if r.LastAccessed.After(g.LastAccessed) {
		g.LastAccessed = r.LastAccessed
	}
	if r.User != "" {
		g.users[r.User] = struct{}{}
	}
}

// Merge folds every group of o into a. o is left unchanged.
func (a *Aggregate) Merge(o *Aggregate) {
	for _, og := range o.groups {
		g := a.group(og.Key)
		g.TotalSessions += og.TotalSessions
		if og.LastAccessed.After(g.LastAccessed) {
			g.LastAccessed = og.LastAccessed
		}
		for u := range og.users {
			g.users[u] = struct{}{}
		}
	}
}

// group returns the group k belongs to. Keys that differ only in driver
// case or in trailing zero version components share a group. The spelling
// the group shows is picked by preferDriver and preferVersion, which do not
// depend on the order keys arrive in.
func (a *Aggregate) group(k Key) *Group {
	id := identity(k)
	g, ok := a.groups[id]
	if !ok {
		g = &Group{Key: k, users: make(map[string]struct{})}
		a.groups[id] = g
		return g
	}
	g.Key = Key{Driver: preferDriver(g.Driver, k.Driver), Version: preferVersion(g.Version, k.Version)}
	return g
}

// Lookup returns the group a key belongs to, or nil.
func (a *Aggregate) Lookup(k Key) *Group {
	return a.groups[identity(k)]
}

// Len returns the number of groups.
func (a *Aggregate) Len() int { return len(a.groups) }

// Groups returns the groups ordered by driver, then version.
func (a *Aggregate) Groups() []*Group {
	out := make([]*Group, 0, len(a.groups))
	for _, g := range a.groups {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool {
		return lessKey(out[i].Key, out[j].Key)
	})
	return out
}

// KeyOf returns the grouping key of a usage record.
func KeyOf(r compliance.UsageRecord) Key {
	return Key{Driver: strings.TrimSpace(r.Driver), Version: strings.TrimSpace(r.Version)}
}

// identity maps a key to its grouping identity: lower-case driver and, for
// parseable versions, the version without trailing zero components.
func identity(k Key) Key {
	return Key{Driver: normalize(k.Driver), Version: canonicalVersion(k.Version)}
}

func canonicalVersion(s string) string {
	v, err := version.Parse(s)
	if err != nil {
		return s
	}
	for len(v) > 1 && v[len(v)-1] == 0 {
		v = v[:len(v)-1]
	}
	return v.String()
}

func preferDriver(a, b string) string {
	if b < a {
		return b
	}
	return a
}

// preferVersion keeps the spelling with more components ("3.10.0" over
// "3.10"), then the smaller string.
func preferVersion(a, b string) string {
	na, nb := strings.Count(a, "."), strings.Count(b, ".")
	switch {
	case nb > na:
		return b
	case nb < na:
		return a
	case b < a:
		return b
	}
	return a
}

func lessKey(a, b Key) bool {
	if a.Driver != b.Driver {
		return a.Driver < b.Driver
	}
	return compareVersionStrings(a.Version, b.Version) < 0
}
