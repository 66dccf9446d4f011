package feed

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pders01/fragments/internal/config"
)

// Filter is the set of selected tag names, lower-cased and sorted.
// The zero value selects nothing.
type Filter struct {
	names []string
}

func NewFilter(names ...string) Filter {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	sort.Strings(out)
	return Filter{names: out}
}

// Names returns a copy of the selected names.
func (f Filter) Names() []string {
	return append([]string(nil), f.names...)
}

func (f Filter) Empty() bool {
	return len(f.names) == 0
}

// Key is a stable string form, used for equality and logging.
func (f Filter) Key() string {
	return strings.Join(f.names, ",")
}

func (f Filter) Equal(other Filter) bool {
	if len(f.names) != len(other.names) {
		return false
	}
	for i := range f.names {
		if f.names[i] != other.names[i] {
			return false
		}
	}
	return true
}

func (f Filter) String() string {
	if f.Empty() {
		return "(all)"
	}
	return f.Key()
}

func (f Filter) set() map[string]struct{} {
	m := make(map[string]struct{}, len(f.names))
	for _, n := range f.names {
		m[n] = struct{}{}
	}
	return m
}

// TagPolicy decides which selected tag, if any, is sent to the server. The
// API accepts a single tag per request.
type TagPolicy int

const (
	// PolicyFirst forwards the alphabetically first selected tag.
	PolicyFirst TagPolicy = iota
	// PolicyNone never forwards a tag; filtering is left to the display.
	PolicyNone
)

func ParseTagPolicy(s string) (TagPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", config.TagPolicyFirst:
		return PolicyFirst, nil
	case config.TagPolicyNone:
		return PolicyNone, nil
	default:
		return PolicyFirst, fmt.Errorf("unknown tag policy %q", s)
	}
}

func (p TagPolicy) String() string {
	if p == PolicyNone {
		return config.TagPolicyNone
	}
	return config.TagPolicyFirst
}

// ServerTag returns the tag to send for f, or nil.
func (p TagPolicy) ServerTag(f Filter) *string {
	if p == PolicyNone || f.Empty() {
		return nil
	}
	tag := f.names[0]
	return &tag
}
