package rfid

import (
	"sort"
	"strings"
	"sync"

	"github.com/cloudflare/ahocorasick"
)

// Entry is one registered tag in a tenant snapshot
type Entry struct {
	ItemID   string `json:"itemId"`
	Tag      string `json:"tag"`
	TenantID string `json:"tenantId"`
}

// Snapshot is an immutable view of a tenant's registered tags. A scanned
// string resolves to the item whose registered tag it contains.
//
// When several registered tags are contained in the same scanned string the
// shortest tag wins; tags of equal length are ordered lexically by their
// upper-case form. Matching is case-insensitive; registered tags that only
// differ in case keep the lexically first raw tag, then the lowest item id.
type Snapshot struct {
	tenantID string
	entries  []Entry
	patterns []string

	mu      sync.Mutex // ahocorasick.Matcher.Match is not safe for concurrent use
	matcher *ahocorasick.Matcher
}

// NewSnapshot builds the automaton over entries. Entries with an empty tag
// are ignored. An empty tenantID marks a cross-tenant snapshot.
func NewSnapshot(tenantID string, entries []Entry) *Snapshot {
	sorted := make([]Entry, 0, len(entries))
	for _, e := range entries {
		e.Tag = strings.TrimSpace(e.Tag)
		if e.Tag == "" {
			continue
		}
		sorted = append(sorted, e)
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := strings.ToUpper(sorted[i].Tag), strings.ToUpper(sorted[j].Tag)
		if len(a) != len(b) {
			return len(a) < len(b)
		}
		if a != b {
			return a < b
		}
		if sorted[i].Tag != sorted[j].Tag {
			return sorted[i].Tag < sorted[j].Tag
		}
		return sorted[i].ItemID < sorted[j].ItemID
	})

	// Upper-casing may fold two registered tags together; the first in
	// order keeps the pattern.
	s := &Snapshot{tenantID: tenantID}
	seen := make(map[string]struct{}, len(sorted))
	for _, e := range sorted {
		upper := strings.ToUpper(e.Tag)
		if _, dup := seen[upper]; dup {
			continue
		}
		seen[upper] = struct{}{}
		s.entries = append(s.entries, e)
		s.patterns = append(s.patterns, upper)
	}
	if len(s.patterns) > 0 {
		s.matcher = ahocorasick.NewStringMatcher(s.patterns)
	}
	return s
}

// TenantID returns the tenant the snapshot was taken for
func (s *Snapshot) TenantID() string {
	return s.tenantID
}

// Len returns the number of distinct registered tags
func (s *Snapshot) Len() int {
	return len(s.entries)
}

// Resolve returns the item whose registered tag is contained in scanned
func (s *Snapshot) Resolve(scanned string) (Entry, bool) {
	scanned = strings.ToUpper(strings.TrimSpace(scanned))
	if scanned == "" || s.matcher == nil {
		return Entry{}, false
	}

	s.mu.Lock()
	hits := s.matcher.Match([]byte(scanned))
	s.mu.Unlock()

	if len(hits) == 0 {
		return Entry{}, false
	}
	best := hits[0]
	for _, h := range hits[1:] {
		if h < best {
			best = h
		}
	}
	return s.entries[best], true
}

// ResolveAll resolves every scanned string in one pass. Strings without a
// match are absent from the result.
func (s *Snapshot) ResolveAll(scanned []string) map[string]Entry {
	out := make(map[string]Entry, len(scanned))
	for _, tag := range scanned {
		if _, done := out[tag]; done {
			continue
		}
		if e, ok := s.Resolve(tag); ok {
			out[tag] = e
		}
	}
	return out
}
