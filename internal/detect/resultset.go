package detect

import (
	"strings"

	"github.com/aisentools/msfix/internal/scene"
)

// ResultSet is an insertion-ordered, deduplicated collection of findings.
// It is not safe for concurrent use; a scan owns it until it returns.
type ResultSet struct {
	items []Finding
	seen  map[Finding]struct{}
}

func NewResultSet() *ResultSet {
	return &ResultSet{seen: make(map[Finding]struct{})}
}

// Add inserts f unless an equal finding is already present.
func (r *ResultSet) Add(f Finding) bool {
	if _, ok := r.seen[f]; ok {
		return false
	}
	r.seen[f] = struct{}{}
	r.items = append(r.items, f)
	return true
}

// AddAll adds every finding and returns how many were new.
func (r *ResultSet) AddAll(fs []Finding) int {
	added := 0
	for _, f := range fs {
		if r.Add(f) {
			added++
		}
	}
	return added
}

func (r *ResultSet) Contains(f Finding) bool {
	_, ok := r.seen[f]
	return ok
}

func (r *ResultSet) Len() int {
	return len(r.items)
}

// Findings returns a copy of the findings in insertion order.
func (r *ResultSet) Findings() []Finding {
	out := make([]Finding, len(r.items))
	copy(out, r.items)
	return out
}

func (r *ResultSet) Clear() {
	r.items = nil
	clear(r.seen)
}

func (r *ResultSet) CountBy(kind scene.Kind) int {
	n := 0
	for _, f := range r.items {
		if f.Kind == kind {
			n++
		}
	}
	return n
}

// SourcePaths lists the distinct source paths of one kind, first-seen order.
func (r *ResultSet) SourcePaths(kind scene.Kind) []string {
	var paths []string
	seen := make(map[string]bool)
	for _, f := range r.items {
		if f.Kind != kind || seen[f.SourcePath] {
			continue
		}
		seen[f.SourcePath] = true
		paths = append(paths, f.SourcePath)
	}
	return paths
}

// Filter returns the findings matching query, see Matches.
func (r *ResultSet) Filter(query string) []Finding {
	var out []Finding
	for _, f := range r.items {
		if Matches(f, query) {
			out = append(out, f)
		}
	}
	return out
}

// Matches does a case-insensitive substring search over the source path, the
// object path and the kind. Surrounding double quotes are ignored.
func Matches(f Finding, query string) bool {
	if query == "" {
		return true
	}
	if strings.Contains(query, `"`) {
		query = strings.Trim(query, `"`)
	}
	q := strings.ToLower(query)
	return strings.Contains(strings.ToLower(f.SourcePath), q) ||
		strings.Contains(strings.ToLower(f.ObjectPath), q) ||
		strings.Contains(strings.ToLower(f.Kind.String()), q)
}
