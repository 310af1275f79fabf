// Package theme resolves configuration templates by tag specificity.
//
// Templates are registered per class under a tag set. Records of a class are
// kept sorted by the number of tags and then lexicographically by the sorted
// tags, so lookups are binary searches and matching rules come out ordered
// from least to most specific.
package theme

import (
	"slices"
	"sort"
	"strings"
	"sync"
)

// Record pairs a sorted tag set with its template.
type Record[T any] struct {
	Tags     []string
	Template *T
}

// Registry maps a class identifier to its sorted template records.
// The zero value is not usable; create one with NewRegistry.
type Registry[K comparable, T any] struct {
	mu    sync.RWMutex
	rules map[K][]Record[T]
}

// NewRegistry creates an empty registry.
func NewRegistry[K comparable, T any]() *Registry[K, T] {
	return &Registry[K, T]{rules: make(map[K][]Record[T])}
}

// Rule returns the template registered for class under tags, creating an
// empty one at its sorted position if none exists. Tag order does not matter.
func (r *Registry[K, T]) Rule(class K, tags ...string) *T {
	key := sortedTags(tags)

	r.mu.Lock()
	defer r.mu.Unlock()

	records := r.rules[class]
	i, found := slices.BinarySearchFunc(records, key, func(rec Record[T], target []string) int {
		return compareTags(rec.Tags, target)
	})
	if found {
		return records[i].Template
	}

	tmpl := new(T)
	r.rules[class] = slices.Insert(records, i, Record[T]{Tags: key, Template: tmpl})
	return tmpl
}

// Lookup returns the template registered for class under exactly tags
// without creating one.
func (r *Registry[K, T]) Lookup(class K, tags ...string) (*T, bool) {
	key := sortedTags(tags)

	r.mu.RLock()
	defer r.mu.RUnlock()

	records := r.rules[class]
	i, found := slices.BinarySearchFunc(records, key, func(rec Record[T], target []string) int {
		return compareTags(rec.Tags, target)
	})
	if !found {
		return nil, false
	}
	return records[i].Template, true
}

// Match returns every template of class whose tag set is contained in tags,
// least specific first.
func (r *Registry[K, T]) Match(class K, tags ...string) []*T {
	query := sortedTags(tags)

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*T
	for _, rec := range r.rules[class] {
		if len(rec.Tags) > len(query) {
			break
		}
		if isSubset(rec.Tags, query) {
			out = append(out, rec.Template)
		}
	}
	return out
}

// Rules returns a copy of the records registered for class in sorted order.
func (r *Registry[K, T]) Rules(class K) []Record[T] {
	r.mu.RLock()
	defer r.mu.RUnlock()

	records := r.rules[class]
	out := make([]Record[T], len(records))
	for i, rec := range records {
		out[i] = Record[T]{Tags: slices.Clone(rec.Tags), Template: rec.Template}
	}
	return out
}

// Len returns the number of records registered for class.
func (r *Registry[K, T]) Len(class K) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rules[class])
}

// compareTags orders tag sets by cardinality, then element by element.
func compareTags(a, b []string) int {
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	for i := range a {
		if c := strings.Compare(a[i], b[i]); c != 0 {
			return c
		}
	}
	return 0
}

func sortedTags(tags []string) []string {
	out := make([]string, len(tags))
	copy(out, tags)
	sort.Strings(out)
	return out
}

// isSubset reports whether sorted multiset sub is contained in sorted set.
func isSubset(sub, set []string) bool {
	j := 0
	for _, tag := range sub {
		for j < len(set) && set[j] < tag {
			j++
		}
		if j == len(set) || set[j] != tag {
			return false
		}
		j++
	}
	return true
}
