package qual

import (
	"sort"
	"strings"
)

// Qualifier is an annotation marker attached to a type, named without the
// leading '@' (e.g. "NonNull").
type Qualifier string

func (q Qualifier) String() string {
	return "@" + string(q)
}

// Set represents an unordered set of qualifiers
type Set map[Qualifier]bool

// NewSet creates a new Set
func NewSet(qs ...Qualifier) Set {
	set := make(Set, len(qs))
	for _, q := range qs {
		set[q] = true
	}
	return set
}

// Parse builds a Set from annotation names, with or without a leading '@'.
func Parse(names ...string) Set {
	set := make(Set, len(names))
	for _, n := range names {
		n = strings.TrimPrefix(strings.TrimSpace(n), "@")
		if n == "" {
			continue
		}
		set[Qualifier(n)] = true
	}
	return set
}

// Union returns the union of two Sets
func (s Set) Union(other Set) Set {
	result := make(Set, len(s)+len(other))
	for q := range s {
		result[q] = true
	}
	for q := range other {
		result[q] = true
	}
	return result
}

// Clone returns a copy of the set. A nil set clones to an empty one.
func (s Set) Clone() Set {
	result := make(Set, len(s))
	for q := range s {
		result[q] = true
	}
	return result
}

// Contains checks if a qualifier is in the set
func (s Set) Contains(q Qualifier) bool {
	return s[q]
}

// Add adds a qualifier to the set
func (s Set) Add(q Qualifier) {
	s[q] = true
}

// Remove removes a qualifier from the set
func (s Set) Remove(q Qualifier) {
	delete(s, q)
}

func (s Set) Len() int {
	return len(s)
}

func (s Set) IsEmpty() bool {
	return len(s) == 0
}

// Equal reports whether both sets hold the same qualifiers.
func (s Set) Equal(other Set) bool {
	if len(s) != len(other) {
		return false
	}
	for q := range s {
		if !other[q] {
			return false
		}
	}
	return true
}

// Sorted returns the qualifiers in name order.
func (s Set) Sorted() []Qualifier {
	result := make([]Qualifier, 0, len(s))
	for q := range s {
		result = append(result, q)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i] < result[j]
	})
	return result
}

// Names returns the sorted qualifier names without '@'.
func (s Set) Names() []string {
	sorted := s.Sorted()
	names := make([]string, len(sorted))
	for i, q := range sorted {
		names[i] = string(q)
	}
	return names
}

// String renders the set as space-separated annotations, e.g. "@A @B".
func (s Set) String() string {
	sorted := s.Sorted()
	parts := make([]string, len(sorted))
	for i, q := range sorted {
		parts[i] = q.String()
	}
	return strings.Join(parts, " ")
}
