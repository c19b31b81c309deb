// Small string-set helpers: per-file symbol-usage sets (itemgraph.go)
// and the symbol table's discovery-order name set (symbol.go).
//
// SPDX-License-Identifier: BSD-2-Clause

package main

import (
	"fmt"
	"sort"
	"strings"

	linkedhashset "github.com/emirpasic/gods/sets/linkedhashset"
)

type stringSet struct {
	store map[string]bool
}

func newStringSet(elements ...string) stringSet {
	ns := stringSet{store: make(map[string]bool)}
	for _, el := range elements {
		ns.store[el] = true
	}
	return ns
}

func (s stringSet) Contains(item string) bool {
	return s.store[item]
}

func (s *stringSet) Remove(item string) {
	delete(s.store, item)
}

func (s *stringSet) Add(item string) {
	s.store[item] = true
}

func (s stringSet) Subtract(other stringSet) stringSet {
	diff := newStringSet()
	for item := range s.store {
		if !other.store[item] {
			diff.store[item] = true
		}
	}
	return diff
}

func (s stringSet) Union(other stringSet) stringSet {
	union := newStringSet()
	for item := range s.store {
		union.store[item] = true
	}
	for item := range other.store {
		union.store[item] = true
	}
	return union
}

func (s stringSet) Empty() bool {
	return len(s.store) == 0
}

func (s stringSet) Len() int {
	return len(s.store)
}

func (s stringSet) toOrderedStringSet() orderedStringSet {
	ordered := make([]string, 0, len(s.store))
	for el := range s.store {
		ordered = append(ordered, el)
	}
	sort.Strings(ordered)
	return ordered
}

func (s stringSet) String() string {
	if len(s.store) == 0 {
		return "[]"
	}
	return s.toOrderedStringSet().String()
}

// orderedStringSet optimizes for small memory footprint at the
// expense of speed, same trade the teacher makes in surgeon/set.go.
type orderedStringSet []string

func newOrderedStringSet(elements ...string) orderedStringSet {
	set := make([]string, 0, len(elements))
	for _, el := range elements {
		found := false
		for _, already := range set {
			if already == el {
				found = true
				break
			}
		}
		if !found {
			set = append(set, el)
		}
	}
	return set
}

func (s orderedStringSet) Contains(item string) bool {
	for _, el := range s {
		if item == el {
			return true
		}
	}
	return false
}

func (s *orderedStringSet) Add(item string) {
	for _, el := range *s {
		if el == item {
			return
		}
	}
	*s = append(*s, item)
}

func (s orderedStringSet) String() string {
	if len(s) == 0 {
		return "[]"
	}
	var rep strings.Builder
	rep.WriteByte('[')
	lastIdx := len(s) - 1
	for idx, el := range s {
		fmt.Fprintf(&rep, "%q", el)
		if idx != lastIdx {
			rep.WriteString(", ")
		}
	}
	rep.WriteByte(']')
	return rep.String()
}

func (s orderedStringSet) Empty() bool {
	return len(s) == 0
}

// symbolSet is a deterministic, insertion-ordered set of symbol names.
// Iteration order matters here: the symbol strategy pass (§4.4) needs
// stable output across runs for the same input, which a Go map
// iteration cannot give.
type symbolSet struct {
	inner *linkedhashset.Set
}

func newSymbolSet() *symbolSet {
	return &symbolSet{inner: linkedhashset.New()}
}

func (s *symbolSet) Add(name string) {
	s.inner.Add(name)
}

func (s *symbolSet) Contains(name string) bool {
	return s.inner.Contains(name)
}

func (s *symbolSet) Names() []string {
	values := s.inner.Values()
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = v.(string)
	}
	return out
}

func (s *symbolSet) Len() int {
	return s.inner.Size()
}
