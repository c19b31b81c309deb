// Symbol strategy (§4.4): classifies every discovered CVS symbol as
// Branch, Tag, Excluded, or (if --symbol-default=strict and no rule
// decided) a Fatal error.
//
// Grounded on svnread.go's isDeclaredBranch/branchify handling (the
// closest teacher analogue to "decide whether a path names a branch")
// and the rule-chain shape from §9's context redesign: rules are
// small (matches?, classify) objects evaluated in order.
//
// SPDX-License-Identifier: BSD-2-Clause

package main

import (
	"fmt"
	"sort"
)

// Classification is the verdict §4.4 assigns to a Symbol.
type Classification int

const (
	ClassBranch Classification = iota
	ClassTag
	ClassExcluded
	ClassAmbiguous
)

func (c Classification) String() string {
	switch c {
	case ClassBranch:
		return "branch"
	case ClassTag:
		return "tag"
	case ClassExcluded:
		return "excluded"
	case ClassAmbiguous:
		return "ambiguous"
	default:
		return "unknown"
	}
}

// symbolStats are the per-file aggregated usage counts §4.4 needs to
// decide unambiguous-usage / branch-if-commits / heuristic.
type symbolStats struct {
	FilesAsBranch int // files where this symbol names a Branch item
	FilesAsTag    int // files where this symbol names a Tag item
	FilesTotal    int // files where this symbol appears at all
	HasCommits    bool
}

// Symbol is a repository-wide entity identified by its cleaned,
// renamed name (§3).
type Symbol struct {
	Name           string
	Classification Classification
	Stats          symbolStats
}

// SymbolTable discovers and classifies every Symbol in the repo. It
// is built incrementally during the item-graph pass (§4.3: "updates
// global Symbol statistics atomically per-file") and finalized by
// Classify before the commit grouper runs (§3 lifecycle).
type SymbolTable struct {
	order *symbolSet
	stats map[string]*symbolStats
}

func newSymbolTable() *SymbolTable {
	return &SymbolTable{order: newSymbolSet(), stats: make(map[string]*symbolStats)}
}

func (t *SymbolTable) observe(name string) *symbolStats {
	t.order.Add(name)
	s, ok := t.stats[name]
	if !ok {
		s = &symbolStats{}
		t.stats[name] = s
	}
	return s
}

// Names returns every discovered symbol in discovery order.
func (t *SymbolTable) Names() []string {
	return t.order.Names()
}

// Classify applies §4.4's rule chain to every discovered symbol.
// Under --symbol-default=strict, an undecided symbol is a Fatal
// error naming the symbol and, for the ambiguous case, the
// conflicting usage counts (§8 "Ambiguous symbol under strict").
func (t *SymbolTable) Classify(rules []SymbolRule, def SymbolDefault) (map[string]*Symbol, error) {
	out := make(map[string]*Symbol, len(t.stats))
	for _, name := range t.Names() {
		stats := t.stats[name]
		class, decided := ClassAmbiguous, false
		for _, rule := range rules {
			if v, ok := rule.classify(name, stats); ok {
				class, decided = v, true
				break
			}
		}
		if !decided {
			switch def {
			case DefaultBranch:
				class, decided = ClassBranch, true
			case DefaultTag:
				class, decided = ClassTag, true
			case DefaultHeur:
				if stats.FilesAsBranch >= stats.FilesAsTag {
					class = ClassBranch
				} else {
					class = ClassTag
				}
				decided = true
			case DefaultStrict:
				return nil, throwFatal("symbol-strategy",
					"symbol %q is ambiguous (used as branch in %d files, as tag in %d files) and --symbol-default=strict forbids a default",
					name, stats.FilesAsBranch, stats.FilesAsTag)
			}
		}
		out[name] = &Symbol{Name: name, Classification: class, Stats: *stats}
	}
	return out, nil
}

// unambiguousUsageRule: Branch if used as a branch in every file that
// mentions it, Tag if used as a tag in every file, else no decision.
type unambiguousUsageRule struct{}

func (unambiguousUsageRule) classify(_ string, s *symbolStats) (Classification, bool) {
	if s.FilesTotal == 0 {
		return 0, false
	}
	if s.FilesAsBranch == s.FilesTotal {
		return ClassBranch, true
	}
	if s.FilesAsTag == s.FilesTotal {
		return ClassTag, true
	}
	return 0, false
}

func (unambiguousUsageRule) String() string { return "unambiguous-usage" }

// branchIfCommitsRule: Branch if any file has revisions committed on
// that symbol's branch number, else no decision.
type branchIfCommitsRule struct{}

func (branchIfCommitsRule) classify(_ string, s *symbolStats) (Classification, bool) {
	if s.HasCommits {
		return ClassBranch, true
	}
	return 0, false
}

func (branchIfCommitsRule) String() string { return "branch-if-commits" }

// heuristicRule: Branch iff a majority of files use it as a branch.
type heuristicRule struct{}

func (heuristicRule) classify(_ string, s *symbolStats) (Classification, bool) {
	if s.FilesTotal == 0 {
		return 0, false
	}
	if s.FilesAsBranch*2 > s.FilesTotal {
		return ClassBranch, true
	}
	if s.FilesAsTag*2 > s.FilesTotal {
		return ClassTag, true
	}
	return 0, false
}

func (heuristicRule) String() string { return "heuristic" }

// sortedSymbolNames is a small helper used by diagnostics/tests that
// want a deterministic (alphabetic, not discovery-order) listing.
func sortedSymbolNames(table map[string]*Symbol) []string {
	names := make([]string, 0, len(table))
	for n := range table {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (s *Symbol) String() string {
	return fmt.Sprintf("%s(%s)", s.Name, s.Classification)
}
