// Revision sequencer (§4.6): produces a total order over all
// Changesets satisfying the four constraints (per-file RCS-revnum
// order, branch-creation-before-commit, post-commit-immediately-
// follows, symbol-fill-after-every-contributor), via a constraint
// DAG, a stable topological sort, and cycle-break-by-split.
//
// Grounded on svnread.go's svnSplitResolve (the teacher's own
// "split a changeset to break an ambiguity" operation, applied there
// to merge conflicts rather than ordering cycles) and
// reposurgeon.go's fastOrderedIntSet (gods-backed, used here for
// deterministic successor iteration). The debug dot export of the
// constraint DAG is grounded on rcowham-gitp4transfer's
// emicklei/dot --output-graph usage.
//
// SPDX-License-Identifier: BSD-2-Clause

package main

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/emicklei/dot"
	linkedhashset "github.com/emirpasic/gods/sets/linkedhashset"
)

// fileRevnumKey identifies one RCS revision of one file.
type fileRevnumKey struct {
	file   fileidx
	revnum string
}

// SequenceInputs bundles the cross-references the sequencer needs to
// build constraint edges without holding every CVSItem resident at
// once (§5): small per-item lookup tables, not the items themselves.
type SequenceInputs struct {
	// RevisionItemAt resolves (file, revnum) to the Revision item id
	// that committed it, for constraint (4): a Branch/Tag item names
	// a source revnum and the sequencer needs the changeset that
	// committed it.
	RevisionItemAt map[fileRevnumKey]itemidx

	// BranchCreationChangeset maps a branch symbol name to the
	// SymbolFill changeset that creates it, for constraint (2).
	BranchCreationChangeset map[string]changesetidx
}

type seqEdge struct {
	from, to changesetidx
}

// Sequence implements §4.6. It returns changesets in final order;
// the caller assigns dense svn_revnums starting at 1 over the
// returned slice (§4.6's output contract).
func Sequence(changesets []Changeset, itemsByID map[itemidx]CVSItem, in SequenceInputs, graphFile string) ([]Changeset, error) {
	pending := make([]Changeset, len(changesets))
	copy(pending, changesets)

	const maxSplitAttempts = 10000
	for attempt := 0; ; attempt++ {
		if attempt > maxSplitAttempts {
			return nil, throwInternal("sequencer", "cycle-break splitting did not converge after %d attempts", attempt)
		}

		edges := buildEdges(pending, itemsByID, in)
		if graphFile != "" && attempt == 0 {
			writeConstraintGraph(graphFile, pending, edges)
		}

		order, cyclic := topoSort(pending, edges)
		if !cyclic {
			return enforceImmediateFollowing(order), nil
		}

		split, ok := splitSmallestCycle(pending, edges)
		if !ok {
			return nil, throwInternal("sequencer", "cycle detected among changesets but no item boundary is available to split it")
		}
		pending = split
	}
}

// compareRevnums orders two dotted-decimal RCS revnums numerically,
// component by component ("1.9" < "1.10", unlike a lexical compare).
func compareRevnums(a, b string) int {
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")
	for i := 0; i < len(as) && i < len(bs); i++ {
		an, _ := strconv.Atoi(as[i])
		bn, _ := strconv.Atoi(bs[i])
		if an != bn {
			if an < bn {
				return -1
			}
			return 1
		}
	}
	return len(as) - len(bs)
}

func buildEdges(pending []Changeset, itemsByID map[itemidx]CVSItem, in SequenceInputs) []seqEdge {
	var edges []seqEdge

	itemChangeset := make(map[itemidx]changesetidx, len(itemsByID))
	for _, cs := range pending {
		for _, id := range cs.ItemIDs {
			itemChangeset[id] = cs.ID
		}
	}

	// Constraint (1): for every file, its Revisions appear in
	// RCS-revnum order.
	perFile := map[fileidx][]itemidx{}
	for id, item := range itemsByID {
		if item.Kind == ItemRevision {
			perFile[item.FileID] = append(perFile[item.FileID], id)
		}
	}
	var fileIDs []fileidx
	for f := range perFile {
		fileIDs = append(fileIDs, f)
	}
	sort.Slice(fileIDs, func(i, j int) bool { return fileIDs[i] < fileIDs[j] })
	for _, f := range fileIDs {
		ids := perFile[f]
		sort.Slice(ids, func(i, j int) bool {
			return compareRevnums(itemsByID[ids[i]].Revnum, itemsByID[ids[j]].Revnum) < 0
		})
		for i := 1; i < len(ids); i++ {
			prevCS, okp := itemChangeset[ids[i-1]]
			curCS, okc := itemChangeset[ids[i]]
			if okp && okc && prevCS != curCS {
				edges = append(edges, seqEdge{prevCS, curCS})
			}
		}
	}

	// Constraint (2): a Branch's creation changeset precedes any
	// RevisionChangeset containing a revision on that branch.
	for id, item := range itemsByID {
		if item.Kind != ItemRevision || item.BranchOfOrigin == "" {
			continue
		}
		creation, ok := in.BranchCreationChangeset[item.BranchOfOrigin]
		if !ok {
			continue
		}
		if cs, ok2 := itemChangeset[id]; ok2 && creation != cs {
			edges = append(edges, seqEdge{creation, cs})
		}
	}

	// Constraint (3): each PostCommitChangeset immediately follows
	// its motivating RevisionChangeset (the "immediately" part is
	// enforced by enforceImmediateFollowing after the sort).
	for _, cs := range pending {
		if cs.Kind == ChangesetPostCommit {
			edges = append(edges, seqEdge{cs.Motivating, cs.ID})
		}
	}

	// Constraint (4): a SymbolChangeset appears after every
	// RevisionChangeset that contributes a source revision to it.
	for _, cs := range pending {
		if cs.Kind != ChangesetSymbolFill {
			continue
		}
		for _, id := range cs.ItemIDs {
			item := itemsByID[id]
			if item.Kind != ItemBranch && item.Kind != ItemTag {
				continue
			}
			key := fileRevnumKey{file: item.FileID, revnum: item.Revnum}
			revItem, ok := in.RevisionItemAt[key]
			if !ok {
				continue
			}
			if srcCS, ok2 := itemChangeset[revItem]; ok2 && srcCS != cs.ID {
				edges = append(edges, seqEdge{srcCS, cs.ID})
			}
		}
	}

	return edges
}

// topoSort runs Kahn's algorithm over pending/edges. Ties among
// available (indegree-zero) nodes are broken by minimum contained
// item timestamp, then by stable changeset id (§4.6). Returns
// cyclic=true if some changesets never reach indegree zero.
func topoSort(pending []Changeset, edges []seqEdge) ([]Changeset, bool) {
	byID := make(map[changesetidx]*Changeset, len(pending))
	indegree := make(map[changesetidx]int, len(pending))
	succ := make(map[changesetidx]*linkedhashset.Set, len(pending))
	for i := range pending {
		cs := &pending[i]
		byID[cs.ID] = cs
		indegree[cs.ID] = 0
		succ[cs.ID] = linkedhashset.New()
	}
	for _, e := range edges {
		if _, ok := byID[e.from]; !ok {
			continue
		}
		if _, ok := byID[e.to]; !ok {
			continue
		}
		if !succ[e.from].Contains(e.to) {
			succ[e.from].Add(e.to)
			indegree[e.to]++
		}
	}

	var available []changesetidx
	for id, d := range indegree {
		if d == 0 {
			available = append(available, id)
		}
	}

	order := make([]Changeset, 0, len(pending))
	for len(order) < len(pending) {
		if len(available) == 0 {
			return nil, true
		}
		sort.Slice(available, func(i, j int) bool {
			ci, cj := byID[available[i]], byID[available[j]]
			if !ci.MinTime.Equal(cj.MinTime) {
				return ci.MinTime.Before(cj.MinTime)
			}
			return ci.ID < cj.ID
		})
		next := available[0]
		available = available[1:]
		order = append(order, *byID[next])
		for _, v := range succ[next].Values() {
			to := v.(changesetidx)
			indegree[to]--
			if indegree[to] == 0 {
				available = append(available, to)
			}
		}
	}
	return order, false
}

// findCycle runs a colored DFS and returns the changeset ids
// participating in the first cycle it finds.
func findCycle(pending []Changeset, edges []seqEdge) ([]changesetidx, bool) {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	adj := map[changesetidx][]changesetidx{}
	for _, e := range edges {
		adj[e.from] = append(adj[e.from], e.to)
	}
	color := map[changesetidx]int{}
	var stack []changesetidx
	var cycle []changesetidx

	var visit func(id changesetidx) bool
	visit = func(id changesetidx) bool {
		color[id] = gray
		stack = append(stack, id)
		for _, next := range adj[id] {
			switch color[next] {
			case white:
				if visit(next) {
					return true
				}
			case gray:
				for i := len(stack) - 1; i >= 0; i-- {
					cycle = append(cycle, stack[i])
					if stack[i] == next {
						break
					}
				}
				return true
			}
		}
		stack = stack[:len(stack)-1]
		color[id] = black
		return false
	}

	ids := make([]changesetidx, len(pending))
	for i, cs := range pending {
		ids[i] = cs.ID
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		if color[id] == white {
			if visit(id) {
				return cycle, true
			}
		}
	}
	return nil, false
}

// splitSmallestCycle partitions the smallest (fewest-item) changeset
// in a detected cycle into two along an item boundary (§4.6: "the
// changeset with the fewest items is partitioned into two... This
// process terminates because each split strictly increases changeset
// count and decreases average changeset size").
func splitSmallestCycle(pending []Changeset, edges []seqEdge) ([]Changeset, bool) {
	cycle, ok := findCycle(pending, edges)
	if !ok {
		return nil, false
	}
	byID := make(map[changesetidx]*Changeset, len(pending))
	for i := range pending {
		byID[pending[i].ID] = &pending[i]
	}
	var victim *Changeset
	for _, id := range cycle {
		cs := byID[id]
		if cs == nil || len(cs.ItemIDs) < 2 {
			continue
		}
		if victim == nil || len(cs.ItemIDs) < len(victim.ItemIDs) {
			victim = cs
		}
	}
	if victim == nil {
		return nil, false
	}

	var maxID changesetidx
	for _, cs := range pending {
		if cs.ID > maxID {
			maxID = cs.ID
		}
	}

	mid := len(victim.ItemIDs) / 2
	first := *victim
	first.ItemIDs = append([]itemidx{}, victim.ItemIDs[:mid]...)
	second := *victim
	second.ID = maxID + 1
	second.ItemIDs = append([]itemidx{}, victim.ItemIDs[mid:]...)

	out := make([]Changeset, 0, len(pending)+1)
	for _, cs := range pending {
		if cs.ID == victim.ID {
			out = append(out, first, second)
		} else {
			out = append(out, cs)
		}
	}
	return out, true
}

// enforceImmediateFollowing moves each PostCommitChangeset to sit
// directly after its motivating changeset in the final order, the
// literal "immediately" of constraint (3) that a plain precedence
// edge only approximates.
func enforceImmediateFollowing(order []Changeset) []Changeset {
	following := map[changesetidx][]Changeset{}
	isPostCommit := map[changesetidx]bool{}
	for _, cs := range order {
		if cs.Kind == ChangesetPostCommit {
			following[cs.Motivating] = append(following[cs.Motivating], cs)
			isPostCommit[cs.ID] = true
		}
	}
	out := make([]Changeset, 0, len(order))
	for _, cs := range order {
		if isPostCommit[cs.ID] {
			continue
		}
		out = append(out, cs)
		out = append(out, following[cs.ID]...)
	}
	return out
}

// writeConstraintGraph renders the constraint DAG as Graphviz dot for
// the --graph-file debug option (SPEC_FULL domain-stack wiring for
// emicklei/dot).
func writeConstraintGraph(path string, pending []Changeset, edges []seqEdge) {
	g := dot.NewGraph(dot.Directed)
	nodes := make(map[changesetidx]dot.Node, len(pending))
	for _, cs := range pending {
		nodes[cs.ID] = g.Node(fmt.Sprintf("cs%d", cs.ID)).Label(cs.String())
	}
	for _, e := range edges {
		from, ok := nodes[e.from]
		if !ok {
			continue
		}
		to, ok := nodes[e.to]
		if !ok {
			continue
		}
		g.Edge(from, to)
	}
	_ = os.WriteFile(path, []byte(g.String()), 0644)
}
