// Item graph pass (§4.3): validates and normalizes one file's
// CVSItem stream — monotonic-timestamp bump along each line of
// descent, per-file Symbol statistics, and branch-of-origin cycle
// rejection.
//
// Grounded on svnread.go's History.apply, which walks a revision's
// node actions and updates running per-path state in exactly this
// "stream in dependency order, validate and bump as you go" shape.
//
// SPDX-License-Identifier: BSD-2-Clause

package main

import (
	"github.com/sirupsen/logrus"
)

// TimestampBump records one §4.3 monotonic-timestamp correction, for
// the deterministic log the spec requires ("the bump is deterministic
// and logged").
type TimestampBump struct {
	FileID   fileidx
	Revnum   string
	Original Date
	Bumped   Date
}

// FileItemGraph is the validated, in-memory view of one file's
// history during the item-graph pass. Only one file's items are held
// at a time (§5 memory discipline) — the pass streams file-by-file.
type FileItemGraph struct {
	FileID fileidx
	Items  []CVSItem
	Bumps  []TimestampBump
}

// processFileItems runs §4.3 over one file's items, which must arrive
// in ancestry order (each Revision's predecessor already seen — the
// order ingest naturally produces by walking the RCS tree root-first).
// It mutates timestamps in place to enforce monotonicity and records
// every bump, updates `table` with this file's symbol usage, and
// rejects a cyclic branch-of-origin relation.
func processFileItems(fileID fileidx, items []CVSItem, table *SymbolTable, log *logrus.Entry) (*FileItemGraph, error) {
	g := &FileItemGraph{FileID: fileID}
	byID := make(map[itemidx]*CVSItem, len(items))
	seenSymbol := newStringSet()
	branchOrigin := make(map[itemidx]itemidx) // branch item id -> revision item id it's attached to

	out := make([]CVSItem, len(items))
	copy(out, items)

	for i := range out {
		item := &out[i]
		byID[item.ID] = item

		switch item.Kind {
		case ItemRevision:
			if item.HasPredecessor {
				pred, ok := byID[item.PredecessorID]
				if !ok {
					return nil, throwInternal("item-graph", "file %d: revision %s references unknown predecessor", fileID, item.Revnum)
				}
				if item.Timestamp.Before(pred.Timestamp) || item.Timestamp.Equal(pred.Timestamp) {
					bumped := pred.Timestamp.plusSeconds(1)
					bump := TimestampBump{FileID: fileID, Revnum: item.Revnum, Original: item.Timestamp, Bumped: bumped}
					g.Bumps = append(g.Bumps, bump)
					if log != nil {
						log.Warnf("item-graph: file %d revision %s timestamp %s not after predecessor %s; bumped to %s",
							fileID, item.Revnum, bump.Original, pred.Timestamp, bumped)
					}
					item.Timestamp = bumped
				}
			}
			if item.BranchOfOrigin != "" {
				table.observeRevisionOnBranch(item.BranchOfOrigin)
			}
		case ItemBranch, ItemTag:
			if !seenSymbol.Contains(item.SymbolName) {
				seenSymbol.Add(item.SymbolName)
				stats := table.observe(item.SymbolName)
				stats.FilesTotal++
				if item.Kind == ItemBranch {
					stats.FilesAsBranch++
				} else {
					stats.FilesAsTag++
				}
			}
			if item.Kind == ItemBranch {
				if item.HasPredecessor {
					branchOrigin[item.ID] = item.PredecessorID
				}
			}
		}

		g.Items = append(g.Items, *item)
	}

	if err := rejectBranchOriginCycles(fileID, branchOrigin, len(out)); err != nil {
		return nil, err
	}

	return g, nil
}

// rejectBranchOriginCycles walks each branch's origin chain no more
// than bound steps; exceeding the bound means a cycle (§4.3: "Rejects
// cycles in the branch-of-origin relation").
func rejectBranchOriginCycles(fileID fileidx, origin map[itemidx]itemidx, bound int) error {
	for start := range origin {
		cur := start
		steps := 0
		visited := map[itemidx]bool{}
		for {
			if visited[cur] {
				return throwFatal("item-graph", "file %d: cyclic branch-of-origin relation detected at item %d", fileID, start)
			}
			visited[cur] = true
			next, ok := origin[cur]
			if !ok {
				break
			}
			cur = next
			steps++
			if steps > bound+1 {
				return throwFatal("item-graph", "file %d: cyclic branch-of-origin relation detected at item %d", fileID, start)
			}
		}
	}
	return nil
}

// observeRevisionOnBranch marks that some file has an actual
// committed revision on this symbol's branch number, feeding §4.4's
// branch-if-commits rule.
func (t *SymbolTable) observeRevisionOnBranch(symbol string) {
	s := t.observe(symbol)
	s.HasCommits = true
}
