// Changeset (§3, §9): a tagged sum type —
// Initial | Revision | PostCommit | SymbolFill — replacing the
// teacher's runtime-type-checked Commit/Tag/Reset/Callout hierarchy
// (surgeon/reposurgeon.go) per §9's "dynamic dispatch over commit
// variants" redesign flag. Every consumer (sequencer, output
// delegate) switches exhaustively over Kind, so an unhandled variant
// is caught by the Internal-error path in passmanager.go's passOutput rather than
// silently doing nothing.
//
// SPDX-License-Identifier: BSD-2-Clause

package main

import "fmt"

type changesetidx uint64

// ChangesetKind tags a Changeset's variant.
type ChangesetKind uint8

const (
	ChangesetInitial ChangesetKind = iota
	ChangesetRevision
	ChangesetPostCommit
	ChangesetSymbolFill
)

func (k ChangesetKind) String() string {
	switch k {
	case ChangesetInitial:
		return "initial"
	case ChangesetRevision:
		return "revision"
	case ChangesetPostCommit:
		return "post-commit"
	case ChangesetSymbolFill:
		return "symbol-fill"
	default:
		return "unknown"
	}
}

// Changeset is a set of CVSItems that will be emitted as one
// Subversion revision (§3). It owns its item id list, not the items
// themselves (§3: "Changesets own their item id lists").
type Changeset struct {
	ID   changesetidx
	Kind ChangesetKind

	// ChangesetRevision / ChangesetPostCommit fields.
	Author    string
	LogDigest [20]byte
	ItemIDs   []itemidx
	MinTime   Date // timestamp used for sequencer tie-breaking (§4.6)

	// ChangesetPostCommit-only: the RevisionChangeset it immediately
	// follows (§4.5: "immediately after the motivating
	// RevisionChangeset").
	Motivating changesetidx

	// ChangesetSymbolFill-only.
	SymbolName     string
	SymbolClass    Classification
	SourceRevnums  []changesetidx // changesets contributing source revisions, for §8.4's check
}

func (c Changeset) String() string {
	switch c.Kind {
	case ChangesetInitial:
		return "initial-project"
	case ChangesetRevision:
		return fmt.Sprintf("revision-changeset(%d items, author=%s)", len(c.ItemIDs), c.Author)
	case ChangesetPostCommit:
		return fmt.Sprintf("post-commit(motivating=%d)", c.Motivating)
	case ChangesetSymbolFill:
		return fmt.Sprintf("symbol-fill(%s)", c.SymbolName)
	default:
		return "invalid-changeset"
	}
}

// oneItemPerFile reports whether c contains at most one item from
// each file, the grouper's §4.5/§8.7 invariant. fileOf resolves an
// item id to its owning file.
func (c Changeset) oneItemPerFile(fileOf func(itemidx) fileidx) bool {
	seen := make(map[fileidx]bool, len(c.ItemIDs))
	for _, id := range c.ItemIDs {
		f := fileOf(id)
		if seen[f] {
			return false
		}
		seen[f] = true
	}
	return true
}
