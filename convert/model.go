// CVSFile and CVSItem: the §3 data model for one RCS file's history.
//
// CVSItem is implemented as a tagged sum type (ItemKind + one struct
// covering all three variants) rather than three separate types
// joined by an interface with runtime type assertions, per §9's
// "dynamic dispatch over commit variants" redesign flag — the same
// flag that turns the teacher's Commit/Tag/Reset/Callout hierarchy
// (surgeon/reposurgeon.go) into Changeset's tagged sum type (see
// changeset.go). Exhaustive switches over Kind make an unhandled
// variant a compile-time-adjacent defect instead of a runtime one.
//
// SPDX-License-Identifier: BSD-2-Clause

package main

import "fmt"

// itemidx is a stable numeric id into the itemgraph artifact stream
// (§5: "represented as stable numeric ids into artifact streams,
// never as in-memory reference graphs").
type itemidx uint64

// fileidx is a stable numeric id for a CVSFile.
type fileidx uint32

// EncodingClass is the detected text/binary class of a CVSFile (§3).
type EncodingClass int

const (
	EncodingText EncodingClass = iota
	EncodingBinary
)

// CVSFile is a file in the source working set (§3). Immutable once
// ingest (§4.2) has produced it.
type CVSFile struct {
	ID            fileidx
	Path          string // relative to the module root
	Executable    bool
	DefaultBranch string // RCS-level default branch, "" if none
	Encoding      EncodingClass
}

// ItemKind tags a CVSItem's variant.
type ItemKind uint8

const (
	ItemRevision ItemKind = iota
	ItemBranch
	ItemTag
)

func (k ItemKind) String() string {
	switch k {
	case ItemRevision:
		return "revision"
	case ItemBranch:
		return "branch"
	case ItemTag:
		return "tag"
	default:
		return "unknown"
	}
}

// CVSItem is one node of a per-file history graph (§3). All three
// variants share FileID/Revnum; the fields below that line are only
// meaningful for the variant named in the comment.
type CVSItem struct {
	ID     itemidx
	FileID fileidx
	Kind   ItemKind
	Revnum string // dotted-decimal RCS revision number, even depth for branch roots

	// ItemRevision fields.
	Author        string
	Timestamp     Date
	LogDigest     [20]byte // sha1 of the raw log message, per §3 "log message digest"
	Deleted       bool
	PredecessorID itemidx // 0 (no item has id 0) if this is the file's root revision
	HasPredecessor bool
	BranchOfOrigin string // symbol name of the branch this revision lives on, "" for trunk

	// ItemBranch / ItemTag fields.
	SymbolName string // the cleaned, transformed symbol name
}

func (item CVSItem) String() string {
	switch item.Kind {
	case ItemRevision:
		return fmt.Sprintf("revision %s@%s by %s", item.Revnum, item.Timestamp, item.Author)
	case ItemBranch:
		return fmt.Sprintf("branch %s created at %s", item.SymbolName, item.Revnum)
	case ItemTag:
		return fmt.Sprintf("tag %s at %s", item.SymbolName, item.Revnum)
	default:
		return "invalid CVSItem"
	}
}

// revnumDepth returns the number of dotted components, e.g. "1.2.3.4" -> 4.
func revnumDepth(revnum string) int {
	depth := 1
	for _, c := range revnum {
		if c == '.' {
			depth++
		}
	}
	return depth
}

// isBranchRoot reports whether revnum names a branch-root node (even
// depth, per the GLOSSARY).
func isBranchRoot(revnum string) bool {
	return revnumDepth(revnum)%2 == 0
}

// branchNumber returns the branch-number a revision of the form
// "x.y.z.w.v" lives on, i.e. "x.y.z.w" (§4.2 "branch-of-origin is
// inferred by matching dotted-decimal structure").
func branchNumber(revnum string) (string, bool) {
	last := -1
	for i, c := range revnum {
		if c == '.' {
			last = i
		}
	}
	if last < 0 {
		return "", false
	}
	return revnum[:last], true
}
