package main

import (
	"testing"
	"time"
)

func mkRevItem(id itemidx, file fileidx, revnum, branch string, when time.Time) CVSItem {
	return CVSItem{
		ID:             id,
		FileID:         file,
		Kind:           ItemRevision,
		Revnum:         revnum,
		Timestamp:      newDate(when),
		BranchOfOrigin: branch,
	}
}

// TestSequenceOrdersRevisionsByRevnum is §8.3 "per-file ordering":
// even when two changesets committing the same file's revisions are
// handed to the sequencer out of order, the output must respect RCS
// revnum order.
func TestSequenceOrdersRevisionsByRevnum(t *testing.T) {
	t0 := time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC)
	items := map[itemidx]CVSItem{
		1: mkRevItem(1, 1, "1.1", "", t0),
		2: mkRevItem(2, 1, "1.2", "", t0.Add(time.Hour)),
	}
	// Deliberately hand changeset 2 (containing the later revision)
	// before changeset 1 in the input slice, with an adversarial
	// MinTime so a naive timestamp-only sort would get it wrong too.
	changesets := []Changeset{
		{ID: 2, Kind: ChangesetRevision, ItemIDs: []itemidx{2}, MinTime: newDate(t0)},
		{ID: 1, Kind: ChangesetRevision, ItemIDs: []itemidx{1}, MinTime: newDate(t0.Add(time.Hour))},
	}

	out, err := Sequence(changesets, items, SequenceInputs{}, "")
	if err != nil {
		t.Fatalf("Sequence failed: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 changesets, got %d", len(out))
	}
	if out[0].ID != 1 || out[1].ID != 2 {
		t.Fatalf("expected changeset committing 1.1 before the one committing 1.2, got order %d,%d", out[0].ID, out[1].ID)
	}
}

// TestSequenceBranchCreationPrecedesCommit is §8.8 / constraint (2):
// a branch's creation changeset must precede any revision changeset
// containing a commit on that branch.
func TestSequenceBranchCreationPrecedesCommit(t *testing.T) {
	t0 := time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC)
	items := map[itemidx]CVSItem{
		1: {ID: 1, FileID: 1, Kind: ItemBranch, Revnum: "1.1", SymbolName: "B"},
		2: mkRevItem(2, 1, "1.1.2.1", "B", t0),
	}
	changesets := []Changeset{
		// Deliberately placed after the commit in the input slice and
		// with a later MinTime, so only the constraint edge (not
		// input order or the tie-break) can put it first.
		{ID: 10, Kind: ChangesetRevision, ItemIDs: []itemidx{2}, MinTime: newDate(t0)},
		{ID: 20, Kind: ChangesetSymbolFill, SymbolName: "B", ItemIDs: []itemidx{1}, MinTime: newDate(t0.Add(time.Hour))},
	}
	in := SequenceInputs{BranchCreationChangeset: map[string]changesetidx{"B": 20}}

	out, err := Sequence(changesets, items, in, "")
	if err != nil {
		t.Fatalf("Sequence failed: %v", err)
	}
	if out[0].ID != 20 {
		t.Fatalf("expected branch creation (20) before the commit on it (10), got order %v", []changesetidx{out[0].ID, out[1].ID})
	}
}

// TestSequenceEnforcesImmediateFollowing is §4.6 constraint (3): a
// PostCommitChangeset must come directly after its motivating
// changeset, even when other changesets would otherwise sort between.
func TestSequenceEnforcesImmediateFollowing(t *testing.T) {
	t0 := time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC)
	items := map[itemidx]CVSItem{
		1: mkRevItem(1, 1, "1.1.1.1", "VENDOR", t0),
		2: mkRevItem(2, 2, "1.1", "", t0.Add(time.Minute)),
	}
	changesets := []Changeset{
		{ID: 1, Kind: ChangesetRevision, ItemIDs: []itemidx{1}, MinTime: newDate(t0)},
		{ID: 3, Kind: ChangesetRevision, ItemIDs: []itemidx{2}, MinTime: newDate(t0.Add(time.Minute))},
		{ID: 2, Kind: ChangesetPostCommit, Motivating: 1, MinTime: newDate(t0.Add(30 * time.Second))},
	}

	out, err := Sequence(changesets, items, SequenceInputs{}, "")
	if err != nil {
		t.Fatalf("Sequence failed: %v", err)
	}
	for i, cs := range out {
		if cs.ID == 1 {
			if i+1 >= len(out) || out[i+1].ID != 2 {
				t.Fatalf("expected changeset 2 (post-commit) immediately after changeset 1, got order %v", ids(out))
			}
		}
	}
}

func ids(cs []Changeset) []changesetidx {
	out := make([]changesetidx, len(cs))
	for i, c := range cs {
		out[i] = c.ID
	}
	return out
}

// TestSplitSmallestCycleBreaksCycle exercises §4.6's cycle-break: a
// detected cycle is resolved by partitioning the smallest participant
// changeset, strictly increasing the changeset count.
func TestSplitSmallestCycleBreaksCycle(t *testing.T) {
	pending := []Changeset{
		{ID: 1, Kind: ChangesetRevision, ItemIDs: []itemidx{1, 2}},
		{ID: 2, Kind: ChangesetRevision, ItemIDs: []itemidx{3}},
	}
	edges := []seqEdge{{from: 1, to: 2}, {from: 2, to: 1}}

	split, ok := splitSmallestCycle(pending, edges)
	if !ok {
		t.Fatal("expected a cycle to be found and split")
	}
	if len(split) != len(pending)+1 {
		t.Fatalf("expected split to add exactly one changeset, got %d -> %d", len(pending), len(split))
	}
	// The victim (fewest items among cycle participants with >=2 items)
	// must be changeset 1; changeset 2 only has 1 item and cannot split.
	var total int
	for _, cs := range split {
		total += len(cs.ItemIDs)
	}
	if total != 3 {
		t.Fatalf("splitting must preserve every item id, got %d total items", total)
	}
}

func TestCompareRevnumsNumericNotLexical(t *testing.T) {
	if compareRevnums("1.9", "1.10") >= 0 {
		t.Error("expected 1.9 < 1.10 under numeric dotted-decimal comparison")
	}
	if compareRevnums("1.2", "1.2") != 0 {
		t.Error("expected equal revnums to compare equal")
	}
	if compareRevnums("1.2.1.1", "1.2") <= 0 {
		t.Error("expected a deeper revnum sharing a prefix to compare greater")
	}
}

func TestIsBranchRootEvenDepth(t *testing.T) {
	if isBranchRoot("1.1.2") {
		t.Error("1.1.2 has odd depth (3 components) and must not count as a branch root")
	}
	if !isBranchRoot("1.1.2.1") {
		t.Error("1.1.2.1 has even depth (4 components) and must count as a branch root")
	}
}
