package main

import "testing"

// TestPlanFillWholeTreeCopy is §8's "Tag on trunk" scenario: a tag
// whose desired contents exactly match trunk at one revnum should
// plan as a single subtree copy, not one FillAdd per file.
func TestPlanFillWholeTreeCopy(t *testing.T) {
	desired := map[string]FillSource{
		"a.txt":     {Base: "trunk", Revnum: 2},
		"sub/b.txt": {Base: "trunk", Revnum: 2},
	}
	ops := PlanFill("tags/REL_1", desired, nil)

	if len(ops) != 1 {
		t.Fatalf("expected a single whole-tree copy, got %d ops: %+v", len(ops), ops)
	}
	if ops[0].Kind != FillCopy {
		t.Fatalf("expected FillCopy, got %s", ops[0].Kind)
	}
	if ops[0].Path != "tags/REL_1" || ops[0].SourcePath != "trunk" || ops[0].SourceRevnum != 2 {
		t.Fatalf("unexpected copy op: %+v", ops[0])
	}
}

// TestPlanFillResidualMismatch covers a symbol whose contents mostly
// match one source tree except for one file sourced elsewhere: the
// planner should copy the majority subtree and patch the outlier.
func TestPlanFillResidualMismatch(t *testing.T) {
	desired := map[string]FillSource{
		"a.txt": {Base: "trunk", Revnum: 5},
		"b.txt": {Base: "trunk", Revnum: 5},
		"c.txt": {Base: "branches/VENDOR", Revnum: 3},
	}
	ops := PlanFill("tags/REL_2", desired, nil)

	var sawBaseCopy, sawOutlierAdd bool
	for _, op := range ops {
		if op.Kind == FillCopy && op.Path == "tags/REL_2" {
			sawBaseCopy = true
		}
		if op.Path == "tags/REL_2/c.txt" {
			sawOutlierAdd = true
			if op.SourcePath != "branches/VENDOR/c.txt" {
				t.Errorf("expected outlier sourced from branches/VENDOR/c.txt, got %s", op.SourcePath)
			}
		}
	}
	if !sawBaseCopy {
		t.Error("expected a base subtree copy for the majority match")
	}
	if !sawOutlierAdd {
		t.Error("expected a per-file fixup for the mismatched file")
	}
}

// TestPlanFillDeletesStalePaths ensures paths present under the
// symbol's base but absent from the desired set are deleted.
func TestPlanFillDeletesStalePaths(t *testing.T) {
	desired := map[string]FillSource{
		"a.txt": {Base: "trunk", Revnum: 2},
	}
	existing := map[string]bool{
		"tags/REL_1/a.txt": true,
		"tags/REL_1/old.txt": true,
	}
	ops := PlanFill("tags/REL_1", desired, existing)

	var sawDelete bool
	for _, op := range ops {
		if op.Kind == FillDelete && op.Path == "tags/REL_1/old.txt" {
			sawDelete = true
		}
	}
	if !sawDelete {
		t.Fatalf("expected a delete for the stale path, got ops: %+v", ops)
	}
}
