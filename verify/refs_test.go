package main

import "testing"

func TestSplitRevPairColonSeparated(t *testing.T) {
	src, tgt := splitRevPair("1.4:17")
	if src != "1.4" || tgt != "17" {
		t.Errorf("got %q, %q", src, tgt)
	}
}

func TestSplitRevPairEmpty(t *testing.T) {
	src, tgt := splitRevPair("")
	if src != "" || tgt != "" {
		t.Errorf("expected both halves empty, got %q, %q", src, tgt)
	}
}

func TestSplitRevPairNoColonAppliesToBoth(t *testing.T) {
	src, tgt := splitRevPair("HEAD")
	if src != "HEAD" || tgt != "HEAD" {
		t.Errorf("expected a bare revision to apply to both sides, got %q, %q", src, tgt)
	}
}

func TestRefKindDirNameAndLabel(t *testing.T) {
	if refKindTag.dirName() != "tags" || refKindTag.label() != "Tag" {
		t.Errorf("unexpected tag kind strings: %q, %q", refKindTag.dirName(), refKindTag.label())
	}
	if refKindBranch.dirName() != "branches" || refKindBranch.label() != "Branch" {
		t.Errorf("unexpected branch kind strings: %q, %q", refKindBranch.dirName(), refKindBranch.label())
	}
}
