package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDirlistListsRelativePaths(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "a.txt"), []byte("x"), 0644)
	os.Mkdir(filepath.Join(dir, "sub"), 0755)
	os.WriteFile(filepath.Join(dir, "sub", "b.txt"), []byte("y"), 0644)

	got, err := dirlist(dir)
	if err != nil {
		t.Fatalf("dirlist: %v", err)
	}
	for _, want := range []string{".", "a.txt", "sub", filepath.Join("sub", "b.txt")} {
		if !got[want] {
			t.Errorf("expected dirlist to include %q, got %v", want, got)
		}
	}
}

func TestComparePathIdenticalContentIsSilent(t *testing.T) {
	srcDir, tgtDir := t.TempDir(), t.TempDir()
	os.WriteFile(filepath.Join(srcDir, "a.txt"), []byte("same"), 0644)
	os.WriteFile(filepath.Join(tgtDir, "a.txt"), []byte("same"), 0644)

	got := comparePath(srcDir, tgtDir, "a.txt", true, true, nil, nil, true, false)
	if got != "" {
		t.Errorf("expected identical content to produce no diff, got %q", got)
	}
}

func TestComparePathIdenticalContentReportedWhenShowSame(t *testing.T) {
	srcDir, tgtDir := t.TempDir(), t.TempDir()
	os.WriteFile(filepath.Join(srcDir, "a.txt"), []byte("same"), 0644)
	os.WriteFile(filepath.Join(tgtDir, "a.txt"), []byte("same"), 0644)

	got := comparePath(srcDir, tgtDir, "a.txt", true, true, nil, nil, true, true)
	if !strings.Contains(got, "Same: a.txt") {
		t.Errorf("expected a Same: report with showSame set, got %q", got)
	}
}

func TestComparePathDivergentContentProducesUnifiedDiff(t *testing.T) {
	srcDir, tgtDir := t.TempDir(), t.TempDir()
	os.WriteFile(filepath.Join(srcDir, "a.txt"), []byte("one\ntwo\n"), 0644)
	os.WriteFile(filepath.Join(tgtDir, "a.txt"), []byte("one\nTHREE\n"), 0644)

	got := comparePath(srcDir, tgtDir, "a.txt", true, true, nil, nil, true, false)
	if got == "" {
		t.Fatal("expected a nonempty diff for divergent content")
	}
	if !strings.Contains(got, "THREE") {
		t.Errorf("expected the diff to mention the changed line, got %q", got)
	}
}

func TestComparePathSourceOnly(t *testing.T) {
	srcDir, tgtDir := t.TempDir(), t.TempDir()
	os.WriteFile(filepath.Join(srcDir, "a.txt"), []byte("x"), 0644)

	got := comparePath(srcDir, tgtDir, "a.txt", true, false, nil, nil, true, false)
	if !strings.Contains(got, "source only") {
		t.Errorf("expected a source-only report, got %q", got)
	}
}

func TestComparePathTargetOnly(t *testing.T) {
	srcDir, tgtDir := t.TempDir(), t.TempDir()
	os.WriteFile(filepath.Join(tgtDir, "a.txt"), []byte("x"), 0644)

	got := comparePath(srcDir, tgtDir, "a.txt", false, true, nil, nil, true, false)
	if !strings.Contains(got, "target only") {
		t.Errorf("expected a target-only report, got %q", got)
	}
}

func TestComparePathSkipsDirectories(t *testing.T) {
	srcDir, tgtDir := t.TempDir(), t.TempDir()
	os.Mkdir(filepath.Join(srcDir, "sub"), 0755)
	os.Mkdir(filepath.Join(tgtDir, "sub"), 0755)

	got := comparePath(srcDir, tgtDir, "sub", true, true, nil, nil, true, false)
	if got != "" {
		t.Errorf("expected directories to never be diffed as files, got %q", got)
	}
}

func TestComparePathRespectsIgnorable(t *testing.T) {
	srcDir, tgtDir := t.TempDir(), t.TempDir()
	os.Mkdir(filepath.Join(srcDir, "CVSROOT"), 0755)
	os.WriteFile(filepath.Join(srcDir, "CVSROOT", "config"), []byte("x"), 0644)

	got := comparePath(srcDir, tgtDir, filepath.Join("CVSROOT", "config"), true, false, &cvsRepo, nil, true, false)
	if got != "" {
		t.Errorf("expected a path under the CVS marker subdirectory to be ignored, got %q", got)
	}
}
