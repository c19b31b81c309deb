// Ref-level comparison driver: checks out the source and target trees
// at head, or at every tag/branch the target SVN repository carries,
// and reports drift for each.
//
// Grounded on tool/repotool.go's tags/branches/compareEngine/
// compareTags/compareBranches/compareAll quartet — here collapsed
// into one ref-kind-parameterized pair of functions since CVS and SVN
// both only ever supply tags and branches (no the teacher's git/hg/
// bzr cases apply).
//
// SPDX-License-Identifier: BSD-2-Clause

package main

import (
	"fmt"
	"os"
	"path/filepath"
)

type refKind int

const (
	refKindTag refKind = iota
	refKindBranch
)

func (k refKind) dirName() string {
	if k == refKindTag {
		return "tags"
	}
	return "branches"
}

func (k refKind) label() string {
	if k == refKindTag {
		return "Tag"
	}
	return "Branch"
}

// listRefs lists the names under repoPath/tags or repoPath/branches —
// the standard SVN trunk/branches/tags layout cvs2svn-go writes.
func listRefs(repoPath string, kind refKind) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(repoPath, kind.dirName()))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names, nil
}

// runCompareHead checks out the CVS module and the SVN target's trunk
// at the given revision pair (source:target, either half optional)
// and reports any content mismatch.
func runCompareHead(sourceArg, targetArg, module, rev string, unified, showSame, quiet bool) error {
	sourceRev, targetRev := splitRevPair(rev)

	sourceDir, sourceVCS, cleanup1, err := checkoutSource(sourceArg, module, sourceRev)
	if err != nil {
		return err
	}
	defer cleanup1()

	targetDir, targetVCS, cleanup2, err := checkoutTarget(targetArg, "trunk", targetRev)
	if err != nil {
		return err
	}
	defer cleanup2()

	return reportDiffs(sourceDir, targetDir, sourceVCS, targetVCS, unified, showSame, quiet)
}

// runCompareRefs compares every tag or every branch the SVN target
// repository carries against the matching CVS export.
func runCompareRefs(sourceArg, targetArg string, kind refKind, unified, showSame, quiet bool) error {
	refs, err := listRefs(targetArg, kind)
	if err != nil {
		return err
	}
	if len(refs) == 0 {
		if !quiet {
			fmt.Printf("cvs2svn-verify: no %s found in %s\n", kind.dirName(), targetArg)
		}
		return nil
	}
	var failed bool
	for _, ref := range refs {
		sourceDir, sourceVCS, cleanup1, err := checkoutSource(sourceArg, "", ref)
		if err != nil {
			return err
		}
		targetDir, targetVCS, cleanup2, err := checkoutTarget(targetArg, filepath.Join(kind.dirName(), ref), "")
		if err != nil {
			cleanup1()
			return err
		}
		diffs, err := compareTrees(sourceDir, targetDir, sourceVCS, targetVCS, unified, showSame)
		cleanup1()
		cleanup2()
		if err != nil {
			return err
		}
		if len(diffs) > 0 {
			failed = true
			fmt.Printf("--- %s %s ---\n", kind.label(), ref)
			printDiffs(diffs)
		}
	}
	if failed {
		return fmt.Errorf("%s comparison found drift", kind.dirName())
	}
	return nil
}

// runCompareAll compares head, then every tag, then every branch —
// the union repotool.go's compare-all performs.
func runCompareAll(sourceArg, targetArg string, unified, showSame, quiet bool) error {
	if err := runCompareHead(sourceArg, targetArg, "", "", unified, showSame, quiet); err != nil {
		return err
	}
	if err := runCompareRefs(sourceArg, targetArg, refKindTag, unified, showSame, quiet); err != nil {
		return err
	}
	return runCompareRefs(sourceArg, targetArg, refKindBranch, unified, showSame, quiet)
}

func splitRevPair(rev string) (string, string) {
	if rev == "" {
		return "", ""
	}
	for i := 0; i < len(rev); i++ {
		if rev[i] == ':' {
			return rev[:i], rev[i+1:]
		}
	}
	return rev, rev
}

// checkoutSource exports one revision of the CVS source into a fresh
// temp directory, returning a cleanup func the caller must defer.
func checkoutSource(cvsRoot, module, rev string) (string, *VCS, func(), error) {
	dir, err := os.MkdirTemp("", "cvs2svn-verify-source")
	if err != nil {
		return "", nil, func() {}, err
	}
	cleanup := func() { os.RemoveAll(dir) }
	if module == "" {
		module = filepath.Base(cvsRoot)
	}
	if err := checkoutCVS(cvsRoot, module, rev, dir); err != nil {
		cleanup()
		return "", nil, func() {}, err
	}
	return dir, &cvsRepo, cleanup, nil
}

// checkoutTarget exports one path (trunk, branches/NAME, tags/NAME)
// at one revision of the converted SVN repository into a fresh temp
// directory.
func checkoutTarget(repoPath, subpath, rev string) (string, *VCS, func(), error) {
	dir, err := os.MkdirTemp("", "cvs2svn-verify-target")
	if err != nil {
		return "", nil, func() {}, err
	}
	cleanup := func() { os.RemoveAll(dir) }
	if err := checkoutSVN(filepath.Join(repoPath), rev, dir); err != nil {
		cleanup()
		return "", nil, func() {}, err
	}
	checkedOutSubpath := filepath.Join(dir, subpath)
	return checkedOutSubpath, &svnCheckout, cleanup, nil
}

func reportDiffs(sourceDir, targetDir string, sourceVCS, targetVCS *VCS, unified, showSame, quiet bool) error {
	diffs, err := compareTrees(sourceDir, targetDir, sourceVCS, targetVCS, unified, showSame)
	if err != nil {
		return err
	}
	if len(diffs) == 0 {
		if !quiet {
			fmt.Println("cvs2svn-verify: trees match")
		}
		return nil
	}
	printDiffs(diffs)
	return fmt.Errorf("trees differ at %d path(s)", len(diffs))
}

func printDiffs(diffs []PathDiff) {
	for _, d := range diffs {
		fmt.Print(d.Diff)
	}
}
