// VCS: a small descriptor table for the two repository kinds the
// verifier ever needs to check out from — a CVS module and the
// Subversion repository cvs2svn-go produced from it.
//
// Grounded on tool/repotool.go's cvsCheckout/svnCheckout VCS table and
// identifyRepo, trimmed to the two backends this verifier actually
// drives (the teacher's table also carries git/hg/bzr/darcs entries
// that have no role here).
//
// SPDX-License-Identifier: BSD-2-Clause

package main

import (
	"os"
	"path/filepath"
)

// VCS names one repository kind's on-disk marker subdirectory and the
// dotfile to skip when comparing trees.
type VCS struct {
	name         string
	subdirectory string // marker subdirectory identifyRepo looks for
	ignorename   string // dotfile to skip when comparing trees
}

var cvsRepo = VCS{name: "cvs", subdirectory: "CVSROOT", ignorename: ".cvsignore"}
var svnRepo = VCS{name: "svn", subdirectory: "locks", ignorename: ""}
var svnCheckout = VCS{name: "svn-checkout", subdirectory: ".svn", ignorename: ""}

var vcsTypes = []VCS{cvsRepo, svnRepo, svnCheckout}

// identifyRepo guesses a directory's repository kind the same way
// repotool.go does: by the presence of a type-specific marker
// subdirectory, checked in table order (CVSROOT, locks, .svn); the
// first marker found wins.
func identifyRepo(dir string) *VCS {
	for i := range vcsTypes {
		vcs := &vcsTypes[i]
		if isDir(filepath.Join(dir, vcs.subdirectory)) {
			return vcs
		}
	}
	return nil
}

func isDir(path string) bool {
	st, err := os.Stat(path)
	return err == nil && st.IsDir()
}

// ignorable reports whether path should be skipped when comparing two
// trees: the VCS's own metadata directory or its ignore dotfile.
func ignorable(path string, vcs *VCS) bool {
	if vcs == nil {
		return false
	}
	base := filepath.Base(path)
	if vcs.ignorename != "" && base == vcs.ignorename {
		return true
	}
	if vcs.subdirectory != "" {
		prefix := vcs.subdirectory + string(filepath.Separator)
		if path == vcs.subdirectory || len(path) > len(prefix) && path[:len(prefix)] == prefix {
			return true
		}
	}
	return false
}

// checkoutCVS exports one module revision from a CVSROOT into outdir
// via the real `cvs` client, the same -kb (binary-safe, no keyword
// expansion) flag repotool.go's checkout uses for CVS.
func checkoutCVS(cvsroot, module, rev, outdir string) error {
	args := []string{"-Q", "-d", cvsroot, "co", "-P", "-d", outdir, "-kb"}
	if rev != "" {
		args = append(args, "-r", rev)
	}
	args = append(args, module)
	return runCommand("cvs", args...)
}

// checkoutSVN exports one revision of a live Subversion repository
// into outdir via `svn co`, mirroring repotool.go's svn case.
func checkoutSVN(repoPath, rev, outdir string) error {
	args := []string{"co", "-q"}
	if rev != "" {
		args = append(args, "-r", rev)
	}
	args = append(args, "file://"+repoPath, outdir)
	return runCommand("svn", args...)
}
