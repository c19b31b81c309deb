// SVN repository mirror (§4.8): a copy-on-write projection of the
// evolving repository directory tree, keyed by path, holding
// per-path node identity so copy semantics stay correct across
// historical queries. Exposes the start_commit/mkdir/add_path/
// change_path/delete_path/copy_path/fill_symbol/end_commit surface
// and fans every mutation out to registered output delegates in
// order.
//
// Grounded directly on surgeon/pathmap.go's PathMap: the dirs/blobs
// split, the shared-flag copy-on-write discipline, and the
// recursive _unshare/_createTree/copyFrom shape are kept; the blob
// payload type changes from NodeAction to mirrorNode, and the
// single-open-commit invariant of §4.8 is added (PathMap itself does
// not need it, since reposurgeon owns a different commit lifecycle).
//
// SPDX-License-Identifier: BSD-2-Clause

package main

import (
	"sort"
	"strings"
)

// mirrorNode is the value a repoMirror path maps to: a stable
// numeric node identity (for correct SVN copy-history semantics) and
// the svn revnum its content was last set at.
type mirrorNode struct {
	nodeID int64
	revnum int
	isDir  bool
}

// pathMap is the copy-on-write path tree, structurally the teacher's
// PathMap with the blob payload narrowed to *mirrorNode.
type pathMap struct {
	dirs   map[string]*pathMap
	blobs  map[string]*mirrorNode
	shared bool
}

func newPathMap() *pathMap {
	return &pathMap{dirs: make(map[string]*pathMap), blobs: make(map[string]*mirrorNode)}
}

func (pm *pathMap) markShared() {
	if !pm.shared {
		pm.shared = true
		for _, v := range pm.dirs {
			v.markShared()
		}
	}
}

func (pm *pathMap) snapshot() *pathMap {
	r := newPathMap()
	r.inplaceSnapshot(pm)
	return r
}

func (pm *pathMap) inplaceSnapshot(source *pathMap) {
	dirs := make(map[string]*pathMap, len(source.dirs))
	blobs := make(map[string]*mirrorNode, len(source.blobs))
	for k, v := range source.dirs {
		dirs[k] = v
		v.markShared()
	}
	for k, v := range source.blobs {
		blobs[k] = v
	}
	pm.dirs = dirs
	pm.blobs = blobs
}

func (pm *pathMap) unshare() *pathMap {
	if pm.shared {
		return pm.snapshot()
	}
	return pm
}

func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

func (pm *pathMap) createTree(parts []string) *pathMap {
	tree := pm
	for _, component := range parts {
		subtree, ok := tree.dirs[component]
		if ok {
			subtree = subtree.unshare()
		} else {
			subtree = newPathMap()
		}
		tree.dirs[component] = subtree
		tree = subtree
	}
	return tree
}

func (pm *pathMap) get(path string) (*mirrorNode, bool) {
	parts := splitPath(path)
	if len(parts) == 0 {
		return nil, false
	}
	parent := pm
	for _, component := range parts[:len(parts)-1] {
		next, ok := parent.dirs[component]
		if !ok {
			return nil, false
		}
		parent = next
	}
	node, ok := parent.blobs[parts[len(parts)-1]]
	return node, ok
}

func (pm *pathMap) set(path string, value *mirrorNode) {
	parts := splitPath(path)
	if len(parts) == 0 {
		return
	}
	dir, name := parts[:len(parts)-1], parts[len(parts)-1]
	pm.createTree(dir).blobs[name] = value
}

// remove deletes path (a file) or everything under path (a
// directory), pruning now-empty ancestor directories when prune is
// set (§4.8: "prune removes parent directories that become empty as
// a result of a delete").
func (pm *pathMap) remove(path string, prune bool) {
	parts := splitPath(path)
	pm.removeParts(parts, prune)
}

func (pm *pathMap) removeParts(parts []string, prune bool) {
	if len(parts) == 0 {
		return
	}
	component := parts[0]
	if len(parts) == 1 {
		delete(pm.dirs, component)
		delete(pm.blobs, component)
		return
	}
	subtree, ok := pm.dirs[component]
	if !ok {
		return
	}
	subtree = subtree.unshare()
	pm.dirs[component] = subtree
	subtree.removeParts(parts[1:], prune)
	if prune && subtree.isEmpty() {
		delete(pm.dirs, component)
	}
}

func (pm *pathMap) isEmpty() bool {
	return len(pm.dirs)+len(pm.blobs) == 0
}

func (pm *pathMap) iter(hook func(string, *mirrorNode)) {
	pm.iterPrefix(nil, hook)
}

func (pm *pathMap) iterPrefix(prefix []string, hook func(string, *mirrorNode)) {
	for _, component := range sortedDirNames(pm.dirs) {
		pm.dirs[component].iterPrefix(append(prefix, component), hook)
	}
	for _, component := range sortedBlobNames(pm.blobs) {
		hook(strings.Join(append(append([]string{}, prefix...), component), "/"), pm.blobs[component])
	}
}

func sortedDirNames(m map[string]*pathMap) []string {
	names := make([]string, 0, len(m))
	for n := range m {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func sortedBlobNames(m map[string]*mirrorNode) []string {
	names := make([]string, 0, len(m))
	for n := range m {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// copyFrom inserts, at targetPath, a copy of sourcePath as it exists
// in source. Used by copy_path and fill_symbol.
func (pm *pathMap) copyFrom(targetPath string, source *pathMap, sourcePath string) bool {
	sourceParts := splitPath(sourcePath)
	var sourceParent *pathMap = source
	for _, component := range sourceParts[:max0(len(sourceParts)-1)] {
		next, ok := sourceParent.dirs[component]
		if !ok {
			return false
		}
		sourceParent = next
	}
	var name string
	if len(sourceParts) > 0 {
		name = sourceParts[len(sourceParts)-1]
	}

	targetParts := splitPath(targetPath)
	targetDir, targetName := targetParts[:max0(len(targetParts)-1)], ""
	if len(targetParts) > 0 {
		targetName = targetParts[len(targetParts)-1]
	}

	found := false
	if tree, ok := sourceParent.dirs[name]; ok {
		tree.markShared()
		pm.createTree(targetDir).dirs[targetName] = tree
		found = true
	}
	if blob, ok := sourceParent.blobs[name]; ok {
		pm.createTree(targetDir).blobs[targetName] = blob
		found = true
	}
	return found
}

func max0(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

// MirrorDelegate receives every mutation the repository mirror
// applies, in order (§4.8: "Delegates registered on the mirror
// receive every mutation in order").
type MirrorDelegate interface {
	StartCommit(revnum int, author, logMessage string, when Date) error
	Mkdir(path string) error
	AddPath(path string, content []byte, props OrderedMap) error
	ChangePath(path string, content []byte, props OrderedMap) error
	DeletePath(path string) error
	CopyPath(srcPath, dstPath string, srcRevnum int, isDir bool) error
	EndCommit() error
}

// RepoMirror is the §4.8 state machine. Only one pass (the output
// pass, §5: "The SVN repository mirror is owned exclusively by the
// output pass") ever calls it. history retains a snapshot taken at
// the end of every commit so that copy_path's src_revnum can read
// the tree as it stood at any prior revision (§4.8: "historical
// queries against any prior revnum remain correct").
type RepoMirror struct {
	root       *pathMap
	history    map[int]*pathMap
	nextNodeID int64
	delegates  []MirrorDelegate
	curRevnum  int
	open       bool
}

func NewRepoMirror(delegates ...MirrorDelegate) *RepoMirror {
	root := newPathMap()
	return &RepoMirror{root: root, history: map[int]*pathMap{0: root.snapshot()}, delegates: delegates}
}

func (m *RepoMirror) Register(d MirrorDelegate) {
	m.delegates = append(m.delegates, d)
}

// StartCommit opens revnum. Violating "exactly one commit is open"
// is an Internal error (§4.8).
func (m *RepoMirror) StartCommit(revnum int, author, logMessage string, when Date) error {
	if m.open {
		return throwInternal("mirror", "start_commit(%d) called while revnum %d is still open", revnum, m.curRevnum)
	}
	m.open = true
	m.curRevnum = revnum
	for _, d := range m.delegates {
		if err := d.StartCommit(revnum, author, logMessage, when); err != nil {
			return err
		}
	}
	return nil
}

func (m *RepoMirror) requireOpen(op string) error {
	if !m.open {
		return throwInternal("mirror", "%s called with no commit open", op)
	}
	return nil
}

func (m *RepoMirror) Mkdir(path string) error {
	if err := m.requireOpen("mkdir"); err != nil {
		return err
	}
	m.nextNodeID++
	m.root.set(path, &mirrorNode{nodeID: m.nextNodeID, revnum: m.curRevnum, isDir: true})
	for _, d := range m.delegates {
		if err := d.Mkdir(path); err != nil {
			return err
		}
	}
	return nil
}

func (m *RepoMirror) AddPath(path string, content []byte, props OrderedMap) error {
	if err := m.requireOpen("add_path"); err != nil {
		return err
	}
	m.nextNodeID++
	m.root.set(path, &mirrorNode{nodeID: m.nextNodeID, revnum: m.curRevnum})
	for _, d := range m.delegates {
		if err := d.AddPath(path, content, props); err != nil {
			return err
		}
	}
	return nil
}

func (m *RepoMirror) ChangePath(path string, content []byte, props OrderedMap) error {
	if err := m.requireOpen("change_path"); err != nil {
		return err
	}
	node, ok := m.root.get(path)
	if !ok {
		return throwInternal("mirror", "change_path(%s): no such path", path)
	}
	m.root.set(path, &mirrorNode{nodeID: node.nodeID, revnum: m.curRevnum})
	for _, d := range m.delegates {
		if err := d.ChangePath(path, content, props); err != nil {
			return err
		}
	}
	return nil
}

func (m *RepoMirror) DeletePath(path string, prune bool) error {
	if err := m.requireOpen("delete_path"); err != nil {
		return err
	}
	m.root.remove(path, prune)
	for _, d := range m.delegates {
		if err := d.DeletePath(path); err != nil {
			return err
		}
	}
	return nil
}

// CopyPath copies srcPath (as it existed at srcRevnum, which the
// mirror's caller is responsible for having built up to) onto
// dstPath. enforceEmptyDst rejects a copy onto a path that already
// has content, per §4.8.
func (m *RepoMirror) CopyPath(srcPath, dstPath string, srcRevnum int, enforceEmptyDst bool, isDir bool) error {
	if err := m.requireOpen("copy_path"); err != nil {
		return err
	}
	source, ok := m.history[srcRevnum]
	if !ok {
		return throwFatal("mirror", "copy_path: revnum %d has not been committed yet", srcRevnum)
	}
	if enforceEmptyDst {
		if _, ok := m.root.get(dstPath); ok {
			return throwInternal("mirror", "copy_path: destination %s is not empty", dstPath)
		}
	}
	if !m.root.copyFrom(dstPath, source, srcPath) {
		return throwFatal("mirror", "copy_path: source %s does not exist at revnum %d", srcPath, srcRevnum)
	}
	for _, d := range m.delegates {
		if err := d.CopyPath(srcPath, dstPath, srcRevnum, isDir); err != nil {
			return err
		}
	}
	return nil
}

// FillSymbol applies every FillOp a symbol fill planned (§4.7)
// against the mirror, routing each to the corresponding primitive.
func (m *RepoMirror) FillSymbol(ops []FillOp) error {
	if err := m.requireOpen("fill_symbol"); err != nil {
		return err
	}
	for _, op := range ops {
		switch op.Kind {
		case FillCopy:
			if err := m.CopyPath(op.SourcePath, op.Path, op.SourceRevnum, false, true); err != nil {
				return err
			}
		case FillAdd:
			if err := m.CopyPath(op.SourcePath, op.Path, op.SourceRevnum, false, false); err != nil {
				return err
			}
		case FillDelete:
			if err := m.DeletePath(op.Path, true); err != nil {
				return err
			}
		default:
			return throwInternal("mirror", "fill_symbol: unknown FillOpKind %d", op.Kind)
		}
	}
	return nil
}

func (m *RepoMirror) EndCommit() error {
	if err := m.requireOpen("end_commit"); err != nil {
		return err
	}
	m.open = false
	m.history[m.curRevnum] = m.root.snapshot()
	for _, d := range m.delegates {
		if err := d.EndCommit(); err != nil {
			return err
		}
	}
	return nil
}
