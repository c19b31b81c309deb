package main

import "testing"

type recordingDelegate struct {
	events []string
}

func (r *recordingDelegate) StartCommit(revnum int, author, logMessage string, when Date) error {
	r.events = append(r.events, "start")
	return nil
}
func (r *recordingDelegate) Mkdir(path string) error {
	r.events = append(r.events, "mkdir:"+path)
	return nil
}
func (r *recordingDelegate) AddPath(path string, content []byte, props OrderedMap) error {
	r.events = append(r.events, "add:"+path)
	return nil
}
func (r *recordingDelegate) ChangePath(path string, content []byte, props OrderedMap) error {
	r.events = append(r.events, "change:"+path)
	return nil
}
func (r *recordingDelegate) DeletePath(path string) error {
	r.events = append(r.events, "delete:"+path)
	return nil
}
func (r *recordingDelegate) CopyPath(src, dst string, srcRevnum int, isDir bool) error {
	r.events = append(r.events, "copy:"+src+"->"+dst)
	return nil
}
func (r *recordingDelegate) EndCommit() error {
	r.events = append(r.events, "end")
	return nil
}

// TestMirrorSingleFileTrunk walks §8's "Single-file trunk" scenario
// through the mirror directly: r1 creates the skeleton, r2 adds a.txt,
// r3 changes it.
func TestMirrorSingleFileTrunk(t *testing.T) {
	d := &recordingDelegate{}
	m := NewRepoMirror(d)

	if err := m.StartCommit(1, "cvs2svn", "standard project directories", Date{}); err != nil {
		t.Fatalf("StartCommit(1): %v", err)
	}
	for _, dir := range []string{"trunk", "branches", "tags"} {
		if err := m.Mkdir(dir); err != nil {
			t.Fatalf("Mkdir(%s): %v", dir, err)
		}
	}
	if err := m.EndCommit(); err != nil {
		t.Fatalf("EndCommit(1): %v", err)
	}

	if err := m.StartCommit(2, "jrandom", "add a", Date{}); err != nil {
		t.Fatalf("StartCommit(2): %v", err)
	}
	if err := m.AddPath("trunk/a", []byte("hello\n"), newOrderedMap()); err != nil {
		t.Fatalf("AddPath: %v", err)
	}
	if err := m.EndCommit(); err != nil {
		t.Fatalf("EndCommit(2): %v", err)
	}

	if err := m.StartCommit(3, "jrandom", "change a", Date{}); err != nil {
		t.Fatalf("StartCommit(3): %v", err)
	}
	if err := m.ChangePath("trunk/a", []byte("world\n"), newOrderedMap()); err != nil {
		t.Fatalf("ChangePath: %v", err)
	}
	if err := m.EndCommit(); err != nil {
		t.Fatalf("EndCommit(3): %v", err)
	}

	if _, ok := m.root.get("trunk/a"); !ok {
		t.Fatal("expected trunk/a to exist in the final tree")
	}
}

func TestMirrorRejectsNestedStartCommit(t *testing.T) {
	m := NewRepoMirror()
	if err := m.StartCommit(1, "a", "b", Date{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := m.StartCommit(2, "a", "b", Date{})
	if err == nil {
		t.Fatal("expected an error starting a second commit while one is open")
	}
	ce, ok := err.(*ConversionError)
	if !ok || ce.Kind != Internal {
		t.Fatalf("expected an Internal ConversionError, got %#v", err)
	}
}

func TestMirrorRejectsMutationWithoutOpenCommit(t *testing.T) {
	m := NewRepoMirror()
	err := m.Mkdir("trunk")
	if err == nil {
		t.Fatal("expected mkdir without an open commit to fail")
	}
}

// TestMirrorCopyPathReadsHistoricalRevision is the crux of §4.8's
// "historical queries against any prior revnum remain correct": a
// copy at revnum N must see the tree as it stood at N, not the
// mutable current tree, even after later commits changed it.
func TestMirrorCopyPathReadsHistoricalRevision(t *testing.T) {
	m := NewRepoMirror()

	if err := m.StartCommit(1, "a", "b", Date{}); err != nil {
		t.Fatal(err)
	}
	if err := m.AddPath("trunk/a", []byte("v1"), newOrderedMap()); err != nil {
		t.Fatal(err)
	}
	if err := m.EndCommit(); err != nil {
		t.Fatal(err)
	}

	if err := m.StartCommit(2, "a", "b", Date{}); err != nil {
		t.Fatal(err)
	}
	if err := m.ChangePath("trunk/a", []byte("v2"), newOrderedMap()); err != nil {
		t.Fatal(err)
	}
	if err := m.EndCommit(); err != nil {
		t.Fatal(err)
	}

	if err := m.StartCommit(3, "a", "b", Date{}); err != nil {
		t.Fatal(err)
	}
	// Copy trunk as it stood at r1 (before the r2 change) to a tag.
	if err := m.CopyPath("trunk", "tags/REL_1", 1, true, true); err != nil {
		t.Fatalf("CopyPath from r1: %v", err)
	}
	if err := m.EndCommit(); err != nil {
		t.Fatal(err)
	}

	node, ok := m.root.get("tags/REL_1/a")
	if !ok {
		t.Fatal("expected tags/REL_1/a to exist after the copy")
	}
	if node.revnum != 1 {
		t.Errorf("expected the copied node to carry revnum 1 (its state at copy time), got %d", node.revnum)
	}
}

func TestMirrorCopyPathRejectsUnknownRevnum(t *testing.T) {
	m := NewRepoMirror()
	if err := m.StartCommit(1, "a", "b", Date{}); err != nil {
		t.Fatal(err)
	}
	err := m.CopyPath("trunk", "tags/REL_1", 99, false, true)
	if err == nil {
		t.Fatal("expected copy from an uncommitted revnum to fail")
	}
}
