package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func TestResolvePassRangeEmptySelectsAll(t *testing.T) {
	out, err := ResolvePassRange("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != len(allPasses) {
		t.Fatalf("expected all %d passes, got %d", len(allPasses), len(out))
	}
}

func TestResolvePassRangeStartEnd(t *testing.T) {
	out, err := ResolvePassRange("2:4")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("expected 3 passes for 2:4, got %d", len(out))
	}
	if out[0].number != 2 || out[len(out)-1].number != 4 {
		t.Errorf("expected passes 2..4, got %d..%d", out[0].number, out[len(out)-1].number)
	}
}

func TestResolvePassRangeByNameAndNumber(t *testing.T) {
	out, err := ResolvePassRange("ingest,3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 passes, got %d", len(out))
	}
	if out[0].name != "ingest" || out[1].number != 3 {
		t.Errorf("unexpected passes: %+v", out)
	}
}

func TestResolvePassRangeRejectsUnknownName(t *testing.T) {
	if _, err := ResolvePassRange("no-such-pass"); err == nil {
		t.Fatal("expected an unknown pass name to be rejected")
	}
}

func TestResolvePassRangeRejectsMalformedRange(t *testing.T) {
	if _, err := ResolvePassRange("x:y"); err == nil {
		t.Fatal("expected a non-numeric range to be rejected")
	}
}

func TestDefaultRunOptionsPassRangeCoversAllPasses(t *testing.T) {
	out, err := ResolvePassRange(defaultRunOptions().PassRange)
	if err != nil {
		t.Fatalf("default pass range must be resolvable: %v", err)
	}
	if len(out) != len(allPasses) {
		t.Fatalf("expected default pass range to cover every pass, got %d of %d", len(out), len(allPasses))
	}
}

// fakeRevisionReader stands in for checkoutReader/deltaReader so this
// test never shells out to `co`; content is deterministic per revnum.
type fakeRevisionReader struct{}

func (fakeRevisionReader) start() error { return nil }
func (fakeRevisionReader) finish() error { return nil }
func (fakeRevisionReader) Content(file CVSFile, revnum string) ([]byte, error) {
	return []byte("content of " + file.Path + " at " + revnum), nil
}

// declareDriverArtifacts mirrors NewDriver's artifact declarations,
// needed here since these tests build a Driver by hand to avoid
// shelling out to rlog/co/svnadmin.
func declareDriverArtifacts(store *ArtifactStore) {
	store.Declare("ingest", "files", Permanent)
	store.Declare("ingest", "items", Temporary)
	store.Declare("itemgraph", "items", Temporary)
	store.Declare("symbols", "table", Permanent)
	store.Declare("grouper", "changesets", Temporary)
	store.Declare("sequencer", "order", Permanent)
}

// writeIngestFixture simulates passIngest's artifact output for one
// file with two trunk revisions, without running the real ingest pass.
func writeIngestFixture(t *testing.T, store *ArtifactStore) {
	t.Helper()
	file := CVSFile{ID: 1, Path: "a.txt", Encoding: EncodingText}
	items := []CVSItem{
		{ID: 1, FileID: 1, Kind: ItemRevision, Revnum: "1.1", Author: "jrandom",
			Timestamp: newDate(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC))},
		{ID: 2, FileID: 1, Kind: ItemRevision, Revnum: "1.2", Author: "jrandom",
			Timestamp: newDate(time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC)),
			PredecessorID: 1, HasPredecessor: true},
	}

	fw, err := store.Create("ingest", "files", false)
	if err != nil {
		t.Fatalf("Create ingest/files: %v", err)
	}
	if err := fw.Append(file); err != nil {
		t.Fatalf("Append file: %v", err)
	}
	if err := fw.Close(); err != nil {
		t.Fatalf("Close ingest/files: %v", err)
	}

	iw, err := store.Create("ingest", "items", false)
	if err != nil {
		t.Fatalf("Create ingest/items: %v", err)
	}
	for _, it := range items {
		if err := iw.Append(it); err != nil {
			t.Fatalf("Append item: %v", err)
		}
	}
	if err := iw.Close(); err != nil {
		t.Fatalf("Close ingest/items: %v", err)
	}
}

// newBareDriver builds a Driver directly (not via NewDriver) so the
// test never shells out to an external reader or live repository; only
// the fields the passes actually read are populated, the rest are left
// zero-valued the way a freshly-started process resuming mid-pipeline
// would see them.
func newBareDriver(ctx *Context, store *ArtifactStore, dump *bytes.Buffer) *Driver {
	log := logrus.NewEntry(logrus.New())
	delegate := NewDumpfileDelegate(dump)
	return &Driver{
		ctx:       ctx,
		store:     store,
		log:       log,
		delegates: []MirrorDelegate{delegate},
		mirror:    NewRepoMirror(delegate),
		reader:    fakeRevisionReader{},
	}
}

// TestResumabilityAcrossPassRangeSplit pins §8 Testable Property 6:
// running the passes after ingest in one Driver produces the same dumpfile bytes as
// running an early slice in one Driver, discarding it, then running the
// rest in a brand new Driver that reloads every earlier pass's state
// from the artifact store instead of from in-memory fields.
func TestResumabilityAcrossPassRangeSplit(t *testing.T) {
	ctx, err := NewContext(defaultRunOptions(), nil)
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}

	// Single-process baseline: passes 2:6 run against one Driver, with
	// ingest simulated by writeIngestFixture as in the split run below.
	dir1 := t.TempDir()
	store1, err := NewArtifactStore(dir1)
	if err != nil {
		t.Fatalf("NewArtifactStore: %v", err)
	}
	declareDriverArtifacts(store1)
	writeIngestFixture(t, store1)

	var fullOut bytes.Buffer
	full := newBareDriver(ctx, store1, &fullOut)
	for _, p := range allPasses[1:] {
		if err := p.run(full); err != nil {
			t.Fatalf("pass %s (single-process run): %v", p.name, err)
		}
	}

	// Split run: passes 1:3 (ingest simulated, itemgraph, symbols) on
	// one Driver, passes 4:6 (grouper, sequencer, output) on a second,
	// freshly constructed Driver sharing only the on-disk store.
	dir2 := t.TempDir()
	store2, err := NewArtifactStore(dir2)
	if err != nil {
		t.Fatalf("NewArtifactStore: %v", err)
	}
	declareDriverArtifacts(store2)
	writeIngestFixture(t, store2)

	var discard bytes.Buffer
	firstHalf := newBareDriver(ctx, store2, &discard)
	if err := passItemGraph(firstHalf); err != nil {
		t.Fatalf("passItemGraph: %v", err)
	}
	if err := passSymbols(firstHalf); err != nil {
		t.Fatalf("passSymbols: %v", err)
	}

	var splitOut bytes.Buffer
	secondHalf := newBareDriver(ctx, store2, &splitOut)
	if err := passGrouper(secondHalf); err != nil {
		t.Fatalf("passGrouper (resumed): %v", err)
	}
	if err := passSequencer(secondHalf); err != nil {
		t.Fatalf("passSequencer (resumed): %v", err)
	}
	if err := passOutput(secondHalf); err != nil {
		t.Fatalf("passOutput (resumed): %v", err)
	}

	if fullOut.Len() == 0 {
		t.Fatal("expected the single-process run to produce nonempty dumpfile output")
	}
	if fullOut.String() != splitOut.String() {
		t.Errorf("split pass-range run produced different dumpfile bytes than a single-process run:\nfull:\n%s\nsplit:\n%s", fullOut.String(), splitOut.String())
	}
}

// TestRunPassesKeepsTemporaryArtifactsUntilFinalPass makes sure a
// partial pass range never reclaims the Temporary artifacts a later
// invocation needs to resume from.
func TestRunPassesKeepsTemporaryArtifactsUntilFinalPass(t *testing.T) {
	ctx, err := NewContext(defaultRunOptions(), nil)
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	dir := t.TempDir()
	store, err := NewArtifactStore(dir)
	if err != nil {
		t.Fatalf("NewArtifactStore: %v", err)
	}
	declareDriverArtifacts(store)
	writeIngestFixture(t, store)

	var buf bytes.Buffer
	d := newBareDriver(ctx, store, &buf)
	passes, err := ResolvePassRange("2:3")
	if err != nil {
		t.Fatalf("ResolvePassRange: %v", err)
	}
	if err := RunPasses(d, passes); err != nil {
		t.Fatalf("RunPasses: %v", err)
	}

	if _, err := store.Open("itemgraph", "items"); err != nil {
		t.Errorf("expected itemgraph/items to survive a partial pass range, got: %v", err)
	}
}
