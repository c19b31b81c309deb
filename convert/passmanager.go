// Pass manager (§2): runs the fixed sequence of passes over a shared
// ArtifactStore, honoring a caller-selected pass range (name, number,
// comma list, or START:END per SPEC_FULL's supplemented pass-range
// feature) and resuming from on-disk artifacts when earlier passes
// already ran (§6).
//
// Grounded on svnread.go's svnProcess, which drives its own fixed
// phase sequence (svnFilterProperties -> ... -> svnProcessRenumber)
// over one shared parser state; generalized here to a configurable,
// resumable pass list instead of a single hardcoded phase order.
//
// SPDX-License-Identifier: BSD-2-Clause

package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// passDef names one pipeline stage, in the fixed order §2 specifies.
type passDef struct {
	number int
	name   string
	run    func(*Driver) error
}

// Driver carries every piece of mutable state the passes thread
// between each other — the passes themselves stay free functions
// taking *Driver so each one's signature says exactly what it reads
// and writes, instead of closing over ambient package state.
type Driver struct {
	ctx     *Context
	store   *ArtifactStore
	baton   *Baton
	log     *logrus.Entry
	srcRoot string

	nextFileID fileidx
	nextItemID itemidx
	nextCSID   changesetidx

	files       []CVSFile
	fileByID    map[fileidx]CVSFile
	itemsByID   map[itemidx]CVSItem
	itemsByFile map[fileidx][]CVSItem
	symbolTable *SymbolTable
	symbols     map[string]*Symbol
	changesets  []Changeset
	sequenced   []Changeset

	mirror    *RepoMirror
	delegates []MirrorDelegate
	reader    RevisionReader
}

// NewDriver builds a Driver, declares every artifact each pass may
// write (§4.1: "reading an undeclared artifact is a programmer
// error"), and wires the revision reader and output delegates
// selected by opts.
func NewDriver(ctx *Context, store *ArtifactStore, baton *Baton, log *logrus.Entry, srcRoot string) (*Driver, error) {
	store.Declare("ingest", "files", Permanent)
	store.Declare("ingest", "items", Temporary)
	store.Declare("itemgraph", "items", Temporary)
	store.Declare("symbols", "table", Permanent)
	store.Declare("grouper", "changesets", Temporary)
	store.Declare("sequencer", "order", Permanent)

	d := &Driver{ctx: ctx, store: store, baton: baton, log: log, srcRoot: srcRoot}

	if ctx.Opts.ReaderKind == "delta" {
		d.reader = NewDeltaReader(srcRoot, ctx.Opts.Encodings)
	} else {
		d.reader = NewCheckoutReader(srcRoot, ctx.Opts.Encodings)
	}
	if err := d.reader.start(); err != nil {
		return nil, err
	}

	delegates, mirror, err := buildDelegates(ctx, baton, log)
	if err != nil {
		return nil, err
	}
	d.delegates = delegates
	d.mirror = mirror

	return d, nil
}

// buildDelegates assembles the MirrorDelegate set named by §6's
// output flags: stdout progress always runs; --dump-file adds the
// dumpfile writer; a target repository path (without --dump-only)
// adds the live svnadmin writer.
func buildDelegates(ctx *Context, baton *Baton, log *logrus.Entry) ([]MirrorDelegate, *RepoMirror, error) {
	var delegates []MirrorDelegate
	delegates = append(delegates, NewStdoutDelegate(baton))

	if ctx.Opts.DumpFile != "" {
		f, err := os.Create(ctx.Opts.DumpFile)
		if err != nil {
			return nil, nil, throwFatal("output", "cannot create dump file %s: %v", ctx.Opts.DumpFile, err)
		}
		delegates = append(delegates, NewDumpfileDelegate(f))
	}
	if !ctx.Opts.DumpOnly && ctx.Opts.TargetRepository != "" {
		if !ctx.Opts.ExistingRepos {
			if _, err := os.Stat(ctx.Opts.TargetRepository); err == nil {
				return nil, nil, throwFatal("output", "target repository %s already exists (use --existing-svnrepos to load into it)", ctx.Opts.TargetRepository)
			}
		}
		live, err := NewLiveRepoDelegate(ctx.Opts.TargetRepository, ctx.Opts.FsType, log)
		if err != nil {
			return nil, nil, err
		}
		delegates = append(delegates, live)
	}

	mirror := NewRepoMirror(delegates...)
	return delegates, mirror, nil
}

// ensureFiles makes d.files/d.fileByID/d.itemsByID/d.itemsByFile
// available from the "ingest" artifacts when this process never ran
// passIngest itself (§6 resumability: a pass range starting above
// pass 1 reloads every earlier pass's output from disk rather than
// reading zero-valued Driver fields).
func (d *Driver) ensureFiles() error {
	if d.files != nil {
		return nil
	}

	fr, err := d.store.Open("ingest", "files")
	if err != nil {
		return err
	}
	defer fr.Close()
	var files []CVSFile
	for {
		var f CVSFile
		if err := fr.Next(&f); err == io.EOF {
			break
		} else if err != nil {
			return err
		}
		files = append(files, f)
	}
	d.files = files
	d.fileByID = make(map[fileidx]CVSFile, len(files))
	for _, f := range files {
		d.fileByID[f.ID] = f
	}

	ir, err := d.store.Open("ingest", "items")
	if err != nil {
		return err
	}
	defer ir.Close()
	d.itemsByID = make(map[itemidx]CVSItem)
	d.itemsByFile = make(map[fileidx][]CVSItem)
	for {
		var it CVSItem
		if err := ir.Next(&it); err == io.EOF {
			break
		} else if err != nil {
			return err
		}
		d.itemsByID[it.ID] = it
		d.itemsByFile[it.FileID] = append(d.itemsByFile[it.FileID], it)
	}
	return nil
}

// ensureItemGraph makes d.symbolTable (and the post-item-graph,
// bump-corrected d.itemsByID/d.itemsByFile) available from the
// "itemgraph" artifact, rebuilding the symbol table's usage stats from
// the same items rather than re-running processFileItems (the cycle
// rejection and timestamp bumping it performs already happened when
// that artifact was written).
func (d *Driver) ensureItemGraph() error {
	if d.symbolTable != nil {
		return nil
	}
	if err := d.ensureFiles(); err != nil {
		return err
	}

	r, err := d.store.Open("itemgraph", "items")
	if err != nil {
		return err
	}
	defer r.Close()

	itemsByID := make(map[itemidx]CVSItem)
	itemsByFile := make(map[fileidx][]CVSItem)
	var all []CVSItem
	for {
		var it CVSItem
		if err := r.Next(&it); err == io.EOF {
			break
		} else if err != nil {
			return err
		}
		itemsByID[it.ID] = it
		itemsByFile[it.FileID] = append(itemsByFile[it.FileID], it)
		all = append(all, it)
	}
	d.itemsByID = itemsByID
	d.itemsByFile = itemsByFile
	d.symbolTable = rebuildSymbolTable(all)
	return nil
}

// fileSymbolKey dedupes a (file, symbol) pair the same way
// processFileItems' per-file seenSymbol set does, so a symbol used on
// several revisions of the same file is only counted once per file.
type fileSymbolKey struct {
	file   fileidx
	symbol string
}

// rebuildSymbolTable reconstructs the §4.4 per-symbol usage stats
// straight from a flat item list, mirroring processFileItems'
// table.observe/observeRevisionOnBranch calls without needing that
// function's file-by-file streaming or its cycle-rejection side effect.
func rebuildSymbolTable(items []CVSItem) *SymbolTable {
	table := newSymbolTable()
	seen := make(map[fileSymbolKey]bool)
	for _, item := range items {
		switch item.Kind {
		case ItemRevision:
			if item.BranchOfOrigin != "" {
				table.observeRevisionOnBranch(item.BranchOfOrigin)
			}
		case ItemBranch, ItemTag:
			key := fileSymbolKey{file: item.FileID, symbol: item.SymbolName}
			if seen[key] {
				continue
			}
			seen[key] = true
			stats := table.observe(item.SymbolName)
			stats.FilesTotal++
			if item.Kind == ItemBranch {
				stats.FilesAsBranch++
			} else {
				stats.FilesAsTag++
			}
		}
	}
	return table
}

// ensureSymbols makes d.symbols available from the "symbols" artifact.
func (d *Driver) ensureSymbols() error {
	if d.symbols != nil {
		return nil
	}
	if err := d.ensureItemGraph(); err != nil {
		return err
	}

	r, err := d.store.Open("symbols", "table")
	if err != nil {
		return err
	}
	defer r.Close()
	symbols := make(map[string]*Symbol)
	for {
		var s Symbol
		if err := r.Next(&s); err == io.EOF {
			break
		} else if err != nil {
			return err
		}
		sym := s
		symbols[sym.Name] = &sym
	}
	d.symbols = symbols
	return nil
}

// ensureChangesets makes d.changesets available from the "grouper"
// artifact.
func (d *Driver) ensureChangesets() error {
	if d.changesets != nil {
		return nil
	}
	if err := d.ensureSymbols(); err != nil {
		return err
	}

	r, err := d.store.Open("grouper", "changesets")
	if err != nil {
		return err
	}
	defer r.Close()
	var all []Changeset
	for {
		var cs Changeset
		if err := r.Next(&cs); err == io.EOF {
			break
		} else if err != nil {
			return err
		}
		all = append(all, cs)
	}
	d.changesets = all
	return nil
}

// ensureSequenced makes d.sequenced available from the "sequencer"
// artifact, which records only each changeset's ID in final order;
// the full Changeset values are looked up from d.changesets.
func (d *Driver) ensureSequenced() error {
	if d.sequenced != nil {
		return nil
	}
	if err := d.ensureChangesets(); err != nil {
		return err
	}

	byID := make(map[changesetidx]Changeset, len(d.changesets))
	for _, cs := range d.changesets {
		byID[cs.ID] = cs
	}

	r, err := d.store.Open("sequencer", "order")
	if err != nil {
		return err
	}
	defer r.Close()
	var ordered []Changeset
	for {
		var id changesetidx
		if err := r.Next(&id); err == io.EOF {
			break
		} else if err != nil {
			return err
		}
		cs, ok := byID[id]
		if !ok {
			return throwInternal("pass-manager", "sequencer order references unknown changeset %d", id)
		}
		ordered = append(ordered, cs)
	}
	d.sequenced = ordered
	return nil
}

var allPasses = []passDef{
	{1, "ingest", passIngest},
	{2, "itemgraph", passItemGraph},
	{3, "symbols", passSymbols},
	{4, "grouper", passGrouper},
	{5, "sequencer", passSequencer},
	{6, "output", passOutput},
}

// passIngest runs §4.2 over the CVS module root.
func passIngest(d *Driver) error {
	files, items, err := IngestModule(d.ctx, d.srcRoot, &d.nextFileID, &d.nextItemID)
	if err != nil {
		return err
	}
	d.files = files
	d.fileByID = make(map[fileidx]CVSFile, len(files))
	for _, f := range files {
		d.fileByID[f.ID] = f
	}
	d.itemsByID = make(map[itemidx]CVSItem, len(items))
	d.itemsByFile = make(map[fileidx][]CVSItem)
	for _, it := range items {
		d.itemsByID[it.ID] = it
		d.itemsByFile[it.FileID] = append(d.itemsByFile[it.FileID], it)
	}

	w, err := d.store.Create("ingest", "files", false)
	if err != nil {
		return err
	}
	for _, f := range files {
		if err := w.Append(f); err != nil {
			w.Close()
			return err
		}
	}
	if err := w.Close(); err != nil {
		return err
	}

	iw, err := d.store.Create("ingest", "items", false)
	if err != nil {
		return err
	}
	for _, it := range items {
		if err := iw.Append(it); err != nil {
			iw.Close()
			return err
		}
	}
	return iw.Close()
}

// passItemGraph runs §4.3 file by file, holding only one file's items
// resident at a time (§5).
func passItemGraph(d *Driver) error {
	if err := d.ensureFiles(); err != nil {
		return err
	}

	table := newSymbolTable()
	var fileIDs []fileidx
	for _, f := range d.files {
		fileIDs = append(fileIDs, f.ID)
	}

	w, err := d.store.Create("itemgraph", "items", false)
	if err != nil {
		return err
	}
	defer w.Close()

	for _, fid := range fileIDs {
		graph, err := processFileItems(fid, d.itemsByFile[fid], table, d.log)
		if err != nil {
			return withFile(err, "itemgraph", fmt.Sprintf("file-%d", fid))
		}
		d.itemsByFile[fid] = graph.Items
		for _, it := range graph.Items {
			d.itemsByID[it.ID] = it
			if err := w.Append(it); err != nil {
				return err
			}
		}
		for _, bump := range graph.Bumps {
			d.log.Warnf("itemgraph: file %d revision %s bumped %s -> %s", bump.FileID, bump.Revnum, bump.Original, bump.Bumped)
		}
	}

	d.symbolTable = table
	return nil
}

// passSymbols runs §4.4's rule chain over every symbol the item-graph
// pass discovered.
func passSymbols(d *Driver) error {
	if err := d.ensureItemGraph(); err != nil {
		return err
	}

	symbolDefault := SymbolDefault(d.ctx.Opts.SymbolDefault)
	symbols, err := d.symbolTable.Classify(d.ctx.SymbolRules, symbolDefault)
	if err != nil {
		return err
	}
	renamed := make(map[string]*Symbol, len(symbols))
	for name, sym := range symbols {
		newName := d.ctx.applyRenames(name)
		sym.Name = newName
		renamed[newName] = sym
	}
	d.symbols = renamed

	w, err := d.store.Create("symbols", "table", false)
	if err != nil {
		return err
	}
	for _, name := range sortedSymbolNames(d.symbols) {
		if err := w.Append(*d.symbols[name]); err != nil {
			w.Close()
			return err
		}
	}
	return w.Close()
}

// passGrouper runs §4.5's three sub-passes: revision clustering,
// post-commit synthesis, symbol-fill changeset emission.
func passGrouper(d *Driver) error {
	if err := d.ensureSymbols(); err != nil {
		return err
	}

	var revisionItems []CVSItem
	fileOf := func(id itemidx) fileidx { return d.itemsByID[id].FileID }
	for _, it := range d.itemsByID {
		if it.Kind == ItemRevision {
			revisionItems = append(revisionItems, it)
		}
	}

	revCS := GroupRevisions(revisionItems, fileOf, DefaultGroupWindow, &d.nextCSID)
	postCS := SynthesizePostCommits(d.files, d.itemsByID, revCS, &d.nextCSID, d.log)
	symCS := EmitSymbolChangesets(d.symbols, d.itemsByFile, &d.nextCSID)

	all := make([]Changeset, 0, len(revCS)+len(postCS)+len(symCS))
	all = append(all, revCS...)
	all = append(all, postCS...)
	all = append(all, symCS...)
	d.changesets = all

	w, err := d.store.Create("grouper", "changesets", false)
	if err != nil {
		return err
	}
	for _, cs := range all {
		if err := w.Append(cs); err != nil {
			w.Close()
			return err
		}
	}
	return w.Close()
}

// passSequencer runs §4.6, building the cross-reference tables
// Sequence needs from the already-ingested item and changeset data.
func passSequencer(d *Driver) error {
	if err := d.ensureChangesets(); err != nil {
		return err
	}

	in := SequenceInputs{
		RevisionItemAt:          map[fileRevnumKey]itemidx{},
		BranchCreationChangeset: map[string]changesetidx{},
	}
	for id, item := range d.itemsByID {
		if item.Kind == ItemRevision {
			in.RevisionItemAt[fileRevnumKey{file: item.FileID, revnum: item.Revnum}] = id
		}
	}
	for _, cs := range d.changesets {
		if cs.Kind != ChangesetSymbolFill {
			continue
		}
		if sym, ok := d.symbols[cs.SymbolName]; ok && sym.Classification == ClassBranch {
			in.BranchCreationChangeset[cs.SymbolName] = cs.ID
		}
	}

	ordered, err := Sequence(d.changesets, d.itemsByID, in, d.ctx.Opts.GraphFile)
	if err != nil {
		return err
	}
	d.sequenced = ordered

	w, err := d.store.Create("sequencer", "order", false)
	if err != nil {
		return err
	}
	for _, cs := range ordered {
		if err := w.Append(cs.ID); err != nil {
			w.Close()
			return err
		}
	}
	return w.Close()
}

// passOutput runs §4.7/§4.8: for each sequenced changeset, either
// applies its items directly to the mirror (Revision/PostCommit) or
// plans and applies a symbol fill (SymbolFill), then hands every
// mutation to the registered MirrorDelegates.
func passOutput(d *Driver) error {
	if err := d.ensureSequenced(); err != nil {
		return err
	}
	if d.ctx.Opts.DryRun {
		return nil
	}

	revnum := 0
	existingPaths := map[string]bool{}

	for _, cs := range d.sequenced {
		revnum++
		author, logMsg, when := changesetAttribution(d, cs)
		if err := d.mirror.StartCommit(revnum, author, logMsg, when); err != nil {
			return err
		}

		switch cs.Kind {
		case ChangesetRevision, ChangesetPostCommit:
			if err := applyRevisionChangeset(d, cs, existingPaths); err != nil {
				return err
			}
		case ChangesetSymbolFill:
			if err := applySymbolFill(d, cs, revnum, existingPaths); err != nil {
				return err
			}
		default:
			return throwInternal("output", "changeset %d has unhandled kind %s", cs.ID, cs.Kind)
		}

		if err := d.mirror.EndCommit(); err != nil {
			return err
		}
	}
	return nil
}

func changesetAttribution(d *Driver, cs Changeset) (author, logMsg string, when Date) {
	author = cs.Author
	if c, ok := d.ctx.Authors[author]; ok {
		author = c.FullName
	}
	when = cs.MinTime
	switch cs.Kind {
	case ChangesetPostCommit:
		logMsg = "cvs2svn-go: default-branch synchronization to trunk"
	case ChangesetSymbolFill:
		logMsg = fmt.Sprintf("cvs2svn-go: fill %s", cs.SymbolName)
	default:
		logMsg = "cvs2svn-go: converted commit"
	}
	return
}

func basePathFor(d *Driver, item CVSItem) string {
	if item.BranchOfOrigin == "" {
		return d.ctx.Opts.TrunkBase
	}
	return d.ctx.Opts.BranchesBase + "/" + item.BranchOfOrigin
}

func applyRevisionChangeset(d *Driver, cs Changeset, existingPaths map[string]bool) error {
	for _, id := range cs.ItemIDs {
		item := d.itemsByID[id]
		if item.Kind != ItemRevision {
			continue
		}
		file := fileByID(d, item.FileID)
		targetPath := basePathFor(d, item) + "/" + file.Path

		if item.Deleted {
			if err := d.mirror.DeletePath(targetPath, true); err != nil {
				return err
			}
			delete(existingPaths, targetPath)
			continue
		}

		content, err := d.reader.Content(file, item.Revnum)
		if err != nil {
			return err
		}
		sample := content
		if len(sample) > sniffLen {
			sample = sample[:sniffLen]
		}
		props := applyPropertyRules(d.ctx.PropertyRules, targetPath, sample)

		if existingPaths[targetPath] {
			err = d.mirror.ChangePath(targetPath, content, props)
		} else {
			err = d.mirror.AddPath(targetPath, content, props)
			existingPaths[targetPath] = true
		}
		if err != nil {
			return withFile(err, "output", file.Path)
		}
	}
	return nil
}

func applySymbolFill(d *Driver, cs Changeset, revnum int, existingPaths map[string]bool) error {
	sym := d.symbols[cs.SymbolName]
	base := d.ctx.Opts.TagsBase + "/" + cs.SymbolName
	if sym != nil && sym.Classification == ClassBranch {
		base = d.ctx.Opts.BranchesBase + "/" + cs.SymbolName
	}

	desired := map[string]FillSource{}
	for _, id := range cs.ItemIDs {
		item := d.itemsByID[id]
		if item.Kind != ItemBranch && item.Kind != ItemTag {
			continue
		}
		file := fileByID(d, item.FileID)
		srcRev := revnum - 1
		if srcRev < 0 {
			srcRev = 0
		}
		if other, ok := resolveFillSourceRevnum(d, item); ok {
			srcRev = other
		}
		desired[file.Path] = FillSource{Base: d.ctx.Opts.TrunkBase, Revnum: srcRev}
	}

	existing := map[string]bool{}
	for p := range existingPaths {
		if strings.HasPrefix(p, base+"/") {
			existing[p] = true
		}
	}

	ops := PlanFill(base, desired, existing)
	if err := d.mirror.FillSymbol(ops); err != nil {
		return err
	}
	for _, op := range ops {
		switch op.Kind {
		case FillCopy, FillAdd:
			existingPaths[op.Path] = true
		case FillDelete:
			delete(existingPaths, op.Path)
		}
	}
	return nil
}

// resolveFillSourceRevnum finds the svn revnum at which item's source
// revision was committed, so the fill copies from the commit that
// actually produced the tagged/branched content rather than from
// whatever the mirror's current head happens to be.
func resolveFillSourceRevnum(d *Driver, item CVSItem) (int, bool) {
	target, ok := findRevisionItem(d, item.FileID, item.Revnum)
	if !ok {
		return 0, false
	}
	for i, cs := range d.sequenced {
		for _, id := range cs.ItemIDs {
			if id == target {
				return i + 1, true
			}
		}
	}
	return 0, false
}

func findRevisionItem(d *Driver, file fileidx, revnum string) (itemidx, bool) {
	for _, it := range d.itemsByFile[file] {
		if it.Kind == ItemRevision && it.Revnum == revnum {
			return it.ID, true
		}
	}
	return 0, false
}

func fileByID(d *Driver, id fileidx) CVSFile {
	return d.fileByID[id]
}

// ResolvePassRange parses §6's pass-range syntax: a bare name or
// number, a comma-separated list of either, or a START:END numeric
// range (SPEC_FULL supplemented feature #3). "" selects every pass.
func ResolvePassRange(spec string) ([]passDef, error) {
	if spec == "" {
		return allPasses, nil
	}

	byName := map[string]passDef{}
	byNumber := map[int]passDef{}
	for _, p := range allPasses {
		byName[p.name] = p
		byNumber[p.number] = p
	}

	if strings.Contains(spec, ":") && !strings.Contains(spec, ",") {
		parts := strings.SplitN(spec, ":", 2)
		start, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
		end, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err1 != nil || err2 != nil {
			return nil, throwFatal("pass-manager", "malformed pass range %q", spec)
		}
		var out []passDef
		for _, p := range allPasses {
			if p.number >= start && p.number <= end {
				out = append(out, p)
			}
		}
		if len(out) == 0 {
			return nil, throwFatal("pass-manager", "pass range %q selects no passes", spec)
		}
		return out, nil
	}

	var out []passDef
	for _, tok := range strings.Split(spec, ",") {
		tok = strings.TrimSpace(tok)
		if n, err := strconv.Atoi(tok); err == nil {
			p, ok := byNumber[n]
			if !ok {
				return nil, throwFatal("pass-manager", "no such pass number %d", n)
			}
			out = append(out, p)
			continue
		}
		p, ok := byName[tok]
		if !ok {
			return nil, throwFatal("pass-manager", "no such pass %q", tok)
		}
		out = append(out, p)
	}
	return out, nil
}

// RunPasses drives d through every pass in passes, in order, logging
// each pass's start and finish through d.log.
// A pass that fails discards its own partially-written artifacts
// (§5/§7) before the error propagates up to main().
func RunPasses(d *Driver, passes []passDef) error {
	lastPassNumber := allPasses[len(allPasses)-1].number
	ranFinalPass := false

	for _, p := range passes {
		d.log.Infof("pass %d (%s): starting", p.number, p.name)
		if err := p.run(d); err != nil {
			d.store.Discard(p.name)
			return withFile(err, p.name, "")
		}
		if p.number == lastPassNumber {
			ranFinalPass = true
		}
		d.log.Infof("pass %d (%s): done", p.number, p.name)
	}

	// Only reclaim Temporary artifacts once the final pass has actually
	// consumed them: a pass range that stops short (e.g. --passes 1:3)
	// leaves them on disk so a later invocation covering the remaining
	// passes can reload them via the Driver's ensure* reload methods.
	if ranFinalPass {
		d.store.Cleanup(d.ctx.Opts.SkipCleanup)
	}
	return nil
}
