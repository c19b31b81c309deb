// RCS ingest adapter (§4.2): shells out to the real `rlog`/`co`
// binaries to enumerate a CVS module's files and their revision
// history. Parsing RCS ,v byte format itself is explicitly out of
// scope (§1 Non-goals) — this file only ever reads rlog's own text
// output and co's checked-out bytes.
//
// Grounded on surgeon/extractor.go's HgExtractor.capture/mustCapture/
// byLine idiom (shell out via go-shellquote, capture stdout, error on
// nonzero exit) applied here to rlog instead of hg, and on
// reposurgeon.go's ianaindex.IANA.Encoding transcode path (§4.2
// "encoding fallback chain", SPEC_FULL supplemented feature #1) for
// recovering non-UTF-8 log messages.
//
// SPDX-License-Identifier: BSD-2-Clause

package main

import (
	"bufio"
	"bytes"
	"crypto/sha1"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/h2non/filetype"
	shellquote "github.com/kballard/go-shellquote"
	"golang.org/x/text/encoding/ianaindex"
)

// rcsParser is the seam between the ingest pass and whatever actually
// produces per-file revision metadata; the only implementation shipped
// here shells out to rlog, but the interface exists so a future
// delta-parsing implementation (explicitly out of scope per §1) could
// be swapped in without touching the rest of the pipeline.
type rcsParser interface {
	// listFiles returns every RCS file's module-relative path under root.
	listFiles(root string) ([]string, error)
	// parseLog returns rlog-style history for one file, in RCS-recorded
	// order (newest first on trunk, per rlog's convention).
	parseLog(root, relPath string) (*rlogResult, error)
}

// rlogResult is one file's parsed rlog output.
type rlogResult struct {
	head          string
	defaultBranch string
	executable    bool
	symbols       map[string]string // symbol name -> revnum (even depth = branch)
	revisions     []rlogRevision
}

type rlogRevision struct {
	revnum    string
	author    string
	when      time.Time
	state     string // "dead" marks a CVS delete
	logDigest [20]byte
}

// rlogExtractor is the sole rcsParser implementation: it runs the
// real `rlog`/`co` commands from PATH, mirroring the teacher's "always
// shell out to the real VCS binary" extractor shape rather than
// reimplementing RCS parsing.
type rlogExtractor struct {
	encodings []string // ianaindex names, tried in order (§4.2 fallback chain)
}

func newRlogExtractor(encodings []string) *rlogExtractor {
	if len(encodings) == 0 {
		encodings = []string{"ascii"}
	}
	return &rlogExtractor{encodings: encodings}
}

// capture mirrors HgExtractor.capture: join argv with shellquote for
// logging, run it, and surface stderr folded into the returned error.
func (r *rlogExtractor) capture(dir string, cmd ...string) ([]byte, error) {
	joined := shellquote.Join(cmd...)
	c := exec.Command(cmd[0], cmd[1:]...)
	c.Dir = dir
	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr
	if err := c.Run(); err != nil {
		return nil, throwFatal("ingest", "command %s failed: %v: %s", joined, err, stderr.String())
	}
	return stdout.Bytes(), nil
}

func (r *rlogExtractor) listFiles(root string) ([]string, error) {
	var out []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !strings.HasSuffix(path, ",v") {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = strings.TrimSuffix(rel, ",v")
		rel = strings.Replace(rel, string(filepath.Separator)+"Attic"+string(filepath.Separator), string(filepath.Separator), 1)
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, throwFatal("ingest", "walking CVS module root %s: %v", root, err)
	}
	return out, nil
}

var (
	rlogHeadRE    = regexp.MustCompile(`^head:\s*(\S+)`)
	rlogBranchRE  = regexp.MustCompile(`^branch:\s*(\S+)`)
	rlogSymbolRE  = regexp.MustCompile(`^\s*(\S+):\s*(\S+)`)
	rlogRevHdrRE  = regexp.MustCompile(`^revision\s+(\S+)`)
	rlogDateLnRE  = regexp.MustCompile(`^date:\s*([^;]+);\s*author:\s*([^;]+);\s*state:\s*([^;]+);`)
)

// parseLog runs `rlog` on one RCS file and parses its text output.
// rlog's format is stable across CVS/RCS implementations; this parses
// only the handful of header lines the pipeline needs, not the full
// grammar (that full grammar is the out-of-scope piece per §1).
func (r *rlogExtractor) parseLog(root, relPath string) (*rlogResult, error) {
	rcsPath := relPath + ",v"
	out, err := r.capture(root, "rlog", rcsPath)
	if err != nil {
		// CVS keeps deleted files under an Attic/ subdirectory.
		dir, base := filepath.Split(rcsPath)
		atticPath := filepath.Join(dir, "Attic", base)
		out, err = r.capture(root, "rlog", atticPath)
		if err != nil {
			return nil, err
		}
	}

	result := &rlogResult{symbols: map[string]string{}}
	scanner := bufio.NewScanner(bytes.NewReader(out))
	inSymbols := false
	var cur *rlogRevision
	var logBuf strings.Builder
	flushLog := func() {
		if cur != nil {
			cur.logDigest = sha1.Sum([]byte(logBuf.String()))
			result.revisions = append(result.revisions, *cur)
		}
		cur = nil
		logBuf.Reset()
	}

	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "head:"):
			if m := rlogHeadRE.FindStringSubmatch(line); m != nil {
				result.head = m[1]
			}
		case strings.HasPrefix(line, "branch:"):
			if m := rlogBranchRE.FindStringSubmatch(line); m != nil {
				result.defaultBranch = m[1]
			}
		case strings.HasPrefix(line, "symbolic names:"):
			inSymbols = true
		case inSymbols && strings.HasPrefix(line, "keyword substitution"):
			inSymbols = false
		case inSymbols:
			if m := rlogSymbolRE.FindStringSubmatch(line); m != nil {
				result.symbols[m[1]] = m[2]
			}
		case strings.HasPrefix(line, "----------------------------"):
			flushLog()
		case strings.HasPrefix(line, "============================="):
			flushLog()
		case rlogRevHdrRE.MatchString(line):
			m := rlogRevHdrRE.FindStringSubmatch(line)
			cur = &rlogRevision{revnum: m[1]}
		case cur != nil && rlogDateLnRE.MatchString(line):
			m := rlogDateLnRE.FindStringSubmatch(line)
			when, err := parseRlogDate(m[1])
			if err != nil {
				return nil, throwFatal("ingest", "unparseable rlog date %q in %s: %v", m[1], rcsPath, err)
			}
			cur.when = when
			cur.author = strings.TrimSpace(m[2])
			cur.state = strings.TrimSpace(m[3])
		case cur != nil:
			logBuf.WriteString(line)
			logBuf.WriteByte('\n')
		}
	}
	flushLog()
	if err := scanner.Err(); err != nil {
		return nil, throwFatal("ingest", "reading rlog output for %s: %v", rcsPath, err)
	}

	if info, err := os.Stat(filepath.Join(root, rcsPath)); err == nil {
		result.executable = info.Mode()&0111 != 0
	}
	return result, nil
}

// parseRlogDate parses rlog's "date:" field, which uses either a
// two-digit (pre-Y2K RCS) or four-digit year, always UTC.
func parseRlogDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"2006/01/02 15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.ParseInLocation("06/01/02 15:04:05", s, time.UTC)
}

// checkoutRaw runs `co -p<revnum>` to retrieve one revision's raw
// bytes, the lazy-retrieval half of §5's "content is fetched on
// demand from the working RCS tree, not cached in memory up front",
// before any text transcoding is applied.
func (r *rlogExtractor) checkoutRaw(root, relPath, revnum string) ([]byte, error) {
	rcsPath := relPath + ",v"
	out, err := r.capture(root, "co", "-q", "-p"+revnum, rcsPath)
	if err != nil {
		dir, base := filepath.Split(rcsPath)
		atticPath := filepath.Join(dir, "Attic", base)
		out, err = r.capture(root, "co", "-q", "-p"+revnum, atticPath)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// checkoutContent retrieves one revision's content, transcoded through
// §4.2's encoding fallback chain.
func (r *rlogExtractor) checkoutContent(root, relPath, revnum string) ([]byte, error) {
	raw, err := r.checkoutRaw(root, relPath, revnum)
	if err != nil {
		return nil, err
	}
	return r.transcode(raw)
}

// transcode applies §4.2's encoding fallback chain: try each
// configured codec in order, keep the first one that decodes without
// error, grounded on reposurgeon.go's DoTranscode's
// ianaindex.IANA.Encoding + decoder.Bytes call.
func (r *rlogExtractor) transcode(raw []byte) ([]byte, error) {
	for _, name := range r.encodings {
		enc, err := ianaindex.IANA.Encoding(name)
		if err != nil || enc == nil {
			continue
		}
		decoded, err := enc.NewDecoder().Bytes(raw)
		if err == nil {
			return decoded, nil
		}
	}
	return raw, nil // last resort: pass bytes through undecoded
}

// isExcludedPath reports whether path matches any of ctx's
// --exclude-path patterns (SPEC_FULL supplemented feature #4),
// checked before a CVSFile record is ever emitted so excluded paths
// never reach any later pass.
func isExcludedPath(ctx *Context, path string) bool {
	for _, re := range ctx.ExcludePaths {
		if re.MatchString(path) {
			return true
		}
	}
	return false
}

// IngestModule implements §4.2 end to end: walk the CVS module root,
// rlog every RCS file not excluded by --exclude-path, and produce one
// CVSFile plus its ItemRevision/ItemBranch/ItemTag stream.
func IngestModule(ctx *Context, root string, nextFileID *fileidx, nextItemID *itemidx) ([]CVSFile, []CVSItem, error) {
	parser := newRlogExtractor(ctx.Opts.Encodings)

	paths, err := parser.listFiles(root)
	if err != nil {
		return nil, nil, err
	}

	var files []CVSFile
	var items []CVSItem
	predecessorByFile := map[fileidx]itemidx{}

	for _, relPath := range paths {
		if isExcludedPath(ctx, relPath) {
			continue
		}
		log, err := parser.parseLog(root, relPath)
		if err != nil {
			return nil, nil, withFile(err, "ingest", relPath)
		}

		*nextFileID++
		fileID := *nextFileID
		encoding := EncodingText
		if looksBinary(parser, root, relPath, log) {
			encoding = EncodingBinary
		}
		files = append(files, CVSFile{
			ID:            fileID,
			Path:          relPath,
			Executable:    log.executable,
			DefaultBranch: log.defaultBranch,
			Encoding:      encoding,
		})

		// rlog lists revisions newest-first; walk oldest-first so each
		// item's predecessor is already assigned an id.
		for i := len(log.revisions) - 1; i >= 0; i-- {
			rev := log.revisions[i]
			*nextItemID++
			id := *nextItemID
			branch, _ := branchNumber(rev.revnum)
			item := CVSItem{
				ID:             id,
				FileID:         fileID,
				Kind:           ItemRevision,
				Revnum:         rev.revnum,
				Author:         rev.author,
				Timestamp:      newDate(rev.when),
				LogDigest:      rev.logDigest,
				Deleted:        rev.state == "dead",
				BranchOfOrigin: branchSymbolName(log, branch),
			}
			if pred, ok := predecessorByFile[fileID]; ok {
				item.PredecessorID, item.HasPredecessor = pred, true
			}
			predecessorByFile[fileID] = id
			items = append(items, item)
		}

		for name, revnum := range log.symbols {
			*nextItemID++
			kind := ItemTag
			if isBranchRoot(revnum) {
				kind = ItemBranch
			}
			items = append(items, CVSItem{
				ID:         *nextItemID,
				FileID:     fileID,
				Kind:       kind,
				Revnum:     revnum,
				SymbolName: name,
			})
		}
	}

	return files, items, nil
}

// branchSymbolName resolves a branch-number string (e.g. "1.2.2") back
// to the symbolic name rlog reported for it, "" if the revision lives
// on trunk or the branch was never tagged with a symbol.
func branchSymbolName(log *rlogResult, branchNum string) string {
	if branchNum == "" {
		return ""
	}
	for name, revnum := range log.symbols {
		if revnum == branchNum {
			return name
		}
	}
	return ""
}

// looksBinary checks out the file's head revision and sniffs it with
// the same h2non/filetype matchers property.go's binarySniffRule uses
// on the exported working copy, so CVSFile.Encoding reflects a real
// content-based guess rather than a stub. A checkout failure (e.g. the
// head revision is a dead/deleted tip) is not fatal to ingest: the
// file is conservatively classed as text, and the property engine's
// own binarySniffRule still gets the final say once the tree is
// actually materialized.
func looksBinary(parser *rlogExtractor, root, relPath string, log *rlogResult) bool {
	if log.head == "" {
		return false
	}
	raw, err := parser.checkoutRaw(root, relPath, log.head)
	if err != nil {
		return false
	}
	head := raw
	if len(head) > sniffLen {
		head = head[:sniffLen]
	}
	return filetype.IsImage(head) || filetype.IsVideo(head) || filetype.IsArchive(head) || filetype.IsAudio(head)
}
