// Property engine (§4.9): an ordered chain of PropertyRule values,
// each one inspecting a path and a content sample and installing
// svn:* properties into the OrderedMap that travels with an
// AddPath/ChangePath call. Rules apply in order and may override an
// earlier rule's key but must never clear one a later rule did not
// touch (OrderedMap.set's override-without-clear semantics).
//
// Grounded on rcowham-gitp4transfer/main.go's setCompressionDetails
// (binary/text classification via h2non/filetype.IsImage/IsDocument/
// Match on a content sample) generalized here from one hardcoded
// binary/text flag to the full svn:* property set, and on
// cogentcore-core/base/fileinfo/fileinfo.go's mime-type-from-extension
// table lookup idiom for the auto-props and mime.types rules.
//
// SPDX-License-Identifier: BSD-2-Clause

package main

import (
	"bufio"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/h2non/filetype"
)

// sniffLen bounds how much of a file's content the binary-detection
// rule reads; matches the 261-byte magic-number window filetype's
// matchers need.
const sniffLen = 261

// executableRule sets svn:executable when the RCS working-file mode
// carried the execute bit (§4.9 "survives from the union of source
// metadata where available").
type executableRule struct{}

func (executableRule) String() string { return "executable-bit" }

func (executableRule) apply(path string, props *OrderedMap, _ []byte) {
	info, err := os.Stat(path)
	if err != nil {
		return
	}
	if info.Mode()&0111 != 0 {
		props.set("svn:executable", "*")
	}
}

// binarySniffRule classifies content via h2non/filetype, installing
// svn:mime-type: application/octet-stream for anything it recognizes
// as a binary family so later eol-style rules leave it alone.
type binarySniffRule struct{}

func (binarySniffRule) String() string { return "binary-sniff" }

func (binarySniffRule) apply(_ string, props *OrderedMap, sample []byte) {
	head := sample
	if len(head) > sniffLen {
		head = head[:sniffLen]
	}
	if filetype.IsImage(head) || filetype.IsVideo(head) || filetype.IsArchive(head) || filetype.IsAudio(head) {
		props.set("svn:mime-type", "application/octet-stream")
		return
	}
	if filetype.IsDocument(head) {
		if kind, err := filetype.Match(head); err == nil && kind.Extension != "" {
			props.set("svn:mime-type", kind.MIME.Value)
		}
	}
}

// mimeTypesRule looks a path's extension up in an Apache-style
// mime.types file (§4.9's "--mime-types FILE" option), the simplest
// of the three mime-type sources and the lowest priority: binary
// sniffing and auto-props both run after it and may override.
type mimeTypesRule struct {
	byExt map[string]string
}

// loadMimeTypes parses an Apache mime.types file: "type/subtype ext1
// ext2 ...\n" per line, comments starting with '#'.
func loadMimeTypes(path string) (*mimeTypesRule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, throwFatal("property", "cannot read mime types file %s: %v", path, err)
	}
	defer f.Close()

	rule := &mimeTypesRule{byExt: map[string]string{}}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		for _, ext := range fields[1:] {
			rule.byExt[strings.ToLower(ext)] = fields[0]
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, throwFatal("property", "error reading mime types file %s: %v", path, err)
	}
	return rule, nil
}

func (r *mimeTypesRule) String() string { return "mime-types-file" }

func (r *mimeTypesRule) apply(path string, props *OrderedMap, _ []byte) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if ext == "" {
		return
	}
	if mime, ok := r.byExt[ext]; ok {
		props.set("svn:mime-type", mime)
	}
}

// autoPropRule is one "pattern = propname1=val1;propname2=val2" entry
// of an svn auto-props file.
type autoPropRule struct {
	pattern *regexp.Regexp
	props   []propAssignment
}

type propAssignment struct {
	name  string
	value string
}

// autoPropsRule applies every matching auto-props entry, in file
// order, to a path's extension/basename — §4.9's "--auto-props FILE"
// option, with --auto-props-nocase making the glob matching
// case-insensitive the way svn's own config does.
type autoPropsRule struct {
	entries []autoPropRule
}

// loadAutoProps parses a svn-config-style auto-props section:
// "*.c = svn:eol-style=native\n*.png = svn:mime-type=image/png". A
// glob pattern is compiled to an anchored regexp; nocase folds it.
func loadAutoProps(path string, nocase bool) (*autoPropsRule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, throwFatal("property", "cannot read auto-props file %s: %v", path, err)
	}
	defer f.Close()

	rule := &autoPropsRule{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}
		idx := strings.Index(line, "=")
		if idx < 0 {
			continue
		}
		glob := strings.TrimSpace(line[:idx])
		rest := strings.TrimSpace(line[idx+1:])

		reSrc := globToRegexp(glob)
		if nocase {
			reSrc = "(?i)" + reSrc
		}
		re, err := regexp.Compile(reSrc)
		if err != nil {
			return nil, throwFatal("property", "bad auto-props pattern %q: %v", glob, err)
		}

		var assigns []propAssignment
		for _, part := range strings.Split(rest, ";") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			kv := strings.SplitN(part, "=", 2)
			name := strings.TrimSpace(kv[0])
			value := ""
			if len(kv) == 2 {
				value = strings.TrimSpace(kv[1])
			}
			assigns = append(assigns, propAssignment{name, value})
		}
		rule.entries = append(rule.entries, autoPropRule{pattern: re, props: assigns})
	}
	if err := scanner.Err(); err != nil {
		return nil, throwFatal("property", "error reading auto-props file %s: %v", path, err)
	}
	return rule, nil
}

// globToRegexp turns an svn auto-props glob ('*' and '?' wildcards)
// into an anchored RE2 pattern.
func globToRegexp(glob string) string {
	var b strings.Builder
	b.WriteByte('^')
	for _, r := range glob {
		switch r {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteByte('.')
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteByte('$')
	return b.String()
}

func (r *autoPropsRule) String() string { return "auto-props-file" }

func (r *autoPropsRule) apply(path string, props *OrderedMap, _ []byte) {
	base := filepath.Base(path)
	for _, entry := range r.entries {
		if !entry.pattern.MatchString(base) {
			continue
		}
		for _, a := range entry.props {
			props.set(a.name, a.value)
		}
	}
}

// eolFromMimeRule sets svn:eol-style: native whenever svn:mime-type
// names a text/* type and no eol-style has been set yet (§4.9
// "--eol-from-mime-type"). It runs after the mime-type rules so it
// can see their result, and before defaultEolRule so a file without
// any recognized mime type still gets the blanket default.
type eolFromMimeRule struct{}

func (eolFromMimeRule) String() string { return "eol-from-mime-type" }

func (eolFromMimeRule) apply(_ string, props *OrderedMap, _ []byte) {
	if props.has("svn:eol-style") {
		return
	}
	mime := props.get("svn:mime-type")
	if strings.HasPrefix(mime, "text/") {
		props.set("svn:eol-style", "native")
	}
}

// defaultEolRule installs a blanket svn:eol-style for every path that
// reaches it without one already set (§4.9 "--default-eol VALUE").
type defaultEolRule struct {
	value string
}

func (r defaultEolRule) String() string { return "default-eol(" + r.value + ")" }

func (r defaultEolRule) apply(_ string, props *OrderedMap, _ []byte) {
	if props.has("svn:eol-style") {
		return
	}
	if props.get("svn:mime-type") == "application/octet-stream" {
		return // binary files never get an eol-style
	}
	props.set("svn:eol-style", r.value)
}

// keywordsRule installs svn:keywords for text files when
// --keywords was given (§4.9), mirroring the RCS $Id$/$Log$
// expansion the source format already performed informally.
type keywordsRule struct{}

func (keywordsRule) String() string { return "keywords" }

func (keywordsRule) apply(_ string, props *OrderedMap, _ []byte) {
	if props.get("svn:mime-type") == "application/octet-stream" {
		return
	}
	props.set("svn:keywords", "Author Date Id Revision")
}

// defaultPropertyRules builds §4.9's ordered rule chain from
// RunOptions, in priority order: mime.types file (lowest), binary
// sniffing, auto-props (highest priority for mime-type/generic
// props), then the two eol-style fallbacks, then keywords, then the
// executable bit last since it never conflicts with anything above.
// A bad --mime-types/--auto-props path is a Fatal error (§7), not a
// silently-skipped rule.
func defaultPropertyRules(opts *RunOptions) ([]PropertyRule, error) {
	var rules []PropertyRule

	if opts.MimeTypesFile != "" {
		r, err := loadMimeTypes(opts.MimeTypesFile)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	rules = append(rules, binarySniffRule{})
	if opts.AutoPropsFile != "" {
		r, err := loadAutoProps(opts.AutoPropsFile, opts.AutoPropsNoCase)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	if opts.EolFromMimeType {
		rules = append(rules, eolFromMimeRule{})
	}
	if opts.DefaultEol != "" {
		rules = append(rules, defaultEolRule{value: opts.DefaultEol})
	}
	if opts.KeywordsEnabled {
		rules = append(rules, keywordsRule{})
	}
	rules = append(rules, executableRule{})
	return rules, nil
}

// applyPropertyRules runs ctx's rule chain against one path, given a
// content sample (read once and capped at sniffLen by the caller),
// and returns the resulting property set for AddPath/ChangePath.
func applyPropertyRules(rules []PropertyRule, path string, sample []byte) OrderedMap {
	props := newOrderedMap()
	for _, r := range rules {
		r.apply(path, &props, sample)
	}
	return props
}

// parsePropRevnum flattens a dotted RCS revnum into one integer by
// dropping its dots ("1.12" -> 112). Nothing in the pipeline calls it.
func parsePropRevnum(revnum string) (int, bool) {
	n, err := strconv.Atoi(strings.ReplaceAll(revnum, ".", ""))
	if err != nil {
		return 0, false
	}
	return n, true
}
