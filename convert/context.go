// Context: the immutable, explicitly-threaded replacement for the
// teacher's process-wide Control singleton (§9 "global context
// object" redesign flag). Built once by the driver before pass 1 and
// never mutated afterward (§5).
//
// Both the CLI flags (kingpin) and the options-file mode (§6, yaml.v2
// — grounded on rcowham-gitp4transfer/config/config.go) populate the
// same RunOptions struct, which NewContext turns into a Context.
//
// SPDX-License-Identifier: BSD-2-Clause

package main

import (
	"fmt"
	"os"
	"regexp"

	yaml "gopkg.in/yaml.v2"
)

// SymbolDefault selects the default rule of §4.4's rule chain.
type SymbolDefault string

const (
	DefaultBranch SymbolDefault = "branch"
	DefaultTag    SymbolDefault = "tag"
	DefaultHeur   SymbolDefault = "heuristic"
	DefaultStrict SymbolDefault = "strict"
)

// SymbolRule is one entry of §4.4's ordered rule chain: a small
// polymorphic (matches?, classify) object, per §9's redesign flag.
type SymbolRule interface {
	// classify returns the classification this rule assigns to name,
	// and ok=false if the rule declines to decide.
	classify(name string, stats *symbolStats) (Classification, bool)
	String() string
}

type regexRule struct {
	pattern *regexp.Regexp
	verdict Classification
}

func (r regexRule) classify(name string, _ *symbolStats) (Classification, bool) {
	if r.pattern.MatchString(name) {
		return r.verdict, true
	}
	return 0, false
}

func (r regexRule) String() string {
	return fmt.Sprintf("regex(%s -> %s)", r.pattern.String(), r.verdict)
}

// SymbolRename is one entry of the (repeatable, per SPEC_FULL's
// "supplemented feature" #2) --symbol-rename transform list. Pattern
// is matched with Go's RE2 regexp; Template is expanded with Go's
// ReplaceAll backreference syntax ($1, ${name}) — RE2 cannot put
// backreferences in the pattern itself, only in replacement text
// (documented per DESIGN.md's "regex dialect" Open Question).
type SymbolRename struct {
	Pattern  *regexp.Regexp
	Template string
}

func (r SymbolRename) apply(name string) string {
	if !r.Pattern.MatchString(name) {
		return name
	}
	return string(r.Pattern.ReplaceAll([]byte(name), []byte(r.Template)))
}

// PropertyRule is one rule of the §4.9 property engine's ordered list.
type PropertyRule interface {
	apply(path string, existing *OrderedMap, sample []byte)
	String() string
}

// RunOptions is the flat struct both kingpin flags and the
// yaml-loaded options file populate identically (§6 "Options-file
// mode... consumes a structured configuration file that directly
// builds the same context object the CLI would").
type RunOptions struct {
	ModulePath       string   `yaml:"module_path"`
	TargetRepository string   `yaml:"target_repository"`
	DumpFile         string   `yaml:"dump_file"`
	DumpOnly         bool     `yaml:"dump_only"`
	ExistingRepos    bool     `yaml:"existing_repos"`
	DryRun           bool     `yaml:"dry_run"`
	TrunkBase        string   `yaml:"trunk_base"`
	BranchesBase     string   `yaml:"branches_base"`
	TagsBase         string   `yaml:"tags_base"`
	TrunkOnly        bool     `yaml:"trunk_only"`
	PassRange        string   `yaml:"pass_range"`
	ForceBranch      []string `yaml:"force_branch"`
	ForceTag         []string `yaml:"force_tag"`
	ExcludeSymbol    []string `yaml:"exclude_symbol"`
	ExcludePath      []string `yaml:"exclude_path"`
	SymbolDefault    string   `yaml:"symbol_default"`
	SymbolRenames    []string `yaml:"symbol_renames"` // "PATTERN:TEMPLATE"
	Encodings        []string `yaml:"encodings"`
	MimeTypesFile    string   `yaml:"mime_types_file"`
	AutoPropsFile    string   `yaml:"auto_props_file"`
	AutoPropsNoCase  bool     `yaml:"auto_props_nocase"`
	EolFromMimeType  bool     `yaml:"eol_from_mime_type"`
	DefaultEol       string   `yaml:"default_eol"`
	KeywordsEnabled  bool     `yaml:"keywords_enabled"`
	TmpDir           string   `yaml:"tmp_dir"`
	SkipCleanup      bool     `yaml:"skip_cleanup"`
	GraphFile        string   `yaml:"graph_file"`
	Interactive      bool     `yaml:"-"`
	AuthorMapFile    string   `yaml:"author_map_file"`
	FsType           string   `yaml:"fs_type"`
	BdbTxnNoSync     bool     `yaml:"bdb_txn_nosync"`
	ReaderKind       string   `yaml:"reader_kind"` // "checkout" (default) or "delta", §4.10

	// loadedAuthors holds the parsed --author-map file, if any. It is
	// populated by main's loadAuthorMap rather than yaml/kingpin
	// directly since it is derived from AuthorMapFile, not a flag of
	// its own.
	loadedAuthors map[string]Contributor `yaml:"-"`
}

// LoadRunOptions reads the options-file mode's YAML configuration
// (§6), mirroring config.Unmarshal's default-then-overlay shape.
func LoadRunOptions(path string) (*RunOptions, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, throwFatal("options", "failed to read options file %s: %v", path, err)
	}
	opts := defaultRunOptions()
	if err := yaml.Unmarshal(content, opts); err != nil {
		return nil, throwFatal("options", "invalid options file %s: %v", path, err)
	}
	return opts, nil
}

func defaultRunOptions() *RunOptions {
	return &RunOptions{
		TrunkBase:     "trunk",
		BranchesBase:  "branches",
		TagsBase:      "tags",
		PassRange:     "1:6",
		SymbolDefault: string(DefaultHeur),
		Encodings:     []string{"ascii"},
		TmpDir:        os.TempDir(),
	}
}

// Context is the read-only value threaded through every pass (§5,
// §9). It replaces the teacher's Control singleton.
type Context struct {
	Opts          *RunOptions
	SymbolRules   []SymbolRule
	SymbolRenames []SymbolRename
	PropertyRules []PropertyRule
	Authors       map[string]Contributor
	ExcludePaths  []*regexp.Regexp
	Baton         *Baton
}

// NewContext builds a Context from RunOptions, compiling every regex
// up front so that a malformed pattern is a Fatal error at startup
// rather than a surprise mid-pipeline (§7).
func NewContext(opts *RunOptions, baton *Baton) (*Context, error) {
	ctx := &Context{Opts: opts, Authors: make(map[string]Contributor), Baton: baton}

	for _, pat := range opts.ForceBranch {
		re, err := regexp.Compile(pat)
		if err != nil {
			return nil, throwFatal("context", "invalid --force-branch regex %q: %v", pat, err)
		}
		ctx.SymbolRules = append(ctx.SymbolRules, regexRule{re, ClassBranch})
	}
	for _, pat := range opts.ForceTag {
		re, err := regexp.Compile(pat)
		if err != nil {
			return nil, throwFatal("context", "invalid --force-tag regex %q: %v", pat, err)
		}
		ctx.SymbolRules = append(ctx.SymbolRules, regexRule{re, ClassTag})
	}
	for _, pat := range opts.ExcludeSymbol {
		re, err := regexp.Compile(pat)
		if err != nil {
			return nil, throwFatal("context", "invalid --exclude regex %q: %v", pat, err)
		}
		ctx.SymbolRules = append(ctx.SymbolRules, regexRule{re, ClassExcluded})
	}
	ctx.SymbolRules = append(ctx.SymbolRules,
		unambiguousUsageRule{},
		branchIfCommitsRule{},
		heuristicRule{},
	)

	for _, pat := range opts.ExcludePath {
		re, err := regexp.Compile(pat)
		if err != nil {
			return nil, throwFatal("context", "invalid --exclude-path regex %q: %v", pat, err)
		}
		ctx.ExcludePaths = append(ctx.ExcludePaths, re)
	}

	for _, spec := range opts.SymbolRenames {
		rename, err := parseSymbolRename(spec)
		if err != nil {
			return nil, err
		}
		ctx.SymbolRenames = append(ctx.SymbolRenames, rename)
	}

	rules, err := defaultPropertyRules(opts)
	if err != nil {
		return nil, err
	}
	ctx.PropertyRules = rules

	return ctx, nil
}

// parseSymbolRename parses a "PATTERN:TEMPLATE" rename spec (§6).
func parseSymbolRename(spec string) (SymbolRename, error) {
	idx := -1
	for i := 0; i < len(spec); i++ {
		if spec[i] == ':' && (i == 0 || spec[i-1] != '\\') {
			idx = i
			break
		}
	}
	if idx < 0 {
		return SymbolRename{}, throwFatal("context", "malformed --symbol-rename %q: expected PATTERN:TEMPLATE", spec)
	}
	pat, tmpl := spec[:idx], spec[idx+1:]
	re, err := regexp.Compile(pat)
	if err != nil {
		return SymbolRename{}, throwFatal("context", "invalid --symbol-rename pattern %q: %v", pat, err)
	}
	return SymbolRename{Pattern: re, Template: tmpl}, nil
}

// applyRenames runs the full ordered rename chain against a symbol
// name, in sequence — SPEC_FULL supplemented feature #2.
func (ctx *Context) applyRenames(name string) string {
	for _, r := range ctx.SymbolRenames {
		name = r.apply(name)
	}
	return name
}
