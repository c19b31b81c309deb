package main

import "testing"

func TestNewContextBuildsRuleChainInOrder(t *testing.T) {
	opts := defaultRunOptions()
	opts.ForceBranch = []string{"^VENDOR$"}
	opts.ForceTag = []string{"^REL_"}
	opts.ExcludeSymbol = []string{"^OLD_"}

	ctx, err := NewContext(opts, nil)
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	// force-branch, force-tag, exclude, then the three built-in rules.
	if len(ctx.SymbolRules) != 6 {
		t.Fatalf("expected 6 symbol rules, got %d", len(ctx.SymbolRules))
	}
	if _, ok := ctx.SymbolRules[len(ctx.SymbolRules)-1].(heuristicRule); !ok {
		t.Errorf("expected the heuristic rule last, got %T", ctx.SymbolRules[len(ctx.SymbolRules)-1])
	}
}

func TestNewContextRejectsBadRegex(t *testing.T) {
	opts := defaultRunOptions()
	opts.ForceBranch = []string{"("}
	_, err := NewContext(opts, nil)
	if err == nil {
		t.Fatal("expected an invalid --force-branch regex to be a fatal error")
	}
}

func TestNewContextCompilesSymbolRenames(t *testing.T) {
	opts := defaultRunOptions()
	opts.SymbolRenames = []string{`^RELEASE_(.*)$:rel-$1`}
	ctx, err := NewContext(opts, nil)
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	if len(ctx.SymbolRenames) != 1 {
		t.Fatalf("expected one compiled rename, got %d", len(ctx.SymbolRenames))
	}
	if got := ctx.applyRenames("RELEASE_1_0"); got != "rel-1_0" {
		t.Errorf("expected rel-1_0, got %q", got)
	}
}

func TestParseSymbolRenameRejectsMissingColon(t *testing.T) {
	_, err := parseSymbolRename("no-colon-here")
	if err == nil {
		t.Fatal("expected a malformed rename spec to be rejected")
	}
}

func TestNewContextRejectsUnreadableMimeTypesFile(t *testing.T) {
	opts := defaultRunOptions()
	opts.MimeTypesFile = "/nonexistent/mime.types"
	_, err := NewContext(opts, nil)
	if err == nil {
		t.Fatal("expected an unreadable --mime-types path to be a fatal error")
	}
}

func TestNewContextRejectsUnreadableAutoPropsFile(t *testing.T) {
	opts := defaultRunOptions()
	opts.AutoPropsFile = "/nonexistent/auto-props.ini"
	_, err := NewContext(opts, nil)
	if err == nil {
		t.Fatal("expected an unreadable --auto-props path to be a fatal error")
	}
}
