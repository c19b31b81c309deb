package main

import (
	"regexp"
	"testing"
)

func TestGlobToRegexpMatchesWildcards(t *testing.T) {
	re := regexp.MustCompile(globToRegexp("*.c"))
	for _, name := range []string{"a.c", "foo.c"} {
		if !re.MatchString(name) {
			t.Errorf("expected glob *.c to match %q", name)
		}
	}
	if re.MatchString("a.cpp") {
		t.Error("expected glob *.c not to match a.cpp")
	}
}

func TestDefaultEolRuleSkipsBinary(t *testing.T) {
	props := newOrderedMap()
	props.set("svn:mime-type", "application/octet-stream")
	rule := defaultEolRule{value: "native"}
	rule.apply("a.bin", &props, nil)
	if props.has("svn:eol-style") {
		t.Error("expected binary files to never get an eol-style")
	}
}

func TestDefaultEolRuleDoesNotOverrideExisting(t *testing.T) {
	props := newOrderedMap()
	props.set("svn:eol-style", "CRLF")
	rule := defaultEolRule{value: "native"}
	rule.apply("a.txt", &props, nil)
	if props.get("svn:eol-style") != "CRLF" {
		t.Errorf("expected an existing eol-style to win, got %q", props.get("svn:eol-style"))
	}
}

func TestEolFromMimeRuleOnlyAppliesToTextMime(t *testing.T) {
	props := newOrderedMap()
	props.set("svn:mime-type", "text/x-csrc")
	rule := eolFromMimeRule{}
	rule.apply("a.c", &props, nil)
	if props.get("svn:eol-style") != "native" {
		t.Errorf("expected text/* mime type to receive svn:eol-style native, got %q", props.get("svn:eol-style"))
	}
}

func TestKeywordsRuleSkipsBinary(t *testing.T) {
	props := newOrderedMap()
	props.set("svn:mime-type", "application/octet-stream")
	keywordsRule{}.apply("a.bin", &props, nil)
	if props.has("svn:keywords") {
		t.Error("expected binary files not to receive svn:keywords")
	}
}

func TestApplyPropertyRulesOrderMatters(t *testing.T) {
	rules := []PropertyRule{
		fixedPropertyRule{key: "svn:mime-type", value: "text/plain"},
		eolFromMimeRule{},
		defaultEolRule{value: "LF"},
	}
	props := applyPropertyRules(rules, "a.txt", nil)
	// eolFromMimeRule should already have set native; defaultEolRule
	// must not override it (§4.9 override-without-clear for rules that
	// already decided).
	if props.get("svn:eol-style") != "native" {
		t.Errorf("expected eol-from-mime-type's verdict to win over the blanket default, got %q", props.get("svn:eol-style"))
	}
}

// fixedPropertyRule is a minimal PropertyRule test double.
type fixedPropertyRule struct{ key, value string }

func (r fixedPropertyRule) String() string { return "fixed(" + r.key + ")" }
func (r fixedPropertyRule) apply(_ string, props *OrderedMap, _ []byte) {
	props.set(r.key, r.value)
}
