package main

import (
	"testing"
	"time"
)

func TestDateMonotonicBump(t *testing.T) {
	base := newDate(time.Date(2001, 3, 4, 12, 0, 0, 0, time.UTC))
	bumped := base.plusSeconds(1)
	if !bumped.After(base) {
		t.Fatalf("plusSeconds(1) did not move the date forward: %s -> %s", base, bumped)
	}
	if bumped.Unix() != base.Unix()+1 {
		t.Errorf("expected bump of exactly 1 second, got delta %d", bumped.Unix()-base.Unix())
	}
}

func TestDateOrdering(t *testing.T) {
	early := newDate(time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC))
	later := newDate(time.Date(2001, 1, 2, 0, 0, 0, 0, time.UTC))
	if !early.Before(later) {
		t.Error("expected early.Before(later)")
	}
	if !later.After(early) {
		t.Error("expected later.After(early)")
	}
	if early.Equal(later) {
		t.Error("distinct dates must not compare Equal")
	}
}

func TestAttributionAnonymousAuthor(t *testing.T) {
	a := newAttribution("(no author)", time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC))
	if a.fullname != "no-author" || a.email != "no-author" {
		t.Errorf("expected anonymized CVS author to map to no-author, got fullname=%q email=%q", a.fullname, a.email)
	}
}

func TestAttributionRemap(t *testing.T) {
	a := newAttribution("jrandom", time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC))
	authors := map[string]Contributor{
		"jrandom": {FullName: "J. Random Hacker", Email: "jrandom@example.com"},
	}
	a.remap(authors)
	if a.fullname != "J. Random Hacker" || a.email != "jrandom@example.com" {
		t.Errorf("remap did not apply: got fullname=%q email=%q", a.fullname, a.email)
	}
}

func TestAttributionRemapMissesLeaveAttributionUnchanged(t *testing.T) {
	a := newAttribution("jrandom", time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC))
	a.remap(map[string]Contributor{"someoneelse": {FullName: "Nope"}})
	if a.fullname != "jrandom" {
		t.Errorf("remap should be a no-op for an unmapped author, got fullname=%q", a.fullname)
	}
}
