// Date and Attribution: pins a CVS revision to a time and author.
// Adapted from surgeon/reposurgeon.go's Date/Attribution, which parse
// git/email attribution lines; here the source is an RCS revision's
// author and mtime instead of a "Name <email> date" line, and the
// bump mentioned in §4.3 lives alongside it.
//
// SPDX-License-Identifier: BSD-2-Clause

package main

import (
	"fmt"
	"time"
)

// Date wraps time.Time the way the teacher's Date does, giving it a
// stable String()/rfc3339 representation independent of the host's
// default time formatting.
type Date struct {
	timestamp time.Time
}

func newDate(t time.Time) Date {
	return Date{timestamp: t.UTC().Truncate(time.Second)}
}

func (d Date) rfc3339() string {
	return d.timestamp.Format(time.RFC3339)
}

func (d Date) Unix() int64 {
	return d.timestamp.Unix()
}

func (d Date) Before(other Date) bool {
	return d.timestamp.Before(other.timestamp)
}

func (d Date) After(other Date) bool {
	return d.timestamp.After(other.timestamp)
}

func (d Date) Equal(other Date) bool {
	return d.timestamp.Equal(other.timestamp)
}

// plusSeconds returns a new Date n seconds later; used by the §4.3
// monotonic-timestamp bump.
func (d Date) plusSeconds(n int) Date {
	return Date{timestamp: d.timestamp.Add(time.Duration(n) * time.Second)}
}

func (d Date) String() string {
	return d.rfc3339()
}

// Attribution pins a CVSItem to a person and a time, the cvs2svn-go
// analogue of the teacher's git-authorship Attribution.
type Attribution struct {
	fullname string
	email    string
	date     Date
}

func newAttribution(author string, when time.Time) Attribution {
	fullname := author
	email := author
	// Deal with a cvs2svn artifact: some RCS histories record
	// anonymized commits under this literal author name.
	if author == "(no author)" {
		fullname = "no-author"
		email = "no-author"
	}
	return Attribution{fullname: fullname, email: email, date: newDate(when)}
}

func (a Attribution) String() string {
	return fmt.Sprintf("%s <%s> %s", a.fullname, a.email, a.date.rfc3339())
}

func (a Attribution) actionStamp() string {
	return a.date.rfc3339() + "!" + a.email
}

// Contributor is one entry of an author-remap table (the cvs2svn-go
// analogue of the teacher's map[string]Contributor used by
// Attribution.remap); CVS author ids are bare usernames, so there is
// no "local part of an email" step to perform first.
type Contributor struct {
	FullName string
	Email    string
}

// remap changes the attribution's fullname/email according to an
// author map, the same lookup-by-local-id the teacher's
// Attribution.remap performs for git commit authors.
func (a *Attribution) remap(authors map[string]Contributor) {
	if c, ok := authors[a.email]; ok {
		a.fullname = c.FullName
		a.email = c.Email
	}
}
