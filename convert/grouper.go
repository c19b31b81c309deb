// Commit grouper (§4.5): clusters Revision items into
// RevisionChangesets, synthesizes PostCommitChangesets for
// default-branch fixups, and emits one SymbolChangeset per symbol.
//
// Grounded on svnread.go's svnGenerateCommits (sliding-window
// clustering of per-path node actions into commits by a gap
// threshold) and svnLinkFixups/svnProcessMergeinfos (post-hoc
// changeset synthesis layered on top of the primary commit pass).
//
// SPDX-License-Identifier: BSD-2-Clause

package main

import (
	"sort"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultGroupWindow is §4.5's "design default 5 minutes".
const DefaultGroupWindow = 5 * time.Minute

type groupKey struct {
	author    string
	logDigest [20]byte
	branch    string
}

// GroupRevisions implements §4.5's first pass. items must all be
// ItemRevision; fileOf resolves an item to its owning file so the
// one-item-per-file split can be enforced.
func GroupRevisions(items []CVSItem, fileOf func(itemidx) fileidx, window time.Duration, nextID *changesetidx) []Changeset {
	buckets := make(map[groupKey][]CVSItem)
	var order []groupKey
	for _, item := range items {
		key := groupKey{author: item.Author, logDigest: item.LogDigest, branch: item.BranchOfOrigin}
		if _, ok := buckets[key]; !ok {
			order = append(order, key)
		}
		buckets[key] = append(buckets[key], item)
	}

	var out []Changeset
	for _, key := range order {
		bucket := buckets[key]
		sort.Slice(bucket, func(i, j int) bool { return bucket[i].Timestamp.Before(bucket[j].Timestamp) })

		var current *Changeset
		seenFiles := map[fileidx]bool{}
		var lastTime Date

		flush := func() {
			if current != nil {
				out = append(out, *current)
				current = nil
			}
			seenFiles = map[fileidx]bool{}
		}

		for _, item := range bucket {
			file := fileOf(item.ID)
			gapTooLarge := current != nil && item.Timestamp.Unix()-lastTime.Unix() > int64(window/time.Second)
			fileRepeats := current != nil && seenFiles[file]
			if gapTooLarge || fileRepeats {
				flush()
			}
			if current == nil {
				*nextID++
				current = &Changeset{
					ID:      *nextID,
					Kind:    ChangesetRevision,
					Author:  key.author,
					LogDigest: key.logDigest,
					MinTime: item.Timestamp,
				}
			}
			current.ItemIDs = append(current.ItemIDs, item.ID)
			seenFiles[file] = true
			lastTime = item.Timestamp
		}
		flush()
	}

	return out
}

// SynthesizePostCommits implements §4.5's second pass and the §9
// open question: for every file whose RCS default branch diverges
// from trunk, insert a PostCommitChangeset immediately after the
// RevisionChangeset that committed the divergent default-branch
// revision, mirroring it onto trunk. A file whose default branch
// cannot be matched to a motivating changeset is logged as an
// Anomaly-kind warning and skipped, never silently dropped, per §9.
func SynthesizePostCommits(files []CVSFile, itemsByID map[itemidx]CVSItem, revisionChangesets []Changeset, nextID *changesetidx, log *logrus.Entry) []Changeset {
	fileByID := make(map[fileidx]CVSFile, len(files))
	for _, f := range files {
		fileByID[f.ID] = f
	}

	matchedFiles := make(map[fileidx]bool)

	var out []Changeset
	for _, cs := range revisionChangesets {
		for _, id := range cs.ItemIDs {
			item, ok := itemsByID[id]
			if !ok || item.Kind != ItemRevision {
				continue
			}
			file, ok := fileByID[item.FileID]
			if !ok || file.DefaultBranch == "" {
				continue
			}
			branchNum, ok := branchNumber(item.Revnum)
			if !ok || branchNum != file.DefaultBranch {
				continue
			}
			// This revision lives on the file's default branch: its
			// act of becoming the new default-branch head must be
			// mirrored onto trunk.
			matchedFiles[file.ID] = true
			*nextID++
			out = append(out, Changeset{
				ID:         *nextID,
				Kind:       ChangesetPostCommit,
				ItemIDs:    []itemidx{id},
				Motivating: cs.ID,
				MinTime:    item.Timestamp,
			})
		}
	}
	if log != nil {
		for _, f := range files {
			if f.DefaultBranch != "" && !matchedFiles[f.ID] {
				log.Warn(throwAnomaly("grouper", "file %s has default branch %s but no motivating revision was matched; skipping post-commit synthesis for it", f.Path, f.DefaultBranch))
			}
		}
	}
	return out
}

// EmitSymbolChangesets implements §4.5's third pass: one
// SymbolChangeset per non-excluded symbol, consolidating every
// source revision needed to fill it.
func EmitSymbolChangesets(symbols map[string]*Symbol, itemsByFile map[fileidx][]CVSItem, nextID *changesetidx) []Changeset {
	var names []string
	for name, sym := range symbols {
		if sym.Classification != ClassExcluded {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	var out []Changeset
	for _, name := range names {
		sym := symbols[name]
		var itemIDs []itemidx
		for _, items := range itemsByFile {
			for _, item := range items {
				if (item.Kind == ItemBranch || item.Kind == ItemTag) && item.SymbolName == name {
					itemIDs = append(itemIDs, item.ID)
				}
			}
		}
		if len(itemIDs) == 0 {
			continue
		}
		*nextID++
		out = append(out, Changeset{
			ID:          *nextID,
			Kind:        ChangesetSymbolFill,
			SymbolName:  name,
			SymbolClass: sym.Classification,
			ItemIDs:     itemIDs,
		})
	}
	return out
}
