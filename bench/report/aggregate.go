// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package report ranks backend records and renders the benchmark report.
//
// Rankings are derived views over immutable runner.Record values: ascending
// by best time globally, by mean time globally, and by best time within each
// category. Every entry carries its percentage-slower-than-leader, computed
// against the leader of its own ordering — a category entry is never
// compared against the global winner.
package report

import (
	"sort"

	"github.com/AleutianAI/parabench/bench/dispatch"
	"github.com/AleutianAI/parabench/bench/runner"
)

// Entry is one ranked row: a backend record plus its distance from the
// leader of the ordering it appears in.
type Entry struct {
	runner.Record

	// PercentSlower is (value/leader - 1) * 100 for the ordering's timing
	// field. The leader's own entry is exactly 0.
	PercentSlower float64
}

// CategoryRanking is the by-best ordering of one category's records.
type CategoryRanking struct {
	// Category is the comparison group label.
	Category dispatch.Category

	// Entries are the category's records, ascending by best time.
	// Empty when the category recorded no backends.
	Entries []Entry
}

// percentSlower computes the slowdown of value relative to leader.
// A zero leader (possible on very coarse clocks) yields 0 rather than a
// division by zero.
func percentSlower(value, leader int64) float64 {
	if leader == 0 {
		return 0
	}
	return (float64(value)/float64(leader) - 1) * 100
}

// rank sorts records ascending by the given timing field and fills in each
// entry's distance from the leader. The sort is stable: equal values keep
// their original insertion order.
func rank(records []runner.Record, field func(runner.Record) int64) []Entry {
	entries := make([]Entry, len(records))
	for i, rec := range records {
		entries[i] = Entry{Record: rec}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return field(entries[i].Record) < field(entries[j].Record)
	})

	if len(entries) == 0 {
		return entries
	}
	leader := field(entries[0].Record)
	for i := range entries {
		entries[i].PercentSlower = percentSlower(field(entries[i].Record), leader)
	}
	return entries
}

// GlobalByBest returns all records ascending by best time.
// Rank 0 is the global winner; its PercentSlower is 0.
func GlobalByBest(records []runner.Record) []Entry {
	return rank(records, func(r runner.Record) int64 { return int64(r.Best) })
}

// GlobalByMean returns all records ascending by mean time, with slowdowns
// relative to the best mean.
func GlobalByMean(records []runner.Record) []Entry {
	return rank(records, func(r runner.Record) int64 { return int64(r.Mean) })
}

// ByCategory returns one by-best ranking per category, in order of each
// category's first appearance in records.
//
// Slowdowns are computed against the category leader only. A category with
// no records simply does not appear; callers never see a crash or a
// division by zero for an empty group.
func ByCategory(records []runner.Record) []CategoryRanking {
	order := make([]dispatch.Category, 0)
	grouped := make(map[dispatch.Category][]runner.Record)
	for _, rec := range records {
		if _, seen := grouped[rec.Category]; !seen {
			order = append(order, rec.Category)
		}
		grouped[rec.Category] = append(grouped[rec.Category], rec)
	}

	rankings := make([]CategoryRanking, 0, len(order))
	for _, cat := range order {
		rankings = append(rankings, CategoryRanking{
			Category: cat,
			Entries:  GlobalByBest(grouped[cat]),
		})
	}
	return rankings
}

// Winner returns the global rank-0 entry by best time.
// ok is false when there are no records at all.
func Winner(records []runner.Record) (Entry, bool) {
	ranked := GlobalByBest(records)
	if len(ranked) == 0 {
		return Entry{}, false
	}
	return ranked[0], true
}
