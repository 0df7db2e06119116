// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package report

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/AleutianAI/parabench/bench/runner"
	"github.com/AleutianAI/parabench/pkg/ux"
)

// Emitter renders benchmark results as human-readable tables.
type Emitter struct {
	w io.Writer
}

// NewEmitter creates an Emitter writing to w.
func NewEmitter(w io.Writer) *Emitter {
	return &Emitter{w: w}
}

// Emit writes the full report: overall winner, global average and best
// tables, then one table per category.
//
// An empty record set degrades to a single notice rather than an error —
// partial results should always render.
func (e *Emitter) Emit(records []runner.Record) {
	winner, ok := Winner(records)
	if !ok {
		fmt.Fprintln(e.w, ux.Styles.Warning.Render("no benchmark results recorded"))
		return
	}

	fmt.Fprintln(e.w, ux.Styles.Title.Render("=== OVERALL RESULTS ==="))
	fmt.Fprintf(e.w, "Best overall performer: %s (%s) with %v\n\n",
		ux.Styles.Highlight.Render(winner.Backend), winner.Category, winner.Best)

	fmt.Fprintln(e.w, ux.Styles.Title.Render("=== AVERAGE TIMES ==="))
	e.table(GlobalByMean(records), func(en Entry) string { return en.Mean.String() }, "Avg Time")

	fmt.Fprintln(e.w, ux.Styles.Title.Render("=== BEST TIMES ==="))
	e.table(GlobalByBest(records), func(en Entry) string { return en.Best.String() }, "Best Time")

	fmt.Fprintln(e.w, ux.Styles.Title.Render("=== RESULTS BY CATEGORY ==="))
	for _, cr := range ByCategory(records) {
		fmt.Fprintln(e.w, ux.Styles.Subtitle.Render(fmt.Sprintf("--- %s ---", cr.Category)))
		e.table(cr.Entries, func(en Entry) string { return en.Best.String() }, "Best Time")
	}
}

// table renders one ranking with the chosen timing column.
func (e *Emitter) table(entries []Entry, value func(Entry) string, header string) {
	tw := tabwriter.NewWriter(e.w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Category\tBackend\t%s\tvs Best (%%)\n", header)
	for _, en := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f%%\n",
			en.Category, en.Backend, value(en), en.PercentSlower)
	}
	tw.Flush()
	fmt.Fprintln(e.w)
}
