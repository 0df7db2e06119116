// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/parabench/bench/dispatch"
	"github.com/AleutianAI/parabench/bench/workload"
	"github.com/AleutianAI/parabench/pkg/ux"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered backends and their categories",
	Run:   runList,
}

func runList(_ *cobra.Command, _ []string) {
	fmt.Println(ux.Styles.Title.Render("Registered backends"))

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "Backend\tCategory")
	for _, b := range dispatch.All(workload.Process, 0) {
		fmt.Fprintf(tw, "%s\t%s\n", b.Name(), b.Category())
	}
	tw.Flush()
}
