// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Command parabench benchmarks concurrency dispatch backends against a
// fixed CPU-bound workload.
//
// Each registered backend runs the same kernel over workloads of identical
// size, one backend at a time, and the report ranks them globally and
// within their strategy category by best and mean wall-clock time.
//
// Usage:
//
//	parabench run
//	parabench run --size 10000 --iterations 5
//	parabench run --backends chunked-range,queue-collector --seed 42
//	parabench list
//
// With tracing:
//
//	parabench run --trace stdout
//	OTEL_EXPORTER_OTLP_ENDPOINT=localhost:4317 parabench run --trace otlp
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/parabench/pkg/ux"
)

var rootCmd = &cobra.Command{
	Use:   "parabench",
	Short: "Benchmark concurrency dispatch backends on a CPU-bound workload",
	Long: `parabench measures the wall-clock cost of distributing a fixed,
reproducible CPU-bound workload across multiple concurrency execution
models: per-unit goroutine spawning, data-parallel chunking, work-queue
pools with collectors, bounded-admission gates, and hybrids.

All backends run the same kernel on identically sized inputs, strictly
one backend at a time, so timings are comparable across strategies.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		ux.PrintError("parabench: %v", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(listCmd)
}
