// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/parabench/bench/dispatch"
	"github.com/AleutianAI/parabench/bench/report"
	"github.com/AleutianAI/parabench/bench/runner"
	"github.com/AleutianAI/parabench/bench/telemetry"
	"github.com/AleutianAI/parabench/bench/workload"
	"github.com/AleutianAI/parabench/pkg/logging"
)

var (
	flagSize       int
	flagIterations int
	flagWorkers    int
	flagSeed       uint64
	flagBackends   []string
	flagCategory   string
	flagDebug      bool
	flagJSONLogs   bool
	flagTrace      string
	flagMetrics    string

	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run the benchmark and print the ranked report",
		Long: `Runs every registered backend (or a selected subset) for the
configured number of iterations and prints best/mean rankings, globally
and per strategy category.

By default each trial generates fresh random data of the configured size;
pass --seed for a deterministic workload stream.`,
		RunE: runBenchmark,
	}
)

func init() {
	runCmd.Flags().IntVar(&flagSize, "size", 10000, "work units per trial")
	runCmd.Flags().IntVar(&flagIterations, "iterations", 5, "trials per backend")
	runCmd.Flags().IntVar(&flagWorkers, "workers", 0, "parallelism hint for chunked and pooled backends (0 = NumCPU)")
	runCmd.Flags().Uint64Var(&flagSeed, "seed", 0, "workload generator seed (0 = fresh entropy per trial)")
	runCmd.Flags().StringSliceVar(&flagBackends, "backends", nil, "comma-separated backend names to run (default: all)")
	runCmd.Flags().StringVar(&flagCategory, "category", "", "run only backends in this category (spawn, parallel, hybrid)")
	runCmd.Flags().BoolVar(&flagDebug, "debug", false, "enable debug logging")
	runCmd.Flags().BoolVar(&flagJSONLogs, "json-logs", false, "emit logs as JSON")
	runCmd.Flags().StringVar(&flagTrace, "trace", "none", "trace exporter: none, stdout, otlp")
	runCmd.Flags().StringVar(&flagMetrics, "metrics", "none", "metric exporter: none, stdout")
}

func runBenchmark(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	level := logging.LevelInfo
	if flagDebug {
		level = logging.LevelDebug
	}
	logger := logging.New(logging.Config{
		Level:   level,
		Service: "cli",
		JSON:    flagJSONLogs,
	})
	defer logger.Close()

	telCfg := telemetry.DefaultConfig()
	telCfg.TraceExporter = flagTrace
	telCfg.MetricExporter = flagMetrics
	shutdown, err := telemetry.Init(ctx, telCfg)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Warn("telemetry shutdown", "error", err.Error())
		}
	}()

	cfg := runner.Config{
		DataSize:   flagSize,
		Iterations: flagIterations,
		Workers:    flagWorkers,
		Seed:       flagSeed,
	}

	backends, err := selectBackends(cfg.Workers)
	if err != nil {
		return err
	}

	session, err := runner.NewSession(cfg, logger)
	if err != nil {
		return err
	}

	logger.Info("benchmarking",
		"data_size", cfg.DataSize,
		"iterations", cfg.Iterations,
		"backends", len(backends),
	)

	records, err := session.Run(ctx, backends)
	if err != nil {
		return err
	}

	report.NewEmitter(os.Stdout).Emit(records)
	return nil
}

// selectBackends resolves the --backends and --category filters against the
// registry.
func selectBackends(workers int) ([]dispatch.Dispatcher, error) {
	all := dispatch.All(workload.Process, workers)

	if flagCategory != "" {
		filtered := all[:0]
		for _, b := range all {
			if strings.EqualFold(string(b.Category()), flagCategory) {
				filtered = append(filtered, b)
			}
		}
		if len(filtered) == 0 {
			return nil, fmt.Errorf("unknown category %q", flagCategory)
		}
		all = filtered
	}

	if len(flagBackends) == 0 {
		return all, nil
	}

	byName := make(map[string]dispatch.Dispatcher, len(all))
	for _, b := range all {
		byName[b.Name()] = b
	}

	selected := make([]dispatch.Dispatcher, 0, len(flagBackends))
	for _, name := range flagBackends {
		b, ok := byName[strings.TrimSpace(name)]
		if !ok {
			return nil, fmt.Errorf("unknown backend %q (try `parabench list`)", name)
		}
		selected = append(selected, b)
	}
	return selected, nil
}
