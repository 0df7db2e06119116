// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package runner drives benchmark trials and produces per-backend records.
//
// A Session runs each backend adapter strictly one at a time: timed regions
// never overlap, so one backend's scheduling load cannot contaminate
// another's measurement. Within a trial, the clock brackets exactly the
// Dispatch call — workload generation is outside the timed region, while any
// per-dispatch backend setup (pool construction, channels, admission gates)
// is inside it, because startup cost is part of what backends are compared
// on.
package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/parabench/bench/dispatch"
	"github.com/AleutianAI/parabench/bench/workload"
	"github.com/AleutianAI/parabench/pkg/logging"
)

var (
	tracer = otel.Tracer("parabench.runner")
	meter  = otel.Meter("parabench.runner")
)

// Sentinel errors for session configuration.
var (
	// ErrNilContext is returned when a nil context is passed to Run.
	ErrNilContext = errors.New("context must not be nil")

	// ErrInvalidSize is returned when the configured data size is below 1.
	ErrInvalidSize = errors.New("data size must be at least 1")

	// ErrInvalidIterations is returned when the iteration count is negative.
	// Zero is allowed: the affected backends simply produce no record.
	ErrInvalidIterations = errors.New("iteration count must not be negative")

	// ErrNoBackends is returned when Run is invoked with nothing to measure.
	ErrNoBackends = errors.New("no backends to run")
)

// Config holds the compiled-in benchmark parameters.
type Config struct {
	// DataSize is the number of work units per trial. Every backend sees
	// workloads of exactly this length. Default: 10000
	DataSize int

	// Iterations is the number of trials per backend. Zero means the
	// backend is skipped (reported as having no samples). Default: 5
	Iterations int

	// Workers is the hardware parallelism hint used by chunk-partitioning
	// and pooled backends. Values < 1 mean runtime.NumCPU().
	Workers int

	// Seed, when non-zero, makes workload generation deterministic.
	// Zero preserves the default behavior of fresh random data per trial.
	Seed uint64
}

// DefaultConfig returns the reference benchmark parameters.
func DefaultConfig() Config {
	return Config{
		DataSize:   10000,
		Iterations: 5,
		Workers:    0,
	}
}

// Validate checks the configuration for unusable values.
func (c Config) Validate() error {
	if c.DataSize < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidSize, c.DataSize)
	}
	if c.Iterations < 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidIterations, c.Iterations)
	}
	return nil
}

// Record aggregates one backend's timing statistics across all its trials.
//
// Immutable once returned by the Session; the aggregator and emitter only
// read it.
type Record struct {
	// Backend is the adapter's display name.
	Backend string

	// Category is the adapter's comparison group.
	Category dispatch.Category

	// Best is the minimum trial duration.
	Best time.Duration

	// Mean is the arithmetic average of all trial durations.
	Mean time.Duration

	// Series holds every trial duration in execution order.
	Series []time.Duration
}

// Session runs benchmark trials for a set of backends.
//
// Timing state is local to the Session — there is no process-wide mutable
// benchmark state, so independent Sessions can be created freely (though
// their Runs must not overlap in time if the numbers are to mean anything).
//
// Thread Safety: a Session must not Run concurrently with itself.
type Session struct {
	id     string
	cfg    Config
	gen    *workload.Generator
	logger *logging.Logger

	// Metrics (initialized lazily)
	metricsOnce     sync.Once
	dispatchLatency metric.Float64Histogram
	trialCount      metric.Int64Counter
	dispatchFails   metric.Int64Counter
}

// NewSession creates a Session for the given configuration.
//
// Inputs:
//   - cfg: Benchmark parameters. Validated here.
//   - logger: Logger for trial progress. If nil, uses logging.Default().
//
// Outputs:
//   - *Session: Ready to Run.
//   - error: Non-nil if cfg is unusable.
func NewSession(cfg Config, logger *logging.Logger) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.Default()
	}

	gen := workload.NewGenerator(cfg.DataSize)
	if cfg.Seed != 0 {
		gen = gen.WithSeed(cfg.Seed)
	}

	return &Session{
		id:     uuid.NewString()[:12],
		cfg:    cfg,
		gen:    gen,
		logger: logger,
	}, nil
}

// ID returns the session identifier attached to logs and spans.
func (s *Session) ID() string {
	return s.id
}

// initMetrics lazily creates instruments, degrading gracefully when the
// meter provider rejects one.
func (s *Session) initMetrics() {
	s.metricsOnce.Do(func() {
		var initErrors []string

		var err error
		s.dispatchLatency, err = meter.Float64Histogram("bench_dispatch_duration_seconds",
			metric.WithDescription("Wall-clock duration of one timed dispatch"),
			metric.WithUnit("s"),
		)
		if err != nil {
			initErrors = append(initErrors, "dispatch_latency: "+err.Error())
		}

		s.trialCount, err = meter.Int64Counter("bench_trials_total",
			metric.WithDescription("Number of completed trials"),
		)
		if err != nil {
			initErrors = append(initErrors, "trial_count: "+err.Error())
		}

		s.dispatchFails, err = meter.Int64Counter("bench_dispatch_failure_total",
			metric.WithDescription("Number of failed dispatches"),
		)
		if err != nil {
			initErrors = append(initErrors, "dispatch_fails: "+err.Error())
		}

		if len(initErrors) > 0 {
			s.logger.Error("failed to initialize some benchmark metrics (observability degraded)",
				"failed_count", len(initErrors),
				"errors", initErrors,
			)
		}
	})
}

// Run benchmarks every backend in order and returns their records.
//
// Description:
//
//	For each backend, repeats {generate workload → time one dispatch →
//	record} Iterations times, then finalizes the backend's best and mean.
//	Backends run strictly sequentially. A dispatch failure aborts the whole
//	run: partial timings for the failed backend are discarded, and the
//	error names the backend.
//
// Inputs:
//
//	ctx - Context for the run. Must not be nil. Cancellation is observed
//	between trials and by ctx-aware backends, never mid-kernel.
//	backends - Adapters to measure, in report order.
//
// Outputs:
//
//	[]Record - One record per backend that produced at least one sample.
//	error - Non-nil on dispatch failure or unusable input.
func (s *Session) Run(ctx context.Context, backends []dispatch.Dispatcher) ([]Record, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	if len(backends) == 0 {
		return nil, ErrNoBackends
	}

	s.initMetrics()

	ctx, span := tracer.Start(ctx, "bench.Session",
		trace.WithAttributes(
			attribute.String("session_id", s.id),
			attribute.Int("data_size", s.cfg.DataSize),
			attribute.Int("iterations", s.cfg.Iterations),
			attribute.Int("backends", len(backends)),
		),
	)
	defer span.End()

	s.logger.Info("benchmark session started",
		"session_id", s.id,
		"data_size", s.cfg.DataSize,
		"iterations", s.cfg.Iterations,
		"backends", len(backends),
	)

	records := make([]Record, 0, len(backends))
	for _, backend := range backends {
		rec, ok, err := s.runBackend(ctx, backend)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		if !ok {
			s.logger.Warn("backend produced no samples, skipping record",
				"session_id", s.id,
				"backend", backend.Name(),
				"iterations", s.cfg.Iterations,
			)
			continue
		}
		records = append(records, rec)
	}

	span.SetAttributes(attribute.Int("records", len(records)))
	span.SetStatus(codes.Ok, "")

	s.logger.Info("benchmark session completed",
		"session_id", s.id,
		"records", len(records),
	)
	return records, nil
}

// runBackend executes all trials for one backend.
//
// Returns ok=false when the configured iteration count leaves no samples to
// aggregate (never an error; the caller degrades to a skipped record).
func (s *Session) runBackend(ctx context.Context, backend dispatch.Dispatcher) (Record, bool, error) {
	ctx, span := tracer.Start(ctx, "bench.Backend",
		trace.WithAttributes(
			attribute.String("session_id", s.id),
			attribute.String("backend", backend.Name()),
			attribute.String("category", string(backend.Category())),
		),
	)
	defer span.End()

	if s.cfg.Iterations == 0 {
		span.SetAttributes(attribute.Bool("skipped", true))
		return Record{}, false, nil
	}

	s.logger.Debug("backend trials starting",
		"session_id", s.id,
		"backend", backend.Name(),
	)

	series := make([]time.Duration, 0, s.cfg.Iterations)
	best := time.Duration(1<<63 - 1)

	for i := 0; i < s.cfg.Iterations; i++ {
		if err := ctx.Err(); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "context canceled")
			return Record{}, false, fmt.Errorf("backend %s trial %d: %w", backend.Name(), i, err)
		}

		units := s.gen.Generate()
		slots := make([]uint32, len(units))

		start := time.Now()
		err := backend.Dispatch(ctx, units, slots)
		elapsed := time.Since(start)

		if err != nil {
			if s.dispatchFails != nil {
				s.dispatchFails.Add(ctx, 1,
					metric.WithAttributes(attribute.String("backend", backend.Name())),
				)
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())

			// No sample is recorded for a failed dispatch.
			s.logger.Error("dispatch failed",
				"session_id", s.id,
				"backend", backend.Name(),
				"trial", i,
				"error", err.Error(),
			)
			return Record{}, false, err
		}

		if s.dispatchLatency != nil {
			s.dispatchLatency.Record(ctx, elapsed.Seconds(),
				metric.WithAttributes(attribute.String("backend", backend.Name())),
			)
		}
		if s.trialCount != nil {
			s.trialCount.Add(ctx, 1,
				metric.WithAttributes(attribute.String("backend", backend.Name())),
			)
		}

		series = append(series, elapsed)
		if elapsed < best {
			best = elapsed
		}

		s.logger.Debug("trial recorded",
			"session_id", s.id,
			"backend", backend.Name(),
			"trial", i,
			"duration", elapsed,
		)
	}

	var total time.Duration
	for _, d := range series {
		total += d
	}
	mean := total / time.Duration(len(series))

	span.SetAttributes(
		attribute.Int("trials", len(series)),
		attribute.Float64("best_seconds", best.Seconds()),
		attribute.Float64("mean_seconds", mean.Seconds()),
	)
	span.SetStatus(codes.Ok, "")

	s.logger.Info("backend trials completed",
		"session_id", s.id,
		"backend", backend.Name(),
		"best", best,
		"mean", mean,
	)

	return Record{
		Backend:  backend.Name(),
		Category: backend.Category(),
		Best:     best,
		Mean:     mean,
		Series:   series,
	}, true, nil
}
