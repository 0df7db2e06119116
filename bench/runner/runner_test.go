// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package runner

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/AleutianAI/parabench/bench/dispatch"
	"github.com/AleutianAI/parabench/bench/workload"
)

// fakeDispatcher is a scriptable backend for driving the session without real
// concurrency.
type fakeDispatcher struct {
	name     string
	category dispatch.Category
	fail     bool
	calls    int
}

func (f *fakeDispatcher) Name() string                { return f.name }
func (f *fakeDispatcher) Category() dispatch.Category { return f.category }

func (f *fakeDispatcher) Dispatch(_ context.Context, units, slots []uint32) error {
	f.calls++
	if f.fail {
		return &dispatch.DispatchError{
			Backend: f.name,
			Err:     errors.New("simulated failure"),
		}
	}
	for i, v := range units {
		slots[i] = v
	}
	return nil
}

func newFake(name string) *fakeDispatcher {
	return &fakeDispatcher{name: name, category: dispatch.CategorySpawn}
}

func TestConfig_Validate(t *testing.T) {
	cases := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{"defaults", DefaultConfig(), nil},
		{"zero size", Config{DataSize: 0, Iterations: 5}, ErrInvalidSize},
		{"negative size", Config{DataSize: -1, Iterations: 5}, ErrInvalidSize},
		{"negative iterations", Config{DataSize: 10, Iterations: -1}, ErrInvalidIterations},
		{"zero iterations allowed", Config{DataSize: 10, Iterations: 0}, nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("Validate() = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestNewSession_RejectsBadConfig(t *testing.T) {
	if _, err := NewSession(Config{DataSize: 0, Iterations: 5}, nil); !errors.Is(err, ErrInvalidSize) {
		t.Fatalf("NewSession error = %v, want ErrInvalidSize", err)
	}
}

func TestSession_RunRecordsEveryBackend(t *testing.T) {
	cfg := Config{DataSize: 64, Iterations: 3, Workers: 2, Seed: 1}
	s, err := NewSession(cfg, nil)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	backends := []dispatch.Dispatcher{newFake("alpha"), newFake("beta")}
	records, err := s.Run(context.Background(), backends)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(records) != len(backends) {
		t.Fatalf("got %d records, want %d", len(records), len(backends))
	}
	for i, rec := range records {
		if rec.Backend != backends[i].Name() {
			t.Errorf("record %d backend = %q, want %q", i, rec.Backend, backends[i].Name())
		}
		if len(rec.Series) != cfg.Iterations {
			t.Errorf("record %d series length = %d, want %d", i, len(rec.Series), cfg.Iterations)
		}
		if rec.Best <= 0 {
			t.Errorf("record %d best = %v, want > 0", i, rec.Best)
		}
		if rec.Best > rec.Mean {
			t.Errorf("record %d best %v exceeds mean %v", i, rec.Best, rec.Mean)
		}
		for _, d := range rec.Series {
			if d < rec.Best {
				t.Errorf("record %d has trial %v below best %v", i, d, rec.Best)
			}
		}
	}
}

func TestSession_RunIsSequential(t *testing.T) {
	cfg := Config{DataSize: 8, Iterations: 2}
	s, err := NewSession(cfg, nil)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	first := newFake("first")
	second := newFake("second")
	if _, err := s.Run(context.Background(), []dispatch.Dispatcher{first, second}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if first.calls != cfg.Iterations || second.calls != cfg.Iterations {
		t.Errorf("trial counts = %d/%d, want %d each", first.calls, second.calls, cfg.Iterations)
	}
}

func TestSession_ZeroIterationsSkipsBackend(t *testing.T) {
	s, err := NewSession(Config{DataSize: 8, Iterations: 0}, nil)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	fake := newFake("idle")
	records, err := s.Run(context.Background(), []dispatch.Dispatcher{fake})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("got %d records, want 0", len(records))
	}
	if fake.calls != 0 {
		t.Errorf("backend dispatched %d times, want 0", fake.calls)
	}
}

func TestSession_DispatchFailureAbortsRun(t *testing.T) {
	s, err := NewSession(Config{DataSize: 8, Iterations: 3}, nil)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	failing := &fakeDispatcher{name: "broken", category: dispatch.CategoryHybrid, fail: true}
	after := newFake("unreached")

	records, err := s.Run(context.Background(), []dispatch.Dispatcher{failing, after})
	if err == nil {
		t.Fatal("Run succeeded, want dispatch failure")
	}
	if !strings.Contains(err.Error(), "broken") {
		t.Errorf("error %q does not name the failed backend", err)
	}
	if records != nil {
		t.Errorf("got %d records after failure, want none", len(records))
	}
	if after.calls != 0 {
		t.Errorf("later backend ran %d trials after abort, want 0", after.calls)
	}
}

func TestSession_RunInputValidation(t *testing.T) {
	s, err := NewSession(Config{DataSize: 8, Iterations: 1}, nil)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	t.Run("nil context", func(t *testing.T) {
		//nolint:staticcheck // deliberately exercising the nil-context guard
		if _, err := s.Run(nil, []dispatch.Dispatcher{newFake("x")}); !errors.Is(err, ErrNilContext) {
			t.Errorf("Run error = %v, want ErrNilContext", err)
		}
	})

	t.Run("no backends", func(t *testing.T) {
		if _, err := s.Run(context.Background(), nil); !errors.Is(err, ErrNoBackends) {
			t.Errorf("Run error = %v, want ErrNoBackends", err)
		}
	})
}

func TestSession_CancelledContextStopsTrials(t *testing.T) {
	s, err := NewSession(Config{DataSize: 8, Iterations: 5}, nil)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = s.Run(ctx, []dispatch.Dispatcher{newFake("cancelled")})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run error = %v, want context.Canceled", err)
	}
}

func TestSession_EndToEndWithRealBackends(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping full dispatch sweep in short mode")
	}

	cfg := Config{DataSize: 256, Iterations: 2, Workers: 4, Seed: 42}
	s, err := NewSession(cfg, nil)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	backends := dispatch.All(workload.Process, cfg.Workers)
	start := time.Now()
	records, err := s.Run(context.Background(), backends)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	elapsed := time.Since(start)

	if len(records) != len(backends) {
		t.Fatalf("got %d records, want %d", len(records), len(backends))
	}
	for _, rec := range records {
		if rec.Mean > elapsed {
			t.Errorf("backend %s mean %v exceeds total run time %v", rec.Backend, rec.Mean, elapsed)
		}
	}
}
