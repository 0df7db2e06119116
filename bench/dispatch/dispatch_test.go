// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package dispatch

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/AleutianAI/parabench/bench/workload"
)

// sequentialUnits returns a workload of distinct values 0..size-1 so result
// routing errors are visible per index.
func sequentialUnits(size int) []uint32 {
	units := make([]uint32, size)
	for i := range units {
		units[i] = uint32(i)
	}
	return units
}

func TestDispatch_Completeness(t *testing.T) {
	// Non-idempotent, invertible kernel: a slot holding the raw input or
	// zero is distinguishable from a correctly kernelled one.
	kernel := func(v uint32) uint32 { return v*2 + 7 }

	const size = 1000
	for _, d := range All(kernel, 4) {
		t.Run(d.Name(), func(t *testing.T) {
			units := sequentialUnits(size)
			slots := make([]uint32, size)

			if err := d.Dispatch(context.Background(), units, slots); err != nil {
				t.Fatalf("Dispatch: %v", err)
			}

			for i, got := range slots {
				if want := kernel(units[i]); got != want {
					t.Fatalf("slots[%d] = %d, want %d", i, got, want)
				}
			}
		})
	}
}

func TestDispatch_ExactlyOncePerUnit(t *testing.T) {
	const size = 512

	for _, name := range backendNames(t) {
		t.Run(name, func(t *testing.T) {
			// Distinct unit values index a call counter, so the kernel
			// must run exactly once per unit.
			calls := make([]atomic.Int32, size)
			kernel := func(v uint32) uint32 {
				calls[v].Add(1)
				return v
			}

			d := findBackend(t, name, kernel, 4)
			units := sequentialUnits(size)
			slots := make([]uint32, size)

			if err := d.Dispatch(context.Background(), units, slots); err != nil {
				t.Fatalf("Dispatch: %v", err)
			}

			for i := range calls {
				if n := calls[i].Load(); n != 1 {
					t.Errorf("unit %d processed %d times, want 1", i, n)
				}
			}
		})
	}
}

func TestDispatch_SingleUnit(t *testing.T) {
	kernel := func(v uint32) uint32 { return v + 1 }

	for _, d := range All(kernel, 8) {
		t.Run(d.Name(), func(t *testing.T) {
			units := []uint32{41}
			slots := make([]uint32, 1)

			if err := d.Dispatch(context.Background(), units, slots); err != nil {
				t.Fatalf("Dispatch: %v", err)
			}
			if slots[0] != 42 {
				t.Errorf("slots[0] = %d, want 42", slots[0])
			}
		})
	}
}

func TestDispatch_WorkersExceedUnits(t *testing.T) {
	// More workers than units: chunk and band math must not produce empty
	// or overlapping ranges.
	kernel := func(v uint32) uint32 { return v * 3 }

	for _, d := range All(kernel, 8) {
		t.Run(d.Name(), func(t *testing.T) {
			units := sequentialUnits(3)
			slots := make([]uint32, 3)

			if err := d.Dispatch(context.Background(), units, slots); err != nil {
				t.Fatalf("Dispatch: %v", err)
			}
			for i, got := range slots {
				if want := kernel(units[i]); got != want {
					t.Errorf("slots[%d] = %d, want %d", i, got, want)
				}
			}
		})
	}
}

func TestDispatch_ArgumentValidation(t *testing.T) {
	kernel := func(v uint32) uint32 { return v }

	for _, d := range All(kernel, 2) {
		t.Run(d.Name(), func(t *testing.T) {
			units := sequentialUnits(4)

			t.Run("nil slots", func(t *testing.T) {
				err := d.Dispatch(context.Background(), units, nil)
				if !errors.Is(err, ErrNilSlots) {
					t.Errorf("error = %v, want ErrNilSlots", err)
				}
			})

			t.Run("size mismatch", func(t *testing.T) {
				err := d.Dispatch(context.Background(), units, make([]uint32, 3))
				if !errors.Is(err, ErrSizeMismatch) {
					t.Errorf("error = %v, want ErrSizeMismatch", err)
				}

				var de *DispatchError
				if !errors.As(err, &de) {
					t.Fatalf("error = %v, want *DispatchError", err)
				}
				if de.Backend != d.Name() {
					t.Errorf("Backend = %q, want %q", de.Backend, d.Name())
				}
			})
		})
	}
}

func TestDispatch_CancelledContext(t *testing.T) {
	kernel := func(v uint32) uint32 { return v }
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	t.Run("errgroup-per-unit", func(t *testing.T) {
		d := NewErrgroupDispatcher(kernel)
		err := d.Dispatch(ctx, sequentialUnits(64), make([]uint32, 64))
		if err == nil {
			t.Fatal("Dispatch on cancelled context succeeded, want error")
		}
		var de *DispatchError
		if !errors.As(err, &de) {
			t.Errorf("error = %v, want *DispatchError", err)
		}
	})

	t.Run("bounded-admission", func(t *testing.T) {
		d := NewBoundedDispatcher(kernel, 2)
		err := d.Dispatch(ctx, sequentialUnits(64), make([]uint32, 64))
		if err == nil {
			t.Fatal("Dispatch on cancelled context succeeded, want error")
		}
		if !errors.Is(err, context.Canceled) {
			t.Errorf("error = %v, want context.Canceled", err)
		}
	})
}

func TestChunkBounds(t *testing.T) {
	cases := []struct {
		size, n int
	}{
		{10, 3},
		{10, 10},
		{1, 1},
		{7, 4},
		{256, 8},
		{9999, 16},
	}

	for _, tc := range cases {
		covered := make([]int, tc.size)
		prevEnd := 0
		for i := 0; i < tc.n; i++ {
			start, end := chunkBounds(tc.size, tc.n, i)
			if start != prevEnd {
				t.Errorf("size=%d n=%d chunk %d: start = %d, want %d (contiguous)", tc.size, tc.n, i, start, prevEnd)
			}
			for idx := start; idx < end; idx++ {
				covered[idx]++
			}
			prevEnd = end
		}
		if prevEnd != tc.size {
			t.Errorf("size=%d n=%d: chunks end at %d, want %d", tc.size, tc.n, prevEnd, tc.size)
		}
		for idx, n := range covered {
			if n != 1 {
				t.Errorf("size=%d n=%d: index %d covered %d times, want 1", tc.size, tc.n, idx, n)
			}
		}
	}
}

func TestAll_StableRegistry(t *testing.T) {
	kernel := workload.Process

	first := All(kernel, 4)
	second := All(kernel, 4)
	if len(first) != len(second) {
		t.Fatalf("registry size changed between calls: %d vs %d", len(first), len(second))
	}

	seen := make(map[string]bool)
	for i := range first {
		if first[i].Name() != second[i].Name() {
			t.Errorf("registry order differs at %d: %s vs %s", i, first[i].Name(), second[i].Name())
		}
		if seen[first[i].Name()] {
			t.Errorf("duplicate backend name %q", first[i].Name())
		}
		seen[first[i].Name()] = true

		if c := first[i].Category(); c != CategorySpawn && c != CategoryParallel && c != CategoryHybrid {
			t.Errorf("backend %q has unknown category %q", first[i].Name(), c)
		}
	}
}

// backendNames returns the registry's names using a throwaway kernel.
func backendNames(t *testing.T) []string {
	t.Helper()
	var names []string
	for _, d := range All(func(v uint32) uint32 { return v }, 1) {
		names = append(names, d.Name())
	}
	return names
}

// findBackend rebuilds the registry with the given kernel and returns the
// named adapter.
func findBackend(t *testing.T, name string, kernel workload.Kernel, workers int) Dispatcher {
	t.Helper()
	for _, d := range All(kernel, workers) {
		if d.Name() == name {
			return d
		}
	}
	t.Fatalf("backend %q not registered", name)
	return nil
}
