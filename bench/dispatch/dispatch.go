// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package dispatch defines the backend adapter contract and one adapter per
// concurrency strategy.
//
// Every adapter executes the same kernel over every unit of a workload using
// its own concurrency primitive, and blocks until each result has been
// committed to the shared slot array at the unit's original index. The trial
// runner treats all adapters as black boxes behind the Dispatcher interface,
// so timings are comparable across strategies.
//
// # Correctness Contract
//
// After a successful Dispatch, slots[i] == kernel(units[i]) for every i:
// no index skipped, no index written twice, no racing writers on one slot.
// Adapters achieve this either with a single shared mutex (contention is part
// of what is measured) or with statically disjoint sub-ranges handed
// exclusively to each goroutine.
//
// # Failure Semantics
//
// A failed concurrent unit is fatal to the dispatch. Adapters return a
// *DispatchError naming the backend rather than leaving a silently partial
// slot array.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/AleutianAI/parabench/bench/workload"
)

// Sentinel errors for dispatch operations.
var (
	// ErrNilSlots is returned when the result slot array is nil.
	ErrNilSlots = errors.New("result slots are nil")

	// ErrSizeMismatch is returned when the slot array length differs from
	// the workload length.
	ErrSizeMismatch = errors.New("slot count does not match workload size")

	// ErrUnitFailed is returned when a concurrent unit terminated without
	// committing its result.
	ErrUnitFailed = errors.New("concurrent unit failed")
)

// Category groups backends sharing a concurrency strategy class.
//
// Rankings are computed both globally and within each category, so a
// work-queue pool is compared against other hybrid designs as well as
// against everything else.
type Category string

const (
	// CategorySpawn covers backends that launch one concurrent unit per
	// workload item and await them all.
	CategorySpawn Category = "spawn"

	// CategoryParallel covers backends that partition the workload into
	// data-parallel chunks.
	CategoryParallel Category = "parallel"

	// CategoryHybrid covers backends composing a scheduler with a second
	// concurrency layer, work queues, or admission control.
	CategoryHybrid Category = "hybrid"
)

// Dispatcher executes a kernel over one workload using one concurrency
// backend.
//
// Thread Safety: Dispatch must not be invoked concurrently on the same
// workload/slots pair. The trial runner drives exactly one dispatch at a
// time so timed regions never overlap.
type Dispatcher interface {
	// Name returns the backend's unique display name.
	Name() string

	// Category returns the comparison group this backend belongs to.
	Category() Category

	// Dispatch runs the kernel over every unit, writing result i into
	// slots[i], and returns only once all units have completed.
	Dispatch(ctx context.Context, units, slots []uint32) error
}

// DispatchError wraps a backend-level failure with the backend's name.
type DispatchError struct {
	// Backend is the name of the adapter that failed.
	Backend string

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch %s: %v", e.Backend, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *DispatchError) Unwrap() error {
	return e.Err
}

// checkArgs validates the shared adapter preconditions.
func checkArgs(units, slots []uint32) error {
	if slots == nil {
		return ErrNilSlots
	}
	if len(slots) != len(units) {
		return fmt.Errorf("%w: %d slots for %d units", ErrSizeMismatch, len(slots), len(units))
	}
	return nil
}

// normalizeWorkers resolves a worker-count hint, falling back to the number
// of available CPUs.
func normalizeWorkers(workers int) int {
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	if workers < 1 {
		workers = 1
	}
	return workers
}

// All returns one adapter per registered backend, in stable order.
//
// Every adapter runs the same kernel; workers is the hardware parallelism
// hint used by chunk-partitioning and pooled backends (values < 1 mean
// runtime.NumCPU()).
func All(kernel workload.Kernel, workers int) []Dispatcher {
	return []Dispatcher{
		NewGoroutineDispatcher(kernel),
		NewErrgroupDispatcher(kernel),
		NewChunkedDispatcher(kernel, workers),
		NewWorkgroupDispatcher(kernel),
		NewMatrixDispatcher(kernel, workers),
		NewChunkedSpawnDispatcher(kernel, workers),
		NewPoolDispatcher(kernel, workers),
		NewBoundedDispatcher(kernel, workers),
	}
}
