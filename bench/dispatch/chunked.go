// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package dispatch

import (
	"context"
	"sync"

	"github.com/AleutianAI/parabench/bench/workload"
)

// chunkBounds returns the half-open [start, end) range of chunk i when size
// units are split across n contiguous chunks.
//
// The first size%n chunks carry one extra unit, so every index in [0, size)
// belongs to exactly one chunk: chunk ranges are disjoint by construction
// and cover the workload completely.
func chunkBounds(size, n, i int) (start, end int) {
	base := size / n
	extra := size % n
	if i < extra {
		start = i * (base + 1)
		end = start + base + 1
		return start, end
	}
	start = extra*(base+1) + (i-extra)*base
	end = start + base
	return start, end
}

// ChunkedDispatcher partitions the workload into one contiguous sub-range
// per worker and runs each range on its own goroutine.
//
// Writes are lock-free: each goroutine owns its slot sub-range exclusively,
// with disjointness guaranteed by chunkBounds. This is the cheapest
// synchronization discipline any backend here can use, so it typically sets
// the floor for dispatch overhead.
type ChunkedDispatcher struct {
	kernel  workload.Kernel
	workers int
}

// NewChunkedDispatcher creates the disjoint-range backend.
// workers < 1 means runtime.NumCPU().
func NewChunkedDispatcher(kernel workload.Kernel, workers int) *ChunkedDispatcher {
	return &ChunkedDispatcher{kernel: kernel, workers: normalizeWorkers(workers)}
}

// Name returns the backend name.
func (d *ChunkedDispatcher) Name() string { return "chunked-range" }

// Category returns CategoryParallel.
func (d *ChunkedDispatcher) Category() Category { return CategoryParallel }

// Dispatch processes each chunk on its own goroutine with exclusive writes.
func (d *ChunkedDispatcher) Dispatch(_ context.Context, units, slots []uint32) error {
	if err := checkArgs(units, slots); err != nil {
		return &DispatchError{Backend: d.Name(), Err: err}
	}

	workers := d.workers
	if workers > len(units) {
		workers = len(units)
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		start, end := chunkBounds(len(units), workers, i)
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for idx := start; idx < end; idx++ {
				slots[idx] = d.kernel(units[idx])
			}
		}(start, end)
	}
	wg.Wait()
	return nil
}

// ChunkedSpawnDispatcher composes two concurrency layers: an outer goroutine
// per chunk, each of which spawns one inner goroutine per unit of its chunk.
//
// This mirrors scheduler-plus-compute-layer hybrids where a task runtime
// fans out chunks and a data-parallel layer fans out items within each
// chunk. Inner writes go through a single shared mutex; the cost of the
// double fan-out and the shared lock is exactly what this backend measures.
type ChunkedSpawnDispatcher struct {
	kernel  workload.Kernel
	workers int
}

// NewChunkedSpawnDispatcher creates the two-layer hybrid backend.
// workers < 1 means runtime.NumCPU().
func NewChunkedSpawnDispatcher(kernel workload.Kernel, workers int) *ChunkedSpawnDispatcher {
	return &ChunkedSpawnDispatcher{kernel: kernel, workers: normalizeWorkers(workers)}
}

// Name returns the backend name.
func (d *ChunkedSpawnDispatcher) Name() string { return "chunked-spawn" }

// Category returns CategoryHybrid.
func (d *ChunkedSpawnDispatcher) Category() Category { return CategoryHybrid }

// Dispatch fans out chunks, then fans out units within each chunk.
func (d *ChunkedSpawnDispatcher) Dispatch(_ context.Context, units, slots []uint32) error {
	if err := checkArgs(units, slots); err != nil {
		return &DispatchError{Backend: d.Name(), Err: err}
	}

	workers := d.workers
	if workers > len(units) {
		workers = len(units)
	}

	var (
		outer sync.WaitGroup
		mu    sync.Mutex
	)
	for i := 0; i < workers; i++ {
		start, end := chunkBounds(len(units), workers, i)
		outer.Add(1)
		go func(start, end int) {
			defer outer.Done()

			var inner sync.WaitGroup
			for idx := start; idx < end; idx++ {
				inner.Add(1)
				go func(idx int) {
					defer inner.Done()
					processed := d.kernel(units[idx])
					mu.Lock()
					slots[idx] = processed
					mu.Unlock()
				}(idx)
			}
			inner.Wait()
		}(start, end)
	}
	outer.Wait()
	return nil
}
