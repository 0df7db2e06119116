// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package dispatch

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/AleutianAI/parabench/bench/workload"
)

// BoundedDispatcher admits at most K units in flight at a time through a
// weighted counting semaphore, re-admitting as each unit finishes.
//
// Every unit still gets its own goroutine, but the admission gate caps
// concurrency at the parallelism hint, so the scheduler never sees more
// than K runnable units. The semaphore acquire/release churn per unit is
// the overhead under measurement. Slot writes share a single mutex.
type BoundedDispatcher struct {
	kernel  workload.Kernel
	permits int64
}

// NewBoundedDispatcher creates the bounded-admission backend.
// workers < 1 means runtime.NumCPU().
func NewBoundedDispatcher(kernel workload.Kernel, workers int) *BoundedDispatcher {
	return &BoundedDispatcher{kernel: kernel, permits: int64(normalizeWorkers(workers))}
}

// Name returns the backend name.
func (d *BoundedDispatcher) Name() string { return "bounded-admission" }

// Category returns CategoryHybrid.
func (d *BoundedDispatcher) Category() Category { return CategoryHybrid }

// Dispatch admits units through the semaphore and awaits them all.
func (d *BoundedDispatcher) Dispatch(ctx context.Context, units, slots []uint32) error {
	if err := checkArgs(units, slots); err != nil {
		return &DispatchError{Backend: d.Name(), Err: err}
	}

	sem := semaphore.NewWeighted(d.permits)

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for idx, value := range units {
		if err := sem.Acquire(ctx, 1); err != nil {
			// Units already admitted run to completion before we report.
			wg.Wait()
			return &DispatchError{
				Backend: d.Name(),
				Err:     fmt.Errorf("admission gate: %w", err),
			}
		}

		wg.Add(1)
		go func(idx int, value uint32) {
			defer wg.Done()
			defer sem.Release(1)

			processed := d.kernel(value)
			mu.Lock()
			slots[idx] = processed
			mu.Unlock()
		}(idx, value)
	}
	wg.Wait()
	return nil
}
