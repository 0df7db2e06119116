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

// workgroupSize is the fixed number of units per workgroup, matching the
// workgroup granularity common in GPU compute dispatch.
const workgroupSize = 256

// WorkgroupDispatcher splits the workload into fixed 256-unit groups and
// runs each group on its own goroutine, processing units serially within a
// group.
//
// Unlike ChunkedDispatcher, the group count scales with workload size rather
// than with available CPUs, so large workloads oversubscribe the scheduler;
// how well that oversubscription is absorbed is the interesting number.
// Slot writes share a single mutex.
type WorkgroupDispatcher struct {
	kernel workload.Kernel
}

// NewWorkgroupDispatcher creates the fixed-size workgroup backend.
func NewWorkgroupDispatcher(kernel workload.Kernel) *WorkgroupDispatcher {
	return &WorkgroupDispatcher{kernel: kernel}
}

// Name returns the backend name.
func (d *WorkgroupDispatcher) Name() string { return "workgroup" }

// Category returns CategoryParallel.
func (d *WorkgroupDispatcher) Category() Category { return CategoryParallel }

// Dispatch processes the workload in 256-unit groups, one goroutine each.
func (d *WorkgroupDispatcher) Dispatch(_ context.Context, units, slots []uint32) error {
	if err := checkArgs(units, slots); err != nil {
		return &DispatchError{Backend: d.Name(), Err: err}
	}

	groups := (len(units) + workgroupSize - 1) / workgroupSize

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for g := 0; g < groups; g++ {
		start := g * workgroupSize
		end := start + workgroupSize
		if end > len(units) {
			end = len(units)
		}

		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for idx := start; idx < end; idx++ {
				processed := d.kernel(units[idx])
				mu.Lock()
				slots[idx] = processed
				mu.Unlock()
			}
		}(start, end)
	}
	wg.Wait()
	return nil
}
