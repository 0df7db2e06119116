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
	"log/slog"
	"runtime"
	"sync"

	"github.com/AleutianAI/parabench/bench/workload"
)

// indexedUnit pairs a workload value with its original slot index so it can
// travel through channels without losing its position.
type indexedUnit struct {
	idx   int
	value uint32
}

// PoolDispatcher runs a fixed-size pool of long-lived workers fed from a
// work channel, with a dedicated collector goroutine draining a result
// channel into the slot array.
//
// Workers never touch the slot array: every (index, result) pair funnels
// through the collector, which is the sole writer. That makes slot writes
// race-free without a lock, at the cost of channel traffic per unit — the
// producer/consumer overhead this backend exists to measure.
//
// Pool construction (channels, worker startup) happens inside Dispatch and
// therefore inside the timed region, matching how scheduler startup cost is
// charged to every backend.
type PoolDispatcher struct {
	kernel  workload.Kernel
	workers int
}

// NewPoolDispatcher creates the queue-and-collector backend.
// workers < 1 means runtime.NumCPU().
func NewPoolDispatcher(kernel workload.Kernel, workers int) *PoolDispatcher {
	return &PoolDispatcher{kernel: kernel, workers: normalizeWorkers(workers)}
}

// Name returns the backend name.
func (d *PoolDispatcher) Name() string { return "queue-collector" }

// Category returns CategoryHybrid.
func (d *PoolDispatcher) Category() Category { return CategoryHybrid }

// Dispatch feeds every unit through the work queue and waits for the
// collector to commit every result.
func (d *PoolDispatcher) Dispatch(_ context.Context, units, slots []uint32) error {
	if err := checkArgs(units, slots); err != nil {
		return &DispatchError{Backend: d.Name(), Err: err}
	}

	work := make(chan indexedUnit, len(units))
	results := make(chan indexedUnit, len(units))

	var workerWG sync.WaitGroup
	for i := 0; i < d.workers; i++ {
		workerWG.Add(1)
		go func(workerID int) {
			defer workerWG.Done()
			defer func() {
				if r := recover(); r != nil {
					buf := make([]byte, 4096)
					n := runtime.Stack(buf, false)
					slog.Error("panic in pool worker",
						slog.String("backend", d.Name()),
						slog.Int("worker_id", workerID),
						slog.Any("panic", r),
						slog.String("stack", string(buf[:n])),
					)
				}
			}()

			for unit := range work {
				results <- indexedUnit{idx: unit.idx, value: d.kernel(unit.value)}
			}
		}(i)
	}

	// Collector is the sole slot writer.
	collected := 0
	done := make(chan struct{})
	go func() {
		defer close(done)
		for res := range results {
			slots[res.idx] = res.value
			collected++
		}
	}()

	for idx, value := range units {
		work <- indexedUnit{idx: idx, value: value}
	}
	close(work)

	workerWG.Wait()
	close(results)
	<-done

	// A worker that died mid-unit leaves a gap the collector can count.
	if collected != len(units) {
		return &DispatchError{
			Backend: d.Name(),
			Err:     fmt.Errorf("%w: collected %d of %d results", ErrUnitFailed, collected, len(units)),
		}
	}
	return nil
}
