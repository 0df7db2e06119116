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

	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/parabench/bench/workload"
)

// GoroutineDispatcher spawns one goroutine per workload unit and awaits them
// all with a WaitGroup.
//
// This is the rawest spawn-and-join strategy: no pooling, no admission
// control, one scheduling decision per unit. The slot array is guarded by a
// single shared mutex; lock contention across units is deliberately part of
// what this backend measures.
type GoroutineDispatcher struct {
	kernel workload.Kernel
}

// NewGoroutineDispatcher creates the per-unit goroutine backend.
func NewGoroutineDispatcher(kernel workload.Kernel) *GoroutineDispatcher {
	return &GoroutineDispatcher{kernel: kernel}
}

// Name returns the backend name.
func (d *GoroutineDispatcher) Name() string { return "goroutine-per-unit" }

// Category returns CategorySpawn.
func (d *GoroutineDispatcher) Category() Category { return CategorySpawn }

// Dispatch runs the kernel on every unit, one goroutine each.
func (d *GoroutineDispatcher) Dispatch(_ context.Context, units, slots []uint32) error {
	if err := checkArgs(units, slots); err != nil {
		return &DispatchError{Backend: d.Name(), Err: err}
	}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for idx, value := range units {
		wg.Add(1)
		go func(idx int, value uint32) {
			defer wg.Done()
			processed := d.kernel(value)
			mu.Lock()
			slots[idx] = processed
			mu.Unlock()
		}(idx, value)
	}
	wg.Wait()
	return nil
}

// ErrgroupDispatcher spawns one errgroup task per workload unit.
//
// Functionally close to GoroutineDispatcher, but each unit runs under an
// errgroup with context propagation: a panicking unit is converted to an
// error, sibling units observe the shared context, and Wait surfaces the
// first failure instead of leaving a partial slot array behind.
type ErrgroupDispatcher struct {
	kernel workload.Kernel
}

// NewErrgroupDispatcher creates the errgroup-per-unit backend.
func NewErrgroupDispatcher(kernel workload.Kernel) *ErrgroupDispatcher {
	return &ErrgroupDispatcher{kernel: kernel}
}

// Name returns the backend name.
func (d *ErrgroupDispatcher) Name() string { return "errgroup-per-unit" }

// Category returns CategorySpawn.
func (d *ErrgroupDispatcher) Category() Category { return CategorySpawn }

// Dispatch runs the kernel on every unit, one errgroup task each.
func (d *ErrgroupDispatcher) Dispatch(ctx context.Context, units, slots []uint32) error {
	if err := checkArgs(units, slots); err != nil {
		return &DispatchError{Backend: d.Name(), Err: err}
	}

	g, ctx := errgroup.WithContext(ctx)
	var mu sync.Mutex

	for idx, value := range units {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					buf := make([]byte, 4096)
					n := runtime.Stack(buf, false)
					slog.Error("panic in dispatch unit",
						slog.String("backend", d.Name()),
						slog.Int("unit", idx),
						slog.Any("panic", r),
						slog.String("stack", string(buf[:n])),
					)
					err = fmt.Errorf("%w: unit %d panicked: %v", ErrUnitFailed, idx, r)
				}
			}()

			if err := ctx.Err(); err != nil {
				return err
			}
			processed := d.kernel(value)
			mu.Lock()
			slots[idx] = processed
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return &DispatchError{Backend: d.Name(), Err: err}
	}
	return nil
}
