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

	"gonum.org/v1/gonum/mat"

	"github.com/AleutianAI/parabench/bench/workload"
)

// MatrixDispatcher stages the workload in a dense matrix and processes it in
// parallel row bands, one goroutine per band.
//
// The reshape models pipelines whose compute layer is a linear-algebra
// library: inputs are packed into a mat.Dense inside the timed region, read
// back cell by cell, and results land in the flat slot array at the cell's
// original index. Row bands map to contiguous disjoint slot ranges, so
// writes need no lock.
//
// The matrix is sized workers x ceil(S/workers); trailing cells past the
// workload length are padding and are never read.
type MatrixDispatcher struct {
	kernel  workload.Kernel
	workers int
}

// NewMatrixDispatcher creates the matrix-band backend.
// workers < 1 means runtime.NumCPU().
func NewMatrixDispatcher(kernel workload.Kernel, workers int) *MatrixDispatcher {
	return &MatrixDispatcher{kernel: kernel, workers: normalizeWorkers(workers)}
}

// Name returns the backend name.
func (d *MatrixDispatcher) Name() string { return "matrix-band" }

// Category returns CategoryParallel.
func (d *MatrixDispatcher) Category() Category { return CategoryParallel }

// Dispatch packs the workload into a matrix and kernels each row band on its
// own goroutine.
func (d *MatrixDispatcher) Dispatch(_ context.Context, units, slots []uint32) error {
	if err := checkArgs(units, slots); err != nil {
		return &DispatchError{Backend: d.Name(), Err: err}
	}

	size := len(units)
	rows := d.workers
	if rows > size {
		rows = size
	}
	cols := (size + rows - 1) / rows

	// Pack into dense storage; cells past size stay zero and are skipped on
	// the way back out.
	backing := make([]float64, rows*cols)
	for i, v := range units {
		backing[i] = float64(v)
	}
	m := mat.NewDense(rows, cols, backing)

	var wg sync.WaitGroup
	for r := 0; r < rows; r++ {
		wg.Add(1)
		go func(r int) {
			defer wg.Done()
			for c := 0; c < cols; c++ {
				idx := r*cols + c
				if idx >= size {
					return
				}
				slots[idx] = d.kernel(uint32(m.At(r, c)))
			}
		}(r)
	}
	wg.Wait()
	return nil
}
