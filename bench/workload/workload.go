// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package workload generates benchmark inputs and defines the compute kernel
// every dispatch backend runs.
//
// The kernel performs a fixed amount of arithmetic per call regardless of its
// input, so measured differences between backends reflect scheduling and
// dispatch overhead rather than data-dependent work.
package workload

import (
	"math/rand/v2"
)

const (
	// ValueRange bounds generated unit values to [0, ValueRange).
	ValueRange = 10000

	// kernelRounds is the fixed iteration count of the mixing loop.
	kernelRounds = 1000
)

// Kernel is a pure transform from one input unit to one result.
//
// Implementations must be side-effect-free and safe to call from any number
// of goroutines without synchronization.
type Kernel func(uint32) uint32

// Process is the default CPU-bound kernel.
//
// It runs a fixed-round multiplicative mixing loop. The cost per call is
// constant and data-independent; repeated calls with the same input always
// return the same value.
func Process(value uint32) uint32 {
	result := value
	for i := 0; i < kernelRounds; i++ {
		result = (result*31 + 17) % ValueRange
	}
	return result
}

// Generator produces fixed-length workloads of bounded random values.
//
// A zero-seed Generator draws fresh entropy for every call to Generate, so
// consecutive trials see different data of identical size and range. A seeded
// Generator produces a deterministic stream, which makes trials reproducible
// for test harnesses and like-for-like backend comparisons.
//
// Thread Safety: NOT safe for concurrent use. The trial runner generates
// workloads sequentially, outside any timed region.
type Generator struct {
	size int
	rng  *rand.Rand
}

// NewGenerator creates a Generator for workloads of the given size.
//
// Inputs:
//   - size: Units per workload. Values < 1 are clamped to 1.
func NewGenerator(size int) *Generator {
	if size < 1 {
		size = 1
	}
	return &Generator{size: size}
}

// WithSeed switches the Generator to a deterministic PCG stream.
//
// Two Generators created with the same size and seed produce identical
// workload sequences.
func (g *Generator) WithSeed(seed uint64) *Generator {
	g.rng = rand.New(rand.NewPCG(seed, seed))
	return g
}

// Size returns the configured workload length.
func (g *Generator) Size() int {
	return g.size
}

// Generate produces one workload.
//
// The returned slice always has exactly Size() elements, each drawn
// independently from [0, ValueRange). The caller owns the slice.
func (g *Generator) Generate() []uint32 {
	units := make([]uint32, g.size)
	for i := range units {
		if g.rng != nil {
			units[i] = g.rng.Uint32N(ValueRange)
		} else {
			units[i] = rand.Uint32N(ValueRange)
		}
	}
	return units
}
