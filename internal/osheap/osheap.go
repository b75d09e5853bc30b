// Copyright 2011 Evan Shaw. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE-MMAP-GO file.

// Modifications (c) 2017 The Memory Authors.

// Package osheap is the platform-specific OS adapter the free-list engine
// consumes: it grows the heap by mapping fresh, page-aligned, anonymous
// memory, and it rounds allocation requests up to the engine's maximum
// fundamental alignment. mmap0 is implemented per-platform in
// osheap_unix.go and osheap_windows.go, selected at build time via Go
// build constraints.
package osheap

import (
	"fmt"
	"os"
	"unsafe"

	"github.com/aary/sharp-malloc/internal/freelist"
)

// PageSize is the OS-reported page size, computed once at package init.
var PageSize = os.Getpagesize()

// roundUpToPageBoundary rounds n up to the next multiple of PageSize. This
// is the corrected replacement for one source iteration's
// roundUpToPageBoundaryBuggy below: ceil(n/PAGE) x PAGE, not n plus n's
// remainder (which only produces a multiple when n already was one).
func roundUpToPageBoundary(n int) int {
	return (n + PageSize - 1) / PageSize * PageSize
}

// roundUpToPageBoundaryBuggy reproduces the incorrect rounding found in
// one historical iteration of the original allocator this engine is
// modeled on (os_memory.cpp: "actual += actual % PAGE"). It is kept only
// so a test can pin exactly why it was rejected; nothing in this package
// calls it.
func roundUpToPageBoundaryBuggy(n int) int {
	return n + n%PageSize
}

// Heap implements freelist.OSHeap over anonymous OS-mapped memory. The
// zero value is ready to use.
type Heap struct {
	chunks     int
	totalBytes int
}

// New returns a ready-to-use Heap.
func New() *Heap { return &Heap{} }

// Extend requests at least minBytes of fresh memory from the OS, rounded
// up to a whole number of pages (never less than one page), and returns
// its base address and actual size. On failure it wraps the OS error.
func (h *Heap) Extend(minBytes int) (base unsafe.Pointer, actualBytes int, err error) {
	if minBytes <= 0 {
		panic("osheap: Extend requires a positive size")
	}

	actual := roundUpToPageBoundary(minBytes)
	if actual < PageSize {
		actual = PageSize
	}

	b, mErr := mmap0(actual)
	if mErr != nil {
		return nil, 0, fmt.Errorf("osheap: mapping %d bytes from the OS: %w", actual, mErr)
	}

	h.chunks++
	h.totalBytes += actual
	return unsafe.Pointer(&b[0]), actual, nil
}

// RoundUpToMaxAlignment rounds n up to freelist.MaxAlign, satisfying the
// round_up_to_max_alignment contract the engine requires of its OS
// adapter.
func (h *Heap) RoundUpToMaxAlignment(n int) int {
	return (n + freelist.MaxAlign - 1) &^ (freelist.MaxAlign - 1)
}

// Chunks and TotalBytes report how much this Heap has ever requested from
// the OS.
func (h *Heap) Chunks() int     { return h.chunks }
func (h *Heap) TotalBytes() int { return h.totalBytes }
