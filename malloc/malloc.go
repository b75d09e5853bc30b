// Copyright 2017 The Memory Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package malloc is a drop-in allocate/release pair for application code
// that wants to bypass the Go runtime's allocator: a single-threaded,
// first-fit, coalescing free-list allocator built from page-granularity
// chunks obtained directly from the operating system via mmap (or its
// Windows equivalent).
//
// Thread safety, cross-process sharing, extended alignment, security
// hardening and release-to-OS are explicitly not provided; callers that
// need thread safety must wrap Allocate/Release with their own mutex.
package malloc

import (
	"fmt"
	"os"
	"unsafe"

	"github.com/aary/sharp-malloc/internal/freelist"
	"github.com/aary/sharp-malloc/internal/osheap"
)

// trace gates verbose per-call logging to os.Stderr, compiled out by
// default. Flip it to true locally when debugging; it carries no
// production cost once the compiler proves the branches dead.
const trace = false

// Allocator is a ready-to-use free-list allocator. The zero value lazily
// acquires its own OS heap on first use, so callers never need a separate
// constructor call.
type Allocator struct {
	core *freelist.Allocator
	heap *osheap.Heap
}

func (a *Allocator) init() {
	if a.core != nil {
		return
	}
	a.heap = osheap.New()
	a.core = freelist.NewAllocator(a.heap)
}

// Allocate reserves at least size bytes and returns an aligned pointer to
// them, or an error if the operating system refuses to grow the heap.
// size must be non-negative. Allocate(0) returns a non-nil, aligned pointer
// that may be passed to Release but must not be dereferenced.
func (a *Allocator) Allocate(size int) (p unsafe.Pointer, err error) {
	if trace {
		defer func() {
			fmt.Fprintf(os.Stderr, "Allocate(%#x) %p, %v\n", size, p, err)
		}()
	}
	a.init()
	return a.core.Allocate(size)
}

// Release returns a pointer previously obtained from Allocate. Releasing a
// pointer Allocate did not return, or releasing the same pointer twice, is
// a caller bug with undefined behaviour.
func (a *Allocator) Release(p unsafe.Pointer) {
	if trace {
		defer fmt.Fprintf(os.Stderr, "Release(%p)\n", p)
	}
	a.init()
	a.core.Release(p)
}

// Stats mirrors freelist.Stats, reporting its count and total size of the
// OS chunks handed out as OSChunks and OSChunkBytes, for callers (and the
// demo driver) that want a one-line health summary.
type Stats struct {
	Allocs       int
	FreeNodes    int
	FreePayload  int
	OSChunks     int
	OSChunkBytes int
}

// Stats reports the allocator's current bookkeeping.
func (a *Allocator) Stats() Stats {
	a.init()
	s := a.core.Stats()
	return Stats{
		Allocs:       s.Allocs,
		FreeNodes:    s.FreeNodes,
		FreePayload:  s.FreePayload,
		OSChunks:     s.Chunks,
		OSChunkBytes: s.ChunkBytes,
	}
}
