// Copyright 2017 The Memory Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package freelist

import "unsafe"

// OSHeap is the external collaborator the engine consumes to grow the
// heap and to round allocation requests up to the maximum fundamental
// alignment. It is the seam between this package (the free-list engine)
// and the operating-system-specific chunk acquisition code, deliberately
// kept out of this package so the engine stays independent of any given
// OS's mmap-equivalent.
type OSHeap interface {
	// Extend requests at least minBytes of fresh, page-aligned, writable
	// memory from the OS. It reports the actual size handed back, which
	// is always >= minBytes and a positive multiple of the page size.
	// On OS failure it returns a non-nil error; the free list is left
	// untouched by a failed Extend.
	Extend(minBytes int) (base unsafe.Pointer, actualBytes int, err error)

	// RoundUpToMaxAlignment rounds n up to the nearest multiple of A.
	RoundUpToMaxAlignment(n int) int
}

// Allocator is the front-end: it implements Allocate and Release over a
// single FreeList, delegating heap growth to an OSHeap. The zero value is
// not ready for use — construct one with NewAllocator so it has a heap to
// grow into.
type Allocator struct {
	heap OSHeap
	list FreeList

	allocs     int // outstanding Allocate calls not yet Released
	chunks     int // distinct OS chunks acquired via Extend
	chunkBytes int // sum of actualBytes across all Extend calls
}

// NewAllocator returns an Allocator that grows its heap through heap. heap
// must not be nil.
func NewAllocator(heap OSHeap) *Allocator {
	if heap == nil {
		panic("freelist: NewAllocator requires a non-nil OSHeap")
	}
	return &Allocator{heap: heap}
}

// Allocate reserves at least amount bytes and returns an A-aligned pointer
// to them. amount must be non-negative; a negative amount is a caller bug
// and panics with a bare message rather than returning an error, matching
// this package's convention of panicking on contract violations and only
// returning errors for conditions outside the caller's control.
//
// The returned pointer remains valid, and is the caller's to use, until
// passed to Release. If the OS refuses to grow the heap, Allocate returns
// the resulting error unchanged and leaves the free list exactly as it was
// before the call.
func (a *Allocator) Allocate(amount int) (unsafe.Pointer, error) {
	if amount < 0 {
		panic("freelist: negative allocation size")
	}

	amount = a.heap.RoundUpToMaxAlignment(amount)

	h := a.list.findFirstFit(amount)
	if h == nil {
		base, actualBytes, err := a.heap.Extend(amount + headerSize)
		if err != nil {
			return nil, err
		}

		nh := constructHeader(base, actualBytes)
		if nh == nil {
			panic("freelist: OS adapter returned a chunk too small to hold a header")
		}

		a.chunks++
		a.chunkBytes += actualBytes
		a.list.insertSorted(nh)

		h = a.list.findFirstFit(amount)
		if h == nil {
			panic("freelist: freshly extended chunk did not satisfy its own allocation")
		}
	}

	a.list.erase(h)
	if remainder := split(h, amount); remainder != h {
		a.list.insertSorted(remainder)
	}

	a.allocs++
	return unsafe.Add(unsafe.Pointer(h), headerSize), nil
}

// Release returns a block previously obtained from Allocate to the free
// list, merging it with either neighbour that is also free. Passing a
// pointer not obtained from Allocate, or releasing the same pointer twice,
// is a caller bug: the bytes at the derived header address have already
// been overwritten by user data and the result is undefined, exactly as
// for a C free() of a bad pointer.
func (a *Allocator) Release(p unsafe.Pointer) {
	if p == nil {
		panic("freelist: release of nil pointer")
	}

	h := (*BlockHeader)(unsafe.Add(p, -headerSize))
	assertAlignedAddr(unsafe.Pointer(h))

	a.list.insertSorted(h)
	// Both neighbour cursors are captured now, before either merge, so
	// that a successful predecessor merge (which reinserts at a new
	// address and could otherwise invalidate a lazily-recomputed
	// iterator) never disturbs the still-untouched successor node the
	// second check needs.
	before, after := h.prev, h.next

	if before != nil {
		if m := tryCoalesce(before, h); m != nil {
			a.list.erase(h)
			a.list.erase(before)
			h = a.list.insertSorted(m)
		}
	}

	if after != nil {
		if m := tryCoalesce(after, h); m != nil {
			a.list.erase(h)
			a.list.erase(after)
			a.list.insertSorted(m)
		}
	}

	a.allocs--
}

// Stats reports point-in-time bookkeeping about the allocator: outstanding
// allocations, distinct OS chunks acquired, total bytes ever requested
// from the OS, and the number of headers and free bytes currently sitting
// in the free list. It exists for tests and the demo driver.
type Stats struct {
	Allocs      int
	Chunks      int
	ChunkBytes  int
	FreeNodes   int
	FreePayload int
}

func (a *Allocator) Stats() Stats {
	return Stats{
		Allocs:      a.allocs,
		Chunks:      a.chunks,
		ChunkBytes:  a.chunkBytes,
		FreeNodes:   a.list.count(),
		FreePayload: a.list.totalPayload(),
	}
}
