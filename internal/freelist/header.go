// Copyright 2017 The Memory Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package freelist implements the core free-list engine of the allocator:
// an in-place, address-ordered, doubly-linked list of free-region headers,
// first-fit search, splitting and coalescing. It owns none of the memory it
// describes — every byte a BlockHeader ever points into comes from an
// OSHeap chunk handed to an Allocator from outside this package.
package freelist

import "unsafe"

// MaxAlign is A, the system's maximum fundamental alignment: the alignment
// of the widest built-in scalar type. Every header address, every
// payloadSize, and every pointer returned from Allocate is a multiple of
// MaxAlign.
//
// 16 covers the widest scalar on every architecture this module targets.
const MaxAlign = 16

// BlockHeader is the in-place record at the start of every free region. It
// lives only while its region is free: once the region is handed to
// Allocate's caller its bytes belong to the caller and are no longer a
// valid BlockHeader.
type BlockHeader struct {
	payloadSize int // bytes after the header belonging to this free region
	prev, next  *BlockHeader
}

// headerSize is H: sizeof(BlockHeader) rounded up to MaxAlign. Computed
// once at package init from unsafe.Sizeof(BlockHeader{}) so it tracks the
// struct's actual layout on every target architecture.
var headerSize = roundup(int(unsafe.Sizeof(BlockHeader{})), MaxAlign)

// HeaderSize exposes H to callers outside this package.
func HeaderSize() int { return headerSize }

// roundup rounds n up to the nearest multiple of m. m must be a power of 2.
func roundup(n, m int) int { return (n + m - 1) &^ (m - 1) }

func isAligned(n int) bool { return n&(MaxAlign-1) == 0 }

func addrOf(h *BlockHeader) uintptr { return uintptr(unsafe.Pointer(h)) }

func assertAlignedAddr(at unsafe.Pointer) {
	if uintptr(at)&(MaxAlign-1) != 0 {
		panic("freelist: address not aligned to maximum alignment")
	}
}

func assertAlignedSize(n int) {
	if !isAligned(n) {
		panic("freelist: size not a multiple of the maximum alignment")
	}
}

// payload reports a header's recorded free-region payload size.
func (h *BlockHeader) payload() int { return h.payloadSize }

// span is the full footprint of h's region: header + payload.
func (h *BlockHeader) span() int { return headerSize + h.payloadSize }

// constructHeader places a header at address at describing a region of
// total size span (header + payload). It returns nil — the null header
// sentinel — when span is too small to hold a header at all; the caller
// must then treat at..at+span as unusable slack rather than a region.
//
// at must be MaxAlign-aligned and span must be a multiple of MaxAlign;
// violating either is a caller bug and panics.
func constructHeader(at unsafe.Pointer, span int) *BlockHeader {
	assertAlignedAddr(at)
	assertAlignedSize(span)

	if span <= headerSize {
		return nil
	}

	h := (*BlockHeader)(at)
	h.payloadSize = span - headerSize
	h.prev, h.next = nil, nil
	return h
}

// split reduces h's payload by amount bytes for an impending allocation of
// amount bytes. h must not currently be linked into a FreeList and must
// have payload >= amount; amount must be MaxAlign-aligned.
//
// If what remains after carving out amount bytes is large enough to hold a
// header of its own, split shrinks h to exactly amount payload bytes and
// returns the new remainder header — distinct from h — which the caller
// must reinsert into the free list. Otherwise h is returned unchanged
// (aside from keeping its original, slightly larger than amount, payload):
// there is no way to split off a remainder too small to track without
// leaking it, so the allocation silently receives a few extra bytes of
// slack instead.
func split(h *BlockHeader, amount int) *BlockHeader {
	assertAlignedSize(amount)
	if h.payloadSize < amount {
		panic("freelist: split requested more payload than the header has")
	}

	remainderAt := unsafe.Add(unsafe.Pointer(h), headerSize+amount)
	remainderSpan := h.payloadSize - amount
	if remainder := constructHeader(remainderAt, remainderSpan); remainder != nil {
		h.payloadSize = amount
		return remainder
	}

	return h
}

// tryCoalesce attempts to merge two byte-adjacent free headers into one. It
// returns the lower-addressed of the two headers, grown to cover both
// regions, when the higher-addressed one begins exactly where the lower's
// payload ends. It returns nil when the two regions are not adjacent; the
// higher header is left untouched in that case.
//
// On a successful merge the higher header is destroyed as a side effect —
// its bytes become part of the returned header's payload and must not be
// used as a BlockHeader again.
func tryCoalesce(a, b *BlockHeader) *BlockHeader {
	lo, hi := a, b
	if addrOf(hi) < addrOf(lo) {
		lo, hi = hi, lo
	}

	if addrOf(lo)+uintptr(lo.span()) == addrOf(hi) {
		lo.payloadSize += hi.span()
		return lo
	}

	return nil
}
