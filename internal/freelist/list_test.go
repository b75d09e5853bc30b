// Copyright 2017 The Memory Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package freelist

import (
	"testing"
	"unsafe"
)

// contiguousChunk lays out len(spans) headers back-to-back in one backing
// block, in address order, and returns them. Tests that care about address
// ordering (insertion order, adjacency) use this instead of independent
// backing() calls, since Go gives no ordering guarantee between separate
// make() allocations.
func contiguousChunk(t *testing.T, spans ...int) []*BlockHeader {
	t.Helper()
	total := 0
	for _, s := range spans {
		total += s
	}
	base := backing(t, total)
	headers := make([]*BlockHeader, len(spans))
	off := 0
	for i, s := range spans {
		h := constructHeader(unsafe.Add(base, off), s)
		if h == nil {
			t.Fatalf("span %d too small to hold a header", s)
		}
		headers[i] = h
		off += s
	}
	return headers
}

func addresses(t *testing.T, fl *FreeList) []uintptr {
	t.Helper()
	var out []uintptr
	for cur := fl.Head(); cur != nil; cur = cur.next {
		out = append(out, addrOf(cur))
	}
	return out
}

func TestInsertSortedMaintainsOrder(t *testing.T) {
	span := headerSize + MaxAlign
	hs := contiguousChunk(t, span, span, span, span)

	var fl FreeList
	// Insert out of address order; the list must come out sorted anyway.
	for _, i := range []int{2, 0, 3, 1} {
		fl.insertSorted(hs[i])
	}

	got := addresses(t, &fl)
	want := []uintptr{addrOf(hs[0]), addrOf(hs[1]), addrOf(hs[2]), addrOf(hs[3])}
	if len(got) != len(want) {
		t.Fatalf("got %d nodes, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("node %d out of order: got %#x want %#x", i, got[i], want[i])
		}
	}
}

func TestInsertSortedLinksBothDirections(t *testing.T) {
	span := headerSize + MaxAlign
	hs := contiguousChunk(t, span, span, span)

	var fl FreeList
	fl.insertSorted(hs[1])
	fl.insertSorted(hs[0])
	fl.insertSorted(hs[2])

	if hs[0].prev != nil {
		t.Fatal("head must have nil prev")
	}
	if hs[0].next != hs[1] || hs[1].prev != hs[0] {
		t.Fatal("broken forward/back link between node 0 and 1")
	}
	if hs[1].next != hs[2] || hs[2].prev != hs[1] {
		t.Fatal("broken forward/back link between node 1 and 2")
	}
	if hs[2].next != nil {
		t.Fatal("tail must have nil next")
	}
}

func TestEraseHead(t *testing.T) {
	span := headerSize + MaxAlign
	hs := contiguousChunk(t, span, span, span)
	var fl FreeList
	fl.insertSorted(hs[0])
	fl.insertSorted(hs[1])
	fl.insertSorted(hs[2])

	fl.erase(hs[0])
	if fl.Head() != hs[1] {
		t.Fatal("erasing the head must promote its successor")
	}
	if hs[1].prev != nil {
		t.Fatal("new head must have nil prev")
	}
}

func TestEraseMiddleAndTail(t *testing.T) {
	span := headerSize + MaxAlign
	hs := contiguousChunk(t, span, span, span)
	var fl FreeList
	fl.insertSorted(hs[0])
	fl.insertSorted(hs[1])
	fl.insertSorted(hs[2])

	fl.erase(hs[1])
	if hs[0].next != hs[2] || hs[2].prev != hs[0] {
		t.Fatal("erasing middle node must relink neighbours")
	}

	fl.erase(hs[2])
	if hs[0].next != nil {
		t.Fatal("erasing tail must leave new tail with nil next")
	}
}

func TestFindFirstFitIsStrict(t *testing.T) {
	span10 := headerSize + MaxAlign
	span20 := headerSize + 2*MaxAlign
	hs := contiguousChunk(t, span10, span20)
	var fl FreeList
	fl.insertSorted(hs[0])
	fl.insertSorted(hs[1])

	if h := fl.findFirstFit(hs[0].payloadSize); h != hs[1] {
		t.Fatal("findFirstFit(exact payload) must skip an exact-fit header (strict >) and return the next")
	}
	if h := fl.findFirstFit(hs[1].payloadSize); h != nil {
		t.Fatal("findFirstFit must return nil when no header has strictly more payload")
	}
}

func TestFindFirstFitPicksLowestAddress(t *testing.T) {
	span := headerSize + 4*MaxAlign
	hs := contiguousChunk(t, span, span, span)
	var fl FreeList
	// Insert in reverse address order to make sure the scan, not the
	// insertion order, determines the result.
	fl.insertSorted(hs[2])
	fl.insertSorted(hs[1])
	fl.insertSorted(hs[0])

	if h := fl.findFirstFit(MaxAlign); h != hs[0] {
		t.Fatal("findFirstFit must return the lowest-address qualifying header")
	}
}
