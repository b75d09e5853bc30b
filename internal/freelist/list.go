// Copyright 2017 The Memory Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package freelist

// FreeList is a doubly-linked, intrusive sequence of BlockHeaders held in
// strict ascending address order: for any two adjacent nodes H1 -> H2,
// addrOf(H1) < addrOf(H2). It owns no memory of its own — each free region
// *is* its own list node, which is what lets Release derive a header from
// a user pointer by a fixed offset instead of a parallel lookup structure.
//
// The zero value is an empty list, ready to use.
type FreeList struct {
	head *BlockHeader
}

// Head returns the lowest-address header in the list, or nil if empty.
func (fl *FreeList) Head() *BlockHeader { return fl.head }

// insertSorted links h into the list at the unique position that keeps
// ascending address order and returns h (the cursor for the just-inserted
// node — with an intrusive list the node's own pointer doubles as its
// cursor). h's address range must not overlap any node already in the
// list; that precondition is the caller's to uphold.
func (fl *FreeList) insertSorted(h *BlockHeader) *BlockHeader {
	if fl.head == nil || addrOf(h) < addrOf(fl.head) {
		h.prev = nil
		h.next = fl.head
		if fl.head != nil {
			fl.head.prev = h
		}
		fl.head = h
		return h
	}

	cur := fl.head
	for cur.next != nil && addrOf(cur.next) < addrOf(h) {
		cur = cur.next
	}

	h.prev = cur
	h.next = cur.next
	if cur.next != nil {
		cur.next.prev = h
	}
	cur.next = h
	return h
}

// erase unlinks h from the list in O(1). h must currently be a member of
// fl.
func (fl *FreeList) erase(h *BlockHeader) {
	if h.prev != nil {
		h.prev.next = h.next
	} else {
		fl.head = h.next
	}
	if h.next != nil {
		h.next.prev = h.prev
	}
	h.prev, h.next = nil, nil
}

// findFirstFit scans from the head and returns the first header whose
// payload is strictly greater than amount, or nil if none qualifies.
//
// Strict '>' rather than '>=' guarantees that, should the caller go on to
// split the found header by exactly amount bytes, the remainder is never
// zero-sized. An implementation may relax this to '>=' provided split is
// adapted to match and the FreeList invariants still hold after allocation;
// this engine keeps strict '>' to match the documented, tested behaviour.
func (fl *FreeList) findFirstFit(amount int) *BlockHeader {
	for cur := fl.head; cur != nil; cur = cur.next {
		if cur.payloadSize > amount {
			return cur
		}
	}
	return nil
}

// count returns the number of headers currently linked into fl. It exists
// for tests and for the demo driver's statistics, not for the allocation
// fast path.
func (fl *FreeList) count() int {
	n := 0
	for cur := fl.head; cur != nil; cur = cur.next {
		n++
	}
	return n
}

// totalPayload sums the payload bytes of every header currently in fl.
func (fl *FreeList) totalPayload() int {
	n := 0
	for cur := fl.head; cur != nil; cur = cur.next {
		n += cur.payload()
	}
	return n
}
