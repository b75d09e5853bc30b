// Copyright 2011 Evan Shaw. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE-MMAP-GO file.

//go:build unix

// Modifications (c) 2017 The Memory Authors.

package osheap

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// mmap0 asks the kernel for a fresh, private, anonymous, zero-filled
// mapping of size bytes, via golang.org/x/sys/unix rather than the
// lower-level and effectively frozen syscall package.
func mmap0(size int) ([]byte, error) {
	b, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, err
	}

	if uintptr(unsafe.Pointer(&b[0]))%uintptr(PageSize) != 0 {
		panic("osheap: mmap returned a non-page-aligned address")
	}

	return b, nil
}
