// Copyright 2011 Evan Shaw. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE-MMAP-GO file.

//go:build windows

// Modifications (c) 2017 The Memory Authors.

package osheap

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

// mmap0 reserves and commits size bytes of anonymous, zero-filled memory.
// Anonymous memory on Windows has a direct one-call equivalent to mmap:
// VirtualAlloc with MEM_COMMIT|MEM_RESERVE, which x/sys/windows exposes
// without any file-mapping handle to carry alongside it.
func mmap0(size int) ([]byte, error) {
	addr, err := windows.VirtualAlloc(0, uintptr(size), windows.MEM_COMMIT|windows.MEM_RESERVE, windows.PAGE_READWRITE)
	if err != nil {
		return nil, err
	}

	if addr%uintptr(PageSize) != 0 {
		panic("osheap: VirtualAlloc returned a non-page-aligned address")
	}

	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), size), nil
}
