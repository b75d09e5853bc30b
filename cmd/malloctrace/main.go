// Copyright 2017 The Memory Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command malloctrace drives a synthetic allocate/release workload
// against malloc.Allocator and prints the resulting free-list statistics.
// It exists to give the allocator a runnable entry point alongside its
// library package; its console output and exact workload shape are not
// part of any tested contract and may change freely.
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"unsafe"

	"github.com/cznic/mathutil"

	"github.com/aary/sharp-malloc/malloc"
)

func main() {
	ops := flag.Int("ops", 10000, "number of allocate/release operations to perform")
	maxSize := flag.Int("max-size", 512, "maximum single allocation size in bytes")
	seed := flag.Int32("seed", 42, "seed for the deterministic workload PRNG")
	freeFraction := flag.Int("free-every", 3, "release a live block roughly every N operations")
	flag.Parse()

	if err := run(*ops, *maxSize, *seed, *freeFraction, os.Stdout); err != nil {
		log.Fatal(err)
	}
}

func run(ops, maxSize int, seed int32, freeFraction int, out *os.File) error {
	if maxSize <= 0 || freeFraction <= 0 {
		return fmt.Errorf("malloctrace: max-size and free-every must be positive")
	}

	rng, err := mathutil.NewFC32(0, math.MaxInt32, true)
	if err != nil {
		return fmt.Errorf("malloctrace: seeding workload PRNG: %w", err)
	}
	rng.Seed(seed)

	var a malloc.Allocator
	var live []unsafe.Pointer

	for i := 0; i < ops; i++ {
		if len(live) > 0 && rng.Next()%freeFraction == 0 {
			idx := rng.Next() % len(live)
			a.Release(live[idx])
			live[idx] = live[len(live)-1]
			live = live[:len(live)-1]
			continue
		}

		size := rng.Next() % (maxSize + 1)
		p, err := a.Allocate(size)
		if err != nil {
			return fmt.Errorf("malloctrace: allocate(%d) after %d ops: %w", size, i, err)
		}
		live = append(live, p)
	}

	for _, p := range live {
		a.Release(p)
	}

	stats := a.Stats()
	fmt.Fprintf(out, "operations:       %d\n", ops)
	fmt.Fprintf(out, "os chunks:        %d\n", stats.OSChunks)
	fmt.Fprintf(out, "os bytes mapped:  %d\n", stats.OSChunkBytes)
	fmt.Fprintf(out, "free-list nodes:  %d\n", stats.FreeNodes)
	fmt.Fprintf(out, "free-list bytes:  %d\n", stats.FreePayload)
	fmt.Fprintf(out, "outstanding live: %d\n", stats.Allocs)
	return nil
}
