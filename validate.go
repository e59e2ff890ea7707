// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// The invariant checker (spec §4.6, §8). Promoted from test-only
// scaffolding to a first-class exported operation: lldb's falloc_test.go
// carries a pAllocator wrapper that re-validates a Filer after every
// mutating call (walking it, re-deriving free/used totals, comparing
// against the FLT); this is that same walk-and-cross-check, exported as
// Heap.ValidateHeap per spec §6.
package rbmalloc

// validate performs the O(N) whole-heap walk described in spec §4.6,
// returning the first violated invariant it finds, or nil.
func (h *Heap) validate() error {
	buf := h.buf
	off := int64(0)
	prevAlloc := true // no left neighbor for the first block

	var freeBytes, allocBytes int64

	for off != h.sentinelOff {
		if off > h.sentinelOff {
			return &ErrILSEQ{Msg: "block walk overshot the sentinel", Off: off}
		}

		size := sizeAt(buf, off)
		if size < MinBlockSize || size%Alignment != 0 {
			return &ErrILSEQ{Msg: "invalid block size", Off: off}
		}

		hdr := headerAt(buf, off)
		wantLeftAlloc := prevAlloc
		if off == 0 {
			wantLeftAlloc = true
		}
		if isLeftAllocated(hdr) != wantLeftAlloc {
			return &ErrILSEQ{Msg: "left-allocated bit inconsistent with neighbor", Off: off}
		}

		alloc := isAllocated(hdr)
		if alloc {
			allocBytes += size
		} else {
			if !prevAlloc {
				return &ErrILSEQ{Msg: "two physically adjacent free blocks", Off: off}
			}
			// The color bit is excluded: the tree recolors a free block's
			// header after its footer is written, and the footer's color
			// carries no meaning.
			if footerAt(buf, off, size)&^colorBit != hdr&^colorBit {
				return &ErrILSEQ{Msg: "free block footer does not mirror its header", Off: off}
			}
			freeBytes += size
		}

		prevAlloc = alloc
		off += size
	}

	sh := headerAt(buf, h.sentinelOff)
	if !isAllocated(sh) {
		return &ErrILSEQ{Msg: "sentinel is not marked allocated", Off: h.sentinelOff}
	}
	if blockSize(sh) != 0 {
		return &ErrILSEQ{Msg: "sentinel has a nonzero size", Off: h.sentinelOff}
	}
	if isLeftAllocated(sh) != prevAlloc {
		return &ErrILSEQ{Msg: "sentinel left-allocated bit inconsistent", Off: h.sentinelOff}
	}

	var idxBytes int64
	var idxCount int
	h.idx.Walk(func(n int64) {
		idxBytes += sizeAt(buf, n)
		idxCount++
	})
	if idxCount != h.idx.Count() {
		return &ErrILSEQ{Msg: "free index Count() disagrees with its own walk", Off: 0}
	}
	if idxBytes != freeBytes {
		return &ErrILSEQ{Msg: "free index total size disagrees with the heap walk", Off: 0}
	}
	if allocBytes+freeBytes+SentinelSize != h.size {
		return &ErrILSEQ{Msg: "allocated + free + sentinel bytes do not sum to segment size", Off: 0}
	}

	return h.idx.checkInvariants()
}

// ValidateHeap runs the full invariant check (spec §4.6, §6) and reports
// whether the heap is consistent. Programs should treat a false result as
// fatal (spec §7 "invariant-violation").
func (h *Heap) ValidateHeap() bool {
	err := h.validate()
	h.lastErr = err
	return err == nil
}
