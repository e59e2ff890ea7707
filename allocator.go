// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// The allocator façade (spec §4.5, §6 "Allocator API"). Grounded on the
// split between lldb.NewAllocator/Alloc/Free/Get's public entry points and
// their private workers (alloc/free/free2), and on lldb.Allocator.alloc's
// branch between "reuse a free block" and "grow the file" -- reshaped here
// since this allocator never grows: lldb's h == 0 "must grow" branch
// becomes the out-of-space failure path (spec's Non-goal: "growth beyond
// the initial segment").
package rbmalloc

import "github.com/cznic/mathutil"

// IndexVariant selects which FreeIndex implementation a Heap is built
// with -- the red-black tree (spec §4.2, primary) or the segregated lists
// (spec §4.3, alternative). Both satisfy the same contract, so a Heap's
// behavior is otherwise identical regardless of the choice.
type IndexVariant int

const (
	RBTreeIndex IndexVariant = iota
	SegregatedListIndex
)

// Heap is one allocator instance over one Segment (spec §9 "Global mutable
// state" is explicitly rejected: every public operation here takes a *Heap
// receiver instead of touching process-wide state, so a host can run one
// instance per segment).
type Heap struct {
	variant     IndexVariant
	seg         Segment
	buf         []byte
	idx         FreeIndex
	sentinelOff int64
	size        int64
	maxRequest  int64
	lastErr     error
}

// NewHeap constructs an uninitialized Heap over seg. Call Init before any
// other method.
func NewHeap(seg Segment, variant IndexVariant) *Heap {
	return &Heap{seg: seg, variant: variant}
}

// LastError returns the structured error, if any, produced by the most
// recent call to Init, Allocate, Reallocate, Deallocate or ValidateHeap. It is a
// convenience for the harness layer (spec §7's error kinds are otherwise
// only observable as a null/false return), not part of the literal spec
// surface.
func (h *Heap) LastError() error { return h.lastErr }

// MaxRequest returns the largest n that Allocate/Reallocate can ever
// satisfy, per spec §6: "at most segment_size - sentinel_width -
// header_width".
func (h *Heap) MaxRequest() int64 { return h.maxRequest }

// Init lays down one giant free block spanning the segment (minus the
// tail sentinel) and indexes it (spec §4.5).
func (h *Heap) Init() bool {
	raw := h.seg.Bytes()
	n := int64(len(raw)) &^ (Alignment - 1)

	if n < MinBlockSize+SentinelSize {
		h.lastErr = &ErrINVAL{Msg: "segment too small or unaligned", Arg: len(raw)}
		return false
	}

	h.buf = raw[:n]
	h.size = n
	h.sentinelOff = n - SentinelSize
	h.maxRequest = h.size - SentinelSize - headerWidth

	giantSize := h.sentinelOff
	gh := withLeftAllocated(withAllocated(withSize(0, giantSize), false), true)
	setHeaderAt(h.buf, 0, gh)
	setFooterAt(h.buf, 0, giantSize, gh)

	sh := withLeftAllocated(withAllocated(withSize(0, 0), true), false)
	setHeaderAt(h.buf, h.sentinelOff, sh)

	switch h.variant {
	case SegregatedListIndex:
		h.idx = newSegList(h.buf)
	default:
		h.idx = newRBIndex(h.buf, h.sentinelOff)
	}
	h.idx.Insert(0)

	h.lastErr = nil
	return true
}

// Allocate reserves a block able to hold n user bytes and returns its
// client pointer, or 0 if the request cannot be satisfied (spec §4.5).
func (h *Heap) Allocate(n int64) Ptr {
	if n == 0 {
		h.lastErr = nil
		return 0
	}
	if n > h.maxRequest {
		h.lastErr = &RequestTooLargeError{Requested: n, Max: h.maxRequest}
		return 0
	}

	need := blockSizeFor(n)
	found, ok := h.idx.PopBestFit(need)
	if !ok {
		h.lastErr = &OutOfSpaceError{Requested: need}
		return 0
	}

	h.splitOrTake(found, need)
	h.lastErr = nil
	return clientPtr(found)
}

// splitOrTake implements spec §4.5's split-or-take policy: carve a free
// tail off `found` when the remainder would still meet MinBlockSize,
// otherwise hand over the whole block.
func (h *Heap) splitOrTake(found, need int64) {
	buf := h.buf
	total := sizeAt(buf, found)
	fh := headerAt(buf, found)

	if total >= need+MinBlockSize {
		tailOff := found + need
		tailSize := total - need

		nh := withAllocated(withSize(fh, need), true)
		setHeaderAt(buf, found, nh)

		th := withLeftAllocated(withAllocated(withSize(0, tailSize), false), true)
		setHeaderAt(buf, tailOff, th)
		setFooterAt(buf, tailOff, tailSize, th)
		h.idx.Insert(tailOff)

		// The tail is free, so its right neighbor's left-allocated bit is
		// cleared (it may still be set when Reallocate shrinks a block).
		rightOff := found + total
		setHeaderAt(buf, rightOff, withLeftAllocated(headerAt(buf, rightOff), false))
		return
	}

	nh := withAllocated(fh, true)
	setHeaderAt(buf, found, nh)

	rightOff := found + total
	rh := headerAt(buf, rightOff)
	setHeaderAt(buf, rightOff, withLeftAllocated(rh, true))
}

// finalizeFree writes a coalesced block's footer, clears its right
// neighbor's left-allocated bit, and inserts it into the free index (the
// shared tail of spec §4.5 Deallocate and the Reallocate failure path).
func (h *Heap) finalizeFree(off int64) {
	buf := h.buf
	size := sizeAt(buf, off)
	hdr := headerAt(buf, off)
	setFooterAt(buf, off, size, hdr)

	rightOff := off + size
	rh := headerAt(buf, rightOff)
	setHeaderAt(buf, rightOff, withLeftAllocated(rh, false))

	h.idx.Insert(off)
}

// Deallocate frees the block referred to by p (spec §4.5). p == 0 is a
// no-op (spec §7).
func (h *Heap) Deallocate(p Ptr) {
	if p == 0 {
		return
	}

	off := coalesce(h.buf, blockOf(p), h.idx, h.sentinelOff)
	h.finalizeFree(off)
	h.lastErr = nil
}

// Reallocate resizes the block referred to by p to n bytes, per spec
// §4.5's grow/shrink/move rules and §7's edge cases (p == 0 behaves as
// Allocate; n == 0 behaves as Deallocate).
func (h *Heap) Reallocate(p Ptr, n int64) Ptr {
	if n > h.maxRequest {
		h.lastErr = &RequestTooLargeError{Requested: n, Max: h.maxRequest}
		return 0
	}
	if p == 0 {
		return h.Allocate(n)
	}
	if n == 0 {
		h.Deallocate(p)
		return 0
	}

	origOff := blockOf(p)
	oldSize := sizeAt(h.buf, origOff)
	need := blockSizeFor(n)

	b := coalesce(h.buf, origOff, h.idx, h.sentinelOff)

	if sizeAt(h.buf, b) >= need {
		if b != origOff {
			preserved := oldSize - headerWidth
			oldClient := origOff + headerWidth
			newClient := b + headerWidth
			copy(h.buf[newClient:newClient+preserved], h.buf[oldClient:oldClient+preserved])
		}
		h.splitOrTake(b, need)
		h.lastErr = nil
		return clientPtr(b)
	}

	newPtr := h.Allocate(n)
	if newPtr == 0 {
		// Destructive failure semantics (spec §4.5, §9 Design notes): the
		// original block stays coalesced and is reported free even though
		// the request failed.
		h.finalizeFree(b)
		return 0
	}

	preserved := mathutil.MinInt64(oldSize-headerWidth, n)
	oldClient := origOff + headerWidth
	copy(h.buf[int64(newPtr):int64(newPtr)+preserved], h.buf[oldClient:oldClient+preserved])
	h.finalizeFree(b)
	h.lastErr = nil
	return newPtr
}

// FreeBlockCount returns the number of free blocks currently indexed
// (spec §6 introspection).
func (h *Heap) FreeBlockCount() int { return h.idx.Count() }

// FreeBytes returns the total size, header included, of every currently
// free block; UsedBytes is its complement.
func (h *Heap) FreeBytes() int64 {
	var total int64
	h.idx.Walk(func(n int64) { total += sizeAt(h.buf, n) })
	return total
}

// UsedBytes returns the segment bytes not currently free, including the
// sentinel. The correctness harness reports this as "heap segment used"
// (spec §6).
func (h *Heap) UsedBytes() int64 { return h.size - h.FreeBytes() }

// SegmentSize returns the total byte length of the segment this Heap was
// initialized over.
func (h *Heap) SegmentSize() int64 { return h.size }
