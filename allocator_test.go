// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rbmalloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHeap(t *testing.T, size int64, variant IndexVariant) *Heap {
	seg := NewMemSegment(size)
	h := NewHeap(seg, variant)
	require.True(t, h.Init(), "Init failed: %v", h.LastError())
	return h
}

func TestInitRejectsUndersizedSegment(t *testing.T) {
	seg := NewMemSegment(MinBlockSize + SentinelSize - 8)
	h := NewHeap(seg, RBTreeIndex)
	assert.False(t, h.Init())
	assert.Error(t, h.LastError())
}

func TestInitGiantFreeBlock(t *testing.T) {
	h := newTestHeap(t, 4096, RBTreeIndex)
	assert.Equal(t, 1, h.FreeBlockCount())
	assert.True(t, h.ValidateHeap())
}

func TestAllocateZeroReturnsNull(t *testing.T) {
	h := newTestHeap(t, 4096, RBTreeIndex)
	before := h.FreeBlockCount()
	assert.Equal(t, Ptr(0), h.Allocate(0))
	assert.Equal(t, before, h.FreeBlockCount())
}

func TestAllocateTooLargeReturnsNull(t *testing.T) {
	h := newTestHeap(t, 4096, RBTreeIndex)
	assert.Equal(t, Ptr(0), h.Allocate(h.MaxRequest()+1))
	assert.IsType(t, &RequestTooLargeError{}, h.LastError())
}

func TestAllocateMaxRequestSucceeds(t *testing.T) {
	h := newTestHeap(t, 4096, RBTreeIndex)
	p := h.Allocate(h.MaxRequest())
	assert.NotEqual(t, Ptr(0), p)
	assert.True(t, h.ValidateHeap())
}

// Scenario 1 (spec §8): split on allocation leaves one allocated block at
// the segment base and one free tail block in the index.
func TestScenarioSplitOnAlloc(t *testing.T) {
	h := newTestHeap(t, 4096, RBTreeIndex)

	p := h.Allocate(24)
	require.NotEqual(t, Ptr(0), p)
	assert.Equal(t, Ptr(headerWidth), p, "client pointer is just past the header at segment base")

	b := blockSizeFor(24)
	assert.Equal(t, b, sizeAt(h.buf, 0))
	assert.True(t, isAllocated(headerAt(h.buf, 0)))

	assert.Equal(t, 1, h.FreeBlockCount())
	wantFreeSize := h.sentinelOff - b
	h.idx.Walk(func(n int64) {
		assert.Equal(t, wantFreeSize, sizeAt(h.buf, n))
	})
	assert.True(t, h.ValidateHeap())
}

// Scenario 2 (spec §8): when the remainder would be below MinBlockSize,
// the whole free block is taken with no split.
func TestScenarioNoSplitOnAlloc(t *testing.T) {
	// An isolated free block of 64 bytes, immediately before a sentinel.
	buf := make([]byte, 64+SentinelSize)
	h0 := withLeftAllocated(withAllocated(withSize(0, 64), false), true)
	setHeaderAt(buf, 0, h0)
	setFooterAt(buf, 0, 64, h0)
	sh := withAllocated(withSize(0, 0), true)
	setHeaderAt(buf, 64, sh)

	h := &Heap{buf: buf, sentinelOff: 64}
	need := blockSizeFor(24) // MinBlockSize == 40; tail would be 24 < MinBlockSize
	require.Equal(t, int64(40), need)

	h.splitOrTake(0, need)

	assert.Equal(t, int64(64), sizeAt(buf, 0), "whole block consumed, no split")
	assert.True(t, isAllocated(headerAt(buf, 0)))
	assert.True(t, isLeftAllocated(headerAt(buf, 64)), "right neighbor's left-allocated bit set")
}

// Scenario 3 (spec §8): freeing an isolated middle block produces no
// coalesce; freeing its allocated-turned-free left neighbor afterward
// right-joins it with the already-free block.
func TestScenarioCoalesceOnFree(t *testing.T) {
	h := newTestHeap(t, 4096, RBTreeIndex)

	p0 := h.Allocate(100)
	p1 := h.Allocate(100)
	p2 := h.Allocate(100)
	require.NotEqual(t, Ptr(0), p0)
	require.NotEqual(t, Ptr(0), p1)
	require.NotEqual(t, Ptr(0), p2)

	h.Deallocate(p1)
	assert.Equal(t, 2, h.FreeBlockCount(), "middle block plus pre-existing tail remainder")
	assert.True(t, h.ValidateHeap())

	h.Deallocate(p0)
	assert.Equal(t, 2, h.FreeBlockCount(), "block0+block1 merge right; tail remainder stays separate (block2 sits between)")
	assert.True(t, h.ValidateHeap())
}

func TestScenarioReallocateGrowInPlaceNoMove(t *testing.T) {
	h := newTestHeap(t, 4096, RBTreeIndex)

	p0 := h.Allocate(32)
	p1 := h.Allocate(32)
	require.NotEqual(t, Ptr(0), p0)
	require.NotEqual(t, Ptr(0), p1)

	buf := h.buf
	for i := int64(0); i < 32; i++ {
		buf[int64(p0)+i] = byte(i)
	}

	h.Deallocate(p1)

	grown := h.Reallocate(p0, 56)
	require.NotEqual(t, Ptr(0), grown)
	assert.Equal(t, p0, grown, "block did not move")

	for i := int64(0); i < 32; i++ {
		assert.Equal(t, byte(i), buf[int64(grown)+i])
	}
	assert.True(t, h.ValidateHeap())
}

func TestScenarioReallocateLeftCoalesceMemmove(t *testing.T) {
	h := newTestHeap(t, 4096, RBTreeIndex)

	pa := h.Allocate(32)
	pb := h.Allocate(32)
	pc := h.Allocate(32)
	require.NotEqual(t, Ptr(0), pa)
	require.NotEqual(t, Ptr(0), pb)
	require.NotEqual(t, Ptr(0), pc)

	buf := h.buf
	for i := int64(0); i < 32; i++ {
		buf[int64(pb)+i] = byte(0x40 + i)
	}

	h.Deallocate(pa) // free b's left neighbor; c (b's right neighbor) stays allocated

	grown := h.Reallocate(pb, 48)
	require.NotEqual(t, Ptr(0), grown)
	assert.NotEqual(t, pb, grown, "block moved left into the coalesced region")

	for i := int64(0); i < 32; i++ {
		assert.Equal(t, byte(0x40+i), buf[int64(grown)+i])
	}
	assert.True(t, h.ValidateHeap())
}

func TestDeallocateAllocateRoundTripReclaimsSpace(t *testing.T) {
	h := newTestHeap(t, 4096, RBTreeIndex)

	before := h.FreeBlockCount()
	p := h.Allocate(256)
	require.NotEqual(t, Ptr(0), p)

	h.Deallocate(p)
	assert.Equal(t, before, h.FreeBlockCount())

	p2 := h.Allocate(256)
	assert.NotEqual(t, Ptr(0), p2)
	assert.True(t, h.ValidateHeap())
}

func TestReallocateSameSizePreservesContent(t *testing.T) {
	h := newTestHeap(t, 4096, RBTreeIndex)

	p := h.Allocate(48)
	require.NotEqual(t, Ptr(0), p)

	buf := h.buf
	for i := int64(0); i < 48; i++ {
		buf[int64(p)+i] = byte(i * 3)
	}

	p2 := h.Reallocate(p, 48)
	require.NotEqual(t, Ptr(0), p2)
	for i := int64(0); i < 48; i++ {
		assert.Equal(t, byte(i*3), buf[int64(p2)+i])
	}
}

func TestReallocateNullBehavesAsAllocate(t *testing.T) {
	h := newTestHeap(t, 4096, RBTreeIndex)
	p := h.Reallocate(0, 64)
	assert.NotEqual(t, Ptr(0), p)
}

func TestReallocateZeroBehavesAsDeallocate(t *testing.T) {
	h := newTestHeap(t, 4096, RBTreeIndex)
	p := h.Allocate(64)
	require.NotEqual(t, Ptr(0), p)

	before := h.FreeBlockCount()
	got := h.Reallocate(p, 0)
	assert.Equal(t, Ptr(0), got)
	assert.True(t, h.FreeBlockCount() >= before)
}

func TestDeallocateNullIsNoop(t *testing.T) {
	h := newTestHeap(t, 4096, RBTreeIndex)
	before := h.FreeBlockCount()
	h.Deallocate(0)
	assert.Equal(t, before, h.FreeBlockCount())
}

func TestAllocateFillsHeapThenFails(t *testing.T) {
	for _, variant := range []IndexVariant{RBTreeIndex, SegregatedListIndex} {
		h := newTestHeap(t, 4096, variant)
		var ptrs []Ptr
		for {
			p := h.Allocate(64)
			if p == 0 {
				break
			}
			ptrs = append(ptrs, p)
		}
		assert.NotEmpty(t, ptrs)
		assert.True(t, h.ValidateHeap())

		for _, p := range ptrs {
			h.Deallocate(p)
		}
		assert.True(t, h.ValidateHeap())
		assert.Equal(t, 1, h.FreeBlockCount(), "full reclaim collapses back to one giant block")
	}
}
