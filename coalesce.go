// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// The coalescer (spec §4.4). Grounded on lldb.Allocator.free2's four-way
// case split over (left free?, right free?) -- isolated / right-join /
// left-join / middle-join -- translated from lldb's atom-handle arithmetic
// and physical-neighbor tag sniffing to direct byte offsets and the spec's
// left-allocated header bit.
package rbmalloc

// coalesce merges the block at off with whichever of its immediate
// physical neighbors are currently free, removing any merged neighbor from
// idx. It returns the (possibly relocated-left) offset of the resulting
// block. The merged block's header is updated with the new size and
// cleared allocated bit, but its footer is left unwritten and it is not
// reinserted into idx -- the caller (Deallocate or Reallocate) decides
// when the free state is finalized (spec §4.4 step 3).
func coalesce(buf []byte, off int64, idx FreeIndex, sentinelOff int64) int64 {
	size := sizeAt(buf, off)
	h := headerAt(buf, off)

	// 1. Right neighbor.
	rightOff := off + size
	if rightOff != sentinelOff {
		rh := headerAt(buf, rightOff)
		if !isAllocated(rh) {
			idx.Remove(rightOff)
			size += blockSize(rh)
		}
	}

	// 2. Left neighbor.
	if off != 0 && !isLeftAllocated(h) {
		leftFooter := readWord(buf, off-footerWidth)
		leftSize := blockSize(leftFooter)
		leftOff := off - leftSize
		idx.Remove(leftOff)
		size += leftSize
		off = leftOff
		h = headerAt(buf, leftOff)
	}

	h = withSize(h, size)
	h = withAllocated(h, false)
	setHeaderAt(buf, off, h)
	return off
}
