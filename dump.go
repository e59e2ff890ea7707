// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// DumpHeap (spec §6): a human-readable heap dump, used by an interactive
// inspector and by tests -- explicitly not on the hot path (spec §2, §5).
package rbmalloc

import (
	"fmt"
	"strings"
)

// DumpStyle selects how much detail DumpHeap prints.
type DumpStyle int

const (
	// DumpPlain prints one line per block: offset, size, alloc state.
	DumpPlain DumpStyle = iota
	// DumpVerbose additionally prints the left-allocated bit; for the
	// red-black variant, each free node's color and black height (black
	// nodes from that node down to the sentinel, the node included); for
	// the segregated variant, each free block's size class.
	DumpVerbose
)

// DumpHeap renders the whole segment, one block per line, in the style
// requested (spec §6 "dump_heap(style)").
func (h *Heap) DumpHeap(style DumpStyle) string {
	var b strings.Builder
	off := int64(0)

	for {
		hdr := headerAt(h.buf, off)
		size := blockSize(hdr)
		alloc := isAllocated(hdr)

		if off == h.sentinelOff {
			fmt.Fprintf(&b, "%#08x sentinel\n", off)
			break
		}

		status := "FREE"
		if alloc {
			status = "USED"
		}

		switch style {
		case DumpVerbose:
			extra := ""
			if !alloc {
				switch idx := h.idx.(type) {
				case *rbIndex:
					bh := 0
					for n := off; n != idx.nilOf; n = leftAt(h.buf, n) {
						if idx.color(n) == black {
							bh++
						}
					}
					extra = fmt.Sprintf(" color=%s black_height=%d", colorName(colorOf(hdr)), bh)
				case *segList:
					extra = fmt.Sprintf(" class=%d", classify(size))
				}
			}
			fmt.Fprintf(&b, "%#08x size=%d %s left_alloc=%v%s\n", off, size, status, isLeftAllocated(hdr), extra)
		default:
			fmt.Fprintf(&b, "%#08x size=%d %s\n", off, size, status)
		}

		off += size
	}

	if style == DumpVerbose {
		fmt.Fprintf(&b, "free blocks: %d\n", h.idx.Count())
	}

	return b.String()
}

func colorName(c color) string {
	if c == red {
		return "red"
	}
	return "black"
}
