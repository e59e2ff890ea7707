// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Block header bit-packing (spec §3, §4.1). Pure functions over a 64 bit
// word, the same layering lldb uses for its tag-byte accessors in
// falloc.go, reshaped to a single packed word instead of a leading tag byte.

package rbmalloc

import (
	"encoding/binary"

	"github.com/cznic/mathutil"
)

// word is the in-place encoding of a block header or footer.
type word uint64

// color is the red-black tree color, carried in header bit 2. It has no
// meaning for the segregated-list variant or for allocated blocks.
type color bool

const (
	red   color = true
	black color = false
)

const (
	// Alignment all client pointers and block sizes are rounded to.
	Alignment = 8

	wordWidth    = 8 // bytes in a header/footer/link word
	headerWidth  = wordWidth
	footerWidth  = wordWidth
	parentOffset = wordWidth     // offset of the free-node parent link
	leftOffset   = 2 * wordWidth // offset of the free-node left/prev link
	rightOffset  = 3 * wordWidth // offset of the free-node right/next link
	linkedWidth  = 4 * wordWidth // header + 3 links, before the footer

	// MinBlockSize is the smallest block the allocator ever hands out or
	// keeps free: header + parent + left + right + footer (spec §3).
	MinBlockSize = linkedWidth + footerWidth

	// SentinelSize is the width of the fixed block at the segment tail
	// that terminates the linear walk and doubles as the free-index NIL
	// (spec §3 "Sentinel block at segment end"). It carries a header and
	// three links but never a footer (it is never free).
	SentinelSize = linkedWidth

	sizeMask  word = ^word(Alignment - 1)
	allocBit  word = 1 << 0
	leftBit   word = 1 << 1
	colorBit  word = 1 << 2
)

func roundUp(n, a int64) int64 {
	return (n + a - 1) &^ (a - 1)
}

// blockSizeFor returns the total block size (header included) needed to
// satisfy a user request of n bytes, clamped to MinBlockSize (spec §4.1).
func blockSizeFor(n int64) int64 {
	return mathutil.MaxInt64(MinBlockSize, roundUp(n+headerWidth, Alignment))
}

func blockSize(h word) int64      { return int64(h & sizeMask) }
func isAllocated(h word) bool     { return h&allocBit != 0 }
func isLeftAllocated(h word) bool { return h&leftBit != 0 }
func colorOf(h word) color        { return h&colorBit != 0 }

func withSize(h word, size int64) word {
	return word(size)&sizeMask | (h &^ sizeMask)
}

func withAllocated(h word, v bool) word {
	if v {
		return h | allocBit
	}
	return h &^ allocBit
}

func withLeftAllocated(h word, v bool) word {
	if v {
		return h | leftBit
	}
	return h &^ leftBit
}

func withColor(h word, c color) word {
	if c == red {
		return h | colorBit
	}
	return h &^ colorBit
}

func readWord(buf []byte, off int64) word {
	return word(binary.LittleEndian.Uint64(buf[off : off+8]))
}

func writeWord(buf []byte, off int64, w word) {
	binary.LittleEndian.PutUint64(buf[off:off+8], uint64(w))
}

func readOffset(buf []byte, off int64) int64 {
	return int64(binary.LittleEndian.Uint64(buf[off : off+8]))
}

func writeOffset(buf []byte, off, v int64) {
	binary.LittleEndian.PutUint64(buf[off:off+8], uint64(v))
}
