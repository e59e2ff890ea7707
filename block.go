// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Block-level accessors: header/footer/link fields of a block living at a
// given byte offset inside a segment's backing slice, and the whole-segment
// linear walk. Grounded on the handle/offset arithmetic of lldb's
// falloc.go (n2atoms, off2h/h2off, leftNfo/nfo) translated from lldb's
// atom-indexed, tag-byte blocks to the spec's byte-offset, packed-word
// blocks.

package rbmalloc

// Ptr is the client pointer handed back to callers of Allocate/Reallocate:
// the byte offset, within the segment, of a block's payload (8 bytes past
// its header). Ptr(0) is the null pointer -- no valid block ever starts at
// offset -8, so no real client pointer can be zero.
type Ptr int64

func headerAt(buf []byte, off int64) word      { return readWord(buf, off) }
func setHeaderAt(buf []byte, off int64, h word) { writeWord(buf, off, h) }

func sizeAt(buf []byte, off int64) int64 { return blockSize(headerAt(buf, off)) }

func footerAt(buf []byte, off, size int64) word {
	return readWord(buf, off+size-footerWidth)
}

func setFooterAt(buf []byte, off, size int64, h word) {
	writeWord(buf, off+size-footerWidth, h)
}

func parentAt(buf []byte, off int64) int64 { return readOffset(buf, off+parentOffset) }
func setParentAt(buf []byte, off, p int64) { writeOffset(buf, off+parentOffset, p) }
func leftAt(buf []byte, off int64) int64   { return readOffset(buf, off+leftOffset) }
func setLeftAt(buf []byte, off, l int64)   { writeOffset(buf, off+leftOffset, l) }
func rightAt(buf []byte, off int64) int64  { return readOffset(buf, off+rightOffset) }
func setRightAt(buf []byte, off, r int64)  { writeOffset(buf, off+rightOffset, r) }

// clientPtr returns the address handed to a caller for a block starting at
// off: just past the header (spec §3 "client pointer").
func clientPtr(off int64) Ptr { return Ptr(off + headerWidth) }

// blockOf recovers a block's starting offset from a client pointer.
func blockOf(p Ptr) int64 { return int64(p) - headerWidth }

// walker performs the whole-segment linear walk from offset 0 to (and
// including) the sentinel, the way lldb's Allocator.Verify walks a Filer
// atom by atom.
type walker struct {
	buf  []byte
	off  int64
	end  int64 // sentinel offset; walk stops after visiting it
	done bool
}

func newWalker(buf []byte, sentinelOff int64) *walker {
	return &walker{buf: buf, off: 0, end: sentinelOff}
}

// next returns the offset of the next block and advances, or false once the
// sentinel has already been returned.
func (w *walker) next() (off int64, ok bool) {
	if w.done {
		return 0, false
	}
	off = w.off
	if off == w.end {
		w.done = true
		return off, true
	}
	sz := sizeAt(w.buf, off)
	w.off = off + sz
	return off, true
}
