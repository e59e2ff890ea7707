// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package rbmalloc implements a general-purpose dynamic memory allocator over
a single contiguous byte segment supplied by a host.

A Heap services allocate/reallocate/deallocate requests against one Segment
handed to it at Init. It performs no system calls, never grows past the
segment it was given, and is not safe for concurrent use -- a host wanting
more than one arena creates more than one Heap.

Block layout

Every block begins with an 8 byte header word: the top 61 bits hold the
block's total size (a multiple of 8), bit 2 is the free-index color (used
only by the red-black tree variant), bit 1 records whether the block's left
physical neighbor is allocated, and bit 0 records whether the block itself
is allocated. A free block additionally carries three 8 byte links
(parent/left/right, with left/right reused as prev/next by the
segregated-list variant) right
after its header, and mirrors its header in an 8 byte footer at its tail.
The client pointer returned by Allocate/Reallocate is the address 8 bytes
past a block's header.

The final 32 bytes of the segment are reserved for a sentinel block: always
allocated, always size 0, terminating the linear block-by-block walk and
doubling as the free index's NIL / root-parent.

Free-block index

The default index is a red-black tree keyed by block size (rbtree.go); an
alternative segregated size-class index is also available (segregated.go).
Both satisfy FreeIndex and are otherwise interchangeable.
*/
package rbmalloc
