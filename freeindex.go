// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rbmalloc

// FreeIndex is the ordered collection of free blocks a Heap delegates to
// (spec §4.2/§4.3). rbIndex (red-black tree, primary) and segList
// (segregated lists, alternative) both satisfy it; a Heap is agnostic to
// which one it was built with.
type FreeIndex interface {
	// Insert adds the free block at byte offset n, keyed by its current
	// header size.
	Insert(n int64)

	// Remove deletes the free block at byte offset n from wherever it
	// currently sits in the index.
	Remove(n int64)

	// PopBestFit returns and removes a free block of minimum size >= k,
	// or (0, false) if none fits.
	PopBestFit(k int64) (int64, bool)

	// Count returns the number of free blocks currently indexed.
	Count() int

	// Walk visits every indexed free block exactly once.
	Walk(visit func(n int64))

	checkInvariants() error
}

var (
	_ FreeIndex = (*rbIndex)(nil)
	_ FreeIndex = (*segList)(nil)
)
