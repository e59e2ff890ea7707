// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rbmalloc

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildTestTree lays sizes out as contiguous blocks (not realistic
// allocator state, just a scratch arena for exercising the tree in
// isolation) followed by a sentinel, and inserts every block.
func buildTestTree(sizes []int64) (*rbIndex, []int64, []byte) {
	var total int64
	for _, s := range sizes {
		total += s
	}

	buf := make([]byte, total+SentinelSize)
	offsets := make([]int64, len(sizes))
	off := int64(0)
	for i, s := range sizes {
		h := withAllocated(withSize(0, s), false)
		setHeaderAt(buf, off, h)
		offsets[i] = off
		off += s
	}

	tree := newRBIndex(buf, off)
	for _, o := range offsets {
		tree.Insert(o)
	}
	return tree, offsets, buf
}

func TestRBTreeInsertMaintainsInvariants(t *testing.T) {
	sizes := []int64{40, 48, 56, 40, 64, 128, 40, 96, 56, 48, 200, 40}
	tree, _, _ := buildTestTree(sizes)

	assert.Equal(t, len(sizes), tree.Count())
	require.NoError(t, tree.checkInvariants())
}

func TestRBTreePopBestFitMinimality(t *testing.T) {
	sizes := []int64{48, 64, 128}
	tree, _, _ := buildTestTree(sizes)

	off, ok := tree.PopBestFit(60)
	require.True(t, ok)
	assert.Equal(t, int64(64), sizeAt(tree.buf, off))
	assert.Equal(t, 2, tree.Count())
	require.NoError(t, tree.checkInvariants())

	// 48 and 128 remain; nothing of size 100 fits until the 128 is taken.
	off, ok = tree.PopBestFit(100)
	require.True(t, ok)
	assert.Equal(t, int64(128), sizeAt(tree.buf, off))
}

func TestRBTreePopBestFitNoneFits(t *testing.T) {
	tree, _, _ := buildTestTree([]int64{40, 48})
	_, ok := tree.PopBestFit(1000)
	assert.False(t, ok)
}

func TestRBTreeRemoveArbitraryNode(t *testing.T) {
	sizes := []int64{40, 48, 56, 64, 72, 80, 88, 96}
	tree, offsets, _ := buildTestTree(sizes)

	// Remove a node from the middle of the key range.
	tree.Remove(offsets[3])
	require.NoError(t, tree.checkInvariants())
	assert.Equal(t, len(sizes)-1, tree.Count())

	var remaining []int64
	tree.Walk(func(n int64) { remaining = append(remaining, sizeAt(tree.buf, n)) })
	assert.NotContains(t, remaining, int64(64))
}

func TestRBTreeDuplicateSizesGoRight(t *testing.T) {
	sizes := []int64{40, 40, 40, 40, 40}
	tree, _, _ := buildTestTree(sizes)

	require.NoError(t, tree.checkInvariants())
	assert.Equal(t, len(sizes), tree.Count())

	var got []int64
	tree.Walk(func(n int64) { got = append(got, sizeAt(tree.buf, n)) })
	for _, v := range got {
		assert.Equal(t, int64(40), v)
	}
}

func TestRBTreeRandomizedAgainstLinearScan(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	const n = 200

	sizes := make([]int64, n)
	for i := range sizes {
		sizes[i] = int64(MinBlockSize + 8*rng.Intn(196))
	}
	tree, offsets, _ := buildTestTree(sizes)
	require.NoError(t, tree.checkInvariants())

	live := map[int64]bool{}
	for _, o := range offsets {
		live[o] = true
	}

	for i := 0; i < 100; i++ {
		k := int64(8 * (1 + rng.Intn(250)))

		var want int64 = -1
		for o := range live {
			sz := sizeAt(tree.buf, o)
			if sz >= k && (want == -1 || sz < sizeAt(tree.buf, int64(want))) {
				want = o
			}
		}

		got, ok := tree.PopBestFit(k)
		if want == -1 {
			assert.False(t, ok)
			continue
		}
		require.True(t, ok)
		assert.Equal(t, sizeAt(tree.buf, want), sizeAt(tree.buf, got))
		delete(live, got)
		require.NoError(t, tree.checkInvariants())
	}

	assert.Equal(t, len(live), tree.Count())
}

func TestRBTreeSortedWalk(t *testing.T) {
	sizes := []int64{128, 40, 256, 64, 40}
	tree, _, _ := buildTestTree(sizes)

	var got []int64
	tree.Walk(func(n int64) { got = append(got, sizeAt(tree.buf, n)) })

	assert.True(t, sort.SliceIsSorted(got, func(i, j int) bool { return got[i] < got[j] }))
}
