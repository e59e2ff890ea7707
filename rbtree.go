// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Red-black free-block index (spec §4.2), the primary FreeIndex variant.
//
// Grounded on the index-based red-black tree in
// other_examples/…Sumatoshi-tech-codefang…rbtree.go (rotateDirection
// unifying left/right via a boolean, the insert/delete case structure,
// sibling/uncle lookups via parent back-pointers) with two changes forced
// by the spec: nodes live inside the segment's bytes at their own block's
// offset rather than in a side []node slice, and the tree shares its NIL
// with the segment's physical end-of-heap sentinel block (spec §3, §9)
// instead of a reserved index 0.
package rbmalloc

import "math"

// rbIndex is a FreeIndex backed by a red-black tree keyed on block size.
// Equal keys are inserted to the right of existing equal-keyed nodes, per
// spec §4.2 "Duplicate sizes".
type rbIndex struct {
	buf   []byte
	nilOf int64 // shared NIL / root-parent sentinel offset
	root  int64
	count int
}

func newRBIndex(buf []byte, sentinelOff int64) *rbIndex {
	t := &rbIndex{buf: buf, nilOf: sentinelOff, root: sentinelOff}
	setParentAt(buf, sentinelOff, sentinelOff)
	setLeftAt(buf, sentinelOff, sentinelOff)
	setRightAt(buf, sentinelOff, sentinelOff)
	return t
}

func (t *rbIndex) Count() int { return t.count }

func (t *rbIndex) color(n int64) color {
	if n == t.nilOf {
		return black
	}
	return colorOf(headerAt(t.buf, n))
}

func (t *rbIndex) setColor(n int64, c color) {
	if n == t.nilOf {
		return
	}
	setHeaderAt(t.buf, n, withColor(headerAt(t.buf, n), c))
}

// Insert adds a free block, keyed by its current header size, to the tree.
func (t *rbIndex) Insert(n int64) {
	setLeftAt(t.buf, n, t.nilOf)
	setRightAt(t.buf, n, t.nilOf)

	if t.root == t.nilOf {
		setParentAt(t.buf, n, t.nilOf)
		t.root = n
	} else {
		key := sizeAt(t.buf, n)
		parent := t.root
		for {
			pk := sizeAt(t.buf, parent)
			if key < pk {
				if leftAt(t.buf, parent) == t.nilOf {
					setLeftAt(t.buf, parent, n)
					break
				}
				parent = leftAt(t.buf, parent)
			} else {
				// Ties go right (spec §4.2).
				if rightAt(t.buf, parent) == t.nilOf {
					setRightAt(t.buf, parent, n)
					break
				}
				parent = rightAt(t.buf, parent)
			}
		}
		setParentAt(t.buf, n, parent)
	}

	t.setColor(n, red)
	t.insertFixup(n)
	t.count++
}

func (t *rbIndex) insertFixup(z int64) {
	buf := t.buf
	for t.color(parentAt(buf, z)) == red {
		p := parentAt(buf, z)
		gp := parentAt(buf, p)
		if p == leftAt(buf, gp) {
			u := rightAt(buf, gp)
			if t.color(u) == red {
				t.setColor(p, black)
				t.setColor(u, black)
				t.setColor(gp, red)
				z = gp
				continue
			}
			if z == rightAt(buf, p) {
				z = p
				t.rotateLeft(z)
				p = parentAt(buf, z)
				gp = parentAt(buf, p)
			}
			t.setColor(p, black)
			t.setColor(gp, red)
			t.rotateRight(gp)
		} else {
			u := leftAt(buf, gp)
			if t.color(u) == red {
				t.setColor(p, black)
				t.setColor(u, black)
				t.setColor(gp, red)
				z = gp
				continue
			}
			if z == leftAt(buf, p) {
				z = p
				t.rotateRight(z)
				p = parentAt(buf, z)
				gp = parentAt(buf, p)
			}
			t.setColor(p, black)
			t.setColor(gp, red)
			t.rotateLeft(gp)
		}
	}
	t.setColor(t.root, black)
}

// rotateDirection rotates pivot down in the direction named by isLeft,
// promoting its opposite child. Unifying left/right this way (spec §4.2,
// §9 "Unified left/right symmetry") halves the rotation code.
func (t *rbIndex) rotateDirection(pivot int64, isLeft bool) {
	buf := t.buf

	var child int64
	if isLeft {
		child = rightAt(buf, pivot)
	} else {
		child = leftAt(buf, pivot)
	}

	var inner int64
	if isLeft {
		inner = leftAt(buf, child)
		setRightAt(buf, pivot, inner)
	} else {
		inner = rightAt(buf, child)
		setLeftAt(buf, pivot, inner)
	}
	if inner != t.nilOf {
		setParentAt(buf, inner, pivot)
	}

	pp := parentAt(buf, pivot)
	setParentAt(buf, child, pp)
	switch {
	case pp == t.nilOf:
		t.root = child
	case pivot == leftAt(buf, pp):
		setLeftAt(buf, pp, child)
	default:
		setRightAt(buf, pp, child)
	}

	if isLeft {
		setLeftAt(buf, child, pivot)
	} else {
		setRightAt(buf, child, pivot)
	}
	setParentAt(buf, pivot, child)
}

func (t *rbIndex) rotateLeft(n int64)  { t.rotateDirection(n, true) }
func (t *rbIndex) rotateRight(n int64) { t.rotateDirection(n, false) }

func (t *rbIndex) minimum(n int64) int64 {
	for leftAt(t.buf, n) != t.nilOf {
		n = leftAt(t.buf, n)
	}
	return n
}

// transplant replaces the subtree rooted at u with the subtree rooted at
// v. v's parent link is always updated, even when v is the NIL sentinel --
// the sentinel's parent must be reset on every splice so deleteFixup can
// walk upward from it correctly (spec §4.2, §9).
func (t *rbIndex) transplant(u, v int64) {
	buf := t.buf
	pu := parentAt(buf, u)
	switch {
	case pu == t.nilOf:
		t.root = v
	case u == leftAt(buf, pu):
		setLeftAt(buf, pu, v)
	default:
		setRightAt(buf, pu, v)
	}
	setParentAt(buf, v, pu)
}

// Remove deletes an arbitrary free block from the tree (spec §4.2
// "remove(b): O(log N), removes the given node b").
func (t *rbIndex) Remove(z int64) {
	buf := t.buf
	y := z
	yColor := t.color(y)
	var x int64

	switch {
	case leftAt(buf, z) == t.nilOf:
		x = rightAt(buf, z)
		t.transplant(z, rightAt(buf, z))
	case rightAt(buf, z) == t.nilOf:
		x = leftAt(buf, z)
		t.transplant(z, leftAt(buf, z))
	default:
		y = t.minimum(rightAt(buf, z))
		yColor = t.color(y)
		x = rightAt(buf, y)
		if parentAt(buf, y) == z {
			setParentAt(buf, x, y)
		} else {
			t.transplant(y, rightAt(buf, y))
			setRightAt(buf, y, rightAt(buf, z))
			setParentAt(buf, rightAt(buf, y), y)
		}
		t.transplant(z, y)
		setLeftAt(buf, y, leftAt(buf, z))
		setParentAt(buf, leftAt(buf, y), y)
		t.setColor(y, t.color(z))
	}

	if yColor == black {
		t.deleteFixup(x)
	}

	t.count--
}

func (t *rbIndex) deleteFixup(x int64) {
	buf := t.buf
	for x != t.root && t.color(x) == black {
		p := parentAt(buf, x)
		if x == leftAt(buf, p) {
			w := rightAt(buf, p)
			if t.color(w) == red {
				t.setColor(w, black)
				t.setColor(p, red)
				t.rotateLeft(p)
				w = rightAt(buf, p)
			}
			if t.color(leftAt(buf, w)) == black && t.color(rightAt(buf, w)) == black {
				t.setColor(w, red)
				x = p
				continue
			}
			if t.color(rightAt(buf, w)) == black {
				t.setColor(leftAt(buf, w), black)
				t.setColor(w, red)
				t.rotateRight(w)
				w = rightAt(buf, p)
			}
			t.setColor(w, t.color(p))
			t.setColor(p, black)
			t.setColor(rightAt(buf, w), black)
			t.rotateLeft(p)
			x = t.root
		} else {
			w := leftAt(buf, p)
			if t.color(w) == red {
				t.setColor(w, black)
				t.setColor(p, red)
				t.rotateRight(p)
				w = leftAt(buf, p)
			}
			if t.color(rightAt(buf, w)) == black && t.color(leftAt(buf, w)) == black {
				t.setColor(w, red)
				x = p
				continue
			}
			if t.color(leftAt(buf, w)) == black {
				t.setColor(rightAt(buf, w), black)
				t.setColor(w, red)
				t.rotateLeft(w)
				w = leftAt(buf, p)
			}
			t.setColor(w, t.color(p))
			t.setColor(p, black)
			t.setColor(leftAt(buf, w), black)
			t.rotateRight(p)
			x = t.root
		}
	}
	t.setColor(x, black)
}

// PopBestFit returns and removes a free block of minimum size >= k, per the
// walk described in spec §4.2.
func (t *rbIndex) PopBestFit(k int64) (int64, bool) {
	n := t.root
	candidate := t.nilOf
	candidateSize := int64(math.MaxInt64)

	for n != t.nilOf {
		sz := sizeAt(t.buf, n)
		switch {
		case sz == k:
			candidate = n
			n = t.nilOf
		case k < sz:
			if sz < candidateSize {
				candidate = n
				candidateSize = sz
			}
			n = leftAt(t.buf, n)
		default:
			n = rightAt(t.buf, n)
		}
	}

	if candidate == t.nilOf {
		return 0, false
	}

	t.Remove(candidate)
	return candidate, true
}

// Walk visits every free block in ascending size order.
func (t *rbIndex) Walk(visit func(off int64)) {
	var rec func(n int64)
	rec = func(n int64) {
		if n == t.nilOf {
			return
		}
		rec(leftAt(t.buf, n))
		visit(n)
		rec(rightAt(t.buf, n))
	}
	rec(t.root)
}

// checkInvariants verifies the red-black properties named in spec §4.6/§8:
// root is black, no red node has a red child, every root-to-sentinel path
// has the same black height, and parent back-pointers agree with the
// left/right links that reference a node.
func (t *rbIndex) checkInvariants() error {
	if t.color(t.root) != black {
		return &ErrILSEQ{Msg: "red-black tree root is red", Off: t.root}
	}

	var walk func(n int64) (blackHeight int, err error)
	walk = func(n int64) (int, error) {
		if n == t.nilOf {
			return 1, nil
		}

		buf := t.buf
		l, r := leftAt(buf, n), rightAt(buf, n)
		if l != t.nilOf && parentAt(buf, l) != n {
			return 0, &ErrILSEQ{Msg: "left child parent back-pointer mismatch", Off: n}
		}
		if r != t.nilOf && parentAt(buf, r) != n {
			return 0, &ErrILSEQ{Msg: "right child parent back-pointer mismatch", Off: n}
		}

		if t.color(n) == red && (t.color(l) == red || t.color(r) == red) {
			return 0, &ErrILSEQ{Msg: "red node has a red child", Off: n}
		}

		lh, err := walk(l)
		if err != nil {
			return 0, err
		}
		rh, err := walk(r)
		if err != nil {
			return 0, err
		}
		if lh != rh {
			return 0, &ErrILSEQ{Msg: "unequal black height across subtrees", Off: n}
		}

		add := 0
		if t.color(n) == black {
			add = 1
		}
		return lh + add, nil
	}

	_, err := walk(t.root)
	return err
}
