// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Segment provider interface (spec §6 "Segment provider API"), the one
// external collaborator the allocator addresses directly. Grounded on
// lldb's Filer/MemFiler pair, stripped of every file-like concern (no
// ReadAt/WriteAt/Truncate, no transactions, no Name/Close) since this
// allocator owns one fixed in-memory arena handed to it by the host and
// performs no I/O of its own (spec §5: "no I/O, no syscalls, no locks").

package rbmalloc

// Segment is the raw byte region a Heap is initialized over. The host
// retains ownership of the backing storage; the allocator only ever reads
// and writes through Bytes() and must not be handed a slice it doesn't
// fully own for the lifetime of the Heap (spec §5 "Shared resources").
type Segment interface {
	// Bytes returns the entire backing storage. Its length is the
	// segment size; the allocator never resizes it.
	Bytes() []byte
}

// segmentSize returns the byte length governed by a Segment, the
// segment_size() of spec §6.
func segmentSize(s Segment) int64 { return int64(len(s.Bytes())) }

// MemSegment is a Segment backed by a plain Go slice, suitable for tests
// and for hosts with no persistent-storage requirement. It is the
// equivalent, for this allocator, of lldb's MemFiler -- minus the paging
// and the ReadAt/WriteAt surface, since here the allocator addresses the
// bytes directly rather than through a stream API.
type MemSegment struct {
	buf []byte
}

// NewMemSegment allocates a zeroed Go-heap-backed segment of n bytes. This
// is the segment provider's init_segment(n) (spec §6), done here with
// ordinary Go allocation rather than a syscall, since the no-syscalls
// Non-goal binds the allocator under test, not the test harness itself.
func NewMemSegment(n int64) *MemSegment {
	return &MemSegment{buf: make([]byte, n)}
}

// Bytes implements Segment.
func (m *MemSegment) Bytes() []byte { return m.buf }
