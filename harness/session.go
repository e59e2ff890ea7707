// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Harness adapters (spec §6): thin wrappers that drive a rbmalloc.Heap from
// parsed trace script requests, the way lldb.AllocStats summarizes an
// Allocator for lldb's own tests and tools.
package harness

import (
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/cznic/rbmalloc"
)

// Log is the package-level logger harness callers can reconfigure (level,
// formatter) before running a session. The allocator core itself never
// logs on its hot path (spec §2, §5); only this harness layer does.
var Log = logrus.New()

// AllocStats summarizes a Heap's occupancy at a point in time. Grounded on
// lldb.AllocStats (TotalAtoms/AllocBytes/AllocAtoms/FreeAtoms), renamed to
// this allocator's vocabulary; there is no Relocations field because this
// allocator never relocates a live block behind its caller's back.
type AllocStats struct {
	TotalBytes   int64
	UsedBytes    int64
	FreeBytes    int64
	FreeBlocks   int
	PayloadBytes int64 // live user bytes, header overhead excluded
}

// Stats snapshots a Heap's current occupancy (spec §6 correctness harness:
// "print peak payload, heap segment used, and average utilization").
func Stats(h *rbmalloc.Heap, payload int64) AllocStats {
	return AllocStats{
		TotalBytes:   h.SegmentSize(),
		UsedBytes:    h.UsedBytes(),
		FreeBytes:    h.FreeBytes(),
		FreeBlocks:   h.FreeBlockCount(),
		PayloadBytes: payload,
	}
}

// Utilization is the fraction of used segment bytes actually carrying live
// payload, as opposed to header/footer/link overhead and internal
// fragmentation from split-or-take.
func (s AllocStats) Utilization() float64 {
	if s.UsedBytes == 0 {
		return 0
	}
	return float64(s.PayloadBytes) / float64(s.UsedBytes)
}

// Session replays a trace script against one Heap, tracking live id->pointer
// bindings, live payload bytes, the peak free-block count and peak payload
// observed across every request, and the request number at which the
// payload peaked.
type Session struct {
	Heap *rbmalloc.Heap

	ptrs    map[int]rbmalloc.Ptr
	sizes   map[int]int64
	payload int64

	reqCount int
	utilSum  float64

	peakFree    int
	peakPayload int64
	peakReqNum  int
}

// NewSession wraps an initialized Heap for script replay.
func NewSession(h *rbmalloc.Heap) *Session {
	return &Session{
		Heap:  h,
		ptrs:  make(map[int]rbmalloc.Ptr),
		sizes: make(map[int]int64),
	}
}

// PeakFreeBlockCount and PeakPayloadBytes report the session's high-water
// marks; PeakRequestNumber is the 1-based request count at which the peak
// payload was observed.
func (s *Session) PeakFreeBlockCount() int { return s.peakFree }
func (s *Session) PeakPayloadBytes() int64 { return s.peakPayload }
func (s *Session) PeakRequestNumber() int  { return s.peakReqNum }
func (s *Session) RequestCount() int       { return s.reqCount }

// AverageUtilization returns the mean of AllocStats.Utilization() sampled
// after every request executed so far (spec §6 correctness harness:
// "average utilization").
func (s *Session) AverageUtilization() float64 {
	if s.reqCount == 0 {
		return 0
	}
	return s.utilSum / float64(s.reqCount)
}

func (s *Session) trackPeaks() {
	if free := s.Heap.FreeBlockCount(); free > s.peakFree {
		s.peakFree = free
	}
	if s.payload > s.peakPayload {
		s.peakPayload = s.payload
		s.peakReqNum = s.reqCount
	}
}

// Stats returns the session's current occupancy snapshot.
func (s *Session) Stats() AllocStats { return Stats(s.Heap, s.payload) }

// ExecRequest dispatches one trace script request against the heap,
// maintaining the id->pointer table so later `r`/`f` lines can resolve an
// earlier `a`'s allocation (spec §6 "Trace script format").
func (s *Session) ExecRequest(req Request) error {
	s.reqCount++

	switch req.Op {
	case OpAlloc:
		p := s.Heap.Allocate(req.Size)
		if p == 0 {
			return errors.Wrapf(s.Heap.LastError(), "line %d: allocate(id=%d, size=%d)", req.Line, req.ID, req.Size)
		}
		s.ptrs[req.ID] = p
		s.sizes[req.ID] = req.Size
		s.payload += req.Size

	case OpRealloc:
		old := s.ptrs[req.ID]
		p := s.Heap.Reallocate(old, req.Size)
		if p == 0 && req.Size != 0 {
			return errors.Wrapf(s.Heap.LastError(), "line %d: reallocate(id=%d, size=%d)", req.Line, req.ID, req.Size)
		}
		s.payload += req.Size - s.sizes[req.ID]
		if req.Size == 0 {
			delete(s.ptrs, req.ID)
			delete(s.sizes, req.ID)
		} else {
			s.ptrs[req.ID] = p
			s.sizes[req.ID] = req.Size
		}

	case OpFree:
		s.Heap.Deallocate(s.ptrs[req.ID])
		s.payload -= s.sizes[req.ID]
		delete(s.ptrs, req.ID)
		delete(s.sizes, req.ID)

	default:
		return errors.Errorf("line %d: unrecognized op %q", req.Line, req.Op)
	}

	s.trackPeaks()
	s.utilSum += s.Stats().Utilization()
	Log.Debugf("line %d: %c id=%d size=%d free_blocks=%d payload=%d", req.Line, req.Op, req.ID, req.Size, s.Heap.FreeBlockCount(), s.payload)
	return nil
}

// TimeRequest executes req and reports how long ExecRequest took, for
// cmd/heaptime's interval timing (spec §6). The measured time includes the
// session's own bookkeeping (peak tracking, utilization sampling, debug
// logging), not only the Heap operation.
func (s *Session) TimeRequest(req Request) (time.Duration, error) {
	start := time.Now()
	err := s.ExecRequest(req)
	return time.Since(start), err
}

// ValidateHeap runs the full invariant check (spec §4.6) and wraps any
// violation with the request count at which it was observed.
func (s *Session) ValidateHeap() error {
	if !s.Heap.ValidateHeap() {
		return errors.Wrapf(s.Heap.LastError(), "after %d requests", s.reqCount)
	}
	return nil
}
