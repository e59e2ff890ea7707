// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// heaptime is the timing harness (spec §6): it times one or more
// non-overlapping, 1-based line intervals of a single trace script (the
// whole script if none are given) and reports elapsed time and overall
// utilization per interval.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/cznic/rbmalloc"
	"github.com/cznic/rbmalloc/harness"
)

var (
	flagStarts     []int64
	flagEnds       []int64
	flagSegmentLog uint
)

var log = logrus.New()

var rootCmd = &cobra.Command{
	Use:   "heaptime [flags] script",
	Short: "Time intervals of requests from a trace script against the allocator",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(args[0])
	},
}

type interval struct {
	start, end int // 1-based, inclusive; end == 0 means "to the end"
}

func intervals() ([]interval, error) {
	if len(flagStarts) == 0 {
		return []interval{{start: 1}}, nil
	}
	if len(flagEnds) != 0 && len(flagEnds) != len(flagStarts) {
		return nil, fmt.Errorf("-e given %d times but -s given %d times", len(flagEnds), len(flagStarts))
	}

	out := make([]interval, len(flagStarts))
	for i, s := range flagStarts {
		iv := interval{start: int(s)}
		if i < len(flagEnds) {
			iv.end = int(flagEnds[i])
		}
		out[i] = iv
	}
	return out, nil
}

func run(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	reqs, err := harness.ParseScript(f)
	if err != nil {
		return err
	}

	ivs, err := intervals()
	if err != nil {
		return err
	}

	seg := rbmalloc.NewMemSegment(int64(1) << flagSegmentLog)
	h := rbmalloc.NewHeap(seg, rbmalloc.RBTreeIndex)
	if !h.Init() {
		return h.LastError()
	}
	sess := harness.NewSession(h)

	ivIdx := 0
	var ivElapsed time.Duration

	for i, req := range reqs {
		line := req.Line
		if ivIdx < len(ivs) && line == ivs[ivIdx].start {
			ivElapsed = 0
		}

		d, err := sess.TimeRequest(req)
		if err != nil {
			return fmt.Errorf("line %d: %w", req.Line, err)
		}
		ivElapsed += d

		atEnd := ivIdx < len(ivs) && ivs[ivIdx].end != 0 && line == ivs[ivIdx].end
		lastLine := i == len(reqs)-1
		if ivIdx < len(ivs) && (atEnd || (ivs[ivIdx].end == 0 && lastLine)) {
			fmt.Printf("interval %d [%d-%d]: %.3fms\n", ivIdx+1, ivs[ivIdx].start, line, float64(ivElapsed.Microseconds())/1000)
			ivIdx++
		}
	}

	fmt.Printf("overall utilization: %.4f\n", sess.AverageUtilization())
	return nil
}

func init() {
	rootCmd.Flags().Int64SliceVarP(&flagStarts, "start", "s", nil, "1-based start line of a timed interval (repeatable)")
	rootCmd.Flags().Int64SliceVarP(&flagEnds, "end", "e", nil, "1-based end line of a timed interval, paired with -s")
	rootCmd.Flags().UintVarP(&flagSegmentLog, "segment-log2", "m", 20, "log2 of the backing segment size in bytes")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
