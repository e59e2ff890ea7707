// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// heapcheck is the correctness harness (spec §6): it replays one or more
// trace scripts against a fresh Heap, re-validating after every request
// unless -q is given, and reports peak payload, heap segment used, and
// average utilization per script.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/cznic/rbmalloc"
	"github.com/cznic/rbmalloc/harness"
)

var (
	flagQuiet      bool
	flagSegmentLog uint // log2(segment size); default chosen generously for trace scripts
)

var log = logrus.New()

var rootCmd = &cobra.Command{
	Use:   "heapcheck [flags] script...",
	Short: "Replay trace scripts against the allocator and report correctness and utilization",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		failures := 0
		for _, path := range args {
			if err := runScript(path); err != nil {
				log.Errorf("%v", err)
				failures++
			}
		}
		if failures > 0 {
			os.Exit(failures)
		}
		return nil
	},
}

func runScript(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	reqs, err := harness.ParseScript(f)
	if err != nil {
		return fmt.Errorf("ALLOCATOR FAILURE [%s]: %w", path, err)
	}

	seg := rbmalloc.NewMemSegment(int64(1) << flagSegmentLog)
	h := rbmalloc.NewHeap(seg, rbmalloc.RBTreeIndex)
	if !h.Init() {
		return fmt.Errorf("ALLOCATOR FAILURE [%s]: %v", path, h.LastError())
	}

	sess := harness.NewSession(h)
	for _, req := range reqs {
		if err := sess.ExecRequest(req); err != nil {
			return fmt.Errorf("ALLOCATOR FAILURE [%s, line %d]: %v", path, req.Line, err)
		}
		if !flagQuiet {
			if err := sess.ValidateHeap(); err != nil {
				return fmt.Errorf("ALLOCATOR FAILURE [%s, line %d]: %v", path, req.Line, err)
			}
		}
	}

	stats := sess.Stats()
	fmt.Printf("%s: peak_payload=%d heap_used=%d avg_utilization=%.4f\n",
		path, sess.PeakPayloadBytes(), stats.UsedBytes, sess.AverageUtilization())
	return nil
}

func init() {
	rootCmd.Flags().BoolVarP(&flagQuiet, "quiet", "q", false, "skip the per-request invariant check")
	rootCmd.Flags().UintVarP(&flagSegmentLog, "segment-log2", "m", 20, "log2 of the backing segment size in bytes")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
