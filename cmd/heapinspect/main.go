// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// heapinspect is the interactive inspector (spec §6): it replays a trace
// script against the allocator, stopping at each requested breakpoint line
// to print a heap dump and wait for `C\n` (continue) or a bare `\n`/EOF
// (abort remaining breakpoints). On completion it reports the request
// number that produced the peak free-block count and the heap dump taken
// at that moment.
package main

import (
	"bufio"
	"fmt"
	"os"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/cznic/rbmalloc"
	"github.com/cznic/rbmalloc/harness"
)

var (
	flagVerbose    bool
	flagBreaks     []int64
	flagSegmentLog uint
)

var rootCmd = &cobra.Command{
	Use:   "heapinspect [flags] script",
	Short: "Step through a trace script, dumping heap state at breakpoints",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(args[0])
	},
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

	breaks := append([]int64(nil), flagBreaks...)
	sort.Slice(breaks, func(i, j int) bool { return breaks[i] < breaks[j] })
	breakSet := make(map[int64]bool, len(breaks))
	for _, b := range breaks {
		breakSet[b] = true
	}

	seg := rbmalloc.NewMemSegment(int64(1) << flagSegmentLog)
	h := rbmalloc.NewHeap(seg, rbmalloc.RBTreeIndex)
	if !h.Init() {
		return h.LastError()
	}
	sess := harness.NewSession(h)

	stdin := bufio.NewReader(os.Stdin)
	aborted := false

	style := rbmalloc.DumpPlain
	if flagVerbose {
		style = rbmalloc.DumpVerbose
	}

	peakFree, peakReq, peakDump := 0, 0, ""

	for _, req := range reqs {
		line := int64(req.Line)
		if err := sess.ExecRequest(req); err != nil {
			color.Red("ALLOCATOR FAILURE [%s, line %d]: %v", path, req.Line, err)
			return err
		}
		if free := h.FreeBlockCount(); free > peakFree {
			peakFree, peakReq, peakDump = free, sess.RequestCount(), h.DumpHeap(style)
		}

		if aborted || !breakSet[line] {
			continue
		}

		color.Cyan("-- breakpoint at line %d --", line)
		fmt.Print(h.DumpHeap(style))

		resp, _ := stdin.ReadString('\n')
		if resp != "C\n" {
			aborted = true
		}
	}

	color.Yellow("peak free-block count %d at request %d", peakFree, peakReq)
	fmt.Print(peakDump)
	return nil
}

func init() {
	rootCmd.Flags().BoolVarP(&flagVerbose, "verbose", "v", false, "print color/black-height detail in heap dumps")
	rootCmd.Flags().Int64SliceVarP(&flagBreaks, "break", "b", nil, "line number to stop at (repeatable)")
	rootCmd.Flags().UintVarP(&flagSegmentLog, "segment-log2", "m", 20, "log2 of the backing segment size in bytes")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
