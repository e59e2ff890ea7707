// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// uniqlines collapses consecutive duplicate lines from stdin to stdout,
// the small filter the plotting glue uses to de-noise repeated timing
// samples before handing them to a graphing tool (spec §1, named as out of
// scope for the allocator itself but part of the surrounding tooling).
package main

import (
	"bufio"
	"fmt"
	"os"
)

func main() {
	sc := bufio.NewScanner(os.Stdin)
	w := bufio.NewWriter(os.Stdout)
	defer w.Flush()

	var prev string
	havePrev := false

	for sc.Scan() {
		line := sc.Text()
		if havePrev && line == prev {
			continue
		}
		fmt.Fprintln(w, line)
		prev = line
		havePrev = true
	}

	if err := sc.Err(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
