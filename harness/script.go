// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Trace script parsing (spec §6 "Trace script format"): one request per
// line, `a <id> <size>` / `r <id> <size>` / `f <id>`, blank lines and `#`
// comments ignored.
package harness

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Op is a single trace script request kind.
type Op byte

const (
	OpAlloc   Op = 'a'
	OpRealloc Op = 'r'
	OpFree    Op = 'f'
)

// Request is one parsed trace script line.
type Request struct {
	Op   Op
	ID   int
	Size int64
	Line int // 1-based source line, for failure reporting
}

// ParseScript reads a whole trace script and returns its requests in order.
func ParseScript(r io.Reader) ([]Request, error) {
	var reqs []Request
	sc := bufio.NewScanner(r)
	line := 0

	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		req, err := parseLine(text)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}
		req.Line = line
		reqs = append(reqs, req)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "reading trace script")
	}
	return reqs, nil
}

func parseLine(text string) (Request, error) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return Request{}, errors.New("empty request")
	}

	switch Op(fields[0][0]) {
	case OpAlloc, OpRealloc:
		if len(fields) != 3 {
			return Request{}, errors.Errorf("%q: want `%c <id> <size>`", text, fields[0][0])
		}
		id, err := strconv.Atoi(fields[1])
		if err != nil {
			return Request{}, errors.Wrapf(err, "%q: bad id", text)
		}
		size, err := strconv.ParseInt(fields[2], 10, 64)
		if err != nil {
			return Request{}, errors.Wrapf(err, "%q: bad size", text)
		}
		return Request{Op: Op(fields[0][0]), ID: id, Size: size}, nil

	case OpFree:
		if len(fields) != 2 {
			return Request{}, errors.Errorf("%q: want `f <id>`", text)
		}
		id, err := strconv.Atoi(fields[1])
		if err != nil {
			return Request{}, errors.Wrapf(err, "%q: bad id", text)
		}
		return Request{Op: OpFree, ID: id}, nil

	default:
		return Request{}, errors.Errorf("%q: unrecognized op %q", text, fields[0])
	}
}
