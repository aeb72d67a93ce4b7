// Copyright 2020 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package kinship

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
)

// Pair identifies two samples by ID.
type Pair struct {
	A, B int
}

// AllPairs returns every unordered pair of n samples, (0,1), (0,2), ...,
// (n-2,n-1).
func AllPairs(n int) []Pair {
	if n < 2 {
		return nil
	}
	pairs := make([]Pair, 0, n*(n-1)/2)
	for a := 0; a < n; a++ {
		for b := a + 1; b < n; b++ {
			pairs = append(pairs, Pair{a, b})
		}
	}
	return pairs
}

// ReadPairs parses a pair list: one pair per line, the first two
// whitespace-separated tokens naming the samples.  Blank lines are skipped;
// further tokens are ignored.  Every name must be present in index.
func ReadPairs(r io.Reader, index map[string]int) (pairs []Pair, err error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64<<10), 16<<20)
	for lineNum := 1; scanner.Scan(); lineNum++ {
		tokens := strings.Fields(scanner.Text())
		if len(tokens) == 0 {
			continue
		}
		if len(tokens) < 2 {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("kinship: pair list line %d: expected two sample names, got %q", lineNum, scanner.Text()))
		}
		var p Pair
		var ok bool
		if p.A, ok = index[tokens[0]]; !ok {
			return nil, errors.E(errors.NotExist, fmt.Sprintf("kinship: pair list line %d: %s not found in input", lineNum, tokens[0]))
		}
		if p.B, ok = index[tokens[1]]; !ok {
			return nil, errors.E(errors.NotExist, fmt.Sprintf("kinship: pair list line %d: %s not found in input", lineNum, tokens[1]))
		}
		if p.A == p.B {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("kinship: pair list line %d: %s paired with itself", lineNum, tokens[0]))
		}
		pairs = append(pairs, p)
	}
	if err = scanner.Err(); err != nil {
		return nil, err
	}
	return pairs, nil
}

// ReadPairsFromPath is ReadPairs on the file at path.
func ReadPairsFromPath(ctx context.Context, path string, index map[string]int) (pairs []Pair, err error) {
	var in file.File
	if in, err = file.Open(ctx, path); err != nil {
		return nil, errors.E(err, "kinship: opening pair list", path)
	}
	defer file.CloseAndReport(ctx, in, &err)
	if pairs, err = ReadPairs(in.Reader(ctx), index); err != nil {
		return nil, errors.E(err, path)
	}
	return pairs, nil
}
