// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package interval

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/fileio"
	"github.com/grailbio/base/log"
	"github.com/klauspost/compress/gzip"
)

// PosMax is the exclusive end coordinate used for a whole-chromosome
// interval.
const PosMax = math.MaxInt32 - 1

// Entry represents a single interval, with 0-based half-open coordinates.
type Entry struct {
	ChrName string
	Start0  int
	End     int
}

// Union is a set of genomic positions.  For each chromosome it stores the
// sorted endpoints of disjoint, non-touching intervals: [start0, end0,
// start1, end1, ...].  A position is in the set iff an odd number of endpoints
// are <= it.
//
// A nil *Union contains every position.
type Union struct {
	nameMap map[string][]int
}

// NewUnion builds a Union from entries, which may be in any order and may
// overlap.  Empty entries are dropped.
func NewUnion(entries []Entry) (*Union, error) {
	byChr := make(map[string][]Entry)
	for _, e := range entries {
		if e.Start0 < 0 || e.End < e.Start0 || e.End > PosMax {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("interval: invalid interval %s:[%d, %d)", e.ChrName, e.Start0, e.End))
		}
		if e.End == e.Start0 {
			continue
		}
		byChr[e.ChrName] = append(byChr[e.ChrName], e)
	}
	u := &Union{nameMap: make(map[string][]int, len(byChr))}
	for chr, chrEntries := range byChr {
		sort.Slice(chrEntries, func(i, j int) bool { return chrEntries[i].Start0 < chrEntries[j].Start0 })
		endpoints := make([]int, 0, 2*len(chrEntries))
		prevStart, prevEnd := chrEntries[0].Start0, chrEntries[0].End
		for _, e := range chrEntries[1:] {
			if e.Start0 > prevEnd {
				endpoints = append(endpoints, prevStart, prevEnd)
				prevStart, prevEnd = e.Start0, e.End
			} else if e.End > prevEnd {
				prevEnd = e.End
			}
		}
		u.nameMap[chr] = append(endpoints, prevStart, prevEnd)
	}
	return u, nil
}

// Contains returns true iff pos0 (0-based) on chrName is in the set.
func (u *Union) Contains(chrName string, pos0 int) bool {
	if u == nil {
		return true
	}
	endpoints, ok := u.nameMap[chrName]
	if !ok {
		return false
	}
	nLeq := sort.Search(len(endpoints), func(i int) bool { return endpoints[i] > pos0 })
	return nLeq&1 == 1
}

// Chromosomes returns the names of chromosomes with at least one interval, in
// sorted order.
func (u *Union) Chromosomes() []string {
	if u == nil {
		return nil
	}
	names := make([]string, 0, len(u.nameMap))
	for name := range u.nameMap {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NBases returns the number of positions covered.
func (u *Union) NBases() (n int) {
	for _, endpoints := range u.nameMap {
		for i := 0; i < len(endpoints); i += 2 {
			n += endpoints[i+1] - endpoints[i]
		}
	}
	return
}

// ParseRegionString parses a region string of one of the forms
//   [contig ID]:[1-based first pos]-[last pos]
//   [contig ID]:[1-based pos]
//   [contig ID]
// returning a contig ID and 0-based interval boundaries.  The interval
// [0, PosMax) is returned if there is no positional restriction.  Thousands
// separators (',') in positions are not supported; use ParseRegions for
// comma-separated region lists.
func ParseRegionString(region string) (result Entry, err error) {
	colonPos := strings.LastIndexByte(region, ':')
	if colonPos == -1 {
		if region == "" {
			err = errors.E(errors.Invalid, "interval: empty region")
			return
		}
		return Entry{ChrName: region, Start0: 0, End: PosMax}, nil
	}
	result.ChrName = region[:colonPos]
	if result.ChrName == "" {
		err = errors.E(errors.Invalid, fmt.Sprintf("interval: region %q has no contig", region))
		return
	}
	rangeStr := region[colonPos+1:]
	var start1, end int
	if dashPos := strings.IndexByte(rangeStr, '-'); dashPos == -1 {
		if start1, err = strconv.Atoi(rangeStr); err != nil {
			err = errors.E(errors.Invalid, err, fmt.Sprintf("interval: invalid region %q", region))
			return
		}
		end = start1
	} else {
		if start1, err = strconv.Atoi(rangeStr[:dashPos]); err != nil {
			err = errors.E(errors.Invalid, err, fmt.Sprintf("interval: invalid region %q", region))
			return
		}
		if end, err = strconv.Atoi(rangeStr[dashPos+1:]); err != nil {
			err = errors.E(errors.Invalid, err, fmt.Sprintf("interval: invalid region %q", region))
			return
		}
	}
	if start1 < 1 || end < start1 || end > PosMax {
		err = errors.E(errors.Invalid, fmt.Sprintf("interval: invalid coordinates in region %q", region))
		return
	}
	result.Start0 = start1 - 1
	result.End = end
	return
}

// ParseRegions parses a comma-separated list of region strings.
func ParseRegions(regions string) (*Union, error) {
	var entries []Entry
	for _, region := range strings.Split(regions, ",") {
		if region == "" {
			continue
		}
		e, err := ParseRegionString(region)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return NewUnion(entries)
}

// NewUnionFromBED loads the first three columns of a BED file.  Track, browser
// and '#' header lines are skipped.  Intervals need not be sorted.
func NewUnionFromBED(r io.Reader) (*Union, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64<<10), 16<<20)
	var entries []Entry
	for lineIdx := 1; scanner.Scan(); lineIdx++ {
		line := scanner.Text()
		if line == "" || line[0] == '#' || strings.HasPrefix(line, "track") || strings.HasPrefix(line, "browser") {
			continue
		}
		tokens := strings.Fields(line)
		if len(tokens) == 0 {
			continue
		}
		if len(tokens) < 3 {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("interval: BED line %d has fewer tokens than expected", lineIdx))
		}
		start0, err := strconv.Atoi(tokens[1])
		if err != nil {
			return nil, errors.E(errors.Invalid, err, fmt.Sprintf("interval: BED line %d", lineIdx))
		}
		end, err := strconv.Atoi(tokens[2])
		if err != nil {
			return nil, errors.E(errors.Invalid, err, fmt.Sprintf("interval: BED line %d", lineIdx))
		}
		entries = append(entries, Entry{ChrName: tokens[0], Start0: start0, End: end})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	u, err := NewUnion(entries)
	if err != nil {
		return nil, err
	}
	log.Printf("BED loaded, %d base(s) covered.", u.NBases())
	return u, nil
}

// NewUnionFromPath is a wrapper for NewUnionFromBED that takes a path instead
// of an io.Reader.  Gzipped files are detected by extension.
func NewUnionFromPath(ctx context.Context, path string) (u *Union, err error) {
	var infile file.File
	if infile, err = file.Open(ctx, path); err != nil {
		return
	}
	defer file.CloseAndReport(ctx, infile, &err)
	reader := io.Reader(infile.Reader(ctx))
	if fileio.DetermineType(path) == fileio.Gzip {
		var gz *gzip.Reader
		if gz, err = gzip.NewReader(reader); err != nil {
			return
		}
		defer func() {
			if e := gz.Close(); e != nil && err == nil {
				err = e
			}
		}()
		reader = gz
	}
	if u, err = NewUnionFromBED(reader); err != nil {
		err = errors.E(err, path)
	}
	return
}
