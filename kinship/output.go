// Copyright 2020 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package kinship

import (
	"bufio"
	"io"
	"strconv"

	"github.com/grailbio/base/log"
	"github.com/grailbio/base/tsv"
)

// tsvHeader names the output columns.
var tsvHeader = [...]string{"#SAMPLE1", "SAMPLE2", "IBD0", "IBD1", "IBD2", "KINSHIP", "IBD3"}

// WriteStats counts what WriteResults did.
type WriteStats struct {
	// Emitted counts lines written (header excluded).
	Emitted int
	// Filtered counts valid pairs suppressed by the kinship threshold.
	Filtered int
	// Invalid counts pairs with Err set; these are logged, not written.
	Invalid int
}

// formatFloat renders v with 6 significant digits, e.g. "0.5", "1",
// "0.333333", "1e-07".
func formatFloat(buf []byte, v float64) []byte {
	return strconv.AppendFloat(buf, v, 'g', 6, 64)
}

// resultFields renders the five numeric output columns.
func resultFields(r *Result) [5]string {
	var f [5]string
	var buf [32]byte
	for k, v := range [...]float64{r.IBD0, r.IBD1, r.IBD2, r.Kinship, r.IBD3} {
		f[k] = string(formatFloat(buf[:0], v))
	}
	return f
}

// WriteResults writes one line per emitted pair, in pairs order.  names maps
// sample IDs to names.
func WriteResults(w io.Writer, names []string, pairs []Pair, results []Result, opts *Opts) (stats WriteStats, err error) {
	var (
		tsvw *tsv.Writer
		bufw *bufio.Writer
	)
	if opts.Format == FormatTSV {
		tsvw = tsv.NewWriter(w)
		for _, col := range tsvHeader {
			tsvw.WriteString(col)
		}
		if err = tsvw.EndLine(); err != nil {
			return
		}
	} else {
		bufw = bufio.NewWriterSize(w, 64<<10)
	}
	var line []byte
	for k := range pairs {
		r := &results[k]
		p := pairs[k]
		if r.Err != nil {
			log.Error.Printf("kinship: %s %s: %v", names[p.A], names[p.B], r.Err)
			stats.Invalid++
			continue
		}
		if opts.FilterKinship && !(r.Kinship > opts.MinKinship) {
			stats.Filtered++
			continue
		}
		if tsvw != nil {
			tsvw.WriteString(names[p.A])
			tsvw.WriteString(names[p.B])
			for _, f := range resultFields(r) {
				tsvw.WriteString(f)
			}
			if err = tsvw.EndLine(); err != nil {
				return
			}
		} else {
			line = append(line[:0], names[p.A]...)
			line = append(line, ' ')
			line = append(line, names[p.B]...)
			for _, v := range [...]float64{r.IBD0, r.IBD1, r.IBD2, r.Kinship, r.IBD3} {
				line = append(line, ' ')
				line = formatFloat(line, v)
			}
			line = append(line, '\n')
			if _, err = bufw.Write(line); err != nil {
				return
			}
		}
		stats.Emitted++
	}
	if tsvw != nil {
		err = tsvw.Flush()
	} else {
		err = bufw.Flush()
	}
	return
}
