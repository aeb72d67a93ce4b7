// Copyright 2020 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package kinship

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/fileio"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
	"github.com/grailbio/hts/bgzf"
)

// EstimatePairs estimates every pair in pairs.  results[k] corresponds to
// pairs[k]; a pair that cannot be estimated has its Err field set.  The
// returned error is ErrDegenerate when no pair could possibly be normalized.
func EstimatePairs(cohort *Cohort, pairs []Pair, opts *Opts) ([]Result, error) {
	if err := cohort.Validate(); err != nil {
		return nil, err
	}
	results := make([]Result, len(pairs))
	nPair := len(pairs)
	if nPair == 0 {
		return results, nil
	}
	parallelism := outParallelism(opts)
	if parallelism > nPair {
		parallelism = nPair
	}
	log.Debug.Printf("kinship: estimating %d pairs (%d jobs)", nPair, parallelism)
	err := traverse.Each(parallelism, func(jobIdx int) error {
		startIdx := (jobIdx * nPair) / parallelism
		endIdx := ((jobIdx + 1) * nPair) / parallelism
		for k := startIdx; k < endIdx; k++ {
			p := pairs[k]
			r, err := cohort.Estimate(p.A, p.B, opts.Normalize)
			r.Err = err
			results[k] = r
		}
		return nil
	})
	return results, err
}

// Run ingests src, evaluates the requested pairs and writes the results to
// opts.OutPath (stdout if empty; bgzipped if the path ends in .gz).  Pairs that could not be estimated are
// logged and omitted from the output; if there are any, Run returns an
// errors.Invalid error after writing the rest.
func Run(ctx context.Context, src SiteSource, opts *Opts) (err error) {
	if err = opts.Validate(); err != nil {
		return err
	}
	// The pair list only needs sample names, so it is checked before any site
	// is read.
	var pairs []Pair
	if opts.PairPath != "" {
		if pairs, err = ReadPairsFromPath(ctx, opts.PairPath, sampleIndex(src.Samples())); err != nil {
			return err
		}
	}
	cohort, err := Ingest(ctx, src, opts)
	if err != nil {
		return err
	}
	if opts.PairPath == "" {
		pairs = AllPairs(cohort.NumSamples())
	}
	results, err := EstimatePairs(cohort, pairs, opts)
	if err != nil {
		if n := cohort.moments.Markers; n > 0 {
			return errors.E(err, fmt.Sprintf("kinship: allele-frequency moments are zero over %d markers", n))
		}
		return errors.E(err, "kinship: no markers left after filtering")
	}

	var w io.Writer = os.Stdout
	if opts.OutPath != "" {
		var out file.File
		if out, err = file.Create(ctx, opts.OutPath); err != nil {
			return err
		}
		defer file.CloseAndReport(ctx, out, &err)
		w = out.Writer(ctx)
		if fileio.DetermineType(opts.OutPath) == fileio.Gzip {
			bgzfWriter := bgzf.NewWriter(w, outParallelism(opts))
			defer func() {
				if e := bgzfWriter.Close(); e != nil && err == nil {
					err = e
				}
			}()
			w = bgzfWriter
		}
	}
	stats, err := WriteResults(w, cohort.samples, pairs, results, opts)
	if err != nil {
		return err
	}
	log.Printf("kinship: wrote %d of %d pairs", stats.Emitted, len(pairs))
	if stats.Invalid > 0 {
		return errors.E(errors.Invalid, "kinship: some pairs had degenerate estimates; see log")
	}
	return nil
}

func outParallelism(opts *Opts) int {
	if opts.Parallelism <= 0 {
		return runtime.NumCPU()
	}
	return opts.Parallelism
}
