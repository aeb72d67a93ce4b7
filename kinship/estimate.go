// Copyright 2020 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package kinship

import (
	"fmt"
	"math"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/kinship/genotype"
)

// ErrDegenerate is returned when normalization would divide by zero, either
// because no sites were retained (or a moment sum collapsed to zero), or
// because nothing is left of a pair's estimate after projection.
var ErrDegenerate = errors.E(errors.Invalid, "kinship: degenerate normalization (no informative sites)")

// Cohort is the immutable result of ingestion.  All methods are safe for
// concurrent use.
type Cohort struct {
	// samples holds sample names, indexed by sample ID.
	samples []string
	moments Moments
	stats   Stats
	store   *genotype.Store
}

// NumSamples returns the number of samples.
func (c *Cohort) NumSamples() int {
	return len(c.samples)
}

// Samples returns a copy of the sample names, indexed by sample ID.
func (c *Cohort) Samples() []string {
	return append([]string(nil), c.samples...)
}

// Moments returns the moment sums over the retained sites.
func (c *Cohort) Moments() Moments {
	return c.moments
}

// Stats returns the site-retention counts.
func (c *Cohort) Stats() Stats {
	return c.stats
}

// Store returns the frozen genotype store.
func (c *Cohort) Store() *genotype.Store {
	return c.store
}

// SampleIndex maps sample names to sample IDs.
func (c *Cohort) SampleIndex() map[string]int {
	return sampleIndex(c.samples)
}

func sampleIndex(samples []string) map[string]int {
	index := make(map[string]int, len(samples))
	for i, name := range samples {
		index[name] = i
	}
	return index
}

// Validate returns ErrDegenerate if no pair can be normalized.
func (c *Cohort) Validate() error {
	if c.moments.degenerate() {
		return ErrDegenerate
	}
	return nil
}

// RawCounts holds the unnormalized per-pair site counts.  The four fields
// always sum to the number of markers.
type RawCounts struct {
	// IBD0 counts opposite-homozygote sites.
	IBD0 int
	// IBD1 counts the informative sites not assigned to IBD0 or IBD2.
	IBD1 int
	// IBD2 counts sites with identical genotypes.
	IBD2 int
	// Missing counts sites where either sample is missing.
	Missing int
}

// Result is the estimate for one pair.
type Result struct {
	IBD0, IBD1, IBD2 float64
	// IBD3 is the number of informative (non-missing) sites for the pair,
	// N22 - Raw.Missing.
	IBD3    float64
	Kinship float64
	Raw     RawCounts
	// Err is set when the result is invalid.  The numeric fields are then
	// meaningless.
	Err error
}

func (c *Cohort) checkPair(i, j int) error {
	n := len(c.samples)
	if i < 0 || i >= n || j < 0 || j >= n {
		return errors.E(errors.Invalid, fmt.Sprintf("kinship: sample pair (%d, %d) out of range [0, %d)", i, j, n))
	}
	if i == j {
		return errors.E(errors.Invalid, fmt.Sprintf("kinship: sample %s paired with itself", c.samples[i]))
	}
	return nil
}

// RawCounts reduces the genotype store for samples i and j.
func (c *Cohort) RawCounts(i, j int) (RawCounts, error) {
	if err := c.checkPair(i, j); err != nil {
		return RawCounts{}, err
	}
	pc := c.store.Compare(i, j)
	return RawCounts{
		IBD0:    pc.Opposite,
		IBD1:    c.moments.Markers - pc.Missing - pc.Opposite - pc.Same,
		IBD2:    pc.Same,
		Missing: pc.Missing,
	}, nil
}

// Estimate computes IBD fractions and the kinship coefficient for samples i
// and j.  With normalize set, (IBD0, IBD1, IBD2) is projected onto the
// simplex: a pair with IBD0 > 1 becomes (1, 0, 0), otherwise negative IBD1 and
// IBD2 are clamped to zero, and the three are rescaled to sum to 1.
func (c *Cohort) Estimate(i, j int, normalize bool) (Result, error) {
	raw, err := c.RawCounts(i, j)
	if err != nil {
		return Result{}, err
	}
	m := &c.moments
	if m.degenerate() {
		return Result{Raw: raw}, ErrDegenerate
	}
	r := Result{Raw: raw}
	r.IBD0 = float64(raw.IBD0) / m.N00
	r.IBD1 = (float64(raw.IBD1) - r.IBD0*m.N10) / m.N11
	r.IBD2 = (float64(raw.IBD2) - r.IBD0*m.N20 - r.IBD1*m.N21) / m.N22
	r.IBD3 = m.N22 - float64(raw.Missing)
	if normalize {
		if r.IBD0 > 1 {
			// Treated as unrelated; the IBD1/IBD2 evidence is dropped.
			r.IBD0, r.IBD1, r.IBD2 = 1, 0, 0
		} else {
			if r.IBD1 < 0 {
				r.IBD1 = 0
			}
			if r.IBD2 < 0 {
				r.IBD2 = 0
			}
		}
		sum := r.IBD0 + r.IBD1 + r.IBD2
		if !(sum > 0) {
			return r, ErrDegenerate
		}
		r.IBD0 /= sum
		r.IBD1 /= sum
		r.IBD2 /= sum
	}
	r.Kinship = 0.5*r.IBD2 + 0.25*r.IBD1
	for _, v := range [...]float64{r.IBD0, r.IBD1, r.IBD2, r.Kinship} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return r, ErrDegenerate
		}
	}
	return r, nil
}
