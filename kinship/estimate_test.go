// Copyright 2020 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package kinship_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/grailbio/kinship/genotype"
	"github.com/grailbio/kinship/kinship"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tolerance = 1e-9

// dosageCall returns a call with the given alt-allele dosage; dosage 3 means
// missing.
func dosageCall(d int) genotype.Call {
	switch d {
	case 0:
		return genotype.Call{0, 0}
	case 1:
		return genotype.Call{0, 1}
	case 2:
		return genotype.Call{1, 1}
	}
	return genotype.MissingCall
}

// buildCohort ingests dosages[sample][site] with per-site frequencies freqs,
// bypassing the retention policy.
func buildCohort(t testing.TB, dosages [][]int, freqs []float64) *kinship.Cohort {
	names := make([]string, len(dosages))
	for i := range names {
		names[i] = string(rune('A' + i))
	}
	in := kinship.NewIngester(names, &kinship.DefaultOpts)
	calls := make([]genotype.Call, len(dosages))
	for site, p := range freqs {
		for i := range dosages {
			calls[i] = dosageCall(dosages[i][site])
		}
		in.AddCalls(calls, p)
	}
	return in.Finish()
}

func TestMomentsUpdate(t *testing.T) {
	var m kinship.Moments
	for i := 0; i < 4; i++ {
		m.Update(0.5)
	}
	assert.InDelta(t, 0.5, m.N00, tolerance)
	assert.InDelta(t, 2, m.N10, tolerance)
	assert.InDelta(t, 2, m.N11, tolerance)
	assert.InDelta(t, 1.5, m.N20, tolerance)
	assert.InDelta(t, 2, m.N21, tolerance)
	assert.InDelta(t, 4, m.N22, tolerance)
	assert.Equal(t, 4, m.Markers)

	m = kinship.Moments{}
	m.Update(0.1)
	assert.InDelta(t, 2*0.01*0.81, m.N00, tolerance)
	assert.InDelta(t, 2*0.1*0.9, m.N11, tolerance)
	assert.InDelta(t, 4*0.1*0.9*(0.01+0.81), m.N10, tolerance)
	assert.InDelta(t, 0.0001+0.6561+4*0.01*0.81, m.N20, tolerance)
	assert.InDelta(t, 0.82, m.N21, tolerance)
}

func TestEstimateIdentical(t *testing.T) {
	c := buildCohort(t, [][]int{{0, 1, 2, 1}, {0, 1, 2, 1}}, []float64{0.5, 0.5, 0.5, 0.5})
	raw, err := c.RawCounts(0, 1)
	require.NoError(t, err)
	assert.Equal(t, kinship.RawCounts{IBD0: 0, IBD1: 0, IBD2: 4, Missing: 0}, raw)

	r, err := c.Estimate(0, 1, true)
	require.NoError(t, err)
	assert.InDelta(t, 0, r.IBD0, tolerance)
	assert.InDelta(t, 0, r.IBD1, tolerance)
	assert.InDelta(t, 1, r.IBD2, tolerance)
	assert.InDelta(t, 0.5, r.Kinship, tolerance)
	assert.InDelta(t, 4, r.IBD3, tolerance)
}

func TestEstimateOppositeHomozygotes(t *testing.T) {
	c := buildCohort(t, [][]int{{0, 1, 2, 1}, {2, 1, 0, 1}}, []float64{0.5, 0.5, 0.5, 0.5})
	raw, err := c.RawCounts(0, 1)
	require.NoError(t, err)
	assert.Equal(t, kinship.RawCounts{IBD0: 2, IBD1: 0, IBD2: 2, Missing: 0}, raw)

	r, err := c.Estimate(0, 1, true)
	require.NoError(t, err)
	assert.InDelta(t, 1, r.IBD0, tolerance)
	assert.InDelta(t, 0, r.IBD1, tolerance)
	assert.InDelta(t, 0, r.IBD2, tolerance)
	assert.InDelta(t, 0, r.Kinship, tolerance)

	// Unnormalized IBD0 is raw0 / N00 = 2 / 0.5.
	r, err = c.Estimate(0, 1, false)
	require.NoError(t, err)
	assert.InDelta(t, 4, r.IBD0, tolerance)
}

func TestEstimateMissing(t *testing.T) {
	c := buildCohort(t, [][]int{{0, 3, 2, 1, 1}, {0, 1, 3, 0, 1}}, []float64{0.3, 0.4, 0.5, 0.2, 0.1})
	raw, err := c.RawCounts(0, 1)
	require.NoError(t, err)
	assert.Equal(t, kinship.RawCounts{IBD0: 0, IBD1: 1, IBD2: 2, Missing: 2}, raw)
	r, err := c.Estimate(1, 0, true)
	require.NoError(t, err)
	assert.InDelta(t, 3, r.IBD3, tolerance)
}

func TestEstimateInvalidPair(t *testing.T) {
	c := buildCohort(t, [][]int{{0, 1}, {1, 1}}, []float64{0.5, 0.5})
	_, err := c.Estimate(0, 0, true)
	assert.Error(t, err)
	_, err = c.Estimate(0, 2, true)
	assert.Error(t, err)
	_, err = c.RawCounts(-1, 1)
	assert.Error(t, err)
}

func TestEstimateDegenerate(t *testing.T) {
	// No markers at all.
	c := buildCohort(t, [][]int{{}, {}}, nil)
	assert.Equal(t, kinship.ErrDegenerate, c.Validate())
	_, err := c.Estimate(0, 1, true)
	assert.Equal(t, kinship.ErrDegenerate, err)
	_, err = c.Estimate(0, 1, false)
	assert.Equal(t, kinship.ErrDegenerate, err)

	// Monomorphic sites: N00 == N11 == 0.
	c = buildCohort(t, [][]int{{0, 0}, {0, 0}}, []float64{0, 0})
	assert.Equal(t, kinship.ErrDegenerate, c.Validate())
	_, err = c.Estimate(0, 1, true)
	assert.Equal(t, kinship.ErrDegenerate, err)
}

func TestEstimateProjectionCollapse(t *testing.T) {
	// Every site is missing for the pair, so all three estimates are zero and
	// there is nothing to rescale.
	c := buildCohort(t, [][]int{{3, 3, 1}, {0, 1, 3}, {1, 1, 1}}, []float64{0.5, 0.5, 0.5})
	r, err := c.Estimate(0, 1, false)
	require.NoError(t, err)
	assert.InDelta(t, 0, r.IBD0, tolerance)
	_, err = c.Estimate(0, 1, true)
	assert.Equal(t, kinship.ErrDegenerate, err)
}

func TestEstimateInvariants(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	const (
		nSample = 8
		nSite   = 700
	)
	freqs := make([]float64, nSite)
	for s := range freqs {
		freqs[s] = 0.05 + 0.9*r.Float64()
	}
	dosages := make([][]int, nSample)
	for i := range dosages {
		dosages[i] = make([]int, nSite)
		for s := range dosages[i] {
			if r.Intn(20) == 0 {
				dosages[i][s] = 3
				continue
			}
			p := freqs[s]
			d := 0
			for k := 0; k < 2; k++ {
				if r.Float64() < p {
					d++
				}
			}
			dosages[i][s] = d
		}
	}
	// Make sample 1 a duplicate of sample 0.
	copy(dosages[1], dosages[0])
	c := buildCohort(t, dosages, freqs)
	for i := 0; i < nSample; i++ {
		for j := i + 1; j < nSample; j++ {
			raw, err := c.RawCounts(i, j)
			require.NoError(t, err)
			assert.Equal(t, nSite, raw.IBD0+raw.IBD1+raw.IBD2+raw.Missing)

			res, err := c.Estimate(i, j, true)
			require.NoError(t, err)
			assert.InDelta(t, 1, res.IBD0+res.IBD1+res.IBD2, 1e-9)
			for _, v := range []float64{res.IBD0, res.IBD1, res.IBD2} {
				assert.True(t, v >= 0 && !math.IsNaN(v), "pair %d,%d: %+v", i, j, res)
			}
			assert.InDelta(t, 0.5*res.IBD2+0.25*res.IBD1, res.Kinship, tolerance)
		}
	}
	dup, err := c.Estimate(0, 1, true)
	require.NoError(t, err)
	assert.True(t, dup.Kinship > 0.4, "duplicate kinship %v", dup.Kinship)
}
