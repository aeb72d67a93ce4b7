// Copyright 2020 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package kinship_test

import (
	"context"
	"io/ioutil"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/grailbio/hts/bgzf"
	"github.com/grailbio/kinship/genotype"
	"github.com/grailbio/kinship/kinship"
	"github.com/grailbio/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimatePairsMatchesSerial(t *testing.T) {
	r := rand.New(rand.NewSource(11))
	const (
		nSample = 12
		nSite   = 300
	)
	freqs := make([]float64, nSite)
	dosages := make([][]int, nSample)
	for s := range freqs {
		freqs[s] = 0.1 + 0.8*r.Float64()
	}
	for i := range dosages {
		dosages[i] = make([]int, nSite)
		for s := range dosages[i] {
			dosages[i][s] = r.Intn(4)
		}
	}
	c := buildCohort(t, dosages, freqs)
	pairs := kinship.AllPairs(nSample)
	for _, parallelism := range []int{0, 1, 3, 1000} {
		opts := kinship.DefaultOpts
		opts.Parallelism = parallelism
		results, err := kinship.EstimatePairs(c, pairs, &opts)
		require.NoError(t, err)
		require.Equal(t, len(pairs), len(results))
		for k, p := range pairs {
			want, err := c.Estimate(p.A, p.B, true)
			assert.Equal(t, err, results[k].Err)
			want.Err = err
			assert.Equal(t, want, results[k], "parallelism %d pair %v", parallelism, p)
		}
	}
}

func TestEstimatePairsDegenerate(t *testing.T) {
	c := buildCohort(t, [][]int{{}, {}}, nil)
	_, err := kinship.EstimatePairs(c, kinship.AllPairs(2), &kinship.DefaultOpts)
	assert.Equal(t, kinship.ErrDegenerate, err)
}

func TestRun(t *testing.T) {
	tmpDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()

	calls := func(d ...int) []genotype.Call {
		c := make([]genotype.Call, len(d))
		for i := range d {
			c[i] = dosageCall(d[i])
		}
		return c
	}
	// p and q are identical; r is their opposite homozygote everywhere it can
	// be.
	src := &sliceSource{
		samples: []string{"p", "q", "r"},
		sites: []kinship.Site{
			eligibleSite(10, 0.5, calls(0, 0, 2)...),
			eligibleSite(20, 0.5, calls(1, 1, 1)...),
			eligibleSite(30, 0.5, calls(2, 2, 0)...),
			eligibleSite(40, 0.5, calls(1, 1, 1)...),
		},
	}
	pairPath := filepath.Join(tmpDir, "pairs.txt")
	require.NoError(t, ioutil.WriteFile(pairPath, []byte("q p\nr p\n"), 0644))
	outPath := filepath.Join(tmpDir, "out.txt")

	opts := kinship.DefaultOpts
	opts.PairPath = pairPath
	opts.OutPath = outPath
	require.NoError(t, kinship.Run(context.Background(), src, &opts))
	got, err := ioutil.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, "q p 0 0 1 0.5 4\nr p 1 0 0 0 4\n", string(got))

	src.idx = 0
	opts.OutPath = filepath.Join(tmpDir, "out.txt.gz")
	require.NoError(t, kinship.Run(context.Background(), src, &opts))
	f, err := os.Open(opts.OutPath)
	require.NoError(t, err)
	defer f.Close()
	zr, err := bgzf.NewReader(f, 1)
	require.NoError(t, err)
	got, err = ioutil.ReadAll(zr)
	require.NoError(t, err)
	assert.Equal(t, "q p 0 0 1 0.5 4\nr p 1 0 0 0 4\n", string(got))

	// Unknown names abort the run before anything is written.
	require.NoError(t, ioutil.WriteFile(pairPath, []byte("p x\n"), 0644))
	src.idx = 0
	opts.OutPath = filepath.Join(tmpDir, "out2.txt")
	err = kinship.Run(context.Background(), src, &opts)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "x not found"), err.Error())
	_, err = ioutil.ReadFile(opts.OutPath)
	assert.Error(t, err)
}

func TestRunNoMarkers(t *testing.T) {
	tmpDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	src := &sliceSource{
		samples: []string{"a", "b"},
		sites:   []kinship.Site{eligibleSite(1, 0.01, genotype.Call{0, 0}, genotype.Call{0, 1})},
	}
	opts := kinship.DefaultOpts
	opts.MinFreq = 0.05
	opts.OutPath = filepath.Join(tmpDir, "out.txt")
	err := kinship.Run(context.Background(), src, &opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no markers")
}

type countingSource struct {
	sliceSource
	nScan int
}

func (s *countingSource) Scan() bool {
	s.nScan++
	return s.sliceSource.Scan()
}

func TestRunChecksPairsBeforeIngest(t *testing.T) {
	tmpDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	src := &countingSource{sliceSource: sliceSource{samples: []string{"a", "b"}}}
	for i := 0; i < 1000; i++ {
		src.sites = append(src.sites, eligibleSite(i, 0.5, genotype.Call{0, 1}, genotype.Call{1, 1}))
	}
	opts := kinship.DefaultOpts
	opts.PairPath = filepath.Join(tmpDir, "pairs.txt")
	opts.OutPath = filepath.Join(tmpDir, "out.txt")
	require.NoError(t, ioutil.WriteFile(opts.PairPath, []byte("a nosuch\n"), 0644))
	err := kinship.Run(context.Background(), src, &opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nosuch not found in input")
	assert.Equal(t, 0, src.nScan)

	require.NoError(t, ioutil.WriteFile(opts.PairPath, []byte("b a\n"), 0644))
	require.NoError(t, kinship.Run(context.Background(), src, &opts))
	assert.Equal(t, 1001, src.nScan)
}

func TestRunDegenerateMoments(t *testing.T) {
	tmpDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	// 2p²q² underflows to zero, but the site passes the frequency filter.
	site := eligibleSite(1, 0, genotype.Call{0, 0}, genotype.Call{0, 1})
	site.AF = "1e-300"
	src := &sliceSource{samples: []string{"a", "b"}, sites: []kinship.Site{site}}
	opts := kinship.DefaultOpts
	opts.OutPath = filepath.Join(tmpDir, "out.txt")
	err := kinship.Run(context.Background(), src, &opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "moments are zero over 1 markers")
	assert.NotContains(t, err.Error(), "no markers")
}
