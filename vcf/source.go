// Copyright 2020 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package vcf

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/kinship/genotype"
	"github.com/grailbio/kinship/interval"
	"github.com/grailbio/kinship/kinship"
)

// Opts configures a Source.
type Opts struct {
	// SitesPath is the sites-panel VCF.  Required.
	SitesPath string
	// AFTag is prepended to "AF" to form the INFO key holding the panel's
	// allele frequencies, e.g. "EUR_" reads EUR_AF.
	AFTag string
	// Regions, if non-nil, restricts both files.
	Regions *interval.Union
	// Samples, if nonempty, restricts the study to these samples.  Header
	// order is kept.
	Samples []string
	// Parallelism is the number of bgzf decompression goroutines per file.
	Parallelism int
}

// DefaultOpts is the default Source configuration.
var DefaultOpts = Opts{
	Parallelism: 1,
}

// Source pairs a study VCF with a sites panel and implements
// kinship.SiteSource.  Study records matching a panel record are delivered
// in study order; once the study is exhausted, panel records no study record
// matched are delivered with InStudy unset so they are still counted.
type Source struct {
	study      *Reader
	closeStudy func() error
	panel      *panel
	regions    *interval.Union

	samples []string
	cols    []int

	site      kinship.Site
	calls     []genotype.Call
	studyDone bool
	panelIdx  int

	nStudy, nMatched int
	err              errors.Once
}

// selectSamples picks the columns of header named in subset, in header
// order.  An empty subset selects everything.
func selectSamples(header, subset []string) (names []string, cols []int, err error) {
	if len(subset) == 0 {
		cols = make([]int, len(header))
		for i := range cols {
			cols[i] = i
		}
		return header, cols, nil
	}
	want := make(map[string]bool, len(subset))
	for _, name := range subset {
		want[name] = true
	}
	for i, name := range header {
		if want[name] {
			names = append(names, name)
			cols = append(cols, i)
			delete(want, name)
		}
	}
	for _, name := range subset {
		if want[name] {
			return nil, nil, errors.E(errors.NotExist, fmt.Sprintf("vcf: sample %s not found in input", name))
		}
	}
	return names, cols, nil
}

// NewSource opens studyPath and loads the sites panel.  The caller must Close
// the Source.
func NewSource(ctx context.Context, studyPath string, opts *Opts) (*Source, error) {
	if opts.SitesPath == "" {
		return nil, errors.E(errors.Invalid, "vcf: a sites-panel VCF is required")
	}
	parallelism := opts.Parallelism
	if parallelism < 1 {
		parallelism = 1
	}
	p, err := loadPanel(ctx, opts.SitesPath, opts.AFTag+"AF", opts.Regions, parallelism)
	if err != nil {
		return nil, err
	}
	study, closeStudy, err := Open(ctx, studyPath, parallelism)
	if err != nil {
		return nil, err
	}
	samples, cols, err := selectSamples(study.Header().Samples, opts.Samples)
	if err != nil {
		_ = closeStudy()
		return nil, err
	}
	if len(samples) == 0 {
		_ = closeStudy()
		return nil, errors.E(errors.Invalid, fmt.Sprintf("vcf: %s has no samples", studyPath))
	}
	return &Source{
		study:      study,
		closeStudy: closeStudy,
		panel:      p,
		regions:    opts.Regions,
		samples:    samples,
		cols:       cols,
		calls:      make([]genotype.Call, len(samples)),
	}, nil
}

// Samples implements kinship.SiteSource.
func (s *Source) Samples() []string {
	return s.samples
}

// Scan implements kinship.SiteSource.
func (s *Source) Scan() bool {
	if s.err.Err() != nil {
		return false
	}
	for !s.studyDone {
		if !s.study.Scan() {
			if err := s.study.Err(); err != nil {
				s.err.Set(err)
				return false
			}
			s.studyDone = true
			log.Debug.Printf("vcf: %d study records in regions, %d matched the sites panel", s.nStudy, s.nMatched)
			break
		}
		rec := s.study.Record()
		if !s.regions.Contains(rec.Chrom, rec.Pos) {
			continue
		}
		s.nStudy++
		ps := s.panel.lookup(rec)
		if ps == nil {
			continue
		}
		s.nMatched++
		ps.seen = true
		gtIdx := GTIndex(rec.Format)
		for k, col := range s.cols {
			s.calls[k] = SampleCall(rec.SampleFields[col], gtIdx)
		}
		s.site = kinship.Site{
			Chrom:        rec.Chrom,
			Pos:          rec.Pos,
			InPanel:      true,
			PanelAlleles: ps.nAllele,
			InStudy:      true,
			Calls:        s.calls,
			AF:           ps.af,
		}
		return true
	}
	for s.panelIdx < len(s.panel.sites) {
		ps := &s.panel.sites[s.panelIdx]
		s.panelIdx++
		if ps.seen {
			continue
		}
		s.site = kinship.Site{
			Chrom:        ps.chrom,
			Pos:          ps.pos,
			InPanel:      true,
			PanelAlleles: ps.nAllele,
			AF:           ps.af,
		}
		return true
	}
	return false
}

// Site implements kinship.SiteSource.
func (s *Source) Site() *kinship.Site {
	return &s.site
}

// Err implements kinship.SiteSource.
func (s *Source) Err() error {
	return s.err.Err()
}

// Close releases the study file.
func (s *Source) Close() error {
	return s.closeStudy()
}

// ReadSampleList reads sample names, one per line (first whitespace-separated
// token), skipping blank lines.
func ReadSampleList(ctx context.Context, path string) (names []string, err error) {
	var in file.File
	if in, err = file.Open(ctx, path); err != nil {
		return nil, errors.E(err, "vcf: opening sample list", path)
	}
	defer file.CloseAndReport(ctx, in, &err)
	scanner := bufio.NewScanner(in.Reader(ctx))
	for scanner.Scan() {
		if tokens := strings.Fields(scanner.Text()); len(tokens) > 0 {
			names = append(names, tokens[0])
		}
	}
	if err = scanner.Err(); err != nil {
		return nil, errors.E(err, path)
	}
	return names, nil
}
