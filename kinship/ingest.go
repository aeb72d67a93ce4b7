// Copyright 2020 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package kinship

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/kinship/genotype"
)

// Site is one record delivered by a SiteSource.  A site may come from the
// sites panel, the study, or both.
type Site struct {
	Chrom string
	// Pos is 0-based.
	Pos int
	// InPanel is true when the site is present in the sites panel.
	InPanel bool
	// PanelAlleles is the number of alleles (ref included) of the panel record.
	PanelAlleles int
	// InStudy is true when the study has genotypes for the site; Calls then
	// holds one call per sample.
	InStudy bool
	Calls   []genotype.Call
	// AF is the raw value of the panel's allele-frequency annotation, e.g.
	// "0.25" or "0.1,0.2"; empty when absent.  It is only parsed for sites
	// retained in FreqAnnotated mode.
	AF string
}

// SiteSource streams sites in genome order.
//
// Usage:
//   for src.Scan() {
//     site := src.Site()
//     ...
//   }
//   if err := src.Err(); err != nil { ... }
type SiteSource interface {
	// Samples returns the study sample names, in Calls order.
	Samples() []string
	// Scan advances to the next site, returning false at the end of the stream
	// or on error.
	Scan() bool
	// Site returns the current site.  It is only valid until the next Scan
	// call.
	Site() *Site
	// Err returns the first error encountered, if any.
	Err() error
}

// Stats summarizes site retention.
type Stats struct {
	// PanelSites counts all sites-panel records.
	PanelSites int
	// PanelBiallelic counts biallelic sites-panel records.
	PanelBiallelic int
	// Eligible counts biallelic panel records also present in the study.
	// These are the sites the thinning counter runs over.
	Eligible int
	// Thinned counts eligible sites selected by thinning.
	Thinned int
	// Markers counts retained sites.
	Markers int
}

// Ingester builds a Cohort from a stream of sites.  It is not safe for
// concurrent use.
type Ingester struct {
	opts    Opts
	samples []string
	store   *genotype.Store
	moments Moments
	stats   Stats
	classes []genotype.Class
	done    bool
}

// NewIngester creates an Ingester for the given samples.
func NewIngester(samples []string, opts *Opts) *Ingester {
	return &Ingester{
		opts:    *opts,
		samples: samples,
		store:   genotype.NewStore(len(samples)),
		classes: make([]genotype.Class, len(samples)),
	}
}

// keepFreq returns true when p's minor-allele frequency exceeds minFreq.  An
// undefined (NaN) frequency never passes.
func keepFreq(p, minFreq float64) bool {
	if p < 0.5 {
		return p > minFreq
	}
	return 1-p > minFreq
}

// empiricalFreq returns the alt-allele frequency among called alleles, or NaN
// if no allele is called.
func empiricalFreq(calls []genotype.Call) float64 {
	var alt, called int
	for _, c := range calls {
		a, n := genotype.Dosage(c)
		alt += a
		called += n
	}
	if called == 0 {
		return math.NaN()
	}
	return float64(alt) / float64(called)
}

// annotatedFreq parses the single allele frequency annotated on site.
// Missing values ('.') are not counted.
func annotatedFreq(site *Site) (float64, error) {
	var vals []string
	if site.AF != "" {
		for _, v := range strings.Split(site.AF, ",") {
			if v != "." {
				vals = append(vals, v)
			}
		}
	}
	if len(vals) != 1 {
		return 0, errors.E(errors.Invalid, fmt.Sprintf("kinship: expected one allele frequency annotation at %s:%d, found %d", site.Chrom, site.Pos+1, len(vals)))
	}
	p, err := strconv.ParseFloat(vals[0], 64)
	if err != nil {
		return 0, errors.E(errors.Invalid, err, fmt.Sprintf("kinship: allele frequency read error at %s:%d", site.Chrom, site.Pos+1))
	}
	return p, nil
}

// Add applies the retention policy to site and, if the site is retained,
// encodes it.  It returns true when the site was retained.  The only errors
// are a wrong number of calls, and, in FreqAnnotated mode, a missing,
// ambiguous or unparsable frequency annotation at a thinned-in site.
func (in *Ingester) Add(site *Site) (bool, error) {
	if !site.InPanel {
		return false, nil
	}
	in.stats.PanelSites++
	if site.PanelAlleles != 2 {
		return false, nil
	}
	in.stats.PanelBiallelic++
	if !site.InStudy {
		return false, nil
	}
	if len(site.Calls) != len(in.samples) {
		return false, errors.E(errors.Invalid, fmt.Sprintf("kinship: site %s:%d has %d calls, expected %d", site.Chrom, site.Pos+1, len(site.Calls), len(in.samples)))
	}
	eligible := in.stats.Eligible
	in.stats.Eligible++
	if eligible%in.opts.Thin != 0 {
		return false, nil
	}
	in.stats.Thinned++
	var p float64
	if in.opts.FreqMode == FreqEmpirical {
		p = empiricalFreq(site.Calls)
	} else {
		var err error
		if p, err = annotatedFreq(site); err != nil {
			return false, err
		}
	}
	if !keepFreq(p, in.opts.MinFreq) {
		return false, nil
	}
	in.AddCalls(site.Calls, p)
	return true, nil
}

// AddCalls unconditionally encodes one site with allele frequency p: one call
// per sample goes into the genotype store, and p into the moment sums.
func (in *Ingester) AddCalls(calls []genotype.Call, p float64) {
	if in.done {
		log.Panicf("kinship.Ingester: AddCalls called after Finish")
	}
	for i, c := range calls {
		in.classes[i] = genotype.ClassOf(c)
	}
	in.store.Append(in.classes)
	in.moments.Update(p)
	in.stats.Markers++
}

// Finish freezes the ingested state and returns it as a Cohort.  The Ingester
// must not be used afterwards.
func (in *Ingester) Finish() *Cohort {
	in.done = true
	in.store.Freeze()
	return &Cohort{
		samples: in.samples,
		moments: in.moments,
		stats:   in.stats,
		store:   in.store,
	}
}

const ctxCheckInterval = 1 << 16

// Ingest drains src through a new Ingester and returns the frozen Cohort.
func Ingest(ctx context.Context, src SiteSource, opts *Opts) (*Cohort, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	samples := src.Samples()
	log.Printf("kinship: %d samples", len(samples))
	in := NewIngester(samples, opts)
	for nScan := 1; src.Scan(); nScan++ {
		if _, err := in.Add(src.Site()); err != nil {
			return nil, err
		}
		if nScan%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
	}
	if err := src.Err(); err != nil {
		return nil, err
	}
	c := in.Finish()
	log.Printf("kinship: kept %d markers out of %d in panel", c.stats.Markers, c.stats.PanelSites)
	log.Printf("kinship: %d/%d of study markers were in the sites file", c.stats.Eligible, c.stats.PanelBiallelic)
	log.Debug.Printf("kinship: %d sites selected by thinning, moments %+v", c.stats.Thinned, c.moments)
	return c, nil
}
