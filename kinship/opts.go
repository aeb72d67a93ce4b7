// Copyright 2020 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package kinship

import (
	"fmt"

	"github.com/grailbio/base/errors"
)

// FreqMode selects where a site's allele frequency comes from.
type FreqMode int

const (
	// FreqAnnotated reads the frequency from the sites panel's AF annotation.
	FreqAnnotated FreqMode = iota
	// FreqEmpirical computes the frequency from the study's non-missing calls.
	FreqEmpirical
)

func (m FreqMode) String() string {
	switch m {
	case FreqAnnotated:
		return "annotated"
	case FreqEmpirical:
		return "empirical"
	}
	return fmt.Sprintf("FreqMode(%d)", int(m))
}

// Format is an output format for per-pair results.
type Format int

const (
	// FormatText writes "name1 name2 IBD0 IBD1 IBD2 KINSHIP IBD3" lines.
	FormatText Format = iota
	// FormatTSV writes the same columns tab-separated, after a header line.
	FormatTSV
)

// ParseFormat converts a format name ("text" or "tsv") to a Format.
func ParseFormat(name string) (Format, error) {
	switch name {
	case "text", "":
		return FormatText, nil
	case "tsv":
		return FormatTSV, nil
	}
	return FormatText, errors.E(errors.Invalid, fmt.Sprintf("kinship: unknown output format %q", name))
}

// Opts controls ingestion, estimation and output.
type Opts struct {
	// Thin keeps only every Thin-th eligible site.  1 keeps all of them.
	Thin int
	// MinFreq is the minor-allele-frequency threshold; a site is kept only if
	// min(p, 1-p) > MinFreq.
	MinFreq float64
	// FreqMode selects annotated or empirical allele frequencies.
	FreqMode FreqMode
	// Normalize projects (IBD0, IBD1, IBD2) onto the simplex.
	Normalize bool
	// FilterKinship restricts output to pairs with kinship > MinKinship.
	FilterKinship bool
	MinKinship    float64
	// PairPath, if nonempty, names a file listing the sample pairs to
	// evaluate.  Otherwise all pairs are evaluated.
	PairPath string
	// OutPath is the output path; empty means stdout.
	OutPath string
	Format  Format
	// Parallelism is the number of pair-estimation jobs; <= 0 means
	// runtime.NumCPU().
	Parallelism int
}

// DefaultOpts is the default configuration.
var DefaultOpts = Opts{
	Thin:        1,
	MinFreq:     0,
	FreqMode:    FreqAnnotated,
	Normalize:   true,
	Format:      FormatText,
	Parallelism: 0,
}

// Validate checks option values that don't depend on the input.
func (o *Opts) Validate() error {
	if o.Thin < 1 {
		return errors.E(errors.Invalid, fmt.Sprintf("kinship: thinning factor must be positive, got %d", o.Thin))
	}
	if o.MinFreq < 0 || o.MinFreq >= 0.5 {
		return errors.E(errors.Invalid, fmt.Sprintf("kinship: minimum allele frequency must be in [0, 0.5), got %g", o.MinFreq))
	}
	if o.FreqMode != FreqAnnotated && o.FreqMode != FreqEmpirical {
		return errors.E(errors.Invalid, fmt.Sprintf("kinship: invalid frequency mode %v", o.FreqMode))
	}
	if o.Format != FormatText && o.Format != FormatTSV {
		return errors.E(errors.Invalid, fmt.Sprintf("kinship: invalid output format %d", int(o.Format)))
	}
	return nil
}
