// Copyright 2020 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/kinship/interval"
	"github.com/grailbio/kinship/kinship"
	"github.com/grailbio/kinship/vcf"
)

var (
	sitesPath   = flag.String("sites", "", "Sites-panel VCF; only biallelic sites present here are used (required)")
	regions     = flag.String("regions", "", "Comma-separated regions to restrict to, <contig>[:<1-based first pos>[-<last pos>]]; incompatible with -regions-file")
	regionsPath = flag.String("regions-file", "", "BED file of regions to restrict to; incompatible with -regions")
	samples     = flag.String("samples", "", "Comma-separated list of samples to use")
	samplesPath = flag.String("samples-file", "", "File listing samples to use, one per line")
	afTag       = flag.String("aftag", "", "Use <aftag>AF instead of AF for panel allele frequencies, e.g. EUR_")
	calc        = flag.Bool("calc", false, "Compute allele frequencies from the study genotypes instead of the panel")
	thin        = flag.Int("thin", kinship.DefaultOpts.Thin, "Keep only every n-th eligible site")
	maf         = flag.Float64("maf", kinship.DefaultOpts.MinFreq, "Minimum minor-allele frequency (exclusive)")
	minKin      = flag.Float64("minkin", 0, "Only report pairs with kinship above this value (default: report all pairs)")
	unnorm      = flag.Bool("unnorm", false, "Don't project IBD estimates onto [0,1]")
	pairPath    = flag.String("pairfile", "", "File of sample pairs to evaluate, two names per line (default: all pairs)")
	parallelism = flag.Int("parallelism", kinship.DefaultOpts.Parallelism, "Number of pair-estimation jobs; 0 = runtime.NumCPU()")
	format      = flag.String("format", "text", "Output format; 'text' (space-separated) and 'tsv' supported")
	outPath     = flag.String("out", "", "Output path (default stdout)")
)

func bioKinUsage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS] -sites sites.vcf.gz study.vcf.gz\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "Options:\n")
	flag.PrintDefaults()
}

func flagSet(name string) (set bool) {
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return
}

func main() {
	flag.Usage = bioKinUsage
	shutdown := grail.Init()
	defer shutdown()

	if flag.NArg() != 1 {
		log.Fatalf("Expected exactly one positional argument (study VCF), got %d: '%s'", flag.NArg(), strings.Join(flag.Args(), " "))
	}
	if *sitesPath == "" {
		log.Fatalf("-sites is required")
	}
	if *regions != "" && *regionsPath != "" {
		log.Fatalf("-regions and -regions-file cannot be used simultaneously")
	}
	if *samples != "" && *samplesPath != "" {
		log.Fatalf("-samples and -samples-file cannot be used simultaneously")
	}
	ctx := vcontext.Background()

	outFormat, err := kinship.ParseFormat(*format)
	if err != nil {
		log.Fatalf("%v", err)
	}
	opts := kinship.DefaultOpts
	opts.Thin = *thin
	opts.MinFreq = *maf
	if *calc {
		opts.FreqMode = kinship.FreqEmpirical
	}
	opts.Normalize = !*unnorm
	opts.FilterKinship = flagSet("minkin")
	opts.MinKinship = *minKin
	opts.PairPath = *pairPath
	opts.OutPath = *outPath
	opts.Format = outFormat
	opts.Parallelism = *parallelism
	if err = opts.Validate(); err != nil {
		log.Fatalf("%v", err)
	}

	vcfOpts := vcf.DefaultOpts
	vcfOpts.SitesPath = *sitesPath
	vcfOpts.AFTag = *afTag
	switch {
	case *regions != "":
		if vcfOpts.Regions, err = interval.ParseRegions(*regions); err != nil {
			log.Fatalf("Failed to read the regions %s: %v", *regions, err)
		}
	case *regionsPath != "":
		if vcfOpts.Regions, err = interval.NewUnionFromPath(ctx, *regionsPath); err != nil {
			log.Fatalf("Failed to read the regions %s: %v", *regionsPath, err)
		}
	}
	switch {
	case *samples != "":
		vcfOpts.Samples = strings.Split(*samples, ",")
	case *samplesPath != "":
		if vcfOpts.Samples, err = vcf.ReadSampleList(ctx, *samplesPath); err != nil {
			log.Fatalf("%v", err)
		}
	}

	src, err := vcf.NewSource(ctx, flag.Arg(0), &vcfOpts)
	if err != nil {
		log.Fatalf("%v", err)
	}
	err = kinship.Run(ctx, src, &opts)
	if e := src.Close(); e != nil && err == nil {
		err = e
	}
	if err != nil {
		log.Fatalf("%v", err)
	}
	log.Debug.Printf("exiting")
}
