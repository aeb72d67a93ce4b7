// Copyright 2020 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

/*
Package kinship estimates pairwise identity-by-descent (IBD) sharing and
kinship coefficients from biallelic genotype calls.

Estimation happens in two phases.  During ingestion, an Ingester consumes one
site at a time, applies the site-retention policy (sites-panel membership,
biallelic check, thinning, minor-allele-frequency threshold), packs each
sample's genotype class into a genotype.Store and adds the site's
allele-frequency moments to a Moments accumulator.  Ingestion ends with
Finish, which freezes everything into an immutable Cohort.

For a pair of samples, Cohort.Estimate counts
  - sites where the two samples are opposite homozygotes (only possible with
    no allele shared IBD),
  - sites where the two samples have identical genotypes,
  - sites where either sample is missing,
and assigns the remaining sites to IBD1.  The counts are then normalized with
the expected chance-sharing baselines in Moments, optionally projected onto the
simplex IBD0+IBD1+IBD2 = 1, and summarized as the kinship coefficient
0.5*IBD2 + 0.25*IBD1.

Pairs are independent, so EstimatePairs fans them out over a worker pool; the
Cohort is only read during that phase.
*/
package kinship
