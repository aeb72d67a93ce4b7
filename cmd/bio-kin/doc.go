// Copyright 2020 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

/*
bio-kin estimates pairwise relatedness from the genotypes in a VCF.  For each
pair of samples it reports the estimated fractions of sites sharing 0, 1 and 2
alleles identical-by-descent, the kinship coefficient 0.5*IBD2 + 0.25*IBD1,
and the number of sites informative for the pair:

  name1 name2 IBD0 IBD1 IBD2 KINSHIP NSITES

Only biallelic sites present in a sites-panel VCF (-sites) are used.  Allele
frequencies come from the panel's AF INFO field (or <aftag>AF with -aftag),
or are computed from the study genotypes with -calc.

Sample usage:
bio-kin \
    -sites 1000G.sites.vcf.gz \
    -regions-file exome.bed \
    -thin 5 \
    -minkin 0.05 \
    -out related.txt \
    cohort.vcf.gz
*/
package main
