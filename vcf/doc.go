// Copyright 2020 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package vcf reads biallelic genotype calls from VCF files and pairs them
// with a sites-panel VCF, producing the site stream consumed by
// kinship.Ingest.
//
// Only the columns needed for relatedness estimation are interpreted: CHROM,
// POS, REF, ALT, INFO (allele-frequency keys) and the GT subfield of the
// sample columns.  Plain, gzipped and bgzipped files are supported.
package vcf
