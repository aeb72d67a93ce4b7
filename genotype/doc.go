// Copyright 2020 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package genotype converts biallelic diploid genotype calls into one of four
// classes (hom-ref, het, hom-alt, missing) and packs them into per-sample bit
// tables, one bit-row per class, so that two samples can be compared site by
// site with a handful of word-wide AND/OR/popcount operations.
//
// Every sample in a Store always has the same number of sites: bit b of block
// k refers to the same site for all samples.  Sites are appended to all
// samples at once; there is no way to append to a single sample.
package genotype
