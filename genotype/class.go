// Copyright 2020 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package genotype

import "strconv"

// MissingAllele is the allele index used for a no-call ('.' in VCF).
const MissingAllele = -1

// Call is an unphased diploid genotype call, stored as two allele indices.
// 0 is the reference allele, 1 the (single) alternate allele.  Any other value
// (including MissingAllele) makes the call unusable.
type Call [2]int8

// MissingCall is the call for a sample with no genotype at a site.
var MissingCall = Call{MissingAllele, MissingAllele}

// Class is the one-of-four genotype class stored in a Store.
type Class uint8

const (
	// HomRef is a 0/0 call.
	HomRef Class = iota
	// Het is a 0/1 (or 1/0) call.
	Het
	// HomAlt is a 1/1 call.
	HomAlt
	// Missing covers no-calls and calls involving an allele other than 0 or 1.
	Missing
	// NClass is the number of classes, and the number of bit-rows per block.
	NClass = 4
)

var classNames = [NClass]string{"HOM_REF", "HET", "HOM_ALT", "MISSING"}

func (c Class) String() string {
	if int(c) < NClass {
		return classNames[c]
	}
	return "Class(" + strconv.Itoa(int(c)) + ")"
}

// ClassOf returns the class of the given call.  The class of a usable call is
// its alt-allele dosage.
func ClassOf(c Call) Class {
	a0, a1 := c[0], c[1]
	if a0 < 0 || a0 > 1 || a1 < 0 || a1 > 1 {
		return Missing
	}
	return Class(a0 + a1)
}

// Dosage returns the number of alt alleles in c, and the number of called
// (0 or 1) alleles it was computed from.  Alleles outside {0,1} are ignored.
func Dosage(c Call) (alt, called int) {
	for _, a := range c {
		if a == 0 || a == 1 {
			alt += int(a)
			called++
		}
	}
	return
}
