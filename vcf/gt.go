// Copyright 2020 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package vcf

import (
	"math"
	"strconv"
	"strings"

	"github.com/grailbio/kinship/genotype"
)

// GTIndex returns the position of the GT subfield in a FORMAT column, or -1.
func GTIndex(format string) int {
	for i, key := range strings.Split(format, ":") {
		if key == "GT" {
			return i
		}
	}
	return -1
}

// subfield returns the idx-th ':'-separated subfield of s, or "" if there are
// fewer.
func subfield(s string, idx int) string {
	for ; idx > 0; idx-- {
		colon := strings.IndexByte(s, ':')
		if colon == -1 {
			return ""
		}
		s = s[colon+1:]
	}
	if colon := strings.IndexByte(s, ':'); colon != -1 {
		return s[:colon]
	}
	return s
}

// parseAllele converts one allele of a GT value.  Out-of-range indices map
// to math.MaxInt8, which genotype.ClassOf treats as unusable.
func parseAllele(a string) int8 {
	if a == "." || a == "" {
		return genotype.MissingAllele
	}
	v, err := strconv.Atoi(a)
	if err != nil || v < 0 {
		return genotype.MissingAllele
	}
	if v > math.MaxInt8 {
		return math.MaxInt8
	}
	return int8(v)
}

// ParseGT parses a GT value such as "0/1", "1|1" or "./.".  Phasing is
// ignored.  Anything other than a diploid call (haploid, polyploid, empty) is
// returned as genotype.MissingCall.
func ParseGT(gt string) genotype.Call {
	sep := strings.IndexAny(gt, "/|")
	if sep == -1 {
		return genotype.MissingCall
	}
	a0, a1 := gt[:sep], gt[sep+1:]
	if strings.ContainsAny(a1, "/|") {
		return genotype.MissingCall
	}
	return genotype.Call{parseAllele(a0), parseAllele(a1)}
}

// SampleCall extracts the call of one raw sample column, given the GT
// subfield index from GTIndex.
func SampleCall(sampleField string, gtIdx int) genotype.Call {
	if gtIdx < 0 {
		return genotype.MissingCall
	}
	return ParseGT(subfield(sampleField, gtIdx))
}

// InfoValue returns the raw value of key in an INFO column, e.g. "0.5,0.1"
// for "EUR_AF=0.5,0.1".  The second result is false if key is absent or a
// flag.
func InfoValue(info, key string) (string, bool) {
	for len(info) > 0 {
		field := info
		if semi := strings.IndexByte(info, ';'); semi != -1 {
			field, info = info[:semi], info[semi+1:]
		} else {
			info = ""
		}
		if len(field) > len(key) && field[len(key)] == '=' && strings.HasPrefix(field, key) {
			return field[len(key)+1:], true
		}
	}
	return "", false
}

// InfoValues returns the comma-separated values of key in an INFO column.
func InfoValues(info, key string) ([]string, bool) {
	v, ok := InfoValue(info, key)
	if !ok {
		return nil, false
	}
	return strings.Split(v, ","), true
}
