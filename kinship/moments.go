// Copyright 2020 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package kinship

// Moments holds running sums, over all retained sites, of polynomials in each
// site's alt-allele frequency p (q = 1-p).  They are the expected numbers of
// chance-sharing sites used to normalize raw pairwise counts.
type Moments struct {
	// N00 sums 2p²q², the chance of opposite homozygotes given IBD0.
	N00 float64
	// N10 sums 4pq(p²+q²).
	N10 float64
	// N11 sums 2pq.
	N11 float64
	// N20 sums p⁴+q⁴+4p²q².
	N20 float64
	// N21 sums p²+q².
	N21 float64
	// N22 sums 1 per site.
	N22 float64
	// Markers counts retained sites.  It equals N22, but is kept as an exact
	// integer.
	Markers int
}

// Update adds the contribution of one retained site with alt-allele frequency
// p.
func (m *Moments) Update(p float64) {
	q := 1 - p
	pp, qq := p*p, q*q
	m.N00 += 2 * pp * qq
	m.N11 += 2 * p * q
	m.N10 += 4 * p * q * (pp + qq)
	m.N20 += pp*pp + qq*qq + 4*pp*qq
	m.N21 += pp + qq
	m.N22++
	m.Markers++
}

// degenerate returns true when any denominator used by the estimator is zero.
func (m *Moments) degenerate() bool {
	return m.Markers == 0 || m.N00 == 0 || m.N11 == 0 || m.N22 == 0
}
