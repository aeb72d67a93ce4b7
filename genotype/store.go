// Copyright 2020 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package genotype

import (
	"math/bits"

	"github.com/grailbio/base/bitset"
	"github.com/grailbio/base/log"
)

// BlockBits is the number of sites per block.
const BlockBits = 256

// BlockWords is the number of machine words in one class bit-row of a block.
const BlockWords = BlockBits / bitset.BitsPerWord

// blockStride is the number of words in one block (all four class rows).
const blockStride = NClass * BlockWords

var zeroBlock [blockStride]uintptr

// Store is a packed, append-only table of genotype classes.
//
// rows[s] holds all blocks of sample s back to back.  Within a block, the
// bit-row for class c is rows[s][k*blockStride+c*BlockWords:][:BlockWords],
// and bit (nSite % BlockBits) of that row is the cursor position.
type Store struct {
	rows   [][]uintptr
	nSite  int
	frozen bool
}

// NewStore returns an empty Store for nSample samples.
func NewStore(nSample int) *Store {
	return &Store{rows: make([][]uintptr, nSample)}
}

// NumSamples returns the number of samples.
func (s *Store) NumSamples() int {
	return len(s.rows)
}

// NumSites returns the number of sites appended so far.
func (s *Store) NumSites() int {
	return s.nSite
}

// NumBlocks returns the number of blocks each sample currently has.
func (s *Store) NumBlocks() int {
	return (s.nSite + BlockBits - 1) / BlockBits
}

// Cursor returns the bit position within the last block that the next
// appended site will occupy.
func (s *Store) Cursor() int {
	return s.nSite % BlockBits
}

// Append adds one site.  classes[i] is the class of sample i; len(classes)
// must equal NumSamples().  When the cursor is at the start of a block, a
// fresh all-zero block is first appended to every sample.
func (s *Store) Append(classes []Class) {
	if s.frozen {
		log.Panicf("genotype.Store: Append called after Freeze")
	}
	if len(classes) != len(s.rows) {
		log.Panicf("genotype.Store: got %d classes, expected %d", len(classes), len(s.rows))
	}
	cursor := s.nSite % BlockBits
	if cursor == 0 {
		for i := range s.rows {
			s.rows[i] = append(s.rows[i], zeroBlock[:]...)
		}
	}
	base := (s.nSite / BlockBits) * blockStride
	for i, c := range classes {
		if c >= NClass {
			log.Panicf("genotype.Store: invalid class %d for sample %d", c, i)
		}
		start := base + int(c)*BlockWords
		bitset.Set(s.rows[i][start:start+BlockWords], cursor)
	}
	s.nSite++
}

// Freeze marks the store read-only.  Subsequent Append calls panic.
func (s *Store) Freeze() {
	s.frozen = true
}

// Frozen returns true once Freeze has been called.
func (s *Store) Frozen() bool {
	return s.frozen
}

// Row returns the bit-row for the given sample, block and class.  The caller
// must not modify it.
func (s *Store) Row(sample, block int, c Class) []uintptr {
	start := block*blockStride + int(c)*BlockWords
	return s.rows[sample][start : start+BlockWords]
}

// ClassAt returns the class stored for sample at site.
func (s *Store) ClassAt(sample, site int) Class {
	if site < 0 || site >= s.nSite {
		log.Panicf("genotype.Store: site %d out of range [0, %d)", site, s.nSite)
	}
	block, bit := site/BlockBits, site%BlockBits
	for c := Class(0); c < NClass; c++ {
		if bitset.Test(s.Row(sample, block, c), bit) {
			return c
		}
	}
	log.Panicf("genotype.Store: no class bit set for sample %d, site %d", sample, site)
	return Missing
}

// PairCounts holds the class-agreement counts of two samples over all sites.
type PairCounts struct {
	// Opposite counts sites where one sample is HomRef and the other HomAlt.
	Opposite int
	// Same counts sites where both samples have the same non-missing class.
	Same int
	// Missing counts sites where either sample is Missing.
	Missing int
}

// Compare reduces the bit-rows of samples i and j into PairCounts.  Unused
// bits in the last block are zero in every row, so they never contribute.
func (s *Store) Compare(i, j int) (pc PairCounts) {
	ri, rj := s.rows[i], s.rows[j]
	for base := 0; base < len(ri); base += blockStride {
		bi := ri[base : base+blockStride]
		bj := rj[base : base+blockStride]
		for w := 0; w < BlockWords; w++ {
			i0, i1, i2, i3 := bi[w], bi[BlockWords+w], bi[2*BlockWords+w], bi[3*BlockWords+w]
			j0, j1, j2, j3 := bj[w], bj[BlockWords+w], bj[2*BlockWords+w], bj[3*BlockWords+w]
			pc.Opposite += bits.OnesCount(uint(i0&j2)) + bits.OnesCount(uint(i2&j0))
			pc.Same += bits.OnesCount(uint(i0&j0)) + bits.OnesCount(uint(i1&j1)) + bits.OnesCount(uint(i2&j2))
			pc.Missing += bits.OnesCount(uint(i3 | j3))
		}
	}
	return
}

// Popcount returns the number of set bits in sample's bit-rows for class c.
func (s *Store) Popcount(sample int, c Class) (n int) {
	row := s.rows[sample]
	for base := int(c) * BlockWords; base < len(row); base += blockStride {
		for _, w := range row[base : base+BlockWords] {
			n += bits.OnesCount(uint(w))
		}
	}
	return
}
