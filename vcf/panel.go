// Copyright 2020 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package vcf

import (
	"context"
	"strconv"

	farm "github.com/dgryski/go-farm"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/kinship/interval"
)

// panelSite is one sites-panel record.
type panelSite struct {
	chrom   string
	pos     int
	nAllele int
	// af is the raw allele-frequency INFO value, parsed only if the site is
	// used.
	af string
	// seen is set once a study record has been matched to this site.
	seen bool
}

// panel indexes a sites-panel VCF by (CHROM, POS, REF, ALT).  Study records
// match a panel record only when all four agree.
type panel struct {
	sites []panelSite
	// index maps siteKey fingerprints to positions in sites.  On a (very
	// unlikely) fingerprint collision the later site is unreachable; chrom and
	// pos are rechecked on lookup so a collision can't produce a false match
	// across positions.
	index map[uint64]int
	buf   []byte
	// chroms interns chromosome names.
	chroms map[string]string
}

// siteKey fingerprints the identifying fields of a record.
func siteKey(buf []byte, chrom string, pos int, ref string, alt []string) ([]byte, uint64) {
	buf = append(buf[:0], chrom...)
	buf = append(buf, 0)
	buf = strconv.AppendInt(buf, int64(pos), 10)
	buf = append(buf, 0)
	buf = append(buf, ref...)
	for i, a := range alt {
		if i == 0 {
			buf = append(buf, 0)
		} else {
			buf = append(buf, ',')
		}
		buf = append(buf, a...)
	}
	return buf, farm.Fingerprint64(buf)
}

// loadPanel reads the panel at path, keeping records inside regions.  afKey
// is the INFO key holding allele frequencies; its value is kept unparsed.
func loadPanel(ctx context.Context, path, afKey string, regions *interval.Union, parallelism int) (p *panel, err error) {
	r, closeFn, err := Open(ctx, path, parallelism)
	if err != nil {
		return nil, err
	}
	defer func() {
		if e := closeFn(); e != nil && err == nil {
			err = e
		}
	}()
	p = &panel{
		index:  make(map[uint64]int),
		chroms: make(map[string]string),
	}
	var key uint64
	for r.Scan() {
		rec := r.Record()
		if !regions.Contains(rec.Chrom, rec.Pos) {
			continue
		}
		chrom, ok := p.chroms[rec.Chrom]
		if !ok {
			chrom = string([]byte(rec.Chrom))
			p.chroms[chrom] = chrom
		}
		// Record strings share one buffer per line; copy what is kept.
		af, _ := InfoValue(rec.Info, afKey)
		if af != "" {
			af = string([]byte(af))
		}
		p.buf, key = siteKey(p.buf, rec.Chrom, rec.Pos, rec.Ref, rec.Alt)
		if _, ok := p.index[key]; !ok {
			p.index[key] = len(p.sites)
		}
		p.sites = append(p.sites, panelSite{
			chrom:   chrom,
			pos:     rec.Pos,
			nAllele: rec.NAllele(),
			af:      af,
		})
	}
	if err = r.Err(); err != nil {
		return nil, errors.E(err, path)
	}
	log.Printf("vcf: loaded %d sites-panel records from %s", len(p.sites), path)
	return p, nil
}

// lookup returns the panel site matching rec, or nil.
func (p *panel) lookup(rec *Record) *panelSite {
	var key uint64
	p.buf, key = siteKey(p.buf, rec.Chrom, rec.Pos, rec.Ref, rec.Alt)
	idx, ok := p.index[key]
	if !ok {
		return nil
	}
	ps := &p.sites[idx]
	if ps.pos != rec.Pos || ps.chrom != rec.Chrom {
		return nil
	}
	return ps
}
