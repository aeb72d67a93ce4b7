// Copyright 2020 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package vcf

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/fileio"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/tsv"
	"github.com/grailbio/hts/bgzf"
	"github.com/klauspost/compress/gzip"
)

// Column indices of the fixed VCF fields.
const (
	colChrom = iota
	colPos
	colID
	colRef
	colAlt
	colQual
	colFilter
	colInfo
	colFormat
	nFixedCol
)

// Header holds the parts of a VCF header this package uses.
type Header struct {
	// Meta holds the "##" lines, without the leading "##".
	Meta []string
	// Samples holds the sample names from the "#CHROM" line.
	Samples []string
}

// Record is one VCF data line.  Sample columns are kept unparsed.
type Record struct {
	Chrom string
	// Pos is 0-based.
	Pos int
	ID  string
	Ref string
	Alt []string
	// Info is the raw INFO column.
	Info string
	// Format is the raw FORMAT column ("" when the file has no samples).
	Format string
	// SampleFields holds the raw sample columns, in header order.
	SampleFields []string
}

// NAllele returns the number of alleles, reference included.  A missing ALT
// ('.') counts as no alternate allele.
func (r *Record) NAllele() int {
	if len(r.Alt) == 1 && r.Alt[0] == "." {
		return 1
	}
	return 1 + len(r.Alt)
}

// Reader parses a VCF stream.
type Reader struct {
	rows    *tsv.Reader
	header  Header
	rec     Record
	nRecord int
	err     error
}

// NewReader reads the header from r and returns a Reader positioned before
// the first record.
func NewReader(r io.Reader) (*Reader, error) {
	in := bufio.NewReaderSize(r, 64<<10)
	vr := &Reader{}
	for lineNum := 1; ; lineNum++ {
		line, err := in.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			if err == io.EOF {
				return nil, errors.E(errors.Invalid, "vcf: missing #CHROM header line")
			}
			return nil, err
		}
		line = strings.TrimRight(line, "\r\n")
		if strings.HasPrefix(line, "##") {
			vr.header.Meta = append(vr.header.Meta, line[2:])
			continue
		}
		if !strings.HasPrefix(line, "#CHROM") {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("vcf: line %d: expected #CHROM header line", lineNum))
		}
		cols := strings.Split(line, "\t")
		if len(cols) < nFixedCol-1 {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("vcf: line %d: header has %d columns", lineNum, len(cols)))
		}
		if len(cols) > nFixedCol {
			vr.header.Samples = cols[nFixedCol:]
		}
		break
	}
	vr.rows = tsv.NewReader(in)
	// VCF has no quoting, and the column count is checked per record.
	vr.rows.LazyQuotes = true
	vr.rows.FieldsPerRecord = -1
	return vr, nil
}

// Header returns the parsed header.
func (r *Reader) Header() *Header {
	return &r.header
}

// Scan reads the next record.  It returns false at EOF or on error.  Blank
// lines are skipped.
func (r *Reader) Scan() bool {
	if r.err != nil {
		return false
	}
	cols, err := r.rows.Reader.Read()
	if err != nil {
		if err != io.EOF {
			r.err = errors.E(err, "vcf")
		}
		return false
	}
	r.nRecord++
	if r.err = r.parse(cols); r.err != nil {
		return false
	}
	return true
}

// Record returns the current record.  It is overwritten by the next Scan.
func (r *Reader) Record() *Record {
	return &r.rec
}

// Err returns the first error encountered.
func (r *Reader) Err() error {
	return r.err
}

func (r *Reader) parse(cols []string) error {
	nSample := len(r.header.Samples)
	if len(cols) < colInfo+1 || (nSample > 0 && len(cols) != nFixedCol+nSample) {
		return errors.E(errors.Invalid, fmt.Sprintf("vcf: record %d: found %d columns, expected %d", r.nRecord, len(cols), nFixedCol+nSample))
	}
	pos1, err := strconv.Atoi(cols[colPos])
	if err != nil || pos1 < 1 {
		return errors.E(errors.Invalid, fmt.Sprintf("vcf: record %d (%s): invalid POS %q", r.nRecord, cols[colChrom], cols[colPos]))
	}
	rec := &r.rec
	rec.Chrom = cols[colChrom]
	rec.Pos = pos1 - 1
	rec.ID = cols[colID]
	rec.Ref = cols[colRef]
	rec.Alt = strings.Split(cols[colAlt], ",")
	rec.Info = cols[colInfo]
	rec.Format = ""
	rec.SampleFields = nil
	if len(cols) > colFormat {
		rec.Format = cols[colFormat]
		rec.SampleFields = cols[nFixedCol:]
	}
	return nil
}

// isBGZF returns true when magic, the first bytes of a file, is a gzip member
// header carrying the BGZF "BC" extra subfield.
func isBGZF(magic []byte) bool {
	return len(magic) >= 14 && magic[0] == 0x1f && magic[1] == 0x8b && magic[3]&4 != 0 && magic[12] == 'B' && magic[13] == 'C'
}

// Open opens a VCF at path, which may be plain text, gzip or bgzip
// (recognized by a .gz/.bgz extension).  parallelism is the number of bgzf
// decompression goroutines.  The returned close function must be called when
// done.
func Open(ctx context.Context, path string, parallelism int) (vr *Reader, closeFn func() error, err error) {
	var in file.File
	if in, err = file.Open(ctx, path); err != nil {
		return nil, nil, errors.E(err, "vcf: opening", path)
	}
	var zr io.ReadCloser
	closeAll := func() error {
		var err error
		if zr != nil {
			err = zr.Close()
		}
		if e := in.Close(ctx); e != nil && err == nil {
			err = e
		}
		return err
	}
	defer func() {
		if err != nil {
			_ = closeAll()
		}
	}()
	rs := in.Reader(ctx)
	r := io.Reader(rs)
	if fileio.DetermineType(path) == fileio.Gzip || strings.HasSuffix(path, ".bgz") {
		var magic [16]byte
		n, e := io.ReadFull(rs, magic[:])
		if e != nil && e != io.ErrUnexpectedEOF {
			return nil, nil, errors.E(e, path)
		}
		if _, err = rs.Seek(0, io.SeekStart); err != nil {
			return nil, nil, errors.E(err, path)
		}
		if isBGZF(magic[:n]) {
			var bgzfReader *bgzf.Reader
			if bgzfReader, err = bgzf.NewReader(rs, parallelism); err != nil {
				return nil, nil, errors.E(err, path)
			}
			zr = bgzfReader
		} else {
			log.Debug.Printf("vcf: %s is not bgzipped, reading as plain gzip", path)
			var gz *gzip.Reader
			if gz, err = gzip.NewReader(rs); err != nil {
				return nil, nil, errors.E(err, path)
			}
			zr = gz
		}
		r = zr
	}
	if vr, err = NewReader(r); err != nil {
		return nil, nil, errors.E(err, path)
	}
	return vr, closeAll, nil
}
