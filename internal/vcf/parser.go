// Package vcf provides VCF file parsing functionality.
package vcf

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// Column indices of a VCF data line.
const (
	colChrom   = 0
	colPos     = 1
	colID      = 2
	colInfo    = 7
	colSamples = 9

	minColumns = 8
)

// Parser reads variant records from a VCF file.
type Parser struct {
	reader     *bufio.Reader
	file       *os.File
	gzipReader *gzip.Reader
	lineNumber int
	filter     *Filter
}

// NewParser creates a new VCF parser for the given file.
// Supports both plain VCF and gzipped VCF (.vcf.gz) files.
func NewParser(path string) (*Parser, error) {
	if path == "-" {
		return NewParserFromReader(os.Stdin)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vcf file: %w", err)
	}

	p, err := NewParserFromReader(file)
	if err != nil {
		file.Close()
		return nil, err
	}
	p.file = file
	return p, nil
}

// NewParserFromReader creates a parser from an io.Reader (e.g., stdin).
// Gzip input is detected from the magic bytes.
func NewParserFromReader(r io.Reader) (*Parser, error) {
	br := bufio.NewReader(r)
	p := &Parser{reader: br}

	// Check for gzip magic number (0x1f, 0x8b)
	magic, err := br.Peek(2)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("read vcf header: %w", err)
	}
	if len(magic) == 2 && magic[0] == 0x1f && magic[1] == 0x8b {
		p.gzipReader, err = gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("create gzip reader: %w", err)
		}
		p.reader = bufio.NewReader(p.gzipReader)
	}

	return p, nil
}

// SetFilter restricts counting to the alleles selected by f. A nil filter
// counts every allele as called.
func (p *Parser) SetFilter(f *Filter) {
	p.filter = f
}

// Next reads the next data line and returns its record.
// Comment lines are skipped; a blank line is malformed like any other line
// with too few columns. Returns nil, nil at end of input.
func (p *Parser) Next() (*Record, error) {
	for {
		line, err := p.reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("read variant line: %w", err)
		}
		if err == io.EOF && line == "" {
			return nil, nil
		}
		p.lineNumber++

		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "#") {
			continue
		}

		rec, perr := ParseLine(line, p.filter)
		if perr != nil {
			var pe *ParseError
			if errors.As(perr, &pe) {
				pe.Line = p.lineNumber
			}
			return nil, perr
		}
		return rec, nil
	}
}

// ParseLine tallies the haplotype calls of one tab-delimited VCF data line.
//
// When f is non-nil, calls naming an allele outside f.ValidAlleles are
// counted as reference. Reference calls are not included in the result and
// tokens that are not a numeric allele index (such as the missing call ".")
// are only reflected in Record.Skipped.
func ParseLine(line string, f *Filter) (*Record, error) {
	fields := strings.Split(line, "\t")
	if len(fields) < minColumns {
		return nil, &ParseError{
			Message: fmt.Sprintf("expected at least %d columns, found %d", minColumns, len(fields)),
		}
	}

	rec := &Record{
		Chrom:   fields[colChrom],
		Pos:     fields[colPos],
		ID:      fields[colID],
		Alleles: make(AlleleCounts),
	}

	var valid map[string]bool
	if f != nil {
		var err error
		valid, err = f.ValidAlleles(fields[colInfo])
		if err != nil {
			return nil, &ParseError{Message: err.Error()}
		}
	}

	if len(fields) <= colSamples {
		return rec, nil
	}

	for _, sample := range fields[colSamples:] {
		haplotypes := strings.Split(sample, "|")
		rec.Haplotypes += len(haplotypes)
		for _, h := range haplotypes {
			if f != nil && !valid[h] {
				h = "0"
			}
			idx, ok := alleleIndex(h)
			if !ok {
				rec.Skipped++
				continue
			}
			if idx == 0 {
				continue
			}
			rec.Alleles[idx]++
		}
	}

	return rec, nil
}

// alleleIndex converts a purely numeric allele token to its index.
func alleleIndex(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

// LineNumber returns the current line number being processed.
func (p *Parser) LineNumber() int {
	return p.lineNumber
}

// Close closes the parser and underlying file.
func (p *Parser) Close() error {
	if p.gzipReader != nil {
		p.gzipReader.Close()
	}
	if p.file != nil {
		return p.file.Close()
	}
	return nil
}

// ParseError represents an error during VCF parsing with line context.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	if e.Line == 0 {
		return fmt.Sprintf("vcf parse error: %s", e.Message)
	}
	return fmt.Sprintf("vcf parse error at line %d: %s", e.Line, e.Message)
}
