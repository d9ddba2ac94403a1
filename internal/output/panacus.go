// Package output provides histogram output formatters.
package output

import (
	"bufio"
	"fmt"
	"io"

	"github.com/inodb/vcf2hist/internal/hist"
)

// PanacusWriter writes allele-count histograms in the tab-separated
// format read by panacus.
type PanacusWriter struct {
	w   *bufio.Writer
	pad bool
}

// NewPanacusWriter creates a new panacus histogram writer.
// Padding up to the haplotype total is enabled by default.
func NewPanacusWriter(w io.Writer) *PanacusWriter {
	return &PanacusWriter{
		w:   bufio.NewWriter(w),
		pad: true,
	}
}

// SetPad configures whether zero rows are appended up to the haplotype total.
func (pw *PanacusWriter) SetPad(pad bool) {
	pw.pad = pad
}

// WriteHeader writes the invocation comment and the two fixed header rows.
func (pw *PanacusWriter) WriteHeader(invocation string) error {
	_, err := fmt.Fprintf(pw.w, "# %s\npanacus\thist\ncount\tallele\n", invocation)
	return err
}

// WriteHistogram writes one row per count from 0 to the largest observed
// count. With padding enabled, zero rows continue up to haplotypeTotal.
func (pw *PanacusWriter) WriteHistogram(h *hist.Histogram, haplotypeTotal int) error {
	m, err := h.Max()
	if err != nil {
		return err
	}

	for _, r := range h.Rows(m) {
		if _, err := fmt.Fprintf(pw.w, "%d\t%d\n", r.Count, r.Frequency); err != nil {
			return err
		}
	}

	if !pw.pad {
		return nil
	}
	for i := m + 1; i <= haplotypeTotal; i++ {
		if _, err := fmt.Fprintf(pw.w, "%d\t0\n", i); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes any buffered data to the underlying writer.
func (pw *PanacusWriter) Flush() error {
	return pw.w.Flush()
}
