package hist

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/inodb/vcf2hist/internal/vcf"
)

// Accumulator folds variant records into a histogram in file order.
type Accumulator struct {
	hist           *Histogram
	haplotypeTotal int
	lines          int
	skipped        int
}

// NewAccumulator creates an accumulator with an empty histogram.
func NewAccumulator() *Accumulator {
	return &Accumulator{hist: New()}
}

// Add folds one record into the histogram. Every allele index on the line
// contributes one increment at its occurrence count; index 0 is counted one
// higher to account for the reference sequence itself.
//
// The first record fixes the haplotype total used to pad rendered output.
func (a *Accumulator) Add(rec *vcf.Record) {
	if a.lines == 0 {
		a.haplotypeTotal = rec.Haplotypes + 1
	}
	a.lines++
	a.skipped += rec.Skipped

	for _, idx := range rec.Alleles.Indices() {
		value := rec.Alleles[idx]
		if idx == 0 {
			value++
		}
		a.hist.Inc(value)
	}
}

// Result is the outcome of a complete pass over a VCF file.
type Result struct {
	Histogram      *Histogram
	HaplotypeTotal int
	Lines          int
	Skipped        int
}

// Result returns the finished histogram, or ErrNoData if nothing was counted.
func (a *Accumulator) Result() (*Result, error) {
	if a.hist.Len() == 0 {
		return nil, fmt.Errorf("%d data lines parsed: %w", a.lines, ErrNoData)
	}
	return &Result{
		Histogram:      a.hist,
		HaplotypeTotal: a.haplotypeTotal,
		Lines:          a.lines,
		Skipped:        a.skipped,
	}, nil
}

// Builder drives a single pass over a record source.
type Builder struct {
	logger *zap.Logger
}

// NewBuilder creates a new builder.
func NewBuilder() *Builder {
	return &Builder{logger: zap.NewNop()}
}

// SetLogger sets the logger for debug messages.
func (b *Builder) SetLogger(l *zap.Logger) {
	b.logger = l
}

// Build consumes every record of src and returns the resulting histogram.
// Any read or parse error aborts the pass.
func (b *Builder) Build(src vcf.RecordSource) (*Result, error) {
	acc := NewAccumulator()
	for {
		rec, err := src.Next()
		if err != nil {
			b.logger.Debug("aborting pass",
				zap.Int("line", src.LineNumber()),
				zap.Int("records", acc.lines))
			return nil, fmt.Errorf("read variant: %w", err)
		}
		if rec == nil {
			break
		}
		if rec.Skipped > 0 {
			b.logger.Debug("skipped non-numeric allele calls",
				zap.String("chrom", rec.Chrom),
				zap.String("pos", rec.Pos),
				zap.String("id", rec.ID),
				zap.Int("skipped", rec.Skipped))
		}
		acc.Add(rec)
	}
	b.logger.Debug("reached end of input",
		zap.Int("lines", src.LineNumber()),
		zap.Int("records", acc.lines))
	return acc.Result()
}
