package hist

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/inodb/vcf2hist/internal/vcf"
)

// sliceSource serves records from memory.
type sliceSource struct {
	records []*vcf.Record
	err     error
	pos     int
}

func (s *sliceSource) Next() (*vcf.Record, error) {
	if s.pos >= len(s.records) {
		if s.err != nil {
			return nil, s.err
		}
		return nil, nil
	}
	rec := s.records[s.pos]
	s.pos++
	return rec, nil
}

func (s *sliceSource) Close() error    { return nil }
func (s *sliceSource) LineNumber() int { return s.pos }

func mustParse(t *testing.T, line string, f *vcf.Filter) *vcf.Record {
	t.Helper()
	rec, err := vcf.ParseLine(line, f)
	require.NoError(t, err)
	return rec
}

func TestAccumulator_SingleLine(t *testing.T) {
	acc := NewAccumulator()
	acc.Add(mustParse(t, "chr1\t100\trs1\t.\t.\t.\t.\tAF=0.5\t.\t0|1\t1|1", nil))

	res, err := acc.Result()
	require.NoError(t, err)
	assert.Equal(t, []int{3}, res.Histogram.Keys())
	assert.Equal(t, 1, res.Histogram.Get(3))
	assert.Equal(t, 5, res.HaplotypeTotal)
	assert.Equal(t, 1, res.Lines)
}

func TestAccumulator_MultipleIncrementsPerLine(t *testing.T) {
	acc := NewAccumulator()
	acc.Add(&vcf.Record{Alleles: vcf.AlleleCounts{1: 2, 2: 1}, Haplotypes: 6})

	h := acc.hist
	assert.Equal(t, 1, h.Get(2))
	assert.Equal(t, 1, h.Get(1))
}

func TestAccumulator_ReferenceIndexCountedOneHigher(t *testing.T) {
	acc := NewAccumulator()
	acc.Add(&vcf.Record{Alleles: vcf.AlleleCounts{0: 3, 1: 3}, Haplotypes: 6})

	h := acc.hist
	assert.Equal(t, 1, h.Get(4))
	assert.Equal(t, 1, h.Get(3))
}

func TestAccumulator_HomozygousReferenceContributesNothing(t *testing.T) {
	acc := NewAccumulator()
	acc.Add(mustParse(t, "chr1\t100\trs1\tA\tG\t.\tPASS\tAF=0.5\tGT\t0|0\t0|0", nil))

	assert.Equal(t, 0, acc.hist.Len())
	assert.Equal(t, 1, acc.lines)

	_, err := acc.Result()
	assert.ErrorIs(t, err, ErrNoData)
}

func TestAccumulator_HaplotypeTotalFromFirstLine(t *testing.T) {
	acc := NewAccumulator()
	acc.Add(&vcf.Record{Alleles: vcf.AlleleCounts{1: 1}, Haplotypes: 4})
	acc.Add(&vcf.Record{Alleles: vcf.AlleleCounts{1: 1}, Haplotypes: 10})

	assert.Equal(t, 5, acc.haplotypeTotal)
	assert.Equal(t, 2, acc.lines)
}

func TestAccumulator_FrequencySumMatchesContributingLines(t *testing.T) {
	lines := []string{
		"1\t1\t.\tA\tC\t.\t.\t.\tGT\t0|1\t0|0",
		"1\t2\t.\tA\tC\t.\t.\t.\tGT\t1|1\t0|1",
		"1\t3\t.\tA\tC\t.\t.\t.\tGT\t0|0\t0|0",
		"1\t4\t.\tA\tC\t.\t.\t.\tGT\t1|0\t1|0",
	}

	acc := NewAccumulator()
	contributing := 0
	for _, l := range lines {
		rec := mustParse(t, l, nil)
		if len(rec.Alleles) > 0 {
			contributing++
		}
		acc.Add(rec)
	}

	res, err := acc.Result()
	require.NoError(t, err)
	m, err := res.Histogram.Max()
	require.NoError(t, err)

	sum := 0
	for _, r := range res.Histogram.Rows(m)[1:] {
		sum += r.Frequency
	}
	assert.Equal(t, contributing, sum)
}

func TestAccumulator_FilterOfAllPresentAllelesMatchesUnfiltered(t *testing.T) {
	lines := []string{
		"1\t1\t.\tA\tC,G\t.\t.\tTAG=x,x\tGT\t0|1\t2|2",
		"1\t2\t.\tA\tC\t.\t.\tTAG=x\tGT\t1|1\t0|1",
	}
	f := &vcf.Filter{Key: "TAG", Value: "x"}

	plain, filtered := NewAccumulator(), NewAccumulator()
	for _, l := range lines {
		plain.Add(mustParse(t, l, nil))
		filtered.Add(mustParse(t, l, f))
	}
	assert.Equal(t, plain.hist, filtered.hist)
}

func TestBuilder_Build(t *testing.T) {
	tests := []struct {
		name   string
		filter *vcf.Filter
		want   map[int]int
	}{
		{"unfiltered", nil, map[int]int{1: 2, 2: 2, 4: 1}},
		{"filtered", &vcf.Filter{Key: "AF", Value: "0.9"}, map[int]int{1: 2, 2: 1, 4: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parser, err := vcf.NewParser(findTestFile(t, "multi.vcf"))
			require.NoError(t, err)
			defer parser.Close()
			parser.SetFilter(tt.filter)

			res, err := NewBuilder().Build(parser)
			require.NoError(t, err)

			got := make(map[int]int)
			for _, k := range res.Histogram.Keys() {
				got[k] = res.Histogram.Get(k)
			}
			assert.Equal(t, tt.want, got)
			assert.Equal(t, 7, res.HaplotypeTotal)
			assert.Equal(t, 4, res.Lines)
		})
	}
}

func TestBuilder_BuildEmpty(t *testing.T) {
	parser, err := vcf.NewParser(findTestFile(t, "header_only.vcf"))
	require.NoError(t, err)
	defer parser.Close()

	_, err = NewBuilder().Build(parser)
	assert.ErrorIs(t, err, ErrNoData)
}

func TestBuilder_BuildPropagatesErrors(t *testing.T) {
	boom := errors.New("boom")
	src := &sliceSource{
		records: []*vcf.Record{{Alleles: vcf.AlleleCounts{1: 1}, Haplotypes: 2}},
		err:     boom,
	}

	_, err := NewBuilder().Build(src)
	assert.ErrorIs(t, err, boom)
}

func TestBuilder_BuildMalformed(t *testing.T) {
	parser, err := vcf.NewParser(findTestFile(t, "malformed.vcf"))
	require.NoError(t, err)
	defer parser.Close()

	_, err = NewBuilder().Build(parser)
	var pe *vcf.ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 4, pe.Line)
}

func TestBuilder_LogsLineOfFailure(t *testing.T) {
	parser, err := vcf.NewParser(findTestFile(t, "malformed.vcf"))
	require.NoError(t, err)
	defer parser.Close()

	core, logs := observer.New(zap.DebugLevel)
	b := NewBuilder()
	b.SetLogger(zap.New(core))

	_, err = b.Build(parser)
	require.Error(t, err)

	entries := logs.FilterMessage("aborting pass").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.EqualValues(t, 4, fields["line"])
	assert.EqualValues(t, 1, fields["records"])
}

// findTestFile locates a test file in the testdata directory.
func findTestFile(t *testing.T, name string) string {
	t.Helper()

	paths := []string{
		filepath.Join("testdata", name),
		filepath.Join("..", "..", "testdata", name),
	}

	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	t.Fatalf("Test file not found: %s", name)
	return ""
}
