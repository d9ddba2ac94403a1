// Package hist builds allele-count histograms from VCF records.
package hist

import (
	"errors"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// ErrNoData is returned when no countable allele occurrence was found.
var ErrNoData = errors.New("no countable allele occurrences in input")

// Histogram maps an allele occurrence count to the number of variants
// exhibiting it. Counts only ever increase.
type Histogram struct {
	counts map[int]int
}

// Row is one line of a rendered histogram.
type Row struct {
	Count     int
	Frequency int
}

// New creates an empty histogram.
func New() *Histogram {
	return &Histogram{counts: make(map[int]int)}
}

// Inc records one more variant with the given occurrence count.
func (h *Histogram) Inc(count int) {
	h.counts[count]++
}

// Add records n more variants with the given occurrence count.
func (h *Histogram) Add(count, n int) {
	if n <= 0 {
		return
	}
	h.counts[count] += n
}

// Get returns the number of variants with the given occurrence count.
func (h *Histogram) Get(count int) int {
	return h.counts[count]
}

// Len returns the number of distinct occurrence counts observed.
func (h *Histogram) Len() int {
	return len(h.counts)
}

// Keys returns the observed occurrence counts in ascending order.
func (h *Histogram) Keys() []int {
	keys := make([]int, 0, len(h.counts))
	for k := range h.counts {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

// Max returns the largest observed occurrence count.
func (h *Histogram) Max() (int, error) {
	if len(h.counts) == 0 {
		return 0, ErrNoData
	}
	keys := h.Keys()
	return keys[len(keys)-1], nil
}

// Rows returns one row per count from 0 to upTo inclusive, with zero
// frequency for counts never observed.
func (h *Histogram) Rows(upTo int) []Row {
	if upTo < 0 {
		return nil
	}
	rows := make([]Row, 0, upTo+1)
	for i := 0; i <= upTo; i++ {
		rows = append(rows, Row{Count: i, Frequency: h.counts[i]})
	}
	return rows
}

// Summary describes the distribution of occurrence counts across variants.
type Summary struct {
	Entries int     // Total increments recorded
	Mean    float64 // Mean occurrence count
	StdDev  float64 // Sample standard deviation of the occurrence count
}

// Summary computes the frequency-weighted mean and standard deviation.
func (h *Histogram) Summary() Summary {
	keys := h.Keys()
	if len(keys) == 0 {
		return Summary{}
	}

	xs := make([]float64, len(keys))
	ws := make([]float64, len(keys))
	var s Summary
	for i, k := range keys {
		xs[i] = float64(k)
		ws[i] = float64(h.counts[k])
		s.Entries += h.counts[k]
	}

	if s.Entries < 2 {
		s.Mean = stat.Mean(xs, ws)
		return s
	}
	s.Mean, s.StdDev = stat.MeanStdDev(xs, ws)
	return s
}
