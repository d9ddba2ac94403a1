// Package vcf provides VCF file parsing functionality.
package vcf

import "sort"

// Record holds the genotype tally of a single VCF data line.
type Record struct {
	Chrom      string       // Chromosome name (e.g., "1", "chr1")
	Pos        string       // Position as written in the file
	ID         string       // Variant identifier (e.g., rs ID)
	Alleles    AlleleCounts // Allele index -> occurrences across all haplotypes
	Haplotypes int          // Number of haplotype calls seen on the line
	Skipped    int          // Haplotype calls that were not a numeric allele index
}

// AlleleCounts maps an allele index to the number of haplotypes carrying it.
type AlleleCounts map[int]int

// Indices returns the allele indices in ascending order.
func (c AlleleCounts) Indices() []int {
	idx := make([]int, 0, len(c))
	for i := range c {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	return idx
}
