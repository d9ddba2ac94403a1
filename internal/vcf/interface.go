// Package vcf provides VCF file parsing functionality.
package vcf

// RecordSource is the interface for readers that yield parsed variant records.
type RecordSource interface {
	// Next reads the next variant record.
	// Returns nil, nil when there are no more records.
	Next() (*Record, error)

	// Close closes the source and releases resources.
	Close() error

	// LineNumber returns the current line number being processed.
	LineNumber() int
}
