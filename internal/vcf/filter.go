package vcf

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidFilter is returned when a filter expression is not of the form KEY=VALUE.
var ErrInvalidFilter = errors.New("invalid filter")

// Filter selects the alleles of a line whose INFO annotation equals a value.
//
// For INFO "AF=0.1,0.9" and the filter AF=0.9, allele 2 is valid: the n-th
// comma-separated value annotates allele n.
type Filter struct {
	Key   string
	Value string
}

// ParseFilter parses a KEY=VALUE expression. An empty expression yields a nil
// filter, meaning every allele is counted as called.
func ParseFilter(expr string) (*Filter, error) {
	if expr == "" {
		return nil, nil
	}
	key, value, ok := strings.Cut(expr, "=")
	if !ok || key == "" {
		return nil, fmt.Errorf("%w %q: expected KEY=VALUE", ErrInvalidFilter, expr)
	}
	return &Filter{Key: key, Value: value}, nil
}

// String returns the filter in KEY=VALUE form.
func (f *Filter) String() string {
	if f == nil {
		return ""
	}
	return f.Key + "=" + f.Value
}

// ValidAlleles returns the 1-based allele indices, as written in genotype
// calls, whose value in the INFO column matches the filter. The first subfield
// named Key is used; when none exists the set is empty.
func (f *Filter) ValidAlleles(info string) (map[string]bool, error) {
	valid := make(map[string]bool)
	for _, kv := range strings.Split(info, ";") {
		key, value, ok := strings.Cut(kv, "=")
		if key != f.Key {
			continue
		}
		if !ok {
			return nil, fmt.Errorf("INFO field %s has no value", key)
		}
		for i, v := range strings.Split(value, ",") {
			if v == f.Value {
				valid[strconv.Itoa(i+1)] = true
			}
		}
		return valid, nil
	}
	return valid, nil
}
