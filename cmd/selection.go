package cmd

import (
	"fmt"
	"strconv"
	"strings"
)

// parseSelection expands a zero-based list such as "0,2-4" into indexes below
// n. Order and repetitions are kept.
func parseSelection(s string, n int) ([]int, error) {
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, fmt.Errorf("empty item in selection %q", s)
		}
		lo, hi, isRange := strings.Cut(part, "-")
		first, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil {
			return nil, fmt.Errorf("selection %q: %w", part, err)
		}
		last := first
		if isRange {
			if last, err = strconv.Atoi(strings.TrimSpace(hi)); err != nil {
				return nil, fmt.Errorf("selection %q: %w", part, err)
			}
			if last < first {
				return nil, fmt.Errorf("selection %q: decreasing range", part)
			}
		}
		if first < 0 || last >= n {
			return nil, fmt.Errorf("selection %q out of range [0, %d)", part, n)
		}
		for i := first; i <= last; i++ {
			out = append(out, i)
		}
	}
	return out, nil
}
