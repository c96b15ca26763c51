package config

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/san-kum/ringoptics/internal/accel"
)

var ErrBadRefpts = errors.New("config: refpts must be \"all\", \"end\" or a comma separated list")

// ParseRefpts turns a refpts selector into indices for a lattice of n
// elements. Lists are sorted; duplicates are kept.
func ParseRefpts(sel string, n int) ([]int, error) {
	switch strings.TrimSpace(sel) {
	case "", "end":
		return []int{n}, nil
	case "all":
		out := make([]int, n+1)
		for i := range out {
			out[i] = i
		}
		return out, nil
	}

	parts := strings.Split(sel, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if p == "end" {
			out = append(out, n)
			continue
		}
		v, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", p, ErrBadRefpts)
		}
		if v < 0 || v > n {
			return nil, fmt.Errorf("refpt %d out of range [0, %d]: %w", v, n, accel.ErrInvalidRefpts)
		}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil, ErrBadRefpts
	}
	sort.Ints(out)
	return out, nil
}
