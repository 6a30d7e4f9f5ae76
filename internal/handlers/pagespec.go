package handlers

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/skelding/pdfpress/internal/domain"
)

// ParsePages parses a comma-separated page spec ("1,3-5, 8") into a
// sorted, deduplicated list of 1-based indices. Pages beyond total are
// silently clipped; a spec with nothing left is BAD_PAYLOAD.
func ParsePages(spec string, total int) ([]int, error) {
	seen := make(map[int]bool)
	sawToken := false

	for _, token := range strings.Split(spec, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		sawToken = true

		a, b, err := parseToken(token)
		if err != nil {
			return nil, err
		}
		for p := a; p <= b; p++ {
			if p <= total {
				seen[p] = true
			}
		}
	}

	if !sawToken {
		return nil, domain.Coded(domain.ErrBadPayload, "page spec is empty")
	}
	if len(seen) == 0 {
		return nil, domain.Coded(domain.ErrBadPayload,
			"page spec %q selects nothing in a %d page document", spec, total)
	}

	pages := make([]int, 0, len(seen))
	for p := range seen {
		pages = append(pages, p)
	}
	sort.Ints(pages)
	return pages, nil
}

func parseToken(token string) (int, int, error) {
	if a, b, ok := strings.Cut(token, "-"); ok {
		lo, err := parsePositive(strings.TrimSpace(a))
		if err != nil {
			return 0, 0, err
		}
		hi, err := parsePositive(strings.TrimSpace(b))
		if err != nil {
			return 0, 0, err
		}
		if lo > hi {
			return 0, 0, domain.Coded(domain.ErrBadPayload,
				"page range %q runs backwards", token)
		}
		return lo, hi, nil
	}
	n, err := parsePositive(token)
	if err != nil {
		return 0, 0, err
	}
	return n, n, nil
}

func parsePositive(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, domain.Coded(domain.ErrBadPayload, "%q is not a positive page number", s)
	}
	return n, nil
}

// FormatPages renders a sorted page list back into compact range form
// ("1-3,7"), the shape the PDF engine consumes.
func FormatPages(pages []int) string {
	if len(pages) == 0 {
		return ""
	}

	var b strings.Builder
	start, prev := pages[0], pages[0]
	flush := func() {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		if start == prev {
			fmt.Fprintf(&b, "%d", start)
		} else {
			fmt.Fprintf(&b, "%d-%d", start, prev)
		}
	}

	for _, p := range pages[1:] {
		if p == prev+1 {
			prev = p
			continue
		}
		flush()
		start, prev = p, p
	}
	flush()
	return b.String()
}

// complement returns 1..total minus the given sorted set.
func complement(pages []int, total int) []int {
	drop := make(map[int]bool, len(pages))
	for _, p := range pages {
		drop[p] = true
	}
	keep := make([]int, 0, total-len(pages))
	for p := 1; p <= total; p++ {
		if !drop[p] {
			keep = append(keep, p)
		}
	}
	return keep
}
