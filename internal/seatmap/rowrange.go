package seatmap

import (
	"fmt"
	"sort"
	"strings"
)

// ParseRowRange expands a compact row-range expression into a sorted list of
// row labels. Accepted forms: "A-C" (inclusive), "G,J" (enumeration), "D"
// (single row), and combinations like "A-C,E". Reversed ranges such as "C-A"
// are normalized by min/max rather than rejected.
func ParseRowRange(expr string) ([]string, error) {
	seen := make(map[string]bool)

	for _, part := range strings.Split(expr, ",") {
		part = strings.ToUpper(strings.TrimSpace(part))
		if part == "" {
			continue
		}

		var from, to byte
		switch {
		case len(part) == 1:
			from, to = part[0], part[0]
		case len(part) == 3 && part[1] == '-':
			from, to = part[0], part[2]
			if from > to {
				from, to = to, from
			}
		default:
			return nil, fmt.Errorf("invalid row range %q", part)
		}

		if from < 'A' || to > 'Z' {
			return nil, fmt.Errorf("row labels must be A-Z, got %q", part)
		}
		for r := from; r <= to; r++ {
			seen[string(r)] = true
		}
	}

	if len(seen) == 0 {
		return nil, fmt.Errorf("empty row range %q", expr)
	}

	rows := make([]string, 0, len(seen))
	for row := range seen {
		rows = append(rows, row)
	}
	sort.Strings(rows)
	return rows, nil
}

// CanonicalRowRange is the inverse of ParseRowRange: it compacts a set of
// row labels into "A-C" runs joined by commas, e.g. ["A","B","C","E"] ->
// "A-C,E". Input order does not matter.
func CanonicalRowRange(rows []string) string {
	if len(rows) == 0 {
		return ""
	}

	sorted := make([]string, len(rows))
	copy(sorted, rows)
	sort.Strings(sorted)

	var parts []string
	runStart := sorted[0][0]
	runEnd := runStart

	flush := func() {
		switch {
		case runStart == runEnd:
			parts = append(parts, string(runStart))
		case runEnd == runStart+1:
			parts = append(parts, string(runStart), string(runEnd))
		default:
			parts = append(parts, string(runStart)+"-"+string(runEnd))
		}
	}

	for _, row := range sorted[1:] {
		r := row[0]
		if r == runEnd {
			continue // duplicate
		}
		if r == runEnd+1 {
			runEnd = r
			continue
		}
		flush()
		runStart, runEnd = r, r
	}
	flush()

	return strings.Join(parts, ",")
}
