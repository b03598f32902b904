package seatmap

import (
	"fmt"
	"sort"

	"cineseat/internal/ledger"
)

// CellSize is the grid pitch used for default seat coordinates. Purely a
// presentation constant; correctness never depends on it.
const CellSize = 40

// maxRows is bound by single-letter row labels A..Z.
const maxRows = 26

// ConfigError marks a malformed LayoutConfig. It is fatal to the operation
// that supplied the config, nothing else.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "invalid layout config: " + e.Reason
}

// ValidateConfig checks a LayoutConfig for structural problems. It returns
// warnings for tolerated oddities (unclassified rows) and an error for
// violations: negative dimensions, too many rows, unparseable or
// overlapping row ranges. Overlap is rejected outright rather than resolved
// first-match-wins, because silent precedence has burned venue operators
// before.
func ValidateConfig(config LayoutConfig) ([]string, error) {
	if config.NumRows < 0 || config.NumCols < 0 {
		return nil, &ConfigError{Reason: "dimensions must not be negative"}
	}
	if config.NumRows > maxRows {
		return nil, &ConfigError{Reason: fmt.Sprintf("at most %d rows supported", maxRows)}
	}

	claimed := make(map[string]string) // row -> class that claimed it
	for _, rule := range config.SeatClassRules {
		rows, err := ParseRowRange(rule.RowRange)
		if err != nil {
			return nil, &ConfigError{Reason: err.Error()}
		}
		if rule.Price < 0 {
			return nil, &ConfigError{Reason: fmt.Sprintf("class %q has negative price", rule.ClassName)}
		}
		for _, row := range rows {
			if prev, ok := claimed[row]; ok {
				return nil, &ConfigError{Reason: fmt.Sprintf("row %s claimed by both %q and %q", row, prev, rule.ClassName)}
			}
			claimed[row] = rule.ClassName
		}
	}

	var warnings []string
	for r := 0; r < config.NumRows; r++ {
		row := rowLabel(r)
		if _, ok := claimed[row]; !ok {
			warnings = append(warnings, fmt.Sprintf("row %s has no seat class, defaulting to %s at price 0", row, TierBase))
		}
	}
	return warnings, nil
}

func rowLabel(index int) string {
	return string(rune('A' + index))
}

// Generate expands a LayoutConfig into the full seat grid. It is pure and
// deterministic: the same config always yields the same seats in the same
// order (row-major, left to right). Aisle columns occupy visual positions
// but get no seat; aisle indexes beyond the visual width are ignored.
func Generate(config LayoutConfig) []Seat {
	if config.NumRows <= 0 || config.NumCols <= 0 {
		return []Seat{}
	}

	aisles := make(map[int]bool, len(config.AisleColumns))
	for _, col := range config.AisleColumns {
		aisles[col] = true
	}

	type classInfo struct {
		rule SeatClassRule
		rows map[string]bool
	}
	classes := make([]classInfo, 0, len(config.SeatClassRules))
	for _, rule := range config.SeatClassRules {
		rows, err := ParseRowRange(rule.RowRange)
		if err != nil {
			continue // validated upstream; skip rather than guess
		}
		set := make(map[string]bool, len(rows))
		for _, row := range rows {
			set[row] = true
		}
		classes = append(classes, classInfo{rule: rule, rows: set})
	}

	resolveClass := func(row string) SeatClassRule {
		for _, c := range classes {
			if c.rows[row] {
				return c.rule
			}
		}
		// Unclassified rows fall back to a zero-price base class.
		return SeatClassRule{ClassName: "Base", Price: 0, Tier: TierBase}
	}

	seats := make([]Seat, 0, config.NumRows*config.NumCols)
	for r := 0; r < config.NumRows; r++ {
		row := rowLabel(r)
		rule := resolveClass(row)

		visualCol := 1
		for number := 1; number <= config.NumCols; visualCol++ {
			if aisles[visualCol] {
				continue
			}
			seats = append(seats, Seat{
				RowLabel:  row,
				Number:    number,
				X:         (visualCol - 1) * CellSize,
				Y:         r * CellSize,
				Price:     rule.Price,
				Tier:      rule.Tier,
				ClassName: rule.ClassName,
				Color:     rule.Color,
				IsActive:  true,
				Status:    StatusAvailable,
			})
			number++
		}
	}
	return seats
}

// ApplyOverrides merges persisted overrides onto a generated grid and
// returns a new slice; the input is never mutated, keeping Generate safe to
// re-run. Overrides for seats absent from the grid are ignored: the grid is
// the source of truth for existence. The merge is idempotent.
func ApplyOverrides(seats []Seat, overrides map[ledger.SeatKey]SeatOverride) []Seat {
	if len(overrides) == 0 {
		out := make([]Seat, len(seats))
		copy(out, seats)
		return out
	}

	out := make([]Seat, len(seats))
	for i, seat := range seats {
		if ov, ok := overrides[seat.Key()]; ok {
			if ov.X != nil {
				seat.X = *ov.X
			}
			if ov.Y != nil {
				seat.Y = *ov.Y
			}
			if ov.IsActive != nil {
				seat.IsActive = *ov.IsActive
			}
			if ov.Status != nil {
				seat.Status = *ov.Status
			}
			if ov.Tier != nil {
				seat.Tier = *ov.Tier
			}
		}
		out[i] = seat
	}
	return out
}

// ToSeatClassRules recovers the compact rule set from a seat grid, grouping
// rows that share (class, price, tier, color) into canonical row ranges.
// Rules come out ordered by their first row, so Generate followed by
// ToSeatClassRules reproduces an equivalent rule set up to row-range
// canonicalization.
func ToSeatClassRules(seats []Seat) []SeatClassRule {
	type classKey struct {
		className string
		price     float64
		tier      Tier
		color     string
	}

	rowsByClass := make(map[classKey]map[string]bool)
	firstRow := make(map[classKey]string)
	for _, seat := range seats {
		key := classKey{seat.ClassName, seat.Price, seat.Tier, seat.Color}
		if rowsByClass[key] == nil {
			rowsByClass[key] = make(map[string]bool)
			firstRow[key] = seat.RowLabel
		}
		rowsByClass[key][seat.RowLabel] = true
		if seat.RowLabel < firstRow[key] {
			firstRow[key] = seat.RowLabel
		}
	}

	keys := make([]classKey, 0, len(rowsByClass))
	for key := range rowsByClass {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		return firstRow[keys[i]] < firstRow[keys[j]]
	})

	rules := make([]SeatClassRule, 0, len(keys))
	for _, key := range keys {
		rows := make([]string, 0, len(rowsByClass[key]))
		for row := range rowsByClass[key] {
			rows = append(rows, row)
		}
		rules = append(rules, SeatClassRule{
			RowRange:  CanonicalRowRange(rows),
			ClassName: key.className,
			Price:     key.price,
			Tier:      key.tier,
			Color:     key.color,
		})
	}
	return rules
}
