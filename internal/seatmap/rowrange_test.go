package seatmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRowRange(t *testing.T) {
	tests := []struct {
		expr string
		want []string
	}{
		{"A-C", []string{"A", "B", "C"}},
		{"G,J", []string{"G", "J"}},
		{"D", []string{"D"}},
		{"C-A", []string{"A", "B", "C"}}, // reversed ranges normalize
		{"A-C,E", []string{"A", "B", "C", "E"}},
		{"a-c", []string{"A", "B", "C"}},
		{" B , D ", []string{"B", "D"}},
		{"A,A,A", []string{"A"}},
	}
	for _, tt := range tests {
		rows, err := ParseRowRange(tt.expr)
		require.NoError(t, err, tt.expr)
		assert.Equal(t, tt.want, rows, tt.expr)
	}
}

func TestParseRowRangeRejectsGarbage(t *testing.T) {
	for _, expr := range []string{"", ",", "A-", "-C", "1-3", "AB", "A--C", "A-Ç"} {
		_, err := ParseRowRange(expr)
		assert.Error(t, err, expr)
	}
}

func TestCanonicalRowRange(t *testing.T) {
	tests := []struct {
		rows []string
		want string
	}{
		{[]string{"A", "B", "C"}, "A-C"},
		{[]string{"C", "A", "B"}, "A-C"},
		{[]string{"A", "B"}, "A,B"},
		{[]string{"D"}, "D"},
		{[]string{"A", "B", "C", "E"}, "A-C,E"},
		{[]string{"G", "J"}, "G,J"},
		{[]string{"A", "A", "B", "B"}, "A,B"},
		{nil, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CanonicalRowRange(tt.rows))
	}
}

func TestRowRangeRoundTrip(t *testing.T) {
	for _, expr := range []string{"A-C", "G,J", "D", "A-C,E"} {
		rows, err := ParseRowRange(expr)
		require.NoError(t, err)
		assert.Equal(t, expr, CanonicalRowRange(rows))
	}
}
