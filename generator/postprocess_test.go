package generator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantFinal string
		wantNotes string
	}{
		{"empty", "", "", NoNotes},
		{"no marker", "  just content \n", "just content", NoNotes},
		{"marker", "Great content here.---NOTES---Use more puns.", "Great content here.", "Use more puns."},
		{"trims both sides", "\n body \n---NOTES---\n  notes  \n", "body", "notes"},
		{"marker only", NotesMarker, "", ""},
		{"first marker wins", "a---NOTES---b---NOTES---c", "a", "b---NOTES---c"},
		{"whitespace only", " \t\n", "", NoNotes},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			final, notes := Split(tt.raw)
			assert.Equal(t, tt.wantFinal, final)
			assert.Equal(t, tt.wantNotes, notes)
		})
	}
}

func TestSplit_ConcatenationProperty(t *testing.T) {
	parts := []string{"", " x ", "line one\nline two", "\tNOTES\t", "--- NOTES ---"}
	for _, x := range parts {
		for _, y := range parts {
			final, notes := Split(x + NotesMarker + y)
			assert.Equal(t, strings.TrimSpace(x), final, "x=%q y=%q", x, y)
			assert.Equal(t, strings.TrimSpace(y), notes, "x=%q y=%q", x, y)
		}
	}
}
