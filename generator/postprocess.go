package generator

import "strings"

const (
	// NotesMarker separates refined content from the refinement notes.
	NotesMarker = "---NOTES---"
	// NoNotes is reported when the model omitted the notes section.
	NoNotes = "No notes provided."
)

// Split separates refine-stage output into the final content and the notes.
// Only the first marker counts; later occurrences stay inside the notes.
func Split(raw string) (finalContent, notes string) {
	before, after, found := strings.Cut(raw, NotesMarker)
	if !found {
		return strings.TrimSpace(raw), NoNotes
	}
	return strings.TrimSpace(before), strings.TrimSpace(after)
}

// blank reports model output that carries no text.
func blank(raw string) bool {
	return strings.TrimSpace(raw) == ""
}
