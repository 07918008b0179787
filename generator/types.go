package generator

import (
	"strings"
	"time"
)

// Parameters are fixed for the lifetime of a run.
type Parameters struct {
	ContentType string `json:"content_type"`
	Tone        string `json:"tone"`
	Length      string `json:"length"`
	Topic       string `json:"topic"`
}

// LengthLabel is the leading word of the length option, e.g. "Short (50 words)" -> "Short".
func (p Parameters) LengthLabel() string {
	fields := strings.Fields(p.Length)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// Sampling is passed through to the model on every call.
type Sampling struct {
	Temperature float64 `json:"temperature"`
	Model       string  `json:"model"`
}

// DefaultSampling matches the settings the tool has always shipped with.
func DefaultSampling() Sampling {
	return Sampling{Temperature: 0.7, Model: "gpt-4o-mini"}
}

// Slot holds both the generated text of a stage and the version a human edited.
type Slot struct {
	Generated string `json:"generated"`
	Edited    string `json:"edited"`
	// Input is the upstream text the slot was generated from.
	Input string `json:"input,omitempty"`
}

// Turn records one generation or edit within a session.
type Turn struct {
	Stage     Stage     `json:"stage"`
	Action    string    `json:"action"`
	CreatedAt time.Time `json:"created_at"`
}

const (
	ActionGenerated = "generated"
	ActionEdited    = "edited"
)
