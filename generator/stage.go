package generator

import (
	"fmt"
	"strings"
)

// Stage identifies one step of the content pipeline. Stages are strictly ordered.
type Stage int

const (
	StageIdea Stage = iota
	StageOutline
	StageDraft
	StageRefine
)

// Stages lists every stage in execution order.
var Stages = []Stage{StageIdea, StageOutline, StageDraft, StageRefine}

var stageNames = map[Stage]string{
	StageIdea:    "idea",
	StageOutline: "outline",
	StageDraft:   "draft",
	StageRefine:  "refine",
}

func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// Valid reports whether s is one of the four pipeline stages.
func (s Stage) Valid() bool {
	return s >= StageIdea && s <= StageRefine
}

// Prev returns the prerequisite stage. IDEA has none.
func (s Stage) Prev() (Stage, bool) {
	if s <= StageIdea || !s.Valid() {
		return 0, false
	}
	return s - 1, true
}

// ParseStage accepts the lower-case stage names used by the API and CLI.
func ParseStage(name string) (Stage, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for s, v := range stageNames {
		if v == n {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown stage %q", name)
}

func (s Stage) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid stage %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *Stage) UnmarshalText(b []byte) error {
	v, err := ParseStage(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}
