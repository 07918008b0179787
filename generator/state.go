package generator

import "fmt"

// State is the mutable record of one run. It is owned by a single caller and
// carries no locking.
//
// Every stage has a Slot: Generated is what the model produced, Edited is what
// the next stage consumes. Downstream stages only ever read Edited.
type State struct {
	Params Parameters     `json:"parameters"`
	Slots  map[Stage]Slot `json:"stages"`
	Notes  string         `json:"notes"`
}

// NewState starts an empty run for params.
func NewState(params Parameters) *State {
	return &State{Params: params, Slots: make(map[Stage]Slot, len(Stages))}
}

// CanRun reports whether the prerequisite of stage is present.
func (s *State) CanRun(stage Stage) bool {
	if !stage.Valid() {
		return false
	}
	prev, ok := stage.Prev()
	if !ok {
		return s.Params.Topic != ""
	}
	return s.Current(prev) != ""
}

// Current is the text a downstream stage consumes.
func (s *State) Current(stage Stage) string {
	return s.Slots[stage].Edited
}

// Generated is the model output for stage as last produced, ignoring edits.
func (s *State) Generated(stage Stage) string {
	return s.Slots[stage].Generated
}

// Apply records fresh model output for stage in both slots. Downstream stages
// are left as they are.
func (s *State) Apply(stage Stage, text string) error {
	if !stage.Valid() {
		return fmt.Errorf("apply: invalid stage %d", int(stage))
	}
	if s.Slots == nil {
		s.Slots = make(map[Stage]Slot, len(Stages))
	}
	s.Slots[stage] = Slot{Generated: text, Edited: text, Input: s.upstream(stage)}
	return nil
}

// ApplyRefinement splits raw refine output into final content and notes.
func (s *State) ApplyRefinement(raw string) error {
	final, notes := Split(raw)
	if err := s.Apply(StageRefine, final); err != nil {
		return err
	}
	s.Notes = notes
	return nil
}

// Override replaces the edited text of stage. The generated text is kept.
func (s *State) Override(stage Stage, text string) error {
	if !stage.Valid() {
		return fmt.Errorf("override: invalid stage %d", int(stage))
	}
	if s.Slots == nil {
		s.Slots = make(map[Stage]Slot, len(Stages))
	}
	slot := s.Slots[stage]
	slot.Edited = text
	s.Slots[stage] = slot
	return nil
}

// Stale reports whether stage was generated from upstream text that has since
// been regenerated or edited. Re-running a stage never cascades, so callers use
// this to warn before consuming an outdated slot.
func (s *State) Stale(stage Stage) bool {
	slot, ok := s.Slots[stage]
	if !ok || slot.Generated == "" {
		return false
	}
	if _, hasPrev := stage.Prev(); !hasPrev {
		return false
	}
	return slot.Input != s.upstream(stage)
}

// Complete reports whether the refine stage produced final content.
func (s *State) Complete() bool {
	return s.Current(StageRefine) != ""
}

// Clone returns a deep copy.
func (s *State) Clone() *State {
	c := &State{Params: s.Params, Notes: s.Notes, Slots: make(map[Stage]Slot, len(s.Slots))}
	for k, v := range s.Slots {
		c.Slots[k] = v
	}
	return c
}

func (s *State) upstream(stage Stage) string {
	prev, ok := stage.Prev()
	if !ok {
		return ""
	}
	return s.Current(prev)
}
