// Package history keeps the append-only log of saved content runs.
package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ai_content_workflow/generator"
)

var (
	// ErrStorage wraps every failure of the underlying medium.
	ErrStorage = errors.New("storage error")
	// ErrInvalidScore rejects evaluation scores outside [MinScore, MaxScore].
	ErrInvalidScore = errors.New("invalid score")
)

const (
	MinScore = 1
	MaxScore = 5
)

// SavedRun is an immutable snapshot of a run. ID and Timestamp are assigned by the store.
type SavedRun struct {
	ID              int64                              `json:"id"`
	Timestamp       time.Time                          `json:"timestamp"`
	Params          generator.Parameters               `json:"parameters"`
	Stages          map[generator.Stage]generator.Slot `json:"stages"`
	Notes           string                             `json:"notes"`
	ClarityScore    int                                `json:"clarity_score"`
	EngagementScore int                                `json:"engagement_score"`
}

// Edited returns the human-reviewed text of stage.
func (r SavedRun) Edited(stage generator.Stage) string {
	return r.Stages[stage].Edited
}

// Generated returns the model text of stage.
func (r SavedRun) Generated(stage generator.Stage) string {
	return r.Stages[stage].Generated
}

// Store persists runs. Implementations must hand out ids 1, 2, 3, ... in call
// order even under concurrent Save calls.
type Store interface {
	Save(ctx context.Context, run SavedRun) (int64, error)
	ListAll(ctx context.Context) ([]SavedRun, error)
	Close() error
}

// NewSnapshot copies st into a SavedRun ready for Save.
func NewSnapshot(st *generator.State, clarity, engagement int) SavedRun {
	run := SavedRun{
		Params:          st.Params,
		Stages:          make(map[generator.Stage]generator.Slot, len(generator.Stages)),
		Notes:           st.Notes,
		ClarityScore:    clarity,
		EngagementScore: engagement,
	}
	for _, s := range generator.Stages {
		slot := st.Slots[s]
		run.Stages[s] = generator.Slot{Generated: slot.Generated, Edited: slot.Edited}
	}
	return run
}

// Validate checks the user-supplied parts of a run before it is written.
func (r SavedRun) Validate() error {
	if err := checkScore("clarity", r.ClarityScore); err != nil {
		return err
	}
	return checkScore("engagement", r.EngagementScore)
}

func checkScore(name string, v int) error {
	if v < MinScore || v > MaxScore {
		return fmt.Errorf("%w: %s score %d not in [%d,%d]", ErrInvalidScore, name, v, MinScore, MaxScore)
	}
	return nil
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}
