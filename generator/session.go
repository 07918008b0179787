package generator

import (
	"context"
	"errors"
	"time"
)

// Session 持有一次主题的多阶段生成上下文。
type Session struct {
	ID      string
	State   *State
	History []Turn
	exec    *Executor
	now     func() time.Time
}

// NewSession 创建 session，尚未生成任何阶段。
func NewSession(id string, params Parameters, exec *Executor) *Session {
	return &Session{
		ID:    id,
		State: NewState(params),
		exec:  exec,
		now:   time.Now,
	}
}

// Run executes stage and records the output. On failure the state is left as it was.
func (s *Session) Run(ctx context.Context, stage Stage) (string, error) {
	if s.exec == nil {
		return "", errors.New("session has no executor")
	}
	out, err := s.exec.Execute(ctx, stage, s.State)
	if err != nil {
		return "", err
	}
	if stage == StageRefine {
		if err := s.State.ApplyRefinement(out); err != nil {
			return "", err
		}
	} else if err := s.State.Apply(stage, out); err != nil {
		return "", err
	}
	s.appendTurn(stage, ActionGenerated)
	return s.State.Current(stage), nil
}

// Edit stores a human revision of stage; the next stage will consume it.
func (s *Session) Edit(stage Stage, text string) error {
	if err := s.State.Override(stage, text); err != nil {
		return err
	}
	s.appendTurn(stage, ActionEdited)
	return nil
}

// Restart discards the current run and begins a new one with params.
func (s *Session) Restart(params Parameters) {
	s.State = NewState(params)
	s.History = nil
}

func (s *Session) appendTurn(stage Stage, action string) {
	s.History = append(s.History, Turn{
		Stage:     stage,
		Action:    action,
		CreatedAt: s.now(),
	})
}
