package generator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
)

// StageObserver receives the outcome of every stage execution.
type StageObserver interface {
	ObserveStage(stage string, outcome string, elapsed time.Duration)
}

// Outcomes reported to a StageObserver.
const (
	OutcomeSuccess      = "success"
	OutcomePrerequisite = "prerequisite_missing"
	OutcomeTemplate     = "template_error"
	OutcomeGeneration   = "generation_error"
)

// Executor renders stage templates and calls the model. It never mutates the State it reads.
type Executor struct {
	llm       LLMClient
	templates TemplateSet
	tones     ToneExamples
	sampling  Sampling
	timeout   time.Duration
	logger    *zap.Logger
	observer  StageObserver
}

// ExecutorOption customises an Executor.
type ExecutorOption func(*Executor)

// WithTemplates replaces the built-in prompt set.
func WithTemplates(ts TemplateSet) ExecutorOption {
	return func(e *Executor) { e.templates = ts }
}

// WithToneExamples replaces the built-in tone table.
func WithToneExamples(te ToneExamples) ExecutorOption {
	return func(e *Executor) { e.tones = te }
}

// WithSampling sets the sampling parameters sent on each call.
func WithSampling(s Sampling) ExecutorOption {
	return func(e *Executor) { e.sampling = s }
}

// WithTimeout bounds each model call. Zero means no executor-level limit.
func WithTimeout(d time.Duration) ExecutorOption {
	return func(e *Executor) { e.timeout = d }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) ExecutorOption {
	return func(e *Executor) { e.logger = l }
}

// WithObserver reports stage outcomes, typically to metrics.
func WithObserver(o StageObserver) ExecutorOption {
	return func(e *Executor) { e.observer = o }
}

func NewExecutor(llm LLMClient, opts ...ExecutorOption) (*Executor, error) {
	if llm == nil {
		return nil, errors.New("llm client is required")
	}
	e := &Executor{
		llm:       llm,
		templates: DefaultTemplates(),
		tones:     DefaultToneExamples(),
		sampling:  DefaultSampling(),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if err := e.templates.Validate(); err != nil {
		return nil, fmt.Errorf("executor templates: %w", err)
	}
	if e.tones == nil {
		e.tones = ToneExamples{}
	}
	return e, nil
}

// Tones lists the tones with a configured style example.
func (e *Executor) Tones() []string {
	return e.tones.Tones()
}

// Execute renders the template for stage from st and calls the model once.
// Prerequisites are checked before any network call.
func (e *Executor) Execute(ctx context.Context, stage Stage, st *State) (string, error) {
	start := time.Now()
	out, err := e.execute(ctx, stage, st)
	e.observe(stage, err, time.Since(start))
	return out, err
}

func (e *Executor) execute(ctx context.Context, stage Stage, st *State) (string, error) {
	if !stage.Valid() {
		return "", stageErr(ErrPrerequisiteMissing, stage, "execute", errors.New("unknown stage"))
	}
	vars, err := e.inputs(stage, st)
	if err != nil {
		return "", err
	}

	tmpl := e.templates[stage]
	text, err := tmpl.Render(vars)
	if err != nil {
		e.logger.Error("template render failed", zap.Stringer("stage", stage), zap.Error(err))
		return "", stageErr(ErrTemplateVariableMissing, stage, "render", err)
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	e.logger.Info("generating", zap.Stringer("stage", stage), zap.String("model", e.sampling.Model))
	raw, err := e.llm.Complete(ctx, Prompt{Name: tmpl.Name, Text: text}, e.sampling)
	if err != nil {
		e.logger.Warn("generation failed", zap.Stringer("stage", stage), zap.Error(err))
		return "", stageErr(ErrGeneration, stage, "generate", err)
	}
	if blank(raw) {
		return "", stageErr(ErrGeneration, stage, "generate", errors.New("model returned empty text"))
	}
	return raw, nil
}

// inputs resolves the template variables for stage, failing on any empty one.
func (e *Executor) inputs(stage Stage, st *State) (map[string]string, error) {
	if st == nil {
		return nil, stageErr(ErrPrerequisiteMissing, stage, "execute", errors.New("no workflow state"))
	}
	p := st.Params
	var vars map[string]string
	switch stage {
	case StageIdea:
		vars = map[string]string{VarTopic: p.Topic, VarContentType: p.ContentType}
	case StageOutline:
		vars = map[string]string{VarIdea: st.Current(StageIdea)}
	case StageDraft:
		vars = map[string]string{
			VarOutline:        st.Current(StageOutline),
			VarTone:           p.Tone,
			VarLength:         p.LengthLabel(),
			VarFewShotExample: e.tones.Lookup(p.Tone),
		}
	case StageRefine:
		vars = map[string]string{VarDraft: st.Current(StageDraft), VarTone: p.Tone}
	}
	for _, name := range sortedKeys(vars) {
		if vars[name] == "" {
			return nil, stageErr(ErrPrerequisiteMissing, stage, "execute", fmt.Errorf("%s is empty", name))
		}
	}
	return vars, nil
}

func (e *Executor) observe(stage Stage, err error, elapsed time.Duration) {
	if e.observer == nil {
		return
	}
	outcome := OutcomeSuccess
	switch {
	case err == nil:
	case errors.Is(err, ErrPrerequisiteMissing):
		outcome = OutcomePrerequisite
	case errors.Is(err, ErrTemplateVariableMissing):
		outcome = OutcomeTemplate
	default:
		outcome = OutcomeGeneration
	}
	e.observer.ObserveStage(stage.String(), outcome, elapsed)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
