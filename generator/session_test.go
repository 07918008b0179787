package generator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_FullRunWithEdits(t *testing.T) {
	llm := &recordingLLM{replies: map[string]string{
		TemplateIdea:    "- e-bike commuting\n- battery care\n- trail riding",
		TemplateOutline: "1. Intro\n2. Body\n3. Outro",
		TemplateDraft:   "Bikes are great.",
		TemplateRefine:  "Great content here.---NOTES---Use more puns.",
	}}
	exec := newTestExecutor(t, llm)
	sess := NewSession("s1", Parameters{Topic: "electric bikes", ContentType: "Blog Post", Tone: "Witty", Length: "Short"}, exec)
	ctx := context.Background()

	_, err := sess.Run(ctx, StageIdea)
	require.NoError(t, err)
	require.NoError(t, sess.Edit(StageIdea, "e-bike commuting"))

	_, err = sess.Run(ctx, StageOutline)
	require.NoError(t, err)
	assert.Contains(t, llm.last().Text, "Idea:\ne-bike commuting")
	assert.NotContains(t, llm.last().Text, "battery care")

	require.NoError(t, sess.Edit(StageOutline, "1. Why commute\n2. Costs"))
	_, err = sess.Run(ctx, StageDraft)
	require.NoError(t, err)
	assert.Contains(t, llm.last().Text, "Outline:\n1. Why commute\n2. Costs")

	final, err := sess.Run(ctx, StageRefine)
	require.NoError(t, err)
	assert.Equal(t, "Great content here.", final)
	assert.Equal(t, "Use more puns.", sess.State.Notes)
	assert.Equal(t, "e-bike commuting", sess.State.Current(StageIdea))
	assert.Equal(t, "- e-bike commuting\n- battery care\n- trail riding", sess.State.Generated(StageIdea))

	actions := make([]string, 0, len(sess.History))
	for _, turn := range sess.History {
		actions = append(actions, turn.Stage.String()+":"+turn.Action)
	}
	assert.Equal(t, []string{
		"idea:generated", "idea:edited",
		"outline:generated", "outline:edited",
		"draft:generated", "refine:generated",
	}, actions)
}

func TestSession_RefineWithoutDraftLeavesStateUnchanged(t *testing.T) {
	llm := &recordingLLM{}
	sess := NewSession("s1", Parameters{Topic: "t", ContentType: "c", Tone: "Witty", Length: "Short"}, newTestExecutor(t, llm))
	require.NoError(t, sess.State.Apply(StageIdea, "idea"))
	require.NoError(t, sess.State.Apply(StageOutline, "outline"))
	before := sess.State.Clone()

	_, err := sess.Run(context.Background(), StageRefine)
	require.ErrorIs(t, err, ErrPrerequisiteMissing)
	assert.Equal(t, before, sess.State)
	assert.Empty(t, sess.History)
	assert.Zero(t, llm.calls())
}

func TestSession_FailedGenerationLeavesStateUnchanged(t *testing.T) {
	slow := LLMFunc(func(ctx context.Context, _ Prompt, _ Sampling) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	sess := NewSession("s1", Parameters{Topic: "t", ContentType: "c"}, newTestExecutor(t, slow))
	require.NoError(t, sess.State.Apply(StageIdea, "old ideas"))
	require.NoError(t, sess.State.Override(StageIdea, "edited ideas"))
	before := sess.State.Clone()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := sess.Run(ctx, StageIdea)
	require.ErrorIs(t, err, ErrGeneration)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, before, sess.State)
}

func TestSession_RerunUpstreamLeavesDownstreamStale(t *testing.T) {
	n := 0
	llm := LLMFunc(func(_ context.Context, p Prompt, _ Sampling) (string, error) {
		n++
		return p.Name + " v" + string(rune('0'+n)), nil
	})
	sess := NewSession("s1", Parameters{Topic: "t", ContentType: "c"}, newTestExecutor(t, llm))
	ctx := context.Background()

	_, err := sess.Run(ctx, StageIdea)
	require.NoError(t, err)
	_, err = sess.Run(ctx, StageOutline)
	require.NoError(t, err)
	outline := sess.State.Current(StageOutline)

	_, err = sess.Run(ctx, StageIdea)
	require.NoError(t, err)
	assert.Equal(t, outline, sess.State.Current(StageOutline), "re-running idea does not touch the outline")
	assert.True(t, sess.State.Stale(StageOutline))
}

func TestSession_Restart(t *testing.T) {
	sess := NewSession("s1", Parameters{Topic: "t", ContentType: "c"}, newTestExecutor(t, MockLLM{}))
	_, err := sess.Run(context.Background(), StageIdea)
	require.NoError(t, err)

	sess.Restart(Parameters{Topic: "other", ContentType: "Ad Copy"})
	assert.Empty(t, sess.State.Current(StageIdea))
	assert.Empty(t, sess.History)
	assert.Equal(t, "other", sess.State.Params.Topic)
}

func TestSession_EditInvalidStage(t *testing.T) {
	sess := NewSession("s1", Parameters{Topic: "t"}, newTestExecutor(t, MockLLM{}))
	assert.Error(t, sess.Edit(Stage(7), "x"))
	assert.Empty(t, sess.History)
}
