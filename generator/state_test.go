package generator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestState_CanRun(t *testing.T) {
	st := NewState(Parameters{})
	assert.False(t, st.CanRun(StageIdea), "idea needs a topic")

	st.Params.Topic = "electric bikes"
	assert.True(t, st.CanRun(StageIdea))

	for _, stage := range []Stage{StageOutline, StageDraft, StageRefine} {
		prev, _ := stage.Prev()
		assert.False(t, st.CanRun(stage), "stage %s", stage)

		require.NoError(t, st.Apply(prev, "text"))
		assert.True(t, st.CanRun(stage), "stage %s", stage)

		require.NoError(t, st.Override(prev, ""))
		assert.False(t, st.CanRun(stage), "edited-away prerequisite blocks %s", stage)

		require.NoError(t, st.Override(prev, "text"))
	}
	assert.False(t, st.CanRun(Stage(9)))
}

func TestState_ApplyWritesBothSlots(t *testing.T) {
	st := NewState(Parameters{Topic: "t"})
	require.NoError(t, st.Apply(StageIdea, "ideas"))
	assert.Equal(t, "ideas", st.Generated(StageIdea))
	assert.Equal(t, "ideas", st.Current(StageIdea))
}

func TestState_OverrideKeepsGenerated(t *testing.T) {
	st := NewState(Parameters{Topic: "t"})
	require.NoError(t, st.Apply(StageOutline, "generated"))
	require.NoError(t, st.Override(StageOutline, "edited"))

	assert.Equal(t, "generated", st.Generated(StageOutline))
	assert.Equal(t, "edited", st.Current(StageOutline))
}

func TestState_OverrideIdempotent(t *testing.T) {
	once := NewState(Parameters{Topic: "t"})
	require.NoError(t, once.Apply(StageDraft, "draft"))
	twice := once.Clone()

	require.NoError(t, once.Override(StageDraft, "edited draft"))
	require.NoError(t, twice.Override(StageDraft, "edited draft"))
	require.NoError(t, twice.Override(StageDraft, "edited draft"))

	assert.Equal(t, once, twice)
}

func TestState_OverrideInvalidStage(t *testing.T) {
	st := NewState(Parameters{})
	assert.Error(t, st.Override(Stage(-1), "x"))
	assert.Error(t, st.Apply(Stage(4), "x"))
}

func TestState_ApplyDoesNotCascade(t *testing.T) {
	st := NewState(Parameters{Topic: "t"})
	require.NoError(t, st.Apply(StageIdea, "idea v1"))
	require.NoError(t, st.Apply(StageOutline, "outline from v1"))
	require.NoError(t, st.Apply(StageDraft, "draft from v1"))

	require.NoError(t, st.Apply(StageIdea, "idea v2"))

	assert.Equal(t, "outline from v1", st.Current(StageOutline))
	assert.Equal(t, "draft from v1", st.Current(StageDraft))
	assert.True(t, st.Stale(StageOutline), "outline was built from an older idea")
	assert.False(t, st.Stale(StageDraft), "draft still matches the current outline")
	assert.False(t, st.Stale(StageIdea))
}

func TestState_StaleAfterUpstreamEdit(t *testing.T) {
	st := NewState(Parameters{Topic: "t"})
	require.NoError(t, st.Apply(StageIdea, "idea"))
	require.NoError(t, st.Apply(StageOutline, "outline"))
	assert.False(t, st.Stale(StageOutline))

	require.NoError(t, st.Override(StageIdea, "idea, edited"))
	assert.True(t, st.Stale(StageOutline))

	require.NoError(t, st.Apply(StageOutline, "outline again"))
	assert.False(t, st.Stale(StageOutline))
	assert.False(t, st.Stale(StageRefine), "never generated")
}

func TestState_ApplyRefinement(t *testing.T) {
	st := NewState(Parameters{Topic: "t"})
	require.NoError(t, st.ApplyRefinement("Great content here.---NOTES---Use more puns."))

	assert.Equal(t, "Great content here.", st.Current(StageRefine))
	assert.Equal(t, "Great content here.", st.Generated(StageRefine))
	assert.Equal(t, "Use more puns.", st.Notes)
	assert.True(t, st.Complete())
}

func TestState_CloneIsIndependent(t *testing.T) {
	st := NewState(Parameters{Topic: "t"})
	require.NoError(t, st.Apply(StageIdea, "idea"))
	c := st.Clone()
	require.NoError(t, c.Override(StageIdea, "changed"))
	assert.Equal(t, "idea", st.Current(StageIdea))
}

func TestParameters_LengthLabel(t *testing.T) {
	assert.Equal(t, "Short", Parameters{Length: "Short (50 words)"}.LengthLabel())
	assert.Equal(t, "Short", Parameters{Length: "Short"}.LengthLabel())
	assert.Equal(t, "", Parameters{Length: "  "}.LengthLabel())
}

func TestStage_Parse(t *testing.T) {
	s, err := ParseStage(" Draft ")
	require.NoError(t, err)
	assert.Equal(t, StageDraft, s)

	_, err = ParseStage("publish")
	assert.Error(t, err)

	_, ok := StageIdea.Prev()
	assert.False(t, ok)
	prev, ok := StageRefine.Prev()
	assert.True(t, ok)
	assert.Equal(t, StageDraft, prev)
}
