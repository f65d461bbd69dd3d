package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMachine_DefaultSequence(t *testing.T) {
	m := NewMachine(DefaultPlan("sql"), nil)

	assert.Equal(t, []State{
		StateIdle,
		StateIngesting,
		StateStagingBuilt,
		StateLeadDimsBuilt,
		StateCoreDimsBuilt,
		StateSalesDimsBuilt,
		StateLeadFactBuilt,
		StateSaleFactBuilt,
		StateComplete,
	}, m.Sequence())
	assert.Equal(t, StateIdle, m.Current())
}

func TestMachine_Advance(t *testing.T) {
	var seen [][2]State
	m := NewMachine(DefaultPlan("sql"), func(from, to State) {
		seen = append(seen, [2]State{from, to})
	})

	require.NoError(t, m.Advance(StateIngesting))
	require.NoError(t, m.Advance(StateStagingBuilt))

	err := m.Advance(StateCoreDimsBuilt)
	var te *TransitionError
	require.ErrorAs(t, err, &te)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, StateStagingBuilt, te.From)
	assert.Equal(t, StateCoreDimsBuilt, te.To)
	assert.Equal(t, StateStagingBuilt, m.Current(), "rejected transition leaves state unchanged")

	assert.Equal(t, [][2]State{
		{StateIdle, StateIngesting},
		{StateIngesting, StateStagingBuilt},
	}, seen)
}

func TestMachine_Fail(t *testing.T) {
	t.Run("from idle", func(t *testing.T) {
		m := NewMachine(DefaultPlan("sql"), nil)
		require.NoError(t, m.Fail())
		assert.Equal(t, StateFailed, m.Current())
	})

	t.Run("from mid run", func(t *testing.T) {
		m := NewMachine(DefaultPlan("sql"), nil)
		require.NoError(t, m.Advance(StateIngesting))
		require.NoError(t, m.Advance(StateStagingBuilt))
		require.NoError(t, m.Fail())
		assert.Equal(t, StateFailed, m.Current())
	})

	t.Run("terminal states are final", func(t *testing.T) {
		m := NewMachine(Plan{Steps: []Step{{Name: StepIngestExcel, Kind: KindIngest}}}, nil)
		require.NoError(t, m.Advance(StateIngesting))
		require.NoError(t, m.Advance(StateComplete))

		assert.ErrorIs(t, m.Fail(), ErrInvalidTransition)
		assert.ErrorIs(t, m.Advance(StateIngesting), ErrInvalidTransition)
		assert.Equal(t, StateComplete, m.Current())

		f := NewMachine(DefaultPlan("sql"), nil)
		require.NoError(t, f.Fail())
		assert.ErrorIs(t, f.Fail(), ErrInvalidTransition)
		assert.ErrorIs(t, f.Advance(StateIngesting), ErrInvalidTransition)
	})
}

func TestState_Terminal(t *testing.T) {
	assert.True(t, StateComplete.Terminal())
	assert.True(t, StateFailed.Terminal())
	assert.False(t, StateIdle.Terminal())
	assert.False(t, StateSaleFactBuilt.Terminal())
}
