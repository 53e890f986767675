package statemachine_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canvascue/accounting/pkg/statemachine"
)

type (
	state string
	event string
)

const (
	draft     state = "draft"
	review    state = "in_review"
	published state = "published"
	archived  state = "archived"

	submit  event = "submit"
	approve event = "approve"
	archive event = "archive"
)

func newTable(t *testing.T, guards ...statemachine.Guard[state, event]) *statemachine.Table[state, event] {
	t.Helper()
	table, err := statemachine.New(
		statemachine.WithTransition(draft, review, submit),
		statemachine.WithTransition(review, published, approve, guards...),
		statemachine.WithFanIn(archive, archived, draft, review, published),
	)
	require.NoError(t, err)
	return table
}

func TestTable_Next(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("defined transition", func(t *testing.T) {
		t.Parallel()
		table := newTable(t)
		next, err := table.Next(ctx, draft, submit, nil)
		require.NoError(t, err)
		assert.Equal(t, review, next)
	})

	t.Run("fan-in transitions", func(t *testing.T) {
		t.Parallel()
		table := newTable(t)
		for _, from := range []state{draft, review, published} {
			next, err := table.Next(ctx, from, archive, nil)
			require.NoError(t, err)
			assert.Equal(t, archived, next)
		}
	})

	t.Run("undefined transition keeps state", func(t *testing.T) {
		t.Parallel()
		table := newTable(t)
		next, err := table.Next(ctx, archived, submit, nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, statemachine.ErrNoTransition)
		var terr *statemachine.TransitionError
		require.ErrorAs(t, err, &terr)
		assert.Equal(t, string(archived), terr.From)
		assert.Equal(t, archived, next)
	})

	t.Run("empty event", func(t *testing.T) {
		t.Parallel()
		table := newTable(t)
		_, err := table.Next(ctx, draft, "", nil)
		assert.ErrorIs(t, err, statemachine.ErrInvalidEvent)
	})
}

func TestTable_Guards(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ownerOnly := func(_ context.Context, _ state, _ event, data any) bool {
		role, ok := data.(string)
		return ok && role == "owner"
	}
	table := newTable(t, ownerOnly)

	_, err := table.Next(ctx, review, approve, "viewer")
	require.Error(t, err)
	assert.ErrorIs(t, err, statemachine.ErrGuardRejected)
	assert.NotErrorIs(t, err, statemachine.ErrNoTransition)
	assert.False(t, table.CanFire(ctx, review, approve, "viewer"))

	next, err := table.Next(ctx, review, approve, "owner")
	require.NoError(t, err)
	assert.Equal(t, published, next)
	assert.True(t, table.CanFire(ctx, review, approve, "owner"))
}

func TestTable_FirstPassingTransitionWins(t *testing.T) {
	t.Parallel()

	rejected := func(context.Context, state, event, any) bool { return false }
	table := statemachine.MustNew(
		statemachine.WithTransitions([]statemachine.Transition[state, event]{
			{From: review, To: published, Event: approve, Guards: []statemachine.Guard[state, event]{rejected}},
			{From: review, To: archived, Event: approve},
		}),
	)

	next, err := table.Next(context.Background(), review, approve, nil)
	require.NoError(t, err)
	assert.Equal(t, archived, next)
}

func TestTable_Events(t *testing.T) {
	t.Parallel()

	table := newTable(t)
	assert.Equal(t, []event{approve, archive}, table.Events(review))
	assert.Empty(t, table.Events(archived))
}

func TestNew_InvalidTransition(t *testing.T) {
	t.Parallel()

	_, err := statemachine.New(statemachine.WithTransition[state, event](draft, "", submit))
	assert.ErrorIs(t, err, statemachine.ErrInvalidTransition)

	_, err = statemachine.New(statemachine.WithFanIn[state, event](archive, archived, draft, ""))
	assert.ErrorIs(t, err, statemachine.ErrInvalidTransition)

	assert.Panics(t, func() {
		statemachine.MustNew(statemachine.WithTransition[state, event]("", review, submit))
	})
}

func TestTable_ImplementsMachine(t *testing.T) {
	t.Parallel()

	var m statemachine.Machine[state, event] = newTable(t)
	assert.True(t, m.CanFire(context.Background(), draft, submit, nil))
}
