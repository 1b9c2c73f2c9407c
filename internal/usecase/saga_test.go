package usecase_test

import (
	"context"
	"errors"
	"testing"

	"go-freelance-backend/internal/usecase"
	"go-freelance-backend/pkg/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaga(t *testing.T) {
	ctx := context.Background()

	recordStep := func(name string, log *[]string, fail error) usecase.Step {
		return usecase.Step{
			Name: name,
			Do: func(context.Context) error {
				*log = append(*log, "do "+name)
				return fail
			},
			Compensate: func(context.Context) error {
				*log = append(*log, "undo "+name)
				return nil
			},
		}
	}

	t.Run("Should run every step in order", func(t *testing.T) {
		var log []string
		saga := usecase.Saga{Name: "test", Steps: []usecase.Step{
			recordStep("a", &log, nil),
			recordStep("b", &log, nil),
		}}

		require.NoError(t, saga.Run(ctx))
		assert.Equal(t, []string{"do a", "do b"}, log)
	})

	t.Run("Should undo completed steps in reverse order", func(t *testing.T) {
		var log []string
		boom := errors.New("boom")
		saga := usecase.Saga{Name: "test", Steps: []usecase.Step{
			recordStep("a", &log, nil),
			recordStep("b", &log, nil),
			recordStep("c", &log, boom),
			recordStep("d", &log, nil),
		}}

		err := saga.Run(ctx)
		require.Error(t, err)
		assert.Equal(t, []string{"do a", "do b", "do c", "undo b", "undo a"}, log)

		var werr *usecase.WorkflowError
		require.ErrorAs(t, err, &werr)
		assert.Equal(t, "c", werr.Step)
		assert.NoError(t, werr.CompensationErr)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("Should report a failed compensation", func(t *testing.T) {
		undoErr := errors.New("undo failed")
		saga := usecase.Saga{Name: "test", Steps: []usecase.Step{
			{
				Name:       "a",
				Do:         func(context.Context) error { return nil },
				Compensate: func(context.Context) error { return undoErr },
			},
			{
				Name: "b",
				Do:   func(context.Context) error { return errors.New("boom") },
			},
		}}

		err := saga.Run(ctx)
		assert.ErrorIs(t, err, undoErr)
		assert.Contains(t, err.Error(), "compensation failed")
	})

	t.Run("Should retry transient failures", func(t *testing.T) {
		calls := 0
		saga := usecase.Saga{Name: "test", Attempts: 3, Steps: []usecase.Step{{
			Name: "flaky",
			Do: func(context.Context) error {
				calls++
				if calls < 3 {
					return errors.New("timeout")
				}
				return nil
			},
		}}}

		require.NoError(t, saga.Run(ctx))
		assert.Equal(t, 3, calls)
	})

	t.Run("Should not retry business errors", func(t *testing.T) {
		calls := 0
		saga := usecase.Saga{Name: "test", Attempts: 3, Steps: []usecase.Step{{
			Name: "refused",
			Do: func(context.Context) error {
				calls++
				return apperror.BadRequest("Insufficient funds")
			},
		}}}

		err := saga.Run(ctx)
		assert.Equal(t, 1, calls)
		assert.Equal(t, 400, apperror.CodeOf(err))
	})
}
