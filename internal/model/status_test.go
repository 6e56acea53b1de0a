package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/globeship/shipment-service/internal/model"
)

var happyPath = []model.Status{
	model.StatusDraft,
	model.StatusBooked,
	model.StatusAtWarehouse,
	model.StatusQualityChecked,
	model.StatusPackaged,
	model.StatusDispatchApproved,
	model.StatusDispatched,
	model.StatusInTransit,
	model.StatusCustomsClearance,
	model.StatusOutForDelivery,
	model.StatusDelivered,
}

func TestCanTransition_HappyPath(t *testing.T) {
	for i := 0; i < len(happyPath)-1; i++ {
		assert.True(t, model.CanTransition(happyPath[i], happyPath[i+1]),
			"%s -> %s should be legal", happyPath[i], happyPath[i+1])
	}
}

func TestCanTransition_NoSkips(t *testing.T) {
	for i := 0; i < len(happyPath); i++ {
		for j := 0; j < len(happyPath); j++ {
			if j == i+1 {
				continue
			}
			assert.False(t, model.CanTransition(happyPath[i], happyPath[j]),
				"%s -> %s should be illegal", happyPath[i], happyPath[j])
		}
	}
}

func TestCanTransition_Cancellation(t *testing.T) {
	cancellable := []model.Status{
		model.StatusDraft,
		model.StatusBooked,
		model.StatusAtWarehouse,
		model.StatusQualityChecked,
		model.StatusPackaged,
		model.StatusDispatchApproved,
	}
	for _, status := range cancellable {
		assert.True(t, model.CanTransition(status, model.StatusCancelled),
			"%s should be cancellable", status)
	}

	international := []model.Status{
		model.StatusDispatched,
		model.StatusInTransit,
		model.StatusCustomsClearance,
		model.StatusOutForDelivery,
	}
	for _, status := range international {
		assert.False(t, model.CanTransition(status, model.StatusCancelled),
			"%s should not be cancellable", status)
	}
}

func TestCanTransition_TerminalStatusesAreImmutable(t *testing.T) {
	all := append(append([]model.Status{}, happyPath...), model.StatusCancelled)
	for _, terminal := range []model.Status{model.StatusDelivered, model.StatusCancelled} {
		for _, target := range all {
			assert.False(t, model.CanTransition(terminal, target),
				"%s -> %s should be illegal", terminal, target)
		}
	}
}

func TestCanTransition_UnknownStatus(t *testing.T) {
	assert.False(t, model.CanTransition("LOST_IN_SPACE", model.StatusBooked))
	assert.False(t, model.CanTransition(model.StatusBooked, "LOST_IN_SPACE"))
}

func TestNext(t *testing.T) {
	next, ok := model.Next(model.StatusBooked)
	require.True(t, ok)
	assert.Equal(t, model.StatusAtWarehouse, next)

	_, ok = model.Next(model.StatusDelivered)
	assert.False(t, ok)

	_, ok = model.Next(model.StatusCancelled)
	assert.False(t, ok)
}

func TestLegFor(t *testing.T) {
	assert.Equal(t, model.LegDomestic, model.LegFor(model.StatusBooked))
	assert.Equal(t, model.LegDomestic, model.LegFor(model.StatusDispatchApproved))
	assert.Equal(t, model.LegInternational, model.LegFor(model.StatusDispatched))
	assert.Equal(t, model.LegInternational, model.LegFor(model.StatusOutForDelivery))
	assert.Equal(t, model.LegCompleted, model.LegFor(model.StatusDelivered))
	assert.Equal(t, model.LegCompleted, model.LegFor(model.StatusCancelled))
}

func TestReplay(t *testing.T) {
	t.Run("reproduces final status", func(t *testing.T) {
		final, err := model.Replay([]model.Status{
			model.StatusBooked,
			model.StatusAtWarehouse,
			model.StatusQualityChecked,
		})
		require.NoError(t, err)
		assert.Equal(t, model.StatusQualityChecked, final)
	})

	t.Run("rejects illegal step", func(t *testing.T) {
		_, err := model.Replay([]model.Status{
			model.StatusBooked,
			model.StatusPackaged,
		})
		assert.Error(t, err)
	})

	t.Run("rejects empty timeline", func(t *testing.T) {
		_, err := model.Replay(nil)
		assert.Error(t, err)
	})
}
