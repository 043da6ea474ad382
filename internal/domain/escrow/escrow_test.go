package escrow

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/escrow-ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("SuccessfulCreation", func(t *testing.T) {
		e, err := New(uuid.New(), uuid.New(), 100000, 3000, PartialPaymentConfig{Allowed: true, Percentage: 50})
		require.NoError(t, err)
		assert.Equal(t, StatusCreated, e.Status)
		assert.Equal(t, int64(103000), e.Total())
		assert.Nil(t, e.WorkerID)
		assert.Nil(t, e.HoldID)
	})

	t.Run("Validation", func(t *testing.T) {
		_, err := New(uuid.Nil, uuid.New(), 100, 0, PartialPaymentConfig{})
		assert.ErrorIs(t, err, ErrMissingParty)

		_, err = New(uuid.New(), uuid.New(), 0, 0, PartialPaymentConfig{})
		assert.ErrorIs(t, err, shared.ErrValidation)

		_, err = New(uuid.New(), uuid.New(), 100, -1, PartialPaymentConfig{})
		assert.ErrorIs(t, err, ErrInvalidFee)

		_, err = New(uuid.New(), uuid.New(), 100, 0, PartialPaymentConfig{Allowed: true, Percentage: 101})
		assert.ErrorIs(t, err, ErrInvalidPercentage)
	})
}

func TestCanTransition(t *testing.T) {
	all := []Status{StatusCreated, StatusFunded, StatusPartialRelease, StatusCompleted, StatusDisputed, StatusRefunded, StatusCancelled}
	legal := map[[2]Status]bool{
		{StatusCreated, StatusFunded}:               true,
		{StatusCreated, StatusCancelled}:            true,
		{StatusFunded, StatusPartialRelease}:        true,
		{StatusFunded, StatusCompleted}:             true,
		{StatusFunded, StatusDisputed}:              true,
		{StatusPartialRelease, StatusPartialRelease}: true,
		{StatusPartialRelease, StatusCompleted}:     true,
		{StatusPartialRelease, StatusDisputed}:      true,
		{StatusDisputed, StatusRefunded}:            true,
		{StatusDisputed, StatusCompleted}:           true,
	}

	for _, from := range all {
		for _, to := range all {
			assert.Equal(t, legal[[2]Status{from, to}], CanTransition(from, to), "%s -> %s", from, to)
		}
	}

	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusRefunded.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
	assert.False(t, StatusDisputed.IsTerminal())
}

func TestEscrow_TransitionTo(t *testing.T) {
	now := time.Now().UTC()

	t.Run("StampsTimestamps", func(t *testing.T) {
		e := &Escrow{ID: uuid.New(), Status: StatusCreated}
		require.NoError(t, e.TransitionTo(StatusFunded, now))
		require.NotNil(t, e.FundedAt)
		assert.Nil(t, e.CompletedAt)

		require.NoError(t, e.TransitionTo(StatusCompleted, now))
		require.NotNil(t, e.CompletedAt)
	})

	t.Run("IllegalMoveLeavesState", func(t *testing.T) {
		e := &Escrow{ID: uuid.New(), Status: StatusCompleted}
		err := e.TransitionTo(StatusDisputed, now)

		var invalid ErrInvalidTransition
		require.True(t, errors.As(err, &invalid))
		assert.Equal(t, StatusCompleted, invalid.From)
		assert.Equal(t, StatusDisputed, invalid.To)
		assert.ErrorIs(t, err, shared.ErrInvalidEscrowTransition)
		assert.Equal(t, StatusCompleted, e.Status)
	})
}

func TestEscrow_PartialAmount(t *testing.T) {
	e := &Escrow{Amount: 100000, PlatformFee: 3000, HeldAmount: 103000}
	assert.Equal(t, int64(50000), e.PartialAmount(50))

	e.HeldAmount = 53000
	assert.Equal(t, int64(50000), e.Payable())
	assert.Equal(t, int64(30000), e.PartialAmount(30))
	assert.Equal(t, int64(50000), e.PartialAmount(80), "capped at what is still payable")

	e.HeldAmount = 2000
	assert.Zero(t, e.Payable())
}

func TestEscrow_StepReference(t *testing.T) {
	e := &Escrow{ID: uuid.New()}
	ref := e.StepReference(2, StepPay)
	assert.True(t, strings.HasPrefix(ref, "ESC-"+e.ID.String()))
	assert.True(t, strings.HasSuffix(ref, "-R2-PAY"))
	assert.Equal(t, ref, e.StepReference(2, StepPay))
}
