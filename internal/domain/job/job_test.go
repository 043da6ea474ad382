package job

import (
	"testing"

	"github.com/escrow-ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestStatus_Disputable(t *testing.T) {
	for _, s := range []Status{StatusAssigned, StatusInProgress, StatusReview} {
		assert.True(t, s.Disputable(), s)
	}
	for _, s := range []Status{StatusOpen, StatusCompleted, StatusDisputed, StatusCancelled} {
		assert.False(t, s.Disputable(), s)
	}
}

func TestJob_Participants(t *testing.T) {
	employer, worker := uuid.New(), uuid.New()
	j := &Job{ID: uuid.New(), EmployerID: employer, WorkerID: &worker}

	rs := j.Participants()
	assert.True(t, rs.Has(employer, shared.RoleEmployer))
	assert.True(t, rs.Has(worker, shared.RoleWorker))
	assert.False(t, rs.Has(employer, shared.RoleWorker))

	assert.Equal(t, worker, j.CounterpartOf(employer))
	assert.Equal(t, employer, j.CounterpartOf(worker))
	assert.Equal(t, uuid.Nil, j.CounterpartOf(uuid.New()))

	j.WorkerID = nil
	assert.Equal(t, uuid.Nil, j.CounterpartOf(employer))
}
