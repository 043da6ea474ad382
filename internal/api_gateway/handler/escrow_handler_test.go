package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/escrow-ledger/internal/api_gateway/service"
	"github.com/escrow-ledger/internal/domain/escrow"
	"github.com/escrow-ledger/internal/domain/shared"
	"github.com/escrow-ledger/internal/escrow_engine"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func escrowRouter(svc service.EscrowService) http.Handler {
	h := NewEscrowHandler(testLogger, svc)
	r := setupTestRouter()
	r.POST("/escrows", h.Create)
	r.GET("/escrows/:id", h.GetByID)
	r.GET("/escrows/job/:job_id", h.GetByJob)
	r.POST("/escrows/job/:job_id/assign", h.AssignWorker)
	r.POST("/escrows/job/:job_id/release", h.Release)
	r.POST("/escrows/job/:job_id/complete", h.Complete)
	return r
}

func TestEscrowHandler_Create(t *testing.T) {
	employer, jobID := uuid.New(), uuid.New()
	fee := int64(2000)

	t.Run("Success", func(t *testing.T) {
		svc := &MockEscrowService{}
		e := &escrow.Escrow{ID: uuid.New(), JobID: jobID, EmployerID: employer, Amount: 100000, PlatformFee: fee,
			HeldAmount: 102000, Status: escrow.StatusFunded, CreatedAt: time.Now()}
		svc.On("Create", mock.Anything, employer, escrow_engine.CreateRequest{
			JobID:   jobID,
			Amount:  100000,
			Fee:     &fee,
			Partial: escrow.PartialPaymentConfig{Allowed: true, Percentage: 50},
		}).Return(e, nil).Once()

		rr := doRequest(t, escrowRouter(svc), http.MethodPost, "/escrows", employer, CreateEscrowRequest{
			JobID: jobID.String(), Amount: 100000, PlatformFee: &fee, PartialPaymentAllowed: true, PartialPaymentPercentage: 50,
		})

		require.Equal(t, http.StatusCreated, rr.Code)
		var got EscrowResponse
		decodeData(t, rr, &got)
		assert.Equal(t, "funded", got.Status)
		assert.Equal(t, int64(102000), got.HeldAmount)
		assert.Equal(t, "1000.00", got.AmountDisplay)
	})

	t.Run("InsufficientFunds", func(t *testing.T) {
		svc := &MockEscrowService{}
		svc.On("Create", mock.Anything, employer, mock.Anything).
			Return(nil, shared.ErrInsufficientAvailableBalance).Once()

		rr := doRequest(t, escrowRouter(svc), http.MethodPost, "/escrows", employer, CreateEscrowRequest{JobID: jobID.String(), Amount: 100000})
		assert.Equal(t, http.StatusPaymentRequired, rr.Code)
	})

	t.Run("PercentageOutOfRange", func(t *testing.T) {
		rr := doRequest(t, escrowRouter(&MockEscrowService{}), http.MethodPost, "/escrows", employer,
			CreateEscrowRequest{JobID: jobID.String(), Amount: 100, PartialPaymentPercentage: 150})
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestEscrowHandler_Actions(t *testing.T) {
	employer, worker, jobID := uuid.New(), uuid.New(), uuid.New()
	e := &escrow.Escrow{ID: uuid.New(), JobID: jobID, EmployerID: employer, WorkerID: &worker, Status: escrow.StatusPartialRelease}

	t.Run("Release", func(t *testing.T) {
		svc := &MockEscrowService{}
		svc.On("Release", mock.Anything, employer, jobID, 40).Return(e, nil).Once()

		rr := doRequest(t, escrowRouter(svc), http.MethodPost, "/escrows/job/"+jobID.String()+"/release", employer, ReleaseRequest{Percentage: 40})

		require.Equal(t, http.StatusOK, rr.Code)
		var got EscrowResponse
		decodeData(t, rr, &got)
		assert.Equal(t, worker.String(), got.WorkerID)
	})

	t.Run("CompleteDisputedConflicts", func(t *testing.T) {
		svc := &MockEscrowService{}
		svc.On("Complete", mock.Anything, employer, jobID).
			Return(nil, escrow.ErrInvalidTransition{EscrowID: e.ID, From: escrow.StatusDisputed, To: escrow.StatusCompleted}).Once()

		rr := doRequest(t, escrowRouter(svc), http.MethodPost, "/escrows/job/"+jobID.String()+"/complete", employer, nil)

		assert.Equal(t, http.StatusConflict, rr.Code)
		assert.Contains(t, rr.Body.String(), "INVALID_STATE")
	})

	t.Run("AssignByWorkerForbidden", func(t *testing.T) {
		svc := &MockEscrowService{}
		svc.On("AssignWorker", mock.Anything, worker, jobID, worker).
			Return(nil, shared.UnauthorizedError{ActorID: worker.String(), Action: "assign escrow worker"}).Once()

		rr := doRequest(t, escrowRouter(svc), http.MethodPost, "/escrows/job/"+jobID.String()+"/assign", worker,
			AssignWorkerRequest{WorkerID: worker.String()})

		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("MalformedJobID", func(t *testing.T) {
		rr := doRequest(t, escrowRouter(&MockEscrowService{}), http.MethodGet, "/escrows/job/not-a-uuid", employer, nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("GetByID", func(t *testing.T) {
		svc := &MockEscrowService{}
		svc.On("GetByID", mock.Anything, worker, e.ID).Return(e, nil).Once()

		rr := doRequest(t, escrowRouter(svc), http.MethodGet, "/escrows/"+e.ID.String(), worker, nil)
		assert.Equal(t, http.StatusOK, rr.Code)
	})
}
