package handler

import (
	"log/slog"

	"github.com/escrow-ledger/internal/api_gateway/middleware"
	"github.com/escrow-ledger/internal/api_gateway/service"
	"github.com/escrow-ledger/internal/domain/escrow"
	"github.com/escrow-ledger/internal/escrow_engine"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// EscrowHandler handles HTTP requests for job escrows
type EscrowHandler struct {
	escrowService service.EscrowService
	logger        *slog.Logger
}

func NewEscrowHandler(logger *slog.Logger, escrowService service.EscrowService) *EscrowHandler {
	return &EscrowHandler{escrowService: escrowService, logger: logger}
}

func (h *EscrowHandler) Create(c *gin.Context) {
	var req CreateEscrowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	e, err := h.escrowService.Create(c.Request.Context(), middleware.GetActorID(c), escrow_engine.CreateRequest{
		JobID:  uuid.MustParse(req.JobID),
		Amount: req.Amount,
		Fee:    req.PlatformFee,
		Partial: escrow.PartialPaymentConfig{
			Allowed:    req.PartialPaymentAllowed,
			Percentage: req.PartialPaymentPercentage,
		},
	})
	if err != nil {
		RespondWithDomainError(c, h.logger, err)
		return
	}
	RespondCreated(c, mapEscrowToResponse(e))
}

func (h *EscrowHandler) GetByID(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	h.respond(c, func() (*escrow.Escrow, error) {
		return h.escrowService.GetByID(c.Request.Context(), middleware.GetActorID(c), id)
	})
}

func (h *EscrowHandler) GetByJob(c *gin.Context) {
	jobID, ok := parseIDParam(c, "job_id")
	if !ok {
		return
	}
	h.respond(c, func() (*escrow.Escrow, error) {
		return h.escrowService.GetByJob(c.Request.Context(), middleware.GetActorID(c), jobID)
	})
}

func (h *EscrowHandler) AssignWorker(c *gin.Context) {
	jobID, ok := parseIDParam(c, "job_id")
	if !ok {
		return
	}
	var req AssignWorkerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	h.respond(c, func() (*escrow.Escrow, error) {
		return h.escrowService.AssignWorker(c.Request.Context(), middleware.GetActorID(c), jobID, uuid.MustParse(req.WorkerID))
	})
}

func (h *EscrowHandler) Release(c *gin.Context) {
	jobID, ok := parseIDParam(c, "job_id")
	if !ok {
		return
	}
	var req ReleaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	h.respond(c, func() (*escrow.Escrow, error) {
		return h.escrowService.Release(c.Request.Context(), middleware.GetActorID(c), jobID, req.Percentage)
	})
}

func (h *EscrowHandler) Complete(c *gin.Context) {
	jobID, ok := parseIDParam(c, "job_id")
	if !ok {
		return
	}
	h.respond(c, func() (*escrow.Escrow, error) {
		return h.escrowService.Complete(c.Request.Context(), middleware.GetActorID(c), jobID)
	})
}

func (h *EscrowHandler) respond(c *gin.Context, call func() (*escrow.Escrow, error)) {
	e, err := call()
	if err != nil {
		RespondWithDomainError(c, h.logger, err)
		return
	}
	RespondOK(c, mapEscrowToResponse(e))
}

// parseIDParam reads a uuid path parameter and answers 400 when it is malformed
func parseIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		RespondBadRequest(c, "Invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}
