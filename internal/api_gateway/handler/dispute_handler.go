package handler

import (
	"log/slog"

	"github.com/escrow-ledger/internal/api_gateway/middleware"
	"github.com/escrow-ledger/internal/api_gateway/service"
	"github.com/escrow-ledger/internal/dispute_engine"
	"github.com/escrow-ledger/internal/domain/dispute"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// DisputeHandler handles HTTP requests for job disputes
type DisputeHandler struct {
	disputeService service.DisputeService
	logger         *slog.Logger
}

func NewDisputeHandler(logger *slog.Logger, disputeService service.DisputeService) *DisputeHandler {
	return &DisputeHandler{disputeService: disputeService, logger: logger}
}

func (h *DisputeHandler) Create(c *gin.Context) {
	var req CreateDisputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	d, err := h.disputeService.Create(c.Request.Context(), middleware.GetActorID(c), dispute_engine.CreateRequest{
		JobID:       uuid.MustParse(req.JobID),
		Reason:      req.Reason,
		Description: req.Description,
		Evidence:    req.Evidence,
	})
	if err != nil {
		RespondWithDomainError(c, h.logger, err)
		return
	}
	RespondCreated(c, mapDisputeToResponse(d))
}

func (h *DisputeHandler) GetByID(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	d, err := h.disputeService.GetByID(c.Request.Context(), middleware.GetActorID(c), id)
	if err != nil {
		RespondWithDomainError(c, h.logger, err)
		return
	}
	RespondOK(c, mapDisputeToResponse(d))
}

// Resolve answers 202 while a high-value ruling awaits admin confirmation
func (h *DisputeHandler) Resolve(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req ResolveDisputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	out, err := h.disputeService.Resolve(c.Request.Context(), middleware.GetActorID(c), id, dispute.ResolveInput{
		Resolution:        req.Resolution,
		Decision:          dispute.Decision(req.Decision),
		PaymentPercentage: req.PaymentPercentage,
	})
	if err != nil {
		RespondWithDomainError(c, h.logger, err)
		return
	}

	res := ResolveDisputeResponse{Dispute: mapDisputeToResponse(out.Dispute), PendingAdminVerification: out.Pending}
	if out.Pending {
		RespondAccepted(c, res)
		return
	}
	RespondOK(c, res)
}

func (h *DisputeHandler) ConfirmEscalation(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	d, err := h.disputeService.ConfirmEscalation(c.Request.Context(), middleware.GetActorID(c), id)
	if err != nil {
		RespondWithDomainError(c, h.logger, err)
		return
	}
	RespondOK(c, mapDisputeToResponse(d))
}

// GetPending lists the disputes waiting on the acting verifier
func (h *DisputeHandler) GetPending(c *gin.Context) {
	ds, err := h.disputeService.GetPending(c.Request.Context(), middleware.GetActorID(c))
	if err != nil {
		RespondWithDomainError(c, h.logger, err)
		return
	}
	items := make([]DisputeResponse, 0, len(ds))
	for _, d := range ds {
		items = append(items, mapDisputeToResponse(d))
	}
	RespondOK(c, items)
}
