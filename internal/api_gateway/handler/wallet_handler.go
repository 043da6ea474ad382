package handler

import (
	"log/slog"
	"net/http"

	"github.com/escrow-ledger/internal/api_gateway/middleware"
	"github.com/escrow-ledger/internal/api_gateway/service"
	"github.com/escrow-ledger/internal/domain/shared"
	"github.com/escrow-ledger/internal/domain/wallet"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// WalletHandler handles HTTP requests on the acting user's wallet
type WalletHandler struct {
	walletService service.WalletService
	logger        *slog.Logger
}

func NewWalletHandler(logger *slog.Logger, walletService service.WalletService) *WalletHandler {
	return &WalletHandler{walletService: walletService, logger: logger}
}

func (h *WalletHandler) Create(c *gin.Context) {
	var req CreateWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	w, err := h.walletService.CreateWallet(c.Request.Context(), middleware.GetActorID(c), req.Currency)
	if err != nil {
		RespondWithDomainError(c, h.logger, err)
		return
	}
	RespondCreated(c, mapWalletToResponse(w))
}

func (h *WalletHandler) GetBalance(c *gin.Context) {
	b, err := h.walletService.GetBalance(c.Request.Context(), middleware.GetActorID(c))
	if err != nil {
		RespondWithDomainError(c, h.logger, err)
		return
	}
	RespondOK(c, mapBalanceToResponse(b))
}

func (h *WalletHandler) GetSummary(c *gin.Context) {
	s, err := h.walletService.GetSummary(c.Request.Context(), middleware.GetActorID(c))
	if err != nil {
		RespondWithDomainError(c, h.logger, err)
		return
	}
	RespondOK(c, mapSummaryToResponse(s))
}

// GetTransactions lists the wallet history, newest first
func (h *WalletHandler) GetTransactions(c *gin.Context) {
	var q TransactionListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		RespondBadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}

	var filter wallet.TransactionFilter
	if q.Type != "" {
		t := shared.TransactionType(q.Type)
		if !t.Valid() {
			RespondBadRequest(c, "Unknown transaction type: "+q.Type)
			return
		}
		filter.Type = &t
	}
	if q.Status != "" {
		s := shared.TransactionStatus(q.Status)
		filter.Status = &s
	}
	if q.JobID != "" {
		jobID := uuid.MustParse(q.JobID)
		filter.JobID = &jobID
	}

	page := wallet.Pagination{Limit: q.PerPage, Offset: (q.Page - 1) * q.PerPage}
	txs, total, err := h.walletService.GetTransactions(c.Request.Context(), middleware.GetActorID(c), filter, page)
	if err != nil {
		RespondWithDomainError(c, h.logger, err)
		return
	}

	items := make([]TransactionResponse, 0, len(txs))
	for _, tx := range txs {
		items = append(items, mapTransactionToResponse(tx))
	}
	RespondWithPaginatedData(c, http.StatusOK, items, q.Page, q.PerPage, int(total))
}

func (h *WalletHandler) GetTransaction(c *gin.Context) {
	tx, err := h.walletService.GetTransaction(c.Request.Context(), middleware.GetActorID(c), c.Param("reference"))
	if err != nil {
		RespondWithDomainError(c, h.logger, err)
		return
	}
	RespondOK(c, mapTransactionToResponse(tx))
}

func (h *WalletHandler) Fund(c *gin.Context) {
	var req MoneyMovementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	tx, err := h.walletService.Fund(c.Request.Context(), middleware.GetActorID(c), req.Amount, referenceOrNew(req.Reference))
	if err != nil {
		RespondWithDomainError(c, h.logger, err)
		return
	}
	RespondCreated(c, mapTransactionToResponse(tx))
}

func (h *WalletHandler) Withdraw(c *gin.Context) {
	var req MoneyMovementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	tx, err := h.walletService.Withdraw(c.Request.Context(), middleware.GetActorID(c), req.Amount, referenceOrNew(req.Reference))
	if err != nil {
		RespondWithDomainError(c, h.logger, err)
		return
	}
	RespondCreated(c, mapTransactionToResponse(tx))
}

func (h *WalletHandler) Transfer(c *gin.Context) {
	var req TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	res, err := h.walletService.Transfer(c.Request.Context(), middleware.GetActorID(c), uuid.MustParse(req.RecipientID),
		req.Amount, referenceOrNew(req.Reference), req.Description)
	if err != nil {
		RespondWithDomainError(c, h.logger, err)
		return
	}
	RespondCreated(c, mapTransferToResponse(res))
}

func (h *WalletHandler) QuoteFee(c *gin.Context) {
	var q FeeQuoteQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		RespondBadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}

	quote, err := h.walletService.QuoteFee(c.Request.Context(), shared.TransactionType(q.Type), q.Amount)
	if err != nil {
		RespondWithDomainError(c, h.logger, err)
		return
	}
	RespondOK(c, mapFeeQuoteToResponse(quote))
}

func referenceOrNew(reference string) string {
	if reference == "" {
		return wallet.GenerateReference()
	}
	return reference
}
