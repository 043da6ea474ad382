package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/escrow-ledger/internal/api_gateway/middleware"
	"github.com/escrow-ledger/internal/domain/escrow"
	"github.com/escrow-ledger/internal/domain/shared"
	"github.com/gin-gonic/gin"
)

// Response represents a standard API response
type Response struct {
	Data          interface{} `json:"data,omitempty"`
	Error         *ErrorInfo  `json:"error,omitempty"`
	CorrelationID string      `json:"correlation_id,omitempty"`
	Meta          *MetaInfo   `json:"meta,omitempty"`
}

// ErrorInfo represents error information in a response. Field names the rejected input
// of a validation error; Retryable marks failures that may succeed when sent again unchanged.
type ErrorInfo struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Field     string `json:"field,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

// MetaInfo represents metadata in a response
type MetaInfo struct {
	Page       int `json:"page,omitempty"`
	PerPage    int `json:"per_page,omitempty"`
	TotalPages int `json:"total_pages,omitempty"`
	TotalItems int `json:"total_items,omitempty"`
}

func write(c *gin.Context, statusCode int, response Response) {
	response.CorrelationID = middleware.GetCorrelationID(c)
	c.JSON(statusCode, response)
}

func RespondWithData(c *gin.Context, statusCode int, data interface{}) {
	write(c, statusCode, Response{Data: data})
}

func RespondWithError(c *gin.Context, statusCode int, info ErrorInfo) {
	write(c, statusCode, Response{Error: &info})
}

// RespondWithPaginatedData sends one page of data with its paging metadata
func RespondWithPaginatedData(c *gin.Context, statusCode int, data interface{}, page, perPage, totalItems int) {
	totalPages := totalItems / perPage
	if totalItems%perPage > 0 {
		totalPages++
	}
	write(c, statusCode, Response{Data: data, Meta: &MetaInfo{
		Page:       page,
		PerPage:    perPage,
		TotalPages: totalPages,
		TotalItems: totalItems,
	}})
}

func RespondOK(c *gin.Context, data interface{}) {
	RespondWithData(c, http.StatusOK, data)
}

func RespondCreated(c *gin.Context, data interface{}) {
	RespondWithData(c, http.StatusCreated, data)
}

func RespondAccepted(c *gin.Context, data interface{}) {
	RespondWithData(c, http.StatusAccepted, data)
}

// RespondBadRequest answers malformed request bodies and parameters
func RespondBadRequest(c *gin.Context, message string) {
	RespondWithError(c, http.StatusBadRequest, ErrorInfo{Code: "BAD_REQUEST", Message: message})
}

// RespondWithDomainError maps an engine error to its HTTP status. Unknown errors are
// logged and answered with a generic 500.
func RespondWithDomainError(c *gin.Context, logger *slog.Logger, err error) {
	var (
		validation shared.ValidationError
		stale      escrow.ErrStaleEscrow
	)
	switch {
	case errors.As(err, &validation):
		RespondWithError(c, http.StatusBadRequest, ErrorInfo{Code: "VALIDATION_ERROR", Message: err.Error(), Field: validation.Field})
	case errors.Is(err, shared.ErrValidation):
		RespondWithError(c, http.StatusBadRequest, ErrorInfo{Code: "VALIDATION_ERROR", Message: err.Error()})
	case errors.Is(err, shared.ErrInsufficientFunds), errors.Is(err, shared.ErrInsufficientAvailableBalance):
		RespondWithError(c, http.StatusPaymentRequired, ErrorInfo{Code: "INSUFFICIENT_FUNDS", Message: err.Error()})
	case errors.Is(err, shared.ErrNotFound):
		RespondWithError(c, http.StatusNotFound, ErrorInfo{Code: "NOT_FOUND", Message: err.Error()})
	case errors.Is(err, shared.ErrUnauthorized):
		RespondWithError(c, http.StatusForbidden, ErrorInfo{Code: "FORBIDDEN", Message: err.Error()})
	case errors.As(err, &stale):
		// another request settled the same escrow first; reading it again shows the outcome
		RespondWithError(c, http.StatusConflict, ErrorInfo{Code: "CONCURRENT_UPDATE", Message: err.Error(), Retryable: true})
	case errors.Is(err, shared.ErrInvalidEscrowTransition), errors.Is(err, shared.ErrInvalidDisputeStatus):
		RespondWithError(c, http.StatusConflict, ErrorInfo{Code: "INVALID_STATE", Message: err.Error()})
	case errors.Is(err, shared.ErrDuplicateReference):
		RespondWithError(c, http.StatusConflict, ErrorInfo{Code: "DUPLICATE_REFERENCE", Message: err.Error()})
	case errors.Is(err, shared.ErrTransientStore):
		logger.Warn("Transient store failure", "path", c.Request.URL.Path, "error", err)
		RespondWithError(c, http.StatusServiceUnavailable, ErrorInfo{
			Code:      "SERVICE_UNAVAILABLE",
			Message:   "Temporarily unavailable, retry with the same reference",
			Retryable: true,
		})
	default:
		logger.Error("Request failed", "path", c.Request.URL.Path, "error", err)
		RespondWithError(c, http.StatusInternalServerError, ErrorInfo{Code: "INTERNAL_SERVER_ERROR", Message: "An internal server error occurred"})
	}
}
