package api_gateway

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/escrow-ledger/internal/api_gateway/handler"
	"github.com/escrow-ledger/internal/api_gateway/middleware"
	"github.com/gin-gonic/gin"
)

// HealthCheck reports whether a backing dependency is reachable
type HealthCheck func(ctx context.Context) error

type handlers struct {
	wallets  *handler.WalletHandler
	escrows  *handler.EscrowHandler
	disputes *handler.DisputeHandler
}

// setupRouter configures API routes and middleware for the application
func setupRouter(logger *slog.Logger, r *gin.Engine, h handlers, checks map[string]HealthCheck) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CorrelationID())

	// Every v1 call acts on behalf of the X-User-ID user
	v1 := r.Group("/api/v1", middleware.Actor())
	{
		wallets := v1.Group("/wallets")
		{
			wallets.POST("", h.wallets.Create)
			wallets.GET("/balance", h.wallets.GetBalance)
			wallets.GET("/summary", h.wallets.GetSummary)
			wallets.GET("/transactions", h.wallets.GetTransactions)
			wallets.GET("/transactions/:reference", h.wallets.GetTransaction)
			wallets.POST("/fund", h.wallets.Fund)
			wallets.POST("/withdraw", h.wallets.Withdraw)
			wallets.POST("/transfer", h.wallets.Transfer)
			wallets.GET("/fees", h.wallets.QuoteFee)
		}

		escrows := v1.Group("/escrows")
		{
			escrows.POST("", h.escrows.Create)
			escrows.GET("/:id", h.escrows.GetByID)
			escrows.GET("/job/:job_id", h.escrows.GetByJob)
			escrows.POST("/job/:job_id/assign", h.escrows.AssignWorker)
			escrows.POST("/job/:job_id/release", h.escrows.Release)
			escrows.POST("/job/:job_id/complete", h.escrows.Complete)
		}

		disputes := v1.Group("/disputes")
		{
			disputes.POST("", h.disputes.Create)
			disputes.GET("/pending", h.disputes.GetPending)
			disputes.GET("/:id", h.disputes.GetByID)
			disputes.POST("/:id/resolve", h.disputes.Resolve)
			disputes.POST("/:id/confirm", h.disputes.ConfirmEscalation)
		}
	}

	r.GET("/health", healthHandler(checks))
}

// healthHandler answers 503 when any dependency check fails
func healthHandler(checks map[string]HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status, code := "ok", http.StatusOK
		deps := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				deps[name] = err.Error()
				status, code = "degraded", http.StatusServiceUnavailable
				continue
			}
			deps[name] = "ok"
		}

		c.JSON(code, gin.H{"status": status, "dependencies": deps, "timestamp": time.Now().UTC()})
	}
}
