package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/rs/zerolog"

	"github.com/prismo-finance/prismo-ingest/internal/rawstore"
	"github.com/prismo-finance/prismo-ingest/internal/validation"
)

// RecordStore is the subset of the raw record store the API uses.
type RecordStore interface {
	Create(ctx context.Context, externalID string, payload map[string]interface{}) (*rawstore.RawRecord, error)
	Get(ctx context.Context, externalID string) (*rawstore.RawRecord, error)
	ListUnprocessed(ctx context.Context, limit int) ([]*rawstore.RawRecord, error)
	LatestUnprocessed(ctx context.Context) (*rawstore.RawRecord, error)
}

// HandlerConfig groups dependencies for the transactions API.
type HandlerConfig struct {
	Store  RecordStore
	APIKey string
	Logger zerolog.Logger
}

const pendingListLimit = 100

// RegisterTransactionRoutes registers the intake and query routes under
// /api/v1/transactions, all behind API-key auth.
func RegisterTransactionRoutes(r *gin.Engine, cfg HandlerConfig) {
	v := validation.New()

	group := r.Group("/api/v1/transactions")
	group.Use(APIKeyAuth(cfg.APIKey, cfg.Logger))

	group.POST("", func(c *gin.Context) {
		ctx := c.Request.Context()

		var req validation.IngestTransactionRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			// BindAndValidate already wrote a 400
			return
		}

		// The whole submitted body is the raw payload; re-bind it untyped.
		var payload map[string]interface{}
		if err := c.ShouldBindBodyWith(&payload, binding.JSON); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request_body", "msg": err.Error()})
			return
		}

		rec, err := cfg.Store.Create(ctx, req.ExternalID, payload)
		if err != nil {
			if errors.Is(err, rawstore.ErrDuplicateExternalID) {
				c.JSON(http.StatusConflict, gin.H{
					"success": false,
					"message": "transaction already exists",
				})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "intake_failed", "detail": err.Error()})
			return
		}

		cfg.Logger.Info().Str("external_id", rec.ExternalID).Msg("transaction received and queued for processing")

		c.JSON(http.StatusAccepted, gin.H{
			"success":       true,
			"message":       "Transaction received and queued for processing",
			"transactionId": rec.ExternalID,
		})
	})

	group.GET("", func(c *gin.Context) {
		records, err := cfg.Store.ListUnprocessed(c.Request.Context(), pendingListLimit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "list_failed", "detail": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success":      true,
			"transactions": records,
		})
	})

	group.GET("/latest", func(c *gin.Context) {
		rec, err := cfg.Store.LatestUnprocessed(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup_failed", "detail": err.Error()})
			return
		}
		if rec == nil {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"message": "No transactions found",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success":     true,
			"transaction": rec,
		})
	})

	group.GET("/:externalId", func(c *gin.Context) {
		rec, err := cfg.Store.Get(c.Request.Context(), c.Param("externalId"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup_failed", "detail": err.Error()})
			return
		}
		if rec == nil {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"message": "Transaction not found",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success":     true,
			"transaction": rec,
		})
	})
}
