package validation

// IngestTransactionRequest is the payload for POST /api/v1/transactions.
// Only the idempotency key is validated at the boundary; the rest of the
// document stays untyped until the processor maps it.
type IngestTransactionRequest struct {
	ExternalID string `json:"externalId" validate:"required"`
}
