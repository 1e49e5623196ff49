package models

// Task type names shared by the services that enqueue background work and
// the worker that handles it.
const (
	TaskSettlementClose   = "settlement:close"
	TaskSettlementDispute = "settlement:dispute"
	TaskNotifySend        = "notify:send"

	TaskReconcileExpirePending = "reconcile:expire_pending"
	TaskReconcileAutoCancel    = "reconcile:auto_cancel"
	TaskReconcileAutoCapture   = "reconcile:auto_capture"
	TaskReconcileExpireDays    = "reconcile:expire_days"
)

// SettlementClosePayload asks the worker to close the escrow deal behind
// a payment. Enqueued only after the booking is durably completed and the
// hold durably captured.
type SettlementClosePayload struct {
	PaymentID string `json:"payment_id"`
}

// DisputeSettlementPayload asks the worker to move funds per a verdict.
type DisputeSettlementPayload struct {
	PaymentID string `json:"payment_id"`
	DisputeID string `json:"dispute_id"`
	Winner    Winner `json:"winner"`
}
