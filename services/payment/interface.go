// File: services/payment/interface.go
package payment

import (
	"context"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	bookingRepo "slotify/database/repository/booking"
	paymentRepo "slotify/database/repository/payment"
	"slotify/models"
)

// WebhookEvent is the gateway's push notification, decoded from the raw
// body after its signature has been verified.
type WebhookEvent struct {
	Event  string `json:"event"`
	Object struct {
		ID     string `json:"id"`
		Status string `json:"status"`
		Paid   bool   `json:"paid"`
	} `json:"object"`
}

// TaskEnqueuer is the slice of asynq.Client the orchestrator uses.
type TaskEnqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// PaymentService orchestrates escrow holds over the bookings they pay
// for. Money only moves through the gateway; the local payment row is a
// projection of gateway state plus the settlement breakdown.
type PaymentService interface {
	// CreatePayment opens (or returns the already-open) hold for a
	// booking awaiting payment. Only the owning client may pay; a
	// booking with a captured payment conflicts.
	CreatePayment(ctx context.Context, bookingID, clientID, returnURL string) (*models.Payment, error)
	GetPayment(ctx context.Context, id string) (*models.Payment, error)
	// HandleWebhook applies one verified gateway event. Replays and
	// out-of-order deliveries are absorbed by status guards.
	HandleWebhook(ctx context.Context, event *WebhookEvent) error
	// ReleaseOnCompletion schedules capture and escrow close for a
	// completed booking, attempting the capture inline when the gateway
	// is reachable. The queued task retries whatever the inline attempt
	// could not finish.
	ReleaseOnCompletion(ctx context.Context, bookingID string) error
	// RefundOrCancel returns held or captured funds to the client,
	// choosing cancel vs refund from fresh gateway state. A booking
	// without a payment is a no-op.
	RefundOrCancel(ctx context.Context, bookingID string) error
	// SettleDispute moves funds per an arbitrator verdict.
	SettleDispute(ctx context.Context, paymentID string, winner models.Winner) error
	// CaptureAndClose captures the hold if still needed, closes the
	// escrow deal releasing the seller payout, and notifies the seller.
	CaptureAndClose(ctx context.Context, paymentID string) error
}

// DefaultPaymentService is the production PaymentService.
type DefaultPaymentService struct {
	Repo     paymentRepo.PaymentRepository
	Bookings bookingRepo.BookingRepository
	Gateway  EscrowGateway
	Tasks    TaskEnqueuer
	FeeBP    int64
	Currency string
	Logger   *zap.Logger
}

func NewPaymentService(repo paymentRepo.PaymentRepository, bookings bookingRepo.BookingRepository, gateway EscrowGateway, tasks TaskEnqueuer, feeBP int64, logger *zap.Logger) *DefaultPaymentService {
	return &DefaultPaymentService{
		Repo:     repo,
		Bookings: bookings,
		Gateway:  gateway,
		Tasks:    tasks,
		FeeBP:    feeBP,
		Currency: "RUB",
		Logger:   logger,
	}
}
