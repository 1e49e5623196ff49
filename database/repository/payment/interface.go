// File: database/repository/payment/interface.go
package paymentRepo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"slotify/database"
	"slotify/models"
)

type PaymentRepository interface {
	Create(ctx context.Context, payment *models.Payment) error
	// Replace swaps the document with the given id for the new payment,
	// superseding a dead hold without leaving a second row per booking.
	Replace(ctx context.Context, id string, payment *models.Payment) error
	GetByID(ctx context.Context, id string) (*models.Payment, error)
	GetByBookingID(ctx context.Context, bookingID string) (*models.Payment, error)
	GetByGatewayID(ctx context.Context, gatewayID string) (*models.Payment, error)
	// UpdateFromGateway records the latest gateway status alongside the
	// mapped local status and an optional paid_at stamp.
	UpdateFromGateway(ctx context.Context, id, gatewayStatus string, status models.PaymentStatus, paidAt *time.Time) error
	// UpdateStatusIf moves the payment to the new status only when it
	// currently holds the expected one; extra fields are set alongside.
	UpdateStatusIf(ctx context.Context, id string, from, to models.PaymentStatus, extra map[string]any) (bool, error)
}

type mongoPaymentRepo struct {
	collection *mongo.Collection
}

// NewMongoPaymentRepo constructs a new MongoDB PaymentRepository.
func NewMongoPaymentRepo() PaymentRepository {
	db := database.MongoClient.Database("slotify")
	return &mongoPaymentRepo{collection: db.Collection("payments")}
}
