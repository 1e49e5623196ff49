// File: database/repository/payment/crud.go
package paymentRepo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"slotify/models"
)

func (r *mongoPaymentRepo) Create(ctx context.Context, payment *models.Payment) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := r.collection.InsertOne(ctx, payment)
	return err
}

func (r *mongoPaymentRepo) Replace(ctx context.Context, id string, payment *models.Payment) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := r.collection.ReplaceOne(ctx, bson.M{"id": id}, payment)
	return err
}

func (r *mongoPaymentRepo) GetByID(ctx context.Context, id string) (*models.Payment, error) {
	return r.findOne(ctx, bson.M{"id": id})
}

func (r *mongoPaymentRepo) GetByBookingID(ctx context.Context, bookingID string) (*models.Payment, error) {
	return r.findOne(ctx, bson.M{"booking_id": bookingID})
}

func (r *mongoPaymentRepo) GetByGatewayID(ctx context.Context, gatewayID string) (*models.Payment, error) {
	return r.findOne(ctx, bson.M{"gateway_payment_id": gatewayID})
}

func (r *mongoPaymentRepo) findOne(ctx context.Context, filter bson.M) (*models.Payment, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var p models.Payment
	err := r.collection.FindOne(ctx, filter).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *mongoPaymentRepo) UpdateFromGateway(ctx context.Context, id, gatewayStatus string, status models.PaymentStatus, paidAt *time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	set := bson.M{
		"gateway_status": gatewayStatus,
		"status":         status,
		"updated_at":     time.Now().UTC(),
	}
	if paidAt != nil {
		set["paid_at"] = *paidAt
	}

	_, err := r.collection.UpdateOne(ctx, bson.M{"id": id}, bson.M{"$set": set})
	return err
}

func (r *mongoPaymentRepo) UpdateStatusIf(ctx context.Context, id string, from, to models.PaymentStatus, extra map[string]any) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	set := bson.M{"status": to, "updated_at": time.Now().UTC()}
	for k, v := range extra {
		set[k] = v
	}

	res, err := r.collection.UpdateOne(ctx,
		bson.M{"id": id, "status": from},
		bson.M{"$set": set},
	)
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}
