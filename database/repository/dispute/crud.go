// File: database/repository/dispute/crud.go
package disputeRepo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"slotify/models"
)

func (r *mongoDisputeRepo) Create(ctx context.Context, dispute *models.Dispute) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := r.collection.InsertOne(ctx, dispute)
	if mongo.IsDuplicateKeyError(err) {
		return ErrOpenDisputeExists
	}
	return err
}

func (r *mongoDisputeRepo) GetByID(ctx context.Context, id string) (*models.Dispute, error) {
	return r.findOne(ctx, bson.M{"id": id})
}

func (r *mongoDisputeRepo) GetOpenByBookingID(ctx context.Context, bookingID string) (*models.Dispute, error) {
	return r.findOne(ctx, bson.M{
		"booking_id": bookingID,
		"status":     bson.M{"$ne": models.DisputeClosed},
	})
}

func (r *mongoDisputeRepo) findOne(ctx context.Context, filter bson.M) (*models.Dispute, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var d models.Dispute
	err := r.collection.FindOne(ctx, filter).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *mongoDisputeRepo) ListWaiting(ctx context.Context) ([]models.Dispute, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	cursor, err := r.collection.Find(ctx, bson.M{"status": models.DisputeWaitForArbitr})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var disputes []models.Dispute
	if err := cursor.All(ctx, &disputes); err != nil {
		return nil, err
	}
	return disputes, nil
}

func (r *mongoDisputeRepo) Take(ctx context.Context, id, arbitrID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	now := time.Now().UTC()
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"id": id, "status": models.DisputeWaitForArbitr},
		bson.M{"$set": bson.M{
			"status":    models.DisputeInProcess,
			"arbitr_id": arbitrID,
			"taken_at":  now,
		}},
	)
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}

func (r *mongoDisputeRepo) Resolve(ctx context.Context, id string, winner models.Winner) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	now := time.Now().UTC()
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"id": id, "status": models.DisputeInProcess},
		bson.M{"$set": bson.M{
			"status":       models.DisputeClosed,
			"winner":       winner,
			"completed_at": now,
		}},
	)
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}
