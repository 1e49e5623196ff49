// File: database/repository/dispute/interface.go
package disputeRepo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/mongo"

	"slotify/database"
	"slotify/models"
)

// ErrOpenDisputeExists is returned by Create when the booking already has
// a dispute that is not closed.
var ErrOpenDisputeExists = errors.New("booking already has an open dispute")

type DisputeRepository interface {
	// Create inserts the dispute; the partial unique open-dispute index
	// rejects a second open dispute for the same booking.
	Create(ctx context.Context, dispute *models.Dispute) error
	GetByID(ctx context.Context, id string) (*models.Dispute, error)
	GetOpenByBookingID(ctx context.Context, bookingID string) (*models.Dispute, error)
	ListWaiting(ctx context.Context) ([]models.Dispute, error)
	// Take assigns the dispute to an arbitrator, guarded on the
	// wait_for_arbitr status.
	Take(ctx context.Context, id, arbitrID string) (bool, error)
	// Resolve closes the dispute with a verdict, guarded on in_process.
	Resolve(ctx context.Context, id string, winner models.Winner) (bool, error)
}

type mongoDisputeRepo struct {
	collection *mongo.Collection
}

// NewMongoDisputeRepo constructs a new MongoDB DisputeRepository.
func NewMongoDisputeRepo() DisputeRepository {
	db := database.MongoClient.Database("slotify")
	return &mongoDisputeRepo{collection: db.Collection("disputes")}
}
