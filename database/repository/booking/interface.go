// File: database/repository/booking/interface.go
package bookingRepo

import (
	"context"
	"errors"
	"time"

	"slotify/database"
	"slotify/models"

	"go.mongodb.org/mongo-driver/mongo"
)

// ErrSlotTaken is returned by ReserveSlot and RebookCancelled when a
// concurrent writer won the slot first (guard miss or duplicate key).
var ErrSlotTaken = errors.New("slot already taken")

type BookingRepository interface {
	GetByID(ctx context.Context, id string) (*models.Booking, error)
	FindByDaySlotClient(ctx context.Context, dayID, slotTime, clientID string) (*models.Booking, error)
	// ReserveSlot atomically inserts the booking and flips the slot from
	// available to booked; both writes land or neither does.
	ReserveSlot(ctx context.Context, booking *models.Booking) error
	// RebookCancelled revives a cancelled booking for the same slot with a
	// fresh price snapshot and flips the slot back to booked.
	RebookCancelled(ctx context.Context, booking *models.Booking, price models.Amount) error
	// UpdateStatusIf moves the booking to the new status only when it
	// currently holds the expected one; extra fields are set alongside.
	UpdateStatusIf(ctx context.Context, id string, from, to models.BookingStatus, extra map[string]any) (bool, error)
	// ForceTerminalIfActive moves any non-terminal booking to a terminal
	// status; used by dispute resolution only.
	ForceTerminalIfActive(ctx context.Context, id string, to models.BookingStatus) (bool, error)
	// ListStale returns bookings in the given status created before cutoff.
	ListStale(ctx context.Context, status models.BookingStatus, cutoff time.Time) ([]models.Booking, error)
	// ListReadyBefore returns ready bookings whose ready_at (or created_at
	// when ready_at is absent) is before cutoff.
	ListReadyBefore(ctx context.Context, cutoff time.Time) ([]models.Booking, error)
}

type mongoBookingRepo struct {
	bookings *mongo.Collection
	days     *mongo.Collection
}

// NewMongoBookingRepo constructs a new MongoDB BookingRepository.
func NewMongoBookingRepo() BookingRepository {
	db := database.MongoClient.Database("slotify")
	return &mongoBookingRepo{
		bookings: db.Collection("bookings"),
		days:     db.Collection("calendar_days"),
	}
}
