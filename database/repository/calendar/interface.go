// File: database/repository/calendar/interface.go
package calendarRepo

import (
	"context"

	"slotify/database"
	"slotify/models"

	"go.mongodb.org/mongo-driver/mongo"
)

type CalendarRepository interface {
	Create(ctx context.Context, day *models.CalendarDay) error
	GetByID(ctx context.Context, id string) (*models.CalendarDay, error)
	// ReplaceSlots writes the whole slot map atomically; callers must hold
	// the day's exclusive lock.
	ReplaceSlots(ctx context.Context, id string, slots map[string]models.SlotState) error
	// SetSlotStateIf flips a single slot only when it currently holds the
	// expected state. Returns false when the guard did not match.
	SetSlotStateIf(ctx context.Context, id, slotTime string, from, to models.SlotState) (bool, error)
	// ListExpired returns days whose date is strictly before today
	// ("YYYY-MM-DD") and which still carry at least one non-break slot.
	ListExpired(ctx context.Context, today string) ([]models.CalendarDay, error)
}

type mongoCalendarRepo struct {
	coll *mongo.Collection
}

// NewMongoCalendarRepo constructs a new MongoDB CalendarRepository.
func NewMongoCalendarRepo() CalendarRepository {
	db := database.MongoClient.Database("slotify")
	return &mongoCalendarRepo{
		coll: db.Collection("calendar_days"),
	}
}
