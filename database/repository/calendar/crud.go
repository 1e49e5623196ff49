// File: database/repository/calendar/crud.go
package calendarRepo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"slotify/models"
)

func (r *mongoCalendarRepo) Create(ctx context.Context, day *models.CalendarDay) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if day.ID == "" {
		day.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	day.CreatedAt = now
	day.UpdatedAt = now

	_, err := r.coll.InsertOne(ctx, day)
	return err
}

func (r *mongoCalendarRepo) GetByID(ctx context.Context, id string) (*models.CalendarDay, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var day models.CalendarDay
	err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&day)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &day, nil
}

func (r *mongoCalendarRepo) ReplaceSlots(ctx context.Context, id string, slots map[string]models.SlotState) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := r.coll.UpdateOne(ctx,
		bson.M{"id": id},
		bson.M{"$set": bson.M{"slots": slots, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (r *mongoCalendarRepo) SetSlotStateIf(ctx context.Context, id, slotTime string, from, to models.SlotState) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := r.coll.UpdateOne(ctx,
		bson.M{"id": id, "slots." + slotTime: from},
		bson.M{"$set": bson.M{"slots." + slotTime: to, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}

func (r *mongoCalendarRepo) ListExpired(ctx context.Context, today string) ([]models.CalendarDay, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	// "YYYY-MM-DD" sorts lexicographically, so a string compare is a date compare.
	cursor, err := r.coll.Find(ctx, bson.M{"date": bson.M{"$lt": today}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var all []models.CalendarDay
	if err := cursor.All(ctx, &all); err != nil {
		return nil, err
	}

	var stale []models.CalendarDay
	for _, day := range all {
		for _, state := range day.Slots {
			if state != models.SlotBreak {
				stale = append(stale, day)
				break
			}
		}
	}
	return stale, nil
}
