// File: database/repository/booking/transaction.go
package bookingRepo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"slotify/models"
)

// ReserveSlot inserts the booking row and flips the slot from available
// to booked inside one transaction. A duplicate-key error from the
// partial unique index, or a guard miss on the slot state, both surface
// as ErrSlotTaken: a concurrent writer won.
func (r *mongoBookingRepo) ReserveSlot(ctx context.Context, booking *models.Booking) error {
	return r.withSlotTransaction(ctx, booking.CalendarDayID, booking.SlotTime, func(sc mongo.SessionContext) error {
		if _, err := r.bookings.InsertOne(sc, booking); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return ErrSlotTaken
			}
			return fmt.Errorf("insert booking failed: %w", err)
		}
		return nil
	})
}

// RebookCancelled revives a cancelled booking with a fresh price snapshot
// and re-takes the slot, atomically with the slot flip.
func (r *mongoBookingRepo) RebookCancelled(ctx context.Context, booking *models.Booking, price models.Amount) error {
	return r.withSlotTransaction(ctx, booking.CalendarDayID, booking.SlotTime, func(sc mongo.SessionContext) error {
		res, err := r.bookings.UpdateOne(sc,
			bson.M{"id": booking.ID, "status": models.BookingCancelled},
			bson.M{"$set": bson.M{
				"status":     models.BookingPending,
				"price":      price,
				"updated_at": time.Now().UTC(),
			}},
		)
		if err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return ErrSlotTaken
			}
			return fmt.Errorf("revive booking failed: %w", err)
		}
		if res.MatchedCount == 0 {
			return ErrSlotTaken
		}
		return nil
	})
}

// withSlotTransaction runs fn and the available->booked slot flip in a
// single mongo transaction, aborting both on any failure.
func (r *mongoBookingRepo) withSlotTransaction(ctx context.Context, dayID, slotTime string, fn func(sc mongo.SessionContext) error) error {
	client := r.bookings.Database().Client()
	sess, err := client.StartSession()
	if err != nil {
		return fmt.Errorf("could not start mongo session: %w", err)
	}
	defer sess.EndSession(ctx)

	txnFn := func(sc mongo.SessionContext) error {
		if err := fn(sc); err != nil {
			return err
		}

		res, err := r.days.UpdateOne(sc,
			bson.M{"id": dayID, "slots." + slotTime: models.SlotAvailable},
			bson.M{"$set": bson.M{"slots." + slotTime: models.SlotBooked, "updated_at": time.Now().UTC()}},
		)
		if err != nil {
			return fmt.Errorf("flip slot failed: %w", err)
		}
		if res.MatchedCount == 0 {
			return ErrSlotTaken
		}
		return nil
	}

	if err := mongo.WithSession(ctx, sess, func(sc mongo.SessionContext) error {
		if err := sc.StartTransaction(); err != nil {
			return err
		}
		if err := txnFn(sc); err != nil {
			_ = sc.AbortTransaction(sc)
			return err
		}
		return sc.CommitTransaction(sc)
	}); err != nil {
		return err
	}

	return nil
}
