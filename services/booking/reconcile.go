// File: services/booking/reconcile.go
package booking

import (
	"context"
	"time"

	"go.uber.org/zap"

	"slotify/models"
)

// ExpirePendingPayments expires bookings whose client never finished
// paying within the timeout. One cutoff is computed up front so a long
// run cannot expire bookings that were young when the sweep started.
func (s *DefaultBookingService) ExpirePendingPayments(ctx context.Context, now time.Time) (int, error) {
	cutoff := now.Add(-s.PendingPaymentTimeout)
	stale, err := s.Repo.ListStale(ctx, models.BookingWaitingPayment, cutoff)
	if err != nil {
		return 0, err
	}

	expired := 0
	for i := range stale {
		b := &stale[i]
		moved, err := s.Repo.UpdateStatusIf(ctx, b.ID, models.BookingWaitingPayment, models.BookingExpired, nil)
		if err != nil {
			s.Logger.Error("expire sweep: status update failed",
				zap.String("booking_id", b.ID), zap.Error(err))
			continue
		}
		if !moved {
			// Paid or cancelled between the list and the update.
			continue
		}
		expired++

		s.freeSlot(ctx, b.CalendarDayID, b.SlotTime)
		if err := s.Payments.RefundOrCancel(ctx, b.ID); err != nil {
			s.Logger.Error("expire sweep: hold cancel failed",
				zap.String("booking_id", b.ID), zap.Error(err))
		}
		s.notify(ctx, b.ClientID, models.TemplateBookingExpired, map[string]string{
			"booking_id": b.ID,
		})
	}

	if expired > 0 {
		s.Logger.Info("expired unpaid bookings", zap.Int("count", expired))
	}
	return expired, nil
}

// AutoCancelUnaccepted cancels paid bookings the provider ignored.
func (s *DefaultBookingService) AutoCancelUnaccepted(ctx context.Context, now time.Time) (int, error) {
	cutoff := now.Add(-s.AutoCancelAfter)
	stale, err := s.Repo.ListStale(ctx, models.BookingPending, cutoff)
	if err != nil {
		return 0, err
	}

	cancelled := 0
	for i := range stale {
		b := &stale[i]
		moved, err := s.Repo.UpdateStatusIf(ctx, b.ID, models.BookingPending, models.BookingCancelled, map[string]any{
			"cancel_reason": "provider did not respond",
			"cancelled_at":  now,
		})
		if err != nil {
			s.Logger.Error("auto-cancel sweep: status update failed",
				zap.String("booking_id", b.ID), zap.Error(err))
			continue
		}
		if !moved {
			continue
		}
		cancelled++

		s.freeSlot(ctx, b.CalendarDayID, b.SlotTime)
		if err := s.Payments.RefundOrCancel(ctx, b.ID); err != nil {
			s.Logger.Error("auto-cancel sweep: refund failed",
				zap.String("booking_id", b.ID), zap.Error(err))
		}
		s.notify(ctx, b.ClientID, models.TemplateBookingCancelled, map[string]string{
			"booking_id": b.ID,
			"reason":     "provider did not respond",
		})
	}

	if cancelled > 0 {
		s.Logger.Info("auto-cancelled unaccepted bookings", zap.Int("count", cancelled))
	}
	return cancelled, nil
}

// AutoCaptureReady completes ready bookings the client never signed off
// on, releasing the provider's payout.
func (s *DefaultBookingService) AutoCaptureReady(ctx context.Context, now time.Time) (int, error) {
	cutoff := now.Add(-s.AutoCaptureAfter)
	stale, err := s.Repo.ListReadyBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	completed := 0
	for i := range stale {
		b := &stale[i]
		moved, err := s.Repo.UpdateStatusIf(ctx, b.ID, models.BookingReady, models.BookingCompleted, nil)
		if err != nil {
			s.Logger.Error("auto-capture sweep: status update failed",
				zap.String("booking_id", b.ID), zap.Error(err))
			continue
		}
		if !moved {
			continue
		}
		completed++

		if err := s.Payments.ReleaseOnCompletion(ctx, b.ID); err != nil {
			s.Logger.Error("auto-capture sweep: capture failed",
				zap.String("booking_id", b.ID), zap.Error(err))
		}
	}

	if completed > 0 {
		s.Logger.Info("auto-captured ready bookings", zap.Int("count", completed))
	}
	return completed, nil
}

// ExpireCalendarDays retires slots on days whose date has passed, so a
// cancelled booking can never free a slot back into the past.
func (s *DefaultBookingService) ExpireCalendarDays(ctx context.Context, now time.Time) (int, error) {
	today := now.UTC().Format(models.DateLayout)
	days, err := s.Calendar.ListExpired(ctx, today)
	if err != nil {
		return 0, err
	}

	retired := 0
	for i := range days {
		day := &days[i]
		token, err := s.Locker.Acquire(ctx, day.ID)
		if err != nil {
			s.Logger.Error("day expiry sweep: lock failed",
				zap.String("day_id", day.ID), zap.Error(err))
			continue
		}

		// Every slot goes to break, which also drops the day out of the
		// next ListExpired pass.
		slots := make(map[string]models.SlotState, len(day.Slots))
		for slotTime := range day.Slots {
			slots[slotTime] = models.SlotBreak
		}
		if err := s.Calendar.ReplaceSlots(ctx, day.ID, slots); err != nil {
			s.Logger.Error("day expiry sweep: slot update failed",
				zap.String("day_id", day.ID), zap.Error(err))
		} else {
			retired++
		}

		if err := s.Locker.Release(ctx, day.ID, token); err != nil {
			s.Logger.Warn("day expiry sweep: unlock failed",
				zap.String("day_id", day.ID), zap.Error(err))
		}
	}

	if retired > 0 {
		s.Logger.Info("retired expired calendar days", zap.Int("count", retired))
	}
	return retired, nil
}
