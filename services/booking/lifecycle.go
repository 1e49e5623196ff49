// File: services/booking/lifecycle.go
package booking

import (
	"context"
	"time"

	"go.uber.org/zap"

	"slotify/models"
)

func (s *DefaultBookingService) Cancel(ctx context.Context, bookingID, clientID, reason string) error {
	b, err := s.GetBooking(ctx, bookingID)
	if err != nil {
		return err
	}
	if clientID != b.ClientID {
		return models.NewPermissionDenied("only the owning client may cancel a booking")
	}
	if b.Status.Terminal() {
		return models.NewInvalidTransition("booking is already " + string(b.Status))
	}
	return s.cancelBooking(ctx, b, reason, b.ProviderID)
}

// cancelBooking is the shared cancel path: status-guarded move, slot
// release, refund, and a notice to the party that did not cancel.
func (s *DefaultBookingService) cancelBooking(ctx context.Context, b *models.Booking, reason, recipientID string) error {
	now := time.Now().UTC()
	moved, err := s.Repo.UpdateStatusIf(ctx, b.ID, b.Status, models.BookingCancelled, map[string]any{
		"cancel_reason": reason,
		"cancelled_at":  now,
	})
	if err != nil {
		return err
	}
	if !moved {
		return models.NewConflict("booking changed concurrently, retry")
	}

	s.freeSlot(ctx, b.CalendarDayID, b.SlotTime)

	if err := s.Payments.RefundOrCancel(ctx, b.ID); err != nil {
		// The booking is cancelled either way; the sweep or a manual
		// retry picks up the refund.
		s.Logger.Error("refund after cancel failed",
			zap.String("booking_id", b.ID), zap.Error(err))
	}

	s.notify(ctx, recipientID, models.TemplateBookingCancelled, map[string]string{
		"booking_id": b.ID,
		"reason":     reason,
	})

	s.Logger.Info("booking cancelled",
		zap.String("booking_id", b.ID),
		zap.String("reason", reason))
	return nil
}

func (s *DefaultBookingService) Decide(ctx context.Context, bookingID, providerID string, accept bool, reason string) error {
	b, err := s.GetBooking(ctx, bookingID)
	if err != nil {
		return err
	}
	if providerID != b.ProviderID {
		return models.NewPermissionDenied("only the provider may decide on a booking")
	}
	if b.Status != models.BookingPending {
		return models.NewInvalidTransition("booking is not awaiting a decision")
	}

	if !accept {
		if reason == "" {
			reason = "rejected by provider"
		}
		return s.cancelBooking(ctx, b, reason, b.ClientID)
	}

	moved, err := s.Repo.UpdateStatusIf(ctx, b.ID, models.BookingPending, models.BookingConfirmed, nil)
	if err != nil {
		return err
	}
	if !moved {
		return models.NewConflict("booking changed concurrently, retry")
	}

	s.Logger.Info("booking confirmed", zap.String("booking_id", b.ID))
	return nil
}

func (s *DefaultBookingService) MarkReady(ctx context.Context, bookingID, providerID string) error {
	b, err := s.GetBooking(ctx, bookingID)
	if err != nil {
		return err
	}
	if providerID != b.ProviderID {
		return models.NewPermissionDenied("only the provider may mark the work ready")
	}
	if b.Status != models.BookingConfirmed {
		return models.NewInvalidTransition("booking is not confirmed")
	}

	now := time.Now().UTC()
	moved, err := s.Repo.UpdateStatusIf(ctx, b.ID, models.BookingConfirmed, models.BookingReady, map[string]any{
		"ready_at": now,
	})
	if err != nil {
		return err
	}
	if !moved {
		return models.NewConflict("booking changed concurrently, retry")
	}

	s.Logger.Info("booking ready", zap.String("booking_id", b.ID))
	return nil
}

func (s *DefaultBookingService) ConfirmCompletion(ctx context.Context, bookingID, clientID string) error {
	b, err := s.GetBooking(ctx, bookingID)
	if err != nil {
		return err
	}
	if clientID != b.ClientID {
		return models.NewPermissionDenied("only the client may confirm completion")
	}
	if b.Status != models.BookingReady {
		return models.NewInvalidTransition("booking is not ready")
	}

	moved, err := s.Repo.UpdateStatusIf(ctx, b.ID, models.BookingReady, models.BookingCompleted, nil)
	if err != nil {
		return err
	}
	if !moved {
		return models.NewConflict("booking changed concurrently, retry")
	}

	// Payout only after the completion is durable.
	if err := s.Payments.ReleaseOnCompletion(ctx, b.ID); err != nil {
		s.Logger.Error("capture after completion failed",
			zap.String("booking_id", b.ID), zap.Error(err))
		return err
	}

	s.Logger.Info("booking completed", zap.String("booking_id", b.ID))
	return nil
}

// freeSlot flips the slot back to available. A guard miss is fine: an
// expired day sweep may have already retired the slot.
func (s *DefaultBookingService) freeSlot(ctx context.Context, dayID, slotTime string) {
	freed, err := s.Calendar.SetSlotStateIf(ctx, dayID, slotTime, models.SlotBooked, models.SlotAvailable)
	if err != nil {
		s.Logger.Error("failed to free slot",
			zap.String("day_id", dayID), zap.String("slot_time", slotTime), zap.Error(err))
		return
	}
	if !freed {
		s.Logger.Warn("slot was not in booked state when freeing",
			zap.String("day_id", dayID), zap.String("slot_time", slotTime))
	}
}

func (s *DefaultBookingService) notify(ctx context.Context, recipientID, templateID string, params map[string]string) {
	if s.Notifier == nil {
		return
	}
	err := s.Notifier.Send(ctx, models.Notice{
		RecipientID: recipientID,
		TemplateID:  templateID,
		Params:      params,
	})
	if err != nil {
		s.Logger.Warn("failed to send notice",
			zap.String("recipient_id", recipientID),
			zap.String("template", templateID),
			zap.Error(err))
	}
}
