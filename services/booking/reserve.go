// File: services/booking/reserve.go
package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	bookingRepo "slotify/database/repository/booking"
	"slotify/models"
)

func (s *DefaultBookingService) CreateDay(ctx context.Context, req CreateDayRequest) (*models.CalendarDay, error) {
	if !models.ValidDate(req.Date) {
		return nil, models.NewValidationError("date must be YYYY-MM-DD")
	}
	if len(req.Slots) == 0 {
		return nil, models.NewValidationError("slot map must not be empty")
	}
	for slotTime := range req.Slots {
		if !models.ValidSlotTime(slotTime) {
			return nil, models.NewValidationError("slot time must be HH:MM: " + slotTime)
		}
	}

	now := time.Now().UTC()
	day := &models.CalendarDay{
		ID:         uuid.New().String(),
		ServiceID:  req.ServiceID,
		ProviderID: req.ProviderID,
		Date:       req.Date,
		Slots:      req.Slots,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.Calendar.Create(ctx, day); err != nil {
		return nil, err
	}
	return day, nil
}

func (s *DefaultBookingService) GetDay(ctx context.Context, id string) (*models.CalendarDay, error) {
	day, err := s.Calendar.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if day == nil {
		return nil, models.NewNotFound("calendar day not found")
	}
	return day, nil
}

func (s *DefaultBookingService) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	b, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, models.NewNotFound("booking not found")
	}
	return b, nil
}

// Reserve books one slot. The day lock serializes competing writers; the
// slot-state guard inside the reservation transaction and the partial
// unique booking index both backstop it, so even a lost lock cannot
// yield two active bookings for one slot.
func (s *DefaultBookingService) Reserve(ctx context.Context, req ReserveRequest) (*models.Booking, error) {
	if !models.ValidSlotTime(req.SlotTime) {
		return nil, models.NewValidationError("slot time must be HH:MM")
	}
	if req.Price <= 0 {
		return nil, models.NewValidationError("price must be positive")
	}

	token, err := s.Locker.Acquire(ctx, req.CalendarDayID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := s.Locker.Release(context.Background(), req.CalendarDayID, token); err != nil {
			s.Logger.Warn("failed to release day lock", zap.String("day_id", req.CalendarDayID), zap.Error(err))
		}
	}()

	day, err := s.Calendar.GetByID(ctx, req.CalendarDayID)
	if err != nil {
		return nil, err
	}
	if day == nil {
		return nil, models.NewNotFound("calendar day not found")
	}
	if day.ServiceID != req.ServiceID {
		return nil, models.NewValidationError("slot does not belong to the requested service")
	}
	if day.Expired(time.Now()) {
		return nil, models.NewConflict("calendar day has passed")
	}

	state, ok := day.Slots[req.SlotTime]
	if !ok {
		return nil, models.NewNotFound("no such slot on this day")
	}
	if state != models.SlotAvailable {
		return nil, models.NewConflict("slot not available")
	}

	// A client's own cancelled booking for this exact slot is revived
	// instead of duplicated, with a fresh price snapshot.
	prior, err := s.Repo.FindByDaySlotClient(ctx, req.CalendarDayID, req.SlotTime, req.ClientID)
	if err != nil {
		return nil, err
	}
	if prior != nil {
		switch {
		case !prior.Status.Terminal():
			return nil, models.NewConflict("you already hold this slot")
		case prior.Status == models.BookingCancelled:
			if err := s.Repo.RebookCancelled(ctx, prior, req.Price); err != nil {
				if errors.Is(err, bookingRepo.ErrSlotTaken) {
					return nil, models.NewConflict("slot not available")
				}
				return nil, err
			}
			prior.Status = models.BookingPending
			prior.Price = req.Price
			s.Logger.Info("cancelled booking revived",
				zap.String("booking_id", prior.ID),
				zap.String("day_id", req.CalendarDayID),
				zap.String("slot_time", req.SlotTime))
			return prior, nil
		}
		// An expired prior booking does not block a fresh attempt.
	}

	now := time.Now().UTC()
	b := &models.Booking{
		ID:            uuid.New().String(),
		ClientID:      req.ClientID,
		ServiceID:     req.ServiceID,
		ProviderID:    day.ProviderID,
		CalendarDayID: day.ID,
		SlotTime:      req.SlotTime,
		Price:         req.Price,
		Status:        models.BookingWaitingPayment,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.Repo.ReserveSlot(ctx, b); err != nil {
		if errors.Is(err, bookingRepo.ErrSlotTaken) {
			return nil, models.NewConflict("slot not available")
		}
		return nil, err
	}

	s.Logger.Info("slot reserved",
		zap.String("booking_id", b.ID),
		zap.String("day_id", day.ID),
		zap.String("slot_time", req.SlotTime),
		zap.String("client_id", req.ClientID))
	return b, nil
}
