package booking

import (
	"context"
	"sync"
	"time"

	"slotify/models"
	"slotify/services/payment"

	bookingRepo "slotify/database/repository/booking"
)

// memStore backs the in-memory repository fakes. It couples bookings and
// slot state under one mutex the way the real transaction couples them
// under one mongo session.
type memStore struct {
	mu       sync.Mutex
	days     map[string]*models.CalendarDay
	bookings map[string]*models.Booking
}

func newMemStore() *memStore {
	return &memStore{
		days:     make(map[string]*models.CalendarDay),
		bookings: make(map[string]*models.Booking),
	}
}

type memBookingRepo struct{ s *memStore }

func (r *memBookingRepo) GetByID(_ context.Context, id string) (*models.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.bookings[id]
	if !ok {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

func (r *memBookingRepo) FindByDaySlotClient(_ context.Context, dayID, slotTime, clientID string) (*models.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, b := range r.s.bookings {
		if b.CalendarDayID == dayID && b.SlotTime == slotTime && b.ClientID == clientID {
			cp := *b
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memBookingRepo) ReserveSlot(_ context.Context, booking *models.Booking) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, b := range r.s.bookings {
		if b.CalendarDayID == booking.CalendarDayID && b.SlotTime == booking.SlotTime && !b.Status.Terminal() {
			return bookingRepo.ErrSlotTaken
		}
	}
	day, ok := r.s.days[booking.CalendarDayID]
	if !ok || day.Slots[booking.SlotTime] != models.SlotAvailable {
		return bookingRepo.ErrSlotTaken
	}

	day.Slots[booking.SlotTime] = models.SlotBooked
	cp := *booking
	r.s.bookings[booking.ID] = &cp
	return nil
}

func (r *memBookingRepo) RebookCancelled(_ context.Context, booking *models.Booking, price models.Amount) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	b, ok := r.s.bookings[booking.ID]
	if !ok || b.Status != models.BookingCancelled {
		return bookingRepo.ErrSlotTaken
	}
	day, ok := r.s.days[b.CalendarDayID]
	if !ok || day.Slots[b.SlotTime] != models.SlotAvailable {
		return bookingRepo.ErrSlotTaken
	}

	day.Slots[b.SlotTime] = models.SlotBooked
	b.Status = models.BookingPending
	b.Price = price
	b.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *memBookingRepo) UpdateStatusIf(_ context.Context, id string, from, to models.BookingStatus, extra map[string]any) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	b, ok := r.s.bookings[id]
	if !ok || b.Status != from {
		return false, nil
	}
	b.Status = to
	b.UpdatedAt = time.Now().UTC()
	if v, ok := extra["cancel_reason"]; ok {
		b.CancelReason = v.(string)
	}
	if v, ok := extra["cancelled_at"]; ok {
		ts := v.(time.Time)
		b.CancelledAt = &ts
	}
	if v, ok := extra["ready_at"]; ok {
		ts := v.(time.Time)
		b.ReadyAt = &ts
	}
	return true, nil
}

func (r *memBookingRepo) ForceTerminalIfActive(_ context.Context, id string, to models.BookingStatus) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	b, ok := r.s.bookings[id]
	if !ok || b.Status.Terminal() {
		return false, nil
	}
	b.Status = to
	b.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (r *memBookingRepo) ListStale(_ context.Context, status models.BookingStatus, cutoff time.Time) ([]models.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []models.Booking
	for _, b := range r.s.bookings {
		if b.Status == status && b.CreatedAt.Before(cutoff) {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (r *memBookingRepo) ListReadyBefore(_ context.Context, cutoff time.Time) ([]models.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []models.Booking
	for _, b := range r.s.bookings {
		if b.Status != models.BookingReady {
			continue
		}
		ts := b.CreatedAt
		if b.ReadyAt != nil {
			ts = *b.ReadyAt
		}
		if ts.Before(cutoff) {
			out = append(out, *b)
		}
	}
	return out, nil
}

type memCalendarRepo struct{ s *memStore }

func (r *memCalendarRepo) Create(_ context.Context, day *models.CalendarDay) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *day
	cp.Slots = make(map[string]models.SlotState, len(day.Slots))
	for k, v := range day.Slots {
		cp.Slots[k] = v
	}
	r.s.days[day.ID] = &cp
	return nil
}

func (r *memCalendarRepo) GetByID(_ context.Context, id string) (*models.CalendarDay, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	day, ok := r.s.days[id]
	if !ok {
		return nil, nil
	}
	cp := *day
	cp.Slots = make(map[string]models.SlotState, len(day.Slots))
	for k, v := range day.Slots {
		cp.Slots[k] = v
	}
	return &cp, nil
}

func (r *memCalendarRepo) ReplaceSlots(_ context.Context, id string, slots map[string]models.SlotState) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	day, ok := r.s.days[id]
	if !ok {
		return nil
	}
	day.Slots = make(map[string]models.SlotState, len(slots))
	for k, v := range slots {
		day.Slots[k] = v
	}
	return nil
}

func (r *memCalendarRepo) SetSlotStateIf(_ context.Context, id, slotTime string, from, to models.SlotState) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	day, ok := r.s.days[id]
	if !ok || day.Slots[slotTime] != from {
		return false, nil
	}
	day.Slots[slotTime] = to
	return true, nil
}

func (r *memCalendarRepo) ListExpired(_ context.Context, today string) ([]models.CalendarDay, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.CalendarDay
	for _, day := range r.s.days {
		if day.Date >= today {
			continue
		}
		for _, state := range day.Slots {
			if state != models.SlotBreak {
				out = append(out, *day)
				break
			}
		}
	}
	return out, nil
}

// fakePayments records which settlement calls the booking flows make.
type fakePayments struct {
	mu          sync.Mutex
	refunded    []string
	released    []string
	failRelease error
}

func (f *fakePayments) CreatePayment(context.Context, string, string, string) (*models.Payment, error) {
	return nil, nil
}

func (f *fakePayments) GetPayment(context.Context, string) (*models.Payment, error) {
	return nil, nil
}

func (f *fakePayments) HandleWebhook(context.Context, *payment.WebhookEvent) error { return nil }

func (f *fakePayments) ReleaseOnCompletion(_ context.Context, bookingID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failRelease != nil {
		return f.failRelease
	}
	f.released = append(f.released, bookingID)
	return nil
}

func (f *fakePayments) RefundOrCancel(_ context.Context, bookingID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refunded = append(f.refunded, bookingID)
	return nil
}

func (f *fakePayments) SettleDispute(context.Context, string, models.Winner) error { return nil }

func (f *fakePayments) CaptureAndClose(context.Context, string) error { return nil }

func (f *fakePayments) refundCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.refunded)
}

func (f *fakePayments) releaseCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.released)
}
