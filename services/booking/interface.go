// File: services/booking/interface.go
package booking

import (
	"context"
	"time"

	"go.uber.org/zap"

	bookingRepo "slotify/database/repository/booking"
	calendarRepo "slotify/database/repository/calendar"
	"slotify/models"
	"slotify/services/notification"
	"slotify/services/payment"
)

// CreateDayRequest opens a calendar day with its full slot map. Slot
// keys are fixed for the life of the day.
type CreateDayRequest struct {
	ServiceID  string                      `json:"service_id" binding:"required"`
	ProviderID string                      `json:"provider_id" binding:"required"`
	Date       string                      `json:"date" binding:"required"`
	Slots      map[string]models.SlotState `json:"slots" binding:"required"`
}

// ReserveRequest books one slot for a client. Price is the service price
// quoted by the catalog at request time; it is snapshotted onto the
// booking.
type ReserveRequest struct {
	ClientID      string        `json:"client_id" binding:"required"`
	ServiceID     string        `json:"service_id" binding:"required"`
	CalendarDayID string        `json:"calendar_day_id" binding:"required"`
	SlotTime      string        `json:"slot_time" binding:"required"`
	Price         models.Amount `json:"price" binding:"required"`
}

// BookingService owns the reservation lifecycle: slot maps, the booking
// status machine, and the reconciliation sweeps that expire what humans
// and webhooks forgot.
type BookingService interface {
	CreateDay(ctx context.Context, req CreateDayRequest) (*models.CalendarDay, error)
	GetDay(ctx context.Context, id string) (*models.CalendarDay, error)

	Reserve(ctx context.Context, req ReserveRequest) (*models.Booking, error)
	GetBooking(ctx context.Context, id string) (*models.Booking, error)
	// Cancel may be called only by the owning client while the booking
	// is active. Held or captured funds go back to the client.
	Cancel(ctx context.Context, bookingID, clientID, reason string) error
	// Decide is the provider accepting or rejecting a paid booking; a
	// rejection cancels it and the client is told the reason.
	Decide(ctx context.Context, bookingID, providerID string, accept bool, reason string) error
	// MarkReady is the provider declaring the work done.
	MarkReady(ctx context.Context, bookingID, providerID string) error
	// ConfirmCompletion is the client signing off, which releases the
	// escrow hold to the provider.
	ConfirmCompletion(ctx context.Context, bookingID, clientID string) error

	// Sweeps. Each takes the current time once, applies one cutoff to the
	// whole run, and is safe to re-run: every mutation is status-guarded.
	ExpirePendingPayments(ctx context.Context, now time.Time) (int, error)
	AutoCancelUnaccepted(ctx context.Context, now time.Time) (int, error)
	AutoCaptureReady(ctx context.Context, now time.Time) (int, error)
	ExpireCalendarDays(ctx context.Context, now time.Time) (int, error)
}

// DefaultBookingService is the production BookingService.
type DefaultBookingService struct {
	Repo     bookingRepo.BookingRepository
	Calendar calendarRepo.CalendarRepository
	Payments payment.PaymentService
	Locker   DayLocker
	Notifier notification.NotificationService
	Logger   *zap.Logger

	// Reconciliation windows.
	PendingPaymentTimeout time.Duration
	AutoCancelAfter       time.Duration
	AutoCaptureAfter      time.Duration
}

func NewBookingService(
	repo bookingRepo.BookingRepository,
	calendar calendarRepo.CalendarRepository,
	payments payment.PaymentService,
	locker DayLocker,
	notifier notification.NotificationService,
	logger *zap.Logger,
) *DefaultBookingService {
	return &DefaultBookingService{
		Repo:     repo,
		Calendar: calendar,
		Payments: payments,
		Locker:   locker,
		Notifier: notifier,
		Logger:   logger,

		PendingPaymentTimeout: 15 * time.Minute,
		AutoCancelAfter:       48 * time.Hour,
		AutoCaptureAfter:      72 * time.Hour,
	}
}
