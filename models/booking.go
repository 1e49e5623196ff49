package models

import "time"

// BookingStatus is the lifecycle status of a reservation.
type BookingStatus string

const (
	BookingWaitingPayment BookingStatus = "waiting_payment"
	BookingPending        BookingStatus = "pending"
	BookingConfirmed      BookingStatus = "confirmed"
	BookingReady          BookingStatus = "ready"
	BookingCompleted      BookingStatus = "completed"
	BookingCancelled      BookingStatus = "cancelled"
	BookingExpired        BookingStatus = "expired"
)

// bookingTransitions is the full transition table. Statuses absent from a
// set are unreachable from that state through normal operations; dispute
// resolution forces terminals through its own status-guarded path.
var bookingTransitions = map[BookingStatus]map[BookingStatus]bool{
	BookingWaitingPayment: {BookingPending: true, BookingCancelled: true, BookingExpired: true},
	BookingPending:        {BookingConfirmed: true, BookingCancelled: true},
	BookingConfirmed:      {BookingReady: true, BookingCancelled: true},
	BookingReady:          {BookingCompleted: true, BookingCancelled: true},
	BookingCompleted:      {},
	BookingCancelled:      {},
	BookingExpired:        {},
}

// CanTransition reports whether from -> to is a legal lifecycle move.
func CanTransition(from, to BookingStatus) bool {
	return bookingTransitions[from][to]
}

// Terminal reports whether the status accepts no further transitions.
func (s BookingStatus) Terminal() bool {
	switch s {
	case BookingCompleted, BookingCancelled, BookingExpired:
		return true
	}
	return false
}

// ActiveBookingStatuses is the set of statuses that hold a slot. The
// ledger enforces uniqueness of (calendar_day_id, slot_time) over this set.
func ActiveBookingStatuses() []BookingStatus {
	return []BookingStatus{BookingWaitingPayment, BookingPending, BookingConfirmed, BookingReady}
}

// Booking is one ledger entry per reservation attempt. Price is
// snapshotted at booking time and immutable afterwards (except when a
// cancelled booking is revived, which re-snapshots it).
type Booking struct {
	ID            string        `bson:"id" json:"id"`
	ClientID      string        `bson:"client_id" json:"client_id"`
	ServiceID     string        `bson:"service_id" json:"service_id"`
	ProviderID    string        `bson:"provider_id" json:"provider_id"`
	CalendarDayID string        `bson:"calendar_day_id" json:"calendar_day_id"`
	SlotTime      string        `bson:"slot_time" json:"slot_time"`
	Price         Amount        `bson:"price" json:"price"`
	Status        BookingStatus `bson:"status" json:"status"`
	CancelReason  string        `bson:"cancel_reason,omitempty" json:"cancel_reason,omitempty"`
	CreatedAt     time.Time     `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time     `bson:"updated_at" json:"updated_at"`
	ReadyAt       *time.Time    `bson:"ready_at,omitempty" json:"ready_at,omitempty"`
	CancelledAt   *time.Time    `bson:"cancelled_at,omitempty" json:"cancelled_at,omitempty"`
}
