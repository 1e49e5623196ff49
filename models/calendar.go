package models

import "time"

// SlotState is the state of a single time slot on a calendar day.
type SlotState string

const (
	SlotAvailable   SlotState = "available"
	SlotBooked      SlotState = "booked"
	SlotBreak       SlotState = "break"
	SlotUnavailable SlotState = "unavailable"
)

// DateLayout is the canonical calendar-day date format.
const DateLayout = "2006-01-02"

// SlotTimeLayout is the fixed time-of-day label format for slot keys.
const SlotTimeLayout = "15:04"

// CalendarDay holds the slot map for one (provider-service, date) pair.
// Slot keys present at creation persist for the life of the day; only
// their state values change, and only under the day's exclusive lock.
type CalendarDay struct {
	ID         string               `bson:"id" json:"id"`
	ServiceID  string               `bson:"service_id" json:"service_id"`
	ProviderID string               `bson:"provider_id" json:"provider_id"`
	Date       string               `bson:"date" json:"date"` // "YYYY-MM-DD"
	Slots      map[string]SlotState `bson:"slots" json:"slots"`
	CreatedAt  time.Time            `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time            `bson:"updated_at" json:"updated_at"`
}

// Expired reports whether the day's calendar date is strictly before today.
// Slots on an expired day can never be rebooked.
func (d *CalendarDay) Expired(today time.Time) bool {
	date, err := time.Parse(DateLayout, d.Date)
	if err != nil {
		return false
	}
	y, m, dd := today.UTC().Date()
	return date.Before(time.Date(y, m, dd, 0, 0, 0, 0, time.UTC))
}

// ValidSlotTime reports whether s is a well-formed "HH:MM" slot label.
func ValidSlotTime(s string) bool {
	_, err := time.Parse(SlotTimeLayout, s)
	return err == nil
}

// ValidDate reports whether s is a well-formed "YYYY-MM-DD" date.
func ValidDate(s string) bool {
	_, err := time.Parse(DateLayout, s)
	return err == nil
}
