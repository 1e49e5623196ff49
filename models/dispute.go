package models

import "time"

// DisputeStatus tracks a dispute from escalation to verdict.
type DisputeStatus string

const (
	DisputeWaitForArbitr DisputeStatus = "wait_for_arbitr"
	DisputeInProcess     DisputeStatus = "in_process"
	DisputeClosed        DisputeStatus = "closed"
)

// Winner is the arbitrator's verdict on fund distribution.
type Winner string

const (
	WinnerClient Winner = "client"
	WinnerMaster Winner = "master"
	WinnerSplit  Winner = "split"
)

// ValidWinner reports whether w is a known verdict.
func ValidWinner(w Winner) bool {
	switch w {
	case WinnerClient, WinnerMaster, WinnerSplit:
		return true
	}
	return false
}

// Dispute references a booking without owning it. At most one open
// dispute may exist per booking.
type Dispute struct {
	ID          string        `bson:"id" json:"id"`
	ClientID    string        `bson:"client_id" json:"client_id"`
	MasterID    string        `bson:"master_id" json:"master_id"`
	BookingID   string        `bson:"booking_id" json:"booking_id"`
	ArbitrID    string        `bson:"arbitr_id,omitempty" json:"arbitr_id,omitempty"`
	Reason      string        `bson:"reason" json:"reason"`
	Status      DisputeStatus `bson:"status" json:"status"`
	Winner      Winner        `bson:"winner,omitempty" json:"winner,omitempty"`
	CreatedAt   time.Time     `bson:"created_at" json:"created_at"`
	TakenAt     *time.Time    `bson:"taken_at,omitempty" json:"taken_at,omitempty"`
	CompletedAt *time.Time    `bson:"completed_at,omitempty" json:"completed_at,omitempty"`
}
