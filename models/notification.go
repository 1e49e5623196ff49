package models

// Notice is the plain-data handoff to the notification collaborator.
// The core never formats or delivers messages; it only names the
// recipient, the template and its parameters.
type Notice struct {
	RecipientID string            `json:"recipient_id"`
	TemplateID  string            `json:"template_id"`
	Params      map[string]string `json:"params,omitempty"`
}

// Notification template ids produced by the engine.
const (
	TemplateBookingCancelled = "booking_cancelled"
	TemplateBookingExpired   = "booking_expired"
	TemplatePayoutReleased   = "payout_released"
)
