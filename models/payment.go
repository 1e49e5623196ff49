package models

import "time"

// PaymentStatus is the internal status of an escrow payment.
type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "pending"
	PaymentProcessing PaymentStatus = "processing"
	PaymentSucceeded  PaymentStatus = "succeeded"
	PaymentCanceled   PaymentStatus = "canceled"
	PaymentFailed     PaymentStatus = "failed"
)

// Terminal reports whether the payment accepts no further updates.
func (s PaymentStatus) Terminal() bool {
	switch s {
	case PaymentSucceeded, PaymentCanceled, PaymentFailed:
		return true
	}
	return false
}

// Gateway-side statuses we react to.
const (
	GatewayStatusPending           = "pending"
	GatewayStatusWaitingForCapture = "waiting_for_capture"
	GatewayStatusSucceeded         = "succeeded"
	GatewayStatusCanceled          = "canceled"
)

// SettlementMeta is the typed settlement breakdown stored with a payment:
// who gets paid, how much, and which escrow deal holds the funds.
type SettlementMeta struct {
	SellerID    string `bson:"seller_id" json:"seller_id"`
	SellerShare Amount `bson:"seller_share" json:"seller_share"`
	PlatformFee Amount `bson:"platform_fee" json:"platform_fee"`
	EscrowID    string `bson:"escrow_id" json:"escrow_id"`
}

// Payment is one-to-one with a Booking once payment is initiated.
type Payment struct {
	ID               string         `bson:"id" json:"id"`
	BookingID        string         `bson:"booking_id" json:"booking_id"`
	GatewayPaymentID string         `bson:"gateway_payment_id,omitempty" json:"gateway_payment_id,omitempty"`
	GatewayStatus    string         `bson:"gateway_status,omitempty" json:"gateway_status,omitempty"`
	Status           PaymentStatus  `bson:"status" json:"status"`
	Amount           Amount         `bson:"amount" json:"amount"`
	Currency         string         `bson:"currency" json:"currency"`
	Description      string         `bson:"description,omitempty" json:"description,omitempty"`
	ConfirmationURL  string         `bson:"confirmation_url,omitempty" json:"confirmation_url,omitempty"`
	Settlement       SettlementMeta `bson:"settlement" json:"settlement"`
	CreatedAt        time.Time      `bson:"created_at" json:"created_at"`
	UpdatedAt        time.Time      `bson:"updated_at" json:"updated_at"`
	PaidAt           *time.Time     `bson:"paid_at,omitempty" json:"paid_at,omitempty"`
}
