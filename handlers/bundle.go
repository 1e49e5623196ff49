// File: handlers/bundle.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"slotify/models"
	"slotify/services/booking"
	"slotify/services/dispute"
	"slotify/services/payment"
	"slotify/utils"
)

// HandlerBundle wires the HTTP handlers to the services behind them.
type HandlerBundle struct {
	Bookings      booking.BookingService
	Payments      payment.PaymentService
	Disputes      dispute.DisputeService
	WebhookSecret string
	Logger        *zap.Logger
}

func NewHandlerBundle(
	bookings booking.BookingService,
	payments payment.PaymentService,
	disputes dispute.DisputeService,
	webhookSecret string,
	logger *zap.Logger,
) *HandlerBundle {
	return &HandlerBundle{
		Bookings:      bookings,
		Payments:      payments,
		Disputes:      disputes,
		WebhookSecret: webhookSecret,
		Logger:        logger,
	}
}

// respondError maps a domain error to its HTTP status.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch models.CodeOf(err) {
	case models.ErrCodeNotFound:
		status = http.StatusNotFound
	case models.ErrCodeConflict:
		status = http.StatusConflict
	case models.ErrCodeInvalidTransition:
		status = http.StatusUnprocessableEntity
	case models.ErrCodePermissionDenied:
		status = http.StatusForbidden
	case models.ErrCodeGateway:
		status = http.StatusBadGateway
	case models.ErrCodeValidation:
		status = http.StatusBadRequest
	}
	utils.JSONError(c, status, "request failed", err.Error())
}
