// File: handlers/payment.go
package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"slotify/services/payment"
)

// CreatePaymentHandler opens (or returns) the escrow hold for a booking.
func (hb *HandlerBundle) CreatePaymentHandler(c *gin.Context) {
	var req struct {
		BookingID string `json:"booking_id" binding:"required"`
		ClientID  string `json:"client_id" binding:"required"`
		ReturnURL string `json:"return_url" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}

	p, err := hb.Payments.CreatePayment(c.Request.Context(), req.BookingID, req.ClientID, req.ReturnURL)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// GetPaymentHandler returns a payment by id.
func (hb *HandlerBundle) GetPaymentHandler(c *gin.Context) {
	p, err := hb.Payments.GetPayment(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// WebhookHandler ingests gateway events. The signature is checked over
// the raw body before anything is decoded; a bad signature changes no
// state.
func (hb *HandlerBundle) WebhookHandler(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	signature := c.GetHeader("X-Webhook-Signature")
	if !payment.VerifyWebhookSignature(hb.WebhookSecret, body, signature) {
		hb.Logger.Warn("webhook signature mismatch", zap.String("ip", c.ClientIP()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
		return
	}

	var event payment.WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload", "details": err.Error()})
		return
	}

	if err := hb.Payments.HandleWebhook(c.Request.Context(), &event); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "accepted"})
}
