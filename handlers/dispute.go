// File: handlers/dispute.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"slotify/models"
	"slotify/services/dispute"
)

// OpenDisputeHandler escalates a booking to arbitration.
func (hb *HandlerBundle) OpenDisputeHandler(c *gin.Context) {
	var req dispute.OpenDisputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}

	d, err := hb.Disputes.Open(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, d)
}

// GetDisputeHandler returns a dispute by id.
func (hb *HandlerBundle) GetDisputeHandler(c *gin.Context) {
	d, err := hb.Disputes.GetDispute(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// ListWaitingDisputesHandler returns disputes awaiting an arbitrator.
func (hb *HandlerBundle) ListWaitingDisputesHandler(c *gin.Context) {
	disputes, err := hb.Disputes.ListWaiting(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"disputes": disputes})
}

// TakeDisputeHandler assigns the dispute to the calling arbitrator.
func (hb *HandlerBundle) TakeDisputeHandler(c *gin.Context) {
	var req struct {
		ArbitrID string `json:"arbitr_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}

	if err := hb.Disputes.Take(c.Request.Context(), c.Param("id"), req.ArbitrID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "taken"})
}

// ResolveDisputeHandler records the arbitrator's verdict.
func (hb *HandlerBundle) ResolveDisputeHandler(c *gin.Context) {
	var req struct {
		ArbitrID string        `json:"arbitr_id" binding:"required"`
		Winner   models.Winner `json:"winner" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}

	if err := hb.Disputes.Resolve(c.Request.Context(), c.Param("id"), req.ArbitrID, req.Winner); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "resolved"})
}
