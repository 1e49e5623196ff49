// File: handlers/calendar.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"slotify/services/booking"
)

// CreateDayHandler opens a calendar day with its slot map.
func (hb *HandlerBundle) CreateDayHandler(c *gin.Context) {
	var req booking.CreateDayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}

	day, err := hb.Bookings.CreateDay(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, day)
}

// GetDayHandler returns a calendar day with its current slot states.
func (hb *HandlerBundle) GetDayHandler(c *gin.Context) {
	day, err := hb.Bookings.GetDay(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, day)
}
