// File: routes/routes.go
package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"slotify/handlers"
	"slotify/utils"
)

// RegisterCalendarRoutes registers calendar-day endpoints.
func RegisterCalendarRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/days")
	{
		api.POST("", hb.CreateDayHandler)
		api.GET("/:id", hb.GetDayHandler)
	}
}

// RegisterBookingRoutes registers the reservation lifecycle endpoints.
func RegisterBookingRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/bookings")
	{
		api.POST("", hb.ReserveHandler)
		api.GET("/:id", hb.GetBookingHandler)
		api.POST("/:id/cancel", hb.CancelBookingHandler)
		api.POST("/:id/decision", hb.DecideBookingHandler)
		api.POST("/:id/ready", hb.MarkReadyHandler)
		api.POST("/:id/complete", hb.CompleteBookingHandler)
	}
}

// RegisterPaymentRoutes registers payment endpoints, including the
// gateway webhook.
func RegisterPaymentRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/payments")
	{
		api.POST("", hb.CreatePaymentHandler)
		api.GET("/:id", hb.GetPaymentHandler)
		api.POST("/webhook", hb.WebhookHandler)
	}
}

// RegisterDisputeRoutes registers arbitration endpoints.
func RegisterDisputeRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/disputes")
	{
		api.POST("", hb.OpenDisputeHandler)
		api.GET("/waiting", hb.ListWaitingDisputesHandler)
		api.GET("/:id", hb.GetDisputeHandler)
		api.POST("/:id/take", hb.TakeDisputeHandler)
		api.POST("/:id/resolve", hb.ResolveDisputeHandler)
	}
}

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, utils.GetHealthStatus())
	})
}

// RegisterRoutes centralizes registration of all endpoints.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	RegisterCalendarRoutes(r, hb)
	RegisterBookingRoutes(r, hb)
	RegisterPaymentRoutes(r, hb)
	RegisterDisputeRoutes(r, hb)
	RegisterHealthRoute(r)
}
