// File: services/dispute/interface.go
package dispute

import (
	"context"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	bookingRepo "slotify/database/repository/booking"
	calendarRepo "slotify/database/repository/calendar"
	disputeRepo "slotify/database/repository/dispute"
	paymentRepo "slotify/database/repository/payment"
	"slotify/models"
)

// OpenDisputeRequest escalates a booking to arbitration.
type OpenDisputeRequest struct {
	BookingID string `json:"booking_id" binding:"required"`
	ActorID   string `json:"actor_id" binding:"required"`
	Reason    string `json:"reason" binding:"required"`
}

// TaskEnqueuer is the slice of asynq.Client this service uses.
type TaskEnqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// DisputeService runs arbitration over bookings: escalation, arbitrator
// assignment and verdicts. Verdicts force the booking terminal and hand
// the money movement to the settlement worker.
type DisputeService interface {
	Open(ctx context.Context, req OpenDisputeRequest) (*models.Dispute, error)
	GetDispute(ctx context.Context, id string) (*models.Dispute, error)
	ListWaiting(ctx context.Context) ([]models.Dispute, error)
	// Take assigns the dispute to an arbitrator; first caller wins.
	Take(ctx context.Context, disputeID, arbitrID string) error
	// Resolve records the verdict. Only the assigned arbitrator may
	// resolve, and only once.
	Resolve(ctx context.Context, disputeID, arbitrID string, winner models.Winner) error
}

// DefaultDisputeService is the production DisputeService.
type DefaultDisputeService struct {
	Repo     disputeRepo.DisputeRepository
	Bookings bookingRepo.BookingRepository
	Payments paymentRepo.PaymentRepository
	Calendar calendarRepo.CalendarRepository
	Tasks    TaskEnqueuer
	Logger   *zap.Logger
}

func NewDisputeService(
	repo disputeRepo.DisputeRepository,
	bookings bookingRepo.BookingRepository,
	payments paymentRepo.PaymentRepository,
	calendar calendarRepo.CalendarRepository,
	tasks TaskEnqueuer,
	logger *zap.Logger,
) *DefaultDisputeService {
	return &DefaultDisputeService{
		Repo:     repo,
		Bookings: bookings,
		Payments: payments,
		Calendar: calendar,
		Tasks:    tasks,
		Logger:   logger,
	}
}
