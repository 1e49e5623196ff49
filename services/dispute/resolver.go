// File: services/dispute/resolver.go
package dispute

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	disputeRepo "slotify/database/repository/dispute"
	"slotify/models"
)

func (s *DefaultDisputeService) Open(ctx context.Context, req OpenDisputeRequest) (*models.Dispute, error) {
	b, err := s.Bookings.GetByID(ctx, req.BookingID)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, models.NewNotFound("booking not found")
	}
	if req.ActorID != b.ClientID && req.ActorID != b.ProviderID {
		return nil, models.NewPermissionDenied("only a booking party may open a dispute")
	}
	if b.Status.Terminal() || b.Status == models.BookingWaitingPayment {
		return nil, models.NewInvalidTransition("booking cannot be disputed in status " + string(b.Status))
	}

	d := &models.Dispute{
		ID:        uuid.New().String(),
		ClientID:  b.ClientID,
		MasterID:  b.ProviderID,
		BookingID: b.ID,
		Reason:    req.Reason,
		Status:    models.DisputeWaitForArbitr,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.Repo.Create(ctx, d); err != nil {
		if errors.Is(err, disputeRepo.ErrOpenDisputeExists) {
			return nil, models.NewConflict("booking already has an open dispute")
		}
		return nil, err
	}

	s.Logger.Info("dispute opened",
		zap.String("dispute_id", d.ID),
		zap.String("booking_id", b.ID),
		zap.String("actor_id", req.ActorID))
	return d, nil
}

func (s *DefaultDisputeService) GetDispute(ctx context.Context, id string) (*models.Dispute, error) {
	d, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, models.NewNotFound("dispute not found")
	}
	return d, nil
}

func (s *DefaultDisputeService) ListWaiting(ctx context.Context) ([]models.Dispute, error) {
	return s.Repo.ListWaiting(ctx)
}

func (s *DefaultDisputeService) Take(ctx context.Context, disputeID, arbitrID string) error {
	d, err := s.GetDispute(ctx, disputeID)
	if err != nil {
		return err
	}
	if d.Status != models.DisputeWaitForArbitr {
		return models.NewInvalidTransition("dispute is not awaiting an arbitrator")
	}

	taken, err := s.Repo.Take(ctx, disputeID, arbitrID)
	if err != nil {
		return err
	}
	if !taken {
		return models.NewConflict("dispute was taken by another arbitrator")
	}

	s.Logger.Info("dispute taken",
		zap.String("dispute_id", disputeID),
		zap.String("arbitr_id", arbitrID))
	return nil
}

func (s *DefaultDisputeService) Resolve(ctx context.Context, disputeID, arbitrID string, winner models.Winner) error {
	if !models.ValidWinner(winner) {
		return models.NewValidationError("unknown verdict")
	}

	d, err := s.GetDispute(ctx, disputeID)
	if err != nil {
		return err
	}
	if d.Status == models.DisputeClosed {
		return models.NewConflict("dispute is already resolved")
	}
	if d.Status != models.DisputeInProcess {
		return models.NewInvalidTransition("dispute has no arbitrator yet")
	}
	if d.ArbitrID != arbitrID {
		return models.NewPermissionDenied("only the assigned arbitrator may resolve this dispute")
	}

	// The settlement task goes out before the close: an enqueue failure
	// then leaves the dispute in_process and resolvable again, instead
	// of closed with its money movement lost. The worker re-checks the
	// stored verdict, so a task whose close lost the race is dropped.
	if err := s.enqueueSettlement(ctx, d, winner); err != nil {
		s.Logger.Error("failed to enqueue dispute settlement",
			zap.String("dispute_id", d.ID), zap.Error(err))
		return err
	}

	resolved, err := s.Repo.Resolve(ctx, disputeID, winner)
	if err != nil {
		return err
	}
	if !resolved {
		return models.NewConflict("dispute was resolved concurrently")
	}

	s.forceBookingTerminal(ctx, d, winner)

	s.Logger.Info("dispute resolved",
		zap.String("dispute_id", d.ID),
		zap.String("winner", string(winner)))
	return nil
}

// forceBookingTerminal closes the disputed booking: a client verdict
// cancels it (and frees the slot), any other verdict completes it. A
// guard miss means the booking already reached a terminal on its own.
func (s *DefaultDisputeService) forceBookingTerminal(ctx context.Context, d *models.Dispute, winner models.Winner) {
	terminal := models.BookingCompleted
	if winner == models.WinnerClient {
		terminal = models.BookingCancelled
	}

	forced, err := s.Bookings.ForceTerminalIfActive(ctx, d.BookingID, terminal)
	if err != nil {
		s.Logger.Error("failed to force booking terminal",
			zap.String("booking_id", d.BookingID), zap.Error(err))
		return
	}
	if !forced {
		return
	}

	if terminal == models.BookingCancelled {
		b, err := s.Bookings.GetByID(ctx, d.BookingID)
		if err != nil || b == nil {
			return
		}
		if _, err := s.Calendar.SetSlotStateIf(ctx, b.CalendarDayID, b.SlotTime, models.SlotBooked, models.SlotAvailable); err != nil {
			s.Logger.Error("failed to free disputed slot",
				zap.String("day_id", b.CalendarDayID), zap.Error(err))
		}
	}
}

func (s *DefaultDisputeService) enqueueSettlement(ctx context.Context, d *models.Dispute, winner models.Winner) error {
	p, err := s.Payments.GetByBookingID(ctx, d.BookingID)
	if err != nil {
		return err
	}
	if p == nil {
		s.Logger.Warn("disputed booking has no payment, nothing to settle",
			zap.String("booking_id", d.BookingID))
		return nil
	}

	payload, err := json.Marshal(models.DisputeSettlementPayload{
		PaymentID: p.ID,
		DisputeID: d.ID,
		Winner:    winner,
	})
	if err != nil {
		return err
	}
	_, err = s.Tasks.Enqueue(asynq.NewTask(models.TaskSettlementDispute, payload), asynq.MaxRetry(5))
	return err
}
