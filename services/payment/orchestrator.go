// File: services/payment/orchestrator.go
package payment

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"slotify/models"
)

func (s *DefaultPaymentService) CreatePayment(ctx context.Context, bookingID, clientID, returnURL string) (*models.Payment, error) {
	b, err := s.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, models.NewNotFound("booking not found")
	}
	if clientID != b.ClientID {
		return nil, models.NewPermissionDenied("only the owning client may pay for a booking")
	}
	if b.Status != models.BookingWaitingPayment {
		return nil, models.NewInvalidTransition("booking is not awaiting payment")
	}

	// Idempotency: an existing non-terminal payment for this booking is
	// the answer, not a duplicate hold. A captured one must never be
	// charged twice.
	existing, err := s.Repo.GetByBookingID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.Status == models.PaymentSucceeded {
			return nil, models.NewConflict("booking is already paid")
		}
		if !existing.Status.Terminal() {
			return existing, nil
		}
	}

	escrowID, err := s.Gateway.OpenEscrow(ctx)
	if err != nil {
		return nil, err
	}

	fee, sellerShare := models.SplitFee(b.Price, s.FeeBP)

	gp, err := s.Gateway.CreateHold(ctx, HoldRequest{
		Amount:      b.Price,
		Currency:    s.Currency,
		Description: "Booking " + b.ID,
		EscrowID:    escrowID,
		SellerShare: sellerShare,
		ReturnURL:   returnURL,
	})
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	p := &models.Payment{
		ID:               uuid.New().String(),
		BookingID:        b.ID,
		GatewayPaymentID: gp.ID,
		GatewayStatus:    gp.Status,
		Status:           models.PaymentPending,
		Amount:           b.Price,
		Currency:         s.Currency,
		Description:      "Booking " + b.ID,
		ConfirmationURL:  gp.ConfirmationURL,
		Settlement: models.SettlementMeta{
			SellerID:    b.ProviderID,
			SellerShare: sellerShare,
			PlatformFee: fee,
			EscrowID:    escrowID,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	// A canceled or failed hold is superseded in place so the booking
	// keeps exactly one payment row.
	if existing != nil {
		err = s.Repo.Replace(ctx, existing.ID, p)
	} else {
		err = s.Repo.Create(ctx, p)
	}
	if err != nil {
		return nil, err
	}

	s.Logger.Info("payment hold opened",
		zap.String("payment_id", p.ID),
		zap.String("booking_id", b.ID),
		zap.String("gateway_payment_id", gp.ID))
	return p, nil
}

func (s *DefaultPaymentService) GetPayment(ctx context.Context, id string) (*models.Payment, error) {
	p, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, models.NewNotFound("payment not found")
	}
	return p, nil
}

func (s *DefaultPaymentService) HandleWebhook(ctx context.Context, event *WebhookEvent) error {
	p, err := s.Repo.GetByGatewayID(ctx, event.Object.ID)
	if err != nil {
		return err
	}
	if p == nil {
		return models.NewNotFound("payment not found for gateway id")
	}

	switch event.Object.Status {
	case models.GatewayStatusWaitingForCapture:
		if p.Status.Terminal() {
			return nil
		}
		now := time.Now().UTC()
		if err := s.Repo.UpdateFromGateway(ctx, p.ID, event.Object.Status, models.PaymentProcessing, &now); err != nil {
			return err
		}
		// Funds are held: the booking moves on to await the provider's
		// decision. A guard miss means the sweep expired it first.
		moved, err := s.Bookings.UpdateStatusIf(ctx, p.BookingID, models.BookingWaitingPayment, models.BookingPending, nil)
		if err != nil {
			return err
		}
		if !moved {
			s.Logger.Warn("hold confirmed for a booking no longer awaiting payment",
				zap.String("booking_id", p.BookingID))
		}
		return nil

	case models.GatewayStatusSucceeded:
		if p.Status == models.PaymentSucceeded {
			return nil
		}
		now := time.Now().UTC()
		if err := s.Repo.UpdateFromGateway(ctx, p.ID, event.Object.Status, models.PaymentSucceeded, &now); err != nil {
			return err
		}
		// A direct capture notification can arrive without the
		// waiting_for_capture step ever being delivered.
		_, err := s.Bookings.UpdateStatusIf(ctx, p.BookingID, models.BookingWaitingPayment, models.BookingPending, nil)
		return err

	case models.GatewayStatusCanceled:
		if p.Status.Terminal() {
			return nil
		}
		// The booking stays in waiting_payment: the client may open a
		// fresh hold, and the expiry sweep retires the booking and frees
		// the slot if they never do.
		return s.Repo.UpdateFromGateway(ctx, p.ID, event.Object.Status, models.PaymentCanceled, nil)

	default:
		s.Logger.Info("ignoring gateway event",
			zap.String("event", event.Event),
			zap.String("status", event.Object.Status))
		return nil
	}
}

func (s *DefaultPaymentService) ReleaseOnCompletion(ctx context.Context, bookingID string) error {
	p, err := s.Repo.GetByBookingID(ctx, bookingID)
	if err != nil {
		return err
	}
	if p == nil {
		return models.NewNotFound("no payment for booking")
	}

	// The settlement task re-runs capture and close with retries, so a
	// gateway outage here cannot strand a completed booking's payout.
	// It is enqueued before the inline attempt for the same reason.
	if err := s.enqueueSettlementClose(p.ID); err != nil {
		return err
	}

	// Decide from fresh gateway state, never the local projection: a
	// webhook may still be in flight.
	gp, err := s.Gateway.GetPayment(ctx, p.GatewayPaymentID)
	if err != nil {
		s.Logger.Warn("capture deferred to settlement task",
			zap.String("payment_id", p.ID), zap.Error(err))
		return nil
	}

	switch gp.Status {
	case models.GatewayStatusWaitingForCapture:
		if err := s.captureIfHeld(ctx, p, gp); err != nil {
			s.Logger.Warn("capture failed, settlement task will retry",
				zap.String("payment_id", p.ID), zap.Error(err))
		}
		return nil
	case models.GatewayStatusSucceeded:
		return nil
	default:
		return models.NewGatewayError("hold is not capturable: " + gp.Status)
	}
}

func (s *DefaultPaymentService) RefundOrCancel(ctx context.Context, bookingID string) error {
	p, err := s.Repo.GetByBookingID(ctx, bookingID)
	if err != nil {
		return err
	}
	if p == nil || p.Status == models.PaymentCanceled {
		return nil
	}

	gp, err := s.Gateway.GetPayment(ctx, p.GatewayPaymentID)
	if err != nil {
		return err
	}

	switch gp.Status {
	case models.GatewayStatusPending, models.GatewayStatusWaitingForCapture:
		if err := s.Gateway.Cancel(ctx, p.GatewayPaymentID); err != nil {
			return err
		}
	case models.GatewayStatusSucceeded:
		if err := s.Gateway.Refund(ctx, RefundRequest{
			GatewayID:       p.GatewayPaymentID,
			Amount:          p.Amount,
			Currency:        p.Currency,
			Full:            true,
			PayoutReduction: p.Settlement.SellerShare,
		}); err != nil {
			return err
		}
	case models.GatewayStatusCanceled:
		// Nothing held.
	default:
		return models.NewGatewayError("unexpected gateway status: " + gp.Status)
	}

	return s.Repo.UpdateFromGateway(ctx, p.ID, models.GatewayStatusCanceled, models.PaymentCanceled, nil)
}

func (s *DefaultPaymentService) SettleDispute(ctx context.Context, paymentID string, winner models.Winner) error {
	p, err := s.Repo.GetByID(ctx, paymentID)
	if err != nil {
		return err
	}
	if p == nil {
		return models.NewNotFound("payment not found")
	}

	gp, err := s.Gateway.GetPayment(ctx, p.GatewayPaymentID)
	if err != nil {
		return err
	}

	switch winner {
	case models.WinnerClient:
		switch gp.Status {
		case models.GatewayStatusPending, models.GatewayStatusWaitingForCapture:
			if err := s.Gateway.Cancel(ctx, p.GatewayPaymentID); err != nil {
				return err
			}
		case models.GatewayStatusSucceeded:
			if err := s.Gateway.Refund(ctx, RefundRequest{
				GatewayID:       p.GatewayPaymentID,
				Amount:          p.Amount,
				Currency:        p.Currency,
				Full:            true,
				PayoutReduction: p.Settlement.SellerShare,
			}); err != nil {
				return err
			}
		case models.GatewayStatusCanceled:
			// Already back with the client.
		default:
			return models.NewGatewayError("unexpected gateway status: " + gp.Status)
		}
		return s.Repo.UpdateFromGateway(ctx, p.ID, models.GatewayStatusCanceled, models.PaymentCanceled, nil)

	case models.WinnerMaster:
		if err := s.captureIfHeld(ctx, p, gp); err != nil {
			return err
		}
		return s.closeEscrow(ctx, p, p.Settlement.SellerShare)

	case models.WinnerSplit:
		if err := s.captureIfHeld(ctx, p, gp); err != nil {
			return err
		}
		// The provider's half replaces the hold-time payout settlement,
		// so refund + payout always equals the payment total; the
		// platform forfeits its fee on a split. The payout can only
		// shrink, never grow past the hold settlement.
		refund, payout := models.SplitHalf(p.Amount)
		if payout > p.Settlement.SellerShare {
			payout = p.Settlement.SellerShare
		}
		if err := s.Gateway.Refund(ctx, RefundRequest{
			GatewayID:       p.GatewayPaymentID,
			Amount:          refund,
			Currency:        p.Currency,
			PayoutReduction: p.Settlement.SellerShare - payout,
		}); err != nil {
			return err
		}
		return s.closeEscrow(ctx, p, payout)

	default:
		return models.NewValidationError("unknown verdict")
	}
}

// CaptureAndClose is the settlement worker's entrypoint: it captures
// the hold when still needed and closes the escrow deal. Safe to rerun;
// an already-captured hold skips straight to the close.
func (s *DefaultPaymentService) CaptureAndClose(ctx context.Context, paymentID string) error {
	p, err := s.Repo.GetByID(ctx, paymentID)
	if err != nil {
		return err
	}
	if p == nil {
		return models.NewNotFound("payment not found")
	}

	gp, err := s.Gateway.GetPayment(ctx, p.GatewayPaymentID)
	if err != nil {
		return err
	}
	if err := s.captureIfHeld(ctx, p, gp); err != nil {
		return err
	}
	return s.closeEscrow(ctx, p, p.Settlement.SellerShare)
}

func (s *DefaultPaymentService) closeEscrow(ctx context.Context, p *models.Payment, payout models.Amount) error {
	if err := s.Gateway.CloseEscrow(ctx, p.Settlement.EscrowID); err != nil {
		return err
	}

	notice := models.Notice{
		RecipientID: p.Settlement.SellerID,
		TemplateID:  models.TemplatePayoutReleased,
		Params: map[string]string{
			"booking_id": p.BookingID,
			"amount":     payout.String(),
		},
	}
	payload, err := json.Marshal(notice)
	if err != nil {
		return err
	}
	if _, err := s.Tasks.Enqueue(asynq.NewTask(models.TaskNotifySend, payload)); err != nil {
		s.Logger.Error("failed to enqueue payout notice", zap.Error(err))
	}

	s.Logger.Info("escrow closed",
		zap.String("payment_id", p.ID),
		zap.String("escrow_id", p.Settlement.EscrowID),
		zap.String("payout", payout.String()))
	return nil
}

func (s *DefaultPaymentService) captureIfHeld(ctx context.Context, p *models.Payment, gp *GatewayPayment) error {
	switch gp.Status {
	case models.GatewayStatusWaitingForCapture:
		if err := s.Gateway.Capture(ctx, p.GatewayPaymentID, p.Amount, p.Currency); err != nil {
			return err
		}
		now := time.Now().UTC()
		return s.Repo.UpdateFromGateway(ctx, p.ID, models.GatewayStatusSucceeded, models.PaymentSucceeded, &now)
	case models.GatewayStatusSucceeded:
		return nil
	default:
		return models.NewGatewayError("funds are not held: " + gp.Status)
	}
}

func (s *DefaultPaymentService) enqueueSettlementClose(paymentID string) error {
	payload, err := json.Marshal(models.SettlementClosePayload{PaymentID: paymentID})
	if err != nil {
		return err
	}
	_, err = s.Tasks.Enqueue(asynq.NewTask(models.TaskSettlementClose, payload), asynq.MaxRetry(5))
	return err
}
