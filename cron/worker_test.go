// File: cron/worker_test.go
package cron

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/hibiken/asynq"

	disputeRepo "slotify/database/repository/dispute"
	"slotify/models"
	"slotify/services/payment"
)

type stubSettler struct {
	settled []string
}

func (s *stubSettler) CreatePayment(context.Context, string, string, string) (*models.Payment, error) {
	return nil, nil
}
func (s *stubSettler) GetPayment(context.Context, string) (*models.Payment, error) { return nil, nil }
func (s *stubSettler) HandleWebhook(context.Context, *payment.WebhookEvent) error  { return nil }
func (s *stubSettler) ReleaseOnCompletion(context.Context, string) error           { return nil }
func (s *stubSettler) RefundOrCancel(context.Context, string) error                { return nil }
func (s *stubSettler) CaptureAndClose(context.Context, string) error               { return nil }
func (s *stubSettler) SettleDispute(_ context.Context, paymentID string, _ models.Winner) error {
	s.settled = append(s.settled, paymentID)
	return nil
}

type stubDisputes struct {
	dispute *models.Dispute
}

func (s *stubDisputes) Create(context.Context, *models.Dispute) error { return nil }
func (s *stubDisputes) GetByID(context.Context, string) (*models.Dispute, error) {
	return s.dispute, nil
}
func (s *stubDisputes) GetOpenByBookingID(context.Context, string) (*models.Dispute, error) {
	return nil, nil
}
func (s *stubDisputes) ListWaiting(context.Context) ([]models.Dispute, error) { return nil, nil }
func (s *stubDisputes) Take(context.Context, string, string) (bool, error)    { return false, nil }
func (s *stubDisputes) Resolve(context.Context, string, models.Winner) (bool, error) {
	return false, nil
}

var _ disputeRepo.DisputeRepository = (*stubDisputes)(nil)

func disputeTask(t *testing.T, winner models.Winner) *asynq.Task {
	t.Helper()
	payload, err := json.Marshal(models.DisputeSettlementPayload{
		PaymentID: "pay-1",
		DisputeID: "disp-1",
		Winner:    winner,
	})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return asynq.NewTask(models.TaskSettlementDispute, payload)
}

// A settlement task only moves money when the store holds the same closed
// verdict the task carries. A task whose resolve lost the race, or whose
// dispute is still open, is dropped without error so asynq retires it.
func TestDisputeSettlementRequiresRecordedVerdict(t *testing.T) {
	svc := &stubSettler{}
	disputes := &stubDisputes{}
	handler := handleDisputeSettlement(svc, disputes)

	cases := []struct {
		name    string
		dispute *models.Dispute
	}{
		{"missing dispute", nil},
		{"still open", &models.Dispute{ID: "disp-1", Status: models.DisputeInProcess}},
		{"verdict mismatch", &models.Dispute{ID: "disp-1", Status: models.DisputeClosed, Winner: models.WinnerMaster}},
	}
	for _, tc := range cases {
		disputes.dispute = tc.dispute
		if err := handler(context.Background(), disputeTask(t, models.WinnerClient)); err != nil {
			t.Fatalf("%s: handler returned %v, want dropped task", tc.name, err)
		}
	}
	if len(svc.settled) != 0 {
		t.Fatalf("settled %v without a confirmed verdict", svc.settled)
	}

	disputes.dispute = &models.Dispute{ID: "disp-1", Status: models.DisputeClosed, Winner: models.WinnerClient}
	if err := handler(context.Background(), disputeTask(t, models.WinnerClient)); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if len(svc.settled) != 1 || svc.settled[0] != "pay-1" {
		t.Fatalf("settled = %v, want [pay-1]", svc.settled)
	}
}
