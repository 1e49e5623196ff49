package payment

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"slotify/models"
)

type memPaymentRepo struct {
	mu       sync.Mutex
	payments map[string]*models.Payment
}

func newMemPaymentRepo() *memPaymentRepo {
	return &memPaymentRepo{payments: make(map[string]*models.Payment)}
}

func (r *memPaymentRepo) Create(_ context.Context, p *models.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.payments[p.ID] = &cp
	return nil
}

func (r *memPaymentRepo) Replace(_ context.Context, id string, p *models.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.payments, id)
	cp := *p
	r.payments[p.ID] = &cp
	return nil
}

func (r *memPaymentRepo) countForBooking(bookingID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, p := range r.payments {
		if p.BookingID == bookingID {
			n++
		}
	}
	return n
}

func (r *memPaymentRepo) GetByID(_ context.Context, id string) (*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.payments[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (r *memPaymentRepo) GetByBookingID(_ context.Context, bookingID string) (*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.payments {
		if p.BookingID == bookingID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memPaymentRepo) GetByGatewayID(_ context.Context, gatewayID string) (*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.payments {
		if p.GatewayPaymentID == gatewayID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memPaymentRepo) UpdateFromGateway(_ context.Context, id, gatewayStatus string, status models.PaymentStatus, paidAt *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.payments[id]
	p.GatewayStatus = gatewayStatus
	p.Status = status
	if paidAt != nil {
		p.PaidAt = paidAt
	}
	return nil
}

func (r *memPaymentRepo) UpdateStatusIf(_ context.Context, id string, from, to models.PaymentStatus, _ map[string]any) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok || p.Status != from {
		return false, nil
	}
	p.Status = to
	return true, nil
}

// stubBookings holds bookings by id; only the methods the orchestrator
// touches do real work.
type stubBookings struct {
	mu       sync.Mutex
	bookings map[string]*models.Booking
}

func newStubBookings(bs ...*models.Booking) *stubBookings {
	s := &stubBookings{bookings: make(map[string]*models.Booking)}
	for _, b := range bs {
		s.bookings[b.ID] = b
	}
	return s
}

func (s *stubBookings) GetByID(_ context.Context, id string) (*models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.bookings[id]; ok {
		cp := *b
		return &cp, nil
	}
	return nil, nil
}

func (s *stubBookings) UpdateStatusIf(_ context.Context, id string, from, to models.BookingStatus, _ map[string]any) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok || b.Status != from {
		return false, nil
	}
	b.Status = to
	return true, nil
}

func (s *stubBookings) FindByDaySlotClient(context.Context, string, string, string) (*models.Booking, error) {
	return nil, nil
}
func (s *stubBookings) ReserveSlot(context.Context, *models.Booking) error { return nil }
func (s *stubBookings) RebookCancelled(context.Context, *models.Booking, models.Amount) error {
	return nil
}
func (s *stubBookings) ForceTerminalIfActive(context.Context, string, models.BookingStatus) (bool, error) {
	return false, nil
}
func (s *stubBookings) ListStale(context.Context, models.BookingStatus, time.Time) ([]models.Booking, error) {
	return nil, nil
}
func (s *stubBookings) ListReadyBefore(context.Context, time.Time) ([]models.Booking, error) {
	return nil, nil
}

// fakeGateway records the money-moving calls and serves a configurable
// remote status. Setting down makes every call fail like an outage.
type fakeGateway struct {
	mu           sync.Mutex
	remoteStatus string
	down         error
	escrows      int
	captures     []string
	cancels      []string
	refunds      []RefundRequest
	closes       []string
}

func (g *fakeGateway) OpenEscrow(context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.escrows++
	return "deal-1", nil
}

func (g *fakeGateway) CreateHold(_ context.Context, req HoldRequest) (*GatewayPayment, error) {
	return &GatewayPayment{
		ID:              "gw-1",
		Status:          models.GatewayStatusPending,
		ConfirmationURL: "https://pay.example/confirm",
	}, nil
}

func (g *fakeGateway) GetPayment(context.Context, string) (*GatewayPayment, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.down != nil {
		return nil, g.down
	}
	return &GatewayPayment{ID: "gw-1", Status: g.remoteStatus}, nil
}

func (g *fakeGateway) Capture(_ context.Context, id string, _ models.Amount, _ string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.down != nil {
		return g.down
	}
	g.captures = append(g.captures, id)
	g.remoteStatus = models.GatewayStatusSucceeded
	return nil
}

func (g *fakeGateway) Cancel(_ context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.down != nil {
		return g.down
	}
	g.cancels = append(g.cancels, id)
	g.remoteStatus = models.GatewayStatusCanceled
	return nil
}

func (g *fakeGateway) Refund(_ context.Context, req RefundRequest) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.down != nil {
		return g.down
	}
	g.refunds = append(g.refunds, req)
	return nil
}

func (g *fakeGateway) CloseEscrow(_ context.Context, escrowID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.down != nil {
		return g.down
	}
	g.closes = append(g.closes, escrowID)
	return nil
}

func (g *fakeGateway) setDown(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.down = err
}

type fakeEnqueuer struct {
	mu    sync.Mutex
	tasks []string
}

func (f *fakeEnqueuer) Enqueue(task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks = append(f.tasks, task.Type())
	return &asynq.TaskInfo{}, nil
}

func (f *fakeEnqueuer) typesSeen() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.tasks...)
}

func newOrchestrator(b *models.Booking, remoteStatus string) (*DefaultPaymentService, *memPaymentRepo, *fakeGateway, *fakeEnqueuer) {
	repo := newMemPaymentRepo()
	gw := &fakeGateway{remoteStatus: remoteStatus}
	enq := &fakeEnqueuer{}
	svc := NewPaymentService(repo, newStubBookings(b), gw, enq, 1000, zap.NewNop())
	return svc, repo, gw, enq
}

func testBooking(status models.BookingStatus) *models.Booking {
	return &models.Booking{
		ID:         "b-1",
		ClientID:   "client-1",
		ProviderID: "provider-1",
		Price:      models.AmountFromMajor(1000),
		Status:     status,
		CreatedAt:  time.Now().UTC(),
	}
}

func TestCreatePaymentSplitsSettlement(t *testing.T) {
	svc, _, gw, _ := newOrchestrator(testBooking(models.BookingWaitingPayment), models.GatewayStatusPending)

	p, err := svc.CreatePayment(context.Background(), "b-1", "client-1", "https://app.example/return")
	if err != nil {
		t.Fatalf("CreatePayment: %v", err)
	}
	if p.Status != models.PaymentPending {
		t.Fatalf("status = %s, want pending", p.Status)
	}
	if p.Settlement.PlatformFee != models.AmountFromMajor(100) {
		t.Fatalf("platform fee = %s, want 100.00", p.Settlement.PlatformFee)
	}
	if p.Settlement.SellerShare != models.AmountFromMajor(900) {
		t.Fatalf("seller share = %s, want 900.00", p.Settlement.SellerShare)
	}
	if p.Settlement.SellerID != "provider-1" {
		t.Fatalf("seller = %s", p.Settlement.SellerID)
	}
	if p.Settlement.EscrowID != "deal-1" || gw.escrows != 1 {
		t.Fatalf("escrow deal not opened")
	}
	if p.ConfirmationURL == "" {
		t.Fatalf("confirmation URL missing")
	}
}

func TestCreatePaymentIdempotent(t *testing.T) {
	svc, _, gw, _ := newOrchestrator(testBooking(models.BookingWaitingPayment), models.GatewayStatusPending)

	first, err := svc.CreatePayment(context.Background(), "b-1", "client-1", "https://app.example/return")
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := svc.CreatePayment(context.Background(), "b-1", "client-1", "https://app.example/return")
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("second call created a new payment")
	}
	if gw.escrows != 1 {
		t.Fatalf("escrows opened = %d, want 1", gw.escrows)
	}
}

func TestCreatePaymentWrongBookingState(t *testing.T) {
	svc, _, _, _ := newOrchestrator(testBooking(models.BookingConfirmed), models.GatewayStatusPending)

	_, err := svc.CreatePayment(context.Background(), "b-1", "client-1", "https://app.example/return")
	if models.CodeOf(err) != models.ErrCodeInvalidTransition {
		t.Fatalf("err = %v, want invalidTransition", err)
	}
}

func TestCreatePaymentWrongClient(t *testing.T) {
	svc, _, _, _ := newOrchestrator(testBooking(models.BookingWaitingPayment), models.GatewayStatusPending)

	_, err := svc.CreatePayment(context.Background(), "b-1", "client-2", "https://app.example/return")
	if models.CodeOf(err) != models.ErrCodePermissionDenied {
		t.Fatalf("err = %v, want permissionDenied", err)
	}
}

func TestWebhookWaitingForCaptureAdvancesBooking(t *testing.T) {
	b := testBooking(models.BookingWaitingPayment)
	svc, repo, _, _ := newOrchestrator(b, models.GatewayStatusPending)
	p, _ := svc.CreatePayment(context.Background(), "b-1", "client-1", "https://app.example/return")

	event := &WebhookEvent{Event: "payment.waiting_for_capture"}
	event.Object.ID = p.GatewayPaymentID
	event.Object.Status = models.GatewayStatusWaitingForCapture

	if err := svc.HandleWebhook(context.Background(), event); err != nil {
		t.Fatalf("HandleWebhook: %v", err)
	}

	got, _ := repo.GetByID(context.Background(), p.ID)
	if got.Status != models.PaymentProcessing {
		t.Fatalf("payment status = %s, want processing", got.Status)
	}
	if got.PaidAt == nil {
		t.Fatalf("paid_at not stamped")
	}
	if b.Status != models.BookingPending {
		t.Fatalf("booking status = %s, want pending", b.Status)
	}

	// Replays are absorbed.
	if err := svc.HandleWebhook(context.Background(), event); err != nil {
		t.Fatalf("replay: %v", err)
	}
}

func TestWebhookCanceledLeavesBookingForSweep(t *testing.T) {
	b := testBooking(models.BookingWaitingPayment)
	svc, repo, _, _ := newOrchestrator(b, models.GatewayStatusPending)
	p, _ := svc.CreatePayment(context.Background(), "b-1", "client-1", "https://app.example/return")

	event := &WebhookEvent{Event: "payment.canceled"}
	event.Object.ID = p.GatewayPaymentID
	event.Object.Status = models.GatewayStatusCanceled

	if err := svc.HandleWebhook(context.Background(), event); err != nil {
		t.Fatalf("HandleWebhook: %v", err)
	}

	got, _ := repo.GetByID(context.Background(), p.ID)
	if got.Status != models.PaymentCanceled {
		t.Fatalf("payment status = %s, want canceled", got.Status)
	}
	// Expiring the booking here would strand its slot: only the expiry
	// sweep retires unpaid bookings, because it also frees the slot.
	if b.Status != models.BookingWaitingPayment {
		t.Fatalf("booking status = %s, want waiting_payment", b.Status)
	}
}

func TestCreatePaymentReplacesCanceledHold(t *testing.T) {
	svc, repo, gw, _ := newOrchestrator(testBooking(models.BookingWaitingPayment), models.GatewayStatusPending)
	first, _ := svc.CreatePayment(context.Background(), "b-1", "client-1", "https://app.example/return")

	event := &WebhookEvent{Event: "payment.canceled"}
	event.Object.ID = first.GatewayPaymentID
	event.Object.Status = models.GatewayStatusCanceled
	if err := svc.HandleWebhook(context.Background(), event); err != nil {
		t.Fatalf("HandleWebhook: %v", err)
	}

	second, err := svc.CreatePayment(context.Background(), "b-1", "client-1", "https://app.example/return")
	if err != nil {
		t.Fatalf("retry after canceled hold: %v", err)
	}
	if second.ID == first.ID {
		t.Fatalf("dead hold must be superseded by a fresh payment")
	}
	if second.Status != models.PaymentPending {
		t.Fatalf("status = %s, want pending", second.Status)
	}
	if gw.escrows != 2 {
		t.Fatalf("escrows opened = %d, want 2", gw.escrows)
	}
	if n := repo.countForBooking("b-1"); n != 1 {
		t.Fatalf("payment rows for booking = %d, want 1", n)
	}
}

func TestWebhookUnknownGatewayID(t *testing.T) {
	svc, _, _, _ := newOrchestrator(testBooking(models.BookingWaitingPayment), models.GatewayStatusPending)

	event := &WebhookEvent{Event: "payment.succeeded"}
	event.Object.ID = "gw-unknown"
	event.Object.Status = models.GatewayStatusSucceeded

	err := svc.HandleWebhook(context.Background(), event)
	if models.CodeOf(err) != models.ErrCodeNotFound {
		t.Fatalf("err = %v, want notFound", err)
	}
}

func TestReleaseOnCompletionCapturesThenCloses(t *testing.T) {
	svc, repo, gw, enq := newOrchestrator(testBooking(models.BookingWaitingPayment), models.GatewayStatusPending)
	p, _ := svc.CreatePayment(context.Background(), "b-1", "client-1", "https://app.example/return")
	gw.remoteStatus = models.GatewayStatusWaitingForCapture

	if err := svc.ReleaseOnCompletion(context.Background(), "b-1"); err != nil {
		t.Fatalf("ReleaseOnCompletion: %v", err)
	}

	if len(gw.captures) != 1 {
		t.Fatalf("captures = %d, want 1", len(gw.captures))
	}
	got, _ := repo.GetByID(context.Background(), p.ID)
	if got.Status != models.PaymentSucceeded {
		t.Fatalf("payment status = %s, want succeeded", got.Status)
	}
	types := enq.typesSeen()
	if len(types) != 1 || types[0] != models.TaskSettlementClose {
		t.Fatalf("enqueued = %v, want [settlement:close]", types)
	}
}

func TestReleaseOnCompletionAlreadyCaptured(t *testing.T) {
	svc, _, gw, enq := newOrchestrator(testBooking(models.BookingWaitingPayment), models.GatewayStatusPending)
	svc.CreatePayment(context.Background(), "b-1", "client-1", "https://app.example/return")
	gw.remoteStatus = models.GatewayStatusSucceeded

	if err := svc.ReleaseOnCompletion(context.Background(), "b-1"); err != nil {
		t.Fatalf("ReleaseOnCompletion: %v", err)
	}
	if len(gw.captures) != 0 {
		t.Fatalf("capture repeated on an already-captured payment")
	}
	if types := enq.typesSeen(); len(types) != 1 || types[0] != models.TaskSettlementClose {
		t.Fatalf("enqueued = %v, want [settlement:close]", types)
	}
}

func TestReleaseOnCompletionCanceledHold(t *testing.T) {
	svc, _, gw, _ := newOrchestrator(testBooking(models.BookingWaitingPayment), models.GatewayStatusPending)
	svc.CreatePayment(context.Background(), "b-1", "client-1", "https://app.example/return")
	gw.remoteStatus = models.GatewayStatusCanceled

	err := svc.ReleaseOnCompletion(context.Background(), "b-1")
	if models.CodeOf(err) != models.ErrCodeGateway {
		t.Fatalf("err = %v, want gatewayError", err)
	}
}

func TestReleaseOnCompletionRecoversAfterOutage(t *testing.T) {
	svc, repo, gw, enq := newOrchestrator(testBooking(models.BookingWaitingPayment), models.GatewayStatusPending)
	p, _ := svc.CreatePayment(context.Background(), "b-1", "client-1", "https://app.example/return")
	gw.remoteStatus = models.GatewayStatusWaitingForCapture
	gw.setDown(models.NewGatewayError("gateway unreachable"))

	// The inline capture cannot reach the gateway, but the settlement
	// task is already queued; completion must not fail.
	if err := svc.ReleaseOnCompletion(context.Background(), "b-1"); err != nil {
		t.Fatalf("ReleaseOnCompletion during outage: %v", err)
	}
	if len(gw.captures) != 0 {
		t.Fatalf("captured through a dead gateway")
	}
	if types := enq.typesSeen(); len(types) != 1 || types[0] != models.TaskSettlementClose {
		t.Fatalf("enqueued = %v, want [settlement:close]", types)
	}

	// The worker's retry finishes the capture and the close.
	gw.setDown(nil)
	if err := svc.CaptureAndClose(context.Background(), p.ID); err != nil {
		t.Fatalf("CaptureAndClose after recovery: %v", err)
	}
	if len(gw.captures) != 1 || len(gw.closes) != 1 {
		t.Fatalf("captures=%d closes=%d, want 1/1", len(gw.captures), len(gw.closes))
	}
	got, _ := repo.GetByID(context.Background(), p.ID)
	if got.Status != models.PaymentSucceeded {
		t.Fatalf("payment status = %s, want succeeded", got.Status)
	}
}

func TestRefundOrCancelChoosesByGatewayState(t *testing.T) {
	// Held funds are cancelled, not refunded.
	svc, repo, gw, _ := newOrchestrator(testBooking(models.BookingWaitingPayment), models.GatewayStatusPending)
	p, _ := svc.CreatePayment(context.Background(), "b-1", "client-1", "https://app.example/return")
	gw.remoteStatus = models.GatewayStatusWaitingForCapture

	if err := svc.RefundOrCancel(context.Background(), "b-1"); err != nil {
		t.Fatalf("RefundOrCancel: %v", err)
	}
	if len(gw.cancels) != 1 || len(gw.refunds) != 0 {
		t.Fatalf("cancels=%d refunds=%d, want 1/0", len(gw.cancels), len(gw.refunds))
	}
	got, _ := repo.GetByID(context.Background(), p.ID)
	if got.Status != models.PaymentCanceled {
		t.Fatalf("payment status = %s, want canceled", got.Status)
	}

	// Captured funds are refunded in full.
	svc2, _, gw2, _ := newOrchestrator(testBooking(models.BookingWaitingPayment), models.GatewayStatusPending)
	svc2.CreatePayment(context.Background(), "b-1", "client-1", "https://app.example/return")
	gw2.remoteStatus = models.GatewayStatusSucceeded

	if err := svc2.RefundOrCancel(context.Background(), "b-1"); err != nil {
		t.Fatalf("RefundOrCancel: %v", err)
	}
	if len(gw2.refunds) != 1 {
		t.Fatalf("refunds = %d, want 1", len(gw2.refunds))
	}
	refund := gw2.refunds[0]
	if refund.Amount != models.AmountFromMajor(1000) || !refund.Full {
		t.Fatalf("refund = %+v, want a full refund of 1000.00", refund)
	}
	if refund.PayoutReduction != models.AmountFromMajor(900) {
		t.Fatalf("payout reduction = %s, want the whole seller share", refund.PayoutReduction)
	}
}

func TestRefundOrCancelNoPayment(t *testing.T) {
	svc, _, gw, _ := newOrchestrator(testBooking(models.BookingWaitingPayment), models.GatewayStatusPending)

	if err := svc.RefundOrCancel(context.Background(), "b-1"); err != nil {
		t.Fatalf("RefundOrCancel without payment: %v", err)
	}
	if len(gw.cancels)+len(gw.refunds) != 0 {
		t.Fatalf("gateway touched for a booking without a payment")
	}
}

func TestSettleDisputeClientWins(t *testing.T) {
	svc, repo, gw, _ := newOrchestrator(testBooking(models.BookingWaitingPayment), models.GatewayStatusPending)
	p, _ := svc.CreatePayment(context.Background(), "b-1", "client-1", "https://app.example/return")
	gw.remoteStatus = models.GatewayStatusSucceeded

	if err := svc.SettleDispute(context.Background(), p.ID, models.WinnerClient); err != nil {
		t.Fatalf("SettleDispute: %v", err)
	}
	if len(gw.refunds) != 1 || gw.refunds[0].Amount != models.AmountFromMajor(1000) || !gw.refunds[0].Full {
		t.Fatalf("refunds = %v, want one full refund", gw.refunds)
	}
	if len(gw.closes) != 0 {
		t.Fatalf("client verdict must not close the deal as a payout")
	}
	got, _ := repo.GetByID(context.Background(), p.ID)
	if got.Status != models.PaymentCanceled {
		t.Fatalf("payment status = %s, want canceled", got.Status)
	}
}

func TestSettleDisputeMasterWins(t *testing.T) {
	svc, _, gw, _ := newOrchestrator(testBooking(models.BookingWaitingPayment), models.GatewayStatusPending)
	p, _ := svc.CreatePayment(context.Background(), "b-1", "client-1", "https://app.example/return")
	gw.remoteStatus = models.GatewayStatusWaitingForCapture

	if err := svc.SettleDispute(context.Background(), p.ID, models.WinnerMaster); err != nil {
		t.Fatalf("SettleDispute: %v", err)
	}
	if len(gw.captures) != 1 {
		t.Fatalf("captures = %d, want 1", len(gw.captures))
	}
	if len(gw.refunds) != 0 {
		t.Fatalf("master verdict must not refund")
	}
	if len(gw.closes) != 1 {
		t.Fatalf("closes = %d, want 1", len(gw.closes))
	}
}

func TestSettleDisputeSplit(t *testing.T) {
	svc, _, gw, _ := newOrchestrator(testBooking(models.BookingWaitingPayment), models.GatewayStatusPending)
	p, _ := svc.CreatePayment(context.Background(), "b-1", "client-1", "https://app.example/return")
	gw.remoteStatus = models.GatewayStatusWaitingForCapture

	if err := svc.SettleDispute(context.Background(), p.ID, models.WinnerSplit); err != nil {
		t.Fatalf("SettleDispute: %v", err)
	}
	if len(gw.captures) != 1 {
		t.Fatalf("split must capture first")
	}
	if len(gw.refunds) != 1 {
		t.Fatalf("refunds = %d, want 1", len(gw.refunds))
	}
	refund := gw.refunds[0]
	if refund.Amount != models.AmountFromMajor(500) {
		t.Fatalf("refund = %s, want half of 1000.00", refund.Amount)
	}
	// The hold's payout settlement was 900.00; after the reduction the
	// deal pays out exactly the provider half, so refund plus payout
	// equals the payment total.
	if refund.PayoutReduction != models.AmountFromMajor(400) {
		t.Fatalf("payout reduction = %s, want 400.00", refund.PayoutReduction)
	}
	payout := p.Settlement.SellerShare - refund.PayoutReduction
	if refund.Amount+payout != p.Amount {
		t.Fatalf("refund %s + payout %s != total %s", refund.Amount, payout, p.Amount)
	}
	if len(gw.closes) != 1 {
		t.Fatalf("split must close the deal for the payout half")
	}
}
