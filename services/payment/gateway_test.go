package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"slotify/models"
)

type recordedRequest struct {
	method         string
	path           string
	idempotenceKey string
	body           map[string]any
}

func newGatewayServer(t *testing.T, status int, response string) (*HTTPEscrowGateway, *[]recordedRequest) {
	t.Helper()
	var seen []recordedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "shop-1" || pass != "secret-1" {
			t.Errorf("missing or wrong basic auth: %q/%q", user, pass)
		}
		rec := recordedRequest{
			method:         r.Method,
			path:           r.URL.Path,
			idempotenceKey: r.Header.Get("Idempotence-Key"),
		}
		if r.Method == http.MethodPost {
			if err := json.NewDecoder(r.Body).Decode(&rec.body); err != nil {
				t.Errorf("bad request body: %v", err)
			}
		}
		seen = append(seen, rec)
		w.WriteHeader(status)
		w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)
	return NewHTTPEscrowGateway(srv.URL, "shop-1", "secret-1"), &seen
}

func TestCreateHoldRequestShape(t *testing.T) {
	gw, seen := newGatewayServer(t, http.StatusOK, `{
		"id": "gw-1",
		"status": "pending",
		"paid": false,
		"confirmation": {"confirmation_url": "https://pay.example/confirm"}
	}`)

	gp, err := gw.CreateHold(context.Background(), HoldRequest{
		Amount:      models.AmountFromMajor(1000),
		Currency:    "RUB",
		Description: "Booking b-1",
		EscrowID:    "deal-1",
		SellerShare: models.AmountFromMajor(900),
		ReturnURL:   "https://app.example/return",
	})
	if err != nil {
		t.Fatalf("CreateHold: %v", err)
	}
	if gp.ID != "gw-1" || gp.ConfirmationURL != "https://pay.example/confirm" {
		t.Fatalf("unexpected gateway payment: %+v", gp)
	}

	req := (*seen)[0]
	if req.path != "/payments" {
		t.Fatalf("path = %s", req.path)
	}
	if req.idempotenceKey == "" {
		t.Fatalf("hold creation must carry an idempotence key")
	}
	amount := req.body["amount"].(map[string]any)
	if amount["value"] != "1000.00" || amount["currency"] != "RUB" {
		t.Fatalf("amount = %v", amount)
	}
	if req.body["capture"] != false {
		t.Fatalf("hold must be created with capture=false")
	}
	deal := req.body["deal"].(map[string]any)
	if deal["id"] != "deal-1" {
		t.Fatalf("deal = %v", deal)
	}
	settlement := deal["settlements"].([]any)[0].(map[string]any)
	payout := settlement["amount"].(map[string]any)
	if payout["value"] != "900.00" {
		t.Fatalf("payout value = %v, want 900.00", payout["value"])
	}
}

func TestCaptureAndCancelIdempotenceKeys(t *testing.T) {
	gw, seen := newGatewayServer(t, http.StatusOK, `{}`)

	if err := gw.Capture(context.Background(), "gw-7", models.AmountFromMajor(1000), "RUB"); err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if err := gw.Cancel(context.Background(), "gw-7"); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if err := gw.Refund(context.Background(), RefundRequest{
		GatewayID: "gw-7",
		Amount:    models.AmountFromMajor(500),
		Currency:  "RUB",
	}); err != nil {
		t.Fatalf("Refund: %v", err)
	}
	if err := gw.Refund(context.Background(), RefundRequest{
		GatewayID: "gw-7",
		Amount:    models.AmountFromMajor(1000),
		Currency:  "RUB",
		Full:      true,
	}); err != nil {
		t.Fatalf("full Refund: %v", err)
	}

	keys := []string{}
	for _, r := range *seen {
		keys = append(keys, r.idempotenceKey)
	}
	want := []string{"capture_gw-7", "cancel_gw-7", "refund_gw-7_500.00", "refund_gw-7_full"}
	for i, k := range want {
		if keys[i] != k {
			t.Fatalf("idempotence key[%d] = %q, want %q", i, keys[i], k)
		}
	}
}

func TestRefundCarriesPayoutReduction(t *testing.T) {
	gw, seen := newGatewayServer(t, http.StatusOK, `{}`)

	if err := gw.Refund(context.Background(), RefundRequest{
		GatewayID:       "gw-7",
		Amount:          models.AmountFromMajor(500),
		Currency:        "RUB",
		PayoutReduction: models.AmountFromMajor(400),
	}); err != nil {
		t.Fatalf("Refund: %v", err)
	}

	req := (*seen)[0]
	if req.path != "/refunds" {
		t.Fatalf("path = %s", req.path)
	}
	deal, ok := req.body["deal"].(map[string]any)
	if !ok {
		t.Fatalf("refund on a deal payment must adjust the payout settlement: %v", req.body)
	}
	settlement := deal["refund_settlements"].([]any)[0].(map[string]any)
	if settlement["type"] != "payout" {
		t.Fatalf("settlement type = %v", settlement["type"])
	}
	amount := settlement["amount"].(map[string]any)
	if amount["value"] != "400.00" {
		t.Fatalf("payout reduction = %v, want 400.00", amount["value"])
	}

	// A refund with no payout to reclaim carries no deal block.
	if err := gw.Refund(context.Background(), RefundRequest{
		GatewayID: "gw-8",
		Amount:    models.AmountFromMajor(100),
		Currency:  "RUB",
	}); err != nil {
		t.Fatalf("plain Refund: %v", err)
	}
	if _, ok := (*seen)[1].body["deal"]; ok {
		t.Fatalf("plain refund must not touch deal settlements")
	}
}

func TestGatewayErrorSurfacesAsDomainError(t *testing.T) {
	gw, _ := newGatewayServer(t, http.StatusForbidden, `{"code": "forbidden"}`)

	err := gw.Cancel(context.Background(), "gw-9")
	if models.CodeOf(err) != models.ErrCodeGateway {
		t.Fatalf("err = %v, want gatewayError", err)
	}
}

func TestVerifyWebhookSignature(t *testing.T) {
	secret := "whsec-1"
	body := []byte(`{"event":"payment.succeeded"}`)

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	good := hex.EncodeToString(mac.Sum(nil))

	if !VerifyWebhookSignature(secret, body, good) {
		t.Fatalf("valid signature rejected")
	}
	if VerifyWebhookSignature(secret, body, good[:len(good)-2]+"00") {
		t.Fatalf("tampered signature accepted")
	}
	if VerifyWebhookSignature(secret, append(body, ' '), good) {
		t.Fatalf("tampered body accepted")
	}
	if VerifyWebhookSignature(secret, body, "") {
		t.Fatalf("empty signature accepted")
	}
}
