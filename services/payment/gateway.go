// File: services/payment/gateway.go
package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"slotify/models"
)

// GatewayPayment is the gateway's view of a payment as we consume it.
type GatewayPayment struct {
	ID              string
	Status          string
	Paid            bool
	ConfirmationURL string
}

// HoldRequest describes a two-phase hold to open at the gateway. The
// funds sit on the escrow deal until capture; SellerShare is what the
// deal pays out on close, the rest is the platform fee.
type HoldRequest struct {
	Amount      models.Amount
	Currency    string
	Description string
	EscrowID    string
	SellerShare models.Amount
	ReturnURL   string
}

// RefundRequest returns money to the payer. A refund on a deal payment
// must shrink the deal's payout settlement by the same move, otherwise
// closing the deal would still release the full seller share on top of
// the refund; PayoutReduction carries that adjustment.
type RefundRequest struct {
	GatewayID       string
	Amount          models.Amount
	Currency        string
	Full            bool
	PayoutReduction models.Amount
}

// EscrowGateway is the payment gateway surface the engine needs: escrow
// deals, two-phase holds, capture, cancel and refunds. Every mutating
// call carries a deterministic idempotence key so that retries after a
// timeout cannot double-move money.
type EscrowGateway interface {
	OpenEscrow(ctx context.Context) (escrowID string, err error)
	CreateHold(ctx context.Context, req HoldRequest) (*GatewayPayment, error)
	GetPayment(ctx context.Context, gatewayID string) (*GatewayPayment, error)
	Capture(ctx context.Context, gatewayID string, amount models.Amount, currency string) error
	Cancel(ctx context.Context, gatewayID string) error
	// Refund returns req.Amount to the payer; req.Full marks a
	// whole-payment refund in the idempotence key so partial and full
	// retries never collide.
	Refund(ctx context.Context, req RefundRequest) error
	CloseEscrow(ctx context.Context, escrowID string) error
}

// HTTPEscrowGateway talks to a YooKassa-compatible API over HTTPS with
// shop-id basic auth.
type HTTPEscrowGateway struct {
	BaseURL   string
	ShopID    string
	SecretKey string
	Client    *http.Client
}

func NewHTTPEscrowGateway(baseURL, shopID, secretKey string) *HTTPEscrowGateway {
	return &HTTPEscrowGateway{
		BaseURL:   baseURL,
		ShopID:    shopID,
		SecretKey: secretKey,
		Client:    &http.Client{Timeout: 15 * time.Second},
	}
}

type gatewayAmount struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

type gatewayPaymentResponse struct {
	ID           string        `json:"id"`
	Status       string        `json:"status"`
	Paid         bool          `json:"paid"`
	Confirmation *struct {
		ConfirmationURL string `json:"confirmation_url"`
	} `json:"confirmation,omitempty"`
	Amount gatewayAmount `json:"amount"`
}

func (g *HTTPEscrowGateway) OpenEscrow(ctx context.Context) (string, error) {
	body := map[string]any{
		"type":       "safe_deal",
		"fee_moment": "deal_closed",
	}
	var resp struct {
		ID string `json:"id"`
	}
	if err := g.post(ctx, "/deals", uuid.New().String(), body, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

func (g *HTTPEscrowGateway) CreateHold(ctx context.Context, req HoldRequest) (*GatewayPayment, error) {
	body := map[string]any{
		"amount": gatewayAmount{Value: req.Amount.String(), Currency: req.Currency},
		"confirmation": map[string]any{
			"type":       "redirect",
			"return_url": req.ReturnURL,
		},
		"capture":     false,
		"description": req.Description,
		"deal": map[string]any{
			"id": req.EscrowID,
			"settlements": []map[string]any{
				{
					"type":   "payout",
					"amount": gatewayAmount{Value: req.SellerShare.String(), Currency: req.Currency},
				},
			},
		},
	}
	var resp gatewayPaymentResponse
	if err := g.post(ctx, "/payments", uuid.New().String(), body, &resp); err != nil {
		return nil, err
	}
	return fromGatewayResponse(&resp), nil
}

func (g *HTTPEscrowGateway) GetPayment(ctx context.Context, gatewayID string) (*GatewayPayment, error) {
	var resp gatewayPaymentResponse
	if err := g.get(ctx, "/payments/"+gatewayID, &resp); err != nil {
		return nil, err
	}
	return fromGatewayResponse(&resp), nil
}

func (g *HTTPEscrowGateway) Capture(ctx context.Context, gatewayID string, amount models.Amount, currency string) error {
	body := map[string]any{
		"amount": gatewayAmount{Value: amount.String(), Currency: currency},
	}
	return g.post(ctx, "/payments/"+gatewayID+"/capture", "capture_"+gatewayID, body, nil)
}

func (g *HTTPEscrowGateway) Cancel(ctx context.Context, gatewayID string) error {
	return g.post(ctx, "/payments/"+gatewayID+"/cancel", "cancel_"+gatewayID, map[string]any{}, nil)
}

func (g *HTTPEscrowGateway) Refund(ctx context.Context, req RefundRequest) error {
	suffix := req.Amount.String()
	if req.Full {
		suffix = "full"
	}
	body := map[string]any{
		"payment_id": req.GatewayID,
		"amount":     gatewayAmount{Value: req.Amount.String(), Currency: req.Currency},
	}
	if req.PayoutReduction > 0 {
		body["deal"] = map[string]any{
			"refund_settlements": []map[string]any{
				{
					"type":   "payout",
					"amount": gatewayAmount{Value: req.PayoutReduction.String(), Currency: req.Currency},
				},
			},
		}
	}
	return g.post(ctx, "/refunds", fmt.Sprintf("refund_%s_%s", req.GatewayID, suffix), body, nil)
}

func (g *HTTPEscrowGateway) CloseEscrow(ctx context.Context, escrowID string) error {
	return g.post(ctx, "/deals/"+escrowID+"/close", "close_"+escrowID, map[string]any{}, nil)
}

func (g *HTTPEscrowGateway) post(ctx context.Context, path, idempotenceKey string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotence-Key", idempotenceKey)
	req.SetBasicAuth(g.ShopID, g.SecretKey)
	return g.do(req, out)
}

func (g *HTTPEscrowGateway) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.BaseURL+path, nil)
	if err != nil {
		return err
	}
	req.SetBasicAuth(g.ShopID, g.SecretKey)
	return g.do(req, out)
}

func (g *HTTPEscrowGateway) do(req *http.Request, out any) error {
	resp, err := g.Client.Do(req)
	if err != nil {
		return models.NewGatewayError(fmt.Sprintf("gateway request failed: %v", err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return models.NewGatewayError(fmt.Sprintf("gateway response read failed: %v", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return models.NewGatewayError(fmt.Sprintf("gateway returned %d: %s", resp.StatusCode, raw))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return models.NewGatewayError(fmt.Sprintf("gateway response decode failed: %v", err))
	}
	return nil
}

func fromGatewayResponse(resp *gatewayPaymentResponse) *GatewayPayment {
	gp := &GatewayPayment{
		ID:     resp.ID,
		Status: resp.Status,
		Paid:   resp.Paid,
	}
	if resp.Confirmation != nil {
		gp.ConfirmationURL = resp.Confirmation.ConfirmationURL
	}
	return gp
}

// VerifyWebhookSignature checks an HMAC-SHA256 hex signature of the raw
// webhook body against the shared secret in constant time.
func VerifyWebhookSignature(secret string, body []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
