// File: internal/infra/adapters/payment/cryptomus_gateway.go
package payment

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"telegram-proxy-subscription/internal/domain"
	"telegram-proxy-subscription/internal/domain/model"
	"telegram-proxy-subscription/internal/domain/ports/adapter"
)

const defaultBaseURL = "https://api.cryptomus.com/v1"

var _ adapter.PaymentGateway = (*CryptomusGateway)(nil)

// CryptomusGateway signs every request body with
// md5(base64(body) + payment_key) and sends the digest in the "sign" header
// alongside the merchant uuid.
type CryptomusGateway struct {
	merchantUUID string
	paymentKey   string
	baseURL      string
	client       *http.Client
	log          *zerolog.Logger
}

func NewCryptomusGateway(merchantUUID, paymentKey, baseURL string, logger *zerolog.Logger) *CryptomusGateway {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	l := logger.With().Str("component", "CryptomusGateway").Logger()
	return &CryptomusGateway{
		merchantUUID: merchantUUID,
		paymentKey:   paymentKey,
		baseURL:      baseURL,
		client:       &http.Client{Timeout: 30 * time.Second},
		log:          &l,
	}
}

func (g *CryptomusGateway) Name() string { return "cryptomus" }

// paymentResult is the "result" object of both /payment and /payment/info.
type paymentResult struct {
	UUID           string `json:"uuid"`
	OrderID        string `json:"order_id"`
	Amount         string `json:"amount"`
	Currency       string `json:"currency"`
	Network        string `json:"network"`
	Address        string `json:"address"`
	URL            string `json:"url"`
	TxID           string `json:"txid"`
	PaymentStatus  string `json:"payment_status"`
	IsFinal        bool   `json:"is_final"`
	AdditionalData string `json:"additional_data"`
}

type apiEnvelope struct {
	State   int             `json:"state"`
	Result  json.RawMessage `json:"result"`
	Message string          `json:"message"`
}

func (g *CryptomusGateway) sign(body []byte) string {
	encoded := base64.StdEncoding.EncodeToString(body)
	sum := md5.Sum([]byte(encoded + g.paymentKey))
	return hex.EncodeToString(sum[:])
}

func (g *CryptomusGateway) post(ctx context.Context, path string, payload interface{}) (*paymentResult, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, domain.ErrInvalidArgument
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrOperationFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("merchant", g.merchantUUID)
	req.Header.Set("sign", g.sign(body))

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrOperationFailed, err)
	}
	defer resp.Body.Close()

	var env apiEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", domain.ErrOperationFailed, err)
	}
	if resp.StatusCode != http.StatusOK || env.State != 0 {
		g.log.Warn().Int("status", resp.StatusCode).Int("state", env.State).Str("message", env.Message).Msg("gateway rejected request")
		return nil, fmt.Errorf("%w: gateway state %d: %s", domain.ErrOperationFailed, env.State, env.Message)
	}
	var res paymentResult
	if err := json.Unmarshal(env.Result, &res); err != nil {
		return nil, fmt.Errorf("%w: result: %v", domain.ErrOperationFailed, err)
	}
	return &res, nil
}

func (g *CryptomusGateway) toInvoice(res *paymentResult) (*model.Invoice, error) {
	amount, err := decimal.NewFromString(res.Amount)
	if err != nil {
		amount = decimal.Zero
	}
	now := time.Now()
	return &model.Invoice{
		OrderID:        res.OrderID,
		GatewayUUID:    res.UUID,
		Amount:         amount,
		Currency:       res.Currency,
		Network:        res.Network,
		Address:        res.Address,
		PayURL:         res.URL,
		TxID:           res.TxID,
		PaymentStatus:  res.PaymentStatus,
		IsFinal:        res.IsFinal,
		AdditionalData: res.AdditionalData,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

func (g *CryptomusGateway) CreateInvoice(ctx context.Context, req adapter.CreateInvoiceRequest) (*model.Invoice, error) {
	payload := map[string]interface{}{
		"amount":          req.Amount.String(),
		"currency":        req.Currency,
		"order_id":        req.OrderID,
		"additional_data": req.AdditionalData,
	}
	if req.Network != "" {
		payload["network"] = req.Network
	}
	res, err := g.post(ctx, "/payment", payload)
	if err != nil {
		return nil, err
	}
	return g.toInvoice(res)
}

func (g *CryptomusGateway) PaymentInfo(ctx context.Context, orderID string) (*model.Invoice, error) {
	res, err := g.post(ctx, "/payment/info", map[string]interface{}{"order_id": orderID})
	if err != nil {
		return nil, err
	}
	return g.toInvoice(res)
}
