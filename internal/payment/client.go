package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/utafrali/CloudGames/internal/domain"
	apperrors "github.com/utafrali/CloudGames/pkg/errors"
	"github.com/utafrali/CloudGames/pkg/httpclient"
)

// createPaymentPath is appended to the configured base URL.
const createPaymentPath = "/payments/payments"

// maxResponseBody bounds how much of a success body is read.
const maxResponseBody = 1 << 10

// Creator charges a user through the payment service and returns the new
// payment id.
type Creator interface {
	CreatePayment(ctx context.Context, req domain.PaymentRequest) (uuid.UUID, error)
}

// Config holds the payment service location.
type Config struct {
	BaseURL string
}

// Client talks to the external payment service.
type Client struct {
	http    httpclient.Doer
	baseURL string
	logger  *slog.Logger
}

var _ Creator = (*Client)(nil)

// NewClient creates a payment client. doer is usually a circuit breaker
// around an httpclient.Client.
func NewClient(doer httpclient.Doer, cfg Config, logger *slog.Logger) *Client {
	return &Client{
		http:    doer,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		logger:  logger,
	}
}

// CreatePayment posts req to the payment service. Any 2xx answer is a
// success and its body must be the payment GUID, bare or JSON-quoted. Every
// other outcome is a payment service error that carries no payment id.
func (c *Client) CreatePayment(ctx context.Context, req domain.PaymentRequest) (uuid.UUID, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshal payment request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+createPaymentPath, bytes.NewReader(body))
	if err != nil {
		return uuid.Nil, fmt.Errorf("create payment request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(ctx, httpReq)
	if err != nil {
		if errors.Is(err, apperrors.ErrCircuitOpen) {
			return uuid.Nil, apperrors.PaymentService("payment service is temporarily unavailable", err)
		}
		return uuid.Nil, apperrors.PaymentService("payment service could not be reached", err)
	}

	if !httpclient.IsSuccess(resp.StatusCode) {
		statusErr := httpclient.ParseResponseError(resp, "payment")
		c.logger.WarnContext(ctx, "payment rejected",
			slog.String("order_id", req.OrderID),
			slog.Int("status", resp.StatusCode),
			slog.String("error", statusErr.Error()),
		)
		return uuid.Nil, apperrors.PaymentService(
			fmt.Sprintf("payment service returned status %d", resp.StatusCode), statusErr)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return uuid.Nil, apperrors.PaymentService("payment response could not be read", err)
	}

	id, err := parsePaymentID(raw)
	if err != nil {
		return uuid.Nil, apperrors.PaymentService("payment service returned an invalid payment id", err)
	}

	c.logger.InfoContext(ctx, "payment created",
		slog.String("order_id", req.OrderID),
		slog.String("payment_id", id.String()),
	)
	return id, nil
}

// parsePaymentID accepts a bare GUID or a JSON string holding one.
func parsePaymentID(raw []byte) (uuid.UUID, error) {
	s := strings.TrimSpace(string(raw))
	if strings.HasPrefix(s, `"`) {
		var quoted string
		if err := json.Unmarshal([]byte(s), &quoted); err != nil {
			return uuid.Nil, fmt.Errorf("decode payment id: %w", err)
		}
		s = strings.TrimSpace(quoted)
	}
	if s == "" {
		return uuid.Nil, errors.New("empty payment id")
	}

	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("parse payment id %q: %w", s, err)
	}
	if id == uuid.Nil {
		return uuid.Nil, errors.New("nil payment id")
	}
	return id, nil
}
