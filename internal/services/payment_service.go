package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/SaqibWaheed135/theclipstream-backend-sub000/internal/models"

	"github.com/rs/zerolog"
)

// PaymentChecker is the consumed interface to the external payment
// gateway or chain lookup. Its retry and polling policy is its own
// business; we only ask once per confirmation attempt.
type PaymentChecker interface {
	CheckPaymentStatus(ctx context.Context, orderID string) (matched bool, proof string, err error)
}

// GatewayChecker asks an HTTP payment gateway whether an order has
// been paid.
type GatewayChecker struct {
	baseURL string
	client  *http.Client
	logger  zerolog.Logger
}

func NewGatewayChecker(baseURL string, logger zerolog.Logger) *GatewayChecker {
	return &GatewayChecker{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Second},
		logger:  logger,
	}
}

func (g *GatewayChecker) CheckPaymentStatus(ctx context.Context, orderID string) (bool, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/orders/"+orderID, nil)
	if err != nil {
		return false, "", err
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return false, "", fmt.Errorf("payment gateway unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, "", fmt.Errorf("payment gateway returned status %d", resp.StatusCode)
	}

	var body struct {
		Matched bool   `json:"matched"`
		Proof   string `json:"proof"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, "", fmt.Errorf("invalid gateway response: %w", err)
	}

	return body.Matched, body.Proof, nil
}

// PaymentService bridges the checker to the recharge workflow: when a
// payment matches, the recharge is approved with the proof attached.
type PaymentService struct {
	checker   PaymentChecker
	recharges *RechargeService
	logger    zerolog.Logger
}

func NewPaymentService(checker PaymentChecker, recharges *RechargeService, logger zerolog.Logger) *PaymentService {
	return &PaymentService{
		checker:   checker,
		recharges: recharges,
		logger:    logger,
	}
}

// ConfirmRecharge checks the gateway for a pending recharge and, on a
// match, runs the approval transition exactly once. An expired USDT
// request is moved to expired instead.
func (s *PaymentService) ConfirmRecharge(ctx context.Context, requestID, orderID string) (*models.RechargeRequest, error) {
	req, err := s.recharges.CheckStatus(requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != models.StatusPending {
		return req, nil
	}

	matched, proof, err := s.checker.CheckPaymentStatus(ctx, orderID)
	if err != nil {
		s.logger.Error().Err(err).Str("request_id", requestID).Str("order_id", orderID).Msg("Payment status check failed")
		return nil, fmt.Errorf("payment check failed: %w", err)
	}
	if !matched {
		return req, nil
	}

	return s.recharges.Approve(requestID, 0, map[string]string{
		"order_id":      orderID,
		"payment_proof": proof,
		"approved_via":  "payment_gateway",
	})
}
