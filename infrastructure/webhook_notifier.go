package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"adledger/models"

	log "github.com/sirupsen/logrus"
)

// webhookPayload is the body posted for every pending withdrawal
type webhookPayload struct {
	WalletAddress string `json:"walletAddress"`
	Amount        string `json:"amount"`
	RequestedAt   string `json:"requestedAt"`
}

// WebhookNotifier posts withdrawal requests to the payout webhook.
// Only a 2xx response counts as delivered.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

// NewWebhookNotifier creates a webhook notifier with a per-request timeout
func NewWebhookNotifier(url string, timeout time.Duration) *WebhookNotifier {
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// Name identifies the notification channel
func (n *WebhookNotifier) Name() string {
	return "webhook"
}

// NotifyWithdrawal posts the request and fails on transport errors or non-2xx status
func (n *WebhookNotifier) NotifyWithdrawal(ctx context.Context, request *models.WithdrawalRequest) error {
	body, err := json.Marshal(webhookPayload{
		WalletAddress: request.WalletAddress,
		Amount:        request.Amount.String(),
		RequestedAt:   request.RequestedAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post withdrawal webhook: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("withdrawal webhook returned status %d", resp.StatusCode)
	}

	log.WithFields(log.Fields{
		"withdrawalId": request.ID,
		"status":       resp.StatusCode,
	}).Debug("Withdrawal webhook accepted request")

	return nil
}
