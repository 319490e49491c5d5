package governance

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"lending-risk-monitor/internal/domain"
)

// Notification is the webhook payload for one governance event.
type Notification struct {
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	EventType string            `json:"event_type"`
	Vault     string            `json:"vault"`
	Block     int64             `json:"block"`
	TxnHash   string            `json:"txn_hash"`
	Timestamp time.Time         `json:"timestamp"`
	Params    map[string]string `json:"params,omitempty"`
}

// WebhookNotifier posts governance notifications to a webhook URL.
type WebhookNotifier struct {
	webhookURL string
	client     *http.Client
	log        zerolog.Logger
}

var _ Notifier = (*WebhookNotifier)(nil)

// NewWebhookNotifier creates a webhook notifier.
func NewWebhookNotifier(webhookURL string, log zerolog.Logger) *WebhookNotifier {
	return &WebhookNotifier{
		webhookURL: webhookURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: log,
	}
}

// NotifyGovEvent posts one governance event to the webhook.
func (w *WebhookNotifier) NotifyGovEvent(ctx context.Context, event *domain.GovEvent) error {
	n := Notification{
		Title:     eventTitle(event.EventType),
		Message:   eventMessage(event),
		EventType: string(event.EventType),
		Vault:     event.VaultAddress,
		Block:     event.BlockNumber,
		TxnHash:   event.TxnHash,
		Timestamp: time.Now().UTC(),
		Params:    event.Params,
	}

	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook response status %d", resp.StatusCode)
	}

	w.log.Info().
		Str("event_type", string(event.EventType)).
		Str("vault", event.VaultAddress).
		Int64("block", event.BlockNumber).
		Msg("governance notification sent")
	return nil
}

// eventTitle renders "gov-set-interest-fee" as "Gov Set Interest Fee".
func eventTitle(et domain.GovEventType) string {
	parts := strings.Split(string(et), "-")
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, " ")
}

func eventMessage(event *domain.GovEvent) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s on vault %s at block %d", eventTitle(event.EventType), event.VaultAddress, event.BlockNumber)

	if len(event.Params) > 0 {
		keys := make([]string, 0, len(event.Params))
		for k := range event.Params {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		sb.WriteString(" (")
		for i, k := range keys {
			if i > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "%s=%s", k, event.Params[k])
		}
		sb.WriteString(")")
	}
	return sb.String()
}
