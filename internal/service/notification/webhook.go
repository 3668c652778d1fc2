package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"trading-alert-bot/internal/service/monitor"
)

// WebhookNotifier delivers notifications by POSTing a message to a
// Discord-style webhook. URLs are routed by notification kind with an
// optional fallback under the empty key.
type WebhookNotifier struct {
	urls map[monitor.Kind]string
	cli  *http.Client
}

var _ monitor.Notifier = (*WebhookNotifier)(nil)

func NewWebhookNotifier(urls map[monitor.Kind]string) *WebhookNotifier {
	return &WebhookNotifier{
		urls: urls,
		cli:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (w *WebhookNotifier) Notify(ctx context.Context, n monitor.Notification) error {
	url, ok := w.urls[n.Kind]
	if !ok || url == "" {
		url = w.urls[""]
	}
	if url == "" {
		return fmt.Errorf("no webhook configured for kind %q", n.Kind)
	}

	body, err := json.Marshal(map[string]string{"content": Format(n)})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.cli.Do(req)
	if err != nil {
		return fmt.Errorf("webhook post: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook post: status %d", resp.StatusCode)
	}
	return nil
}

// Format renders a notification as a human-readable message line.
func Format(n monitor.Notification) string {
	ts := n.At.Format("15:04:05")
	switch n.Kind {
	case monitor.KindWhale:
		return fmt.Sprintf("🐋 [%s] %s %s %s @ $%s = $%s (%s)",
			n.Exchange, n.Symbol, n.Direction, n.Quantity, n.Price,
			n.Price.Mul(n.Quantity).Round(0), ts)
	case monitor.KindPrice:
		return fmt.Sprintf("🔔 %s price %s %s: now $%s (%s)",
			n.Symbol, n.Direction, n.Target, n.Price, ts)
	case monitor.KindRSI:
		return fmt.Sprintf("📊 %s %s RSI %s %s: now %s (%s)",
			n.Symbol, n.Timeframe, n.Direction, n.Target, n.Price, ts)
	case monitor.KindDivergence:
		return fmt.Sprintf("⚠️ %s %s %s divergence, strength %.2f, price $%s (%s)",
			n.Symbol, n.Timeframe, n.Direction, n.Strength, n.Price, ts)
	case monitor.KindVolume:
		return fmt.Sprintf("📈 %s volume spike: %s avg %s, now %s (%.0f%%) (%s)",
			n.Symbol, n.Timeframe, n.Target, n.Quantity, n.Strength, ts)
	}
	return fmt.Sprintf("%s %s %s (%s)", n.Kind, n.Symbol, n.Direction, ts)
}
