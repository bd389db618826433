package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"fulfillment-api/internal/model"
)

const (
	ColorGreen  = 0x2ECC71
	ColorOrange = 0xFFA500
	ColorRed    = 0xE74C3C

	maxRetryAfter = 5 * time.Second
)

// Embed is a Discord-style rich message.
type Embed struct {
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	Color       int          `json:"color,omitempty"`
	Fields      []Field      `json:"fields,omitempty"`
	Footer      *EmbedFooter `json:"footer,omitempty"`
	Timestamp   string       `json:"timestamp,omitempty"`
}

type EmbedFooter struct {
	Text string `json:"text"`
}

type Field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type webhookPayload struct {
	Content string  `json:"content,omitempty"`
	Embeds  []Embed `json:"embeds,omitempty"`
}

// webhookClient posts payloads to Discord-compatible webhooks.
type webhookClient struct {
	httpClient *http.Client
	limiter    *rate.Limiter
}

func newWebhookClient() *webhookClient {
	return &webhookClient{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(5), 5),
	}
}

// send posts payload to url, waiting once on a 429 before giving up.
func (c *webhookClient) send(ctx context.Context, url string, payload webhookPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	for attempt := 0; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit wait: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("new request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("webhook: %w", err)
		}
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests {
			if attempt > 0 {
				return fmt.Errorf("webhook rate limited")
			}
			wait := retryAfter(resp.Header, body)
			log.Printf("[Webhook] Rate limited, retrying in %s", wait)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
			continue
		}
		if resp.StatusCode >= 300 {
			return fmt.Errorf("webhook: status=%d", resp.StatusCode)
		}
		return nil
	}
}

// retryAfter reads the Discord retry hint, capped at maxRetryAfter.
func retryAfter(h http.Header, body []byte) time.Duration {
	wait := time.Second
	if v := h.Get("Retry-After"); v != "" {
		if secs, err := strconv.ParseFloat(v, 64); err == nil {
			wait = time.Duration(secs * float64(time.Second))
		}
	} else {
		var hint struct {
			RetryAfter float64 `json:"retry_after"`
		}
		if json.Unmarshal(body, &hint) == nil && hint.RetryAfter > 0 {
			wait = time.Duration(hint.RetryAfter * float64(time.Second))
		}
	}
	return min(max(wait, 0), maxRetryAfter)
}

// Webhook sends the buyer-facing order summary. The order's channel handle is
// the target when it starts with an allowed prefix, otherwise the default URL.
type Webhook struct {
	defaultURL string
	prefixes   []string
	client     *webhookClient
}

// NewWebhook creates a buyer notifier. defaultURL may be empty. Without
// allowedPrefixes every order goes to defaultURL.
func NewWebhook(defaultURL string, allowedPrefixes ...string) *Webhook {
	return &Webhook{defaultURL: defaultURL, prefixes: allowedPrefixes, client: newWebhookClient()}
}

func (w *Webhook) target(channel string) string {
	for _, p := range w.prefixes {
		if p != "" && strings.HasPrefix(channel, p) {
			return channel
		}
	}
	if channel != "" && (strings.HasPrefix(channel, "https://") || strings.HasPrefix(channel, "http://")) {
		log.Printf("[Webhook] Channel %q is not an allowed webhook, using default", channel)
	}
	return w.defaultURL
}

func (w *Webhook) Notify(ctx context.Context, userID string, d model.Delivery) error {
	url := w.target(d.Channel)
	if url == "" {
		return nil
	}
	return w.client.send(ctx, url, webhookPayload{
		Content: "<@" + userID + ">",
		Embeds:  []Embed{OrderEmbed(d)},
	})
}

// OrderEmbed renders the buyer-facing message for a settled order.
func OrderEmbed(d model.Delivery) Embed {
	e := Embed{
		Footer:    &EmbedFooter{Text: "#" + d.OrderID},
		Timestamp: d.SettledAt.UTC().Format(time.RFC3339),
	}
	if d.SettledAt.IsZero() {
		e.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}

	if d.Outcome == model.OutcomeFailed {
		e.Title = "Purchase Failed"
		e.Color = ColorRed
		e.Description = failureText(d)
		e.Fields = []Field{
			{Name: "Order", Value: "`#" + d.OrderID + "`", Inline: true},
			{Name: "Product", Value: "`" + d.Product + "`", Inline: true},
		}
		return e
	}

	e.Title = "Order Summary"
	e.Color = ColorGreen
	e.Fields = []Field{
		{Name: "Order", Value: "`#" + d.OrderID + "`", Inline: true},
		{Name: "Product", Value: "`" + d.Product + "`", Inline: true},
		{Name: "Amount", Value: "`" + strconv.Itoa(d.Delivered) + "`", Inline: true},
	}
	if d.Partial() {
		e.Title = "Partial Delivery"
		e.Color = ColorOrange
		e.Fields = append(e.Fields,
			Field{Name: "Requested", Value: "`" + strconv.Itoa(d.Requested) + "`", Inline: true},
			Field{Name: "Note", Value: fmt.Sprintf("Only %d valid accounts were available", d.Delivered)},
		)
		if d.PrecheckEnabled {
			e.Fields = append(e.Fields, Field{
				Name:  "Precheck",
				Value: fmt.Sprintf("%d valid, %d invalid accounts removed from stock", d.PrecheckValid, d.PrecheckInvalid),
			})
		}
	}
	return e
}

func failureText(d model.Delivery) string {
	switch d.Failure {
	case model.FailureValidatorUnavailable:
		return fmt.Sprintf("Precheck API is not available for **%s**.\n\nThe API server needs to be running for account validation.", d.Product)
	case model.FailureNoUnitsAvailable:
		return fmt.Sprintf("No valid accounts available for **%s**.", d.Product)
	default:
		return "An error occurred while processing your order."
	}
}

// PurchaseLog posts a one-line audit entry for every settled order.
type PurchaseLog struct {
	url    string
	client *webhookClient
}

// NewPurchaseLog creates an audit notifier. It is a no-op when url is empty.
func NewPurchaseLog(url string) *PurchaseLog {
	return &PurchaseLog{url: url, client: newWebhookClient()}
}

func (p *PurchaseLog) Notify(ctx context.Context, userID string, d model.Delivery) error {
	if p.url == "" {
		return nil
	}
	return p.client.send(ctx, p.url, webhookPayload{Content: Summary(d)})
}
