package notify

import (
	"attendance-backend/internal/components/telemetry"
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// WebhookSink posts messages as {"message": body} to a url.
type WebhookSink struct {
	url  string
	http *resty.Client
}

func NewWebhookSink(url string, tel telemetry.API) WebhookSink {
	client := resty.New()
	client.SetTimeout(15 * time.Second)
	client.SetHeader("content-type", "application/json")
	telemetry.InstrumentResty(client, telemetry.NewScopedAPI("webhook", tel))

	return WebhookSink{url: url, http: client}
}

type webhookPayload struct {
	Message string `json:"message"`
}

func (s WebhookSink) Send(ctx context.Context, msg Message) error {
	res, err := s.http.R().
		SetContext(ctx).
		SetBody(webhookPayload{Message: msg.Body}).
		Post(s.url)
	if err != nil {
		return fmt.Errorf("send webhook: %w", err)
	}
	if res.IsError() {
		return fmt.Errorf("send webhook: %s", res.Status())
	}
	return nil
}
