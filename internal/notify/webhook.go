package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/2beens/gymsession/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
)

const webhookSecretHeader = "X-GYM-WEBHOOK-SECRET"

// WebhookDeliverer POSTs due notifications as JSON to a push gateway, which
// forwards them to the device.
type WebhookDeliverer struct {
	url        string
	secret     string
	httpClient *http.Client
}

func NewWebhookDeliverer(url, secret string, timeout time.Duration) *WebhookDeliverer {
	return &WebhookDeliverer{
		url:    url,
		secret: secret,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

func NewWebhookDelivererWithClient(url, secret string, httpClient *http.Client) *WebhookDeliverer {
	return &WebhookDeliverer{
		url:        url,
		secret:     secret,
		httpClient: httpClient,
	}
}

func (d *WebhookDeliverer) Deliver(ctx context.Context, n Notification) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "notify.webhook.deliver")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()
	span.SetAttributes(
		attribute.String("id", n.ID),
		attribute.String("type", string(n.Payload.Type)),
	)

	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if d.secret != "" {
		req.Header.Set(webhookSecretHeader, d.secret)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http client do: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		if err := resp.Body.Close(); err != nil {
			log.Errorf("close webhook response body: %s", err)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook responded with status %d", resp.StatusCode)
	}

	log.Debugf("notification %s delivered to webhook", n.ID)
	return nil
}
