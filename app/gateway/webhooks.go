package gateway

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-resty/resty/v2"
)

// DefaultEnabledEvents is the set of vendor events handled by the notification
// endpoint. Registered webhooks subscribe to exactly this list.
func DefaultEnabledEvents() []string {
	return []string{
		"net.authorize.payment.authorization.created",
		"net.authorize.payment.capture.created",
		"net.authorize.payment.authcapture.created",
		"net.authorize.payment.priorAuthCapture.created",
		"net.authorize.payment.refund.created",
		"net.authorize.payment.void.created",
	}
}

// Webhook is a registration on the vendor's webhooks REST API.
type Webhook struct {
	WebhookID  string   `json:"webhookId,omitempty"`
	Name       string   `json:"name,omitempty"`
	URL        string   `json:"url"`
	Status     string   `json:"status"`
	EventTypes []string `json:"eventTypes"`
}

// IsActive reports whether the registration is enabled at the vendor.
func (w Webhook) IsActive() bool {
	return w.Status == "active"
}

func (c *Client) webhooksRequest(ctx context.Context) *resty.Request {
	return c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBasicAuth(c.cfg.APILoginID, c.cfg.TransactionKey)
}

// ListWebhooks returns every webhook registered for the merchant.
func (c *Client) ListWebhooks(ctx context.Context) ([]Webhook, error) {
	resp, err := c.webhooksRequest(ctx).Get(c.cfg.WebhooksEndpoint)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() >= 400 {
		return nil, fmt.Errorf("authnet list webhooks failed: status=%d body=%s", resp.StatusCode(), resp.String())
	}

	var webhooks []Webhook
	if err := json.Unmarshal(resp.Body(), &webhooks); err != nil {
		return nil, err
	}
	return webhooks, nil
}

// CreateWebhook registers a new active webhook for the default event set.
func (c *Client) CreateWebhook(ctx context.Context, callbackURL string) (*Webhook, error) {
	payload := Webhook{
		Name:       "civicrm-authnet",
		URL:        callbackURL,
		Status:     "active",
		EventTypes: DefaultEnabledEvents(),
	}

	resp, err := c.webhooksRequest(ctx).SetBody(payload).Post(c.cfg.WebhooksEndpoint)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() >= 400 {
		return nil, fmt.Errorf("authnet create webhook failed: status=%d body=%s", resp.StatusCode(), resp.String())
	}

	var created Webhook
	if err := json.Unmarshal(resp.Body(), &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateWebhook replaces the registration's status and event list.
func (c *Client) UpdateWebhook(ctx context.Context, webhook Webhook) error {
	if webhook.WebhookID == "" {
		return fmt.Errorf("webhook id is required for update")
	}

	payload := Webhook{
		URL:        webhook.URL,
		Status:     "active",
		EventTypes: DefaultEnabledEvents(),
	}

	resp, err := c.webhooksRequest(ctx).SetBody(payload).Put(c.cfg.WebhooksEndpoint + "/" + webhook.WebhookID)
	if err != nil {
		return err
	}
	if resp.StatusCode() >= 400 {
		return fmt.Errorf("authnet update webhook failed: status=%d body=%s", resp.StatusCode(), resp.String())
	}
	return nil
}
