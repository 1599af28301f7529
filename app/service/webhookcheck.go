package service

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/civipay/authnet-gateway/app/gateway"
)

type webhooksGateway interface {
	ListWebhooks(ctx context.Context) ([]gateway.Webhook, error)
	CreateWebhook(ctx context.Context, callbackURL string) (*gateway.Webhook, error)
	UpdateWebhook(ctx context.Context, webhook gateway.Webhook) error
}

// WebhookCheckResult describes what EnsureWebhook did.
type WebhookCheckResult struct {
	WebhookID string
	Created   bool
	Updated   bool
}

type WebhookCheckService struct {
	gw          webhooksGateway
	callbackURL string
	logger      *logrus.Entry
}

func NewWebhookCheckService(gw webhooksGateway, callbackURL string, logger *logrus.Entry) *WebhookCheckService {
	return &WebhookCheckService{
		gw:          gw,
		callbackURL: callbackURL,
		logger:      logger,
	}
}

// EnsureWebhook makes sure the merchant account has an active registration
// for the notification endpoint with the full event set: missing ones are
// created and stale ones updated in place.
func (s *WebhookCheckService) EnsureWebhook(ctx context.Context) (*WebhookCheckResult, error) {
	if s.callbackURL == "" {
		return nil, errors.New("webhook callback url is not configured")
	}

	webhooks, err := s.gw.ListWebhooks(ctx)
	if err != nil {
		return nil, err
	}

	for _, webhook := range webhooks {
		if webhook.URL != s.callbackURL {
			continue
		}

		if webhook.IsActive() && hasAllEvents(webhook.EventTypes) {
			s.logger.WithField("webhook_id", webhook.WebhookID).Debug("webhook registration is current")
			return &WebhookCheckResult{WebhookID: webhook.WebhookID}, nil
		}

		if err := s.gw.UpdateWebhook(ctx, webhook); err != nil {
			return nil, err
		}
		s.logger.WithField("webhook_id", webhook.WebhookID).Info("webhook registration updated")
		return &WebhookCheckResult{WebhookID: webhook.WebhookID, Updated: true}, nil
	}

	created, err := s.gw.CreateWebhook(ctx, s.callbackURL)
	if err != nil {
		return nil, err
	}
	s.logger.WithField("webhook_id", created.WebhookID).Info("webhook registration created")
	return &WebhookCheckResult{WebhookID: created.WebhookID, Created: true}, nil
}

func hasAllEvents(eventTypes []string) bool {
	registered := make(map[string]struct{}, len(eventTypes))
	for _, eventType := range eventTypes {
		registered[eventType] = struct{}{}
	}
	for _, required := range gateway.DefaultEnabledEvents() {
		if _, ok := registered[required]; !ok {
			return false
		}
	}
	return true
}
