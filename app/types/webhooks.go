package types

import (
	"errors"
	"io"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/civipay/authnet-gateway/app/gateway"
)

// WebhookNotificationRequest carries the raw vendor notification. The body
// must stay untouched so the HMAC covers exactly the bytes that were sent.
type WebhookNotificationRequest struct {
	Payload   []byte
	Signature string
}

func NewWebhookNotificationRequestFromContext(ctx echo.Context) (*WebhookNotificationRequest, error) {
	rawBody, err := io.ReadAll(ctx.Request().Body)
	if err != nil {
		return nil, err
	}

	return &WebhookNotificationRequest{
		Payload:   rawBody,
		Signature: strings.TrimSpace(ctx.Request().Header.Get(gateway.SignatureHeader)),
	}, nil
}

func (r *WebhookNotificationRequest) Validate() error {
	if len(r.Payload) == 0 {
		return errors.New("payload is required")
	}
	if r.Signature == "" {
		return errors.New("signature header is required")
	}
	return nil
}
