package gateway

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

// flexString accepts both JSON string and number encodings. The vendor is
// not consistent about which one payload.id arrives as.
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*s = ""
		return nil
	}
	if data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = flexString(str)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return err
	}
	*s = flexString(num.String())
	return nil
}

// WebhookNotification is the envelope the vendor POSTs to the webhook
// endpoint. Payload.ID is a transaction id for payment events and a
// subscription id for subscription events.
type WebhookNotification struct {
	NotificationID string `json:"notificationId"`
	EventType      string `json:"eventType"`
	EventDate      string `json:"eventDate"`
	WebhookID      string `json:"webhookId"`
	Payload        struct {
		ID         flexString `json:"id"`
		EntityName string     `json:"entityName"`
	} `json:"payload"`
}

// EntityID returns payload.id as a string, or empty when absent.
func (n *WebhookNotification) EntityID() string {
	return strings.TrimSpace(string(n.Payload.ID))
}

// ParseWebhookNotification decodes a raw webhook body. Callers must verify
// the signature first.
func ParseWebhookNotification(payload []byte) (*WebhookNotification, error) {
	var notification WebhookNotification
	if err := json.Unmarshal(payload, &notification); err != nil {
		return nil, err
	}
	if strings.TrimSpace(notification.EventType) == "" {
		return nil, errors.New("webhook notification missing event type")
	}
	return &notification, nil
}

// EventKey reduces a vendor event-type string to the stable suffix routing
// keys on. "net.authorize.payment.authcapture.created" becomes
// "authcapture.created" and "net.authorize.customer.subscription.terminated"
// becomes "subscription.terminated".
func EventKey(eventType string) string {
	key := strings.TrimSpace(strings.ToLower(eventType))
	key = strings.TrimPrefix(key, "net.authorize.")
	key = strings.TrimPrefix(key, "payment.")
	key = strings.TrimPrefix(key, "customer.")
	return key
}

// IsSubscriptionEvent reports whether the event concerns an ARB subscription
// rather than a single transaction.
func IsSubscriptionEvent(eventType string) bool {
	return strings.HasPrefix(EventKey(eventType), "subscription.")
}
