package gateway

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	liveAPIEndpoint    = "https://api.authorize.net/xml/v1/request.api"
	sandboxAPIEndpoint = "https://apitest.authorize.net/xml/v1/request.api"

	liveWebhooksEndpoint    = "https://api.authorize.net/rest/v1/webhooks"
	sandboxWebhooksEndpoint = "https://apitest.authorize.net/rest/v1/webhooks"
)

type Config struct {
	APILoginID     string
	TransactionKey string
	SignatureKey   string
	TestMode       bool

	// APIEndpoint and WebhooksEndpoint override the defaults derived from
	// TestMode. Used by tests and by processors pointed at custom URLs.
	APIEndpoint      string
	WebhooksEndpoint string

	HTTPTimeout time.Duration
}

// Client talks to the Authorize.Net JSON API and the webhooks REST API.
type Client struct {
	cfg    Config
	client *resty.Client
}

func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APILoginID) == "" {
		return nil, errors.New("authnet api login id is not configured")
	}
	if strings.TrimSpace(cfg.TransactionKey) == "" {
		return nil, errors.New("authnet transaction key is not configured")
	}

	if cfg.APIEndpoint == "" {
		if cfg.TestMode {
			cfg.APIEndpoint = sandboxAPIEndpoint
		} else {
			cfg.APIEndpoint = liveAPIEndpoint
		}
	}
	if cfg.WebhooksEndpoint == "" {
		if cfg.TestMode {
			cfg.WebhooksEndpoint = sandboxWebhooksEndpoint
		} else {
			cfg.WebhooksEndpoint = liveWebhooksEndpoint
		}
	}

	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		cfg:    cfg,
		client: resty.New().SetTimeout(timeout),
	}, nil
}

func (c *Client) SignatureKey() string {
	return c.cfg.SignatureKey
}

type merchantAuthentication struct {
	Name           string `json:"name"`
	TransactionKey string `json:"transactionKey"`
}

func (c *Client) auth() merchantAuthentication {
	return merchantAuthentication{
		Name:           c.cfg.APILoginID,
		TransactionKey: c.cfg.TransactionKey,
	}
}

// post sends one JSON API envelope and returns the raw response body. The
// vendor prefixes responses with a UTF-8 BOM which must be stripped before
// unmarshalling.
func (c *Client) post(ctx context.Context, body interface{}) ([]byte, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(c.cfg.APIEndpoint)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() >= 400 {
		return nil, fmt.Errorf("authnet request failed: status=%d body=%s", resp.StatusCode(), resp.String())
	}

	return bytes.TrimPrefix(resp.Body(), []byte("\xef\xbb\xbf")), nil
}

// CreditCard is the card variant of a payment instrument.
type CreditCard struct {
	Number         string
	ExpirationDate string
	Code           string
}

// BankAccount is the ACH variant of a payment instrument.
type BankAccount struct {
	AccountType   string
	RoutingNumber string
	AccountNumber string
	NameOnAccount string
	BankName      string
}

// PaymentSource carries exactly one payment instrument variant.
type PaymentSource struct {
	Card *CreditCard
	Bank *BankAccount
}

func (s PaymentSource) valid() bool {
	return (s.Card != nil) != (s.Bank != nil)
}

type cardPayload struct {
	CardNumber     string `json:"cardNumber"`
	ExpirationDate string `json:"expirationDate"`
	CardCode       string `json:"cardCode,omitempty"`
}

type bankPayload struct {
	AccountType   string `json:"accountType"`
	RoutingNumber string `json:"routingNumber"`
	AccountNumber string `json:"accountNumber"`
	NameOnAccount string `json:"nameOnAccount"`
	EcheckType    string `json:"echeckType"`
	BankName      string `json:"bankName,omitempty"`
}

type paymentPayload struct {
	CreditCard  *cardPayload `json:"creditCard,omitempty"`
	BankAccount *bankPayload `json:"bankAccount,omitempty"`
}

func buildPaymentPayload(source PaymentSource) (*paymentPayload, error) {
	if !source.valid() {
		return nil, errors.New("payment source must carry exactly one instrument")
	}

	if source.Card != nil {
		return &paymentPayload{
			CreditCard: &cardPayload{
				CardNumber:     source.Card.Number,
				ExpirationDate: source.Card.ExpirationDate,
				CardCode:       source.Card.Code,
			},
		}, nil
	}

	accountType := strings.ToLower(strings.TrimSpace(source.Bank.AccountType))
	if accountType == "" {
		accountType = "checking"
	}
	return &paymentPayload{
		BankAccount: &bankPayload{
			AccountType:   accountType,
			RoutingNumber: source.Bank.RoutingNumber,
			AccountNumber: source.Bank.AccountNumber,
			NameOnAccount: source.Bank.NameOnAccount,
			EcheckType:    "WEB",
			BankName:      source.Bank.BankName,
		},
	}, nil
}

// BillingAddress is the billTo block sent with transactions and subscriptions.
type BillingAddress struct {
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Company   string `json:"company,omitempty"`
	Address   string `json:"address,omitempty"`
	City      string `json:"city,omitempty"`
	State     string `json:"state,omitempty"`
	Zip       string `json:"zip,omitempty"`
	Country   string `json:"country,omitempty"`
}

type customerPayload struct {
	ID    string `json:"id,omitempty"`
	Email string `json:"email,omitempty"`
}

type orderPayload struct {
	InvoiceNumber string `json:"invoiceNumber,omitempty"`
	Description   string `json:"description,omitempty"`
}

// invoiceNumberMaxLen is the vendor's hard field limit.
const invoiceNumberMaxLen = 20

// TruncateInvoiceNumber shortens an invoice number to the vendor's field
// limit. Inbound lookups must match on the same truncated form.
func TruncateInvoiceNumber(invoiceID string) string {
	if len(invoiceID) > invoiceNumberMaxLen {
		return invoiceID[:invoiceNumberMaxLen]
	}
	return invoiceID
}

// FormatAmount renders cents as the vendor's decimal string, e.g. 1234 as
// "12.34". Negative amounts keep their sign.
func FormatAmount(amountCents int64) string {
	sign := ""
	if amountCents < 0 {
		sign = "-"
		amountCents = -amountCents
	}
	return fmt.Sprintf("%s%d.%02d", sign, amountCents/100, amountCents%100)
}

// ParseAmount converts the vendor's decimal amount string back to cents.
func ParseAmount(amount string) (int64, error) {
	amount = strings.TrimSpace(amount)
	if amount == "" {
		return 0, nil
	}

	negative := strings.HasPrefix(amount, "-")
	amount = strings.TrimPrefix(amount, "-")

	whole := amount
	frac := ""
	if i := strings.IndexByte(amount, '.'); i >= 0 {
		whole, frac = amount[:i], amount[i+1:]
	}
	if whole == "" {
		whole = "0"
	}
	if len(frac) > 2 {
		frac = frac[:2]
	}
	for len(frac) < 2 {
		frac += "0"
	}

	wholeCents, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", amount, err)
	}
	fracCents, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", amount, err)
	}

	cents := wholeCents*100 + fracCents
	if negative {
		cents = -cents
	}
	return cents, nil
}
