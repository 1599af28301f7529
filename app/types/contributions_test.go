package types

import (
	"bytes"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/civipay/authnet-gateway/app/gateway"
)

func TestNewDoPaymentRequestFromContextNormalizes(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest("POST", "/payments", bytes.NewBufferString(`{"contact_id":42,"amount_cents":2500,"currency":"usd","invoice_id":" INV-1 ","card":{"number":"4111111111111111","expiration_date":"2027-12"},"recurring":{"frequency_unit":"Month","frequency_interval":1}}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)

	parsed, err := NewDoPaymentRequestFromContext(ctx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if parsed.Currency != "USD" {
		t.Fatalf("expected upper-cased currency, got %q", parsed.Currency)
	}
	if parsed.InvoiceID != "INV-1" {
		t.Fatalf("expected trimmed invoice id, got %q", parsed.InvoiceID)
	}
	if parsed.Recurring.FrequencyUnit != "month" {
		t.Fatalf("expected lower-cased frequency unit, got %q", parsed.Recurring.FrequencyUnit)
	}
	if parsed.IPAddress == "" {
		t.Fatal("expected ip address from request")
	}
}

func TestDoPaymentValidate(t *testing.T) {
	req := &DoPaymentRequest{}
	if err := req.Validate(); err == nil {
		t.Fatal("expected contact_id validation error")
	}

	req = &DoPaymentRequest{
		ContactID:   42,
		AmountCents: 2500,
		Currency:    "USD",
		Card:        &CardInput{Number: "4111111111111111", ExpirationDate: "2027-12"},
	}
	if err := req.Validate(); err != nil {
		t.Fatalf("expected valid card request, got %v", err)
	}

	req.Bank = &BankInput{RoutingNumber: "121042882", AccountNumber: "123456789", NameOnAccount: "J Donor"}
	if err := req.Validate(); err == nil {
		t.Fatal("expected two-instrument validation error")
	}

	req.Card = nil
	if err := req.Validate(); err != nil {
		t.Fatalf("expected valid bank request, got %v", err)
	}

	req.Recurring = &RecurringInput{FrequencyUnit: "fortnight", FrequencyInterval: 1}
	if err := req.Validate(); err == nil {
		t.Fatal("expected frequency unit validation error")
	}

	req.Recurring = &RecurringInput{FrequencyUnit: "month", FrequencyInterval: 1, StartDate: "09/01/2026"}
	if err := req.Validate(); err == nil {
		t.Fatal("expected start date validation error")
	}

	req.Recurring.StartDate = "2026-09-01"
	if err := req.Validate(); err != nil {
		t.Fatalf("expected valid recurring request, got %v", err)
	}
	if parsed := req.Recurring.StartDateTime(); parsed == nil || parsed.Format("2006-01-02") != "2026-09-01" {
		t.Fatalf("unexpected parsed start date: %v", parsed)
	}
}

func TestNewListContributionsRequestFromContext(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest("GET", "/contributions?contact_id=42&status=Completed&limit=20&offset=3", nil)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)

	parsed, err := NewListContributionsRequestFromContext(ctx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if parsed.ContactID != 42 {
		t.Fatalf("unexpected contact id: %d", parsed.ContactID)
	}
	if !parsed.HasStatus || parsed.Status != 1 {
		t.Fatalf("unexpected status parse: %+v", parsed)
	}
	if parsed.Limit != 20 || parsed.Offset != 3 {
		t.Fatalf("unexpected paging: %+v", parsed)
	}
	if err := parsed.Validate(); err != nil {
		t.Fatalf("expected valid list request, got %v", err)
	}
}

func TestNewListContributionsRequestRejectsUnknownStatus(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest("GET", "/contributions?status=Overdue", nil)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)

	if _, err := NewListContributionsRequestFromContext(ctx); err == nil {
		t.Fatal("expected invalid status error")
	}
}

func TestListContributionsValidateDefaultLimit(t *testing.T) {
	req := &ListContributionsRequest{}
	if err := req.Validate(); err != nil {
		t.Fatalf("expected zero-values request to apply default limit, got %v", err)
	}
	if req.Limit != 100 {
		t.Fatalf("expected default limit 100, got %d", req.Limit)
	}
}

func TestNewChangeAmountRequestFromContext(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest("PUT", "/subscriptions/12/amount", bytes.NewBufferString(`{"amount_cents":5000}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)
	ctx.SetParamNames("id")
	ctx.SetParamValues("12")

	parsed, err := NewChangeAmountRequestFromContext(ctx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if parsed.ID != 12 || parsed.AmountCents != 5000 {
		t.Fatalf("unexpected parsed request: %+v", parsed)
	}
	if err := parsed.Validate(); err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}
}

func TestUpdateBillingValidateRequiresSingleInstrument(t *testing.T) {
	req := &UpdateBillingRequest{ID: 3}
	if err := req.Validate(); err == nil {
		t.Fatal("expected instrument validation error")
	}

	req.Card = &CardInput{Number: "4111111111111111", ExpirationDate: "2027-12"}
	if err := req.Validate(); err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}
}

func TestNewWebhookNotificationRequestFromContext(t *testing.T) {
	e := echo.New()
	body := `{"eventType":"net.authorize.payment.authcapture.created","payload":{"id":"60001"}}`
	req := httptest.NewRequest("POST", "/webhooks/authnet", bytes.NewBufferString(body))
	req.Header.Set(gateway.SignatureHeader, "sha512=ABCDEF")
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)

	parsed, err := NewWebhookNotificationRequestFromContext(ctx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if string(parsed.Payload) != body {
		t.Fatalf("payload must be the raw body, got %q", parsed.Payload)
	}
	if parsed.Signature != "sha512=ABCDEF" {
		t.Fatalf("unexpected signature: %q", parsed.Signature)
	}
	if err := parsed.Validate(); err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}

	parsed.Signature = ""
	if err := parsed.Validate(); err == nil {
		t.Fatal("expected signature validation error")
	}
}
