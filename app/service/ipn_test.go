package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/civipay/authnet-gateway/app/entity"
	"github.com/civipay/authnet-gateway/app/gateway"
)

const testSignatureKey = "test-signature-key"

func signedPayload(t *testing.T, eventType, payloadID string) ([]byte, string) {
	t.Helper()
	body := fmt.Sprintf(
		`{"notificationId":"n-1","eventType":%q,"webhookId":"wh-1","payload":{"id":%q,"entityName":"transaction"}}`,
		eventType, payloadID,
	)
	mac := hmac.New(sha512.New, []byte(testSignatureKey))
	mac.Write([]byte(body))
	signature := "sha512=" + strings.ToUpper(hex.EncodeToString(mac.Sum(nil)))
	return []byte(body), signature
}

func newIPNService(contributions *fakeContributionRepo, recurs *fakeRecurRepo, records *fakeRecordRepo, gw *fakeGateway) *IPNService {
	gw.signatureKey = testSignatureKey
	return NewIPNService(contributions, recurs, records, gw, newTestLogger())
}

func seedPendingContribution(t *testing.T, contributions *fakeContributionRepo, invoiceID string) *entity.Contribution {
	t.Helper()
	contribution := &entity.Contribution{
		ContactID:   42,
		InvoiceID:   gateway.TruncateInvoiceNumber(invoiceID),
		AmountCents: 2500,
		Currency:    "USD",
		StatusID:    entity.ContributionStatusPending,
	}
	if err := contributions.Create(context.Background(), contribution); err != nil {
		t.Fatalf("seed contribution: %v", err)
	}
	return contribution
}

func detailsFor(invoiceID string) *gateway.TransactionDetails {
	return &gateway.TransactionDetails{
		TransID:         "60001",
		TransactionType: "authCaptureTransaction",
		AmountCents:     2500,
		InvoiceNumber:   gateway.TruncateInvoiceNumber(invoiceID),
		SubmitTime:      time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
	}
}

func TestHandleWebhookInvalidSignatureNeverFetches(t *testing.T) {
	gw := &fakeGateway{details: detailsFor("INV-1")}
	svc := newIPNService(newFakeContributionRepo(), newFakeRecurRepo(), newFakeRecordRepo(), gw)

	payload, _ := signedPayload(t, "net.authorize.payment.authcapture.created", "60001")

	err := svc.HandleWebhook(context.Background(), payload, "sha512=deadbeef")
	if !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
	if gw.detailsCalls != 0 {
		t.Fatalf("expected no detail fetch, got %d", gw.detailsCalls)
	}
}

func TestHandleWebhookAuthCaptureCompletes(t *testing.T) {
	contributions := newFakeContributionRepo()
	records := newFakeRecordRepo()
	contribution := seedPendingContribution(t, contributions, "INV-1")

	gw := &fakeGateway{details: detailsFor("INV-1")}
	svc := newIPNService(contributions, newFakeRecurRepo(), records, gw)

	payload, signature := signedPayload(t, "net.authorize.payment.authcapture.created", "60001")
	if err := svc.HandleWebhook(context.Background(), payload, signature); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	stored, _ := contributions.FindByID(context.Background(), contribution.ID)
	if stored.StatusID != entity.ContributionStatusCompleted {
		t.Fatalf("expected completed, got %d", stored.StatusID)
	}
	if stored.TrxnID == nil || *stored.TrxnID != "60001" {
		t.Fatalf("unexpected trxn id: %v", stored.TrxnID)
	}
	if stored.ReceiveDate == nil {
		t.Fatal("expected receive date")
	}

	exists, _ := records.ExistsByTrxnID(context.Background(), "60001")
	if !exists {
		t.Fatal("expected payment record")
	}
}

func TestHandleWebhookRedeliveryIsIdempotent(t *testing.T) {
	contributions := newFakeContributionRepo()
	records := newFakeRecordRepo()
	seedPendingContribution(t, contributions, "INV-1")

	gw := &fakeGateway{details: detailsFor("INV-1")}
	svc := newIPNService(contributions, newFakeRecurRepo(), records, gw)

	payload, signature := signedPayload(t, "net.authorize.payment.authcapture.created", "60001")
	if err := svc.HandleWebhook(context.Background(), payload, signature); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	if err := svc.HandleWebhook(context.Background(), payload, signature); err != nil {
		t.Fatalf("redelivery: %v", err)
	}

	if len(records.records) != 1 {
		t.Fatalf("expected one payment record, got %d", len(records.records))
	}
	if contributions.count() != 1 {
		t.Fatalf("expected one contribution, got %d", contributions.count())
	}
}

func TestHandleWebhookUnmappedEventIsSilentNoOp(t *testing.T) {
	gw := &fakeGateway{details: detailsFor("INV-1")}
	svc := newIPNService(newFakeContributionRepo(), newFakeRecurRepo(), newFakeRecordRepo(), gw)

	payload, signature := signedPayload(t, "net.authorize.customer.created", "abc")
	if err := svc.HandleWebhook(context.Background(), payload, signature); err != nil {
		t.Fatalf("expected silent no-op, got %v", err)
	}
	if gw.detailsCalls != 0 {
		t.Fatalf("expected no detail fetch for unmapped event, got %d", gw.detailsCalls)
	}
}

func TestHandleWebhookMissingPayloadID(t *testing.T) {
	gw := &fakeGateway{details: detailsFor("INV-1")}
	svc := newIPNService(newFakeContributionRepo(), newFakeRecurRepo(), newFakeRecordRepo(), gw)

	payload, signature := signedPayload(t, "net.authorize.payment.authcapture.created", "")
	err := svc.HandleWebhook(context.Background(), payload, signature)
	if !errors.Is(err, ErrMissingTransactionID) {
		t.Fatalf("expected ErrMissingTransactionID, got %v", err)
	}
}

func TestHandleWebhookNoMatchingContribution(t *testing.T) {
	gw := &fakeGateway{details: detailsFor("INV-UNKNOWN")}
	svc := newIPNService(newFakeContributionRepo(), newFakeRecurRepo(), newFakeRecordRepo(), gw)

	payload, signature := signedPayload(t, "net.authorize.payment.authcapture.created", "60001")
	err := svc.HandleWebhook(context.Background(), payload, signature)
	if !errors.Is(err, ErrContributionNotFound) {
		t.Fatalf("expected ErrContributionNotFound, got %v", err)
	}
}

func TestHandleWebhookRefundForcesNegativeAmount(t *testing.T) {
	contributions := newFakeContributionRepo()
	records := newFakeRecordRepo()
	contribution := seedPendingContribution(t, contributions, "INV-1")
	contribution.StatusID = entity.ContributionStatusCompleted
	_ = contributions.Update(context.Background(), contribution)

	details := detailsFor("INV-1")
	details.TransID = "70001"
	details.TransactionType = "refundTransaction"
	details.AmountCents = 2500

	gw := &fakeGateway{details: details}
	svc := newIPNService(contributions, newFakeRecurRepo(), records, gw)

	payload, signature := signedPayload(t, "net.authorize.payment.refund.created", "70001")
	if err := svc.HandleWebhook(context.Background(), payload, signature); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(records.records) != 1 {
		t.Fatalf("expected one record, got %d", len(records.records))
	}
	if records.records[0].AmountCents != -2500 {
		t.Fatalf("expected negative amount, got %d", records.records[0].AmountCents)
	}

	stored, _ := contributions.FindByID(context.Background(), contribution.ID)
	if stored.StatusID != entity.ContributionStatusRefunded {
		t.Fatalf("expected refunded, got %d", stored.StatusID)
	}
}

func TestHandleWebhookVoidCancels(t *testing.T) {
	contributions := newFakeContributionRepo()
	contribution := seedPendingContribution(t, contributions, "INV-1")

	details := detailsFor("INV-1")
	details.TransactionType = "voidTransaction"

	gw := &fakeGateway{details: details}
	svc := newIPNService(contributions, newFakeRecurRepo(), newFakeRecordRepo(), gw)

	payload, signature := signedPayload(t, "net.authorize.payment.void.created", "60001")
	if err := svc.HandleWebhook(context.Background(), payload, signature); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	stored, _ := contributions.FindByID(context.Background(), contribution.ID)
	if stored.StatusID != entity.ContributionStatusCancelled {
		t.Fatalf("expected cancelled, got %d", stored.StatusID)
	}
}

func TestHandleWebhookFraudHeldIsNoOp(t *testing.T) {
	contributions := newFakeContributionRepo()
	contribution := seedPendingContribution(t, contributions, "INV-1")

	gw := &fakeGateway{details: detailsFor("INV-1")}
	svc := newIPNService(contributions, newFakeRecurRepo(), newFakeRecordRepo(), gw)

	payload, signature := signedPayload(t, "net.authorize.payment.fraud.held", "60001")
	if err := svc.HandleWebhook(context.Background(), payload, signature); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	stored, _ := contributions.FindByID(context.Background(), contribution.ID)
	if stored.StatusID != entity.ContributionStatusPending {
		t.Fatalf("expected pending, got %d", stored.StatusID)
	}
}

func TestHandleWebhookFraudApprovedCompletes(t *testing.T) {
	contributions := newFakeContributionRepo()
	contribution := seedPendingContribution(t, contributions, "INV-1")

	gw := &fakeGateway{details: detailsFor("INV-1")}
	svc := newIPNService(contributions, newFakeRecurRepo(), newFakeRecordRepo(), gw)

	payload, signature := signedPayload(t, "net.authorize.payment.fraud.approved", "60001")
	if err := svc.HandleWebhook(context.Background(), payload, signature); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	stored, _ := contributions.FindByID(context.Background(), contribution.ID)
	if stored.StatusID != entity.ContributionStatusCompleted {
		t.Fatalf("expected completed, got %d", stored.StatusID)
	}
}

func TestHandleWebhookFraudDeclinedFails(t *testing.T) {
	contributions := newFakeContributionRepo()
	contribution := seedPendingContribution(t, contributions, "INV-1")

	gw := &fakeGateway{details: detailsFor("INV-1")}
	svc := newIPNService(contributions, newFakeRecurRepo(), newFakeRecordRepo(), gw)

	payload, signature := signedPayload(t, "net.authorize.payment.fraud.declined", "60001")
	if err := svc.HandleWebhook(context.Background(), payload, signature); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	stored, _ := contributions.FindByID(context.Background(), contribution.ID)
	if stored.StatusID != entity.ContributionStatusFailed {
		t.Fatalf("expected failed, got %d", stored.StatusID)
	}
}

func seedRecurringSeries(t *testing.T, contributions *fakeContributionRepo, recurs *fakeRecurRepo) (*entity.ContributionRecur, *entity.Contribution) {
	t.Helper()
	subscriptionID := "9876543"
	recur := &entity.ContributionRecur{
		ContactID:         42,
		SubscriptionID:    &subscriptionID,
		AmountCents:       2500,
		Currency:          "USD",
		FrequencyUnit:     "month",
		FrequencyInterval: 1,
		StatusID:          entity.ContributionStatusInProgress,
		AutoRenew:         true,
	}
	if err := recurs.Create(context.Background(), recur); err != nil {
		t.Fatalf("seed recur: %v", err)
	}

	contribution := seedPendingContribution(t, contributions, "INV-R1")
	contribution.ContributionRecurID = &recur.ID
	if err := contributions.Update(context.Background(), contribution); err != nil {
		t.Fatalf("link contribution: %v", err)
	}
	return recur, contribution
}

func TestHandleWebhookFirstRecurringPaymentCompletesTemplate(t *testing.T) {
	contributions := newFakeContributionRepo()
	recurs := newFakeRecurRepo()
	records := newFakeRecordRepo()
	recur, contribution := seedRecurringSeries(t, contributions, recurs)

	details := detailsFor("INV-R1")
	details.SubscriptionID = *recur.SubscriptionID
	details.SubscriptionPayNum = 1

	gw := &fakeGateway{details: details}
	svc := newIPNService(contributions, recurs, records, gw)

	payload, signature := signedPayload(t, "net.authorize.payment.authcapture.created", "60001")
	if err := svc.HandleWebhook(context.Background(), payload, signature); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	stored, _ := contributions.FindByID(context.Background(), contribution.ID)
	if stored.StatusID != entity.ContributionStatusCompleted {
		t.Fatalf("expected template completed in place, got %d", stored.StatusID)
	}
	if contributions.count() != 1 {
		t.Fatalf("expected no new row for first installment, got %d", contributions.count())
	}
}

func TestHandleWebhookRepeatRecurringPaymentCreatesNewRow(t *testing.T) {
	contributions := newFakeContributionRepo()
	recurs := newFakeRecurRepo()
	records := newFakeRecordRepo()
	recur, contribution := seedRecurringSeries(t, contributions, recurs)

	// First installment already settled.
	first := "60001"
	contribution.TrxnID = &first
	contribution.StatusID = entity.ContributionStatusCompleted
	_ = contributions.Update(context.Background(), contribution)
	_ = records.Create(context.Background(), &entity.PaymentRecord{ContributionID: contribution.ID, TrxnID: first, AmountCents: 2500})

	details := detailsFor("INV-R1")
	details.TransID = "60002"
	details.SubscriptionID = *recur.SubscriptionID
	details.SubscriptionPayNum = 2

	gw := &fakeGateway{details: details}
	svc := newIPNService(contributions, recurs, records, gw)

	payload, signature := signedPayload(t, "net.authorize.payment.authcapture.created", "60002")
	if err := svc.HandleWebhook(context.Background(), payload, signature); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if contributions.count() != 2 {
		t.Fatalf("expected repeat row, got %d contributions", contributions.count())
	}
	if len(records.records) != 2 {
		t.Fatalf("expected two payment records, got %d", len(records.records))
	}

	// Redelivery of the same transaction creates nothing.
	if err := svc.HandleWebhook(context.Background(), payload, signature); err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	if contributions.count() != 2 {
		t.Fatalf("redelivery must not add rows, got %d", contributions.count())
	}
}

func TestHandleWebhookSubscriptionTerminatedCancelsSeries(t *testing.T) {
	contributions := newFakeContributionRepo()
	recurs := newFakeRecurRepo()
	recur, _ := seedRecurringSeries(t, contributions, recurs)

	gw := &fakeGateway{}
	svc := newIPNService(contributions, recurs, newFakeRecordRepo(), gw)

	payload, signature := signedPayload(t, "net.authorize.customer.subscription.terminated", *recur.SubscriptionID)
	if err := svc.HandleWebhook(context.Background(), payload, signature); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	// Subscription events act on payload.id directly, no detail fetch.
	if gw.detailsCalls != 0 {
		t.Fatalf("expected no detail fetch, got %d", gw.detailsCalls)
	}

	stored, _ := recurs.FindByID(context.Background(), recur.ID)
	if stored.StatusID != entity.ContributionStatusCancelled {
		t.Fatalf("expected cancelled series, got %d", stored.StatusID)
	}
	if stored.CancelDate == nil {
		t.Fatal("expected cancel date")
	}
	if stored.AutoRenew {
		t.Fatal("expected auto renew cleared")
	}
}

func TestHandleWebhookSubscriptionTerminatedUnknownSeries(t *testing.T) {
	svc := newIPNService(newFakeContributionRepo(), newFakeRecurRepo(), newFakeRecordRepo(), &fakeGateway{})

	payload, signature := signedPayload(t, "net.authorize.customer.subscription.terminated", "000000")
	err := svc.HandleWebhook(context.Background(), payload, signature)
	if !errors.Is(err, ErrRecurNotFound) {
		t.Fatalf("expected ErrRecurNotFound, got %v", err)
	}
}

func TestHandleWebhookSubscriptionSuspendedIgnored(t *testing.T) {
	contributions := newFakeContributionRepo()
	recurs := newFakeRecurRepo()
	recur, _ := seedRecurringSeries(t, contributions, recurs)

	svc := newIPNService(contributions, recurs, newFakeRecordRepo(), &fakeGateway{})

	payload, signature := signedPayload(t, "net.authorize.customer.subscription.suspended", *recur.SubscriptionID)
	if err := svc.HandleWebhook(context.Background(), payload, signature); err != nil {
		t.Fatalf("expected silent no-op, got %v", err)
	}

	stored, _ := recurs.FindByID(context.Background(), recur.ID)
	if stored.StatusID != entity.ContributionStatusInProgress {
		t.Fatalf("series must be untouched, got %d", stored.StatusID)
	}
}

func TestGetTransactionDetailsPassthrough(t *testing.T) {
	gw := &fakeGateway{details: &gateway.TransactionDetails{TransID: "60001", Status: "settledSuccessfully"}}
	svc := newIPNService(newFakeContributionRepo(), newFakeRecurRepo(), newFakeRecordRepo(), gw)

	details, err := svc.GetTransactionDetails(context.Background(), "60001")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if details.TransID != "60001" {
		t.Fatalf("unexpected details: %+v", details)
	}

	if _, err := svc.GetTransactionDetails(context.Background(), ""); !errors.Is(err, ErrMissingTransactionID) {
		t.Fatalf("expected ErrMissingTransactionID, got %v", err)
	}
}

func TestHandleWebhookVoidResolvesByTrxnID(t *testing.T) {
	contributions := newFakeContributionRepo()
	contribution := seedPendingContribution(t, contributions, "INV-1")
	trxnID := "60001"
	contribution.TrxnID = &trxnID
	_ = contributions.Update(context.Background(), contribution)

	// The vendor reports voids without the original invoice number.
	details := detailsFor("")
	details.TransactionType = "voidTransaction"

	gw := &fakeGateway{details: details}
	svc := newIPNService(contributions, newFakeRecurRepo(), newFakeRecordRepo(), gw)

	payload, signature := signedPayload(t, "net.authorize.payment.void.created", "60001")
	if err := svc.HandleWebhook(context.Background(), payload, signature); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	stored, _ := contributions.FindByID(context.Background(), contribution.ID)
	if stored.StatusID != entity.ContributionStatusCancelled {
		t.Fatalf("expected cancelled, got %d", stored.StatusID)
	}
}
