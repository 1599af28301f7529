package types

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/civipay/authnet-gateway/app/entity"
)

const startDateLayout = "2006-01-02"

// CardInput is the card variant of a payment instrument.
type CardInput struct {
	Number         string `json:"number"`
	ExpirationDate string `json:"expiration_date"`
	SecurityCode   string `json:"security_code"`
}

// BankInput is the eCheck / ACH variant of a payment instrument.
type BankInput struct {
	AccountType   string `json:"account_type"`
	RoutingNumber string `json:"routing_number"`
	AccountNumber string `json:"account_number"`
	NameOnAccount string `json:"name_on_account"`
	BankName      string `json:"bank_name"`
}

// BillingAddressInput is the optional billing block attached to payments and
// subscription updates.
type BillingAddressInput struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Company   string `json:"company"`
	Address   string `json:"address"`
	City      string `json:"city"`
	State     string `json:"state"`
	Zip       string `json:"zip"`
	Country   string `json:"country"`
}

// RecurringInput opens a subscription series from the first payment.
type RecurringInput struct {
	FrequencyUnit     string `json:"frequency_unit"`
	FrequencyInterval int32  `json:"frequency_interval"`
	Installments      *int32 `json:"installments,omitempty"`
	StartDate         string `json:"start_date,omitempty"`
}

// StartDateTime returns the parsed start date, or nil when absent. Validate
// rejects unparseable values before this is consulted.
func (r *RecurringInput) StartDateTime() *time.Time {
	if r == nil || strings.TrimSpace(r.StartDate) == "" {
		return nil
	}
	parsed, err := time.Parse(startDateLayout, strings.TrimSpace(r.StartDate))
	if err != nil {
		return nil
	}
	return &parsed
}

type DoPaymentRequest struct {
	ContactID   uint64               `json:"contact_id"`
	AmountCents int64                `json:"amount_cents"`
	Currency    string               `json:"currency"`
	InvoiceID   string               `json:"invoice_id"`
	Description string               `json:"description"`
	Email       string               `json:"email"`
	IPAddress   string               `json:"ip_address"`
	IsTest      bool                 `json:"is_test"`
	BillTo      *BillingAddressInput `json:"bill_to,omitempty"`
	Card        *CardInput           `json:"card,omitempty"`
	Bank        *BankInput           `json:"bank,omitempty"`
	Recurring   *RecurringInput      `json:"recurring,omitempty"`
}

func NewDoPaymentRequestFromContext(ctx echo.Context) (*DoPaymentRequest, error) {
	var body DoPaymentRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	body.Currency = strings.ToUpper(strings.TrimSpace(body.Currency))
	body.InvoiceID = strings.TrimSpace(body.InvoiceID)
	body.Description = strings.TrimSpace(body.Description)
	body.Email = strings.TrimSpace(body.Email)
	body.IPAddress = strings.TrimSpace(body.IPAddress)
	if body.IPAddress == "" {
		body.IPAddress = ctx.RealIP()
	}
	if body.Recurring != nil {
		body.Recurring.FrequencyUnit = strings.ToLower(strings.TrimSpace(body.Recurring.FrequencyUnit))
		body.Recurring.StartDate = strings.TrimSpace(body.Recurring.StartDate)
	}

	return &body, nil
}

func (r *DoPaymentRequest) Validate() error {
	if r.ContactID == 0 {
		return errors.New("contact_id is required")
	}
	if r.AmountCents <= 0 {
		return errors.New("amount_cents must be > 0")
	}
	if r.Currency != "" && len(r.Currency) != 3 {
		return errors.New("currency must be 3 letters")
	}
	if (r.Card == nil) == (r.Bank == nil) {
		return errors.New("exactly one of card or bank is required")
	}
	if r.Card != nil {
		if strings.TrimSpace(r.Card.Number) == "" {
			return errors.New("card.number is required")
		}
		if strings.TrimSpace(r.Card.ExpirationDate) == "" {
			return errors.New("card.expiration_date is required")
		}
	}
	if r.Bank != nil {
		if strings.TrimSpace(r.Bank.RoutingNumber) == "" {
			return errors.New("bank.routing_number is required")
		}
		if strings.TrimSpace(r.Bank.AccountNumber) == "" {
			return errors.New("bank.account_number is required")
		}
		if strings.TrimSpace(r.Bank.NameOnAccount) == "" {
			return errors.New("bank.name_on_account is required")
		}
	}
	if r.Recurring != nil {
		unit := r.Recurring.FrequencyUnit
		if unit != "day" && unit != "week" && unit != "month" && unit != "year" {
			return errors.New("recurring.frequency_unit must be day, week, month, or year")
		}
		if r.Recurring.FrequencyInterval < 0 {
			return errors.New("recurring.frequency_interval must be >= 0")
		}
		if r.Recurring.Installments != nil && *r.Recurring.Installments < 0 {
			return errors.New("recurring.installments must be >= 0")
		}
		if r.Recurring.StartDate != "" {
			if _, err := time.Parse(startDateLayout, r.Recurring.StartDate); err != nil {
				return errors.New("recurring.start_date must be YYYY-MM-DD")
			}
		}
	}
	return nil
}

type GetContributionRequest struct {
	ID uint64 `json:"id"`
}

func NewGetContributionRequestFromContext(ctx echo.Context) (*GetContributionRequest, error) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		return nil, err
	}
	return &GetContributionRequest{ID: id}, nil
}

func (r *GetContributionRequest) Validate() error {
	if r.ID == 0 {
		return errors.New("invalid contribution id")
	}
	return nil
}

type ListContributionsRequest struct {
	ContactID           uint64 `json:"contact_id"`
	ContributionRecurID uint64 `json:"contribution_recur_id"`
	HasStatus           bool   `json:"has_status"`
	Status              int32  `json:"status"`
	Limit               int32  `json:"limit"`
	Offset              int32  `json:"offset"`
}

func NewListContributionsRequestFromContext(ctx echo.Context) (*ListContributionsRequest, error) {
	req := &ListContributionsRequest{Limit: 100}

	if raw := strings.TrimSpace(ctx.QueryParam("contact_id")); raw != "" {
		contactID, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return nil, err
		}
		req.ContactID = contactID
	}

	if raw := strings.TrimSpace(ctx.QueryParam("recur_id")); raw != "" {
		recurID, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return nil, err
		}
		req.ContributionRecurID = recurID
	}

	if raw := strings.TrimSpace(ctx.QueryParam("status")); raw != "" {
		if status, err := strconv.ParseInt(raw, 10, 32); err == nil {
			req.HasStatus = true
			req.Status = int32(status)
		} else if status, ok := entity.ContributionStatusID(raw); ok {
			req.HasStatus = true
			req.Status = status
		} else {
			return nil, errors.New("invalid status")
		}
	}

	if raw := strings.TrimSpace(ctx.QueryParam("limit")); raw != "" {
		limit, err := strconv.ParseInt(raw, 10, 32)
		if err != nil {
			return nil, err
		}
		req.Limit = int32(limit)
	}

	if raw := strings.TrimSpace(ctx.QueryParam("offset")); raw != "" {
		offset, err := strconv.ParseInt(raw, 10, 32)
		if err != nil {
			return nil, err
		}
		req.Offset = int32(offset)
	}

	return req, nil
}

func (r *ListContributionsRequest) Validate() error {
	if r.Limit == 0 {
		r.Limit = 100
	}
	if r.Limit <= 0 || r.Limit > 500 {
		return errors.New("limit must be between 1 and 500")
	}
	if r.Offset < 0 {
		return errors.New("offset must be >= 0")
	}
	if r.HasStatus && entity.ContributionStatusLabel(r.Status) == "" {
		return errors.New("invalid status")
	}
	return nil
}
