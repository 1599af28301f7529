package types

import (
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

type GetSubscriptionRequest struct {
	ID uint64 `json:"id"`
}

func NewGetSubscriptionRequestFromContext(ctx echo.Context) (*GetSubscriptionRequest, error) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		return nil, err
	}
	return &GetSubscriptionRequest{ID: id}, nil
}

func (r *GetSubscriptionRequest) Validate() error {
	if r.ID == 0 {
		return errors.New("invalid subscription id")
	}
	return nil
}

type UpdateBillingRequest struct {
	ID     uint64               `json:"-"`
	Card   *CardInput           `json:"card,omitempty"`
	Bank   *BankInput           `json:"bank,omitempty"`
	BillTo *BillingAddressInput `json:"bill_to,omitempty"`
}

func NewUpdateBillingRequestFromContext(ctx echo.Context) (*UpdateBillingRequest, error) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		return nil, err
	}

	var body UpdateBillingRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	body.ID = id

	return &body, nil
}

func (r *UpdateBillingRequest) Validate() error {
	if r.ID == 0 {
		return errors.New("invalid subscription id")
	}
	if (r.Card == nil) == (r.Bank == nil) {
		return errors.New("exactly one of card or bank is required")
	}
	if r.Card != nil && strings.TrimSpace(r.Card.Number) == "" {
		return errors.New("card.number is required")
	}
	if r.Bank != nil && strings.TrimSpace(r.Bank.AccountNumber) == "" {
		return errors.New("bank.account_number is required")
	}
	return nil
}

type ChangeAmountRequest struct {
	ID          uint64 `json:"-"`
	AmountCents int64  `json:"amount_cents"`
}

func NewChangeAmountRequestFromContext(ctx echo.Context) (*ChangeAmountRequest, error) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		return nil, err
	}

	var body ChangeAmountRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	body.ID = id

	return &body, nil
}

func (r *ChangeAmountRequest) Validate() error {
	if r.ID == 0 {
		return errors.New("invalid subscription id")
	}
	if r.AmountCents <= 0 {
		return errors.New("amount_cents must be > 0")
	}
	return nil
}

type CancelSubscriptionRequest struct {
	ID uint64 `json:"-"`
}

func NewCancelSubscriptionRequestFromContext(ctx echo.Context) (*CancelSubscriptionRequest, error) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		return nil, err
	}

	// Cancel accepts an empty body.
	var body struct{}
	if err := ctx.Bind(&body); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	return &CancelSubscriptionRequest{ID: id}, nil
}

func (r *CancelSubscriptionRequest) Validate() error {
	if r.ID == 0 {
		return errors.New("invalid subscription id")
	}
	return nil
}
