package types

import (
	"errors"
	"strings"

	"github.com/labstack/echo/v4"
)

type GetTransactionRequest struct {
	TransID string `json:"trans_id"`
}

func NewGetTransactionRequestFromContext(ctx echo.Context) (*GetTransactionRequest, error) {
	return &GetTransactionRequest{TransID: strings.TrimSpace(ctx.Param("id"))}, nil
}

func (r *GetTransactionRequest) Validate() error {
	if r.TransID == "" {
		return errors.New("transaction id is required")
	}
	return nil
}

type TransactionDetails struct {
	TransID            string `json:"trans_id"`
	TransactionType    string `json:"transaction_type"`
	ResponseCode       string `json:"response_code"`
	Status             string `json:"status"`
	AmountCents        int64  `json:"amount_cents"`
	InvoiceNumber      string `json:"invoice_number,omitempty"`
	SubscriptionID     string `json:"subscription_id,omitempty"`
	SubscriptionPayNum int32  `json:"subscription_pay_num,omitempty"`
	SubmitTime         string `json:"submit_time,omitempty"`
	Recurring          bool   `json:"recurring"`
}

type TransactionEnvelopeResponse struct {
	Transaction *TransactionDetails `json:"transaction"`
}
