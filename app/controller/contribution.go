package controller

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/civipay/authnet-gateway/app/factory"
	"github.com/civipay/authnet-gateway/app/gateway"
	"github.com/civipay/authnet-gateway/app/mapper"
	"github.com/civipay/authnet-gateway/app/repository"
	"github.com/civipay/authnet-gateway/app/service"
	"github.com/civipay/authnet-gateway/app/types"
)

type ContributionController struct {
	paymentService *service.PaymentService
	logger         logrus.FieldLogger
}

func NewContributionController(paymentService *service.PaymentService) *ContributionController {
	return &ContributionController{
		paymentService: paymentService,
		logger:         factory.NewModuleLogger("contributions-controller"),
	}
}

func (c *ContributionController) Health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, &types.HealthResponse{Status: "ok"})
}

func (c *ContributionController) DoPayment(ctx echo.Context) error {
	req, err := types.NewDoPaymentRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	item, err := c.paymentService.DoPayment(ctx.Request().Context(), buildPaymentRequest(req))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRequest):
			return writeError(ctx, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrDuplicateInvoice):
			return writeError(ctx, http.StatusConflict, err.Error())
		case errors.Is(err, service.ErrPaymentDeclined):
			return writeError(ctx, http.StatusPaymentRequired, err.Error())
		default:
			factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Do payment failed")
			return writeError(ctx, http.StatusInternalServerError, "internal server error")
		}
	}

	return ctx.JSON(http.StatusCreated, &types.ContributionEnvelopeResponse{Contribution: mapper.ContributionToResponse(item)})
}

func (c *ContributionController) GetContribution(ctx echo.Context) error {
	req, err := types.NewGetContributionRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	item, err := c.paymentService.GetContribution(ctx.Request().Context(), req.ID)
	if err != nil {
		if errors.Is(err, service.ErrContributionNotFound) {
			return writeError(ctx, http.StatusNotFound, "contribution not found")
		}
		factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Get contribution failed")
		return writeError(ctx, http.StatusInternalServerError, "internal server error")
	}

	return ctx.JSON(http.StatusOK, &types.ContributionEnvelopeResponse{Contribution: mapper.ContributionToResponse(item)})
}

func (c *ContributionController) ListPayments(ctx echo.Context) error {
	req, err := types.NewGetContributionRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	items, err := c.paymentService.ListPaymentRecords(ctx.Request().Context(), req.ID)
	if err != nil {
		if errors.Is(err, service.ErrContributionNotFound) {
			return writeError(ctx, http.StatusNotFound, "contribution not found")
		}
		factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("List payments failed")
		return writeError(ctx, http.StatusInternalServerError, "internal server error")
	}

	return ctx.JSON(http.StatusOK, &types.ListPaymentRecordsResponse{Payments: mapper.PaymentRecordsToResponse(items)})
}

func (c *ContributionController) ListContributions(ctx echo.Context) error {
	req, err := types.NewListContributionsRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	items, err := c.paymentService.ListContributions(ctx.Request().Context(), repository.ContributionFilter{
		ContactID:           req.ContactID,
		ContributionRecurID: req.ContributionRecurID,
		HasStatus:           req.HasStatus,
		Status:              req.Status,
		Limit:               req.Limit,
		Offset:              req.Offset,
	})
	if err != nil {
		factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("List contributions failed")
		return writeError(ctx, http.StatusInternalServerError, "internal server error")
	}

	return ctx.JSON(http.StatusOK, &types.ListContributionsResponse{Contributions: mapper.ContributionsToResponse(items)})
}

func buildPaymentRequest(req *types.DoPaymentRequest) *service.PaymentRequest {
	out := &service.PaymentRequest{
		ContactID:   req.ContactID,
		AmountCents: req.AmountCents,
		Currency:    req.Currency,
		InvoiceID:   req.InvoiceID,
		Description: req.Description,
		Email:       req.Email,
		IPAddr:      req.IPAddress,
		IsTest:      req.IsTest,
		BillTo:      buildBillingAddress(req.BillTo),
		Card:        buildCardDetails(req.Card),
		Bank:        buildBankDetails(req.Bank),
	}
	if req.Recurring != nil {
		out.Recurring = &service.RecurringParams{
			FrequencyUnit:     req.Recurring.FrequencyUnit,
			FrequencyInterval: req.Recurring.FrequencyInterval,
			Installments:      req.Recurring.Installments,
			StartDate:         req.Recurring.StartDateTime(),
		}
	}
	return out
}

func buildCardDetails(card *types.CardInput) *service.CardDetails {
	if card == nil {
		return nil
	}
	return &service.CardDetails{
		Number:         card.Number,
		ExpirationDate: card.ExpirationDate,
		SecurityCode:   card.SecurityCode,
	}
}

func buildBankDetails(bank *types.BankInput) *service.BankDetails {
	if bank == nil {
		return nil
	}
	return &service.BankDetails{
		AccountType:   bank.AccountType,
		RoutingNumber: bank.RoutingNumber,
		AccountNumber: bank.AccountNumber,
		NameOnAccount: bank.NameOnAccount,
		BankName:      bank.BankName,
	}
}

func buildBillingAddress(billTo *types.BillingAddressInput) *gateway.BillingAddress {
	if billTo == nil {
		return nil
	}
	return &gateway.BillingAddress{
		FirstName: billTo.FirstName,
		LastName:  billTo.LastName,
		Company:   billTo.Company,
		Address:   billTo.Address,
		City:      billTo.City,
		State:     billTo.State,
		Zip:       billTo.Zip,
		Country:   billTo.Country,
	}
}

func writeError(ctx echo.Context, statusCode int, message string) error {
	return ctx.JSON(statusCode, &types.ErrorResponse{Error: message})
}
