package controller

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/civipay/authnet-gateway/app/factory"
	"github.com/civipay/authnet-gateway/app/mapper"
	"github.com/civipay/authnet-gateway/app/service"
	"github.com/civipay/authnet-gateway/app/types"
)

type SubscriptionController struct {
	subscriptionService *service.SubscriptionService
	logger              logrus.FieldLogger
}

func NewSubscriptionController(subscriptionService *service.SubscriptionService) *SubscriptionController {
	return &SubscriptionController{
		subscriptionService: subscriptionService,
		logger:              factory.NewModuleLogger("subscriptions-controller"),
	}
}

func (c *SubscriptionController) GetSubscription(ctx echo.Context) error {
	req, err := types.NewGetSubscriptionRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	recur, err := c.subscriptionService.GetSeries(ctx.Request().Context(), req.ID)
	if err != nil {
		return c.writeSubscriptionError(ctx, err, "Get subscription failed")
	}

	return ctx.JSON(http.StatusOK, &types.ContributionRecurEnvelopeResponse{ContributionRecur: mapper.ContributionRecurToResponse(recur)})
}

func (c *SubscriptionController) UpdateBilling(ctx echo.Context) error {
	req, err := types.NewUpdateBillingRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	err = c.subscriptionService.UpdateBilling(ctx.Request().Context(), req.ID, &service.BillingUpdateRequest{
		Card:   buildCardDetails(req.Card),
		Bank:   buildBankDetails(req.Bank),
		BillTo: buildBillingAddress(req.BillTo),
	})
	if err != nil {
		return c.writeSubscriptionError(ctx, err, "Update billing failed")
	}

	return ctx.JSON(http.StatusOK, &types.MessageResponse{Message: "Billing details updated"})
}

func (c *SubscriptionController) ChangeAmount(ctx echo.Context) error {
	req, err := types.NewChangeAmountRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	if err := c.subscriptionService.ChangeAmount(ctx.Request().Context(), req.ID, req.AmountCents); err != nil {
		return c.writeSubscriptionError(ctx, err, "Change amount failed")
	}

	return ctx.JSON(http.StatusOK, &types.MessageResponse{Message: "Subscription amount updated"})
}

func (c *SubscriptionController) CancelSubscription(ctx echo.Context) error {
	req, err := types.NewCancelSubscriptionRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	if err := c.subscriptionService.Cancel(ctx.Request().Context(), req.ID); err != nil {
		return c.writeSubscriptionError(ctx, err, "Cancel subscription failed")
	}

	return ctx.JSON(http.StatusOK, &types.MessageResponse{Message: "Subscription cancelled"})
}

func (c *SubscriptionController) writeSubscriptionError(ctx echo.Context, err error, logMessage string) error {
	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		return writeError(ctx, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrRecurNotFound):
		return writeError(ctx, http.StatusNotFound, "subscription not found")
	case errors.Is(err, service.ErrSubscriptionMissing):
		return writeError(ctx, http.StatusConflict, err.Error())
	default:
		factory.LoggerWithContext(c.logger, ctx).WithError(err).Error(logMessage)
		return writeError(ctx, http.StatusInternalServerError, "internal server error")
	}
}
