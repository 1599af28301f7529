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

type WebhookController struct {
	ipnService   *service.IPNService
	checkService *service.WebhookCheckService
	logger       logrus.FieldLogger
}

func NewWebhookController(ipnService *service.IPNService, checkService *service.WebhookCheckService) *WebhookController {
	return &WebhookController{
		ipnService:   ipnService,
		checkService: checkService,
		logger:       factory.NewModuleLogger("webhooks-controller"),
	}
}

// HandleNotification receives vendor webhook notifications. The vendor
// retries non-2xx deliveries, so only failures worth a retry return an error
// status.
func (c *WebhookController) HandleNotification(ctx echo.Context) error {
	req, err := types.NewWebhookNotificationRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	err = c.ipnService.HandleWebhook(ctx.Request().Context(), req.Payload, req.Signature)
	if err != nil {
		logger := factory.LoggerWithContext(c.logger, ctx)
		switch {
		case errors.Is(err, service.ErrInvalidSignature):
			logger.Warn("webhook signature rejected")
			return writeError(ctx, http.StatusBadRequest, "invalid signature")
		case errors.Is(err, service.ErrMissingTransactionID),
			errors.Is(err, service.ErrContributionNotFound),
			errors.Is(err, service.ErrRecurNotFound):
			logger.WithError(err).Warn("webhook notification rejected")
			return writeError(ctx, http.StatusBadRequest, err.Error())
		default:
			logger.WithError(err).Error("Handle notification failed")
			return writeError(ctx, http.StatusInternalServerError, "internal server error")
		}
	}

	return ctx.JSON(http.StatusOK, &types.MessageResponse{Message: "Notification processed"})
}

// GetTransaction fetches vendor-side transaction details for one trxn id.
func (c *WebhookController) GetTransaction(ctx echo.Context) error {
	req, err := types.NewGetTransactionRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	details, err := c.ipnService.GetTransactionDetails(ctx.Request().Context(), req.TransID)
	if err != nil {
		if errors.Is(err, service.ErrMissingTransactionID) {
			return writeError(ctx, http.StatusBadRequest, err.Error())
		}
		factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Get transaction failed")
		return writeError(ctx, http.StatusBadGateway, "transaction lookup failed")
	}

	return ctx.JSON(http.StatusOK, &types.TransactionEnvelopeResponse{Transaction: mapper.TransactionDetailsToResponse(details)})
}

// CheckRegistration reconciles the merchant webhook registration with the
// expected endpoint and event set.
func (c *WebhookController) CheckRegistration(ctx echo.Context) error {
	result, err := c.checkService.EnsureWebhook(ctx.Request().Context())
	if err != nil {
		factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Webhook check failed")
		return writeError(ctx, http.StatusBadGateway, "webhook check failed")
	}

	return ctx.JSON(http.StatusOK, &types.WebhookCheckResponse{
		WebhookID: result.WebhookID,
		Created:   result.Created,
		Updated:   result.Updated,
	})
}
