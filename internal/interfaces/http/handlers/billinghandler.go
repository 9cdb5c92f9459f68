package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/application/billing/usecases"
	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/domain/billing"
	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/interfaces/http/middleware"
	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/shared/logger"
	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/shared/utils"
)

// Maximum accepted webhook payload size (256KB)
const maxWebhookPayloadSize = 256 << 10

// BillingHandler handles subscription status reads and provider
// webhook deliveries
type BillingHandler struct {
	statusUseCase  *usecases.GetSubscriptionStatusUseCase
	webhookUseCase *usecases.HandleWebhookEventUseCase
	verifier       billing.WebhookVerifier
	logger         logger.Interface
}

func NewBillingHandler(
	statusUC *usecases.GetSubscriptionStatusUseCase,
	webhookUC *usecases.HandleWebhookEventUseCase,
	verifier billing.WebhookVerifier,
	log logger.Interface,
) *BillingHandler {
	return &BillingHandler{
		statusUseCase:  statusUC,
		webhookUseCase: webhookUC,
		verifier:       verifier,
		logger:         log,
	}
}

// SubscriptionStatusResponse is the reconciled snapshot returned to the
// caller
type SubscriptionStatusResponse struct {
	Status           string `json:"status"`
	Plan             string `json:"plan,omitempty"`
	CurrentPeriodEnd int64  `json:"current_period_end,omitempty"`
	Premium          bool   `json:"premium"`
}

func (h *BillingHandler) GetStatus(c *gin.Context) {
	snap, err := h.statusUseCase.Execute(c.Request.Context(), usecases.GetSubscriptionStatusCommand{
		UID:           c.GetString(middleware.ContextKeyUID),
		Email:         c.GetString(middleware.ContextKeyEmail),
		EmailVerified: c.GetBool(middleware.ContextKeyEmailVerified),
	})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	status := snap.Status
	if status == "" {
		status = "none"
	}
	utils.SuccessResponse(c, http.StatusOK, "", SubscriptionStatusResponse{
		Status:           status,
		Plan:             snap.Plan,
		CurrentPeriodEnd: snap.CurrentPeriodEnd,
		Premium:          snap.Premium,
	})
}

// Webhook verifies and applies one provider event. A signature failure
// is a 400 so a misconfigured endpoint surfaces immediately; an apply
// failure is a 500 so the provider redelivers.
func (h *BillingHandler) Webhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookPayloadSize))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "failed to read payload")
		return
	}

	event, err := h.verifier.ConstructEvent(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		h.logger.Warnw("rejected webhook delivery", "error", err, "client_ip", c.ClientIP())
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid webhook signature")
		return
	}

	if err := h.webhookUseCase.Execute(c.Request.Context(), event); err != nil {
		h.logger.Errorw("failed to apply webhook event",
			"event_id", event.ID, "type", event.Type, "error", err)
		utils.ErrorResponse(c, http.StatusInternalServerError, "failed to process event")
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", gin.H{"received": true})
}
