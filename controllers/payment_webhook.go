package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yashrajoria/ticket-storefront/providers"
	"go.uber.org/zap"
)

// Webhook receives gateway notifications. The notification only names the
// payment; its state is always re-fetched from the gateway.
func (pc *PaymentController) Webhook(c *gin.Context) {
	paymentID, err := pc.notifier.ParseNotification(c.Request)
	switch {
	case errors.Is(err, providers.ErrEventIgnored):
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	case errors.Is(err, providers.ErrMissingPaymentID):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Payment ID required"})
		return
	case err != nil:
		pc.logger.Warn("Webhook notification rejected", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid webhook"})
		return
	}

	if _, svcErr := pc.service.HandleWebhook(c.Request.Context(), paymentID); svcErr != nil {
		respondServiceError(c, svcErr)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "received"})
}
