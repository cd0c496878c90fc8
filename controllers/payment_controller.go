package controllers

import (
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yashrajoria/ticket-storefront/models"
	"github.com/yashrajoria/ticket-storefront/providers"
	"github.com/yashrajoria/ticket-storefront/services"
	"go.uber.org/zap"
)

// PaymentController handles order intake, webhooks and status checks.
type PaymentController struct {
	service  services.PaymentService
	notifier providers.NotificationParser
	logger   *zap.Logger
}

// NewPaymentController creates a new PaymentController.
func NewPaymentController(service services.PaymentService, notifier providers.NotificationParser, logger *zap.Logger) *PaymentController {
	return &PaymentController{service: service, notifier: notifier, logger: logger}
}

// CreatePayment handles POST /api/create-payment.
func (pc *PaymentController) CreatePayment(c *gin.Context) {
	req, err := bindOrder(c)
	if err != nil {
		pc.logger.Debug("Invalid create-payment body", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	resp, svcErr := pc.service.CreatePayment(c.Request.Context(), req)
	if svcErr != nil {
		respondServiceError(c, svcErr)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// CheckPayment handles GET /api/check-payment/:id.
func (pc *PaymentController) CheckPayment(c *gin.Context) {
	resp, svcErr := pc.service.GetPayment(c.Request.Context(), c.Param("id"))
	if svcErr != nil {
		respondServiceError(c, svcErr)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// bindOrder accepts a JSON body or a url-encoded form. An empty body binds
// to an empty request so it is reported as missing fields.
func bindOrder(c *gin.Context) (*models.CreatePaymentRequest, error) {
	var req models.CreatePaymentRequest
	mediaType, _, _ := mime.ParseMediaType(c.GetHeader("Content-Type"))

	switch mediaType {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		req.TicketType = c.PostForm("ticketType")
		req.Quantity = models.NewQuantityInput(c.PostForm("quantity"))
		req.Email = c.PostForm("email")
		req.Name = c.PostForm("name")
		return &req, nil
	}

	if c.Request.ContentLength == 0 {
		return &req, nil
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, err
	}
	return &req, nil
}
