package controllers

import (
	"github.com/gin-gonic/gin"
	"github.com/yashrajoria/ticket-storefront/services"
)

// respondServiceError writes a ServiceError as {"error": ..., <details>}.
func respondServiceError(c *gin.Context, svcErr *services.ServiceError) {
	body := gin.H{"error": svcErr.Message}
	for k, v := range svcErr.Details {
		body[k] = v
	}
	c.JSON(svcErr.StatusCode, body)
}
