package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yashrajoria/ticket-storefront/models"
)

// TicketController serves the catalog and the health probe.
type TicketController struct {
	catalog *models.Catalog
	now     func() time.Time
}

// NewTicketController creates a new TicketController.
func NewTicketController(catalog *models.Catalog) *TicketController {
	return &TicketController{catalog: catalog, now: time.Now}
}

// ListTickets handles GET /api/tickets.
func (tc *TicketController) ListTickets(c *gin.Context) {
	c.JSON(http.StatusOK, tc.catalog.Views())
}

// Health handles GET /health.
func (tc *TicketController) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": tc.now().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	})
}
