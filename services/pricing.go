package services

import (
	"errors"

	"github.com/yashrajoria/ticket-storefront/models"
)

const (
	MinQuantity = 1
	MaxQuantity = 10
)

var (
	ErrUnknownTicketType = errors.New("unknown ticket type")
	ErrInvalidQuantity   = errors.New("quantity must be between 1 and 10")
)

// Pricer turns a ticket type and quantity into a quote. It has no side
// effects and reads only the catalog.
type Pricer struct {
	catalog *models.Catalog
}

// NewPricer creates a Pricer over the given catalog.
func NewPricer(catalog *models.Catalog) *Pricer {
	return &Pricer{catalog: catalog}
}

// Quote prices quantity tickets of the given type.
func (p *Pricer) Quote(ticketTypeID string, quantity int) (models.Quote, error) {
	ticket, ok := p.catalog.Lookup(ticketTypeID)
	if !ok {
		return models.Quote{}, ErrUnknownTicketType
	}
	if quantity < MinQuantity || quantity > MaxQuantity {
		return models.Quote{}, ErrInvalidQuantity
	}

	return models.Quote{
		TicketType:    ticket,
		Quantity:      quantity,
		UnitAmount:    ticket.Price,
		ServiceCharge: ticket.ServiceCharge,
		Total:         ticket.UnitTotal().Mul(quantity),
	}, nil
}
