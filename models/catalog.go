package models

import "sort"

// TicketType is one priced category of admission.
type TicketType struct {
	ID            string
	Name          string
	Price         Money
	ServiceCharge Money
	Color         string
	Description   string
}

// UnitTotal is the per-ticket amount charged, service charge included.
func (t TicketType) UnitTotal() Money {
	return t.Price + t.ServiceCharge
}

// TicketTypeView is how a ticket type is exposed on GET /api/tickets.
type TicketTypeView struct {
	Name          string  `json:"name"`
	Price         float64 `json:"price"`
	ServiceCharge float64 `json:"serviceCharge"`
	Color         string  `json:"color,omitempty"`
	Description   string  `json:"description,omitempty"`
}

// Catalog is built once at startup and only read afterwards, so it is safe
// to share between request goroutines.
type Catalog struct {
	types map[string]TicketType
	ids   []string
}

// NewCatalog copies the given entries; later changes to the slice are not seen.
func NewCatalog(entries []TicketType) *Catalog {
	c := &Catalog{types: make(map[string]TicketType, len(entries))}
	for _, e := range entries {
		if _, dup := c.types[e.ID]; !dup {
			c.ids = append(c.ids, e.ID)
		}
		c.types[e.ID] = e
	}
	sort.Strings(c.ids)
	return c
}

// Lookup returns the ticket type with the given id.
func (c *Catalog) Lookup(id string) (TicketType, bool) {
	t, ok := c.types[id]
	return t, ok
}

// IDs returns the known ticket type ids in sorted order.
func (c *Catalog) IDs() []string {
	out := make([]string, len(c.ids))
	copy(out, c.ids)
	return out
}

// Len reports the number of ticket types.
func (c *Catalog) Len() int {
	return len(c.ids)
}

// Views renders the catalog for the public listing.
func (c *Catalog) Views() map[string]TicketTypeView {
	out := make(map[string]TicketTypeView, len(c.types))
	for id, t := range c.types {
		out[id] = TicketTypeView{
			Name:          t.Name,
			Price:         t.Price.Float64(),
			ServiceCharge: t.ServiceCharge.Float64(),
			Color:         t.Color,
			Description:   t.Description,
		}
	}
	return out
}
