package config

import (
	"fmt"
	"os"
	"regexp"
	"sort"

	"github.com/yashrajoria/ticket-storefront/models"
	"gopkg.in/yaml.v3"
)

var ticketIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// Price is a decimal amount read from YAML without a float round trip.
type Price struct {
	models.Money
	set bool
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (p *Price) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: price must be a number", value.Line)
	}
	m, err := models.ParseMoney(value.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*p = Price{Money: m, set: true}
	return nil
}

type catalogFile struct {
	ServiceCharge *Price                     `yaml:"serviceCharge"`
	Tickets       map[string]catalogFileItem `yaml:"tickets"`
}

type catalogFileItem struct {
	Name          string `yaml:"name"`
	Price         Price  `yaml:"price"`
	ServiceCharge *Price `yaml:"serviceCharge"`
	Color         string `yaml:"color"`
	Description   string `yaml:"description"`
}

type defaultTicket struct {
	id, name, price, color, description string
}

var defaultTickets = []defaultTicket{
	{"vip", "VIP Arrangement", "299.00", "#8e44ad", "Best seats, drinks and merchandise package"},
	{"platina", "Zitplaats Platina", "199.00", "#b0c4de", "Lower tier, centre view"},
	{"goud", "Zitplaats Goud", "149.00", "#ffd700", "Lower tier, side view"},
	{"zilver", "Rang 1 - Silver", "99.00", "#c0c0c0", "First ring seating"},
	{"brons", "Rang 2", "79.00", "#cd7f32", "Second ring seating"},
	{"staanplaats", "General Admission (Standing)", "89.00", "#e67e22", "Standing area on the field"},
	{"mindervaliden", "Accessible Seating", "89.00", "#3498db", "Wheelchair accessible platform with companion seat"},
}

// DefaultCatalog returns the built-in ticket types with the given service
// charge applied to each.
func DefaultCatalog(serviceCharge models.Money) *models.Catalog {
	entries := make([]models.TicketType, 0, len(defaultTickets))
	for _, d := range defaultTickets {
		price, err := models.ParseMoney(d.price)
		if err != nil {
			panic(fmt.Sprintf("invalid built-in price for %s: %v", d.id, err))
		}
		entries = append(entries, models.TicketType{
			ID:            d.id,
			Name:          d.name,
			Price:         price,
			ServiceCharge: serviceCharge,
			Color:         d.color,
			Description:   d.description,
		})
	}
	return models.NewCatalog(entries)
}

// LoadCatalog returns the built-in catalog when path is empty, otherwise
// the catalog defined in the YAML file. Entries without their own service
// charge use the file-level one, then serviceCharge.
func LoadCatalog(path string, serviceCharge models.Money) (*models.Catalog, error) {
	if path == "" {
		return DefaultCatalog(serviceCharge), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return ParseCatalog(data, serviceCharge)
}

// ParseCatalog decodes and validates a YAML catalog.
func ParseCatalog(data []byte, serviceCharge models.Money) (*models.Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(f.Tickets) == 0 {
		return nil, fmt.Errorf("catalog defines no tickets")
	}
	if f.ServiceCharge != nil {
		serviceCharge = f.ServiceCharge.Money
	}

	ids := make([]string, 0, len(f.Tickets))
	for id := range f.Tickets {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	entries := make([]models.TicketType, 0, len(ids))
	for _, id := range ids {
		item := f.Tickets[id]
		if !ticketIDPattern.MatchString(id) {
			return nil, fmt.Errorf("ticket %q: id must be lowercase letters, digits, '-' or '_'", id)
		}
		if item.Name == "" {
			return nil, fmt.Errorf("ticket %q: name is required", id)
		}
		if !item.Price.set {
			return nil, fmt.Errorf("ticket %q: price is required", id)
		}
		charge := serviceCharge
		if item.ServiceCharge != nil {
			charge = item.ServiceCharge.Money
		}
		entries = append(entries, models.TicketType{
			ID:            id,
			Name:          item.Name,
			Price:         item.Price.Money,
			ServiceCharge: charge,
			Color:         item.Color,
			Description:   item.Description,
		})
	}
	return models.NewCatalog(entries), nil
}
