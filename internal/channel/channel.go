package channel

import "fmt"

// Category groups channels for display and reporting.
type Category string

// Channel categories in report order.
const (
	CategoryTemperature Category = "temperature"
	CategoryPressure    Category = "pressure"
	CategoryResistance  Category = "resistance"
	CategoryFlow        Category = "flow"
	CategoryStatus      Category = "status"
	CategoryValve       Category = "valve"
)

// Categories lists every category in report order.
var Categories = []Category{
	CategoryTemperature,
	CategoryPressure,
	CategoryResistance,
	CategoryFlow,
	CategoryStatus,
	CategoryValve,
}

// Title returns the heading used for the category in reports.
func (c Category) Title() string {
	switch c {
	case CategoryTemperature:
		return "Temperatures"
	case CategoryPressure:
		return "Pressures"
	case CategoryResistance:
		return "Resistances"
	case CategoryFlow:
		return "Flow"
	case CategoryStatus:
		return "Status"
	case CategoryValve:
		return "Valves"
	default:
		return string(c)
	}
}

// ParseCategory validates a category name.
func ParseCategory(s string) (Category, error) {
	for _, c := range Categories {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
}

// Kind says how a cell is decoded.
type Kind string

const (
	// KindNumeric cells hold a real number in the channel's unit.
	KindNumeric Kind = "numeric"
	// KindBoolean cells hold an on/off state stored as 0 or 1.
	KindBoolean Kind = "boolean"
)

// ID indexes Registry.
type ID int

// Channel describes one logged column.
type Channel struct {
	ID       ID       `json:"id"`
	Name     string   `json:"name"`
	Alias    string   `json:"alias"`
	Unit     string   `json:"unit,omitempty"`
	Category Category `json:"category"`
	Kind     Kind     `json:"kind"`
}

// Label returns the alias, or the column name when no alias is set.
func (c Channel) Label() string {
	if c.Alias != "" {
		return c.Alias
	}
	return c.Name
}
