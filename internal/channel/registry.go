package channel

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownChannel is returned when a name matches no registry entry.
	ErrUnknownChannel = errors.New("channel: unknown channel")

	// ErrUnknownCategory is returned for an invalid category name.
	ErrUnknownCategory = errors.New("channel: unknown category")
)

// ValveCount is the number of VE valves on the gas handling panel.
const ValveCount = 39

// Registry holds every channel, indexed by ID.
var Registry = buildRegistry()

var byName = indexByName(Registry)

func buildRegistry() []Channel {
	var out []Channel
	add := func(name, alias, unit string, cat Category, kind Kind) {
		out = append(out, Channel{
			ID:       ID(len(out)),
			Name:     name,
			Alias:    alias,
			Unit:     unit,
			Category: cat,
			Kind:     kind,
		})
	}

	add("full range", "MC (K)", "K", CategoryTemperature, KindNumeric)
	add("still", "Still (K)", "K", CategoryTemperature, KindNumeric)
	add("Platine 4K", "4K (K)", "K", CategoryTemperature, KindNumeric)

	for _, p := range []string{"P1", "P2", "P3", "K3", "K4", "K5", "K6", "K8"} {
		add(p, p, "mbar", CategoryPressure, KindNumeric)
	}

	for i := 1; i <= 3; i++ {
		name := fmt.Sprintf("R MMR1 %d", i)
		add(name, name, "Ohm", CategoryResistance, KindNumeric)
	}

	add("Pumping turbo speed", "Turbo speed (%)", "%", CategoryFlow, KindNumeric)
	add("P/T", "Mixture P/T (%)", "%", CategoryFlow, KindNumeric)

	add("Turbo AUX", "OVC turbo", "", CategoryStatus, KindBoolean)
	add("PT", "Pulse tube", "", CategoryStatus, KindBoolean)

	for i := 1; i <= ValveCount; i++ {
		name := fmt.Sprintf("VE%d", i)
		add(name, name, "", CategoryValve, KindBoolean)
	}

	return out
}

func indexByName(reg []Channel) map[string]ID {
	m := make(map[string]ID, len(reg)*2)
	for _, c := range reg {
		m[normalize(c.Name)] = c.ID
	}
	// Aliases resolve only where they do not shadow a column name.
	for _, c := range reg {
		if _, taken := m[normalize(c.Alias)]; !taken {
			m[normalize(c.Alias)] = c.ID
		}
	}
	return m
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// Count returns the number of registered channels.
func Count() int {
	return len(Registry)
}

// Get returns the channel with the given ID.
func Get(id ID) (Channel, bool) {
	if id < 0 || int(id) >= len(Registry) {
		return Channel{}, false
	}
	return Registry[id], true
}

// Lookup resolves a column header or alias. Matching ignores case and
// collapses runs of whitespace, so "Full  Range" finds "full range".
func Lookup(name string) (Channel, bool) {
	id, ok := byName[normalize(name)]
	if !ok {
		return Channel{}, false
	}
	return Registry[id], true
}

// ByCategory returns the IDs in cat, in registry order.
func ByCategory(cat Category) []ID {
	var ids []ID
	for _, c := range Registry {
		if c.Category == cat {
			ids = append(ids, c.ID)
		}
	}
	return ids
}

// All returns every ID in registry order.
func All() []ID {
	ids := make([]ID, len(Registry))
	for i := range Registry {
		ids[i] = ID(i)
	}
	return ids
}

// Resolve maps names to IDs, failing on the first unknown name.
func Resolve(names []string) ([]ID, error) {
	ids := make([]ID, 0, len(names))
	for _, n := range names {
		c, ok := Lookup(n)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownChannel, n)
		}
		ids = append(ids, c.ID)
	}
	return ids, nil
}
