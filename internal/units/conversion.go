package units

import (
	"fmt"
	"strings"
)

// CategoryOf returns the category of u, or CategoryUnknown when u is not in the table.
func CategoryOf(u Unit) Category {
	def, ok := definitions[u]
	if !ok {
		return CategoryUnknown
	}
	return def.Category
}

// Factor returns the conversion factor of u to its category base.
func Factor(u Unit) (float64, error) {
	def, ok := definitions[u]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownUnit, u)
	}
	return def.Factor, nil
}

// AreCompatible reports whether a and b share a category. Commercial groupings
// (CategoryOther) only match themselves: a box and a roll cannot be compared.
func AreCompatible(a, b Unit) bool {
	ca, cb := CategoryOf(a), CategoryOf(b)
	if ca == CategoryUnknown || ca != cb {
		return false
	}
	if ca == CategoryOther {
		return a == b
	}
	return true
}

// Convert expresses value, measured in from, in the unit to.
func Convert(value float64, from, to Unit) (float64, error) {
	fromFactor, err := Factor(from)
	if err != nil {
		return 0, err
	}
	toFactor, err := Factor(to)
	if err != nil {
		return 0, err
	}
	if !AreCompatible(from, to) {
		return 0, fmt.Errorf("%w: %s (%s) -> %s (%s)", ErrIncompatibleUnits, from, CategoryOf(from), to, CategoryOf(to))
	}
	if from == to {
		return value, nil
	}
	return value * fromFactor / toFactor, nil
}

// Parse normalises raw into a known Unit.
func Parse(raw string) (Unit, error) {
	u := Unit(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := definitions[u]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownUnit, raw)
	}
	return u, nil
}

// Valid reports whether u is in the conversion table.
func (u Unit) Valid() bool {
	_, ok := definitions[u]
	return ok
}

// All lists every unit definition in a stable order.
func All() []Definition {
	defs := make([]Definition, 0, len(order))
	for _, u := range order {
		defs = append(defs, definitions[u])
	}
	return defs
}
