package units

import "errors"

// Unit is a physical unit of measure used for presentations and ingredients.
type Unit string

// Category groups units that can be converted into each other.
type Category string

const (
	CategoryWeight  Category = "weight"
	CategoryVolume  Category = "volume"
	CategoryCount   Category = "count"
	CategoryOther   Category = "other"
	CategoryUnknown Category = ""
)

const (
	Milligram Unit = "milligram"
	Gram      Unit = "gram"
	Kilogram  Unit = "kilogram"
	Ounce     Unit = "ounce"
	Pound     Unit = "pound"

	Milliliter Unit = "milliliter"
	Liter      Unit = "liter"
	FluidOunce Unit = "fluid_ounce"
	Gallon     Unit = "gallon"

	Piece Unit = "unit"
	Pair  Unit = "pair"
	Dozen Unit = "dozen"

	Box     Unit = "box"
	Pack    Unit = "pack"
	Bulk    Unit = "bulk"
	Roll    Unit = "roll"
	Plate   Unit = "plate"
	Portion Unit = "portion"
)

// Definition describes a unit's category and factor to the category base
// (grams for weight, milliliters for volume, pieces for count).
type Definition struct {
	Unit     Unit     `json:"unit"`
	Category Category `json:"category"`
	Factor   float64  `json:"factor"`
}

// definitions is read-only after package initialisation.
var definitions = map[Unit]Definition{
	Milligram: {Milligram, CategoryWeight, 0.001},
	Gram:      {Gram, CategoryWeight, 1},
	Kilogram:  {Kilogram, CategoryWeight, 1000},
	Ounce:     {Ounce, CategoryWeight, 28.3495},
	Pound:     {Pound, CategoryWeight, 453.592},

	Milliliter: {Milliliter, CategoryVolume, 1},
	Liter:      {Liter, CategoryVolume, 1000},
	FluidOunce: {FluidOunce, CategoryVolume, 29.5735},
	// Approximation; gallon round trips are not bit-exact.
	Gallon: {Gallon, CategoryVolume, 3785.41},

	Piece: {Piece, CategoryCount, 1},
	Pair:  {Pair, CategoryCount, 2},
	Dozen: {Dozen, CategoryCount, 12},

	Box:     {Box, CategoryOther, 1},
	Pack:    {Pack, CategoryOther, 1},
	Bulk:    {Bulk, CategoryOther, 1},
	Roll:    {Roll, CategoryOther, 1},
	Plate:   {Plate, CategoryOther, 1},
	Portion: {Portion, CategoryOther, 1},
}

// order fixes the listing order of All.
var order = []Unit{
	Milligram, Gram, Kilogram, Ounce, Pound,
	Milliliter, Liter, FluidOunce, Gallon,
	Piece, Pair, Dozen,
	Box, Pack, Bulk, Roll, Plate, Portion,
}

var (
	// ErrIncompatibleUnits is returned when converting across categories.
	ErrIncompatibleUnits = errors.New("units: incompatible units")
	// ErrUnknownUnit is returned for units outside the conversion table.
	ErrUnknownUnit = errors.New("units: unknown unit")
)
