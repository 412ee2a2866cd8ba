package entities

import "strings"

// WeekKey identifies an analysis week, e.g. "2025-08-19"
type WeekKey string

// ProductCode is a composite product identifier of the form "<standard>-<resistance>-..."
type ProductCode string

// ProductKeySeparator splits the segments of a ProductCode
const ProductKeySeparator = "-"

// ProductKey holds the segments extracted from a ProductCode
type ProductKey struct {
	Standard   string
	Resistance string
	// WellFormed is false when either segment is missing. A missing
	// resistance is the empty "unknown" bucket.
	WellFormed bool
}

// Parse extracts the standard and resistance segments of the code.
// A code without a separator keeps its whole text as the standard.
func (c ProductCode) Parse() ProductKey {
	standard, rest, found := strings.Cut(string(c), ProductKeySeparator)
	if !found {
		return ProductKey{Standard: standard}
	}
	resistance, _, _ := strings.Cut(rest, ProductKeySeparator)
	return ProductKey{
		Standard:   standard,
		Resistance: resistance,
		WellFormed: standard != "" && resistance != "",
	}
}

// Standard returns the first segment of the code
func (c ProductCode) Standard() string {
	return c.Parse().Standard
}

// Resistance returns the second segment of the code, empty when absent
func (c ProductCode) Resistance() string {
	return c.Parse().Resistance
}
