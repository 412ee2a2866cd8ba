package entities

import (
	"encoding/json"
	"fmt"
)

// NullFloat64 is a float64 that may be absent, as produced by an outer join
type NullFloat64 struct {
	Float64 float64
	Valid   bool
}

// Some returns a present NullFloat64
func Some(v float64) NullFloat64 {
	return NullFloat64{Float64: v, Valid: true}
}

// Null returns an absent NullFloat64
func Null() NullFloat64 {
	return NullFloat64{}
}

// String renders the value, or "null" when absent
func (n NullFloat64) String() string {
	if !n.Valid {
		return "null"
	}
	return fmt.Sprintf("%g", n.Float64)
}

// MarshalJSON encodes an absent value as JSON null
func (n NullFloat64) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Float64)
}
