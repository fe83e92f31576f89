package models

import (
	"encoding/json"
	"math"
	"strconv"
)

// Cell is an optional numeric value in a survey table. The zero value is a
// missing cell. Derived tables reuse it for any statistic that can be
// undefined (z-scores of zero-variance respondents, stds over a single
// observation, confidence bounds with no data).
type Cell struct {
	Value float64
	Valid bool
}

// NewCell returns a valid cell holding v. NaN and infinities are treated as
// missing so that degenerate divisions never leak into downstream tables.
func NewCell(v float64) Cell {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Cell{}
	}
	return Cell{Value: v, Valid: true}
}

// Missing returns the missing cell.
func Missing() Cell {
	return Cell{}
}

// Float returns the value and whether it is present.
func (c Cell) Float() (float64, bool) {
	return c.Value, c.Valid
}

// Or returns the value, or fallback when the cell is missing.
func (c Cell) Or(fallback float64) float64 {
	if !c.Valid {
		return fallback
	}
	return c.Value
}

func (c Cell) String() string {
	if !c.Valid {
		return "-"
	}
	return strconv.FormatFloat(c.Value, 'g', -1, 64)
}

// MarshalJSON encodes a valid cell as a bare number and a missing cell as null,
// matching how the exported CSV/JSON tables represent blanks.
func (c Cell) MarshalJSON() ([]byte, error) {
	if !c.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(c.Value)
}

// UnmarshalJSON accepts a number or null.
func (c *Cell) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*c = Cell{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*c = NewCell(v)
	return nil
}
