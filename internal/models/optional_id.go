package models

import (
	"math"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
)

// maxExactID is the largest magnitude a JSON number holds without loss.
const maxExactID = 1 << 53

// OptionalID decodes an identifier published either as a JSON number or
// as a decimal string. Null, empty, fractional and non-numeric values
// leave it unset. Strings are always read in base 10, so "010" is 10.
type OptionalID struct {
	Value int
	Valid bool
}

func (o *OptionalID) UnmarshalJSON(data []byte) error {
	o.Value, o.Valid = 0, false

	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case float64:
		if v != math.Trunc(v) || math.Abs(v) > maxExactID {
			return nil
		}
		o.Value, o.Valid = int(v), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return nil
		}
		o.Value, o.Valid = n, true
	}
	return nil
}

// Ptr returns the value as a pointer, nil when unset.
func (o OptionalID) Ptr() *int {
	if !o.Valid {
		return nil
	}
	v := o.Value
	return &v
}
