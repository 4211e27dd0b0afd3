package model

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// Numeric is a nullable decimal for invoice line values. Form exports and
// gateway payloads routinely carry "" or "N/A" in numeric columns; those
// normalize to an absent value instead of zero or a parse error.
type Numeric struct {
	decimal.NullDecimal
}

// NumericFrom returns a present Numeric holding d.
func NumericFrom(d decimal.Decimal) Numeric {
	return Numeric{decimal.NullDecimal{Decimal: d, Valid: true}}
}

// NumericFromFloat returns a present Numeric holding f.
func NumericFromFloat(f float64) Numeric {
	return NumericFrom(decimal.NewFromFloat(f))
}

// UnmarshalJSON accepts a JSON number, a numeric string, or a placeholder.
// Placeholders (null, "", "N/A") and unparseable strings become absent.
func (n *Numeric) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" {
		n.Valid = false
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
	}
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "n/a") {
		n.Valid = false
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		n.Valid = false
		return nil
	}
	n.Decimal = d
	n.Valid = true
	return nil
}

// Float64 returns the value and whether it is present.
func (n Numeric) Float64() (float64, bool) {
	if !n.Valid {
		return 0, false
	}
	f, _ := n.Decimal.Float64()
	return f, true
}

// Negative reports whether the value is present and below zero.
func (n Numeric) Negative() bool {
	return n.Valid && n.Decimal.IsNegative()
}
