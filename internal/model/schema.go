package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Storefront clients send ids, quantities and flags as numbers, numeric
// strings or booleans depending on the page that built the request. These
// types accept all of those shapes at the JSON boundary so services only
// ever see typed values.

// FlexInt is an integer that also decodes from a numeric string.
type FlexInt int

func (n *FlexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	s := string(data)
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*n = 0
			return nil
		}
	}
	v, err := parseInteger(s)
	if err != nil {
		return fmt.Errorf("not an integer: %s", data)
	}
	*n = FlexInt(v)
	return nil
}

var maxFlexInt = decimal.NewFromInt(math.MaxInt32)

// parseInteger accepts integral numbers in any JSON notation ("3", "3.0",
// "3e0"). Fractions, NaN, infinities and values past int32 are rejected.
func parseInteger(s string) (int, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	if !d.IsInteger() {
		return 0, fmt.Errorf("%s has a fractional part", s)
	}
	if d.Abs().GreaterThan(maxFlexInt) {
		return 0, fmt.Errorf("%s is out of range", s)
	}
	return int(d.IntPart()), nil
}

// ItemRef is a product or variation reference. Numeric values populate ID;
// anything else is kept in Label (storefront pages send markers such as
// "free-sample" in place of a variation id).
type ItemRef struct {
	ID    int
	Label string
}

func (r *ItemRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*r = ItemRef{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if id, err := strconv.Atoi(s); err == nil {
			*r = ItemRef{ID: id}
			return nil
		}
		*r = ItemRef{Label: s}
		return nil
	}
	id, err := parseInteger(string(data))
	if err != nil {
		return fmt.Errorf("invalid item reference: %s", data)
	}
	*r = ItemRef{ID: id}
	return nil
}

func (r ItemRef) MarshalJSON() ([]byte, error) {
	if r.Label != "" {
		return json.Marshal(r.Label)
	}
	return json.Marshal(r.ID)
}

// IsZero reports whether neither an id nor a label was supplied.
func (r ItemRef) IsZero() bool {
	return r.ID == 0 && r.Label == ""
}

// Flag is a boolean that also decodes from 1/0 and string forms.
type Flag bool

func (f *Flag) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = Flag(Truthy(v))
	return nil
}

// Truthy reports whether a loosely typed JSON value means "yes".
// true, 1, "1", "true", "yes" and "on" are truthy; everything else is not.
func Truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t == 1
	case int:
		return t == 1
	case json.Number:
		return t.String() == "1"
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "1", "true", "yes", "on":
			return true
		}
	}
	return false
}

// Requester identifies who is making a cart or checkout call.
// CustomerID is zero for guests.
type Requester struct {
	CustomerID int
	IP         string
	UserAgent  string
}

// FlexDecimal is an optional decimal that decodes from a number or a numeric
// string. Set reports whether the field was present and non-empty.
type FlexDecimal struct {
	Value decimal.Decimal
	Set   bool
}

func (d *FlexDecimal) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*d = FlexDecimal{}
		return nil
	}
	s := string(data)
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*d = FlexDecimal{}
			return nil
		}
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("not a number: %s", data)
	}
	*d = FlexDecimal{Value: v, Set: true}
	return nil
}

func (d FlexDecimal) MarshalJSON() ([]byte, error) {
	if !d.Set {
		return []byte("null"), nil
	}
	return []byte(d.Value.String()), nil
}
