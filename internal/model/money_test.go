package model

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseDecimal(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  string
	}{
		{"string", "12.50", "12.5"},
		{"padded string", " 3.25 ", "3.25"},
		{"float", 1.5, "1.5"},
		{"int", 3, "3"},
		{"json number", json.Number("0.75"), "0.75"},
		{"nil", nil, "0"},
		{"empty string", "", "0"},
		{"invalid string", "abc", "0"},
		{"bool", true, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseDecimal(tt.input)
			if !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("ParseDecimal(%v) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestRoundArea(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2.25", "2.25"},
		{"0.0930250", "0.093"},
		{"1.4885", "1.489"},
		{"0.0005", "0.001"},
	}

	for _, tt := range tests {
		got := RoundArea(decimal.RequireFromString(tt.in))
		if !got.Equal(decimal.RequireFromString(tt.want)) {
			t.Errorf("RoundArea(%s) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"45.5", "45.50"},
		{"0", "0.00"},
		{"102.375", "102.38"},
		{"99.994", "99.99"},
	}

	for _, tt := range tests {
		if got := FormatMoney(decimal.RequireFromString(tt.in)); got != tt.want {
			t.Errorf("FormatMoney(%s) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFromMinorUnits(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		minorUnit int
		want      string
	}{
		{"pence", "8900", 2, "89"},
		{"odd pence", "123456", 2, "1234.56"},
		{"zero-decimal currency", "500", 0, "500"},
		{"empty", "", 2, "0"},
		{"invalid", "n/a", 2, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromMinorUnits(tt.input, tt.minorUnit)
			if !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("FromMinorUnits(%q, %d) = %s, want %s", tt.input, tt.minorUnit, got, tt.want)
			}
		})
	}
}
