package models

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseDecimal_AcceptsFormattedStrings(t *testing.T) {
	cases := []struct {
		in       string
		expected string
	}{
		{"20000", "20000"},
		{"12,5", "12.5"},
		{"1,234.50", "1234.5"},
		{"1 234,5", "1234.5"},
		{"  7 кг ", "7"},
		{"-3", "-3"},
		{"- 0,25", "-0.25"},
	}
	for _, tc := range cases {
		d, err := ParseDecimal(tc.in)
		if err != nil {
			t.Fatalf("ParseDecimal(%q) error: %v", tc.in, err)
		}
		if d.String() != tc.expected {
			t.Fatalf("ParseDecimal(%q) expected %s, got %s", tc.in, tc.expected, d.String())
		}
	}
}

func TestParseDecimal_RejectsEmpty(t *testing.T) {
	for _, in := range []string{"", "   ", "abc", "-", "."} {
		if _, err := ParseDecimal(in); err == nil {
			t.Fatalf("ParseDecimal(%q) expected error", in)
		}
		if !ParseDecimalOrZero(in).IsZero() {
			t.Fatalf("ParseDecimalOrZero(%q) expected 0", in)
		}
	}
}

func TestRoundStock_HalfUp(t *testing.T) {
	cases := []struct {
		in       string
		expected string
	}{
		{"1.2344", "1.234"},
		{"1.2345", "1.235"},
		{"2.0005", "2.001"},
		{"-2.0005", "-2"},
		{"-2.0006", "-2.001"},
		{"0.1", "0.1"},
	}
	for _, tc := range cases {
		got := RoundStock(decimal.RequireFromString(tc.in))
		if !got.Equal(decimal.RequireFromString(tc.expected)) {
			t.Fatalf("RoundStock(%s) expected %s, got %s", tc.in, tc.expected, got)
		}
	}
}

func TestRoundMoney(t *testing.T) {
	got := RoundMoney(decimal.RequireFromString("10.005"))
	if got.String() != "10.01" {
		t.Fatalf("expected 10.01, got %s", got)
	}
}

func TestLooseDecimal_NumberOrString(t *testing.T) {
	var payload struct {
		A LooseDecimal  `json:"a"`
		B LooseDecimal  `json:"b"`
		C *LooseDecimal `json:"c"`
	}
	if err := json.Unmarshal([]byte(`{"a": 0.1, "b": "2,5", "c": null}`), &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if payload.A.String() != "0.1" {
		t.Fatalf("a expected 0.1, got %s", payload.A)
	}
	if payload.B.String() != "2.5" {
		t.Fatalf("b expected 2.5, got %s", payload.B)
	}
	if payload.C != nil {
		t.Fatalf("c expected nil")
	}
	if err := json.Unmarshal([]byte(`{"a": "x"}`), &payload); err == nil {
		t.Fatalf("expected error for non-numeric string")
	}
}

func TestQuantityAndMoney_JSONFormatting(t *testing.T) {
	out, err := json.Marshal(struct {
		Q Quantity `json:"q"`
		M Money    `json:"m"`
	}{
		Q: NewQuantity(decimal.RequireFromString("7.5")),
		M: NewMoney(decimal.RequireFromString("3")),
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `{"q":7.500,"m":3.00}` {
		t.Fatalf("unexpected json %s", out)
	}
}
