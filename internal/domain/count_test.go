package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestParseCount(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"0", "0", true},
		{"42", "42", true},
		{" 42 ", "42", true},
		{"123456789012345678901234567890", "123456789012345678901234567890", true},
		{"1.5e3", "1500", true},
		{"2.5E+20", "250000000000000000000", true},
		{"1500.0", "1500", true},
		{"12.9", "0", false},
		{"-3.7", "0", false},
		{"1e-3", "0", false},
		{"1e600000000", "0", false},
		{"1e100000000", "0", false},
		{"1e80", "0", false},
		{strings.Repeat("9", MaxCountDigits+1), "0", false},
		{"", "0", false},
		{"abc", "0", false},
		{"Inf", "0", false},
		{"1,000", "0", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseCount(tt.in)
			if ok != tt.ok {
				t.Fatalf("ParseCount(%q) ok = %v, want %v", tt.in, ok, tt.ok)
			}
			if got.String() != tt.want {
				t.Errorf("ParseCount(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestCountZeroValue(t *testing.T) {
	var c Count
	if !c.IsZero() {
		t.Error("zero Count should be zero")
	}
	if c.String() != "0" {
		t.Errorf("zero Count String() = %q", c.String())
	}
	if c.Cmp(NewCount(0)) != 0 {
		t.Error("zero Count should equal NewCount(0)")
	}
}

func TestCountCmp(t *testing.T) {
	big := MustParseCount("99999999999999999999")
	small := NewCount(1 << 62)
	if big.Cmp(small) <= 0 {
		t.Errorf("%s should be greater than %s", big, small)
	}
	if small.Cmp(big) >= 0 {
		t.Errorf("%s should be less than %s", small, big)
	}
}

func TestCountBigIntIsCopy(t *testing.T) {
	c := NewCount(7)
	c.BigInt().SetInt64(100)
	if c.String() != "7" {
		t.Errorf("mutating BigInt() changed the count to %s", c)
	}
}

func TestCountScan(t *testing.T) {
	tests := []struct {
		name string
		src  any
		want string
	}{
		{"nil", nil, "0"},
		{"int64", int64(12), "12"},
		{"string", "98765432109876543210", "98765432109876543210"},
		{"bytes", []byte("55"), "55"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Count
			if err := c.Scan(tt.src); err != nil {
				t.Fatalf("Scan(%v) error = %v", tt.src, err)
			}
			if c.String() != tt.want {
				t.Errorf("Scan(%v) = %s, want %s", tt.src, c, tt.want)
			}
		})
	}

	var c Count
	if err := c.Scan(3.5); err == nil {
		t.Error("Scan(float64) should fail")
	}
	if err := c.Scan("nope"); err == nil {
		t.Error("Scan of a non-numeric string should fail")
	}
}

func TestCountJSON(t *testing.T) {
	payload := struct {
		Power Count `json:"power"`
	}{Power: MustParseCount("123456789012345678901234567890")}

	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(data) != `{"power":"123456789012345678901234567890"}` {
		t.Errorf("Marshal() = %s", data)
	}

	var decoded struct {
		Power Count `json:"power"`
	}
	if err := json.Unmarshal([]byte(`{"power":12345}`), &decoded); err != nil {
		t.Fatalf("Unmarshal(number) error = %v", err)
	}
	if decoded.Power.String() != "12345" {
		t.Errorf("Unmarshal(number) = %s", decoded.Power)
	}
}

func TestErrorClassification(t *testing.T) {
	validation := fmt.Errorf("wrapped: %w", NewValidationError("bad file %s", "x.csv"))
	if !IsValidation(validation) || IsStorage(validation) {
		t.Errorf("wrapped ValidationError misclassified: %v", validation)
	}

	cause := errors.New("disk full")
	storage := fmt.Errorf("wrapped: %w", NewStorageError("insert", cause))
	if !IsStorage(storage) || IsValidation(storage) {
		t.Errorf("wrapped StorageError misclassified: %v", storage)
	}
	if !errors.Is(storage, cause) {
		t.Error("StorageError should unwrap to its cause")
	}
}
