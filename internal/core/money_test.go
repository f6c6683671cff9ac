package core

import (
	"errors"
	"testing"
)

func TestParseDecimalToMinor(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"0", 0, true},
		{"0.004", 0, true},
		{"1.005", 101, true}, // half away from zero
		{"1.004", 100, true},
		{"-1.005", -101, true},
		{" 2.50 ", 250, true},
		{"3.00", 300, true},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
		{"  ", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToMinor(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
			if !errors.Is(err, ErrParseAmount) {
				t.Fatalf("%q expected ErrParseAmount, got %v", tc.in, err)
			}
		}
	}
}

func TestFormatMinor(t *testing.T) {
	cases := []struct {
		amount int64
		code   string
		want   string
	}{
		{1000, "INR", "₹10.00"},
		{450, "INR", "₹4.50"},
		{0, "INR", "₹0.00"},
		{5, "INR", "₹0.05"},
		{123456, "USD", "$1234.56"},
		{99, "EUR", "€0.99"},
		{-450, "INR", "-₹4.50"},
		{100, "XYZ", "₹1.00"}, // unknown code falls back to the default symbol
	}
	for _, tc := range cases {
		if got := FormatMinor(tc.amount, tc.code); got != tc.want {
			t.Fatalf("FormatMinor(%d, %q) = %q, want %q", tc.amount, tc.code, got, tc.want)
		}
	}
}

func TestFormatBalance(t *testing.T) {
	cases := []struct {
		balance Balance
		want    string
	}{
		{Balance{UserID: 1, NetBalance: -450}, "owes ₹4.50"},
		{Balance{UserID: 2, NetBalance: 450}, "gets back ₹4.50"},
		{Balance{UserID: 3, NetBalance: 0}, "settled ₹0.00"},
	}
	for _, tc := range cases {
		if got := FormatBalance(tc.balance, "INR"); got != tc.want {
			t.Fatalf("FormatBalance(%+v) = %q, want %q", tc.balance, got, tc.want)
		}
	}
}

func TestBalanceStatus(t *testing.T) {
	if got := (Balance{NetBalance: 1}).Status(); got != StatusGetsBack {
		t.Fatalf("positive balance: got %q", got)
	}
	if got := (Balance{NetBalance: -1}).Status(); got != StatusOwes {
		t.Fatalf("negative balance: got %q", got)
	}
	if got := (Balance{NetBalance: 0}).Status(); got != StatusSettled {
		t.Fatalf("zero balance: got %q", got)
	}
	if got := (Balance{NetBalance: -450}).Magnitude(); got != 450 {
		t.Fatalf("magnitude: got %d", got)
	}
}
