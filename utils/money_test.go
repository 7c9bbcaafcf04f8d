package utils

import "testing"

func TestFormatMoney(t *testing.T) {
	cases := []struct {
		coins, rate int64
		want        string
	}{
		{12345678, 10000, "1,234.56"},
		{50000, 10000, "5.00"},
		{0, 10000, "0.00"},
		{999, 10000, "0.09"},
		{40000, 10000, "4.00"},
		{123, 0, "123.00"}, // bad rate falls back to 1:1
		{-15000, 10000, "-1.50"},
		{-5000, 10000, "-0.50"},
	}
	for _, tc := range cases {
		if got := FormatMoney(tc.coins, tc.rate); got != tc.want {
			t.Errorf("FormatMoney(%d, %d) = %q, want %q", tc.coins, tc.rate, got, tc.want)
		}
	}
}
