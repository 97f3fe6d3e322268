package model

import "testing"

func TestNormalizePair(t *testing.T) {
	cases := []struct {
		a, b, low, high uint
	}{
		{1, 2, 1, 2},
		{2, 1, 1, 2},
		{7, 7, 7, 7},
	}
	for _, c := range cases {
		low, high := NormalizePair(c.a, c.b)
		if low != c.low || high != c.high {
			t.Errorf("NormalizePair(%d, %d) = (%d, %d), want (%d, %d)", c.a, c.b, low, high, c.low, c.high)
		}
	}
}
