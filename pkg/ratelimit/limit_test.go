package ratelimit

import (
	"testing"
	"time"
)

func TestParseLimit(t *testing.T) {
	cases := []struct {
		in   string
		want Limit
	}{
		{"100 per hour", Limit{Count: 100, Window: time.Hour}},
		{"1 per 5 minutes", Limit{Count: 1, Window: 5 * time.Minute}},
		{"10 per second", Limit{Count: 10, Window: time.Second}},
		{"5 per 2 hours", Limit{Count: 5, Window: 2 * time.Hour}},
		{"3 per day", Limit{Count: 3, Window: 24 * time.Hour}},
		{"  7 PER Minute ", Limit{Count: 7, Window: time.Minute}},
	}
	for _, tc := range cases {
		got, err := ParseLimit(tc.in)
		if err != nil {
			t.Fatalf("ParseLimit(%q) unexpected error: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParseLimit(%q) = %+v, want %+v", tc.in, got, tc.want)
		}
	}
}

func TestParseLimitRejectsMalformed(t *testing.T) {
	for _, in := range []string{
		"", "per hour", "100", "100 per", "x per hour",
		"100 per fortnight", "0 per hour", "-1 per hour",
		"1 per 0 minutes", "1 per 5 minutes extra",
	} {
		if _, err := ParseLimit(in); err == nil {
			t.Fatalf("ParseLimit(%q) expected error", in)
		}
	}
}
