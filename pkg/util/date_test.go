package util

import (
	"testing"
	"time"
)

func TestParseDateLayouts(t *testing.T) {
	want := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for _, s := range []string{"2024-03-01", "2024-03", "2024/03/01", "2024-03-01T00:00:00Z", "2024-03-01 00:00:00", " 2024-03-01 "} {
		got, ok := ParseDate(s)
		if !ok {
			t.Fatalf("expected %q to parse", s)
		}
		if !got.Equal(want) {
			t.Fatalf("%q: unexpected time %v", s, got)
		}
	}
}

func TestParseDateInvalid(t *testing.T) {
	for _, s := range []string{"", "not-a-date", "2024-13-01"} {
		if _, ok := ParseDate(s); ok {
			t.Fatalf("expected %q to fail", s)
		}
	}
}

func TestAddMonthsClampsToMonthEnd(t *testing.T) {
	cases := []struct {
		from time.Time
		n    int
		want time.Time
	}{
		{time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), 1, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)},
		{time.Date(2023, 1, 31, 0, 0, 0, 0, time.UTC), 1, time.Date(2023, 2, 28, 0, 0, 0, 0, time.UTC)},
		{time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), 1, time.Date(2024, 4, 15, 0, 0, 0, 0, time.UTC)},
		{time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC), 1, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
		{time.Date(2024, 8, 31, 0, 0, 0, 0, time.UTC), 13, time.Date(2025, 9, 30, 0, 0, 0, 0, time.UTC)},
	}
	for _, c := range cases {
		if got := AddMonths(c.from, c.n); !got.Equal(c.want) {
			t.Fatalf("AddMonths(%v, %d) = %v, want %v", c.from, c.n, got, c.want)
		}
	}
}

func TestDaysIn(t *testing.T) {
	if DaysIn(2024, time.February) != 29 || DaysIn(2023, time.February) != 28 || DaysIn(2024, time.April) != 30 {
		t.Fatalf("unexpected month lengths")
	}
}
