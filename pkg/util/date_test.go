package util

import (
	"strconv"
	"testing"
	"time"
)

func TestParseTimeRFC3339(t *testing.T) {
	s := "2024-10-10T10:10:10Z"
	got, ok := ParseTime(s)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.UTC().Format(time.RFC3339) != s {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimeUnix(t *testing.T) {
	ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
	got, ok := ParseTime(strconv.FormatInt(ts, 10))
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Unix() != ts {
		t.Fatalf("unexpected unix %v", got.Unix())
	}
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate("2024-09-30")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(time.Date(2024, 9, 30, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected date %v", got)
	}
	got, err = ParseDate("2024-09-30T23:10:00+02:00")
	if err != nil || got.Day() != 30 || got.Hour() != 0 {
		t.Fatalf("unexpected date %v %v", got, err)
	}
	if _, err := ParseDate("30/09/2024"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestParseMonth(t *testing.T) {
	cases := map[string]time.Time{
		"2024-02":    time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC),
		"2023-02-03": time.Date(2023, 2, 28, 0, 0, 0, 0, time.UTC),
		"2024-12":    time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
	}
	for in, want := range cases {
		got, err := ParseMonth(in)
		if err != nil {
			t.Fatalf("%s: %v", in, err)
		}
		if !got.Equal(want) {
			t.Fatalf("%s: got %v want %v", in, got, want)
		}
	}
}
