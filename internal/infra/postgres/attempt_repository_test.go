package postgres

import (
	"testing"
	"time"
)

func TestTimestamptzMatchesColumnPrecision(t *testing.T) {
	in := time.Date(2024, 6, 1, 10, 0, 0, 123456789, time.FixedZone("IST", 5*3600+1800))
	got := timestamptz(in)

	if got.Nanosecond() != 123456000 {
		t.Fatalf("expected microsecond precision, got %d ns", got.Nanosecond())
	}
	if got.Location() != time.UTC {
		t.Fatalf("expected UTC, got %s", got.Location())
	}
	if !got.Equal(in.Truncate(time.Microsecond)) {
		t.Fatalf("instant changed: %s vs %s", got, in)
	}
	if again := timestamptz(got); !again.Equal(got) {
		t.Fatalf("truncation must be idempotent")
	}
}
