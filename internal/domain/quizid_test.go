package domain

import (
	"testing"
	"time"
)

func TestQuizIDUsesUTCDate(t *testing.T) {
	// 2025-03-01 23:30 in UTC-2 is already 2025-03-02 in UTC.
	loc := time.FixedZone("UTC-2", -2*60*60)
	now := time.Date(2025, 3, 1, 23, 30, 0, 0, loc)

	if got := QuizID(now); got != 20250302 {
		t.Fatalf("expected 20250302, got %d", got)
	}
	if got := PrevQuizID(now); got != 20250301 {
		t.Fatalf("expected 20250301, got %d", got)
	}
}

func TestPrevQuizIDCrossesMonthBoundary(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	if got := PrevQuizID(now); got != 20250228 {
		t.Fatalf("expected 20250228, got %d", got)
	}
}
