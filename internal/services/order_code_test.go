package services

import (
	"testing"
	"time"
)

func TestNextSequence(t *testing.T) {
	tests := []struct {
		lastCode string
		want     int
	}{
		{"HD-20250101-0001", 2},
		{"HD-20250101-0002", 3},
		{"HD-20250101-0099", 100},
		{"HD-20250101-9999", 10000},
		{"garbage", 1},
		{"HD-20250101-xyz", 1},
		{"", 1},
	}

	for _, tt := range tests {
		if got := NextSequence(tt.lastCode); got != tt.want {
			t.Errorf("NextSequence(%q) = %d, want %d", tt.lastCode, got, tt.want)
		}
	}
}

func TestFormatOrderCode(t *testing.T) {
	day := time.Date(2025, 1, 1, 15, 4, 5, 0, time.UTC)

	if got := FormatOrderCode(day, 3); got != "HD-20250101-0003" {
		t.Fatalf("FormatOrderCode = %q, want HD-20250101-0003", got)
	}

	// A new day starts the sequence over.
	nextDay := day.AddDate(0, 0, 1)
	if got := FormatOrderCode(nextDay, 1); got != "HD-20250102-0001" {
		t.Fatalf("FormatOrderCode = %q, want HD-20250102-0001", got)
	}
}

func TestOrderCodeSequencing(t *testing.T) {
	day := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	// Highest existing code for the day drives the next one.
	last := FormatOrderCode(day, 2)
	next := FormatOrderCode(day, NextSequence(last))
	if next != "HD-20250101-0003" {
		t.Fatalf("next code = %q, want HD-20250101-0003", next)
	}

	// Zero-padding keeps lexicographic order aligned with numeric order, so
	// a descending string sort finds the latest code.
	if !(FormatOrderCode(day, 2) > FormatOrderCode(day, 1)) {
		t.Fatal("codes do not sort lexicographically by sequence")
	}
}
