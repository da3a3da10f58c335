package core

import (
	"testing"
)

func TestKeyFromText(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "same content produces same key",
			content: "what is the refund policy?",
		},
		{
			name:    "empty string",
			content: "",
		},
		{
			name:    "long content",
			content: "This is a much longer question that should still hash to a stable key regardless of its length",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k1 := KeyFromText(tt.content)
			k2 := KeyFromText(tt.content)

			if k1 != k2 {
				t.Errorf("KeyFromText() produced different keys for same content: %s vs %s", k1, k2)
			}
			if len(k1) != 32 {
				t.Errorf("KeyFromText() key length = %d, want 32 hex chars", len(k1))
			}
		})
	}
}

func TestKeyFromText_Different(t *testing.T) {
	k1 := KeyFromText("question one")
	k2 := KeyFromText("question two")

	if k1 == k2 {
		t.Errorf("KeyFromText() produced same key for different content")
	}
}

func TestComputeSuccessRate(t *testing.T) {
	tests := []struct {
		name   string
		stored int
		total  int
		want   float64
	}{
		{
			name:   "all stored",
			stored: 50,
			total:  50,
			want:   100,
		},
		{
			name:   "partial storage",
			stored: 40,
			total:  50,
			want:   80,
		},
		{
			name:   "nothing stored",
			stored: 0,
			total:  50,
			want:   0,
		},
		{
			name:   "zero total yields zero not a division error",
			stored: 0,
			total:  0,
			want:   0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeSuccessRate(tt.stored, tt.total)
			if got != tt.want {
				t.Errorf("ComputeSuccessRate(%d, %d) = %v, want %v", tt.stored, tt.total, got, tt.want)
			}
		})
	}
}
