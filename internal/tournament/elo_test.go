package tournament

import (
	"math"
	"testing"
)

// TestEloDeltaEvenMatch checks the symmetric case
func TestEloDeltaEvenMatch(t *testing.T) {
	win := EloDelta(1200, 1200, true, 32)
	if math.Abs(win-16) > 1e-9 {
		t.Errorf("Expected +16 for an even-odds win, got %f", win)
	}
	loss := EloDelta(1200, 1200, false, 32)
	if math.Abs(loss+16) > 1e-9 {
		t.Errorf("Expected -16 for an even-odds loss, got %f", loss)
	}
}

// TestEloDeltaFavorite checks that expected wins pay little
func TestEloDeltaFavorite(t *testing.T) {
	// 400 points up: expected score 10/11.
	win := EloDelta(1600, 1200, true, 16)
	want := 16 * (1 - 10.0/11.0)
	if math.Abs(win-want) > 1e-9 {
		t.Errorf("Expected %f for a favorite win, got %f", want, win)
	}
	loss := EloDelta(1600, 1200, false, 16)
	want = 16 * (0 - 10.0/11.0)
	if math.Abs(loss-want) > 1e-9 {
		t.Errorf("Expected %f for a favorite loss, got %f", want, loss)
	}
}

// TestEloDeltaKScaling verifies the delta is linear in K
func TestEloDeltaKScaling(t *testing.T) {
	d16 := EloDelta(1300, 1250, true, 16)
	d32 := EloDelta(1300, 1250, true, 32)
	if math.Abs(d32-2*d16) > 1e-9 {
		t.Errorf("Expected K=32 delta to double K=16: %f vs %f", d32, d16)
	}
}
