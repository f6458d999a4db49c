package tournament

import "math"

const (
	// InitialElo is every team's starting rating.
	InitialElo = 1200.0

	// Provisional teams move faster until they have a track record.
	kProvisional     = 32
	kEstablished     = 16
	provisionalGames = 10
)

// EloDelta returns the rating change for one seat's outcome against the
// average rating of its opponents.
func EloDelta(own, oppAvg float64, won bool, k int) float64 {
	expected := 1.0 / (1.0 + math.Pow(10, (oppAvg-own)/400.0))
	actual := 0.0
	if won {
		actual = 1.0
	}
	return float64(k) * (actual - expected)
}
