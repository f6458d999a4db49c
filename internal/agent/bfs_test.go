package agent

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"skeld/internal/game"
)

// TestShortestPathTrivial covers the start == end case
func TestShortestPathTrivial(t *testing.T) {
	adj := game.DefaultCatalog().Adjacency
	path := ShortestPath("Cafeteria", "Cafeteria", adj)
	if diff := cmp.Diff([]string{"Cafeteria"}, path); diff != "" {
		t.Errorf("Path mismatch (-want +got):\n%s", diff)
	}
}

// TestShortestPathMultiHop checks routes across the default map
func TestShortestPathMultiHop(t *testing.T) {
	adj := game.DefaultCatalog().Adjacency
	tests := []struct {
		start string
		end   string
		want  []string
	}{
		{"Cafeteria", "Admin", []string{"Cafeteria", "Admin"}},
		{"Cafeteria", "Electrical", []string{"Cafeteria", "Storage", "Electrical"}},
		{"Cafeteria", "Reactor", []string{"Cafeteria", "Upper Engine", "Reactor"}},
	}
	for _, tt := range tests {
		got := ShortestPath(tt.start, tt.end, adj)
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("ShortestPath(%s, %s) mismatch (-want +got):\n%s", tt.start, tt.end, diff)
		}
	}
}

// TestShortestPathUnreachable expects nil for a disconnected target
func TestShortestPathUnreachable(t *testing.T) {
	adj := map[string][]string{
		"A": {"B"},
		"B": {"A"},
		"C": {},
	}
	if path := ShortestPath("A", "C", adj); path != nil {
		t.Errorf("Expected nil path, got %v", path)
	}
}

// TestNextHop checks the first-move helper
func TestNextHop(t *testing.T) {
	adj := game.DefaultCatalog().Adjacency
	if hop := NextHop("Cafeteria", "Electrical", adj); hop != "Storage" {
		t.Errorf("Expected hop Storage, got %q", hop)
	}
	if hop := NextHop("Admin", "Admin", adj); hop != "" {
		t.Errorf("Expected empty hop when already there, got %q", hop)
	}
}
