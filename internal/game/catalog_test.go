package game

import (
	"errors"
	"strings"
	"testing"
)

// TestDefaultCatalogIsValid keeps the shipped map playable
func TestDefaultCatalogIsValid(t *testing.T) {
	c := DefaultCatalog()
	if err := c.Validate(); err != nil {
		t.Fatalf("Default catalog rejected: %v", err)
	}
	if len(c.Rooms) != 14 {
		t.Errorf("Expected 14 rooms, got %d", len(c.Rooms))
	}
	if c.SpawnRoom != "Cafeteria" {
		t.Errorf("Expected Cafeteria spawn, got %q", c.SpawnRoom)
	}
	for _, name := range []string{"reactor", "o2", "lights", "comms"} {
		if _, ok := c.Sabotages[name]; !ok {
			t.Errorf("Missing sabotage %q", name)
		}
	}
	if !c.Sabotages["reactor"].Critical || !c.Sabotages["o2"].Critical {
		t.Error("reactor and o2 must be critical")
	}
	if c.Sabotages["lights"].Critical || c.Sabotages["comms"].Critical {
		t.Error("lights and comms must not be critical")
	}
}

// TestCatalogAdjacencySymmetry lists every edge on both endpoints
func TestCatalogAdjacencySymmetry(t *testing.T) {
	c := DefaultCatalog()
	for room, neighbors := range c.Adjacency {
		for _, n := range neighbors {
			if !c.IsAdjacent(n, room) {
				t.Errorf("Edge %s->%s has no reverse", room, n)
			}
		}
	}
}

// TestCatalogQueries covers the room helpers
func TestCatalogQueries(t *testing.T) {
	c := DefaultCatalog()
	if !c.HasRoom("Reactor") || c.HasRoom("Cellar") {
		t.Error("HasRoom misjudged the room set")
	}
	if !c.IsAdjacent("Cafeteria", "MedBay") {
		t.Error("Cafeteria and MedBay are adjacent")
	}
	if c.IsAdjacent("Cafeteria", "Reactor") {
		t.Error("Cafeteria and Reactor are not adjacent")
	}

	rooms := c.AdjacentRooms("MedBay")
	if len(rooms) != 2 {
		t.Fatalf("Expected 2 neighbors for MedBay, got %v", rooms)
	}
	rooms[0] = "tampered"
	if c.Adjacency["MedBay"][0] == "tampered" {
		t.Error("AdjacentRooms must return a copy")
	}

	visuals := c.VisualTasks()
	if len(visuals) != 2 {
		t.Fatalf("Expected 2 visual templates, got %d", len(visuals))
	}
	for _, v := range visuals {
		if !v.Visual {
			t.Errorf("Non-visual template %q in the visual list", v.Name)
		}
	}
}

// TestCatalogValidation rejects broken maps
func TestCatalogValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Catalog)
		msg    string
	}{
		{"no rooms", func(c *Catalog) { c.Rooms = nil }, "no rooms"},
		{"unknown spawn", func(c *Catalog) { c.SpawnRoom = "Bridge" }, "spawn room"},
		{"asymmetric edge", func(c *Catalog) {
			c.Adjacency["MedBay"] = append(c.Adjacency["MedBay"], "Reactor")
		}, "asymmetric edge"},
		{"isolated room", func(c *Catalog) {
			c.Rooms = append(c.Rooms, "Brig")
			c.Adjacency["Brig"] = nil
		}, "no neighbors"},
		{"disconnected graph", func(c *Catalog) {
			c.Rooms = append(c.Rooms, "Brig", "Vault")
			c.Adjacency["Brig"] = []string{"Vault"}
			c.Adjacency["Vault"] = []string{"Brig"}
		}, "not connected"},
		{"task in unknown room", func(c *Catalog) {
			c.TaskPool[0].Location = "Bridge"
		}, "unknown room"},
		{"task requires nothing", func(c *Catalog) {
			c.TaskPool[0].Required = 0
		}, "minimum is 1"},
		{"sabotage without fixes", func(c *Catalog) {
			c.Sabotages["lights"] = SabotageDef{Type: "lights"}
		}, "no fix locations"},
		{"sabotage in unknown room", func(c *Catalog) {
			c.Sabotages["lights"] = SabotageDef{Type: "lights", FixLocations: map[string]int{"Bridge": 2}}
		}, "unknown room"},
		{"sabotage zero ticks", func(c *Catalog) {
			c.Sabotages["lights"] = SabotageDef{Type: "lights", FixLocations: map[string]int{"Electrical": 0}}
		}, "minimum is 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultCatalog()
			tt.mutate(c)
			err := c.Validate()
			if err == nil {
				t.Fatal("Expected a validation error")
			}
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("Expected *ConfigError, got %T", err)
			}
			if !strings.Contains(err.Error(), tt.msg) {
				t.Errorf("Expected message containing %q, got %q", tt.msg, err.Error())
			}
		})
	}
}
