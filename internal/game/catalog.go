package game

import (
	"fmt"
	"sort"
)

// TaskDef is a task template in the catalog. Instances dealt to players
// copy these fields and add per-player progress.
type TaskDef struct {
	Name     string `json:"name"`
	Location string `json:"location"`
	Required int    `json:"required"`
	Visual   bool   `json:"visual"`
}

// SabotageDef is a sabotage template. FixLocations maps each room where the
// sabotage can be repaired to the number of fix ticks that room requires.
// Critical sabotages carry a countdown that ends the game on expiry.
type SabotageDef struct {
	Type         string         `json:"type"`
	FixLocations map[string]int `json:"fix_locations"`
	Critical     bool           `json:"critical"`
}

// Catalog is the read-only rules bundle shared by every game: the room
// graph, the task pool, and the sabotage definitions. Construct once,
// validate, then share freely across goroutines.
type Catalog struct {
	Rooms     []string               `json:"rooms"`
	Adjacency map[string][]string    `json:"adjacency"`
	SpawnRoom string                 `json:"spawn_room"`
	TaskPool  []TaskDef              `json:"task_pool"`
	Sabotages map[string]SabotageDef `json:"sabotages"`
}

// defaultAdjacency is the canonical 14-room layout. Every edge is listed on
// both endpoints; Validate rejects asymmetric tables.
var defaultAdjacency = map[string][]string{
	"Cafeteria":      {"Weapons", "MedBay", "Upper Engine", "Admin", "Storage"},
	"Weapons":        {"Cafeteria", "O2", "Navigation"},
	"O2":             {"Weapons", "Navigation", "Shields", "Admin"},
	"Navigation":     {"Weapons", "O2", "Shields"},
	"Shields":        {"Navigation", "O2", "Communications", "Storage"},
	"Communications": {"Shields", "Storage"},
	"Storage":        {"Cafeteria", "Admin", "Communications", "Shields", "Electrical"},
	"Admin":          {"Cafeteria", "Storage", "O2"},
	"Electrical":     {"Storage", "Lower Engine", "Security"},
	"Lower Engine":   {"Electrical", "Security", "Reactor"},
	"Security":       {"Upper Engine", "Lower Engine", "Reactor", "Electrical"},
	"Reactor":        {"Upper Engine", "Lower Engine", "Security"},
	"Upper Engine":   {"Cafeteria", "MedBay", "Security", "Reactor"},
	"MedBay":         {"Upper Engine", "Cafeteria"},
}

// defaultTaskPool spans every room so crewmates always have somewhere to go.
// "Fuel Engines" appears twice on purpose: one template per engine room.
var defaultTaskPool = []TaskDef{
	{Name: "Fix Wiring", Location: "Electrical", Required: 3},
	{Name: "Divert Power", Location: "Electrical", Required: 2},
	{Name: "Upload Data", Location: "Admin", Required: 2},
	{Name: "Swipe Card", Location: "Admin", Required: 2},
	{Name: "Body Scan", Location: "MedBay", Required: 3, Visual: true},
	{Name: "Calibrate Engines", Location: "Upper Engine", Required: 2},
	{Name: "Fuel Engines", Location: "Upper Engine", Required: 2},
	{Name: "Fuel Engines", Location: "Lower Engine", Required: 2},
	{Name: "Clear Asteroids", Location: "Weapons", Required: 3, Visual: true},
	{Name: "Chart Course", Location: "Navigation", Required: 2},
	{Name: "Stabilize Steering", Location: "Navigation", Required: 2},
	{Name: "Prime Shields", Location: "Shields", Required: 2},
	{Name: "Align Telescope", Location: "Shields", Required: 2},
	{Name: "Clean Filter", Location: "Storage", Required: 2},
	{Name: "Fill Canisters", Location: "Storage", Required: 2},
	{Name: "Start Reactor", Location: "Reactor", Required: 3},
	{Name: "Unlock Manifolds", Location: "Reactor", Required: 2},
	{Name: "Clean O2 Filter", Location: "O2", Required: 2},
	{Name: "Empty Garbage", Location: "O2", Required: 2},
	{Name: "Fix Comms", Location: "Communications", Required: 2},
	{Name: "Check Security", Location: "Security", Required: 2},
}

// defaultSabotages: reactor and o2 are critical (countdown ends the game),
// lights and comms only degrade crewmate observations.
var defaultSabotages = map[string]SabotageDef{
	"reactor": {Type: "reactor", FixLocations: map[string]int{"Reactor": 4}, Critical: true},
	"o2":      {Type: "o2", FixLocations: map[string]int{"O2": 2, "Admin": 2}, Critical: true},
	"lights":  {Type: "lights", FixLocations: map[string]int{"Electrical": 3}},
	"comms":   {Type: "comms", FixLocations: map[string]int{"Communications": 3}},
}

// DefaultCatalog returns the canonical catalog. The returned value is
// freshly allocated; callers may not mutate it after sharing.
func DefaultCatalog() *Catalog {
	adj := make(map[string][]string, len(defaultAdjacency))
	rooms := make([]string, 0, len(defaultAdjacency))
	for room, neighbors := range defaultAdjacency {
		rooms = append(rooms, room)
		ns := make([]string, len(neighbors))
		copy(ns, neighbors)
		sort.Strings(ns)
		adj[room] = ns
	}
	sort.Strings(rooms)

	pool := make([]TaskDef, len(defaultTaskPool))
	copy(pool, defaultTaskPool)

	sabs := make(map[string]SabotageDef, len(defaultSabotages))
	for name, def := range defaultSabotages {
		fixes := make(map[string]int, len(def.FixLocations))
		for room, ticks := range def.FixLocations {
			fixes[room] = ticks
		}
		sabs[name] = SabotageDef{Type: def.Type, FixLocations: fixes, Critical: def.Critical}
	}

	return &Catalog{
		Rooms:     rooms,
		Adjacency: adj,
		SpawnRoom: "Cafeteria",
		TaskPool:  pool,
		Sabotages: sabs,
	}
}

// Validate checks the structural invariants of the catalog: symmetric
// adjacency, known rooms everywhere, a spawn room, and a connected graph.
func (c *Catalog) Validate() error {
	if len(c.Rooms) == 0 {
		return &ConfigError{Field: "rooms", Msg: "catalog has no rooms"}
	}
	known := make(map[string]bool, len(c.Rooms))
	for _, room := range c.Rooms {
		known[room] = true
	}
	if !known[c.SpawnRoom] {
		return &ConfigError{Field: "spawn_room", Msg: fmt.Sprintf("spawn room %q is not in the room set", c.SpawnRoom)}
	}
	for room, neighbors := range c.Adjacency {
		if !known[room] {
			return &ConfigError{Field: "adjacency", Msg: fmt.Sprintf("adjacency lists unknown room %q", room)}
		}
		for _, n := range neighbors {
			if !known[n] {
				return &ConfigError{Field: "adjacency", Msg: fmt.Sprintf("room %q is adjacent to unknown room %q", room, n)}
			}
			if !contains(c.Adjacency[n], room) {
				return &ConfigError{Field: "adjacency", Msg: fmt.Sprintf("asymmetric edge: %q lists %q but not the reverse", room, n)}
			}
		}
	}
	for _, room := range c.Rooms {
		if len(c.Adjacency[room]) == 0 {
			return &ConfigError{Field: "adjacency", Msg: fmt.Sprintf("room %q has no neighbors", room)}
		}
	}
	if !c.connected() {
		return &ConfigError{Field: "adjacency", Msg: "room graph is not connected"}
	}
	for i, t := range c.TaskPool {
		if !known[t.Location] {
			return &ConfigError{Field: "task_pool", Msg: fmt.Sprintf("task %q sits in unknown room %q", t.Name, t.Location)}
		}
		if t.Required < 1 {
			return &ConfigError{Field: "task_pool", Msg: fmt.Sprintf("task %d (%q) requires %d steps; minimum is 1", i, t.Name, t.Required)}
		}
	}
	for name, def := range c.Sabotages {
		if len(def.FixLocations) == 0 {
			return &ConfigError{Field: "sabotages", Msg: fmt.Sprintf("sabotage %q has no fix locations", name)}
		}
		for room, ticks := range def.FixLocations {
			if !known[room] {
				return &ConfigError{Field: "sabotages", Msg: fmt.Sprintf("sabotage %q fixes in unknown room %q", name, room)}
			}
			if ticks < 1 {
				return &ConfigError{Field: "sabotages", Msg: fmt.Sprintf("sabotage %q requires %d fix ticks in %q; minimum is 1", name, ticks, room)}
			}
		}
	}
	return nil
}

// HasRoom reports whether room is part of the map.
func (c *Catalog) HasRoom(room string) bool {
	_, ok := c.Adjacency[room]
	return ok
}

// IsAdjacent reports whether to can be reached from from in one move.
func (c *Catalog) IsAdjacent(from, to string) bool {
	return contains(c.Adjacency[from], to)
}

// AdjacentRooms returns a sorted copy of the rooms reachable from room.
func (c *Catalog) AdjacentRooms(room string) []string {
	neighbors := c.Adjacency[room]
	out := make([]string, len(neighbors))
	copy(out, neighbors)
	return out
}

// VisualTasks returns the visual templates of the pool.
func (c *Catalog) VisualTasks() []TaskDef {
	var out []TaskDef
	for _, t := range c.TaskPool {
		if t.Visual {
			out = append(out, t)
		}
	}
	return out
}

func (c *Catalog) connected() bool {
	if len(c.Rooms) == 0 {
		return false
	}
	seen := map[string]bool{c.Rooms[0]: true}
	frontier := []string{c.Rooms[0]}
	for len(frontier) > 0 {
		room := frontier[len(frontier)-1]
		frontier = frontier[:len(frontier)-1]
		for _, n := range c.Adjacency[room] {
			if !seen[n] {
				seen[n] = true
				frontier = append(frontier, n)
			}
		}
	}
	return len(seen) == len(c.Rooms)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
