package profile

import (
	"math"
	"sort"
	"strings"
)

// Built-in presets. Durations are in seconds of local time.
var presets = map[string]*Profile{
	"once": {
		Name:        "once",
		Description: "Single forward pass, completes at the end",
		Duration:    2,
		Iterations:  1,
		Speed:       1,
	},
	"loop": {
		Name:        "loop",
		Description: "Three forward passes, then completes",
		Duration:    1,
		Iterations:  3,
		Speed:       1,
	},
	"infinite": {
		Name:        "infinite",
		Description: "Loops forward forever; only a seek to the end completes it",
		Duration:    1,
		Iterations:  math.Inf(1),
		Speed:       1,
	},
	"pingpong": {
		Name:        "pingpong",
		Description: "Forward then backward, reversing on even passes",
		Duration:    1,
		Iterations:  2,
		Speed:       1,
		Pingpong:    true,
	},
	"pongping": {
		Name:        "pongping",
		Description: "Backward then forward, reversing on odd passes",
		Duration:    1,
		Iterations:  2,
		Speed:       1,
		Pongping:    true,
	},
	"boomerang": {
		Name:        "boomerang",
		Description: "Every pass reversed",
		Duration:    1,
		Iterations:  4,
		Speed:       1,
		Pingpong:    true,
		Pongping:    true,
	},
	"persist": {
		Name:        "persist",
		Description: "Single pass that clamps at the end instead of completing",
		Duration:    2,
		Iterations:  1,
		Speed:       1,
		Persist:     true,
	},
	"reverse": {
		Name:        "reverse",
		Description: "Plays backward from the end; running past the start never exhausts the iterations",
		Duration:    2,
		Iterations:  1,
		Speed:       -1,
		StartAt:     2,
	},
	"slowmo": {
		Name:        "slowmo",
		Description: "Single pass at quarter speed",
		Duration:    1,
		Iterations:  1,
		Speed:       0.25,
	},
}

// aliases maps alternative names to preset names.
var aliases = map[string]string{
	"default":   "once",
	"single":    "once",
	"repeat":    "loop",
	"forever":   "infinite",
	"yoyo":      "pingpong",
	"alternate": "pingpong",
	"clamp":     "persist",
	"hold":      "persist",
	"backward":  "reverse",
	"slow":      "slowmo",
}

// Get returns a copy of the preset with the given name or alias.
func Get(name string) (*Profile, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if target, ok := aliases[name]; ok {
		name = target
	}
	p, ok := presets[name]
	if !ok {
		return nil, false
	}
	return p.Clone(), true
}

// Names returns the sorted preset names.
func Names() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns copies of every preset, sorted by name.
func All() []*Profile {
	names := Names()
	result := make([]*Profile, 0, len(names))
	for _, name := range names {
		result = append(result, presets[name].Clone())
	}
	return result
}

// Aliases returns the aliases of a preset, sorted.
func Aliases(name string) []string {
	var result []string
	for alias, target := range aliases {
		if target == name {
			result = append(result, alias)
		}
	}
	sort.Strings(result)
	return result
}
