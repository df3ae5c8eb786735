// Package role maps role names to privilege levels. Levels start at 0 for
// individual contributors and grow with administrative scope. The table is
// fixed at startup; a Resolver never changes after construction.
package role

import (
	"fmt"
	"strconv"
	"strings"
)

// Built-in levels.
const (
	LevelStaff      = 0
	LevelDepartment = 1
	LevelSubAdmin   = 2
	LevelAdmin      = 3
)

var defaultLevels = map[string]int{
	"owner":           LevelAdmin,
	"super_admin":     LevelAdmin,
	"admin":           LevelSubAdmin,
	"sub_admin":       LevelSubAdmin,
	"department_head": LevelDepartment,
	"principal":       LevelDepartment,
	"head_nurse":      LevelDepartment,
	"supervisor":      LevelDepartment,
	"staff":           LevelStaff,
	"teacher":         LevelStaff,
	"nurse":           LevelStaff,
	"guard":           LevelStaff,
}

// Resolver answers level questions about role sets.
type Resolver struct {
	levels map[string]int
}

// Default returns a Resolver over the built-in table.
func Default() Resolver {
	return New(defaultLevels)
}

// New copies levels into a Resolver. Names are matched case-insensitively.
func New(levels map[string]int) Resolver {
	m := make(map[string]int, len(levels))
	for k, v := range levels {
		m[normalize(k)] = v
	}
	return Resolver{levels: m}
}

// Parse builds a Resolver from "name:level,name:level". An empty string
// yields the default table.
func Parse(spec string) (Resolver, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return Default(), nil
	}
	levels := map[string]int{}
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, lvl, ok := strings.Cut(part, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return Resolver{}, fmt.Errorf("role: bad entry %q", part)
		}
		n, err := strconv.Atoi(strings.TrimSpace(lvl))
		if err != nil || n < 0 {
			return Resolver{}, fmt.Errorf("role: bad level in %q", part)
		}
		levels[name] = n
	}
	return New(levels), nil
}

// Level returns the level of a single role name, 0 when unknown.
func (r Resolver) Level(name string) int {
	return r.levels[normalize(name)]
}

// LevelOf returns the maximum level across roles, 0 for an empty set.
func (r Resolver) LevelOf(roles []string) int {
	top := 0
	for _, name := range roles {
		if l := r.Level(name); l > top {
			top = l
		}
	}
	return top
}

// IsHigher reports whether role set a outranks role set b.
func (r Resolver) IsHigher(a, b []string) bool {
	return r.LevelOf(a) > r.LevelOf(b)
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Known reports whether name appears in the table.
func (r Resolver) Known(name string) bool {
	_, ok := r.levels[normalize(name)]
	return ok
}
