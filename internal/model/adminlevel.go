package model

import (
	"sort"

	"github.com/rotisserie/eris"
)

// Administrative levels run from 1 (largest division, e.g. a state or
// oblast) to 5 (smallest, e.g. a city district).
const (
	AdminLevelMin = 1
	AdminLevelMax = 5
)

// AdminLevel is a named administrative division at a numeric level.
type AdminLevel struct {
	Level int    `json:"level"`
	Name  string `json:"name"`
	Code  string `json:"code,omitempty"`
}

// Validate checks the level is within the supported range.
func (a AdminLevel) Validate() error {
	if a.Level < AdminLevelMin || a.Level > AdminLevelMax {
		return eris.Wrapf(ErrOutOfRange, "admin level %d not in [%d,%d]", a.Level, AdminLevelMin, AdminLevelMax)
	}
	return nil
}

// AdminLevels is an ordered collection of admin levels, unique per level
// number and always sorted ascending by level.
type AdminLevels struct {
	levels []AdminLevel
}

// NewAdminLevels builds a collection, rejecting out-of-range or duplicate
// levels.
func NewAdminLevels(levels ...AdminLevel) (AdminLevels, error) {
	var c AdminLevels
	for _, l := range levels {
		if err := c.Add(l); err != nil {
			return AdminLevels{}, err
		}
	}
	return c, nil
}

// Add inserts a level, keeping the collection sorted. A level number already
// present is an error, not a replace.
func (c *AdminLevels) Add(l AdminLevel) error {
	if err := l.Validate(); err != nil {
		return err
	}
	for _, existing := range c.levels {
		if existing.Level == l.Level {
			return eris.Wrapf(ErrInvalidArgument, "duplicate admin level %d", l.Level)
		}
	}
	c.levels = append(c.levels, l)
	sort.Slice(c.levels, func(i, j int) bool { return c.levels[i].Level < c.levels[j].Level })
	return nil
}

// All returns the levels in ascending level order. The returned slice is a
// copy; mutating it does not affect the collection.
func (c AdminLevels) All() []AdminLevel {
	out := make([]AdminLevel, len(c.levels))
	copy(out, c.levels)
	return out
}

// Numbers returns just the level numbers, ascending.
func (c AdminLevels) Numbers() []int {
	nums := make([]int, len(c.levels))
	for i, l := range c.levels {
		nums[i] = l.Level
	}
	return nums
}

// Len returns the number of levels in the collection.
func (c AdminLevels) Len() int { return len(c.levels) }
