package restroom

import (
	"strings"

	"github.com/flushfinder/flushfinder/internal/facilities"
)

// DefaultInclude is the inclusion keyword set.
var DefaultInclude = []string{
	"restroom",
	"lavatory",
	"men",
	"women",
	"all gender",
	"gender neutral",
}

// DefaultExclude is the exclusion keyword set consulted by the exclusion stage.
var DefaultExclude = []string{
	"mechanical",
	"electrical",
	"janitor",
	"custodial",
}

// Toilet is the optional extra inclusion keyword.
const Toilet = "toilet"

// Filter selects restrooms from a room list. The zero value matches nothing;
// use New.
type Filter struct {
	include         []string
	exclude         []string
	applyExclusions bool
}

// Option configures a Filter.
type Option func(*Filter)

// WithToilet adds "toilet" to the inclusion keywords.
func WithToilet() Option {
	return func(f *Filter) { f.include = append(f.include, Toilet) }
}

// WithInclude replaces the inclusion keywords.
func WithInclude(keywords ...string) Option {
	return func(f *Filter) { f.include = normalize(keywords) }
}

// WithExclude replaces the exclusion keywords.
func WithExclude(keywords ...string) Option {
	return func(f *Filter) { f.exclude = normalize(keywords) }
}

// WithExclusions enables the exclusion stage.
func WithExclusions(enabled bool) Option {
	return func(f *Filter) { f.applyExclusions = enabled }
}

// New returns a Filter with the default keyword sets and the exclusion stage
// disabled.
func New(opts ...Option) *Filter {
	f := &Filter{
		include: normalize(DefaultInclude),
		exclude: normalize(DefaultExclude),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Matches reports whether the room's type description contains an inclusion
// keyword. It stops at the first keyword found.
func (f *Filter) Matches(room facilities.Room) bool {
	return containsAny(strings.ToLower(room.TypeDescription), f.include)
}

// Excluded reports whether the room's type description contains an exclusion
// keyword. It ignores whether the exclusion stage is enabled.
func (f *Filter) Excluded(room facilities.Room) bool {
	return containsAny(strings.ToLower(room.TypeDescription), f.exclude)
}

// Include is the inclusion stage. It returns the matching rooms in input
// order, each at most once. rooms is not modified.
func (f *Filter) Include(rooms []facilities.Room) []facilities.Room {
	out := make([]facilities.Room, 0, len(rooms))
	for _, room := range rooms {
		if f.Matches(room) {
			out = append(out, room)
		}
	}
	return out
}

// Exclude is the exclusion stage. When the stage is disabled it returns a copy
// of rooms unchanged.
func (f *Filter) Exclude(rooms []facilities.Room) []facilities.Room {
	out := make([]facilities.Room, 0, len(rooms))
	for _, room := range rooms {
		if f.applyExclusions && f.Excluded(room) {
			continue
		}
		out = append(out, room)
	}
	return out
}

// Restrooms runs both stages.
func (f *Filter) Restrooms(rooms []facilities.Room) []facilities.Room {
	return f.Exclude(f.Include(rooms))
}

// Count returns len(f.Restrooms(rooms)) without building the slice.
func (f *Filter) Count(rooms []facilities.Room) int {
	n := 0
	for _, room := range rooms {
		if !f.Matches(room) {
			continue
		}
		if f.applyExclusions && f.Excluded(room) {
			continue
		}
		n++
	}
	return n
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

func normalize(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
			out = append(out, kw)
		}
	}
	return out
}
