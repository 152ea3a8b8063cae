// Package unlock defines the unlockable catalog and the engine that
// computes newly earned items.
package unlock

import (
	"errors"
	"fmt"
	"sort"

	"pomoquest/internal/model"
)

// ErrCatalogInconsistent indicates a catalog entry whose predicate
// can never be evaluated. The catalog is static, so this is validated
// once at startup and treated as fatal.
var ErrCatalogInconsistent = errors.New("catalog inconsistent")

// Entry is one static unlockable definition. Requirements are
// evaluated against a progress snapshot; a zero requirement means the
// dimension is not gated.
type Entry struct {
	model.UnlockKey
	Name             string
	Description      string
	RequiredLevel    int
	RequiredSessions int
	RequiredStreak   int
}

// Satisfied evaluates the entry's predicate against a snapshot.
func (e Entry) Satisfied(s model.Snapshot) bool {
	if e.RequiredLevel > 0 && s.Level < e.RequiredLevel {
		return false
	}
	if e.RequiredSessions > 0 && s.TotalSessions < e.RequiredSessions {
		return false
	}
	if e.RequiredStreak > 0 && s.Streak < e.RequiredStreak {
		return false
	}
	return true
}

// Catalog is the full set of unlockable items, loaded once at process
// start.
type Catalog struct {
	entries []Entry
	byKey   map[model.UnlockKey]Entry
}

// NewCatalog builds and validates a catalog.
func NewCatalog(entries []Entry) (*Catalog, error) {
	byKey := make(map[model.UnlockKey]Entry, len(entries))
	for _, e := range entries {
		switch e.Category {
		case model.CategoryTheme, model.CategoryCompanion, model.CategoryTitle:
		default:
			return nil, fmt.Errorf("%w: entry %q has unknown category %q", ErrCatalogInconsistent, e.Key, e.Category)
		}
		if e.Key == "" || e.Name == "" {
			return nil, fmt.Errorf("%w: entry with empty key or name", ErrCatalogInconsistent)
		}
		if e.RequiredLevel <= 0 && e.RequiredSessions <= 0 && e.RequiredStreak <= 0 {
			return nil, fmt.Errorf("%w: entry %q has no unlock requirement", ErrCatalogInconsistent, e.Key)
		}
		if e.RequiredLevel < 0 || e.RequiredSessions < 0 || e.RequiredStreak < 0 {
			return nil, fmt.Errorf("%w: entry %q has a negative requirement", ErrCatalogInconsistent, e.Key)
		}
		if _, dup := byKey[e.UnlockKey]; dup {
			return nil, fmt.Errorf("%w: duplicate entry %s/%s", ErrCatalogInconsistent, e.Category, e.Key)
		}
		byKey[e.UnlockKey] = e
	}
	return &Catalog{entries: append([]Entry(nil), entries...), byKey: byKey}, nil
}

// Entries returns every catalog entry.
func (c *Catalog) Entries() []Entry {
	return append([]Entry(nil), c.entries...)
}

// Get looks up one entry.
func (c *Catalog) Get(key model.UnlockKey) (Entry, bool) {
	e, ok := c.byKey[key]
	return e, ok
}

// ByCategory returns the entries of one category in catalog order.
func (c *Catalog) ByCategory(cat model.UnlockCategory) []Entry {
	var out []Entry
	for _, e := range c.entries {
		if e.Category == cat {
			out = append(out, e)
		}
	}
	return out
}

// NextUpcoming returns the lowest level-gated entry still above the
// current level, for "next unlock at level N" teasers.
func (c *Catalog) NextUpcoming(level int) (Entry, bool) {
	teasers := c.Teasers(level, 1)
	if len(teasers) == 0 {
		return Entry{}, false
	}
	return teasers[0], true
}

// Teasers returns the next n upcoming level-gated entries.
func (c *Catalog) Teasers(level, n int) []Entry {
	var candidates []Entry
	for _, e := range c.entries {
		if e.RequiredLevel > level {
			candidates = append(candidates, e)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].RequiredLevel < candidates[j].RequiredLevel
	})
	if len(candidates) > n {
		candidates = candidates[:n]
	}
	return candidates
}

func theme(key, name, description string, level int) Entry {
	return Entry{
		UnlockKey:     model.UnlockKey{Category: model.CategoryTheme, Key: key},
		Name:          name,
		Description:   description,
		RequiredLevel: level,
	}
}

func companion(key, name, description string, level int) Entry {
	return Entry{
		UnlockKey:     model.UnlockKey{Category: model.CategoryCompanion, Key: key},
		Name:          name,
		Description:   description,
		RequiredLevel: level,
	}
}

// Default returns the built-in catalog.
func Default() (*Catalog, error) {
	return NewCatalog([]Entry{
		theme("midnight", "Midnight", "The classic look.", 1),
		theme("ocean", "Ocean", "Deep navy with teal accents.", 3),
		theme("forest", "Forest", "Dark green with gold accents.", 5),
		theme("sunset", "Sunset", "Warm tones with pink and coral.", 8),
		theme("neon", "Neon", "True black with neon cyan and magenta.", 12),
		theme("aurora", "Aurora", "Northern-lights gradient.", 16),
		theme("minimal", "Minimal", "Clean monochrome.", 20),
		theme("synthwave", "Synthwave", "Retro purple and pink.", 25),
		theme("galaxy", "Galaxy", "Deep space with star particles.", 30),

		companion("sprout", "Sprout", "A small plant that grows as you focus.", 1),
		companion("ember", "Ember", "A little flame that dances while you work.", 5),
		companion("ripple", "Ripple", "A water droplet with expanding rings.", 10),
		companion("pixel", "Pixel", "A retro pixel robot.", 15),
		companion("nova", "Nova", "A pulsing star.", 20),
		companion("zen", "Zen", "A lotus that opens a petal per round.", 25),

		{
			UnlockKey:        model.UnlockKey{Category: model.CategoryTitle, Key: "first_steps"},
			Name:             "First Steps",
			Description:      "Completed your first session.",
			RequiredSessions: 1,
		},
		{
			UnlockKey:        model.UnlockKey{Category: model.CategoryTitle, Key: "on_a_roll"},
			Name:             "On a Roll",
			Description:      "10 sessions done!",
			RequiredSessions: 10,
		},
		{
			UnlockKey:        model.UnlockKey{Category: model.CategoryTitle, Key: "centurion"},
			Name:             "Centurion",
			Description:      "100 sessions.",
			RequiredSessions: 100,
		},
		{
			UnlockKey:      model.UnlockKey{Category: model.CategoryTitle, Key: "week_warrior"},
			Name:           "Week Warrior",
			Description:    "7-day streak achieved.",
			RequiredStreak: 7,
		},
	})
}
