package unlock

import "pomoquest/internal/model"

// NewUnlocks returns the catalog entries whose predicates the snapshot
// satisfies and that are not already unlocked. The snapshot must be
// the post-update state, so a single session can cross several
// thresholds and unlock multiple items at once. Pure and idempotent:
// a second call with an unchanged snapshot and the grown unlocked set
// returns nothing.
func NewUnlocks(snapshot model.Snapshot, catalog *Catalog, already map[model.UnlockKey]bool) []Entry {
	var out []Entry
	for _, e := range catalog.Entries() {
		if already[e.UnlockKey] {
			continue
		}
		if e.Satisfied(snapshot) {
			out = append(out, e)
		}
	}
	return out
}
