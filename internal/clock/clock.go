// Package clock centralizes the pinned timestamp used for
// deterministic archive output, so no component reaches for
// time.Now() when building reproducible artifacts.
package clock

import "time"

// Pinned wraps the fixed instant a recipe's archives are stamped
// with. It is set once per build (typically from the recipe's own
// declared timestamp or a build-system-supplied SOURCE_DATE_EPOCH)
// and threaded explicitly through every component that writes a
// timestamp into an artifact.
type Pinned struct {
	at time.Time
}

// NewPinned returns a Pinned clock fixed at t, truncated to whole
// seconds (tar and ar headers have no sub-second resolution).
func NewPinned(t time.Time) Pinned {
	return Pinned{at: t.Truncate(time.Second)}
}

// Time returns the fixed instant.
func (p Pinned) Time() time.Time {
	return p.at
}

// Unix returns the fixed instant as Unix seconds.
func (p Pinned) Unix() int64 {
	return p.at.Unix()
}
