package models

import (
	"fmt"
	"time"
)

// Version is an optimistic concurrency token. Aggregated adapters share the
// version of their owner.
type Version struct {
	Sequence int64
	User     string
	Time     time.Time
}

func NewVersion(sequence int64, user string, at time.Time) *Version {
	return &Version{Sequence: sequence, User: user, Time: at}
}

// Different reports whether v and other describe different revisions.
// A nil version on either side never conflicts.
func (v *Version) Different(other *Version) bool {
	if v == nil || other == nil {
		return false
	}
	return v.Sequence != other.Sequence
}

// Next returns the successor revision. A nil receiver starts at 1.
func (v *Version) Next(user string, at time.Time) *Version {
	if v == nil {
		return NewVersion(1, user, at)
	}
	return NewVersion(v.Sequence+1, user, at)
}

func (v *Version) String() string {
	if v == nil {
		return "-"
	}
	if v.User == "" {
		return fmt.Sprintf("#%d", v.Sequence)
	}
	return fmt.Sprintf("#%d by %s", v.Sequence, v.User)
}
