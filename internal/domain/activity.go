package domain

import (
	"encoding/json"
	"fmt"
)

// Capacity is the maximum number of participants for an activity. The zero
// value is unlimited.
type Capacity struct {
	limit   int
	bounded bool
}

// Unlimited returns a capacity without an upper bound.
func Unlimited() Capacity {
	return Capacity{}
}

// Bounded returns a capacity of n participants. Negative values are clamped to zero.
func Bounded(n int) Capacity {
	if n < 0 {
		n = 0
	}
	return Capacity{limit: n, bounded: true}
}

// Limit returns the bound and whether one is set.
func (c Capacity) Limit() (int, bool) {
	return c.limit, c.bounded
}

// Admits reports whether an activity holding count participants can take one more.
func (c Capacity) Admits(count int) bool {
	return !c.bounded || count < c.limit
}

// MarshalJSON writes the bound as an integer, or null when unlimited.
func (c Capacity) MarshalJSON() ([]byte, error) {
	if !c.bounded {
		return []byte("null"), nil
	}
	return json.Marshal(c.limit)
}

// UnmarshalJSON accepts an integer or null. Anything else is treated as unlimited.
func (c *Capacity) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("capacity: %w", err)
	}
	n, ok := raw.(float64)
	if !ok || n != float64(int(n)) {
		*c = Unlimited()
		return nil
	}
	*c = Bounded(int(n))
	return nil
}

// Activity is an extracurricular offering and its roster.
type Activity struct {
	Description     string   `json:"description"`
	Schedule        string   `json:"schedule"`
	MaxParticipants Capacity `json:"max_participants"`
	Participants    []string `json:"participants"`
}

// Clone returns a copy that shares no participant storage with a.
func (a Activity) Clone() Activity {
	out := a
	out.Participants = make([]string, len(a.Participants))
	copy(out.Participants, a.Participants)
	return out
}

// IndexOf returns the position of the normalized email in the roster, or -1.
func (a Activity) IndexOf(email string) int {
	for i, p := range a.Participants {
		if canonical(p) == email {
			return i
		}
	}
	return -1
}
