package transcript

import (
	"sync"
	"time"
)

// Fixed-width nanosecond layout: unlike RFC3339Nano it never trims
// trailing zeros, so lexicographic order on keys matches chronological
// order.
const keyLayout = "2006-01-02T15:04:05.000000000Z"

// FormatKey renders t as a UTC timestamp key.
func FormatKey(t time.Time) string {
	return t.UTC().Format(keyLayout)
}

// ParseKey parses a timestamp key back into a time.
func ParseKey(key string) (time.Time, error) {
	return time.Parse(keyLayout, key)
}

// KeyAllocator issues strictly increasing timestamp keys. Two distinct
// records must never share a key, so a wall-clock read that does not
// advance past the previous key is bumped by one nanosecond.
type KeyAllocator struct {
	mu   sync.Mutex
	last time.Time
	now  func() time.Time
}

func NewKeyAllocator() *KeyAllocator {
	return &KeyAllocator{now: time.Now}
}

// Next returns the next key.
func (a *KeyAllocator) Next() string {
	a.mu.Lock()
	defer a.mu.Unlock()

	t := a.now().UTC()
	if !t.After(a.last) {
		t = a.last.Add(time.Nanosecond)
	}
	a.last = t
	return FormatKey(t)
}
