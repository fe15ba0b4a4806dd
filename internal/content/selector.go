// Package content decides which newsletter edition the public page serves and
// manages the edition files on disk.
//
// A newly published edition is held back for a fixed delay after it was sent
// to subscribers, so the page keeps showing the previous edition until then.
package content

import "time"

// DefaultDelay is how long a sent edition stays off the public page.
const DefaultDelay = 48 * time.Hour

// Slot labels the physical edition a request should see.
type Slot string

const (
	SlotCurrent  Slot = "current"
	SlotUpcoming Slot = "upcoming"
)

// Select returns SlotUpcoming once now has reached lastSent+delay and
// SlotCurrent before that. A zero lastSent means no edition was ever
// recorded and is treated as the Unix epoch.
func Select(now, lastSent time.Time, delay time.Duration) Slot {
	if lastSent.IsZero() {
		lastSent = time.Unix(0, 0)
	}
	if now.Before(lastSent.Add(delay)) {
		return SlotCurrent
	}
	return SlotUpcoming
}
