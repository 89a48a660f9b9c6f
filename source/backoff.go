package source

import "time"

// Backoff produces the reconnect delay sequence base, 2*base, 4*base, ...
// capped at Cap. Reset returns the sequence to base after a successful
// cycle.
type Backoff struct {
	Base time.Duration
	Cap  time.Duration

	delay time.Duration
}

// Next returns the delay to sleep before the next attempt and advances
// the sequence.
func (b *Backoff) Next() time.Duration {
	if b.delay == 0 {
		b.delay = b.Base
	}
	d := b.delay
	b.delay *= 2
	if b.delay > b.Cap {
		b.delay = b.Cap
	}
	return d
}

// Reset returns the sequence to its base delay.
func (b *Backoff) Reset() {
	b.delay = 0
}
