// Package track assigns stable short-lived identifiers to detections
// across independent detection calls, based on centroid proximity and
// recency. Identities expire softly: once unseen for longer than the
// liveness window they disappear from every read view and can never
// match again, even if the record is still physically present.
package track

import (
	"fmt"
	"image"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/rhaslani/Birdieo-v2/detect"
)

// Identity is a stable label for one tracked subject.
type Identity struct {
	ID             string
	Label          string
	Box            detect.Box
	Center         image.Point
	Confidence     float64
	FirstSeen      time.Time
	LastSeen       time.Time
	DetectionCount int
}

// Duration reports how long the identity has been continuously seen.
func (id Identity) Duration() time.Duration {
	return id.LastSeen.Sub(id.FirstSeen)
}

// Tracker is the registry of tracked identities. A single mutex
// serializes match-or-create against listing; no lock is ever held
// across oracle calls or image work.
type Tracker struct {
	mu         sync.Mutex
	identities map[string]*Identity
	nextSeq    int

	liveness time.Duration
	radius   float64
}

func NewTracker(liveness time.Duration, radius float64) *Tracker {
	return &Tracker{
		identities: make(map[string]*Identity),
		liveness:   liveness,
		radius:     radius,
	}
}

// Resolve matches each detection, in input order, against the closest
// live identity. Within the match radius the identity is updated in
// place; otherwise a new one is allocated. Detections in the same call
// are matched independently, so two detections closest to the same
// identity may both resolve to it. Matching is per detection, not a
// one-to-one assignment.
//
// Resolve never fails; malformed boxes must have been rejected by
// detect.Sanitize before reaching it.
func (t *Tracker) Resolve(dets []detect.Detection, now time.Time) []Identity {
	out := make([]Identity, 0, len(dets))
	for _, d := range dets {
		out = append(out, t.resolveOne(d, now))
	}
	return out
}

func (t *Tracker) resolveOne(d detect.Detection, now time.Time) Identity {
	center := d.Box.Center()

	t.mu.Lock()
	defer t.mu.Unlock()

	t.reapLocked(now)

	var best *Identity
	bestDist := math.MaxFloat64
	for _, id := range t.identities {
		if now.Sub(id.LastSeen) >= t.liveness {
			continue
		}
		dist := distance(id.Center, center)
		if dist < bestDist {
			best = id
			bestDist = dist
		}
	}

	if best != nil && bestDist < t.radius {
		best.Box = d.Box
		best.Center = center
		best.Confidence = d.Confidence
		best.LastSeen = now
		best.DetectionCount++
		return *best
	}

	t.nextSeq++
	id := &Identity{
		ID:             fmt.Sprintf("P%03d", t.nextSeq),
		Label:          d.Label,
		Box:            d.Box,
		Center:         center,
		Confidence:     d.Confidence,
		FirstSeen:      now,
		LastSeen:       now,
		DetectionCount: 1,
	}
	t.identities[id.ID] = id
	return *id
}

// Active returns every identity still inside the liveness window,
// ordered by identifier.
func (t *Tracker) Active(now time.Time) []Identity {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Identity, 0, len(t.identities))
	for _, id := range t.identities {
		if now.Sub(id.LastSeen) < t.liveness {
			out = append(out, *id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// TotalTracked reports how many identities have ever been allocated.
func (t *Tracker) TotalTracked() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.nextSeq
}

// reapLocked drops records long past the liveness window. Soft expiry
// already hides them from matching and listing; this just bounds the
// registry size.
func (t *Tracker) reapLocked(now time.Time) {
	for key, id := range t.identities {
		if now.Sub(id.LastSeen) >= 2*t.liveness {
			delete(t.identities, key)
		}
	}
}

func distance(a, b image.Point) float64 {
	dx := float64(a.X - b.X)
	dy := float64(a.Y - b.Y)
	return math.Sqrt(dx*dx + dy*dy)
}
