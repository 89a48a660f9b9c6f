package frame

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func testMat(t *testing.T, rows, cols int) gocv.Mat {
	t.Helper()
	return gocv.NewMatWithSize(rows, cols, gocv.MatTypeCV8UC3)
}

func TestStoreEmpty(t *testing.T) {
	s := NewStore()
	defer s.Close()

	_, _, ok := s.Snapshot()
	assert.False(t, ok)

	_, ok = s.Age(time.Now())
	assert.False(t, ok)
}

func TestStorePublishAndSnapshot(t *testing.T) {
	s := NewStore()
	defer s.Close()

	ts := time.Now()
	s.Publish(testMat(t, 480, 640), ts)

	img, got, ok := s.Snapshot()
	require.True(t, ok)
	defer img.Close()

	assert.Equal(t, ts, got)
	assert.Equal(t, 640, img.Cols())
	assert.Equal(t, 480, img.Rows())
}

func TestStoreSnapshotNeverOlderThanLastPublish(t *testing.T) {
	s := NewStore()
	defer s.Close()

	t0 := time.Now()
	s.Publish(testMat(t, 10, 10), t0)
	t1 := t0.Add(100 * time.Millisecond)
	s.Publish(testMat(t, 10, 10), t1)

	img, ts, ok := s.Snapshot()
	require.True(t, ok)
	defer img.Close()

	assert.False(t, ts.Before(t1), "snapshot returned a frame older than the last completed publish")
}

func TestStoreSnapshotIsIndependentCopy(t *testing.T) {
	s := NewStore()
	defer s.Close()

	s.Publish(testMat(t, 10, 10), time.Now())

	img, _, ok := s.Snapshot()
	require.True(t, ok)

	// Overwriting the slot must not invalidate the snapshot.
	s.Publish(testMat(t, 20, 20), time.Now())

	assert.Equal(t, 10, img.Cols())
	assert.Equal(t, 10, img.Rows())
	img.Close()
}

func TestStoreAge(t *testing.T) {
	s := NewStore()
	defer s.Close()

	ts := time.Now()
	s.Publish(testMat(t, 4, 4), ts)

	age, ok := s.Age(ts.Add(2 * time.Second))
	require.True(t, ok)
	assert.Equal(t, 2*time.Second, age)
}
