package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/rhaslani/Birdieo-v2/frame"
)

func TestCacheBust(t *testing.T) {
	now := time.UnixMilli(1756663077563)

	assert.Equal(t,
		"https://example.com/cam.jpg?t=1756663077563",
		cacheBust("https://example.com/cam.jpg", now))

	assert.Equal(t,
		"https://example.com/readImage.asp?dummy=1&t=1756663077563",
		cacheBust("https://example.com/readImage.asp?dummy=1", now))
}

func testJPEG(t *testing.T) []byte {
	t.Helper()
	img := gocv.NewMatWithSize(60, 80, gocv.MatTypeCV8UC3)
	defer img.Close()
	jpg, err := frame.EncodeJPEG(img, 85)
	require.NoError(t, err)
	return jpg
}

func TestSnapshotSessionRead(t *testing.T) {
	jpg := testJPEG(t)

	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write(jpg)
	}))
	defer srv.Close()

	src := NewSnapshotSource(srv.URL, 2*time.Second)
	sess, err := src.Open(context.Background())
	require.NoError(t, err)
	defer sess.Close()

	img, err := sess.Read()
	require.NoError(t, err)
	defer img.Close()

	assert.Equal(t, 80, img.Cols())
	assert.Equal(t, 60, img.Rows())
	assert.Contains(t, gotQuery, "t=", "expected cache-busting query parameter")
}

func TestSnapshotSessionReadBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone fishing", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	src := NewSnapshotSource(srv.URL, 2*time.Second)
	sess, _ := src.Open(context.Background())
	defer sess.Close()

	_, err := sess.Read()
	assert.Error(t, err)
}

func TestSnapshotSessionReadGarbageBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("this is not a jpeg"))
	}))
	defer srv.Close()

	src := NewSnapshotSource(srv.URL, 2*time.Second)
	sess, _ := src.Open(context.Background())
	defer sess.Close()

	_, err := sess.Read()
	assert.Error(t, err)
}
