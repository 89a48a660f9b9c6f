// Package source acquires frames from an unreliable upstream, either a
// live video stream decoded through OpenCV's FFmpeg backend or a
// still-image endpoint polled over HTTP, and publishes them into a
// frame.Store.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"gocv.io/x/gocv"

	"github.com/rhaslani/Birdieo-v2/frame"
)

// Session is one open connection to the upstream. Read blocks until the
// next frame is available and hands ownership of the Mat to the caller.
type Session interface {
	Read() (gocv.Mat, error)
	Close()
}

// Source opens upstream sessions. Implementations are safe to reopen
// after a failed or closed session.
type Source interface {
	Open(ctx context.Context) (Session, error)
	String() string
}

// StreamSource decodes frames from a live video URL (HLS playlist, RTSP,
// anything the FFmpeg backend accepts).
type StreamSource struct {
	URL string
}

func NewStreamSource(url string) *StreamSource {
	return &StreamSource{URL: url}
}

func (s *StreamSource) String() string { return s.URL }

func (s *StreamSource) Open(_ context.Context) (Session, error) {
	cap, err := gocv.VideoCaptureFile(s.URL)
	if err != nil {
		return nil, fmt.Errorf("source: open stream %s: %w", s.URL, err)
	}
	// Keep OpenCV's internal buffer minimal so reads track the live edge.
	cap.Set(gocv.VideoCaptureBufferSize, 1)
	return &streamSession{cap: cap}, nil
}

type streamSession struct {
	cap *gocv.VideoCapture
}

func (s *streamSession) Read() (gocv.Mat, error) {
	img := gocv.NewMat()
	if ok := s.cap.Read(&img); !ok {
		img.Close()
		return gocv.Mat{}, errors.New("source: stream read failed")
	}
	if !frame.Valid(img) {
		img.Close()
		return gocv.Mat{}, errors.New("source: stream produced an invalid frame")
	}
	return img, nil
}

func (s *streamSession) Close() {
	s.cap.Close()
}

// SnapshotSource polls a still-image endpoint. Every fetch is
// cache-busted so intermediaries cannot serve a stale image.
type SnapshotSource struct {
	URL    string
	Client *http.Client
}

func NewSnapshotSource(url string, timeout time.Duration) *SnapshotSource {
	return &SnapshotSource{
		URL:    url,
		Client: &http.Client{Timeout: timeout},
	}
}

func (s *SnapshotSource) String() string { return s.URL }

// Open performs no handshake; each Read is an independent fetch.
func (s *SnapshotSource) Open(ctx context.Context) (Session, error) {
	return &snapshotSession{src: s, ctx: ctx}, nil
}

type snapshotSession struct {
	src *SnapshotSource
	ctx context.Context
}

func (s *snapshotSession) Read() (gocv.Mat, error) {
	url := cacheBust(s.src.URL, time.Now())

	req, err := http.NewRequestWithContext(s.ctx, http.MethodGet, url, nil)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("source: build snapshot request: %w", err)
	}

	resp, err := s.src.Client.Do(req)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("source: fetch snapshot: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return gocv.Mat{}, fmt.Errorf("source: snapshot endpoint returned %s", resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("source: read snapshot body: %w", err)
	}

	return frame.Decode(data)
}

func (s *snapshotSession) Close() {}

// cacheBust appends a millisecond timestamp query parameter.
func cacheBust(url string, now time.Time) string {
	sep := "?"
	if strings.Contains(url, "?") {
		sep = "&"
	}
	return url + sep + "t=" + strconv.FormatInt(now.UnixMilli(), 10)
}
