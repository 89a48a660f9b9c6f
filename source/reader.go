package source

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/rhaslani/Birdieo-v2/frame"
)

const (
	// Reconnect delays after upstream failures.
	reconnectBase = time.Second
	reconnectCap  = 20 * time.Second
)

// Reader runs the acquisition loop: open the source, pull one frame per
// cycle, normalize it, publish it, and pace to the configured rate. Any
// failure (open, read or decode) tears the session down and re-enters
// the loop after an exponential backoff delay. The loop only exits when
// ctx is cancelled; it never returns an error.
type Reader struct {
	src      Source
	store    *frame.Store
	log      *zap.Logger
	maxWidth int
	interval time.Duration
	backoff  Backoff
}

func NewReader(src Source, store *frame.Store, log *zap.Logger, maxWidth int, interval time.Duration) *Reader {
	return &Reader{
		src:      src,
		store:    store,
		log:      log.Named("reader"),
		maxWidth: maxWidth,
		interval: interval,
		backoff:  Backoff{Base: reconnectBase, Cap: reconnectCap},
	}
}

// Run blocks until ctx is cancelled. The current session is closed on
// every exit path.
func (r *Reader) Run(ctx context.Context) {
	r.log.Info("reader starting", zap.String("source", r.src.String()))

	for ctx.Err() == nil {
		sess, err := r.src.Open(ctx)
		if err != nil {
			delay := r.backoff.Next()
			r.log.Warn("failed to open source",
				zap.Error(err),
				zap.Duration("retry_in", delay))
			if !sleep(ctx, delay) {
				break
			}
			continue
		}

		if err := r.stream(ctx, sess); err != nil {
			delay := r.backoff.Next()
			r.log.Warn("stream interrupted",
				zap.Error(err),
				zap.Duration("retry_in", delay))
			if !sleep(ctx, delay) {
				break
			}
		}
	}

	r.log.Info("reader stopped")
}

// stream pulls frames from an open session until an error or
// cancellation. The session is always closed before returning.
func (r *Reader) stream(ctx context.Context, sess Session) error {
	defer sess.Close()

	for ctx.Err() == nil {
		img, err := sess.Read()
		if err != nil {
			return err
		}

		img = frame.Downscale(img, r.maxWidth)
		r.store.Publish(img, time.Now())
		r.backoff.Reset()

		if !sleep(ctx, r.interval) {
			return nil
		}
	}
	return nil
}

// sleep waits for d or until ctx is done; it reports whether the full
// delay elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
