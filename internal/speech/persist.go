package speech

import (
	"sync"

	"github.com/rs/zerolog"
)

// toggleWriter stores the spoken-output toggle off the frame loop. It holds
// at most one pending value; a newer value replaces one not yet written.
type toggleWriter struct {
	fn     func(bool) error
	logger zerolog.Logger

	mu      sync.Mutex
	closed  bool
	pending chan bool
	done    chan struct{}
	once    sync.Once
}

func newToggleWriter(fn func(bool) error, logger zerolog.Logger) *toggleWriter {
	w := &toggleWriter{
		fn:      fn,
		logger:  logger,
		pending: make(chan bool, 1),
		done:    make(chan struct{}),
	}
	go w.run()
	return w
}

func (w *toggleWriter) run() {
	defer close(w.done)
	for v := range w.pending {
		if err := w.fn(v); err != nil {
			w.logger.Warn().Err(err).Bool("enabled", v).Msg("Failed to persist speech toggle")
		}
	}
}

// put queues v without blocking. Values after close are dropped.
func (w *toggleWriter) put(v bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		w.logger.Debug().Bool("enabled", v).Msg("Toggle writer closed; value not persisted")
		return
	}
	select {
	case <-w.pending:
	default:
	}
	w.pending <- v
}

// close flushes the pending value and waits for the writer to exit.
func (w *toggleWriter) close() {
	w.once.Do(func() {
		w.mu.Lock()
		w.closed = true
		close(w.pending)
		w.mu.Unlock()
	})
	<-w.done
}
