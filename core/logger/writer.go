package logger

import (
	"bufio"
	"errors"
	"io"
	"sync"
)

// writeOp is either a line to write or, when ack is set, a flush barrier.
type writeOp struct {
	line []byte
	ack  chan error
}

// asyncWriter moves log output off the caller's goroutine. Lines reach every
// sink in the order they were written. After Close, writes bypass the queue
// and go to the sinks directly.
type asyncWriter struct {
	ops  chan writeOp
	done chan struct{}

	gate   sync.RWMutex // guards closed and sends on ops
	closed bool
	once   sync.Once

	mu    sync.Mutex // guards sinks and err
	sinks []*bufio.Writer
	err   error
}

func newAsyncWriter(writers []io.Writer, bufSize int) *asyncWriter {
	if bufSize <= 0 {
		bufSize = 64 * 1024
	}
	w := &asyncWriter{
		ops:  make(chan writeOp, 256),
		done: make(chan struct{}),
	}
	for _, out := range writers {
		if out != nil {
			w.sinks = append(w.sinks, bufio.NewWriterSize(out, bufSize))
		}
	}
	go w.run()
	return w
}

func (w *asyncWriter) run() {
	defer close(w.done)
	for op := range w.ops {
		if op.ack != nil {
			op.ack <- w.sync()
			continue
		}
		w.record(w.emit(op.line))
	}
	w.record(w.sync())
}

// Write queues a copy of p. It blocks while the queue is full.
func (w *asyncWriter) Write(p []byte) error {
	if len(p) == 0 {
		return nil
	}
	if err := w.firstErr(); err != nil {
		return err
	}
	line := append([]byte(nil), p...)

	w.gate.RLock()
	defer w.gate.RUnlock()
	if w.closed {
		return w.emit(line)
	}
	w.ops <- writeOp{line: line}
	return nil
}

// Flush returns once every line queued before the call is on the sinks.
func (w *asyncWriter) Flush() error {
	if err := w.firstErr(); err != nil {
		return err
	}
	ack := make(chan error, 1)
	w.gate.RLock()
	if w.closed {
		w.gate.RUnlock()
		return w.sync()
	}
	w.ops <- writeOp{ack: ack}
	w.gate.RUnlock()
	return <-ack
}

// Close drains the queue and returns the first write error seen.
func (w *asyncWriter) Close() error {
	w.once.Do(func() {
		w.gate.Lock()
		w.closed = true
		close(w.ops)
		w.gate.Unlock()
	})
	<-w.done
	return w.firstErr()
}

func (w *asyncWriter) emit(line []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, s := range w.sinks {
		if _, err := s.Write(line); err != nil {
			return err
		}
		if err := s.Flush(); err != nil {
			return err
		}
	}
	return nil
}

func (w *asyncWriter) sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	var errs []error
	for _, s := range w.sinks {
		errs = append(errs, s.Flush())
	}
	return errors.Join(errs...)
}

func (w *asyncWriter) firstErr() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

func (w *asyncWriter) record(err error) {
	if err == nil {
		return
	}
	w.mu.Lock()
	if w.err == nil {
		w.err = err
	}
	w.mu.Unlock()
}
