package sender

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/m3rciful/adaptermap/core/logger"
	"github.com/m3rciful/adaptermap/core/telegram/netutil"

	tele "gopkg.in/telebot.v4"
)


var (
	// ErrQueueClosed is returned when enqueue is attempted after dispatcher stop.
	ErrQueueClosed = errors.New("telegram sender: queue closed")
	// ErrQueueFull indicates the queue is saturated and the job was not accepted.
	ErrQueueFull = errors.New("telegram sender: queue full")
)

// Options controls the behaviour of the outbound dispatcher.
type Options struct {
	QueueSize    int
	Workers      int
	MaxRetries   int
	RetryBackoff time.Duration
	// MaxDuration bounds the time spent retrying a single job.
	MaxDuration time.Duration
	// EnqueueWait is how long Enqueue blocks on a full chat queue before
	// giving up with ErrQueueFull. Zero fails at once.
	EnqueueWait time.Duration
	// OnResult, when set, is called once per finished job with the error
	// class from ClassifyError ("" on success).
	OnResult func(action, errClass string)
}

type job struct {
	ctx      context.Context
	action   string
	endpoint string
	run      func() error
}

// Dispatcher executes outbound Telegram calls asynchronously with retries.
// Jobs for one chat always land on the same worker, so a chat sees its
// messages in the order they were enqueued.
type Dispatcher struct {
	opts   Options
	queues []chan job

	mu     sync.RWMutex
	closed bool
	once   sync.Once
	wg     sync.WaitGroup
	errs   atomic.Uint64
}

// NewDispatcher starts a dispatcher with sane defaults if options are zeroed.
func NewDispatcher(opts Options) *Dispatcher {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 2 * time.Second
	}
	if opts.MaxDuration <= 0 {
		opts.MaxDuration = 12 * time.Second
	}
	if opts.EnqueueWait < 0 {
		opts.EnqueueWait = 0
	}

	d := &Dispatcher{
		opts:   opts,
		queues: make([]chan job, opts.Workers),
	}
	perWorker := opts.QueueSize / opts.Workers
	if perWorker < 1 {
		perWorker = 1
	}

	d.wg.Add(opts.Workers)
	for i := range d.queues {
		d.queues[i] = make(chan job, perWorker)
		go d.worker(d.queues[i])
	}

	return d
}

// Enqueue schedules the provided function for asynchronous execution on the
// worker owning the chat found in ctx. A full queue is waited on for at most
// Options.EnqueueWait.
// The run closure must be idempotent if retries are desired.
func (d *Dispatcher) Enqueue(ctx context.Context, action, endpoint string, run func() error) error {
	if run == nil {
		return errors.New("telegram sender: nil run function")
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrQueueClosed
	}

	j := job{
		ctx:      ctx,
		action:   action,
		endpoint: endpoint,
		run:      run,
	}

	q := d.queues[d.shard(ctx)]
	select {
	case q <- j:
		return nil
	default:
	}
	if d.opts.EnqueueWait == 0 {
		return ErrQueueFull
	}

	// Blocked senders are served in arrival order, so a chat's jobs stay FIFO.
	var done <-chan struct{}
	if ctx != nil {
		done = ctx.Done()
	}
	timer := time.NewTimer(d.opts.EnqueueWait)
	defer timer.Stop()
	select {
	case q <- j:
		return nil
	case <-timer.C:
		return ErrQueueFull
	case <-done:
		return ctx.Err()
	}
}

func (d *Dispatcher) shard(ctx context.Context) int {
	if ctx == nil || len(d.queues) == 1 {
		return 0
	}
	chatID := logger.ChatIDFrom(ctx)
	return int(uint64(chatID) % uint64(len(d.queues)))
}

// ErrorCount returns the number of failed jobs.
func (d *Dispatcher) ErrorCount() uint64 {
	return d.errs.Load()
}

// Pending returns the number of queued jobs not yet picked up by a worker.
func (d *Dispatcher) Pending() int {
	n := 0
	for _, q := range d.queues {
		n += len(q)
	}
	return n
}

// Close stops accepting jobs and waits for workers to drain the queues.
func (d *Dispatcher) Close() {
	d.once.Do(func() {
		d.mu.Lock()
		d.closed = true
		for _, q := range d.queues {
			close(q)
		}
		d.mu.Unlock()
		d.wg.Wait()
	})
}

func (d *Dispatcher) worker(jobs <-chan job) {
	defer d.wg.Done()
	for j := range jobs {
		d.handleJob(j)
	}
}

// retryDelay returns how long to wait before the next attempt, or false when
// err is not worth retrying. Telegram flood errors carry their own delay.
func (d *Dispatcher) retryDelay(err error, attempt int) (time.Duration, bool) {
	var floodErr tele.FloodError
	if errors.As(err, &floodErr) {
		return time.Duration(floodErr.RetryAfter) * time.Second, true
	}
	if !netutil.ShouldRetry(err) {
		return 0, false
	}
	return d.opts.RetryBackoff * time.Duration(attempt), true
}

func (d *Dispatcher) handleJob(j job) {
	ctx := j.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()
	logger.Sender.Debug(ctx, "send.start", j.attrs()...)

	attempts, err := d.attempt(ctx, j)
	elapsed := slog.Int64("elapsed_ms", logger.Took(start).Milliseconds())

	if err == nil {
		level := slog.LevelDebug
		attrs := append(j.attrs(), elapsed)
		if attempts > 1 {
			level = slog.LevelInfo
			attrs = append(attrs, slog.Int("attempt", attempts))
		}
		logger.Sender.LogAttrs(ctx, level, "send.success", attrs...)
		d.report(j.action, "")
		return
	}

	d.errs.Add(1)
	class := ClassifyError(err)
	logger.Sender.Error(ctx, "send.fail", append(j.attrs(),
		slog.String("err", sanitizeErrorMessage(err)),
		slog.String("err_code", class),
		slog.Int("attempts", attempts),
		elapsed,
	)...)
	d.report(j.action, class)
}

// attempt runs the job until it succeeds, hits a permanent error or runs out
// of retries or time. It returns the number of calls made and the last error.
func (d *Dispatcher) attempt(ctx context.Context, j job) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, d.opts.MaxDuration)
	defer cancel()

	limit := d.opts.MaxRetries + 1
	var lastErr error
	for n := 1; n <= limit; n++ {
		if err := ctx.Err(); err != nil {
			if lastErr == nil {
				lastErr = err
			}
			return n - 1, lastErr
		}
		lastErr = j.run()
		if lastErr == nil {
			return n, nil
		}
		delay, retry := d.retryDelay(lastErr, n)
		if !retry || n == limit {
			return n, lastErr
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return n, lastErr
		case <-timer.C:
		}
		logger.Sender.Debug(ctx, "send.retry.backoff", append(j.attrs(),
			slog.Int("attempt", n),
			slog.Duration("delay", delay),
		)...)
	}
	return limit, lastErr
}

func (d *Dispatcher) report(action, class string) {
	if d.opts.OnResult != nil {
		d.opts.OnResult(action, class)
	}
}

// attrs are the job fields; rid and chat come from the context.
func (j job) attrs() []slog.Attr {
	attrs := []slog.Attr{slog.String("action", j.action)}
	if j.endpoint != "" {
		attrs = append(attrs, slog.String("endpoint", j.endpoint))
	}
	return attrs
}
