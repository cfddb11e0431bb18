package intake

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/adaptermap/core/telegram/state"
	"github.com/m3rciful/adaptermap/internal/records"
)

type sent struct {
	chatID int64
	reply  Reply
}

type fakeTransport struct {
	mu   sync.Mutex
	sent []sent
	err  error
}

func (f *fakeTransport) Send(_ context.Context, chatID int64, r Reply) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sent{chatID: chatID, reply: r})
	return f.err
}

func (f *fakeTransport) last(t *testing.T) Reply {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.sent)
	return f.sent[len(f.sent)-1].reply
}

func (f *fakeTransport) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type fakeSink struct {
	mu       sync.Mutex
	inserted []records.Record
	err      error
	deadline bool
}

func (f *fakeSink) Insert(ctx context.Context, rec records.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, f.deadline = ctx.Deadline()
	f.inserted = append(f.inserted, rec)
	return f.err
}

type countingObserver struct {
	opened int
	closed map[string]int
	stored []error
}

func (o *countingObserver) SessionOpened() { o.opened++ }
func (o *countingObserver) SessionClosed(reason string) {
	if o.closed == nil {
		o.closed = map[string]int{}
	}
	o.closed[reason]++
}
func (o *countingObserver) RecordStored(err error) { o.stored = append(o.stored, err) }

var base = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestEngine(sink *fakeSink, tr *fakeTransport, obs Observer) *Engine {
	e := NewEngine(NewStore(), sink, tr, Config{}, obs)
	e.Now = func() time.Time { return base }
	return e
}

func TestScenarioUserWithHandle(t *testing.T) {
	sink, tr, obs := &fakeSink{}, &fakeTransport{}, &countingObserver{}
	e := newTestEngine(sink, tr, obs)
	ctx := context.Background()
	user := Event{UserID: 100, ChatID: 100, Username: "alice", FirstName: "Alice"}

	start := user
	start.Text = "/start"
	e.HandleEvent(ctx, start)
	assert.Contains(t, tr.last(t).Text, "please send me the location")
	sess, ok := e.Store().Get(100)
	require.True(t, ok)
	assert.Equal(t, AwaitingLocation{}, sess.Data)

	share := user
	share.Location = &records.Location{Latitude: 51.5, Longitude: -0.09}
	e.HandleEvent(ctx, share)
	assert.Equal(t, []string{AnswerYes, AnswerNo}, tr.last(t).Buttons)

	no := user
	no.Text = AnswerNo
	assert.Equal(t, EffectFinalize, e.HandleEvent(ctx, no))

	_, ok = e.Store().Get(100)
	assert.False(t, ok, "session must be removed after finalize")
	require.Len(t, sink.inserted, 1)
	assert.Equal(t, records.Record{UserID: 100, Username: "alice", Location: records.Location{Latitude: 51.5, Longitude: -0.09}}, sink.inserted[0])
	assert.True(t, sink.deadline, "sink call must carry a timeout")
	assert.Contains(t, tr.last(t).Text, "We are done here")
	assert.Equal(t, 1, obs.opened)
	assert.Equal(t, 1, obs.closed[CloseFinalized])
	assert.Equal(t, []error{nil}, obs.stored)
}

func TestScenarioUserWithoutHandle(t *testing.T) {
	sink, tr := &fakeSink{}, &fakeTransport{}
	e := newTestEngine(sink, tr, nil)

	e.HandleEvent(context.Background(), Event{UserID: 7, ChatID: 7, FirstName: "Bob", Text: "/start"})

	assert.Contains(t, tr.last(t).Text, "set a username")
	assert.Equal(t, 0, e.Store().Len())
	assert.Empty(t, sink.inserted)
}

func TestUnknownUserGetsHelp(t *testing.T) {
	tr := &fakeTransport{}
	e := newTestEngine(&fakeSink{}, tr, nil)
	e.HandleEvent(context.Background(), Event{UserID: 7, ChatID: 7, Username: "x", Text: "hi"})
	assert.Contains(t, tr.last(t).Text, "send me the command /start")
	assert.Equal(t, 0, e.Store().Len())
}

func TestYesThenNoteStoresTruncatedNote(t *testing.T) {
	sink, tr := &fakeSink{}, &fakeTransport{}
	e := newTestEngine(sink, tr, nil)
	e.Store().GetOrInsert(1, 1, AwaitingNoteChoice{Location: london}, base)

	ctx := context.Background()
	e.HandleEvent(ctx, Event{UserID: 1, ChatID: 1, Username: "u", Text: AnswerYes})
	sess, ok := e.Store().Get(1)
	require.True(t, ok)
	assert.Equal(t, AwaitingNoteText{Location: london}, sess.Data)
	assert.Empty(t, sink.inserted)

	note := make([]rune, 260)
	for i := range note {
		note[i] = 'é'
	}
	e.HandleEvent(ctx, Event{UserID: 1, ChatID: 1, Username: "u", Text: string(note)})
	require.Len(t, sink.inserted, 1)
	require.NotNil(t, sink.inserted[0].Note)
	assert.Equal(t, string(note[:records.MaxNoteLength]), *sink.inserted[0].Note)
	assert.Equal(t, 0, e.Store().Len())
}

func TestAdvanceRefreshesActivity(t *testing.T) {
	e := newTestEngine(&fakeSink{}, &fakeTransport{}, nil)
	e.Store().GetOrInsert(1, 1, AwaitingLocation{}, base.Add(-time.Hour))
	e.HandleEvent(context.Background(), Event{UserID: 1, ChatID: 1, Username: "u", Location: &london})
	sess, ok := e.Store().Get(1)
	require.True(t, ok)
	assert.Equal(t, base, sess.LastActive)
}

func TestSinkFailureStillRemovesSession(t *testing.T) {
	boom := errors.New("db down")
	sink, tr, obs := &fakeSink{err: boom}, &fakeTransport{}, &countingObserver{}
	e := newTestEngine(sink, tr, obs)
	e.Store().GetOrInsert(1, 1, AwaitingNoteChoice{Location: london}, base)

	e.HandleEvent(context.Background(), Event{UserID: 1, ChatID: 1, Username: "u", Text: AnswerNo})

	assert.Contains(t, tr.last(t).Text, "that didn't work")
	assert.Equal(t, 0, e.Store().Len())
	assert.Equal(t, []error{boom}, obs.stored)
}

func TestHandleRemovedAbortsWithoutSink(t *testing.T) {
	sink, tr, obs := &fakeSink{}, &fakeTransport{}, &countingObserver{}
	e := newTestEngine(sink, tr, obs)
	e.Store().GetOrInsert(1, 1, AwaitingNoteText{Location: london}, base)

	e.HandleEvent(context.Background(), Event{UserID: 1, ChatID: 1, Text: "my note"})

	assert.Empty(t, sink.inserted)
	assert.Contains(t, tr.last(t).Text, "removed your username")
	assert.Equal(t, 0, e.Store().Len())
	assert.Equal(t, 1, obs.closed[CloseAborted])
}

func TestTransportFailureDoesNotRollBack(t *testing.T) {
	tr := &fakeTransport{err: errors.New("blocked by user")}
	e := newTestEngine(&fakeSink{}, tr, nil)
	e.HandleEvent(context.Background(), Event{UserID: 1, ChatID: 1, Username: "u", Text: "/start"})
	assert.Equal(t, 1, e.Store().Len())
	assert.Equal(t, 1, tr.count())
}

func TestClaimedSessionIgnoresEvents(t *testing.T) {
	sink, tr := &fakeSink{}, &fakeTransport{}
	e := newTestEngine(sink, tr, nil)
	e.Store().GetOrInsert(1, 1, AwaitingNoteChoice{Location: london}, base)
	e.Store().Claim(1)

	eff := e.HandleEvent(context.Background(), Event{UserID: 1, ChatID: 1, Username: "u", Text: AnswerNo})
	assert.Equal(t, EffectNone, eff)
	assert.Empty(t, sink.inserted)
	assert.Equal(t, 0, tr.count())
}

func TestReaperNotifiesThroughEngine(t *testing.T) {
	tr, obs := &fakeTransport{}, &countingObserver{}
	e := newTestEngine(&fakeSink{}, tr, obs)
	e.Store().GetOrInsert(1, 55, AwaitingLocation{}, base)
	e.Store().GetOrInsert(2, 66, AwaitingLocation{}, base.Add(4*time.Hour))

	r := state.NewReaper(e.Store(), state.DefaultReaperConfig(), e.NotifyReaped)
	res := r.Sweep(context.Background(), base.Add(4*time.Hour+time.Minute))

	assert.Equal(t, 1, res.Reaped)
	require.Equal(t, 1, tr.count())
	assert.Equal(t, int64(55), tr.sent[0].chatID)
	assert.Contains(t, tr.sent[0].reply.Text, "you took too long")
	assert.Equal(t, 1, obs.closed[CloseReaped])
	assert.Equal(t, 1, e.Store().Len())
}

// Finalize and reap race on every session; each must end exactly once.
func TestFinalizeReapRace(t *testing.T) {
	const n = 200
	sink, tr, obs := &fakeSink{}, &fakeTransport{}, &lockedObserver{}
	e := newTestEngine(sink, tr, obs)
	for i := int64(1); i <= n; i++ {
		e.Store().GetOrInsert(i, i, AwaitingNoteChoice{Location: london}, base)
	}
	r := state.NewReaper(e.Store(), state.DefaultReaperConfig(), e.NotifyReaped)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := int64(1); i <= n; i++ {
			e.HandleEvent(context.Background(), Event{UserID: i, ChatID: i, Username: "u", Text: AnswerNo})
		}
	}()
	go func() {
		defer wg.Done()
		r.Sweep(context.Background(), base.Add(5*time.Hour))
	}()
	wg.Wait()

	assert.Equal(t, 0, e.Store().Len())
	assert.Equal(t, n, obs.total())
	closing := 0
	for _, m := range tr.sent {
		if strings.Contains(m.reply.Text, "We are done") || strings.Contains(m.reply.Text, "you took too long") {
			closing++
		}
	}
	assert.Equal(t, n, closing, "every session gets exactly one closing message")
}

type lockedObserver struct {
	mu     sync.Mutex
	closed int
}

func (o *lockedObserver) SessionOpened() {}
func (o *lockedObserver) SessionClosed(string) {
	o.mu.Lock()
	o.closed++
	o.mu.Unlock()
}
func (o *lockedObserver) RecordStored(error) {}
func (o *lockedObserver) total() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.closed
}
