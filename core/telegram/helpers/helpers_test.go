package helpers

import (
	"context"
	"errors"
	"testing"

	"github.com/m3rciful/adaptermap/core/logger"
	"github.com/m3rciful/adaptermap/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

type fakeContext struct {
	tele.Context
	msg   *tele.Message
	store map[string]interface{}
	sent  []interface{}
	err   error
}

func newFakeContext() *fakeContext {
	user := &tele.User{ID: 5}
	return &fakeContext{
		msg:   &tele.Message{Sender: user, Chat: &tele.Chat{ID: 6}},
		store: map[string]interface{}{},
	}
}

func (f *fakeContext) Update() tele.Update           { return tele.Update{ID: 4, Message: f.msg} }
func (f *fakeContext) Sender() *tele.User            { return f.msg.Sender }
func (f *fakeContext) Chat() *tele.Chat              { return f.msg.Chat }
func (f *fakeContext) Get(key string) interface{}    { return f.store[key] }
func (f *fakeContext) Set(key string, v interface{}) { f.store[key] = v }
func (f *fakeContext) Send(what interface{}, opts ...interface{}) error {
	f.sent = append(f.sent, what)
	return f.err
}

type recordingAPI struct {
	to tele.Recipient
}

func (r *recordingAPI) Send(to tele.Recipient, _ interface{}, _ ...interface{}) (*tele.Message, error) {
	r.to = to
	return &tele.Message{}, nil
}

func TestBuildContextCarriesUpdateMeta(t *testing.T) {
	c := newFakeContext()
	c.Set(RIDKey, "rid-fixed")

	ctx := BuildContext(c)
	if logger.RIDFrom(ctx) != "rid-fixed" {
		t.Fatalf("rid = %q", logger.RIDFrom(ctx))
	}
	if logger.UpdateIDFrom(ctx) != 4 || logger.UserIDFrom(ctx) != 5 || logger.ChatIDFrom(ctx) != 6 {
		t.Fatalf("meta = %d/%d/%d", logger.UpdateIDFrom(ctx), logger.UserIDFrom(ctx), logger.ChatIDFrom(ctx))
	}
	if again := BuildContext(c); again != ctx {
		t.Fatal("BuildContext did not reuse the stored context")
	}

	h := WithHandler(c, "start")
	if logger.HandlerFrom(h) != "start" {
		t.Fatalf("handler = %q", logger.HandlerFrom(h))
	}
	if stored, _ := ContextFrom(c); stored != h {
		t.Fatal("WithHandler did not store the enriched context")
	}
}

func TestSendMDV2RunsInlineWithoutDispatcher(t *testing.T) {
	SetDispatcher(nil)
	c := newFakeContext()
	if err := SendMDV2(c, "hi"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(c.sent) != 1 || c.sent[0] != "hi" {
		t.Fatalf("sent = %v", c.sent)
	}

	c.err = errors.New("chat not found")
	if err := SendMDV2(c, "again"); err == nil {
		t.Fatal("inline send error was swallowed")
	}
}

func TestSendMDV2ToAddressesChat(t *testing.T) {
	SetDispatcher(nil)
	api := &recordingAPI{}
	if err := SendMDV2To(context.Background(), api, 77, "bye"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if api.to != tele.ChatID(77) {
		t.Fatalf("recipient = %v", api.to)
	}
}

func TestMDV2Options(t *testing.T) {
	if o := mdV2Options(nil); o.ParseMode != tele.ModeMarkdownV2 || o.ReplyMarkup != nil {
		t.Fatalf("options = %+v", o)
	}
	rm := &tele.ReplyMarkup{RemoveKeyboard: true}
	if o := mdV2Options([]*tele.ReplyMarkup{rm}); o.ReplyMarkup != rm {
		t.Fatal("markup dropped")
	}
}

func TestSendMDV2DropsWhenQueueRefuses(t *testing.T) {
	d := sender.NewDispatcher(sender.Options{Workers: 1, QueueSize: 1})
	SetDispatcher(d)
	defer SetDispatcher(nil)

	block := make(chan struct{})
	started := make(chan struct{})
	_ = d.Enqueue(context.Background(), "block", "", func() error {
		close(started)
		<-block
		return nil
	})
	<-started
	_ = d.Enqueue(context.Background(), "fill", "", func() error { return nil })

	c := newFakeContext()
	if err := SendMDV2(c, "late"); !errors.Is(err, sender.ErrQueueFull) {
		t.Fatalf("err = %v, want ErrQueueFull", err)
	}
	close(block)
	d.Close()
	if len(c.sent) != 0 {
		t.Fatalf("refused message was sent inline: %v", c.sent)
	}
}
