package mailboxfactory

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/lguibr/lpcactor/mailbox"
)

func TestFactory_AsyncMailboxDeliversOnWorker(t *testing.T) {
	f := New()
	mb := f.NewMailbox(true, mailbox.DefaultConfig())

	var wg sync.WaitGroup
	wg.Add(1)
	var got mailbox.Message
	mb.SetDeliver(func(msg mailbox.Message) {
		got = msg
		wg.Done()
	})

	mb.DeliverInbound("hello")

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for worker delivery")
	}
	assert.Equal(t, "hello", got)
	mb.Close()
}

func TestFactory_SyncMailboxHasNoWorker(t *testing.T) {
	f := New()
	mb := f.NewMailbox(false, mailbox.DefaultConfig())
	assert.False(t, mb.IsAsync())

	var delivered bool
	mb.SetDeliver(func(mailbox.Message) { delivered = true })
	mb.DeliverInbound("queued")

	time.Sleep(10 * time.Millisecond)
	assert.False(t, delivered, "a sync mailbox must not drain itself without a worker")
}

func TestFactory_WorkerRecoversPanicInDeliver(t *testing.T) {
	f := New()
	mb := f.NewMailbox(true, mailbox.DefaultConfig())

	var wg sync.WaitGroup
	wg.Add(1)
	mb.SetDeliver(func(msg mailbox.Message) {
		defer wg.Done()
		panic("boom")
	})

	assert.NotPanics(t, func() {
		mb.DeliverInbound("x")
		wg.Wait()
	})
	mb.Close()
}
