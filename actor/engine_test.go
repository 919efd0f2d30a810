package actor

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lguibr/lpcactor/mailbox"
)

type echoActor struct {
	BaseActor
	suffix string
}

func (e *echoActor) ProcessRequest(payload any, k Continuation) {
	k(payload.(string)+e.suffix, nil)
}

type inlineFactory struct{}

func (inlineFactory) NewMailbox(async bool, cfg mailbox.Config) *mailbox.Mailbox {
	mb := mailbox.New(async, cfg)
	if async {
		go func() {
			for mb.Wait() {
				for {
					msg, ok := mb.PopInbound()
					if !ok {
						break
					}
					mb.DeliverOne(msg)
				}
			}
		}()
	}
	return mb
}

func TestEngine_SpawnAndSendSync(t *testing.T) {
	e := NewEngine(inlineFactory{})
	pid := e.Spawn(&echoActor{suffix: "!"}, false, mailbox.DefaultConfig())

	var got string
	var wg sync.WaitGroup
	wg.Add(1)
	err := e.Send(nil, pid, "hi", func(result any, err error) {
		defer wg.Done()
		require.NoError(t, err)
		got = result.(string)
	})
	require.NoError(t, err)
	wg.Wait()
	assert.Equal(t, "hi!", got)
}

func TestEngine_SpawnAndSendAsync(t *testing.T) {
	e := NewEngine(inlineFactory{})
	pid := e.Spawn(&echoActor{suffix: "?"}, true, mailbox.DefaultConfig())

	var got string
	var wg sync.WaitGroup
	wg.Add(1)
	err := e.Send(nil, pid, "ok", func(result any, err error) {
		defer wg.Done()
		require.NoError(t, err)
		got = result.(string)
	})
	require.NoError(t, err)

	select {
	case <-waitDone(&wg):
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for async response")
	}
	assert.Equal(t, "ok?", got)
	e.Stop(pid)
}

func TestEngine_SendToUnknownPIDErrors(t *testing.T) {
	e := NewEngine(inlineFactory{})
	err := e.Send(nil, &PID{}, "x", nil)
	assert.Error(t, err)
}

func TestEngine_ActorToActorSend(t *testing.T) {
	e := NewEngine(inlineFactory{})
	bPID := e.Spawn(&echoActor{suffix: "-b"}, true, mailbox.DefaultConfig())

	relay := &relayActor{target: bPID}
	aPID := e.Spawn(relay, false, mailbox.DefaultConfig())

	var got string
	var wg sync.WaitGroup
	wg.Add(1)
	err := e.Send(nil, aPID, "start", func(result any, err error) {
		defer wg.Done()
		require.NoError(t, err)
		got = result.(string)
	})
	require.NoError(t, err)

	select {
	case <-waitDone(&wg):
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for relayed response")
	}
	assert.Equal(t, "start-b", got)
}

type relayActor struct {
	BaseActor
	target *PID
}

func (r *relayActor) ProcessRequest(payload any, k Continuation) {
	r.Send(r.target, payload, func(result any, err error) {
		k(result, err)
	})
}

func waitDone(wg *sync.WaitGroup) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	return done
}
