// Command lpcdemo wires a small actor graph together and drives a few
// requests through it, printing what comes back. It exists to give the
// dispatch engine a runnable entry point beyond its test suite.
package main

import (
	"fmt"
	"sync"
	"time"

	"github.com/lguibr/lpcactor/actor"
	"github.com/lguibr/lpcactor/examples"
	"github.com/lguibr/lpcactor/internal/obslog"
	"github.com/lguibr/lpcactor/mailbox"
	"github.com/lguibr/lpcactor/mailboxfactory"
)

func main() {
	obslog.Log.Info("lpcdemo: starting")

	engine := actor.NewEngine(mailboxfactory.New())

	mul := engine.Spawn(&examples.Multiplier{Factor: 2}, true, mailbox.DefaultConfig())
	greet := engine.Spawn(&examples.Greeter{Target: mul, Greeting: "lpcdemo"}, false, mailbox.DefaultConfig())

	var wg sync.WaitGroup
	wg.Add(1)
	err := engine.Send(nil, greet, 21, func(result any, err error) {
		defer wg.Done()
		if err != nil {
			fmt.Println("error:", err)
			return
		}
		fmt.Println("response:", result)
	})
	if err != nil {
		fmt.Println("send failed:", err)
		return
	}

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		fmt.Println("timed out waiting for response")
	}

	engine.Stop(mul)
	engine.Stop(greet)
}
