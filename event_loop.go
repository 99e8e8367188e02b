// Copyright 2023 The STMPS Authors
// SPDX-License-Identifier: GPL-3.0-only

package main

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/spezifisch/mprisctl/mpris"
)

// how often the interpolated position is redrawn
const positionRefresh = 250 * time.Millisecond

// engineUpdate is one event with the state right after it.
type engineUpdate struct {
	event mpris.Event
	state mpris.PlayerState
}

type eventLoop struct {
	// events from the engine worker
	updates chan engineUpdate

	mu    sync.Mutex
	state mpris.PlayerState
	quit  bool
}

func (ui *Ui) initEventLoops(initial mpris.PlayerState) {
	ui.eventLoop = &eventLoop{
		updates: make(chan engineUpdate, 16),
		state:   initial,
	}
}

func (el *eventLoop) snapshot() mpris.PlayerState {
	el.mu.Lock()
	defer el.mu.Unlock()
	return el.state.Clone()
}

func (el *eventLoop) hasQuit() bool {
	el.mu.Lock()
	defer el.mu.Unlock()
	return el.quit
}

func (el *eventLoop) apply(u engineUpdate) {
	el.mu.Lock()
	defer el.mu.Unlock()
	el.state = u.state
	if _, ok := u.event.(mpris.PlayerQuit); ok {
		el.quit = true
	}
}

// runEventLoops starts the engine worker and the gui loop. The returned
// function waits for both after ctx is done.
func (ui *Ui) runEventLoops(ctx context.Context) (wait func()) {
	var engineDone sync.WaitGroup
	engineDone.Add(1)
	go func() {
		defer engineDone.Done()
		ui.engineEventLoop(ctx)
	}()

	// the gui loop keeps draining log lines until the engine is done
	guiStop := make(chan struct{})
	guiDone := make(chan struct{})
	go func() {
		defer close(guiDone)
		ui.guiEventLoop(guiStop)
	}()

	return func() {
		engineDone.Wait()
		close(guiStop)
		<-guiDone
	}
}

// engineEventLoop is the only goroutine touching the engine.
func (ui *Ui) engineEventLoop(ctx context.Context) {
	defer func() {
		if err := ui.engine.Close(); err != nil {
			ui.logger.PrintError("engine close", err)
		}
	}()

	for {
		ev, err := ui.engine.Next(ctx)
		if errors.Is(err, mpris.ErrClosed) {
			ui.logger.Print("event stream ended")
			return
		}
		if err != nil {
			return
		}

		select {
		case ui.eventLoop.updates <- engineUpdate{event: ev, state: ui.engine.State()}:
		case <-ctx.Done():
			return
		}
	}
}

// handle ui updates
func (ui *Ui) guiEventLoop(stop <-chan struct{}) {
	ticker := time.NewTicker(positionRefresh)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return

		case <-ticker.C:
			state := ui.eventLoop.snapshot()
			if state.Status != mpris.Playing {
				continue
			}
			ui.app.QueueUpdateDraw(func() {
				ui.renderPosition(state)
			})

		case msg := <-ui.logger.Prints:
			// handle log page output
			ui.logPage.Print(msg)

		case u := <-ui.eventLoop.updates:
			ui.eventLoop.apply(u)
			line := u.event.String()
			ui.app.QueueUpdateDraw(func() {
				ui.render(u.state)
				ui.playerPage.AddEvent(line)
			})
		}
	}
}
