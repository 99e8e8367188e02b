// Copyright 2023 The STMPS Authors
// SPDX-License-Identifier: GPL-3.0-only

package main

import (
	"context"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/spezifisch/mprisctl/mpris"
)

const (
	volumeStep = 0.05
	seekStep   = 10 * time.Second
)

func (ui *Ui) handlePageInput(event *tcell.EventKey) *tcell.EventKey {
	if ui.helpWidget.visible {
		return event
	}

	switch event.Rune() {
	case '1':
		ui.ShowPage(PagePlayer)

	case '2':
		ui.ShowPage(PageLog)

	case '?':
		ui.ShowHelp()

	case 'Q':
		ui.Quit()

	case 'p', ' ':
		// toggle playing/pause
		ui.command("PlayPause", (*mpris.Player).PlayPause)

	case 'P':
		// stop playing
		ui.command("Stop", (*mpris.Player).Stop)

	case '>', 'n':
		ui.command("Next", (*mpris.Player).Next)

	case '<', 'b':
		ui.command("Previous", (*mpris.Player).Previous)

	case '-':
		// volume-
		ui.adjustVolume(-volumeStep)

	case '+', '=':
		// volume+
		ui.adjustVolume(volumeStep)

	case '.':
		// >>
		ui.command("Seek+", func(p *mpris.Player, ctx context.Context) error {
			return p.Seek(ctx, seekStep)
		})

	case ',':
		// <<
		ui.command("Seek-", func(p *mpris.Player, ctx context.Context) error {
			return p.Seek(ctx, -seekStep)
		})

	case 'l':
		next := nextLoopStatus(ui.eventLoop.snapshot().LoopStatus)
		ui.command("SetLoopStatus", func(p *mpris.Player, ctx context.Context) error {
			return p.SetLoopStatus(ctx, next)
		})

	case 's':
		shuffle := !ui.eventLoop.snapshot().Shuffle
		ui.command("SetShuffle", func(p *mpris.Player, ctx context.Context) error {
			return p.SetShuffle(ctx, shuffle)
		})

	default:
		return event
	}

	return nil
}

// command runs fn off the gui goroutine. The result shows up as events from
// the engine; failures only go to the log page.
func (ui *Ui) command(source string, fn func(*mpris.Player, context.Context) error) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		if err := fn(ui.player, ctx); err != nil {
			ui.logger.PrintError("handlePageInput: "+source, err)
		}
	}()
}

func (ui *Ui) adjustVolume(delta float64) {
	volume := clampVolume(ui.eventLoop.snapshot().Volume + delta)
	ui.command("SetVolume", func(p *mpris.Player, ctx context.Context) error {
		return p.SetVolume(ctx, volume)
	})
}

func clampVolume(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

func nextLoopStatus(l mpris.LoopStatus) mpris.LoopStatus {
	switch l {
	case mpris.LoopNone:
		return mpris.LoopTrack
	case mpris.LoopTrack:
		return mpris.LoopPlaylist
	default:
		return mpris.LoopNone
	}
}

func (ui *Ui) ShowPage(name string) {
	ui.pages.SwitchToPage(name)
	ui.menuWidget.SetActivePage(name)
	_, prim := ui.pages.GetFrontPage()
	ui.app.SetFocus(prim)
}

func (ui *Ui) Quit() {
	ui.app.Stop()
}
