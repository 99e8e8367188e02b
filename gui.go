// Copyright 2023 The STMPS Authors
// SPDX-License-Identifier: GPL-3.0-only

package main

import (
	"context"
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/spezifisch/mprisctl/logger"
	"github.com/spezifisch/mprisctl/mpris"
	"github.com/spezifisch/mprisctl/remote"
)

// struct contains all the updatable elements of the Ui
type Ui struct {
	app   *tview.Application
	pages *tview.Pages

	// top bar
	startStopStatus *tview.TextView
	playerStatus    *tview.TextView

	// bottom bar
	menuWidget *MenuWidget

	// player page
	playerPage *PlayerPage

	// log page
	logPage *LogPage

	// modals
	helpModal  tview.Primitive
	helpWidget *HelpWidget

	eventLoop *eventLoop

	name   string
	engine *mpris.Engine
	player *mpris.Player
	logger *logger.Logger
}

const (
	// page identifiers (use these instead of hardcoding page names for showing/hiding)
	PagePlayer = "player"
	PageLog    = "log"

	PageHelpBox = "helpBox"
)

func InitGui(name string,
	engine *mpris.Engine,
	player *mpris.Player,
	logger *logger.Logger) (ui *Ui) {
	ui = &Ui{
		eventLoop: nil, // initialized by initEventLoops()

		name:   name,
		engine: engine,
		player: player,
		logger: logger,
	}

	ui.initEventLoops(engine.State())

	ui.app = tview.NewApplication()
	ui.pages = tview.NewPages()

	// status text at the top
	ui.startStopStatus = tview.NewTextView().
		SetTextAlign(tview.AlignLeft).
		SetDynamicColors(true).
		SetScrollable(false)
	ui.startStopStatus.SetMouseCapture(func(action tview.MouseAction, event *tcell.EventMouse) (tview.MouseAction, *tcell.EventMouse) {
		return action, nil
	})

	ui.playerStatus = tview.NewTextView().
		SetTextAlign(tview.AlignRight).
		SetDynamicColors(true).
		SetScrollable(false)

	ui.menuWidget = ui.createMenuWidget()
	ui.helpWidget = ui.createHelpWidget()

	// help box modal
	ui.helpModal = makeModal(ui.helpWidget.Root, 60, 20)
	ui.helpWidget.Root.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if ui.helpWidget.visible && (event.Key() == tcell.KeyEscape) {
			ui.CloseHelp()
		}
		return event
	})

	// top bar: status text
	topBarFlex := tview.NewFlex().SetDirection(tview.FlexColumn).
		AddItem(ui.startStopStatus, 0, 1, false).
		AddItem(ui.playerStatus, 28, 0, false)

	// player page
	ui.playerPage = ui.createPlayerPage()

	// log page
	ui.logPage = ui.createLogPage()

	ui.pages.AddPage(PagePlayer, ui.playerPage.Root, true, true).
		AddPage(PageLog, ui.logPage.Root, true, false).
		AddPage(PageHelpBox, ui.helpModal, true, false)

	rootFlex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(topBarFlex, 1, 0, false).
		AddItem(ui.pages, 0, 1, true).
		AddItem(ui.menuWidget.Root, 1, 0, false)

	// add main input handler
	rootFlex.SetInputCapture(ui.handlePageInput)

	ui.app.SetRoot(rootFlex, true).
		SetFocus(rootFlex).
		EnableMouse(true)

	ui.render(ui.eventLoop.snapshot())

	return ui
}

// Run shows the view until the user quits. The engine is closed when Run
// returns.
func (ui *Ui) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// run gui/background event handler
	wait := ui.runEventLoops(ctx)

	go func() {
		<-ctx.Done()
		ui.app.Stop()
	}()

	// gui main loop (blocking)
	err := ui.app.Run()

	cancel()
	wait()
	return err
}

func (ui *Ui) ShowHelp() {
	ui.helpWidget.RenderHelp(ui.menuWidget.GetActivePage())

	ui.pages.ShowPage(PageHelpBox)
	ui.pages.SendToFront(PageHelpBox)
	ui.app.SetFocus(ui.helpModal)
	ui.helpWidget.visible = true
}

func (ui *Ui) CloseHelp() {
	ui.helpWidget.visible = false
	ui.pages.HidePage(PageHelpBox)
}

// render updates everything derived from the player state. Must run on the
// tview goroutine.
func (ui *Ui) render(state mpris.PlayerState) {
	statusText := fmt.Sprintf("[::b]%s[::-] ", tview.Escape(ui.playerShortName()))
	switch {
	case ui.eventLoop.hasQuit():
		statusText += "[red::b]Gone[::-]"
	case state.Status == mpris.Playing:
		statusText += "[green::b]Playing[::-]"
	case state.Status == mpris.Paused:
		statusText += "[yellow::b]Paused[::-]"
	default:
		statusText += "[red::b]Stopped[::-]"
	}
	statusText += formatTrackForStatusBar(state.Metadata)

	ui.startStopStatus.SetText(statusText)
	ui.menuWidget.SetPlayer(ui.playerShortName(), ui.eventLoop.hasQuit())
	ui.renderPosition(state)
	ui.playerPage.Update(state)
}

func (ui *Ui) playerShortName() string {
	return remote.ShortName(ui.name)
}

func (ui *Ui) renderPosition(state mpris.PlayerState) {
	pos := mpris.PositionAt(state.Anchor, state.Status, state.TrackLength, timeNow())
	ui.playerStatus.SetText(formatPlayerStatus(state.Volume, state.Anchor.Rate, pos, state.TrackLength.OrEmpty()))
}

// pageLogger returns the channel logger drained by the log page.
func (a *app) pageLogger() *logger.Logger {
	log := logger.Init()
	log.Debug = a.cfg.LogLevel == "debug"
	return log
}

func (a *app) watchInteractive(ctx context.Context, tr *remote.Transport, log *logger.Logger) error {
	opts := append(a.engineOptions(tr.Name()), mpris.WithLogger(log))
	engine, err := mpris.NewEngine(ctx, tr, opts...)
	if err != nil {
		return err
	}

	ui := InitGui(tr.Name(), engine, mpris.NewPlayer(tr), log)
	return ui.Run(ctx)
}
