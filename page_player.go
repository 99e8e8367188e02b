// Copyright 2023 The STMPS Authors
// SPDX-License-Identifier: GPL-3.0-only

package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rivo/tview"
	"github.com/samber/lo"
	"github.com/spezifisch/mprisctl/mpris"
)

// number of events kept in the event list
const playerPageEvents = 50

type PlayerPage struct {
	Root *tview.Flex

	trackInfo *tview.TextView
	settings  *tview.TextView
	eventList *tview.List

	// external refs
	ui *Ui
}

func (ui *Ui) createPlayerPage() *PlayerPage {
	playerPage := PlayerPage{
		ui: ui,
	}

	playerPage.trackInfo = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true)
	playerPage.trackInfo.SetBorder(true).SetTitle(" Track ")

	playerPage.settings = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(false)
	playerPage.settings.SetBorder(true).SetTitle(" Player ")

	playerPage.eventList = tview.NewList().ShowSecondaryText(false)
	playerPage.eventList.SetBorder(true).SetTitle(" Events ")

	left := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(playerPage.trackInfo, 0, 3, false).
		AddItem(playerPage.settings, 7, 0, false)

	playerPage.Root = tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(left, 0, 3, false).
		AddItem(playerPage.eventList, 0, 2, true)

	return &playerPage
}

// Update redraws the track and settings boxes. Must run on the tview
// goroutine.
func (p *PlayerPage) Update(state mpris.PlayerState) {
	p.trackInfo.SetText(formatTrackInfo(state.Metadata))
	p.settings.SetText(formatSettings(state))
}

// AddEvent puts an engine event on top of the event list.
func (p *PlayerPage) AddEvent(line string) {
	stamp := timeNow().Local().Format("15:04:05 ")
	p.eventList.InsertItem(0, stamp+tview.Escape(line), "", 0, nil)
	for p.eventList.GetItemCount() > playerPageEvents {
		p.eventList.RemoveItem(-1)
	}
}

func formatTrackInfo(md mpris.Metadata) string {
	var b strings.Builder
	field := func(key, value string) {
		if value == "" {
			return
		}
		fmt.Fprintf(&b, "[::b]%s[::-] %s\n", key, tview.Escape(value))
	}

	if md.TrackID.IsAbsent() && md.Title.IsAbsent() {
		return "[gray]no track[-]"
	}

	field("Title ", md.Title.OrEmpty())
	field("Artist", strings.Join(md.Artists.OrEmpty(), ", "))
	field("Album ", md.Album.OrEmpty())
	if length, ok := md.Length.Get(); ok {
		field("Length", formatDuration(length))
	}
	field("Track ", string(md.TrackID.OrEmpty()))
	field("Art   ", md.ArtURL.OrEmpty())

	keys := lo.Keys(md.Rest)
	sort.Strings(keys)
	if len(keys) > 0 {
		b.WriteString("\n")
	}
	for _, k := range keys {
		fmt.Fprintf(&b, "[gray]%s[-] %s\n", tview.Escape(k), tview.Escape(md.Rest[k].String()))
	}
	return b.String()
}

func formatSettings(state mpris.PlayerState) string {
	shuffle := "off"
	if state.Shuffle {
		shuffle = "on"
	}
	return fmt.Sprintf("[::b]Volume [::-] %.0f%%\n[::b]Rate   [::-] %.2f\n[::b]Loop   [::-] %s\n[::b]Shuffle[::-] %s",
		state.Volume*100, state.Anchor.Rate, state.LoopStatus, shuffle)
}
