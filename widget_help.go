// Copyright 2023 The STMPS Authors
// SPDX-License-Identifier: GPL-3.0-only

package main

import (
	"fmt"
	"strings"

	"github.com/rivo/tview"
)

type HelpWidget struct {
	Root *tview.Flex

	text *tview.TextView

	// visible reflects whether the modal is shown
	visible bool

	// external references
	ui *Ui
}

func (ui *Ui) createHelpWidget() *HelpWidget {
	h := &HelpWidget{ui: ui}

	h.text = tview.NewTextView().
		SetTextAlign(tview.AlignLeft).
		SetDynamicColors(true)

	h.Root = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(h.text, 0, 1, true)
	h.Root.Box.SetBorder(true)

	return h
}

// RenderHelp fills the modal for the given page.
func (h *HelpWidget) RenderHelp(page string) {
	h.Root.SetTitle(fmt.Sprintf(" Help: %s ", tview.Escape(h.ui.playerShortName())))
	h.text.SetText(formatHelp(page))
	h.text.ScrollToBeginning()
}

func formatHelp(page string) string {
	var b strings.Builder
	section := func(title string, keys []keyHelp) {
		fmt.Fprintf(&b, "[::b]%s[::-]\n", title)
		for _, k := range keys {
			fmt.Fprintf(&b, "  %-6s %s\n", tview.Escape(k.keys), tview.Escape(k.action))
		}
	}

	section("Playback", playbackKeys)
	if keys, ok := pageKeys[page]; ok {
		b.WriteString("\n")
		section("Pages", keys)
	}
	b.WriteString("\n")
	section("General", commonKeys)
	return b.String()
}
