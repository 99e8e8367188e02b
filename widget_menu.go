// Copyright 2023 The STMPS Authors
// SPDX-License-Identifier: GPL-3.0-only

package main

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// MenuWidget is the bottom bar: page buttons on the left, the watched
// player and how the engine currently hears from it on the right.
type MenuWidget struct {
	Root *tview.Flex

	buttons     map[string]*tview.Button
	playerLabel *tview.TextView
	activePage  string

	// external references
	ui *Ui
}

var pageOrder = []string{PagePlayer, PageLog}

func (ui *Ui) createMenuWidget() *MenuWidget {
	m := &MenuWidget{
		buttons:    make(map[string]*tview.Button, len(pageOrder)),
		activePage: PagePlayer,
		ui:         ui,
	}

	style := tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorWhite)
	left := tview.NewFlex().SetDirection(tview.FlexColumn)
	for _, page := range pageOrder {
		button := tview.NewButton(page).
			SetStyle(style).
			SetActivatedStyle(style).
			SetSelectedFunc(func() { ui.ShowPage(page) })
		m.buttons[page] = button
		left.AddItem(button, 11, 0, false)
	}

	m.playerLabel = tview.NewTextView().
		SetTextAlign(tview.AlignRight).
		SetDynamicColors(true).
		SetScrollable(false)

	m.Root = tview.NewFlex().SetDirection(tview.FlexColumn).
		AddItem(left, 0, 1, false).
		AddItem(m.playerLabel, 0, 1, false)

	m.updateButtons()
	return m
}

func (m *MenuWidget) updateButtons() {
	for i, page := range pageOrder {
		label := fmt.Sprintf("%d: %s", i+1, page)
		if page == m.activePage {
			label = fmt.Sprintf("%d: [::b]%s[::-]", i+1, page)
		}
		m.buttons[page].SetLabel(label)
	}
}

// SetPlayer shows the player's short name and whether it is still on the
// bus.
func (m *MenuWidget) SetPlayer(name string, gone bool) {
	link := "[green]live[-]"
	if gone {
		link = "[red]gone[-]"
	}
	m.playerLabel.SetText(fmt.Sprintf("%s %s  [gray]?: help  Q: quit[-]", tview.Escape(name), link))
}

func (m *MenuWidget) SetActivePage(name string) {
	if _, ok := m.buttons[name]; !ok {
		return
	}
	m.activePage = name
	m.updateButtons()
}

func (m *MenuWidget) GetActivePage() string {
	return m.activePage
}
