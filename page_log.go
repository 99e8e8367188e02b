// Copyright 2023 The STMPS Authors
// SPDX-License-Identifier: GPL-3.0-only

package main

import (
	"strings"

	"github.com/rivo/tview"
)

const logPageLines = 100

type LogPage struct {
	Root *tview.Flex

	logList *tview.List

	// external refs
	ui *Ui
}

func (ui *Ui) createLogPage() *LogPage {
	logPage := LogPage{
		ui: ui,
	}

	logPage.logList = tview.NewList().ShowSecondaryText(false)

	logPage.Root = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(logPage.logList, 0, 1, true)

	return &logPage
}

func (l *LogPage) Print(line string) {
	stamp := timeNow().Local().Format("(15:04:05) ")
	l.ui.app.QueueUpdateDraw(func() {
		l.logList.InsertItem(0, formatLogLine(stamp, line), "", 0, nil)

		// Make sure the log list doesn't grow infinitely
		for l.logList.GetItemCount() > logPageLines {
			l.logList.RemoveItem(-1)
		}
	})
}

func formatLogLine(stamp, line string) string {
	text := stamp + tview.Escape(line)
	switch {
	case strings.HasPrefix(line, "Error("):
		return "[red]" + text + "[-]"
	case strings.HasPrefix(line, "debug: "):
		return "[gray]" + text + "[-]"
	}
	return text
}
