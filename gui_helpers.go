// Copyright 2023 The STMPS Authors
// SPDX-License-Identifier: GPL-3.0-only

package main

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rivo/tview"
	"github.com/spezifisch/mprisctl/mpris"
)

func makeModal(p tview.Primitive, width, height int) tview.Primitive {
	return tview.NewGrid().
		SetColumns(0, width, 0).
		SetRows(0, height, 0).
		AddItem(p, 1, 1, 1, 1, 0, 0, true)
}

func formatPlayerStatus(volume float64, rate float64, position time.Duration, length time.Duration) string {
	if position < 0 {
		position = 0
	}

	if length < 0 {
		length = 0
	}

	positionMin, positionSec := durationToMinAndSec(position)
	lengthMin, lengthSec := durationToMinAndSec(length)

	st := ""
	if rate != 1 {
		st = fmt.Sprintf("[green](x%.2g)[-]", rate)
	}

	return fmt.Sprintf("%s[%d%%][::b][%02d:%02d/%02d:%02d]", st, int(math.Round(volume*100)), positionMin, positionSec, lengthMin, lengthSec)
}

func formatTrackForStatusBar(md mpris.Metadata) (text string) {
	if title := md.Title.OrEmpty(); title != "" {
		text += "[::-] [white]" + tview.Escape(title)
	}
	if artists := md.Artists.OrEmpty(); len(artists) > 0 {
		text += " [gray]by [white]" + tview.Escape(strings.Join(artists, ", "))
	}
	return
}
