// Copyright 2023 The STMPS Authors
// SPDX-License-Identifier: GPL-3.0-only

package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/spezifisch/mprisctl/mpris"
)

var timeNow = time.Now // A variable to allow fixing the clock in tests

func durationToMinAndSec(d time.Duration) (int, int) {
	seconds := int(d / time.Second)
	return seconds / 60, seconds % 60
}

func formatDuration(d time.Duration) string {
	m, s := durationToMinAndSec(d)
	return fmt.Sprintf("%02d:%02d", m, s)
}

// formatStatus renders a player state for the status command.
func formatStatus(name string, state mpris.PlayerState, position time.Duration) string {
	var b strings.Builder
	md := state.Metadata

	line := func(key, value string) {
		fmt.Fprintf(&b, "%-10s %s\n", key+":", value)
	}

	line("player", name)
	line("status", state.Status.String())
	if length, ok := state.TrackLength.Get(); ok {
		line("position", formatDuration(position)+" / "+formatDuration(length))
	} else {
		line("position", formatDuration(position))
	}
	line("title", md.Title.OrEmpty())
	line("artist", strings.Join(md.Artists.OrEmpty(), ", "))
	line("album", md.Album.OrEmpty())
	line("track", string(md.TrackID.OrEmpty()))
	line("volume", fmt.Sprintf("%.0f%%", state.Volume*100))
	line("rate", fmt.Sprintf("%.2f", state.Anchor.Rate))
	line("loop", state.LoopStatus.String())
	line("shuffle", fmt.Sprintf("%t", state.Shuffle))

	keys := lo.Keys(md.Rest)
	sort.Strings(keys)
	for _, k := range keys {
		line(k, md.Rest[k].String())
	}
	return b.String()
}
