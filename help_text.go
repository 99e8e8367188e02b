// Copyright 2023 The STMPS Authors
// SPDX-License-Identifier: GPL-3.0-only

package main

type keyHelp struct {
	keys   string
	action string
}

var playbackKeys = []keyHelp{
	{"p SPC", "play/pause"},
	{"P", "stop"},
	{"> n", "next track"},
	{"< b", "previous track"},
	{"- =", "volume -/+5%"},
	{", .", "seek -/+10s"},
	{"l", "cycle loop: None, Track, Playlist"},
	{"s", "toggle shuffle"},
}

var pageKeys = map[string][]keyHelp{
	PagePlayer: {
		{"1", "this page: track, settings, events"},
		{"2", "log page"},
	},
	PageLog: {
		{"1", "player page"},
		{"2", "this page: errors in red, debug in gray"},
	},
}

var commonKeys = []keyHelp{
	{"?", "this help"},
	{"ESC", "close help"},
	{"Q", "quit"},
}
