// Copyright 2023 The STMPS Authors
// SPDX-License-Identifier: GPL-3.0-only

package remote

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/godbus/dbus/v5"
	"github.com/samber/lo"
	"github.com/spezifisch/mprisctl/mpris"
)

const (
	SessionBus = "session"
	SystemBus  = "system"
)

// Connect opens a private connection to the session or system bus.
func Connect(bus string) (*dbus.Conn, error) {
	switch bus {
	case "", SessionBus:
		return dbus.ConnectSessionBus()
	case SystemBus:
		return dbus.ConnectSystemBus()
	}
	return nil, fmt.Errorf("unknown bus %q", bus)
}

// ListPlayers returns the bus names of all media players, sorted.
func ListPlayers(ctx context.Context, conn *dbus.Conn) ([]string, error) {
	var names []string
	err := conn.BusObject().CallWithContext(ctx, busIface+".ListNames", 0).Store(&names)
	if err != nil {
		return nil, classify(err)
	}
	return filterPlayers(names), nil
}

func filterPlayers(names []string) []string {
	players := lo.Filter(names, func(name string, _ int) bool {
		return strings.HasPrefix(name, mpris.BusNamePrefix) && len(name) > len(mpris.BusNamePrefix)
	})
	sort.Strings(players)
	return players
}

// ResolvePlayer picks one of the players on the bus. An empty want selects
// the first player. Otherwise want is matched as a full bus name, as the
// name after the prefix, or as its first component, so "vlc" finds
// org.mpris.MediaPlayer2.vlc.instance42.
func ResolvePlayer(ctx context.Context, conn *dbus.Conn, want string) (string, error) {
	players, err := ListPlayers(ctx, conn)
	if err != nil {
		return "", err
	}
	return pickPlayer(players, want)
}

func pickPlayer(players []string, want string) (string, error) {
	if len(players) == 0 {
		return "", ErrNoPlayer
	}
	if want == "" {
		return players[0], nil
	}

	want = strings.TrimPrefix(want, mpris.BusNamePrefix)
	if name, ok := lo.Find(players, func(p string) bool {
		return ShortName(p) == want
	}); ok {
		return name, nil
	}
	if name, ok := lo.Find(players, func(p string) bool {
		return strings.HasPrefix(ShortName(p), want+".")
	}); ok {
		return name, nil
	}
	return "", fmt.Errorf("%w matching %q", ErrNoPlayer, want)
}

// ShortName strips the common bus name prefix.
func ShortName(busName string) string {
	return strings.TrimPrefix(busName, mpris.BusNamePrefix)
}
