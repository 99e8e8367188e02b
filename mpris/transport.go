// Copyright 2023 The STMPS Authors
// SPDX-License-Identifier: GPL-3.0-only

package mpris

import "context"

// Bus names, paths and interfaces of the media player protocol.
const (
	BusNamePrefix = "org.mpris.MediaPlayer2."
	ObjectPath    = "/org/mpris/MediaPlayer2"

	IfaceRoot       = "org.mpris.MediaPlayer2"
	IfacePlayer     = "org.mpris.MediaPlayer2.Player"
	IfaceTrackList  = "org.mpris.MediaPlayer2.TrackList"
	IfaceProperties = "org.freedesktop.DBus.Properties"

	SignalPropertiesChanged = IfaceProperties + ".PropertiesChanged"
	SignalSeeked            = IfacePlayer + ".Seeked"
	SignalNameOwnerChanged  = "org.freedesktop.DBus.NameOwnerChanged"
)

// Signal is a raw notification as delivered by a subscription. Name is the
// fully qualified member, e.g. org.mpris.MediaPlayer2.Player.Seeked.
type Signal struct {
	Sender string
	Path   string
	Name   string
	Body   []interface{}
}

// Transport is the bus connection to a single player. Implementations
// report a vanished player with an error wrapping ErrPeerGone and missing
// properties or methods with one wrapping ErrUnsupported.
type Transport interface {
	Call(ctx context.Context, iface, method string, args ...interface{}) error
	GetProperty(ctx context.Context, iface, name string) (interface{}, error)
	SetProperty(ctx context.Context, iface, name string, value interface{}) error

	// Subscribe starts delivering the player's signals. Closing the
	// subscription releases everything it holds.
	Subscribe(ctx context.Context) (Subscription, error)
}

type Subscription interface {
	// Signals is closed when the subscription ends.
	Signals() <-chan *Signal
	Close() error
}
