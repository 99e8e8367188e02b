// Copyright 2023 The STMPS Authors
// SPDX-License-Identifier: GPL-3.0-only

package mpris

import (
	"fmt"
	"time"
)

// Event is a change in player state. The set of implementations is closed;
// consumers handle it with a type switch.
type Event interface {
	fmt.Stringer
	isEvent()
}

// PlaybackStatusChanged: the player started, paused or stopped.
type PlaybackStatusChanged struct {
	Status PlaybackStatus
}

type LoopStatusChanged struct {
	Status LoopStatus
}

type ShuffleChanged struct {
	Shuffle bool
}

type VolumeChanged struct {
	Volume float64
}

// RateChanged: playback speed changed. Rates are never negative.
type RateChanged struct {
	Rate float64
}

// TrackChanged carries the new metadata. It is sent for a new track and for
// updated metadata of the current one.
type TrackChanged struct {
	Metadata Metadata
}

// Seeked: the position jumped. The engine's anchor already reflects it when
// the event is delivered.
type Seeked struct {
	Position time.Duration
}

// PlayerQuit is the last event of a player that left the bus.
type PlayerQuit struct{}

// TrackListChanged: the player's track list was modified.
type TrackListChanged struct{}

// ErrorEvent reports a failed bus operation. The stream continues.
type ErrorEvent struct {
	Err error
}

func (PlaybackStatusChanged) isEvent() {}
func (LoopStatusChanged) isEvent()     {}
func (ShuffleChanged) isEvent()        {}
func (VolumeChanged) isEvent()         {}
func (RateChanged) isEvent()           {}
func (TrackChanged) isEvent()          {}
func (Seeked) isEvent()                {}
func (PlayerQuit) isEvent()            {}
func (TrackListChanged) isEvent()      {}
func (ErrorEvent) isEvent()            {}

func (e PlaybackStatusChanged) String() string { return "status " + e.Status.String() }
func (e LoopStatusChanged) String() string     { return "loop " + e.Status.String() }
func (e ShuffleChanged) String() string        { return fmt.Sprintf("shuffle %t", e.Shuffle) }
func (e VolumeChanged) String() string         { return fmt.Sprintf("volume %.2f", e.Volume) }
func (e RateChanged) String() string           { return fmt.Sprintf("rate %.2f", e.Rate) }
func (e TrackChanged) String() string          { return "track " + e.Metadata.String() }
func (e Seeked) String() string                { return "seeked " + e.Position.String() }
func (PlayerQuit) String() string              { return "quit" }
func (TrackListChanged) String() string        { return "tracklist" }
func (e ErrorEvent) String() string            { return "error " + e.Err.Error() }

// EventName is a short stable name for metrics and logs.
func EventName(e Event) string {
	switch e.(type) {
	case PlaybackStatusChanged:
		return "status"
	case LoopStatusChanged:
		return "loop"
	case ShuffleChanged:
		return "shuffle"
	case VolumeChanged:
		return "volume"
	case RateChanged:
		return "rate"
	case TrackChanged:
		return "track"
	case Seeked:
		return "seeked"
	case PlayerQuit:
		return "quit"
	case TrackListChanged:
		return "tracklist"
	case ErrorEvent:
		return "error"
	}
	return "unknown"
}

// String renders artist - title, falling back to the track id.
func (m Metadata) String() string {
	title := m.Title.OrEmpty()
	if artists := m.Artists.OrEmpty(); len(artists) > 0 {
		if title == "" {
			title = "?"
		}
		title = artists[0] + " - " + title
	}
	if title == "" {
		return string(m.TrackID.OrElse("<none>"))
	}
	return title
}
