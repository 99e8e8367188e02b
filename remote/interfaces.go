// Copyright 2023 The STMPS Authors
// SPDX-License-Identifier: GPL-3.0-only

package remote

import "time"

// ControlledPlayer is the player logic behind an exported MprisPlayer.
type ControlledPlayer interface {
	Play() error
	Pause() error
	PlayPause() error
	Stop() error
	Next() error
	Previous() error

	// Seek moves by offset; seeking past the end skips to the next track.
	Seek(offset time.Duration) error

	// SetPosition is ignored unless trackID is the current track.
	SetPosition(trackID string, pos time.Duration) error

	// Setters for writable properties. They do not trigger OnChange, the
	// caller publishes the new value itself.
	SetVolume(volume float64) error
	SetRate(rate float64) error
	SetLoopStatus(loop string) error
	SetShuffle(shuffle bool) error

	GetStatus() PlayerStatus

	// Registers a callback which is invoked with the names of the Player
	// properties that changed.
	OnChange(cb func(props []string))

	// Registers a callback which is invoked whenever the position jumps.
	OnSeek(cb func(pos time.Duration))
}

// PlayerStatus is a snapshot of a ControlledPlayer.
type PlayerStatus struct {
	PlaybackStatus string
	LoopStatus     string
	Shuffle        bool
	Volume         float64
	Rate           float64
	Position       time.Duration
	Track          TrackInterface
}

type TrackInterface interface {
	GetID() string
	GetArtist() string
	GetTitle() string
	GetAlbum() string
	GetDuration() time.Duration

	// something like ID != ""
	IsValid() bool
}
