// Copyright 2023 The STMPS Authors
// SPDX-License-Identifier: GPL-3.0-only

package mpris

import (
	"fmt"
	"time"

	"github.com/samber/mo"
)

type PlaybackStatus int

const (
	Stopped PlaybackStatus = iota
	Playing
	Paused
)

func (s PlaybackStatus) String() string {
	switch s {
	case Playing:
		return "Playing"
	case Paused:
		return "Paused"
	default:
		return "Stopped"
	}
}

func ParsePlaybackStatus(s string) (PlaybackStatus, error) {
	switch s {
	case "Playing":
		return Playing, nil
	case "Paused":
		return Paused, nil
	case "Stopped":
		return Stopped, nil
	}
	return Stopped, fmt.Errorf("invalid playback status %q", s)
}

type LoopStatus int

const (
	LoopNone LoopStatus = iota
	LoopTrack
	LoopPlaylist
)

func (l LoopStatus) String() string {
	switch l {
	case LoopTrack:
		return "Track"
	case LoopPlaylist:
		return "Playlist"
	default:
		return "None"
	}
}

func ParseLoopStatus(s string) (LoopStatus, error) {
	switch s {
	case "None":
		return LoopNone, nil
	case "Track":
		return LoopTrack, nil
	case "Playlist":
		return LoopPlaylist, nil
	}
	return LoopNone, fmt.Errorf("invalid loop status %q", s)
}

// Player interface property names.
const (
	PropPlaybackStatus = "PlaybackStatus"
	PropLoopStatus     = "LoopStatus"
	PropShuffle        = "Shuffle"
	PropVolume         = "Volume"
	PropRate           = "Rate"
	PropMetadata       = "Metadata"
	PropPosition       = "Position"
)

// pulledProperties are read on every full pull, in this order.
var pulledProperties = []string{
	PropPlaybackStatus,
	PropPosition,
	PropRate,
	PropMetadata,
	PropVolume,
	PropLoopStatus,
	PropShuffle,
}

// PlayerState is the reconciled view of one player.
type PlayerState struct {
	Status      PlaybackStatus
	Anchor      PositionAnchor
	Metadata    Metadata
	Volume      float64
	LoopStatus  LoopStatus
	Shuffle     bool
	TrackLength mo.Option[time.Duration]
}

// NewPlayerState returns the defaults assumed for properties a player does
// not implement: stopped, rate 1, full volume.
func NewPlayerState(now time.Time) PlayerState {
	return PlayerState{
		Status:   Stopped,
		Anchor:   PositionAnchor{Rate: 1, CapturedAt: now},
		Metadata: Metadata{Rest: map[string]Value{}},
		Volume:   1,
	}
}

// Position estimates the playback position at the given time.
func (s *PlayerState) Position(at time.Time) time.Duration {
	return PositionAt(s.Anchor, s.Status, s.TrackLength, at)
}

// Clone returns a deep copy.
func (s PlayerState) Clone() PlayerState {
	s.Metadata = s.Metadata.Clone()
	return s
}

// apply folds one property into the state. Anchor upkeep happens here: a
// status or rate change rebases at the estimated position, a new track
// starts from zero and an explicit Position replaces the anchor. Problems
// with the value are returned; the field is then left unchanged.
func (s *PlayerState) apply(name string, v Value, at time.Time) []error {
	switch name {
	case PropPlaybackStatus:
		str, ok := v.AsString()
		if !ok {
			return []error{&FieldTypeError{Field: name, Got: v.Kind()}}
		}
		status, err := ParsePlaybackStatus(str)
		if err != nil {
			return []error{&FieldRangeError{Field: name, Value: str}}
		}
		if status != s.Status {
			s.Anchor = s.Anchor.rebase(s.Status, s.TrackLength, at, s.Anchor.Rate)
			s.Status = status
		}

	case PropLoopStatus:
		str, ok := v.AsString()
		if !ok {
			return []error{&FieldTypeError{Field: name, Got: v.Kind()}}
		}
		loop, err := ParseLoopStatus(str)
		if err != nil {
			return []error{&FieldRangeError{Field: name, Value: str}}
		}
		s.LoopStatus = loop

	case PropShuffle:
		b, ok := v.AsBool()
		if !ok {
			return []error{&FieldTypeError{Field: name, Got: v.Kind()}}
		}
		s.Shuffle = b

	case PropVolume:
		f, ok := v.AsFloat64()
		if !ok {
			return []error{&FieldTypeError{Field: name, Got: v.Kind()}}
		}
		s.Volume = f

	case PropRate:
		f, ok := v.AsFloat64()
		if !ok {
			return []error{&FieldTypeError{Field: name, Got: v.Kind()}}
		}
		s.Anchor = s.Anchor.rebase(s.Status, s.TrackLength, at, f)

	case PropPosition:
		us, ok := v.AsInt64()
		if !ok {
			return []error{&FieldTypeError{Field: name, Got: v.Kind()}}
		}
		s.Anchor = s.Anchor.reset(microseconds(us), s.Anchor.Rate, at)

	case PropMetadata:
		payload, ok := v.AsMap()
		if !ok {
			return []error{&FieldTypeError{Field: name, Got: v.Kind()}}
		}
		md, diags := TranslateMetadata(payload)
		if !md.SameTrack(s.Metadata) {
			s.Anchor = s.Anchor.reset(0, s.Anchor.Rate, at)
		} else {
			// keep the estimate continuous across a length change
			s.Anchor = s.Anchor.rebase(s.Status, s.TrackLength, at, s.Anchor.Rate)
		}
		s.Metadata = md
		s.TrackLength = md.Length
		return diags
	}
	return nil
}

// seek replaces the anchor position, keeping the rate.
func (s *PlayerState) seek(pos time.Duration, at time.Time) {
	s.Anchor = s.Anchor.reset(pos, s.Anchor.Rate, at)
}
