// Copyright 2023 The STMPS Authors
// SPDX-License-Identifier: GPL-3.0-only

package mpris

import (
	"context"
	"time"

	"github.com/godbus/dbus/v5"
)

// Player wraps a Transport with the typed commands and getters of the media
// player protocol. Every call is a single round trip; no state is kept.
type Player struct {
	transport Transport
}

func NewPlayer(transport Transport) *Player {
	return &Player{transport: transport}
}

func (p *Player) call(ctx context.Context, iface, method string, args ...interface{}) error {
	return wrapTransport(method, p.transport.Call(ctx, iface, method, args...))
}

func (p *Player) get(ctx context.Context, iface, name string) (Value, error) {
	raw, err := p.transport.GetProperty(ctx, iface, name)
	if err != nil {
		return Value{}, wrapTransport("get "+name, err)
	}
	return ValueOf(raw), nil
}

func (p *Player) set(ctx context.Context, name string, value interface{}) error {
	return wrapTransport("set "+name, p.transport.SetProperty(ctx, IfacePlayer, name, value))
}

func (p *Player) Play(ctx context.Context) error {
	return p.call(ctx, IfacePlayer, "Play")
}

func (p *Player) Pause(ctx context.Context) error {
	return p.call(ctx, IfacePlayer, "Pause")
}

func (p *Player) PlayPause(ctx context.Context) error {
	return p.call(ctx, IfacePlayer, "PlayPause")
}

func (p *Player) Stop(ctx context.Context) error {
	return p.call(ctx, IfacePlayer, "Stop")
}

func (p *Player) Next(ctx context.Context) error {
	return p.call(ctx, IfacePlayer, "Next")
}

func (p *Player) Previous(ctx context.Context) error {
	return p.call(ctx, IfacePlayer, "Previous")
}

// Seek moves the position by offset, which may be negative.
func (p *Player) Seek(ctx context.Context, offset time.Duration) error {
	return p.call(ctx, IfacePlayer, "Seek", offset.Microseconds())
}

// SetPosition jumps to an absolute position. Players ignore the request if
// track is not the current track.
func (p *Player) SetPosition(ctx context.Context, track TrackID, pos time.Duration) error {
	return p.call(ctx, IfacePlayer, "SetPosition", dbus.ObjectPath(track), pos.Microseconds())
}

func (p *Player) OpenURI(ctx context.Context, uri string) error {
	return p.call(ctx, IfacePlayer, "OpenUri", uri)
}

func (p *Player) Raise(ctx context.Context) error {
	return p.call(ctx, IfaceRoot, "Raise")
}

func (p *Player) Quit(ctx context.Context) error {
	return p.call(ctx, IfaceRoot, "Quit")
}

// Identity is the player's human readable name.
func (p *Player) Identity(ctx context.Context) (string, error) {
	v, err := p.get(ctx, IfaceRoot, "Identity")
	if err != nil {
		return "", err
	}
	if s, ok := v.AsString(); ok {
		return s, nil
	}
	return "", &FieldTypeError{Field: "Identity", Got: v.Kind()}
}

func (p *Player) PlaybackStatus(ctx context.Context) (PlaybackStatus, error) {
	v, err := p.get(ctx, IfacePlayer, PropPlaybackStatus)
	if err != nil {
		return Stopped, err
	}
	s, ok := v.AsString()
	if !ok {
		return Stopped, &FieldTypeError{Field: PropPlaybackStatus, Got: v.Kind()}
	}
	return ParsePlaybackStatus(s)
}

func (p *Player) LoopStatus(ctx context.Context) (LoopStatus, error) {
	v, err := p.get(ctx, IfacePlayer, PropLoopStatus)
	if err != nil {
		return LoopNone, err
	}
	s, ok := v.AsString()
	if !ok {
		return LoopNone, &FieldTypeError{Field: PropLoopStatus, Got: v.Kind()}
	}
	return ParseLoopStatus(s)
}

func (p *Player) SetLoopStatus(ctx context.Context, loop LoopStatus) error {
	return p.set(ctx, PropLoopStatus, loop.String())
}

func (p *Player) Shuffle(ctx context.Context) (bool, error) {
	v, err := p.get(ctx, IfacePlayer, PropShuffle)
	if err != nil {
		return false, err
	}
	b, ok := v.AsBool()
	if !ok {
		return false, &FieldTypeError{Field: PropShuffle, Got: v.Kind()}
	}
	return b, nil
}

func (p *Player) SetShuffle(ctx context.Context, shuffle bool) error {
	return p.set(ctx, PropShuffle, shuffle)
}

func (p *Player) Volume(ctx context.Context) (float64, error) {
	return p.getFloat(ctx, PropVolume)
}

// SetVolume sets the volume, 0.0 to 1.0. Players may accept more than 1.0.
func (p *Player) SetVolume(ctx context.Context, volume float64) error {
	if volume < 0 {
		volume = 0
	}
	return p.set(ctx, PropVolume, volume)
}

func (p *Player) Rate(ctx context.Context) (float64, error) {
	rate, err := p.getFloat(ctx, PropRate)
	return ClampRate(rate), err
}

func (p *Player) SetRate(ctx context.Context, rate float64) error {
	return p.set(ctx, PropRate, rate)
}

// Position is the player's own idea of the current position. Use an
// Engine to track the position without a round trip per query.
func (p *Player) Position(ctx context.Context) (time.Duration, error) {
	v, err := p.get(ctx, IfacePlayer, PropPosition)
	if err != nil {
		return 0, err
	}
	us, ok := v.AsInt64()
	if !ok {
		return 0, &FieldTypeError{Field: PropPosition, Got: v.Kind()}
	}
	return microseconds(us), nil
}

// Metadata fetches and translates the current track's metadata. Field
// problems are not errors; they only leave the field out.
func (p *Player) Metadata(ctx context.Context) (Metadata, error) {
	v, err := p.get(ctx, IfacePlayer, PropMetadata)
	if err != nil {
		return Metadata{}, err
	}
	payload, ok := v.AsMap()
	if !ok {
		return Metadata{}, &FieldTypeError{Field: PropMetadata, Got: v.Kind()}
	}
	md, _ := TranslateMetadata(payload)
	return md, nil
}

func (p *Player) getFloat(ctx context.Context, name string) (float64, error) {
	v, err := p.get(ctx, IfacePlayer, name)
	if err != nil {
		return 0, err
	}
	f, ok := v.AsFloat64()
	if !ok {
		return 0, &FieldTypeError{Field: name, Got: v.Kind()}
	}
	return f, nil
}
