// Copyright 2023 The STMPS Authors
// SPDX-License-Identifier: GPL-3.0-only

package mpris

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlayerCommands(t *testing.T) {
	ft := newFakeTransport()
	p := NewPlayer(ft)
	ctx := context.Background()

	require.NoError(t, p.PlayPause(ctx))
	require.NoError(t, p.Seek(ctx, -5*time.Second))
	require.NoError(t, p.SetPosition(ctx, "/track/1", time.Second))
	require.NoError(t, p.OpenURI(ctx, "file:///tmp/a.ogg"))
	require.NoError(t, p.Raise(ctx))

	assert.Equal(t, []string{
		"org.mpris.MediaPlayer2.Player.PlayPause[]",
		"org.mpris.MediaPlayer2.Player.Seek[-5000000]",
		"org.mpris.MediaPlayer2.Player.SetPosition[/track/1 1000000]",
		"org.mpris.MediaPlayer2.Player.OpenUri[file:///tmp/a.ogg]",
		"org.mpris.MediaPlayer2.Raise[]",
	}, ft.calls)
}

func TestPlayerCommandError(t *testing.T) {
	ft := newFakeTransport()
	ft.getErr = errors.New("refused")

	err := NewPlayer(ft).Next(context.Background())
	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "Next", te.Op)
}

func TestPlayerGetters(t *testing.T) {
	ft := newFakeTransport()
	ft.props[PropRate] = -3.0
	p := NewPlayer(ft)
	ctx := context.Background()

	identity, err := p.Identity(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Fake Player", identity)

	status, err := p.PlaybackStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, Paused, status)

	pos, err := p.Position(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, pos)

	rate, err := p.Rate(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0.0, rate)

	md, err := p.Metadata(ctx)
	require.NoError(t, err)
	assert.Equal(t, "The Fakes - Intro", md.String())
}

func TestPlayerGetterErrors(t *testing.T) {
	ft := newFakeTransport()
	ft.props[PropVolume] = "loud"
	delete(ft.props, PropShuffle)
	p := NewPlayer(ft)
	ctx := context.Background()

	_, err := p.Volume(ctx)
	var fte *FieldTypeError
	require.ErrorAs(t, err, &fte)
	assert.Equal(t, KindString, fte.Got)

	_, err = p.Shuffle(ctx)
	assert.ErrorIs(t, err, ErrUnsupported)

	ft.props[PropLoopStatus] = "Forever"
	_, err = p.LoopStatus(ctx)
	assert.Error(t, err)
}

func TestPlayerSetters(t *testing.T) {
	ft := newFakeTransport()
	p := NewPlayer(ft)
	ctx := context.Background()

	require.NoError(t, p.SetVolume(ctx, -0.5))
	require.NoError(t, p.SetLoopStatus(ctx, LoopPlaylist))
	require.NoError(t, p.SetShuffle(ctx, true))
	require.NoError(t, p.SetRate(ctx, 1.5))

	assert.Equal(t, map[string]interface{}{
		IfacePlayer + ".Volume":     0.0,
		IfacePlayer + ".LoopStatus": "Playlist",
		IfacePlayer + ".Shuffle":    true,
		IfacePlayer + ".Rate":       1.5,
	}, ft.sets)
}
