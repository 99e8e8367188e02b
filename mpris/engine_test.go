// Copyright 2023 The STMPS Authors
// SPDX-License-Identifier: GPL-3.0-only

package mpris

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestEngine builds an engine over ft that never pulls on its own unless
// the caller passes a shorter idle timeout.
func newTestEngine(t *testing.T, ft *fakeTransport, opts ...Option) (*Engine, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	opts = append([]Option{WithClock(clock), WithIdleTimeout(time.Hour), WithName("test")}, opts...)
	e, err := NewEngine(context.Background(), ft, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e, clock
}

func nextEvent(t *testing.T, e *Engine) Event {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	ev, err := e.Next(ctx)
	require.NoError(t, err)
	return ev
}

// assertQuiet checks that no event arrives within a short wait.
func assertQuiet(t *testing.T, e *Engine) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	ev, err := e.Next(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded, "unexpected event %v", ev)
}

func TestEngineInitialPull(t *testing.T) {
	ft := newFakeTransport()
	e, clock := newTestEngine(t, ft)

	s := e.State()
	assert.Equal(t, Paused, s.Status)
	assert.Equal(t, 0.5, s.Volume)
	assert.Equal(t, LoopNone, s.LoopStatus)
	assert.Equal(t, "Intro", s.Metadata.Title.OrEmpty())
	assert.Equal(t, 180*time.Second, s.TrackLength.OrEmpty())
	assert.Equal(t, len(pulledProperties), ft.gets)

	assert.Equal(t, 10*time.Second, e.Position())
	clock.Advance(5 * time.Second)
	assert.Equal(t, 10*time.Second, e.Position(), "paused position does not advance")
}

func TestEngineInitialPullMissingProperties(t *testing.T) {
	ft := newFakeTransport()
	delete(ft.props, PropRate)
	delete(ft.props, PropVolume)
	delete(ft.props, PropLoopStatus)
	e, _ := newTestEngine(t, ft)

	s := e.State()
	assert.Equal(t, 1.0, s.Anchor.Rate)
	assert.Equal(t, 1.0, s.Volume)
	assert.Equal(t, LoopNone, s.LoopStatus)
}

func TestNewEngineErrors(t *testing.T) {
	t.Run("subscribe fails", func(t *testing.T) {
		ft := newFakeTransport()
		ft.subscribeErr = errors.New("no bus")
		_, err := NewEngine(context.Background(), ft)
		var te *TransportError
		require.ErrorAs(t, err, &te)
		assert.Equal(t, "subscribe", te.Op)
	})

	t.Run("player gone during pull", func(t *testing.T) {
		ft := newFakeTransport()
		ft.getErr = fmt.Errorf("no owner: %w", ErrPeerGone)
		_, err := NewEngine(context.Background(), ft)
		assert.ErrorIs(t, err, ErrPeerGone)
		assert.True(t, ft.sub.closed, "subscription is released")
	})
}

func TestEngineStatusBeforeTrack(t *testing.T) {
	ft := newFakeTransport()
	e, clock := newTestEngine(t, ft)

	ft.emit(propertiesChanged(IfacePlayer, map[string]interface{}{
		PropMetadata:       trackMetadata("/track/2", "Two", time.Minute),
		PropPlaybackStatus: "Playing",
	}))

	assert.Equal(t, PlaybackStatusChanged{Status: Playing}, nextEvent(t, e))
	ev := nextEvent(t, e)
	require.IsType(t, TrackChanged{}, ev)
	assert.Equal(t, "Two", ev.(TrackChanged).Metadata.Title.OrEmpty())

	assert.Equal(t, time.Duration(0), e.Position(), "new track starts at zero")
	clock.Advance(3 * time.Second)
	assert.Equal(t, 3*time.Second, e.Position())
}

func TestEngineSeekVisibleBeforeLaterEvents(t *testing.T) {
	ft := newFakeTransport()
	e, _ := newTestEngine(t, ft)

	ft.emit(seekedSignal(42 * time.Second))
	ft.emit(propertiesChanged(IfacePlayer, map[string]interface{}{PropVolume: 0.9}))

	assert.Equal(t, Seeked{Position: 42 * time.Second}, nextEvent(t, e))
	assert.Equal(t, 42*time.Second, e.Position())
	assert.Equal(t, VolumeChanged{Volume: 0.9}, nextEvent(t, e))
}

func TestEngineSeveralSeeksInOneBatch(t *testing.T) {
	ft := newFakeTransport()
	e, _ := newTestEngine(t, ft)

	ft.emit(seekedSignal(20 * time.Second))
	ft.emit(seekedSignal(30 * time.Second))

	assert.Equal(t, Seeked{Position: 30 * time.Second}, nextEvent(t, e))
	assertQuiet(t, e)
}

func TestEngineSeekThenTrackChange(t *testing.T) {
	ft := newFakeTransport()
	e, _ := newTestEngine(t, ft)

	ft.emit(seekedSignal(30 * time.Second))
	ft.emit(propertiesChanged(IfacePlayer, map[string]interface{}{
		PropMetadata: trackMetadata("/track/2", "Two", time.Minute),
	}))

	assert.Equal(t, Seeked{Position: 30 * time.Second}, nextEvent(t, e))
	require.IsType(t, TrackChanged{}, nextEvent(t, e))
	assert.Equal(t, time.Duration(0), e.Position(), "new track starts at zero")
}

func TestEngineTrackWithPosition(t *testing.T) {
	ft := newFakeTransport()
	e, _ := newTestEngine(t, ft)

	ft.emit(propertiesChanged(IfacePlayer, map[string]interface{}{
		PropPosition: int64(5 * time.Second / time.Microsecond),
		PropMetadata: trackMetadata("/track/2", "Two", time.Minute),
	}))
	require.IsType(t, TrackChanged{}, nextEvent(t, e))
	assert.Equal(t, 5*time.Second, e.Position(), "explicit position wins over the track reset")
}

func TestEngineMetadataUpdateKeepsPosition(t *testing.T) {
	ft := newFakeTransport()
	e, _ := newTestEngine(t, ft)

	ft.emit(propertiesChanged(IfacePlayer, map[string]interface{}{
		PropMetadata: trackMetadata("/track/1", "Intro (Live)", 180*time.Second),
	}))
	ev := nextEvent(t, e)
	require.IsType(t, TrackChanged{}, ev)
	assert.Equal(t, "Intro (Live)", ev.(TrackChanged).Metadata.Title.OrEmpty())
	assert.Equal(t, 10*time.Second, e.Position())
}

func TestEngineUnchangedValuesAreQuiet(t *testing.T) {
	ft := newFakeTransport()
	e, _ := newTestEngine(t, ft)

	ft.emit(propertiesChanged(IfacePlayer, map[string]interface{}{
		PropVolume:         0.5,
		PropPlaybackStatus: "Paused",
		PropMetadata:       trackMetadata("/track/1", "Intro", 180*time.Second),
	}))
	assertQuiet(t, e)
}

func TestEnginePauseFreezesPosition(t *testing.T) {
	ft := newFakeTransport()
	e, clock := newTestEngine(t, ft)

	ft.emit(propertiesChanged(IfacePlayer, map[string]interface{}{PropPlaybackStatus: "Playing"}))
	assert.Equal(t, PlaybackStatusChanged{Status: Playing}, nextEvent(t, e))

	clock.Advance(4 * time.Second)
	assert.Equal(t, 14*time.Second, e.Position())

	ft.emit(propertiesChanged(IfacePlayer, map[string]interface{}{PropPlaybackStatus: "Paused"}))
	assert.Equal(t, PlaybackStatusChanged{Status: Paused}, nextEvent(t, e))

	clock.Advance(10 * time.Second)
	assert.Equal(t, 14*time.Second, e.Position())
}

func TestEngineRateChangeRebases(t *testing.T) {
	ft := newFakeTransport()
	ft.props[PropPlaybackStatus] = "Playing"
	e, clock := newTestEngine(t, ft)

	clock.Advance(4 * time.Second)
	ft.emit(propertiesChanged(IfacePlayer, map[string]interface{}{PropRate: 2.0}))
	assert.Equal(t, RateChanged{Rate: 2}, nextEvent(t, e))
	assert.Equal(t, 14*time.Second, e.Position())

	clock.Advance(3 * time.Second)
	assert.Equal(t, 20*time.Second, e.Position())

	ft.emit(propertiesChanged(IfacePlayer, map[string]interface{}{PropRate: -1.0}))
	assert.Equal(t, RateChanged{Rate: 0}, nextEvent(t, e), "negative rates are clamped")
}

func TestEnginePositionStopsAtTrackEnd(t *testing.T) {
	ft := newFakeTransport()
	ft.props[PropPlaybackStatus] = "Playing"
	e, clock := newTestEngine(t, ft)

	clock.Advance(time.Hour)
	assert.Equal(t, 180*time.Second, e.Position())
}

func TestEngineTrackListAfterStateEvents(t *testing.T) {
	ft := newFakeTransport()
	e, _ := newTestEngine(t, ft)

	ft.emit(&Signal{Name: IfaceTrackList + ".TrackListReplaced"})
	ft.emit(propertiesChanged(IfacePlayer, map[string]interface{}{PropShuffle: true}))

	assert.Equal(t, ShuffleChanged{Shuffle: true}, nextEvent(t, e))
	assert.Equal(t, TrackListChanged{}, nextEvent(t, e))
}

func TestEngineDropsUndecodableSignals(t *testing.T) {
	ft := newFakeTransport()
	e, _ := newTestEngine(t, ft)

	ft.emit(&Signal{Name: "org.example.Bogus"})
	ft.emit(&Signal{Name: SignalSeeked, Body: []interface{}{"soon"}})
	ft.emit(propertiesChanged(IfacePlayer, map[string]interface{}{
		PropShuffle:    true,
		PropLoopStatus: "Sometimes",
	}))

	assert.Equal(t, ShuffleChanged{Shuffle: true}, nextEvent(t, e))
	assertQuiet(t, e)
	assert.Equal(t, LoopNone, e.State().LoopStatus)
}

func TestEngineInvalidatedProperty(t *testing.T) {
	ft := newFakeTransport()
	e, _ := newTestEngine(t, ft)

	ft.props[PropVolume] = 0.3
	ft.emit(propertiesChanged(IfacePlayer, nil, PropVolume))
	assert.Equal(t, VolumeChanged{Volume: 0.3}, nextEvent(t, e))
}

func TestEngineReReadFailureKeepsDecodedPart(t *testing.T) {
	ft := newFakeTransport()
	e, _ := newTestEngine(t, ft)

	ft.getErr = errors.New("timeout")
	ft.emit(propertiesChanged(IfacePlayer, map[string]interface{}{PropShuffle: true}, PropMetadata))

	assert.Equal(t, ShuffleChanged{Shuffle: true}, nextEvent(t, e))
	ev := nextEvent(t, e)
	require.IsType(t, ErrorEvent{}, ev)
	var te *TransportError
	assert.ErrorAs(t, ev.(ErrorEvent).Err, &te)
}

func TestEngineFallbackPullQuiet(t *testing.T) {
	ft := newFakeTransport()
	e, _ := newTestEngine(t, ft, WithIdleTimeout(10*time.Millisecond))
	before := ft.gets

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err := e.Next(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Greater(t, ft.gets, before, "idle engine pulls on its own")
}

func TestEngineFallbackPullWithoutPosition(t *testing.T) {
	ft := newFakeTransport()
	ft.props[PropPlaybackStatus] = "Playing"
	delete(ft.props, PropPosition)
	e, clock := newTestEngine(t, ft, WithIdleTimeout(10*time.Millisecond))

	assert.Equal(t, time.Duration(0), e.Position())
	for i := 1; i <= 3; i++ {
		clock.Advance(5 * time.Second)
		before := ft.gets
		assertQuiet(t, e)
		require.Greater(t, ft.gets, before, "pull %d happened", i)
		assert.Equal(t, time.Duration(i)*5*time.Second, e.Position(), "pull %d keeps the estimate", i)
	}
}

func TestEngineFallbackPullPositionWrongType(t *testing.T) {
	ft := newFakeTransport()
	ft.props[PropPlaybackStatus] = "Playing"
	e, clock := newTestEngine(t, ft, WithIdleTimeout(10*time.Millisecond))

	ft.props[PropPosition] = "soon"
	clock.Advance(5 * time.Second)
	assertQuiet(t, e)
	assert.Equal(t, 15*time.Second, e.Position())
}

func TestEngineFallbackPullFindsChanges(t *testing.T) {
	ft := newFakeTransport()
	e, _ := newTestEngine(t, ft, WithIdleTimeout(10*time.Millisecond))

	ft.props[PropVolume] = 0.8
	ft.props[PropLoopStatus] = "Track"
	ft.props[PropPlaybackStatus] = "Playing"

	assert.Equal(t, PlaybackStatusChanged{Status: Playing}, nextEvent(t, e))
	assert.Equal(t, LoopStatusChanged{Status: LoopTrack}, nextEvent(t, e))
	assert.Equal(t, VolumeChanged{Volume: 0.8}, nextEvent(t, e))
}

func TestEngineFallbackPullDetectsSeek(t *testing.T) {
	ft := newFakeTransport()
	e, _ := newTestEngine(t, ft, WithIdleTimeout(10*time.Millisecond))

	ft.props[PropPosition] = int64(60 * time.Second / time.Microsecond)
	assert.Equal(t, Seeked{Position: 60 * time.Second}, nextEvent(t, e))
	assert.Equal(t, 60*time.Second, e.Position())
}

func TestEngineFallbackPullSeekToleranceDisabled(t *testing.T) {
	ft := newFakeTransport()
	e, _ := newTestEngine(t, ft, WithIdleTimeout(10*time.Millisecond), WithSeekTolerance(0))

	ft.props[PropPosition] = int64(60 * time.Second / time.Microsecond)
	ft.props[PropShuffle] = true
	assert.Equal(t, ShuffleChanged{Shuffle: true}, nextEvent(t, e))
	assert.Equal(t, 60*time.Second, e.Position(), "anchor follows the pull anyway")
}

func TestEnginePeerGoneOnPull(t *testing.T) {
	ft := newFakeTransport()
	e, _ := newTestEngine(t, ft, WithIdleTimeout(10*time.Millisecond))

	ft.getErr = fmt.Errorf("no owner: %w", ErrPeerGone)
	assert.Equal(t, PlayerQuit{}, nextEvent(t, e))

	_, err := e.Next(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
	assert.True(t, ft.sub.closed)

	_, err = e.Next(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestEngineOwnerLost(t *testing.T) {
	ft := newFakeTransport()
	e, _ := newTestEngine(t, ft)

	ft.emit(propertiesChanged(IfacePlayer, map[string]interface{}{PropVolume: 0.1}))
	ft.emit(&Signal{
		Name: SignalNameOwnerChanged,
		Body: []interface{}{BusNamePrefix + "fake", ":1.9", ""},
	})

	assert.Equal(t, VolumeChanged{Volume: 0.1}, nextEvent(t, e), "queued changes come first")
	assert.Equal(t, PlayerQuit{}, nextEvent(t, e))
	_, err := e.Next(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestEngineErrorLimit(t *testing.T) {
	ft := newFakeTransport()
	e, _ := newTestEngine(t, ft, WithIdleTimeout(10*time.Millisecond), WithMaxConsecutiveErrors(2))

	ft.getErr = errors.New("boom")
	for range 2 {
		ev := nextEvent(t, e)
		require.IsType(t, ErrorEvent{}, ev)
		assert.ErrorContains(t, ev.(ErrorEvent).Err, "boom")
	}

	_, err := e.Next(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
	assert.True(t, ft.sub.closed)
}

func TestEngineErrorsResetOnSuccess(t *testing.T) {
	ft := newFakeTransport()
	e, _ := newTestEngine(t, ft, WithIdleTimeout(10*time.Millisecond), WithMaxConsecutiveErrors(2))

	ft.getErr = errors.New("boom")
	require.IsType(t, ErrorEvent{}, nextEvent(t, e))

	ft.getErr = nil
	ft.props[PropShuffle] = true
	assert.Equal(t, ShuffleChanged{Shuffle: true}, nextEvent(t, e))

	ft.getErr = errors.New("boom")
	require.IsType(t, ErrorEvent{}, nextEvent(t, e))
	ft.getErr = nil
	ft.props[PropShuffle] = false
	assert.Equal(t, ShuffleChanged{Shuffle: false}, nextEvent(t, e), "still open")
}

func TestEngineClosedSubscriptionKeepsPolling(t *testing.T) {
	ft := newFakeTransport()
	e, _ := newTestEngine(t, ft, WithIdleTimeout(10*time.Millisecond))

	close(ft.sub.ch)
	ft.props[PropVolume] = 0.9
	assert.Equal(t, VolumeChanged{Volume: 0.9}, nextEvent(t, e))
}

func TestEngineCancelledNextStaysUsable(t *testing.T) {
	ft := newFakeTransport()
	e, _ := newTestEngine(t, ft)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	ft.emit(propertiesChanged(IfacePlayer, map[string]interface{}{PropShuffle: true}))
	assert.Equal(t, ShuffleChanged{Shuffle: true}, nextEvent(t, e))
}

func TestEngineContextEndsDuringPull(t *testing.T) {
	ft := newFakeTransport()
	e, _ := newTestEngine(t, ft, WithIdleTimeout(10*time.Millisecond), WithMaxConsecutiveErrors(2))

	ft.hang = true
	for range 4 {
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		ev, err := e.Next(ctx)
		cancel()
		require.ErrorIs(t, err, context.DeadlineExceeded, "got event %v", ev)
	}
	assert.Zero(t, e.failures)
	assert.False(t, ft.sub.closed)

	ft.hang = false
	ft.props[PropVolume] = 0.8
	assert.Equal(t, VolumeChanged{Volume: 0.8}, nextEvent(t, e))
}

func TestEngineContextEndsDuringReRead(t *testing.T) {
	ft := newFakeTransport()
	e, _ := newTestEngine(t, ft, WithMaxConsecutiveErrors(1))

	ft.hang = true
	ft.emit(propertiesChanged(IfacePlayer, map[string]interface{}{PropShuffle: true}, PropVolume))
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := e.Next(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Zero(t, e.failures)

	ft.hang = false
	assert.Equal(t, ShuffleChanged{Shuffle: true}, nextEvent(t, e), "decoded part is kept")
	ft.emit(propertiesChanged(IfacePlayer, map[string]interface{}{PropVolume: 0.2}))
	assert.Equal(t, VolumeChanged{Volume: 0.2}, nextEvent(t, e))
}

func TestEngineAllStopsOnBreak(t *testing.T) {
	ft := newFakeTransport()
	e, _ := newTestEngine(t, ft)

	ft.emit(propertiesChanged(IfacePlayer, map[string]interface{}{PropShuffle: true, PropVolume: 0.2}))

	var got []Event
	for ev := range e.All(context.Background()) {
		got = append(got, ev)
		break
	}
	assert.Equal(t, []Event{ShuffleChanged{Shuffle: true}}, got)
	assert.True(t, ft.sub.closed)

	_, err := e.Next(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestEngineAllEndsWithQuit(t *testing.T) {
	ft := newFakeTransport()
	e, _ := newTestEngine(t, ft)

	ft.emit(seekedSignal(time.Second))
	ft.emit(&Signal{Name: SignalNameOwnerChanged, Body: []interface{}{"n", "o", ""}})

	var names []string
	for ev := range e.All(context.Background()) {
		names = append(names, EventName(ev))
	}
	assert.Equal(t, []string{"seeked", "quit"}, names)
}

func TestEngineCloseIsIdempotent(t *testing.T) {
	ft := newFakeTransport()
	e, _ := newTestEngine(t, ft)

	assert.NoError(t, e.Close())
	assert.NoError(t, e.Close())
	assert.True(t, ft.sub.closed)

	_, err := e.Next(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}
