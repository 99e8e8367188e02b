// Copyright 2023 The STMPS Authors
// SPDX-License-Identifier: GPL-3.0-only

package mpris

import (
	"context"
	"errors"
	"iter"
	"math"
	"time"

	"github.com/samber/mo"
	"github.com/spezifisch/mprisctl/logger"
	"github.com/spezifisch/mprisctl/metrics"
)

const (
	DefaultIdleTimeout          = 5 * time.Second
	DefaultMaxConsecutiveErrors = 3
	DefaultSeekTolerance        = time.Second

	// upper bound of signals folded in one wake-up
	maxBatch = 64
)

type phase int

const (
	phaseActive phase = iota
	phaseDraining
	phaseClosed
)

// Clock supplies the instants anchors are captured at.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

type Option func(*Engine)

// WithIdleTimeout sets how long the engine waits for a signal before it
// pulls the full state itself.
func WithIdleTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.idleTimeout = d
		}
	}
}

// WithMaxConsecutiveErrors sets after how many failing wake-ups in a row
// the stream is closed.
func WithMaxConsecutiveErrors(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxErrors = n
		}
	}
}

// WithSeekTolerance sets how far a pulled position may deviate from the
// estimate before a Seeked event is synthesized. Zero disables this.
func WithSeekTolerance(d time.Duration) Option {
	return func(e *Engine) {
		if d >= 0 {
			e.seekTolerance = d
		}
	}
}

// WithName labels logs and metrics, usually with the player's bus name.
func WithName(name string) Option {
	return func(e *Engine) { e.name = name }
}

func WithLogger(l logger.LoggerInterface) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

func WithClock(c Clock) Option {
	return func(e *Engine) {
		if c != nil {
			e.clock = c
		}
	}
}

// Engine turns a player's signals into an ordered stream of Events and keeps
// a reconciled PlayerState. It starts no goroutines; all work happens inside
// Next. An Engine must not be used from several goroutines at once.
type Engine struct {
	transport Transport
	decoder   *Decoder
	sub       Subscription
	signals   <-chan *Signal
	timer     *time.Timer

	state    PlayerState
	pending  []Event
	phase    phase
	failures int
	released bool

	idleTimeout   time.Duration
	maxErrors     int
	seekTolerance time.Duration
	name          string
	logger        logger.LoggerInterface
	clock         Clock
}

// NewEngine subscribes to the player and pulls its full state. No event is
// produced before that baseline exists.
func NewEngine(ctx context.Context, transport Transport, opts ...Option) (*Engine, error) {
	e := &Engine{
		transport:     transport,
		decoder:       NewDecoder(transport),
		idleTimeout:   DefaultIdleTimeout,
		maxErrors:     DefaultMaxConsecutiveErrors,
		seekTolerance: DefaultSeekTolerance,
		logger:        logger.Nop(),
		clock:         systemClock{},
	}
	for _, opt := range opts {
		opt(e)
	}

	sub, err := transport.Subscribe(ctx)
	if err != nil {
		return nil, wrapTransport("subscribe", err)
	}

	state, _, err := e.pull(ctx)
	if err != nil {
		if cerr := sub.Close(); cerr != nil {
			e.logger.PrintError("engine unsubscribe", cerr)
		}
		return nil, err
	}

	e.sub = sub
	e.signals = sub.Signals()
	e.state = state
	e.timer = time.NewTimer(e.idleTimeout)
	metrics.EnginesActive.Inc()

	e.logger.Debugf("engine %s: started, %s %s", e.name, state.Status, state.Metadata)
	return e, nil
}

// State returns a copy of the reconciled player state.
func (e *Engine) State() PlayerState {
	return e.state.Clone()
}

// Position estimates the current playback position from the latest anchor.
func (e *Engine) Position() time.Duration {
	return e.state.Position(e.clock.Now())
}

// Next blocks until the next event. After the last event it returns
// ErrClosed and has released the subscription. A cancelled context aborts
// the wait, or a read from the player, and returns the context's error; the
// engine stays usable.
func (e *Engine) Next(ctx context.Context) (Event, error) {
	for len(e.pending) == 0 {
		if e.phase != phaseActive {
			e.phase = phaseClosed
			e.release()
			return nil, ErrClosed
		}
		if err := e.wait(ctx); err != nil {
			return nil, err
		}
	}

	ev := e.pending[0]
	e.pending = e.pending[1:]
	metrics.IncEvent(e.name, EventName(ev))
	return ev, nil
}

// All yields events until the stream ends or ctx is done. Stopping the
// iteration closes the engine.
func (e *Engine) All(ctx context.Context) iter.Seq[Event] {
	return func(yield func(Event) bool) {
		defer e.Close()
		for {
			ev, err := e.Next(ctx)
			if err != nil {
				return
			}
			if !yield(ev) {
				return
			}
		}
	}
}

// Close ends the stream and releases the subscription. It is safe to call
// more than once.
func (e *Engine) Close() error {
	e.phase = phaseClosed
	e.pending = nil
	return e.release()
}

func (e *Engine) release() error {
	if e.released {
		return nil
	}
	e.released = true
	e.timer.Stop()
	metrics.EnginesActive.Dec()
	e.logger.Debugf("engine %s: closed", e.name)
	return e.sub.Close()
}

// wait handles one wake-up. A context that ends while the player is being
// read makes wait return the context's error; that is not a player failure.
func (e *Engine) wait(ctx context.Context) error {
	var err error
	select {
	case <-ctx.Done():
		return ctx.Err()

	case sig, ok := <-e.signals:
		if !ok {
			// keep going on fallback pulls alone
			e.logger.Printf("engine %s: subscription ended, polling every %v", e.name, e.idleTimeout)
			e.signals = nil
			return nil
		}
		err = e.handleSignals(ctx, e.drain([]*Signal{sig}))

	case <-e.timer.C:
		err = e.handleTimeout(ctx)
	}

	e.resetTimer()
	return err
}

// drain collects signals that are already queued so they are folded in the
// same wake-up.
func (e *Engine) drain(batch []*Signal) []*Signal {
	for len(batch) < maxBatch {
		select {
		case sig, ok := <-e.signals:
			if !ok {
				e.signals = nil
				return batch
			}
			batch = append(batch, sig)
		default:
			return batch
		}
	}
	return batch
}

func (e *Engine) resetTimer() {
	if !e.timer.Stop() {
		select {
		case <-e.timer.C:
		default:
		}
	}
	e.timer.Reset(e.idleTimeout)
}

func (e *Engine) handleSignals(ctx context.Context, batch []*Signal) error {
	var (
		now       = e.clock.Now()
		prev      = e.state.Clone()
		seekedTo  mo.Option[time.Duration]
		trackList bool
		ownerLost bool
		errs      []error
	)

	for _, sig := range batch {
		metrics.IncSignal(e.name, signalKind(sig))

		change, err := e.decoder.Decode(ctx, sig)
		var de *DecodeError
		if errors.As(err, &de) {
			e.diagnose(err)
			continue
		}
		if err != nil {
			errs = append(errs, err)
		}

		for _, p := range change.Properties {
			for _, d := range e.state.apply(p.Name, p.Value, now) {
				e.diagnose(d)
			}
		}
		if pos, ok := change.Seek.Get(); ok {
			e.state.seek(pos, now)
			seekedTo = mo.Some(pos)
		}
		trackList = trackList || change.TrackList
		ownerLost = ownerLost || change.OwnerLost
	}

	if pos, ok := seekedTo.Get(); ok {
		e.pending = append(e.pending, Seeked{Position: pos})
	}
	e.pending = append(e.pending, diffState(prev, e.state)...)
	if trackList {
		e.pending = append(e.pending, TrackListChanged{})
	}

	err := errors.Join(errs...)
	switch {
	case ownerLost || errors.Is(err, ErrPeerGone):
		e.quit()
	case err != nil && ctx.Err() != nil:
		return ctx.Err()
	case err != nil:
		e.fail(err)
	default:
		e.failures = 0
	}
	return nil
}

func (e *Engine) handleTimeout(ctx context.Context) error {
	pulled, sampled, err := e.pull(ctx)
	switch {
	case err != nil && ctx.Err() != nil:
		return ctx.Err()
	case errors.Is(err, ErrPeerGone):
		e.quit()
		return nil
	case err != nil:
		e.fail(err)
		return nil
	}
	e.failures = 0

	var events []Event
	if sampled && e.seekTolerance > 0 && pulled.Metadata.SameTrack(e.state.Metadata) {
		expected := e.state.Position(pulled.Anchor.CapturedAt)
		if drift := pulled.Anchor.Position - expected; drift > e.seekTolerance || drift < -e.seekTolerance {
			events = append(events, Seeked{Position: pulled.Anchor.Position})
		}
	}
	events = append(events, diffState(e.state, pulled)...)

	e.state = pulled
	e.pending = append(e.pending, events...)
	metrics.IncFallbackPull(e.name, len(events) > 0)
	e.logger.Debugf("engine %s: fallback pull, %d changes", e.name, len(events))
	return nil
}

// pull reads every player property. Properties the player does not
// implement keep their defaults. sampled reports whether the player sent a
// usable Position; without one the previous anchor is carried forward.
func (e *Engine) pull(ctx context.Context) (s PlayerState, sampled bool, err error) {
	var (
		now  = e.clock.Now()
		pos  time.Duration
		rate = 1.0
	)
	s = NewPlayerState(now)

	for _, name := range pulledProperties {
		raw, err := e.transport.GetProperty(ctx, IfacePlayer, name)
		if errors.Is(err, ErrUnsupported) {
			e.logger.Debugf("engine %s: %s not supported", e.name, name)
			continue
		}
		if err != nil {
			return PlayerState{}, false, wrapTransport("get "+name, err)
		}

		v := ValueOf(raw)
		switch name {
		case PropPosition:
			us, ok := v.AsInt64()
			if !ok {
				e.diagnose(&FieldTypeError{Field: name, Got: v.Kind()})
				continue
			}
			pos = microseconds(us)
			sampled = true
		case PropRate:
			f, ok := v.AsFloat64()
			if !ok {
				e.diagnose(&FieldTypeError{Field: name, Got: v.Kind()})
				continue
			}
			rate = f
		default:
			for _, d := range s.apply(name, v, s.Anchor.CapturedAt) {
				e.diagnose(d)
			}
		}
	}

	switch {
	case sampled:
		s.Anchor = e.state.Anchor.reset(pos, rate, now)
	case s.Metadata.SameTrack(e.state.Metadata):
		s.Anchor = e.state.Anchor.rebase(e.state.Status, e.state.TrackLength, now, rate)
	default:
		s.Anchor = e.state.Anchor.reset(0, rate, now)
	}
	return s, sampled, nil
}

// quit moves to Draining: queued events are still delivered, followed by a
// single PlayerQuit.
func (e *Engine) quit() {
	if e.phase != phaseActive {
		return
	}
	e.logger.Printf("engine %s: player left the bus", e.name)
	e.phase = phaseDraining
	e.pending = append(e.pending, PlayerQuit{})
}

func (e *Engine) fail(err error) {
	e.failures++
	metrics.IncTransportError(e.name)
	e.logger.PrintError("engine "+e.name, err)
	e.pending = append(e.pending, ErrorEvent{Err: err})

	if e.failures >= e.maxErrors && e.phase == phaseActive {
		e.logger.Printf("engine %s: %d consecutive failures, giving up", e.name, e.failures)
		e.phase = phaseClosed
	}
}

func (e *Engine) diagnose(err error) {
	var (
		de  *DecodeError
		fte *FieldTypeError
		fre *FieldRangeError
	)
	kind := "other"
	switch {
	case errors.As(err, &de):
		kind = "decode"
	case errors.As(err, &fte):
		kind = "field_type"
	case errors.As(err, &fre):
		kind = "field_range"
	}
	metrics.IncDiagnostic(e.name, kind)
	e.logger.Debugf("engine %s: %v", e.name, err)
}

// diffState derives events for every facet that differs, in the fixed
// order status, loop, shuffle, volume, rate, metadata.
func diffState(prev, next PlayerState) []Event {
	var events []Event
	if prev.Status != next.Status {
		events = append(events, PlaybackStatusChanged{Status: next.Status})
	}
	if prev.LoopStatus != next.LoopStatus {
		events = append(events, LoopStatusChanged{Status: next.LoopStatus})
	}
	if prev.Shuffle != next.Shuffle {
		events = append(events, ShuffleChanged{Shuffle: next.Shuffle})
	}
	if floatChanged(prev.Volume, next.Volume) {
		events = append(events, VolumeChanged{Volume: next.Volume})
	}
	if floatChanged(prev.Anchor.Rate, next.Anchor.Rate) {
		events = append(events, RateChanged{Rate: next.Anchor.Rate})
	}
	if !prev.Metadata.Equal(next.Metadata) {
		events = append(events, TrackChanged{Metadata: next.Metadata.Clone()})
	}
	return events
}

func floatChanged(a, b float64) bool {
	if math.IsNaN(a) && math.IsNaN(b) {
		return false
	}
	return a != b
}

func signalKind(sig *Signal) string {
	if sig == nil {
		return "unknown"
	}
	switch sig.Name {
	case SignalPropertiesChanged:
		return "properties"
	case SignalSeeked:
		return "seeked"
	case SignalNameOwnerChanged:
		return "owner"
	}
	for _, name := range trackListSignals {
		if sig.Name == name {
			return "tracklist"
		}
	}
	return "unknown"
}
