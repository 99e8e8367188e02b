// Copyright 2023 The STMPS Authors
// SPDX-License-Identifier: GPL-3.0-only

package mpris

import (
	"math"
	"time"

	"github.com/samber/mo"
)

// PositionAnchor is the last authoritative position sample.
type PositionAnchor struct {
	Position   time.Duration
	Rate       float64
	CapturedAt time.Time
}

// ClampRate maps negative and non-finite rates to 0.
func ClampRate(rate float64) float64 {
	if math.IsNaN(rate) || math.IsInf(rate, 0) || rate < 0 {
		return 0
	}
	return rate
}

// PositionAt estimates the playback position at the given time. Only a
// playing track advances; the result always lies within [0, length] when
// the length is known.
func PositionAt(anchor PositionAnchor, status PlaybackStatus, length mo.Option[time.Duration], at time.Time) time.Duration {
	pos := anchor.Position
	if status == Playing {
		elapsed := at.Sub(anchor.CapturedAt)
		if elapsed < 0 {
			elapsed = 0
		}
		if step := scale(elapsed, ClampRate(anchor.Rate)); pos > 0 && step > math.MaxInt64-pos {
			pos = math.MaxInt64
		} else {
			pos += step
		}
	}

	if pos < 0 {
		pos = 0
	}
	if l, ok := length.Get(); ok && pos > l {
		pos = l
	}
	return pos
}

// microseconds converts a wire position, saturating at the Duration range.
func microseconds(us int64) time.Duration {
	const limit = math.MaxInt64 / int64(time.Microsecond)
	switch {
	case us > limit:
		return math.MaxInt64
	case us < -limit:
		return math.MinInt64
	}
	return time.Duration(us) * time.Microsecond
}

func scale(d time.Duration, rate float64) time.Duration {
	if rate == 1 {
		return d
	}
	f := float64(d) * rate
	if f >= math.MaxInt64 {
		return math.MaxInt64
	}
	return time.Duration(f)
}

// rebase moves the anchor to at, keeping the estimated position, so later
// estimates continue from there with the given rate.
func (a PositionAnchor) rebase(status PlaybackStatus, length mo.Option[time.Duration], at time.Time, rate float64) PositionAnchor {
	at = a.monotonic(at)
	return PositionAnchor{
		Position:   PositionAt(a, status, length, at),
		Rate:       ClampRate(rate),
		CapturedAt: at,
	}
}

// reset replaces the anchor with a fresh sample.
func (a PositionAnchor) reset(pos time.Duration, rate float64, at time.Time) PositionAnchor {
	if pos < 0 {
		pos = 0
	}
	return PositionAnchor{
		Position:   pos,
		Rate:       ClampRate(rate),
		CapturedAt: a.monotonic(at),
	}
}

// monotonic keeps CapturedAt from moving backwards.
func (a PositionAnchor) monotonic(at time.Time) time.Time {
	if at.Before(a.CapturedAt) {
		return a.CapturedAt
	}
	return at
}
