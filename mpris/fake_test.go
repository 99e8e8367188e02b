// Copyright 2023 The STMPS Authors
// SPDX-License-Identifier: GPL-3.0-only

package mpris

import (
	"context"
	"fmt"
	"time"

	"github.com/godbus/dbus/v5"
)

type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type fakeSubscription struct {
	ch     chan *Signal
	closed bool
}

func (s *fakeSubscription) Signals() <-chan *Signal { return s.ch }

func (s *fakeSubscription) Close() error {
	s.closed = true
	return nil
}

// fakeTransport serves Player properties from a map. Missing properties are
// unsupported; getErr, when set, fails every read. With hang set, reads
// block until their context ends.
type fakeTransport struct {
	props map[string]interface{}
	root  map[string]interface{}

	getErr       error
	hang         bool
	subscribeErr error
	gets         int
	calls        []string
	sets         map[string]interface{}

	sub *fakeSubscription
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		props: map[string]interface{}{
			PropPlaybackStatus: "Paused",
			PropPosition:       int64(10 * time.Second / time.Microsecond),
			PropRate:           1.0,
			PropVolume:         0.5,
			PropLoopStatus:     "None",
			PropShuffle:        false,
			PropMetadata:       trackMetadata("/track/1", "Intro", 180*time.Second),
		},
		root: map[string]interface{}{
			"Identity": "Fake Player",
		},
		sets: map[string]interface{}{},
		sub:  &fakeSubscription{ch: make(chan *Signal, 16)},
	}
}

func (f *fakeTransport) Call(_ context.Context, iface, method string, args ...interface{}) error {
	f.calls = append(f.calls, fmt.Sprintf("%s.%s%v", iface, method, args))
	return f.getErr
}

func (f *fakeTransport) GetProperty(ctx context.Context, iface, name string) (interface{}, error) {
	f.gets++
	if f.hang {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.getErr != nil {
		return nil, f.getErr
	}
	src := f.props
	if iface == IfaceRoot {
		src = f.root
	}
	v, ok := src[name]
	if !ok {
		return nil, fmt.Errorf("%s.%s: %w", iface, name, ErrUnsupported)
	}
	return v, nil
}

func (f *fakeTransport) SetProperty(_ context.Context, iface, name string, value interface{}) error {
	if f.getErr != nil {
		return f.getErr
	}
	f.sets[iface+"."+name] = value
	return nil
}

func (f *fakeTransport) Subscribe(context.Context) (Subscription, error) {
	if f.subscribeErr != nil {
		return nil, f.subscribeErr
	}
	return f.sub, nil
}

func (f *fakeTransport) emit(sig *Signal) {
	f.sub.ch <- sig
}

func trackMetadata(id, title string, length time.Duration) map[string]dbus.Variant {
	return map[string]dbus.Variant{
		KeyTrackID:         dbus.MakeVariant(dbus.ObjectPath(id)),
		KeyTitle:           dbus.MakeVariant(title),
		KeyArtist:          dbus.MakeVariant([]string{"The Fakes"}),
		KeyLength:          dbus.MakeVariant(length.Microseconds()),
		"xesam:genre":      dbus.MakeVariant([]string{"Test"}),
		"xesam:userRating": dbus.MakeVariant(0.5),
	}
}

func propertiesChanged(iface string, changed map[string]interface{}, invalidated ...string) *Signal {
	variants := make(map[string]dbus.Variant, len(changed))
	for k, v := range changed {
		variants[k] = dbus.MakeVariant(v)
	}
	if invalidated == nil {
		invalidated = []string{}
	}
	return &Signal{
		Path: ObjectPath,
		Name: SignalPropertiesChanged,
		Body: []interface{}{iface, variants, invalidated},
	}
}

func seekedSignal(pos time.Duration) *Signal {
	return &Signal{
		Path: ObjectPath,
		Name: SignalSeeked,
		Body: []interface{}{pos.Microseconds()},
	}
}
