// Copyright 2023 The STMPS Authors
// SPDX-License-Identifier: GPL-3.0-only

package remote

import (
	"context"
	"strings"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/spezifisch/mprisctl/logger"
	"github.com/spezifisch/mprisctl/mpris"
)

const (
	busName  = "org.freedesktop.DBus"
	busIface = "org.freedesktop.DBus"

	// queued raw signals per subscription
	signalBuffer = 64
)

// Transport talks to one media player over a D-Bus connection. It
// implements mpris.Transport. The connection is owned by the caller.
type Transport struct {
	conn   *dbus.Conn
	name   string
	obj    dbus.BusObject
	logger logger.LoggerInterface

	mu    sync.Mutex
	owner string
}

var _ mpris.Transport = (*Transport)(nil)

// NewTransport binds to the player owning name, e.g.
// org.mpris.MediaPlayer2.vlc. It fails with mpris.ErrPeerGone if the name
// has no owner.
func NewTransport(ctx context.Context, conn *dbus.Conn, name string, logger_ logger.LoggerInterface) (*Transport, error) {
	if logger_ == nil {
		logger_ = logger.Nop()
	}
	t := &Transport{
		conn:   conn,
		name:   name,
		obj:    conn.Object(name, mpris.ObjectPath),
		logger: logger_,
	}

	var owner string
	err := conn.BusObject().CallWithContext(ctx, busIface+".GetNameOwner", 0, name).Store(&owner)
	if err != nil {
		return nil, classify(err)
	}
	t.setOwner(owner)
	return t, nil
}

// Name is the player's well-known bus name.
func (t *Transport) Name() string {
	return t.name
}

func (t *Transport) Owner() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.owner
}

func (t *Transport) setOwner(owner string) {
	t.mu.Lock()
	t.owner = owner
	t.mu.Unlock()
}

func (t *Transport) Call(ctx context.Context, iface, method string, args ...interface{}) error {
	return classify(t.obj.CallWithContext(ctx, iface+"."+method, 0, args...).Err)
}

func (t *Transport) GetProperty(ctx context.Context, iface, name string) (interface{}, error) {
	var v dbus.Variant
	err := t.obj.CallWithContext(ctx, mpris.IfaceProperties+".Get", 0, iface, name).Store(&v)
	if err != nil {
		return nil, classify(err)
	}
	return v.Value(), nil
}

func (t *Transport) SetProperty(ctx context.Context, iface, name string, value interface{}) error {
	return classify(t.obj.CallWithContext(ctx, mpris.IfaceProperties+".Set", 0, iface, name, dbus.MakeVariant(value)).Err)
}

// matchRules selects the player's PropertiesChanged, Seeked and track list
// signals plus ownership changes of its bus name.
func (t *Transport) matchRules() [][]dbus.MatchOption {
	return [][]dbus.MatchOption{
		{
			dbus.WithMatchSender(t.name),
			dbus.WithMatchObjectPath(mpris.ObjectPath),
			dbus.WithMatchInterface(mpris.IfaceProperties),
			dbus.WithMatchMember("PropertiesChanged"),
		},
		{
			dbus.WithMatchSender(t.name),
			dbus.WithMatchObjectPath(mpris.ObjectPath),
			dbus.WithMatchInterface(mpris.IfacePlayer),
			dbus.WithMatchMember("Seeked"),
		},
		{
			dbus.WithMatchSender(t.name),
			dbus.WithMatchObjectPath(mpris.ObjectPath),
			dbus.WithMatchInterface(mpris.IfaceTrackList),
		},
		{
			dbus.WithMatchSender(busName),
			dbus.WithMatchInterface(busIface),
			dbus.WithMatchMember("NameOwnerChanged"),
			dbus.WithMatchArg(0, t.name),
		},
	}
}

// Subscribe installs the match rules and starts forwarding the player's
// signals. The returned subscription must be closed.
func (t *Transport) Subscribe(ctx context.Context) (mpris.Subscription, error) {
	rules := t.matchRules()
	for i, rule := range rules {
		if err := t.conn.AddMatchSignalContext(ctx, rule...); err != nil {
			t.removeMatches(rules[:i])
			return nil, classify(err)
		}
	}

	s := &subscription{
		t:     t,
		rules: rules,
		raw:   make(chan *dbus.Signal, signalBuffer),
		out:   make(chan *mpris.Signal, signalBuffer),
		done:  make(chan struct{}),
	}
	t.conn.Signal(s.raw)

	s.wg.Add(1)
	go s.forward()
	return s, nil
}

func (t *Transport) removeMatches(rules [][]dbus.MatchOption) {
	for _, rule := range rules {
		if err := t.conn.RemoveMatchSignal(rule...); err != nil {
			t.logger.PrintError("RemoveMatchSignal", err)
		}
	}
}

// accept converts sig if it belongs to this player. The connection
// delivers every signal to every channel, so filtering happens here too.
func (t *Transport) accept(sig *dbus.Signal) *mpris.Signal {
	if sig == nil {
		return nil
	}
	out := &mpris.Signal{
		Sender: sig.Sender,
		Path:   string(sig.Path),
		Name:   sig.Name,
		Body:   sig.Body,
	}

	if sig.Name == mpris.SignalNameOwnerChanged {
		if len(sig.Body) != 3 {
			return nil
		}
		if name, _ := sig.Body[0].(string); name != t.name {
			return nil
		}
		newOwner, _ := sig.Body[2].(string)
		t.setOwner(newOwner)
		return out
	}

	if sig.Path != mpris.ObjectPath || sig.Sender != t.Owner() {
		return nil
	}
	switch {
	case sig.Name == mpris.SignalPropertiesChanged,
		sig.Name == mpris.SignalSeeked,
		strings.HasPrefix(sig.Name, mpris.IfaceTrackList+"."):
		return out
	}
	return nil
}

type subscription struct {
	t     *Transport
	rules [][]dbus.MatchOption
	raw   chan *dbus.Signal
	out   chan *mpris.Signal
	done  chan struct{}
	wg    sync.WaitGroup
	once  sync.Once
}

func (s *subscription) Signals() <-chan *mpris.Signal {
	return s.out
}

func (s *subscription) forward() {
	defer s.wg.Done()
	defer close(s.out)

	for {
		select {
		case <-s.done:
			return
		case sig, ok := <-s.raw:
			if !ok {
				// connection closed
				return
			}
			msg := s.t.accept(sig)
			if msg == nil {
				continue
			}
			select {
			case s.out <- msg:
			case <-s.done:
				return
			}
		}
	}
}

// Close stops forwarding and removes the match rules. It waits for the
// forwarding goroutine to exit.
func (s *subscription) Close() error {
	s.once.Do(func() {
		s.t.conn.RemoveSignal(s.raw)
		close(s.done)
		s.wg.Wait()
		s.t.removeMatches(s.rules)
	})
	return nil
}
