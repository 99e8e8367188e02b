// Copyright 2023 The STMPS Authors
// SPDX-License-Identifier: GPL-3.0-only

package mpris

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/samber/lo"
	"github.com/samber/mo"
)

// PropertyChange is one new property value.
type PropertyChange struct {
	Name  string
	Value Value
}

// Change is the normalized content of one signal.
type Change struct {
	Properties []PropertyChange
	Seek       mo.Option[time.Duration]
	TrackList  bool
	OwnerLost  bool
}

func (c Change) empty() bool {
	return len(c.Properties) == 0 && c.Seek.IsAbsent() && !c.TrackList && !c.OwnerLost
}

// foldOrder fixes the order properties are applied in, so an explicit
// Position wins over the reset caused by a new track.
var foldOrder = []string{
	PropPlaybackStatus,
	PropRate,
	PropMetadata,
	PropPosition,
}

var trackListSignals = []string{
	IfaceTrackList + ".TrackListReplaced",
	IfaceTrackList + ".TrackAdded",
	IfaceTrackList + ".TrackRemoved",
	IfaceTrackList + ".TrackMetadataChanged",
}

type propertyReader interface {
	GetProperty(ctx context.Context, iface, name string) (interface{}, error)
}

// Decoder turns signals into Changes.
type Decoder struct {
	reader propertyReader
}

func NewDecoder(reader propertyReader) *Decoder {
	return &Decoder{reader: reader}
}

// Decode normalizes one signal. A *DecodeError means the signal should be
// dropped. Invalidated properties are re-read from the player; if that
// fails the error is returned together with everything that did decode.
func (d *Decoder) Decode(ctx context.Context, sig *Signal) (Change, error) {
	if sig == nil {
		return Change{}, &DecodeError{Signal: "<nil>", Reason: "empty signal"}
	}

	switch {
	case sig.Name == SignalPropertiesChanged:
		return d.decodePropertiesChanged(ctx, sig)

	case sig.Name == SignalSeeked:
		if len(sig.Body) != 1 {
			return Change{}, &DecodeError{Signal: sig.Name, Reason: fmt.Sprintf("want 1 argument, got %d", len(sig.Body))}
		}
		us, ok := ValueOf(sig.Body[0]).AsInt64()
		if !ok {
			return Change{}, &DecodeError{Signal: sig.Name, Reason: "position is not an integer"}
		}
		if us < 0 {
			us = 0
		}
		return Change{Seek: mo.Some(microseconds(us))}, nil

	case slices.Contains(trackListSignals, sig.Name):
		return Change{TrackList: true}, nil

	case sig.Name == SignalNameOwnerChanged:
		if len(sig.Body) != 3 {
			return Change{}, &DecodeError{Signal: sig.Name, Reason: fmt.Sprintf("want 3 arguments, got %d", len(sig.Body))}
		}
		newOwner, ok := ValueOf(sig.Body[2]).AsString()
		if !ok {
			return Change{}, &DecodeError{Signal: sig.Name, Reason: "owner is not a string"}
		}
		return Change{OwnerLost: newOwner == ""}, nil
	}

	return Change{}, &DecodeError{Signal: sig.Name, Reason: "unknown signal"}
}

func (d *Decoder) decodePropertiesChanged(ctx context.Context, sig *Signal) (Change, error) {
	if len(sig.Body) != 3 {
		return Change{}, &DecodeError{Signal: sig.Name, Reason: fmt.Sprintf("want 3 arguments, got %d", len(sig.Body))}
	}
	iface, ok := ValueOf(sig.Body[0]).AsString()
	if !ok {
		return Change{}, &DecodeError{Signal: sig.Name, Reason: "interface name is not a string"}
	}
	changed, ok := ValueOf(sig.Body[1]).AsMap()
	if !ok {
		return Change{}, &DecodeError{Signal: sig.Name, Reason: "changed properties is not a map"}
	}
	invalidated, ok := ValueOf(sig.Body[2]).AsStrings()
	if !ok {
		return Change{}, &DecodeError{Signal: sig.Name, Reason: "invalidated properties is not a string list"}
	}

	switch iface {
	case IfaceTrackList:
		return Change{TrackList: true}, nil
	case IfacePlayer:
	default:
		// root interface properties (Identity, CanQuit...) are not tracked
		return Change{}, nil
	}

	var change Change
	for name, v := range changed {
		change.Properties = append(change.Properties, PropertyChange{Name: name, Value: v})
	}

	var errs []error
	for _, name := range lo.Uniq(invalidated) {
		if _, dup := changed[name]; dup {
			continue
		}
		raw, err := d.reader.GetProperty(ctx, IfacePlayer, name)
		if errors.Is(err, ErrUnsupported) {
			continue
		}
		if err != nil {
			errs = append(errs, wrapTransport("re-read "+name, err))
			if errors.Is(err, ErrPeerGone) {
				break
			}
			continue
		}
		change.Properties = append(change.Properties, PropertyChange{Name: name, Value: ValueOf(raw)})
	}

	sortProperties(change.Properties)
	return change, errors.Join(errs...)
}

func sortProperties(props []PropertyChange) {
	rank := func(name string) int {
		if i := slices.Index(foldOrder, name); i >= 0 {
			return i
		}
		return len(foldOrder)
	}
	slices.SortStableFunc(props, func(a, b PropertyChange) int {
		if ra, rb := rank(a.Name), rank(b.Name); ra != rb {
			return ra - rb
		}
		if a.Name < b.Name {
			return -1
		}
		if a.Name > b.Name {
			return 1
		}
		return 0
	})
}
