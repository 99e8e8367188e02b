// Copyright 2023 The STMPS Authors
// SPDX-License-Identifier: GPL-3.0-only

package remote

import (
	"errors"
	"fmt"
	"slices"

	"github.com/godbus/dbus/v5"
	"github.com/spezifisch/mprisctl/mpris"
)

var ErrNoPlayer = errors.New("no media player on the bus")

// error names meaning the player is no longer there
var peerGoneNames = []string{
	"org.freedesktop.DBus.Error.ServiceUnknown",
	"org.freedesktop.DBus.Error.NameHasNoOwner",
	"org.freedesktop.DBus.Error.UnknownObject",
}

// error names meaning the player does not implement what was asked
var unsupportedNames = []string{
	"org.freedesktop.DBus.Error.UnknownProperty",
	"org.freedesktop.DBus.Error.UnknownMethod",
	"org.freedesktop.DBus.Error.UnknownInterface",
	"org.freedesktop.DBus.Error.InvalidArgs",
	"org.freedesktop.DBus.Error.NotSupported",
	"org.freedesktop.DBus.Properties.Error.PropertyNotFound",
	"org.freedesktop.DBus.Properties.Error.InterfaceNotFound",
}

// classify tags bus errors with mpris.ErrPeerGone or mpris.ErrUnsupported.
// Other errors are returned unchanged.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var name string
	var dbusErr dbus.Error
	var dbusErrPtr *dbus.Error
	switch {
	case errors.As(err, &dbusErr):
		name = dbusErr.Name
	case errors.As(err, &dbusErrPtr):
		name = dbusErrPtr.Name
	default:
		return err
	}

	switch {
	case slices.Contains(peerGoneNames, name):
		return fmt.Errorf("%w: %w", mpris.ErrPeerGone, err)
	case slices.Contains(unsupportedNames, name):
		return fmt.Errorf("%w: %w", mpris.ErrUnsupported, err)
	}
	return fmt.Errorf("%s: %w", name, err)
}
