// Copyright 2023 The STMPS Authors
// SPDX-License-Identifier: GPL-3.0-only

package remote

import (
	"errors"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
	"github.com/godbus/dbus/v5/prop"
	"github.com/spezifisch/mprisctl/logger"
	"github.com/spezifisch/mprisctl/mpris"
)

const (
	minimumRate = 0.25
	maximumRate = 4.0
)

// MprisPlayer exports a ControlledPlayer on the bus as
// org.mpris.MediaPlayer2.<name>.
type MprisPlayer struct {
	dbus    *dbus.Conn
	name    string
	player  ControlledPlayer
	props   *prop.Properties
	logger  logger.LoggerInterface
	methods *playerMethods
}

// playerMethods holds the org.mpris.MediaPlayer2.Player methods so that
// nothing else gets exported.
type playerMethods struct {
	m *MprisPlayer
}

type rootMethods struct{}

func RegisterMprisPlayer(conn *dbus.Conn, name string, player ControlledPlayer, logger_ logger.LoggerInterface) (mpp *MprisPlayer, err error) {
	if logger_ == nil {
		logger_ = logger.Nop()
	}
	mpp = &MprisPlayer{
		dbus:   conn,
		name:   mpris.BusNamePrefix + name,
		player: player,
		logger: logger_,
	}
	mpp.methods = &playerMethods{m: mpp}

	if err = conn.Export(mpp.methods, mpris.ObjectPath, mpris.IfacePlayer); err != nil {
		return nil, err
	}
	if err = conn.Export(rootMethods{}, mpris.ObjectPath, mpris.IfaceRoot); err != nil {
		return nil, err
	}

	status := player.GetStatus()
	var mprisPlayer = map[string]*prop.Prop{
		"CanControl":    {Value: true, Writable: false, Emit: prop.EmitConst, Callback: nil},
		"CanGoNext":     {Value: true, Writable: false, Emit: prop.EmitConst, Callback: nil},
		"CanGoPrevious": {Value: true, Writable: false, Emit: prop.EmitConst, Callback: nil},
		"CanPause":      {Value: true, Writable: false, Emit: prop.EmitConst, Callback: nil},
		"CanPlay":       {Value: true, Writable: false, Emit: prop.EmitConst, Callback: nil},
		"CanSeek":       {Value: true, Writable: false, Emit: prop.EmitConst, Callback: nil},
		"MinimumRate":   {Value: minimumRate, Writable: false, Emit: prop.EmitConst, Callback: nil},
		"MaximumRate":   {Value: maximumRate, Writable: false, Emit: prop.EmitConst, Callback: nil},

		mpris.PropPlaybackStatus: {Value: status.PlaybackStatus, Writable: false, Emit: prop.EmitTrue, Callback: nil},
		mpris.PropMetadata:       {Value: trackMetadata(status.Track), Writable: false, Emit: prop.EmitTrue, Callback: nil},
		mpris.PropPosition:       {Value: status.Position.Microseconds(), Writable: false, Emit: prop.EmitFalse, Callback: nil},
		mpris.PropVolume:         {Value: status.Volume, Writable: true, Emit: prop.EmitTrue, Callback: mpp.volumeChange},
		mpris.PropRate:           {Value: status.Rate, Writable: true, Emit: prop.EmitTrue, Callback: mpp.rateChange},
		mpris.PropLoopStatus:     {Value: status.LoopStatus, Writable: true, Emit: prop.EmitTrue, Callback: mpp.loopChange},
		mpris.PropShuffle:        {Value: status.Shuffle, Writable: true, Emit: prop.EmitTrue, Callback: mpp.shuffleChange},
	}

	var mediaPlayer = map[string]*prop.Prop{
		"CanQuit":             {Value: false, Writable: false, Emit: prop.EmitConst, Callback: nil},
		"CanRaise":            {Value: false, Writable: false, Emit: prop.EmitConst, Callback: nil},
		"HasTrackList":        {Value: false, Writable: false, Emit: prop.EmitConst, Callback: nil},
		"Identity":            {Value: "mprisctl " + name, Writable: false, Emit: prop.EmitConst, Callback: nil},
		"SupportedUriSchemes": {Value: []string{}, Writable: false, Emit: prop.EmitConst, Callback: nil},
		"SupportedMimeTypes":  {Value: []string{}, Writable: false, Emit: prop.EmitConst, Callback: nil},
	}

	mpp.props, err = prop.Export(
		conn,
		mpris.ObjectPath,
		map[string]map[string]*prop.Prop{
			mpris.IfaceRoot:   mediaPlayer,
			mpris.IfacePlayer: mprisPlayer,
		},
	)
	if err != nil {
		return nil, err
	}

	n := &introspect.Node{
		Name: mpris.ObjectPath,
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			prop.IntrospectData,
			{
				Name:       mpris.IfaceRoot,
				Methods:    introspect.Methods(rootMethods{}),
				Properties: mpp.props.Introspection(mpris.IfaceRoot),
			},
			{
				Name:       mpris.IfacePlayer,
				Methods:    introspect.Methods(mpp.methods),
				Properties: mpp.props.Introspection(mpris.IfacePlayer),
				Signals: []introspect.Signal{{
					Name: "Seeked",
					Args: []introspect.Arg{{Name: "Position", Type: "x", Direction: "out"}},
				}},
			},
		},
	}
	err = conn.Export(introspect.NewIntrospectable(n), mpris.ObjectPath, "org.freedesktop.DBus.Introspectable")
	if err != nil {
		return nil, err
	}

	player.OnChange(mpp.publish)
	player.OnSeek(mpp.seeked)

	reply, err := conn.RequestName(mpp.name, dbus.NameFlagDoNotQueue)
	if err != nil {
		return nil, err
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return nil, errors.New("name already owned")
	}
	return mpp, nil
}

// Name is the bus name the player is exported under.
func (m *MprisPlayer) Name() string {
	return m.name
}

// Close gives up the bus name. The connection stays open.
func (m *MprisPlayer) Close() {
	m.player.OnChange(nil)
	m.player.OnSeek(nil)
	if _, err := m.dbus.ReleaseName(m.name); err != nil {
		m.logger.PrintError("mpp ReleaseName", err)
	}
}

// RefreshPosition stores the current position for Properties.Get. Position
// changes are not signalled, so this has to run periodically.
func (m *MprisPlayer) RefreshPosition() {
	m.props.SetMust(mpris.IfacePlayer, mpris.PropPosition, m.player.GetStatus().Position.Microseconds())
}

// publish pushes changed properties, emitting PropertiesChanged for each.
func (m *MprisPlayer) publish(props []string) {
	status := m.player.GetStatus()
	for _, name := range props {
		var v interface{}
		switch name {
		case mpris.PropPlaybackStatus:
			v = status.PlaybackStatus
		case mpris.PropMetadata:
			v = trackMetadata(status.Track)
		case mpris.PropVolume:
			v = status.Volume
		case mpris.PropRate:
			v = status.Rate
		case mpris.PropLoopStatus:
			v = status.LoopStatus
		case mpris.PropShuffle:
			v = status.Shuffle
		default:
			continue
		}
		m.logger.Debugf("mpris: %s -> %v", name, v)
		m.props.SetMust(mpris.IfacePlayer, name, v)
	}
	m.props.SetMust(mpris.IfacePlayer, mpris.PropPosition, status.Position.Microseconds())
}

func (m *MprisPlayer) seeked(pos time.Duration) {
	m.props.SetMust(mpris.IfacePlayer, mpris.PropPosition, pos.Microseconds())
	err := m.dbus.Emit(mpris.ObjectPath, mpris.SignalSeeked, pos.Microseconds())
	if err != nil {
		m.logger.PrintError("mpris: Emit Seeked", err)
	}
}

func trackMetadata(track TrackInterface) map[string]dbus.Variant {
	if track == nil || !track.IsValid() {
		return map[string]dbus.Variant{
			mpris.KeyTrackID: dbus.MakeVariant(dbus.ObjectPath(mpris.NoTrack)),
		}
	}
	return map[string]dbus.Variant{
		mpris.KeyTrackID: dbus.MakeVariant(dbus.ObjectPath(track.GetID())),
		mpris.KeyLength:  dbus.MakeVariant(track.GetDuration().Microseconds()),
		mpris.KeyTitle:   dbus.MakeVariant(track.GetTitle()),
		mpris.KeyArtist:  dbus.MakeVariant([]string{track.GetArtist()}),
		mpris.KeyAlbum:   dbus.MakeVariant(track.GetAlbum()),
	}
}

// The setters run while the property store is locked, so they must not
// publish. The store emits the new value itself.
func (m *MprisPlayer) volumeChange(c *prop.Change) *dbus.Error {
	if err := m.player.SetVolume(c.Value.(float64)); err != nil {
		m.logger.PrintError("volumeChange", err)
		return dbus.MakeFailedError(err)
	}
	return nil
}

func (m *MprisPlayer) rateChange(c *prop.Change) *dbus.Error {
	rate := c.Value.(float64)
	if rate < minimumRate || rate > maximumRate {
		return dbus.NewError("org.freedesktop.DBus.Error.InvalidArgs", []interface{}{"rate out of range"})
	}
	if err := m.player.SetRate(rate); err != nil {
		return dbus.MakeFailedError(err)
	}
	return nil
}

func (m *MprisPlayer) loopChange(c *prop.Change) *dbus.Error {
	if err := m.player.SetLoopStatus(c.Value.(string)); err != nil {
		return dbus.NewError("org.freedesktop.DBus.Error.InvalidArgs", []interface{}{err.Error()})
	}
	return nil
}

func (m *MprisPlayer) shuffleChange(c *prop.Change) *dbus.Error {
	if err := m.player.SetShuffle(c.Value.(bool)); err != nil {
		return dbus.MakeFailedError(err)
	}
	return nil
}

func (p *playerMethods) do(source string, err error) *dbus.Error {
	if err != nil {
		p.m.logger.PrintError("mpp "+source, err)
		return dbus.MakeFailedError(err)
	}
	return nil
}

func (p *playerMethods) Play() *dbus.Error      { return p.do("Play", p.m.player.Play()) }
func (p *playerMethods) Pause() *dbus.Error     { return p.do("Pause", p.m.player.Pause()) }
func (p *playerMethods) PlayPause() *dbus.Error { return p.do("PlayPause", p.m.player.PlayPause()) }
func (p *playerMethods) Stop() *dbus.Error      { return p.do("Stop", p.m.player.Stop()) }
func (p *playerMethods) Next() *dbus.Error      { return p.do("Next", p.m.player.Next()) }
func (p *playerMethods) Previous() *dbus.Error  { return p.do("Previous", p.m.player.Previous()) }

func (p *playerMethods) Seek(offset int64) *dbus.Error {
	return p.do("Seek", p.m.player.Seek(time.Duration(offset)*time.Microsecond))
}

func (p *playerMethods) SetPosition(track dbus.ObjectPath, pos int64) *dbus.Error {
	return p.do("SetPosition", p.m.player.SetPosition(string(track), time.Duration(pos)*time.Microsecond))
}

func (p *playerMethods) OpenUri(string) *dbus.Error {
	return dbus.NewError("org.freedesktop.DBus.Error.NotSupported", []interface{}{"OpenUri is not supported"})
}

func (rootMethods) Raise() *dbus.Error { return nil }
func (rootMethods) Quit() *dbus.Error  { return nil }
