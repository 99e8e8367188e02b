// Copyright 2023 The STMPS Authors
// SPDX-License-Identifier: GPL-3.0-only

package remote

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/spezifisch/mprisctl/mpris"
)

var ErrNoTracks = errors.New("demo player has no tracks")

type DemoTrack struct {
	ID     string
	Title  string
	Artist string
	Album  string
	Length time.Duration
}

var _ TrackInterface = DemoTrack{}

func (t DemoTrack) GetID() string              { return t.ID }
func (t DemoTrack) GetArtist() string          { return t.Artist }
func (t DemoTrack) GetTitle() string           { return t.Title }
func (t DemoTrack) GetAlbum() string           { return t.Album }
func (t DemoTrack) GetDuration() time.Duration { return t.Length }
func (t DemoTrack) IsValid() bool              { return t.ID != "" }

// DefaultDemoTracks is a short made-up album.
func DefaultDemoTracks() []DemoTrack {
	tracks := []DemoTrack{
		{Title: "Carrier Wave", Length: 3*time.Minute + 12*time.Second},
		{Title: "Session Bus", Length: 4*time.Minute + 5*time.Second},
		{Title: "Name Owner Changed", Length: 2*time.Minute + 48*time.Second},
		{Title: "Properties Invalidated", Length: 5*time.Minute + 31*time.Second},
	}
	for i := range tracks {
		tracks[i].ID = fmt.Sprintf("/org/mprisctl/Demo/Track/%d", i+1)
		tracks[i].Artist = "The Signal Handlers"
		tracks[i].Album = "Fallback Pull"
	}
	return tracks
}

// DemoPlayer simulates a media player with a position clock. It is safe
// for concurrent use.
type DemoPlayer struct {
	mu sync.Mutex

	tracks  []DemoTrack
	current int
	status  mpris.PlaybackStatus
	loop    mpris.LoopStatus
	shuffle bool
	volume  float64
	rate    float64

	// position at anchoredAt
	position   time.Duration
	anchoredAt time.Time
	now        func() time.Time

	onChange func([]string)
	onSeek   func(time.Duration)
}

var _ ControlledPlayer = (*DemoPlayer)(nil)

func NewDemoPlayer(tracks []DemoTrack) *DemoPlayer {
	return &DemoPlayer{
		tracks: tracks,
		status: mpris.Stopped,
		volume: 1,
		rate:   1,
		now:    time.Now,
	}
}

func (d *DemoPlayer) OnChange(cb func(props []string)) {
	d.mu.Lock()
	d.onChange = cb
	d.mu.Unlock()
}

func (d *DemoPlayer) OnSeek(cb func(pos time.Duration)) {
	d.mu.Lock()
	d.onSeek = cb
	d.mu.Unlock()
}

// notify runs the callbacks. It must be called without d.mu held.
func (d *DemoPlayer) notify(props []string, seeked bool) {
	d.mu.Lock()
	onChange, onSeek := d.onChange, d.onSeek
	pos := d.positionLocked()
	d.mu.Unlock()

	if len(props) > 0 && onChange != nil {
		onChange(props)
	}
	if seeked && onSeek != nil {
		onSeek(pos)
	}
}

func (d *DemoPlayer) positionLocked() time.Duration {
	pos := d.position
	if d.status == mpris.Playing {
		pos += time.Duration(float64(d.now().Sub(d.anchoredAt)) * d.rate)
	}
	if len(d.tracks) > 0 && pos > d.tracks[d.current].Length {
		pos = d.tracks[d.current].Length
	}
	return pos
}

// anchorLocked freezes the running position before a status or rate change.
func (d *DemoPlayer) anchorLocked() {
	d.position = d.positionLocked()
	d.anchoredAt = d.now()
}

func (d *DemoPlayer) setStatusLocked(status mpris.PlaybackStatus) []string {
	if d.status == status {
		return nil
	}
	d.anchorLocked()
	d.status = status
	if status == mpris.Stopped {
		d.position = 0
	}
	return []string{mpris.PropPlaybackStatus}
}

func (d *DemoPlayer) Play() error {
	d.mu.Lock()
	if len(d.tracks) == 0 {
		d.mu.Unlock()
		return ErrNoTracks
	}
	props := d.setStatusLocked(mpris.Playing)
	d.mu.Unlock()
	d.notify(props, false)
	return nil
}

func (d *DemoPlayer) Pause() error {
	d.mu.Lock()
	var props []string
	if d.status == mpris.Playing {
		props = d.setStatusLocked(mpris.Paused)
	}
	d.mu.Unlock()
	d.notify(props, false)
	return nil
}

func (d *DemoPlayer) PlayPause() error {
	d.mu.Lock()
	playing := d.status == mpris.Playing
	d.mu.Unlock()
	if playing {
		return d.Pause()
	}
	return d.Play()
}

func (d *DemoPlayer) Stop() error {
	d.mu.Lock()
	props := d.setStatusLocked(mpris.Stopped)
	d.mu.Unlock()
	d.notify(props, false)
	return nil
}

// skipLocked moves by delta tracks. Past either end it wraps when looping
// the playlist and stops otherwise.
func (d *DemoPlayer) skipLocked(delta int) []string {
	if len(d.tracks) == 0 {
		return nil
	}
	next := d.current + delta
	if next < 0 || next >= len(d.tracks) {
		if d.loop != mpris.LoopPlaylist {
			return d.setStatusLocked(mpris.Stopped)
		}
		next = (next + len(d.tracks)) % len(d.tracks)
	}
	d.current = next
	d.position = 0
	d.anchoredAt = d.now()
	return []string{mpris.PropMetadata}
}

func (d *DemoPlayer) Next() error {
	d.mu.Lock()
	props := d.skipLocked(1)
	d.mu.Unlock()
	d.notify(props, false)
	return nil
}

func (d *DemoPlayer) Previous() error {
	d.mu.Lock()
	props := d.skipLocked(-1)
	d.mu.Unlock()
	d.notify(props, false)
	return nil
}

func (d *DemoPlayer) Seek(offset time.Duration) error {
	d.mu.Lock()
	if len(d.tracks) == 0 {
		d.mu.Unlock()
		return ErrNoTracks
	}
	pos := d.positionLocked() + offset
	if pos < 0 {
		pos = 0
	}
	if pos > d.tracks[d.current].Length {
		props := d.skipLocked(1)
		d.mu.Unlock()
		d.notify(props, false)
		return nil
	}
	d.position = pos
	d.anchoredAt = d.now()
	d.mu.Unlock()
	d.notify(nil, true)
	return nil
}

func (d *DemoPlayer) SetPosition(trackID string, pos time.Duration) error {
	d.mu.Lock()
	if len(d.tracks) == 0 || d.tracks[d.current].ID != trackID ||
		pos < 0 || pos > d.tracks[d.current].Length {
		d.mu.Unlock()
		return nil
	}
	d.position = pos
	d.anchoredAt = d.now()
	d.mu.Unlock()
	d.notify(nil, true)
	return nil
}

func (d *DemoPlayer) SetVolume(volume float64) error {
	if volume < 0 {
		return fmt.Errorf("volume %v out of range", volume)
	}
	d.mu.Lock()
	d.volume = volume
	d.mu.Unlock()
	return nil
}

func (d *DemoPlayer) SetRate(rate float64) error {
	if rate <= 0 {
		return fmt.Errorf("rate %v out of range", rate)
	}
	d.mu.Lock()
	d.anchorLocked()
	d.rate = rate
	d.mu.Unlock()
	return nil
}

func (d *DemoPlayer) SetLoopStatus(loop string) error {
	l, err := mpris.ParseLoopStatus(loop)
	if err != nil {
		return err
	}
	d.mu.Lock()
	d.loop = l
	d.mu.Unlock()
	return nil
}

func (d *DemoPlayer) SetShuffle(shuffle bool) error {
	d.mu.Lock()
	d.shuffle = shuffle
	d.mu.Unlock()
	return nil
}

// Tick handles the end of the current track: it restarts the track when
// looping it and otherwise moves on.
func (d *DemoPlayer) Tick() {
	d.mu.Lock()
	if d.status != mpris.Playing || len(d.tracks) == 0 ||
		d.positionLocked() < d.tracks[d.current].Length {
		d.mu.Unlock()
		return
	}

	if d.loop == mpris.LoopTrack {
		d.position = 0
		d.anchoredAt = d.now()
		d.mu.Unlock()
		d.notify(nil, true)
		return
	}
	props := d.skipLocked(1)
	d.mu.Unlock()
	d.notify(props, false)
}

func (d *DemoPlayer) GetStatus() PlayerStatus {
	d.mu.Lock()
	defer d.mu.Unlock()

	s := PlayerStatus{
		PlaybackStatus: d.status.String(),
		LoopStatus:     d.loop.String(),
		Shuffle:        d.shuffle,
		Volume:         d.volume,
		Rate:           d.rate,
		Position:       d.positionLocked(),
	}
	if len(d.tracks) > 0 {
		s.Track = d.tracks[d.current]
	}
	return s
}
