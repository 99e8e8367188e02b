// Copyright 2023 The STMPS Authors
// SPDX-License-Identifier: GPL-3.0-only

package mpris

import (
	"math"
	"slices"
	"strconv"
	"time"

	"github.com/samber/mo"
)

// Well-known metadata keys.
const (
	KeyTrackID = "mpris:trackid"
	KeyLength  = "mpris:length"
	KeyArtURL  = "mpris:artUrl"
	KeyTitle   = "xesam:title"
	KeyArtist  = "xesam:artist"
	KeyAlbum   = "xesam:album"
)

// TrackID identifies a track within one player. Only equality is meaningful.
type TrackID string

// NoTrack is the track id players report when nothing is loaded.
const NoTrack TrackID = "/org/mpris/MediaPlayer2/TrackList/NoTrack"

// Metadata describes the current track. Absent fields were not sent, or not
// decodable. Rest holds every key that is not one of the well-known ones.
type Metadata struct {
	TrackID mo.Option[TrackID]
	Title   mo.Option[string]
	Artists mo.Option[[]string]
	Album   mo.Option[string]
	Length  mo.Option[time.Duration]
	ArtURL  mo.Option[string]

	Rest map[string]Value
}

// TranslateMetadata builds a Metadata record from a Metadata property
// payload. Fields with the wrong type are left out; each problem is
// reported in the returned slice, which is never fatal.
func TranslateMetadata(payload map[string]Value) (Metadata, []error) {
	var (
		md    = Metadata{Rest: map[string]Value{}}
		diags []error
	)

	for key, v := range payload {
		switch key {
		case KeyTrackID:
			if s, ok := v.AsString(); ok {
				md.TrackID = mo.Some(TrackID(s))
			} else {
				diags = append(diags, &FieldTypeError{Field: key, Got: v.Kind()})
			}

		case KeyTitle:
			if s, ok := v.AsString(); ok {
				md.Title = mo.Some(s)
			} else {
				diags = append(diags, &FieldTypeError{Field: key, Got: v.Kind()})
			}

		case KeyAlbum:
			if s, ok := v.AsString(); ok {
				md.Album = mo.Some(s)
			} else {
				diags = append(diags, &FieldTypeError{Field: key, Got: v.Kind()})
			}

		case KeyArtURL:
			if s, ok := v.AsString(); ok {
				md.ArtURL = mo.Some(s)
			} else {
				diags = append(diags, &FieldTypeError{Field: key, Got: v.Kind()})
			}

		case KeyArtist:
			if ss, ok := v.AsStrings(); ok {
				md.Artists = mo.Some(ss)
			} else if s, ok := v.AsString(); ok {
				// some players send a single string
				md.Artists = mo.Some([]string{s})
			} else {
				diags = append(diags, &FieldTypeError{Field: key, Got: v.Kind()})
			}

		case KeyLength:
			length, err := lengthOf(v)
			if err != nil {
				diags = append(diags, err)
			}
			if length.IsPresent() {
				md.Length = length
			}

		default:
			md.Rest[key] = v
		}
	}

	return md, diags
}

// lengthOf converts a microsecond count. Negative values clamp to zero and
// values beyond the Duration range saturate; both are reported.
func lengthOf(v Value) (mo.Option[time.Duration], error) {
	var us int64
	switch v.Kind() {
	case KindInt, KindUint:
		us, _ = v.AsInt64()
		if u, isUint := v.Interface().(uint64); isUint && u > math.MaxInt64 {
			return mo.Some(time.Duration(math.MaxInt64)),
				&FieldRangeError{Field: KeyLength, Value: strconv.FormatUint(u, 10)}
		}
	case KindFloat:
		f, _ := v.AsFloat64()
		if math.IsNaN(f) {
			return mo.None[time.Duration](), &FieldRangeError{Field: KeyLength, Value: "NaN"}
		}
		switch {
		case f >= math.MaxInt64:
			us = math.MaxInt64
		case f <= math.MinInt64:
			us = math.MinInt64
		default:
			us = int64(f)
		}
	default:
		return mo.None[time.Duration](), &FieldTypeError{Field: KeyLength, Got: v.Kind()}
	}

	if us < 0 {
		return mo.Some(time.Duration(0)), &FieldRangeError{Field: KeyLength, Value: strconv.FormatInt(us, 10)}
	}
	if us > math.MaxInt64/int64(time.Microsecond) {
		return mo.Some(time.Duration(math.MaxInt64)), &FieldRangeError{Field: KeyLength, Value: strconv.FormatInt(us, 10)}
	}
	return mo.Some(time.Duration(us) * time.Microsecond), nil
}

// Equal compares every field, including Rest.
func (m Metadata) Equal(o Metadata) bool {
	return m.TrackID == o.TrackID &&
		m.Title == o.Title &&
		m.Album == o.Album &&
		m.Length == o.Length &&
		m.ArtURL == o.ArtURL &&
		m.Artists.IsPresent() == o.Artists.IsPresent() &&
		slices.Equal(m.Artists.OrEmpty(), o.Artists.OrEmpty()) &&
		mapsEqual(m.Rest, o.Rest)
}

// SameTrack reports whether both records describe the same track. The track
// id decides when both have one; otherwise title, artists and album do.
func (m Metadata) SameTrack(o Metadata) bool {
	a, aok := m.TrackID.Get()
	b, bok := o.TrackID.Get()
	if aok && bok {
		return a == b
	}
	if aok != bok {
		return false
	}
	return m.Title == o.Title &&
		m.Album == o.Album &&
		slices.Equal(m.Artists.OrEmpty(), o.Artists.OrEmpty())
}

// Clone returns a copy that shares nothing mutable with m.
func (m Metadata) Clone() Metadata {
	c := m
	if artists, ok := m.Artists.Get(); ok {
		c.Artists = mo.Some(slices.Clone(artists))
	}
	if m.Rest != nil {
		c.Rest = make(map[string]Value, len(m.Rest))
		for k, v := range m.Rest {
			c.Rest[k] = v
		}
	}
	return c
}

// Wire converts the record back into the Metadata property shape. Values
// in Rest are passed on as plain Go data.
func (m Metadata) Wire() map[string]interface{} {
	out := make(map[string]interface{}, len(m.Rest)+6)
	for k, v := range m.Rest {
		out[k] = v.Interface()
	}
	if id, ok := m.TrackID.Get(); ok {
		out[KeyTrackID] = string(id)
	}
	if s, ok := m.Title.Get(); ok {
		out[KeyTitle] = s
	}
	if ss, ok := m.Artists.Get(); ok {
		out[KeyArtist] = ss
	}
	if s, ok := m.Album.Get(); ok {
		out[KeyAlbum] = s
	}
	if d, ok := m.Length.Get(); ok {
		out[KeyLength] = d.Microseconds()
	}
	if s, ok := m.ArtURL.Get(); ok {
		out[KeyArtURL] = s
	}
	return out
}
