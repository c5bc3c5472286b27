package media

import (
	"log/slog"
	"sync/atomic"

	"github.com/pion/webrtc/v4"
)

// Track is one local media track plus its enablement flag. Muting flips
// the flag only; the track stays attached to the peer connection, so no
// renegotiation happens.
type Track struct {
	local   webrtc.TrackLocal
	kind    webrtc.RTPCodecType
	enabled atomic.Bool
}

// Kind reports whether this is an audio or video track.
func (t *Track) Kind() webrtc.RTPCodecType {
	return t.kind
}

// Local returns the underlying track to attach to a peer connection.
func (t *Track) Local() webrtc.TrackLocal {
	return t.local
}

// Enabled reports whether the track is live. The capture pipeline consults
// this flag and stops writing samples while it is false.
func (t *Track) Enabled() bool {
	return t.enabled.Load()
}

// Set is the opaque track set a negotiation owns. It may be empty: a call
// with no media is still valid for chat-only use.
type Set struct {
	tracks []*Track
}

// Acquire builds the local track set, best effort. A failing device never
// aborts the call; the track is skipped and the call proceeds degraded
// with whatever succeeded.
func Acquire() *Set {
	s := &Set{}

	audio, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus},
		"audio", "quicktalk",
	)
	if err != nil {
		slog.Warn("audio track unavailable, continuing without it", "error", err)
	} else {
		s.add(audio, webrtc.RTPCodecTypeAudio)
	}

	video, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8},
		"video", "quicktalk",
	)
	if err != nil {
		slog.Warn("video track unavailable, continuing without it", "error", err)
	} else {
		s.add(video, webrtc.RTPCodecTypeVideo)
	}

	return s
}

func (s *Set) add(local webrtc.TrackLocal, kind webrtc.RTPCodecType) {
	t := &Track{local: local, kind: kind}
	t.enabled.Store(true)
	s.tracks = append(s.tracks, t)
}

// Tracks returns every track in the set.
func (s *Set) Tracks() []*Track {
	return s.tracks
}

// Toggle flips the enablement of all tracks of the given kind and reports
// the new value. Toggling a kind the set has no tracks for reports false.
func (s *Set) Toggle(kind webrtc.RTPCodecType) bool {
	enabled := false
	for _, t := range s.tracks {
		if t.kind != kind {
			continue
		}
		enabled = !t.enabled.Load()
		t.enabled.Store(enabled)
	}
	return enabled
}

// Enabled reports whether any track of the given kind is live.
func (s *Set) Enabled(kind webrtc.RTPCodecType) bool {
	for _, t := range s.tracks {
		if t.kind == kind && t.enabled.Load() {
			return true
		}
	}
	return false
}
