package media

import (
	"testing"

	"github.com/pion/webrtc/v4"
)

func TestAcquireBestEffort(t *testing.T) {
	s := Acquire()

	// Static track construction cannot fail on any platform, so both
	// kinds are present and start enabled.
	if len(s.Tracks()) != 2 {
		t.Fatalf("tracks = %d, want 2", len(s.Tracks()))
	}
	if !s.Enabled(webrtc.RTPCodecTypeAudio) {
		t.Error("audio should start enabled")
	}
	if !s.Enabled(webrtc.RTPCodecTypeVideo) {
		t.Error("video should start enabled")
	}
}

func TestToggleFlipsOnlyMatchingKind(t *testing.T) {
	s := Acquire()

	if on := s.Toggle(webrtc.RTPCodecTypeAudio); on {
		t.Error("toggle should disable audio")
	}
	if s.Enabled(webrtc.RTPCodecTypeAudio) {
		t.Error("audio still enabled after toggle")
	}
	if !s.Enabled(webrtc.RTPCodecTypeVideo) {
		t.Error("video must be untouched by audio toggle")
	}

	if on := s.Toggle(webrtc.RTPCodecTypeAudio); !on {
		t.Error("second toggle should re-enable audio")
	}
}

func TestToggleEmptySet(t *testing.T) {
	s := &Set{}
	if on := s.Toggle(webrtc.RTPCodecTypeAudio); on {
		t.Error("empty set reports disabled")
	}
	if s.Enabled(webrtc.RTPCodecTypeVideo) {
		t.Error("empty set has nothing enabled")
	}
}
