package call

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/pion/webrtc/v4"

	"github.com/quicktalk/quicktalk/internal/client"
	"github.com/quicktalk/quicktalk/internal/signaling"
)

// captureSignaler records every outbound message.
type captureSignaler struct {
	mu   sync.Mutex
	msgs []*signaling.Message
}

func (c *captureSignaler) Send(msg *signaling.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, msg)
}

func (c *captureSignaler) count(msgType string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, m := range c.msgs {
		if m.Type == msgType {
			n++
		}
	}
	return n
}

// loopSignaler forwards outbound messages into the other side's handler,
// playing the part of the coordinator's verbatim relay.
type loopSignaler struct {
	out chan *signaling.Message
}

func newLoopSignaler() *loopSignaler {
	return &loopSignaler{out: make(chan *signaling.Message, 64)}
}

func (l *loopSignaler) Send(msg *signaling.Message) {
	l.out <- msg
}

// relay pumps one direction of the loopback until the test ends.
func relay(t *testing.T, from *loopSignaler, to *client.Handler, stop <-chan struct{}) {
	t.Helper()

	go func() {
		for {
			select {
			case msg := <-from.out:
				switch msg.Type {
				case signaling.TypeOffer:
					var desc signaling.SessionDescriptionPayload
					json.Unmarshal(msg.Payload, &desc)
					to.Offer <- &desc
				case signaling.TypeAnswer:
					var desc signaling.SessionDescriptionPayload
					json.Unmarshal(msg.Payload, &desc)
					to.Answer <- &desc
				case signaling.TypeICECandidate:
					var candidate signaling.ICECandidatePayload
					json.Unmarshal(msg.Payload, &candidate)
					to.Candidate <- &candidate
				case signaling.TypeChatMessage:
					var chat signaling.ChatPayload
					json.Unmarshal(msg.Payload, &chat)
					to.Chat <- &chat
				case signaling.TypeLeaveRoom:
					select {
					case to.PeerLeft <- struct{}{}:
					default:
					}
				}
			case <-stop:
				return
			}
		}
	}()
}

func waitForState(t *testing.T, s *Session, want State) {
	t.Helper()

	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if s.State() == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("state = %v, want %v", s.State(), want)
}

// remoteOffer produces a real offer SDP from an independent peer
// connection.
func remoteOffer(t *testing.T) *signaling.SessionDescriptionPayload {
	t.Helper()

	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{})
	if err != nil {
		t.Fatalf("create peer connection: %v", err)
	}
	t.Cleanup(func() { pc.Close() })

	if _, err := pc.AddTransceiverFromKind(webrtc.RTPCodecTypeAudio); err != nil {
		t.Fatalf("add audio transceiver: %v", err)
	}
	if _, err := pc.AddTransceiverFromKind(webrtc.RTPCodecTypeVideo); err != nil {
		t.Fatalf("add video transceiver: %v", err)
	}

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		t.Fatalf("create offer: %v", err)
	}
	if err := pc.SetLocalDescription(offer); err != nil {
		t.Fatalf("set local description: %v", err)
	}

	return &signaling.SessionDescriptionPayload{Type: "offer", SDP: offer.SDP}
}

// newCalleeSession builds a started session bound to room r1 as callee.
func newCalleeSession(t *testing.T, sig Signaler) (*Session, *client.Handler) {
	t.Helper()

	handler := client.NewHandler(nil)
	s := NewSession(sig, handler, nil, "bob")

	handler.JoinSuccess <- &signaling.JoinSuccessPayload{
		RoomID: "r1",
		Peer:   &signaling.PeerInfo{DisplayName: "alice"},
	}
	if _, err := s.JoinRoom("r1"); err != nil {
		t.Fatalf("JoinRoom failed: %v", err)
	}

	if err := s.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(s.Close)
	return s, handler
}

// newCallerSession builds a started session that created room r1.
func newCallerSession(t *testing.T, sig Signaler) (*Session, *client.Handler) {
	t.Helper()

	handler := client.NewHandler(nil)
	s := NewSession(sig, handler, nil, "alice")

	handler.RoomCreated <- "r1"
	if _, err := s.CreateRoom(""); err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}

	if err := s.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(s.Close)
	return s, handler
}

func hostCandidate(port uint16) *signaling.ICECandidatePayload {
	mline := uint16(0)
	return &signaling.ICECandidatePayload{
		Candidate:     "candidate:1 1 udp 2130706431 127.0.0.1 " + itoa(port) + " typ host",
		SDPMLineIndex: &mline,
	}
}

func itoa(v uint16) string {
	buf := [5]byte{}
	i := len(buf)
	for {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
		if v == 0 {
			break
		}
	}
	return string(buf[i:])
}

func TestTwoSessionsReachStable(t *testing.T) {
	stop := make(chan struct{})
	defer close(stop)

	aliceSig := newLoopSignaler()
	bobSig := newLoopSignaler()

	aliceHandler := client.NewHandler(nil)
	bobHandler := client.NewHandler(nil)

	alice := NewSession(aliceSig, aliceHandler, nil, "alice")
	bob := NewSession(bobSig, bobHandler, nil, "bob")
	t.Cleanup(alice.Close)
	t.Cleanup(bob.Close)

	aliceHandler.RoomCreated <- "r1"
	if _, err := alice.CreateRoom(""); err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}
	bobHandler.JoinSuccess <- &signaling.JoinSuccessPayload{
		RoomID: "r1",
		Peer:   &signaling.PeerInfo{DisplayName: "alice"},
	}
	if _, err := bob.JoinRoom("r1"); err != nil {
		t.Fatalf("JoinRoom failed: %v", err)
	}

	if err := alice.Start(); err != nil {
		t.Fatalf("alice Start failed: %v", err)
	}
	if err := bob.Start(); err != nil {
		t.Fatalf("bob Start failed: %v", err)
	}

	relay(t, aliceSig, bobHandler, stop)
	relay(t, bobSig, aliceHandler, stop)

	// The join causes the coordinator to notify the creator.
	aliceHandler.PeerJoined <- &signaling.PeerInfo{DisplayName: "bob"}

	waitForState(t, alice, StateStable)
	waitForState(t, bob, StateStable)

	if alice.PeerName() != "bob" {
		t.Errorf("alice peer = %q, want bob", alice.PeerName())
	}
}

func TestChatOptimisticEchoAndDelivery(t *testing.T) {
	stop := make(chan struct{})
	defer close(stop)

	aliceSig := newLoopSignaler()
	peerHandler := client.NewHandler(nil)
	relay(t, aliceSig, peerHandler, stop)

	aliceHandler := client.NewHandler(nil)
	alice := NewSession(aliceSig, aliceHandler, nil, "alice")
	t.Cleanup(alice.Close)
	aliceHandler.RoomCreated <- "r1"
	if _, err := alice.CreateRoom(""); err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}
	if err := alice.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	alice.SendChat("hello")

	// Own message lands in the transcript immediately, no round trip.
	transcript := alice.Transcript()
	if len(transcript) != 1 || !transcript[0].Mine || transcript[0].Text != "hello" {
		t.Fatalf("transcript = %+v, want own hello", transcript)
	}

	// Delivered side appends on receipt.
	select {
	case chat := <-peerHandler.Chat:
		if chat.SenderName != "alice" || chat.Text != "hello" {
			t.Errorf("chat = %+v", chat)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("chat never relayed")
	}
}

func TestCandidatesBufferedUntilRemoteDescription(t *testing.T) {
	sig := &captureSignaler{}
	s, handler := newCalleeSession(t, sig)

	// Candidates arriving before the offer must be queued, not applied
	// and never dropped.
	ports := []uint16{50000, 50001, 50002}
	for _, p := range ports {
		handler.Candidate <- hostCandidate(p)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		s.mu.Lock()
		n := len(s.pending)
		s.mu.Unlock()
		if n == len(ports) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	s.mu.Lock()
	if len(s.pending) != len(ports) {
		s.mu.Unlock()
		t.Fatalf("pending = %d, want %d", len(s.pending), len(ports))
	}
	for i, p := range ports {
		want := hostCandidate(p).Candidate
		if s.pending[i].Candidate != want {
			s.mu.Unlock()
			t.Fatalf("pending[%d] = %q, want %q (receipt order lost)", i, s.pending[i].Candidate, want)
		}
	}
	s.mu.Unlock()

	// Applying the remote offer flushes the queue in order.
	handler.Offer <- remoteOffer(t)
	waitForState(t, s, StateStable)

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) != 0 {
		t.Errorf("pending not flushed: %d left", len(s.pending))
	}
}

func TestGlareLastOfferWins(t *testing.T) {
	sig := &captureSignaler{}
	s, handler := newCallerSession(t, sig)

	handler.PeerJoined <- &signaling.PeerInfo{DisplayName: "bob"}
	waitForState(t, s, StateOfferSent)

	// The peer offered simultaneously. The inbound offer wins: the
	// pending local offer is abandoned and the remote one answered.
	handler.Offer <- remoteOffer(t)
	waitForState(t, s, StateStable)

	if sig.count(signaling.TypeOffer) != 1 {
		t.Errorf("offers sent = %d, want 1", sig.count(signaling.TypeOffer))
	}
	if sig.count(signaling.TypeAnswer) != 1 {
		t.Errorf("answers sent = %d, want 1", sig.count(signaling.TypeAnswer))
	}
}

func TestGlareKeepsBufferedCandidates(t *testing.T) {
	sig := &captureSignaler{}
	s, handler := newCallerSession(t, sig)

	handler.PeerJoined <- &signaling.PeerInfo{DisplayName: "bob"}
	waitForState(t, s, StateOfferSent)

	// Candidates for the winning remote offer can land before the offer
	// itself. They must survive the local offer being abandoned and be
	// flushed against the replacement connection.
	handler.Candidate <- hostCandidate(50000)
	handler.Candidate <- hostCandidate(50001)

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		s.mu.Lock()
		n := len(s.pending)
		s.mu.Unlock()
		if n == 2 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	handler.Offer <- remoteOffer(t)
	waitForState(t, s, StateStable)

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) != 0 {
		t.Errorf("pending not flushed after glare: %d left", len(s.pending))
	}
}

func TestCalleeAnswersOffer(t *testing.T) {
	sig := &captureSignaler{}
	s, handler := newCalleeSession(t, sig)

	handler.Offer <- remoteOffer(t)
	waitForState(t, s, StateStable)

	if sig.count(signaling.TypeAnswer) != 1 {
		t.Errorf("answers sent = %d, want 1", sig.count(signaling.TypeAnswer))
	}
	if sig.count(signaling.TypeOffer) != 0 {
		t.Errorf("callee sent %d offers, want 0", sig.count(signaling.TypeOffer))
	}
}

func TestPeerLeftClosesSession(t *testing.T) {
	sig := &captureSignaler{}
	s, handler := newCalleeSession(t, sig)

	// Peer drops mid-negotiation; the machine must not hang in an
	// intermediate state.
	handler.Offer <- remoteOffer(t)
	handler.PeerLeft <- struct{}{}

	waitForState(t, s, StateClosed)
}

func TestClosedIsTerminal(t *testing.T) {
	sig := &captureSignaler{}
	s, handler := newCalleeSession(t, sig)

	s.Close()
	if s.State() != StateClosed {
		t.Fatalf("state = %v, want closed", s.State())
	}

	// Late completions and duplicate closes are no-ops, not errors.
	s.Close()
	s.handleRemoteOffer(remoteOffer(t))
	s.handleRemoteAnswer(&signaling.SessionDescriptionPayload{Type: "answer", SDP: "v=0"})
	s.handleRemoteCandidate(hostCandidate(50000))
	s.SendChat("into the void")
	_ = handler

	if s.State() != StateClosed {
		t.Errorf("state = %v, want closed", s.State())
	}
	if sig.count(signaling.TypeChatMessage) != 0 {
		t.Error("chat sent after close")
	}
}

func TestCloseEndsEventStream(t *testing.T) {
	sig := &captureSignaler{}
	s, _ := newCalleeSession(t, sig)

	s.Close()

	// Draining past the final state change must terminate: a consumer
	// ranging over Events may not hang once the call is over.
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-s.Events():
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("events channel never closed")
		}
	}
}

func TestMuteTogglesWithoutRenegotiation(t *testing.T) {
	sig := &captureSignaler{}
	s, handler := newCalleeSession(t, sig)

	handler.Offer <- remoteOffer(t)
	waitForState(t, s, StateStable)

	offersBefore := sig.count(signaling.TypeOffer)
	answersBefore := sig.count(signaling.TypeAnswer)

	if on := s.ToggleAudio(); on {
		t.Error("first audio toggle should disable")
	}
	if on := s.ToggleAudio(); !on {
		t.Error("second audio toggle should re-enable")
	}
	if on := s.ToggleVideo(); on {
		t.Error("first video toggle should disable")
	}

	time.Sleep(100 * time.Millisecond)

	if got := sig.count(signaling.TypeOffer); got != offersBefore {
		t.Errorf("mute triggered %d new offers", got-offersBefore)
	}
	if got := sig.count(signaling.TypeAnswer); got != answersBefore {
		t.Errorf("mute triggered %d new answers", got-answersBefore)
	}
	if s.State() != StateStable {
		t.Errorf("state = %v, want stable", s.State())
	}
}

func TestCreateRoomRejectionSurfaced(t *testing.T) {
	handler := client.NewHandler(nil)
	s := NewSession(&captureSignaler{}, handler, nil, "alice")
	t.Cleanup(s.Close)

	handler.Error <- "room already exists"
	if _, err := s.CreateRoom("taken"); err == nil {
		t.Fatal("expected error")
	}
}
