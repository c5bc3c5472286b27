package call

import (
	"log/slog"
	"sync"
	"time"

	"github.com/pion/webrtc/v4"

	"github.com/quicktalk/quicktalk/internal/client"
	"github.com/quicktalk/quicktalk/internal/media"
	"github.com/quicktalk/quicktalk/internal/signaling"
)

// signalTimeout bounds the wait for coordinator responses.
const signalTimeout = 30 * time.Second

// Signaler sends signaling messages towards the coordinator. Satisfied by
// *client.Client; tests substitute an in-memory loopback.
type Signaler interface {
	Send(msg *signaling.Message)
}

// ChatMessage is one entry of the local transcript.
type ChatMessage struct {
	Sender string
	Text   string
	Mine   bool
	At     time.Time
}

// EventKind discriminates Session events.
type EventKind int

const (
	EventStateChange EventKind = iota
	EventPeerJoined
	EventPeerLeft
	EventChat
	EventError
)

// Event is a notification from the session to its UI.
type Event struct {
	Kind  EventKind
	State State
	Peer  string
	Chat  ChatMessage
	Err   string
}

// Session is the negotiation state machine for one call attempt. It owns
// exactly one peer connection; once Closed it must be discarded and a new
// Session created for the next call.
type Session struct {
	sig         Signaler
	handler     *client.Handler
	iceServers  []webrtc.ICEServer
	displayName string

	mu         sync.Mutex
	state      State
	roomID     string
	caller     bool
	peerName   string
	pc         *webrtc.PeerConnection
	tracks     *media.Set
	pending    []webrtc.ICECandidateInit
	transcript []ChatMessage
	sent       int
	received   int
	startedAt  time.Time

	events       chan Event
	eventsClosed bool
	done         chan struct{}
}

// NewSession creates an idle session bound to one signaling connection.
func NewSession(sig Signaler, handler *client.Handler, iceServers []webrtc.ICEServer, displayName string) *Session {
	return &Session{
		sig:         sig,
		handler:     handler,
		iceServers:  iceServers,
		displayName: displayName,
		state:       StateIdle,
		events:      make(chan Event, 64),
		done:        make(chan struct{}),
	}
}

// Events returns the notification channel consumed by the UI.
func (s *Session) Events() <-chan Event {
	return s.events
}

// State returns the current negotiation phase.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// RoomID returns the bound room id, once created or joined.
func (s *Session) RoomID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roomID
}

// PeerName returns the display name of the other member, if known.
func (s *Session) PeerName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peerName
}

// CreateRoom asks the coordinator for a room and binds the session to it.
// The creator takes the caller role: it will send the offer once a peer
// joins.
func (s *Session) CreateRoom(requestedID string) (string, error) {
	s.sig.Send(&signaling.Message{
		Type: signaling.TypeCreateRoom,
		Payload: signaling.MustMarshal(signaling.CreateRoomPayload{
			RoomID:      requestedID,
			DisplayName: s.displayName,
		}),
	})

	select {
	case roomID := <-s.handler.RoomCreated:
		s.mu.Lock()
		s.roomID = roomID
		s.caller = true
		s.mu.Unlock()
		return roomID, nil

	case errMsg := <-s.handler.Error:
		return "", WrapError("create room", ErrSignalingError, errMsg)

	case <-s.handler.Done:
		return "", NewError("create room", ErrPeerDisconnected)

	case <-time.After(signalTimeout):
		return "", NewError("create room", ErrTimeout)
	}
}

// JoinRoom joins an existing room as the callee.
func (s *Session) JoinRoom(roomID string) (*signaling.PeerInfo, error) {
	s.sig.Send(&signaling.Message{
		Type: signaling.TypeJoinRoom,
		Payload: signaling.MustMarshal(signaling.JoinRoomPayload{
			RoomID:      roomID,
			DisplayName: s.displayName,
		}),
	})

	select {
	case payload := <-s.handler.JoinSuccess:
		s.mu.Lock()
		s.roomID = payload.RoomID
		if payload.Peer != nil {
			s.peerName = payload.Peer.DisplayName
		}
		s.mu.Unlock()
		return payload.Peer, nil

	case errMsg := <-s.handler.Error:
		return nil, WrapError("join room", ErrSignalingError, errMsg)

	case <-s.handler.Done:
		return nil, NewError("join room", ErrPeerDisconnected)

	case <-time.After(signalTimeout):
		return nil, NewError("join room", ErrTimeout)
	}
}

// Start acquires local media, builds the peer connection and launches the
// event loop. Media acquisition is best effort: a chat-only call with zero
// tracks is still valid.
func (s *Session) Start() error {
	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return NewError("start", ErrClosed)
	}
	s.setStateLocked(StateAwaitingLocalMedia)
	s.mu.Unlock()

	tracks := media.Acquire()

	pc, err := s.buildPeerConnection(tracks)
	if err != nil {
		s.Close()
		return NewError("create peer connection", err)
	}

	s.mu.Lock()
	if s.state == StateClosed {
		// Closed while acquiring media; release immediately.
		s.mu.Unlock()
		pc.Close()
		return NewError("start", ErrClosed)
	}
	s.pc = pc
	s.tracks = tracks
	s.startedAt = time.Now()
	s.setStateLocked(StateReady)
	s.mu.Unlock()

	go s.run()
	return nil
}

// buildPeerConnection assembles a peer connection with the local tracks
// attached and candidate trickling installed. Track attachment is best
// effort, matching Acquire.
func (s *Session) buildPeerConnection(tracks *media.Set) (*webrtc.PeerConnection, error) {
	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{ICEServers: s.iceServers})
	if err != nil {
		return nil, err
	}

	for _, t := range tracks.Tracks() {
		if _, err := pc.AddTrack(t.Local()); err != nil {
			slog.Warn("failed to attach track, continuing without it",
				"kind", t.Kind(), "error", err)
		}
	}

	pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			return
		}
		s.sendLocalCandidate(c)
	})

	return pc, nil
}

// run drives the machine from inbound signaling events. It is the only
// goroutine that applies descriptions, so at most one negotiation step is
// in flight at a time.
func (s *Session) run() {
	for {
		select {
		case peer := <-s.handler.PeerJoined:
			s.mu.Lock()
			s.peerName = peer.DisplayName
			s.mu.Unlock()
			s.emit(Event{Kind: EventPeerJoined, Peer: peer.DisplayName})
			if s.isCaller() {
				s.sendOffer()
			}

		case desc := <-s.handler.Offer:
			s.handleRemoteOffer(desc)

		case desc := <-s.handler.Answer:
			s.handleRemoteAnswer(desc)

		case candidate := <-s.handler.Candidate:
			s.handleRemoteCandidate(candidate)

		case chat := <-s.handler.Chat:
			s.appendChat(ChatMessage{
				Sender: chat.SenderName,
				Text:   chat.Text,
				At:     time.Now(),
			})

		case <-s.handler.PeerLeft:
			s.emit(Event{Kind: EventPeerLeft})
			s.Close()
			return

		case errMsg := <-s.handler.Error:
			s.emit(Event{Kind: EventError, Err: errMsg})
			s.Close()
			return

		case <-s.handler.Done:
			// Transport dropped; same as the peer leaving.
			s.emit(Event{Kind: EventPeerLeft})
			s.Close()
			return

		case <-s.done:
			return
		}
	}
}

func (s *Session) isCaller() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.caller
}

// sendOffer creates and sends the local offer. Only valid from Ready.
func (s *Session) sendOffer() {
	s.mu.Lock()
	if s.state != StateReady {
		s.mu.Unlock()
		return
	}
	pc := s.pc
	roomID := s.roomID
	s.mu.Unlock()

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		s.fail("create offer", err)
		return
	}
	if err := pc.SetLocalDescription(offer); err != nil {
		s.fail("set local offer", err)
		return
	}

	s.mu.Lock()
	if s.state != StateReady {
		s.mu.Unlock()
		return
	}
	s.setStateLocked(StateOfferSent)
	s.mu.Unlock()

	s.sig.Send(&signaling.Message{
		Type:   signaling.TypeOffer,
		RoomID: roomID,
		Payload: signaling.MustMarshal(signaling.SessionDescriptionPayload{
			Type: offer.Type.String(),
			SDP:  offer.SDP,
		}),
	})
}

// handleRemoteOffer applies an inbound offer and answers it. From Ready
// this is the plain callee path. From OfferSent it is glare: both sides
// offered at once, and the later offer wins, so the pending local offer is
// abandoned first. From Stable it is a renegotiation request.
func (s *Session) handleRemoteOffer(desc *signaling.SessionDescriptionPayload) {
	s.mu.Lock()
	switch s.state {
	case StateReady, StateOfferSent, StateStable:
	default:
		s.mu.Unlock()
		return
	}
	glare := s.state == StateOfferSent
	pc := s.pc
	tracks := s.tracks
	roomID := s.roomID
	s.mu.Unlock()

	if glare {
		// Pion cannot roll a local offer back, so the losing offer is
		// abandoned with its whole peer connection and a fresh one
		// answers. Candidates queued for the winning offer stay queued.
		fresh, err := s.buildPeerConnection(tracks)
		if err != nil {
			s.fail("rebuild peer connection", err)
			return
		}

		s.mu.Lock()
		if s.state == StateClosed {
			s.mu.Unlock()
			fresh.Close()
			return
		}
		s.pc = fresh
		s.mu.Unlock()

		if err := pc.Close(); err != nil {
			slog.Warn("error closing abandoned peer connection", "error", err)
		}
		pc = fresh
	}

	remote := webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: desc.SDP}
	if err := pc.SetRemoteDescription(remote); err != nil {
		s.fail("set remote offer", err)
		return
	}

	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	s.setStateLocked(StateAnswerSent)
	s.mu.Unlock()

	s.flushPendingCandidates(pc)

	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		s.fail("create answer", err)
		return
	}
	if err := pc.SetLocalDescription(answer); err != nil {
		s.fail("set local answer", err)
		return
	}

	s.sig.Send(&signaling.Message{
		Type:   signaling.TypeAnswer,
		RoomID: roomID,
		Payload: signaling.MustMarshal(signaling.SessionDescriptionPayload{
			Type: answer.Type.String(),
			SDP:  answer.SDP,
		}),
	})

	s.mu.Lock()
	if s.state == StateAnswerSent {
		s.setStateLocked(StateStable)
	}
	s.mu.Unlock()
}

// handleRemoteAnswer applies the answer to our offer. Answers arriving in
// any other state are stale and ignored.
func (s *Session) handleRemoteAnswer(desc *signaling.SessionDescriptionPayload) {
	s.mu.Lock()
	if s.state != StateOfferSent {
		s.mu.Unlock()
		return
	}
	pc := s.pc
	s.mu.Unlock()

	remote := webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: desc.SDP}
	if err := pc.SetRemoteDescription(remote); err != nil {
		s.fail("set remote answer", err)
		return
	}

	s.flushPendingCandidates(pc)

	s.mu.Lock()
	if s.state == StateOfferSent {
		s.setStateLocked(StateStable)
	}
	s.mu.Unlock()
}

// handleRemoteCandidate applies an inbound candidate, or buffers it when
// no remote description exists yet. Buffered candidates flush in receipt
// order right after the remote description is set.
func (s *Session) handleRemoteCandidate(payload *signaling.ICECandidatePayload) {
	init := webrtc.ICECandidateInit{
		Candidate:        payload.Candidate,
		SDPMid:           payload.SDPMid,
		SDPMLineIndex:    payload.SDPMLineIndex,
		UsernameFragment: payload.UsernameFragment,
	}

	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	pc := s.pc
	if pc == nil || pc.RemoteDescription() == nil {
		s.pending = append(s.pending, init)
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	// A bad candidate costs one path, not the call. Glare leaves stale
	// candidates from abandoned offers in flight, and those must not
	// terminate an otherwise healthy negotiation.
	if err := pc.AddICECandidate(init); err != nil {
		slog.Warn("dropping unusable candidate", "error", err)
	}
}

// flushPendingCandidates drains the queue in order, dropping any entry the
// peer connection rejects. Caller must not hold mu.
func (s *Session) flushPendingCandidates(pc *webrtc.PeerConnection) {
	s.mu.Lock()
	queued := s.pending
	s.pending = nil
	s.mu.Unlock()

	for _, init := range queued {
		if err := pc.AddICECandidate(init); err != nil {
			slog.Warn("dropping unusable candidate", "error", err)
		}
	}
}

// sendLocalCandidate trickles a discovered candidate to the peer. Fired by
// pion once a local description is set; candidates after Closed are
// dropped.
func (s *Session) sendLocalCandidate(c *webrtc.ICECandidate) {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	roomID := s.roomID
	s.mu.Unlock()

	init := c.ToJSON()
	s.sig.Send(&signaling.Message{
		Type:   signaling.TypeICECandidate,
		RoomID: roomID,
		Payload: signaling.MustMarshal(signaling.ICECandidatePayload{
			Candidate:        init.Candidate,
			SDPMid:           init.SDPMid,
			SDPMLineIndex:    init.SDPMLineIndex,
			UsernameFragment: init.UsernameFragment,
		}),
	})
}

// SendChat relays a chat line to the room and echoes it into the local
// transcript immediately, without waiting for any round trip.
func (s *Session) SendChat(text string) {
	if text == "" {
		return
	}

	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	roomID := s.roomID
	s.sent++
	s.mu.Unlock()

	s.appendChat(ChatMessage{
		Sender: s.displayName,
		Text:   text,
		Mine:   true,
		At:     time.Now(),
	})

	s.sig.Send(&signaling.Message{
		Type:   signaling.TypeChatMessage,
		RoomID: roomID,
		Payload: signaling.MustMarshal(signaling.ChatPayload{
			SenderName: s.displayName,
			Text:       text,
		}),
	})
}

func (s *Session) appendChat(msg ChatMessage) {
	s.mu.Lock()
	s.transcript = append(s.transcript, msg)
	if !msg.Mine {
		s.received++
	}
	s.mu.Unlock()

	s.emit(Event{Kind: EventChat, Chat: msg})
}

// Transcript returns a copy of the ordered local transcript.
func (s *Session) Transcript() []ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ChatMessage, len(s.transcript))
	copy(out, s.transcript)
	return out
}

// ToggleAudio flips audio enablement and reports the new value. No
// offer/answer round happens: the tracks stay attached.
func (s *Session) ToggleAudio() bool {
	s.mu.Lock()
	tracks := s.tracks
	s.mu.Unlock()
	if tracks == nil {
		return false
	}
	return tracks.Toggle(webrtc.RTPCodecTypeAudio)
}

// ToggleVideo flips video enablement, renegotiation-free like ToggleAudio.
func (s *Session) ToggleVideo() bool {
	s.mu.Lock()
	tracks := s.tracks
	s.mu.Unlock()
	if tracks == nil {
		return false
	}
	return tracks.Toggle(webrtc.RTPCodecTypeVideo)
}

// Leave announces the departure to the coordinator and tears the call
// down. The peer connection is released before the leave is sent, matching
// local hangup semantics.
func (s *Session) Leave() {
	s.mu.Lock()
	roomID := s.roomID
	closed := s.state == StateClosed
	s.mu.Unlock()

	s.Close()

	if !closed && roomID != "" {
		s.sig.Send(&signaling.Message{Type: signaling.TypeLeaveRoom, RoomID: roomID})
	}
}

// Close transitions to Closed and releases the peer connection. Closed is
// terminal: every later event, completion or Close call is a no-op.
func (s *Session) Close() {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	pc := s.pc
	s.pc = nil
	s.pending = nil
	s.setStateLocked(StateClosed)
	// The final state change above is the last event; closing lets any
	// consumer ranging over Events terminate.
	s.eventsClosed = true
	close(s.events)
	close(s.done)
	s.mu.Unlock()

	if pc != nil {
		if err := pc.Close(); err != nil {
			slog.Warn("error closing peer connection", "error", err)
		}
	}
}

// fail logs a negotiation failure and terminates the call rather than
// leaving it stuck in an intermediate state.
func (s *Session) fail(op string, err error) {
	s.mu.Lock()
	closed := s.state == StateClosed
	s.mu.Unlock()
	if closed {
		// Late completion after teardown; not an error.
		return
	}

	slog.Error("negotiation failed", "op", op, "error", err)
	s.emit(Event{Kind: EventError, Err: NewError(op, err).Error()})
	s.Close()
}

// setStateLocked transitions state and emits the change. Caller holds mu.
func (s *Session) setStateLocked(next State) {
	if s.state == next {
		return
	}
	s.state = next
	s.emitLocked(Event{Kind: EventStateChange, State: next})
}

func (s *Session) emit(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emitLocked(ev)
}

// emitLocked delivers an event without blocking; a full or closed channel
// drops it. Caller holds mu.
func (s *Session) emitLocked(ev Event) {
	if s.eventsClosed {
		return
	}
	select {
	case s.events <- ev:
	default:
	}
}

// Summary captures end-of-call statistics for display.
type Summary struct {
	RoomID           string
	Peer             string
	Duration         time.Duration
	MessagesSent     int
	MessagesReceived int
}

// Stats returns the session's summary.
func (s *Session) Stats() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()

	var d time.Duration
	if !s.startedAt.IsZero() {
		d = time.Since(s.startedAt)
	}
	return Summary{
		RoomID:           s.roomID,
		Peer:             s.peerName,
		Duration:         d,
		MessagesSent:     s.sent,
		MessagesReceived: s.received,
	}
}
