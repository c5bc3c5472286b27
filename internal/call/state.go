package call

// State is the local negotiation phase of one call attempt.
type State int

const (
	// StateIdle: no room joined yet.
	StateIdle State = iota

	// StateAwaitingLocalMedia: room joined, acquiring camera/microphone.
	StateAwaitingLocalMedia

	// StateReady: local tracks attached, no description exchanged yet.
	StateReady

	// StateOfferSent: local offer created, set and sent; waiting for the
	// remote answer.
	StateOfferSent

	// StateAnswerSent: remote offer applied, local answer being created.
	StateAnswerSent

	// StateStable: both descriptions applied; media flows outside this
	// machine's control.
	StateStable

	// StateClosed: terminal. The peer connection is released and must
	// not be reused; a new call needs a fresh Session.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingLocalMedia:
		return "awaiting-local-media"
	case StateReady:
		return "ready"
	case StateOfferSent:
		return "offer-sent"
	case StateAnswerSent:
		return "answer-sent"
	case StateStable:
		return "stable"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}
