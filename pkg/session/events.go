// events.go defines the payloads crossing the transport boundary. Binary
// fields are base64 strings; timestamps are decimal strings of milliseconds
// since the Unix epoch.
package session

// Emitter delivers an event to a transport target. Implementations route by
// transport address; the Broadcast target reaches every connected client.
type Emitter interface {
	Emit(event string, payload interface{}, target string) error
}

// Broadcast is the Emitter target addressing all connected clients.
const Broadcast = "*"

// RegisterPayload is the inbound register event.
type RegisterPayload struct {
	Username        string `json:"username"`
	ClassicalPubB64 string `json:"classical_pub_b64"`
}

// StartSessionPayload is the inbound payload shared by
// request_start_session, start_qkd_session, and session_ack.
type StartSessionPayload struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// RegisteredPayload confirms a registration to its sender.
type RegisteredPayload struct {
	Username  string `json:"username"`
	KEMPubB64 string `json:"kem_pub_b64"`
}

// OnlineUsersPayload is broadcast whenever the set of identities changes.
type OnlineUsersPayload struct {
	Users []string `json:"users"`
}

// KyberSharedInitiatorPayload delivers the initiator's half of a hybrid PQC
// establishment.
type KyberSharedInitiatorPayload struct {
	From       string `json:"from"`
	KyberSSB64 string `json:"kyber_ss_b64"`
	PeerPubB64 string `json:"peer_pub_b64"`
	CipherB64  string `json:"cipher_b64"`
}

// KyberReadyPeerPayload delivers the peer's half of a hybrid PQC
// establishment.
type KyberReadyPeerPayload struct {
	From            string `json:"from"`
	CipherB64       string `json:"cipher_b64"`
	InitiatorPubB64 string `json:"initiator_pub_b64"`
	KyberSSB64      string `json:"kyber_ss_b64"`
}

// QKDSharedKeyPayload delivers the QKD-derived key; both parties receive an
// identical key.
type QKDSharedKeyPayload struct {
	Peer      string `json:"peer"`
	SharedB64 string `json:"shared_b64"`
}

// SessionInitiatedPayload acknowledges a hybrid establishment request to its
// initiator.
type SessionInitiatedPayload struct {
	OK bool `json:"ok"`
}

// SessionEstablishedPayload notifies both parties once each has acknowledged
// the distributed key.
type SessionEstablishedPayload struct {
	With string `json:"with"`
	Mode string `json:"mode"`
}

// MessageDeliveredPayload confirms relay of an encrypted message to its
// sender.
type MessageDeliveredPayload struct {
	To string `json:"to"`
	OK bool   `json:"ok"`
}

// ErrorPayload is emitted for every rejected event.
type ErrorPayload struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}
