package face

import "sync/atomic"

// Scope classifies a face's locality (spec §3 Face).
type Scope int

const (
	ScopeNonLocal Scope = iota
	ScopeLocal
)

// Persistency controls how a face reacts to a transport failure (spec §4.8).
type Persistency int

const (
	PersistencyPersistent Persistency = iota
	PersistencyOnDemand
	PersistencyPermanent
)

// Transport is the boundary to an external collaborator that moves bytes
// (spec §1: "concrete transports... are out of scope, treated as external
// collaborators"; spec §6 names this interface explicitly). Everything
// above this seam -- framing, reassembly, the Face state machine -- is
// this module's to implement; everything below it (sockets, QUIC session,
// WebSocket connection) is not.
type Transport interface {
	// Send hands one already-framed link-layer packet to the transport.
	Send(pkt []byte) error
	// SetReceiveCallback installs the function the transport invokes for
	// every inbound link-layer packet, until Close.
	SetReceiveCallback(func(pkt []byte))
	// Close tears down the transport. Idempotent.
	Close() error
	// IsRunning reports whether the transport can still accept Send calls.
	IsRunning() bool
	String() string
}

// MemoryTransport is an in-process Transport that loops packets to a peer
// MemoryTransport, used as the test double for face/linkservice/forwarder
// tests in place of a real socket (spec §6).
type MemoryTransport struct {
	name    string
	peer    *MemoryTransport
	running atomic.Bool
	recv    func(pkt []byte)
	sent    [][]byte
}

// NewMemoryTransportPair returns two MemoryTransports wired to deliver to
// each other, simulating a link between two faces.
func NewMemoryTransportPair(nameA, nameB string) (a, b *MemoryTransport) {
	a = &MemoryTransport{name: nameA}
	b = &MemoryTransport{name: nameB}
	a.peer, b.peer = b, a
	a.running.Store(true)
	b.running.Store(true)
	return a, b
}

func (t *MemoryTransport) Send(pkt []byte) error {
	if !t.running.Load() {
		return errTransportClosed
	}
	cp := append([]byte(nil), pkt...)
	t.sent = append(t.sent, cp)
	if t.peer != nil && t.peer.running.Load() && t.peer.recv != nil {
		t.peer.recv(cp)
	}
	return nil
}

func (t *MemoryTransport) SetReceiveCallback(fn func(pkt []byte)) { t.recv = fn }

func (t *MemoryTransport) Close() error {
	t.running.Store(false)
	return nil
}

func (t *MemoryTransport) IsRunning() bool { return t.running.Load() }

func (t *MemoryTransport) String() string { return "memory(" + t.name + ")" }

// Sent returns every packet handed to Send so far, for test assertions.
func (t *MemoryTransport) Sent() [][]byte { return t.sent }

type transportClosedError struct{}

func (transportClosedError) Error() string { return "transport closed" }

var errTransportClosed = transportClosedError{}
