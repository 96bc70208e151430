package face

import (
	"fmt"

	"github.com/ndn-go/ndnfwd/core"
)

// State is the Face lifecycle state (spec §4.8): UP -> DOWN -> CLOSING ->
// CLOSED on a graceful teardown, or UP -> FAILED -> CLOSED on a transport
// error. The retrieved pack's transportBase tracks only a running bool;
// this explicit state machine is an (expansion) since spec §4.8 calls out
// the states and transitions by name.
type State int

const (
	StateUp State = iota
	StateDown
	StateClosing
	StateFailed
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUp:
		return "up"
	case StateDown:
		return "down"
	case StateClosing:
		return "closing"
	case StateFailed:
		return "failed"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// StateChange is the payload of Face.AfterStateChange.
type StateChange struct {
	Face    *Face
	OldState State
	NewState State
}

// Face couples a Transport to a LinkService and exposes the lifecycle and
// counters spec §3/§4.8 define, independent of the concrete transport kind.
type Face struct {
	id          uint64
	transport   Transport
	linkService *LinkService
	persistency Persistency
	scope       Scope
	state       State

	nInInterests, nOutInterests uint64
	nInData, nOutData           uint64
	nInNacks, nOutNacks         uint64

	// AfterStateChange fires whenever the Face transitions state.
	AfterStateChange core.Signal[StateChange]
}

// NewFace constructs a Face over transport with the given persistency and
// scope, wiring ls between the Face and the transport.
func NewFace(id uint64, transport Transport, persistency Persistency, scope Scope, ls *LinkService) *Face {
	f := &Face{
		id:          id,
		transport:   transport,
		linkService: ls,
		persistency: persistency,
		scope:       scope,
		state:       StateUp,
	}
	ls.face = f
	ls.transport = transport
	transport.SetReceiveCallback(ls.handleIncoming)
	return f
}

func (f *Face) ID() uint64            { return f.id }
func (f *Face) Scope() Scope          { return f.scope }
func (f *Face) Persistency() Persistency { return f.persistency }
func (f *Face) State() State          { return f.state }
func (f *Face) LinkService() *LinkService { return f.linkService }

func (f *Face) String() string { return fmt.Sprintf("Face(id=%d)", f.id) }

func (f *Face) setState(s State) {
	if f.state == s {
		return
	}
	old := f.state
	f.state = s
	f.AfterStateChange.Emit(StateChange{Face: f, OldState: old, NewState: s})
}

// SendPacket frames and sends pkt through the Face's LinkService. It is the
// send-side counterpart consumed by the Forwarder's outgoing pipelines.
func (f *Face) SendPacket(wire []byte, isInterest, isData, isNack bool) error {
	if f.state != StateUp {
		return nil
	}
	if err := f.linkService.Send(wire); err != nil {
		f.setState(StateFailed)
		core.Log.Warn(f, "transport send failed, face failed", "err", err)
		return err
	}
	switch {
	case isInterest:
		f.nOutInterests++
	case isData:
		f.nOutData++
	case isNack:
		f.nOutNacks++
	}
	return nil
}

// CountIn increments the receive-side counters for the packet type just
// delivered to the forwarder.
func (f *Face) CountIn(isInterest, isData, isNack bool) {
	switch {
	case isInterest:
		f.nInInterests++
	case isData:
		f.nInData++
	case isNack:
		f.nInNacks++
	}
}

// Down marks the face administratively down without closing its transport
// (spec §4.8). Only an UP face goes down.
func (f *Face) Down() {
	if f.state == StateUp {
		f.setState(StateDown)
	}
}

// Up brings a down (but not closed/failed) face back up.
func (f *Face) Up() {
	if f.state == StateDown {
		f.setState(StateUp)
	}
}

// Close tears the face down: UP/DOWN -> CLOSING -> CLOSED, or FAILED ->
// CLOSED.
func (f *Face) Close() {
	if f.state == StateClosed {
		return
	}
	if f.state != StateFailed {
		f.setState(StateClosing)
	}
	_ = f.transport.Close()
	f.setState(StateClosed)
}

// Counters returns the six per-type packet counters (in/out Interests, Data
// and Nacks). Byte counters are not tracked.
func (f *Face) Counters() (inI, outI, inD, outD, inN, outN uint64) {
	return f.nInInterests, f.nOutInterests, f.nInData, f.nOutData, f.nInNacks, f.nOutNacks
}
