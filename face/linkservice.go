package face

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/ndn-go/ndnfwd/core"
	"github.com/ndn-go/ndnfwd/defn"
	"github.com/ndn-go/ndnfwd/sched"
)

// lpFrame is the on-the-wire NDNLPv2-style framing: a fixed header
// (sequence, fragIndex, fragCount) followed by the fragment payload. Kept
// as a tiny hand-rolled binary.BigEndian layout since, like defn's packet
// codec, no TLV library exists in the example pack to ground a real LP
// header encoder on.
const lpFrameHeaderLen = 8 + 8 + 8

func encodeLpFrame(seq, fragIndex, fragCount uint64, payload []byte) []byte {
	out := make([]byte, lpFrameHeaderLen+len(payload))
	binary.BigEndian.PutUint64(out[0:8], seq)
	binary.BigEndian.PutUint64(out[8:16], fragIndex)
	binary.BigEndian.PutUint64(out[16:24], fragCount)
	copy(out[lpFrameHeaderLen:], payload)
	return out
}

func decodeLpFrame(frame []byte) (*LpFragment, error) {
	if len(frame) < lpFrameHeaderLen {
		return nil, defn.ErrMalformedPacket
	}
	return &LpFragment{
		Sequence:  binary.BigEndian.Uint64(frame[0:8]),
		HasSeq:    true,
		FragIndex: binary.BigEndian.Uint64(frame[8:16]),
		FragCount: binary.BigEndian.Uint64(frame[16:24]),
		Fragment:  frame[lpFrameHeaderLen:],
	}, nil
}

// LinkService sits between a Face and its Transport: it encodes/fragments
// outgoing packets to respect MTU and reassembles/decodes incoming ones
// (spec §4.5), handing decoded packets to OnReceive.
type LinkService struct {
	face        *Face
	transport   Transport
	mtu         int
	reassembler *Reassembler
	nextSeq     uint64

	// OnReceive is invoked with each fully reassembled, decoded packet.
	OnReceive func(pkt *defn.Pkt)
}

// NewLinkService constructs a LinkService bounded by mtu and using clock
// for reassembly timeouts (spec §6 config: reassembly_timeout, max_fragments).
func NewLinkService(clock sched.Clock, mtu int, maxFragments uint64, reassemblyTimeout time.Duration) *LinkService {
	return &LinkService{
		mtu:         mtu,
		reassembler: NewReassembler(clock, maxFragments, reassemblyTimeout),
	}
}

func (l *LinkService) String() string {
	if l.face != nil {
		return fmt.Sprintf("LinkService(face=%d)", l.face.id)
	}
	return "LinkService"
}

// Send fragments and frames wire, sending each fragment through the
// transport in order.
func (l *LinkService) Send(wire []byte) error {
	mtu := l.mtu
	if mtu <= lpFrameHeaderLen {
		mtu = lpFrameHeaderLen + 1
	}
	maxPayload := mtu - lpFrameHeaderLen

	if len(wire) <= maxPayload {
		seq := l.nextSeq
		l.nextSeq++
		return l.transport.Send(encodeLpFrame(seq, 0, 1, wire))
	}

	var fragCount uint64 = uint64((len(wire) + maxPayload - 1) / maxPayload)
	baseSeq := l.nextSeq
	l.nextSeq += fragCount
	for i := uint64(0); i < fragCount; i++ {
		start := int(i) * maxPayload
		end := start + maxPayload
		if end > len(wire) {
			end = len(wire)
		}
		frame := encodeLpFrame(baseSeq+i, i, fragCount, wire[start:end])
		if err := l.transport.Send(frame); err != nil {
			return err
		}
	}
	return nil
}

// handleIncoming is the Transport's receive callback: it decodes the LP
// frame, feeds it to the Reassembler, and on completion decodes and
// forwards the packet to OnReceive.
func (l *LinkService) handleIncoming(raw []byte) {
	frag, err := decodeLpFrame(raw)
	if err != nil {
		core.Log.Warn(l, "dropping malformed frame", "err", err)
		return
	}

	complete, wire := l.reassembler.ReceiveFragment(EndpointID(l.String()), frag)
	if !complete {
		return
	}

	pkt, err := defn.DecodePkt(wire)
	if err != nil {
		core.Log.Warn(l, "dropping malformed reassembled packet", "err", err)
		return
	}
	if l.OnReceive != nil {
		l.OnReceive(pkt)
	}
}
