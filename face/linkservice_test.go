package face

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndn-go/ndnfwd/defn"
	"github.com/ndn-go/ndnfwd/sched"
)

func TestLpFrameRoundTrip(t *testing.T) {
	frame := encodeLpFrame(7, 1, 3, []byte("payload"))
	frag, err := decodeLpFrame(frame)

	assert.NoError(t, err)
	assert.Equal(t, uint64(7), frag.Sequence)
	assert.True(t, frag.HasSeq)
	assert.Equal(t, uint64(1), frag.FragIndex)
	assert.Equal(t, uint64(3), frag.FragCount)
	assert.Equal(t, []byte("payload"), frag.Fragment)
}

func TestDecodeLpFrameRejectsShortFrame(t *testing.T) {
	_, err := decodeLpFrame([]byte("short"))
	assert.Error(t, err)
}

func TestLinkServiceSendUnfragmentedWhenUnderMTU(t *testing.T) {
	a, b := NewMemoryTransportPair("a", "b")
	ls := NewLinkService(sched.NewVirtualClock(), 1500, 10, time.Second)
	ls.transport = a
	a.SetReceiveCallback(func([]byte) {})
	_ = b

	err := ls.Send([]byte("small payload"))
	assert.NoError(t, err)
	assert.Len(t, a.Sent(), 1)
}

func TestLinkServiceFragmentsOversizedPayload(t *testing.T) {
	a, _ := NewMemoryTransportPair("a", "b")
	ls := NewLinkService(sched.NewVirtualClock(), lpFrameHeaderLen+4, 10, time.Second)
	ls.transport = a

	err := ls.Send([]byte("0123456789")) // 10 bytes, 4 bytes/fragment -> 3 fragments
	assert.NoError(t, err)
	assert.Len(t, a.Sent(), 3)
}

func TestLinkServiceReassemblesIncomingAcrossTransport(t *testing.T) {
	aTransport, bTransport := NewMemoryTransportPair("a", "b")

	// small MTU forces aLS to fragment the encoded Interest into several frames.
	aLS := NewLinkService(sched.NewVirtualClock(), lpFrameHeaderLen+4, 400, time.Second)
	aLS.transport = aTransport

	// the encoded Interest is a few hundred bytes, i.e. well over a hundred
	// 4-byte fragments, so the receiver needs a fragment limit above that.
	bLS := NewLinkService(sched.NewVirtualClock(), 1500, 400, time.Second)
	bLS.transport = bTransport
	bTransport.SetReceiveCallback(bLS.handleIncoming)

	var received *defn.Pkt
	bLS.OnReceive = func(pkt *defn.Pkt) { received = pkt }

	wire, err := defn.EncodePkt(defn.NewInterestPkt(&defn.Interest{NameV: defn.NameFromStr("/a/b")}))
	require.NoError(t, err)

	require.NoError(t, aLS.Send(wire))
	require.NotNil(t, received)
	assert.True(t, received.L3.Interest.Name().Equal(defn.NameFromStr("/a/b")))
}
