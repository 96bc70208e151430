package fw

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndn-go/ndnfwd/config"
	"github.com/ndn-go/ndnfwd/defn"
	"github.com/ndn-go/ndnfwd/face"
	"github.com/ndn-go/ndnfwd/sched"
)

// testPeer is a harness standing in for a remote endpoint: its own Face/
// LinkService pair, wired to the opposite end of a MemoryTransport from the
// forwarder's Face under test, so it can inject packets (SendPacket) and
// capture whatever the forwarder sends back (via OnReceive).
type testPeer struct {
	face *face.Face
	recv []*defn.Pkt
}

func (p *testPeer) send(t *testing.T, pkt *defn.Pkt, isInterest, isData, isNack bool) {
	wire, err := defn.EncodePkt(pkt)
	require.NoError(t, err)
	require.NoError(t, p.face.SendPacket(wire, isInterest, isData, isNack))
}

// attachFace registers a new forwarder-side Face backed by a MemoryTransport
// pair, returning it alongside a testPeer wired to the pair's other end.
func attachFace(thread *Thread, clock sched.Clock) (*face.Face, *testPeer) {
	near, far := face.NewMemoryTransportPair("near", "far")

	fwdLS := face.NewLinkService(clock, 1500, 400, 500*time.Millisecond)
	f := thread.Faces.Add(near, face.PersistencyPersistent, face.ScopeNonLocal, fwdLS)
	thread.AddFace(f)

	peer := &testPeer{}
	peerLS := face.NewLinkService(clock, 1500, 400, 500*time.Millisecond)
	peerLS.OnReceive = func(pkt *defn.Pkt) { peer.recv = append(peer.recv, pkt) }
	peer.face = face.NewFace(0, far, face.PersistencyPersistent, face.ScopeNonLocal, peerLS)

	return f, peer
}

// drain runs every job currently queued on the Thread synchronously, since
// tests don't run Thread.Run as a background goroutine.
func drain(thread *Thread) {
	for {
		select {
		case job := <-thread.taskQueue:
			job()
		default:
			return
		}
	}
}

func noncePtr(n uint32) *defn.Nonce {
	v := defn.Nonce(n)
	return &v
}

func TestForwarderInterestDataRoundTrip(t *testing.T) {
	// S1: an Interest routed to a nexthop, answered by Data, relayed back.
	clock := sched.NewVirtualClock()
	thread := NewThread(config.Default(), clock)

	consumer, consumerPeer := attachFace(thread, clock)
	producer, producerPeer := attachFace(thread, clock)
	_ = consumer

	thread.Fib.AddOrUpdateNextHop(defn.NameFromStr("/a"), producer.ID(), 1)

	interest := &defn.Interest{NameV: defn.NameFromStr("/a/b"), NonceV: noncePtr(1)}
	consumerPeer.send(t, defn.NewInterestPkt(interest), true, false, false)
	drain(thread)

	require.Len(t, producerPeer.recv, 1)
	require.NotNil(t, producerPeer.recv[0].L3.Interest)
	assert.True(t, producerPeer.recv[0].L3.Interest.Name().Equal(defn.NameFromStr("/a/b")))

	data := &defn.Data{NameV: defn.NameFromStr("/a/b"), FreshnessPeriod: time.Second, Content: []byte("hi")}
	producerPeer.send(t, defn.NewDataPkt(data), false, true, false)
	drain(thread)

	require.Len(t, consumerPeer.recv, 1)
	require.NotNil(t, consumerPeer.recv[0].L3.Data)
	assert.Equal(t, []byte("hi"), consumerPeer.recv[0].L3.Data.Content)
}

func TestForwarderDuplicateDataWithinStragglerWindowIsNotReforwarded(t *testing.T) {
	// Testable property 8: at-most-one Data per Interest per face. Two
	// nexthops under multicast both answer the same Interest; only the
	// first Data reaches the consumer, the second is observed and dropped.
	clock := sched.NewVirtualClock()
	thread := NewThread(config.Default(), clock)
	thread.Fib.SetStrategyEnc(defn.NameFromStr("/a"), defn.NameFromStr("/localhost/nfd/strategy/multicast"))

	consumer, consumerPeer := attachFace(thread, clock)
	producer1, producer1Peer := attachFace(thread, clock)
	producer2, producer2Peer := attachFace(thread, clock)
	_ = consumer

	thread.Fib.AddOrUpdateNextHop(defn.NameFromStr("/a"), producer1.ID(), 1)
	thread.Fib.AddOrUpdateNextHop(defn.NameFromStr("/a"), producer2.ID(), 1)

	interest := &defn.Interest{NameV: defn.NameFromStr("/a/b"), NonceV: noncePtr(1)}
	consumerPeer.send(t, defn.NewInterestPkt(interest), true, false, false)
	drain(thread)

	require.Len(t, producer1Peer.recv, 1)
	require.Len(t, producer2Peer.recv, 1)

	data := &defn.Data{NameV: defn.NameFromStr("/a/b"), FreshnessPeriod: time.Second, Content: []byte("hi")}
	producer1Peer.send(t, defn.NewDataPkt(data), false, true, false)
	drain(thread)
	require.Len(t, consumerPeer.recv, 1)

	// Duplicate Data from the second nexthop, still within the straggler
	// window, must not re-forward to the consumer.
	producer2Peer.send(t, defn.NewDataPkt(data), false, true, false)
	drain(thread)
	require.Len(t, consumerPeer.recv, 1)
}

func TestForwarderCsHitAnswersDirectlyWithoutForwarding(t *testing.T) {
	// S3: CS populated, a fresh Interest is answered straight from cache.
	clock := sched.NewVirtualClock()
	thread := NewThread(config.Default(), clock)
	_, consumerPeer := attachFace(thread, clock)

	data := &defn.Data{NameV: defn.NameFromStr("/a"), FreshnessPeriod: time.Second, Content: []byte("cached")}
	thread.Cs.Insert(data, nil, false, clock.Now())

	interest := &defn.Interest{NameV: defn.NameFromStr("/a")}
	consumerPeer.send(t, defn.NewInterestPkt(interest), true, false, false)
	drain(thread)

	require.Len(t, consumerPeer.recv, 1)
	require.NotNil(t, consumerPeer.recv[0].L3.Data)
	assert.Equal(t, uint64(1), thread.Cs.Hits())
}

func TestForwarderMustBeFreshMissesStaleCacheEntry(t *testing.T) {
	// S3 continued: at t beyond FreshnessPeriod, mustBeFresh misses and the
	// Interest is Nacked for lack of a route.
	clock := sched.NewVirtualClock()
	thread := NewThread(config.Default(), clock)
	_, consumerPeer := attachFace(thread, clock)

	data := &defn.Data{NameV: defn.NameFromStr("/a"), FreshnessPeriod: 100 * time.Millisecond}
	thread.Cs.Insert(data, nil, false, clock.Now())
	clock.Advance(150 * time.Millisecond)

	interest := &defn.Interest{NameV: defn.NameFromStr("/a"), MustBeFreshV: true}
	consumerPeer.send(t, defn.NewInterestPkt(interest), true, false, false)
	drain(thread)

	require.Len(t, consumerPeer.recv, 1)
	assert.NotNil(t, consumerPeer.recv[0].L3.Nack)
}

func TestForwarderNoRouteSendsNack(t *testing.T) {
	clock := sched.NewVirtualClock()
	thread := NewThread(config.Default(), clock)
	_, consumerPeer := attachFace(thread, clock)

	interest := &defn.Interest{NameV: defn.NameFromStr("/no/route")}
	consumerPeer.send(t, defn.NewInterestPkt(interest), true, false, false)
	drain(thread)

	require.Len(t, consumerPeer.recv, 1)
	require.NotNil(t, consumerPeer.recv[0].L3.Nack)
	assert.Equal(t, defn.NackReasonNoRoute, consumerPeer.recv[0].L3.Nack.Reason)
}

func TestForwarderLoopDetectionSendsNackDuplicate(t *testing.T) {
	// S2: the same nonce arriving on a second face is a loop.
	clock := sched.NewVirtualClock()
	thread := NewThread(config.Default(), clock)
	producer, _ := attachFace(thread, clock)
	thread.Fib.AddOrUpdateNextHop(defn.NameFromStr("/a"), producer.ID(), 1)

	_, consumer1Peer := attachFace(thread, clock)
	_, consumer2Peer := attachFace(thread, clock)

	interest := &defn.Interest{NameV: defn.NameFromStr("/a/b"), NonceV: noncePtr(99)}
	consumer1Peer.send(t, defn.NewInterestPkt(interest), true, false, false)
	drain(thread)

	consumer2Peer.send(t, defn.NewInterestPkt(interest), true, false, false)
	drain(thread)

	require.Len(t, consumer2Peer.recv, 1)
	require.NotNil(t, consumer2Peer.recv[0].L3.Nack)
	assert.Equal(t, defn.NackReasonDuplicate, consumer2Peer.recv[0].L3.Nack.Reason)
}

func TestForwarderHopLimitExhaustedDropsInterest(t *testing.T) {
	clock := sched.NewVirtualClock()
	thread := NewThread(config.Default(), clock)
	producer, producerPeer := attachFace(thread, clock)
	thread.Fib.AddOrUpdateNextHop(defn.NameFromStr("/a"), producer.ID(), 1)
	_, consumerPeer := attachFace(thread, clock)

	zero := uint8(0)
	interest := &defn.Interest{NameV: defn.NameFromStr("/a"), HopLimitV: &zero}
	consumerPeer.send(t, defn.NewInterestPkt(interest), true, false, false)
	drain(thread)

	assert.Empty(t, producerPeer.recv)
}

func TestForwarderMulticastNacksAggregateToEveryInFace(t *testing.T) {
	// S6: two consumers ask for the same name under the multicast strategy;
	// a Nack from the sole nexthop must reach both in-record faces.
	clock := sched.NewVirtualClock()
	thread := NewThread(config.Default(), clock)
	thread.Fib.SetStrategyEnc(defn.NameFromStr("/a"), defn.NameFromStr("/localhost/nfd/strategy/multicast"))

	producer, producerPeer := attachFace(thread, clock)
	thread.Fib.AddOrUpdateNextHop(defn.NameFromStr("/a"), producer.ID(), 1)

	_, consumer1Peer := attachFace(thread, clock)
	_, consumer2Peer := attachFace(thread, clock)

	interest1 := &defn.Interest{NameV: defn.NameFromStr("/a/b"), NonceV: noncePtr(1)}
	consumer1Peer.send(t, defn.NewInterestPkt(interest1), true, false, false)
	drain(thread)

	// Advance past the 10ms multicast suppression window so the second
	// consumer's Interest actually retriggers a forward to the producer
	// instead of being suppressed as a retransmission to the same nexthop.
	clock.Advance(15 * time.Millisecond)

	interest2 := &defn.Interest{NameV: defn.NameFromStr("/a/b"), NonceV: noncePtr(2)}
	consumer2Peer.send(t, defn.NewInterestPkt(interest2), true, false, false)
	drain(thread)

	require.Len(t, producerPeer.recv, 2)

	// The out-record toward the producer now carries the latest (second)
	// forwarded Interest's nonce, so the Nack must reference it to be accepted.
	nack := &defn.Nack{Interest: producerPeer.recv[1].L3.Interest, Reason: defn.NackReasonCongestion}
	producerPeer.send(t, defn.NewNackPkt(nack), false, false, true)
	drain(thread)

	// Once every out-record is Nacked, Multicast propagates to every
	// in-record face and erases the PIT entry.
	require.Len(t, consumer1Peer.recv, 1)
	require.Len(t, consumer2Peer.recv, 1)
	assert.Equal(t, defn.NackReasonCongestion, consumer1Peer.recv[0].L3.Nack.Reason)
	assert.Equal(t, defn.NackReasonCongestion, consumer2Peer.recv[0].L3.Nack.Reason)

	assert.Nil(t, thread.Pit.Find(interest1))
}
