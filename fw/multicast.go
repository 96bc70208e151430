package fw

import (
	"time"

	"github.com/ndn-go/ndnfwd/core"
	"github.com/ndn-go/ndnfwd/defn"
	"github.com/ndn-go/ndnfwd/table"
)

// suppressionInitial/Multiplier/Cap implement the exponential retransmission
// suppression window spec §4.7 calls for, replacing the pack's flat
// 500ms MulticastSuppressionTime with a per-nexthop backoff: 10ms initial,
// doubling, capped at 250ms.
const (
	suppressionInitial    = 10 * time.Millisecond
	suppressionMultiplier = 2
	suppressionCap        = 250 * time.Millisecond
)

// suppressionState is the strategy-specific side-table Multicast attaches to
// a PIT entry's StrategyInfo (spec §4.7: "held as strategy-specific info on
// the PIT entry"), tracking the current backoff window per nexthop faceId.
type suppressionState struct {
	window map[uint64]time.Duration
	last   map[uint64]time.Time
}

func newSuppressionState() *suppressionState {
	return &suppressionState{window: make(map[uint64]time.Duration), last: make(map[uint64]time.Time)}
}

// suppressed reports whether an Interest toward nexthop should be suppressed
// at now, and if not, advances the per-nexthop window for next time.
func (s *suppressionState) suppressed(nexthop uint64, now time.Time) bool {
	last, seen := s.last[nexthop]
	if !seen {
		s.last[nexthop] = now
		s.window[nexthop] = suppressionInitial
		return false
	}
	win := s.window[nexthop]
	if win <= 0 {
		win = suppressionInitial
	}
	if now.Sub(last) < win {
		return true
	}
	s.last[nexthop] = now
	next := win * suppressionMultiplier
	if next > suppressionCap {
		next = suppressionCap
	}
	s.window[nexthop] = next
	return false
}

// Multicast forwards Interests to every nexthop, suppressing retransmissions
// per nexthop with an exponential backoff window (spec §4.7).
type Multicast struct {
	StrategyBase
}

func init() {
	registerStrategy("multicast", func() Strategy { return &Multicast{} })
}

// Instantiate wires the strategy to thread under its registered name.
func (s *Multicast) Instantiate(thread *Thread) {
	s.NewStrategyBase(thread, "multicast", 1)
}

// AfterContentStoreHit serves the cached Data directly to the ingress face.
func (s *Multicast) AfterContentStoreHit(pkt *defn.Pkt, pitEntry table.PitEntry, inFace uint64) {
	core.Log.Trace(s, "content store hit", "name", pkt.Name)
	s.SendData(pkt, pitEntry, inFace, 0)
}

// AfterReceiveData forwards Data to every face with a pending in-record,
// except the face Data arrived on (spec §4.6 step 3).
func (s *Multicast) AfterReceiveData(pkt *defn.Pkt, pitEntry table.PitEntry, inFace uint64) {
	for faceID := range pitEntry.InRecords() {
		if faceID == inFace {
			continue
		}
		s.SendData(pkt, pitEntry, faceID, inFace)
	}
}

// AfterReceiveInterest forwards to every nexthop not already suppressed.
func (s *Multicast) AfterReceiveInterest(pkt *defn.Pkt, pitEntry table.PitEntry, inFace uint64, nexthops []*table.FibNextHopEntry) {
	if len(nexthops) == 0 {
		core.Log.Debug(s, "no nexthop for Interest", "name", pkt.Name)
		return
	}

	state, ok := pitEntry.StrategyInfo().(*suppressionState)
	if !ok {
		state = newSuppressionState()
		pitEntry.SetStrategyInfo(state)
	}

	now := s.thread.Clock.Now()
	for _, nh := range nexthops {
		if nh.Nexthop == inFace {
			continue
		}
		if state.suppressed(nh.Nexthop, now) {
			core.Log.Trace(s, "suppressed Interest", "name", pkt.Name, "faceid", nh.Nexthop)
			continue
		}
		s.SendInterest(pkt, pitEntry, nh.Nexthop, inFace)
	}
}

// BeforeSatisfyInterest is a no-op for Multicast.
func (s *Multicast) BeforeSatisfyInterest(pitEntry table.PitEntry, inFace uint64) {}

// AfterReceiveNack never retries on a different nexthop; once every nexthop
// it tried has come back Nacked, it propagates to the in-record faces
// (spec §4.6 incoming-Nack pipeline, scenario S6).
func (s *Multicast) AfterReceiveNack(pkt *defn.Pkt, pitEntry table.PitEntry, inFace uint64) {
	if !allOutRecordsNacked(pitEntry) {
		return
	}
	s.propagateNack(pitEntry, pkt.L3.Nack.Reason)
}

// allOutRecordsNacked reports whether every out-record on pitEntry carries
// an incoming Nack, meaning every nexthop tried has failed.
func allOutRecordsNacked(pe table.PitEntry) bool {
	if len(pe.OutRecords()) == 0 {
		return false
	}
	for _, rec := range pe.OutRecords() {
		if rec.IncomingNack == nil {
			return false
		}
	}
	return true
}

// AfterNewNextHop immediately forwards on the newly added nexthop if this
// PIT entry is still pending and the nexthop isn't currently suppressed
// (spec §4.7).
func (s *Multicast) AfterNewNextHop(nexthop uint64, pitEntry table.PitEntry) {
	if pitEntry.Satisfied() {
		return
	}
	state, ok := pitEntry.StrategyInfo().(*suppressionState)
	if !ok {
		state = newSuppressionState()
		pitEntry.SetStrategyInfo(state)
	}
	if state.suppressed(nexthop, s.thread.Clock.Now()) {
		return
	}
	rep := pitEntry.Representative()
	if rep == nil {
		return
	}
	s.SendInterest(defn.NewInterestPkt(rep), pitEntry, nexthop, 0)
}
