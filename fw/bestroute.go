package fw

import (
	"time"

	"github.com/ndn-go/ndnfwd/core"
	"github.com/ndn-go/ndnfwd/defn"
	"github.com/ndn-go/ndnfwd/table"
)

// bestRouteSuppression is BestRoute's own per-entry state: a single flat
// 1s suppression window against its one chosen nexthop, distinct from
// Multicast's per-nexthop exponential backoff since BestRoute only ever
// forwards to one face at a time.
type bestRouteSuppression struct {
	nexthop uint64
	sentAt  time.Time
}

const bestRouteSuppressionWindow = time.Second

// BestRoute forwards each Interest to the single lowest-cost nexthop, the
// spec §6 default strategy ("/localhost/nfd/strategy/best-route").
type BestRoute struct {
	StrategyBase
}

func init() {
	registerStrategy("best-route", func() Strategy { return &BestRoute{} })
}

// Instantiate wires the strategy to thread under its registered name.
func (s *BestRoute) Instantiate(thread *Thread) {
	s.NewStrategyBase(thread, "best-route", 1)
}

// AfterContentStoreHit serves the cached Data directly to the ingress face.
func (s *BestRoute) AfterContentStoreHit(pkt *defn.Pkt, pitEntry table.PitEntry, inFace uint64) {
	s.SendData(pkt, pitEntry, inFace, 0)
}

// AfterReceiveData forwards Data to every face with a pending in-record,
// except the face Data arrived on (spec §4.6 step 3).
func (s *BestRoute) AfterReceiveData(pkt *defn.Pkt, pitEntry table.PitEntry, inFace uint64) {
	for faceID := range pitEntry.InRecords() {
		if faceID == inFace {
			continue
		}
		s.SendData(pkt, pitEntry, faceID, inFace)
	}
}

// AfterReceiveInterest forwards to the single lowest-cost nexthop (nexthops
// is already sorted ascending cost, then faceId, by FIB.sortNextHops),
// suppressing a retransmission to the same nexthop within the window.
func (s *BestRoute) AfterReceiveInterest(pkt *defn.Pkt, pitEntry table.PitEntry, inFace uint64, nexthops []*table.FibNextHopEntry) {
	var chosen *table.FibNextHopEntry
	for _, nh := range nexthops {
		if nh.Nexthop != inFace {
			chosen = nh
			break
		}
	}
	if chosen == nil {
		core.Log.Debug(s, "no viable nexthop for Interest", "name", pkt.Name)
		return
	}

	now := s.thread.Clock.Now()
	if bs, ok := pitEntry.StrategyInfo().(*bestRouteSuppression); ok {
		if bs.nexthop == chosen.Nexthop && now.Sub(bs.sentAt) < bestRouteSuppressionWindow {
			return
		}
	}
	pitEntry.SetStrategyInfo(&bestRouteSuppression{nexthop: chosen.Nexthop, sentAt: now})
	s.SendInterest(pkt, pitEntry, chosen.Nexthop, inFace)
}

// BeforeSatisfyInterest is a no-op for BestRoute.
func (s *BestRoute) BeforeSatisfyInterest(pitEntry table.PitEntry, inFace uint64) {}

// AfterReceiveNack propagates the Nack to all in-record faces; BestRoute has
// no alternate nexthop to retry since it only ever tracks one.
func (s *BestRoute) AfterReceiveNack(pkt *defn.Pkt, pitEntry table.PitEntry, inFace uint64) {
	s.propagateNack(pitEntry, pkt.L3.Nack.Reason)
}

// AfterNewNextHop forwards the entry's representative Interest on the new
// nexthop whenever the entry is unsatisfied; it does not compare the new
// nexthop's cost with the one last tried.
func (s *BestRoute) AfterNewNextHop(nexthop uint64, pitEntry table.PitEntry) {
	if pitEntry.Satisfied() {
		return
	}
	rep := pitEntry.Representative()
	if rep == nil {
		return
	}
	s.SendInterest(defn.NewInterestPkt(rep), pitEntry, nexthop, 0)
}
