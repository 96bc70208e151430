package fw

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ndn-go/ndnfwd/config"
	"github.com/ndn-go/ndnfwd/defn"
	"github.com/ndn-go/ndnfwd/sched"
	"github.com/ndn-go/ndnfwd/table"
)

func TestBestRouteForwardsToLowestCostNonIngressNexthop(t *testing.T) {
	clock := sched.NewVirtualClock()
	thread := NewThread(config.Default(), clock)
	strat := &BestRoute{}
	strat.Instantiate(thread)
	for i := 0; i < 3; i++ {
		attachFace(thread, clock) // faces 1, 2, 3
	}

	interest := &defn.Interest{NameV: defn.NameFromStr("/a")}
	pe, _ := thread.Pit.Insert(interest)
	pe.InsertInRecord(interest, 2, nil, thread.Clock.Now())

	// nexthops sorted ascending cost: face 1 cheapest but is the ingress face,
	// so face 3's cost-3 entry is the chosen one.
	nexthops := []*table.FibNextHopEntry{{Nexthop: 1, Cost: 1}, {Nexthop: 3, Cost: 3}}
	pkt := defn.NewInterestPkt(interest)

	strat.AfterReceiveInterest(pkt, pe, 1, nexthops)
	assert.Contains(t, pe.OutRecords(), uint64(3))
	assert.NotContains(t, pe.OutRecords(), uint64(1))
}

func TestBestRouteSuppressesRetransmissionToSameNexthopWithinWindow(t *testing.T) {
	clock := sched.NewVirtualClock()
	thread := NewThread(config.Default(), clock)
	strat := &BestRoute{}
	strat.Instantiate(thread)
	nh, _ := attachFace(thread, clock)

	interest := &defn.Interest{NameV: defn.NameFromStr("/a")}
	pe, _ := thread.Pit.Insert(interest)
	nexthops := []*table.FibNextHopEntry{{Nexthop: nh.ID(), Cost: 1}}
	pkt := defn.NewInterestPkt(interest)

	strat.AfterReceiveInterest(pkt, pe, 0, nexthops)
	first := pe.OutRecords()[nh.ID()].LatestTimestamp

	// still inside the 1s window: the retransmission is suppressed, so the
	// out-record keeps the first send's timestamp.
	clock.Advance(100 * time.Millisecond)
	strat.AfterReceiveInterest(pkt, pe, 0, nexthops)
	assert.Equal(t, first, pe.OutRecords()[nh.ID()].LatestTimestamp)
}

func TestBestRouteNoViableNexthopIsNoop(t *testing.T) {
	thread := NewThread(config.Default(), sched.NewVirtualClock())
	strat := &BestRoute{}
	strat.Instantiate(thread)

	interest := &defn.Interest{NameV: defn.NameFromStr("/a")}
	pe, _ := thread.Pit.Insert(interest)
	nexthops := []*table.FibNextHopEntry{{Nexthop: 1, Cost: 1}}
	pkt := defn.NewInterestPkt(interest)

	strat.AfterReceiveInterest(pkt, pe, 1, nexthops) // only nexthop is the ingress face
	assert.Empty(t, pe.OutRecords())
}

func TestBestRouteAfterNewNextHopNoopWhenSatisfied(t *testing.T) {
	thread := NewThread(config.Default(), sched.NewVirtualClock())
	strat := &BestRoute{}
	strat.Instantiate(thread)

	interest := &defn.Interest{NameV: defn.NameFromStr("/a")}
	pe, _ := thread.Pit.Insert(interest)
	pe.SetSatisfied(true)

	strat.AfterNewNextHop(7, pe)
	assert.Empty(t, pe.OutRecords())
}
