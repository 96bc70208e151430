// Package fw implements the forwarding plane: pluggable strategies and the
// Forwarder that orchestrates the incoming/outgoing pipelines over the
// NameTree/FIB/PIT/CS tables (spec §4.6, §4.7, §9).
package fw

import (
	"fmt"

	"github.com/ndn-go/ndnfwd/defn"
	"github.com/ndn-go/ndnfwd/table"
)

// Strategy is the pluggable forwarding algorithm interface (spec §2
// StrategyChoice row, §4.7): hooks the Forwarder invokes at defined pipeline
// points. Implementations embed StrategyBase to get SendInterest/SendData;
// StrategyBase supplies none of the hooks, so each implementation defines
// all six.
type Strategy interface {
	Instantiate(thread *Thread)
	Name() defn.Name
	AfterReceiveInterest(pkt *defn.Pkt, pitEntry table.PitEntry, inFace uint64, nexthops []*table.FibNextHopEntry)
	AfterContentStoreHit(pkt *defn.Pkt, pitEntry table.PitEntry, inFace uint64)
	AfterReceiveData(pkt *defn.Pkt, pitEntry table.PitEntry, inFace uint64)
	BeforeSatisfyInterest(pitEntry table.PitEntry, inFace uint64)
	AfterReceiveNack(pkt *defn.Pkt, pitEntry table.PitEntry, inFace uint64)
	AfterNewNextHop(nexthop uint64, pitEntry table.PitEntry)
}

// StrategyBase provides the SendInterest/SendData helpers every strategy
// calls back into the owning Thread with, mirroring the pack's
// NewStrategyBase(fwThread, name, version) constructor shape.
type StrategyBase struct {
	thread  *Thread
	name    defn.Name
	version uint64
}

// NewStrategyBase wires s to thread under the given name/version, e.g.
// name "multicast" with version 1 yields "/localhost/nfd/strategy/multicast/v=1".
func (s *StrategyBase) NewStrategyBase(thread *Thread, name string, version uint64) {
	s.thread = thread
	s.name = defn.NameFromStr(fmt.Sprintf("/localhost/nfd/strategy/%s", name)).Append(defn.NewGenericComponent(fmt.Sprintf("v=%d", version)))
	s.version = version
}

// Name returns the strategy's registered name.
func (s *StrategyBase) Name() defn.Name { return s.name }

func (s *StrategyBase) String() string { return "Strategy(" + s.name.String() + ")" }

// SendInterest asks the Forwarder to transmit pkt's Interest on egress,
// updating the PIT entry's OutRecord (spec §4.6 "Strategy -> outgoing
// Interest").
func (s *StrategyBase) SendInterest(pkt *defn.Pkt, pitEntry table.PitEntry, egress uint64, ingress uint64) {
	s.thread.sendInterest(pkt, pitEntry, egress, ingress)
}

// SendData asks the Forwarder to transmit pkt's Data on egress.
func (s *StrategyBase) SendData(pkt *defn.Pkt, pitEntry table.PitEntry, egress uint64, ingress uint64) {
	s.thread.sendData(pkt, pitEntry, egress, ingress)
}

// propagateNack sends reason to every face holding an in-record on
// pitEntry and erases the entry (spec §4.6 incoming-Nack pipeline: "Strategy
// decides whether to retry on another nexthop or propagate Nack to all
// in-record faces"), used once a strategy has exhausted its nexthops.
func (s *StrategyBase) propagateNack(pitEntry table.PitEntry, reason defn.NackReason) {
	for faceID, rec := range pitEntry.InRecords() {
		s.thread.sendNackToFace(rec.Interest, faceID, reason)
	}
	s.thread.Pit.Erase(pitEntry)
}

// registry maps strategy-name suffixes ("multicast", "best-route") to
// constructors (spec §9: "Registry maps policy/strategy name strings to
// constructors").
var registry = map[string]func() Strategy{}

func registerStrategy(name string, ctor func() Strategy) { registry[name] = ctor }

// NewStrategy constructs the strategy registered under name, defaulting to
// best-route if unknown (spec §6 strategy_choice_default).
func NewStrategy(name string, thread *Thread) Strategy {
	ctor, ok := registry[name]
	if !ok {
		ctor = registry["best-route"]
	}
	s := ctor()
	s.Instantiate(thread)
	return s
}
