package fw

import (
	"sync/atomic"
	"time"

	"github.com/ndn-go/ndnfwd/config"
	"github.com/ndn-go/ndnfwd/core"
	"github.com/ndn-go/ndnfwd/defn"
	"github.com/ndn-go/ndnfwd/face"
	"github.com/ndn-go/ndnfwd/sched"
	"github.com/ndn-go/ndnfwd/table"
)

// maxNameLength is the implementation's name-length cap (spec §4.6 step 2,
// §7 PolicyViolation), chosen generously since the spec leaves the exact
// figure to the implementation.
const maxNameLength = 2048

// Thread is the Forwarder: it owns every table and orchestrates the
// incoming-Interest/outgoing-Interest/incoming-Data/incoming-Nack pipelines
// (spec §2 Forwarder row, §4.6), running them serially off a task queue so
// that, regardless of how many goroutines feed it packets, no table is ever
// touched from two goroutines at once (spec §5 single-threaded cooperative
// event loop), grounded on the pack's Engine taskQueue/close/running pattern.
type Thread struct {
	Tree  *table.NameTree
	Fib   *table.FibStrategyTable
	Pit   *table.Pit
	Cs    *table.Cs
	Faces *face.FaceTable
	Clock sched.Clock
	Cfg   *config.Config

	strategies map[string]Strategy

	taskQueue chan func()
	closeCh   chan struct{}
	running   atomic.Bool
}

// NewThread constructs a Thread wired from cfg, using clock for all
// scheduling (a VirtualClock in tests, a SystemClock in production).
func NewThread(cfg *config.Config, clock sched.Clock) *Thread {
	tree := table.NewNameTree()
	t := &Thread{
		Tree:       tree,
		Fib:        table.NewFibStrategyTable(tree),
		Cs:         table.NewCs(tree, table.NewCsPolicy(cfg.CS.Policy, cfg.CS.MaxPackets)),
		Faces:      face.NewFaceTable(),
		Clock:      clock,
		Cfg:        cfg,
		strategies: make(map[string]Strategy),
		taskQueue:  make(chan func(), 1024),
		closeCh:    make(chan struct{}),
	}
	t.Pit = table.NewPit(tree, clock, t.onPitExpire)
	return t
}

// String satisfies fmt.Stringer for log calls.
func (t *Thread) String() string { return "Forwarder" }

// Run drains the task queue until Stop is called, serializing every
// pipeline invocation on the calling goroutine.
func (t *Thread) Run() {
	t.running.Store(true)
	for {
		select {
		case job := <-t.taskQueue:
			job()
		case <-t.closeCh:
			return
		}
	}
}

// Stop signals Run to return after draining no further jobs.
func (t *Thread) Stop() {
	if t.running.CompareAndSwap(true, false) {
		close(t.closeCh)
	}
}

// Submit enqueues fn to run on the Thread's own goroutine, the entry point
// every face's receive callback uses to cross onto the forwarder thread
// (spec §5: "every packet crosses into the forwarder thread before
// touching any table").
func (t *Thread) Submit(fn func()) {
	t.taskQueue <- fn
}

// AddFace registers f with the Thread, wiring its LinkService to submit
// decoded packets onto the forwarder thread and subscribing to its
// lifecycle so FIB/PIT records are purged on close (spec §3 Ownership
// summary, §4.8).
func (t *Thread) AddFace(f *face.Face) {
	ls := f.LinkService()
	ls.OnReceive = func(pkt *defn.Pkt) {
		t.Submit(func() { t.HandlePacket(pkt, f.ID()) })
	}
	f.AfterStateChange.Connect(func(sc face.StateChange) {
		if sc.NewState == face.StateClosed {
			t.Submit(func() { t.purgeFace(sc.Face.ID()) })
		}
	})
}

func (t *Thread) purgeFace(faceID uint64) {
	t.Fib.RemoveFace(faceID)
	t.Pit.PurgeFace(faceID)
}

// strategyFor returns the (cached) Strategy instance registered under name,
// constructing and caching it on first use.
func (t *Thread) strategyFor(name defn.Name) Strategy {
	key := name.String()
	if s, ok := t.strategies[key]; ok {
		return s
	}
	leaf := ""
	if len(name) > 0 {
		leaf = string(name[len(name)-1].Val)
	}
	s := NewStrategy(leaf, t)
	t.strategies[key] = s
	return s
}

// HandlePacket dispatches pkt to the appropriate pipeline. Must only be
// called on the forwarder thread (i.e. from within a Submit callback).
func (t *Thread) HandlePacket(pkt *defn.Pkt, inFace uint64) {
	f := t.Faces.Get(inFace)
	switch {
	case pkt.L3.Interest != nil:
		if f != nil {
			f.CountIn(true, false, false)
		}
		t.handleIncomingInterest(pkt, inFace)
	case pkt.L3.Data != nil:
		if f != nil {
			f.CountIn(false, true, false)
		}
		t.handleIncomingData(pkt, inFace)
	case pkt.L3.Nack != nil:
		if f != nil {
			f.CountIn(false, false, true)
		}
		t.handleIncomingNack(pkt, inFace)
	}
}

// handleIncomingInterest implements spec §4.6's incoming-Interest pipeline.
func (t *Thread) handleIncomingInterest(pkt *defn.Pkt, inFace uint64) {
	interest := pkt.L3.Interest

	// Step 1: hop limit.
	if interest.HopLimitV != nil {
		if *interest.HopLimitV == 0 {
			core.Log.Debug(t, "dropping Interest: hop limit exhausted", "name", pkt.Name)
			return
		}
		dec := *interest.HopLimitV - 1
		interest.HopLimitV = &dec
	}

	// Step 2: name length policy.
	if len(interest.Name().Bytes()) > maxNameLength {
		core.Log.Warn(t, "dropping Interest: name too long", "name", pkt.Name)
		return
	}

	// Step 3: duplicate/loop detection against the existing PIT entry, if any.
	existing := t.Pit.Find(interest)
	if existing != nil && t.duplicateFromOtherFace(existing, inFace, interest.Nonce()) {
		core.Log.Debug(t, "loop detected, sending Nack(Duplicate)", "name", pkt.Name)
		t.sendNackToFace(interest, inFace, defn.NackReasonDuplicate)
		return
	}

	// Step 4: CS lookup. A hit is answered directly from the cache; a PIT
	// entry with the Interest's in-record is still created so the strategy's
	// AfterContentStoreHit has an entry, and it is erased after the straggler
	// timeout.
	if hit := t.Cs.Find(interest, t.Clock.Now()); hit != nil {
		data, _, _ := hit.Copy()
		pitEntry, _ := t.Pit.Insert(interest)
		pitEntry.InsertInRecord(interest, inFace, nil, t.Clock.Now())
		strategyName := t.Fib.FindStrategyLongestPrefixMatch(interest.Name(), defn.NameFromStr(t.Cfg.Strategy.Default))
		strategy := t.strategyFor(strategyName)
		strategy.AfterContentStoreHit(defn.NewDataPkt(data), pitEntry, inFace)
		t.Pit.RescheduleExpiry(pitEntry)
		t.scheduleStraggler(pitEntry)
		return
	}

	// Step 5: insert/find PIT entry, update in-record.
	pitEntry, _ := t.Pit.Insert(interest)
	pitEntry.InsertInRecord(interest, inFace, nil, t.Clock.Now())
	t.Pit.RescheduleExpiry(pitEntry)

	// Step 6: resolve strategy by longest-prefix match over the strategy table.
	strategyName := t.Fib.FindStrategyLongestPrefixMatch(interest.Name(), defn.NameFromStr(t.Cfg.Strategy.Default))
	strategy := t.strategyFor(strategyName)

	// Step 7: invoke the strategy, which selects nexthops and retransmission
	// policy itself; a route-less name gets Nacked here.
	fibEntry := t.Fib.FindLongestPrefixMatch(interest.Name())
	var nexthops []*table.FibNextHopEntry
	if fibEntry != nil {
		nexthops = fibEntry.GetNextHops()
	}
	if len(nexthops) == 0 {
		core.Log.Debug(t, "no route for Interest", "name", pkt.Name)
		t.sendNackToFace(interest, inFace, defn.NackReasonNoRoute)
		return
	}
	strategy.AfterReceiveInterest(pkt, pitEntry, inFace, nexthops)
}

// duplicateFromOtherFace reports whether nonce already appears on any
// in-record or out-record belonging to a face other than inFace (spec §4.3
// loop/duplicate detection).
func (t *Thread) duplicateFromOtherFace(pe table.PitEntry, inFace uint64, nonce defn.Nonce) bool {
	for faceID, rec := range pe.InRecords() {
		if faceID != inFace && rec.LatestNonce == nonce {
			return true
		}
	}
	for faceID, rec := range pe.OutRecords() {
		if faceID != inFace && rec.LatestNonce == nonce {
			return true
		}
	}
	return false
}

func (t *Thread) sendNackToFace(interest *defn.Interest, faceID uint64, reason defn.NackReason) {
	f := t.Faces.Get(faceID)
	if f == nil {
		return
	}
	nack := &defn.Nack{Interest: interest, Reason: reason}
	wire, err := defn.EncodePkt(defn.NewNackPkt(nack))
	if err != nil {
		core.Log.Warn(t, "failed to encode Nack", "err", err)
		return
	}
	_ = f.SendPacket(wire, false, false, true)
}

// sendInterest is StrategyBase's SendInterest callback: it updates the
// OutRecord and transmits (spec §4.6 "Strategy -> outgoing Interest").
func (t *Thread) sendInterest(pkt *defn.Pkt, pitEntry table.PitEntry, egress uint64, ingress uint64) {
	f := t.Faces.Get(egress)
	if f == nil {
		return
	}
	pitEntry.InsertOutRecord(pkt.L3.Interest, egress, nil, t.Clock.Now())
	t.Pit.RescheduleExpiry(pitEntry)

	wire, err := defn.EncodePkt(pkt)
	if err != nil {
		core.Log.Warn(t, "failed to encode Interest", "name", pkt.Name, "err", err)
		return
	}
	if err := f.SendPacket(wire, true, false, false); err != nil {
		core.Log.Debug(t, "transient send failure", "faceid", egress, "err", err)
	}
}

// sendData is StrategyBase's SendData callback.
func (t *Thread) sendData(pkt *defn.Pkt, pitEntry table.PitEntry, egress uint64, ingress uint64) {
	f := t.Faces.Get(egress)
	if f == nil {
		return
	}
	wire, err := defn.EncodePkt(pkt)
	if err != nil {
		core.Log.Warn(t, "failed to encode Data", "name", pkt.Name, "err", err)
		return
	}
	if err := f.SendPacket(wire, false, true, false); err != nil {
		core.Log.Debug(t, "transient send failure", "faceid", egress, "err", err)
	}
}

// handleIncomingData implements spec §4.6's incoming-Data pipeline.
func (t *Thread) handleIncomingData(pkt *defn.Pkt, inFace uint64) {
	data := pkt.L3.Data
	matches := t.Pit.FindAllMatches(data.Name())

	if len(matches) == 0 {
		// Unsolicited: admit per policy, else drop.
		t.Cs.Insert(data, mustEncode(pkt), true, t.Clock.Now())
		return
	}

	for _, pe := range matches {
		strategyName := t.Fib.FindStrategyLongestPrefixMatch(pe.EncName(), defn.NameFromStr(t.Cfg.Strategy.Default))
		strategy := t.strategyFor(strategyName)
		strategy.BeforeSatisfyInterest(pe, inFace)

		if pe.Satisfied() {
			// Duplicate Data arriving within the straggler window: the
			// strategy still observes it above, but the entry's in-records
			// were already cleared on first satisfaction, so there is
			// nothing left to re-forward to (testable property 8:
			// at-most-one Data per Interest per face).
			continue
		}

		strategy.AfterReceiveData(pkt, pe, inFace)

		pe.SetSatisfied(true)
		pe.ClearInRecords()
		pe.ClearOutRecords()
		t.scheduleStraggler(pe)
	}

	t.Cs.Insert(data, mustEncode(pkt), false, t.Clock.Now())
}

func mustEncode(pkt *defn.Pkt) []byte {
	wire, err := defn.EncodePkt(pkt)
	if err != nil {
		return nil
	}
	return wire
}

// scheduleStraggler arms the post-satisfy hold (spec §4.6 step 3, §6
// pit_straggler_timeout, default 100ms) after which the PIT entry is erased.
func (t *Thread) scheduleStraggler(pe table.PitEntry) {
	timeout := t.Cfg.PIT.StragglerTimeout
	if timeout <= 0 {
		timeout = 100 * time.Millisecond
	}
	t.Clock.Schedule(timeout, func() {
		t.Pit.Erase(pe)
	})
}

// handleIncomingNack implements spec §4.6's incoming-Nack pipeline.
func (t *Thread) handleIncomingNack(pkt *defn.Pkt, inFace uint64) {
	nack := pkt.L3.Nack
	pe := t.Pit.Find(nack.Interest)
	if pe == nil {
		return
	}
	if !pe.SetIncomingNack(inFace, nack) {
		return
	}
	strategyName := t.Fib.FindStrategyLongestPrefixMatch(pe.EncName(), defn.NameFromStr(t.Cfg.Strategy.Default))
	strategy := t.strategyFor(strategyName)
	strategy.AfterReceiveNack(pkt, pe, inFace)
}

// onPitExpire is the Pit's onExpire callback (spec §4.3): notify the
// strategy that the entry is about to be dropped unsatisfied.
func (t *Thread) onPitExpire(pe table.PitEntry) {
	strategyName := t.Fib.FindStrategyLongestPrefixMatch(pe.EncName(), defn.NameFromStr(t.Cfg.Strategy.Default))
	strategy := t.strategyFor(strategyName)
	strategy.BeforeSatisfyInterest(pe, 0)
}

// NotifyNewNextHop is invoked by FIB route-update callers after adding a
// nexthop, giving strategies a chance to immediately retry any pending
// Interest matching the updated prefix (spec §4.7 afterNewNextHop).
func (t *Thread) NotifyNewNextHop(prefix defn.Name, nexthop uint64) {
	for _, pe := range t.Pit.GetAll() {
		if !prefix.IsPrefix(pe.EncName()) {
			continue
		}
		strategyName := t.Fib.FindStrategyLongestPrefixMatch(pe.EncName(), defn.NameFromStr(t.Cfg.Strategy.Default))
		t.strategyFor(strategyName).AfterNewNextHop(nexthop, pe)
	}
}
