package table

import (
	"time"

	"github.com/ndn-go/ndnfwd/defn"
	"github.com/ndn-go/ndnfwd/sched"
)

// PitInRecord records an Interest received from an incoming face (spec §3
// InRecord).
type PitInRecord struct {
	Face            uint64
	LatestNonce     defn.Nonce
	LatestTimestamp time.Time
	Expiry          time.Time
	PitToken        []byte
	Interest        *defn.Interest
}

// PitOutRecord records an Interest sent toward an outgoing face (spec §3
// OutRecord).
type PitOutRecord struct {
	Face            uint64
	LatestNonce     defn.Nonce
	LatestTimestamp time.Time
	Expiry          time.Time
	PitToken        []byte
	Interest        *defn.Interest
	IncomingNack    *defn.Nack
}

// basePitEntry is a PIT entry: a representative Interest plus per-face
// in/out records (spec §3/§4.3).
type basePitEntry struct {
	encname           defn.Name
	canBePrefix       bool
	mustBeFresh       bool
	forwardingHintNew defn.Name
	expirationTime    time.Time
	satisfied         bool
	token             uint32

	inRecords  map[uint64]*PitInRecord
	outRecords map[uint64]*PitOutRecord

	strategyInfo any

	representative *defn.Interest
	expiryTimer    sched.CancelFunc
}

// EncName returns the PIT entry's name.
func (e *basePitEntry) EncName() defn.Name { return e.encname }

// CanBePrefix returns the CanBePrefix selector this entry was keyed by.
func (e *basePitEntry) CanBePrefix() bool { return e.canBePrefix }

// MustBeFresh returns the MustBeFresh selector this entry was keyed by.
func (e *basePitEntry) MustBeFresh() bool { return e.mustBeFresh }

// ForwardingHintNew returns the forwarding hint of the representative Interest.
func (e *basePitEntry) ForwardingHintNew() defn.Name { return e.forwardingHintNew }

// InRecords returns the entry's in-records, keyed by faceId.
func (e *basePitEntry) InRecords() map[uint64]*PitInRecord { return e.inRecords }

// OutRecords returns the entry's out-records, keyed by faceId.
func (e *basePitEntry) OutRecords() map[uint64]*PitOutRecord { return e.outRecords }

// ExpirationTime returns the entry's expiry -- the maximum in-record expiry
// (spec §4.3).
func (e *basePitEntry) ExpirationTime() time.Time { return e.expirationTime }

func (e *basePitEntry) setExpirationTime(t time.Time) { e.expirationTime = t }

// Satisfied reports whether Data has already satisfied this entry.
func (e *basePitEntry) Satisfied() bool { return e.satisfied }

// SetSatisfied marks the entry satisfied (or not).
func (e *basePitEntry) SetSatisfied(s bool) { e.satisfied = s }

// Token returns the PIT token assigned to this entry.
func (e *basePitEntry) Token() uint32 { return e.token }

// Representative returns the first Interest that created this entry (spec
// §9's design note: "the source permits a PIT entry to carry the Interest
// of the first in-record only as the representative"), used to reconstruct
// an Interest packet for strategies that need to retransmit without an
// incoming packet in hand (e.g. AfterNewNextHop).
func (e *basePitEntry) Representative() *defn.Interest { return e.representative }

// ClearInRecords empties the entry's in-records.
func (e *basePitEntry) ClearInRecords() { e.inRecords = make(map[uint64]*PitInRecord) }

// ClearOutRecords empties the entry's out-records.
func (e *basePitEntry) ClearOutRecords() { e.outRecords = make(map[uint64]*PitOutRecord) }

// InsertInRecord locates or creates the in-record for faceId, updating
// lastNonce/lastRenewed/expiry/pitToken. Returns the record, whether one
// already existed, and (if so) its previous nonce. The incoming-Interest
// pipeline's duplicate/loop check does not use these; it scans the entry's
// records itself.
func (e *basePitEntry) InsertInRecord(
	interest *defn.Interest,
	faceID uint64,
	pitToken []byte,
	now time.Time,
) (record *PitInRecord, alreadyExists bool, prevNonce defn.Nonce) {
	rec, exists := e.inRecords[faceID]
	if exists {
		prevNonce = rec.LatestNonce
	} else {
		rec = &PitInRecord{Face: faceID}
		e.inRecords[faceID] = rec
	}

	rec.LatestNonce = interest.Nonce()
	rec.LatestTimestamp = now
	rec.Expiry = now.Add(interest.EffectiveLifetime())
	rec.PitToken = pitToken
	rec.Interest = interest

	return rec, exists, prevNonce
}

// InsertOutRecord locates or creates the out-record for faceId, symmetric to
// InsertInRecord (spec §4.3).
func (e *basePitEntry) InsertOutRecord(
	interest *defn.Interest,
	faceID uint64,
	pitToken []byte,
	now time.Time,
) (record *PitOutRecord, alreadyExists bool, prevNonce defn.Nonce) {
	rec, exists := e.outRecords[faceID]
	if exists {
		prevNonce = rec.LatestNonce
		rec.IncomingNack = nil // clear any prior Nack on retransmission
	} else {
		rec = &PitOutRecord{Face: faceID}
		e.outRecords[faceID] = rec
	}

	rec.LatestNonce = interest.Nonce()
	rec.LatestTimestamp = now
	rec.Expiry = now.Add(interest.EffectiveLifetime())
	rec.PitToken = pitToken
	rec.Interest = interest

	return rec, exists, prevNonce
}

// SetIncomingNack accepts a Nack onto the out-record for faceId only if its
// Nonce matches the record's last outgoing Nonce (spec §3 OutRecord), and
// reports whether it was accepted.
func (e *basePitEntry) SetIncomingNack(faceID uint64, nack *defn.Nack) bool {
	rec, ok := e.outRecords[faceID]
	if !ok || nack.Interest == nil || nack.Interest.Nonce() != rec.LatestNonce {
		return false
	}
	rec.IncomingNack = nack
	return true
}

// pitEntryImpl is the concrete PIT entry stored in the table, embedding
// basePitEntry and the NameTree back-reference needed for garbage
// collection.
type pitEntryImpl struct {
	basePitEntry
	nte *nameTreeEntry
}

// PitEntry is the public view of a PIT entry that strategies and the
// Forwarder operate on.
type PitEntry interface {
	EncName() defn.Name
	CanBePrefix() bool
	MustBeFresh() bool
	ForwardingHintNew() defn.Name
	InRecords() map[uint64]*PitInRecord
	OutRecords() map[uint64]*PitOutRecord
	ClearInRecords()
	ClearOutRecords()
	ExpirationTime() time.Time
	Satisfied() bool
	SetSatisfied(bool)
	Token() uint32
	InsertInRecord(interest *defn.Interest, faceID uint64, pitToken []byte, now time.Time) (*PitInRecord, bool, defn.Nonce)
	InsertOutRecord(interest *defn.Interest, faceID uint64, pitToken []byte, now time.Time) (*PitOutRecord, bool, defn.Nonce)
	SetIncomingNack(faceID uint64, nack *defn.Nack) bool
	StrategyInfo() any
	SetStrategyInfo(any)
	Representative() *defn.Interest
}

// StrategyInfo returns the strategy-specific side-table this entry carries
// (e.g. the multicast suppression state, spec §4.7).
func (e *basePitEntry) StrategyInfo() any { return e.strategyInfo }

// SetStrategyInfo sets the strategy-specific side-table.
func (e *basePitEntry) SetStrategyInfo(v any) { e.strategyInfo = v }

var _ PitEntry = (*pitEntryImpl)(nil)

// Pit is the Pending Interest Table (spec §4.3).
type Pit struct {
	tree     *NameTree
	clock    sched.Clock
	nextTok  uint32
	onExpire func(PitEntry)
	all      map[*pitEntryImpl]struct{}
}

// NewPit constructs a Pit over tree, using clock for expiry scheduling.
// onExpire is invoked (outside the timer's own bookkeeping) when an entry
// expires unsatisfied, so the Forwarder can run
// beforeExpirePendingInterest/beforeSatisfyInterest(false) (spec §4.3).
func NewPit(tree *NameTree, clock sched.Clock, onExpire func(PitEntry)) *Pit {
	return &Pit{tree: tree, clock: clock, onExpire: onExpire, all: make(map[*pitEntryImpl]struct{})}
}

// selectorsMatch reports whether an existing entry's selectors match a new
// Interest's selectors -- name is the primary key, selectors disambiguate
// via separate entries (spec §4.3).
func selectorsMatch(e *pitEntryImpl, canBePrefix, mustBeFresh bool) bool {
	return e.canBePrefix == canBePrefix && e.mustBeFresh == mustBeFresh
}

// Find returns the existing PIT entry matching interest's name and
// selectors, or nil.
func (p *Pit) Find(interest *defn.Interest) PitEntry {
	nte := p.tree.FindExactMatch(interest.Name())
	if nte == nil {
		return nil
	}
	for _, e := range nte.pit {
		if selectorsMatch(e, interest.CanBePrefixV, interest.MustBeFreshV) {
			return e
		}
	}
	return nil
}

// Insert returns the PIT entry for interest, creating one if none exists
// for its (name, selectors) pair, and reports whether it was newly created
// (spec §4.3).
func (p *Pit) Insert(interest *defn.Interest) (PitEntry, bool) {
	if e := p.Find(interest); e != nil {
		return e, false
	}

	nte := p.tree.Lookup(interest.Name())
	p.nextTok++
	e := &pitEntryImpl{
		basePitEntry: basePitEntry{
			encname:           interest.Name(),
			canBePrefix:       interest.CanBePrefixV,
			mustBeFresh:       interest.MustBeFreshV,
			forwardingHintNew: interest.ForwardingHint,
			token:             p.nextTok,
			inRecords:         make(map[uint64]*PitInRecord),
			outRecords:        make(map[uint64]*PitOutRecord),
			representative:    interest,
		},
		nte: nte,
	}
	nte.pit = append(nte.pit, e)
	p.all[e] = struct{}{}
	return e, true
}

// FindAllMatches enumerates every PIT entry whose name is a prefix of
// dataName (the spec §9 open-question resolution: Data matching with
// canBePrefix applies selector checks per coexisting entry, not just the
// single longest match).
func (p *Pit) FindAllMatches(dataName defn.Name) []PitEntry {
	var out []PitEntry
	for k := 0; k <= len(dataName); k++ {
		nte := p.tree.FindExactMatch(dataName.Prefix(k))
		if nte == nil {
			continue
		}
		for _, e := range nte.pit {
			if e.encname.Equal(dataName) || (e.canBePrefix && e.encname.IsPrefix(dataName)) {
				out = append(out, e)
			}
		}
	}
	return out
}

// Erase removes e from the PIT, canceling its expiry timer and garbage-
// collecting the NameTree node if it becomes empty.
func (p *Pit) Erase(pe PitEntry) {
	e, ok := pe.(*pitEntryImpl)
	if !ok {
		return
	}
	if e.expiryTimer != nil {
		e.expiryTimer()
		e.expiryTimer = nil
	}
	nte := e.nte
	for i, cand := range nte.pit {
		if cand == e {
			nte.pit = append(nte.pit[:i], nte.pit[i+1:]...)
			break
		}
	}
	delete(p.all, e)
	p.tree.DeleteIfEmpty(nte)
}

// PurgeFace removes every in-record and out-record referencing faceID from
// every PIT entry (spec §3 Ownership summary: "On face close, the Forwarder
// purges all records referencing that faceId from PIT/FIB").
func (p *Pit) PurgeFace(faceID uint64) {
	for e := range p.all {
		delete(e.inRecords, faceID)
		delete(e.outRecords, faceID)
	}
}

// GetAll returns every live PIT entry, used by management introspection.
func (p *Pit) GetAll() []PitEntry {
	out := make([]PitEntry, 0, len(p.all))
	for e := range p.all {
		out = append(out, e)
	}
	return out
}

// RescheduleExpiry recomputes e's expiry as the maximum in-record expiry
// (spec §4.3) and (re)arms a timer that, if Data hasn't satisfied the entry
// by then, calls onExpire and erases it. The timer callback re-looks-up its
// target via identity before acting, so a race with Erase/cancellation is a
// safe no-op (spec §5 cancellation guarantee).
func (p *Pit) RescheduleExpiry(pe PitEntry) {
	e, ok := pe.(*pitEntryImpl)
	if !ok {
		return
	}
	if e.expiryTimer != nil {
		e.expiryTimer()
		e.expiryTimer = nil
	}

	var maxExpiry time.Time
	for _, r := range e.inRecords {
		if r.Expiry.After(maxExpiry) {
			maxExpiry = r.Expiry
		}
	}
	if maxExpiry.IsZero() {
		return
	}
	e.setExpirationTime(maxExpiry)

	d := maxExpiry.Sub(p.clock.Now())
	if d < 0 {
		d = 0
	}
	e.expiryTimer = p.clock.Schedule(d, func() {
		if !p.stillLive(e) {
			return
		}
		if e.satisfied {
			return
		}
		if p.onExpire != nil {
			p.onExpire(e)
		}
		p.Erase(e)
	})
}

// stillLive reports whether e is still attached to its NameTree node,
// guarding against a timer firing after the entry was already erased.
func (p *Pit) stillLive(e *pitEntryImpl) bool {
	for _, cand := range e.nte.pit {
		if cand == e {
			return true
		}
	}
	return false
}
