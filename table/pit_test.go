package table

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ndn-go/ndnfwd/defn"
	"github.com/ndn-go/ndnfwd/sched"
)

func TestBasePitEntryGetters(t *testing.T) {
	name := defn.NameFromStr("/something")
	currTime := time.Now()
	bpe := basePitEntry{
		encname:           name,
		canBePrefix:       true,
		mustBeFresh:       true,
		forwardingHintNew: name,
		expirationTime:    currTime,
		satisfied:         true,
		token:             1234,
		inRecords:         make(map[uint64]*PitInRecord),
		outRecords:        make(map[uint64]*PitOutRecord),
	}

	assert.True(t, bpe.EncName().Equal(name))
	assert.True(t, bpe.CanBePrefix())
	assert.True(t, bpe.MustBeFresh())
	assert.True(t, bpe.ForwardingHintNew().Equal(name))
	assert.Equal(t, 0, len(bpe.InRecords()))
	assert.Equal(t, 0, len(bpe.OutRecords()))
	assert.Equal(t, currTime, bpe.ExpirationTime())
	assert.True(t, bpe.Satisfied())
	assert.Equal(t, uint32(1234), bpe.Token())
}

func TestPitInsertIsIdempotentForSameSelectors(t *testing.T) {
	pit := NewPit(NewNameTree(), sched.NewVirtualClock(), nil)
	i1 := &defn.Interest{NameV: defn.NameFromStr("/a/b")}

	e1, isNew1 := pit.Insert(i1)
	e2, isNew2 := pit.Insert(i1)

	assert.True(t, isNew1)
	assert.False(t, isNew2)
	assert.Same(t, e1, e2)
}

func TestPitFindDisambiguatesBySelectors(t *testing.T) {
	pit := NewPit(NewNameTree(), sched.NewVirtualClock(), nil)
	plain := &defn.Interest{NameV: defn.NameFromStr("/a")}
	fresh := &defn.Interest{NameV: defn.NameFromStr("/a"), MustBeFreshV: true}

	e1, _ := pit.Insert(plain)
	e2, _ := pit.Insert(fresh)

	assert.NotEqual(t, e1, e2)
	assert.Same(t, e1, pit.Find(plain))
	assert.Same(t, e2, pit.Find(fresh))
}

func TestPitFindAllMatchesEnumeratesPrefixEntries(t *testing.T) {
	pit := NewPit(NewNameTree(), sched.NewVirtualClock(), nil)
	exact := &defn.Interest{NameV: defn.NameFromStr("/a/b")}
	prefixOk := &defn.Interest{NameV: defn.NameFromStr("/a"), CanBePrefixV: true}
	prefixNo := &defn.Interest{NameV: defn.NameFromStr("/a")}

	eExact, _ := pit.Insert(exact)
	ePrefixOk, _ := pit.Insert(prefixOk)
	pit.Insert(prefixNo)

	matches := pit.FindAllMatches(defn.NameFromStr("/a/b"))
	assert.Len(t, matches, 2)
	assert.Contains(t, matches, eExact)
	assert.Contains(t, matches, ePrefixOk)
}

func TestPitEraseRemovesEntry(t *testing.T) {
	pit := NewPit(NewNameTree(), sched.NewVirtualClock(), nil)
	i := &defn.Interest{NameV: defn.NameFromStr("/a")}
	e, _ := pit.Insert(i)

	pit.Erase(e)
	assert.Nil(t, pit.Find(i))
}

func TestInsertInRecordTracksPreviousNonce(t *testing.T) {
	e := &basePitEntry{inRecords: make(map[uint64]*PitInRecord), outRecords: make(map[uint64]*PitOutRecord)}
	n1 := defn.Nonce(1)
	n2 := defn.Nonce(2)

	now := time.Now()
	_, exists1, _ := e.InsertInRecord(&defn.Interest{NonceV: &n1}, 7, nil, now)
	_, exists2, prev := e.InsertInRecord(&defn.Interest{NonceV: &n2}, 7, nil, now)

	assert.False(t, exists1)
	assert.True(t, exists2)
	assert.Equal(t, n1, prev)
}

func TestSetIncomingNackOnlyAcceptsMatchingNonce(t *testing.T) {
	e := &basePitEntry{inRecords: make(map[uint64]*PitInRecord), outRecords: make(map[uint64]*PitOutRecord)}
	n1 := defn.Nonce(42)
	e.InsertOutRecord(&defn.Interest{NonceV: &n1}, 3, nil, time.Now())

	wrongNonce := defn.Nonce(99)
	rejected := e.SetIncomingNack(3, &defn.Nack{Interest: &defn.Interest{NonceV: &wrongNonce}})
	assert.False(t, rejected)

	accepted := e.SetIncomingNack(3, &defn.Nack{Interest: &defn.Interest{NonceV: &n1}, Reason: defn.NackReasonNoRoute})
	assert.True(t, accepted)
	assert.Equal(t, defn.NackReasonNoRoute, e.OutRecords()[3].IncomingNack.Reason)
}

func TestClearInRecordsAndClearOutRecordsEmptyTheirMaps(t *testing.T) {
	e := &basePitEntry{inRecords: make(map[uint64]*PitInRecord), outRecords: make(map[uint64]*PitOutRecord)}
	n := defn.Nonce(1)
	now := time.Now()
	e.InsertInRecord(&defn.Interest{NonceV: &n}, 1, nil, now)
	e.InsertOutRecord(&defn.Interest{NonceV: &n}, 2, nil, now)

	e.ClearInRecords()
	assert.Empty(t, e.InRecords())
	assert.NotEmpty(t, e.OutRecords())

	e.ClearOutRecords()
	assert.Empty(t, e.OutRecords())
}

func TestPitRescheduleExpiryFiresOnExpireWhenUnsatisfied(t *testing.T) {
	clock := sched.NewVirtualClock()
	var expired []PitEntry
	pit := NewPit(NewNameTree(), clock, func(e PitEntry) { expired = append(expired, e) })

	lifetime := 50 * time.Millisecond
	interest := &defn.Interest{NameV: defn.NameFromStr("/a"), Lifetime: lifetime}
	e, _ := pit.Insert(interest)
	e.InsertInRecord(interest, 1, nil, clock.Now())
	pit.RescheduleExpiry(e)

	clock.Advance(60 * time.Millisecond)
	assert.Len(t, expired, 1)
	assert.Nil(t, pit.Find(interest))
}

func TestPitRescheduleExpiryDoesNotFireIfSatisfiedFirst(t *testing.T) {
	clock := sched.NewVirtualClock()
	var expired []PitEntry
	pit := NewPit(NewNameTree(), clock, func(e PitEntry) { expired = append(expired, e) })

	interest := &defn.Interest{NameV: defn.NameFromStr("/a"), Lifetime: 50 * time.Millisecond}
	e, _ := pit.Insert(interest)
	e.InsertInRecord(interest, 1, nil, clock.Now())
	pit.RescheduleExpiry(e)

	e.SetSatisfied(true)
	clock.Advance(60 * time.Millisecond)
	assert.Empty(t, expired)
}
