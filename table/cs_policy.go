package table

// CsPolicy is the pluggable eviction contract (spec §4.4): the CS guarantees
// every mutation is reported to the policy exactly once via the four hooks
// below; the policy guarantees that while the CS holds more than its limit,
// it evicts entries (by calling back into the CS) in finite time.
type CsPolicy interface {
	setCS(cs *Cs)
	Limit() int
	SetLimit(limit int)
	// Len reports the number of entries the policy currently tracks, an O(1)
	// count maintained alongside the queue itself rather than derived by
	// rescanning the CS (spec §4.4's O(1) push_back/pop_front contract).
	Len() int
	afterInsert(e *baseCsEntry)
	afterRefresh(e *baseCsEntry)
	beforeErase(e *baseCsEntry)
	beforeUse(e *baseCsEntry)
}

// lruNode is one link of the LRU policy's doubly linked queue.
type lruNode struct {
	entry      *baseCsEntry
	prev, next *lruNode
}

// LruPolicy is the default CS eviction policy (spec §4.4/§9): an
// insertion-ordered queue with O(1) relocation to the tail on refresh/use
// and O(1) removal by key, ported from NFD's cs-policy-lru.cpp.
type LruPolicy struct {
	cs    *Cs
	limit int

	head, tail *lruNode
	nodes      map[uint64]*lruNode
	size       int
}

// NewLruPolicy constructs an LruPolicy bounded at limit entries.
func NewLruPolicy(limit int) *LruPolicy {
	return &LruPolicy{limit: limit, nodes: make(map[uint64]*lruNode)}
}

func (p *LruPolicy) setCS(cs *Cs)       { p.cs = cs }
func (p *LruPolicy) Limit() int         { return p.limit }
func (p *LruPolicy) SetLimit(limit int) { p.limit = limit; p.evictEntries() }
func (p *LruPolicy) Len() int           { return p.size }

func (p *LruPolicy) pushBack(n *lruNode) {
	n.prev = p.tail
	n.next = nil
	if p.tail != nil {
		p.tail.next = n
	}
	p.tail = n
	if p.head == nil {
		p.head = n
	}
	p.size++
}

func (p *LruPolicy) unlink(n *lruNode) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		p.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		p.tail = n.prev
	}
	n.prev, n.next = nil, nil
	p.size--
}

func (p *LruPolicy) relocateToTail(n *lruNode) {
	if p.tail == n {
		return
	}
	p.unlink(n)
	p.pushBack(n)
}

// afterInsert inserts the new entry at the tail, then evicts from the head
// while the CS holds more entries than the limit (doAfterInsert, spec §4.4).
func (p *LruPolicy) afterInsert(e *baseCsEntry) {
	n := &lruNode{entry: e}
	p.nodes[e.Index()] = n
	p.pushBack(n)
	p.evictEntries()
}

// afterRefresh relocates the refreshed entry to the tail (doAfterRefresh).
func (p *LruPolicy) afterRefresh(e *baseCsEntry) {
	if n, ok := p.nodes[e.Index()]; ok {
		p.relocateToTail(n)
	}
}

// beforeErase removes the entry from the queue (doBeforeErase).
func (p *LruPolicy) beforeErase(e *baseCsEntry) {
	if n, ok := p.nodes[e.Index()]; ok {
		p.unlink(n)
		delete(p.nodes, e.Index())
	}
}

// beforeUse relocates the used entry to the tail, same as a refresh
// (doBeforeUse).
func (p *LruPolicy) beforeUse(e *baseCsEntry) {
	if n, ok := p.nodes[e.Index()]; ok {
		p.relocateToTail(n)
	}
}

// evictEntries pops from the head (the least-recently-used entry) while the
// CS holds more entries than limit (spec testable property 6, the LRU law).
func (p *LruPolicy) evictEntries() {
	if p.cs == nil {
		return
	}
	for p.limit > 0 && p.size > p.limit && p.head != nil {
		victim := p.head.entry
		p.cs.erase(victim) // erase calls back into beforeErase, unlinking head
	}
}

// FifoPolicy is a simpler priority-FIFO eviction policy: entries are
// evicted strictly in insertion order regardless of use, named in spec §9's
// design note as a second closed-enum policy variant worth demonstrating
// that the registry is genuinely pluggable.
type FifoPolicy struct {
	cs    *Cs
	limit int
	order []uint64
	byIdx map[uint64]*baseCsEntry
}

// NewFifoPolicy constructs a FifoPolicy bounded at limit entries.
func NewFifoPolicy(limit int) *FifoPolicy {
	return &FifoPolicy{limit: limit, byIdx: make(map[uint64]*baseCsEntry)}
}

func (p *FifoPolicy) setCS(cs *Cs)       { p.cs = cs }
func (p *FifoPolicy) Limit() int         { return p.limit }
func (p *FifoPolicy) SetLimit(limit int) { p.limit = limit; p.evictEntries() }

// Len is the insertion-order queue's length, already an O(1) slice length.
func (p *FifoPolicy) Len() int { return len(p.order) }

func (p *FifoPolicy) afterInsert(e *baseCsEntry) {
	p.order = append(p.order, e.Index())
	p.byIdx[e.Index()] = e
	p.evictEntries()
}

// afterRefresh is a no-op: FIFO eviction order ignores refreshes, unlike LRU.
func (p *FifoPolicy) afterRefresh(e *baseCsEntry) {}

func (p *FifoPolicy) beforeErase(e *baseCsEntry) {
	delete(p.byIdx, e.Index())
}

// beforeUse is a no-op: FIFO eviction order ignores use, unlike LRU.
func (p *FifoPolicy) beforeUse(e *baseCsEntry) {}

func (p *FifoPolicy) evictEntries() {
	if p.cs == nil {
		return
	}
	for p.limit > 0 && len(p.order) > p.limit {
		idx := p.order[0]
		p.order = p.order[1:]
		if victim, ok := p.byIdx[idx]; ok {
			p.cs.erase(victim)
		}
	}
}

// NewCsPolicy is the policy registry (spec §9: "Registry maps policy/
// strategy name strings to constructors"), mapping the spec §6 cs_policy
// config name to a constructor.
func NewCsPolicy(name string, limit int) CsPolicy {
	switch name {
	case "fifo":
		return NewFifoPolicy(limit)
	default:
		return NewLruPolicy(limit)
	}
}
