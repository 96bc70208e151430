package table

import (
	"time"

	"github.com/ndn-go/ndnfwd/defn"
)

// baseCsEntry is a cached Data entry (spec §3 CS entry). The entry stores a
// decoded Data object directly rather than re-deriving it from wire bytes on
// every Copy() -- the forwarding core treats wire encoding as opaque (spec
// §1/§6), so there is no TLV decoder to invoke; Copy() simply clones the
// cached (data, wire) pair.
type baseCsEntry struct {
	index         uint64
	name          defn.Name
	data          *defn.Data
	wire          []byte
	staleTime     time.Time
	isUnsolicited bool
}

// Index returns the entry's stable identity, used by the policy queue as an
// O(1) relocation/removal key.
func (e *baseCsEntry) Index() uint64 { return e.index }

// StaleTime returns the time at which the cached Data becomes stale.
func (e *baseCsEntry) StaleTime() time.Time { return e.staleTime }

// Copy returns the cached Data and its wire encoding.
func (e *baseCsEntry) Copy() (*defn.Data, []byte, error) {
	return e.data, e.wire, nil
}

// Cs is the Content Store: a content-addressed Data cache bounded by a
// pluggable eviction Policy (spec §4.4).
type Cs struct {
	tree     *NameTree
	policy   CsPolicy
	nextIdx  uint64
	admit    bool
	serve    bool
	hits     uint64
	misses   uint64
}

// NewCs constructs a Cs over tree, bounded by policy.
func NewCs(tree *NameTree, policy CsPolicy) *Cs {
	cs := &Cs{tree: tree, policy: policy, admit: true, serve: true}
	policy.setCS(cs)
	return cs
}

// SetAdmit toggles whether the CS admits new Data (spec §6 CsEnableAdmit).
func (c *Cs) SetAdmit(v bool) { c.admit = v }

// Admit reports whether the CS currently admits new Data.
func (c *Cs) Admit() bool { return c.admit }

// SetServe toggles whether the CS serves cache hits (spec §6 CsEnableServe).
func (c *Cs) SetServe(v bool) { c.serve = v }

// Serve reports whether the CS currently serves cache hits.
func (c *Cs) Serve() bool { return c.serve }

// Size returns the number of entries currently cached, delegating to the
// policy's own O(1) count rather than rescanning the NameTree (spec §4.4's
// eviction contract calls for O(1) push_back/pop_front on the policy queue,
// and evictEntries checks Size() on every insert).
func (c *Cs) Size() int { return c.policy.Len() }

// Hits returns the cumulative number of CS lookups that were satisfied.
func (c *Cs) Hits() uint64 { return c.hits }

// Misses returns the cumulative number of CS lookups that missed.
func (c *Cs) Misses() uint64 { return c.misses }

// Find looks up a Data matching interest's name and selectors (spec §4.4):
// name equality, or (if CanBePrefix) a prefix relation; if MustBeFresh,
// staleTime must be in the future. On a hit, the policy's BeforeUse hook is
// invoked (moving the entry to the tail of an LRU queue, say) before the
// entry is returned.
func (c *Cs) Find(interest *defn.Interest, now time.Time) *baseCsEntry {
	if !c.serve {
		return nil
	}

	name := interest.Name()
	if !interest.CanBePrefixV {
		nte := c.tree.FindExactMatch(name)
		if nte == nil || nte.cs == nil {
			c.misses++
			return nil
		}
		if interest.MustBeFreshV && !now.Before(nte.cs.staleTime) {
			c.misses++
			return nil
		}
		c.policy.beforeUse(nte.cs)
		c.hits++
		return nte.cs
	}

	// CanBePrefix: find the shortest cached entry whose name has the
	// Interest's name as a prefix (the entries form a sorted-by-name index
	// in spec terms; here we enumerate the NameTree's descendants, which
	// is the accessible equivalent for this simplified core).
	var best *baseCsEntry
	var bestLen = -1
	for _, bucket := range c.tree.byHash {
		for _, nte := range bucket {
			if nte.cs == nil || !name.IsPrefix(nte.cs.name) {
				continue
			}
			if interest.MustBeFreshV && !now.Before(nte.cs.staleTime) {
				continue
			}
			if bestLen == -1 || len(nte.cs.name) < bestLen {
				best = nte.cs
				bestLen = len(nte.cs.name)
			}
		}
	}
	if best == nil {
		c.misses++
		return nil
	}
	c.policy.beforeUse(best)
	c.hits++
	return best
}

// Insert admits data into the CS, refreshing an existing equal-name entry in
// place or inserting a new one and letting the policy evict down to its
// limit (spec §4.4). unsolicited marks Data that arrived without a matching
// PIT entry.
func (c *Cs) Insert(data *defn.Data, wire []byte, unsolicited bool, now time.Time) {
	if !c.admit {
		return
	}

	nte := c.tree.Lookup(data.Name())
	staleTime := now.Add(data.FreshnessPeriod)

	if nte.cs != nil {
		nte.cs.data = data
		nte.cs.wire = wire
		nte.cs.staleTime = staleTime
		nte.cs.isUnsolicited = unsolicited
		c.policy.afterRefresh(nte.cs)
		return
	}

	c.nextIdx++
	nte.cs = &baseCsEntry{
		index:         c.nextIdx,
		name:          data.Name(),
		data:          data,
		wire:          wire,
		staleTime:     staleTime,
		isUnsolicited: unsolicited,
	}
	c.policy.afterInsert(nte.cs)
}

// erase removes e from the CS, invoking the policy's BeforeErase hook first
// and garbage-collecting the NameTree node if it becomes empty. This is
// called by policies in response to their own eviction decision, and by
// explicit erase requests.
func (c *Cs) erase(e *baseCsEntry) {
	nte := c.tree.FindExactMatch(e.name)
	if nte == nil || nte.cs != e {
		return
	}
	c.policy.beforeErase(e)
	nte.cs = nil
	c.tree.DeleteIfEmpty(nte)
}
