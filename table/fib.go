package table

import (
	"sort"

	"github.com/ndn-go/ndnfwd/defn"
)

// FibNextHopEntry is one nexthop of a FIB entry: a face and its routing cost.
type FibNextHopEntry struct {
	Nexthop uint64
	Cost    uint64
}

// baseFibStrategyEntry is the combined FIB + StrategyChoice entry anchored
// at one NameTree node: nexthops (FIB) and the chosen strategy name
// (StrategyChoice) live together since both are "longest-prefix-match over
// a name" lookups sharing the same NameTree entry (spec §3/§4.2/§9).
type baseFibStrategyEntry struct {
	component defn.Component
	name      defn.Name
	nexthops  []*FibNextHopEntry
	strategy  defn.Name
}

// Name returns the entry's registered prefix.
func (e *baseFibStrategyEntry) Name() defn.Name { return e.name }

// GetNextHops returns the entry's nexthops, ordered ascending by cost then
// by faceId (spec §4.2 invariant).
func (e *baseFibStrategyEntry) GetNextHops() []*FibNextHopEntry { return e.nexthops }

// GetStrategy returns the strategy name chosen for this prefix, or nil if
// none has been explicitly set (the table falls back to the configured
// default via longest-prefix match).
func (e *baseFibStrategyEntry) GetStrategy() defn.Name { return e.strategy }

func (e *baseFibStrategyEntry) sortNextHops() {
	sort.Slice(e.nexthops, func(i, j int) bool {
		if e.nexthops[i].Cost != e.nexthops[j].Cost {
			return e.nexthops[i].Cost < e.nexthops[j].Cost
		}
		return e.nexthops[i].Nexthop < e.nexthops[j].Nexthop
	})
}

// FibStrategyTable is the FIB + StrategyChoice table: name → nexthops, and
// name → strategy, both resolved by longest-prefix match against the shared
// NameTree.
type FibStrategyTable struct {
	tree *NameTree
}

// NewFibStrategyTable constructs a FibStrategyTable over tree.
func NewFibStrategyTable(tree *NameTree) *FibStrategyTable {
	return &FibStrategyTable{tree: tree}
}

// hasNexthops is the NameTree predicate the FIB uses for longest-prefix
// lookups: only consider entries that actually carry a nexthop (spec §4.2).
func hasNexthops(e *nameTreeEntry) bool {
	return e.fib != nil && len(e.fib.nexthops) > 0
}

// hasStrategy is the NameTree predicate StrategyChoice longest-prefix
// lookups use.
func hasStrategy(e *nameTreeEntry) bool {
	return e.fib != nil && e.fib.strategy != nil
}

func (t *FibStrategyTable) entry(name defn.Name) *baseFibStrategyEntry {
	nte := t.tree.Lookup(name)
	if nte.fib == nil {
		var comp defn.Component
		if len(name) > 0 {
			comp = name[len(name)-1]
		}
		nte.fib = &baseFibStrategyEntry{component: comp, name: name}
	}
	return nte.fib
}

// Insert returns the FIB entry for prefix, creating it (with no nexthops
// yet) if absent, and whether it was newly created.
func (t *FibStrategyTable) Insert(prefix defn.Name) (*baseFibStrategyEntry, bool) {
	nte := t.tree.Lookup(prefix)
	isNew := nte.fib == nil
	return t.entry(prefix), isNew
}

// AddOrUpdateNextHop sets the cost of faceId's nexthop on prefix's entry,
// adding it if absent (no duplicate faceId per entry, spec §3 invariant),
// and re-sorts nexthops ascending by cost then faceId.
func (t *FibStrategyTable) AddOrUpdateNextHop(prefix defn.Name, faceID uint64, cost uint64) {
	e := t.entry(prefix)
	for _, nh := range e.nexthops {
		if nh.Nexthop == faceID {
			nh.Cost = cost
			e.sortNextHops()
			return
		}
	}
	e.nexthops = append(e.nexthops, &FibNextHopEntry{Nexthop: faceID, Cost: cost})
	e.sortNextHops()
}

// InsertNextHopEnc is the mgmt-facing convenience wrapper matching the
// teacher's table.FibStrategyTable.InsertNextHopEnc call shape (fw/mgmt/fib.go).
func (t *FibStrategyTable) InsertNextHopEnc(name defn.Name, faceID uint64, cost uint64) {
	t.AddOrUpdateNextHop(name, faceID, cost)
}

// RemoveNextHop removes faceId's nexthop from prefix's entry, if present,
// and garbage-collects the entry/NameTree node if it becomes fully empty.
func (t *FibStrategyTable) RemoveNextHop(prefix defn.Name, faceID uint64) {
	nte := t.tree.FindExactMatch(prefix)
	if nte == nil || nte.fib == nil {
		return
	}
	e := nte.fib
	for i, nh := range e.nexthops {
		if nh.Nexthop == faceID {
			e.nexthops = append(e.nexthops[:i], e.nexthops[i+1:]...)
			break
		}
	}
	t.gc(nte)
}

// RemoveNextHopEnc mirrors the teacher's mgmt call shape.
func (t *FibStrategyTable) RemoveNextHopEnc(name defn.Name, faceID uint64) {
	t.RemoveNextHop(name, faceID)
}

// RemoveFace purges faceId's nexthop from every FIB entry, used when a face
// transitions to CLOSED (spec §3 ownership summary: "on face close, the
// Forwarder purges all records referencing that faceId from PIT/FIB").
func (t *FibStrategyTable) RemoveFace(faceID uint64) {
	for _, bucket := range t.tree.byHash {
		for _, nte := range bucket {
			if nte.fib == nil {
				continue
			}
			for i, nh := range nte.fib.nexthops {
				if nh.Nexthop == faceID {
					nte.fib.nexthops = append(nte.fib.nexthops[:i], nte.fib.nexthops[i+1:]...)
					break
				}
			}
		}
	}
}

// FindLongestPrefixMatch returns the FIB entry of the longest prefix of name
// that has at least one nexthop, or nil (spec §4.2, testable property 7).
func (t *FibStrategyTable) FindLongestPrefixMatch(name defn.Name) *baseFibStrategyEntry {
	nte := t.tree.FindLongestPrefixMatch(name, hasNexthops)
	if nte == nil {
		return nil
	}
	return nte.fib
}

// SetStrategyEnc sets the strategy name registered for prefix.
func (t *FibStrategyTable) SetStrategyEnc(prefix defn.Name, strategy defn.Name) {
	t.entry(prefix).strategy = strategy
}

// UnSetStrategyEnc clears the strategy registered for prefix.
func (t *FibStrategyTable) UnSetStrategyEnc(prefix defn.Name) {
	nte := t.tree.FindExactMatch(prefix)
	if nte == nil || nte.fib == nil {
		return
	}
	nte.fib.strategy = nil
	t.gc(nte)
}

// FindStrategyLongestPrefixMatch resolves the strategy for name by
// longest-prefix match, falling back to defaultName if no registered prefix
// carries an explicit strategy (spec §4.7 / StrategyChoice in the component
// table).
func (t *FibStrategyTable) FindStrategyLongestPrefixMatch(name defn.Name, defaultName defn.Name) defn.Name {
	nte := t.tree.FindLongestPrefixMatch(name, hasStrategy)
	if nte == nil {
		return defaultName
	}
	return nte.fib.strategy
}

// GetAllFIBEntries returns every FIB entry carrying at least one nexthop.
func (t *FibStrategyTable) GetAllFIBEntries() []*baseFibStrategyEntry {
	var out []*baseFibStrategyEntry
	for _, bucket := range t.tree.byHash {
		for _, nte := range bucket {
			if nte.fib != nil && len(nte.fib.nexthops) > 0 {
				out = append(out, nte.fib)
			}
		}
	}
	return out
}

// GetAllForwardingStrategies returns every entry carrying an explicit
// strategy assignment.
func (t *FibStrategyTable) GetAllForwardingStrategies() []*baseFibStrategyEntry {
	var out []*baseFibStrategyEntry
	for _, bucket := range t.tree.byHash {
		for _, nte := range bucket {
			if nte.fib != nil && nte.fib.strategy != nil {
				out = append(out, nte.fib)
			}
		}
	}
	return out
}

func (t *FibStrategyTable) gc(nte *nameTreeEntry) {
	if nte.fib != nil && len(nte.fib.nexthops) == 0 && nte.fib.strategy == nil {
		nte.fib = nil
	}
	t.tree.DeleteIfEmpty(nte)
}
