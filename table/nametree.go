// Package table implements the three interacting forwarding tables -- the
// FIB, PIT, and Content Store -- the NameTree they share, and their shared
// entry lifecycle.
package table

import (
	"github.com/cespare/xxhash"

	"github.com/ndn-go/ndnfwd/defn"
)

// nameTreeEntry is one node of the hash-keyed trie: one entry per referenced
// name prefix, holding back-references (not ownership) into the peer
// tables. It is garbage-collected once all of fib/pit/cs are absent
// (spec §3's NameTree entry lifecycle).
type nameTreeEntry struct {
	name   defn.Name
	parent *nameTreeEntry
	depth  int

	fib *baseFibStrategyEntry
	pit []*pitEntryImpl
	cs  *baseCsEntry
}

// empty reports whether the entry holds no back-references and can be
// garbage-collected.
func (e *nameTreeEntry) empty() bool {
	return e.fib == nil && len(e.pit) == 0 && e.cs == nil
}

// NameTree is the hash-indexed trie keyed by name-prefix hash that the FIB,
// PIT, and CS all share a single instance of (spec §4.1).
type NameTree struct {
	// root represents the empty name "/", the ancestor of every entry.
	root *nameTreeEntry
	// byHash maps the hash of each referenced prefix's full name to its
	// entry, chained on collision by appending to the slice (an
	// open-addressed hash table with short chaining, per spec 4.1).
	byHash map[uint64][]*nameTreeEntry
}

// NewNameTree constructs an empty NameTree.
func NewNameTree() *NameTree {
	return &NameTree{
		root:   &nameTreeEntry{name: defn.Name{}},
		byHash: make(map[uint64][]*nameTreeEntry),
	}
}

// hashOf computes the NameTree's hash key for a prefix, using xxhash exactly
// as a hash-keyed trie over opaque byte names calls for.
func hashOf(n defn.Name) uint64 {
	return xxhash.Sum64(n.Bytes())
}

// findExact looks up an existing entry for name without creating it.
func (t *NameTree) findExact(name defn.Name) *nameTreeEntry {
	if len(name) == 0 {
		return t.root
	}
	h := hashOf(name)
	for _, e := range t.byHash[h] {
		if e.name.Equal(name) {
			return e
		}
	}
	return nil
}

// Lookup returns the entry for name, creating it and any missing ancestors
// up to the name itself (spec §4.1).
func (t *NameTree) Lookup(name defn.Name) *nameTreeEntry {
	if e := t.findExact(name); e != nil {
		return e
	}

	parent := t.root
	if len(name) > 1 {
		parent = t.Lookup(name.Prefix(len(name) - 1))
	}

	e := &nameTreeEntry{name: name, parent: parent, depth: len(name)}
	if len(name) > 0 {
		h := hashOf(name)
		t.byHash[h] = append(t.byHash[h], e)
	}
	return e
}

// FindExactMatch returns the entry for name only if it already exists.
func (t *NameTree) FindExactMatch(name defn.Name) *nameTreeEntry {
	return t.findExact(name)
}

// FindLongestPrefixMatch walks from the full name down to the empty prefix,
// returning the first entry whose name is a prefix of name and which
// satisfies predicate (spec §4.1 -- FIB uses this with predicate = "has at
// least one nexthop").
func (t *NameTree) FindLongestPrefixMatch(name defn.Name, predicate func(*nameTreeEntry) bool) *nameTreeEntry {
	for k := len(name); k >= 0; k-- {
		e := t.findExact(name.Prefix(k))
		if e == nil {
			continue
		}
		if predicate == nil || predicate(e) {
			return e
		}
	}
	return nil
}

// DeleteIfEmpty removes e if it holds no back-references, then walks upward
// removing now-empty ancestors (spec §4.1).
func (t *NameTree) DeleteIfEmpty(e *nameTreeEntry) {
	for e != nil && e != t.root && e.empty() {
		h := hashOf(e.name)
		bucket := t.byHash[h]
		for i, cand := range bucket {
			if cand == e {
				bucket = append(bucket[:i], bucket[i+1:]...)
				break
			}
		}
		if len(bucket) == 0 {
			delete(t.byHash, h)
		} else {
			t.byHash[h] = bucket
		}
		parent := e.parent
		e = parent
	}
}
