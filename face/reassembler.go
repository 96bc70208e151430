// Package face implements the per-face link layer: NDNLPv2 fragment
// reassembly, framing (LinkService), and the Face/FaceTable lifecycle
// (spec §4.5, §4.8).
package face

import (
	"time"

	"github.com/ndn-go/ndnfwd/core"
	"github.com/ndn-go/ndnfwd/sched"
)

// EndpointID identifies the remote endpoint a fragment arrived from (e.g. a
// UDP source address) -- opaque to the reassembler.
type EndpointID string

// LpFragment is one NDNLPv2 link-layer fragment (spec §6: the fields the
// reassembler actually consumes).
type LpFragment struct {
	Sequence  uint64
	HasSeq    bool
	FragIndex uint64
	FragCount uint64
	Fragment  []byte
}

// reassemblyKey is (remoteEndpoint, messageId) per spec §4.5 step 3.
type reassemblyKey struct {
	endpoint  EndpointID
	messageID uint64
}

// partialPacket buffers the fragments of one in-flight message (spec §3 LP
// PartialPacket).
type partialPacket struct {
	fragCount  uint64
	fragments  []*LpFragment
	nReceived  uint64
	dropTimer  sched.CancelFunc
}

// Reassembler reassembles fragmented NDNLPv2 packets per endpoint (spec
// §4.5), ported directly from original_source/daemon/face/lp-reassembler.cpp.
type Reassembler struct {
	clock            sched.Clock
	nMaxFragments    uint64
	reassemblyTimeout time.Duration

	partials map[reassemblyKey]*partialPacket

	// BeforeTimeout fires with (endpoint, nReceivedFragments) just before a
	// partial packet is dropped due to timeout (spec §4.5 step 8).
	BeforeTimeout core.Signal[struct {
		Endpoint EndpointID
		N        int
	}]
}

// NewReassembler constructs a Reassembler with the given limits.
func NewReassembler(clock sched.Clock, nMaxFragments uint64, reassemblyTimeout time.Duration) *Reassembler {
	return &Reassembler{
		clock:             clock,
		nMaxFragments:     nMaxFragments,
		reassemblyTimeout: reassemblyTimeout,
		partials:          make(map[reassemblyKey]*partialPacket),
	}
}

// Size returns the number of partial packets currently buffered.
func (r *Reassembler) Size() int { return len(r.partials) }

// ReceiveFragment adds frag to the reassembly buffer, implementing spec
// §4.5's eight-step algorithm. complete reports whether a full message was
// just assembled, in which case reassembled holds its concatenated bytes.
func (r *Reassembler) ReceiveFragment(endpoint EndpointID, frag *LpFragment) (complete bool, reassembled []byte) {
	fragCount := frag.FragCount
	if fragCount == 0 {
		fragCount = 1
	}

	// Step 1: validate FragIndex < FragCount and FragCount <= nMaxFragments.
	if frag.FragIndex >= fragCount || fragCount > r.nMaxFragments {
		return false, nil
	}

	// Step 2: fast path for an unfragmented packet.
	if frag.FragIndex == 0 && fragCount == 1 {
		return true, frag.Fragment
	}

	// Step 3: Sequence is required to compute the message identifier.
	if !frag.HasSeq {
		return false, nil
	}
	messageID := frag.Sequence - frag.FragIndex // wraps in 64-bit, as intended
	key := reassemblyKey{endpoint: endpoint, messageID: messageID}

	// Step 4: locate or create the partial packet.
	pp, exists := r.partials[key]
	if !exists {
		pp = &partialPacket{
			fragCount: fragCount,
			fragments: make([]*LpFragment, fragCount),
		}
		r.partials[key] = pp
	} else if fragCount != pp.fragCount {
		// Step 5: FragCount must not change mid-stream.
		return false, nil
	}

	// Step 6: drop duplicate fragments.
	if pp.fragments[frag.FragIndex] != nil {
		return false, nil
	}
	pp.fragments[frag.FragIndex] = frag
	pp.nReceived++

	// Step 7: complete once every slot is filled.
	if pp.nReceived == pp.fragCount {
		out := r.concat(pp)
		if pp.dropTimer != nil {
			pp.dropTimer()
		}
		delete(r.partials, key)
		return true, out
	}

	// Arm (or re-arm) the drop timer; the callback re-checks the map before
	// acting, so a race with completion is a safe no-op (spec §5).
	if pp.dropTimer != nil {
		pp.dropTimer()
	}
	pp.dropTimer = r.clock.Schedule(r.reassemblyTimeout, func() {
		r.timeout(key)
	})

	return false, nil
}

// concat assembles the fragments of pp in index order into one buffer.
func (r *Reassembler) concat(pp *partialPacket) []byte {
	total := 0
	for _, f := range pp.fragments {
		total += len(f.Fragment)
	}
	out := make([]byte, 0, total)
	for _, f := range pp.fragments {
		out = append(out, f.Fragment...)
	}
	return out
}

// timeout is the drop-timer callback (spec §4.5 step 8): it re-looks-up the
// key before acting, so it safely no-ops if the packet already completed or
// was otherwise removed.
func (r *Reassembler) timeout(key reassemblyKey) {
	pp, ok := r.partials[key]
	if !ok {
		return
	}
	delete(r.partials, key)
	r.BeforeTimeout.Emit(struct {
		Endpoint EndpointID
		N        int
	}{Endpoint: key.endpoint, N: int(pp.nReceived)})
}
