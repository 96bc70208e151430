package face

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ndn-go/ndnfwd/sched"
)

func TestReassemblerUnfragmentedFastPath(t *testing.T) {
	r := NewReassembler(sched.NewVirtualClock(), 10, time.Second)
	complete, out := r.ReceiveFragment("ep", &LpFragment{FragIndex: 0, FragCount: 1, Fragment: []byte("hello")})

	assert.True(t, complete)
	assert.Equal(t, []byte("hello"), out)
	assert.Equal(t, 0, r.Size())
}

func TestReassemblerThreeFragmentHello(t *testing.T) {
	// S4: "hel" + "l" + "o" reassembles to "hello".
	r := NewReassembler(sched.NewVirtualClock(), 10, time.Second)

	c1, _ := r.ReceiveFragment("ep", &LpFragment{Sequence: 100, HasSeq: true, FragIndex: 0, FragCount: 3, Fragment: []byte("hel")})
	assert.False(t, c1)
	assert.Equal(t, 1, r.Size())

	c2, _ := r.ReceiveFragment("ep", &LpFragment{Sequence: 101, HasSeq: true, FragIndex: 1, FragCount: 3, Fragment: []byte("l")})
	assert.False(t, c2)

	c3, out := r.ReceiveFragment("ep", &LpFragment{Sequence: 102, HasSeq: true, FragIndex: 2, FragCount: 3, Fragment: []byte("o")})
	assert.True(t, c3)
	assert.Equal(t, []byte("hello"), out)
	assert.Equal(t, 0, r.Size())
}

func TestReassemblerOutOfOrderFragments(t *testing.T) {
	r := NewReassembler(sched.NewVirtualClock(), 10, time.Second)

	r.ReceiveFragment("ep", &LpFragment{Sequence: 102, HasSeq: true, FragIndex: 2, FragCount: 3, Fragment: []byte("o")})
	r.ReceiveFragment("ep", &LpFragment{Sequence: 100, HasSeq: true, FragIndex: 0, FragCount: 3, Fragment: []byte("hel")})
	complete, out := r.ReceiveFragment("ep", &LpFragment{Sequence: 101, HasSeq: true, FragIndex: 1, FragCount: 3, Fragment: []byte("l")})

	assert.True(t, complete)
	assert.Equal(t, []byte("hello"), out)
}

func TestReassemblerDuplicateFragmentIsIdempotent(t *testing.T) {
	r := NewReassembler(sched.NewVirtualClock(), 10, time.Second)

	r.ReceiveFragment("ep", &LpFragment{Sequence: 100, HasSeq: true, FragIndex: 0, FragCount: 2, Fragment: []byte("a")})
	complete, _ := r.ReceiveFragment("ep", &LpFragment{Sequence: 100, HasSeq: true, FragIndex: 0, FragCount: 2, Fragment: []byte("a")})

	assert.False(t, complete)
	assert.Equal(t, 1, r.Size())
}

func TestReassemblerPartialPacketTimesOut(t *testing.T) {
	clock := sched.NewVirtualClock()
	r := NewReassembler(clock, 10, 100*time.Millisecond)

	var firedEndpoint EndpointID
	firedN := -1
	r.BeforeTimeout.Connect(func(ev struct {
		Endpoint EndpointID
		N        int
	}) {
		firedEndpoint = ev.Endpoint
		firedN = ev.N
	})

	r.ReceiveFragment("ep", &LpFragment{Sequence: 100, HasSeq: true, FragIndex: 0, FragCount: 3, Fragment: []byte("hel")})
	r.ReceiveFragment("ep", &LpFragment{Sequence: 101, HasSeq: true, FragIndex: 1, FragCount: 3, Fragment: []byte("l")})

	clock.Advance(150 * time.Millisecond)

	assert.Equal(t, EndpointID("ep"), firedEndpoint)
	assert.Equal(t, 2, firedN)
	assert.Equal(t, 0, r.Size())
}

func TestReassemblerRejectsFragCountMismatch(t *testing.T) {
	r := NewReassembler(sched.NewVirtualClock(), 10, time.Second)

	r.ReceiveFragment("ep", &LpFragment{Sequence: 100, HasSeq: true, FragIndex: 0, FragCount: 3, Fragment: []byte("a")})
	complete, _ := r.ReceiveFragment("ep", &LpFragment{Sequence: 101, HasSeq: true, FragIndex: 1, FragCount: 4, Fragment: []byte("b")})

	assert.False(t, complete)
}

func TestReassemblerRejectsFragCountOverLimit(t *testing.T) {
	r := NewReassembler(sched.NewVirtualClock(), 2, time.Second)

	complete, out := r.ReceiveFragment("ep", &LpFragment{Sequence: 100, HasSeq: true, FragIndex: 0, FragCount: 3, Fragment: []byte("a")})

	assert.False(t, complete)
	assert.Nil(t, out)
	assert.Equal(t, 0, r.Size())
}
