package defn

import "time"

// MaxLifetime is the hard cap on Interest lifetime and PIT/InRecord/
// OutRecord expiry, preventing integer overflow when computing expiry
// points far in the future (spec §3, ported from NFD's pit-face-record.cpp
// MAX_LIFETIME constant).
const MaxLifetime = 10 * 24 * time.Hour

// Nonce is the 4-byte Interest identifier used for loop detection.
type Nonce uint32

// Interest is the minimal Interest shape the forwarding core needs.
type Interest struct {
	NameV          Name
	NonceV         *Nonce
	Lifetime       time.Duration
	CanBePrefixV   bool
	MustBeFreshV   bool
	HopLimitV      *uint8
	ForwardingHint Name
}

// Name returns the Interest's name.
func (i *Interest) Name() Name { return i.NameV }

// CanBePrefix reports whether the Interest's CanBePrefix selector is set.
func (i *Interest) CanBePrefix() bool { return i.CanBePrefixV }

// MustBeFresh reports whether the Interest's MustBeFresh selector is set.
func (i *Interest) MustBeFresh() bool { return i.MustBeFreshV }

// Nonce returns the Interest's nonce, or 0 if absent.
func (i *Interest) Nonce() Nonce {
	if i.NonceV == nil {
		return 0
	}
	return *i.NonceV
}

// EffectiveLifetime returns the Interest's lifetime capped at MaxLifetime,
// defaulting to NFD's conventional 4s when unset.
func (i *Interest) EffectiveLifetime() time.Duration {
	lifetime := i.Lifetime
	if lifetime <= 0 {
		lifetime = 4 * time.Second
	}
	if lifetime > MaxLifetime {
		lifetime = MaxLifetime
	}
	return lifetime
}

// Data is the minimal Data shape the forwarding core needs.
type Data struct {
	NameV           Name
	FreshnessPeriod time.Duration
	Content         []byte
	Signature       []byte
	ImplicitDigest  []byte
}

// Name returns the Data's name.
func (d *Data) Name() Name { return d.NameV }

// NackReason is the reason code carried by a Nack, using the NDNLPv2 wire
// values named in spec §6.
type NackReason uint64

const (
	NackReasonNone        NackReason = 0
	NackReasonCongestion  NackReason = 50
	NackReasonDuplicate   NackReason = 100
	NackReasonNoRoute     NackReason = 150
)

// String renders the reason's wire name.
func (r NackReason) String() string {
	switch r {
	case NackReasonCongestion:
		return "Congestion"
	case NackReasonDuplicate:
		return "Duplicate"
	case NackReasonNoRoute:
		return "NoRoute"
	default:
		return "None"
	}
}

// Nack references a specific outgoing Interest (by Nonce) and carries a reason.
type Nack struct {
	Interest *Interest
	Reason   NackReason
}

// NewInterestPkt wraps i in a Pkt envelope.
func NewInterestPkt(i *Interest) *Pkt {
	pkt := &Pkt{Name: i.Name()}
	pkt.L3.Interest = i
	return pkt
}

// NewDataPkt wraps d in a Pkt envelope.
func NewDataPkt(d *Data) *Pkt {
	pkt := &Pkt{Name: d.Name()}
	pkt.L3.Data = d
	return pkt
}

// NewNackPkt wraps n in a Pkt envelope.
func NewNackPkt(n *Nack) *Pkt {
	pkt := &Pkt{Name: n.Interest.Name()}
	pkt.L3.Nack = n
	return pkt
}

// Pkt is the envelope the Forwarder and strategies pass between pipeline
// steps: exactly one of L3.Interest/L3.Data/L3.Nack is set.
type Pkt struct {
	Name Name
	L3   struct {
		Interest *Interest
		Data     *Data
		Nack     *Nack
	}
}
