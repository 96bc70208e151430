// Package defn holds the name, packet, and error vocabulary shared by every
// forwarding-core package: table, face, fw, mgmt.
package defn

import (
	"strconv"
	"strings"
)

// ComponentType identifies the TLV type of a name component. The core only
// needs to distinguish a handful of types to implement prefix/selector
// semantics; it does not carry a full TLV codec.
type ComponentType uint64

const (
	TypeGenericComponent    ComponentType = 0x08
	TypeImplicitDigest      ComponentType = 0x01
	TypeParametersDigest    ComponentType = 0x02
	TypeKeywordComponent    ComponentType = 0x20
	TypeSegmentComponent    ComponentType = 0x32
	TypeVersionComponent    ComponentType = 0x36
	TypeSequenceNumComponent ComponentType = 0x3a
)

// Component is a single opaque name component: a type tag plus a byte value.
type Component struct {
	Typ ComponentType
	Val []byte
}

// NewGenericComponent builds a generic-type component from a UTF-8 string.
func NewGenericComponent(s string) Component {
	return Component{Typ: TypeGenericComponent, Val: []byte(s)}
}

// Equal reports whether two components carry the same type and value.
func (c Component) Equal(o Component) bool {
	return c.Typ == o.Typ && string(c.Val) == string(o.Val)
}

// Compare orders components first by type, then by value, matching the
// canonical NDN component ordering used for longest-prefix comparisons.
func (c Component) Compare(o Component) int {
	if c.Typ != o.Typ {
		if c.Typ < o.Typ {
			return -1
		}
		return 1
	}
	return strings.Compare(string(c.Val), string(o.Val))
}

// String renders the component as "type=value" (generic components omit the
// type prefix), mirroring the teacher's alt-URI component formatting.
func (c Component) String() string {
	if c.Typ == TypeGenericComponent {
		return string(c.Val)
	}
	return strconv.FormatUint(uint64(c.Typ), 10) + "=" + string(c.Val)
}

// Name is an ordered sequence of opaque components.
type Name []Component

// NameFromStr parses a slash-separated URI into a Name. Only the generic
// component type is produced; this is sufficient for forwarding-core tests
// and configuration, which never need non-generic components.
func NameFromStr(s string) Name {
	s = strings.Trim(s, "/")
	if s == "" {
		return Name{}
	}
	parts := strings.Split(s, "/")
	n := make(Name, 0, len(parts))
	for _, p := range parts {
		n = append(n, NewGenericComponent(p))
	}
	return n
}

// String renders the name as a slash-separated URI.
func (n Name) String() string {
	if len(n) == 0 {
		return "/"
	}
	sb := strings.Builder{}
	for _, c := range n {
		sb.WriteByte('/')
		sb.WriteString(c.String())
	}
	return sb.String()
}

// Equal reports whether two names have the same components in the same order.
func (n Name) Equal(o Name) bool {
	if len(n) != len(o) {
		return false
	}
	for i := range n {
		if !n[i].Equal(o[i]) {
			return false
		}
	}
	return true
}

// IsPrefix reports whether n is a prefix of o (n == o counts as a prefix).
func (n Name) IsPrefix(o Name) bool {
	if len(n) > len(o) {
		return false
	}
	for i := range n {
		if !n[i].Equal(o[i]) {
			return false
		}
	}
	return true
}

// Append returns a new Name with the given components appended.
func (n Name) Append(cs ...Component) Name {
	out := make(Name, 0, len(n)+len(cs))
	out = append(out, n...)
	out = append(out, cs...)
	return out
}

// Prefix returns the first k components of n. Panics if k > len(n), matching
// slice semantics: callers are expected to bound-check against len(n) first.
func (n Name) Prefix(k int) Name {
	return n[:k]
}

// Compare performs a component-wise lexicographic comparison. It is used to
// keep the CS's sorted-by-name index ordered.
func (n Name) Compare(o Name) int {
	for i := 0; i < len(n) && i < len(o); i++ {
		if c := n[i].Compare(o[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(n) < len(o):
		return -1
	case len(n) > len(o):
		return 1
	default:
		return 0
	}
}

// Bytes renders a canonical byte encoding of the name, used only as a hash
// key (e.g. by the NameTree) -- not a wire format.
func (n Name) Bytes() []byte {
	sb := strings.Builder{}
	for _, c := range n {
		sb.WriteByte(byte(c.Typ))
		sb.WriteByte(0)
		sb.Write(c.Val)
		sb.WriteByte(0)
	}
	return []byte(sb.String())
}
