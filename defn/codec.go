package defn

import (
	"bytes"
	"encoding/gob"
)

// EncodePkt serializes pkt into an opaque byte string. The module treats
// wire encoding as opaque throughout (spec §1/§6: concrete wire format is
// not specified), so this uses encoding/gob rather than a TLV codec -- no
// NDN TLV library exists in the example pack to ground a real one on, and
// every consumer here only ever round-trips through EncodePkt/DecodePkt
// itself, never interoperates with an external TLV-speaking peer.
func EncodePkt(pkt *Pkt) ([]byte, error) {
	var buf bytes.Buffer
	zeroHop := pkt.L3.Interest != nil && pkt.L3.Interest.HopLimitV != nil && *pkt.L3.Interest.HopLimitV == 0
	if err := gob.NewEncoder(&buf).Encode(wirePkt{Pkt: pkt, ZeroHopLimit: zeroHop}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// wirePkt is what EncodePkt gob-encodes. gob omits zero-valued fields, so
// an Interest HopLimit of 0 is carried by ZeroHopLimit.
type wirePkt struct {
	Pkt          *Pkt
	ZeroHopLimit bool
}

// DecodePkt is the inverse of EncodePkt.
func DecodePkt(wire []byte) (*Pkt, error) {
	var w wirePkt
	if err := gob.NewDecoder(bytes.NewReader(wire)).Decode(&w); err != nil || w.Pkt == nil {
		return nil, ErrMalformedPacket
	}
	if w.ZeroHopLimit && w.Pkt.L3.Interest != nil {
		w.Pkt.L3.Interest.HopLimitV = new(uint8)
	}
	return w.Pkt, nil
}
