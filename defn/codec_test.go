package defn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodePktRoundTripsInterest(t *testing.T) {
	n := uint32(42)
	orig := NewInterestPkt(&Interest{NameV: NameFromStr("/a/b"), NonceV: (*Nonce)(&n)})

	wire, err := EncodePkt(orig)
	require.NoError(t, err)

	got, err := DecodePkt(wire)
	require.NoError(t, err)
	require.NotNil(t, got.L3.Interest)
	assert.True(t, got.L3.Interest.Name().Equal(NameFromStr("/a/b")))
	assert.Equal(t, Nonce(42), got.L3.Interest.Nonce())
}

func TestEncodeDecodePktRoundTripsData(t *testing.T) {
	orig := NewDataPkt(&Data{NameV: NameFromStr("/a/b"), Content: []byte("hello")})

	wire, err := EncodePkt(orig)
	require.NoError(t, err)

	got, err := DecodePkt(wire)
	require.NoError(t, err)
	require.NotNil(t, got.L3.Data)
	assert.Equal(t, []byte("hello"), got.L3.Data.Content)
}

func TestDecodePktRejectsGarbage(t *testing.T) {
	_, err := DecodePkt([]byte("not a gob stream"))
	assert.ErrorIs(t, err, ErrMalformedPacket)
}
