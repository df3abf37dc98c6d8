package wire

import (
	"testing"

	"github.com/stretchr/testify/require"

	"mentalpoker/internal/elgamal"
	"mentalpoker/internal/mpcrypto"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	frame, err := Encode(TypeReady, Ready{IsReady: true})
	require.NoError(t, err)

	env, err := Decode(frame)
	require.NoError(t, err)
	require.Equal(t, TypeReady, env.Type)

	var m Ready
	require.NoError(t, DecodeValue(env, &m))
	require.True(t, m.IsReady)
}

func TestDecodeRejectsMissingType(t *testing.T) {
	_, err := Decode([]byte(`{"value":{}}`))
	require.Error(t, err)
	_, err = Decode([]byte(`not json`))
	require.Error(t, err)
}

func TestCardCodecRoundTrip(t *testing.T) {
	s, err := mpcrypto.RandomScalar()
	require.NoError(t, err)
	rho, err := mpcrypto.RandomScalar()
	require.NoError(t, err)

	card, err := elgamal.NewCard(31)
	require.NoError(t, err)
	card, err = elgamal.AddAndMask(card, s, rho)
	require.NoError(t, err)

	w := EncodeCard(card)
	back, err := DecodeCard(w)
	require.NoError(t, err)
	require.True(t, mpcrypto.PointEq(card.Epk, back.Epk))
	require.True(t, mpcrypto.PointEq(card.Msg, back.Msg))
	require.True(t, mpcrypto.PointEq(card.Pk, back.Pk))
}

func TestCardCodecIdentity(t *testing.T) {
	card, err := elgamal.NewCard(0)
	require.NoError(t, err)
	w := EncodeCard(card)
	require.Equal(t, "0", w[0])
	require.Equal(t, "0", w[1])
	back, err := DecodeCard(w)
	require.NoError(t, err)
	require.True(t, back.Epk.IsIdentity())
	require.True(t, back.Pk.IsIdentity())
}

func TestDecodeCardRejectsOffCurve(t *testing.T) {
	w := Card{"2", "3", "0", "1", "0", "1"}
	_, err := DecodeCard(w)
	require.Error(t, err)
}

func TestDeckCodecRoundTrip(t *testing.T) {
	deck := elgamal.FreshDeck()
	w, err := EncodeDeck(deck)
	require.NoError(t, err)
	back, err := DecodeDeck(w)
	require.NoError(t, err)
	require.Len(t, back, elgamal.DeckSize)
	for i := range deck {
		require.True(t, mpcrypto.PointEq(deck[i].Msg, back[i].Msg))
	}
}
