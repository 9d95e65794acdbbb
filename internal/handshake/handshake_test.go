package handshake

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRespondWithSecretScenario(t *testing.T) {
	// spec.md §8 scenario 1: p=23, g=5, A=8, s=6 -> B=8, S=2.
	p := Preamble{Prime: 23, Generator: 5, ClientPublic: 8}
	ex := RespondWithSecret(p, 6)

	assert.Equal(t, uint32(8), ex.ServerPublic)
	assert.Equal(t, uint32(2), ex.Shared)
}

func TestRespondWithSecretCommutative(t *testing.T) {
	// For a chain of (p, g, s1, s2) the server-side derivation of the
	// shared secret from (g^s1 as the "client" public) using s2 should
	// equal deriving it the other way around: g^(s1*s2) mod p.
	const prime = 2147483647 // a Mersenne prime comfortably under 2^32
	const generator = 7

	cases := []struct{ s1, s2 uint32 }{
		{3, 5}, {1, 1}, {12345, 67890}, {2, 999999},
	}

	for _, c := range cases {
		clientSide := RespondWithSecret(Preamble{Prime: prime, Generator: generator, ClientPublic: generator}, c.s1)
		serverSide := RespondWithSecret(Preamble{Prime: prime, Generator: generator, ClientPublic: clientSide.ServerPublic}, c.s2)

		otherDirection := RespondWithSecret(Preamble{Prime: prime, Generator: generator, ClientPublic: generator}, c.s2)
		otherShared := RespondWithSecret(Preamble{Prime: prime, Generator: generator, ClientPublic: otherDirection.ServerPublic}, c.s1)

		assert.Equal(t, serverSide.Shared, otherShared.Shared)
	}
}

func TestParsePreambleRequiresTwelveBytes(t *testing.T) {
	_, err := ParsePreamble([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestParsePreambleDecodesBigEndian(t *testing.T) {
	b := []byte{0, 0, 0, 23, 0, 0, 0, 5, 0, 0, 0, 8}
	p, err := ParsePreamble(b)
	assert.Nil(t, err)
	assert.Equal(t, Preamble{Prime: 23, Generator: 5, ClientPublic: 8}, p)
}

func TestEncodeServerPublicBigEndian(t *testing.T) {
	assert.Equal(t, []byte{0, 0, 0, 8}, EncodeServerPublic(8))
}
