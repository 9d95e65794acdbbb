// Package handshake implements the 32-bit Diffie-Hellman key exchange used
// to bootstrap the AES session key with a gateway. The modulus, generator
// and public keys are all 32-bit values as required for compatibility with
// existing gateways, but the exponentiation is carried out with
// arbitrary-precision arithmetic to avoid overflow on intermediate
// (base*base) mod p steps.
package handshake

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"math/big"
)

// PreambleLen is the number of raw bytes a gateway sends at connection
// start: three big-endian uint32 values (p, g, A).
const PreambleLen = 12

// Preamble is the client's opening DH offer.
type Preamble struct {
	Prime        uint32
	Generator    uint32
	ClientPublic uint32
}

// ParsePreamble decodes the 12 raw preamble bytes. It returns an error if
// fewer than PreambleLen bytes are supplied.
func ParsePreamble(b []byte) (Preamble, error) {
	if len(b) < PreambleLen {
		return Preamble{}, fmt.Errorf("handshake: preamble needs %d bytes, got %d", PreambleLen, len(b))
	}
	return Preamble{
		Prime:        binary.BigEndian.Uint32(b[0:4]),
		Generator:    binary.BigEndian.Uint32(b[4:8]),
		ClientPublic: binary.BigEndian.Uint32(b[8:12]),
	}, nil
}

// Exchange holds the server's side of one completed handshake.
type Exchange struct {
	ServerSecret uint32
	ServerPublic uint32
	Shared       uint32
}

// randomServerSecret picks a random 31-bit server secret, matching the
// spec's "random 31-bit integer" requirement so that g^s never needs more
// than 32 bits of headroom during reduction.
func randomServerSecret() (uint32, error) {
	max := big.NewInt(1 << 31)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return 0, fmt.Errorf("handshake: generating server secret: %w", err)
	}
	return uint32(n.Uint64()), nil
}

// Respond computes the server's public key and the shared secret for the
// given preamble, using a freshly generated random server secret.
func Respond(p Preamble) (Exchange, error) {
	s, err := randomServerSecret()
	if err != nil {
		return Exchange{}, err
	}
	return RespondWithSecret(p, s), nil
}

// RespondWithSecret computes the server's public key and shared secret
// using a caller-supplied server secret. This is the seam scenario 1 in
// spec.md §8 exercises directly, and is also what Respond uses internally.
func RespondWithSecret(p Preamble, serverSecret uint32) Exchange {
	prime := new(big.Int).SetUint64(uint64(p.Prime))
	generator := new(big.Int).SetUint64(uint64(p.Generator))
	clientPublic := new(big.Int).SetUint64(uint64(p.ClientPublic))
	secret := new(big.Int).SetUint64(uint64(serverSecret))

	serverPublic := new(big.Int).Exp(generator, secret, prime)
	shared := new(big.Int).Exp(clientPublic, secret, prime)

	return Exchange{
		ServerSecret: serverSecret,
		ServerPublic: uint32(serverPublic.Uint64()),
		Shared:       uint32(shared.Uint64()),
	}
}

// EncodeServerPublic renders the server's public key as the 4 raw
// big-endian bytes sent back to the gateway (unframed, unencrypted).
func EncodeServerPublic(serverPublic uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, serverPublic)
	return b
}

// SharedSecretBytes renders the shared secret as 4 big-endian bytes, the
// input to the session key derivation in package streamcipher.
func SharedSecretBytes(shared uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, shared)
	return b
}
