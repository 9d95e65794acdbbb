// Package streamcipher implements the AES-128-CBC scheme used to encrypt
// gateway frame payloads once the DH handshake has produced a shared
// secret. Padding is a manual right-pad with zero bytes to the next
// 16-byte boundary rather than PKCS#7, matching existing gateway firmware.
// Because of this, plaintext containing a trailing 0x00 byte cannot be
// round-tripped unambiguously: decrypt always strips every trailing zero
// byte, whatever put it there.
package streamcipher

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5" //nolint:gosec // required for wire compatibility with existing gateway firmware, not used for anything security-sensitive
	"fmt"
)

const blockSize = aes.BlockSize // 16

// Cipher holds a derived AES-128 key and IV for one gateway connection.
type Cipher struct {
	block cipher.Block
	iv    []byte
}

// DeriveKey computes the AES-128 key from the 4-byte shared secret:
// key = md5(S), as required by the wire protocol.
func DeriveKey(sharedSecretBytes []byte) []byte {
	sum := md5.Sum(sharedSecretBytes) //nolint:gosec
	return sum[:]
}

// DeriveIV computes the initialization vector from the key: iv = md5(key).
func DeriveIV(key []byte) []byte {
	sum := md5.Sum(key) //nolint:gosec
	return sum[:]
}

// New builds a Cipher from a 16-byte key and 16-byte IV. Any other length
// is rejected, matching the spec's "rejects key/IV lengths other than 16
// bytes" requirement.
func New(key, iv []byte) (*Cipher, error) {
	if len(key) != blockSize {
		return nil, fmt.Errorf("streamcipher: key must be %d bytes, got %d", blockSize, len(key))
	}
	if len(iv) != blockSize {
		return nil, fmt.Errorf("streamcipher: iv must be %d bytes, got %d", blockSize, len(iv))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("streamcipher: building AES block cipher: %w", err)
	}

	return &Cipher{block: block, iv: append([]byte(nil), iv...)}, nil
}

// NewFromSharedSecret derives the key and IV from the DH shared secret and
// builds a Cipher in one step.
func NewFromSharedSecret(sharedSecretBytes []byte) (*Cipher, error) {
	key := DeriveKey(sharedSecretBytes)
	return New(key, DeriveIV(key))
}

// zeroPad right-pads plaintext with 0x00 bytes to the next 16-byte
// multiple. A zero-length input is padded to one full block, matching
// standard CBC block cipher behaviour.
func zeroPad(plaintext []byte) []byte {
	padded := len(plaintext)
	if rem := padded % blockSize; rem != 0 {
		padded += blockSize - rem
	} else if padded == 0 {
		padded = blockSize
	}
	out := make([]byte, padded)
	copy(out, plaintext)
	return out
}

// Encrypt zero-pads plaintext to a block boundary and encrypts it with
// AES-128-CBC using the connection's key and IV.
func (c *Cipher) Encrypt(plaintext []byte) []byte {
	padded := zeroPad(plaintext)
	out := make([]byte, len(padded))
	mode := cipher.NewCBCEncrypter(c.block, c.iv)
	mode.CryptBlocks(out, padded)
	return out
}

// Decrypt decrypts AES-128-CBC ciphertext and strips trailing zero bytes.
// ciphertext must be a non-zero multiple of the block size.
func (c *Cipher) Decrypt(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) == 0 || len(ciphertext)%blockSize != 0 {
		return nil, fmt.Errorf("streamcipher: ciphertext length %d is not a positive multiple of %d", len(ciphertext), blockSize)
	}

	out := make([]byte, len(ciphertext))
	mode := cipher.NewCBCDecrypter(c.block, c.iv)
	mode.CryptBlocks(out, ciphertext)

	return bytes.TrimRight(out, "\x00"), nil
}
