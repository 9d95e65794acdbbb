package streamcipher

import (
	"crypto/md5" //nolint:gosec
	"testing"

	"github.com/stretchr/testify/assert"
)

func testCipher(t *testing.T) *Cipher {
	t.Helper()
	c, err := New(bytesOf16("key-material-123"), bytesOf16("iv-material-12345"))
	assert.Nil(t, err)
	return c
}

func bytesOf16(s string) []byte {
	b := make([]byte, 16)
	copy(b, s)
	return b
}

func TestEncryptDecryptRoundTripNoTrailingZero(t *testing.T) {
	c := testCipher(t)

	for _, plaintext := range [][]byte{
		[]byte(`{"uniqueId":"c-1","token":"t-1"}`),
		[]byte("x"),
		[]byte(""),
		[]byte("exactly-sixteen!"),
	} {
		ciphertext := c.Encrypt(plaintext)
		assert.Equal(t, 0, len(ciphertext)%16)

		got, err := c.Decrypt(ciphertext)
		assert.Nil(t, err)
		assert.Equal(t, plaintext, got)
	}
}

func TestDecryptStripsTrailingZerosEvenIfOriginal(t *testing.T) {
	c := testCipher(t)

	ciphertext := c.Encrypt([]byte("abc\x00\x00"))
	got, err := c.Decrypt(ciphertext)
	assert.Nil(t, err)
	assert.Equal(t, []byte("abc"), got)
}

func TestNewRejectsWrongLengths(t *testing.T) {
	_, err := New(bytesOf16("short")[:8], bytesOf16("iv"))
	assert.Error(t, err)

	_, err = New(bytesOf16("key"), bytesOf16("short")[:8])
	assert.Error(t, err)
}

func TestDecryptRejectsNonBlockMultiple(t *testing.T) {
	c := testCipher(t)
	_, err := c.Decrypt([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestDeriveKeyAndIVMatchScenario(t *testing.T) {
	// spec.md §8 scenario 1: S=2 -> key = md5(0x00000002), iv = md5(key).
	shared := []byte{0x00, 0x00, 0x00, 0x02}
	key := DeriveKey(shared)
	expectedKey := md5.Sum(shared) //nolint:gosec
	assert.Equal(t, expectedKey[:], key)

	iv := DeriveIV(key)
	expectedIV := md5.Sum(key) //nolint:gosec
	assert.Equal(t, expectedIV[:], iv)
}
