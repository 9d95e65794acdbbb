package gwerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStringMatchesSpecNames(t *testing.T) {
	cases := map[Kind]string{
		Framing:                   "FRAMING_ERROR",
		Crypto:                    "CRYPTO_ERROR",
		Protocol:                  "PROTOCOL_ERROR",
		Schema:                    "SCHEMA_ERROR",
		Timeout:                   "TIMEOUT",
		BufferOverflow:            "BUFFER_OVERFLOW",
		UnknownTopic:              "UNKNOWN_TOPIC",
		InvalidFulfillmentRequest: "INVALID_FULFILLMENT_REQUEST",
		DeviceOffline:             "DEVICE_OFFLINE",
		HomeGraphError:            "HOMEGRAPH_ERROR",
	}
	for kind, want := range cases {
		assert.Equal(t, want, kind.String())
	}
}

func TestFatalClassification(t *testing.T) {
	fatal := []Kind{Framing, Crypto, Protocol, Timeout, BufferOverflow}
	for _, k := range fatal {
		assert.True(t, k.Fatal(), "%s should be fatal", k)
	}

	recoverable := []Kind{Schema, UnknownTopic, InvalidFulfillmentRequest, DeviceOffline, HomeGraphError}
	for _, k := range recoverable {
		assert.False(t, k.Fatal(), "%s should not be fatal", k)
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := New(Crypto, cause)
	assert.Equal(t, cause, errors.Unwrap(err))
	assert.Equal(t, "CRYPTO_ERROR: boom", err.Error())
}

func TestErrorsIsMatchesByKind(t *testing.T) {
	err := New(Timeout, errors.New("deadline"))
	assert.True(t, errors.Is(err, New(Timeout, nil)))
	assert.False(t, errors.Is(err, New(Crypto, nil)))
}

func TestNewfFormatsMessage(t *testing.T) {
	err := Newf(UnknownTopic, "topic %q", "weird/prefix")
	assert.Equal(t, `UNKNOWN_TOPIC: topic "weird/prefix"`, err.Error())
}
