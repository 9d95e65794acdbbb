package frame

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscapeUnescapeRoundTrip(t *testing.T) {
	for _, example := range [][]byte{
		{},
		{0x01, 0x02, 0x03},
		{Start, End, EscapeByte},
		{0x00, Start, 0xff, End, EscapeByte, 0x7f},
		bytes.Repeat([]byte{Start}, 10),
	} {
		framed := Escape(example)
		got, err := Unescape(framed)
		assert.Nil(t, err)
		assert.Equal(t, example, got)
	}
}

func TestReadCompleteFrame(t *testing.T) {
	payload := []byte{0x01, Start, 0x02, End, 0x03}
	framed := Escape(payload)

	buf := append([]byte{Start}, framed...)
	buf = append(buf, End)
	tail := []byte{0x99, 0x98}
	buf = append(buf, tail...)

	packet, remainder, ok, err := Read(buf)
	assert.Nil(t, err)
	assert.True(t, ok)
	assert.Equal(t, framed, packet)
	assert.Equal(t, tail, remainder)

	unescaped, err := Unescape(packet)
	assert.Nil(t, err)
	assert.Equal(t, payload, unescaped)
}

func TestReadIncompleteFrameReturnsUnchangedBuffer(t *testing.T) {
	buf := []byte{Start, 0x01, 0x02}
	packet, remainder, ok, err := Read(buf)
	assert.Nil(t, err)
	assert.False(t, ok)
	assert.Nil(t, packet)
	assert.Equal(t, buf, remainder)
}

func TestReadNoStartByte(t *testing.T) {
	buf := []byte{0x01, 0x02, 0x03}
	_, remainder, ok, err := Read(buf)
	assert.Nil(t, err)
	assert.False(t, ok)
	assert.Equal(t, buf, remainder)
}

func TestReadDanglingEscapeIsIncomplete(t *testing.T) {
	buf := []byte{Start, 0x01, EscapeByte}
	_, _, ok, err := Read(buf)
	assert.Nil(t, err)
	assert.False(t, ok)
}

func TestUnescapeRawDelimiterIsError(t *testing.T) {
	_, err := Unescape([]byte{0x01, Start, 0x02})
	assert.Error(t, err)
}

func TestReadRawStartInsideFrameIsError(t *testing.T) {
	buf := []byte{Start, 0x01, Start, 0x02, End}
	_, _, _, err := Read(buf)
	assert.Error(t, err)
}
