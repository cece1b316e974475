package speech

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestFrameRoundTrip(t *testing.T) {
	data, err := requestFrame([]byte(`{"audio":{"format":"wav"}}`)).marshal()
	require.NoError(t, err)

	assert.Equal(t, byte(0x11), data[0])
	assert.Equal(t, byte(0x10), data[1])
	assert.Equal(t, byte(0x11), data[2])

	f, err := parseFrame(data)
	require.NoError(t, err)
	assert.Equal(t, msgFullClientRequest, f.Type)
	assert.JSONEq(t, `{"audio":{"format":"wav"}}`, string(f.Payload))
	assert.False(t, f.last())
}

func TestAudioFrameSequence(t *testing.T) {
	data, err := audioFrame([]byte("pcm"), 5, false).marshal()
	require.NoError(t, err)
	f, err := parseFrame(data)
	require.NoError(t, err)
	assert.Equal(t, int32(5), f.Sequence)
	assert.False(t, f.last())
	assert.Equal(t, "pcm", string(f.Payload))

	data, err = audioFrame([]byte("end"), 6, true).marshal()
	require.NoError(t, err)
	f, err = parseFrame(data)
	require.NoError(t, err)
	assert.Equal(t, int32(-6), f.Sequence)
	assert.True(t, f.last())
}

func TestErrorFrameCarriesCode(t *testing.T) {
	data, err := frame{
		Type:        msgServerError,
		Compression: compressNone,
		ErrorCode:   45000001,
		Payload:     []byte("bad request"),
	}.marshal()
	require.NoError(t, err)

	f, err := parseFrame(data)
	require.NoError(t, err)
	assert.Equal(t, uint32(45000001), f.ErrorCode)
	assert.Equal(t, "bad request", string(f.Payload))
}

func TestParseFrameRejectsGarbage(t *testing.T) {
	_, err := parseFrame([]byte{0x11})
	assert.Error(t, err)

	_, err = parseFrame([]byte{0x21, 0x90, 0x10, 0x00, 0, 0, 0, 0})
	assert.ErrorContains(t, err, "protocol version")

	// declared size larger than the remaining bytes
	_, err = parseFrame([]byte{0x11, 0x90, 0x10, 0x00, 0, 0, 0, 9, 'x'})
	assert.ErrorContains(t, err, "truncated")
}
