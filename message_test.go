package pseud

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeFramesRouterShape(t *testing.T) {
	id := NewCorrelationID()
	frames := [][]byte{
		[]byte("routing-1"), {}, Version, id[:], {byte(KindWork)}, []byte("payload"),
	}

	decoded, err := DecodeFrames(frames)
	require.NoError(t, err)
	require.False(t, decoded.Probe)
	assert.Equal(t, id, decoded.Message.CorrelationID)
	assert.Equal(t, KindWork, decoded.Message.Kind)
	assert.Equal(t, []byte("payload"), decoded.Message.Payload)
	assert.Equal(t, []byte("routing-1"), decoded.Message.PeerRoutingID)
}

func TestDecodeFramesReqShape(t *testing.T) {
	id := NewCorrelationID()
	frames := [][]byte{Version, id[:], {byte(KindOK)}, []byte("payload")}

	decoded, err := DecodeFrames(frames)
	require.NoError(t, err)
	assert.Empty(t, decoded.Message.PeerRoutingID)
	assert.Equal(t, KindOK, decoded.Message.Kind)
}

func TestDecodeFramesProbeShape(t *testing.T) {
	frames := [][]byte{[]byte("routing-1"), {}}

	decoded, err := DecodeFrames(frames)
	require.NoError(t, err)
	assert.True(t, decoded.Probe)
	assert.Nil(t, decoded.Message)
}

func TestDecodeFramesRejectsWrongFrameCount(t *testing.T) {
	_, err := DecodeFrames([][]byte{{}, {}, {}})
	require.Error(t, err)
	var malformed *MalformedFrameError
	assert.ErrorAs(t, err, &malformed)
}

func TestDecodeFramesRejectsVersionMismatch(t *testing.T) {
	id := NewCorrelationID()
	frames := [][]byte{[]byte("v2"), id[:], {byte(KindOK)}, []byte("payload")}

	_, err := DecodeFrames(frames)
	require.Error(t, err)
	var mismatch *ProtocolVersionMismatchError
	assert.ErrorAs(t, err, &mismatch)
}

func TestEncodeRouterFramesRoundTrips(t *testing.T) {
	id := NewCorrelationID()
	msg := &Message{CorrelationID: id, Kind: KindWork, Payload: []byte("hi")}

	frames := EncodeRouterFrames([]byte("routing-1"), msg)
	decoded, err := DecodeFrames(frames)
	require.NoError(t, err)
	assert.Equal(t, id, decoded.Message.CorrelationID)
	assert.Equal(t, []byte("hi"), decoded.Message.Payload)
}

func TestCorrelationIDFromEmptyBytesIsZeroUUID(t *testing.T) {
	id, err := correlationIDFromBytes(nil)
	require.NoError(t, err)
	assert.Equal(t, uuid.UUID{}, id)
}

func TestNewCorrelationIDIsUnique(t *testing.T) {
	a := NewCorrelationID()
	b := NewCorrelationID()
	assert.NotEqual(t, a, b)
}
