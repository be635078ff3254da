package codec

import (
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackerRoundTripsPlainValues(t *testing.T) {
	p := NewPacker()

	b, err := p.Marshal(map[string]interface{}{"a": 1, "b": "two"})
	require.NoError(t, err)

	var out map[string]interface{}
	require.NoError(t, p.Unmarshal(b, &out))
	assert.EqualValues(t, 1, out["a"])
	assert.Equal(t, "two", out["b"])
}

func TestPackerRoundTripsTime(t *testing.T) {
	p := NewPacker()

	loc := time.FixedZone("CET", 3600)
	in := time.Date(2024, 3, 14, 9, 26, 53, 123000, loc)

	b, err := p.Marshal(in)
	require.NoError(t, err)

	var out time.Time
	require.NoError(t, p.Unmarshal(b, &out))

	assert.True(t, in.Equal(out))
	_, offset := out.Zone()
	assert.Equal(t, 3600, offset)
}

func TestRegisterExtTypeRejectsCodeCollision(t *testing.T) {
	p := NewPacker()

	err := p.RegisterExtType(fakeExtCodec{code: timeExtCode})
	require.Error(t, err)
}

type fakeExtCodec struct {
	code int8
}

func (f fakeExtCodec) Code() int8 { return f.code }

func (f fakeExtCodec) Type() reflect.Type { return reflect.TypeOf(fakeValue{}) }

func (f fakeExtCodec) Encode(v interface{}) ([]byte, error) { return nil, nil }

func (f fakeExtCodec) Decode(data []byte) (interface{}, error) { return fakeValue{}, nil }

type fakeValue struct{}
