package pseud

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallTableResolveDeliversValue(t *testing.T) {
	ct := newCallTable()
	id := NewCorrelationID()
	ch := ct.register(id, time.Second)

	ct.resolve(id, Result{Value: []byte("ok")})

	select {
	case res := <-ch:
		require.NoError(t, res.Err)
		assert.Equal(t, []byte("ok"), res.Value)
	case <-time.After(time.Second):
		t.Fatal("result never delivered")
	}
}

func TestCallTableTimesOut(t *testing.T) {
	ct := newCallTable()
	id := NewCorrelationID()
	ch := ct.register(id, 10*time.Millisecond)

	select {
	case res := <-ch:
		var timeoutErr *TimeoutError
		assert.ErrorAs(t, res.Err, &timeoutErr)
	case <-time.After(time.Second):
		t.Fatal("timeout never fired")
	}
}

func TestCallTableResolvesAtMostOnce(t *testing.T) {
	ct := newCallTable()
	id := NewCorrelationID()
	ch := ct.register(id, 20*time.Millisecond)

	ct.resolve(id, Result{Value: []byte("first")})
	ct.resolve(id, Result{Value: []byte("second")})

	res := <-ch
	assert.Equal(t, []byte("first"), res.Value)

	select {
	case <-ch:
		t.Fatal("call resolved twice")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestCallTableResolveUnknownIDIsNoop(t *testing.T) {
	ct := newCallTable()
	assert.NotPanics(t, func() {
		ct.resolve(NewCorrelationID(), Result{Value: []byte("ignored")})
	})
}

func TestCallTableCancelAllFailsPendingCalls(t *testing.T) {
	ct := newCallTable()
	id := NewCorrelationID()
	ch := ct.register(id, time.Minute)

	ct.cancelAll(assert.AnError)

	res := <-ch
	assert.Equal(t, assert.AnError, res.Err)
}
