package pseud

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Result is what a pending call resolves to: exactly one of Value or
// Err is set.
type Result struct {
	Value []byte
	Err   error
}

// callRecord tracks one outstanding call, per SPEC_FULL.md §5: a
// result channel, a one-shot deadline timer, and a sync.Once so a late
// reply racing a timeout resolves at most once. Grounded on
// xiqingping-birpc/birpc.go's CallWithDeadline, adapted from its
// map[uint64]*rpc.Call shape to 16-byte correlation ids.
type callRecord struct {
	id       uuid.UUID
	resultCh chan Result
	timer    *time.Timer
	once     sync.Once
}

// callTable is the correlationID -> *callRecord map a Peer consults on
// every OK/ERROR frame and every deadline expiry.
type callTable struct {
	mu      sync.Mutex
	pending map[uuid.UUID]*callRecord
}

func newCallTable() *callTable {
	return &callTable{pending: make(map[uuid.UUID]*callRecord)}
}

// register creates a callRecord for id, arming a timer that resolves
// the call with a *TimeoutError if timeout elapses before resolve is
// called. The caller must receive from the returned channel exactly
// once.
func (t *callTable) register(id uuid.UUID, timeout time.Duration) <-chan Result {
	rec := &callRecord{id: id, resultCh: make(chan Result, 1)}
	rec.timer = time.AfterFunc(timeout, func() {
		t.resolve(id, Result{Err: &TimeoutError{}})
	})

	t.mu.Lock()
	t.pending[id] = rec
	t.mu.Unlock()

	return rec.resultCh
}

// resolve completes the call identified by id with result, a no-op if
// the call has already resolved (by reply or by timeout) or does not
// exist -- the at-most-once guarantee spec.md's Call Table requires.
func (t *callTable) resolve(id uuid.UUID, result Result) {
	t.mu.Lock()
	rec, ok := t.pending[id]
	if ok {
		delete(t.pending, id)
	}
	t.mu.Unlock()
	if !ok {
		return
	}

	rec.once.Do(func() {
		rec.timer.Stop()
		rec.resultCh <- result
	})
}

// cancelAll resolves every pending call with err, used by Peer.Stop so
// no caller blocks forever on a connection that is going away.
func (t *callTable) cancelAll(err error) {
	t.mu.Lock()
	pending := t.pending
	t.pending = make(map[uuid.UUID]*callRecord)
	t.mu.Unlock()

	for _, rec := range pending {
		rec.once.Do(func() {
			rec.timer.Stop()
			rec.resultCh <- Result{Err: err}
		})
	}
}
