package jsonfetch

import (
	"context"
	"sync"
	"sync/atomic"
)

// State is the lifecycle position of a Future.
type State int32

const (
	StatePending State = iota
	StateResolved
	StateRejected
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateResolved:
		return "resolved"
	case StateRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Future holds the eventual outcome of one FetchJSON call.
type Future struct {
	done  chan struct{}
	once  sync.Once
	state atomic.Int32

	// resp and err are written once before done is closed.
	resp *Response
	err  error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// settle moves the future into its terminal state. Later calls are ignored.
func (f *Future) settle(resp *Response, err error) bool {
	settled := false
	f.once.Do(func() {
		f.resp = resp
		f.err = err
		if err == nil {
			f.state.Store(int32(StateResolved))
		} else {
			f.state.Store(int32(StateRejected))
		}
		close(f.done)
		settled = true
	})
	return settled
}

// Done is closed once the future reaches a terminal state.
func (f *Future) Done() <-chan struct{} { return f.done }

// State reports the current state without blocking.
func (f *Future) State() State { return State(f.state.Load()) }

// Result returns the outcome if the future has settled. ok is false while
// the request is still pending.
func (f *Future) Result() (resp *Response, ok bool, err error) {
	select {
	case <-f.done:
		return f.resp, true, f.err
	default:
		return nil, false, nil
	}
}

// Wait blocks until the future settles or ctx ends. Giving up on the wait does
// not abort the underlying request.
func (f *Future) Wait(ctx context.Context) (*Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case <-f.done:
		return f.resp, f.err
	default:
	}
	select {
	case <-f.done:
		return f.resp, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
