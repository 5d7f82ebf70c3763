package orchestrator

import "sync"

// StopToken is a one-shot cooperative stop signal.
type StopToken struct {
	once sync.Once
	done chan struct{}
}

func NewStopToken() *StopToken {
	return &StopToken{done: make(chan struct{})}
}

// Stop signals every waiter. Later calls are no-ops.
func (t *StopToken) Stop() {
	t.once.Do(func() { close(t.done) })
}

func (t *StopToken) Done() <-chan struct{} {
	return t.done
}

func (t *StopToken) Stopped() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}
