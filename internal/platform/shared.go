package platform

import (
	"fmt"
	"sync"
)

// fanout dispatches change events to subscribed handlers. Both platform
// implementations embed it; events are delivered synchronously on the
// mutating goroutine.
type fanout struct {
	hmu       sync.Mutex
	handlers  map[int]Handler
	nextToken int
}

func (f *fanout) Subscribe(h Handler) int {
	f.hmu.Lock()
	defer f.hmu.Unlock()
	if f.handlers == nil {
		f.handlers = map[int]Handler{}
	}
	f.nextToken++
	f.handlers[f.nextToken] = h
	return f.nextToken
}

func (f *fanout) Unsubscribe(token int) {
	f.hmu.Lock()
	defer f.hmu.Unlock()
	delete(f.handlers, token)
}

func (f *fanout) emit(events ...Event) {
	f.hmu.Lock()
	hs := make([]Handler, 0, len(f.handlers))
	for _, h := range f.handlers {
		hs = append(hs, h)
	}
	f.hmu.Unlock()

	for _, e := range events {
		for _, h := range hs {
			h(e)
		}
	}
}

// errslot is the out-of-band error slot. It holds the reason for the
// most recent failed mutation; successful mutations reset it.
type errslot struct {
	lastErr    Errno
	lastErrMsg string
}

func (e *errslot) LastError() Errno         { return e.lastErr }
func (e *errslot) LastErrorMessage() string { return e.lastErrMsg }

func (e *errslot) ClearLastError() {
	e.lastErr = ErrnoNone
	e.lastErrMsg = ""
}

func (e *errslot) setError(code Errno, format string, args ...interface{}) {
	e.lastErr = code
	e.lastErrMsg = fmt.Sprintf(format, args...)
}
