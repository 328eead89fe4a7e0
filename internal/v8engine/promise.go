package v8engine

import (
	"errors"
	"sync/atomic"

	"github.com/cryguy/jsbridge/internal/eventloop"
	"go.uber.org/zap"
)

// Settler is the single-use continuation handed to an AsyncCallable. The
// first call to Resolve or Reject settles the promise; every later call is a
// contract violation that is ignored, logged at warn level and reported by a
// false return. Both methods are safe to call from any goroutine: the
// settlement is queued and applied on the engine thread the next time the
// runtime pumps (RunPending, Drain or Await).
type Settler struct {
	loop *eventloop.EventLoop
	id   uint64
	name string
	log  *zap.Logger
	done atomic.Bool
}

// Resolve fulfils the promise with v, converted like Object.Set values.
// A value without a conversion path fulfils with undefined.
func (s *Settler) Resolve(v any) bool {
	return s.settle(eventloop.Settlement{ID: s.id, Value: v})
}

// Reject rejects the promise with an Error built from err. A nil err
// rejects with a generic error.
func (s *Settler) Reject(err error) bool {
	if err == nil {
		err = errors.New("rejected")
	}
	return s.settle(eventloop.Settlement{ID: s.id, Err: err, Rejected: true})
}

// Settled reports whether Resolve or Reject has been called.
func (s *Settler) Settled() bool { return s.done.Load() }

func (s *Settler) settle(st eventloop.Settlement) bool {
	if !s.done.CompareAndSwap(false, true) {
		s.log.Warn("promise already settled, ignoring",
			zap.String("function", s.name), zap.Uint64("call", s.id), zap.Bool("reject", st.Rejected))
		return false
	}
	if !s.loop.Post(st) {
		s.log.Debug("settlement dropped, runtime was reset",
			zap.String("function", s.name), zap.Uint64("call", s.id))
		return false
	}
	return true
}
