package v8engine

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/cryguy/jsbridge/internal/core"
	"github.com/cryguy/jsbridge/internal/eventloop"
	"github.com/google/uuid"
	v8 "github.com/tommie/v8go"
	"go.uber.org/zap"
)

// Runtime owns one V8 isolate and context. It is the handle every Object and
// Value belongs to.
//
// A Runtime is not safe for concurrent use. All methods, and all methods of
// the Objects and Values it produces, must be called from the goroutine that
// currently owns it. The only exception is Settler, whose methods may be
// called from anywhere.
type Runtime struct {
	id   string
	cfg  core.Config
	log  *zap.Logger
	iso  *v8.Isolate
	ctx  *v8.Context
	loop *eventloop.EventLoop

	helpers *helpers
	objTmpl *v8.ObjectTemplate
	global  *Object
	shared  *SharedRegistry
	timers  *timerHooks

	objects   map[core.ObjectID]*handle
	nextObjID core.ObjectID
	funcs     map[uint64]*hostFunc
	nextFnID  uint64
	resolvers map[uint64]*v8.PromiseResolver

	closed bool
}

var _ eventloop.Host = (*Runtime)(nil)

// New creates a runtime with its own isolate and context.
func New(cfg core.Config) (*Runtime, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var iso *v8.Isolate
	if cfg.MemoryLimitMB > 0 {
		heapSize := uint64(cfg.MemoryLimitMB) * 1024 * 1024
		iso = v8.NewIsolate(v8.WithResourceConstraints(heapSize/2, heapSize))
	} else {
		iso = v8.NewIsolate()
	}
	ctx := v8.NewContext(iso)

	log := cfg.Logger
	if log == nil {
		log = core.Logger()
	}
	id := uuid.NewString()

	rt := &Runtime{
		id:        id,
		cfg:       cfg,
		log:       log.With(zap.String("runtime", id)),
		iso:       iso,
		ctx:       ctx,
		loop:      eventloop.New(cfg.MinTimerInterval),
		objTmpl:   v8.NewObjectTemplate(iso),
		objects:   make(map[core.ObjectID]*handle),
		funcs:     make(map[uint64]*hostFunc),
		resolvers: make(map[uint64]*v8.PromiseResolver),
	}

	h, err := newHelpers(iso, ctx)
	if err != nil {
		rt.dispose()
		return nil, fmt.Errorf("compiling bridge helpers: %w", err)
	}
	rt.helpers = h

	rt.global = rt.newObject(ctx.Global())
	rt.global.h.pinned = true
	rt.shared = newSharedRegistry(rt)

	for _, setup := range rt.setupFuncs() {
		if err := setup(rt); err != nil {
			rt.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}
	rt.Collect()

	rt.log.Debug("runtime created", zap.Int("memory_limit_mb", cfg.MemoryLimitMB))
	return rt, nil
}

// setupFuncs returns the global installers enabled by the config.
func (rt *Runtime) setupFuncs() []SetupFunc {
	var fns []SetupFunc
	if rt.cfg.EnableConsole {
		fns = append(fns, setupConsole)
	}
	if rt.cfg.EnableTimers {
		fns = append(fns, setupTimers)
	}
	return fns
}

// ID returns the runtime's unique id, also attached to its log lines.
func (rt *Runtime) ID() string { return rt.id }

// Logger returns the runtime's logger.
func (rt *Runtime) Logger() *zap.Logger { return rt.log }

// Global returns the global object. It is never collected before Close.
func (rt *Runtime) Global() *Object {
	rt.checkOpen("Global")
	return rt.global
}

// Shared returns the runtime's shared object registry.
func (rt *Runtime) Shared() *SharedRegistry {
	rt.checkOpen("Shared")
	return rt.shared
}

// NewObject creates an empty plain object owned by the caller.
func (rt *Runtime) NewObject() (*Object, error) {
	rt.checkOpen("NewObject")
	obj, err := rt.objTmpl.NewInstance(rt.ctx)
	if err != nil {
		return nil, fmt.Errorf("creating object: %w", err)
	}
	return rt.newObject(obj), nil
}

// NewValue converts a Go value into a script value.
func (rt *Runtime) NewValue(v any) (*Value, error) {
	rt.checkOpen("NewValue")
	val, err := rt.toJS(v)
	if err != nil {
		return nil, err
	}
	return rt.wrapValue(val), nil
}

// Eval evaluates script source in the global scope.
func (rt *Runtime) Eval(source string) (*Value, error) {
	return rt.EvalScript("eval.js", source)
}

// EvalScript evaluates script source, using name as the origin in stack traces.
func (rt *Runtime) EvalScript(name, source string) (*Value, error) {
	rt.checkOpen("EvalScript")
	val, err := rt.ctx.RunScript(source, name)
	if err != nil {
		return nil, fmt.Errorf("evaluating %s: %w", name, err)
	}
	rt.ctx.PerformMicrotaskCheckpoint()
	return rt.wrapValue(val), nil
}

// Call invokes fn with the given receiver and arguments. this and args are
// converted like Object.Set values; a nil this means undefined.
func (rt *Runtime) Call(fn *Value, this any, args ...any) (*Value, error) {
	rt.checkOpen("Call")
	f, err := fn.v.AsFunction()
	if err != nil {
		return nil, fmt.Errorf("calling non-function %s: %w", fn.Kind(), err)
	}
	recv, err := rt.toJS(this)
	if err != nil {
		return nil, fmt.Errorf("converting receiver: %w", err)
	}
	jsArgs := make([]v8.Valuer, 0, len(args))
	for i, a := range args {
		val, err := rt.toJS(a)
		if err != nil {
			return nil, fmt.Errorf("converting argument %d: %w", i, err)
		}
		jsArgs = append(jsArgs, val)
	}
	res, err := f.Call(recv, jsArgs...)
	if err != nil {
		return nil, err
	}
	rt.ctx.PerformMicrotaskCheckpoint()
	return rt.wrapValue(res), nil
}

// RunPending applies queued settlements and due timers without blocking.
// Returns true if any work ran.
func (rt *Runtime) RunPending() bool {
	rt.checkOpen("RunPending")
	rt.ctx.PerformMicrotaskCheckpoint()
	return rt.loop.RunReady(rt)
}

// Pending returns the number of async host calls that have not settled.
func (rt *Runtime) Pending() int {
	return rt.loop.Outstanding()
}

// Drain runs settlements and timers until nothing is outstanding or ctx is
// done, then collects released objects.
func (rt *Runtime) Drain(ctx context.Context) error {
	rt.checkOpen("Drain")
	rt.ctx.PerformMicrotaskCheckpoint()
	err := rt.loop.Drain(ctx, rt)
	rt.Collect()
	return err
}

// Await pumps the runtime until v settles. Non-promise values are returned
// as they are. A rejection is returned as *core.PromiseRejectedError.
// If the promise is pending and no async call or timer is outstanding,
// core.ErrNeverSettles is returned instead of blocking.
func (rt *Runtime) Await(ctx context.Context, v *Value) (*Value, error) {
	rt.checkOpen("Await")
	if !v.v.IsPromise() {
		return v, nil
	}
	p, err := v.v.AsPromise()
	if err != nil {
		return nil, err
	}
	defer rt.Collect()

	for {
		rt.RunPending()
		switch p.State() {
		case v8.Fulfilled:
			return rt.wrapValue(p.Result()), nil
		case v8.Rejected:
			return nil, rt.rejection(p.Result())
		}
		if !rt.loop.HasPending() {
			return nil, core.ErrNeverSettles
		}
		if err := rt.loop.Wait(ctx); err != nil {
			return nil, err
		}
	}
}

// rejection builds the Go error for a rejected promise reason.
func (rt *Runtime) rejection(reason *v8.Value) error {
	rej := &core.PromiseRejectedError{Message: reason.String()}
	if reason.IsObject() {
		obj, err := reason.AsObject()
		if err == nil {
			if msg, err := obj.Get("message"); err == nil && msg.IsString() {
				rej.Message = msg.String()
			}
			if code, err := obj.Get("code"); err == nil && code.IsString() {
				rej.Code = code.String()
			}
		}
	}
	return rej
}

// Collect reclaims every handle whose reference count dropped to zero and
// runs its deallocator. Returns the number of handles reclaimed.
func (rt *Runtime) Collect() int {
	if rt.closed {
		return 0
	}
	var ids []core.ObjectID
	for id, h := range rt.objects {
		if h.pinned || h.refs > 0 {
			continue
		}
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		h := rt.objects[id]
		delete(rt.objects, id)
		rt.release(h)
	}
	if len(ids) > 0 {
		rt.log.Debug("collected objects", zap.Int("count", len(ids)))
	}
	return len(ids)
}

// Live returns the number of handles in the arena, the global included.
func (rt *Runtime) Live() int { return len(rt.objects) }

// release invalidates a handle and runs its deallocator once.
func (rt *Runtime) release(h *handle) {
	if h.released {
		return
	}
	h.released = true
	h.obj = nil
	if fn := h.dealloc; fn != nil {
		h.dealloc = nil
		fn()
	}
}

// Close runs every outstanding deallocator, then disposes the context and
// isolate. Further use of the runtime or its objects panics. Close is idempotent.
func (rt *Runtime) Close() {
	if rt.closed {
		return
	}
	ids := make([]core.ObjectID, 0, len(rt.objects))
	for id := range rt.objects {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		rt.release(rt.objects[id])
	}
	rt.objects = nil
	rt.funcs = nil
	rt.resolvers = nil
	rt.loop.Reset()
	rt.closed = true
	rt.dispose()
	rt.log.Debug("runtime closed", zap.Int("objects_released", len(ids)))
}

func (rt *Runtime) dispose() {
	rt.ctx.Close()
	rt.iso.Dispose()
}

// reset drops outstanding async calls and timers so the runtime can be reused.
func (rt *Runtime) reset() {
	rt.loop.Reset()
	rt.resolvers = make(map[uint64]*v8.PromiseResolver)
	resetTimers(rt)
	rt.Collect()
}

func (rt *Runtime) checkOpen(op string) {
	if rt.closed {
		panic(fmt.Errorf("%s: %w", op, core.ErrClosed))
	}
}

// Settle implements eventloop.Host.
func (rt *Runtime) Settle(s eventloop.Settlement) {
	resolver, ok := rt.resolvers[s.ID]
	if !ok {
		return
	}
	delete(rt.resolvers, s.ID)

	if s.Rejected {
		err := s.Err
		if err == nil {
			err = errors.New("rejected")
		}
		resolver.Reject(rt.errorValue(err))
		return
	}

	val, err := rt.toJS(s.Value)
	if err != nil {
		rt.log.Debug("resolve value not convertible, resolving with undefined",
			zap.Uint64("call", s.ID), zap.Error(err))
		val = v8.Undefined(rt.iso)
	}
	resolver.Resolve(val)
}

// FireTimer implements eventloop.Host.
func (rt *Runtime) FireTimer(id int) {
	if err := fireTimer(rt, id); err != nil {
		rt.log.Warn("timer callback threw", zap.Int("timer", id), zap.Error(err))
	}
}

// RunMicrotasks implements eventloop.Host.
func (rt *Runtime) RunMicrotasks() {
	rt.ctx.PerformMicrotaskCheckpoint()
}
