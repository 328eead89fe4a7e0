package v8engine

import (
	"fmt"

	v8 "github.com/tommie/v8go"
	"go.uber.org/zap"
)

// SyncCallable is a Go body for a synchronous host function. The returned
// value is converted to the script result (nil means undefined); a returned
// error is thrown into script as an Error.
type SyncCallable interface {
	CallSync(args []*Value) (any, error)
}

// SyncFunc adapts a closure to SyncCallable.
type SyncFunc func(args []*Value) (any, error)

// CallSync calls f(args).
func (f SyncFunc) CallSync(args []*Value) (any, error) { return f(args) }

// AsyncCallable is a Go body for a promise-returning host function. It runs
// on the engine thread and must settle the promise exactly once through s,
// typically from a goroutine it starts. A promise that is never settled
// stays pending.
type AsyncCallable interface {
	CallAsync(args []*Value, s *Settler)
}

// AsyncFunc adapts a closure to AsyncCallable.
type AsyncFunc func(args []*Value, s *Settler)

// CallAsync calls f(args, s).
func (f AsyncFunc) CallAsync(args []*Value, s *Settler) { f(args, s) }

// hostFunc is one entry in the runtime's dispatch table.
type hostFunc struct {
	name      string
	argsCount int
	sync      SyncCallable
	async     AsyncCallable
}

// newHostFunction registers fn in the dispatch table and creates the script
// function that calls back into it.
func (rt *Runtime) newHostFunction(fn *hostFunc) (*v8.Function, error) {
	if fn.argsCount < 0 {
		return nil, fmt.Errorf("function %q: negative argsCount %d", fn.name, fn.argsCount)
	}
	if fn.sync == nil && fn.async == nil {
		return nil, fmt.Errorf("function %q: nil callable", fn.name)
	}

	rt.nextFnID++
	id := rt.nextFnID
	rt.funcs[id] = fn

	tmpl := v8.NewFunctionTemplate(rt.iso, func(info *v8.FunctionCallbackInfo) *v8.Value {
		return rt.dispatch(id, info)
	})
	f := tmpl.GetFunction(rt.ctx)
	fobj, err := f.AsObject()
	if err != nil {
		return nil, err
	}

	length, err := v8.NewValue(rt.iso, float64(fn.argsCount))
	if err != nil {
		return nil, err
	}
	if err := rt.helpers.defineProperty(fobj, "length", length, true, false, false); err != nil {
		return nil, fmt.Errorf("function %q: setting length: %w", fn.name, err)
	}
	name, err := v8.NewValue(rt.iso, fn.name)
	if err != nil {
		return nil, err
	}
	if err := rt.helpers.defineProperty(fobj, "name", name, true, false, false); err != nil {
		return nil, fmt.Errorf("function %q: setting name: %w", fn.name, err)
	}
	return f, nil
}

// dispatch is the single entry point for every host function call.
func (rt *Runtime) dispatch(id uint64, info *v8.FunctionCallbackInfo) *v8.Value {
	fn, ok := rt.funcs[id]
	if !ok {
		// The runtime was closed while a script still held the function.
		return rt.iso.ThrowException(rt.helpers.errorObject("host function is no longer available", ""))
	}
	args := rt.wrapArgs(info.Args(), fn.argsCount)

	if fn.async != nil {
		return rt.dispatchAsync(fn, args)
	}

	result, err := fn.sync.CallSync(args)
	if err != nil {
		return rt.iso.ThrowException(rt.errorValue(err))
	}
	val, err := rt.toJS(result)
	if err != nil {
		rt.log.Debug("host function result not convertible, returning undefined",
			zap.String("function", fn.name), zap.Error(err))
		return v8.Undefined(rt.iso)
	}
	return val
}

func (rt *Runtime) dispatchAsync(fn *hostFunc, args []*Value) *v8.Value {
	resolver, err := v8.NewPromiseResolver(rt.ctx)
	if err != nil {
		return rt.iso.ThrowException(rt.helpers.errorObject("creating promise: "+err.Error(), ""))
	}
	callID := rt.loop.Track()
	rt.resolvers[callID] = resolver

	s := &Settler{
		loop: rt.loop,
		id:   callID,
		name: fn.name,
		log:  rt.log,
	}
	fn.async.CallAsync(args, s)
	return resolver.GetPromise().Value
}
