package v8engine

import (
	"fmt"

	"github.com/cryguy/jsbridge/internal/core"
	v8 "github.com/tommie/v8go"
)

// Value wraps a single script value of any kind.
type Value struct {
	rt *Runtime
	v  *v8.Value
}

// wrapValue wraps v; a nil value from the binding means undefined.
func (rt *Runtime) wrapValue(v *v8.Value) *Value {
	if v == nil {
		v = v8.Undefined(rt.iso)
	}
	return &Value{rt: rt, v: v}
}

// wrapArgs wraps call arguments, padding with undefined up to argsCount.
// Extra arguments beyond argsCount are kept.
func (rt *Runtime) wrapArgs(args []*v8.Value, argsCount int) []*Value {
	n := max(len(args), argsCount)
	out := make([]*Value, n)
	for i := range out {
		if i < len(args) {
			out[i] = rt.wrapValue(args[i])
		} else {
			out[i] = rt.wrapValue(nil)
		}
	}
	return out
}

// Kind classifies the value.
func (v *Value) Kind() core.Kind {
	return v.rt.kindOf(v.v)
}

func (rt *Runtime) kindOf(v *v8.Value) core.Kind {
	switch {
	case v.IsUndefined():
		return core.KindUndefined
	case v.IsNull():
		return core.KindNull
	case v.IsBoolean():
		return core.KindBool
	case v.IsNumber():
		return core.KindNumber
	case v.IsString():
		return core.KindString
	case v.IsSymbol(), v.IsBigInt():
		return core.KindOther
	case v.IsFunction():
		return core.KindFunction
	case v.IsArray():
		return core.KindSequence
	case v.IsObject():
		if rt.helpers.isPlainObject(v) {
			return core.KindMapping
		}
		return core.KindObject
	default:
		return core.KindOther
	}
}

func (v *Value) IsUndefined() bool { return v.v.IsUndefined() }
func (v *Value) IsNull() bool      { return v.v.IsNull() }
func (v *Value) IsObject() bool    { return v.v.IsObject() }
func (v *Value) IsFunction() bool  { return v.v.IsFunction() }
func (v *Value) IsPromise() bool   { return v.v.IsPromise() }

// Bool returns the value's truthiness.
func (v *Value) Bool() bool { return v.v.Boolean() }

// Number returns the value converted with ToNumber.
func (v *Value) Number() float64 { return v.v.Number() }

// String returns the value converted with ToString.
func (v *Value) String() string { return v.v.String() }

// V8 returns the underlying binding value for engine-specific operations.
func (v *Value) V8() *v8.Value { return v.v }

// AsObject returns an Object for the value. The caller owns one reference
// and should Release it when done.
func (v *Value) AsObject() (*Object, error) {
	if !v.v.IsObject() {
		return nil, fmt.Errorf("%s: %w", v.Kind(), core.ErrNotObject)
	}
	obj, err := v.v.AsObject()
	if err != nil {
		return nil, err
	}
	return v.rt.newObject(obj), nil
}

// PromiseState returns the state of a promise value. Non-promises report
// core.PromiseFulfilled, as awaiting them yields the value immediately.
func (v *Value) PromiseState() core.PromiseState {
	if !v.v.IsPromise() {
		return core.PromiseFulfilled
	}
	p, err := v.v.AsPromise()
	if err != nil {
		return core.PromisePending
	}
	switch p.State() {
	case v8.Fulfilled:
		return core.PromiseFulfilled
	case v8.Rejected:
		return core.PromiseRejected
	default:
		return core.PromisePending
	}
}

// Result returns the fulfilment value or rejection reason of a settled
// promise, or undefined while pending.
func (v *Value) Result() *Value {
	if !v.v.IsPromise() {
		return v
	}
	p, err := v.v.AsPromise()
	if err != nil || p.State() == v8.Pending {
		return v.rt.wrapValue(nil)
	}
	return v.rt.wrapValue(p.Result())
}

// JSON returns JSON.stringify(value).
func (v *Value) JSON() (string, error) {
	return v8.JSONStringify(v.rt.ctx, v.v)
}

// Export converts the value to its native Go form. The second result is
// false when the value has no native equivalent (functions, class instances,
// symbols), in which case the first is nil.
//
//	undefined -> nil, null -> core.Null, boolean -> bool, number -> float64,
//	string -> string, Array -> []any, plain object -> map[string]any
//
// Array elements without a native form become nil; such object properties
// are omitted. A reference back to an enclosing array or object has no
// native form either. Structures with more than Config.MaxExportNodes
// values export as (nil, false).
func (v *Value) Export() (any, bool) {
	e := &exporter{rt: v.rt, budget: v.rt.cfg.MaxExportNodes}
	out, ok := e.export(v.v)
	if e.exhausted {
		return nil, false
	}
	return out, ok
}

// exporter holds the state of one Export call.
type exporter struct {
	rt        *Runtime
	path      []*v8.Value // arrays and objects being exported, outermost first
	budget    int
	exhausted bool
}

// enter records a container on the path. It returns false for back-references.
func (e *exporter) enter(v *v8.Value) bool {
	for _, p := range e.path {
		if e.rt.helpers.sameObject(p, v) {
			return false
		}
	}
	e.path = append(e.path, v)
	return true
}

func (e *exporter) leave() { e.path = e.path[:len(e.path)-1] }

// spend takes one node from the budget.
func (e *exporter) spend() bool {
	if e.exhausted || e.budget == 0 {
		e.exhausted = true
		return false
	}
	e.budget--
	return true
}

func (e *exporter) export(v *v8.Value) (any, bool) {
	if !e.spend() || len(e.path) > e.rt.cfg.MaxConversionDepth {
		return nil, false
	}
	switch e.rt.kindOf(v) {
	case core.KindUndefined:
		return nil, true
	case core.KindNull:
		return core.Null, true
	case core.KindBool:
		return v.Boolean(), true
	case core.KindNumber:
		return v.Number(), true
	case core.KindString:
		return v.String(), true
	case core.KindSequence:
		return e.exportSequence(v)
	case core.KindMapping:
		return e.exportMapping(v)
	default:
		return nil, false
	}
}

func (e *exporter) exportSequence(v *v8.Value) (any, bool) {
	arr, err := v.AsObject()
	if err != nil {
		return nil, false
	}
	n, err := arrayLength(arr)
	if err != nil {
		return nil, false
	}
	// length is script controlled; check it before allocating.
	if uint64(n) > uint64(e.budget) {
		e.exhausted = true
		return nil, false
	}
	if !e.enter(v) {
		return nil, false
	}
	defer e.leave()

	out := make([]any, n)
	for i := uint32(0); i < n; i++ {
		el, err := arr.GetIdx(i)
		if err != nil {
			return nil, false
		}
		if x, ok := e.export(el); ok {
			out[i] = x
		}
		if e.exhausted {
			return nil, false
		}
	}
	return out, true
}

func (e *exporter) exportMapping(v *v8.Value) (any, bool) {
	obj, err := v.AsObject()
	if err != nil {
		return nil, false
	}
	keys, err := e.rt.helpers.ownKeys(v)
	if err != nil {
		return nil, false
	}
	if !e.enter(v) {
		return nil, false
	}
	defer e.leave()

	out := make(map[string]any, len(keys))
	for _, k := range keys {
		el, err := obj.Get(k)
		if err != nil {
			return nil, false
		}
		if x, ok := e.export(el); ok {
			out[k] = x
		}
		if e.exhausted {
			return nil, false
		}
	}
	return out, true
}
