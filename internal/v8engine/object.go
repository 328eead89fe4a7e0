package v8engine

import (
	"fmt"

	"github.com/cryguy/jsbridge/internal/core"
	v8 "github.com/tommie/v8go"
	"go.uber.org/zap"
)

// handle is an arena entry for one engine object reference.
type handle struct {
	id       core.ObjectID
	obj      *v8.Object
	refs     int32
	pinned   bool // never collected before Close (the global object)
	released bool
	dealloc  func()
}

// Object is a façade over an engine object. It supports property access,
// descriptor-controlled definition, subscript-style access with lenient
// conversion, and installation of Go host functions.
//
// Objects are reference counted on the Go side. An Object starts with one
// reference; Retain adds one and Release drops one. Once the count reaches
// zero the next Runtime.Collect reclaims the handle and runs its deallocator.
// From then on every method except ID, Valid and Release panics with an
// error wrapping core.ErrReleased.
type Object struct {
	rt *Runtime
	h  *handle
}

// newObject registers obj in the arena with one reference.
func (rt *Runtime) newObject(obj *v8.Object) *Object {
	rt.nextObjID++
	h := &handle{id: rt.nextObjID, obj: obj, refs: 1}
	rt.objects[h.id] = h
	return &Object{rt: rt, h: h}
}

// mustObject returns the engine object or panics if the handle was released.
func (o *Object) mustObject(op string) *v8.Object {
	if o.h.released {
		panic(fmt.Errorf("%s on object %d: %w", op, o.h.id, core.ErrReleased))
	}
	return o.h.obj
}

// ID returns the object's arena id.
func (o *Object) ID() core.ObjectID { return o.h.id }

// Valid reports whether the handle has not been released yet.
func (o *Object) Valid() bool { return !o.h.released }

// Runtime returns the runtime the object belongs to.
func (o *Object) Runtime() *Runtime { return o.rt }

// Retain adds a reference and returns o.
func (o *Object) Retain() *Object {
	o.mustObject("Retain")
	o.h.refs++
	return o
}

// Release drops a reference. Releasing a released object or dropping below
// zero does nothing.
func (o *Object) Release() {
	if o.h.released || o.h.refs == 0 {
		return
	}
	o.h.refs--
}

// Value returns the object as a Value.
func (o *Object) Value() *Value {
	return o.rt.wrapValue(o.mustObject("Value").Value)
}

// Has reports whether name exists on the object or its prototype chain.
func (o *Object) Has(name string) bool {
	return o.mustObject("Has").Has(name)
}

// Get returns the property's current value. Missing properties yield an
// undefined Value, never an error; the error is only set when an accessor throws.
func (o *Object) Get(name string) (*Value, error) {
	v, err := o.mustObject("Get").Get(name)
	if err != nil {
		return nil, fmt.Errorf("get %q: %w", name, err)
	}
	return o.rt.wrapValue(v), nil
}

// Set assigns a converted Go value with ordinary assignment semantics,
// creating the property when absent. Assigning to a non-writable property
// is silently ignored by the engine and is not reported as an error.
func (o *Object) Set(name string, value any) error {
	obj := o.mustObject("Set")
	val, err := o.rt.toJS(value)
	if err != nil {
		return fmt.Errorf("set %q: %w", name, err)
	}
	if err := obj.Set(name, val); err != nil {
		return fmt.Errorf("set %q: %w", name, err)
	}
	return nil
}

// Define creates or redefines a data property with the given flags,
// bypassing assignment semantics. Redefining a non-configurable property
// in an incompatible way returns the engine's TypeError.
func (o *Object) Define(name string, value any, d core.PropertyDescriptor) error {
	obj := o.mustObject("Define")
	val, err := o.rt.toJS(value)
	if err != nil {
		return fmt.Errorf("define %q: %w", name, err)
	}
	if err := o.rt.helpers.defineProperty(obj, name, val, d.Configurable(), d.Enumerable(), d.Writable()); err != nil {
		return fmt.Errorf("define %q (%s): %w", name, d, err)
	}
	return nil
}

// Delete removes an own property and reports whether the engine allowed it.
func (o *Object) Delete(name string) bool {
	return o.mustObject("Delete").Delete(name)
}

// Keys returns the object's own enumerable string keys.
func (o *Object) Keys() ([]string, error) {
	return o.rt.helpers.ownKeys(o.mustObject("Keys").Value)
}

// SetDeallocator registers fn to run exactly once when the handle is
// collected or the runtime closes. A later call replaces fn; nil clears it.
// After fn has run the Object is invalid.
func (o *Object) SetDeallocator(fn func()) {
	o.mustObject("SetDeallocator")
	o.h.dealloc = fn
}

// Index is the subscript getter. It returns the property converted to a
// native value, or nil when the property is missing or has no native form.
func (o *Object) Index(key string) any {
	v, err := o.Get(key)
	if err != nil {
		o.rt.log.Debug("subscript get failed", zap.String("key", key), zap.Error(err))
		return nil
	}
	out, ok := v.Export()
	if !ok {
		return nil
	}
	return out
}

// SetIndex is the subscript setter. It accepts an *Object, a *Value or any
// convertible Go value. Values without a conversion path set the property to
// undefined instead of failing.
func (o *Object) SetIndex(key string, value any) {
	obj := o.mustObject("SetIndex")
	val, err := o.rt.toJS(value)
	if err != nil {
		o.rt.log.Debug("subscript set value not convertible, using undefined",
			zap.String("key", key), zap.Error(err))
		val = v8.Undefined(o.rt.iso)
	}
	if err := obj.Set(key, val); err != nil {
		o.rt.log.Debug("subscript set failed", zap.String("key", key), zap.Error(err))
	}
}

// SetSyncFunction installs a host function under name. argsCount becomes the
// function's length; it is not enforced at call time.
func (o *Object) SetSyncFunction(name string, argsCount int, fn SyncCallable) error {
	obj := o.mustObject("SetSyncFunction")
	f, err := o.rt.newHostFunction(&hostFunc{name: name, argsCount: argsCount, sync: fn})
	if err != nil {
		return err
	}
	if err := obj.Set(name, f); err != nil {
		return fmt.Errorf("set function %q: %w", name, err)
	}
	return nil
}

// SetAsyncFunction installs a host function under name that returns a
// promise settled through the Settler passed to fn.
func (o *Object) SetAsyncFunction(name string, argsCount int, fn AsyncCallable) error {
	obj := o.mustObject("SetAsyncFunction")
	f, err := o.rt.newHostFunction(&hostFunc{name: name, argsCount: argsCount, async: fn})
	if err != nil {
		return err
	}
	if err := obj.Set(name, f); err != nil {
		return fmt.Errorf("set function %q: %w", name, err)
	}
	return nil
}
