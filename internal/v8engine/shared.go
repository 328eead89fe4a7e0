package v8engine

import (
	"fmt"

	"github.com/cryguy/jsbridge/internal/core"
)

// sharedIDProperty holds the registry id on shared script objects.
const sharedIDProperty = "__sharedObjectId"

type sharedPair struct {
	native any
	object *Object
}

// SharedRegistry pairs native Go values with script objects under the
// object's arena id, so a script object handed back to Go can be mapped to
// the value it represents. The registry holds its own reference to every
// shared object; a pair lives until Unshare or until the runtime closes.
type SharedRegistry struct {
	rt    *Runtime
	pairs map[core.ObjectID]sharedPair
}

func newSharedRegistry(rt *Runtime) *SharedRegistry {
	return &SharedRegistry{rt: rt, pairs: make(map[core.ObjectID]sharedPair)}
}

// Share creates a script object paired with native and returns it with one
// reference owned by the caller. The object carries its id in a
// non-enumerable, read-only __sharedObjectId property. Its deallocator
// belongs to the registry and must not be replaced.
func (r *SharedRegistry) Share(native any) (*Object, error) {
	obj, err := r.rt.NewObject()
	if err != nil {
		return nil, err
	}
	id := obj.ID()
	if err := obj.Define(sharedIDProperty, float64(id), core.DefaultDescriptor); err != nil {
		obj.Release()
		return nil, fmt.Errorf("tagging shared object: %w", err)
	}
	r.pairs[id] = sharedPair{native: native, object: obj.Retain()}
	obj.SetDeallocator(func() {
		delete(r.pairs, id)
	})
	return obj, nil
}

// Unshare drops the pair registered under id and the registry's reference
// to its object. It reports whether a pair existed.
func (r *SharedRegistry) Unshare(id core.ObjectID) bool {
	p, ok := r.pairs[id]
	if !ok {
		return false
	}
	delete(r.pairs, id)
	p.object.Release()
	return true
}

// Lookup returns the pair registered under id.
func (r *SharedRegistry) Lookup(id core.ObjectID) (any, *Object, bool) {
	p, ok := r.pairs[id]
	if !ok {
		return nil, nil, false
	}
	return p.native, p.object, true
}

// NativeOf returns the native value paired with a script object, for
// example one passed back as a host function argument. Objects that merely
// copy another object's __sharedObjectId are not matched.
func (r *SharedRegistry) NativeOf(v *Value) (any, bool) {
	if !v.IsObject() {
		return nil, false
	}
	obj, err := v.v.AsObject()
	if err != nil {
		return nil, false
	}
	idVal, err := obj.Get(sharedIDProperty)
	if err != nil || !idVal.IsNumber() {
		return nil, false
	}
	p, ok := r.pairs[core.ObjectID(idVal.Number())]
	if !ok || !p.object.Valid() {
		return nil, false
	}
	if !r.rt.helpers.sameObject(p.object.h.obj.Value, v.v) {
		return nil, false
	}
	return p.native, true
}

// Len returns the number of live pairs.
func (r *SharedRegistry) Len() int { return len(r.pairs) }
