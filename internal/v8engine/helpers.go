package v8engine

import (
	"fmt"

	v8 "github.com/tommie/v8go"
)

// helpersJS returns the script-side primitives the bridge needs but the V8
// binding does not expose directly. They are captured once at startup so
// later changes to globalThis.Object or globalThis.Error by user scripts do
// not affect the bridge.
const helpersJS = `
(function() {
	var defineProperty = Object.defineProperty;
	var getPrototypeOf = Object.getPrototypeOf;
	var keys = Object.keys;
	var objectProto = Object.prototype;
	var ErrorCtor = Error;
	return {
		define: function(o, k, v, c, e, w) {
			defineProperty(o, k, { value: v, configurable: c, enumerable: e, writable: w });
		},
		isPlain: function(o) {
			var p = getPrototypeOf(o);
			return p === null || p === objectProto;
		},
		keys: function(o) { return keys(o); },
		same: function(a, b) { return a === b; },
		newArray: function(n) { return new Array(n); },
		newError: function(m, c) {
			var e = new ErrorCtor(m);
			if (c !== undefined) e.code = c;
			return e;
		},
	};
})()
`

// helpers holds the compiled helper functions.
type helpers struct {
	iso      *v8.Isolate
	define   *v8.Function
	isPlain  *v8.Function
	keys     *v8.Function
	same     *v8.Function
	newArray *v8.Function
	newError *v8.Function
}

func newHelpers(iso *v8.Isolate, ctx *v8.Context) (*helpers, error) {
	val, err := ctx.RunScript(helpersJS, "bridge_helpers.js")
	if err != nil {
		return nil, err
	}
	obj, err := val.AsObject()
	if err != nil {
		return nil, err
	}
	h := &helpers{iso: iso}
	for name, dst := range map[string]**v8.Function{
		"define":   &h.define,
		"isPlain":  &h.isPlain,
		"keys":     &h.keys,
		"same":     &h.same,
		"newArray": &h.newArray,
		"newError": &h.newError,
	} {
		fv, err := obj.Get(name)
		if err != nil {
			return nil, fmt.Errorf("helper %s: %w", name, err)
		}
		fn, err := fv.AsFunction()
		if err != nil {
			return nil, fmt.Errorf("helper %s: %w", name, err)
		}
		*dst = fn
	}
	return h, nil
}

func (h *helpers) undefined() *v8.Value { return v8.Undefined(h.iso) }

// defineProperty runs Object.defineProperty(o, name, {value, ...flags}).
func (h *helpers) defineProperty(o *v8.Object, name string, val *v8.Value, configurable, enumerable, writable bool) error {
	key, err := v8.NewValue(h.iso, name)
	if err != nil {
		return err
	}
	c, _ := v8.NewValue(h.iso, configurable)
	e, _ := v8.NewValue(h.iso, enumerable)
	w, _ := v8.NewValue(h.iso, writable)
	_, err = h.define.Call(h.undefined(), o, key, val, c, e, w)
	return err
}

// isPlainObject reports whether o's prototype is Object.prototype or null.
func (h *helpers) isPlainObject(o *v8.Value) bool {
	res, err := h.isPlain.Call(h.undefined(), o)
	if err != nil {
		return false
	}
	return res.Boolean()
}

// sameObject reports whether a and b are the same engine object.
func (h *helpers) sameObject(a, b *v8.Value) bool {
	res, err := h.same.Call(h.undefined(), a, b)
	if err != nil {
		return false
	}
	return res.Boolean()
}

// ownKeys returns Object.keys(o).
func (h *helpers) ownKeys(o *v8.Value) ([]string, error) {
	res, err := h.keys.Call(h.undefined(), o)
	if err != nil {
		return nil, err
	}
	arr, err := res.AsObject()
	if err != nil {
		return nil, err
	}
	n, err := arrayLength(arr)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, n)
	for i := uint32(0); i < n; i++ {
		k, err := arr.GetIdx(i)
		if err != nil {
			return nil, err
		}
		keys = append(keys, k.String())
	}
	return keys, nil
}

// array creates an Array of length n.
func (h *helpers) array(n int) (*v8.Object, error) {
	size, err := v8.NewValue(h.iso, float64(n))
	if err != nil {
		return nil, err
	}
	res, err := h.newArray.Call(h.undefined(), size)
	if err != nil {
		return nil, err
	}
	return res.AsObject()
}

// errorObject creates an Error with the given message and optional code.
func (h *helpers) errorObject(message, code string) *v8.Value {
	msg, err := v8.NewValue(h.iso, message)
	if err != nil {
		return h.undefined()
	}
	args := []v8.Valuer{msg}
	if code != "" {
		c, err := v8.NewValue(h.iso, code)
		if err == nil {
			args = append(args, c)
		}
	}
	res, err := h.newError.Call(h.undefined(), args...)
	if err != nil {
		return msg
	}
	return res
}

// arrayLength reads the length property of an array-like object.
func arrayLength(arr *v8.Object) (uint32, error) {
	l, err := arr.Get("length")
	if err != nil {
		return 0, err
	}
	return l.Uint32(), nil
}
