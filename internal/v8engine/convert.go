package v8engine

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strconv"

	"github.com/cryguy/jsbridge/internal/core"
	v8 "github.com/tommie/v8go"
)

// toJS converts a Go value into a script value.
//
// Supported: nil and core.Undefined (undefined), core.Null (null), bool,
// integer and float kinds (number), string, slices and arrays (Array), maps
// with string keys (plain object), *Object, *Value, *v8.Value and *v8.Object.
// Everything else, structs included, fails with an error wrapping
// core.ErrNotConvertible.
func (rt *Runtime) toJS(v any) (*v8.Value, error) {
	return rt.convert(v, 0, "")
}

func (rt *Runtime) convert(v any, depth int, path string) (*v8.Value, error) {
	if depth > rt.cfg.MaxConversionDepth {
		return nil, &core.ConversionError{Path: path, GoType: fmt.Sprintf("%T", v), Reason: "nesting too deep"}
	}
	if v == nil || v == core.Undefined {
		return v8.Undefined(rt.iso), nil
	}
	if v == core.Null {
		return v8.Null(rt.iso), nil
	}

	switch x := v.(type) {
	case *Object:
		if x == nil {
			return v8.Undefined(rt.iso), nil
		}
		return x.mustObject("convert").Value, nil
	case *Value:
		if x == nil {
			return v8.Undefined(rt.iso), nil
		}
		return x.v, nil
	case *v8.Value:
		if x == nil {
			return v8.Undefined(rt.iso), nil
		}
		return x, nil
	case *v8.Object:
		if x == nil {
			return v8.Undefined(rt.iso), nil
		}
		return x.Value, nil
	case bool:
		return v8.NewValue(rt.iso, x)
	case string:
		return v8.NewValue(rt.iso, x)
	case float64:
		return v8.NewValue(rt.iso, x)
	case int:
		return v8.NewValue(rt.iso, float64(x))
	case error:
		return nil, &core.ConversionError{Path: path, GoType: fmt.Sprintf("%T", v), Reason: "errors are only accepted by Settler.Reject"}
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		return v8.NewValue(rt.iso, rv.Bool())
	case reflect.String:
		return v8.NewValue(rt.iso, rv.String())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		// Numbers, not BigInts: the binding turns int64 into a BigInt.
		return v8.NewValue(rt.iso, float64(rv.Int()))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v8.NewValue(rt.iso, float64(rv.Uint()))
	case reflect.Float32, reflect.Float64:
		return v8.NewValue(rt.iso, rv.Float())
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return v8.Null(rt.iso), nil
		}
		return rt.convertSequence(rv, depth, path)
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, &core.ConversionError{Path: path, GoType: rv.Type().String(), Reason: "map keys must be strings"}
		}
		if rv.IsNil() {
			return v8.Null(rt.iso), nil
		}
		return rt.convertMapping(rv, depth, path)
	default:
		return nil, &core.ConversionError{Path: path, GoType: rv.Type().String(), Reason: "unsupported kind " + rv.Kind().String()}
	}
}

func (rt *Runtime) convertSequence(rv reflect.Value, depth int, path string) (*v8.Value, error) {
	n := rv.Len()
	arr, err := rt.helpers.array(n)
	if err != nil {
		return nil, fmt.Errorf("creating array: %w", err)
	}
	for i := 0; i < n; i++ {
		el, err := rt.convert(rv.Index(i).Interface(), depth+1, path+"["+strconv.Itoa(i)+"]")
		if err != nil {
			return nil, err
		}
		if err := arr.SetIdx(uint32(i), el); err != nil {
			return nil, fmt.Errorf("setting index %d: %w", i, err)
		}
	}
	return arr.Value, nil
}

func (rt *Runtime) convertMapping(rv reflect.Value, depth int, path string) (*v8.Value, error) {
	obj, err := rt.objTmpl.NewInstance(rt.ctx)
	if err != nil {
		return nil, fmt.Errorf("creating object: %w", err)
	}
	keys := make([]string, 0, rv.Len())
	values := make(map[string]reflect.Value, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		k := iter.Key().String()
		keys = append(keys, k)
		values[k] = iter.Value()
	}
	// Sorted so property order is deterministic.
	slices.Sort(keys)
	for _, k := range keys {
		childPath := k
		if path != "" {
			childPath = path + "." + k
		}
		el, err := rt.convert(values[k].Interface(), depth+1, childPath)
		if err != nil {
			return nil, err
		}
		if err := obj.Set(k, el); err != nil {
			return nil, fmt.Errorf("setting %q: %w", k, err)
		}
	}
	return obj.Value, nil
}

// errorValue turns a Go error into a script Error. Errors exposing a Code
// method (core.CodedError among them) get a code property, and their
// Message is used when they have one.
func (rt *Runtime) errorValue(err error) *v8.Value {
	msg := err.Error()
	var code string
	var coded interface{ Code() string }
	if errors.As(err, &coded) {
		code = coded.Code()
		if m, ok := coded.(interface{ Message() string }); ok {
			msg = m.Message()
		}
	}
	return rt.helpers.errorObject(msg, code)
}
