package v8engine

import (
	"testing"

	"github.com/cryguy/jsbridge/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestObject(t *testing.T, rt *Runtime) *Object {
	t.Helper()
	obj, err := rt.NewObject()
	require.NoError(t, err)
	return obj
}

func TestObject_GetMissingIsUndefined(t *testing.T) {
	rt := newTestRuntime(t)
	obj := newTestObject(t, rt)

	assert.False(t, obj.Has("missing"))
	v, err := obj.Get("missing")
	require.NoError(t, err)
	assert.True(t, v.IsUndefined())
}

func TestObject_SetThenGet(t *testing.T) {
	rt := newTestRuntime(t)
	obj := newTestObject(t, rt)

	require.NoError(t, obj.Set("name", "alice"))
	require.NoError(t, obj.Set("age", 30))
	require.NoError(t, obj.Set("tags", []string{"a", "b"}))

	assert.True(t, obj.Has("name"))
	name, err := obj.Get("name")
	require.NoError(t, err)
	assert.Equal(t, "alice", name.String())

	age, err := obj.Get("age")
	require.NoError(t, err)
	assert.Equal(t, core.KindNumber, age.Kind())
	assert.Equal(t, 30.0, age.Number())

	tags, err := obj.Get("tags")
	require.NoError(t, err)
	assert.Equal(t, core.KindSequence, tags.Kind())
}

func TestObject_HasSeesPrototypeChain(t *testing.T) {
	rt := newTestRuntime(t)
	obj := newTestObject(t, rt)

	assert.True(t, obj.Has("toString"))
}

func TestObject_SetNotConvertible(t *testing.T) {
	rt := newTestRuntime(t)
	obj := newTestObject(t, rt)

	err := obj.Set("bad", struct{ X int }{1})
	assert.ErrorIs(t, err, core.ErrNotConvertible)
	assert.False(t, obj.Has("bad"))
}

func TestObject_DefineReadOnly(t *testing.T) {
	rt := newTestRuntime(t)
	obj := newTestObject(t, rt)

	require.NoError(t, obj.Define("fixed", 1, core.Enumerable))
	require.NoError(t, obj.Set("fixed", 2))

	v, err := obj.Get("fixed")
	require.NoError(t, err)
	assert.Equal(t, 1.0, v.Number(), "assignment to a non-writable property is ignored")
}

func TestObject_DefineWritable(t *testing.T) {
	rt := newTestRuntime(t)
	obj := newTestObject(t, rt)

	require.NoError(t, obj.Define("count", 1, core.Writable|core.Enumerable))
	require.NoError(t, obj.Set("count", 2))

	v, err := obj.Get("count")
	require.NoError(t, err)
	assert.Equal(t, 2.0, v.Number())
}

func TestObject_DefineEnumerability(t *testing.T) {
	rt := newTestRuntime(t)
	obj := newTestObject(t, rt)

	require.NoError(t, obj.Define("visible", "v", core.Enumerable))
	require.NoError(t, obj.Define("hidden", "h", core.DefaultDescriptor))

	keys, err := obj.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"visible"}, keys)
	assert.True(t, obj.Has("hidden"))
}

func TestObject_DefineNonConfigurable(t *testing.T) {
	rt := newTestRuntime(t)
	obj := newTestObject(t, rt)

	require.NoError(t, obj.Define("locked", 1, core.DefaultDescriptor))
	assert.False(t, obj.Delete("locked"))

	err := obj.Define("locked", 2, core.Writable)
	require.Error(t, err, "redefining a non-configurable property throws")

	require.NoError(t, obj.Define("loose", 1, core.Configurable))
	require.NoError(t, obj.Define("loose", 2, core.Configurable|core.Writable))
	assert.True(t, obj.Delete("loose"))
	assert.False(t, obj.Has("loose"))
}

func TestObject_DefineVisibleFromScript(t *testing.T) {
	rt := newTestRuntime(t)
	obj := newTestObject(t, rt)

	require.NoError(t, obj.Define("x", 7, core.Configurable|core.Enumerable|core.Writable))
	require.NoError(t, rt.Global().Set("target", obj))

	v, err := rt.Eval(`JSON.stringify(Object.getOwnPropertyDescriptor(target, "x"))`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"value":7,"writable":true,"enumerable":true,"configurable":true}`, v.String())
}

func TestObject_Index(t *testing.T) {
	rt := newTestRuntime(t)
	obj := newTestObject(t, rt)

	require.NoError(t, obj.Set("n", 1.5))
	require.NoError(t, obj.Set("list", []any{"a", true}))
	require.NoError(t, rt.Global().Set("holder", obj))
	_, err := rt.Eval("holder.fn = function() {}; holder.nul = null;")
	require.NoError(t, err)

	assert.Equal(t, 1.5, obj.Index("n"))
	assert.Equal(t, []any{"a", true}, obj.Index("list"))
	assert.Equal(t, core.Null, obj.Index("nul"))
	assert.Nil(t, obj.Index("fn"), "functions have no native form")
	assert.Nil(t, obj.Index("missing"))
}

func TestObject_IndexCyclicAndHugeData(t *testing.T) {
	rt := newTestRuntime(t)
	global := rt.Global()

	_, err := rt.Eval(`
		var loop = []; loop.push(loop, loop);
		var sparse = []; sparse.length = 200000000;
		var wrapper = { list: sparse, ok: true };
	`)
	require.NoError(t, err)

	assert.Equal(t, []any{nil, nil}, global.Index("loop"))
	assert.Nil(t, global.Index("sparse"))
	assert.Nil(t, global.Index("wrapper"), "an oversized member makes the whole value absent")
}

func TestObject_SetIndexLenient(t *testing.T) {
	rt := newTestRuntime(t)
	obj := newTestObject(t, rt)
	other := newTestObject(t, rt)
	require.NoError(t, other.Set("inner", "yes"))

	obj.SetIndex("num", 3)
	obj.SetIndex("obj", other)
	obj.SetIndex("weird", make(chan int))

	assert.Equal(t, 3.0, obj.Index("num"))
	assert.Equal(t, map[string]any{"inner": "yes"}, obj.Index("obj"))

	assert.True(t, obj.Has("weird"), "non-convertible values still create the property")
	v, err := obj.Get("weird")
	require.NoError(t, err)
	assert.True(t, v.IsUndefined())
}

func TestObject_DeallocatorRunsOnce(t *testing.T) {
	rt := newTestRuntime(t)
	obj := newTestObject(t, rt)

	var calls int
	obj.SetDeallocator(func() { calls++ })

	assert.Equal(t, 0, rt.Collect(), "referenced objects are not collected")
	obj.Release()
	assert.Equal(t, 1, rt.Collect())
	assert.Equal(t, 1, calls)
	assert.False(t, obj.Valid())

	obj.Release()
	rt.Collect()
	assert.Equal(t, 1, calls)
}

func TestObject_DeallocatorReplaced(t *testing.T) {
	rt := newTestRuntime(t)
	obj := newTestObject(t, rt)

	var first, second int
	obj.SetDeallocator(func() { first++ })
	obj.SetDeallocator(func() { second++ })
	obj.Release()
	rt.Collect()

	assert.Equal(t, 0, first)
	assert.Equal(t, 1, second)
}

func TestObject_RetainDelaysCollection(t *testing.T) {
	rt := newTestRuntime(t)
	obj := newTestObject(t, rt)

	var calls int
	obj.SetDeallocator(func() { calls++ })
	obj.Retain()

	obj.Release()
	rt.Collect()
	assert.Equal(t, 0, calls)
	assert.True(t, obj.Valid())

	obj.Release()
	rt.Collect()
	assert.Equal(t, 1, calls)
}

func TestObject_UseAfterReleasePanics(t *testing.T) {
	rt := newTestRuntime(t)
	obj := newTestObject(t, rt)
	id := obj.ID()
	obj.Release()
	rt.Collect()

	for name, op := range map[string]func(){
		"Get":            func() { _, _ = obj.Get("x") },
		"Set":            func() { _ = obj.Set("x", 1) },
		"Has":            func() { obj.Has("x") },
		"Define":         func() { _ = obj.Define("x", 1, core.DefaultDescriptor) },
		"SetIndex":       func() { obj.SetIndex("x", 1) },
		"SetDeallocator": func() { obj.SetDeallocator(nil) },
	} {
		t.Run(name, func(t *testing.T) {
			err := expectPanicErr(t, op)
			assert.ErrorIs(t, err, core.ErrReleased)
		})
	}
	assert.Equal(t, id, obj.ID())
}

func TestObject_PassingReleasedObjectPanics(t *testing.T) {
	rt := newTestRuntime(t)
	obj := newTestObject(t, rt)
	gone := newTestObject(t, rt)
	gone.Release()
	rt.Collect()

	err := expectPanicErr(t, func() { _ = obj.Set("ref", gone) })
	assert.ErrorIs(t, err, core.ErrReleased)
}

func TestObject_ScriptKeepsEngineObjectAfterCollect(t *testing.T) {
	rt := newTestRuntime(t)
	obj := newTestObject(t, rt)
	require.NoError(t, obj.Set("alive", true))
	require.NoError(t, rt.Global().Set("kept", obj))

	obj.Release()
	rt.Collect()

	v, err := rt.Eval("kept.alive")
	require.NoError(t, err)
	assert.True(t, v.Bool())
}

func TestValue_AsObjectOwnsNewHandle(t *testing.T) {
	rt := newTestRuntime(t)

	v, err := rt.Eval("({ a: 1 })")
	require.NoError(t, err)
	obj, err := v.AsObject()
	require.NoError(t, err)
	defer obj.Release()
	assert.Equal(t, 1.0, obj.Index("a"))

	prim, err := rt.Eval("5")
	require.NoError(t, err)
	_, err = prim.AsObject()
	assert.ErrorIs(t, err, core.ErrNotObject)
}
