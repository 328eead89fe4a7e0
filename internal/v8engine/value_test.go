package v8engine

import (
	"testing"

	"github.com/cryguy/jsbridge/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValue_Kind(t *testing.T) {
	rt := newTestRuntime(t)

	tests := []struct {
		src  string
		want core.Kind
	}{
		{"undefined", core.KindUndefined},
		{"null", core.KindNull},
		{"true", core.KindBool},
		{"1.5", core.KindNumber},
		{"'s'", core.KindString},
		{"[1, 2]", core.KindSequence},
		{"({ a: 1 })", core.KindMapping},
		{"Object.create(null)", core.KindMapping},
		{"new Date(0)", core.KindObject},
		{"(function() {})", core.KindFunction},
		{"Symbol('x')", core.KindOther},
		{"10n", core.KindOther},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			v, err := rt.Eval(tt.src)
			require.NoError(t, err)
			assert.Equal(t, tt.want, v.Kind())
		})
	}
}

func TestValue_Export(t *testing.T) {
	rt := newTestRuntime(t)

	v, err := rt.Eval(`({
		n: 1,
		s: "two",
		b: false,
		nul: null,
		list: [1, "x", function() {}],
		nested: { deep: [true] },
		fn: function() {},
		when: new Date(0),
	})`)
	require.NoError(t, err)

	got, ok := v.Export()
	require.True(t, ok)
	assert.Equal(t, map[string]any{
		"n":      1.0,
		"s":      "two",
		"b":      false,
		"nul":    core.Null,
		"list":   []any{1.0, "x", nil},
		"nested": map[string]any{"deep": []any{true}},
	}, got)
}

func TestValue_ExportNoNativeForm(t *testing.T) {
	rt := newTestRuntime(t)

	for _, src := range []string{"(function() {})", "new Map()", "Symbol('s')"} {
		v, err := rt.Eval(src)
		require.NoError(t, err)
		got, ok := v.Export()
		assert.False(t, ok, src)
		assert.Nil(t, got, src)
	}

	undef, err := rt.Eval("undefined")
	require.NoError(t, err)
	got, ok := undef.Export()
	assert.True(t, ok)
	assert.Nil(t, got)
}

func TestValue_ExportDepthLimit(t *testing.T) {
	cfg := testConfig()
	cfg.MaxConversionDepth = 2
	rt, err := New(cfg)
	require.NoError(t, err)
	defer rt.Close()

	v, err := rt.Eval("({ a: { b: { c: { d: 1 } } } })")
	require.NoError(t, err)
	got, ok := v.Export()
	require.True(t, ok)
	assert.Equal(t, map[string]any{"a": map[string]any{"b": map[string]any{}}}, got)
}

type label string

func TestNewValue_Conversions(t *testing.T) {
	rt := newTestRuntime(t)

	tests := []struct {
		name string
		in   any
		json string
	}{
		{"bool", true, "true"},
		{"int", 7, "7"},
		{"int64", int64(1) << 40, "1099511627776"},
		{"uint8", uint8(200), "200"},
		{"float32", float32(0.5), "0.5"},
		{"string", "hi", `"hi"`},
		{"null", core.Null, "null"},
		{"nil slice", []string(nil), "null"},
		{"slice", []int{1, 2, 3}, "[1,2,3]"},
		{"array", [2]bool{true, false}, "[true,false]"},
		{"map", map[string]any{"b": 2, "a": []string{"x"}}, `{"a":["x"],"b":2}`},
		{"named string", label("tag"), `"tag"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := rt.NewValue(tt.in)
			require.NoError(t, err)
			js, err := v.JSON()
			require.NoError(t, err)
			assert.Equal(t, tt.json, js)
		})
	}
}

func TestNewValue_Undefined(t *testing.T) {
	rt := newTestRuntime(t)

	for _, in := range []any{nil, core.Undefined} {
		v, err := rt.NewValue(in)
		require.NoError(t, err)
		assert.True(t, v.IsUndefined())
	}
}

func TestNewValue_NotConvertible(t *testing.T) {
	rt := newTestRuntime(t)

	tests := []struct {
		name string
		in   any
	}{
		{"struct", struct{ A int }{1}},
		{"func", func() {}},
		{"int keys", map[int]string{1: "a"}},
		{"error", assert.AnError},
		{"nested", map[string]any{"ok": 1, "bad": []any{make(chan int)}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := rt.NewValue(tt.in)
			require.ErrorIs(t, err, core.ErrNotConvertible)
		})
	}

	_, err := rt.NewValue(map[string]any{"bad": []any{make(chan int)}})
	var convErr *core.ConversionError
	require.ErrorAs(t, err, &convErr)
	assert.Equal(t, "bad[0]", convErr.Path)
}

func TestNewValue_DepthLimit(t *testing.T) {
	cfg := testConfig()
	cfg.MaxConversionDepth = 2
	rt, err := New(cfg)
	require.NoError(t, err)
	defer rt.Close()

	_, err = rt.NewValue([]any{[]any{[]any{[]any{1}}}})
	require.ErrorIs(t, err, core.ErrNotConvertible)
}

func TestValue_Accessors(t *testing.T) {
	rt := newTestRuntime(t)

	v, err := rt.Eval("'12'")
	require.NoError(t, err)
	assert.Equal(t, 12.0, v.Number())
	assert.True(t, v.Bool())
	assert.Equal(t, "12", v.String())
	assert.NotNil(t, v.V8())

	empty, err := rt.Eval("''")
	require.NoError(t, err)
	assert.False(t, empty.Bool())
}

func TestValue_PromiseResult(t *testing.T) {
	rt := newTestRuntime(t)

	v, err := rt.Eval("Promise.resolve(9)")
	require.NoError(t, err)
	assert.True(t, v.IsPromise())
	assert.Equal(t, core.PromiseFulfilled, v.PromiseState())
	assert.Equal(t, 9.0, v.Result().Number())

	pending, err := rt.Eval("new Promise(() => {})")
	require.NoError(t, err)
	assert.Equal(t, core.PromisePending, pending.PromiseState())
	assert.True(t, pending.Result().IsUndefined())

	plain, err := rt.Eval("3")
	require.NoError(t, err)
	assert.Equal(t, core.PromiseFulfilled, plain.PromiseState())
	assert.Same(t, plain, plain.Result())
}

func TestValue_ExportCycles(t *testing.T) {
	rt := newTestRuntime(t)

	v, err := rt.Eval("var a = []; a.push(a, a, 1); a")
	require.NoError(t, err)
	got, ok := v.Export()
	require.True(t, ok)
	assert.Equal(t, []any{nil, nil, 1.0}, got)

	v, err = rt.Eval("var o = { name: 'root' }; o.self = o; o.child = { up: o, n: 2 }; o")
	require.NoError(t, err)
	got, ok = v.Export()
	require.True(t, ok)
	assert.Equal(t, map[string]any{
		"name":  "root",
		"child": map[string]any{"n": 2.0},
	}, got)
}

func TestValue_ExportSharedSubtrees(t *testing.T) {
	rt := newTestRuntime(t)

	v, err := rt.Eval("var leaf = { x: 1 }; [leaf, leaf]")
	require.NoError(t, err)
	got, ok := v.Export()
	require.True(t, ok)
	assert.Equal(t, []any{map[string]any{"x": 1.0}, map[string]any{"x": 1.0}}, got)
}

func TestValue_ExportNodeBudget(t *testing.T) {
	cfg := testConfig()
	cfg.MaxExportNodes = 1000
	rt, err := New(cfg)
	require.NoError(t, err)
	defer rt.Close()

	// Each level doubles the walk; 2^20 visits without a budget.
	v, err := rt.Eval("var n = [1]; for (var i = 0; i < 20; i++) n = [n, n]; n")
	require.NoError(t, err)
	got, ok := v.Export()
	assert.False(t, ok)
	assert.Nil(t, got)

	small, err := rt.Eval("[1, 2, 3]")
	require.NoError(t, err)
	got, ok = small.Export()
	require.True(t, ok)
	assert.Equal(t, []any{1.0, 2.0, 3.0}, got)
}

func TestValue_ExportLongArrays(t *testing.T) {
	rt := newTestRuntime(t)

	for _, src := range []string{
		"var s = []; s.length = 200000000; s",
		"var m = []; m.length = 4294967295; m",
		"new Array(200001).fill(0)",
	} {
		v, err := rt.Eval(src)
		require.NoError(t, err)
		got, ok := v.Export()
		assert.False(t, ok, src)
		assert.Nil(t, got, src)
	}

	v, err := rt.Eval("var short = []; short.length = 3; short")
	require.NoError(t, err)
	got, ok := v.Export()
	require.True(t, ok)
	assert.Equal(t, []any{nil, nil, nil}, got)
}
