package jsbridge_test

import (
	"context"
	"fmt"
	"time"

	"github.com/cryguy/jsbridge"
)

func Example() {
	rt, err := jsbridge.New(jsbridge.DefaultConfig())
	if err != nil {
		panic(err)
	}
	defer rt.Close()

	_ = rt.Global().SetSyncFunction("greet", 1, jsbridge.SyncFunc(func(args []*jsbridge.Value) (any, error) {
		return "hello " + args[0].String(), nil
	}))

	v, err := rt.Eval("greet('world')")
	if err != nil {
		panic(err)
	}
	fmt.Println(v.String())
	// Output: hello world
}

func ExampleObject_SetAsyncFunction() {
	rt, err := jsbridge.New(jsbridge.DefaultConfig())
	if err != nil {
		panic(err)
	}
	defer rt.Close()

	_ = rt.Global().SetAsyncFunction("fetchCount", 0, jsbridge.AsyncFunc(func(_ []*jsbridge.Value, s *jsbridge.Settler) {
		go s.Resolve(3)
	}))

	v, _ := rt.Eval("fetchCount().then(n => n * 2)")
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	res, err := rt.Await(ctx, v)
	if err != nil {
		panic(err)
	}
	fmt.Println(res.Number())
	// Output: 6
}

func ExampleObject_Define() {
	rt, err := jsbridge.New(jsbridge.DefaultConfig())
	if err != nil {
		panic(err)
	}
	defer rt.Close()

	obj, _ := rt.NewObject()
	defer obj.Release()
	_ = obj.Define("id", 7, jsbridge.Enumerable)
	_ = obj.Set("id", 8)
	fmt.Println(obj.Index("id"))
	// Output: 7
}
