// Package jsbridge embeds a V8 JavaScript engine and bridges Go and script
// values. It exposes script objects to Go with property access, descriptor
// control and deallocation hooks, and lets Go install synchronous and
// promise-returning host functions on any object.
//
// A Runtime and everything it hands out must stay on one goroutine. Async
// host functions settle their promises from any goroutine through a Settler;
// the result is applied the next time the runtime pumps with RunPending,
// Drain or Await.
package jsbridge

import (
	"context"
	"fmt"
	"os"

	"github.com/cryguy/jsbridge/internal/script"
	"github.com/cryguy/jsbridge/internal/v8engine"
)

// New creates a runtime. See Config for the available limits.
func New(cfg Config) (*Runtime, error) {
	return v8engine.New(cfg)
}

// NewPool creates a pool of cfg.PoolSize runtimes, each prepared with setupFns.
func NewPool(cfg Config, setupFns ...SetupFunc) (*Pool, error) {
	return v8engine.NewPool(cfg, setupFns...)
}

// Transform prepares source for evaluation, stripping TypeScript types and
// lowering syntax newer than ES2020 depending on the file name's extension.
func Transform(name, source string) (string, error) {
	return script.Transform(name, source)
}

// RunFile transforms and evaluates a script file on rt, then awaits its
// completion value.
func RunFile(ctx context.Context, rt *Runtime, path string) (*Value, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	code, err := script.Transform(path, string(src))
	if err != nil {
		return nil, err
	}
	v, err := rt.EvalScript(path, code)
	if err != nil {
		return nil, err
	}
	return rt.Await(ctx, v)
}
