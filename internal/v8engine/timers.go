package v8engine

import (
	"fmt"
	"time"

	v8 "github.com/tommie/v8go"
	"go.uber.org/zap"
)

// timersJS evaluates to a factory that installs setTimeout, setInterval,
// clearTimeout and clearInterval. Callbacks stay in the closure; scheduling
// goes through the register and clear host functions. The factory returns
// the fire and reset entry points used by the runtime.
const timersJS = `
(function(register, clear) {
	var pending = new Map();
	function schedule(fn, delay, extra, repeat) {
		if (typeof fn !== 'function') return 0;
		var id = register(Number(delay) || 0, repeat);
		pending.set(id, { fn: fn, args: extra, repeat: repeat });
		return id;
	}
	globalThis.setTimeout = function(fn, delay, ...extra) {
		return schedule(fn, delay, extra, false);
	};
	globalThis.setInterval = function(fn, delay, ...extra) {
		return schedule(fn, delay, extra, true);
	};
	globalThis.clearTimeout = globalThis.clearInterval = function(id) {
		if (typeof id !== 'number' || !pending.has(id)) return;
		pending.delete(id);
		clear(id);
	};
	return {
		fire: function(id) {
			var entry = pending.get(id);
			if (!entry) return;
			if (!entry.repeat) pending.delete(id);
			entry.fn.apply(undefined, entry.args);
		},
		reset: function() { pending.clear(); },
	};
})
`

// timerHooks are the script entry points returned by timersJS.
type timerHooks struct {
	fire  *v8.Function
	reset *v8.Function
}

// setupTimers installs the Go-backed timer globals. Callbacks fire when the
// runtime pumps its event loop.
func setupTimers(rt *Runtime) error {
	registerFn, err := rt.newHostFunction(&hostFunc{name: "register", argsCount: 2, sync: SyncFunc(func(args []*Value) (any, error) {
		delay := time.Duration(args[0].Number() * float64(time.Millisecond))
		return rt.loop.RegisterTimer(delay, args[1].Bool()), nil
	})})
	if err != nil {
		return err
	}
	clearFn, err := rt.newHostFunction(&hostFunc{name: "clear", argsCount: 1, sync: SyncFunc(func(args []*Value) (any, error) {
		rt.loop.ClearTimer(int(args[0].Number()))
		return nil, nil
	})})
	if err != nil {
		return err
	}

	factory, err := rt.ctx.RunScript(timersJS, "timers.js")
	if err != nil {
		return fmt.Errorf("compiling timers: %w", err)
	}
	fn, err := factory.AsFunction()
	if err != nil {
		return err
	}
	res, err := fn.Call(v8.Undefined(rt.iso), registerFn, clearFn)
	if err != nil {
		return fmt.Errorf("installing timers: %w", err)
	}
	hooks, err := res.AsObject()
	if err != nil {
		return err
	}

	th := &timerHooks{}
	for name, dst := range map[string]**v8.Function{"fire": &th.fire, "reset": &th.reset} {
		v, err := hooks.Get(name)
		if err != nil {
			return err
		}
		if *dst, err = v.AsFunction(); err != nil {
			return fmt.Errorf("timer hook %s: %w", name, err)
		}
	}
	rt.timers = th
	return nil
}

// fireTimer invokes the callback stored for a timer. One-shot entries are
// removed before the callback runs.
func fireTimer(rt *Runtime, id int) error {
	if rt.timers == nil {
		return nil
	}
	idVal, err := v8.NewValue(rt.iso, float64(id))
	if err != nil {
		return err
	}
	_, err = rt.timers.fire.Call(v8.Undefined(rt.iso), idVal)
	return err
}

// resetTimers forgets every stored callback.
func resetTimers(rt *Runtime) {
	if rt.timers == nil {
		return
	}
	if _, err := rt.timers.reset.Call(v8.Undefined(rt.iso)); err != nil {
		rt.log.Debug("resetting timers failed", zap.Error(err))
	}
}
