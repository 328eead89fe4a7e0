package v8engine

import (
	"fmt"
	"strings"

	"github.com/cryguy/jsbridge/internal/core"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// consoleLevels maps console methods to log levels.
var consoleLevels = map[string]zapcore.Level{
	"log":   zapcore.InfoLevel,
	"info":  zapcore.InfoLevel,
	"warn":  zapcore.WarnLevel,
	"error": zapcore.ErrorLevel,
	"debug": zapcore.DebugLevel,
}

// setupConsole replaces globalThis.console with a Go-backed version that
// writes to the runtime's logger.
func setupConsole(rt *Runtime) error {
	console, err := rt.NewObject()
	if err != nil {
		return fmt.Errorf("creating console object: %w", err)
	}
	defer console.Release()

	for method, level := range consoleLevels {
		lvl := level
		err := console.SetSyncFunction(method, 0, SyncFunc(func(args []*Value) (any, error) {
			parts := make([]string, 0, len(args))
			for _, arg := range args {
				parts = append(parts, formatConsoleArg(arg))
			}
			if ce := rt.log.Check(lvl, strings.Join(parts, " ")); ce != nil {
				ce.Write(zap.String("source", "console"))
			}
			return nil, nil
		}))
		if err != nil {
			return err
		}
	}

	return rt.Global().Set("console", console)
}

// formatConsoleArg prints plain objects and arrays as JSON, everything else
// with ToString.
func formatConsoleArg(v *Value) string {
	if k := v.Kind(); k == core.KindSequence || k == core.KindMapping {
		if s, err := v.JSON(); err == nil {
			return s
		}
	}
	return v.String()
}
