package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/cryguy/jsbridge"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	var (
		scriptFile = flag.String("script", "", "Path to the script to run (.js or .ts)")
		timeout    = flag.Duration("timeout", 5*time.Second, "Maximum time to wait for the script's result")
		memLimit   = flag.Int("mem", 0, "Isolate heap limit in MB (0 = engine default)")
		verbose    = flag.Bool("v", false, "Enable debug logging")
	)
	flag.Parse()

	if *scriptFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: jsbridge -script <file> [-timeout 5s] [-mem MB] [-v]")
		os.Exit(1)
	}

	log, err := newLogger(*verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	out, err := run(*scriptFile, *timeout, *memLimit, log)
	if err != nil {
		log.Error("script failed", zap.String("script", *scriptFile), zap.Error(err))
		os.Exit(1)
	}
	fmt.Println(out)
}

func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	cfg.DisableStacktrace = !verbose
	return cfg.Build()
}

// run evaluates the script and returns its awaited completion value as JSON.
func run(path string, timeout time.Duration, memLimit int, log *zap.Logger) (string, error) {
	cfg := jsbridge.DefaultConfig()
	cfg.MemoryLimitMB = memLimit
	cfg.Logger = log

	rt, err := jsbridge.New(cfg)
	if err != nil {
		return "", fmt.Errorf("create runtime: %w", err)
	}
	defer rt.Close()

	if err := installHost(rt); err != nil {
		return "", fmt.Errorf("install host: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	v, err := jsbridge.RunFile(ctx, rt, path)
	if err != nil {
		return "", err
	}
	return formatResult(v), nil
}

// formatResult renders a value as JSON, falling back to its string form for
// values JSON cannot represent.
func formatResult(v *jsbridge.Value) string {
	if v.IsUndefined() {
		return "undefined"
	}
	if v.Kind() == jsbridge.KindFunction {
		return v.String()
	}
	s, err := v.JSON()
	if err != nil || s == "" {
		return v.String()
	}
	return s
}
