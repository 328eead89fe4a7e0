package main

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/cryguy/jsbridge"
)

// installHost exposes a small host object to scripts:
//
//	host.env(name)       -> string | undefined
//	host.sleep(ms)       -> Promise<undefined>
//	host.readFile(path)  -> Promise<string>
func installHost(rt *jsbridge.Runtime) error {
	host, err := rt.NewObject()
	if err != nil {
		return err
	}
	defer host.Release()

	if err := host.SetSyncFunction("env", 1, jsbridge.SyncFunc(hostEnv)); err != nil {
		return err
	}
	if err := host.SetAsyncFunction("sleep", 1, jsbridge.AsyncFunc(hostSleep)); err != nil {
		return err
	}
	if err := host.SetAsyncFunction("readFile", 1, jsbridge.AsyncFunc(hostReadFile)); err != nil {
		return err
	}
	return rt.Global().Define("host", host, jsbridge.Enumerable)
}

func hostEnv(args []*jsbridge.Value) (any, error) {
	if args[0].IsUndefined() {
		return nil, jsbridge.NewCodedError("EINVAL", "env: name is required")
	}
	v, ok := os.LookupEnv(args[0].String())
	if !ok {
		return nil, nil
	}
	return v, nil
}

func hostSleep(args []*jsbridge.Value, s *jsbridge.Settler) {
	var d time.Duration
	if ms := args[0].Number(); ms > 0 {
		d = time.Duration(ms * float64(time.Millisecond))
	}
	go func() {
		time.Sleep(d)
		s.Resolve(nil)
	}()
}

func hostReadFile(args []*jsbridge.Value, s *jsbridge.Settler) {
	if args[0].IsUndefined() {
		s.Reject(jsbridge.NewCodedError("EINVAL", "readFile: path is required"))
		return
	}
	path := args[0].String()
	go func() {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			s.Reject(&jsbridge.CodedError{ErrCode: "ENOENT", ErrMessage: "readFile: no such file " + path, Cause: err})
		case err != nil:
			s.Reject(&jsbridge.CodedError{ErrCode: "EIO", ErrMessage: "readFile: " + err.Error(), Cause: err})
		default:
			s.Resolve(string(data))
		}
	}()
}
