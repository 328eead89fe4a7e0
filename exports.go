package jsbridge

import (
	"github.com/cryguy/jsbridge/internal/core"
	"github.com/cryguy/jsbridge/internal/v8engine"
)

// Type aliases re-exporting the internal types so callers can use
// jsbridge.Runtime, jsbridge.Object, etc. without importing internal packages.

type Runtime = v8engine.Runtime
type Object = v8engine.Object
type Value = v8engine.Value
type Settler = v8engine.Settler
type SharedRegistry = v8engine.SharedRegistry
type Pool = v8engine.Pool
type SetupFunc = v8engine.SetupFunc
type SyncCallable = v8engine.SyncCallable
type SyncFunc = v8engine.SyncFunc
type AsyncCallable = v8engine.AsyncCallable
type AsyncFunc = v8engine.AsyncFunc

type Config = core.Config
type ObjectID = core.ObjectID
type Kind = core.Kind
type PropertyDescriptor = core.PropertyDescriptor
type PromiseState = core.PromiseState
type CodedError = core.CodedError
type ConversionError = core.ConversionError
type PromiseRejectedError = core.PromiseRejectedError

// Property descriptor flags.
const (
	Configurable      = core.Configurable
	Enumerable        = core.Enumerable
	Writable          = core.Writable
	DefaultDescriptor = core.DefaultDescriptor
)

// Value kinds.
const (
	KindUndefined = core.KindUndefined
	KindNull      = core.KindNull
	KindBool      = core.KindBool
	KindNumber    = core.KindNumber
	KindString    = core.KindString
	KindSequence  = core.KindSequence
	KindMapping   = core.KindMapping
	KindObject    = core.KindObject
	KindFunction  = core.KindFunction
	KindOther     = core.KindOther
)

// Promise states.
const (
	PromisePending   = core.PromisePending
	PromiseFulfilled = core.PromiseFulfilled
	PromiseRejected  = core.PromiseRejected
)

// Sentinels and errors re-exported from core.
var (
	Undefined = core.Undefined
	Null      = core.Null

	ErrReleased       = core.ErrReleased
	ErrClosed         = core.ErrClosed
	ErrNotConvertible = core.ErrNotConvertible
	ErrNotObject      = core.ErrNotObject
	ErrNeverSettles   = core.ErrNeverSettles
)

// Functions re-exported from core.
var (
	DefaultConfig = core.DefaultConfig
	NewCodedError = core.NewCodedError
	SetLogger     = core.SetLogger
	Logger        = core.Logger
)
