package core

import "strings"

// ObjectID identifies an engine object handle within one runtime's arena.
// IDs start at 1 and are never reused by the same runtime.
type ObjectID uint64

// Kind is the tag of a wrapped script value.
type Kind uint8

const (
	KindUndefined Kind = iota
	KindNull
	KindBool
	KindNumber
	KindString
	KindSequence // Array
	KindMapping  // plain object (prototype is Object.prototype or null)
	KindObject   // any other object: class instances, Date, Map, promises, ...
	KindFunction
	KindOther // symbol, bigint
)

var kindNames = [...]string{
	KindUndefined: "undefined",
	KindNull:      "null",
	KindBool:      "bool",
	KindNumber:    "number",
	KindString:    "string",
	KindSequence:  "sequence",
	KindMapping:   "mapping",
	KindObject:    "object",
	KindFunction:  "function",
	KindOther:     "other",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// PropertyDescriptor is the set of flags used by Object.Define.
// The zero value means non-configurable, non-enumerable and non-writable.
type PropertyDescriptor uint8

const (
	// Configurable allows the property to be deleted and its descriptor changed.
	Configurable PropertyDescriptor = 1 << iota
	// Enumerable makes the property show up in for..in and Object.keys.
	Enumerable
	// Writable allows the value to be changed with an assignment.
	Writable

	DefaultDescriptor PropertyDescriptor = 0
)

func (d PropertyDescriptor) Configurable() bool { return d&Configurable != 0 }
func (d PropertyDescriptor) Enumerable() bool   { return d&Enumerable != 0 }
func (d PropertyDescriptor) Writable() bool     { return d&Writable != 0 }

func (d PropertyDescriptor) String() string {
	var parts []string
	if d.Configurable() {
		parts = append(parts, "configurable")
	}
	if d.Enumerable() {
		parts = append(parts, "enumerable")
	}
	if d.Writable() {
		parts = append(parts, "writable")
	}
	if len(parts) == 0 {
		return "default"
	}
	return strings.Join(parts, "|")
}

type undefinedMarker struct{}
type nullMarker struct{}

// Undefined converts to the script value undefined. A nil interface does the
// same; the marker exists for places where nil is ambiguous, such as map values.
var Undefined = undefinedMarker{}

// Null converts to the script value null and is what Value.Export returns for null.
var Null = nullMarker{}

func (undefinedMarker) String() string { return "undefined" }
func (nullMarker) String() string      { return "null" }

// MarshalJSON lets exported values containing Null be printed as JSON.
func (nullMarker) MarshalJSON() ([]byte, error) { return []byte("null"), nil }

// PromiseState is the settlement state of a script promise.
type PromiseState uint8

const (
	PromisePending PromiseState = iota
	PromiseFulfilled
	PromiseRejected
)

func (s PromiseState) String() string {
	switch s {
	case PromiseFulfilled:
		return "fulfilled"
	case PromiseRejected:
		return "rejected"
	default:
		return "pending"
	}
}
