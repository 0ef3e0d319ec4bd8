// Package scope tracks lexical frames during code generation: which local
// names are already declared, how a name should be declared, and which
// receiver an implicit self refers to.
package scope

import (
	"github.com/Sumatoshi-tech/rb2js/pkg/ast"
)

// FrameKind identifies the construct a frame was opened for.
type FrameKind int

// Frame kinds.
const (
	FrameTop FrameKind = iota
	FrameModule
	FrameClass
	FrameSingleton
	FrameMethod
	FrameBlock
)

//nolint:gochecknoglobals // Read-only names.
var frameKindNames = [...]string{"top", "module", "class", "singleton", "method", "block"}

func (kind FrameKind) String() string {
	if int(kind) < len(frameKindNames) {
		return frameKindNames[kind]
	}

	return "unknown"
}

// Gate reports whether the frame starts a fresh local variable scope.
// Blocks are the only frames that see their parents' locals.
func (kind FrameKind) Gate() bool {
	return kind != FrameBlock
}

// ReceiverKind describes what an implicit self means inside a frame.
type ReceiverKind int

// Receiver kinds.
const (
	ReceiverNone ReceiverKind = iota
	ReceiverInstance
	ReceiverClass
)

func (kind ReceiverKind) String() string {
	switch kind {
	case ReceiverInstance:
		return "instance"
	case ReceiverClass:
		return "class"
	default:
		return "none"
	}
}

// Frame is the state of one lexical construct.
type Frame struct {
	bound            map[string]bool
	reassigned       map[string]bool
	methods          map[string]bool
	attributes       map[string]bool
	Name             string
	Kind             FrameKind
	Receiver         ReceiverKind
	inheritsReceiver bool
	needsAlias       bool
}

func newFrame(kind FrameKind, receiver ReceiverKind, name string, inherits bool, body []*ast.Node) *Frame {
	frame := &Frame{
		Kind:             kind,
		Receiver:         receiver,
		Name:             name,
		bound:            make(map[string]bool),
		reassigned:       Reassigned(body...),
		methods:          make(map[string]bool),
		attributes:       make(map[string]bool),
		inheritsReceiver: inherits,
	}

	return frame
}

// Bound reports whether name was declared in this frame.
func (frame *Frame) Bound(name string) bool {
	return frame.bound[name]
}

// Reassigned reports whether the pre-pass saw name assigned more than once.
func (frame *Frame) Reassigned(name string) bool {
	return frame.reassigned[name]
}

// InheritsReceiver reports whether the frame's function form sees the
// enclosing receiver without help.
func (frame *Frame) InheritsReceiver() bool {
	return frame.inheritsReceiver
}

// NeedsAlias reports whether an inner frame asked for a captured self alias.
func (frame *Frame) NeedsAlias() bool {
	return frame.needsAlias
}

// DefineMethod records a method defined in a class, module or top-level frame.
func (frame *Frame) DefineMethod(name string) {
	frame.methods[name] = true
}

// HasMethod reports whether DefineMethod was called for name.
func (frame *Frame) HasMethod(name string) bool {
	return frame.methods[name]
}

// DefineAttribute records an accessor generated by attr_reader and friends.
func (frame *Frame) DefineAttribute(name string) {
	frame.attributes[name] = true
}

// HasAttribute reports whether name is a generated accessor.
func (frame *Frame) HasAttribute(name string) bool {
	return frame.attributes[name]
}
