package scope

import (
	"errors"

	"github.com/Sumatoshi-tech/rb2js/pkg/ast"
	"github.com/Sumatoshi-tech/rb2js/pkg/es"
)

// ErrEmptyStack is returned when popping past the outermost frame.
var ErrEmptyStack = errors.New("scope stack is empty")

// AliasName is the identifier bound to the captured receiver in function
// forms that do not inherit it.
const AliasName = "self"

// Decl tells the code generator how to emit an assignment to a local.
type Decl int

// Declaration forms.
const (
	// Reference assigns an already declared name.
	Reference Decl = iota
	// DeclareConst introduces a binding that is never reassigned.
	DeclareConst
	// DeclareLet introduces a reassigned binding.
	DeclareLet
	// DeclareVar introduces a binding at levels without block scoping.
	DeclareVar
)

// Keyword returns the JavaScript keyword for the declaration, or "".
func (decl Decl) Keyword() string {
	switch decl {
	case DeclareConst:
		return "const"
	case DeclareLet:
		return "let"
	case DeclareVar:
		return "var"
	default:
		return ""
	}
}

// Resolution is the outcome of resolving an implicit receiver.
type Resolution struct {
	// Owner is the nearest frame that defines a receiver, or nil.
	Owner *Frame
	Kind  ReceiverKind
	// UseAlias is set when the reference sits in a function form that
	// does not inherit the receiver and must use the captured alias.
	UseAlias bool
}

// Stack is the scope stack of a single conversion.
type Stack struct {
	frames []*Frame
	level  es.Level
}

// NewStack returns a stack holding the top-level frame.
func NewStack(level es.Level, body ...*ast.Node) *Stack {
	stack := &Stack{level: level}
	stack.frames = append(stack.frames, newFrame(FrameTop, ReceiverNone, "", false, body))

	return stack
}

// Level returns the target level the stack was created for.
func (stack *Stack) Level() es.Level {
	return stack.level
}

// Push opens a frame for a scoping construct. body holds the statements of
// the construct, scanned up front for reassigned names.
func (stack *Stack) Push(kind FrameKind, receiver ReceiverKind, name string, body ...*ast.Node) *Frame {
	inherits := kind == FrameBlock && stack.level >= es.ES2015

	if kind == FrameBlock {
		receiver = stack.Current().Receiver
	}

	frame := newFrame(kind, receiver, name, inherits, body)
	stack.frames = append(stack.frames, frame)

	return frame
}

// Pop closes the innermost frame. The top-level frame cannot be popped.
func (stack *Stack) Pop() (*Frame, error) {
	if len(stack.frames) <= 1 {
		return nil, ErrEmptyStack
	}

	frame := stack.frames[len(stack.frames)-1]
	stack.frames = stack.frames[:len(stack.frames)-1]

	return frame, nil
}

// Current returns the innermost frame.
func (stack *Stack) Current() *Frame {
	return stack.frames[len(stack.frames)-1]
}

// Depth returns the number of open frames, including the top level.
func (stack *Stack) Depth() int {
	return len(stack.frames)
}

// Top returns the top-level frame.
func (stack *Stack) Top() *Frame {
	return stack.frames[0]
}

// Enclosing returns the nearest frame of kind, or nil.
func (stack *Stack) Enclosing(kinds ...FrameKind) *Frame {
	for idx := len(stack.frames) - 1; idx >= 0; idx-- {
		for _, kind := range kinds {
			if stack.frames[idx].Kind == kind {
				return stack.frames[idx]
			}
		}
	}

	return nil
}

// Visible reports whether name is declared in the current frame or in an
// enclosing frame reachable without crossing a scope gate.
func (stack *Stack) Visible(name string) bool {
	for idx := len(stack.frames) - 1; idx >= 0; idx-- {
		frame := stack.frames[idx]
		if frame.bound[name] {
			return true
		}

		if frame.Kind.Gate() {
			return false
		}
	}

	return false
}

// Bind declares name in the current frame without choosing a form, as for
// parameters and hoisted declarations.
func (stack *Stack) Bind(name string) {
	stack.Current().bound[name] = true
}

// Declare records an assignment to name and returns how to emit it.
func (stack *Stack) Declare(name string) Decl {
	if stack.Visible(name) {
		return Reference
	}

	stack.Bind(name)

	return stack.DeclFor(name)
}

// DeclFor returns the declaration keyword the current frame would use for
// name, without binding it.
func (stack *Stack) DeclFor(name string) Decl {
	if stack.level < es.ES2015 {
		return DeclareVar
	}

	if stack.reassignedNearby(name) {
		return DeclareLet
	}

	return DeclareConst
}

// reassignedNearby checks the current frame and the frames up to the
// nearest gate, since a block may be the one reassigning an outer name.
func (stack *Stack) reassignedNearby(name string) bool {
	for idx := len(stack.frames) - 1; idx >= 0; idx-- {
		frame := stack.frames[idx]
		if frame.reassigned[name] {
			return true
		}

		if frame.Kind.Gate() {
			return false
		}
	}

	return false
}

// Receiver resolves an implicit self. Blocks defer to their enclosing
// frame; when the block's function form does not inherit the receiver the
// owner frame is flagged to declare the alias.
func (stack *Stack) Receiver() Resolution {
	crossedOpaque := false

	for idx := len(stack.frames) - 1; idx >= 0; idx-- {
		frame := stack.frames[idx]

		if frame.Kind == FrameBlock {
			if !frame.inheritsReceiver {
				crossedOpaque = true
			}

			continue
		}

		if frame.Receiver == ReceiverNone {
			return Resolution{Owner: frame, Kind: ReceiverNone}
		}

		if crossedOpaque {
			frame.needsAlias = true
		}

		return Resolution{Owner: frame, Kind: frame.Receiver, UseAlias: crossedOpaque}
	}

	return Resolution{Kind: ReceiverNone}
}
