package ast

import (
	"fmt"
	"sort"
)

// Kind identifies the shape of a Node. The set is closed: new kinds are added
// here, together with their arity, and nowhere else.
type Kind uint16

// Node kinds. Names follow the Ruby "parser" gem s-expression grammar; the
// block at the end holds synthetic kinds produced only by filters.
const (
	KindInvalid Kind = iota

	// Literals.
	KindInt
	KindFloat
	KindStr
	KindDstr
	KindXstr
	KindSym
	KindDsym
	KindRegexp
	KindRegopt
	KindArray
	KindHash
	KindPair
	KindKwsplat
	KindSplat
	KindIrange
	KindErange
	KindNil
	KindTrue
	KindFalse
	KindSelf

	// Variables and assignment.
	KindLvar
	KindIvar
	KindGvar
	KindCvar
	KindConst
	KindCbase
	KindLvasgn
	KindIvasgn
	KindGvasgn
	KindCvasgn
	KindCasgn
	KindOpAsgn
	KindOrAsgn
	KindAndAsgn
	KindMasgn
	KindMlhs

	// Calls, blocks and parameters.
	KindSend
	KindCsend
	KindBlock
	KindBlockPass
	KindArgs
	KindArg
	KindOptarg
	KindRestarg
	KindKwarg
	KindKwoptarg
	KindKwrestarg
	KindBlockarg
	KindLambda

	// Definitions.
	KindDef
	KindDefs
	KindClass
	KindSclass
	KindModule

	// Control flow.
	KindIf
	KindCase
	KindWhen
	KindWhile
	KindUntil
	KindWhilePost
	KindUntilPost
	KindFor
	KindBreak
	KindNext
	KindReturn
	KindBegin
	KindKwbegin
	KindRescue
	KindResbody
	KindEnsure
	KindAnd
	KindOr
	KindYield
	KindSuper
	KindZsuper
	KindDefined
	KindAlias
	KindUndef
	KindNthRef
	KindRedo
	KindRetry

	// Synthetic kinds.
	KindAutoreturn
	KindAttr
	KindCall
	KindJSRaw

	kindCount
)

// Unbounded marks an arity without an upper limit.
const Unbounded = -1

type kindInfo struct {
	name     string
	minArity int
	maxArity int
}

//nolint:gochecknoglobals // Read-only grammar table.
var kindTable = [kindCount]kindInfo{
	KindInvalid: {"invalid", 0, 0},

	KindInt:     {"int", 1, 1},
	KindFloat:   {"float", 1, 1},
	KindStr:     {"str", 1, 1},
	KindDstr:    {"dstr", 0, Unbounded},
	KindXstr:    {"xstr", 0, Unbounded},
	KindSym:     {"sym", 1, 1},
	KindDsym:    {"dsym", 0, Unbounded},
	KindRegexp:  {"regexp", 1, Unbounded},
	KindRegopt:  {"regopt", 0, Unbounded},
	KindArray:   {"array", 0, Unbounded},
	KindHash:    {"hash", 0, Unbounded},
	KindPair:    {"pair", 2, 2},
	KindKwsplat: {"kwsplat", 1, 1},
	KindSplat:   {"splat", 0, 1},
	KindIrange:  {"irange", 2, 2},
	KindErange:  {"erange", 2, 2},
	KindNil:     {"nil", 0, 0},
	KindTrue:    {"true", 0, 0},
	KindFalse:   {"false", 0, 0},
	KindSelf:    {"self", 0, 0},

	KindLvar:    {"lvar", 1, 1},
	KindIvar:    {"ivar", 1, 1},
	KindGvar:    {"gvar", 1, 1},
	KindCvar:    {"cvar", 1, 1},
	KindConst:   {"const", 2, 2},
	KindCbase:   {"cbase", 0, 0},
	KindLvasgn:  {"lvasgn", 1, 2},
	KindIvasgn:  {"ivasgn", 1, 2},
	KindGvasgn:  {"gvasgn", 1, 2},
	KindCvasgn:  {"cvasgn", 1, 2},
	KindCasgn:   {"casgn", 2, 3},
	KindOpAsgn:  {"op_asgn", 3, 3},
	KindOrAsgn:  {"or_asgn", 2, 2},
	KindAndAsgn: {"and_asgn", 2, 2},
	KindMasgn:   {"masgn", 2, 2},
	KindMlhs:    {"mlhs", 0, Unbounded},

	KindSend:      {"send", 2, Unbounded},
	KindCsend:     {"csend", 2, Unbounded},
	KindBlock:     {"block", 3, 3},
	KindBlockPass: {"block_pass", 0, 1},
	KindArgs:      {"args", 0, Unbounded},
	KindArg:       {"arg", 1, 1},
	KindOptarg:    {"optarg", 2, 2},
	KindRestarg:   {"restarg", 0, 1},
	KindKwarg:     {"kwarg", 1, 1},
	KindKwoptarg:  {"kwoptarg", 2, 2},
	KindKwrestarg: {"kwrestarg", 0, 1},
	KindBlockarg:  {"blockarg", 0, 1},
	KindLambda:    {"lambda", 0, 0},

	KindDef:    {"def", 3, 3},
	KindDefs:   {"defs", 4, 4},
	KindClass:  {"class", 3, 3},
	KindSclass: {"sclass", 2, 2},
	KindModule: {"module", 2, 2},

	KindIf:        {"if", 3, 3},
	KindCase:      {"case", 2, Unbounded},
	KindWhen:      {"when", 2, Unbounded},
	KindWhile:     {"while", 2, 2},
	KindUntil:     {"until", 2, 2},
	KindWhilePost: {"while_post", 2, 2},
	KindUntilPost: {"until_post", 2, 2},
	KindFor:       {"for", 3, 3},
	KindBreak:     {"break", 0, 1},
	KindNext:      {"next", 0, 1},
	KindReturn:    {"return", 0, 1},
	KindBegin:     {"begin", 0, Unbounded},
	KindKwbegin:   {"kwbegin", 0, Unbounded},
	KindRescue:    {"rescue", 2, Unbounded},
	KindResbody:   {"resbody", 3, 3},
	KindEnsure:    {"ensure", 2, 2},
	KindAnd:       {"and", 2, 2},
	KindOr:        {"or", 2, 2},
	KindYield:     {"yield", 0, Unbounded},
	KindSuper:     {"super", 0, Unbounded},
	KindZsuper:    {"zsuper", 0, 0},
	KindDefined:   {"defined?", 1, 1},
	KindAlias:     {"alias", 2, 2},
	KindUndef:     {"undef", 1, Unbounded},
	KindNthRef:    {"nth_ref", 1, 1},
	KindRedo:      {"redo", 0, 0},
	KindRetry:     {"retry", 0, 0},

	KindAutoreturn: {"autoreturn", 0, Unbounded},
	KindAttr:       {"attr", 2, 2},
	KindCall:       {"call", 1, Unbounded},
	KindJSRaw:      {"jsraw", 1, 1},
}

//nolint:gochecknoglobals // Built once from kindTable.
var kindsByName = func() map[string]Kind {
	byName := make(map[string]Kind, kindCount)

	for kind := KindInvalid + 1; kind < kindCount; kind++ {
		byName[kindTable[kind].name] = kind
	}

	return byName
}()

// String returns the grammar name of the kind.
func (kind Kind) String() string {
	if !kind.Valid() {
		return fmt.Sprintf("kind(%d)", uint16(kind))
	}

	return kindTable[kind].name
}

// Valid reports whether kind is a member of the grammar.
func (kind Kind) Valid() bool {
	return kind > KindInvalid && kind < kindCount
}

// Arity returns the minimum and maximum number of children for kind.
// The maximum is Unbounded for variadic kinds.
func (kind Kind) Arity() (minArity, maxArity int) {
	if !kind.Valid() {
		return 0, 0
	}

	info := kindTable[kind]

	return info.minArity, info.maxArity
}

// Synthetic reports whether the kind is produced only by filters.
func (kind Kind) Synthetic() bool {
	return kind >= KindAutoreturn && kind < kindCount
}

// ParseKind resolves a grammar name such as "send" or "op_asgn".
func ParseKind(name string) (Kind, bool) {
	kind, ok := kindsByName[name]

	return kind, ok
}

// Kinds returns every valid kind in declaration order.
func Kinds() []Kind {
	kinds := make([]Kind, 0, kindCount-1)

	for kind := KindInvalid + 1; kind < kindCount; kind++ {
		kinds = append(kinds, kind)
	}

	return kinds
}

// KindNames returns the sorted grammar names, mostly for schema generation and help text.
func KindNames() []string {
	names := make([]string, 0, len(kindsByName))

	for name := range kindsByName {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}
