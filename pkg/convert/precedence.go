package convert

import (
	"github.com/Sumatoshi-tech/rb2js/pkg/ast"
	"github.com/Sumatoshi-tech/rb2js/pkg/es"
)

// JavaScript binding strengths, loosest first.
const (
	precComma      = 1
	precAssign     = 2
	precTernary    = 3
	precOr         = 4
	precAnd        = 5
	precBitOr      = 6
	precBitXor     = 7
	precBitAnd     = 8
	precEquality   = 9
	precRelational = 10
	precShift      = 11
	precAdditive   = 12
	precMultiply   = 13
	precExponent   = 14
	precUnary      = 15
	precPrimary    = 20
)

// binaryOperator describes how a Ruby operator method renders in JavaScript.
type binaryOperator struct {
	text  string
	prec  int
	right bool
}

//nolint:gochecknoglobals // Read-only operator table.
var binaryOperators = map[ast.Name]binaryOperator{
	"+":  {text: "+", prec: precAdditive},
	"-":  {text: "-", prec: precAdditive},
	"*":  {text: "*", prec: precMultiply},
	"/":  {text: "/", prec: precMultiply},
	"%":  {text: "%", prec: precMultiply},
	"**": {text: "**", prec: precExponent, right: true},
	"<":  {text: "<", prec: precRelational},
	">":  {text: ">", prec: precRelational},
	"<=": {text: "<=", prec: precRelational},
	">=": {text: ">=", prec: precRelational},
	"==": {text: "==", prec: precEquality},
	"!=": {text: "!=", prec: precEquality},
	"&":  {text: "&", prec: precBitAnd},
	"|":  {text: "|", prec: precBitOr},
	"^":  {text: "^", prec: precBitXor},
	"<<": {text: "<<", prec: precShift},
	">>": {text: ">>", prec: precShift},
}

//nolint:gochecknoglobals // Read-only operator table.
var unaryOperators = map[ast.Name]string{
	"!":  "!",
	"-@": "-",
	"+@": "+",
	"~":  "~",
}

// precedence returns how tightly the rendering of node binds. It mirrors
// the choices the generators make, so ExprPrec can add parentheses only
// where they are needed.
func (ctx *Context) precedence(node *ast.Node) int {
	switch node.Kind() {
	case ast.KindSend:
		return ctx.sendPrecedence(node)
	case ast.KindCsend:
		if ctx.Level() >= es.ES2020 {
			return precPrimary
		}

		return precAnd
	case ast.KindAnd:
		return precAnd
	case ast.KindOr:
		return precOr
	case ast.KindIf:
		if ctx.ternary(node) {
			return precTernary
		}
	case ast.KindLvasgn, ast.KindIvasgn, ast.KindGvasgn, ast.KindCvasgn, ast.KindCasgn,
		ast.KindOpAsgn, ast.KindOrAsgn, ast.KindAndAsgn, ast.KindMasgn:
		return precAssign
	case ast.KindBlock:
		if functionBlock(node) {
			return precAssign
		}
	case ast.KindDefined:
		return precEquality
	case ast.KindDstr, ast.KindDsym:
		if ctx.Level() < es.ES2015 && node.Len() > 1 {
			return precAdditive
		}
	case ast.KindInt, ast.KindFloat:
		if negativeLiteral(node) {
			return precUnary
		}
	case ast.KindBegin:
		if node.Len() == 1 {
			return ctx.precedence(node.NodeAt(0))
		}
	}

	return precPrimary
}

func (ctx *Context) sendPrecedence(node *ast.Node) int {
	method := node.NameAt(1)
	argc := node.Len() - 2

	switch {
	case method == "**" && ctx.Level() < es.ES2016:
		return precPrimary
	case method == "<<" && !node.NodeAt(0).Is(ast.KindInt):
		return precPrimary
	case method == "!~":
		return precUnary
	case method == "is_a?" || method == "kind_of?" || method == "instance_of?", method == "block_given?":
		return precEquality
	case method == "[]=" || setterName(method):
		return precAssign
	}

	if op, ok := binaryOperators[method]; ok && argc == 1 && node.NodeAt(0) != nil {
		return op.prec
	}

	if _, ok := unaryOperators[method]; ok && argc == 0 && node.NodeAt(0) != nil {
		return precUnary
	}

	return precPrimary
}

func negativeLiteral(node *ast.Node) bool {
	switch value := node.Child(0).(type) {
	case ast.Int:
		return value < 0
	case ast.Float:
		return value < 0
	default:
		return false
	}
}

// setterName reports whether method is an attribute writer such as name=.
func setterName(method ast.Name) bool {
	text := string(method)
	if len(text) < 2 || text[len(text)-1] != '=' {
		return false
	}

	switch text {
	case "==", "!=", "<=", ">=", "===", "[]=":
		return false
	}

	return isIdentifier(text[:len(text)-1])
}

func isIdentifier(text string) bool {
	if text == "" {
		return false
	}

	for idx, char := range text {
		switch {
		case char == '_' || char == '$':
		case char >= 'a' && char <= 'z', char >= 'A' && char <= 'Z':
		case char >= '0' && char <= '9' && idx > 0:
		case char > 0x7f:
		default:
			return false
		}
	}

	return true
}
