package rubyparse

import (
	"strconv"
	"strings"
	"unicode/utf8"

	sitter "github.com/alexaandru/go-tree-sitter-bare"

	"github.com/Sumatoshi-tech/rb2js/pkg/ast"
)

func (bld *builder) integer(node sitter.Node, negate bool) *ast.Node {
	text := bld.text(node)

	value, err := strconv.ParseInt(text, 0, 64)
	if err != nil {
		// Ruby reads a leading zero as octal, as does base 0, but allows
		// forms such as 0d10 that Go does not.
		value, err = strconv.ParseInt(strings.ReplaceAll(strings.TrimPrefix(text, "0d"), "_", ""), 10, 64)
		if err != nil {
			return bld.fail(node, ErrBadNumber)
		}
	}

	if negate {
		value = -value
	}

	return bld.node(ast.KindInt, node, ast.Int(value))
}

func (bld *builder) float(node sitter.Node, negate bool) *ast.Node {
	value, err := strconv.ParseFloat(strings.ReplaceAll(bld.text(node), "_", ""), 64)
	if err != nil {
		return bld.fail(node, ErrBadNumber)
	}

	if negate {
		value = -value
	}

	return bld.node(ast.KindFloat, node, ast.Float(value))
}

// piece is a run of literal text or one interpolated expression.
type piece struct {
	expr    *ast.Node
	literal string
}

// pieces collects the literal runs and interpolations of a string-like node.
func (bld *builder) pieces(node sitter.Node) []piece {
	raw := rawQuoted(bld.text(node))

	var parts []piece

	appendText := func(text string) {
		if len(parts) > 0 && parts[len(parts)-1].expr == nil {
			parts[len(parts)-1].literal += text

			return
		}

		parts = append(parts, piece{literal: text})
	}

	for _, child := range named(node) {
		switch child.Type() {
		case "string_content":
			content := bld.text(child)
			if raw {
				content = unescapeSingle(content)
			}

			appendText(content)
		case "escape_sequence":
			if raw {
				appendText(unescapeSingle(bld.text(child)))
			} else {
				appendText(unescape(bld.text(child)))
			}
		case "interpolation":
			parts = append(parts, piece{expr: bld.expr(child)})
		case "string", "character":
			for _, nested := range bld.pieces(child) {
				if nested.expr == nil {
					appendText(nested.literal)
				} else {
					parts = append(parts, nested)
				}
			}
		}
	}

	// Character literals and %w words carry their text without children.
	if len(parts) == 0 && (node.Type() == "character" || node.Type() == "bare_string" || node.Type() == "bare_symbol") {
		appendText(strings.TrimPrefix(bld.text(node), "?"))
	}

	return parts
}

// rawQuoted reports whether a literal uses single-quote escaping rules.
func rawQuoted(text string) bool {
	return strings.HasPrefix(text, "'") || strings.HasPrefix(text, "%q") || strings.HasPrefix(text, "%w") ||
		strings.HasPrefix(text, "%i") || strings.HasPrefix(text, ":'")
}

// stringParts converts the pieces of an interpolated literal to str and
// begin children.
func (bld *builder) stringParts(node sitter.Node) []ast.Value {
	parts := bld.pieces(node)
	children := make([]ast.Value, 0, len(parts))

	for _, part := range parts {
		if part.expr != nil {
			children = append(children, part.expr)
		} else {
			children = append(children, bld.node(ast.KindStr, node, ast.Str(part.literal)))
		}
	}

	return children
}

// stringLiteral builds a plain literal of kind, or an interpolated one of
// interpolated kind when the text embeds expressions.
func (bld *builder) stringLiteral(node sitter.Node, kind, interpolated ast.Kind) *ast.Node {
	parts := bld.pieces(node)

	switch {
	case len(parts) == 0:
		return bld.literal(node, kind, "")
	case len(parts) == 1 && parts[0].expr == nil:
		return bld.literal(node, kind, parts[0].literal)
	default:
		return bld.node(interpolated, node, bld.stringParts(node)...)
	}
}

func (bld *builder) literal(node sitter.Node, kind ast.Kind, text string) *ast.Node {
	if kind == ast.KindSym {
		return bld.node(kind, node, ast.Name(text))
	}

	return bld.node(kind, node, ast.Str(text))
}

func (bld *builder) symbol(node sitter.Node) *ast.Node {
	switch node.Type() {
	case "delimited_symbol":
		return bld.stringLiteral(node, ast.KindSym, ast.KindDsym)
	case "hash_key_symbol":
		return bld.node(ast.KindSym, node, ast.Name(bld.text(node)))
	default:
		return bld.node(ast.KindSym, node, ast.Name(strings.TrimPrefix(bld.text(node), ":")))
	}
}

//nolint:gochecknoglobals // read-only delimiter table.
var closingDelimiters = map[byte]byte{'(': ')', '[': ']', '{': '}', '<': '>'}

// regex converts a regexp literal. Options follow the closing delimiter.
func (bld *builder) regex(node sitter.Node) *ast.Node {
	text := bld.text(node)

	closing := byte('/')
	if strings.HasPrefix(text, "%r") && len(text) > 2 {
		closing = text[2]
		if mapped, ok := closingDelimiters[closing]; ok {
			closing = mapped
		}
	}

	var (
		children []ast.Value
		source   strings.Builder
	)

	flush := func() {
		if source.Len() > 0 {
			children = append(children, bld.node(ast.KindStr, node, ast.Str(source.String())))
			source.Reset()
		}
	}

	// Escapes stay as written: they belong to the pattern, not the string.
	for _, child := range named(node) {
		switch child.Type() {
		case "string_content", "escape_sequence":
			source.WriteString(bld.text(child))
		case "interpolation":
			flush()
			children = append(children, bld.expr(child))
		}
	}

	flush()

	if len(children) == 0 {
		children = append(children, bld.node(ast.KindStr, node, ast.Str("")))
	}

	var options []ast.Value

	if end := strings.LastIndexByte(text, closing); end >= 0 {
		for _, flag := range text[end+1:] {
			options = append(options, ast.Name(string(flag)))
		}
	}

	return bld.node(ast.KindRegexp, node, append(children, bld.node(ast.KindRegopt, node, options...))...)
}

// unescape decodes one double-quoted escape sequence.
func unescape(seq string) string {
	if len(seq) < 2 || seq[0] != '\\' {
		return seq
	}

	switch body := seq[1:]; {
	case body == "e":
		return "\x1b"
	case body == "s":
		return " "
	case strings.HasPrefix(body, "u{"):
		var out strings.Builder

		for hex := range strings.FieldsSeq(strings.TrimSuffix(body[2:], "}")) {
			code, err := strconv.ParseUint(hex, 16, 32)
			if err != nil || !utf8.ValidRune(rune(code)) {
				return seq
			}

			out.WriteRune(rune(code))
		}

		return out.String()
	case body == "\n":
		return ""
	}

	value, _, tail, err := strconv.UnquoteChar(seq, '"')
	if err != nil || tail != "" {
		return seq[1:]
	}

	return string(value)
}

// unescapeSingle decodes the two escapes single-quoted text knows.
func unescapeSingle(text string) string {
	return strings.NewReplacer(`\\`, `\`, `\'`, `'`).Replace(text)
}

func (bld *builder) elements(children []sitter.Node) []ast.Value {
	elements := make([]ast.Value, 0, len(children))

	for _, child := range children {
		switch child.Type() {
		case "pair", "hash_splat_argument":
			elements = append(elements, bld.node(ast.KindHash, child, bld.hashElement(child)))
		default:
			elements = append(elements, bld.expr(child))
		}
	}

	return elements
}

// wordArray converts %w and %i literals.
func (bld *builder) wordArray(node sitter.Node) *ast.Node {
	kind := ast.KindStr
	if node.Type() == "symbol_array" {
		kind = ast.KindSym
	}

	words := named(node)
	elements := make([]ast.Value, 0, len(words))

	for _, word := range words {
		elements = append(elements, bld.stringLiteral(word, kind, ast.KindDstr))
	}

	return bld.node(ast.KindArray, node, elements...)
}

func (bld *builder) hash(node sitter.Node) *ast.Node {
	children := named(node)
	elements := make([]ast.Value, 0, len(children))

	for _, child := range children {
		elements = append(elements, bld.hashElement(child))
	}

	return bld.node(ast.KindHash, node, elements...)
}

func (bld *builder) hashElement(node sitter.Node) *ast.Node {
	switch node.Type() {
	case "pair":
		key, hasKey := field(node, "key")
		value, hasValue := field(node, "value")

		if !hasKey || !hasValue {
			return bld.unsupported(node)
		}

		keyNode := bld.expr(key)

		// "name": value is a symbol key, unlike "name" => value.
		if key.Type() == "string" && !hasToken(node, "=>") && keyNode.Is(ast.KindStr) {
			text, _ := keyNode.StrAt(0)
			keyNode = keyNode.Updated(ast.KindSym, ast.Name(text))
		}

		return bld.node(ast.KindPair, node, keyNode, bld.expr(value))
	case "hash_splat_argument":
		inner := named(node)
		if len(inner) == 0 {
			return bld.unsupported(node)
		}

		return bld.node(ast.KindKwsplat, node, bld.expr(inner[0]))
	default:
		return bld.unsupported(node)
	}
}

func (bld *builder) rangeLiteral(node sitter.Node) *ast.Node {
	var lower, upper *ast.Node

	if begin, ok := field(node, "begin"); ok {
		lower = bld.expr(begin)
	}

	if end, ok := field(node, "end"); ok {
		upper = bld.expr(end)
	}

	if hasToken(node, "...") {
		return bld.node(ast.KindErange, node, lower, upper)
	}

	return bld.node(ast.KindIrange, node, lower, upper)
}
