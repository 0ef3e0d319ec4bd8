package convert

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Sumatoshi-tech/rb2js/pkg/ast"
	"github.com/Sumatoshi-tech/rb2js/pkg/es"
	"github.com/Sumatoshi-tech/rb2js/pkg/fragment"
	"github.com/Sumatoshi-tech/rb2js/pkg/options"
)

func genInt(_ *Context, node *ast.Node) (fragment.Fragment, error) {
	value, ok := node.Child(0).(ast.Int)
	if !ok {
		return nil, notImplemented(node, "integer literal without value")
	}

	return fragment.Text(value.String()), nil
}

func genFloat(_ *Context, node *ast.Node) (fragment.Fragment, error) {
	value, ok := node.Child(0).(ast.Float)
	if !ok {
		return nil, notImplemented(node, "float literal without value")
	}

	return fragment.Text(strconv.FormatFloat(float64(value), 'g', -1, 64)), nil
}

func genStr(ctx *Context, node *ast.Node) (fragment.Fragment, error) {
	value, _ := node.StrAt(0)

	return fragment.Text(ctx.Quote(string(value))), nil
}

func genSym(ctx *Context, node *ast.Node) (fragment.Fragment, error) {
	return fragment.Text(ctx.Quote(string(node.NameAt(0)))), nil
}

func genNil(*Context, *ast.Node) (fragment.Fragment, error) {
	return fragment.Text("null"), nil
}

func genTrue(*Context, *ast.Node) (fragment.Fragment, error) {
	return fragment.Text("true"), nil
}

func genFalse(*Context, *ast.Node) (fragment.Fragment, error) {
	return fragment.Text("false"), nil
}

func genSelf(ctx *Context, _ *ast.Node) (fragment.Fragment, error) {
	return fragment.Text(ctx.receiverText()), nil
}

func genJSRaw(_ *Context, node *ast.Node) (fragment.Fragment, error) {
	value, _ := node.StrAt(0)

	return fragment.Text(string(value)), nil
}

// Quote renders a string literal with the configured delimiter.
func (ctx *Context) Quote(value string) string {
	delim := '"'
	if ctx.opts.Quote == options.QuoteSingle {
		delim = '\''
	}

	var builder strings.Builder

	builder.WriteRune(delim)

	for _, char := range value {
		if char == delim {
			builder.WriteRune('\\')
			builder.WriteRune(char)

			continue
		}

		writeEscaped(&builder, char)
	}

	builder.WriteRune(delim)

	return builder.String()
}

func writeEscaped(builder *strings.Builder, char rune) {
	switch char {
	case '\\':
		builder.WriteString(`\\`)
	case '\n':
		builder.WriteString(`\n`)
	case '\r':
		builder.WriteString(`\r`)
	case '\t':
		builder.WriteString(`\t`)
	case '\u2028', '\u2029':
		fmt.Fprintf(builder, `\u%04x`, char)
	default:
		if char < 0x20 || char == 0x7f {
			fmt.Fprintf(builder, `\x%02x`, char)

			return
		}

		builder.WriteRune(char)
	}
}

func templateText(value string) string {
	var builder strings.Builder

	runes := []rune(value)
	for idx, char := range runes {
		switch {
		case char == '`':
			builder.WriteString("\\`")
		case char == '$' && idx+1 < len(runes) && runes[idx+1] == '{':
			builder.WriteString(`\$`)
		default:
			writeEscaped(&builder, char)
		}
	}

	return builder.String()
}

// interpolation is one piece of an interpolated string: literal text or
// an embedded expression.
type interpolation struct {
	expr    *ast.Node
	literal string
}

// interpolations flattens the parts of a dstr, dsym or regexp.
func interpolations(node *ast.Node) []interpolation {
	var parts []interpolation

	for _, child := range node.Nodes() {
		switch child.Kind() {
		case ast.KindStr:
			value, _ := child.StrAt(0)
			parts = appendLiteral(parts, string(value))
		case ast.KindDstr:
			for _, nested := range interpolations(child) {
				if nested.expr == nil {
					parts = appendLiteral(parts, nested.literal)
				} else {
					parts = append(parts, nested)
				}
			}
		case ast.KindBegin:
			if child.Len() == 0 {
				continue
			}

			if child.Len() == 1 {
				parts = append(parts, interpolation{expr: child.NodeAt(0)})
			} else {
				parts = append(parts, interpolation{expr: child})
			}
		case ast.KindRegopt:
		default:
			parts = append(parts, interpolation{expr: child})
		}
	}

	return parts
}

func appendLiteral(parts []interpolation, text string) []interpolation {
	if last := len(parts) - 1; last >= 0 && parts[last].expr == nil {
		parts[last].literal += text

		return parts
	}

	return append(parts, interpolation{literal: text})
}

func genTemplate(ctx *Context, node *ast.Node) (fragment.Fragment, error) {
	out := fragment.Group{fragment.Text("`")}

	for _, part := range interpolations(node) {
		if part.expr == nil {
			out = append(out, fragment.Text(templateText(part.literal)))

			continue
		}

		expr, err := ctx.Expr(part.expr)
		if err != nil {
			return nil, err
		}

		out = append(out, fragment.Text("${"), expr, fragment.Text("}"))
	}

	return append(out, fragment.Text("`")), nil
}

func genConcat(ctx *Context, node *ast.Node) (fragment.Fragment, error) {
	return ctx.concatParts(interpolations(node), ctx.Quote)
}

// concatParts joins interpolation pieces with +. A leading empty string
// forces string concatenation when the first piece is an expression.
func (ctx *Context) concatParts(parts []interpolation, literal func(string) string) (fragment.Fragment, error) {
	if len(parts) == 0 {
		return fragment.Text(literal("")), nil
	}

	items := make([]fragment.Fragment, 0, len(parts)+1)
	if parts[0].expr != nil {
		items = append(items, fragment.Text(literal("")))
	}

	for _, part := range parts {
		if part.expr == nil {
			items = append(items, fragment.Text(literal(part.literal)))

			continue
		}

		expr, err := ctx.ExprPrec(part.expr, precMultiply)
		if err != nil {
			return nil, err
		}

		items = append(items, expr)
	}

	return fragment.Join(fragment.Text(" + "), items), nil
}

func genRegexp(ctx *Context, node *ast.Node) (fragment.Fragment, error) {
	flags, err := regexpFlags(ctx, node)
	if err != nil {
		return nil, err
	}

	parts := interpolations(node)

	dynamic := false

	for _, part := range parts {
		if part.expr != nil {
			dynamic = true
		}
	}

	if !dynamic {
		source := ""
		if len(parts) == 1 {
			source = parts[0].literal
		}

		return fragment.Text("/" + regexpSource(source, true) + "/" + flags), nil
	}

	for idx := range parts {
		parts[idx].literal = regexpSource(parts[idx].literal, false)
	}

	pattern, err := ctx.concatParts(parts, ctx.Quote)
	if err != nil {
		return nil, err
	}

	out := fragment.Seq(fragment.Text("new RegExp("), pattern)
	if flags != "" {
		out = append(out, fragment.Text(", "+ctx.Quote(flags)))
	}

	return append(out, fragment.Text(")")), nil
}

func regexpFlags(ctx *Context, node *ast.Node) (string, error) {
	var flags strings.Builder

	for _, child := range node.Nodes() {
		if !child.Is(ast.KindRegopt) {
			continue
		}

		for _, option := range child.Children() {
			name, _ := option.(ast.Name)

			switch name {
			case "g", "i":
				flags.WriteString(string(name))
			case "m":
				if ctx.Level() < es.ES2018 {
					return "", notImplemented(node, "multiline regexp needs ES2018")
				}

				flags.WriteString("s")
			case "x":
				return "", notImplemented(node, "extended regexp")
			}
		}
	}

	return flags.String(), nil
}

// regexpSource maps Ruby anchors to JavaScript ones. Literal sources also
// get bare slashes escaped.
func regexpSource(source string, literal bool) string {
	if source == "" && literal {
		return "(?:)"
	}

	var builder strings.Builder

	escaped := false

	for _, char := range source {
		if escaped {
			escaped = false

			switch char {
			case 'A':
				builder.WriteString("^")
			case 'z', 'Z':
				builder.WriteString("$")
			case 'h':
				builder.WriteString(`[0-9a-fA-F]`)
			default:
				builder.WriteRune('\\')
				builder.WriteRune(char)
			}

			continue
		}

		switch {
		case char == '\\':
			escaped = true
		case char == '/' && literal:
			builder.WriteString(`\/`)
		case char == '\n' && literal:
			builder.WriteString(`\n`)
		default:
			builder.WriteRune(char)
		}
	}

	if escaped {
		builder.WriteRune('\\')
	}

	return builder.String()
}

func genArray(ctx *Context, node *ast.Node) (fragment.Fragment, error) {
	return ctx.arrayOf(node.Nodes())
}

// arrayOf renders elements as an array literal. Splats become spread
// elements, or a concat chain at levels without spread.
func (ctx *Context) arrayOf(elements []*ast.Node) (fragment.Fragment, error) {
	hasSplat := false

	for _, element := range elements {
		if element.Is(ast.KindSplat) {
			hasSplat = true
		}
	}

	if hasSplat && ctx.Level() < es.ES2015 {
		return ctx.concatArray(elements)
	}

	items := make([]fragment.Fragment, 0, len(elements))

	for _, element := range elements {
		item, err := ctx.element(element)
		if err != nil {
			return nil, err
		}

		items = append(items, item)
	}

	return fragment.Seq(fragment.Text("["), fragment.Join(fragment.Text(", "), items), fragment.Text("]")), nil
}

// element renders an array element or call argument.
func (ctx *Context) element(node *ast.Node) (fragment.Fragment, error) {
	if node.Is(ast.KindSplat) {
		inner, err := ctx.ExprPrec(node.NodeAt(0), precAssign)
		if err != nil {
			return nil, err
		}

		return fragment.Seq(fragment.Text("..."), inner), nil
	}

	return ctx.ExprPrec(node, precAssign)
}

func (ctx *Context) concatArray(elements []*ast.Node) (fragment.Fragment, error) {
	var (
		segments []fragment.Fragment
		pending  []fragment.Fragment
	)

	flush := func() {
		if pending != nil {
			segments = append(segments, fragment.Seq(fragment.Text("["),
				fragment.Join(fragment.Text(", "), pending), fragment.Text("]")))
			pending = nil
		}
	}

	for _, element := range elements {
		if element.Is(ast.KindSplat) {
			flush()

			inner, err := ctx.ExprPrec(element.NodeAt(0), precAssign)
			if err != nil {
				return nil, err
			}

			segments = append(segments, inner)

			continue
		}

		item, err := ctx.ExprPrec(element, precAssign)
		if err != nil {
			return nil, err
		}

		pending = append(pending, item)
	}

	flush()

	head := fragment.Fragment(fragment.Text("[]"))
	if !elements[0].Is(ast.KindSplat) {
		head, segments = segments[0], segments[1:]
	}

	if len(segments) == 0 {
		return head, nil
	}

	return fragment.Seq(head, fragment.Text(".concat("), fragment.Join(fragment.Text(", "), segments),
		fragment.Text(")")), nil
}

func genHash(ctx *Context, node *ast.Node) (fragment.Fragment, error) {
	pairs := node.Nodes()

	hasSplat := false

	for _, pair := range pairs {
		if pair.Is(ast.KindKwsplat) {
			hasSplat = true
		}
	}

	if hasSplat && ctx.Level() < es.ES2018 {
		return ctx.assignObject(pairs)
	}

	items := make([]fragment.Fragment, 0, len(pairs))

	for _, pair := range pairs {
		item, err := ctx.hashEntry(pair)
		if err != nil {
			return nil, err
		}

		items = append(items, item)
	}

	return objectLiteral(items), nil
}

func objectLiteral(items []fragment.Fragment) fragment.Fragment {
	if len(items) == 0 {
		return fragment.Text("{}")
	}

	return fragment.Seq(fragment.Text("{"), fragment.Join(fragment.Text(", "), items), fragment.Text("}"))
}

func (ctx *Context) hashEntry(pair *ast.Node) (fragment.Fragment, error) {
	if pair.Is(ast.KindKwsplat) {
		inner, err := ctx.ExprPrec(pair.NodeAt(0), precAssign)
		if err != nil {
			return nil, err
		}

		return fragment.Seq(fragment.Text("..."), inner), nil
	}

	if !pair.Is(ast.KindPair) {
		return nil, notImplemented(pair, "%s inside a hash literal", pair.Kind())
	}

	key, value := pair.NodeAt(0), pair.NodeAt(1)

	keyText, err := ctx.hashKey(key)
	if err != nil {
		return nil, err
	}

	if key.Is(ast.KindSym) && value.Is(ast.KindLvar) && ctx.Level() >= es.ES2015 &&
		fragment.Text(ctx.Local(string(value.NameAt(0)))) == keyText {
		return keyText, nil
	}

	valueFrag, err := ctx.ExprPrec(value, precAssign)
	if err != nil {
		return nil, err
	}

	return fragment.Seq(keyText, fragment.Text(": "), valueFrag), nil
}

func (ctx *Context) hashKey(key *ast.Node) (fragment.Fragment, error) {
	switch key.Kind() {
	case ast.KindSym:
		name := string(key.NameAt(0))
		if isIdentifier(name) {
			return fragment.Text(name), nil
		}

		return fragment.Text(ctx.Quote(name)), nil
	case ast.KindStr:
		value, _ := key.StrAt(0)

		return fragment.Text(ctx.Quote(string(value))), nil
	case ast.KindInt:
		return ctx.Expr(key)
	}

	if ctx.Level() < es.ES2015 {
		return nil, notImplemented(key, "computed hash key needs ES2015")
	}

	expr, err := ctx.ExprPrec(key, precAssign)
	if err != nil {
		return nil, err
	}

	return fragment.Seq(fragment.Text("["), expr, fragment.Text("]")), nil
}

// assignObject merges literal runs and double splats with Object.assign.
func (ctx *Context) assignObject(pairs []*ast.Node) (fragment.Fragment, error) {
	segments := []fragment.Fragment{fragment.Text("{}")}

	var pending []fragment.Fragment

	flush := func() {
		if pending != nil {
			segments = append(segments, objectLiteral(pending))
			pending = nil
		}
	}

	for _, pair := range pairs {
		if pair.Is(ast.KindKwsplat) {
			flush()

			inner, err := ctx.ExprPrec(pair.NodeAt(0), precAssign)
			if err != nil {
				return nil, err
			}

			segments = append(segments, inner)

			continue
		}

		item, err := ctx.hashEntry(pair)
		if err != nil {
			return nil, err
		}

		pending = append(pending, item)
	}

	flush()

	return fragment.Seq(fragment.Text("Object.assign("), fragment.Join(fragment.Text(", "), segments),
		fragment.Text(")")), nil
}

func genRangeES5(_ *Context, node *ast.Node) (fragment.Fragment, error) {
	return nil, notImplemented(node, "range used as a value needs ES2015")
}

// genRangeArray materializes a range used as a value.
func genRangeArray(ctx *Context, node *ast.Node) (fragment.Fragment, error) {
	low, high := node.NodeAt(0), node.NodeAt(1)
	if low == nil || high == nil {
		return nil, notImplemented(node, "endless range used as a value")
	}

	lowFrag, err := ctx.ExprPrec(low, precMultiply)
	if err != nil {
		return nil, err
	}

	highFrag, err := ctx.ExprPrec(high, precMultiply)
	if err != nil {
		return nil, err
	}

	length := fragment.Seq(highFrag, fragment.Text(" - "), lowFrag)
	if node.Is(ast.KindIrange) {
		length = append(length, fragment.Text(" + 1"))
	}

	return fragment.Seq(fragment.Text("Array.from({length: "), length, fragment.Text("}, (_, $i) => "),
		lowFrag, fragment.Text(" + $i)")), nil
}
