package ast

import (
	"strconv"
	"strings"
)

// Format renders a value in the s-expression notation used by the Ruby
// parser gem, e.g. (send nil :puts (str "hi")).
func Format(value Value) string {
	var builder strings.Builder

	writeValue(&builder, value)

	return builder.String()
}

func writeValue(builder *strings.Builder, value Value) {
	if IsAbsent(value) {
		builder.WriteString("nil")

		return
	}

	switch typed := value.(type) {
	case *Node:
		builder.WriteByte('(')
		builder.WriteString(typed.kind.String())

		for _, child := range typed.children {
			builder.WriteByte(' ')
			writeValue(builder, child)
		}

		builder.WriteByte(')')
	case Name:
		builder.WriteByte(':')
		builder.WriteString(string(typed))
	case Str:
		builder.WriteString(strconv.Quote(string(typed)))
	case Int:
		builder.WriteString(typed.String())
	case Float:
		text := typed.String()
		if !strings.ContainsAny(text, ".eEIN") {
			text += ".0"
		}

		builder.WriteString(text)
	}
}
