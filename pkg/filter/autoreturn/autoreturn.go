// Package autoreturn makes blocks and lambdas return the value of their
// last statement, as they do in Ruby.
package autoreturn

import (
	"github.com/Sumatoshi-tech/rb2js/pkg/ast"
	"github.com/Sumatoshi-tech/rb2js/pkg/filter"
)

// Name is the catalog name of the filter.
const Name = "return"

// Filter returns the filter descriptor.
func Filter() filter.Filter {
	return filter.Filter{
		Name:        Name,
		Description: "multi-statement blocks and lambdas return their last value",
		Handlers: []filter.Registration{
			{Kind: ast.KindBlock, Handler: wrapBody},
		},
	}
}

func wrapBody(node *ast.Node, _ *filter.Context) (filter.Result, error) {
	body := node.NodeAt(2)
	if body == nil || body.Is(ast.KindAutoreturn) {
		return filter.Keep(node)
	}

	var statements []ast.Value
	if body.Is(ast.KindBegin) {
		statements = body.Children()
	} else {
		statements = []ast.Value{body}
	}

	wrapped := ast.New(ast.KindAutoreturn, body.Span(), statements...)

	return filter.Replace(node.WithChild(2, wrapped))
}
