package convert

import (
	"github.com/Sumatoshi-tech/rb2js/pkg/ast"
	"github.com/Sumatoshi-tech/rb2js/pkg/fragment"
	"github.com/Sumatoshi-tech/rb2js/pkg/options"
)

// Converter turns filtered trees into fragments. A Converter holds no
// per-conversion state and is safe for concurrent use.
type Converter struct {
	rules *RuleSet
	opts  options.Options
}

// New creates a converter. A nil rule set means DefaultRules.
func New(rules *RuleSet, opts options.Options) *Converter {
	if rules == nil {
		rules = DefaultRules()
	}

	return &Converter{rules: rules, opts: opts}
}

// Rules returns the rule set the converter dispatches on.
func (converter *Converter) Rules() *RuleSet {
	return converter.rules
}

// Convert renders a program. The root is a begin holding the top-level
// statements, or a single statement. The first node without a rule at the
// configured level aborts conversion with a NotImplementedError.
func (converter *Converter) Convert(root *ast.Node) (fragment.Group, error) {
	ctx := newContext(converter.rules, converter.opts, root)

	return ctx.BodyOf(root, PositionStatement)
}
