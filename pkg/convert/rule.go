// Package convert generates JavaScript fragments from syntax trees.
//
// Generation is driven by rules keyed by node kind and, for calls and
// blocks, optionally by method name. Each rule names the lowest target level
// it needs. For a given key the rule with the highest minimum level that the
// configured level satisfies wins; when none qualifies the rule with the
// lowest minimum level is used.
package convert

import (
	"slices"
	"sort"

	"github.com/Sumatoshi-tech/rb2js/pkg/ast"
	"github.com/Sumatoshi-tech/rb2js/pkg/es"
	"github.com/Sumatoshi-tech/rb2js/pkg/fragment"
)

// Generator renders one node. It reads the position the node is converted
// in from ctx and returns either an expression or, for statement-shaped
// output, a Statements value.
type Generator func(ctx *Context, node *ast.Node) (fragment.Fragment, error)

// Rule registers a generator for a node kind at a minimum target level.
// Method, when set, restricts a send, csend or block rule to calls of that
// method name.
type Rule struct {
	Generate Generator
	Method   ast.Name
	Kind     ast.Kind
	MinLevel es.Level
}

type ruleKey struct {
	method ast.Name
	kind   ast.Kind
}

// RuleSet is an immutable collection of rules. It is safe for concurrent use.
type RuleSet struct {
	rules map[ruleKey][]Rule
}

// NewRuleSet indexes rules. A later rule with the same kind, method and
// minimum level replaces an earlier one.
func NewRuleSet(rules ...Rule) *RuleSet {
	set := &RuleSet{rules: make(map[ruleKey][]Rule)}
	set.add(rules)

	return set
}

// With returns a copy of the set extended with rules.
func (set *RuleSet) With(rules ...Rule) *RuleSet {
	extended := &RuleSet{rules: make(map[ruleKey][]Rule, len(set.rules))}

	for key, list := range set.rules {
		extended.rules[key] = slices.Clone(list)
	}

	extended.add(rules)

	return extended
}

func (set *RuleSet) add(rules []Rule) {
	for _, rule := range rules {
		key := ruleKey{kind: rule.Kind, method: rule.Method}
		list := set.rules[key]

		replaced := false

		for idx := range list {
			if list[idx].MinLevel == rule.MinLevel {
				list[idx] = rule
				replaced = true
			}
		}

		if !replaced {
			list = append(list, rule)
		}

		sort.SliceStable(list, func(left, right int) bool {
			return list[left].MinLevel < list[right].MinLevel
		})

		set.rules[key] = list
	}
}

// Select picks the rule for kind at level, ignoring method-specific rules.
func (set *RuleSet) Select(kind ast.Kind, level es.Level) (Rule, bool) {
	return selectByLevel(set.rules[ruleKey{kind: kind}], level)
}

// SelectMethod picks the rule for a call of method. Kinds without a rule
// for that method fall back to Select.
func (set *RuleSet) SelectMethod(kind ast.Kind, method ast.Name, level es.Level) (Rule, bool) {
	if method != "" {
		if rule, ok := selectByLevel(set.rules[ruleKey{kind: kind, method: method}], level); ok {
			return rule, true
		}
	}

	return set.Select(kind, level)
}

// Has reports whether any rule exists for kind.
func (set *RuleSet) Has(kind ast.Kind) bool {
	for key := range set.rules {
		if key.kind == kind {
			return true
		}
	}

	return false
}

// Levels returns the distinct minimum levels registered for kind and method.
func (set *RuleSet) Levels(kind ast.Kind, method ast.Name) []es.Level {
	list := set.rules[ruleKey{kind: kind, method: method}]
	levels := make([]es.Level, 0, len(list))

	for _, rule := range list {
		levels = append(levels, rule.MinLevel)
	}

	return levels
}

// Kinds returns the kinds with at least one rule, in declaration order.
func (set *RuleSet) Kinds() []ast.Kind {
	var kinds []ast.Kind

	for _, kind := range ast.Kinds() {
		if set.Has(kind) {
			kinds = append(kinds, kind)
		}
	}

	return kinds
}

func selectByLevel(list []Rule, level es.Level) (Rule, bool) {
	if len(list) == 0 {
		return Rule{}, false
	}

	best := -1

	for idx, rule := range list {
		if rule.MinLevel <= level {
			best = idx
		}
	}

	if best < 0 {
		return list[0], true
	}

	return list[best], true
}
