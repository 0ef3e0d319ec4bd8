package convert

import (
	"github.com/Sumatoshi-tech/rb2js/pkg/ast"
	"github.com/Sumatoshi-tech/rb2js/pkg/es"
)

func kindRule(kind ast.Kind, level es.Level, gen Generator) Rule {
	return Rule{Kind: kind, MinLevel: level, Generate: gen}
}

func sendRule(method ast.Name, level es.Level, gen Generator) Rule {
	return Rule{Kind: ast.KindSend, Method: method, MinLevel: level, Generate: gen}
}

func blockRule(method ast.Name, level es.Level, gen Generator) Rule {
	return Rule{Kind: ast.KindBlock, Method: method, MinLevel: level, Generate: gen}
}

// DefaultRules returns the generators for every supported node kind.
// Kinds without a rule, such as retry, redo, undef and backtick strings,
// fail conversion with a NotImplementedError.
func DefaultRules() *RuleSet {
	rules := []Rule{
		kindRule(ast.KindInt, es.ES5, genInt),
		kindRule(ast.KindFloat, es.ES5, genFloat),
		kindRule(ast.KindStr, es.ES5, genStr),
		kindRule(ast.KindSym, es.ES5, genSym),
		kindRule(ast.KindDstr, es.ES5, genConcat),
		kindRule(ast.KindDstr, es.ES2015, genTemplate),
		kindRule(ast.KindDsym, es.ES5, genConcat),
		kindRule(ast.KindDsym, es.ES2015, genTemplate),
		kindRule(ast.KindRegexp, es.ES5, genRegexp),
		kindRule(ast.KindArray, es.ES5, genArray),
		kindRule(ast.KindHash, es.ES5, genHash),
		kindRule(ast.KindIrange, es.ES5, genRangeES5),
		kindRule(ast.KindIrange, es.ES2015, genRangeArray),
		kindRule(ast.KindErange, es.ES5, genRangeES5),
		kindRule(ast.KindErange, es.ES2015, genRangeArray),
		kindRule(ast.KindNil, es.ES5, genNil),
		kindRule(ast.KindTrue, es.ES5, genTrue),
		kindRule(ast.KindFalse, es.ES5, genFalse),
		kindRule(ast.KindSelf, es.ES5, genSelf),
		kindRule(ast.KindJSRaw, es.ES5, genJSRaw),

		kindRule(ast.KindLvar, es.ES5, genLvar),
		kindRule(ast.KindIvar, es.ES5, genIvar),
		kindRule(ast.KindIvar, es.ES2022, genPrivateIvar),
		kindRule(ast.KindGvar, es.ES5, genGvar),
		kindRule(ast.KindCvar, es.ES5, genCvar),
		kindRule(ast.KindConst, es.ES5, genConst),
		kindRule(ast.KindLvasgn, es.ES5, genLvasgn),
		kindRule(ast.KindIvasgn, es.ES5, genIvasgn),
		kindRule(ast.KindGvasgn, es.ES5, genGvasgn),
		kindRule(ast.KindCvasgn, es.ES5, genCvasgn),
		kindRule(ast.KindCasgn, es.ES5, genCasgn),
		kindRule(ast.KindOpAsgn, es.ES5, genOpAsgn),
		kindRule(ast.KindOrAsgn, es.ES5, genOrAsgnES5),
		kindRule(ast.KindOrAsgn, es.ES2021, genOrAsgn),
		kindRule(ast.KindAndAsgn, es.ES5, genAndAsgnES5),
		kindRule(ast.KindAndAsgn, es.ES2021, genAndAsgn),
		kindRule(ast.KindMasgn, es.ES5, genMasgnES5),
		kindRule(ast.KindMasgn, es.ES2015, genMasgn),

		kindRule(ast.KindSend, es.ES5, genSend),
		kindRule(ast.KindCsend, es.ES5, genCsendES5),
		kindRule(ast.KindCsend, es.ES2020, genCsend),
		kindRule(ast.KindBlock, es.ES5, genBlockFunction),
		kindRule(ast.KindBlock, es.ES2015, genBlockArrow),
		kindRule(ast.KindBlockPass, es.ES5, genBlockPass),
		kindRule(ast.KindAttr, es.ES5, genAttr),
		kindRule(ast.KindCall, es.ES5, genCall),
		kindRule(ast.KindYield, es.ES5, genYield),
		kindRule(ast.KindSuper, es.ES5, genSuper),
		kindRule(ast.KindZsuper, es.ES5, genSuper),
		kindRule(ast.KindDefined, es.ES5, genDefined),
		kindRule(ast.KindAnd, es.ES5, genAnd),
		kindRule(ast.KindOr, es.ES5, genOr),

		kindRule(ast.KindDef, es.ES5, genDef),
		kindRule(ast.KindDefs, es.ES5, genDef),
		kindRule(ast.KindClass, es.ES5, genClassES5),
		kindRule(ast.KindClass, es.ES2015, genClass),
		kindRule(ast.KindModule, es.ES5, genModule),

		kindRule(ast.KindIf, es.ES5, genIf),
		kindRule(ast.KindCase, es.ES5, genCase),
		kindRule(ast.KindWhile, es.ES5, genWhile),
		kindRule(ast.KindUntil, es.ES5, genUntil),
		kindRule(ast.KindWhilePost, es.ES5, genWhilePost),
		kindRule(ast.KindUntilPost, es.ES5, genUntilPost),
		kindRule(ast.KindFor, es.ES5, genFor),
		kindRule(ast.KindBreak, es.ES5, genBreak),
		kindRule(ast.KindNext, es.ES5, genNext),
		kindRule(ast.KindReturn, es.ES5, genReturn),
		kindRule(ast.KindBegin, es.ES5, genBegin),
		kindRule(ast.KindKwbegin, es.ES5, genBegin),
		kindRule(ast.KindRescue, es.ES5, genRescue),
		kindRule(ast.KindEnsure, es.ES5, genEnsure),
		kindRule(ast.KindAutoreturn, es.ES5, genAutoreturn),

		sendRule("raise", es.ES5, genRaise),
		sendRule("block_given?", es.ES5, genBlockGiven),
		sendRule("is_a?", es.ES5, genInstanceOf),
		sendRule("kind_of?", es.ES5, genInstanceOf),
		sendRule("instance_of?", es.ES5, genInstanceOf),
		sendRule("==", es.ES5, genEquality),
		sendRule("!=", es.ES5, genEquality),
		sendRule("<<", es.ES5, genShovel),
		sendRule("=~", es.ES5, genMatch),
		sendRule("!~", es.ES5, genMatch),
		sendRule("[]", es.ES5, genIndex),
		sendRule("[]=", es.ES5, genIndexAssign),
		sendRule("**", es.ES5, genPow),
		sendRule("**", es.ES2016, genBinary),
		sendRule("to_a", es.ES5, genRangeToA),

		blockRule("each", es.ES5, genEachES5),
		blockRule("each", es.ES2015, genEach),
		blockRule("each_pair", es.ES5, genEachES5),
		blockRule("each_pair", es.ES2015, genEach),
		blockRule("each_with_index", es.ES5, genEachWithIndexES5),
		blockRule("each_with_index", es.ES2015, genEachWithIndex),
		blockRule("times", es.ES5, genTimes),
		blockRule("upto", es.ES5, genUpto),
		blockRule("downto", es.ES5, genDownto),
		blockRule("loop", es.ES5, genLoop),
	}

	for method := range binaryOperators {
		switch method {
		case "==", "!=", "<<", "**":
		default:
			rules = append(rules, sendRule(method, es.ES5, genBinary))
		}
	}

	for method := range unaryOperators {
		rules = append(rules, sendRule(method, es.ES5, genUnary))
	}

	return NewRuleSet(rules...)
}
