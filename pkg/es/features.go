package es

// Feature names a level-gated JavaScript construct.
type Feature string

// Features the converter and filters gate on.
const (
	FeatureArrowFunctions   Feature = "arrow functions"
	FeatureClasses          Feature = "class syntax"
	FeatureLetConst         Feature = "let and const"
	FeatureTemplateLiterals Feature = "template literals"
	FeatureDestructuring    Feature = "destructuring"
	FeatureSpread           Feature = "spread and rest"
	FeatureDefaultParams    Feature = "default parameters"
	FeatureForOf            Feature = "for...of"
	FeatureExponent         Feature = "** operator"
	FeatureIncludes         Feature = "Array.prototype.includes"
	FeatureObjectEntries    Feature = "Object.entries and Object.values"
	FeatureObjectSpread     Feature = "object spread"
	FeatureOptionalCatch    Feature = "optional catch binding"
	FeatureOptionalChaining Feature = "optional chaining"
	FeatureNullish          Feature = "nullish coalescing"
	FeatureLogicalAssign    Feature = "logical assignment"
	FeatureReplaceAll       Feature = "String.prototype.replaceAll"
	FeaturePrivateFields    Feature = "private class fields"
	FeatureAt               Feature = "Array.prototype.at"
	FeatureClassStaticBlock Feature = "class static blocks"
	FeatureHasOwn           Feature = "Object.hasOwn"
	FeatureFindLast         Feature = "Array.prototype.findLast"
	FeatureToSorted         Feature = "change array by copy"
	FeatureGroupBy          Feature = "Object.groupBy"
	FeatureSetMethods       Feature = "Set methods"
)

// FeatureInfo pairs a feature with the level introducing it.
type FeatureInfo struct {
	Feature Feature
	Level   Level
}

// FeatureTable lists the features the translator knows about, ordered by level.
func FeatureTable() []FeatureInfo {
	return []FeatureInfo{
		{FeatureArrowFunctions, ES2015},
		{FeatureClasses, ES2015},
		{FeatureLetConst, ES2015},
		{FeatureTemplateLiterals, ES2015},
		{FeatureDestructuring, ES2015},
		{FeatureSpread, ES2015},
		{FeatureDefaultParams, ES2015},
		{FeatureForOf, ES2015},
		{FeatureExponent, ES2016},
		{FeatureIncludes, ES2016},
		{FeatureObjectEntries, ES2017},
		{FeatureObjectSpread, ES2018},
		{FeatureOptionalCatch, ES2019},
		{FeatureOptionalChaining, ES2020},
		{FeatureNullish, ES2020},
		{FeatureLogicalAssign, ES2021},
		{FeatureReplaceAll, ES2021},
		{FeaturePrivateFields, ES2022},
		{FeatureAt, ES2022},
		{FeatureClassStaticBlock, ES2022},
		{FeatureHasOwn, ES2022},
		{FeatureFindLast, ES2023},
		{FeatureToSorted, ES2023},
		{FeatureGroupBy, ES2024},
		{FeatureSetMethods, ES2025},
	}
}

// Supports reports whether feature is available at level. Unknown features
// are reported as unsupported.
func (level Level) Supports(feature Feature) bool {
	for _, info := range FeatureTable() {
		if info.Feature == feature {
			return level >= info.Level
		}
	}

	return false
}
