// Package phpast turns parsed PHP source into an ordered inventory of named
// constructs: calls, class usages and inheritance declarations.
package phpast

// ConstructKind classifies a structural detection.
type ConstructKind string

const (
	KindFunctionCall  ConstructKind = "function_call"
	KindMethodCall    ConstructKind = "method_call"
	KindStaticCall    ConstructKind = "static_call"
	KindInstantiation ConstructKind = "instantiation"
	KindInstanceof    ConstructKind = "instanceof"
	KindConstAccess   ConstructKind = "const_access"
	KindTypeHint      ConstructKind = "type_hint"
	KindCatchType     ConstructKind = "catch_type"
	KindExtends       ConstructKind = "extends"
	KindImplements    ConstructKind = "implements"
	KindUseTrait      ConstructKind = "use_trait"
)

// IsCall reports whether the construct invokes a function or method.
func (k ConstructKind) IsCall() bool {
	return k == KindFunctionCall || k == KindMethodCall || k == KindStaticCall
}

// Construct is one named usage found in a file. Line is 1-based.
type Construct struct {
	Name string        `json:"name"`
	Kind ConstructKind `json:"kind"`
	Line int           `json:"line"`
	File string        `json:"file"`
}
