package phpast

// NodeType enumerates the syntax node families the extractor understands.
type NodeType int

const (
	NodeOther NodeType = iota
	// NodeFunctionCall: Names[0] is the called function.
	NodeFunctionCall
	// NodeMethodCall: Names[0] is the method.
	NodeMethodCall
	// NodeStaticCall: Scope is the class when statically known, Names[0] the method.
	NodeStaticCall
	// NodeNew: Names[0] is the instantiated class.
	NodeNew
	// NodeInstanceof: Names[0] is the class tested against.
	NodeInstanceof
	// NodeClassConst: Scope is the class.
	NodeClassConst
	// NodeParam: Names are the class types in the parameter's type hint.
	NodeParam
	// NodeCatch: Names are the caught exception types.
	NodeCatch
	// NodeExtends: Names are parent classes or interfaces.
	NodeExtends
	// NodeImplements: Names are implemented interfaces.
	NodeImplements
	// NodeTraitUse: Names are used traits.
	NodeTraitUse
)

var nodeTypeNames = map[NodeType]string{
	NodeOther:        "other",
	NodeFunctionCall: "function_call",
	NodeMethodCall:   "method_call",
	NodeStaticCall:   "static_call",
	NodeNew:          "new",
	NodeInstanceof:   "instanceof",
	NodeClassConst:   "class_const",
	NodeParam:        "param",
	NodeCatch:        "catch",
	NodeExtends:      "extends",
	NodeImplements:   "implements",
	NodeTraitUse:     "trait_use",
}

func (t NodeType) String() string {
	if s, ok := nodeTypeNames[t]; ok {
		return s
	}
	return "unknown"
}

// Node is a normalized syntax tree. Parsers reduce their concrete tree to
// the node families above; everything else is NodeOther or flattened away.
// Children are in source order.
type Node struct {
	Type     NodeType
	Names    []string
	Scope    string
	Line     int
	Children []*Node
}

func (n *Node) name() string {
	if len(n.Names) == 0 {
		return ""
	}
	return n.Names[0]
}
