package phpast

// Extract walks root in pre-order and returns every construct of interest,
// top to bottom. A nil root (parse failure) yields nil.
func Extract(file string, root *Node) []Construct {
	if root == nil {
		return nil
	}
	var out []Construct
	walk(file, root, &out)
	return out
}

func walk(file string, n *Node, out *[]Construct) {
	emit := func(name string, kind ConstructKind) {
		if name != "" {
			*out = append(*out, Construct{Name: name, Kind: kind, Line: n.Line, File: file})
		}
	}
	emitAll := func(kind ConstructKind) {
		for _, name := range n.Names {
			emit(name, kind)
		}
	}

	switch n.Type {
	case NodeFunctionCall:
		emit(n.name(), KindFunctionCall)
	case NodeMethodCall:
		emit(n.name(), KindMethodCall)
	case NodeStaticCall:
		if method := n.name(); method != "" && n.Scope != "" {
			emit(n.Scope+"::"+method, KindStaticCall)
		} else {
			emit(method, KindStaticCall)
		}
	case NodeNew:
		emit(n.name(), KindInstantiation)
	case NodeInstanceof:
		emit(n.name(), KindInstanceof)
	case NodeClassConst:
		emit(n.Scope, KindConstAccess)
	case NodeParam:
		emitAll(KindTypeHint)
	case NodeCatch:
		emitAll(KindCatchType)
	case NodeExtends:
		emitAll(KindExtends)
	case NodeImplements:
		emitAll(KindImplements)
	case NodeTraitUse:
		emitAll(KindUseTrait)
	}

	for _, child := range n.Children {
		if child != nil {
			walk(file, child, out)
		}
	}
}
