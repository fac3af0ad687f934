//go:build cgo

package phpast

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/php"
)

// Parser wraps a tree-sitter parser configured for PHP. A Parser is not
// safe for concurrent use; give each worker its own.
type Parser struct {
	parser *sitter.Parser
}

// NewParser creates a new PHP parser.
func NewParser() *Parser {
	p := sitter.NewParser()
	p.SetLanguage(php.GetLanguage())
	return &Parser{parser: p}
}

// IsAvailable reports whether structural parsing is compiled in.
func IsAvailable() bool {
	return true
}

// Parse parses PHP source into a normalized tree. Source with syntax errors
// still yields a tree; tree-sitter recovers around the broken region.
func (p *Parser) Parse(ctx context.Context, source []byte) (*Node, error) {
	tree, err := p.parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	if tree == nil {
		return nil, fmt.Errorf("parse error: no tree produced")
	}
	defer tree.Close()

	root := &Node{Type: NodeOther, Line: 1}
	c := converter{src: source}
	c.walk(tree.RootNode(), root)
	return root, nil
}

type converter struct {
	src []byte
}

// walk appends the normalized form of n to parent. Nodes outside the known
// families are flattened so their interesting descendants keep pre-order.
func (c *converter) walk(n *sitter.Node, parent *Node) {
	if n == nil {
		return
	}

	target := parent
	if node := c.convert(n); node != nil {
		parent.Children = append(parent.Children, node)
		target = node
	}

	count := int(n.NamedChildCount())
	for i := 0; i < count; i++ {
		c.walk(n.NamedChild(i), target)
	}
}

func (c *converter) convert(n *sitter.Node) *Node {
	line := int(n.StartPoint().Row) + 1

	switch n.Type() {
	case "function_call_expression":
		if name := c.literalName(n.ChildByFieldName("function")); name != "" {
			return &Node{Type: NodeFunctionCall, Names: []string{name}, Line: line}
		}

	case "member_call_expression", "nullsafe_member_call_expression":
		if name := c.identifier(n.ChildByFieldName("name")); name != "" {
			return &Node{Type: NodeMethodCall, Names: []string{name}, Line: line}
		}

	case "scoped_call_expression":
		if name := c.identifier(n.ChildByFieldName("name")); name != "" {
			return &Node{
				Type:  NodeStaticCall,
				Names: []string{name},
				Scope: c.scopeName(n.ChildByFieldName("scope")),
				Line:  line,
			}
		}

	case "object_creation_expression":
		for i := 0; i < int(n.NamedChildCount()); i++ {
			if name := c.literalName(n.NamedChild(i)); name != "" {
				return &Node{Type: NodeNew, Names: []string{name}, Line: line}
			}
		}

	case "binary_expression":
		if op := n.ChildByFieldName("operator"); op != nil && op.Type() == "instanceof" {
			if name := c.literalName(n.ChildByFieldName("right")); name != "" {
				return &Node{Type: NodeInstanceof, Names: []string{name}, Line: line}
			}
		}

	case "class_constant_access_expression":
		if n.NamedChildCount() > 0 {
			if scope := c.scopeName(n.NamedChild(0)); scope != "" {
				return &Node{Type: NodeClassConst, Scope: scope, Line: line}
			}
		}

	case "simple_parameter", "variadic_parameter", "property_promotion_parameter":
		if names := c.typeNames(n.ChildByFieldName("type")); len(names) > 0 {
			return &Node{Type: NodeParam, Names: names, Line: line}
		}

	case "catch_clause":
		if names := c.typeNames(n.ChildByFieldName("type")); len(names) > 0 {
			return &Node{Type: NodeCatch, Names: names, Line: line}
		}

	case "base_clause":
		if names := c.typeNames(n); len(names) > 0 {
			return &Node{Type: NodeExtends, Names: names, Line: c.declLine(n)}
		}

	case "class_interface_clause":
		if names := c.typeNames(n); len(names) > 0 {
			return &Node{Type: NodeImplements, Names: names, Line: c.declLine(n)}
		}

	case "use_declaration":
		if names := c.typeNames(n); len(names) > 0 {
			return &Node{Type: NodeTraitUse, Names: names, Line: line}
		}
	}
	return nil
}

// declLine reports inheritance on the line of the enclosing declaration.
func (c *converter) declLine(n *sitter.Node) int {
	if p := n.Parent(); p != nil {
		return int(p.StartPoint().Row) + 1
	}
	return int(n.StartPoint().Row) + 1
}

// literalName returns the text of a name or qualified name, without the
// leading namespace separator. Dynamic expressions yield "".
func (c *converter) literalName(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	switch n.Type() {
	case "name", "qualified_name":
		return strings.TrimPrefix(n.Content(c.src), `\`)
	}
	return ""
}

// scopeName also accepts self, static and parent.
func (c *converter) scopeName(n *sitter.Node) string {
	if n != nil && n.Type() == "relative_scope" {
		return n.Content(c.src)
	}
	return c.literalName(n)
}

func (c *converter) identifier(n *sitter.Node) string {
	if n != nil && n.Type() == "name" {
		return n.Content(c.src)
	}
	return ""
}

// typeNames collects class names under a type or clause node. Builtin
// types are primitive_type nodes and are skipped.
func (c *converter) typeNames(n *sitter.Node) []string {
	if n == nil {
		return nil
	}
	if name := c.literalName(n); name != "" {
		return []string{name}
	}

	var names []string
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if child == nil || child.Type() == "primitive_type" {
			continue
		}
		names = append(names, c.typeNames(child)...)
	}
	return names
}
