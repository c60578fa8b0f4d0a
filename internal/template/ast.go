// Package template implements the leapsite template language.
//
// Templates mix literal content with {% statement %} tags and {{ VARIABLE }}
// references. Parse compiles the source into a flat, ordered sequence of
// nodes; the Renderer walks that sequence against a Context, jumping backwards
// to repeat loops and forwards to skip untaken branches.
package template

import "strings"

// NodeKind identifies the type of a parsed node.
type NodeKind int

// NodeKind constants.
const (
	NodeContent    NodeKind = iota // literal text
	NodeBlock                      // {% block TYPE %}
	NodeEndBlock                   // {% endblock %}
	NodeIfdef                      // {% ifdef VAR %}
	NodeIfndef                     // {% ifndef VAR %}
	NodeIf                         // {% if VAR OP OPERAND %}
	NodeElse                       // {% else %}
	NodeEndIf                      // {% endif %}
	NodeForeach                    // {% foreach VAR %}
	NodeEndForeach                 // {% endforeach %}
	NodeVariable                   // {{ VAR }}
)

func (k NodeKind) String() string {
	switch k {
	case NodeContent:
		return "content"
	case NodeBlock:
		return "block"
	case NodeEndBlock:
		return "endblock"
	case NodeIfdef:
		return "ifdef"
	case NodeIfndef:
		return "ifndef"
	case NodeIf:
		return "if"
	case NodeElse:
		return "else"
	case NodeEndIf:
		return "endif"
	case NodeForeach:
		return "foreach"
	case NodeEndForeach:
		return "endforeach"
	case NodeVariable:
		return "variable"
	default:
		return "unknown"
	}
}

// Operator is the comparison bitmask of an if statement.
// OpEQ|OpLT encodes <= and OpEQ|OpGT encodes >=.
type Operator uint8

// Operator bits.
const (
	OpNEQ Operator = 1 << iota
	OpEQ
	OpLT
	OpGT
)

func (o Operator) String() string {
	switch o {
	case OpNEQ:
		return "!="
	case OpEQ:
		return "=="
	case OpLT:
		return "<"
	case OpGT:
		return ">"
	case OpEQ | OpLT:
		return "<="
	case OpEQ | OpGT:
		return ">="
	default:
		return "?"
	}
}

// parseOperator maps operator text to its bitmask.
func parseOperator(s string) (Operator, bool) {
	switch s {
	case "==":
		return OpEQ, true
	case "!=":
		return OpNEQ, true
	case "<":
		return OpLT, true
	case ">":
		return OpGT, true
	case "<=":
		return OpEQ | OpLT, true
	case ">=":
		return OpEQ | OpGT, true
	}
	return 0, false
}

// Block types accepted by {% block %}.
const (
	BlockEntry        = "entry"
	BlockListing      = "listing"
	BlockListingOnce  = "listing_once"
	BlockListingEmpty = "listing_empty"
	BlockListingEntry = "listing_entry"
)

// ForeachItem is the pseudo-variable holding the current foreach token.
const ForeachItem = "FOREACH_ITEM"

// Node is one parsed unit of a template.
//
// Operand holds the literal text for content nodes, the block type for block
// nodes and the variable name for variable, ifdef, ifndef, if and foreach
// nodes. Operand2 and Op are only set for if nodes; Operand2 is either a
// variable name or a double-quoted string literal, quotes included.
type Node struct {
	Kind     NodeKind
	Operand  string
	Operand2 string
	Op       Operator
	Offset   int // byte offset of the node in the template source
}

// IsLiteral reports whether the second operand of an if node is a quoted
// string rather than a variable name.
func (n *Node) IsLiteral() bool {
	return strings.HasPrefix(n.Operand2, `"`)
}

// Literal returns the second operand of an if node without its quotes. The
// text between the quotes is returned as written, escapes included.
func (n *Node) Literal() string {
	s := n.Operand2
	if len(s) >= 2 {
		s = s[1 : len(s)-1]
	}
	return s
}

// Template is a compiled template.
type Template struct {
	Nodes []Node
	File  string // source path, used in error messages
}

// Empty reports whether there is nothing to render.
func (t *Template) Empty() bool {
	return t == nil || len(t.Nodes) == 0
}

// Variables returns the distinct variable names referenced by the template,
// in order of first appearance. Formatting suffixes are kept as written.
func (t *Template) Variables() []string {
	if t == nil {
		return nil
	}
	seen := make(map[string]bool)
	var names []string
	add := func(name string) {
		if name != "" && !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	for i := range t.Nodes {
		n := &t.Nodes[i]
		switch n.Kind {
		case NodeVariable, NodeIfdef, NodeIfndef, NodeForeach:
			add(n.Operand)
		case NodeIf:
			add(n.Operand)
			if !n.IsLiteral() {
				add(n.Operand2)
			}
		}
	}
	return names
}
