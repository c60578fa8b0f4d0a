package template

import (
	"log/slog"
	"strings"

	"github.com/leapstack-labs/leapsite/pkg/core"
)

// Context is the data a template is rendered against.
type Context struct {
	// Global variables are visible everywhere.
	Global *core.Record
	// Records are the source documents. Entry mode uses the first one;
	// listing mode repeats listing blocks once per record.
	Records []*core.Record
	// ListingEntries are consumed one per listing_entry block in listing
	// mode. A nil element is a hole: the block is skipped for it.
	ListingEntries []*core.Record
	// Listing selects listing mode instead of entry mode.
	Listing bool
}

// Renderer renders compiled templates. It is safe for concurrent use; each
// Render call owns its interpreter state.
type Renderer struct {
	logger *slog.Logger
}

// NewRenderer creates a renderer that reports soft errors, such as an unknown
// formatter, to logger. A nil logger discards them.
func NewRenderer(logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Renderer{logger: logger}
}

// Render renders t against ctx using a renderer that discards warnings.
func Render(t *Template, ctx *Context) string {
	return NewRenderer(nil).Render(t, ctx)
}

// RenderString parses and renders src in one step.
func RenderString(src, file string, ctx *Context) (string, error) {
	t, err := Parse(src, file)
	if err != nil {
		return "", err
	}
	return Render(t, ctx), nil
}

// Render walks the node sequence and returns the output text. It never
// fails: missing variables render empty and formatting problems are logged.
func (r *Renderer) Render(t *Template, ctx *Context) string {
	if t.Empty() {
		return ""
	}
	if ctx == nil {
		ctx = &Context{}
	}
	m := &machine{
		logger:       r.logger.With(slog.String("template", t.File)),
		nodes:        t.Nodes,
		ctx:          ctx,
		listingStart: -1,
		foreachStart: -1,
	}
	m.run()
	return m.out.String()
}

// machine is the interpreter state of a single Render call.
type machine struct {
	logger *slog.Logger
	nodes  []Node
	ctx    *Context
	out    strings.Builder

	local       *core.Record // record providing local scope
	insideBlock bool

	listingStart int // index of the listing block being repeated, or -1
	listingIdx   int
	entryIdx     int // next listing entry to consume

	foreachStart int // index of the foreach being iterated, or -1
	foreachItems []string
	foreachIdx   int
}

func (m *machine) run() {
	for pc := 0; pc < len(m.nodes); {
		n := &m.nodes[pc]
		switch n.Kind {
		case NodeContent:
			m.out.WriteString(n.Operand)
			pc++

		case NodeBlock:
			pc = m.enterBlock(pc)

		case NodeEndBlock:
			m.insideBlock = false
			m.local = nil
			if m.listingStart >= 0 {
				m.listingIdx++
				if m.listingIdx < len(m.ctx.Records) {
					pc = m.listingStart
					continue
				}
				m.listingStart = -1
			}
			pc++

		case NodeVariable:
			if v, ok := m.format(n.Operand); ok {
				m.out.WriteString(v)
			}
			pc++

		case NodeIfdef, NodeIfndef, NodeIf:
			if m.evaluate(n) {
				pc++
			} else {
				pc = m.skipBranch(pc, true)
			}

		case NodeElse:
			// Reached only after running the taken branch.
			pc = m.skipBranch(pc, false)

		case NodeEndIf:
			pc++

		case NodeForeach:
			pc = m.enterForeach(pc)

		case NodeEndForeach:
			if m.foreachStart >= 0 {
				m.foreachIdx++
				if m.foreachIdx < len(m.foreachItems) {
					pc = m.foreachStart + 1
					continue
				}
				m.foreachStart = -1
				m.foreachItems = nil
			}
			pc++

		default:
			pc++
		}
	}
}

// enterBlock binds the local scope for the block at pc and returns the next
// node to run. Blocks that do not apply to the render mode are skipped.
func (m *machine) enterBlock(pc int) int {
	switch m.nodes[pc].Operand {
	case BlockEntry:
		if m.ctx.Listing {
			return m.skipBlock(pc)
		}
		m.local = nil
		if len(m.ctx.Records) > 0 {
			m.local = m.ctx.Records[0]
		}

	case BlockListing:
		if !m.ctx.Listing || len(m.ctx.Records) == 0 {
			return m.skipBlock(pc)
		}
		if m.listingStart != pc {
			m.listingStart = pc
			m.listingIdx = 0
		}
		m.local = m.ctx.Records[m.listingIdx]

	case BlockListingOnce:
		if !m.ctx.Listing {
			return m.skipBlock(pc)
		}
		m.local = nil

	case BlockListingEmpty:
		if !m.ctx.Listing || len(m.ctx.Records) > 0 {
			return m.skipBlock(pc)
		}
		m.local = nil

	case BlockListingEntry:
		if !m.ctx.Listing {
			return m.skipBlock(pc)
		}
		idx := m.entryIdx
		m.entryIdx++
		if idx >= len(m.ctx.ListingEntries) || m.ctx.ListingEntries[idx] == nil {
			return m.skipBlock(pc)
		}
		m.local = m.ctx.ListingEntries[idx]

	default:
		return m.skipBlock(pc)
	}
	m.insideBlock = true
	return pc + 1
}

// skipBlock returns the index after the endblock closing the block at pc.
func (m *machine) skipBlock(pc int) int {
	for i := pc + 1; i < len(m.nodes); i++ {
		if m.nodes[i].Kind == NodeEndBlock {
			return i + 1
		}
	}
	return len(m.nodes)
}

// skipBranch skips forward from the conditional node at pc, counting nested
// conditionals. With toElse set it stops after a sibling else, otherwise only
// after the matching endif.
func (m *machine) skipBranch(pc int, toElse bool) int {
	depth := 0
	for i := pc + 1; i < len(m.nodes); i++ {
		switch m.nodes[i].Kind {
		case NodeIf, NodeIfdef, NodeIfndef:
			depth++
		case NodeElse:
			if depth == 0 && toElse {
				return i + 1
			}
		case NodeEndIf:
			if depth == 0 {
				return i + 1
			}
			depth--
		}
	}
	return len(m.nodes)
}

// enterForeach starts iterating the foreach at pc. The token list is split
// afresh every time the node is reached going forward.
func (m *machine) enterForeach(pc int) int {
	value, _ := m.format(m.nodes[pc].Operand)
	items := strings.Fields(value)
	if len(items) == 0 {
		for i := pc + 1; i < len(m.nodes); i++ {
			if m.nodes[i].Kind == NodeEndForeach {
				return i + 1
			}
		}
		return len(m.nodes)
	}
	m.foreachStart = pc
	m.foreachItems = items
	m.foreachIdx = 0
	return pc + 1
}

// evaluate computes the condition of an ifdef, ifndef or if node.
func (m *machine) evaluate(n *Node) bool {
	switch n.Kind {
	case NodeIfdef:
		_, ok := m.format(n.Operand)
		return ok
	case NodeIfndef:
		_, ok := m.format(n.Operand)
		return !ok
	}

	a, ok := m.format(n.Operand)
	if !ok {
		return false
	}
	var b string
	if n.IsLiteral() {
		b = n.Literal()
	} else if b, ok = m.format(n.Operand2); !ok {
		return false
	}
	return compare(a, b, n.Op)
}

// compare applies the operator bitmask to the byte-wise ordering of a and b.
func compare(a, b string, op Operator) bool {
	cmp := strings.Compare(a, b)
	switch {
	case cmp < 0 && op&(OpLT|OpNEQ) != 0:
		return true
	case cmp > 0 && op&(OpGT|OpNEQ) != 0:
		return true
	case cmp == 0 && op&OpEQ != 0:
		return true
	}
	return false
}

// currentItem returns the current foreach token.
func (m *machine) currentItem() (string, bool) {
	if m.foreachStart < 0 || m.foreachIdx >= len(m.foreachItems) {
		return "", false
	}
	return m.foreachItems[m.foreachIdx], true
}
