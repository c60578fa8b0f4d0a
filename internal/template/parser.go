package template

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapsite/pkg/core"
)

// parserState is the current state of the template scanner.
type parserState int

const (
	stateContent         parserState = iota // literal text
	stateOpenBracket                        // after '{'
	stateStmtTrimLeft                       // after "{%", optional '-'
	stateStmtStart                          // before the statement keyword
	stateStmtKeyword                        // inside the statement keyword
	stateBlockTypeStart                     // after "block"
	stateBlockType                          // inside the block type
	stateNameStart                          // before the variable of if/ifdef/ifndef/foreach
	stateName                               // inside that variable
	stateOperatorStart                      // before an if operator
	stateOperator                           // inside an if operator
	stateOperandStart                       // before the second if operand
	stateStringOperand                      // inside a quoted if operand
	stateVariableOperand                    // inside a variable if operand
	stateStmtTrimRight                      // before the optional '-' of "-%}"
	stateStmtEnd                            // after '-', expecting "%}"
	stateVariableStart                      // after "{{"
	stateVariable                           // inside the variable name
	stateVariableEnd                        // after the variable name, expecting "}}"
	stateCloseBracket                       // expecting the final '}'
)

const (
	whitespace = " \t\n\r"

	errStmtLowercase     = "Invalid statement syntax. Must begin with lowercase letter."
	errStmtKeywordChar   = "Invalid statement syntax. Must be lowercase letter or '_'."
	errStmtType          = "Invalid statement type: Allowed types are: 'block', 'endblock', 'if', 'ifdef', 'ifndef', 'else', 'endif', 'foreach' and 'endforeach'."
	errStmtEnd           = "Invalid statement syntax. Must end with '%}'."
	errVariableEnd       = "Invalid statement syntax. Must end with '}}'."
	errTrimLeftTwice     = "Invalid statement syntax. Duplicated whitespace cleaner before statement."
	errTrimRightTwice    = "Invalid statement syntax. Duplicated whitespace cleaner after statement."
	errBlockLowercase    = "Invalid block syntax. Must begin with lowercase letter."
	errBlockChar         = "Invalid block syntax. Must be lowercase letter or '_'."
	errBlockType         = "Invalid block type. Allowed types are: 'entry', 'listing', 'listing_once', 'listing_empty' and 'listing_entry'."
	errBlockNested       = "Blocks can't be nested."
	errEndBlock          = "'endblock' statement without an open 'block' statement."
	errVariableStart     = "Invalid variable name. Must begin with uppercase letter."
	errVariableChar      = "Invalid variable name. Must be uppercase letter, number or '_'."
	errOperator          = "Invalid 'if' operator. Must be '<', '>', '<=', '>=', '==' or '!='."
	errOperand           = "Invalid 'if' operand. Must be double-quoted static string or variable."
	errElse              = "'else' statement without an open 'if', 'ifdef' or 'ifndef' statement."
	errElseTwice         = "More than one 'else' statement for an open 'if', 'ifdef' or 'ifndef' statement."
	errEndIf             = "'endif' statement without an open 'if', 'ifdef' or 'ifndef' statement."
	errForeachNested     = "'foreach' statements can't be nested."
	errEndForeach        = "'endforeach' statement without an open 'foreach' statement."
	errOpenString        = "Found an open double-quoted string."
	errUnterminatedStmt  = "Template ended inside a statement. Must end with '%}'."
	errUnterminatedVar   = "Template ended inside a variable. Must end with '}}'."
	errOpenIfs           = "%d open 'if', 'ifdef' and/or 'ifndef' statements were not closed!"
	errOpenBlock         = "An open block was not closed!"
	errOpenForeach       = "An open 'foreach' statement was not closed!"
	errBlockOpenIfs      = "%d open 'if', 'ifdef' and/or 'ifndef' statements were not closed inside a '%s' block!"
	errBlockOpenForeach  = "An open 'foreach' statement was not closed inside a '%s' block!"
	errForeachOpenIfs    = "%d open 'if', 'ifdef' and/or 'ifndef' statements were not closed inside a 'foreach' statement!"
	errForeachOtherBlock = "'endforeach' statement must be in the same block as its 'foreach' statement."
)

// parser holds the scanner state for a single Parse call.
type parser struct {
	src   string
	file  string
	nodes []Node
	state parserState

	contentStart int // start of the pending content run
	stmtStart    int // offset of the '{' opening the current tag
	start, end   int // keyword, block type or first operand
	start2, end2 int // second if operand
	opStart      int

	kind      NodeKind
	op        Operator
	blockType string
	trimLeft  bool // "{%-" seen for the current statement
	trimNext  bool // "-%}" seen, lstrip the next content run

	ifCount        int
	elseSeen       []bool // one entry per open if
	blockOpen      bool
	blockIfCount   int
	foreachOpen    bool
	foreachInBlock bool
	foreachIfCount int
}

// Parse compiles template source into a node sequence. The file name is only
// used for error messages. Parsing stops at the first error, which is either a
// *SyntaxError or a *StructureError.
func Parse(src, file string) (*Template, error) {
	p := &parser{src: src, file: file}
	for i := 0; i < len(src); {
		consumed, err := p.step(i, src[i])
		if err != nil {
			return nil, err
		}
		if consumed {
			i++
		}
	}
	if err := p.finish(); err != nil {
		return nil, err
	}
	return &Template{Nodes: p.nodes, File: file}, nil
}

// step feeds one byte to the state machine. It returns false when the byte
// ended a token and has to be fed again in the new state.
func (p *parser) step(i int, c byte) (bool, error) {
	switch p.state {
	case stateContent:
		if c == '{' {
			p.state = stateOpenBracket
		}

	case stateOpenBracket:
		switch c {
		case '%':
			p.openTag(i - 1)
			p.kind = NodeContent
			p.state = stateStmtTrimLeft
		case '{':
			p.openTag(i - 1)
			p.kind = NodeVariable
			p.state = stateVariableStart
		default:
			p.state = stateContent
		}

	case stateStmtTrimLeft:
		p.state = stateStmtStart
		if c != '-' {
			return false, nil
		}
		p.trimLeft = true
		p.rstripLast()

	case stateStmtStart:
		switch {
		case isSpace(c):
		case c == '-' && p.trimLeft:
			return false, p.syntaxError(i, errTrimLeftTwice)
		case isLower(c):
			p.start = i
			p.state = stateStmtKeyword
		default:
			return false, p.syntaxError(i, errStmtLowercase)
		}

	case stateStmtKeyword:
		if isLower(c) || c == '_' {
			break
		}
		if !isSpace(c) && c != '-' && c != '%' {
			return false, p.syntaxError(i, errStmtKeywordChar)
		}
		p.end = i
		if err := p.keyword(); err != nil {
			return false, err
		}
		return isSpace(c), nil

	case stateBlockTypeStart:
		switch {
		case isSpace(c):
		case isLower(c):
			p.start = i
			p.state = stateBlockType
		default:
			return false, p.syntaxError(i, errBlockLowercase)
		}

	case stateBlockType:
		if isLower(c) || c == '_' {
			break
		}
		if !isSpace(c) && c != '-' && c != '%' {
			return false, p.syntaxError(i, errBlockChar)
		}
		if err := p.openBlock(p.src[p.start:i]); err != nil {
			return false, err
		}
		p.state = stateStmtTrimRight
		return isSpace(c), nil

	case stateNameStart:
		switch {
		case isSpace(c):
		case core.IsUpper(c):
			p.start = i
			p.state = stateName
		default:
			return false, p.syntaxError(i, errVariableStart)
		}

	case stateName:
		if core.IsVariableChar(c) {
			break
		}
		endsName := isSpace(c) || c == '-' || c == '%' || (p.kind == NodeIf && isOperatorChar(c))
		if !endsName {
			return false, p.syntaxError(i, errVariableChar)
		}
		p.end = i
		if p.kind == NodeIf {
			p.state = stateOperatorStart
		} else {
			p.state = stateStmtTrimRight
		}
		return isSpace(c), nil

	case stateOperatorStart:
		switch {
		case isSpace(c):
		case isOperatorChar(c):
			p.opStart = i
			p.state = stateOperator
		default:
			return false, p.syntaxError(i, errOperator)
		}

	case stateOperator:
		if isOperatorChar(c) {
			break
		}
		op, ok := parseOperator(p.src[p.opStart:i])
		if !ok {
			return false, p.syntaxError(p.opStart, errOperator)
		}
		p.op = op
		p.state = stateOperandStart
		return isSpace(c), nil

	case stateOperandStart:
		switch {
		case isSpace(c):
		case c == '"':
			p.start2 = i
			p.state = stateStringOperand
		case core.IsUpper(c):
			p.start2 = i
			p.state = stateVariableOperand
		default:
			return false, p.syntaxError(i, errOperand)
		}

	case stateStringOperand:
		if c == '"' && p.src[i-1] != '\\' {
			p.end2 = i + 1
			p.state = stateStmtTrimRight
		}

	case stateVariableOperand:
		if core.IsVariableChar(c) {
			break
		}
		if !isSpace(c) && c != '-' && c != '%' {
			return false, p.syntaxError(i, errVariableChar)
		}
		p.end2 = i
		p.state = stateStmtTrimRight
		return isSpace(c), nil

	case stateStmtTrimRight:
		switch {
		case isSpace(c):
		case c == '-':
			p.trimNext = true
			p.state = stateStmtEnd
		case c == '%':
			p.state = stateCloseBracket
		default:
			return false, p.syntaxError(i, errStmtEnd)
		}

	case stateStmtEnd:
		switch c {
		case '%':
			p.state = stateCloseBracket
		case '-':
			return false, p.syntaxError(i, errTrimRightTwice)
		default:
			return false, p.syntaxError(i, errStmtEnd)
		}

	case stateVariableStart:
		switch {
		case isSpace(c):
		case core.IsUpper(c):
			p.start = i
			p.state = stateVariable
		default:
			return false, p.syntaxError(i, errVariableStart)
		}

	case stateVariable:
		switch {
		case core.IsVariableChar(c):
		case isSpace(c):
			p.end = i
			p.state = stateVariableEnd
		case c == '}':
			p.end = i
			p.state = stateCloseBracket
		default:
			return false, p.syntaxError(i, errVariableChar)
		}

	case stateVariableEnd:
		switch {
		case isSpace(c):
		case c == '}':
			p.state = stateCloseBracket
		default:
			return false, p.syntaxError(i, errVariableEnd)
		}

	case stateCloseBracket:
		if c != '}' {
			if p.kind == NodeVariable {
				return false, p.syntaxError(i, errVariableEnd)
			}
			return false, p.syntaxError(i, errStmtEnd)
		}
		p.closeTag(i + 1)
	}
	return true, nil
}

// keyword dispatches on the statement keyword in src[start:end] and performs
// the structural checks for it.
func (p *parser) keyword() error {
	word := p.src[p.start:p.end]
	switch {
	case len(word) == 5 && strings.HasPrefix(word, "block"):
		if p.blockOpen {
			return p.syntaxError(p.start, errBlockNested)
		}
		p.kind = NodeBlock
		p.state = stateBlockTypeStart

	case len(word) == 8 && strings.HasPrefix(word, "endblock"):
		if !p.blockOpen {
			return p.syntaxError(p.start, errEndBlock)
		}
		if p.ifCount != p.blockIfCount {
			return p.syntaxError(p.start, fmt.Sprintf(errBlockOpenIfs, p.ifCount-p.blockIfCount, p.blockType))
		}
		if p.foreachOpen && p.foreachInBlock {
			return p.syntaxError(p.start, fmt.Sprintf(errBlockOpenForeach, p.blockType))
		}
		p.blockOpen = false
		p.blockIfCount = 0
		p.kind = NodeEndBlock
		p.state = stateStmtTrimRight

	case len(word) == 2 && strings.HasPrefix(word, "if"),
		len(word) == 5 && strings.HasPrefix(word, "ifdef"),
		len(word) == 6 && strings.HasPrefix(word, "ifndef"):
		switch len(word) {
		case 2:
			p.kind = NodeIf
		case 5:
			p.kind = NodeIfdef
		default:
			p.kind = NodeIfndef
		}
		p.ifCount++
		p.elseSeen = append(p.elseSeen, false)
		p.state = stateNameStart

	case len(word) == 4 && strings.HasPrefix(word, "else"):
		if p.ifCount <= p.ifFloor() {
			return p.syntaxError(p.start, errElse)
		}
		if p.elseSeen[len(p.elseSeen)-1] {
			return p.syntaxError(p.start, errElseTwice)
		}
		p.elseSeen[len(p.elseSeen)-1] = true
		p.kind = NodeElse
		p.state = stateStmtTrimRight

	case len(word) == 5 && strings.HasPrefix(word, "endif"):
		if p.ifCount <= p.ifFloor() {
			return p.syntaxError(p.start, errEndIf)
		}
		p.ifCount--
		p.elseSeen = p.elseSeen[:len(p.elseSeen)-1]
		p.kind = NodeEndIf
		p.state = stateStmtTrimRight

	case len(word) == 7 && strings.HasPrefix(word, "foreach"):
		if p.foreachOpen {
			return p.syntaxError(p.start, errForeachNested)
		}
		p.foreachOpen = true
		p.foreachInBlock = p.blockOpen
		p.foreachIfCount = p.ifCount
		p.kind = NodeForeach
		p.state = stateNameStart

	case len(word) == 10 && strings.HasPrefix(word, "endforeach"):
		if !p.foreachOpen {
			return p.syntaxError(p.start, errEndForeach)
		}
		if p.foreachInBlock != p.blockOpen {
			return p.syntaxError(p.start, errForeachOtherBlock)
		}
		if p.ifCount != p.foreachIfCount {
			return p.syntaxError(p.start, fmt.Sprintf(errForeachOpenIfs, p.ifCount-p.foreachIfCount))
		}
		p.foreachOpen = false
		p.kind = NodeEndForeach
		p.state = stateStmtTrimRight

	default:
		return p.syntaxError(p.start, errStmtType)
	}
	return nil
}

// openBlock validates the block type and opens the block.
func (p *parser) openBlock(blockType string) error {
	switch blockType {
	case BlockEntry, BlockListing, BlockListingOnce, BlockListingEmpty, BlockListingEntry:
	default:
		return p.syntaxError(p.start, errBlockType)
	}
	p.blockOpen = true
	p.blockType = blockType
	p.blockIfCount = p.ifCount
	return nil
}

// ifFloor is the number of ifs opened outside the innermost open block or
// foreach. An else or endif at this depth would close one of them.
func (p *parser) ifFloor() int {
	floor := 0
	if p.blockOpen {
		floor = p.blockIfCount
	}
	if p.foreachOpen && p.foreachIfCount > floor {
		floor = p.foreachIfCount
	}
	return floor
}

// openTag flushes the pending content run ending at the '{' at offset.
func (p *parser) openTag(offset int) {
	p.flushContent(offset)
	p.stmtStart = offset
	p.trimLeft = false
}

// closeTag appends the node for the tag that ended right before offset.
func (p *parser) closeTag(offset int) {
	n := Node{Kind: p.kind, Offset: p.stmtStart}
	switch p.kind {
	case NodeVariable, NodeIfdef, NodeIfndef, NodeForeach:
		n.Operand = p.src[p.start:p.end]
	case NodeIf:
		n.Operand = p.src[p.start:p.end]
		n.Operand2 = p.src[p.start2:p.end2]
		n.Op = p.op
	case NodeBlock:
		n.Operand = p.blockType
	}
	p.nodes = append(p.nodes, n)
	p.contentStart = offset
	p.state = stateContent
}

// flushContent appends src[contentStart:end] as a content node, applying a
// pending left strip. Empty runs produce no node.
func (p *parser) flushContent(end int) {
	start := p.contentStart
	text := p.src[start:end]
	if p.trimNext {
		text = strings.TrimLeft(text, whitespace)
		start = end - len(text)
		p.trimNext = false
	}
	if text != "" {
		p.nodes = append(p.nodes, Node{Kind: NodeContent, Operand: text, Offset: start})
	}
}

// rstripLast strips trailing whitespace from the previous node when it is
// content, dropping it if nothing is left.
func (p *parser) rstripLast() {
	if len(p.nodes) == 0 {
		return
	}
	last := &p.nodes[len(p.nodes)-1]
	if last.Kind != NodeContent {
		return
	}
	last.Operand = strings.TrimRight(last.Operand, whitespace)
	if last.Operand == "" {
		p.nodes = p.nodes[:len(p.nodes)-1]
	}
}

// finish handles the end of input.
func (p *parser) finish() error {
	switch p.state {
	case stateContent, stateOpenBracket:
		p.flushContent(len(p.src))
	case stateStringOperand:
		return p.syntaxError(p.start2, errOpenString)
	default:
		if p.kind == NodeVariable {
			return p.syntaxError(p.stmtStart, errUnterminatedVar)
		}
		return p.syntaxError(p.stmtStart, errUnterminatedStmt)
	}

	switch {
	case p.ifCount > 0:
		return newStructureError(p.file, errOpenIfs, p.ifCount)
	case p.blockOpen:
		return newStructureError(p.file, errOpenBlock)
	case p.foreachOpen:
		return newStructureError(p.file, errOpenForeach)
	}
	return nil
}

func (p *parser) syntaxError(offset int, msg string) *SyntaxError {
	return newSyntaxError(p.src, p.file, offset, msg)
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isLower(c byte) bool { return c >= 'a' && c <= 'z' }

func isOperatorChar(c byte) bool {
	return c == '<' || c == '>' || c == '=' || c == '!'
}
