// Package parser implements Sun's recursive-descent, operator-precedence
// parser.
//
// Parser Architecture:
//
// The parser uses a recursive-descent strategy with one token of
// lookahead, the same two-token window the lexer package is built
// around:
//   - curTok: the token being examined
//   - peekTok: the next token
//
// Precedence is encoded as a chain of functions from loosest-binding to
// tightest-binding, each calling the next level down and building a left
// node before checking for its own operators:
//
//	parseExpression  (assignment)
//	  parseLogic        && || ^^          (left-assoc)
//	    parseCompare      == != <= >= < >   (non-associative)
//	      parseAddSub       + -              (left-assoc)
//	        parseMulDiv       * / %            (left-assoc)
//	          parsePow          ^                 (left-assoc)
//	            parseUnary        prefix - ~ * , postfix !
//	              parsePostfix      call, .name, [index]
//	                parseAtom         literals, names, table literal, ( expr )
//
// Assignment is checked after a full precedence chain produces a
// left-hand expression: if that expression is a bare Variable, Dot, or
// Index and `=` follows, it becomes an Assign/TableAssign node; any other
// shape followed by `=` is a parse error (spec §4.2 "assign").
//
// Error Handling:
//
// Like the teacher's parser, errors accumulate in a slice rather than
// aborting at the first mistake, so a single pass can report everything
// wrong with a program.
package parser

import (
	"strconv"
	"strings"

	"github.com/windlx/sun/pkg/ast"
	"github.com/windlx/sun/pkg/lexer"
	"github.com/windlx/sun/pkg/sunerr"
	"github.com/windlx/sun/pkg/value"
)

// Parser is stateful and single-use: build one per source snippet.
type Parser struct {
	l       *lexer.Lexer
	curTok  lexer.Token
	peekTok lexer.Token
	errors  []*sunerr.Error
}

// New creates a parser over input, primed with the first two tokens.
func New(input string) *Parser {
	p := &Parser{l: lexer.New(input)}
	p.nextToken()
	p.nextToken()
	return p
}

func (p *Parser) nextToken() {
	p.curTok = p.peekTok
	p.peekTok = p.l.NextToken()
}

// addError records a sunerr.Error of the given kind at the current
// token's line, so every parse failure carries the same Kind/Line
// structure a VM runtime error would (spec §7).
func (p *Parser) addError(kind sunerr.Kind, format string, args ...interface{}) {
	p.errors = append(p.errors, sunerr.New(kind, p.curTok.Line, format, args...))
}

// Errors returns the accumulated parse errors, empty if parsing succeeded.
func (p *Parser) Errors() []string {
	msgs := make([]string, len(p.errors))
	for i, e := range p.errors {
		msgs[i] = e.Error()
	}
	return msgs
}

// Parse consumes the entire token stream and returns the program, a flat
// sequence of top-level expressions separated by `;` (spec §4.2).
func (p *Parser) Parse() (*ast.Program, error) {
	program := &ast.Program{}

	for p.curTok.Type != lexer.TokenEOF {
		expr := p.parseExpression()
		if expr != nil {
			program.Statements = append(program.Statements, expr)
		}
		if p.curTok.Type == lexer.TokenSemicolon {
			p.nextToken()
			continue
		}
		if p.curTok.Type != lexer.TokenEOF {
			p.addError(sunerr.Symbol, "unexpected token %s %q", p.curTok.Type, p.curTok.Literal)
			break
		}
	}

	if len(p.errors) > 0 {
		first := p.errors[0]
		if len(p.errors) > 1 {
			extra := make([]string, 0, len(p.errors)-1)
			for _, e := range p.errors[1:] {
				extra = append(extra, e.Error())
			}
			first = sunerr.New(first.Kind, first.Line, "%s; additional errors: %s", first.Message, strings.Join(extra, "; "))
		}
		return program, first
	}
	return program, nil
}

// parseChunk parses a `;`-separated sequence of expressions until one of
// the given terminator token types is reached (spec §4.2 "chunk"). The
// terminator itself is left unconsumed.
func (p *Parser) parseChunk(terminators ...lexer.TokenType) []ast.Expression {
	var body []ast.Expression
	for !p.atAny(terminators) && p.curTok.Type != lexer.TokenEOF {
		expr := p.parseExpression()
		if expr != nil {
			body = append(body, expr)
		}
		if p.curTok.Type == lexer.TokenSemicolon {
			p.nextToken()
			continue
		}
		break
	}
	return body
}

func (p *Parser) atAny(types []lexer.TokenType) bool {
	for _, tt := range types {
		if p.curTok.Type == tt {
			return true
		}
	}
	return false
}

func (p *Parser) expect(tt lexer.TokenType, what string) bool {
	if p.curTok.Type != tt {
		p.addError(sunerr.Symbol, "expected %s, got %s %q", what, p.curTok.Type, p.curTok.Literal)
		return false
	}
	return true
}

// parseExpression is the entry point: a full precedence chain, then an
// optional assignment check against the result (spec §4.2 "assign").
func (p *Parser) parseExpression() ast.Expression {
	switch p.curTok.Type {
	case lexer.TokenIf:
		return p.parseIf()
	case lexer.TokenLoop:
		return p.parseLoop()
	case lexer.TokenReturn:
		return p.parseReturn()
	case lexer.TokenImport:
		return p.parseImport()
	}

	line := p.curTok.Line
	lhs := p.parseLogic()
	if lhs == nil {
		return nil
	}

	if p.curTok.Type == lexer.TokenAssign {
		p.nextToken()
		rhs := p.parseExpression()
		if rhs == nil {
			return nil
		}
		switch target := lhs.(type) {
		case *ast.Variable:
			return &ast.Assign{Name: target.Name, RHS: rhs, Line: line}
		case *ast.Dot, *ast.Index:
			return &ast.TableAssign{LHS: lhs, RHS: rhs, Line: line}
		default:
			p.addError(sunerr.Assign, "invalid assignment target")
			return nil
		}
	}

	return lhs
}

// parseCondition parses a condition expression that must not itself be an
// assignment (spec §4.2's restriction on `if`/`loop` conditions).
func (p *Parser) parseCondition() ast.Expression {
	return p.parseLogic()
}

func (p *Parser) parseLogic() ast.Expression {
	left := p.parseCompare()
	for left != nil {
		var op string
		switch p.curTok.Type {
		case lexer.TokenAnd:
			op = "and"
		case lexer.TokenOr:
			op = "or"
		case lexer.TokenXor:
			op = "xor"
		default:
			return left
		}
		line := p.curTok.Line
		p.nextToken()
		right := p.parseCompare()
		if right == nil {
			return nil
		}
		left = &ast.BinOp{Op: op, Left: left, Right: right, Line: line}
	}
	return left
}

// parseCompare implements "exactly one comparison per level" (spec
// §4.2): it parses a single optional comparison, never chaining.
func (p *Parser) parseCompare() ast.Expression {
	left := p.parseAddSub()
	if left == nil {
		return nil
	}
	var op string
	switch p.curTok.Type {
	case lexer.TokenEq:
		op = "eq"
	case lexer.TokenNotEq:
		op = "noteq"
	case lexer.TokenLe:
		op = "le"
	case lexer.TokenGe:
		op = "ge"
	case lexer.TokenLt:
		op = "less"
	case lexer.TokenGt:
		op = "greater"
	default:
		return left
	}
	line := p.curTok.Line
	p.nextToken()
	right := p.parseAddSub()
	if right == nil {
		return nil
	}
	return &ast.BinOp{Op: op, Left: left, Right: right, Line: line}
}

func (p *Parser) parseAddSub() ast.Expression {
	left := p.parseMulDiv()
	for left != nil {
		var op string
		switch p.curTok.Type {
		case lexer.TokenPlus:
			op = "add"
		case lexer.TokenMinus:
			op = "sub"
		default:
			return left
		}
		line := p.curTok.Line
		p.nextToken()
		right := p.parseMulDiv()
		if right == nil {
			return nil
		}
		left = &ast.BinOp{Op: op, Left: left, Right: right, Line: line}
	}
	return left
}

func (p *Parser) parseMulDiv() ast.Expression {
	left := p.parsePow()
	for left != nil {
		var op string
		switch p.curTok.Type {
		case lexer.TokenStar:
			op = "mul"
		case lexer.TokenSlash:
			op = "div"
		case lexer.TokenPercent:
			op = "rem"
		default:
			return left
		}
		line := p.curTok.Line
		p.nextToken()
		right := p.parsePow()
		if right == nil {
			return nil
		}
		left = &ast.BinOp{Op: op, Left: left, Right: right, Line: line}
	}
	return left
}

func (p *Parser) parsePow() ast.Expression {
	left := p.parseUnary()
	for left != nil && p.curTok.Type == lexer.TokenCaret {
		line := p.curTok.Line
		p.nextToken()
		right := p.parseUnary()
		if right == nil {
			return nil
		}
		left = &ast.BinOp{Op: "pow", Left: left, Right: right, Line: line}
	}
	return left
}

// parseUnary handles prefix `- ~ *` (neg, not, conj) and postfix `!`
// (fac). Prefix unary recurses into itself so `- - x` is legal.
func (p *Parser) parseUnary() ast.Expression {
	var op string
	switch p.curTok.Type {
	case lexer.TokenMinus:
		op = "neg"
	case lexer.TokenTilde:
		op = "not"
	case lexer.TokenStar:
		op = "conj"
	}
	if op != "" {
		line := p.curTok.Line
		p.nextToken()
		x := p.parseUnary()
		if x == nil {
			return nil
		}
		return &ast.UnaryOp{Op: op, X: x, Line: line}
	}

	expr := p.parsePostfix()
	if expr == nil {
		return nil
	}
	for p.curTok.Type == lexer.TokenBang {
		line := p.curTok.Line
		p.nextToken()
		expr = &ast.UnaryOp{Op: "fac", X: expr, Line: line}
	}
	return expr
}

// parsePostfix handles member access, indexing, and calls, left-to-right
// (spec §4.2 "call" production: a `Dot` head followed by `(` becomes a
// DotCall rather than a plain Call).
func (p *Parser) parsePostfix() ast.Expression {
	expr := p.parseAtom()
	if expr == nil {
		return nil
	}
	for {
		switch p.curTok.Type {
		case lexer.TokenDot:
			line := p.curTok.Line
			p.nextToken()
			if !p.expect(lexer.TokenName, "a name after '.'") {
				return nil
			}
			name := p.curTok.Literal
			p.nextToken()
			expr = &ast.Dot{Object: expr, Name: name, Line: line}
		case lexer.TokenLBracket:
			line := p.curTok.Line
			p.nextToken()
			key := p.parseExpression()
			if key == nil {
				return nil
			}
			if !p.expect(lexer.TokenRBracket, "']'") {
				return nil
			}
			p.nextToken()
			expr = &ast.Index{Object: expr, Key: key, Line: line}
		case lexer.TokenLParen:
			line := p.curTok.Line
			args := p.parseArgs()
			if args == nil && len(p.errors) > 0 {
				return nil
			}
			if dot, ok := expr.(*ast.Dot); ok {
				expr = &ast.DotCall{Head: dot, Args: args, Line: line}
			} else {
				expr = &ast.Call{Head: expr, Args: args, Line: line}
			}
		default:
			return expr
		}
	}
}

// parseArgs parses a parenthesized, comma-separated argument list; curTok
// is '(' on entry and ')' has just been consumed on return.
func (p *Parser) parseArgs() []ast.Expression {
	p.nextToken() // consume '('
	var args []ast.Expression
	for p.curTok.Type != lexer.TokenRParen {
		arg := p.parseExpression()
		if arg == nil {
			return nil
		}
		args = append(args, arg)
		if p.curTok.Type == lexer.TokenComma {
			p.nextToken()
			continue
		}
		break
	}
	if !p.expect(lexer.TokenRParen, "')'") {
		return nil
	}
	p.nextToken()
	return args
}

// parseAtom parses the tightest-binding productions: literals, names,
// table literals, and parenthesised sub-expressions.
func (p *Parser) parseAtom() ast.Expression {
	switch p.curTok.Type {
	case lexer.TokenNumber:
		return p.parseNumber()
	case lexer.TokenString:
		s := value.NewString(p.curTok.Literal)
		p.nextToken()
		return &ast.Constant{Value: s}
	case lexer.TokenTrue:
		p.nextToken()
		return &ast.Constant{Value: value.Boolean(true)}
	case lexer.TokenFalse:
		p.nextToken()
		return &ast.Constant{Value: value.Boolean(false)}
	case lexer.TokenNil:
		p.nextToken()
		return &ast.Constant{Value: value.Nil{}}
	case lexer.TokenName:
		name := p.curTok.Literal
		p.nextToken()
		return &ast.Variable{Name: name}
	case lexer.TokenLBrace:
		return p.parseTableLiteral()
	case lexer.TokenLParen:
		p.nextToken()
		expr := p.parseExpression()
		if expr == nil {
			return nil
		}
		if !p.expect(lexer.TokenRParen, "')'") {
			return nil
		}
		p.nextToken()
		return expr
	default:
		p.addError(sunerr.Symbol, "unexpected token %s %q", p.curTok.Type, p.curTok.Literal)
		return nil
	}
}

func (p *Parser) parseNumber() ast.Expression {
	f, err := strconv.ParseFloat(p.curTok.Literal, 64)
	if err != nil {
		p.addError(sunerr.Number, "could not parse %q as a number", p.curTok.Literal)
		return nil
	}
	p.nextToken()
	return &ast.Constant{Value: value.Number(f)}
}

// parseTableLiteral parses `{ item, "key": value, ... }`. Each item is
// parsed as a full expression first; if a `:` follows, the item must have
// been a string Constant (spec §4.2 "pair"), otherwise it stands as a
// plain unkeyed item.
func (p *Parser) parseTableLiteral() ast.Expression {
	line := p.curTok.Line
	p.nextToken() // consume '{'

	var items []ast.Expression
	for p.curTok.Type != lexer.TokenRBrace {
		item := p.parseExpression()
		if item == nil {
			return nil
		}
		if p.curTok.Type == lexer.TokenColon {
			keyConst, ok := item.(*ast.Constant)
			var str value.String
			if ok {
				str, ok = keyConst.Value.(value.String)
			}
			if !ok {
				p.addError(sunerr.Key, "table key must be a string constant")
				return nil
			}
			p.nextToken() // consume ':'
			val := p.parseExpression()
			if val == nil {
				return nil
			}
			items = append(items, &ast.PairCreate{Key: string(str), Value: val, Line: line})
		} else {
			items = append(items, item)
		}
		if p.curTok.Type == lexer.TokenComma {
			p.nextToken()
			continue
		}
		break
	}
	if !p.expect(lexer.TokenRBrace, "'}'") {
		return nil
	}
	p.nextToken()
	return &ast.TableCreate{Items: items, Line: line}
}

func (p *Parser) parseIf() ast.Expression {
	line := p.curTok.Line
	p.nextToken() // consume 'if'
	cond := p.parseCondition()
	if cond == nil {
		return nil
	}
	if !p.expect(lexer.TokenColon, "':' after if condition") {
		return nil
	}
	p.nextToken()

	then := p.parseChunk(lexer.TokenElse, lexer.TokenEnd)
	var elseBody []ast.Expression
	if p.curTok.Type == lexer.TokenElse {
		p.nextToken()
		elseBody = p.parseChunk(lexer.TokenEnd)
	}
	if !p.expect(lexer.TokenEnd, "'end' to close if") {
		return nil
	}
	p.nextToken()
	return &ast.If{Cond: cond, Then: then, Else: elseBody, Line: line}
}

func (p *Parser) parseLoop() ast.Expression {
	line := p.curTok.Line
	p.nextToken() // consume 'loop'
	cond := p.parseCondition()
	if cond == nil {
		return nil
	}
	if !p.expect(lexer.TokenColon, "':' after loop condition") {
		return nil
	}
	p.nextToken()
	body := p.parseChunk(lexer.TokenEnd)
	if !p.expect(lexer.TokenEnd, "'end' to close loop") {
		return nil
	}
	p.nextToken()
	return &ast.Loop{Cond: cond, Body: body, Line: line}
}

func (p *Parser) parseReturn() ast.Expression {
	line := p.curTok.Line
	p.nextToken() // consume 'return'
	val := p.parseExpression()
	if val == nil {
		return nil
	}
	return &ast.Return{Value: val, Line: line}
}

func (p *Parser) parseImport() ast.Expression {
	line := p.curTok.Line
	p.nextToken() // consume 'import'
	if !p.expect(lexer.TokenName, "a library name after import") {
		return nil
	}
	name := p.curTok.Literal
	p.nextToken()
	return &ast.Import{Name: name, Line: line}
}
