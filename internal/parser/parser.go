// Package parser builds an internal/ast tree from a token stream. Like
// internal/lexer, it is an external collaborator per spec.md section 1:
// the generator's only contract with it is the AST node set and the spans
// attached to each node.
package parser

import (
	"fmt"

	"luna/internal/ast"
	"luna/internal/lexer"
	"luna/internal/token"
)

type Parser struct {
	toks []token.Token
	pos  int
}

// Parse tokenizes and parses src into a Program.
func Parse(src string) (*ast.Program, error) {
	toks, err := lexer.Tokenize(src)
	if err != nil {
		return nil, err
	}
	p := &Parser{toks: toks}
	return p.parseProgram()
}

func (p *Parser) cur() token.Token  { return p.toks[p.pos] }
func (p *Parser) peekKind(k token.Kind) bool { return p.cur().Kind == k }

func (p *Parser) advance() token.Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) expect(k token.Kind) (token.Token, error) {
	if p.cur().Kind != k {
		return token.Token{}, fmt.Errorf("line %d: expected %s but got %q", p.cur().Span.Line, k, p.cur().Lexeme)
	}
	return p.advance(), nil
}

func (p *Parser) parseProgram() (*ast.Program, error) {
	start := p.cur().Span
	var stmts []ast.Node
	for !p.peekKind(token.EOF) {
		s, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
	}
	end := start
	if len(stmts) > 0 {
		end = stmts[len(stmts)-1].Span()
	}
	return ast.NewProgram(start.Merge(end), stmts), nil
}

func (p *Parser) parseBlock() (*ast.Block, error) {
	open, err := p.expect(token.LBrace)
	if err != nil {
		return nil, err
	}
	var stmts []ast.Node
	for !p.peekKind(token.RBrace) && !p.peekKind(token.EOF) {
		s, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
	}
	close, err := p.expect(token.RBrace)
	if err != nil {
		return nil, err
	}
	return ast.NewBlock(open.Span.Merge(close.Span), stmts), nil
}

func (p *Parser) parseStatement() (ast.Node, error) {
	switch p.cur().Kind {
	case token.KwLet:
		return p.parseVarDecl()
	case token.KwFn:
		return p.parseFunctionDecl()
	case token.KwIf:
		return p.parseIf()
	case token.KwWhile:
		return p.parseWhile()
	case token.KwLoop:
		return p.parseLoop()
	case token.KwFor:
		return p.parseForIn()
	case token.KwBreak:
		t := p.advance()
		p.consumeSemi()
		return ast.NewBreakStmt(t.Span), nil
	case token.KwContinue:
		t := p.advance()
		p.consumeSemi()
		return ast.NewContinueStmt(t.Span), nil
	case token.KwReturn:
		return p.parseReturn()
	case token.LBrace:
		return p.parseBlock()
	default:
		return p.parseExprStmt()
	}
}

// consumeSemi swallows an optional trailing `;` so blocks can be written
// with or without statement terminators.
func (p *Parser) consumeSemi() {
	if p.peekKind(token.Semi) {
		p.advance()
	}
}

func (p *Parser) parseVarDecl() (ast.Node, error) {
	start := p.advance() // let
	name, err := p.expect(token.Ident)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.Assign); err != nil {
		return nil, err
	}
	val, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	p.consumeSemi()
	return ast.NewVarDecl(start.Span.Merge(val.Span()), name.Lexeme, val), nil
}

func (p *Parser) parseFunctionDecl() (ast.Node, error) {
	fn, err := p.parseFunctionLiteral(true)
	if err != nil {
		return nil, err
	}
	return ast.NewFunctionDecl(fn.Span(), fn), nil
}

func (p *Parser) parseFunctionLiteral(requireName bool) (*ast.FunctionLiteral, error) {
	start := p.advance() // fn
	name := ""
	if requireName || p.peekKind(token.Ident) {
		tok, err := p.expect(token.Ident)
		if err != nil {
			return nil, err
		}
		name = tok.Lexeme
	}
	if _, err := p.expect(token.LParen); err != nil {
		return nil, err
	}
	var params []string
	for !p.peekKind(token.RParen) {
		if len(params) > 0 {
			if _, err := p.expect(token.Comma); err != nil {
				return nil, err
			}
		}
		pt, err := p.expect(token.Ident)
		if err != nil {
			return nil, err
		}
		params = append(params, pt.Lexeme)
	}
	if _, err := p.expect(token.RParen); err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return ast.NewFunctionLiteral(start.Span.Merge(body.Span()), name, params, false, body.Statements), nil
}

func (p *Parser) parseIf() (ast.Node, error) {
	start := p.advance() // if
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	then, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	var els ast.Node
	end := then.Span()
	if p.peekKind(token.KwElse) {
		p.advance()
		if p.peekKind(token.KwIf) {
			els, err = p.parseIf()
		} else {
			els, err = p.parseBlock()
		}
		if err != nil {
			return nil, err
		}
		end = els.Span()
	}
	return ast.NewIfStmt(start.Span.Merge(end), cond, then, els), nil
}

func (p *Parser) parseWhile() (ast.Node, error) {
	start := p.advance()
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return ast.NewWhileStmt(start.Span.Merge(body.Span()), cond, body), nil
}

func (p *Parser) parseLoop() (ast.Node, error) {
	start := p.advance()
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return ast.NewLoopStmt(start.Span.Merge(body.Span()), body), nil
}

func (p *Parser) parseForIn() (ast.Node, error) {
	start := p.advance() // for
	name, err := p.expect(token.Ident)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.KwIn); err != nil {
		return nil, err
	}
	iterable, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return ast.NewForInStmt(start.Span.Merge(body.Span()), name.Lexeme, iterable, body), nil
}

func (p *Parser) parseReturn() (ast.Node, error) {
	start := p.advance()
	if p.peekKind(token.Semi) || p.peekKind(token.RBrace) {
		p.consumeSemi()
		return ast.NewReturnStmt(start.Span, nil), nil
	}
	val, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	p.consumeSemi()
	return ast.NewReturnStmt(start.Span.Merge(val.Span()), val), nil
}

func (p *Parser) parseExprStmt() (ast.Node, error) {
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	p.consumeSemi()
	return ast.NewExprStmt(e.Span(), e), nil
}

// ---- expressions: precedence-climbing ----
//
// Precedence, low to high: assignment, ||, &&, equality, relational,
// additive, multiplicative, unary, call/member/index, primary.

func (p *Parser) parseExpr() (ast.Node, error) {
	return p.parseAssign()
}

func (p *Parser) parseAssign() (ast.Node, error) {
	left, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.peekKind(token.Assign) {
		p.advance()
		switch left.(type) {
		case *ast.Identifier, *ast.MemberExpr, *ast.IndexExpr:
		default:
			return nil, fmt.Errorf("line %d: invalid assignment target", left.Span().Line)
		}
		val, err := p.parseAssign()
		if err != nil {
			return nil, err
		}
		return ast.NewAssignExpr(left.Span().Merge(val.Span()), left, val), nil
	}
	return left, nil
}

func (p *Parser) parseOr() (ast.Node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.peekKind(token.OrOr) {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = ast.NewLogicalExpr(left.Span().Merge(right.Span()), ast.LogOr, left, right)
	}
	return left, nil
}

func (p *Parser) parseAnd() (ast.Node, error) {
	left, err := p.parseEquality()
	if err != nil {
		return nil, err
	}
	for p.peekKind(token.AndAnd) {
		p.advance()
		right, err := p.parseEquality()
		if err != nil {
			return nil, err
		}
		left = ast.NewLogicalExpr(left.Span().Merge(right.Span()), ast.LogAnd, left, right)
	}
	return left, nil
}

func (p *Parser) parseEquality() (ast.Node, error) {
	left, err := p.parseRelational()
	if err != nil {
		return nil, err
	}
	for p.peekKind(token.Eq) || p.peekKind(token.NotEq) {
		op := ast.OpEq
		if p.cur().Kind == token.NotEq {
			op = ast.OpNe
		}
		p.advance()
		right, err := p.parseRelational()
		if err != nil {
			return nil, err
		}
		left = ast.NewBinaryExpr(left.Span().Merge(right.Span()), op, left, right)
	}
	return left, nil
}

func (p *Parser) parseRelational() (ast.Node, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for {
		var op ast.BinaryOp
		switch p.cur().Kind {
		case token.Lt:
			op = ast.OpLt
		case token.Le:
			op = ast.OpLe
		case token.Gt:
			op = ast.OpGt
		case token.Ge:
			op = ast.OpGe
		default:
			return left, nil
		}
		p.advance()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		left = ast.NewBinaryExpr(left.Span().Merge(right.Span()), op, left, right)
	}
}

func (p *Parser) parseAdditive() (ast.Node, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.peekKind(token.Plus) || p.peekKind(token.Minus) {
		op := ast.OpAdd
		if p.cur().Kind == token.Minus {
			op = ast.OpSub
		}
		p.advance()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = ast.NewBinaryExpr(left.Span().Merge(right.Span()), op, left, right)
	}
	return left, nil
}

func (p *Parser) parseMultiplicative() (ast.Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		var op ast.BinaryOp
		switch p.cur().Kind {
		case token.Star:
			op = ast.OpMul
		case token.Slash:
			op = ast.OpDiv
		case token.Percent:
			op = ast.OpMod
		default:
			return left, nil
		}
		p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = ast.NewBinaryExpr(left.Span().Merge(right.Span()), op, left, right)
	}
}

func (p *Parser) parseUnary() (ast.Node, error) {
	switch p.cur().Kind {
	case token.Minus:
		t := p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return ast.NewUnaryExpr(t.Span.Merge(operand.Span()), ast.UnaryMinus, operand), nil
	case token.Plus:
		t := p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return ast.NewUnaryExpr(t.Span.Merge(operand.Span()), ast.UnaryPlus, operand), nil
	case token.Bang:
		t := p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return ast.NewUnaryExpr(t.Span.Merge(operand.Span()), ast.UnaryNot, operand), nil
	default:
		return p.parseCallMemberIndex()
	}
}

func (p *Parser) parseCallMemberIndex() (ast.Node, error) {
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch p.cur().Kind {
		case token.Dot:
			p.advance()
			name, err := p.expect(token.Ident)
			if err != nil {
				return nil, err
			}
			expr = ast.NewMemberExpr(expr.Span().Merge(name.Span), expr, name.Lexeme)
		case token.LBracket:
			p.advance()
			idx, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			close, err := p.expect(token.RBracket)
			if err != nil {
				return nil, err
			}
			expr = ast.NewIndexExpr(expr.Span().Merge(close.Span), expr, idx)
		case token.LParen:
			p.advance()
			var args []ast.Node
			for !p.peekKind(token.RParen) {
				if len(args) > 0 {
					if _, err := p.expect(token.Comma); err != nil {
						return nil, err
					}
				}
				a, err := p.parseExpr()
				if err != nil {
					return nil, err
				}
				args = append(args, a)
			}
			close, err := p.expect(token.RParen)
			if err != nil {
				return nil, err
			}
			expr = ast.NewCallExpr(expr.Span().Merge(close.Span), expr, args)
		default:
			return expr, nil
		}
	}
}

func (p *Parser) parsePrimary() (ast.Node, error) {
	t := p.cur()
	switch t.Kind {
	case token.Int:
		p.advance()
		var v int64
		for _, c := range t.Lexeme {
			v = v*10 + int64(c-'0')
		}
		return ast.NewIntLiteral(t.Span, v), nil
	case token.String:
		p.advance()
		return ast.NewStringLiteral(t.Span, t.Lexeme), nil
	case token.KwTrue:
		p.advance()
		return ast.NewBoolLiteral(t.Span, true), nil
	case token.KwFalse:
		p.advance()
		return ast.NewBoolLiteral(t.Span, false), nil
	case token.KwNone:
		p.advance()
		return ast.NewNoneLiteral(t.Span), nil
	case token.Ident:
		p.advance()
		return ast.NewIdentifier(t.Span, t.Lexeme), nil
	case token.KwFn:
		return p.parseFunctionLiteral(false)
	case token.LParen:
		p.advance()
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RParen); err != nil {
			return nil, err
		}
		return e, nil
	case token.LBracket:
		p.advance()
		var elems []ast.Node
		for !p.peekKind(token.RBracket) {
			if len(elems) > 0 {
				if _, err := p.expect(token.Comma); err != nil {
					return nil, err
				}
			}
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			elems = append(elems, e)
		}
		close, err := p.expect(token.RBracket)
		if err != nil {
			return nil, err
		}
		return ast.NewArrayLiteral(t.Span.Merge(close.Span), elems), nil
	case token.LBrace:
		return p.parseObjectLiteral()
	default:
		return nil, fmt.Errorf("line %d: unexpected token %q", t.Span.Line, t.Lexeme)
	}
}

func (p *Parser) parseObjectLiteral() (ast.Node, error) {
	start := p.advance() // {
	var entries []ast.ObjectEntry
	for !p.peekKind(token.RBrace) {
		if len(entries) > 0 {
			if _, err := p.expect(token.Comma); err != nil {
				return nil, err
			}
		}
		var key string
		switch p.cur().Kind {
		case token.Ident:
			key = p.advance().Lexeme
		case token.String:
			key = p.advance().Lexeme
		default:
			return nil, fmt.Errorf("line %d: expected property key", p.cur().Span.Line)
		}
		if _, err := p.expect(token.Colon); err != nil {
			return nil, err
		}
		val, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		entries = append(entries, ast.ObjectEntry{Key: key, Value: val})
	}
	close, err := p.expect(token.RBrace)
	if err != nil {
		return nil, err
	}
	return ast.NewObjectLiteral(start.Span.Merge(close.Span), entries), nil
}
