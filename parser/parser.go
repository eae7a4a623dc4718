// Package parser turns a token stream into an AST: recursive descent for
// statements, Pratt (operator-precedence) parsing for expressions.
package parser

import (
	"fmt"

	"minic/ast"
	"minic/lexer"
	"minic/token"
)

// tokenSource is the minimal lexer contract the parser depends on, so
// tests can feed it a canned token list without going through the real
// scanner.
type tokenSource interface {
	NextToken() (token.Token, error)
}

// Parser consumes a tokenSource one token of lookahead at a time and
// builds a Program.
type Parser struct {
	src tokenSource

	cur  token.Token
	peek token.Token
}

// New creates a Parser reading from src (a *lexer.Lexer, or any other
// tokenSource).
func New(src tokenSource) (*Parser, error) {
	p := &Parser{src: src}
	if err := p.advance(); err != nil {
		return nil, err
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return p, nil
}

// Parse consumes the entire token stream and returns the Program, or the
// first error encountered: a lexer.Error or a SyntaxError.
func Parse(source string) (ast.Program, error) {
	p, err := New(lexer.New(source))
	if err != nil {
		return ast.Program{}, err
	}
	return p.ParseProgram()
}

func (p *Parser) advance() error {
	p.cur = p.peek
	tok, err := p.src.NextToken()
	if err != nil {
		return err
	}
	p.peek = tok
	return nil
}

func (p *Parser) check(kind token.Kind) bool {
	return p.cur.Kind == kind
}

// expect consumes the current token if it has kind, failing with msg
// otherwise.
func (p *Parser) expect(kind token.Kind, msg string) (token.Token, error) {
	if !p.check(kind) {
		return token.Token{}, p.errorHere(msg)
	}
	tok := p.cur
	return tok, p.advance()
}

func (p *Parser) errorHere(msg string) error {
	lexeme := p.cur.Lexeme
	if p.cur.Kind == token.EOF {
		lexeme = "end of file"
	}
	return SyntaxError{Line: p.cur.Line, Column: p.cur.Col, Message: fmt.Sprintf("%s, got %q", msg, lexeme)}
}

// ParseProgram parses statements until EOF.
func (p *Parser) ParseProgram() (ast.Program, error) {
	var prog ast.Program
	for !p.check(token.EOF) {
		stmt, err := p.declarationOrStatement()
		if err != nil {
			return ast.Program{}, err
		}
		prog.Statements = append(prog.Statements, stmt)
	}
	return prog, nil
}

func isTypeKeyword(k token.Kind) bool {
	return k == token.KW_INT || k == token.KW_DOUBLE || k == token.KW_BOOL
}

func (p *Parser) declarationOrStatement() (ast.Stmt, error) {
	if isTypeKeyword(p.cur.Kind) {
		return p.varDeclStatement()
	}
	return p.statement()
}

func (p *Parser) statement() (ast.Stmt, error) {
	switch p.cur.Kind {
	case token.LBRACE:
		return p.blockStatement()
	case token.KW_IF:
		return p.ifStatement()
	case token.KW_WHILE:
		return p.whileStatement()
	case token.KW_FOR:
		return p.forStatement()
	case token.KW_BREAK:
		tok := p.cur
		if err := p.advance(); err != nil {
			return nil, err
		}
		if _, err := p.expect(token.SEMI, "expected ';' after 'break'"); err != nil {
			return nil, err
		}
		return ast.Break{Tok: tok}, nil
	case token.KW_CONTINUE:
		tok := p.cur
		if err := p.advance(); err != nil {
			return nil, err
		}
		if _, err := p.expect(token.SEMI, "expected ';' after 'continue'"); err != nil {
			return nil, err
		}
		return ast.Continue{Tok: tok}, nil
	case token.SEMI:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return ast.Empty{}, nil
	default:
		return p.exprStatement()
	}
}

func (p *Parser) blockStatement() (ast.Stmt, error) {
	if _, err := p.expect(token.LBRACE, "expected '{'"); err != nil {
		return nil, err
	}
	var block ast.Block
	for !p.check(token.RBRACE) && !p.check(token.EOF) {
		stmt, err := p.declarationOrStatement()
		if err != nil {
			return nil, err
		}
		block.Statements = append(block.Statements, stmt)
	}
	if _, err := p.expect(token.RBRACE, "expected '}' to close block"); err != nil {
		return nil, err
	}
	return block, nil
}

func (p *Parser) ifStatement() (ast.Stmt, error) {
	if err := p.advance(); err != nil { // consume 'if'
		return nil, err
	}
	if _, err := p.expect(token.LPAREN, "expected '(' after 'if'"); err != nil {
		return nil, err
	}
	cond, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RPAREN, "expected ')' after if condition"); err != nil {
		return nil, err
	}
	then, err := p.statement()
	if err != nil {
		return nil, err
	}
	var elseStmt ast.Stmt
	if p.check(token.KW_ELSE) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		elseStmt, err = p.statement()
		if err != nil {
			return nil, err
		}
	}
	return ast.If{Cond: cond, Then: then, Else: elseStmt}, nil
}

func (p *Parser) whileStatement() (ast.Stmt, error) {
	if err := p.advance(); err != nil { // consume 'while'
		return nil, err
	}
	if _, err := p.expect(token.LPAREN, "expected '(' after 'while'"); err != nil {
		return nil, err
	}
	cond, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RPAREN, "expected ')' after while condition"); err != nil {
		return nil, err
	}
	body, err := p.statement()
	if err != nil {
		return nil, err
	}
	return ast.While{Cond: cond, Body: body}, nil
}

func (p *Parser) forStatement() (ast.Stmt, error) {
	if err := p.advance(); err != nil { // consume 'for'
		return nil, err
	}
	if _, err := p.expect(token.LPAREN, "expected '(' after 'for'"); err != nil {
		return nil, err
	}

	var init ast.Stmt
	switch {
	case p.check(token.SEMI):
		if err := p.advance(); err != nil {
			return nil, err
		}
	case isTypeKeyword(p.cur.Kind):
		var err error
		init, err = p.varDeclStatement()
		if err != nil {
			return nil, err
		}
	default:
		var err error
		init, err = p.exprStatement()
		if err != nil {
			return nil, err
		}
	}

	var cond ast.Expr
	if !p.check(token.SEMI) {
		var err error
		cond, err = p.expression()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(token.SEMI, "expected ';' after for-loop condition"); err != nil {
		return nil, err
	}

	var post ast.Expr
	if !p.check(token.RPAREN) {
		var err error
		post, err = p.expression()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(token.RPAREN, "expected ')' after for clauses"); err != nil {
		return nil, err
	}

	body, err := p.statement()
	if err != nil {
		return nil, err
	}
	return ast.For{Init: init, Cond: cond, Post: post, Body: body}, nil
}

func (p *Parser) exprStatement() (ast.Stmt, error) {
	expr, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.SEMI, "expected ';' after expression"); err != nil {
		return nil, err
	}
	return ast.ExprStmt{Expr: expr}, nil
}

// varDeclStatement parses `type declarator (, declarator)* ;`.
func (p *Parser) varDeclStatement() (ast.Stmt, error) {
	typeTok := p.cur
	if err := p.advance(); err != nil {
		return nil, err
	}

	var decls []ast.Declarator
	for {
		d, err := p.declarator()
		if err != nil {
			return nil, err
		}
		decls = append(decls, d)
		if !p.check(token.COMMA) {
			break
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(token.SEMI, "expected ';' after variable declaration"); err != nil {
		return nil, err
	}
	return ast.VarDecl{TypeTok: typeTok, Declarators: decls}, nil
}

func (p *Parser) declarator() (ast.Declarator, error) {
	name, err := p.expect(token.IDENT, "expected variable name")
	if err != nil {
		return ast.Declarator{}, err
	}

	d := ast.Declarator{Name: name}

	if p.check(token.LBRACKET) {
		d.IsArray = true
		if err := p.advance(); err != nil {
			return ast.Declarator{}, err
		}
		if !p.check(token.RBRACKET) {
			size, err := p.expression()
			if err != nil {
				return ast.Declarator{}, err
			}
			d.Size = size
		}
		if _, err := p.expect(token.RBRACKET, "expected ']' after array size"); err != nil {
			return ast.Declarator{}, err
		}
	}

	if p.check(token.ASSIGN) {
		if err := p.advance(); err != nil {
			return ast.Declarator{}, err
		}
		if p.check(token.LBRACE) {
			initList, err := p.initializerList()
			if err != nil {
				return ast.Declarator{}, err
			}
			if !d.IsArray {
				return ast.Declarator{}, SyntaxError{Line: name.Line, Column: name.Col,
					Message: fmt.Sprintf("initializer list is only valid for an array declarator, %q is not an array", name.Lexeme)}
			}
			d.Init = initList
		} else {
			init, err := p.assignment()
			if err != nil {
				return ast.Declarator{}, err
			}
			if d.IsArray {
				return ast.Declarator{}, SyntaxError{Line: name.Line, Column: name.Col,
					Message: fmt.Sprintf("array declarator %q cannot use a bare expression initializer, use {...}", name.Lexeme)}
			}
			d.Init = init
		}
	}

	if d.IsArray && d.Size == nil && d.Init == nil {
		return ast.Declarator{}, SyntaxError{Line: name.Line, Column: name.Col,
			Message: fmt.Sprintf("implicit-size array %q must have an initializer list", name.Lexeme)}
	}

	return d, nil
}

func (p *Parser) initializerList() (ast.Expr, error) {
	if _, err := p.expect(token.LBRACE, "expected '{'"); err != nil {
		return nil, err
	}
	var elems []ast.Expr
	if !p.check(token.RBRACE) {
		for {
			e, err := p.assignment()
			if err != nil {
				return nil, err
			}
			elems = append(elems, e)
			if !p.check(token.COMMA) {
				break
			}
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
	}
	if _, err := p.expect(token.RBRACE, "expected '}' to close initializer list"); err != nil {
		return nil, err
	}
	return ast.InitList{Elements: elems}, nil
}

// ---- Expressions (Pratt parsing) ----

type precedence int

const (
	precNone precedence = iota
	precOr
	precAnd
	precEquality
	precRelational
	precAdditive
	precMultiplicative
)

func infixPrecedence(k token.Kind) precedence {
	switch k {
	case token.OR_OR:
		return precOr
	case token.AND_AND:
		return precAnd
	case token.EQ, token.NEQ:
		return precEquality
	case token.LT, token.LTE, token.GT, token.GTE:
		return precRelational
	case token.PLUS, token.MINUS:
		return precAdditive
	case token.STAR, token.SLASH, token.PERCENT:
		return precMultiplicative
	default:
		return precNone
	}
}

func isAssignOp(k token.Kind) bool {
	switch k {
	case token.ASSIGN, token.PLUS_EQ, token.MINUS_EQ, token.STAR_EQ, token.SLASH_EQ, token.PCT_EQ:
		return true
	default:
		return false
	}
}

func (p *Parser) expression() (ast.Expr, error) {
	return p.assignment()
}

// assignment implements precedence 1 (right-associative) by parsing one
// logical-or expression, then checking whether an assignment operator
// follows; if so, the left side must already be an identifier or
// subscript.
func (p *Parser) assignment() (ast.Expr, error) {
	left, err := p.binary(precOr)
	if err != nil {
		return nil, err
	}

	if isAssignOp(p.cur.Kind) {
		op := p.cur
		if err := p.advance(); err != nil {
			return nil, err
		}
		value, err := p.assignment()
		if err != nil {
			return nil, err
		}
		if !isLvalue(left) {
			return nil, SyntaxError{Line: op.Line, Column: op.Col, Message: "invalid assignment target"}
		}
		return ast.Assignment{Target: left, Op: op, Value: value}, nil
	}

	return left, nil
}

func isLvalue(e ast.Expr) bool {
	switch e.(type) {
	case ast.Identifier, ast.Subscript:
		return true
	default:
		return false
	}
}

// binary implements precedence levels 2-7 as one generic left-associative
// precedence-climbing loop; logical && / || are handled the same as any
// other binary operator here — the code generator is what gives them
// short-circuit semantics.
func (p *Parser) binary(min precedence) (ast.Expr, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for {
		prec := infixPrecedence(p.cur.Kind)
		if prec == precNone || prec < min {
			return left, nil
		}
		op := p.cur
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.binary(prec + 1)
		if err != nil {
			return nil, err
		}
		left = ast.Binary{Left: left, Op: op, Right: right}
	}
}

// unary implements precedence level 8: -, !, prefix ++/--.
func (p *Parser) unary() (ast.Expr, error) {
	switch p.cur.Kind {
	case token.MINUS, token.BANG:
		op := p.cur
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		return ast.Unary{Op: op, Right: right}, nil
	case token.INC, token.DEC:
		op := p.cur
		if err := p.advance(); err != nil {
			return nil, err
		}
		arg, err := p.unary()
		if err != nil {
			return nil, err
		}
		if !isLvalue(arg) {
			return nil, SyntaxError{Line: op.Line, Column: op.Col, Message: "update operator requires an identifier or subscript"}
		}
		return ast.Update{Op: op, Argument: arg, Prefix: true}, nil
	default:
		return p.postfix()
	}
}

// postfix implements precedence level 9: primary expressions, subscript,
// and postfix ++/--.
func (p *Parser) postfix() (ast.Expr, error) {
	expr, err := p.primary()
	if err != nil {
		return nil, err
	}
	for {
		switch p.cur.Kind {
		case token.LBRACKET:
			if err := p.advance(); err != nil {
				return nil, err
			}
			idx, err := p.expression()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(token.RBRACKET, "expected ']' after subscript index"); err != nil {
				return nil, err
			}
			expr = ast.Subscript{Object: expr, Index: idx}
		case token.INC, token.DEC:
			if !isLvalue(expr) {
				return nil, p.errorHere("update operator requires an identifier or subscript")
			}
			op := p.cur
			if err := p.advance(); err != nil {
				return nil, err
			}
			expr = ast.Update{Op: op, Argument: expr, Prefix: false}
		default:
			return expr, nil
		}
	}
}

func (p *Parser) primary() (ast.Expr, error) {
	tok := p.cur
	switch tok.Kind {
	case token.INT, token.FLOAT:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return ast.Literal{Tok: tok, Value: tok.Literal}, nil
	case token.KW_TRUE:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return ast.Literal{Tok: tok, Value: true}, nil
	case token.KW_FALSE:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return ast.Literal{Tok: tok, Value: false}, nil
	case token.IDENT:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return ast.Identifier{Name: tok}, nil
	case token.LPAREN:
		if err := p.advance(); err != nil {
			return nil, err
		}
		inner, err := p.expression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RPAREN, "expected ')' to close grouping"); err != nil {
			return nil, err
		}
		return inner, nil
	default:
		return nil, p.errorHere("expected an expression")
	}
}
