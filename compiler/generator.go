// Package compiler implements the code generator: AST in, bytecode out.
// It generalizes the teacher's ASTCompiler (compiler/ast_compiler.go in
// the teacher repo) — same recursive Visit-per-node-kind shape, same
// scope-tracking-via-symbol-table idea — onto the isa package's
// instruction records and a richer source language (arrays, compound
// assignment, update operators, for-loops with break/continue).
package compiler

import (
	"fmt"

	"minic/ast"
	"minic/isa"
	"minic/symtab"
	"minic/token"
	"minic/value"
)

// loopContext tracks the jump addresses a loop body's break and continue
// statements must patch. continueLabel is the known target for a while
// loop (its loopStart); for a for-loop the continue target is the
// increment block synthesized after the body, so continueJumps holds
// placeholder addresses to patch once that block's address is known.
type loopContext struct {
	breakJumps    []int
	continueLabel int
	hasLabel      bool
	continueJumps []int
}

// Generator walks a Program and emits a flat isa.Instruction sequence.
// It holds its own bytecode buffer, symbol table, and loop stack; all
// are reset by Generate so repeated compilations never interfere.
type Generator struct {
	code    []isa.Instruction
	symbols *symtab.Table
	loops   []*loopContext
}

func NewGenerator() *Generator {
	return &Generator{}
}

// Generate compiles prog to bytecode. If the final statement is an
// expression statement, its trailing pop is suppressed so the value
// remains on top of stack when the VM halts — the REPL-like convenience
// rule from spec §4.4.
func Generate(prog ast.Program) (code []isa.Instruction, err error) {
	g := NewGenerator()
	return g.Generate(prog)
}

func (g *Generator) Generate(prog ast.Program) (code []isa.Instruction, err error) {
	g.code = nil
	g.symbols = symtab.New()
	g.loops = nil

	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = e
				return
			}
			panic(r)
		}
	}()

	for i, stmt := range prog.Statements {
		last := i == len(prog.Statements)-1
		if last {
			if exprStmt, ok := stmt.(ast.ExprStmt); ok {
				g.compileExpr(exprStmt.Expr)
				continue
			}
		}
		g.compileStmt(stmt)
	}

	return g.code, nil
}

// emit appends instr and returns its address.
func (g *Generator) emit(instr isa.Instruction) int {
	g.code = append(g.code, instr)
	return len(g.code) - 1
}

func (g *Generator) here() int { return len(g.code) }

// patchJump overwrites the jump instruction at addr with target as its
// destination.
func (g *Generator) patchJump(addr, target int) {
	g.code[addr] = isa.WithInt(g.code[addr].Op, target)
}

func (g *Generator) fail(tok token.Token, format string, args ...any) {
	panic(SemanticError{Line: tok.Line, Col: tok.Col, Message: fmt.Sprintf(format, args...)})
}

// ---- Statements ----

func (g *Generator) compileStmt(stmt ast.Stmt) {
	stmt.Accept(g)
}

func (g *Generator) VisitExprStmt(s ast.ExprStmt) any {
	g.compileExpr(s.Expr)
	g.emit(isa.Simple(isa.Pop))
	return nil
}

func (g *Generator) VisitBlock(s ast.Block) any {
	g.symbols.EnterScope()
	for _, stmt := range s.Statements {
		g.compileStmt(stmt)
	}
	n := g.symbols.ExitScope()
	if n > 0 {
		g.emit(isa.WithInt(isa.PopN, n))
	}
	return nil
}

func (g *Generator) VisitEmpty(s ast.Empty) any {
	return nil
}

func (g *Generator) VisitVarDecl(s ast.VarDecl) any {
	elemKind := keywordKind(s.TypeTok.Kind)
	for _, d := range s.Declarators {
		if d.IsArray {
			g.compileArrayDeclarator(d, elemKind)
		} else {
			g.compileScalarDeclarator(d)
		}
		if _, err := g.symbols.Define(d.Name.Lexeme); err != nil {
			g.fail(d.Name, "%s", err.Error())
		}
	}
	return nil
}

func keywordKind(k token.Kind) value.Kind {
	switch k {
	case token.KW_DOUBLE:
		return value.Double
	case token.KW_BOOL:
		return value.Bool
	default:
		return value.Int
	}
}

func (g *Generator) compileScalarDeclarator(d ast.Declarator) {
	if d.Init != nil {
		g.compileExpr(d.Init)
	} else {
		g.emit(isa.WithValue(value.Uninit()))
	}
}

func (g *Generator) compileArrayDeclarator(d ast.Declarator, elemKind value.Kind) {
	var initList *ast.InitList
	if il, ok := d.Init.(ast.InitList); ok {
		initList = &il
	}

	switch {
	case d.Size != nil:
		g.compileExpr(d.Size)
	case initList != nil:
		g.emit(isa.WithValue(value.NewInt(int64(len(initList.Elements)))))
	default:
		g.fail(d.Name, "array %q has neither a size nor an initializer list", d.Name.Lexeme)
	}
	g.emit(isa.WithKind(isa.AllocArr, elemKind))

	if initList == nil {
		return
	}

	if d.Size != nil {
		if lit, ok := d.Size.(ast.Literal); ok {
			if n, ok := lit.Value.(int64); ok && int64(len(initList.Elements)) > n {
				g.fail(d.Name, "initializer list length %d exceeds array size %d", len(initList.Elements), n)
			}
		}
	}

	for i, elem := range initList.Elements {
		g.emit(isa.Simple(isa.Dup))
		g.emit(isa.WithValue(value.NewInt(int64(i))))
		g.compileExpr(elem)
		g.emit(isa.Simple(isa.StoreIndex))
		g.emit(isa.Simple(isa.Pop))
	}
}

func (g *Generator) VisitIf(s ast.If) any {
	g.compileExpr(s.Cond)
	thenJump := g.emit(isa.Simple(isa.JumpIfFalse))
	g.compileStmt(s.Then)
	if s.Else != nil {
		elseJump := g.emit(isa.Simple(isa.Jump))
		g.patchJump(thenJump, g.here())
		g.compileStmt(s.Else)
		g.patchJump(elseJump, g.here())
	} else {
		g.patchJump(thenJump, g.here())
	}
	return nil
}

func (g *Generator) VisitWhile(s ast.While) any {
	loopStart := g.here()
	ctx := &loopContext{continueLabel: loopStart, hasLabel: true}
	g.loops = append(g.loops, ctx)

	g.compileExpr(s.Cond)
	exitJump := g.emit(isa.Simple(isa.JumpIfFalse))
	g.compileStmt(s.Body)
	g.emit(isa.WithInt(isa.Jump, loopStart))
	g.patchJump(exitJump, g.here())

	for _, addr := range ctx.breakJumps {
		g.patchJump(addr, g.here())
	}
	g.loops = g.loops[:len(g.loops)-1]
	return nil
}

func (g *Generator) VisitFor(s ast.For) any {
	g.symbols.EnterScope()

	if s.Init != nil {
		g.compileStmt(s.Init)
	}

	loopStart := g.here()
	var exitJump int
	hasExit := false
	if s.Cond != nil {
		g.compileExpr(s.Cond)
		exitJump = g.emit(isa.Simple(isa.JumpIfFalse))
		hasExit = true
	}

	ctx := &loopContext{}
	g.loops = append(g.loops, ctx)

	g.compileStmt(s.Body)

	incrementStart := g.here()
	for _, addr := range ctx.continueJumps {
		g.patchJump(addr, incrementStart)
	}
	if s.Post != nil {
		g.compileExpr(s.Post)
		g.emit(isa.Simple(isa.Pop))
	}
	g.emit(isa.WithInt(isa.Jump, loopStart))

	if hasExit {
		g.patchJump(exitJump, g.here())
	}

	g.loops = g.loops[:len(g.loops)-1]
	for _, addr := range ctx.breakJumps {
		g.patchJump(addr, g.here())
	}

	n := g.symbols.ExitScope()
	if n > 0 {
		g.emit(isa.WithInt(isa.PopN, n))
	}
	return nil
}

func (g *Generator) VisitBreak(s ast.Break) any {
	if len(g.loops) == 0 {
		g.fail(s.Tok, "'break' outside any loop")
	}
	ctx := g.loops[len(g.loops)-1]
	addr := g.emit(isa.Simple(isa.Jump))
	ctx.breakJumps = append(ctx.breakJumps, addr)
	return nil
}

func (g *Generator) VisitContinue(s ast.Continue) any {
	if len(g.loops) == 0 {
		g.fail(s.Tok, "'continue' outside any loop")
	}
	ctx := g.loops[len(g.loops)-1]
	if ctx.hasLabel {
		g.emit(isa.WithInt(isa.Jump, ctx.continueLabel))
		return nil
	}
	addr := g.emit(isa.Simple(isa.Jump))
	ctx.continueJumps = append(ctx.continueJumps, addr)
	return nil
}

// ---- Expressions ----

func (g *Generator) compileExpr(expr ast.Expr) {
	expr.Accept(g)
}

func (g *Generator) VisitLiteral(e ast.Literal) any {
	switch v := e.Value.(type) {
	case int64:
		g.emit(isa.WithValue(value.NewInt(v)))
	case float64:
		g.emit(isa.WithValue(value.NewDouble(v)))
	case bool:
		g.emit(isa.WithValue(value.NewBool(v)))
	default:
		panic(DeveloperError{Message: "literal node carries an unrecognized Go value"})
	}
	return nil
}

func (g *Generator) VisitIdentifier(e ast.Identifier) any {
	slot, ok := g.symbols.Resolve(e.Name.Lexeme)
	if !ok {
		g.fail(e.Name, "unresolved identifier %q", e.Name.Lexeme)
	}
	g.emit(isa.WithInt(isa.Load, slot))
	return nil
}

func (g *Generator) VisitUnary(e ast.Unary) any {
	g.compileExpr(e.Right)
	switch e.Op.Kind {
	case token.MINUS:
		g.emit(isa.Simple(isa.Negate))
	case token.BANG:
		g.emit(isa.Simple(isa.Not))
	default:
		panic(DeveloperError{Message: "unknown unary operator " + e.Op.Kind.String()})
	}
	return nil
}

var binaryOpcodes = map[token.Kind]isa.Opcode{
	token.PLUS:    isa.Add,
	token.MINUS:   isa.Sub,
	token.STAR:    isa.Mul,
	token.SLASH:   isa.Div,
	token.PERCENT: isa.Mod,
	token.EQ:      isa.Eq,
	token.NEQ:     isa.Neq,
	token.LT:      isa.Lt,
	token.GT:      isa.Gt,
	token.LTE:     isa.Lte,
	token.GTE:     isa.Gte,
}

func (g *Generator) VisitBinary(e ast.Binary) any {
	switch e.Op.Kind {
	case token.AND_AND:
		g.compileExpr(e.Left)
		endJump := g.emit(isa.Simple(isa.JumpIfFalsePeek))
		g.emit(isa.Simple(isa.Pop))
		g.compileExpr(e.Right)
		g.patchJump(endJump, g.here())
		return nil
	case token.OR_OR:
		g.compileExpr(e.Left)
		endJump := g.emit(isa.Simple(isa.JumpIfTruePeek))
		g.emit(isa.Simple(isa.Pop))
		g.compileExpr(e.Right)
		g.patchJump(endJump, g.here())
		return nil
	}

	op, ok := binaryOpcodes[e.Op.Kind]
	if !ok {
		panic(DeveloperError{Message: "unknown binary operator " + e.Op.Kind.String()})
	}
	g.compileExpr(e.Left)
	g.compileExpr(e.Right)
	g.emit(isa.Simple(op))
	return nil
}

// compoundBaseOp maps a compound assignment/update operator to the
// binary opcode its read-modify-write sequence uses.
var compoundBaseOp = map[token.Kind]isa.Opcode{
	token.PLUS_EQ:  isa.Add,
	token.MINUS_EQ: isa.Sub,
	token.STAR_EQ:  isa.Mul,
	token.SLASH_EQ: isa.Div,
	token.PCT_EQ:   isa.Mod,
	token.INC:      isa.Add,
	token.DEC:      isa.Sub,
}

func (g *Generator) VisitAssignment(e ast.Assignment) any {
	switch target := e.Target.(type) {
	case ast.Identifier:
		g.compileIdentifierAssignment(target, e.Op, e.Value)
	case ast.Subscript:
		g.compileSubscriptAssignment(target, e.Op, e.Value)
	default:
		panic(DeveloperError{Message: "assignment target is neither identifier nor subscript"})
	}
	return nil
}

func (g *Generator) compileIdentifierAssignment(target ast.Identifier, op token.Token, rhs ast.Expr) {
	slot, ok := g.symbols.Resolve(target.Name.Lexeme)
	if !ok {
		g.fail(target.Name, "unresolved identifier %q", target.Name.Lexeme)
	}
	if op.Kind == token.ASSIGN {
		g.compileExpr(rhs)
		g.emit(isa.WithInt(isa.Store, slot))
		return
	}
	base, ok := compoundBaseOp[op.Kind]
	if !ok {
		panic(DeveloperError{Message: "unknown compound assignment operator " + op.Kind.String()})
	}
	g.emit(isa.WithInt(isa.Load, slot))
	g.compileExpr(rhs)
	g.emit(isa.Simple(base))
	g.emit(isa.WithInt(isa.Store, slot))
}

func (g *Generator) compileSubscriptAssignment(target ast.Subscript, op token.Token, rhs ast.Expr) {
	if op.Kind == token.ASSIGN {
		g.compileExpr(target.Object)
		g.compileExpr(target.Index)
		g.compileExpr(rhs)
		g.emit(isa.Simple(isa.StoreIndex))
		return
	}
	base, ok := compoundBaseOp[op.Kind]
	if !ok {
		panic(DeveloperError{Message: "unknown compound assignment operator " + op.Kind.String()})
	}
	// Read-modify-write: (object,index) is compiled twice so the VM
	// never needs a first-class lvalue (spec §9).
	g.compileExpr(target.Object)
	g.compileExpr(target.Index)
	g.compileExpr(target.Object)
	g.compileExpr(target.Index)
	g.emit(isa.Simple(isa.LoadIndex))
	g.compileExpr(rhs)
	g.emit(isa.Simple(base))
	g.emit(isa.Simple(isa.StoreIndex))
}

func (g *Generator) VisitSubscript(e ast.Subscript) any {
	g.compileExpr(e.Object)
	g.compileExpr(e.Index)
	g.emit(isa.Simple(isa.LoadIndex))
	return nil
}

// VisitInitList is never reached through the generic expression
// dispatch: an initializer list only ever appears as a declarator's
// Init, handled directly by compileArrayDeclarator before it would call
// compileExpr on it.
func (g *Generator) VisitInitList(e ast.InitList) any {
	panic(DeveloperError{Message: "initializer list compiled outside of a declarator"})
}

func (g *Generator) VisitUpdate(e ast.Update) any {
	base, ok := compoundBaseOp[e.Op.Kind]
	if !ok {
		panic(DeveloperError{Message: "unknown update operator " + e.Op.Kind.String()})
	}

	switch target := e.Argument.(type) {
	case ast.Identifier:
		slot, ok := g.symbols.Resolve(target.Name.Lexeme)
		if !ok {
			g.fail(target.Name, "unresolved identifier %q", target.Name.Lexeme)
		}
		g.emit(isa.WithInt(isa.Load, slot))
		if !e.Prefix {
			g.emit(isa.Simple(isa.Dup))
		}
		g.emit(isa.WithValue(value.NewInt(1)))
		g.emit(isa.Simple(base))
		g.emit(isa.WithInt(isa.Store, slot))
		if !e.Prefix {
			g.emit(isa.Simple(isa.Pop))
		}
	case ast.Subscript:
		g.compileSubscriptUpdate(target, base, e.Prefix)
	default:
		panic(DeveloperError{Message: "update argument is neither identifier nor subscript"})
	}
	return nil
}

// compileSubscriptUpdate emits the read-modify-write sequence for arr[i]++
// / arr[i]--. Per spec §4.4/§9, (object,index) is never kept as a bare
// lvalue — it is recompiled for each heap access instead.
//
// Prefix needs two (object,index) compiles: one held as the write
// address, one consumed by load_idx to read the old value that the
// increment is computed from; store_idx's own pushed-back value is
// already the result (the new value).
//
// Postfix needs a third: the old value must survive as the result, but
// store_idx always returns what it just stored (the new value), so the
// old value is read and set aside *before* the store's own (object,
// index) pair and its independent read are compiled; the new value
// store_idx pushes back is then popped, leaving the stashed old value.
func (g *Generator) compileSubscriptUpdate(target ast.Subscript, base isa.Opcode, prefix bool) {
	if prefix {
		g.compileExpr(target.Object) // write address
		g.compileExpr(target.Index)
		g.compileExpr(target.Object) // read pair
		g.compileExpr(target.Index)
		g.emit(isa.Simple(isa.LoadIndex))
		g.emit(isa.WithValue(value.NewInt(1)))
		g.emit(isa.Simple(base))
		g.emit(isa.Simple(isa.StoreIndex))
		return
	}

	g.compileExpr(target.Object) // stashed old-value read, becomes the result
	g.compileExpr(target.Index)
	g.emit(isa.Simple(isa.LoadIndex))

	g.compileExpr(target.Object) // write address
	g.compileExpr(target.Index)
	g.compileExpr(target.Object) // fresh read to compute the new value
	g.compileExpr(target.Index)
	g.emit(isa.Simple(isa.LoadIndex))
	g.emit(isa.WithValue(value.NewInt(1)))
	g.emit(isa.Simple(base))
	g.emit(isa.Simple(isa.StoreIndex))
	g.emit(isa.Simple(isa.Pop)) // discard store_idx's new-value result
}
