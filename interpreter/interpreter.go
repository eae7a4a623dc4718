// Package interpreter is a tree-walking evaluator of the same AST the
// compiler lowers to bytecode. It exists as a cross-check oracle: two
// independently written evaluators of the same source should agree on
// every well-formed program, which is a cheap and powerful correctness
// signal for the compiler+VM path the rest of the module exists to
// exercise.
package interpreter

import (
	"fmt"
	"io"
	"os"

	"minic/ast"
	"minic/token"
	"minic/value"
	"minic/vm"
)

// Interp walks an AST directly against an Environment chain, using the
// same Heap and Guardian types the VM uses for arrays and runtime
// checks, so array semantics and guard behavior cannot silently diverge
// between the two evaluators.
type Interp struct {
	env       *Environment
	heap      *vm.Heap
	guardian  vm.Guardian
	out       io.Writer
	loopDepth int
}

func New() *Interp {
	return &Interp{
		env:  NewEnvironment(nil),
		heap: vm.NewHeap(),
		out:  os.Stdout,
	}
}

func (in *Interp) SetOutput(w io.Writer) { in.out = w }

// Run evaluates prog's statements in order and, mirroring the compiled
// path's program-level convenience rule, returns the value of a final
// top-level expression statement.
func (in *Interp) Run(prog ast.Program) (result value.Value, hasResult bool, err error) {
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
		if i == len(prog.Statements)-1 {
			if exprStmt, ok := stmt.(ast.ExprStmt); ok {
				result = in.eval(exprStmt.Expr)
				hasResult = true
				continue
			}
		}
		in.exec(stmt)
	}
	return result, hasResult, nil
}

// Eval is a package-level convenience matching compiler.Generate's
// shape: parse elsewhere, then run here.
func Eval(prog ast.Program) (value.Value, bool, error) {
	return New().Run(prog)
}

func (in *Interp) fail(line, col int, format string, args ...any) {
	panic(RuntimeError{Line: line, Col: col, Message: fmt.Sprintf(format, args...)})
}

func (in *Interp) check(err error, line, col int) {
	if err != nil {
		panic(RuntimeError{Line: line, Col: col, Message: err.Error()})
	}
}

// ---- Statements ----

func (in *Interp) exec(stmt ast.Stmt) {
	stmt.Accept(in)
}

func (in *Interp) VisitExprStmt(s ast.ExprStmt) any {
	in.eval(s.Expr)
	return nil
}

func (in *Interp) VisitBlock(s ast.Block) any {
	outer := in.env
	in.env = NewEnvironment(outer)
	defer func() { in.env = outer }()
	for _, stmt := range s.Statements {
		in.exec(stmt)
	}
	return nil
}

func (in *Interp) VisitEmpty(s ast.Empty) any { return nil }

func (in *Interp) VisitVarDecl(s ast.VarDecl) any {
	elemKind := keywordKind(s.TypeTok.Kind)
	for _, d := range s.Declarators {
		var v value.Value
		switch {
		case d.IsArray:
			v = in.evalArrayDeclarator(d, elemKind)
		case d.Init != nil:
			v = in.eval(d.Init)
		default:
			v = value.Uninit()
		}
		if err := in.env.Define(d.Name.Lexeme, v); err != nil {
			in.fail(d.Name.Line, d.Name.Col, "%s", err.Error())
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

func (in *Interp) evalArrayDeclarator(d ast.Declarator, elemKind value.Kind) value.Value {
	initList, hasList := d.Init.(ast.InitList)

	var size int64
	switch {
	case d.Size != nil:
		sizeV := in.eval(d.Size)
		if sizeV.Kind != value.Int {
			in.fail(d.Name.Line, d.Name.Col, "array size must be integer")
		}
		size = sizeV.I
	case hasList:
		size = int64(len(initList.Elements))
	default:
		in.fail(d.Name.Line, d.Name.Col, "array %q has neither a size nor an initializer list", d.Name.Lexeme)
	}

	if hasList && d.Size != nil && int64(len(initList.Elements)) > size {
		in.fail(d.Name.Line, d.Name.Col, "initializer list length %d exceeds array size %d", len(initList.Elements), size)
	}

	addr, err := in.heap.Alloc(int(size), value.Zero(elemKind))
	in.check(err, d.Name.Line, d.Name.Col)

	if hasList {
		for i, elem := range initList.Elements {
			v := in.eval(elem)
			in.check(in.heap.Store(addr, i, v), d.Name.Line, d.Name.Col)
		}
	}
	return value.NewPointer(addr)
}

func (in *Interp) VisitIf(s ast.If) any {
	cond := in.eval(s.Cond)
	if cond.Kind != value.Bool {
		in.fail(0, 0, "boolean required, got %s", cond.Kind)
	}
	if cond.B {
		in.exec(s.Then)
	} else if s.Else != nil {
		in.exec(s.Else)
	}
	return nil
}

func (in *Interp) VisitWhile(s ast.While) any {
	in.loopDepth++
	defer func() { in.loopDepth-- }()
	for {
		cond := in.eval(s.Cond)
		if cond.Kind != value.Bool {
			in.fail(0, 0, "boolean required, got %s", cond.Kind)
		}
		if !cond.B {
			return nil
		}
		if in.runLoopBody(s.Body) {
			return nil
		}
	}
}

func (in *Interp) VisitFor(s ast.For) any {
	outer := in.env
	in.env = NewEnvironment(outer)
	defer func() { in.env = outer }()

	if s.Init != nil {
		in.exec(s.Init)
	}
	in.loopDepth++
	defer func() { in.loopDepth-- }()
	for {
		if s.Cond != nil {
			cond := in.eval(s.Cond)
			if cond.Kind != value.Bool {
				in.fail(0, 0, "boolean required, got %s", cond.Kind)
			}
			if !cond.B {
				return nil
			}
		}
		if in.runLoopBody(s.Body) {
			return nil
		}
		if s.Post != nil {
			in.eval(s.Post)
		}
	}
}

// runLoopBody executes body, absorbing a continueSignal and reporting
// whether a breakSignal propagated out (true means the loop must stop).
func (in *Interp) runLoopBody(body ast.Stmt) (brk bool) {
	defer func() {
		if r := recover(); r != nil {
			switch r.(type) {
			case breakSignal:
				brk = true
			case continueSignal:
				brk = false
			default:
				panic(r)
			}
		}
	}()
	in.exec(body)
	return false
}

func (in *Interp) VisitBreak(s ast.Break) any {
	if in.loopDepth == 0 {
		in.fail(s.Tok.Line, s.Tok.Col, "'break' outside any loop")
	}
	panic(breakSignal{})
}

func (in *Interp) VisitContinue(s ast.Continue) any {
	if in.loopDepth == 0 {
		in.fail(s.Tok.Line, s.Tok.Col, "'continue' outside any loop")
	}
	panic(continueSignal{})
}

// ---- Expressions ----

func (in *Interp) eval(expr ast.Expr) value.Value {
	return expr.Accept(in).(value.Value)
}

func (in *Interp) VisitLiteral(e ast.Literal) any {
	switch v := e.Value.(type) {
	case int64:
		return value.NewInt(v)
	case float64:
		return value.NewDouble(v)
	case bool:
		return value.NewBool(v)
	default:
		panic(RuntimeError{Message: "literal node carries an unrecognized Go value"})
	}
}

func (in *Interp) VisitIdentifier(e ast.Identifier) any {
	v, err := in.env.Get(e.Name)
	if err != nil {
		panic(err)
	}
	return v
}

func (in *Interp) VisitUnary(e ast.Unary) any {
	right := in.eval(e.Right)
	switch e.Op.Kind {
	case token.MINUS:
		in.requireNumeric(right, e.Op)
		if right.Kind == value.Double {
			return value.NewDouble(-right.F)
		}
		return value.NewInt(-right.I)
	case token.BANG:
		in.requireBool(right, e.Op)
		return value.NewBool(!right.B)
	default:
		panic(RuntimeError{Line: e.Op.Line, Col: e.Op.Col, Message: "unknown unary operator"})
	}
}

func (in *Interp) requireNumeric(v value.Value, tok token.Token) {
	if v.Kind == value.Uninitialized {
		in.fail(tok.Line, tok.Col, "use of uninitialized value")
	}
	if !v.IsNumeric() {
		in.fail(tok.Line, tok.Col, "numeric operand required, got %s", v.Kind)
	}
}

func (in *Interp) requireBool(v value.Value, tok token.Token) {
	if v.Kind == value.Uninitialized {
		in.fail(tok.Line, tok.Col, "use of uninitialized value")
	}
	if v.Kind != value.Bool {
		in.fail(tok.Line, tok.Col, "boolean required, got %s", v.Kind)
	}
}

func (in *Interp) VisitBinary(e ast.Binary) any {
	switch e.Op.Kind {
	case token.AND_AND:
		left := in.eval(e.Left)
		in.requireBool(left, e.Op)
		if !left.B {
			return left
		}
		right := in.eval(e.Right)
		in.requireBool(right, e.Op)
		return right
	case token.OR_OR:
		left := in.eval(e.Left)
		in.requireBool(left, e.Op)
		if left.B {
			return left
		}
		right := in.eval(e.Right)
		in.requireBool(right, e.Op)
		return right
	}

	l := in.eval(e.Left)
	r := in.eval(e.Right)

	switch e.Op.Kind {
	case token.EQ, token.NEQ:
		if l.Kind == value.Uninitialized || r.Kind == value.Uninitialized {
			in.fail(e.Op.Line, e.Op.Col, "use of uninitialized value")
		}
		eq := l.Equal(r)
		if e.Op.Kind == token.NEQ {
			eq = !eq
		}
		return value.NewBool(eq)
	case token.LT, token.LTE, token.GT, token.GTE:
		in.requireNumeric(l, e.Op)
		in.requireNumeric(r, e.Op)
		lf, rf := l.AsFloat(), r.AsFloat()
		switch e.Op.Kind {
		case token.LT:
			return value.NewBool(lf < rf)
		case token.LTE:
			return value.NewBool(lf <= rf)
		case token.GT:
			return value.NewBool(lf > rf)
		default:
			return value.NewBool(lf >= rf)
		}
	default:
		return in.arith(e.Op, l, r)
	}
}

func (in *Interp) arith(op token.Token, l, r value.Value) value.Value {
	in.requireNumeric(l, op)
	in.requireNumeric(r, op)

	if l.Kind == value.Double || r.Kind == value.Double {
		lf, rf := l.AsFloat(), r.AsFloat()
		switch op.Kind {
		case token.PLUS:
			return value.NewDouble(lf + rf)
		case token.MINUS:
			return value.NewDouble(lf - rf)
		case token.STAR:
			return value.NewDouble(lf * rf)
		case token.SLASH:
			if rf == 0 {
				in.fail(op.Line, op.Col, "division by zero")
			}
			return value.NewDouble(lf / rf)
		default:
			in.fail(op.Line, op.Col, "modulo requires integer operands")
		}
	}

	li, ri := l.I, r.I
	switch op.Kind {
	case token.PLUS:
		return value.NewInt(li + ri)
	case token.MINUS:
		return value.NewInt(li - ri)
	case token.STAR:
		return value.NewInt(li * ri)
	case token.SLASH:
		if ri == 0 {
			in.fail(op.Line, op.Col, "division by zero")
		}
		return value.NewInt(li / ri)
	case token.PERCENT:
		if ri == 0 {
			in.fail(op.Line, op.Col, "modulo by zero")
		}
		return value.NewInt(li % ri)
	default:
		panic(RuntimeError{Line: op.Line, Col: op.Col, Message: "unknown arithmetic operator"})
	}
}

func (in *Interp) VisitSubscript(e ast.Subscript) any {
	obj := in.eval(e.Object)
	idx := in.eval(e.Index)
	return in.loadIndex(obj, idx)
}

func (in *Interp) loadIndex(obj, idx value.Value) value.Value {
	if err := in.guardian.CheckPointer(obj); err != nil {
		panic(RuntimeError{Message: err.Error()})
	}
	if idx.Kind != value.Int {
		in.fail(0, 0, "array index must be integer")
	}
	v, err := in.heap.Load(obj.Addr, int(idx.I))
	if err != nil {
		panic(err)
	}
	return v
}

func (in *Interp) storeIndex(obj, idx, v value.Value) value.Value {
	if err := in.guardian.CheckPointer(obj); err != nil {
		panic(RuntimeError{Message: err.Error()})
	}
	if idx.Kind != value.Int {
		in.fail(0, 0, "array index must be integer")
	}
	if err := in.heap.Store(obj.Addr, int(idx.I), v); err != nil {
		panic(err)
	}
	return v
}

func (in *Interp) VisitInitList(e ast.InitList) any {
	// Initializer lists are only ever consumed directly by
	// evalArrayDeclarator's type assertion on Declarator.Init; they
	// should never reach generic expression dispatch.
	panic(RuntimeError{Message: "initializer list evaluated outside of a declarator"})
}

func (in *Interp) VisitAssignment(e ast.Assignment) any {
	switch target := e.Target.(type) {
	case ast.Identifier:
		var result value.Value
		if e.Op.Kind == token.ASSIGN {
			result = in.eval(e.Value)
		} else {
			old, err := in.env.Get(target.Name)
			if err != nil {
				panic(err)
			}
			result = in.arith(compoundToken(e.Op), old, in.eval(e.Value))
		}
		if err := in.env.Assign(target.Name, result); err != nil {
			panic(err)
		}
		return result
	case ast.Subscript:
		obj := in.eval(target.Object)
		idx := in.eval(target.Index)
		var result value.Value
		if e.Op.Kind == token.ASSIGN {
			result = in.eval(e.Value)
		} else {
			old := in.loadIndex(obj, idx)
			result = in.arith(compoundToken(e.Op), old, in.eval(e.Value))
		}
		return in.storeIndex(obj, idx, result)
	default:
		panic(RuntimeError{Message: "assignment target is neither identifier nor subscript"})
	}
}

// compoundToken maps a compound assignment operator token to the plain
// binary operator token arith() dispatches on.
func compoundToken(op token.Token) token.Token {
	kinds := map[token.Kind]token.Kind{
		token.PLUS_EQ:  token.PLUS,
		token.MINUS_EQ: token.MINUS,
		token.STAR_EQ:  token.STAR,
		token.SLASH_EQ: token.SLASH,
		token.PCT_EQ:   token.PERCENT,
	}
	return token.Token{Kind: kinds[op.Kind], Line: op.Line, Col: op.Col}
}

func (in *Interp) VisitUpdate(e ast.Update) any {
	base := token.PLUS
	if e.Op.Kind == token.DEC {
		base = token.MINUS
	}
	one := value.NewInt(1)
	opTok := token.Token{Kind: base, Line: e.Op.Line, Col: e.Op.Col}

	switch target := e.Argument.(type) {
	case ast.Identifier:
		old, err := in.env.Get(target.Name)
		if err != nil {
			panic(err)
		}
		next := in.arith(opTok, old, one)
		if err := in.env.Assign(target.Name, next); err != nil {
			panic(err)
		}
		if e.Prefix {
			return next
		}
		return old
	case ast.Subscript:
		obj := in.eval(target.Object)
		idx := in.eval(target.Index)
		old := in.loadIndex(obj, idx)
		next := in.arith(opTok, old, one)
		in.storeIndex(obj, idx, next)
		if e.Prefix {
			return next
		}
		return old
	default:
		panic(RuntimeError{Message: "update argument is neither identifier nor subscript"})
	}
}
