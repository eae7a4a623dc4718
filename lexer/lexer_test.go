package lexer

import (
	"testing"

	"minic/token"
)

func scanAll(t *testing.T, src string) []token.Token {
	t.Helper()
	l := New(src)
	var toks []token.Token
	for {
		tok, err := l.NextToken()
		if err != nil {
			t.Fatalf("NextToken() error: %v", err)
		}
		toks = append(toks, tok)
		if tok.Kind == token.EOF {
			return toks
		}
	}
}

func kinds(toks []token.Token) []token.Kind {
	out := make([]token.Kind, len(toks))
	for i, tok := range toks {
		out[i] = tok.Kind
	}
	return out
}

func TestOperators(t *testing.T) {
	toks := scanAll(t, "+= -= *= /= %= ++ -- == != <= >= && || = < >")
	got := kinds(toks)
	want := []token.Kind{
		token.PLUS_EQ, token.MINUS_EQ, token.STAR_EQ, token.SLASH_EQ, token.PCT_EQ,
		token.INC, token.DEC, token.EQ, token.NEQ, token.LTE, token.GTE,
		token.AND_AND, token.OR_OR, token.ASSIGN, token.LT, token.GT, token.EOF,
	}
	if len(got) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d: got %s, want %s", i, got[i], want[i])
		}
	}
}

func TestKeywordsAndIdentifiers(t *testing.T) {
	toks := scanAll(t, "int double bool true false if else for while break continue foo")
	got := kinds(toks)
	want := []token.Kind{
		token.KW_INT, token.KW_DOUBLE, token.KW_BOOL, token.KW_TRUE, token.KW_FALSE,
		token.KW_IF, token.KW_ELSE, token.KW_FOR, token.KW_WHILE, token.KW_BREAK,
		token.KW_CONTINUE, token.IDENT, token.EOF,
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d: got %s, want %s", i, got[i], want[i])
		}
	}
}

func TestNumbers(t *testing.T) {
	toks := scanAll(t, "42 3.14 0")
	if toks[0].Kind != token.INT || toks[0].Literal != int64(42) {
		t.Errorf("token 0: got %v", toks[0])
	}
	if toks[1].Kind != token.FLOAT || toks[1].Literal != 3.14 {
		t.Errorf("token 1: got %v", toks[1])
	}
	if toks[2].Kind != token.INT || toks[2].Literal != int64(0) {
		t.Errorf("token 2: got %v", toks[2])
	}
}

func TestComments(t *testing.T) {
	toks := scanAll(t, "1 // trailing comment\n2 /* block\ncomment */ 3")
	got := kinds(toks)
	want := []token.Kind{token.INT, token.INT, token.INT, token.EOF}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d: got %s, want %s", i, got[i], want[i])
		}
	}
}

func TestUnterminatedBlockComment(t *testing.T) {
	l := New("1 /* never closed")
	if _, err := l.NextToken(); err != nil {
		t.Fatalf("unexpected error on first token: %v", err)
	}
	if _, err := l.NextToken(); err == nil {
		t.Fatal("expected an unterminated block comment error")
	}
}

func TestSingleAmpersandAndPipeAreErrors(t *testing.T) {
	for _, src := range []string{"&", "|"} {
		l := New(src)
		if _, err := l.NextToken(); err == nil {
			t.Errorf("expected error scanning %q", src)
		}
	}
}

func TestEOFIsSticky(t *testing.T) {
	l := New("")
	for i := 0; i < 3; i++ {
		tok, err := l.NextToken()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if tok.Kind != token.EOF {
			t.Errorf("call %d: got %s, want EOF", i, tok.Kind)
		}
	}
}

func TestPositionTracking(t *testing.T) {
	toks := scanAll(t, "a\n  b")
	if toks[0].Line != 1 || toks[0].Col != 0 {
		t.Errorf("token 0 position: got line=%d col=%d", toks[0].Line, toks[0].Col)
	}
	if toks[1].Line != 2 {
		t.Errorf("token 1 line: got %d, want 2", toks[1].Line)
	}
}
