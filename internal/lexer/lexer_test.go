// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package lexer_test

import (
	"testing"

	"github.com/viascript/via/internal/lexer"
	"github.com/viascript/via/internal/token"
)

type tokenCase struct {
	kind   token.Kind
	lexeme string
}

func runTokenize(t *testing.T, name, input string, want []tokenCase) {
	t.Helper()
	t.Run(name, func(t *testing.T) {
		t.Helper()
		l := lexer.New("test.via", input)
		toks := l.Tokenize()

		if len(toks) == 0 {
			t.Fatal("Tokenize returned empty slice")
		}
		last := toks[len(toks)-1]
		if last.Kind != token.EOF {
			t.Errorf("last token is %s, want EOF", last.Kind)
		}
		body := toks[:len(toks)-1]

		if len(body) != len(want) {
			t.Errorf("got %d tokens (excl. EOF), want %d", len(body), len(want))
			for i, tok := range body {
				t.Logf("  [%d] %s %q", i, tok.Kind, tok.Lexeme)
			}
			return
		}
		for i, w := range want {
			got := body[i]
			if got.Kind != w.kind {
				t.Errorf("token[%d]: kind = %s, want %s (lexeme %q)", i, got.Kind, w.kind, got.Lexeme)
			}
			if got.Lexeme != w.lexeme {
				t.Errorf("token[%d]: lexeme = %q, want %q", i, got.Lexeme, w.lexeme)
			}
		}
	})
}

func TestSingleCharTokens(t *testing.T) {
	cases := []struct {
		name     string
		input    string
		wantKind token.Kind
		wantLit  string
	}{
		{"plus", "+", token.PLUS, "+"},
		{"minus", "-", token.MINUS, "-"},
		{"star", "*", token.STAR, "*"},
		{"slash", "/", token.SLASH, "/"},
		{"percent", "%", token.PERCENT, "%"},
		{"tilde", "~", token.TILDE, "~"},
		{"amp", "&", token.AMP, "&"},
		{"pipe", "|", token.PIPE, "|"},
		{"caret", "^", token.CARET, "^"},
		{"bang", "!", token.BANG, "!"},
		{"dot", ".", token.DOT, "."},
		{"lt", "<", token.LT, "<"},
		{"gt", ">", token.GT, ">"},
		{"assign", "=", token.ASSIGN, "="},
		{"colon", ":", token.COLON, ":"},
		{"lparen", "(", token.LPAREN, "("},
		{"rparen", ")", token.RPAREN, ")"},
		{"lbracket", "[", token.LBRACKET, "["},
		{"rbracket", "]", token.RBRACKET, "]"},
		{"lbrace", "{", token.LBRACE, "{"},
		{"rbrace", "}", token.RBRACE, "}"},
		{"comma", ",", token.COMMA, ","},
		{"semicolon", ";", token.SEMICOLON, ";"},
	}
	for _, c := range cases {
		runTokenize(t, c.name, c.input, []tokenCase{{c.wantKind, c.wantLit}})
	}
}

func TestMultiCharOperators(t *testing.T) {
	runTokenize(t, "EQ", "==", []tokenCase{{token.EQ, "=="}})
	runTokenize(t, "NE", "!=", []tokenCase{{token.NE, "!="}})
	runTokenize(t, "LE", "<=", []tokenCase{{token.LE, "<="}})
	runTokenize(t, "GE", ">=", []tokenCase{{token.GE, ">="}})
	runTokenize(t, "ANDAND", "&&", []tokenCase{{token.ANDAND, "&&"}})
	runTokenize(t, "OROR", "||", []tokenCase{{token.OROR, "||"}})
	runTokenize(t, "ARROW", "->", []tokenCase{{token.ARROW, "->"}})
	runTokenize(t, "DOTDOT", "..", []tokenCase{{token.DOTDOT, ".."}})
	runTokenize(t, "POW", "**", []tokenCase{{token.POW, "**"}})
	runTokenize(t, "PLUSPLUS", "++", []tokenCase{{token.PLUSPLUS, "++"}})
	runTokenize(t, "MINUSMINUS", "--", []tokenCase{{token.MINUSMINUS, "--"}})
}

func TestCompoundAssignment(t *testing.T) {
	runTokenize(t, "PLUSEQ", "+=", []tokenCase{{token.PLUSEQ, "+="}})
	runTokenize(t, "MINUSEQ", "-=", []tokenCase{{token.MINUSEQ, "-="}})
	runTokenize(t, "STAREQ", "*=", []tokenCase{{token.STAREQ, "*="}})
	runTokenize(t, "SLASHEQ", "/=", []tokenCase{{token.SLASHEQ, "/="}})
	runTokenize(t, "PERCENTEQ", "%=", []tokenCase{{token.PERCENTEQ, "%="}})
	runTokenize(t, "AMPEQ", "&=", []tokenCase{{token.AMPEQ, "&="}})
	runTokenize(t, "PIPEEQ", "|=", []tokenCase{{token.PIPEEQ, "|="}})
	runTokenize(t, "CARETEQ", "^=", []tokenCase{{token.CARETEQ, "^="}})
}

func TestIntLiterals(t *testing.T) {
	runTokenize(t, "zero", "0", []tokenCase{{token.INT, "0"}})
	runTokenize(t, "single", "7", []tokenCase{{token.INT, "7"}})
	runTokenize(t, "multi", "42", []tokenCase{{token.INT, "42"}})
	runTokenize(t, "large", "1000000", []tokenCase{{token.INT, "1000000"}})
	runTokenize(t, "hex", "0xFF00", []tokenCase{{token.INT, "0xFF00"}})
	runTokenize(t, "binary", "0b1010", []tokenCase{{token.INT, "0b1010"}})
}

func TestFloatLiterals(t *testing.T) {
	runTokenize(t, "basic", "3.14", []tokenCase{{token.FLOAT, "3.14"}})
	runTokenize(t, "leading_zero", "0.5", []tokenCase{{token.FLOAT, "0.5"}})
	runTokenize(t, "exponent", "1.5e10", []tokenCase{{token.FLOAT, "1.5e10"}})
	runTokenize(t, "exponent_upper", "2.0E3", []tokenCase{{token.FLOAT, "2.0E3"}})
	runTokenize(t, "exponent_neg", "1.0e-5", []tokenCase{{token.FLOAT, "1.0e-5"}})
}

func TestSecondDotIsIllegal(t *testing.T) {
	runTokenize(t, "double_dot_float", "1.2.3", []tokenCase{{token.ILLEGAL, "1.2.3"}})
}

func TestStringLiterals(t *testing.T) {
	runTokenize(t, "empty", `""`, []tokenCase{{token.STRING, ``}})
	runTokenize(t, "hello", `"hello"`, []tokenCase{{token.STRING, `hello`}})
	runTokenize(t, "single_quoted", `'hi'`, []tokenCase{{token.STRING, `hi`}})
	runTokenize(t, "escape_n", `"line\nfeed"`, []tokenCase{{token.STRING, `line\nfeed`}})
	runTokenize(t, "escape_backslash", `"back\\slash"`, []tokenCase{{token.STRING, `back\\slash`}})
	runTokenize(t, "escape_quote", `"say\"hi\""`, []tokenCase{{token.STRING, `say\"hi\"`}})
}

func TestIdentifiers(t *testing.T) {
	runTokenize(t, "simple", "foo", []tokenCase{{token.IDENT, "foo"}})
	runTokenize(t, "underscore_prefix", "_bar", []tokenCase{{token.IDENT, "_bar"}})
	runTokenize(t, "underscore_only", "_", []tokenCase{{token.IDENT, "_"}})
	runTokenize(t, "mixed_case", "MyVar", []tokenCase{{token.IDENT, "MyVar"}})
	runTokenize(t, "with_digits", "x1y2z3", []tokenCase{{token.IDENT, "x1y2z3"}})
}

func TestMacroIdentifier(t *testing.T) {
	runTokenize(t, "macro_ident", "assert!", []tokenCase{{token.MACROIDENT, "assert!"}})
}

func TestKeywords(t *testing.T) {
	cases := []struct {
		kw   string
		kind token.Kind
	}{
		{"var", token.VAR},
		{"const", token.CONST},
		{"if", token.IF},
		{"else", token.ELSE},
		{"while", token.WHILE},
		{"for", token.FOR},
		{"in", token.IN},
		{"return", token.RETURN},
		{"break", token.BREAK},
		{"continue", token.CONTINUE},
		{"fn", token.FN},
		{"and", token.AND},
		{"or", token.OR},
		{"not", token.NOT},
		{"shl", token.SHL},
		{"shr", token.SHR},
		{"true", token.TRUE},
		{"false", token.FALSE},
		{"nil", token.NIL},
	}
	for _, c := range cases {
		runTokenize(t, c.kw, c.kw, []tokenCase{{c.kind, c.kw}})
	}
}

func TestKeywordPrefixIsIdent(t *testing.T) {
	runTokenize(t, "fn_prefix", "fnn", []tokenCase{{token.IDENT, "fnn"}})
	runTokenize(t, "var_prefix", "variant", []tokenCase{{token.IDENT, "variant"}})
	runTokenize(t, "if_prefix", "iff", []tokenCase{{token.IDENT, "iff"}})
}

func TestCommentsAreSkipped(t *testing.T) {
	runTokenize(t, "line_comment", "x // ignore this\ny", []tokenCase{
		{token.IDENT, "x"},
		{token.IDENT, "y"},
	})
	runTokenize(t, "block_comment", "x /* ignored */ y", []tokenCase{
		{token.IDENT, "x"},
		{token.IDENT, "y"},
	})
	runTokenize(t, "block_multiline", "x /* line1\nline2 */ y", []tokenCase{
		{token.IDENT, "x"},
		{token.IDENT, "y"},
	})
}

func TestUnterminatedBlockCommentIsNonFatal(t *testing.T) {
	t.Run("unterminated_block", func(t *testing.T) {
		l := lexer.New("test.via", "/* oops")
		tok := l.NextToken()
		if tok.Kind != token.EOF {
			t.Errorf("expected EOF after unterminated block comment, got %s", tok.Kind)
		}
	})
}

func TestUnterminatedString(t *testing.T) {
	t.Run("unterminated_string", func(t *testing.T) {
		l := lexer.New("test.via", `"no closing`)
		tok := l.NextToken()
		if tok.Kind != token.ILLEGAL {
			t.Errorf("expected ILLEGAL for unterminated string, got %s", tok.Kind)
		}
	})
	t.Run("newline_terminates", func(t *testing.T) {
		l := lexer.New("test.via", "\"oops\nfoo")
		tok := l.NextToken()
		if tok.Kind != token.ILLEGAL {
			t.Errorf("expected ILLEGAL when newline hits inside string, got %s", tok.Kind)
		}
	})
}

func TestWhitespaceSkipping(t *testing.T) {
	runTokenize(t, "spaces", "   foo   ", []tokenCase{{token.IDENT, "foo"}})
	runTokenize(t, "tabs", "\t\tfoo\t\t", []tokenCase{{token.IDENT, "foo"}})
	runTokenize(t, "newlines", "\n\nfoo\n\n", []tokenCase{{token.IDENT, "foo"}})
}

func TestFunctionDeclaration(t *testing.T) {
	input := `fn add(x: int, y: int) -> int { return x + y }`
	runTokenize(t, "fn_decl", input, []tokenCase{
		{token.FN, "fn"},
		{token.IDENT, "add"},
		{token.LPAREN, "("},
		{token.IDENT, "x"},
		{token.COLON, ":"},
		{token.IDENT, "int"},
		{token.COMMA, ","},
		{token.IDENT, "y"},
		{token.COLON, ":"},
		{token.IDENT, "int"},
		{token.RPAREN, ")"},
		{token.ARROW, "->"},
		{token.IDENT, "int"},
		{token.LBRACE, "{"},
		{token.RETURN, "return"},
		{token.IDENT, "x"},
		{token.PLUS, "+"},
		{token.IDENT, "y"},
		{token.RBRACE, "}"},
	})
}

func TestVarStatement(t *testing.T) {
	input := `var x = 42;`
	runTokenize(t, "var_stmt", input, []tokenCase{
		{token.VAR, "var"},
		{token.IDENT, "x"},
		{token.ASSIGN, "="},
		{token.INT, "42"},
		{token.SEMICOLON, ";"},
	})
}

func TestForInRange(t *testing.T) {
	input := `for i in 0..n {}`
	runTokenize(t, "for_range", input, []tokenCase{
		{token.FOR, "for"},
		{token.IDENT, "i"},
		{token.IN, "in"},
		{token.INT, "0"},
		{token.DOTDOT, ".."},
		{token.IDENT, "n"},
		{token.LBRACE, "{"},
		{token.RBRACE, "}"},
	})
}

func TestTableSubscript(t *testing.T) {
	input := `t["a"] = 1`
	runTokenize(t, "table_subscript", input, []tokenCase{
		{token.IDENT, "t"},
		{token.LBRACKET, "["},
		{token.STRING, "a"},
		{token.RBRACKET, "]"},
		{token.ASSIGN, "="},
		{token.INT, "1"},
	})
}

func TestLogicalKeywordsAndSymbols(t *testing.T) {
	input := `if a and b or not c {}`
	runTokenize(t, "logical_ops", input, []tokenCase{
		{token.IF, "if"},
		{token.IDENT, "a"},
		{token.AND, "and"},
		{token.IDENT, "b"},
		{token.OR, "or"},
		{token.NOT, "not"},
		{token.IDENT, "c"},
		{token.LBRACE, "{"},
		{token.RBRACE, "}"},
	})
}

func TestShiftKeywords(t *testing.T) {
	input := `x shl 2`
	runTokenize(t, "shift_kw", input, []tokenCase{
		{token.IDENT, "x"},
		{token.SHL, "shl"},
		{token.INT, "2"},
	})
}

func TestPositionTracking(t *testing.T) {
	t.Run("line_and_column", func(t *testing.T) {
		l := lexer.New("src.via", "foo\nbar")
		toks := l.Tokenize()
		if len(toks) < 2 {
			t.Fatal("expected at least 2 tokens")
		}
		foo, bar := toks[0], toks[1]
		if foo.Pos.Line != 1 || foo.Pos.Column != 1 {
			t.Errorf("foo: %d:%d, want 1:1", foo.Pos.Line, foo.Pos.Column)
		}
		if bar.Pos.Line != 2 || bar.Pos.Column != 1 {
			t.Errorf("bar: %d:%d, want 2:1", bar.Pos.Line, bar.Pos.Column)
		}
	})

	t.Run("filename_propagated", func(t *testing.T) {
		l := lexer.New("myfile.via", "x")
		tok := l.NextToken()
		if tok.Pos.File != "myfile.via" {
			t.Errorf("file = %q, want %q", tok.Pos.File, "myfile.via")
		}
	})
}

func TestEmptyInput(t *testing.T) {
	l := lexer.New("test.via", "")
	tok := l.NextToken()
	if tok.Kind != token.EOF {
		t.Errorf("expected EOF for empty input, got %s", tok.Kind)
	}
}

func TestIllegalCharacter(t *testing.T) {
	l := lexer.New("test.via", "`")
	tok := l.NextToken()
	if tok.Kind != token.ILLEGAL {
		t.Errorf("expected ILLEGAL for backtick, got %s", tok.Kind)
	}
	if tok.Lexeme != "`" {
		t.Errorf("expected lexeme '`', got %q", tok.Lexeme)
	}
}

func TestMultipleCallsAfterEOF(t *testing.T) {
	l := lexer.New("test.via", "")
	for i := 0; i < 5; i++ {
		tok := l.NextToken()
		if tok.Kind != token.EOF {
			t.Errorf("call %d: expected EOF, got %s", i, tok.Kind)
		}
	}
}

func TestIntDotIsNotFloat(t *testing.T) {
	runTokenize(t, "int_dot_kw", "1.fn", []tokenCase{
		{token.INT, "1"},
		{token.DOT, "."},
		{token.FN, "fn"},
	})
}

func TestNegativeNumberIsMinusThenInt(t *testing.T) {
	runTokenize(t, "negative", "-42", []tokenCase{
		{token.MINUS, "-"},
		{token.INT, "42"},
	})
}
