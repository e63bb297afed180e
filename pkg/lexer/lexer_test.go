package lexer

import "testing"

func TestNextTokenPunctuation(t *testing.T) {
	input := `( ) { } [ ] , : ; ::`

	tests := []struct {
		expectedType    TokenType
		expectedLiteral string
	}{
		{TokenLParen, "("},
		{TokenRParen, ")"},
		{TokenLBrace, "{"},
		{TokenRBrace, "}"},
		{TokenLBracket, "["},
		{TokenRBracket, "]"},
		{TokenComma, ","},
		{TokenColon, ":"},
		{TokenSemicolon, ";"},
		{TokenDoubleColon, "::"},
		{TokenEOF, ""},
	}

	l := New(input)
	for i, tt := range tests {
		tok := l.NextToken()
		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%s, got=%s", i, tt.expectedType, tok.Type)
		}
		if tok.Literal != tt.expectedLiteral {
			t.Fatalf("tests[%d] - literal wrong. expected=%q, got=%q", i, tt.expectedLiteral, tok.Literal)
		}
	}
}

func TestNextTokenOperators(t *testing.T) {
	input := `+ - * / % ^ ! = == != <= >= < > && || ~ ^^ .`

	tests := []struct {
		expectedType    TokenType
		expectedLiteral string
	}{
		{TokenPlus, "+"},
		{TokenMinus, "-"},
		{TokenStar, "*"},
		{TokenSlash, "/"},
		{TokenPercent, "%"},
		{TokenCaret, "^"},
		{TokenBang, "!"},
		{TokenAssign, "="},
		{TokenEq, "=="},
		{TokenNotEq, "!="},
		{TokenLe, "<="},
		{TokenGe, ">="},
		{TokenLt, "<"},
		{TokenGt, ">"},
		{TokenAnd, "&&"},
		{TokenOr, "||"},
		{TokenTilde, "~"},
		{TokenXor, "^^"},
		{TokenDot, "."},
		{TokenEOF, ""},
	}

	l := New(input)
	for i, tt := range tests {
		tok := l.NextToken()
		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%s, got=%s", i, tt.expectedType, tok.Type)
		}
		if tok.Literal != tt.expectedLiteral {
			t.Fatalf("tests[%d] - literal wrong. expected=%q, got=%q", i, tt.expectedLiteral, tok.Literal)
		}
	}
}

func TestNextTokenKeywordsAndNames(t *testing.T) {
	input := `nil true T false F if else loop import return end foo _bar2`

	tests := []struct {
		expectedType    TokenType
		expectedLiteral string
	}{
		{TokenNil, "nil"},
		{TokenTrue, "true"},
		{TokenTrue, "T"},
		{TokenFalse, "false"},
		{TokenFalse, "F"},
		{TokenIf, "if"},
		{TokenElse, "else"},
		{TokenLoop, "loop"},
		{TokenImport, "import"},
		{TokenReturn, "return"},
		{TokenEnd, "end"},
		{TokenName, "foo"},
		{TokenName, "_bar2"},
		{TokenEOF, ""},
	}

	l := New(input)
	for i, tt := range tests {
		tok := l.NextToken()
		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%s, got=%s", i, tt.expectedType, tok.Type)
		}
		if tok.Literal != tt.expectedLiteral {
			t.Fatalf("tests[%d] - literal wrong. expected=%q, got=%q", i, tt.expectedLiteral, tok.Literal)
		}
	}
}

func TestNextTokenNumbers(t *testing.T) {
	tests := []struct {
		input   string
		literal string
	}{
		{"42", "42"},
		{"3.14", "3.14"},
		{".5", ".5"},
	}
	for _, tt := range tests {
		l := New(tt.input)
		tok := l.NextToken()
		if tok.Type != TokenNumber {
			t.Fatalf("input %q: expected NUMBER, got %s", tt.input, tok.Type)
		}
		if tok.Literal != tt.literal {
			t.Fatalf("input %q: literal = %q, want %q", tt.input, tok.Literal, tt.literal)
		}
	}
}

func TestNextTokenMalformedNumberIsIllegal(t *testing.T) {
	for _, input := range []string{"1.2.3", "12abc"} {
		l := New(input)
		tok := l.NextToken()
		if tok.Type != TokenIllegal {
			t.Fatalf("input %q: expected ILLEGAL, got %s", input, tok.Type)
		}
	}
}

func TestNextTokenString(t *testing.T) {
	l := New(`"hello world"`)
	tok := l.NextToken()
	if tok.Type != TokenString {
		t.Fatalf("expected STRING, got %s", tok.Type)
	}
	if tok.Literal != "hello world" {
		t.Fatalf("literal = %q, want %q", tok.Literal, "hello world")
	}
}

func TestNextTokenUnterminatedStringIsIllegal(t *testing.T) {
	l := New("\"hello\nworld\"")
	tok := l.NextToken()
	if tok.Type != TokenIllegal {
		t.Fatalf("expected ILLEGAL for unterminated string, got %s", tok.Type)
	}
}

func TestNextTokenSkipsLineComments(t *testing.T) {
	l := New("1 // a comment\n+ 2")
	kinds := []TokenType{TokenNumber, TokenPlus, TokenNumber, TokenEOF}
	for i, want := range kinds {
		if tok := l.NextToken(); tok.Type != want {
			t.Fatalf("tok[%d]: expected %s, got %s", i, want, tok.Type)
		}
	}
}

func TestNextTokenTracksLines(t *testing.T) {
	l := New("a\nb\nc")
	var lines []int
	for {
		tok := l.NextToken()
		if tok.Type == TokenEOF {
			break
		}
		lines = append(lines, tok.Line)
	}
	want := []int{1, 2, 3}
	if len(lines) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(lines), len(want))
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Fatalf("token %d: line = %d, want %d", i, lines[i], want[i])
		}
	}
}

func TestTokenizeStopsAtEOF(t *testing.T) {
	toks, err := New("a + b").Tokenize()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if toks[len(toks)-1].Type != TokenEOF {
		t.Fatalf("last token should be EOF, got %s", toks[len(toks)-1].Type)
	}
}
