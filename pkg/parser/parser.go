// Package parser implements the Brewin language parser.
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/thomasrohde/brewin/pkg/ast"
	"github.com/thomasrohde/brewin/pkg/diagnostics"
	"github.com/thomasrohde/brewin/pkg/lexer"
)

type parser struct {
	tokens []lexer.Token
	pos    int
	diags  []diagnostics.Diagnostic
	// atEOF records that an error was raised at end of input.
	atEOF bool
}

// Parse tokenizes source and parses it into an AST.
func Parse(source, filename string) (*ast.Program, []diagnostics.Diagnostic) {
	tokens, diags := tokenize(source, filename)
	if diags != nil {
		return nil, diags
	}

	p := &parser{tokens: tokens, pos: 0}
	prog := p.parseProgram()
	if len(p.diags) > 0 {
		return nil, p.diags
	}
	return prog, nil
}

// ParseSnippet parses a fragment of interactive input: any mix of function
// declarations and statements. When parsing fails only because input ended
// early, incomplete is true and the caller may append more lines and retry.
func ParseSnippet(source, filename string) (snip *ast.Snippet, incomplete bool, diags []diagnostics.Diagnostic) {
	tokens, diags := tokenize(source, filename)
	if diags != nil {
		return nil, strings.Contains(diags[0].Message, "unterminated block comment"), diags
	}

	p := &parser{tokens: tokens, pos: 0}
	startSpan := p.current().Span
	snip = &ast.Snippet{}
	for p.peek() != lexer.TokEOF {
		if p.isFuncStart() {
			fn := p.parseFuncDecl()
			if fn == nil {
				break
			}
			snip.Funcs = append(snip.Funcs, fn)
			continue
		}
		stmt := p.parseStmt()
		if stmt == nil {
			break
		}
		snip.Stmts = append(snip.Stmts, stmt)
	}
	if len(p.diags) > 0 {
		return nil, p.atEOF, p.diags
	}
	snip.Span = p.spanFromTo(startSpan, p.current().Span)
	return snip, false, nil
}

func tokenize(source, filename string) ([]lexer.Token, []diagnostics.Diagnostic) {
	tokens, err := lexer.Tokenize(source, filename)
	if err != nil {
		if le, ok := err.(*lexer.LexError); ok {
			return nil, []diagnostics.Diagnostic{le.Diag}
		}
		return nil, []diagnostics.Diagnostic{diagnostics.MakeDiag(diagnostics.ELex, err.Error(), nil, "")}
	}
	return tokens, nil
}

func (p *parser) current() lexer.Token {
	if p.pos >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1] // EOF
	}
	return p.tokens[p.pos]
}

func (p *parser) peek() lexer.TokenType {
	return p.current().Type
}

func (p *parser) peekAt(offset int) lexer.TokenType {
	idx := p.pos + offset
	if idx >= len(p.tokens) {
		return lexer.TokEOF
	}
	return p.tokens[idx].Type
}

func (p *parser) advance() lexer.Token {
	tok := p.current()
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return tok
}

func (p *parser) expect(typ lexer.TokenType) (lexer.Token, bool) {
	tok := p.current()
	if tok.Type != typ {
		got := tok.Value
		if tok.Type == lexer.TokEOF {
			got = "end of file"
		}
		p.addError(fmt.Sprintf("expected %s, got '%s'", tokenName(typ), got), &tok.Span)
		return tok, false
	}
	return p.advance(), true
}

func (p *parser) addError(msg string, span *ast.Span) {
	if p.peek() == lexer.TokEOF {
		p.atEOF = true
	}
	p.diags = append(p.diags, diagnostics.MakeDiag(diagnostics.EParse, msg, span, ""))
}

func (p *parser) spanFromTo(start, end ast.Span) ast.Span {
	return ast.Span{
		File:      start.File,
		StartLine: start.StartLine,
		StartCol:  start.StartCol,
		EndLine:   end.EndLine,
		EndCol:    end.EndCol,
	}
}

func tokenName(t lexer.TokenType) string {
	switch t {
	case lexer.TokLBrace:
		return "'{'"
	case lexer.TokRBrace:
		return "'}'"
	case lexer.TokLParen:
		return "'('"
	case lexer.TokRParen:
		return "')'"
	case lexer.TokComma:
		return "','"
	case lexer.TokSemicolon:
		return "';'"
	case lexer.TokAssign:
		return "'='"
	case lexer.TokIdent:
		return "identifier"
	case lexer.TokStringLit:
		return "string"
	case lexer.TokIntLit:
		return "integer"
	case lexer.TokEOF:
		return "end of file"
	default:
		return fmt.Sprintf("token(%d)", t)
	}
}

// --- Program ---

func (p *parser) parseProgram() *ast.Program {
	startSpan := p.current().Span

	var funcs []*ast.FuncDecl
	for p.peek() != lexer.TokEOF {
		fn := p.parseFuncDecl()
		if fn == nil {
			return nil
		}
		funcs = append(funcs, fn)
	}

	return &ast.Program{
		Span:  p.spanFromTo(startSpan, p.current().Span),
		Funcs: funcs,
	}
}

// isFuncStart reports whether the upcoming tokens begin a function
// declaration: `func name(` or the keyword-less `name(...) {` form.
func (p *parser) isFuncStart() bool {
	if p.peek() == lexer.TokFunc {
		return true
	}
	if p.peek() != lexer.TokIdent || p.peekAt(1) != lexer.TokLParen {
		return false
	}
	// Skip the parameter list and look for '{'.
	i := 2
	for {
		switch p.peekAt(i) {
		case lexer.TokRParen:
			return p.peekAt(i+1) == lexer.TokLBrace
		case lexer.TokIdent, lexer.TokComma:
			i++
		default:
			return false
		}
	}
}

func (p *parser) parseFuncDecl() *ast.FuncDecl {
	start := p.current()
	if start.Type == lexer.TokFunc {
		p.advance()
	}
	nameTok, ok := p.expect(lexer.TokIdent)
	if !ok {
		return nil
	}

	if _, ok := p.expect(lexer.TokLParen); !ok {
		return nil
	}
	var params []string
	for p.peek() != lexer.TokRParen && p.peek() != lexer.TokEOF {
		paramTok, ok := p.expect(lexer.TokIdent)
		if !ok {
			return nil
		}
		params = append(params, paramTok.Value)
		if p.peek() != lexer.TokComma {
			break
		}
		p.advance()
	}
	if _, ok := p.expect(lexer.TokRParen); !ok {
		return nil
	}

	body, end := p.parseBlock()
	if end == nil {
		return nil
	}

	return &ast.FuncDecl{
		Span:   p.spanFromTo(start.Span, end.Span),
		Name:   nameTok.Value,
		Params: params,
		Body:   body,
	}
}

// --- Block ---

// parseBlock parses `{ stmt* }`. It returns the statements and the closing
// brace token; a nil token signals a parse error.
func (p *parser) parseBlock() ([]ast.Stmt, *lexer.Token) {
	if _, ok := p.expect(lexer.TokLBrace); !ok {
		return nil, nil
	}
	stmts := []ast.Stmt{}
	for p.peek() != lexer.TokRBrace && p.peek() != lexer.TokEOF {
		stmt := p.parseStmt()
		if stmt == nil {
			return nil, nil
		}
		stmts = append(stmts, stmt)
	}
	end, ok := p.expect(lexer.TokRBrace)
	if !ok {
		return nil, nil
	}
	return stmts, &end
}

// --- Statements ---

func (p *parser) parseStmt() ast.Stmt {
	switch p.peek() {
	case lexer.TokIf:
		s := p.parseIfStmt()
		if s == nil {
			return nil
		}
		return s
	case lexer.TokWhile:
		s := p.parseWhileStmt()
		if s == nil {
			return nil
		}
		return s
	case lexer.TokReturn:
		s := p.parseReturnStmt()
		if s == nil {
			return nil
		}
		return s
	case lexer.TokIdent:
		if p.peekAt(1) == lexer.TokAssign {
			s := p.parseAssignStmt()
			if s == nil {
				return nil
			}
			return s
		}
		if p.peekAt(1) == lexer.TokLParen {
			s := p.parseCallStmt()
			if s == nil {
				return nil
			}
			return s
		}
	}
	tok := p.current()
	got := tok.Value
	if tok.Type == lexer.TokEOF {
		got = "end of file"
	}
	p.addError(fmt.Sprintf("expected statement, got '%s'", got), &tok.Span)
	return nil
}

func (p *parser) parseAssignStmt() *ast.AssignStmt {
	nameTok := p.advance()
	p.advance() // consume '='
	value := p.parseExpr()
	if value == nil {
		return nil
	}
	end, ok := p.expect(lexer.TokSemicolon)
	if !ok {
		return nil
	}
	return &ast.AssignStmt{
		Span:  p.spanFromTo(nameTok.Span, end.Span),
		Name:  nameTok.Value,
		Value: value,
	}
}

func (p *parser) parseCallStmt() *ast.CallStmt {
	call := p.parseCall()
	if call == nil {
		return nil
	}
	end, ok := p.expect(lexer.TokSemicolon)
	if !ok {
		return nil
	}
	return &ast.CallStmt{
		Span: p.spanFromTo(call.Span, end.Span),
		Call: call,
	}
}

func (p *parser) parseIfStmt() *ast.IfStmt {
	start := p.advance() // consume 'if'
	if _, ok := p.expect(lexer.TokLParen); !ok {
		return nil
	}
	cond := p.parseExpr()
	if cond == nil {
		return nil
	}
	if _, ok := p.expect(lexer.TokRParen); !ok {
		return nil
	}

	thenBody, end := p.parseBlock()
	if end == nil {
		return nil
	}

	var elseBody []ast.Stmt
	if p.peek() == lexer.TokElse {
		p.advance() // consume 'else'
		elseBody, end = p.parseBlock()
		if end == nil {
			return nil
		}
	}

	return &ast.IfStmt{
		Span:     p.spanFromTo(start.Span, end.Span),
		Cond:     cond,
		ThenBody: thenBody,
		ElseBody: elseBody,
	}
}

func (p *parser) parseWhileStmt() *ast.WhileStmt {
	start := p.advance() // consume 'while'
	if _, ok := p.expect(lexer.TokLParen); !ok {
		return nil
	}
	cond := p.parseExpr()
	if cond == nil {
		return nil
	}
	if _, ok := p.expect(lexer.TokRParen); !ok {
		return nil
	}
	body, end := p.parseBlock()
	if end == nil {
		return nil
	}
	return &ast.WhileStmt{
		Span: p.spanFromTo(start.Span, end.Span),
		Cond: cond,
		Body: body,
	}
}

func (p *parser) parseReturnStmt() *ast.ReturnStmt {
	start := p.advance() // consume 'return'
	var value ast.Expr
	if p.peek() != lexer.TokSemicolon {
		value = p.parseExpr()
		if value == nil {
			return nil
		}
	}
	end, ok := p.expect(lexer.TokSemicolon)
	if !ok {
		return nil
	}
	return &ast.ReturnStmt{
		Span:  p.spanFromTo(start.Span, end.Span),
		Value: value,
	}
}

// --- Expressions (precedence climbing) ---

func (p *parser) parseExpr() ast.Expr {
	return p.parseOr()
}

func (p *parser) parseOr() ast.Expr {
	left := p.parseAnd()
	if left == nil {
		return nil
	}
	for p.peek() == lexer.TokOrOr {
		p.advance()
		right := p.parseAnd()
		if right == nil {
			return nil
		}
		left = &ast.BinaryExpr{
			Span:  p.spanFromTo(left.NodeSpan(), right.NodeSpan()),
			Op:    ast.OpOr,
			Left:  left,
			Right: right,
		}
	}
	return left
}

func (p *parser) parseAnd() ast.Expr {
	left := p.parseComparison()
	if left == nil {
		return nil
	}
	for p.peek() == lexer.TokAndAnd {
		p.advance()
		right := p.parseComparison()
		if right == nil {
			return nil
		}
		left = &ast.BinaryExpr{
			Span:  p.spanFromTo(left.NodeSpan(), right.NodeSpan()),
			Op:    ast.OpAnd,
			Left:  left,
			Right: right,
		}
	}
	return left
}

func (p *parser) parseComparison() ast.Expr {
	left := p.parseAdditive()
	if left == nil {
		return nil
	}

	for {
		var op ast.BinaryOp
		switch p.peek() {
		case lexer.TokGt:
			op = ast.OpGt
		case lexer.TokLt:
			op = ast.OpLt
		case lexer.TokGtEq:
			op = ast.OpGtEq
		case lexer.TokLtEq:
			op = ast.OpLtEq
		case lexer.TokEqEq:
			op = ast.OpEqEq
		case lexer.TokBangEq:
			op = ast.OpNeq
		default:
			return left
		}
		p.advance()
		right := p.parseAdditive()
		if right == nil {
			return nil
		}
		left = &ast.BinaryExpr{
			Span:  p.spanFromTo(left.NodeSpan(), right.NodeSpan()),
			Op:    op,
			Left:  left,
			Right: right,
		}
	}
}

func (p *parser) parseAdditive() ast.Expr {
	left := p.parseMultiplicative()
	if left == nil {
		return nil
	}

	for {
		var op ast.BinaryOp
		switch p.peek() {
		case lexer.TokPlus:
			op = ast.OpAdd
		case lexer.TokMinus:
			op = ast.OpSub
		default:
			return left
		}
		p.advance()
		right := p.parseMultiplicative()
		if right == nil {
			return nil
		}
		left = &ast.BinaryExpr{
			Span:  p.spanFromTo(left.NodeSpan(), right.NodeSpan()),
			Op:    op,
			Left:  left,
			Right: right,
		}
	}
}

func (p *parser) parseMultiplicative() ast.Expr {
	left := p.parseUnary()
	if left == nil {
		return nil
	}

	for {
		var op ast.BinaryOp
		switch p.peek() {
		case lexer.TokStar:
			op = ast.OpMul
		case lexer.TokSlash:
			op = ast.OpDiv
		case lexer.TokPercent:
			op = ast.OpMod
		default:
			return left
		}
		p.advance()
		right := p.parseUnary()
		if right == nil {
			return nil
		}
		left = &ast.BinaryExpr{
			Span:  p.spanFromTo(left.NodeSpan(), right.NodeSpan()),
			Op:    op,
			Left:  left,
			Right: right,
		}
	}
}

func (p *parser) parseUnary() ast.Expr {
	var op ast.UnaryOp
	switch p.peek() {
	case lexer.TokMinus:
		op = ast.OpNeg
	case lexer.TokBang:
		op = ast.OpNot
	default:
		return p.parsePrimary()
	}
	start := p.advance()
	operand := p.parseUnary()
	if operand == nil {
		return nil
	}
	return &ast.UnaryExpr{
		Span:    p.spanFromTo(start.Span, operand.NodeSpan()),
		Op:      op,
		Operand: operand,
	}
}

func (p *parser) parsePrimary() ast.Expr {
	switch p.peek() {
	case lexer.TokLParen:
		// Grouped expression
		p.advance()
		expr := p.parseExpr()
		if expr == nil {
			return nil
		}
		if _, ok := p.expect(lexer.TokRParen); !ok {
			return nil
		}
		return expr

	case lexer.TokIntLit:
		tok := p.advance()
		val, err := strconv.ParseInt(tok.Value, 10, 64)
		if err != nil {
			p.addError(fmt.Sprintf("integer literal %s out of range", tok.Value), &tok.Span)
			return nil
		}
		return &ast.IntLiteral{Span: tok.Span, Value: val}

	case lexer.TokStringLit:
		tok := p.advance()
		return &ast.StrLiteral{Span: tok.Span, Value: tok.Value}

	case lexer.TokTrue:
		tok := p.advance()
		return &ast.BoolLiteral{Span: tok.Span, Value: true}

	case lexer.TokFalse:
		tok := p.advance()
		return &ast.BoolLiteral{Span: tok.Span, Value: false}

	case lexer.TokNil:
		tok := p.advance()
		return &ast.NilLiteral{Span: tok.Span}

	case lexer.TokIdent:
		if p.peekAt(1) == lexer.TokLParen {
			call := p.parseCall()
			if call == nil {
				return nil
			}
			return call
		}
		tok := p.advance()
		return &ast.VarRef{Span: tok.Span, Name: tok.Value}

	default:
		tok := p.current()
		got := tok.Value
		if tok.Type == lexer.TokEOF {
			got = "end of file"
		}
		p.addError(fmt.Sprintf("unexpected token '%s'", got), &tok.Span)
		return nil
	}
}

func (p *parser) parseCall() *ast.CallExpr {
	nameTok := p.advance()
	p.advance() // consume '('

	args := []ast.Expr{}
	for p.peek() != lexer.TokRParen && p.peek() != lexer.TokEOF {
		arg := p.parseExpr()
		if arg == nil {
			return nil
		}
		args = append(args, arg)
		if p.peek() != lexer.TokComma {
			break
		}
		p.advance()
	}

	end, ok := p.expect(lexer.TokRParen)
	if !ok {
		return nil
	}

	return &ast.CallExpr{
		Span: p.spanFromTo(nameTok.Span, end.Span),
		Name: nameTok.Value,
		Args: args,
	}
}
