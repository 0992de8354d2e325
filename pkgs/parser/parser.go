// Package parser implements the rule engine's two-phase parser, per
// spec.md §4.2: phase one is a recursive-descent, precedence-climbing
// scan of the token stream into an AST; phase two ("build") runs the
// type-aware reduction pass (ast.Node.Reduce) that constant-folds
// literal subtrees, mirroring the teacher's own two-pass
// parse-then-realize pipeline (opal-lang-opal/pkgs/parser/parser.go).
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/zeroSteiner/rule-engine-sub000/pkgs/ast"
	"github.com/zeroSteiner/rule-engine-sub000/pkgs/errors"
	"github.com/zeroSteiner/rule-engine-sub000/pkgs/lexer"
	"github.com/zeroSteiner/rule-engine-sub000/pkgs/types"
)

// Parser consumes a token slice produced by lexer.Tokenize and builds an
// ast.Node tree using recursive-descent precedence climbing over
// spec.md §4.2's twelve-level precedence table.
type Parser struct {
	tokens []lexer.Token
	pos    int
}

// Parse tokenizes and parses source in one step, returning the
// reduced (constant-folded) top-level Statement. typeCtx is optional
// (spec.md §6 "compile(text, context?) → Rule"): when supplied, the
// reduced statement is additionally type-checked against it (spec.md
// §4.2 step 1 "compatible_types"), so a compile-time type mismatch
// fails Parse instead of surfacing only at evaluation.
func Parse(source string, typeCtx ...ast.EvalContext) (*ast.Statement, error) {
	tokens, err := lexer.Tokenize(source)
	if err != nil {
		return nil, err
	}
	p := &Parser{tokens: tokens}
	body, err := p.parseTernary()
	if err != nil {
		return nil, err
	}
	if !p.at(lexer.EOF) {
		return nil, p.errorf("unexpected token %s", p.cur().Type)
	}
	stmt := &ast.Statement{Body: body}
	reduced, err := stmt.Reduce()
	if err != nil {
		return nil, err
	}
	result := reduced.(*ast.Statement)
	if len(typeCtx) > 0 && typeCtx[0] != nil {
		if err := ast.TypeCheck(result, typeCtx[0]); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (p *Parser) cur() lexer.Token { return p.tokens[p.pos] }

func (p *Parser) at(tt lexer.TokenType) bool { return p.cur().Type == tt }

func (p *Parser) advance() lexer.Token {
	tok := p.tokens[p.pos]
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return tok
}

func (p *Parser) expect(tt lexer.TokenType) (lexer.Token, error) {
	if !p.at(tt) {
		return lexer.Token{}, p.errorf("expected %s, found %s", tt, p.cur().Type)
	}
	return p.advance(), nil
}

func (p *Parser) errorf(format string, args ...any) error {
	tok := p.cur()
	pos := &errors.Position{Line: tok.Line, Column: tok.Column}
	return errors.NewSyntaxError(fmt.Sprintf(format, args...), pos)
}

// --- precedence level 1: ternary --------------------------------------

func (p *Parser) parseTernary() (ast.Node, error) {
	cond, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if !p.at(lexer.QUESTION) {
		return cond, nil
	}
	p.advance()
	then, err := p.parseTernary()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.COLON); err != nil {
		return nil, err
	}
	els, err := p.parseTernary()
	if err != nil {
		return nil, err
	}
	return &ast.Ternary{Cond: cond, Then: then, Else: els, Typ: types.Undefined}, nil
}

// --- precedence level 2: or --------------------------------------------

func (p *Parser) parseOr() (ast.Node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.at(lexer.OR) {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &ast.Logic{Op: ast.LogicOr, Left: left, Right: right}
	}
	return left, nil
}

// --- precedence level 3: and ---------------------------------------

func (p *Parser) parseAnd() (ast.Node, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.at(lexer.AND) {
		p.advance()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &ast.Logic{Op: ast.LogicAnd, Left: left, Right: right}
	}
	return left, nil
}

// --- precedence level 4: not ----------------------------------------

func (p *Parser) parseNot() (ast.Node, error) {
	if p.at(lexer.NOT) {
		p.advance()
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &ast.Unary{Op: ast.UnaryNot, Operand: operand}, nil
	}
	return p.parseContains()
}

// --- precedence level 5: in / not in --------------------------------
// "not" directly followed by "in" is read as the negated "not in".

func (p *Parser) parseContains() (ast.Node, error) {
	left, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	for {
		negate := false
		if p.at(lexer.NOT) && p.pos+1 < len(p.tokens) && p.tokens[p.pos+1].Type == lexer.IN {
			p.advance()
			negate = true
		} else if !p.at(lexer.IN) {
			return left, nil
		}
		p.advance()
		right, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		left = &ast.Contains{Negate: negate, Needle: left, Haystack: right}
	}
}

// --- precedence level 6: comparison (eq/ne, relational, fuzzy) -------

func (p *Parser) parseComparison() (ast.Node, error) {
	left, err := p.parseBitwiseOr()
	if err != nil {
		return nil, err
	}
	for {
		switch p.cur().Type {
		case lexer.EQ:
			p.advance()
			right, err := p.parseBitwiseOr()
			if err != nil {
				return nil, err
			}
			left = &ast.Comparison{Left: left, Right: right}
		case lexer.NE:
			p.advance()
			right, err := p.parseBitwiseOr()
			if err != nil {
				return nil, err
			}
			left = &ast.Comparison{Negate: true, Left: left, Right: right}
		case lexer.LT, lexer.LE, lexer.GT, lexer.GE:
			op := p.advance().Type
			right, err := p.parseBitwiseOr()
			if err != nil {
				return nil, err
			}
			left = &ast.ArithmeticComparison{Op: relOp(op), Left: left, Right: right}
		case lexer.REQ, lexer.RSEQ, lexer.RNE, lexer.RNSEQ:
			op := p.advance().Type
			right, err := p.parseBitwiseOr()
			if err != nil {
				return nil, err
			}
			left = &ast.FuzzyComparison{Op: fuzzyOp(op), Left: left, Pattern: right}
		default:
			return left, nil
		}
	}
}

func relOp(tt lexer.TokenType) ast.ArithmeticComparisonOp {
	switch tt {
	case lexer.LT:
		return ast.CmpLT
	case lexer.LE:
		return ast.CmpLE
	case lexer.GT:
		return ast.CmpGT
	default:
		return ast.CmpGE
	}
}

func fuzzyOp(tt lexer.TokenType) ast.FuzzyComparisonOp {
	switch tt {
	case lexer.REQ:
		return ast.FuzzyMatch
	case lexer.RSEQ:
		return ast.FuzzyMatchGroups
	case lexer.RNE:
		return ast.FuzzyNotMatch
	default:
		return ast.FuzzyNotMatchGroups
	}
}

// --- precedence level 7: bitwise or ----------------------------------

func (p *Parser) parseBitwiseOr() (ast.Node, error) {
	left, err := p.parseBitwiseXor()
	if err != nil {
		return nil, err
	}
	for p.at(lexer.PIPE) {
		p.advance()
		right, err := p.parseBitwiseXor()
		if err != nil {
			return nil, err
		}
		left = &ast.Bitwise{Op: ast.BitOr, Left: left, Right: right}
	}
	return left, nil
}

// --- precedence level 8: bitwise xor -----------------------------------

func (p *Parser) parseBitwiseXor() (ast.Node, error) {
	left, err := p.parseBitwiseAnd()
	if err != nil {
		return nil, err
	}
	for p.at(lexer.CARET) {
		p.advance()
		right, err := p.parseBitwiseAnd()
		if err != nil {
			return nil, err
		}
		left = &ast.Bitwise{Op: ast.BitXor, Left: left, Right: right}
	}
	return left, nil
}

// --- precedence level 9: bitwise and ------------------------------------

func (p *Parser) parseBitwiseAnd() (ast.Node, error) {
	left, err := p.parseShift()
	if err != nil {
		return nil, err
	}
	for p.at(lexer.AMP) {
		p.advance()
		right, err := p.parseShift()
		if err != nil {
			return nil, err
		}
		left = &ast.Bitwise{Op: ast.BitAnd, Left: left, Right: right}
	}
	return left, nil
}

// --- precedence level 10: shift -----------------------------------------

func (p *Parser) parseShift() (ast.Node, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for p.at(lexer.LSHIFT) || p.at(lexer.RSHIFT) {
		op := p.advance().Type
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		bop := ast.BitLShift
		if op == lexer.RSHIFT {
			bop = ast.BitRShift
		}
		left = &ast.Bitwise{Op: bop, Left: left, Right: right}
	}
	return left, nil
}

// --- precedence level 11: additive --------------------------------------

func (p *Parser) parseAdditive() (ast.Node, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.at(lexer.PLUS) || p.at(lexer.MINUS) {
		op := p.advance().Type
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		aop := ast.ArithAdd
		if op == lexer.MINUS {
			aop = ast.ArithSub
		}
		left = &ast.Arithmetic{Op: aop, Left: left, Right: right}
	}
	return left, nil
}

// --- precedence level 12: multiplicative --------------------------------

func (p *Parser) parseMultiplicative() (ast.Node, error) {
	left, err := p.parsePower()
	if err != nil {
		return nil, err
	}
	for {
		switch p.cur().Type {
		case lexer.STAR:
			p.advance()
			right, err := p.parsePower()
			if err != nil {
				return nil, err
			}
			left = &ast.Arithmetic{Op: ast.ArithMul, Left: left, Right: right}
		case lexer.SLASH:
			p.advance()
			right, err := p.parsePower()
			if err != nil {
				return nil, err
			}
			left = &ast.Arithmetic{Op: ast.ArithDiv, Left: left, Right: right}
		case lexer.DSLASH:
			p.advance()
			right, err := p.parsePower()
			if err != nil {
				return nil, err
			}
			left = &ast.Arithmetic{Op: ast.ArithFloorDiv, Left: left, Right: right}
		case lexer.PERCENT:
			p.advance()
			right, err := p.parsePower()
			if err != nil {
				return nil, err
			}
			left = &ast.Arithmetic{Op: ast.ArithMod, Left: left, Right: right}
		default:
			return left, nil
		}
	}
}

// unary minus binds tighter than "**", so "-2 ** 2" parses as
// "(-2) ** 2", matching spec.md's precedence table.
func (p *Parser) parseUnaryMinus() (ast.Node, error) {
	if p.at(lexer.MINUS) {
		p.advance()
		operand, err := p.parseUnaryMinus()
		if err != nil {
			return nil, err
		}
		return &ast.Unary{Op: ast.UnaryNegate, Operand: operand}, nil
	}
	return p.parsePostfix()
}

// --- precedence level 13: power (right-associative) ----------------------

func (p *Parser) parsePower() (ast.Node, error) {
	left, err := p.parseUnaryMinus()
	if err != nil {
		return nil, err
	}
	if p.at(lexer.DSTAR) {
		p.advance()
		right, err := p.parsePower()
		if err != nil {
			return nil, err
		}
		return &ast.Arithmetic{Op: ast.ArithPow, Left: left, Right: right}, nil
	}
	return left, nil
}

// --- precedence level 14: postfix (call, attribute, item, slice) --------

func (p *Parser) parsePostfix() (ast.Node, error) {
	node, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch p.cur().Type {
		case lexer.DOT, lexer.SAFEDOT:
			safe := p.cur().Type == lexer.SAFEDOT
			p.advance()
			name, err := p.expect(lexer.SYMBOL)
			if err != nil {
				return nil, err
			}
			node = &ast.GetAttribute{Object: node, Name: name.Value, Safe: safe, Typ: types.Undefined}
		case lexer.LBRACK, lexer.SAFELBRACK:
			safe := p.cur().Type == lexer.SAFELBRACK
			p.advance()
			node, err = p.parseIndexOrSlice(node, safe)
			if err != nil {
				return nil, err
			}
		case lexer.LPAREN:
			p.advance()
			args, err := p.parseCallArguments()
			if err != nil {
				return nil, err
			}
			node = &ast.Call{Callee: node, Arguments: args, Typ: types.Undefined}
		default:
			return node, nil
		}
	}
}

func (p *Parser) parseIndexOrSlice(obj ast.Node, safe bool) (ast.Node, error) {
	var start ast.Node
	if !p.at(lexer.COLON) {
		var err error
		start, err = p.parseTernary()
		if err != nil {
			return nil, err
		}
	}
	if p.at(lexer.COLON) {
		p.advance()
		var stop ast.Node
		if !p.at(lexer.RBRACK) {
			var err error
			stop, err = p.parseTernary()
			if err != nil {
				return nil, err
			}
		}
		if _, err := p.expect(lexer.RBRACK); err != nil {
			return nil, err
		}
		return &ast.GetSlice{Object: obj, Start: start, Stop: stop, Safe: safe, Typ: types.Undefined}, nil
	}
	if _, err := p.expect(lexer.RBRACK); err != nil {
		return nil, err
	}
	return &ast.GetItem{Object: obj, Index: start, Safe: safe, Typ: types.Undefined}, nil
}

func (p *Parser) parseCallArguments() ([]ast.Node, error) {
	var args []ast.Node
	if p.at(lexer.RPAREN) {
		p.advance()
		return args, nil
	}
	for {
		arg, err := p.parseTernary()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if p.at(lexer.COMMA) {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(lexer.RPAREN); err != nil {
		return nil, err
	}
	return args, nil
}

// --- precedence level 15: primary ---------------------------------------

func (p *Parser) parsePrimary() (ast.Node, error) {
	tok := p.cur()
	switch tok.Type {
	case lexer.FLOAT:
		p.advance()
		v, err := parseFloatLiteral(tok.Value)
		if err != nil {
			return nil, errors.New(errors.KindFloatSyntaxError, err.Error()).
				WithContext("position", errors.Position{Line: tok.Line, Column: tok.Column})
		}
		return &ast.Literal{Value: v}, nil
	case lexer.STRING:
		p.advance()
		return &ast.Literal{Value: types.NewString(tok.Value)}, nil
	case lexer.BYTES:
		p.advance()
		return &ast.Literal{Value: types.NewBytes([]byte(tok.Value))}, nil
	case lexer.DATETIME:
		p.advance()
		v, err := parseDatetimeLiteral(tok.Value)
		if err != nil {
			return nil, errors.New(errors.KindDatetimeSyntaxError, err.Error()).
				WithContext("position", errors.Position{Line: tok.Line, Column: tok.Column})
		}
		return &ast.Literal{Value: v}, nil
	case lexer.TIMEDELTA:
		p.advance()
		v, err := parseTimedeltaLiteral(tok.Value)
		if err != nil {
			return nil, errors.New(errors.KindTimedeltaSyntaxError, err.Error()).
				WithContext("position", errors.Position{Line: tok.Line, Column: tok.Column})
		}
		return &ast.Literal{Value: v}, nil
	case lexer.TRUE:
		p.advance()
		return &ast.Literal{Value: types.NewBool(true)}, nil
	case lexer.FALSE:
		p.advance()
		return &ast.Literal{Value: types.NewBool(false)}, nil
	case lexer.NULLTOK:
		p.advance()
		return &ast.Literal{Value: types.NewNull()}, nil
	case lexer.NAN:
		p.advance()
		return &ast.Literal{Value: types.NewNaN()}, nil
	case lexer.INF:
		p.advance()
		return &ast.Literal{Value: types.NewInf(1)}, nil
	case lexer.SYMBOL:
		p.advance()
		return &ast.Symbol{Name: tok.Value, IsBuiltin: tok.IsBuiltin}, nil
	case lexer.LPAREN:
		p.advance()
		inner, err := p.parseTernary()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.RPAREN); err != nil {
			return nil, err
		}
		return inner, nil
	case lexer.LBRACK:
		return p.parseArrayLiteralOrComprehension()
	case lexer.LBRACE:
		return p.parseSetOrMappingLiteralOrComprehension()
	case lexer.FOR:
		return nil, p.errorf("unexpected 'for'")
	}
	return nil, p.errorf("unexpected token %s", tok.Type)
}

func (p *Parser) parseArrayLiteralOrComprehension() (ast.Node, error) {
	p.advance() // consume '['
	if p.at(lexer.RBRACK) {
		p.advance()
		return &ast.ArrayLiteral{Typ: types.NewArray(types.Undefined, true)}, nil
	}
	first, err := p.parseTernary()
	if err != nil {
		return nil, err
	}
	if p.at(lexer.FOR) {
		comp, err := p.parseComprehensionTail(ast.ComprehensionArray, nil, first)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.RBRACK); err != nil {
			return nil, err
		}
		return comp, nil
	}
	elements := []ast.Node{first}
	for p.at(lexer.COMMA) {
		p.advance()
		if p.at(lexer.RBRACK) {
			break
		}
		el, err := p.parseTernary()
		if err != nil {
			return nil, err
		}
		elements = append(elements, el)
	}
	if _, err := p.expect(lexer.RBRACK); err != nil {
		return nil, err
	}
	return &ast.ArrayLiteral{Elements: elements, Typ: types.Undefined}, nil
}

func (p *Parser) parseSetOrMappingLiteralOrComprehension() (ast.Node, error) {
	p.advance() // consume '{'
	if p.at(lexer.RBRACE) {
		p.advance()
		mt, _ := types.NewMapping(types.Undefined, types.Undefined, true)
		return &ast.MappingLiteral{Typ: mt}, nil
	}
	firstKey, err := p.parseTernary()
	if err != nil {
		return nil, err
	}
	if p.at(lexer.COLON) {
		p.advance()
		firstVal, err := p.parseTernary()
		if err != nil {
			return nil, err
		}
		if p.at(lexer.FOR) {
			comp, err := p.parseComprehensionTail(ast.ComprehensionMapping, firstKey, firstVal)
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(lexer.RBRACE); err != nil {
				return nil, err
			}
			return comp, nil
		}
		entries := []ast.MappingEntry{{Key: firstKey, Value: firstVal}}
		for p.at(lexer.COMMA) {
			p.advance()
			if p.at(lexer.RBRACE) {
				break
			}
			k, err := p.parseTernary()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(lexer.COLON); err != nil {
				return nil, err
			}
			v, err := p.parseTernary()
			if err != nil {
				return nil, err
			}
			entries = append(entries, ast.MappingEntry{Key: k, Value: v})
		}
		if _, err := p.expect(lexer.RBRACE); err != nil {
			return nil, err
		}
		mt, _ := types.NewMapping(types.Undefined, types.Undefined, true)
		return &ast.MappingLiteral{Entries: entries, Typ: mt}, nil
	}
	if p.at(lexer.FOR) {
		comp, err := p.parseComprehensionTail(ast.ComprehensionSet, nil, firstKey)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.RBRACE); err != nil {
			return nil, err
		}
		return comp, nil
	}
	elements := []ast.Node{firstKey}
	for p.at(lexer.COMMA) {
		p.advance()
		if p.at(lexer.RBRACE) {
			break
		}
		el, err := p.parseTernary()
		if err != nil {
			return nil, err
		}
		elements = append(elements, el)
	}
	if _, err := p.expect(lexer.RBRACE); err != nil {
		return nil, err
	}
	return &ast.SetLiteral{Elements: elements, Typ: types.Undefined}, nil
}

// parseComprehensionTail parses "for x in y [if z]" after the leading
// value (and, for mappings, key) expressions have already been parsed.
func (p *Parser) parseComprehensionTail(kind ast.ComprehensionKind, keyExpr, valueExpr ast.Node) (ast.Node, error) {
	if _, err := p.expect(lexer.FOR); err != nil {
		return nil, err
	}
	varTok, err := p.expect(lexer.SYMBOL)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.IN); err != nil {
		return nil, err
	}
	iterable, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	var cond ast.Node
	if p.at(lexer.IF) {
		p.advance()
		cond, err = p.parseOr()
		if err != nil {
			return nil, err
		}
	}
	return &ast.Comprehension{
		Kind:      kind,
		Var:       varTok.Value,
		Iterable:  iterable,
		Condition: cond,
		KeyExpr:   keyExpr,
		ValueExpr: valueExpr,
		Typ:       types.Undefined,
	}, nil
}

func parseFloatLiteral(raw string) (types.Value, error) {
	s := raw
	switch {
	case strings.HasPrefix(s, "0x"), strings.HasPrefix(s, "0X"):
		n, err := strconv.ParseInt(s[2:], 16, 64)
		if err != nil {
			return types.Value{}, err
		}
		return types.NewFloat(decimal.NewFromInt(n)), nil
	case strings.HasPrefix(s, "0o"), strings.HasPrefix(s, "0O"):
		n, err := strconv.ParseInt(s[2:], 8, 64)
		if err != nil {
			return types.Value{}, err
		}
		return types.NewFloat(decimal.NewFromInt(n)), nil
	case strings.HasPrefix(s, "0b"), strings.HasPrefix(s, "0B"):
		n, err := strconv.ParseInt(s[2:], 2, 64)
		if err != nil {
			return types.Value{}, err
		}
		return types.NewFloat(decimal.NewFromInt(n)), nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return types.Value{}, err
	}
	return types.NewFloat(d), nil
}
