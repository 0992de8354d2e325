package lexer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	engineerrors "github.com/zeroSteiner/rule-engine-sub000/pkgs/errors"
	"github.com/zeroSteiner/rule-engine-sub000/pkgs/lexer"
)

func types(tokens []lexer.Token) []lexer.TokenType {
	out := make([]lexer.TokenType, len(tokens))
	for i, tok := range tokens {
		out[i] = tok.Type
	}
	return out
}

func TestTokenizeOperators(t *testing.T) {
	toks, err := lexer.Tokenize("1 + 2 * 3 ** 4 // 5 % 6")
	require.NoError(t, err)
	assert.Equal(t, []lexer.TokenType{
		lexer.FLOAT, lexer.PLUS, lexer.FLOAT, lexer.STAR, lexer.FLOAT, lexer.DSTAR,
		lexer.FLOAT, lexer.DSLASH, lexer.FLOAT, lexer.PERCENT, lexer.FLOAT, lexer.EOF,
	}, types(toks))
}

func TestTokenizeComparisonAndFuzzy(t *testing.T) {
	toks, err := lexer.Tokenize("a =~ b and c !~~ d")
	require.NoError(t, err)
	assert.Equal(t, []lexer.TokenType{
		lexer.SYMBOL, lexer.REQ, lexer.SYMBOL, lexer.AND, lexer.SYMBOL, lexer.RNSEQ, lexer.SYMBOL, lexer.EOF,
	}, types(toks))
}

func TestTokenizeSafeAccess(t *testing.T) {
	toks, err := lexer.Tokenize("x&.y &[ 0 ]")
	require.NoError(t, err)
	assert.Equal(t, []lexer.TokenType{
		lexer.SYMBOL, lexer.SAFEDOT, lexer.SYMBOL, lexer.SAFELBRACK, lexer.FLOAT, lexer.RBRACK, lexer.EOF,
	}, types(toks))
}

func TestTokenizeReservedWords(t *testing.T) {
	toks, err := lexer.Tokenize("true and false or not null")
	require.NoError(t, err)
	assert.Equal(t, []lexer.TokenType{
		lexer.TRUE, lexer.AND, lexer.FALSE, lexer.OR, lexer.NOT, lexer.NULLTOK, lexer.EOF,
	}, types(toks))
}

func TestTokenizeFutureReservedWordRejected(t *testing.T) {
	_, err := lexer.Tokenize("else")
	require.Error(t, err)
	assert.True(t, engineerrors.Is(err, engineerrors.KindRuleSyntaxError))
}

func TestTokenizeStringLiteralEscapes(t *testing.T) {
	toks, err := lexer.Tokenize(`"hello\nworld"`)
	require.NoError(t, err)
	require.Len(t, toks, 2)
	assert.Equal(t, lexer.STRING, toks[0].Type)
	assert.Equal(t, "hello\nworld", toks[0].Value)
}

func TestTokenizePrefixedLiterals(t *testing.T) {
	toks, err := lexer.Tokenize(`s'str' b'bytes' d'2020-01-01T00:00:00' t'1'`)
	require.NoError(t, err)
	assert.Equal(t, []lexer.TokenType{
		lexer.STRING, lexer.BYTES, lexer.DATETIME, lexer.TIMEDELTA, lexer.EOF,
	}, types(toks))
	assert.Equal(t, "str", toks[0].Value)
	assert.Equal(t, "bytes", toks[1].Value)
}

func TestTokenizeIdentifierThatLooksLikePrefixButIsnt(t *testing.T) {
	toks, err := lexer.Tokenize("stock and big")
	require.NoError(t, err)
	assert.Equal(t, lexer.SYMBOL, toks[0].Type)
	assert.Equal(t, "stock", toks[0].Value)
}

func TestTokenizeLeadingZeroFloatRejected(t *testing.T) {
	_, err := lexer.Tokenize("007")
	require.Error(t, err)
	assert.True(t, engineerrors.Is(err, engineerrors.KindFloatSyntaxError))
}

func TestTokenizeHexOctalBinaryFloats(t *testing.T) {
	toks, err := lexer.Tokenize("0x1F 0o17 0b101")
	require.NoError(t, err)
	require.Len(t, toks, 4)
	assert.Equal(t, "0x1F", toks[0].Value)
	assert.Equal(t, "0o17", toks[1].Value)
	assert.Equal(t, "0b101", toks[2].Value)
}

func TestTokenizeAttributeAccessDot(t *testing.T) {
	toks, err := lexer.Tokenize("a.b")
	require.NoError(t, err)
	assert.Equal(t, []lexer.TokenType{lexer.SYMBOL, lexer.DOT, lexer.SYMBOL, lexer.EOF}, types(toks))
}

func TestTokenizeFloatWithExponent(t *testing.T) {
	toks, err := lexer.Tokenize("1.5e10 2e-3")
	require.NoError(t, err)
	assert.Equal(t, "1.5e10", toks[0].Value)
	assert.Equal(t, "2e-3", toks[1].Value)
}

func TestTokenizeIllegalCharacter(t *testing.T) {
	_, err := lexer.Tokenize("@")
	require.Error(t, err)
	assert.True(t, engineerrors.Is(err, engineerrors.KindRuleSyntaxError))
}

func TestTokenizeComment(t *testing.T) {
	toks, err := lexer.Tokenize("1 + 1 # add two\n+ 2")
	require.NoError(t, err)
	assert.Equal(t, []lexer.TokenType{
		lexer.FLOAT, lexer.PLUS, lexer.FLOAT, lexer.PLUS, lexer.FLOAT, lexer.EOF,
	}, types(toks))
}

func TestTokenizeBuiltinSymbolPrefix(t *testing.T) {
	toks, err := lexer.Tokenize("$f.pi")
	require.NoError(t, err)
	assert.Equal(t, lexer.SYMBOL, toks[0].Type)
}
