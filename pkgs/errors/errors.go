// Package errors defines the taxonomy of failures the rule engine raises,
// from lexing through evaluation.
package errors

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Kind identifies which member of the engine's error taxonomy an
// EngineError belongs to.
type Kind string

const (
	// Syntax errors, raised while compiling rule text.
	KindRuleSyntaxError      Kind = "RULE_SYNTAX_ERROR"
	KindStringSyntaxError    Kind = "STRING_SYNTAX_ERROR"
	KindBytesSyntaxError     Kind = "BYTES_SYNTAX_ERROR"
	KindFloatSyntaxError     Kind = "FLOAT_SYNTAX_ERROR"
	KindDatetimeSyntaxError  Kind = "DATETIME_SYNTAX_ERROR"
	KindTimedeltaSyntaxError Kind = "TIMEDELTA_SYNTAX_ERROR"
	KindRegexSyntaxError     Kind = "REGEX_SYNTAX_ERROR"

	// Evaluation errors, raised while building (reduction) or evaluating.
	KindEvaluationError          Kind = "EVALUATION_ERROR"
	KindAttributeResolutionError Kind = "ATTRIBUTE_RESOLUTION_ERROR"
	KindSymbolResolutionError    Kind = "SYMBOL_RESOLUTION_ERROR"
	KindSymbolTypeError          Kind = "SYMBOL_TYPE_ERROR"
	KindAttributeTypeError       Kind = "ATTRIBUTE_TYPE_ERROR"
	KindLookupError              Kind = "LOOKUP_ERROR"
	KindFunctionCallError        Kind = "FUNCTION_CALL_ERROR"
)

// EngineError is the single concrete error type raised by every package
// in the engine. Callers distinguish failures by Kind rather than by Go
// type, the same way the taxonomy in spec.md §7 is a flat enumeration of
// named error conditions.
type EngineError struct {
	Kind    Kind
	Message string
	Cause   error
	Context map[string]any
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap allows errors.Is/errors.As to see through to Cause.
func (e *EngineError) Unwrap() error {
	return e.Cause
}

// New creates an EngineError with no wrapped cause.
func New(kind Kind, message string) *EngineError {
	return &EngineError{Kind: kind, Message: message, Context: make(map[string]any)}
}

// Newf creates an EngineError with a formatted message.
func Newf(kind Kind, format string, args ...any) *EngineError {
	return New(kind, fmt.Sprintf(format, args...))
}

// Wrap creates an EngineError that wraps an existing error as its Cause.
func Wrap(kind Kind, message string, cause error) *EngineError {
	return &EngineError{Kind: kind, Message: message, Cause: cause, Context: make(map[string]any)}
}

// WithContext attaches a diagnostic key/value and returns the receiver for
// chaining, mirroring the teacher's builder-style construction.
func (e *EngineError) WithContext(key string, value any) *EngineError {
	e.Context[key] = value
	return e
}

// Is reports whether err is an *EngineError of the given Kind.
func Is(err error, kind Kind) bool {
	ee, ok := err.(*EngineError)
	return ok && ee.Kind == kind
}

// Position describes a line/column location in rule source text, attached
// to syntax errors the way the Python PLY token carried lineno/lexpos.
type Position struct {
	Line   int
	Column int
}

func (p Position) String() string {
	return fmt.Sprintf("line %d:%d", p.Line, p.Column)
}

// NewSyntaxError constructs a RuleSyntaxError carrying the offending
// token's position, or "EOF" when pos is nil, per spec.md §4.2.
func NewSyntaxError(message string, pos *Position) *EngineError {
	loc := "EOF"
	if pos != nil {
		loc = pos.String()
	}
	err := New(KindRuleSyntaxError, message+" at: "+loc)
	if pos != nil {
		err.WithContext("position", *pos)
	}
	return err
}

// NewSymbolResolutionError builds the error spec.md §4.3 "Symbols" raises
// when a name can't be resolved, attaching a suggestion if one is found
// among candidates.
func NewSymbolResolutionError(name string, scope string, candidates []string) *EngineError {
	err := Newf(KindSymbolResolutionError, "unknown symbol: %q", name)
	err.WithContext("symbol_name", name)
	if scope != "" {
		err.WithContext("symbol_scope", scope)
	}
	if suggestion, ok := SuggestSymbol(name, candidates); ok {
		err.WithContext("suggestion", suggestion)
	}
	return err
}

// NewAttributeResolutionError builds the error §4.3 "Attribute access"
// raises when a resolver rejects an attribute name.
func NewAttributeResolutionError(name string, candidates []string) *EngineError {
	err := Newf(KindAttributeResolutionError, "unknown attribute: %q", name)
	err.WithContext("attribute_name", name)
	if suggestion, ok := SuggestSymbol(name, candidates); ok {
		err.WithContext("suggestion", suggestion)
	}
	return err
}

// NewSymbolTypeError builds the error raised when a resolved value's
// coerced type doesn't match a symbol's declared type.
func NewSymbolTypeError(name, isType, expectedType string) *EngineError {
	return Newf(KindSymbolTypeError, "symbol %q resolved to incorrect datatype (is: %s, expected: %s)", name, isType, expectedType).
		WithContext("symbol_name", name)
}

// NewAttributeTypeError is the attribute-access analogue of
// NewSymbolTypeError.
func NewAttributeTypeError(name, isType, expectedType string) *EngineError {
	return Newf(KindAttributeTypeError, "attribute %q resolved to incorrect datatype (is: %s, expected: %s)", name, isType, expectedType).
		WithContext("attribute_name", name)
}

// NewLookupError builds the error §4.3 "Item access and slicing" raises
// for an out-of-range index or missing mapping key.
func NewLookupError(item any) *EngineError {
	return Newf(KindLookupError, "lookup operation failed").WithContext("item", item)
}

// NewFunctionCallError wraps the error a function call failed with (the
// function's own returned error, or a signature-validation error); host
// panics are not recovered.
func NewFunctionCallError(name string, cause error) *EngineError {
	return Wrap(KindFunctionCallError, fmt.Sprintf("call to %q failed", name), cause).WithContext("function_name", name)
}

// IsValidIdentifier matches the lexer's SYMBOL grammar
// ([A-Za-z_][A-Za-z0-9_]*), used to filter suggestion candidates down to
// names a user could actually type, per spec.md §7 "Diagnostic
// suggestion".
func IsValidIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_':
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

// SuggestSymbol selects the best match for word among options, filtered to
// valid identifiers, using fuzzy string ranking in place of the Python
// original's hand-rolled Jaro-Winkler distance
// (original_source/lib/rule_engine/suggestions.py).
func SuggestSymbol(word string, options []string) (string, bool) {
	candidates := make([]string, 0, len(options))
	for _, opt := range options {
		if IsValidIdentifier(opt) {
			candidates = append(candidates, opt)
		}
	}
	if len(candidates) == 0 {
		return "", false
	}
	ranks := fuzzy.RankFindNormalizedFold(word, candidates)
	if len(ranks) == 0 {
		// fall back to the candidate with the smallest edit distance even
		// when RankFind's similarity threshold excludes every candidate.
		sort.Slice(candidates, func(i, j int) bool {
			return fuzzy.LevenshteinDistance(strings.ToLower(word), strings.ToLower(candidates[i])) <
				fuzzy.LevenshteinDistance(strings.ToLower(word), strings.ToLower(candidates[j]))
		})
		return candidates[0], true
	}
	sort.Sort(ranks)
	return ranks[0].Target, true
}
