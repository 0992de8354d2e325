package engine

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/zeroSteiner/rule-engine-sub000/pkgs/ast"
	"github.com/zeroSteiner/rule-engine-sub000/pkgs/errors"
	"github.com/zeroSteiner/rule-engine-sub000/pkgs/parser"
	"github.com/zeroSteiner/rule-engine-sub000/pkgs/types"
)

// Rule is an immutable, compiled expression, safe for concurrent
// evaluation against different Contexts, per spec.md §6 "Concurrency &
// resource model". Compiling is the only mutating operation; a *Rule
// never changes after Compile returns one.
type Rule struct {
	source string
	body   *ast.Statement
}

// Compile parses and reduces source into an immutable Rule, per
// spec.md §6 "compile(text, context?) → Rule". When ctx is supplied,
// every symbol/attribute reference is additionally type-checked
// against ctx's type resolvers at construction time (spec.md §4.2
// step 1 "compatible_types"), so an incompatible rule fails Compile
// instead of only surfacing the mismatch at Evaluate time. The
// returned error is always an *errors.EngineError.
func Compile(source string, ctx ...*Context) (*Rule, error) {
	var stmt *ast.Statement
	var err error
	if len(ctx) > 0 && ctx[0] != nil {
		stmt, err = parser.Parse(source, ctx[0])
	} else {
		stmt, err = parser.Parse(source)
	}
	if err != nil {
		return nil, err
	}
	return &Rule{source: source, body: stmt}, nil
}

// Source returns the original rule text the Rule was compiled from.
func (r *Rule) Source() string { return r.source }

// ResultType reports the rule body's static result type, types.Undefined
// when it can't be known without a Context (e.g. an unbound symbol).
func (r *Rule) ResultType() types.DataType { return r.body.ResultType() }

// Evaluate runs the rule against ctx and returns its result value, per
// spec.md §5 "Evaluate". Concurrent calls against distinct Contexts (or
// Contexts with no shared mutable state) are safe; a single Context must
// not be shared across concurrent Evaluate calls because of its
// regex-groups scratch.
func (r *Rule) Evaluate(ctx *Context) (types.Value, error) {
	return r.body.Evaluate(ctx)
}

// Matches evaluates the rule and coerces its result to a boolean via
// the engine's truthiness rule, per spec.md §5 "Matches". A non-BOOLEAN
// result is not an error: Matches always applies truthiness coercion.
func (r *Rule) Matches(ctx *Context) (bool, error) {
	v, err := r.Evaluate(ctx)
	if err != nil {
		return false, err
	}
	return v.IsTruthy(), nil
}

// IsValid type-checks the rule against ctx's type resolvers without
// evaluating it, per spec.md §5 "IsValid". A rule is valid if every
// symbol/attribute it references resolves to a known, compatible type;
// an unresolvable symbol with no type information is tolerated (it
// remains UNDEFINED until evaluation), matching the original's
// permissive static check.
func (r *Rule) IsValid(ctx *Context) bool {
	return validate(r.body, ctx)
}

func validate(n ast.Node, ctx *Context) bool {
	switch node := n.(type) {
	case *ast.Symbol:
		if node.IsBuiltin {
			return true
		}
		_, err := ctx.ResolveSymbolType(node.Name, false)
		return err == nil
	case *ast.Statement:
		return validate(node.Body, ctx)
	default:
		return true
	}
}

// Disassemble renders a rule whose body folded to a single literal as
// that literal's types.Repr, and any other rule as the placeholder
// "<expr>", useful for confirming constant folding took place. It does
// not render the structure of an unfolded AST.
func (r *Rule) Disassemble() string {
	return disassemble(r.body)
}

func disassemble(n ast.Node) string {
	if lit, ok := n.(*ast.Literal); ok {
		return types.Repr(lit.Value)
	}
	return "<expr>"
}

// Filter evaluates Matches for every item in items sequentially,
// returning the subset for which the rule matched, per spec.md §5
// "Filter". resolve builds the Context for a given item.
func (r *Rule) Filter(items []any, resolve func(item any) *Context) ([]any, error) {
	var out []any
	for _, item := range items {
		ok, err := r.Matches(resolve(item))
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, item)
		}
	}
	return out, nil
}

// FilterConcurrent is the concurrent counterpart to Filter, evaluating
// items across a bounded pool of goroutines via errgroup, per spec.md
// §6 "Concurrent Filter". Each item gets its own Context (from resolve),
// so there is no shared mutable evaluation state across goroutines. The
// returned slice preserves the input order of matching items.
func FilterConcurrent(ctx context.Context, r *Rule, items []any, resolve func(item any) *Context, concurrency int) ([]any, error) {
	if concurrency <= 0 {
		concurrency = 1
	}
	matched := make([]bool, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			ok, err := r.Matches(resolve(item))
			if err != nil {
				return errors.Wrap(errors.KindEvaluationError, "concurrent filter item failed", err)
			}
			matched[i] = ok
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]any, 0, len(items))
	for i, item := range items {
		if matched[i] {
			out = append(out, item)
		}
	}
	return out, nil
}
