package subst

import (
	"context"
	"fmt"
	"math/big"
	"path/filepath"
	"strconv"
	"strings"
)

// Expr is a launch-time substitution.
type Expr interface {
	// Resolve computes the expression's string value against env.
	Resolve(ctx context.Context, env *Env) (string, error)
	// String renders the expression in session-file syntax for plans and
	// error messages.
	String() string
}

// Literal is a fixed string.
type Literal struct {
	Value string
}

// Lit is shorthand for a Literal.
func Lit(s string) Literal { return Literal{Value: s} }

func (l Literal) Resolve(context.Context, *Env) (string, error) { return l.Value, nil }
func (l Literal) String() string                                { return strconv.Quote(l.Value) }

// Var references a runtime-context value, falling back to Default when
// unbound.
type Var struct {
	Name    string
	Default Expr
}

// Ref is shorthand for a Var without default.
func Ref(name string) Var { return Var{Name: name} }

func (v Var) Resolve(ctx context.Context, env *Env) (string, error) {
	if val, ok := env.lookup(v.Name); ok {
		return val, nil
	}
	if v.Default != nil {
		return Resolve(ctx, v.Default, env)
	}
	return "", &UnresolvedVariableError{Kind: "variable", Name: v.Name}
}

func (v Var) String() string {
	if v.Default != nil {
		return fmt.Sprintf("default(var.%s, %s)", v.Name, v.Default)
	}
	return "var." + v.Name
}

// EnvVar reads an environment variable of the orchestrator process.
type EnvVar struct {
	Name    string
	Default Expr
}

func (e EnvVar) Resolve(ctx context.Context, env *Env) (string, error) {
	if val, ok := env.lookupEnv(e.Name); ok {
		return val, nil
	}
	if e.Default != nil {
		return Resolve(ctx, e.Default, env)
	}
	return "", &UnresolvedVariableError{Kind: "environment variable", Name: e.Name}
}

func (e EnvVar) String() string {
	if e.Default != nil {
		return fmt.Sprintf("env(%q, %s)", e.Name, e.Default)
	}
	return "env." + e.Name
}

// Command runs an external program and resolves to its standard output,
// verbatim. Each element of Argv becomes exactly one argument.
type Command struct {
	Argv []Expr
}

func (c Command) Resolve(ctx context.Context, env *Env) (string, error) {
	argv, err := ResolveAll(ctx, c.Argv, env)
	if err != nil {
		return "", err
	}
	if len(argv) == 0 || argv[0] == "" {
		return "", &ExternalCommandError{Argv: argv, ExitCode: 127, Err: fmt.Errorf("empty command")}
	}
	res, err := env.runner().Run(ctx, env.CommandEnv, argv[0], argv[1:]...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", &ExternalCommandError{Argv: argv, ExitCode: res.ExitCode, Stderr: string(res.Stderr), Err: err}
	}
	return string(res.Stdout), nil
}

func (c Command) String() string { return "command(" + joinExprs(c.Argv) + ")" }

// Concat joins the values of its parts with no separator.
type Concat struct {
	Parts []Expr
}

func (c Concat) Resolve(ctx context.Context, env *Env) (string, error) {
	parts, err := ResolveAll(ctx, c.Parts, env)
	if err != nil {
		return "", err
	}
	return strings.Join(parts, ""), nil
}

func (c Concat) String() string {
	var b strings.Builder
	b.WriteByte('"')
	for _, p := range c.Parts {
		if lit, ok := p.(Literal); ok {
			b.WriteString(lit.Value)
			continue
		}
		b.WriteString("${")
		b.WriteString(p.String())
		b.WriteByte('}')
	}
	b.WriteByte('"')
	return b.String()
}

// PathJoin joins its parts as file path elements.
type PathJoin struct {
	Parts []Expr
}

func (p PathJoin) Resolve(ctx context.Context, env *Env) (string, error) {
	parts, err := ResolveAll(ctx, p.Parts, env)
	if err != nil {
		return "", err
	}
	return filepath.Join(parts...), nil
}

func (p PathJoin) String() string { return "join_path(" + joinExprs(p.Parts) + ")" }

// Share resolves to the share directory of an installed package.
type Share struct {
	Package Expr
}

func (s Share) Resolve(ctx context.Context, env *Env) (string, error) {
	pkg, err := Resolve(ctx, s.Package, env)
	if err != nil {
		return "", err
	}
	return env.Prefixes.Share(pkg)
}

func (s Share) String() string { return "share(" + s.Package.String() + ")" }

// Equals compares two values. Values that both read as booleans compare as
// booleans, values that both read as numbers compare numerically, anything
// else compares as strings.
type Equals struct {
	Left, Right Expr
}

func (e Equals) Resolve(ctx context.Context, env *Env) (string, error) {
	eq, err := equal(ctx, e.Left, e.Right, env)
	if err != nil {
		return "", err
	}
	return formatBool(eq), nil
}

func (e Equals) String() string { return fmt.Sprintf("(%s == %s)", e.Left, e.Right) }

// NotEquals is the negation of Equals.
type NotEquals struct {
	Left, Right Expr
}

func (e NotEquals) Resolve(ctx context.Context, env *Env) (string, error) {
	eq, err := equal(ctx, e.Left, e.Right, env)
	if err != nil {
		return "", err
	}
	return formatBool(!eq), nil
}

func (e NotEquals) String() string { return fmt.Sprintf("(%s != %s)", e.Left, e.Right) }

func equal(ctx context.Context, left, right Expr, env *Env) (bool, error) {
	l, err := Resolve(ctx, left, env)
	if err != nil {
		return false, err
	}
	r, err := Resolve(ctx, right, env)
	if err != nil {
		return false, err
	}
	if lb, ok := ParseBool(l); ok {
		if rb, ok := ParseBool(r); ok {
			return lb == rb, nil
		}
	}
	lf, lok := new(big.Float).SetString(strings.TrimSpace(l))
	rf, rok := new(big.Float).SetString(strings.TrimSpace(r))
	if lok && rok {
		return lf.Cmp(rf) == 0, nil
	}
	return l == r, nil
}

// And is true when every term is true. Terms are evaluated left to right and
// evaluation stops at the first false term.
type And struct {
	Terms []Expr
}

func (a And) Resolve(ctx context.Context, env *Env) (string, error) {
	for _, t := range a.Terms {
		ok, err := Truth(ctx, t, env)
		if err != nil {
			return "", err
		}
		if !ok {
			return "false", nil
		}
	}
	return "true", nil
}

func (a And) String() string { return "(" + joinWith(a.Terms, " && ") + ")" }

// Or is true when any term is true, stopping at the first true term.
type Or struct {
	Terms []Expr
}

func (o Or) Resolve(ctx context.Context, env *Env) (string, error) {
	for _, t := range o.Terms {
		ok, err := Truth(ctx, t, env)
		if err != nil {
			return "", err
		}
		if ok {
			return "true", nil
		}
	}
	return "false", nil
}

func (o Or) String() string { return "(" + joinWith(o.Terms, " || ") + ")" }

// Not negates a boolean.
type Not struct {
	X Expr
}

func (n Not) Resolve(ctx context.Context, env *Env) (string, error) {
	ok, err := Truth(ctx, n.X, env)
	if err != nil {
		return "", err
	}
	return formatBool(!ok), nil
}

func (n Not) String() string { return "!" + n.X.String() }

// If selects Then or Else depending on Cond. Only the selected branch is
// resolved.
type If struct {
	Cond, Then, Else Expr
}

func (i If) Resolve(ctx context.Context, env *Env) (string, error) {
	ok, err := Truth(ctx, i.Cond, env)
	if err != nil {
		return "", err
	}
	if ok {
		return Resolve(ctx, i.Then, env)
	}
	return Resolve(ctx, i.Else, env)
}

func (i If) String() string { return fmt.Sprintf("(%s ? %s : %s)", i.Cond, i.Then, i.Else) }

func joinExprs(exprs []Expr) string { return joinWith(exprs, ", ") }

func joinWith(exprs []Expr, sep string) string {
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = e.String()
	}
	return strings.Join(parts, sep)
}
