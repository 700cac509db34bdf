package subst

import (
	"context"
	"os"

	"github.com/specialistvlad/launchgrid/internal/fsutil"
	"github.com/specialistvlad/launchgrid/internal/tools"
)

// Scope is the read side of a runtime context.
type Scope interface {
	Lookup(name string) (string, bool)
}

// MapScope is a Scope backed by a plain map.
type MapScope map[string]string

// Lookup implements Scope.
func (m MapScope) Lookup(name string) (string, bool) {
	v, ok := m[name]
	return v, ok
}

// Env carries everything an expression may consult while resolving.
type Env struct {
	Scope Scope
	// Runner executes Command substitutions. Defaults to tools.ExecRunner.
	Runner tools.CommandRunner
	// CommandEnv is the environment given to Command substitutions. Nil
	// inherits the orchestrator's environment.
	CommandEnv []string
	// LookupEnv reads process environment variables. Defaults to os.LookupEnv.
	LookupEnv func(string) (string, bool)
	// Prefixes locates installed packages for Share.
	Prefixes fsutil.PrefixPath
}

// WithScope returns a shallow copy of env that resolves against scope.
func (env *Env) WithScope(scope Scope) *Env {
	cp := *env
	cp.Scope = scope
	return &cp
}

func (env *Env) runner() tools.CommandRunner {
	if env.Runner == nil {
		return tools.ExecRunner{}
	}
	return env.Runner
}

func (env *Env) lookupEnv(name string) (string, bool) {
	if env.LookupEnv == nil {
		return os.LookupEnv(name)
	}
	return env.LookupEnv(name)
}

func (env *Env) lookup(name string) (string, bool) {
	if env.Scope == nil {
		return "", false
	}
	return env.Scope.Lookup(name)
}

// Resolve turns expr into a string. A nil expression resolves to "".
func Resolve(ctx context.Context, expr Expr, env *Env) (string, error) {
	if expr == nil {
		return "", nil
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return expr.Resolve(ctx, env)
}

// ResolveAll resolves each expression in order.
func ResolveAll(ctx context.Context, exprs []Expr, env *Env) ([]string, error) {
	out := make([]string, 0, len(exprs))
	for _, e := range exprs {
		s, err := Resolve(ctx, e, env)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// Truth resolves expr as a condition. A nil expression is true.
func Truth(ctx context.Context, expr Expr, env *Env) (bool, error) {
	if expr == nil {
		return true, nil
	}
	s, err := Resolve(ctx, expr, env)
	if err != nil {
		return false, err
	}
	b, ok := ParseBool(s)
	if !ok {
		return false, &InvalidGuardError{Expr: expr.String(), Value: s}
	}
	return b, nil
}
