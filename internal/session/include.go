package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/specialistvlad/launchgrid/internal/ctxlog"
	"github.com/specialistvlad/launchgrid/internal/dag"
	"github.com/specialistvlad/launchgrid/internal/model"
	"github.com/specialistvlad/launchgrid/internal/subst"
)

// include resolves another session file inline. The included file sees a
// fresh context holding only the arguments passed to it; variables and
// parameter overrides of the includer do not leak in, and nothing it sets
// leaks out. The process environment is shared.
func (r *resolver) include(ctx context.Context, scope *Scope, a *model.IncludeSession) error {
	env := r.substEnv(scope)
	path, err := subst.Resolve(ctx, a.Path, env)
	if err != nil {
		return fmt.Errorf("include %q at %s: path: %w", a.Label(), a.Origin(), err)
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(a.Origin().Dir(), path)
	}
	path = absPath(path)

	if err := r.checkIncludeCycle(path); err != nil {
		return err
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &SessionNotFoundError{Path: path, Err: err}
		}
		return fmt.Errorf("include %s: %w", path, err)
	}

	mapping := make(map[string]string, len(a.Arguments))
	for _, b := range a.Arguments {
		v, err := subst.Resolve(ctx, b.Value, env)
		if err != nil {
			return fmt.Errorf("include %q at %s: argument %s: %w", a.Label(), a.Origin(), b.Name, err)
		}
		mapping[b.Name] = v
	}

	desc, err := r.opts.Loader.Load(ctx, path)
	if err != nil {
		return fmt.Errorf("include %s: %w", path, err)
	}

	ctx, logger := ctxlog.With(ctx, "include", filepath.Base(path))
	logger.Debug("Including session.", "path", path, "arguments", len(mapping))
	r.includes = append(r.includes, path)
	defer func() { r.includes = r.includes[:len(r.includes)-1] }()
	r.plan.Includes = append(r.plan.Includes, path)

	child := NewScope()
	if err := r.bindArguments(ctx, child, desc, mapping); err != nil {
		return fmt.Errorf("include %s: %w", path, err)
	}
	if err := r.resolveActions(ctx, child, desc.Actions); err != nil {
		return fmt.Errorf("include %s: %w", path, err)
	}
	return nil
}

// checkIncludeCycle rejects path when it already appears in the chain of
// files being resolved.
func (r *resolver) checkIncludeCycle(path string) error {
	g := dag.Chain(r.includes...)
	if n := len(r.includes); n > 0 {
		g.AddEdge(r.includes[n-1], path)
	}
	var cycle *dag.CycleError[string]
	if err := g.FindCycle(); errors.As(err, &cycle) {
		return &IncludeCycleError{Chain: cycle.Path}
	} else if err != nil {
		return err
	}
	return nil
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}
