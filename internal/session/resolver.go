package session

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/specialistvlad/launchgrid/internal/cleanup"
	"github.com/specialistvlad/launchgrid/internal/ctxlog"
	"github.com/specialistvlad/launchgrid/internal/ephemeral"
	"github.com/specialistvlad/launchgrid/internal/model"
	"github.com/specialistvlad/launchgrid/internal/params"
	"github.com/specialistvlad/launchgrid/internal/subst"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// resolver walks a description and realizes its effects. It is used by a
// single goroutine.
type resolver struct {
	opts      *Options
	reg       *cleanup.Registry
	params    *params.Materializer
	artifacts *ephemeral.Manager
	realizer  Realizer
	plan      *Plan
	environ   environ
	includes  []string
	started   map[string]bool
}

func (r *resolver) substEnv(scope *Scope) *subst.Env {
	return &subst.Env{
		Scope:      scope,
		Runner:     r.opts.Runner,
		CommandEnv: r.environ,
		LookupEnv:  r.environ.lookup,
		Prefixes:   r.opts.Prefixes,
	}
}

// resolveRoot binds the top-level arguments and resolves the forest.
func (r *resolver) resolveRoot(ctx context.Context, desc *model.Description, overrides map[string]string) error {
	logger := ctxlog.FromContext(ctx)
	scope := NewScope()

	unknown := make([]string, 0)
	for name := range overrides {
		if _, ok := desc.Argument(name); !ok {
			unknown = append(unknown, name)
		}
	}
	sort.Strings(unknown)
	for _, name := range unknown {
		logger.Warn("Override does not match a declared argument, keeping it as a variable.", "name", name)
	}

	if err := r.bindArguments(ctx, scope, desc, overrides); err != nil {
		return err
	}
	for _, a := range desc.Arguments {
		v, _ := scope.Lookup(a.Name)
		r.plan.Arguments = append(r.plan.Arguments, Binding{Name: a.Name, Value: v})
	}
	return r.resolveActions(ctx, scope, desc.Actions)
}

// bindArguments seeds scope with the given values, then binds every
// declared argument: given value first, then default, else an error.
// Defaults may refer to arguments declared before them.
func (r *resolver) bindArguments(ctx context.Context, scope *Scope, desc *model.Description, given map[string]string) error {
	names := make([]string, 0, len(given))
	for name := range given {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		scope.bindArgument(name, given[name])
	}

	for _, a := range desc.Arguments {
		if _, ok := given[a.Name]; ok {
			continue
		}
		if a.Required() {
			return fmt.Errorf("%s: %w", desc.FilePath, &subst.UnresolvedVariableError{Kind: "argument", Name: a.Name})
		}
		v, err := subst.Resolve(ctx, a.Default, r.substEnv(scope))
		if err != nil {
			return fmt.Errorf("%s: default of argument %q: %w", desc.FilePath, a.Name, err)
		}
		scope.bindArgument(a.Name, v)
	}
	return nil
}

func (r *resolver) resolveActions(ctx context.Context, scope *Scope, actions []model.Action) error {
	for _, a := range actions {
		if err := r.resolveAction(ctx, scope, a); err != nil {
			return err
		}
	}
	return nil
}

// resolveAction evaluates the action's condition and, when it holds,
// realizes the action before returning.
func (r *resolver) resolveAction(ctx context.Context, scope *Scope, a model.Action) error {
	ctx, span := r.opts.Tracer.Start(ctx, a.Kind(), trace.WithAttributes(
		attribute.String("launchgrid.action.label", a.Label()),
		attribute.String("launchgrid.action.origin", a.Origin().String()),
	))
	defer span.End()
	logger := ctxlog.FromContext(ctx).With("action", a.Kind(), "label", a.Label())

	ok, err := subst.Truth(ctx, a.Guard(), r.substEnv(scope))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "condition failed")
		return fmt.Errorf("%s %q at %s: condition: %w", a.Kind(), a.Label(), a.Origin(), err)
	}
	if !ok {
		logger.Debug("Condition is false, skipping action.")
		span.SetAttributes(attribute.Bool("launchgrid.action.skipped", true))
		r.plan.Skipped = append(r.plan.Skipped, a.Kind()+" "+a.Label())
		return nil
	}

	if err := r.realize(ctx, scope, a); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "action failed")
		switch a.(type) {
		case *model.Group, *model.IncludeSession:
			return err
		}
		return fmt.Errorf("%s %q at %s: %w", a.Kind(), a.Label(), a.Origin(), err)
	}
	return nil
}

func (r *resolver) realize(ctx context.Context, scope *Scope, action model.Action) error {
	env := r.substEnv(scope)
	switch a := action.(type) {
	case *model.SetVariable:
		v, err := subst.Resolve(ctx, a.Value, env)
		if err != nil {
			return err
		}
		return scope.Set(a.Variable, v)

	case *model.SetParameter:
		v, err := subst.Resolve(ctx, a.Value, env)
		if err != nil {
			return err
		}
		scope.SetParameter(a.Parameter, v)
		return nil

	case *model.Group:
		inner := scope
		if a.Scoped {
			inner = scope.Push()
		}
		return r.resolveActions(ctx, inner, a.Actions)

	case *model.StartProcess:
		return r.startProcess(ctx, scope, a.Label(), &a.Process)

	case *model.LifecycleManager:
		return r.startLifecycleManager(ctx, scope, a)

	case *model.IncludeSession:
		return r.include(ctx, scope, a)

	case *model.AppendEnv:
		v, err := subst.Resolve(ctx, a.Value, env)
		if err != nil {
			return err
		}
		sep := ":"
		if a.Separator != nil {
			if sep, err = subst.Resolve(ctx, a.Separator, env); err != nil {
				return err
			}
		}
		r.environ = r.environ.appended(a.Variable, v, sep)
		ctxlog.FromContext(ctx).Debug("Appended to environment.", "name", a.Variable, "value", v)
		return nil

	case *model.RegisterShutdownHook:
		return r.registerHook(ctx, env, a)

	case *model.EphemeralArtifact:
		return r.renderArtifact(ctx, scope, a)

	case *model.MaterializeParameters:
		path, err := r.materialize(ctx, env, a.Source)
		if err != nil {
			return err
		}
		return scope.Set(a.Variable, path)
	}
	return fmt.Errorf("unsupported action type %T", action)
}

func (r *resolver) registerHook(ctx context.Context, env *subst.Env, a *model.RegisterShutdownHook) error {
	if a.Remove != nil {
		path, err := subst.Resolve(ctx, a.Remove, env)
		if err != nil {
			return err
		}
		r.reg.RegisterRemove(path)
		r.plan.Hooks = append(r.plan.Hooks, "remove "+path)
		return nil
	}

	argv, err := subst.ResolveAll(ctx, a.Command, env)
	if err != nil {
		return err
	}
	if len(argv) == 0 {
		return fmt.Errorf("shutdown hook has neither remove nor command")
	}
	runner, cmdEnv := r.opts.Runner, r.environ
	r.reg.Register(a.Label(), func(ctx context.Context) error {
		res, err := runner.Run(ctx, cmdEnv, argv[0], argv[1:]...)
		if err != nil {
			return &subst.ExternalCommandError{Argv: argv, ExitCode: res.ExitCode, Stderr: string(res.Stderr), Err: err}
		}
		return nil
	})
	r.plan.Hooks = append(r.plan.Hooks, strings.Join(argv, " "))
	return nil
}

func (r *resolver) renderArtifact(ctx context.Context, scope *Scope, a *model.EphemeralArtifact) error {
	env := r.substEnv(scope)
	prefix, err := subst.Resolve(ctx, a.Prefix, env)
	if err != nil {
		return err
	}
	suffix, err := subst.Resolve(ctx, a.Suffix, env)
	if err != nil {
		return err
	}
	inputs, err := subst.ResolveAll(ctx, a.Inputs, env)
	if err != nil {
		return err
	}
	if prefix == "" {
		prefix = a.Variable + "-"
	}

	path, err := r.artifacts.Render(ctx, ephemeral.Spec{
		Name:   a.Label(),
		Prefix: prefix,
		Suffix: suffix,
		Inputs: inputs,
		Env:    r.environ,
		Transform: func(out string) ([]string, error) {
			self := scope.Push()
			self.vars[selfPath] = out
			return subst.ResolveAll(ctx, a.Command, r.substEnv(self))
		},
	})
	if err != nil {
		return err
	}
	r.plan.Artifacts = append(r.plan.Artifacts, path)
	return scope.Set(a.Variable, path)
}

// selfPath is the variable an artifact's command uses to name its output.
const selfPath = "self.path"

func (r *resolver) materialize(ctx context.Context, env *subst.Env, src model.ParameterSource) (string, error) {
	resolved := params.Source{Name: src.Name, ConvertTypes: src.ConvertTypes}
	var err error
	if resolved.Template, err = subst.Resolve(ctx, src.Template, env); err != nil {
		return "", err
	}
	if resolved.RootKey, err = subst.Resolve(ctx, src.RootKey, env); err != nil {
		return "", err
	}
	for _, rw := range src.Rewrites {
		v, err := subst.Resolve(ctx, rw.Value, env)
		if err != nil {
			return "", fmt.Errorf("rewrite %s: %w", rw.Name, err)
		}
		resolved.Rewrites = append(resolved.Rewrites, params.Rewrite{Key: rw.Name, Value: v})
	}
	return r.params.Materialize(ctx, resolved)
}
