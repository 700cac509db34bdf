package session

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/specialistvlad/launchgrid/internal/ctxlog"
	"github.com/specialistvlad/launchgrid/internal/model"
	"github.com/specialistvlad/launchgrid/internal/subst"
	"github.com/specialistvlad/launchgrid/internal/supervisor"
)

func (r *resolver) startProcess(ctx context.Context, scope *Scope, label string, tpl *model.ProcessTemplate) error {
	d, err := r.describe(ctx, scope, label, tpl)
	if err != nil {
		return err
	}
	r.plan.Processes = append(r.plan.Processes, d)
	if err := r.realizer.Start(ctx, d); err != nil {
		return err
	}
	if d.Node {
		name := d.NodeName
		if name == "" {
			name = label
		}
		r.started[name] = true
	}
	return nil
}

// describe resolves a process template into a descriptor against scope.
func (r *resolver) describe(ctx context.Context, scope *Scope, label string, tpl *model.ProcessTemplate) (supervisor.ProcessDescriptor, error) {
	env := r.substEnv(scope)
	d := supervisor.ProcessDescriptor{Name: label, Node: tpl.IsNode}

	var err error
	if tpl.IsNode {
		if d.Executable, err = r.nodeExecutable(ctx, env, tpl); err != nil {
			return d, err
		}
	} else {
		argv, err := subst.ResolveAll(ctx, tpl.Command, env)
		if err != nil {
			return d, err
		}
		if len(argv) == 0 || argv[0] == "" {
			return d, fmt.Errorf("process has an empty command")
		}
		d.Executable, d.Args = argv[0], argv[1:]
	}

	extra, err := subst.ResolveAll(ctx, tpl.Args, env)
	if err != nil {
		return d, err
	}
	d.Args = append(d.Args, extra...)

	if tpl.IsNode {
		if err := r.describeNode(ctx, scope, env, tpl, &d); err != nil {
			return d, err
		}
	}

	procEnv := r.environ
	for _, b := range tpl.Env {
		v, err := subst.Resolve(ctx, b.Value, env)
		if err != nil {
			return d, fmt.Errorf("env %s: %w", b.Name, err)
		}
		procEnv = procEnv.with(b.Name, v)
	}
	d.Env = append([]string(nil), procEnv...)

	output, err := subst.Resolve(ctx, tpl.Output, env)
	if err != nil {
		return d, err
	}
	d.Output = strings.ToLower(strings.TrimSpace(output))
	if d.Output == "" {
		d.Output = supervisor.OutputScreen
	}

	if d.Respawn, err = resolveFlag(ctx, tpl.Respawn, env); err != nil {
		return d, fmt.Errorf("respawn: %w", err)
	}
	if d.Required, err = resolveFlag(ctx, tpl.Required, env); err != nil {
		return d, fmt.Errorf("required: %w", err)
	}
	delay, err := subst.Resolve(ctx, tpl.RespawnDelay, env)
	if err != nil {
		return d, err
	}
	if d.RespawnDelay, err = parseDelay(delay); err != nil {
		return d, err
	}
	return d, d.Validate()
}

func (r *resolver) nodeExecutable(ctx context.Context, env *subst.Env, tpl *model.ProcessTemplate) (string, error) {
	exe, err := subst.Resolve(ctx, tpl.Executable, env)
	if err != nil {
		return "", err
	}
	if exe == "" {
		return "", fmt.Errorf("node has no executable")
	}
	pkg, err := subst.Resolve(ctx, tpl.Package, env)
	if err != nil {
		return "", err
	}
	if pkg == "" {
		return exe, nil
	}
	return r.opts.Prefixes.Executable(pkg, exe)
}

func (r *resolver) describeNode(ctx context.Context, scope *Scope, env *subst.Env, tpl *model.ProcessTemplate, d *supervisor.ProcessDescriptor) error {
	var err error
	if d.NodeName, err = subst.Resolve(ctx, tpl.NodeName, env); err != nil {
		return err
	}
	ns, err := subst.Resolve(ctx, tpl.Namespace, env)
	if err != nil {
		return err
	}
	d.Namespace = supervisor.NormalizeNamespace(ns)

	for _, src := range tpl.Sources {
		path, err := r.materialize(ctx, env, src)
		if err != nil {
			return err
		}
		d.ParamFiles = append(d.ParamFiles, path)
	}
	files, err := subst.ResolveAll(ctx, tpl.ParamFiles, env)
	if err != nil {
		return err
	}
	for _, f := range files {
		if f != "" {
			d.ParamFiles = append(d.ParamFiles, f)
		}
	}

	d.Parameters = scope.Parameters()
	for _, b := range tpl.Parameters {
		v, err := subst.Resolve(ctx, b.Value, env)
		if err != nil {
			return fmt.Errorf("parameter %s: %w", b.Name, err)
		}
		d.Parameters = setParam(d.Parameters, supervisor.Param{Name: b.Name, Value: v})
	}

	for _, rm := range tpl.Remaps {
		from, err := subst.Resolve(ctx, rm.From, env)
		if err != nil {
			return err
		}
		to, err := subst.Resolve(ctx, rm.To, env)
		if err != nil {
			return err
		}
		d.Remaps = append(d.Remaps, supervisor.Remap{From: from, To: to})
	}
	return nil
}

func setParam(ps []supervisor.Param, p supervisor.Param) []supervisor.Param {
	for i := range ps {
		if ps[i].Name == p.Name {
			ps[i] = p
			return ps
		}
	}
	return append(ps, p)
}

// startLifecycleManager starts the coordinator for the managed nodes. The
// coordinator only depends on ordering: it is started after the nodes it
// manages and does not wait for them.
func (r *resolver) startLifecycleManager(ctx context.Context, scope *Scope, a *model.LifecycleManager) error {
	logger := ctxlog.FromContext(ctx)
	env := r.substEnv(scope)

	names, err := subst.ResolveAll(ctx, a.NodeNames, env)
	if err != nil {
		return err
	}
	for _, name := range names {
		if !r.started[name] {
			logger.Warn("Managed node was not started before its lifecycle manager.", "node", name, "manager", a.Label())
		}
	}
	autostart, err := resolveFlag(ctx, a.Autostart, env)
	if err != nil {
		return fmt.Errorf("autostart: %w", err)
	}
	if a.Autostart == nil {
		autostart = true
	}

	pkg := a.Package
	if pkg == nil {
		pkg = subst.Lit(r.opts.LifecyclePackage)
	}
	exe := a.Executable
	if exe == nil {
		exe = subst.Lit(r.opts.LifecycleExecutable)
	}
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = strconv.Quote(n)
	}

	tpl := &model.ProcessTemplate{
		IsNode:     true,
		Package:    pkg,
		Executable: exe,
		NodeName:   subst.Lit(a.Label()),
		Namespace:  a.Namespace,
		Output:     a.Output,
		ParamFiles: a.ParamFiles,
		Sources:    a.Sources,
		Parameters: append([]model.Binding{
			{Name: "node_names", Value: subst.Lit("[" + strings.Join(quoted, ", ") + "]")},
			{Name: "autostart", Value: subst.Lit(strconv.FormatBool(autostart))},
		}, a.Parameters...),
	}
	return r.startProcess(ctx, scope, a.Label(), tpl)
}

// resolveFlag resolves an optional boolean attribute. Nil is false.
func resolveFlag(ctx context.Context, expr subst.Expr, env *subst.Env) (bool, error) {
	if expr == nil {
		return false, nil
	}
	return subst.Truth(ctx, expr, env)
}

// parseDelay accepts a Go duration ("2s") or a number of seconds ("2.5").
func parseDelay(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}
	secs, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid respawn delay %q", s)
	}
	return time.Duration(secs * float64(time.Second)), nil
}
