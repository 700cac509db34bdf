package hcl_adapter

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/specialistvlad/launchgrid/internal/hclutil"
	"github.com/specialistvlad/launchgrid/internal/model"
	"github.com/specialistvlad/launchgrid/internal/subst"
)

// decoder translates the blocks of one file, accumulating diagnostics.
type decoder struct {
	file  string
	diags hcl.Diagnostics
}

func (d *decoder) origin(blk *hclsyntax.Block) *model.FSInfo {
	return model.NewFSInfo(d.file, blk.DefRange().Start.Line)
}

func decodeBlock(blk *hclsyntax.Block, target any) hcl.Diagnostics {
	return gohcl.DecodeBody(blk.Body, nil, target)
}

func (d *decoder) expr(e hcl.Expression) subst.Expr {
	x, diags := translateExpr(e)
	d.diags = append(d.diags, diags...)
	return x
}

func (d *decoder) list(e hcl.Expression) []subst.Expr {
	xs, diags := translateList(e)
	d.diags = append(d.diags, diags...)
	return xs
}

func (d *decoder) bindings(e hcl.Expression) []model.Binding {
	bs, diags := translateBindings(e)
	d.diags = append(d.diags, diags...)
	return bs
}

func (d *decoder) actions(blocks hclsyntax.Blocks) ([]model.Action, hcl.Diagnostics) {
	var actions []model.Action
	var diags hcl.Diagnostics
	for _, blk := range blocks {
		a, blkDiags := d.action(blk)
		diags = append(diags, blkDiags...)
		if a != nil {
			actions = append(actions, a)
		}
	}
	return actions, diags
}

// action translates one action block. It returns a nil action when the
// block has errors.
func (d *decoder) action(blk *hclsyntax.Block) (model.Action, hcl.Diagnostics) {
	label, diags := hclutil.SingleLabel(blk)
	if diags.HasErrors() {
		return nil, diags
	}

	var a model.Action
	switch blk.Type {
	case "process":
		a, diags = d.process(blk, label)
	case "node":
		a, diags = d.node(blk, label)
	case "lifecycle_manager":
		a, diags = d.lifecycleManager(blk, label)
	case "include":
		a, diags = d.include(blk, label)
	case "group":
		a, diags = d.group(blk, label)
	case "set_variable", "set_parameter":
		a, diags = d.setValue(blk, label)
	case "parameters":
		a, diags = d.parameters(blk, label)
	case "ephemeral":
		a, diags = d.ephemeral(blk, label)
	case "on_shutdown":
		a, diags = d.onShutdown(blk, label)
	case "append_env":
		a, diags = d.appendEnv(blk, label)
	case "argument":
		return nil, hcl.Diagnostics{hclutil.ErrorDiag(
			"Misplaced argument",
			"Arguments can only be declared at the top level of a session file.",
			blk.DefRange(),
		)}
	default:
		return nil, hcl.Diagnostics{hclutil.ErrorDiag(
			"Unsupported block type",
			fmt.Sprintf("Blocks of type %q are not expected here.", blk.Type),
			blk.TypeRange,
		)}
	}
	if diags.HasErrors() {
		return nil, diags
	}
	return a, diags
}

// finish returns the translation diagnostics collected since the last call.
func (d *decoder) finish() hcl.Diagnostics {
	diags := d.diags
	d.diags = nil
	return diags
}

func (d *decoder) base(blk *hclsyntax.Block, label string, cond hcl.Expression) model.Base {
	return model.Base{Name: label, Condition: d.expr(cond), FSInfo: d.origin(blk)}
}

func (d *decoder) process(blk *hclsyntax.Block, label string) (model.Action, hcl.Diagnostics) {
	var b processBlock
	if diags := decodeBlock(blk, &b); diags.HasErrors() {
		return nil, diags
	}
	a := &model.StartProcess{
		Base: d.base(blk, label, b.Condition),
		Process: model.ProcessTemplate{
			Command:      d.list(b.Cmd),
			Env:          d.bindings(b.Env),
			Output:       d.expr(b.Output),
			Respawn:      d.expr(b.Respawn),
			RespawnDelay: d.expr(b.RespawnDelay),
			Required:     d.expr(b.Required),
		},
	}
	if len(a.Process.Command) == 0 {
		d.diags = append(d.diags, hclutil.ErrorDiag("Empty command", "A process needs at least the executable in cmd.", b.Cmd.Range()))
	}
	return a, d.finish()
}

func (d *decoder) node(blk *hclsyntax.Block, label string) (model.Action, hcl.Diagnostics) {
	var b nodeBlock
	if diags := decodeBlock(blk, &b); diags.HasErrors() {
		return nil, diags
	}
	remaps, diags := translateRemaps(b.Remaps)
	d.diags = append(d.diags, diags...)
	a := &model.StartProcess{
		Base: d.base(blk, label, b.Condition),
		Process: model.ProcessTemplate{
			IsNode:       true,
			Package:      d.expr(b.Package),
			Executable:   d.expr(b.Executable),
			NodeName:     d.expr(b.Name),
			Namespace:    d.expr(b.Namespace),
			Args:         d.list(b.Args),
			Parameters:   d.bindings(b.Parameters),
			ParamFiles:   d.list(b.ParamFiles),
			Sources:      d.sources(b.Sources),
			Remaps:       remaps,
			Env:          d.bindings(b.Env),
			Output:       d.expr(b.Output),
			Respawn:      d.expr(b.Respawn),
			RespawnDelay: d.expr(b.RespawnDelay),
			Required:     d.expr(b.Required),
		},
	}
	return a, d.finish()
}

func (d *decoder) sources(blocks []*sourceBlock) []model.ParameterSource {
	var out []model.ParameterSource
	for _, s := range blocks {
		out = append(out, model.ParameterSource{
			Name:         s.Name,
			Template:     d.expr(s.Template),
			RootKey:      d.expr(s.RootKey),
			Rewrites:     d.bindings(s.Rewrites),
			ConvertTypes: s.ConvertTypes,
		})
	}
	return out
}

func (d *decoder) lifecycleManager(blk *hclsyntax.Block, label string) (model.Action, hcl.Diagnostics) {
	var b lifecycleBlock
	if diags := decodeBlock(blk, &b); diags.HasErrors() {
		return nil, diags
	}
	a := &model.LifecycleManager{
		Base:       d.base(blk, label, b.Condition),
		Package:    d.expr(b.Package),
		Executable: d.expr(b.Executable),
		Namespace:  d.expr(b.Namespace),
		NodeNames:  d.list(b.NodeNames),
		Autostart:  d.expr(b.Autostart),
		Output:     d.expr(b.Output),
		Parameters: d.bindings(b.Parameters),
		ParamFiles: d.list(b.ParamFiles),
		Sources:    d.sources(b.Sources),
	}
	return a, d.finish()
}

func (d *decoder) include(blk *hclsyntax.Block, label string) (model.Action, hcl.Diagnostics) {
	var b includeBlock
	if diags := decodeBlock(blk, &b); diags.HasErrors() {
		return nil, diags
	}
	a := &model.IncludeSession{
		Base:      d.base(blk, label, b.Condition),
		Path:      d.expr(b.Path),
		Arguments: d.bindings(b.Arguments),
	}
	return a, d.finish()
}

// group decodes its own attributes with gohcl and walks the nested blocks
// in source order. Groups are scoped unless scoped = false.
func (d *decoder) group(blk *hclsyntax.Block, label string) (model.Action, hcl.Diagnostics) {
	var b groupBlock
	if diags := decodeBlock(blk, &b); diags.HasErrors() {
		return nil, diags
	}
	if diags := hclutil.RejectAttributes(blk.Body, "condition", "scoped"); diags.HasErrors() {
		return nil, diags
	}
	a := &model.Group{
		Base:   d.base(blk, label, b.Condition),
		Scoped: b.Scoped == nil || *b.Scoped,
	}
	diags := d.finish()

	nested := &decoder{file: d.file}
	actions, nestedDiags := nested.actions(blk.Body.Blocks)
	a.Actions = actions
	return a, append(diags, nestedDiags...)
}

func (d *decoder) setValue(blk *hclsyntax.Block, label string) (model.Action, hcl.Diagnostics) {
	var b valueBlock
	if diags := decodeBlock(blk, &b); diags.HasErrors() {
		return nil, diags
	}
	base := d.base(blk, label, b.Condition)
	value := d.expr(b.Value)
	if value == nil {
		value = subst.Lit("")
	}
	var a model.Action
	if blk.Type == "set_parameter" {
		a = &model.SetParameter{Base: base, Parameter: label, Value: value}
	} else {
		a = &model.SetVariable{Base: base, Variable: label, Value: value}
	}
	return a, d.finish()
}

func (d *decoder) parameters(blk *hclsyntax.Block, label string) (model.Action, hcl.Diagnostics) {
	var b parametersBlock
	if diags := decodeBlock(blk, &b); diags.HasErrors() {
		return nil, diags
	}
	a := &model.MaterializeParameters{
		Base:     d.base(blk, label, b.Condition),
		Variable: label,
		Source: model.ParameterSource{
			Name:         label,
			Template:     d.expr(b.Template),
			RootKey:      d.expr(b.RootKey),
			Rewrites:     d.bindings(b.Rewrites),
			ConvertTypes: b.ConvertTypes,
		},
	}
	return a, d.finish()
}

func (d *decoder) ephemeral(blk *hclsyntax.Block, label string) (model.Action, hcl.Diagnostics) {
	var b ephemeralBlock
	if diags := decodeBlock(blk, &b); diags.HasErrors() {
		return nil, diags
	}
	a := &model.EphemeralArtifact{
		Base:     d.base(blk, label, b.Condition),
		Variable: label,
		Prefix:   d.expr(b.Prefix),
		Suffix:   d.expr(b.Suffix),
		Inputs:   d.list(b.Inputs),
		Command:  d.list(b.Command),
	}
	if len(a.Command) == 0 {
		d.diags = append(d.diags, hclutil.ErrorDiag("Empty command", "An ephemeral artifact needs a command that renders it.", b.Command.Range()))
	}
	return a, d.finish()
}

func (d *decoder) onShutdown(blk *hclsyntax.Block, label string) (model.Action, hcl.Diagnostics) {
	var b shutdownBlock
	if diags := decodeBlock(blk, &b); diags.HasErrors() {
		return nil, diags
	}
	a := &model.RegisterShutdownHook{
		Base:    d.base(blk, label, b.Condition),
		Remove:  d.expr(b.Remove),
		Command: d.list(b.Command),
	}
	if (a.Remove == nil) == (len(a.Command) == 0) {
		d.diags = append(d.diags, hclutil.ErrorDiag(
			"Invalid on_shutdown block",
			"Exactly one of remove or command must be set.",
			blk.DefRange(),
		))
	}
	return a, d.finish()
}

func (d *decoder) appendEnv(blk *hclsyntax.Block, label string) (model.Action, hcl.Diagnostics) {
	var b appendEnvBlock
	if diags := decodeBlock(blk, &b); diags.HasErrors() {
		return nil, diags
	}
	a := &model.AppendEnv{
		Base:      d.base(blk, label, b.Condition),
		Variable:  label,
		Value:     d.expr(b.Value),
		Separator: d.expr(b.Separator),
	}
	return a, d.finish()
}
