// Package hcl_adapter reads HCL session files into the format-agnostic
// launch model.
package hcl_adapter

import (
	"context"
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/specialistvlad/launchgrid/internal/ctxlog"
	"github.com/specialistvlad/launchgrid/internal/hclexpr"
	"github.com/specialistvlad/launchgrid/internal/hclutil"
	"github.com/specialistvlad/launchgrid/internal/model"
)

// Loader is the HCL implementation of session.Loader.
type Loader struct{}

// NewLoader creates a new HCL session loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses one session file. Top-level argument blocks become the
// declared arguments; every other block becomes an action, in source order.
func (l *Loader) Load(ctx context.Context, path string) (*model.Description, error) {
	logger := ctxlog.FromContext(ctx).With("file", path)
	logger.Debug("HCL loader started.")

	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to read session file %s: %w", path, err)
	}
	file, diags := hclparse.NewParser().ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse session file %s: %w", path, diags)
	}
	body, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		return nil, fmt.Errorf("failed to parse session file %s: not native HCL syntax", path)
	}

	exprs := hclexpr.NewContainer()
	exprs.AddBody(body)
	if diags := exprs.Check(referenceRoots, functionNames); diags.HasErrors() {
		return nil, fmt.Errorf("invalid session file %s: %w", path, diags)
	}

	d := &decoder{file: path}
	diags = hclutil.RejectAttributes(body)

	var args []model.ArgumentDecl
	var blocks hclsyntax.Blocks
	for _, blk := range body.Blocks {
		if blk.Type != "argument" {
			blocks = append(blocks, blk)
			continue
		}
		arg, argDiags := d.argument(blk)
		diags = append(diags, argDiags...)
		if !argDiags.HasErrors() {
			args = append(args, arg)
		}
	}
	actions, actionDiags := d.actions(blocks)
	diags = append(diags, actionDiags...)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode session file %s: %w", path, diags)
	}

	desc, err := model.NewDescription(path, args, actions)
	if err != nil {
		return nil, fmt.Errorf("invalid session file %s: %w", path, err)
	}
	logger.Debug("HCL loading complete.", "arguments", len(args), "actions", len(actions), "references", len(exprs.References()))
	return desc, nil
}

func (d *decoder) argument(blk *hclsyntax.Block) (model.ArgumentDecl, hcl.Diagnostics) {
	name, diags := hclutil.SingleLabel(blk)
	if diags.HasErrors() {
		return model.ArgumentDecl{}, diags
	}
	var b argumentBlock
	if diags := decodeBlock(blk, &b); diags.HasErrors() {
		return model.ArgumentDecl{}, diags
	}
	def, diags := translateExpr(b.Default)
	return model.ArgumentDecl{
		Name:        name,
		Default:     def,
		Description: b.Description,
		FSInfo:      d.origin(blk),
	}, diags
}
