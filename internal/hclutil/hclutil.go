// Package hclutil holds small helpers shared by the HCL front end.
package hclutil

import (
	"fmt"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/hashicorp/hcl/v2/hclwrite"
)

// TraversalKey generates a stable, canonical string representation for an
// hcl.Traversal, suitable for use as a map key.
func TraversalKey(t hcl.Traversal) string {
	// e.g., var.namespace
	return string(hclwrite.TokensForTraversal(t).Bytes())
}

// ErrorDiag builds an error diagnostic pointing at rng.
func ErrorDiag(summary, detail string, rng hcl.Range) *hcl.Diagnostic {
	return &hcl.Diagnostic{
		Severity: hcl.DiagError,
		Summary:  summary,
		Detail:   detail,
		Subject:  rng.Ptr(),
	}
}

// IsExprDefined reports whether an expression was actually written in the
// source. The gohcl decoder populates omitted optional attributes with
// zero-width placeholder expressions, so a nil check is not enough.
func IsExprDefined(expr hcl.Expression) bool {
	if expr == nil {
		return false
	}
	rng := expr.Range()
	return rng.End.Byte > rng.Start.Byte
}

// SingleLabel returns the only label of blk, or a diagnostic when the block
// does not carry exactly one.
func SingleLabel(blk *hclsyntax.Block) (string, hcl.Diagnostics) {
	if len(blk.Labels) != 1 {
		return "", hcl.Diagnostics{ErrorDiag(
			fmt.Sprintf("Invalid %q block", blk.Type),
			fmt.Sprintf("A %q block needs exactly one label.", blk.Type),
			blk.DefRange(),
		)}
	}
	return blk.Labels[0], nil
}

// RejectAttributes reports every attribute of body whose name is not in
// allowed. Results are ordered by source position.
func RejectAttributes(body *hclsyntax.Body, allowed ...string) hcl.Diagnostics {
	ok := make(map[string]bool, len(allowed))
	for _, name := range allowed {
		ok[name] = true
	}
	var attrs []*hclsyntax.Attribute
	for name, attr := range body.Attributes {
		if !ok[name] {
			attrs = append(attrs, attr)
		}
	}
	sort.Slice(attrs, func(i, j int) bool {
		return attrs[i].SrcRange.Start.Byte < attrs[j].SrcRange.Start.Byte
	})

	var diags hcl.Diagnostics
	for _, attr := range attrs {
		diags = append(diags, ErrorDiag(
			"Unsupported argument",
			fmt.Sprintf("An argument named %q is not expected here.", attr.Name),
			attr.NameRange,
		))
	}
	return diags
}
