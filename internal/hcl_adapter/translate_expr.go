package hcl_adapter

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/specialistvlad/launchgrid/internal/hclutil"
	"github.com/specialistvlad/launchgrid/internal/model"
	"github.com/specialistvlad/launchgrid/internal/subst"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// Reference roots and functions a session file may use.
var (
	referenceRoots = []string{"var", "env", "self"}
	functionNames  = []string{"command", "default", "env", "join_path", "share"}
)

// translateExpr converts an HCL expression into a substitution. Omitted
// attributes and null literals translate to nil.
func translateExpr(expr hcl.Expression) (subst.Expr, hcl.Diagnostics) {
	if !hclutil.IsExprDefined(expr) {
		return nil, nil
	}
	syn, ok := expr.(hclsyntax.Expression)
	if !ok {
		return nil, unsupported(expr, "this kind of expression")
	}

	switch e := syn.(type) {
	case *hclsyntax.LiteralValueExpr:
		return literal(e.Val, e.SrcRange)
	case *hclsyntax.TemplateExpr:
		return template(e)
	case *hclsyntax.TemplateWrapExpr:
		return translateExpr(e.Wrapped)
	case *hclsyntax.ParenthesesExpr:
		return translateExpr(e.Expression)
	case *hclsyntax.ScopeTraversalExpr:
		return reference(e.Traversal, e.SrcRange)
	case *hclsyntax.FunctionCallExpr:
		return call(e)
	case *hclsyntax.BinaryOpExpr:
		return binary(e)
	case *hclsyntax.UnaryOpExpr:
		if lit, ok := e.Val.(*hclsyntax.LiteralValueExpr); ok && e.Op == hclsyntax.OpNegate && lit.Val.Type() == cty.Number {
			return literal(lit.Val.Negate(), e.SrcRange)
		}
		if e.Op != hclsyntax.OpLogicalNot {
			return nil, unsupported(e, "numeric negation")
		}
		x, diags := translateExpr(e.Val)
		return subst.Not{X: x}, diags
	case *hclsyntax.ConditionalExpr:
		var diags hcl.Diagnostics
		c, d := translateExpr(e.Condition)
		diags = append(diags, d...)
		a, d := translateExpr(e.TrueResult)
		diags = append(diags, d...)
		b, d := translateExpr(e.FalseResult)
		diags = append(diags, d...)
		return subst.If{Cond: c, Then: orEmpty(a), Else: orEmpty(b)}, diags
	}
	return nil, unsupported(syn, fmt.Sprintf("%T", syn))
}

func literal(val cty.Value, rng hcl.Range) (subst.Expr, hcl.Diagnostics) {
	if val.IsNull() {
		return nil, nil
	}
	str, err := convert.Convert(val, cty.String)
	if err != nil || !str.IsKnown() {
		return nil, hcl.Diagnostics{hclutil.ErrorDiag(
			"Invalid value",
			fmt.Sprintf("A %s cannot be used as a launch value; use a string, number, or bool.", val.Type().FriendlyName()),
			rng,
		)}
	}
	return subst.Lit(str.AsString()), nil
}

func template(e *hclsyntax.TemplateExpr) (subst.Expr, hcl.Diagnostics) {
	if len(e.Parts) == 0 {
		return subst.Lit(""), nil
	}
	if len(e.Parts) == 1 {
		return translateExpr(e.Parts[0])
	}
	var diags hcl.Diagnostics
	parts := make([]subst.Expr, 0, len(e.Parts))
	for _, p := range e.Parts {
		x, d := translateExpr(p)
		diags = append(diags, d...)
		parts = append(parts, orEmpty(x))
	}
	return subst.Concat{Parts: parts}, diags
}

func reference(t hcl.Traversal, rng hcl.Range) (subst.Expr, hcl.Diagnostics) {
	name, ok := attrName(t)
	if !ok {
		return nil, hcl.Diagnostics{hclutil.ErrorDiag(
			"Invalid reference",
			fmt.Sprintf("%q must have the form root.name.", hclutil.TraversalKey(t)),
			rng,
		)}
	}
	switch t.RootName() {
	case "var":
		return subst.Ref(name), nil
	case "env":
		return subst.EnvVar{Name: name}, nil
	case "self":
		if name != "path" {
			return nil, hcl.Diagnostics{hclutil.ErrorDiag("Invalid reference", "The only attribute of self is path.", rng)}
		}
		return subst.Ref("self.path"), nil
	}
	return nil, hcl.Diagnostics{hclutil.ErrorDiag(
		"Unknown reference",
		fmt.Sprintf("%q is not a valid reference root.", t.RootName()),
		rng,
	)}
}

func attrName(t hcl.Traversal) (string, bool) {
	if len(t) != 2 {
		return "", false
	}
	attr, ok := t[1].(hcl.TraverseAttr)
	if !ok {
		return "", false
	}
	return attr.Name, true
}

func call(e *hclsyntax.FunctionCallExpr) (subst.Expr, hcl.Diagnostics) {
	if e.ExpandFinal {
		return nil, unsupported(e, "argument expansion")
	}
	var diags hcl.Diagnostics
	args := make([]subst.Expr, 0, len(e.Args))
	for _, a := range e.Args {
		x, d := translateExpr(a)
		diags = append(diags, d...)
		args = append(args, orEmpty(x))
	}
	if diags.HasErrors() {
		return nil, diags
	}

	arity := func(min, max int) bool {
		if len(args) >= min && (max < 0 || len(args) <= max) {
			return true
		}
		diags = append(diags, hclutil.ErrorDiag(
			"Wrong number of arguments",
			fmt.Sprintf("Function %q does not take %d arguments.", e.Name, len(args)),
			e.Range(),
		))
		return false
	}

	switch e.Name {
	case "command":
		if !arity(1, -1) {
			return nil, diags
		}
		return subst.Command{Argv: args}, nil
	case "join_path":
		if !arity(1, -1) {
			return nil, diags
		}
		return subst.PathJoin{Parts: args}, nil
	case "share":
		if !arity(1, 1) {
			return nil, diags
		}
		return subst.Share{Package: args[0]}, nil
	case "default":
		if !arity(2, 2) {
			return nil, diags
		}
		switch ref := args[0].(type) {
		case subst.Var:
			ref.Default = args[1]
			return ref, nil
		case subst.EnvVar:
			ref.Default = args[1]
			return ref, nil
		}
		return nil, hcl.Diagnostics{hclutil.ErrorDiag(
			"Invalid default",
			"The first argument of default must be a var or env reference.",
			e.Args[0].Range(),
		)}
	case "env":
		if !arity(1, 2) {
			return nil, diags
		}
		name, ok := args[0].(subst.Literal)
		if !ok {
			return nil, hcl.Diagnostics{hclutil.ErrorDiag(
				"Invalid environment variable name",
				"The variable name must be a literal string.",
				e.Args[0].Range(),
			)}
		}
		ev := subst.EnvVar{Name: name.Value}
		if len(args) == 2 {
			ev.Default = args[1]
		}
		return ev, nil
	}
	return nil, hcl.Diagnostics{hclutil.ErrorDiag(
		"Call to unknown function",
		fmt.Sprintf("There is no function named %q.", e.Name),
		e.NameRange,
	)}
}

func binary(e *hclsyntax.BinaryOpExpr) (subst.Expr, hcl.Diagnostics) {
	var diags hcl.Diagnostics
	l, d := translateExpr(e.LHS)
	diags = append(diags, d...)
	r, d := translateExpr(e.RHS)
	diags = append(diags, d...)
	l, r = orEmpty(l), orEmpty(r)

	switch e.Op {
	case hclsyntax.OpEqual:
		return subst.Equals{Left: l, Right: r}, diags
	case hclsyntax.OpNotEqual:
		return subst.NotEquals{Left: l, Right: r}, diags
	case hclsyntax.OpLogicalAnd:
		return subst.And{Terms: append(andTerms(l), andTerms(r)...)}, diags
	case hclsyntax.OpLogicalOr:
		return subst.Or{Terms: append(orTerms(l), orTerms(r)...)}, diags
	}
	return nil, append(diags, unsupported(e, "arithmetic and ordering operators")...)
}

func andTerms(x subst.Expr) []subst.Expr {
	if a, ok := x.(subst.And); ok {
		return a.Terms
	}
	return []subst.Expr{x}
}

func orTerms(x subst.Expr) []subst.Expr {
	if o, ok := x.(subst.Or); ok {
		return o.Terms
	}
	return []subst.Expr{x}
}

func orEmpty(x subst.Expr) subst.Expr {
	if x == nil {
		return subst.Lit("")
	}
	return x
}

func unsupported(expr hcl.Expression, what string) hcl.Diagnostics {
	return hcl.Diagnostics{hclutil.ErrorDiag(
		"Unsupported expression",
		fmt.Sprintf("Session files do not support %s.", what),
		expr.Range(),
	)}
}

// translateList converts a tuple expression into one substitution per
// element.
func translateList(expr hcl.Expression) ([]subst.Expr, hcl.Diagnostics) {
	if !hclutil.IsExprDefined(expr) {
		return nil, nil
	}
	tuple, ok := expr.(*hclsyntax.TupleConsExpr)
	if !ok {
		return nil, hcl.Diagnostics{hclutil.ErrorDiag("Expected a list", "This attribute takes a list, e.g. [\"a\", var.b].", expr.Range())}
	}
	var diags hcl.Diagnostics
	out := make([]subst.Expr, 0, len(tuple.Exprs))
	for _, item := range tuple.Exprs {
		x, d := translateExpr(item)
		diags = append(diags, d...)
		out = append(out, orEmpty(x))
	}
	return out, diags
}

type keyValue struct {
	Key   subst.Expr
	Value subst.Expr
	Range hcl.Range
}

// translateObject converts an object expression into its items in source
// order. Bare identifier keys are taken literally.
func translateObject(expr hcl.Expression) ([]keyValue, hcl.Diagnostics) {
	if !hclutil.IsExprDefined(expr) {
		return nil, nil
	}
	obj, ok := expr.(*hclsyntax.ObjectConsExpr)
	if !ok {
		return nil, hcl.Diagnostics{hclutil.ErrorDiag("Expected an object", "This attribute takes an object, e.g. { name = var.value }.", expr.Range())}
	}
	var diags hcl.Diagnostics
	out := make([]keyValue, 0, len(obj.Items))
	for _, item := range obj.Items {
		var key subst.Expr
		if kw := hcl.ExprAsKeyword(item.KeyExpr); kw != "" {
			key = subst.Lit(kw)
		} else {
			var d hcl.Diagnostics
			wrapped := item.KeyExpr
			if k, ok := wrapped.(*hclsyntax.ObjectConsKeyExpr); ok {
				wrapped = k.Wrapped
			}
			key, d = translateExpr(wrapped)
			diags = append(diags, d...)
		}
		val, d := translateExpr(item.ValueExpr)
		diags = append(diags, d...)
		out = append(out, keyValue{Key: orEmpty(key), Value: orEmpty(val), Range: item.KeyExpr.Range()})
	}
	return out, diags
}

// translateBindings converts an object whose keys must be literal names.
func translateBindings(expr hcl.Expression) ([]model.Binding, hcl.Diagnostics) {
	items, diags := translateObject(expr)
	var out []model.Binding
	for _, kv := range items {
		name, ok := kv.Key.(subst.Literal)
		if !ok || name.Value == "" {
			diags = append(diags, hclutil.ErrorDiag("Invalid name", "Names in this object must be literal.", kv.Range))
			continue
		}
		out = append(out, model.Binding{Name: name.Value, Value: kv.Value})
	}
	return out, diags
}

func translateRemaps(expr hcl.Expression) ([]model.Remap, hcl.Diagnostics) {
	items, diags := translateObject(expr)
	var out []model.Remap
	for _, kv := range items {
		out = append(out, model.Remap{From: kv.Key, To: kv.Value})
	}
	return out, diags
}
