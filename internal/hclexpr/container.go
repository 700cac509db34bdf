// Package hclexpr collects HCL expressions of a session file and checks
// what they reference before they are translated.
package hclexpr

import (
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/specialistvlad/launchgrid/internal/hclutil"
)

// Container indexes the variable references and function calls of the
// expressions added to it. It is safe for concurrent use.
type Container struct {
	mu    sync.RWMutex
	refs  map[string]hcl.Traversal
	calls map[string]hcl.Range
}

// NewContainer creates a new, empty expression container.
func NewContainer() *Container {
	return &Container{
		refs:  make(map[string]hcl.Traversal),
		calls: make(map[string]hcl.Range),
	}
}

// Add indexes expressions, ignoring nils.
func (c *Container) Add(exprs ...hcl.Expression) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, expr := range exprs {
		if expr == nil {
			continue
		}
		for _, t := range expr.Variables() {
			c.refs[hclutil.TraversalKey(t)] = t
		}
		if node, ok := expr.(hclsyntax.Node); ok {
			hclsyntax.VisitAll(node, c.visit)
		}
	}
}

// visit records the first call site of every function. It runs with mu held.
func (c *Container) visit(n hclsyntax.Node) hcl.Diagnostics {
	if call, ok := n.(*hclsyntax.FunctionCallExpr); ok {
		if _, seen := c.calls[call.Name]; !seen {
			c.calls[call.Name] = call.NameRange
		}
	}
	return nil
}

// AddBody adds every attribute expression of body and its nested blocks.
func (c *Container) AddBody(body *hclsyntax.Body) {
	for _, attr := range body.Attributes {
		c.Add(attr.Expr)
	}
	for _, blk := range body.Blocks {
		c.AddBody(blk.Body)
	}
}

// References returns all unique variable traversals, sorted by key.
func (c *Container) References() []hcl.Traversal {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, 0, len(c.refs))
	for k := range c.refs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]hcl.Traversal, len(keys))
	for i, k := range keys {
		out[i] = c.refs[k]
	}
	return out
}

// CalledFunctions returns all unique function names, sorted.
func (c *Container) CalledFunctions() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.calls))
	for name := range c.calls {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Check reports references whose root is not one of roots and calls to
// functions outside functions.
func (c *Container) Check(roots, functions []string) hcl.Diagnostics {
	var diags hcl.Diagnostics
	for _, t := range c.References() {
		if slices.Contains(roots, t.RootName()) {
			continue
		}
		diags = append(diags, hclutil.ErrorDiag(
			"Unknown reference",
			fmt.Sprintf("%q is not valid here. References must start with one of: %s.",
				hclutil.TraversalKey(t), strings.Join(roots, ", ")),
			t.SourceRange(),
		))
	}
	for _, name := range c.CalledFunctions() {
		if slices.Contains(functions, name) {
			continue
		}
		c.mu.RLock()
		rng := c.calls[name]
		c.mu.RUnlock()
		diags = append(diags, hclutil.ErrorDiag(
			"Call to unknown function",
			fmt.Sprintf("There is no function named %q. Available functions: %s.", name, strings.Join(functions, ", ")),
			rng,
		))
	}
	return diags
}
