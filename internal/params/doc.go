// Package params renders parameter templates into parameter files.
//
// A template is a YAML document. Rendering applies key rewrites, optional
// scalar type conversion and optional nesting under a root key, then writes
// the result to a new file. The template itself is never modified. Rendering
// the same inputs twice in one run returns the same file.
package params
