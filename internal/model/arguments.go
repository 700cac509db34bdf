// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines argument declarations, the inputs of a session.
//
// Arguments are bound exactly once per session run, either from a caller
// supplied override or from the declared default, and are immutable for the
// rest of the run.
package model

import (
	"fmt"

	"github.com/specialistvlad/launchgrid/internal/subst"
)

// ArgumentDecl is a declared session argument.
type ArgumentDecl struct {
	Name string
	// Default is nil for required arguments.
	Default     subst.Expr
	Description string
	FSInfo      *FSInfo
}

// Required reports whether the argument has no default.
func (a ArgumentDecl) Required() bool {
	return a.Default == nil
}

// DuplicateArgumentError is returned when one description declares the same
// argument name twice.
type DuplicateArgumentError struct {
	Name  string
	First *FSInfo
	Again *FSInfo
}

func (e *DuplicateArgumentError) Error() string {
	return fmt.Sprintf("argument %q declared twice (first at %s, again at %s)", e.Name, e.First, e.Again)
}
