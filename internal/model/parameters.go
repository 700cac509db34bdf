// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines parameter sources, the templates that are rendered into
// parameter files at resolution time.
package model

import (
	"github.com/specialistvlad/launchgrid/internal/subst"
)

// ParameterSource is a YAML template plus the rewrites to apply to it.
// Rewrites are dotted key paths. Keys that are absent from the template are
// only created when ConvertTypes is set.
type ParameterSource struct {
	Name         string
	Template     subst.Expr
	RootKey      subst.Expr
	Rewrites     []Binding
	ConvertTypes bool
}
