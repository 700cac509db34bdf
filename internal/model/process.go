// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines the ProcessTemplate, the unresolved form of a process
// descriptor.
package model

import (
	"github.com/specialistvlad/launchgrid/internal/subst"
)

// Output policies for a process's stdout and stderr.
const (
	OutputScreen = "screen"
	OutputLog    = "log"
	OutputBoth   = "both"
)

// ProcessTemplate describes a process to start. Node templates (IsNode) get
// node-style arguments appended: name, namespace, parameter files, inline
// parameters and remaps.
type ProcessTemplate struct {
	IsNode bool

	// Package and Executable locate a node's binary in the install prefixes.
	// When Package is nil, Executable is looked up on PATH.
	Package    subst.Expr
	Executable subst.Expr
	// Command is the full argv of a plain process.
	Command []subst.Expr
	// Args are extra arguments placed before node arguments.
	Args []subst.Expr

	NodeName  subst.Expr
	Namespace subst.Expr

	ParamFiles []subst.Expr
	Sources    []ParameterSource
	Parameters []Binding
	Remaps     []Remap
	Env        []Binding

	Output       subst.Expr
	Respawn      subst.Expr
	RespawnDelay subst.Expr
	Required     subst.Expr
}

// Remap renames a topic or service for one node.
type Remap struct {
	From subst.Expr
	To   subst.Expr
}
