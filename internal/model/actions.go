// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines the Action variants that make up a session's forest.
//
// Every action shares the same envelope (Base): a label used in logs and
// plans, an optional condition, and the source location. The effect itself
// lives in the variant. The resolver dispatches on the concrete type with a
// type switch; there is no behaviour attached to the model.
package model

import (
	"github.com/specialistvlad/launchgrid/internal/subst"
)

// Action is one node of a session's action forest.
type Action interface {
	// Kind names the block type, e.g. "node" or "group".
	Kind() string
	// Label is the block label.
	Label() string
	// Guard is the action's condition. Nil means always true.
	Guard() subst.Expr
	// Origin is the source location of the block.
	Origin() *FSInfo
}

// Base is embedded by every action variant.
type Base struct {
	Name      string
	Condition subst.Expr
	FSInfo    *FSInfo
}

func (b *Base) Label() string     { return b.Name }
func (b *Base) Guard() subst.Expr { return b.Condition }
func (b *Base) Origin() *FSInfo   { return b.FSInfo }

// Binding is a name bound to an expression.
type Binding struct {
	Name  string
	Value subst.Expr
}

// StartProcess starts one external process.
type StartProcess struct {
	Base
	Process ProcessTemplate
}

func (*StartProcess) Kind() string {
	return "process"
}

// IncludeSession resolves another session file inline, in a fresh context
// seeded only from Arguments.
type IncludeSession struct {
	Base
	Path      subst.Expr
	Arguments []Binding
}

func (*IncludeSession) Kind() string { return "include" }

// SetVariable binds a value in the current frame of the runtime context.
type SetVariable struct {
	Base
	Variable string
	Value    subst.Expr
}

func (*SetVariable) Kind() string { return "set_variable" }

// SetParameter adds a parameter to every node started later in the current
// frame.
type SetParameter struct {
	Base
	Parameter string
	Value     subst.Expr
}

func (*SetParameter) Kind() string { return "set_parameter" }

// Group resolves its children in order. A scoped group confines variables
// and parameters set inside it to its children.
type Group struct {
	Base
	Scoped  bool
	Actions []Action
}

func (*Group) Kind() string { return "group" }

// RegisterShutdownHook registers work to run once when the session ends.
// Either Remove (a path) or Command is set.
type RegisterShutdownHook struct {
	Base
	Remove  subst.Expr
	Command []subst.Expr
}

func (*RegisterShutdownHook) Kind() string { return "on_shutdown" }

// AppendEnv extends an environment variable for every process started
// afterwards.
type AppendEnv struct {
	Base
	Variable  string
	Value     subst.Expr
	Separator subst.Expr
}

func (*AppendEnv) Kind() string { return "append_env" }

// EphemeralArtifact renders a temporary file with an external command and
// binds its path to Variable. The file is removed when the session ends.
// Command may reference var.self.path to learn the output location.
type EphemeralArtifact struct {
	Base
	Variable string
	Prefix   subst.Expr
	Suffix   subst.Expr
	Inputs   []subst.Expr
	Command  []subst.Expr
}

func (*EphemeralArtifact) Kind() string { return "ephemeral" }

// MaterializeParameters renders a parameter template and binds the
// resulting file path to Variable.
type MaterializeParameters struct {
	Base
	Variable string
	Source   ParameterSource
}

func (*MaterializeParameters) Kind() string { return "parameters" }

// LifecycleManager starts the lifecycle coordinator for a set of managed
// nodes. It must be declared after the nodes it manages.
type LifecycleManager struct {
	Base
	Package    subst.Expr
	Executable subst.Expr
	Namespace  subst.Expr
	NodeNames  []subst.Expr
	Autostart  subst.Expr
	Output     subst.Expr
	Parameters []Binding
	ParamFiles []subst.Expr
	Sources    []ParameterSource
}

func (*LifecycleManager) Kind() string { return "lifecycle_manager" }
