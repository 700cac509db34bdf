package hcl_adapter

import "github.com/hashicorp/hcl/v2"

// The structs below are the gohcl schemas of the session file blocks. Every
// attribute stays an unevaluated hcl.Expression; translation turns it into a
// substitution that is resolved at launch time.

type argumentBlock struct {
	Default     hcl.Expression `hcl:"default,optional"`
	Description string         `hcl:"description,optional"`
}

type processBlock struct {
	Condition    hcl.Expression `hcl:"condition,optional"`
	Cmd          hcl.Expression `hcl:"cmd"`
	Env          hcl.Expression `hcl:"env,optional"`
	Output       hcl.Expression `hcl:"output,optional"`
	Respawn      hcl.Expression `hcl:"respawn,optional"`
	RespawnDelay hcl.Expression `hcl:"respawn_delay,optional"`
	Required     hcl.Expression `hcl:"required,optional"`
}

type nodeBlock struct {
	Condition    hcl.Expression `hcl:"condition,optional"`
	Package      hcl.Expression `hcl:"package,optional"`
	Executable   hcl.Expression `hcl:"executable"`
	Name         hcl.Expression `hcl:"name,optional"`
	Namespace    hcl.Expression `hcl:"namespace,optional"`
	Args         hcl.Expression `hcl:"args,optional"`
	Parameters   hcl.Expression `hcl:"parameters,optional"`
	ParamFiles   hcl.Expression `hcl:"param_files,optional"`
	Remaps       hcl.Expression `hcl:"remaps,optional"`
	Env          hcl.Expression `hcl:"env,optional"`
	Output       hcl.Expression `hcl:"output,optional"`
	Respawn      hcl.Expression `hcl:"respawn,optional"`
	RespawnDelay hcl.Expression `hcl:"respawn_delay,optional"`
	Required     hcl.Expression `hcl:"required,optional"`

	Sources []*sourceBlock `hcl:"parameter_source,block"`
}

// sourceBlock is a parameter template rendered for a single node.
type sourceBlock struct {
	Name         string         `hcl:"name,label"`
	Template     hcl.Expression `hcl:"template"`
	RootKey      hcl.Expression `hcl:"root_key,optional"`
	Rewrites     hcl.Expression `hcl:"rewrites,optional"`
	ConvertTypes bool           `hcl:"convert_types,optional"`
}

type lifecycleBlock struct {
	Condition  hcl.Expression `hcl:"condition,optional"`
	Package    hcl.Expression `hcl:"package,optional"`
	Executable hcl.Expression `hcl:"executable,optional"`
	Namespace  hcl.Expression `hcl:"namespace,optional"`
	NodeNames  hcl.Expression `hcl:"node_names"`
	Autostart  hcl.Expression `hcl:"autostart,optional"`
	Output     hcl.Expression `hcl:"output,optional"`
	Parameters hcl.Expression `hcl:"parameters,optional"`
	ParamFiles hcl.Expression `hcl:"param_files,optional"`

	Sources []*sourceBlock `hcl:"parameter_source,block"`
}

type includeBlock struct {
	Condition hcl.Expression `hcl:"condition,optional"`
	Path      hcl.Expression `hcl:"path"`
	Arguments hcl.Expression `hcl:"arguments,optional"`
}

type groupBlock struct {
	Condition hcl.Expression `hcl:"condition,optional"`
	Scoped    *bool          `hcl:"scoped,optional"`
	Remain    hcl.Body       `hcl:",remain"`
}

// valueBlock backs set_variable and set_parameter.
type valueBlock struct {
	Condition hcl.Expression `hcl:"condition,optional"`
	Value     hcl.Expression `hcl:"value"`
}

type parametersBlock struct {
	Condition    hcl.Expression `hcl:"condition,optional"`
	Template     hcl.Expression `hcl:"template"`
	RootKey      hcl.Expression `hcl:"root_key,optional"`
	Rewrites     hcl.Expression `hcl:"rewrites,optional"`
	ConvertTypes bool           `hcl:"convert_types,optional"`
}

type ephemeralBlock struct {
	Condition hcl.Expression `hcl:"condition,optional"`
	Prefix    hcl.Expression `hcl:"prefix,optional"`
	Suffix    hcl.Expression `hcl:"suffix,optional"`
	Inputs    hcl.Expression `hcl:"inputs,optional"`
	Command   hcl.Expression `hcl:"command"`
}

type shutdownBlock struct {
	Condition hcl.Expression `hcl:"condition,optional"`
	Remove    hcl.Expression `hcl:"remove,optional"`
	Command   hcl.Expression `hcl:"command,optional"`
}

type appendEnvBlock struct {
	Condition hcl.Expression `hcl:"condition,optional"`
	Value     hcl.Expression `hcl:"value"`
	Separator hcl.Expression `hcl:"separator,optional"`
}
