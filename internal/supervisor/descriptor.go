package supervisor

import (
	"fmt"
	"strings"
	"time"
)

// Output policies.
const (
	OutputScreen = "screen"
	OutputLog    = "log"
	OutputBoth   = "both"
)

// Param is an inline node parameter.
type Param struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Remap renames a topic or service for one node.
type Remap struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// ProcessDescriptor is a fully resolved process to start. Env is the
// complete environment of the process; nil inherits the orchestrator's.
type ProcessDescriptor struct {
	Name       string   `json:"name"`
	Executable string   `json:"executable"`
	Args       []string `json:"args,omitempty"`
	Env        []string `json:"-"`
	Dir        string   `json:"dir,omitempty"`

	Node       bool     `json:"node,omitempty"`
	NodeName   string   `json:"node_name,omitempty"`
	Namespace  string   `json:"namespace,omitempty"`
	ParamFiles []string `json:"param_files,omitempty"`
	Parameters []Param  `json:"parameters,omitempty"`
	Remaps     []Remap  `json:"remaps,omitempty"`

	Output       string        `json:"output"`
	Respawn      bool          `json:"respawn,omitempty"`
	RespawnDelay time.Duration `json:"respawn_delay,omitempty"`
	Required     bool          `json:"required,omitempty"`
}

// Argv returns the full argument vector, executable first. Nodes get their
// runtime arguments appended after Args.
func (d ProcessDescriptor) Argv() []string {
	argv := append([]string{d.Executable}, d.Args...)
	if !d.Node {
		return argv
	}
	argv = append(argv, "--ros-args")
	if d.NodeName != "" {
		argv = append(argv, "-r", "__node:="+d.NodeName)
	}
	if ns := NormalizeNamespace(d.Namespace); ns != "" {
		argv = append(argv, "-r", "__ns:="+ns)
	}
	for _, f := range d.ParamFiles {
		argv = append(argv, "--params-file", f)
	}
	for _, p := range d.Parameters {
		argv = append(argv, "-p", p.Name+":="+p.Value)
	}
	for _, r := range d.Remaps {
		argv = append(argv, "-r", r.From+":="+r.To)
	}
	return argv
}

// Validate checks the fields Spawn relies on.
func (d ProcessDescriptor) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("process has no name")
	}
	if d.Executable == "" {
		return fmt.Errorf("process %s has no executable", d.Name)
	}
	switch d.Output {
	case "", OutputScreen, OutputLog, OutputBoth:
	default:
		return fmt.Errorf("process %s: unknown output policy %q (want screen, log or both)", d.Name, d.Output)
	}
	if d.RespawnDelay < 0 {
		return fmt.Errorf("process %s: negative respawn delay %s", d.Name, d.RespawnDelay)
	}
	return nil
}

// NormalizeNamespace returns ns with a single leading slash and no trailing
// slash. The empty namespace stays empty.
func NormalizeNamespace(ns string) string {
	ns = strings.Trim(ns, "/")
	if ns == "" {
		return ""
	}
	return "/" + ns
}
