package session

import (
	"fmt"
	"io"
	"strings"

	"github.com/specialistvlad/launchgrid/internal/supervisor"
)

// Binding is a resolved name and value.
type Binding struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Plan records what a run resolved to.
type Plan struct {
	Arguments []Binding                      `json:"arguments"`
	Processes []supervisor.ProcessDescriptor `json:"processes"`
	Artifacts []string                       `json:"artifacts,omitempty"`
	Includes  []string                       `json:"includes,omitempty"`
	Skipped   []string                       `json:"skipped,omitempty"`
	Hooks     []string                       `json:"hooks,omitempty"`
}

// ProcessNames returns the names of the planned processes in start order.
func (p *Plan) ProcessNames() []string {
	names := make([]string, 0, len(p.Processes))
	for _, d := range p.Processes {
		names = append(names, d.Name)
	}
	return names
}

// Write prints the plan in a human-readable form.
func (p *Plan) Write(w io.Writer) error {
	var b strings.Builder
	b.WriteString("Arguments:\n")
	for _, a := range p.Arguments {
		fmt.Fprintf(&b, "  %s := %s\n", a.Name, a.Value)
	}
	if len(p.Includes) > 0 {
		b.WriteString("Includes:\n")
		for _, inc := range p.Includes {
			fmt.Fprintf(&b, "  %s\n", inc)
		}
	}
	b.WriteString("Processes:\n")
	for i, d := range p.Processes {
		fmt.Fprintf(&b, "  %d. %s: %s\n", i+1, d.Name, strings.Join(d.Argv(), " "))
		var flags []string
		if d.Respawn {
			flags = append(flags, fmt.Sprintf("respawn after %s", d.RespawnDelay))
		}
		if d.Required {
			flags = append(flags, "required")
		}
		if d.Output != "" && d.Output != supervisor.OutputScreen {
			flags = append(flags, "output "+d.Output)
		}
		if len(flags) > 0 {
			fmt.Fprintf(&b, "     (%s)\n", strings.Join(flags, ", "))
		}
	}
	if len(p.Artifacts) > 0 {
		b.WriteString("Artifacts:\n")
		for _, a := range p.Artifacts {
			fmt.Fprintf(&b, "  %s\n", a)
		}
	}
	if len(p.Skipped) > 0 {
		b.WriteString("Skipped:\n")
		for _, s := range p.Skipped {
			fmt.Fprintf(&b, "  %s\n", s)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}
